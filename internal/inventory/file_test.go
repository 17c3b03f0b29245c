package inventory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestFileProviderExplicitFile(t *testing.T) {
	dir := t.TempDir()
	inv := filepath.Join(dir, "devices.yaml")
	writeFile(t, inv, `
- hostname: sw1
  platformId: C9300-48P
  softwareVersion: "17.9.3"
  configFile: configs/sw1.cfg
- hostname: sw2
  platformId: C9300-48P
  softwareVersion: "17.9.3"
  config: "Router BGP 65000"
`)
	writeFile(t, filepath.Join(dir, "configs", "sw1.cfg"), "Line VTY 0 4\n Transport Input Telnet\n")

	devices, err := NewFileProvider(inv).Devices(context.Background())
	require.NoError(t, err)
	require.Len(t, devices, 2)

	assert.Equal(t, "line vty 0 4\n transport input telnet\n", devices[0].Config)
	assert.Equal(t, "router bgp 65000", devices[1].Config)
}

func TestFileProviderWalksDirectories(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "inventory.json"), `[{"hostname": "r1", "softwareVersion": "17.6.5"}]`)
	writeFile(t, filepath.Join(dir, "site-b", "branch-inventory.csv"), "hostname,softwareVersion\nr2,17.9.3\n")
	writeFile(t, filepath.Join(dir, "site-b", "notes.json"), `[{"hostname": "ignored"}]`)
	writeFile(t, filepath.Join(dir, ".git", "inventory.json"), `[{"hostname": "hidden"}]`)
	writeFile(t, filepath.Join(dir, "broken-inventory.toml"), "[[devices]\n")

	devices, err := NewFileProvider(dir).Devices(context.Background())
	require.NoError(t, err)

	var hosts []string
	for _, d := range devices {
		hosts = append(hosts, d.Hostname)
	}
	assert.ElementsMatch(t, []string{"r1", "r2"}, hosts)
}

func TestFileProviderErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := NewFileProvider(filepath.Join(dir, "missing.json")).Devices(context.Background())
	assert.Error(t, err)

	txt := filepath.Join(dir, "inventory.txt")
	writeFile(t, txt, "r1")
	_, err = NewFileProvider(txt).Devices(context.Background())
	assert.ErrorContains(t, err, "unsupported inventory format")

	bad := filepath.Join(dir, "inventory.json")
	writeFile(t, bad, `[{"hostname": "r1", "configFile": "nope.cfg"}]`)
	_, err = NewFileProvider(bad).Devices(context.Background())
	assert.ErrorContains(t, err, "device r1")
}

func TestFileProviderSkipsRecordsWithoutHostname(t *testing.T) {
	inv := filepath.Join(t.TempDir(), "inventory.json")
	writeFile(t, inv, `[{"softwareVersion": "17.9.3"}, {"hostname": "r1", "softwareVersion": "17.9.3"}]`)

	devices, err := NewFileProvider(inv).Devices(context.Background())
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "r1", devices[0].Hostname)
}

func TestStatic(t *testing.T) {
	s := Static{{Hostname: "a"}, {Hostname: "b"}}
	devices, err := s.Devices(context.Background())
	require.NoError(t, err)
	devices[0].Hostname = "changed"
	assert.Equal(t, "a", s[0].Hostname)
}
