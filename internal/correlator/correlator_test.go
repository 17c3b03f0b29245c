package correlator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethanolivertroy/psirt-check/internal/features"
	"github.com/ethanolivertroy/psirt-check/internal/models"
)

// fakeSource serves canned advisories and counts calls per (OS type, version)
type fakeSource struct {
	mu       sync.Mutex
	calls    map[string]int
	total    atomic.Int32
	byKey    map[string][]models.Advisory
	failures map[string]error
	delay    time.Duration
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		calls:    make(map[string]int),
		byKey:    make(map[string][]models.Advisory),
		failures: make(map[string]error),
	}
}

func (f *fakeSource) add(osType models.OSType, version string, advs ...models.Advisory) {
	f.byKey[string(osType)+"/"+version] = advs
}

func (f *fakeSource) fail(osType models.OSType, version string, err error) {
	f.failures[string(osType)+"/"+version] = err
}

func (f *fakeSource) Fetch(ctx context.Context, osType models.OSType, version string) ([]models.Advisory, error) {
	key := string(osType) + "/" + version
	f.total.Add(1)
	f.mu.Lock()
	f.calls[key]++
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if err, ok := f.failures[key]; ok {
		return nil, err
	}
	return f.byKey[key], nil
}

func (f *fakeSource) callsFor(osType models.OSType, version string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[string(osType)+"/"+version]
}

func ids(advs []models.Advisory) []string {
	out := make([]string, 0, len(advs))
	for _, a := range advs {
		out = append(out, a.ID)
	}
	return out
}

func TestCorrelateFiltersByConfiguration(t *testing.T) {
	src := newFakeSource()
	src.add(models.OSTypeIOSXE, "17.9.3",
		models.Advisory{ID: "sa-telnet", SIR: "High", Feature: "telnet"},
		models.Advisory{ID: "sa-generic", SIR: "Critical"},
		models.Advisory{ID: "sa-unknown", SIR: "Medium", Feature: "quantum-uplink"},
		models.Advisory{ID: "sa-bgp", SIR: "Low", Feature: "bgp"},
	)

	inventory := []models.Device{
		{Hostname: "sw1", PlatformID: "C9300-48P", SoftwareVersion: "17.9.3", Config: "line vty 0 4\n transport input telnet"},
		{Hostname: "sw2", PlatformID: "C9300-48P", SoftwareVersion: "17.9.3", Config: "router bgp 65000\n transport input ssh"},
		{Hostname: "sw3", PlatformID: "C9300-48P", SoftwareVersion: "17.9.3"},
	}

	results, diags := New(src).Correlate(context.Background(), inventory)
	require.Len(t, results, 3)
	assert.Empty(t, diags)

	assert.Equal(t, []string{"sa-telnet", "sa-generic", "sa-unknown"}, ids(results[0].Advisories))
	assert.Equal(t, []string{"sa-generic", "sa-unknown", "sa-bgp"}, ids(results[1].Advisories))
	assert.Equal(t, []string{"sa-generic", "sa-unknown"}, ids(results[2].Advisories))

	for i, r := range results {
		assert.Equal(t, inventory[i].Hostname, r.Device.Hostname)
		assert.Equal(t, models.OSTypeIOSXE, r.OSType)
	}
}

func TestCorrelateFetchesOncePerKey(t *testing.T) {
	src := newFakeSource()
	src.add(models.OSTypeIOSXE, "17.9.3", models.Advisory{ID: "a"})
	src.add(models.OSTypeNXOS, "9.3(8)", models.Advisory{ID: "b"})

	inventory := []models.Device{
		{Hostname: "sw1", PlatformID: "C9300", SoftwareVersion: "17.9.3"},
		{Hostname: "sw2", PlatformID: "C9500", SoftwareVersion: "17.9.3"},
		{Hostname: "nx1", SoftwareType: "NX-OS", SoftwareVersion: "9.3(8)"},
		{Hostname: "sw3", PlatformID: "C9200", SoftwareVersion: "17.9.3"},
		{Hostname: "nx2", PlatformID: "N9K", SoftwareVersion: "9.3(8)"},
		// same version string, different OS type: separate key
		{Hostname: "nx3", SoftwareType: "NX-OS", SoftwareVersion: "17.9.3"},
	}

	results, _ := New(src, WithConcurrency(4)).Correlate(context.Background(), inventory)
	require.Len(t, results, 6)

	assert.Equal(t, 1, src.callsFor(models.OSTypeIOSXE, "17.9.3"))
	assert.Equal(t, 1, src.callsFor(models.OSTypeNXOS, "9.3(8)"))
	assert.Equal(t, 1, src.callsFor(models.OSTypeNXOS, "17.9.3"))
	assert.Equal(t, int32(3), src.total.Load())

	assert.Equal(t, []string{"b"}, ids(results[4].Advisories))
	assert.Empty(t, results[5].Advisories)
}

func TestCorrelateFetchesOnceUnderConcurrency(t *testing.T) {
	src := newFakeSource()
	src.delay = 10 * time.Millisecond
	src.add(models.OSTypeIOSXE, "17.6.5", models.Advisory{ID: "a"})

	var inventory []models.Device
	for i := 0; i < 50; i++ {
		inventory = append(inventory, models.Device{Hostname: "sw", SoftwareVersion: "17.6.5"})
	}

	results, _ := New(src, WithConcurrency(16)).Correlate(context.Background(), inventory)
	assert.Len(t, results, 50)
	assert.Equal(t, int32(1), src.total.Load())
}

func TestCorrelateIsolatesFetchFailures(t *testing.T) {
	src := newFakeSource()
	src.fail(models.OSTypeIOSXE, "17.3.6", errors.New("unexpected status code: 503"))
	src.add(models.OSTypeIOSXE, "17.9.3", models.Advisory{ID: "sa-1", SIR: "Critical"}, models.Advisory{ID: "sa-2", SIR: "Low"})

	inventory := []models.Device{
		{Hostname: "old1", SoftwareVersion: "17.3.6"},
		{Hostname: "new1", SoftwareVersion: "17.9.3"},
		{Hostname: "old2", SoftwareVersion: "17.3.6"},
	}

	results, diags := New(src).Correlate(context.Background(), inventory)
	require.Len(t, results, 3)

	assert.NotNil(t, results[0].Advisories)
	assert.Empty(t, results[0].Advisories)
	assert.Equal(t, []string{"sa-1", "sa-2"}, ids(results[1].Advisories))
	assert.Empty(t, results[2].Advisories)

	// failure was cached, not retried for the second device
	assert.Equal(t, 1, src.callsFor(models.OSTypeIOSXE, "17.3.6"))

	require.Len(t, diags, 1)
	assert.Equal(t, models.OSTypeIOSXE, diags[0].OSType)
	assert.Equal(t, "17.3.6", diags[0].Version)
	assert.Equal(t, 2, diags[0].Devices)
	assert.Contains(t, diags[0].Message, "503")
}

func TestCorrelateEmptyInventory(t *testing.T) {
	src := newFakeSource()
	results, diags := New(src).Correlate(context.Background(), nil)
	assert.NotNil(t, results)
	assert.Empty(t, results)
	assert.Empty(t, diags)
	assert.Equal(t, int32(0), src.total.Load())
}

func TestCorrelateEmptyFetchIsCached(t *testing.T) {
	src := newFakeSource()
	inventory := []models.Device{
		{Hostname: "fw1", PlatformID: "ASA5516", SoftwareVersion: "9.16.4"},
		{Hostname: "fw2", PlatformID: "ASA5516", SoftwareVersion: "9.16.4"},
	}

	results, diags := New(src).Correlate(context.Background(), inventory)
	assert.Empty(t, diags)
	assert.Empty(t, results[0].Advisories)
	assert.Empty(t, results[1].Advisories)
	assert.Equal(t, 1, src.callsFor(models.OSTypeASA, "9.16.4"))
}

func TestCorrelateDoesNotMutateSourceAdvisories(t *testing.T) {
	raw := []models.Advisory{
		{ID: "a", Feature: "ospf"},
		{ID: "b"},
		{ID: "c", Feature: "ospf"},
	}
	src := SourceFunc(func(ctx context.Context, osType models.OSType, version string) ([]models.Advisory, error) {
		return raw, nil
	})

	inventory := []models.Device{
		{Hostname: "r1", SoftwareVersion: "17.9.3"},
		{Hostname: "r2", SoftwareVersion: "17.9.3", Config: "router ospf 1"},
	}
	results, _ := New(src).Correlate(context.Background(), inventory)

	assert.Equal(t, []string{"b"}, ids(results[0].Advisories))
	assert.Equal(t, []string{"a", "b", "c"}, ids(results[1].Advisories))
	assert.Equal(t, []string{"a", "b", "c"}, ids(raw))
}

func TestCorrelateWithFeatureMap(t *testing.T) {
	m, err := features.Decode([]byte("[features]\nlisp = [\"router lisp\"]\n"))
	require.NoError(t, err)

	src := newFakeSource()
	src.add(models.OSTypeIOSXE, "17.9.3",
		models.Advisory{ID: "lisp", Feature: "lisp"},
		models.Advisory{ID: "telnet", Feature: "telnet"},
	)

	results, _ := New(src, WithFeatureMap(m)).Correlate(context.Background(), []models.Device{
		{Hostname: "r1", SoftwareVersion: "17.9.3", Config: "hostname r1"},
	})
	// telnet is unknown to the custom map, so it is kept
	assert.Equal(t, []string{"telnet"}, ids(results[0].Advisories))
}
