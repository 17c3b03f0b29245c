package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethanolivertroy/psirt-check/internal/models"
	"github.com/ethanolivertroy/psirt-check/internal/reporter"
	"github.com/ethanolivertroy/psirt-check/internal/risk"
	"github.com/ethanolivertroy/psirt-check/internal/summary"
)

func testReport(runID string) *models.Report {
	results := []models.CorrelationResult{
		{
			Device: models.Device{Hostname: "core1", SoftwareVersion: "17.3.6"},
			OSType: models.OSTypeIOSXE,
			Advisories: []models.Advisory{
				{ID: "cisco-sa-webui", SIR: "Critical", Feature: "webui"},
				{ID: "cisco-sa-ntp", SIR: "Low"},
			},
		},
		{
			Device:     models.Device{Hostname: "acc1", SoftwareVersion: "17.9.3"},
			OSType:     models.OSTypeIOSXE,
			Advisories: []models.Advisory{},
		},
		{
			Device: models.Device{Hostname: "fw1", SoftwareVersion: "9.16.4"},
			OSType: models.OSTypeASA,
			Advisories: []models.Advisory{
				{ID: "cisco-sa-asa-ssl", SIR: "High"},
				{ID: "cisco-sa-asa-dos", SIR: "High"},
			},
		},
	}
	ranked := risk.Rank(results, 10)
	digests := summary.Build(ranked, 10)
	return &models.Report{
		RunID:          runID,
		Results:        results,
		Ranked:         ranked,
		Digests:        digests,
		Summary:        summary.Markdown(digests),
		SeverityCounts: risk.CountBySeverity(results),
	}
}

func newTestServer(t *testing.T, run RunFunc) (*Server, *httptest.Server) {
	t.Helper()
	s := New(run, 10)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func readyServer(t *testing.T) *httptest.Server {
	t.Helper()
	s, ts := newTestServer(t, func(context.Context) (*models.Report, error) {
		return testReport("run-1"), nil
	})
	_, err := s.Refresh(context.Background())
	require.NoError(t, err)
	return ts
}

func getJSON(t *testing.T, url string, v any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp
}

func TestServer_NotReady(t *testing.T) {
	_, ts := newTestServer(t, func(context.Context) (*models.Report, error) {
		return nil, errors.New("inventory unavailable")
	})

	var body map[string]string
	resp := getJSON(t, ts.URL+"/api/report", &body)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "no report available yet", body["error"])

	var health map[string]any
	resp = getJSON(t, ts.URL+"/healthz", &health)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, health["ready"])
}

func TestServer_Report(t *testing.T) {
	ts := readyServer(t)

	var body struct {
		Summary struct {
			RunID           string `json:"run_id"`
			TotalDevices    int    `json:"total_devices"`
			TotalAdvisories int    `json:"total_advisories"`
		} `json:"summary"`
	}
	resp := getJSON(t, ts.URL+"/api/report", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, "run-1", body.Summary.RunID)
	assert.Equal(t, 3, body.Summary.TotalDevices)
	assert.Equal(t, 4, body.Summary.TotalAdvisories)
}

func TestServer_Results(t *testing.T) {
	ts := readyServer(t)

	var all []reporter.DeviceView
	getJSON(t, ts.URL+"/api/results", &all)
	assert.Len(t, all, 3)

	var high []reporter.DeviceView
	resp := getJSON(t, ts.URL+"/api/results?severity=high", &high)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, high, 1)
	assert.Equal(t, "fw1", high[0].Device.Hostname)
	assert.Len(t, high[0].Advisories, 2)

	var none []reporter.DeviceView
	getJSON(t, ts.URL+"/api/results?severity=medium", &none)
	assert.Empty(t, none)

	resp = getJSON(t, ts.URL+"/api/results?severity=urgent", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_Ranking(t *testing.T) {
	ts := readyServer(t)

	var ranking []reporter.RankedView
	getJSON(t, ts.URL+"/api/ranking", &ranking)
	require.Len(t, ranking, 3)
	assert.Equal(t, "fw1", ranking[0].Hostname)
	assert.Equal(t, 6.0, ranking[0].Score)
	assert.Equal(t, "core1", ranking[1].Hostname)
	assert.Equal(t, 5.5, ranking[1].Score)
	assert.Equal(t, 3, ranking[2].Rank)

	var top1 []reporter.RankedView
	getJSON(t, ts.URL+"/api/ranking?top=1", &top1)
	require.Len(t, top1, 1)
	assert.Equal(t, "fw1", top1[0].Hostname)

	resp := getJSON(t, ts.URL+"/api/ranking?top=ten", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_SummaryAndCounts(t *testing.T) {
	ts := readyServer(t)

	resp, err := http.Get(ts.URL + "/api/summary")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/markdown; charset=utf-8", resp.Header.Get("Content-Type"))
	var sb strings.Builder
	_, err = sb.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, sb.String(), "## Executive Summary")

	var counts models.SeverityCounts
	getJSON(t, ts.URL+"/api/severity-counts", &counts)
	assert.Equal(t, models.SeverityCounts{Critical: 1, High: 2, Low: 1}, counts)
}

func TestServer_Refresh(t *testing.T) {
	var runs atomic.Int32
	s, ts := newTestServer(t, func(context.Context) (*models.Report, error) {
		n := runs.Add(1)
		if n == 2 {
			return nil, errors.New("advisory api down")
		}
		return testReport(fmt.Sprintf("run-%d", n)), nil
	})
	_, err := s.Refresh(context.Background())
	require.NoError(t, err)

	resp, err := http.Post(ts.URL+"/api/refresh", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "run-1", s.Report().RunID, "failed refresh keeps the previous report")

	var body map[string]any
	resp, err = http.Post(ts.URL+"/api/refresh", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "run-3", body["run_id"])
	assert.Equal(t, float64(2), body["affected_devices"])
	assert.Equal(t, "run-3", s.Report().RunID)
}

func TestServer_MethodNotAllowed(t *testing.T) {
	ts := readyServer(t)

	resp := getJSON(t, ts.URL+"/api/refresh", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestServer_Metrics(t *testing.T) {
	ts := readyServer(t)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_ListenAndServeShutdown(t *testing.T) {
	s := New(func(context.Context) (*models.Report, error) { return testReport("x"), nil }, 10)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()
	cancel()
	assert.NoError(t, <-done)
}
