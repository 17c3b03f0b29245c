package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/ethanolivertroy/psirt-check/internal/models"
	"github.com/ethanolivertroy/psirt-check/internal/reporter"
	"github.com/ethanolivertroy/psirt-check/internal/risk"
)

// current returns the served report, answering 503 when there is none yet
func (s *Server) current(w http.ResponseWriter) *models.Report {
	report := s.Report()
	if report == nil {
		msg := "no report available yet"
		s.mu.RLock()
		if s.lastErr != nil {
			msg += ": " + s.lastErr.Error()
		}
		s.mu.RUnlock()
		writeError(w, http.StatusServiceUnavailable, msg)
	}
	return report
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	report := s.current(w)
	if report == nil {
		return
	}
	body, err := (&reporter.JSONReporter{}).Report(report)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	report := s.current(w)
	if report == nil {
		return
	}

	results := report.Results
	if raw := r.URL.Query().Get("severity"); raw != "" {
		sev := models.ParseSeverity(raw)
		if sev == models.SeverityNone {
			writeError(w, http.StatusBadRequest, "unknown severity "+strconv.Quote(raw))
			return
		}
		results = risk.FilterBySeverity(results, sev)
	}
	writeJSON(w, http.StatusOK, reporter.DeviceViews(results))
}

func (s *Server) handleRanking(w http.ResponseWriter, r *http.Request) {
	report := s.current(w)
	if report == nil {
		return
	}

	top := s.topN
	if raw := r.URL.Query().Get("top"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "top must be an integer")
			return
		}
		top = n
	}
	writeJSON(w, http.StatusOK, reporter.RankingViews(risk.Rank(report.Results, top)))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	report := s.current(w)
	if report == nil {
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Write([]byte(report.Summary))
}

func (s *Server) handleSeverityCounts(w http.ResponseWriter, r *http.Request) {
	report := s.current(w)
	if report == nil {
		return
	}
	writeJSON(w, http.StatusOK, report.SeverityCounts)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	report, err := s.Refresh(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"run_id":           report.RunID,
		"devices":          len(report.Results),
		"affected_devices": report.AffectedDevices(),
		"advisories":       report.AdvisoryCount(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"ready":  s.Report() != nil,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
