package server

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/joshwigginton/composer-signals-alpaca/internal/domain"
)

// pushEnvelope is the message-topic push payload. Only arrival matters;
// the data field is decoded for the log line and otherwise ignored.
type pushEnvelope struct {
	Message struct {
		Data      string `json:"data"` // base64
		MessageID string `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode response")
	}
}

// handleTrigger runs a rebalance in response to a message-topic push.
// POST /api/rebalance/trigger
func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	var envelope pushEnvelope
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		http.Error(w, "invalid push envelope", http.StatusBadRequest)
		return
	}

	if payload, err := base64.StdEncoding.DecodeString(envelope.Message.Data); err == nil && len(payload) > 0 {
		s.log.Info().
			Str("message_id", envelope.Message.MessageID).
			Str("payload", string(payload)).
			Msg("Trigger message received")
	}

	s.runAndRespond(w, r)
}

// handleManualRun runs a rebalance on demand, without a push envelope.
// POST /api/rebalance/run
func (s *Server) handleManualRun(w http.ResponseWriter, r *http.Request) {
	s.runAndRespond(w, r)
}

// runAndRespond executes one run. Per-order rejections are part of a normal
// run and return 200; fatal errors return 500 so the hosting platform's
// error reporting picks them up.
func (s *Server) runAndRespond(w http.ResponseWriter, r *http.Request) {
	report, err := s.service.Run(r.Context())
	if err != nil {
		s.writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"status": domain.RunStatusFailed,
			"error":  err.Error(),
		})
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     report.Status,
		"symphony":   report.Symphony,
		"orders":     len(report.Orders),
		"rejections": report.Rejections(),
		"skipped":    report.SkippedSymbols,
	})
}

// handleLastRun returns the most recent journaled run.
// GET /api/rebalance/last-run
func (s *Server) handleLastRun(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		http.Error(w, "journal not configured", http.StatusNotFound)
		return
	}

	rec, err := s.journal.LastRun()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if rec == nil {
		http.Error(w, "no runs recorded", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

// handleRecentRuns returns recent journaled runs, newest first.
// GET /api/rebalance/runs
func (s *Server) handleRecentRuns(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		http.Error(w, "journal not configured", http.StatusNotFound)
		return
	}

	records, err := s.journal.Recent(50)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, records)
}

// handleHealth is a basic liveness check.
// GET /api/health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.started).String(),
	})
}

// handleSystemStatus reports host resource usage.
// GET /api/system/status
func (s *Server) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}
	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	memPercent := 0.0
	if memStat, err := mem.VirtualMemory(); err == nil {
		memPercent = memStat.UsedPercent
	} else {
		s.log.Warn().Err(err).Msg("Failed to get memory statistics")
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"cpu_percent": cpuAvg,
		"mem_percent": memPercent,
		"goroutines":  runtime.NumGoroutine(),
		"uptime":      time.Since(s.started).String(),
	})
}
