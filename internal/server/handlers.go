package server

import (
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/mwiater/jsonrag/internal/metrics"
	"github.com/mwiater/jsonrag/internal/ragerr"
)

type fetchReq struct {
	Endpoint string `json:"endpoint"`
}

type askReq struct {
	Question string `json:"question"`
}

type statusResp struct {
	Ready      bool      `json:"ready"`
	Endpoint   string    `json:"endpoint,omitempty"`
	Records    int       `json:"records"`
	Chunks     int       `json:"chunks"`
	Characters int       `json:"characters"`
	BuildID    string    `json:"buildId,omitempty"`
	IngestedAt time.Time `json:"ingestedAt,omitzero"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"service":   "jsonrag",
		"version":   s.cfg.Version,
	})
}

func (s *Server) fetch(c *gin.Context) {
	var req fetchReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Endpoint) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body: endpoint is required"})
		return
	}

	start := time.Now()
	summary, err := s.session.Ingest(c.Request.Context(), strings.TrimSpace(req.Endpoint))
	s.metrics.Record(metrics.OpIngest, time.Since(start), summary.Chunks, err)
	if err != nil {
		writeError(c, err)
		return
	}
	state, _ := s.session.Snapshot()
	c.JSON(http.StatusOK, gin.H{"ok": true, "summary": summary, "data": state.Data})
}

func (s *Server) ask(c *gin.Context) {
	var req askReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Question) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body: question is required"})
		return
	}

	start := time.Now()
	answer, err := s.session.Ask(c.Request.Context(), strings.TrimSpace(req.Question))
	s.metrics.Record(metrics.OpAsk, time.Since(start), -1, err)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "answer": answer})
}

func (s *Server) status(c *gin.Context) {
	state, ok := s.session.Snapshot()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"ok": true, "status": statusResp{}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "status": statusResp{
		Ready:      true,
		Endpoint:   state.Endpoint,
		Records:    state.Records,
		Chunks:     len(state.Chunks),
		Characters: utf8.RuneCountInString(state.Text),
		BuildID:    state.Handle.Meta().BuildID,
		IngestedAt: state.IngestedAt,
	}})
}

func (s *Server) metricsReport(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "operations": s.metrics.Snapshot()})
}

func writeError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"ok": false, "kind": kindName(err), "error": ragerr.Message(err)})
}

// statusFor maps a failure kind to the HTTP status reported for it.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ragerr.ErrNoData), errors.Is(err, ragerr.ErrNotInitialized):
		return http.StatusConflict
	case errors.Is(err, ragerr.ErrInvalidShape):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ragerr.ErrInvalidConfig):
		return http.StatusBadRequest
	case errors.Is(err, ragerr.ErrFetch),
		errors.Is(err, ragerr.ErrEmbeddingProvider),
		errors.Is(err, ragerr.ErrGeneration):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func kindName(err error) string {
	if k := ragerr.KindOf(err); k != nil {
		return k.Error()
	}
	return "InternalError"
}
