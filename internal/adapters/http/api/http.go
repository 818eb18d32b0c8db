// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/okian/squid/internal/domain/leaderboard"
	"github.com/okian/squid/internal/domain/model"
)

// Default request limits.
const (
	defaultMaxK          = 100
	defaultMaxTermLength = 64
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Enqueue pushes one occurrence for async scoring. Returns false on backpressure.
	Enqueue(ctx context.Context, e Event) bool

	// Read operations expose trend data.
	Top(ctx context.Context, k int) (View, error)
	TermScore(ctx context.Context, term string) (Entry, bool)
}

// Event mirrors the occurrence shape pushed onto the ingest queue.
type Event = model.Event

// Entry mirrors the read shape returned by trend queries.
type Entry = leaderboard.Entry

// View mirrors the versioned snapshot returned by trend queries.
type View = leaderboard.View

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	messagesHandler *MessagesHandler
	trendsHandler   *TrendsHandler
	termsHandler    *TermsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		messagesHandler: NewMessagesHandler(deps, defaultMaxTermLength),
		trendsHandler:   NewTrendsHandler(deps, defaultMaxK),
		termsHandler:    NewTermsHandler(deps),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/messages", MetricsMiddleware(s.messagesHandler.HandlePostMessage, "messages"))
	mux.HandleFunc("/trends", MetricsMiddleware(s.trendsHandler.HandleGetTrends, "trends"))
	mux.HandleFunc("/terms/", MetricsMiddleware(s.termsHandler.HandleGetTermScore, "terms"))
}

// messageRequest mirrors the wire schema for POST /messages.
type messageRequest struct {
	Terms         []string `json:"terms"`
	ContributorID string   `json:"contributor_id"`
	TS            string   `json:"ts"`
}

// validate checks the request and returns the parsed timestamp. A zero
// time means no ts was supplied and the caller should use arrival time.
func (m messageRequest) validate(maxTermLength int) (time.Time, error) {
	switch {
	case len(m.Terms) == 0:
		return time.Time{}, errors.New("missing terms")
	case strings.TrimSpace(m.ContributorID) == "":
		return time.Time{}, errors.New("missing contributor_id")
	}
	for _, term := range m.Terms {
		if strings.TrimSpace(term) == "" {
			return time.Time{}, errors.New("empty term")
		}
		if len(term) > maxTermLength {
			return time.Time{}, errors.New("term too long")
		}
	}
	if m.TS == "" {
		return time.Time{}, nil
	}
	ts, err := time.Parse(time.RFC3339, m.TS)
	if err != nil {
		return time.Time{}, errors.New("invalid ts; must be RFC3339")
	}
	return ts, nil
}

type ackResponse struct {
	Status    string `json:"status"`
	MessageID string `json:"message_id"`
}

type scoreResponse struct {
	Term       string  `json:"term"`
	Score      float64 `json:"score"`
	LastUpdate int64   `json:"last_update"`
}

type trendsResponse struct {
	AsOf    time.Time `json:"as_of"`
	Version uint64    `json:"version"`
	Entries []Entry   `json:"entries"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
