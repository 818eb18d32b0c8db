// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MessageDependencies defines the interface for message ingestion.
type MessageDependencies interface {
	Enqueue(ctx context.Context, e Event) bool
}

// MessagesHandler handles message ingestion requests.
type MessagesHandler struct {
	deps          Dependencies
	maxTermLength int
}

// NewMessagesHandler creates a new messages handler.
func NewMessagesHandler(deps Dependencies, maxTermLength int) *MessagesHandler {
	return &MessagesHandler{deps: deps, maxTermLength: maxTermLength}
}

// HandlePostMessage handles POST /messages requests.
func (h *MessagesHandler) HandlePostMessage(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_message"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
		return
	}
	ts, err := req.validate(h.maxTermLength)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
		return
	}
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	// One occurrence per term; all share the message identity. On
	// backpressure the message is rejected and occurrences enqueued
	// before the failure are not rolled back.
	messageID := uuid.NewString()
	for _, term := range req.Terms {
		e := Event{
			MessageID:   messageID,
			Term:        strings.TrimSpace(term),
			Contributor: req.ContributorID,
			TS:          ts,
		}
		if ok := h.deps.Enqueue(r.Context(), e); !ok {
			writeError(w, http.StatusTooManyRequests, "backpressure", newKind(op, ErrBackpressure))
			return
		}
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", MessageID: messageID})
}
