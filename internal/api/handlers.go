// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ManuGH/nerve/internal/bus"
	"github.com/ManuGH/nerve/internal/event"
	"github.com/ManuGH/nerve/internal/journal"
	"github.com/ManuGH/nerve/internal/log"
	"github.com/ManuGH/nerve/internal/message"
	"github.com/ManuGH/nerve/internal/queue"
)

const (
	pathArbitration = "arbitration"
	pathBroadcast   = "broadcast"

	maxBodyBytes     = 64 << 10
	defaultJournal   = 50
	maxJournalRecord = 1000
)

// PublishRequest is the body of POST /api/v1/events.
type PublishRequest struct {
	Event string `json:"event"`
	Value any    `json:"value,omitempty"`
	// Path is "arbitration" (default) or "broadcast".
	Path string `json:"path,omitempty"`
}

// PublishResponse acknowledges an accepted event.
type PublishResponse struct {
	ID       string    `json:"id"`
	Sequence uint64    `json:"sequence"`
	Event    string    `json:"event"`
	Priority int       `json:"priority"`
	Path     string    `json:"path"`
	Pending  []string  `json:"pending,omitempty"`
	Created  time.Time `json:"created_at"`
}

// EventInfo is one catalogue entry.
type EventInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Priority    int    `json:"priority"`
	Ballistic   bool   `json:"ballistic"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.backend.Status())
}

func (s *Server) handleListEvents(w http.ResponseWriter, _ *http.Request) {
	infos := s.backend.Catalogue().All()
	out := make([]EventInfo, 0, len(infos))
	for _, info := range infos {
		out = append(out, EventInfo{
			Name:        info.Name(),
			Description: info.Description,
			Priority:    info.Priority,
			Ballistic:   info.Ballistic,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	var req PublishRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, fmt.Errorf("invalid request body: %w", err))
		return
	}

	kind, err := event.Parse(req.Event)
	if err != nil {
		writeError(w, err)
		return
	}

	var m *message.Message
	switch req.Path {
	case "", pathArbitration:
		req.Path = pathArbitration
		m, err = s.backend.Publish(r.Context(), kind, req.Value)
	case pathBroadcast:
		m, err = s.backend.Broadcast(r.Context(), kind, req.Value)
	default:
		writeError(w, fmt.Errorf("unknown path %q", req.Path))
		return
	}
	if err != nil {
		logger := log.WithContext(r.Context(), s.logger)
		switch {
		case errors.Is(err, queue.ErrQueueFull), errors.Is(err, bus.ErrBusFull), errors.Is(err, bus.ErrStopped):
			logger.Warn().Err(err).Str(log.FieldKind, kind.String()).Msg("publish rejected")
			writeServiceUnavailable(w, err)
		case errors.Is(err, event.ErrUnknownKind):
			writeError(w, err)
		default:
			logger.Error().Err(err).Str(log.FieldKind, kind.String()).Msg("publish failed")
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		return
	}

	resp := PublishResponse{
		ID:       m.ID(),
		Sequence: m.Sequence(),
		Event:    m.Event().Name(),
		Priority: m.Priority(),
		Path:     req.Path,
		Created:  m.CreatedAt(),
	}
	if req.Path == pathBroadcast {
		resp.Pending = m.Pending()
	}
	writeJSON(w, http.StatusAccepted, resp)
}

func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	store := s.backend.Journal()
	if store == nil {
		writeJSON(w, http.StatusOK, []journal.Record{})
		return
	}
	limit := defaultJournal
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, fmt.Errorf("invalid limit %q", raw))
			return
		}
		limit = min(n, maxJournalRecord)
	}
	recs, err := store.Recent(r.Context(), limit)
	if err != nil {
		writeServiceUnavailable(w, err)
		return
	}
	if recs == nil {
		recs = []journal.Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}
