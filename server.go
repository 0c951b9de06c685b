package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"i4.energy/across/btlink/hc05"
)

// maxPayload bounds a single POST /send body.
const maxPayload = 4096

// Link is the part of the module driver the HTTP API uses.
type Link interface {
	Send(ctx context.Context, p []byte) error
	State() hc05.ConnectionState
	BaudRate() int
}

// Server handles incoming HTTP requests for interacting with the
// Bluetooth link
type Server struct {
	Logger *slog.Logger
	Link   Link
}

// ServeHTTP implements the http.Handler interface for the Server struct
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /send", s.handleSend)
	mux.HandleFunc("GET /state", s.handleState)
	mux.ServeHTTP(w, r)
}

func (s *Server) sendError(w http.ResponseWriter, message string, statusCode int) {
	if message == "" {
		w.WriteHeader(statusCode)
		return
	}

	type ErrorResponse struct {
		Message string `json:"message"`
	}
	resp := ErrorResponse{Message: message}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(resp)
}

// handleSend forwards the raw request body to the remote device
func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayload))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.sendError(w, err.Error(), http.StatusRequestEntityTooLarge)
			return
		}
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if len(payload) == 0 {
		s.sendError(w, "request body is empty", http.StatusBadRequest)
		return
	}

	if err := s.Link.Send(r.Context(), payload); err != nil {
		if errors.Is(err, hc05.ErrNotConnected) {
			s.sendError(w, err.Error(), http.StatusConflict)
			return
		}
		s.Logger.Error("Failed to send data", "error", err, "length", len(payload))
		s.sendError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.Logger.Debug("Data sent", "length", len(payload))
	w.WriteHeader(http.StatusOK)
}

// handleState reports the last observed link state
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	type StateResponse struct {
		State    string `json:"state"`
		BaudRate int    `json:"baud_rate"`
	}

	resp := StateResponse{
		State:    s.Link.State().String(),
		BaudRate: s.Link.BaudRate(),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
