// Package site serves the service landing document.
package site

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ErrServe is returned when the landing document cannot be written.
var ErrServe = errors.New("site serve failed")

// Name is reported by the landing document.
const Name = "CommSkill API"

// Endpoints lists the public route groups advertised at /.
var Endpoints = map[string]string{
	"docs":    "/api-docs",
	"openapi": "/openapi.yaml",
	"metrics": "/healthz",
	"stats":   "/stats",
	"video":   "/api/video",
	"user":    "/api/user",
	"chat":    "/api/chat",
}

// Register attaches GET / to r.
func Register(_ context.Context, r chi.Router) {
	if r == nil {
		panic("router is nil")
	}
	r.Get("/", NewRootHandler().HandleRoot)
}

// RootHandler handles root path requests.
type RootHandler struct {
	version string
}

// NewRootHandler creates a root handler reporting version "1.0.0".
func NewRootHandler() *RootHandler {
	return &RootHandler{version: "1.0.0"}
}

type rootResponse struct {
	Name      string            `json:"name"`
	Version   string            `json:"version"`
	Docs      string            `json:"docs"`
	Endpoints map[string]string `json:"endpoints"`
}

// HandleRoot writes the landing document.
func (h *RootHandler) HandleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(rootResponse{
		Name:      Name,
		Version:   h.version,
		Docs:      Endpoints["docs"],
		Endpoints: Endpoints,
	})
	if err != nil {
		http.Error(w, ErrServe.Error(), http.StatusInternalServerError)
	}
}
