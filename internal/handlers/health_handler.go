package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/campmanager/backend/internal/models"
)

// Health always answers 200 with the current time.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.NewHealthResponse(time.Now()))
}

func Root(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Summer Camp Management API - Root OK"))
}

// NotFound is used for unknown routes and unsupported methods alike.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, models.NewErrorResponse(fmt.Sprintf("Not Found - %s %s", r.Method, r.URL.RequestURI())))
}
