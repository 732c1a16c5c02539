package handler

import (
	"encoding/json"
	"net/http"

	"github.com/controllernode/versions/internal/version"
)

// ServerInfo is the body of GET /api/server-info.
type ServerInfo struct {
	Version string `json:"version"`
}

// GetServerInfo reports the build version of the running binary.
func (h *Handler) GetServerInfo(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(ServerInfo{Version: version.Version})
}

// Health answers liveness checks with a plain 200 OK.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
