package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"doubt-server/internal/registry"
)

func healthHandler(reg *registry.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := reg.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "db": "down"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "db": "up"})
	}
}

// getIDHandler reserves a connection id for a display name. A name that is
// already taken comes back with a numeric suffix; the caller presents the
// returned id on the socket upgrade.
func getIDHandler(reg *registry.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimSpace(r.URL.Query().Get("name"))
		room := strings.TrimSpace(r.URL.Query().Get("room"))
		if name == "" || room == "" {
			writeHTTPError(w, http.StatusUnauthorized, "missing_name_or_room")
			return
		}
		id, err := reg.ReserveID(r.Context(), name)
		if err != nil {
			if errors.Is(err, registry.ErrBlankName) {
				writeHTTPError(w, http.StatusUnauthorized, "blank_name")
				return
			}
			writeHTTPError(w, http.StatusInternalServerError, "reserve_failed")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"id": id, "name": name, "room": room})
	}
}

func writeHTTPError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": code})
}
