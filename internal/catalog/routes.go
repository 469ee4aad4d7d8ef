package catalog

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts the read-only catalog routes.
func RegisterRoutes(r chi.Router, store *Store) {
	r.Route("/api/catalog", func(r chi.Router) {
		r.Get("/entities", handleEntities(store))
		r.Get("/entities/{table}/fields", handleFields(store))
		r.Get("/tables", handleTables(store))
	})
}

// entityEntry is one key of the entity map in API responses.
type entityEntry struct {
	Key         string `json:"key"`
	LogicalName string `json:"logical_name"`
}

func handleEntities(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		em, err := store.LoadEntityMap()
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		entries := make([]entityEntry, 0, em.Len())
		em.Each(func(key, logical string) bool {
			entries = append(entries, entityEntry{Key: key, LogicalName: logical})
			return true
		})
		writeJSON(w, http.StatusOK, entries)
	}
}

func handleFields(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		table := strings.ToLower(chi.URLParam(r, "table"))
		ff, err := store.LoadFieldFile(table)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if ff.Len() == 0 {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no cached fields for " + table})
			return
		}
		writeJSON(w, http.StatusOK, ff.Columns())
	}
}

func handleTables(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tables, err := store.Tables()
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if tables == nil {
			tables = []string{}
		}
		writeJSON(w, http.StatusOK, tables)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
