package dashboard

import (
	"encoding/json"
	"net/http"
)

// statsResponse is the JSON response for the stats endpoint.
type statsResponse struct {
	TotalSessions int `json:"total_sessions"`
	CachedTables  int `json:"cached_tables"`
}

func (d *Dashboard) handleStats(w http.ResponseWriter, r *http.Request) {
	total, err := d.engine.Store().CountSessions(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	var tables int
	if d.catalog != nil {
		names, err := d.catalog.Tables()
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		tables = len(names)
	}

	writeJSON(w, http.StatusOK, statsResponse{
		TotalSessions: total,
		CachedTables:  tables,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
