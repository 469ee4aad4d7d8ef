package advisory

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Response is the image advice for one message and stage.
type Response struct {
	Trigger   string     `json:"trigger"`
	Stage     Stage      `json:"stage"`
	Guideline string     `json:"guideline"`
	Images    Suggestion `json:"images"`
}

// Lookup builds the full advice for trigger at stage.
func Lookup(trigger string, stage Stage) Response {
	return Response{
		Trigger:   trigger,
		Stage:     stage,
		Guideline: Guideline(stage),
		Images:    Suggest(trigger, stage),
	}
}

// RegisterRoutes mounts GET /api/advisory. The stage defaults to
// PostOperation.
func RegisterRoutes(r chi.Router) {
	r.Get("/api/advisory", func(w http.ResponseWriter, r *http.Request) {
		trigger := r.URL.Query().Get("trigger")
		if trigger == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "trigger is required"})
			return
		}
		stage := PostOperation
		if s := r.URL.Query().Get("stage"); s != "" {
			parsed, err := ParseStage(s)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
				return
			}
			stage = parsed
		}
		writeJSON(w, http.StatusOK, Lookup(trigger, stage))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
