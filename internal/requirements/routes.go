package requirements

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/d365-plugin-assistant/internal/apperrors"
)

// RegisterRoutes mounts the session API routes.
func RegisterRoutes(r chi.Router, engine *Engine) {
	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", handleStart(engine))
		r.Get("/{id}", handleGetSession(engine))
		r.Post("/{id}/turns", handleTurn(engine))
		r.Post("/{id}/reset", handleReset(engine))
		r.Post("/{id}/regenerate", handleRegenerate(engine))
		r.Get("/{id}/history", handleHistory(engine))
	})
}

type startRequest struct {
	UserID string `json:"user_id"`
}

func handleStart(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req startRequest
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
				return
			}
		}

		res, err := engine.Start(r.Context(), req.UserID)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, res)
	}
}

func handleGetSession(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := engine.Session(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sess)
	}
}

func handleTurn(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in TurnInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
			return
		}

		res, err := engine.HandleTurn(r.Context(), chi.URLParam(r, "id"), in)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func handleReset(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := engine.Reset(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

type regenerateRequest struct {
	NewLogic string `json:"new_logic"`
}

func handleRegenerate(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req regenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
			return
		}
		if req.NewLogic == "" {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "new_logic is required")
			return
		}

		rec, err := engine.Regenerate(r.Context(), chi.URLParam(r, "id"), req.NewLogic)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func handleHistory(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		history, err := engine.CodeHistory(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeAppError(w, err)
			return
		}
		if history == nil {
			history = []CodeRecord{}
		}
		writeJSON(w, http.StatusOK, history)
	}
}

func writeAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, ErrNoHistory):
		writeError(w, http.StatusBadRequest, "NO_HISTORY", err.Error())
	default:
		writeError(w, apperrors.HTTPStatus(err), apperrors.Code(err), err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]string{"error": msg, "code": code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
