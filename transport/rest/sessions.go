package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/rocketscienceinc/minigames-backend/internal/repository"
)

type activeCounter interface {
	Active() int
}

type resultGetter interface {
	GetByID(ctx context.Context, id string) (*repository.Result, error)
}

type sessionsHandler struct {
	logger   *slog.Logger
	sessions activeCounter
	results  resultGetter
}

type activeResponse struct {
	Active int `json:"active"`
}

func (that *sessionsHandler) active(w http.ResponseWriter, _ *http.Request) {
	that.writeJSON(w, http.StatusOK, activeResponse{Active: that.sessions.Active()})
}

func (that *sessionsHandler) result(w http.ResponseWriter, r *http.Request) {
	result, err := that.results.GetByID(r.Context(), r.PathValue("id"))
	if errors.Is(err, repository.ErrResultNotFound) {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	if err != nil {
		that.logger.Error("failed to get session result", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	that.writeJSON(w, http.StatusOK, result)
}

func (that *sessionsHandler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		that.logger.Error("failed to write response", "error", err)
	}
}
