package httpapi

import (
	"database/sql"
	"log/slog"
	"net/http"

	"ukweather/internal/migrate"
	"ukweather/internal/utils"
)

type healthchecker interface {
	handleHealthz(w http.ResponseWriter, r *http.Request)
}

type healthcheckerImpl struct {
	db *sql.DB
}

func NewHealthchecker(db *sql.DB) healthchecker {
	return &healthcheckerImpl{db: db}
}

type healthResponse struct {
	Status        string `json:"status"`
	SchemaVersion uint   `json:"schema_version"`
}

func (h *healthcheckerImpl) handleHealthz(w http.ResponseWriter, r *http.Request) {
	var ok int
	if err := h.db.QueryRowContext(r.Context(), `SELECT 1`).Scan(&ok); err != nil {
		slog.Error("failed to check database connectivity", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to check database connectivity")
		return
	}
	version, dirty, err := migrate.Version(h.db)
	if err != nil {
		slog.Error("failed to read schema version", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to read schema version")
		return
	}
	if dirty {
		utils.WriteError(w, http.StatusServiceUnavailable, "schema migration left dirty")
		return
	}
	utils.WriteJSON(w, http.StatusOK, healthResponse{Status: "ok", SchemaVersion: version})
}

func registerHealthcheck(mux *http.ServeMux, db *sql.DB) {
	healthchecker := NewHealthchecker(db)
	mux.HandleFunc("GET /healthz", healthchecker.handleHealthz)
}
