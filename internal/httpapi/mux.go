package httpapi

import (
	"database/sql"
	"net/http"

	"ukweather/internal/observability"
)

func NewMux(db *sql.DB, metrics *observability.Metrics) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, db)
	if metrics != nil {
		mux.Handle("GET /metrics", metrics.Handler())
	}
	return mux
}
