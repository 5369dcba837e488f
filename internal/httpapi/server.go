package httpapi

import (
	"net/http"
	"time"

	"ukweather/internal/config"
	"ukweather/internal/observability"
)

func NewServer(cfg config.Config, mux *http.ServeMux, metrics *observability.Metrics) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           Wrap(mux, metrics),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Wrap applies the request id and logging middleware.
func Wrap(h http.Handler, metrics *observability.Metrics) http.Handler {
	return requestID(requestLogger(metrics, h))
}
