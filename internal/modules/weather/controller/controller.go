package controller

import (
	"context"
	"io"
	"net/http"

	"ukweather/internal/modules/weather/importer"
	"ukweather/internal/modules/weather/repository"
)

// Importer merges a Met Office text document into the store.
type Importer interface {
	Import(ctx context.Context, source string, r io.Reader, opts importer.Options) (importer.Report, error)
}

type WeatherController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type weatherControllerImpl struct {
	repository repository.WeatherRepository
	importer   Importer
}

// NewWeatherController wires the weather routes. importer may be nil, in
// which case the upload route is not registered.
func NewWeatherController(repository repository.WeatherRepository, importer Importer) WeatherController {
	return &weatherControllerImpl{repository: repository, importer: importer}
}

func (c *weatherControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /", c.handleDashboard)
	mux.HandleFunc("GET /partials/records", c.handleRecordsPartial)

	mux.HandleFunc("GET /api/v1/weather", c.handleList)
	mux.HandleFunc("POST /api/v1/weather", c.handleCreate)
	mux.HandleFunc("GET /api/v1/weather/summary", c.handleSummary)
	mux.HandleFunc("GET /api/v1/weather/statistics", c.handleStatistics)
	mux.HandleFunc("GET /api/v1/weather/export", c.handleExport)
	if c.importer != nil {
		mux.HandleFunc("POST /api/v1/weather/import", c.handleImport)
	}

	mux.HandleFunc("GET /api/v1/weather/{year}", c.handleGet)
	mux.HandleFunc("PUT /api/v1/weather/{year}", c.handlePut)
	mux.HandleFunc("PATCH /api/v1/weather/{year}", c.handlePatch)
	mux.HandleFunc("DELETE /api/v1/weather/{year}", c.handleDelete)
	mux.HandleFunc("GET /api/v1/weather/{year}/monthly-breakdown", c.handleMonthlyBreakdown)
}
