package controller

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"

	"ukweather/internal/modules/weather/repository"
	"ukweather/internal/modules/weather/stats"
	"ukweather/internal/modules/weather/views"
	"ukweather/internal/utils"
)

func (c *weatherControllerImpl) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	all, err := c.repository.Query(r.Context(), repository.Filter{})
	if err != nil {
		slog.Error("dashboard: load records failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load records")
		return
	}

	data := views.DashboardData{}
	st, err := stats.Compute(all)
	switch {
	case err == nil:
		data.Stats = &st
	case !errors.Is(err, stats.ErrNoData):
		slog.Error("dashboard: statistics failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to compute statistics")
		return
	}

	pages := totalPages(len(all), dashboardPage)
	page := min(parseDashboardPage(r), pages)
	start := min((page-1)*dashboardPage, len(all))
	end := min(start+dashboardPage, len(all))
	data.Records = views.NewRecordsData(all[start:end], len(all), page, pages, buildPageItems(pages, page))

	var buf bytes.Buffer
	if err := views.RenderDashboard(&buf, &data); err != nil {
		slog.Error("dashboard template render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render page")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("dashboard: write response failed", "error", err)
	}
}

func (c *weatherControllerImpl) handleRecordsPartial(w http.ResponseWriter, r *http.Request) {
	count, err := c.repository.Count(r.Context(), repository.Filter{})
	if err != nil {
		slog.Error("records partial: count failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load records")
		return
	}
	pages := totalPages(count, dashboardPage)
	page := min(parseDashboardPage(r), pages)

	records, err := c.repository.Query(r.Context(), repository.Filter{Limit: dashboardPage, Offset: (page - 1) * dashboardPage})
	if err != nil {
		slog.Error("records partial: query failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load records")
		return
	}

	data := views.NewRecordsData(records, count, page, pages, buildPageItems(pages, page))
	var buf bytes.Buffer
	if err := views.RenderRecordsPartial(&buf, &data); err != nil {
		slog.Error("records partial render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("records partial: write response failed", "error", err)
	}
}
