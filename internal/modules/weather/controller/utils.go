package controller

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"ukweather/internal/modules/weather/importer"
	"ukweather/internal/modules/weather/repository"
	"ukweather/internal/modules/weather/views"
	"ukweather/internal/utils"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	dashboardPage   = 20

	noDataMessage = "No data available"
)

type pagination struct {
	Page     int
	PageSize int
}

func (p pagination) offset() int { return (p.Page - 1) * p.PageSize }

// parseYearFilter reads year, year_from and year_to. Bounds are inclusive.
func parseYearFilter(r *http.Request) (repository.Filter, error) {
	q := r.URL.Query()
	var f repository.Filter
	for _, p := range []struct {
		key string
		dst **int
	}{
		{"year", &f.Year},
		{"year_from", &f.YearFrom},
		{"year_to", &f.YearTo},
	} {
		s := strings.TrimSpace(q.Get(p.key))
		if s == "" {
			continue
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return repository.Filter{}, fmt.Errorf("invalid '%s' (expected integer)", p.key)
		}
		*p.dst = &n
	}
	if f.YearFrom != nil && f.YearTo != nil && *f.YearFrom > *f.YearTo {
		return repository.Filter{}, errors.New("'year_from' must be <= 'year_to'")
	}
	return f, nil
}

// parsePagination reads page (1-based) and page_size. page_size above the
// maximum is clamped rather than rejected.
func parsePagination(r *http.Request) (pagination, error) {
	q := r.URL.Query()
	p := pagination{Page: 1, PageSize: defaultPageSize}
	if s := q.Get("page"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return pagination{}, errors.New("invalid 'page' (expected integer)")
		}
		if n < 1 {
			return pagination{}, errors.New("'page' must be >= 1")
		}
		p.Page = n
	}
	if s := q.Get("page_size"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return pagination{}, errors.New("invalid 'page_size' (expected integer)")
		}
		if n < 1 {
			return pagination{}, errors.New("'page_size' must be >= 1")
		}
		p.PageSize = min(n, maxPageSize)
	}
	return p, nil
}

// parseDashboardPage returns the 1-based page number from the request (default 1, min 1).
func parseDashboardPage(r *http.Request) int {
	s := r.URL.Query().Get("page")
	if s == "" {
		return 1
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func parseYearPath(r *http.Request) (int, error) {
	s := r.PathValue("year")
	year, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid year %q (expected integer)", s)
	}
	return year, nil
}

func parseImportOptions(r *http.Request) (importer.Options, error) {
	q := r.URL.Query()
	var opts importer.Options
	for _, p := range []struct {
		key string
		dst *bool
	}{
		{"replace", &opts.Replace},
		{"clear", &opts.Clear},
	} {
		s := q.Get(p.key)
		if s == "" {
			continue
		}
		v, err := strconv.ParseBool(s)
		if err != nil {
			return importer.Options{}, fmt.Errorf("invalid '%s' (expected boolean)", p.key)
		}
		*p.dst = v
	}
	return opts, nil
}

func totalPages(count, pageSize int) int {
	if pageSize <= 0 {
		return 1
	}
	n := (count + pageSize - 1) / pageSize
	if n < 1 {
		n = 1
	}
	return n
}

// writeRepositoryError maps storage errors onto HTTP statuses.
func writeRepositoryError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		utils.WriteError(w, http.StatusNotFound, "weather record not found")
	case errors.Is(err, repository.ErrDuplicateYear):
		utils.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, repository.ErrYearOutOfRange):
		utils.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error(op+" failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to "+op)
	}
}

// buildPageItems returns page numbers and ellipsis for the pagination bar.
func buildPageItems(totalPages, currentPage int) []views.PaginationItem {
	if totalPages <= 0 {
		return nil
	}
	const window = 2
	show := map[int]bool{1: true, totalPages: true}
	for p := currentPage - window; p <= currentPage+window; p++ {
		if p >= 1 && p <= totalPages {
			show[p] = true
		}
	}
	var items []views.PaginationItem
	prev := 0
	for p := 1; p <= totalPages; p++ {
		if !show[p] {
			continue
		}
		if prev != 0 && p > prev+1 {
			items = append(items, views.PaginationItem{Ellipsis: true})
		}
		items = append(items, views.PaginationItem{Page: p})
		prev = p
	}
	return items
}
