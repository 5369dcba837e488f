package controller

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strconv"

	"ukweather/internal/modules/weather/parser"
	"ukweather/internal/modules/weather/stats"
	"ukweather/internal/modules/weather/types"
	"ukweather/internal/utils"
)

const maxImportBytes = 10 << 20

func (c *weatherControllerImpl) handleList(w http.ResponseWriter, r *http.Request) {
	records, count, page, ok := c.queryPage(w, r)
	if !ok {
		return
	}
	results := make([]recordResponse, 0, len(records))
	for _, rec := range records {
		results = append(results, newRecordResponse(rec))
	}
	utils.WriteJSON(w, http.StatusOK, newPageResponse(results, count, page))
}

func (c *weatherControllerImpl) handleSummary(w http.ResponseWriter, r *http.Request) {
	records, count, page, ok := c.queryPage(w, r)
	if !ok {
		return
	}
	results := make([]summaryItem, 0, len(records))
	for _, rec := range records {
		results = append(results, newSummaryItem(rec))
	}
	utils.WriteJSON(w, http.StatusOK, newPageResponse(results, count, page))
}

// queryPage runs the filtered, paginated query shared by the list and
// summary endpoints. It writes the error response itself and reports false
// when the caller should stop.
func (c *weatherControllerImpl) queryPage(w http.ResponseWriter, r *http.Request) ([]types.Record, int, pagination, bool) {
	filter, err := parseYearFilter(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return nil, 0, pagination{}, false
	}
	page, err := parsePagination(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return nil, 0, pagination{}, false
	}

	count, err := c.repository.Count(r.Context(), filter)
	if err != nil {
		writeRepositoryError(w, "count weather records", err)
		return nil, 0, pagination{}, false
	}
	if count == 0 {
		utils.WriteError(w, http.StatusNotFound, noDataMessage)
		return nil, 0, pagination{}, false
	}
	if page.offset() >= count {
		utils.WriteError(w, http.StatusNotFound, "invalid page")
		return nil, 0, pagination{}, false
	}

	filter.Limit, filter.Offset = page.PageSize, page.offset()
	records, err := c.repository.Query(r.Context(), filter)
	if err != nil {
		writeRepositoryError(w, "list weather records", err)
		return nil, 0, pagination{}, false
	}
	return records, count, page, true
}

func (c *weatherControllerImpl) handleStatistics(w http.ResponseWriter, r *http.Request) {
	filter, err := parseYearFilter(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	records, err := c.repository.Query(r.Context(), filter)
	if err != nil {
		writeRepositoryError(w, "load weather records", err)
		return
	}
	st, err := stats.Compute(records)
	if errors.Is(err, stats.ErrNoData) {
		utils.WriteError(w, http.StatusNotFound, noDataMessage)
		return
	}
	if err != nil {
		slog.Error("statistics failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to compute statistics")
		return
	}
	utils.WriteJSON(w, http.StatusOK, st)
}

func (c *weatherControllerImpl) handleGet(w http.ResponseWriter, r *http.Request) {
	year, err := parseYearPath(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	rec, err := c.repository.Find(r.Context(), year)
	if err != nil {
		writeRepositoryError(w, "load weather record", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, newRecordResponse(rec))
}

func (c *weatherControllerImpl) handleMonthlyBreakdown(w http.ResponseWriter, r *http.Request) {
	year, err := parseYearPath(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	rec, err := c.repository.Find(r.Context(), year)
	if err != nil {
		writeRepositoryError(w, "load weather record", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, stats.Breakdown(rec))
}

func (c *weatherControllerImpl) handleCreate(w http.ResponseWriter, r *http.Request) {
	var body map[string]json.RawMessage
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	var rec types.Record
	year, err := applyBody(&rec, body)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if year == nil {
		utils.WriteError(w, http.StatusBadRequest, "year is required")
		return
	}
	rec.Year = *year

	created, err := c.repository.Insert(r.Context(), rec)
	if err != nil {
		writeRepositoryError(w, "create weather record", err)
		return
	}
	w.Header().Set("Location", "/api/v1/weather/"+strconv.Itoa(created.Year))
	utils.WriteJSON(w, http.StatusCreated, newRecordResponse(created))
}

// handlePut replaces every temperature of the year; fields absent from the
// body are cleared.
func (c *weatherControllerImpl) handlePut(w http.ResponseWriter, r *http.Request) {
	c.handleWrite(w, r, false)
}

// handlePatch changes only the fields present in the body.
func (c *weatherControllerImpl) handlePatch(w http.ResponseWriter, r *http.Request) {
	c.handleWrite(w, r, true)
}

func (c *weatherControllerImpl) handleWrite(w http.ResponseWriter, r *http.Request, partial bool) {
	year, err := parseYearPath(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	var body map[string]json.RawMessage
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec := types.Record{Year: year}
	if partial {
		rec, err = c.repository.Find(r.Context(), year)
		if err != nil {
			writeRepositoryError(w, "load weather record", err)
			return
		}
	}
	bodyYear, err := applyBody(&rec, body)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if bodyYear != nil && *bodyYear != year {
		utils.WriteError(w, http.StatusBadRequest, "year in body does not match the URL")
		return
	}

	updated, err := c.repository.Update(r.Context(), rec)
	if err != nil {
		writeRepositoryError(w, "update weather record", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, newRecordResponse(updated))
}

func (c *weatherControllerImpl) handleDelete(w http.ResponseWriter, r *http.Request) {
	year, err := parseYearPath(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := c.repository.Delete(r.Context(), year); err != nil {
		writeRepositoryError(w, "delete weather record", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleExport writes the filtered records in the Met Office text format,
// oldest year first.
func (c *weatherControllerImpl) handleExport(w http.ResponseWriter, r *http.Request) {
	filter, err := parseYearFilter(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	records, err := c.repository.Query(r.Context(), filter)
	if err != nil {
		writeRepositoryError(w, "load weather records", err)
		return
	}
	slices.Reverse(records)

	var buf bytes.Buffer
	if err := parser.Write(&buf, records); err != nil {
		slog.Error("export failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to export")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="ukweather.txt"`)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("export: write response failed", "error", err)
	}
}

// handleImport merges a Met Office text document sent as the request body.
func (c *weatherControllerImpl) handleImport(w http.ResponseWriter, r *http.Request) {
	opts, err := parseImportOptions(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	body := http.MaxBytesReader(w, r.Body, maxImportBytes)

	report, err := c.importer.Import(r.Context(), "http", body, opts)
	if err != nil {
		var fe *parser.FormatError
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			utils.WriteError(w, http.StatusRequestEntityTooLarge, "import body too large")
		case errors.As(err, &fe):
			utils.WriteError(w, http.StatusBadRequest, fe.Error())
		default:
			slog.Error("import failed", "error", err)
			utils.WriteError(w, http.StatusInternalServerError, "import failed")
		}
		return
	}
	utils.WriteJSON(w, http.StatusOK, report)
}
