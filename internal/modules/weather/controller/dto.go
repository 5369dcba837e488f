package controller

import (
	"encoding/json"
	"errors"
	"fmt"

	"ukweather/internal/modules/weather/types"
)

// recordResponse is a record plus its derived month and season maps.
type recordResponse struct {
	types.Record
	MonthlyData  map[string]types.Temperature `json:"monthly_data"`
	SeasonalData map[string]types.Temperature `json:"seasonal_data"`
}

func newRecordResponse(r types.Record) recordResponse {
	return recordResponse{
		Record:       r,
		MonthlyData:  namedMap(r.MonthlyData()),
		SeasonalData: namedMap(r.SeasonalData()),
	}
}

func namedMap(in []types.NamedTemperature) map[string]types.Temperature {
	out := make(map[string]types.Temperature, len(in))
	for _, nt := range in {
		out[nt.Name] = nt.Temperature
	}
	return out
}

// summaryItem is the projection served by the summary endpoint.
type summaryItem struct {
	Year   int               `json:"year"`
	Annual types.Temperature `json:"annual"`
	Winter types.Temperature `json:"winter"`
	Spring types.Temperature `json:"spring"`
	Summer types.Temperature `json:"summer"`
	Autumn types.Temperature `json:"autumn"`
}

func newSummaryItem(r types.Record) summaryItem {
	return summaryItem{
		Year:   r.Year,
		Annual: r.Annual,
		Winter: r.Winter,
		Spring: r.Spring,
		Summer: r.Summer,
		Autumn: r.Autumn,
	}
}

type pageResponse[T any] struct {
	Count      int  `json:"count"`
	Page       int  `json:"page"`
	PageSize   int  `json:"page_size"`
	TotalPages int  `json:"total_pages"`
	Next       *int `json:"next"`
	Previous   *int `json:"previous"`
	Results    []T  `json:"results"`
}

func newPageResponse[T any](results []T, count int, p pagination) pageResponse[T] {
	resp := pageResponse[T]{
		Count:      count,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: totalPages(count, p.PageSize),
		Results:    results,
	}
	if p.Page < resp.TotalPages {
		next := p.Page + 1
		resp.Next = &next
	}
	if p.Page > 1 {
		prev := p.Page - 1
		resp.Previous = &prev
	}
	return resp
}

// readOnlyKeys may appear in write bodies, typically echoed from a GET, and
// are ignored.
var readOnlyKeys = map[string]bool{
	"created_at":    true,
	"updated_at":    true,
	"monthly_data":  true,
	"seasonal_data": true,
}

// applyBody sets the fields present in body on rec. A JSON null clears a
// field. It returns the year from the body, if one was given.
func applyBody(rec *types.Record, body map[string]json.RawMessage) (year *int, err error) {
	for key, raw := range body {
		if key == "year" {
			var y int
			if err := json.Unmarshal(raw, &y); err != nil {
				return nil, errors.New("year: expected an integer")
			}
			year = &y
			continue
		}
		if readOnlyKeys[key] {
			continue
		}
		f, ok := types.FieldByName(key)
		if !ok {
			return nil, fmt.Errorf("unknown field %q", key)
		}
		var t types.Temperature
		if err := json.Unmarshal(raw, &t); err != nil {
			return nil, fmt.Errorf("%s: expected a number or null", key)
		}
		*rec.Field(f) = t
	}
	return year, nil
}
