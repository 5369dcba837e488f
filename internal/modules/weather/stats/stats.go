// Package stats computes summary statistics over temperature records.
package stats

import (
	"errors"
	"math"

	"ukweather/internal/modules/weather/types"
)

// ErrNoData is returned when statistics are requested over no records.
var ErrNoData = errors.New("no data available")

// Summary is the average, maximum and minimum of one field over the records
// where it is present. All three are missing when no record has the field.
type Summary struct {
	Avg types.Temperature `json:"avg"`
	Max types.Temperature `json:"max"`
	Min types.Temperature `json:"min"`
}

type AnnualSummary struct {
	Avg types.Temperature `json:"avg_temperature"`
	Max types.Temperature `json:"max_temperature"`
	Min types.Temperature `json:"min_temperature"`
}

type SeasonalSummary struct {
	Winter Summary `json:"winter"`
	Spring Summary `json:"spring"`
	Summer Summary `json:"summer"`
	Autumn Summary `json:"autumn"`
}

type YearRange struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Extreme is the year holding an extreme annual value.
type Extreme struct {
	Year        int     `json:"year"`
	Temperature float64 `json:"temperature"`
}

type ExtremeYears struct {
	Hottest *Extreme `json:"hottest"`
	Coldest *Extreme `json:"coldest"`
}

// Statistics is the full statistics view of a set of records.
type Statistics struct {
	TotalRecords int             `json:"total_records"`
	YearRange    YearRange       `json:"year_range"`
	Annual       AnnualSummary   `json:"annual_statistics"`
	Seasonal     SeasonalSummary `json:"seasonal_statistics"`
	ExtremeYears ExtremeYears    `json:"extreme_years"`
}

// Summarize computes avg/max/min of field f, skipping records where it is
// missing.
func Summarize(records []types.Record, f types.Field) (Summary, error) {
	if len(records) == 0 {
		return Summary{}, ErrNoData
	}
	var (
		sum    float64
		n      int
		lo, hi float64
	)
	for _, r := range records {
		v := r.Get(f)
		if !v.Valid {
			continue
		}
		if n == 0 || v.Celsius > hi {
			hi = v.Celsius
		}
		if n == 0 || v.Celsius < lo {
			lo = v.Celsius
		}
		sum += v.Celsius
		n++
	}
	if n == 0 {
		return Summary{}, nil
	}
	avg := sum / float64(n)
	if math.IsInf(sum, 0) || math.IsNaN(sum) {
		avg = scaledMean(records, f, n)
	}
	return Summary{
		Avg: types.Temp(avg),
		Max: types.Temp(hi),
		Min: types.Temp(lo),
	}, nil
}

// scaledMean sums v/n so partial sums never exceed the largest |v|.
func scaledMean(records []types.Record, f types.Field, n int) float64 {
	var avg float64
	for _, r := range records {
		if v := r.Get(f); v.Valid {
			avg += v.Celsius / float64(n)
		}
	}
	return avg
}

// Compute builds Statistics for records. Extreme years ignore records with no
// annual value; on ties the earliest record in the given order wins.
func Compute(records []types.Record) (Statistics, error) {
	if len(records) == 0 {
		return Statistics{}, ErrNoData
	}

	annual, err := Summarize(records, types.Annual)
	if err != nil {
		return Statistics{}, err
	}
	var seasons [4]Summary
	for i, f := range types.Seasons {
		if seasons[i], err = Summarize(records, f); err != nil {
			return Statistics{}, err
		}
	}

	return Statistics{
		TotalRecords: len(records),
		YearRange:    yearRange(records),
		Annual:       AnnualSummary{Avg: annual.Avg, Max: annual.Max, Min: annual.Min},
		Seasonal: SeasonalSummary{
			Winter: seasons[0],
			Spring: seasons[1],
			Summer: seasons[2],
			Autumn: seasons[3],
		},
		ExtremeYears: extremes(records),
	}, nil
}

func yearRange(records []types.Record) YearRange {
	yr := YearRange{From: records[0].Year, To: records[0].Year}
	for _, r := range records[1:] {
		if r.Year < yr.From {
			yr.From = r.Year
		}
		if r.Year > yr.To {
			yr.To = r.Year
		}
	}
	return yr
}

func extremes(records []types.Record) ExtremeYears {
	var out ExtremeYears
	for _, r := range records {
		if !r.Annual.Valid {
			continue
		}
		if out.Hottest == nil || r.Annual.Celsius > out.Hottest.Temperature {
			out.Hottest = &Extreme{Year: r.Year, Temperature: r.Annual.Celsius}
		}
		if out.Coldest == nil || r.Annual.Celsius < out.Coldest.Temperature {
			out.Coldest = &Extreme{Year: r.Year, Temperature: r.Annual.Celsius}
		}
	}
	return out
}
