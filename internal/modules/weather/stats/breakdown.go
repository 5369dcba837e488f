package stats

import "ukweather/internal/modules/weather/types"

// MonthExtreme names a month and its temperature; both are null when the
// record has no monthly values.
type MonthExtreme struct {
	Month       *string           `json:"month"`
	Temperature types.Temperature `json:"temperature"`
}

type TemperatureRange struct {
	ColdestMonth MonthExtreme `json:"coldest_month"`
	WarmestMonth MonthExtreme `json:"warmest_month"`
}

// MonthlyBreakdown is the single-record view of monthly and seasonal values.
type MonthlyBreakdown struct {
	Year     int                          `json:"year"`
	Monthly  map[string]types.Temperature `json:"monthly_temperatures"`
	Seasonal map[string]types.Temperature `json:"seasonal_temperatures"`
	Annual   types.Temperature            `json:"annual_average"`
	Range    TemperatureRange             `json:"temperature_range"`
}

// Breakdown derives the monthly breakdown of r. Warmest and coldest months
// consider present values only; ties go to the earlier month.
func Breakdown(r types.Record) MonthlyBreakdown {
	b := MonthlyBreakdown{
		Year:     r.Year,
		Monthly:  make(map[string]types.Temperature, len(types.Months)),
		Seasonal: make(map[string]types.Temperature, len(types.Seasons)),
		Annual:   r.Annual,
	}
	for _, nt := range r.MonthlyData() {
		b.Monthly[nt.Name] = nt.Temperature
	}
	for _, nt := range r.SeasonalData() {
		b.Seasonal[nt.Name] = nt.Temperature
	}

	var coldest, warmest *types.NamedTemperature
	months := r.MonthlyData()
	for i := range months {
		m := &months[i]
		if !m.Temperature.Valid {
			continue
		}
		if coldest == nil || m.Temperature.Celsius < coldest.Temperature.Celsius {
			coldest = m
		}
		if warmest == nil || m.Temperature.Celsius > warmest.Temperature.Celsius {
			warmest = m
		}
	}
	b.Range.ColdestMonth = monthExtreme(coldest)
	b.Range.WarmestMonth = monthExtreme(warmest)
	return b
}

func monthExtreme(nt *types.NamedTemperature) MonthExtreme {
	if nt == nil {
		return MonthExtreme{}
	}
	name := nt.Name
	return MonthExtreme{Month: &name, Temperature: nt.Temperature}
}
