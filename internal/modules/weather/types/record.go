package types

import (
	"fmt"
	"time"
)

const (
	MinYear = 1800
	MaxYear = 2100
)

// Field selects one of the 17 temperature columns of a Record.
type Field int

const (
	January Field = iota
	February
	March
	April
	May
	June
	July
	August
	September
	October
	November
	December
	Winter
	Spring
	Summer
	Autumn
	Annual
)

var fieldNames = [...]string{
	January:   "january",
	February:  "february",
	March:     "march",
	April:     "april",
	May:       "may",
	June:      "june",
	July:      "july",
	August:    "august",
	September: "september",
	October:   "october",
	November:  "november",
	December:  "december",
	Winter:    "winter",
	Spring:    "spring",
	Summer:    "summer",
	Autumn:    "autumn",
	Annual:    "annual",
}

// Months lists the month fields in calendar order.
var Months = []Field{January, February, March, April, May, June, July, August, September, October, November, December}

// Seasons lists the season fields, winter first.
var Seasons = []Field{Winter, Spring, Summer, Autumn}

// Fields lists every temperature field: months, seasons, then annual.
var Fields = append(append(append([]Field{}, Months...), Seasons...), Annual)

var fieldsByName = func() map[string]Field {
	m := make(map[string]Field, len(fieldNames))
	for f, name := range fieldNames {
		m[name] = Field(f)
	}
	return m
}()

func (f Field) Name() string {
	if f < January || f > Annual {
		return fmt.Sprintf("field(%d)", int(f))
	}
	return fieldNames[f]
}

func (f Field) String() string { return f.Name() }

// FieldByName resolves a column name such as "january" or "annual".
func FieldByName(name string) (Field, bool) {
	f, ok := fieldsByName[name]
	return f, ok
}

// Record holds one year of temperature data.
type Record struct {
	Year int `json:"year"`

	January   Temperature `json:"january"`
	February  Temperature `json:"february"`
	March     Temperature `json:"march"`
	April     Temperature `json:"april"`
	May       Temperature `json:"may"`
	June      Temperature `json:"june"`
	July      Temperature `json:"july"`
	August    Temperature `json:"august"`
	September Temperature `json:"september"`
	October   Temperature `json:"october"`
	November  Temperature `json:"november"`
	December  Temperature `json:"december"`

	Winter Temperature `json:"winter"`
	Spring Temperature `json:"spring"`
	Summer Temperature `json:"summer"`
	Autumn Temperature `json:"autumn"`

	Annual Temperature `json:"annual"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Field returns a pointer to the column selected by f, or nil for an
// unknown field.
func (r *Record) Field(f Field) *Temperature {
	switch f {
	case January:
		return &r.January
	case February:
		return &r.February
	case March:
		return &r.March
	case April:
		return &r.April
	case May:
		return &r.May
	case June:
		return &r.June
	case July:
		return &r.July
	case August:
		return &r.August
	case September:
		return &r.September
	case October:
		return &r.October
	case November:
		return &r.November
	case December:
		return &r.December
	case Winter:
		return &r.Winter
	case Spring:
		return &r.Spring
	case Summer:
		return &r.Summer
	case Autumn:
		return &r.Autumn
	case Annual:
		return &r.Annual
	}
	return nil
}

// Get returns the value of field f; unknown fields read as missing.
func (r Record) Get(f Field) Temperature {
	if p := r.Field(f); p != nil {
		return *p
	}
	return Temperature{}
}

// CopyTemperatures overwrites every temperature field of r with src's,
// including fields that are missing in src.
func (r *Record) CopyTemperatures(src Record) {
	for _, f := range Fields {
		*r.Field(f) = src.Get(f)
	}
}

// NamedTemperature pairs a field name with its value.
type NamedTemperature struct {
	Name        string
	Temperature Temperature
}

// MonthlyData returns the twelve months in calendar order.
func (r Record) MonthlyData() []NamedTemperature {
	return r.named(Months)
}

// SeasonalData returns the four seasons, winter first.
func (r Record) SeasonalData() []NamedTemperature {
	return r.named(Seasons)
}

func (r Record) named(fields []Field) []NamedTemperature {
	out := make([]NamedTemperature, 0, len(fields))
	for _, f := range fields {
		out = append(out, NamedTemperature{Name: f.Name(), Temperature: r.Get(f)})
	}
	return out
}

func (r Record) String() string {
	return fmt.Sprintf("Weather Data %d (Annual: %s°C)", r.Year, r.Annual)
}
