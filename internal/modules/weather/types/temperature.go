package types

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Temperature is an optional reading in degrees Celsius. The zero value
// means "no observation".
type Temperature struct {
	Celsius float64
	Valid   bool
}

// Temp returns a present temperature.
func Temp(c float64) Temperature {
	return Temperature{Celsius: c, Valid: true}
}

// sentinels mark a missing observation in Met Office text files.
var sentinels = map[string]bool{
	"":    true,
	"---": true,
	"N/A": true,
}

// ParseTemperature converts one text token into a Temperature. Sentinels,
// NaN/Inf and anything that is not a number yield "no observation".
func ParseTemperature(token string) Temperature {
	s := strings.TrimSpace(token)
	if sentinels[s] {
		return Temperature{}
	}
	c, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(c) || math.IsInf(c, 0) {
		return Temperature{}
	}
	return Temp(c)
}

// Ptr returns nil for a missing observation.
func (t Temperature) Ptr() *float64 {
	if !t.Valid {
		return nil
	}
	c := t.Celsius
	return &c
}

// Format renders the value for text output, "---" when missing.
func (t Temperature) Format() string {
	if !t.Valid {
		return "---"
	}
	return strconv.FormatFloat(t.Celsius, 'f', -1, 64)
}

func (t Temperature) String() string {
	if !t.Valid {
		return "None"
	}
	return strconv.FormatFloat(t.Celsius, 'f', 1, 64)
}

func (t Temperature) MarshalJSON() ([]byte, error) {
	if !t.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(t.Celsius)
}

func (t *Temperature) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*t = Temperature{}
		return nil
	}
	var c float64
	if err := json.Unmarshal(b, &c); err != nil {
		return fmt.Errorf("temperature must be a number or null: %w", err)
	}
	*t = Temp(c)
	return nil
}

// Scan implements sql.Scanner.
func (t *Temperature) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*t = Temperature{}
	case float64:
		*t = Temp(v)
	case int64:
		*t = Temp(float64(v))
	case []byte:
		c, err := strconv.ParseFloat(string(v), 64)
		if err != nil {
			return fmt.Errorf("scan temperature %q: %w", v, err)
		}
		*t = Temp(c)
	case string:
		c, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("scan temperature %q: %w", v, err)
		}
		*t = Temp(c)
	default:
		return fmt.Errorf("scan temperature: unsupported type %T", src)
	}
	return nil
}

// Value implements driver.Valuer.
func (t Temperature) Value() (driver.Value, error) {
	if !t.Valid {
		return nil, nil
	}
	return t.Celsius, nil
}
