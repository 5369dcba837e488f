package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ukweather/internal/modules/weather/types"
)

func TestBreakdown(t *testing.T) {
	rec := types.Record{
		Year:     2019,
		January:  types.Temp(4.0),
		February: types.Temp(1.5),
		July:     types.Temp(18.2),
		Winter:   types.Temp(3.1),
		Annual:   types.Temp(10.1),
	}
	b := Breakdown(rec)

	assert.Equal(t, 2019, b.Year)
	assert.Len(t, b.Monthly, 12)
	assert.Len(t, b.Seasonal, 4)
	assert.Equal(t, types.Temp(1.5), b.Monthly["february"])
	assert.False(t, b.Monthly["march"].Valid)
	assert.Equal(t, types.Temp(3.1), b.Seasonal["winter"])
	assert.Equal(t, types.Temp(10.1), b.Annual)

	require.NotNil(t, b.Range.ColdestMonth.Month)
	require.NotNil(t, b.Range.WarmestMonth.Month)
	assert.Equal(t, "february", *b.Range.ColdestMonth.Month)
	assert.Equal(t, types.Temp(1.5), b.Range.ColdestMonth.Temperature)
	assert.Equal(t, "july", *b.Range.WarmestMonth.Month)
	assert.Equal(t, types.Temp(18.2), b.Range.WarmestMonth.Temperature)
}

func TestBreakdown_NoMonths(t *testing.T) {
	b := Breakdown(types.Record{Year: 1900, Annual: types.Temp(9)})
	assert.Nil(t, b.Range.ColdestMonth.Month)
	assert.False(t, b.Range.ColdestMonth.Temperature.Valid)
	assert.Nil(t, b.Range.WarmestMonth.Month)
	assert.False(t, b.Range.WarmestMonth.Temperature.Valid)
}

func TestBreakdown_TiesGoToEarlierMonth(t *testing.T) {
	rec := types.Record{
		Year:     2000,
		March:    types.Temp(5),
		May:      types.Temp(12),
		June:     types.Temp(5),
		August:   types.Temp(12),
		December: types.Temp(7),
	}
	b := Breakdown(rec)
	assert.Equal(t, "march", *b.Range.ColdestMonth.Month)
	assert.Equal(t, "may", *b.Range.WarmestMonth.Month)
}
