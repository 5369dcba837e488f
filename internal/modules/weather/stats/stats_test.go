package stats

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ukweather/internal/modules/weather/types"
)

func TestCompute_EmptyIsNoData(t *testing.T) {
	_, err := Compute(nil)
	require.ErrorIs(t, err, ErrNoData)
}

func TestSummarize_EmptyIsNoDataForEveryField(t *testing.T) {
	for _, f := range types.Fields {
		_, err := Summarize([]types.Record{}, f)
		assert.ErrorIs(t, err, ErrNoData, f.Name())
	}
}

func TestCompute_AnnualOnlyExample(t *testing.T) {
	recs := []types.Record{
		{Year: 2020, Annual: types.Temp(12.0)},
		{Year: 2021, Annual: types.Temp(9.0)},
	}
	st, err := Compute(recs)
	require.NoError(t, err)

	assert.Equal(t, 2, st.TotalRecords)
	assert.Equal(t, YearRange{From: 2020, To: 2021}, st.YearRange)
	require.NotNil(t, st.ExtremeYears.Hottest)
	require.NotNil(t, st.ExtremeYears.Coldest)
	assert.Equal(t, Extreme{Year: 2020, Temperature: 12.0}, *st.ExtremeYears.Hottest)
	assert.Equal(t, Extreme{Year: 2021, Temperature: 9.0}, *st.ExtremeYears.Coldest)

	assert.Equal(t, types.Temp(10.5), st.Annual.Avg)
	assert.Equal(t, types.Temp(12.0), st.Annual.Max)
	assert.Equal(t, types.Temp(9.0), st.Annual.Min)

	assert.Equal(t, Summary{}, st.Seasonal.Winter)
}

func TestCompute_SingleRecordAvgMaxMinAgree(t *testing.T) {
	rec := types.Record{
		Year:   1900,
		Winter: types.Temp(3.25),
		Summer: types.Temp(15.5),
		Annual: types.Temp(9.75),
	}
	st, err := Compute([]types.Record{rec})
	require.NoError(t, err)

	for name, s := range map[string]Summary{
		"annual": {Avg: st.Annual.Avg, Max: st.Annual.Max, Min: st.Annual.Min},
		"winter": st.Seasonal.Winter,
		"summer": st.Seasonal.Summer,
	} {
		assert.Equal(t, s.Avg, s.Max, name)
		assert.Equal(t, s.Avg, s.Min, name)
	}
	assert.Equal(t, types.Temp(3.25), st.Seasonal.Winter.Avg)
	assert.False(t, st.Seasonal.Spring.Avg.Valid)
	assert.Equal(t, YearRange{From: 1900, To: 1900}, st.YearRange)
}

func TestCompute_NullsExcludedPerField(t *testing.T) {
	recs := []types.Record{
		{Year: 2003, Winter: types.Temp(2.0)},
		{Year: 2001, Winter: types.Temp(4.0), Annual: types.Temp(10.0)},
		{Year: 2002, Annual: types.Temp(8.0)},
	}
	st, err := Compute(recs)
	require.NoError(t, err)

	assert.Equal(t, 3, st.TotalRecords)
	assert.Equal(t, YearRange{From: 2001, To: 2003}, st.YearRange)
	assert.Equal(t, types.Temp(3.0), st.Seasonal.Winter.Avg)
	assert.Equal(t, types.Temp(9.0), st.Annual.Avg)
	assert.Equal(t, 2001, st.ExtremeYears.Hottest.Year)
	assert.Equal(t, 2002, st.ExtremeYears.Coldest.Year)
}

func TestCompute_AllAnnualMissingReportsNoExtremes(t *testing.T) {
	st, err := Compute([]types.Record{{Year: 1850}, {Year: 1851, Spring: types.Temp(7)}})
	require.NoError(t, err)
	assert.Nil(t, st.ExtremeYears.Hottest)
	assert.Nil(t, st.ExtremeYears.Coldest)
	assert.Equal(t, 2, st.TotalRecords)

	b, err := json.Marshal(st.ExtremeYears)
	require.NoError(t, err)
	assert.JSONEq(t, `{"hottest":null,"coldest":null}`, string(b))
}

func TestCompute_TiesGoToFirstInOrder(t *testing.T) {
	recs := []types.Record{
		{Year: 2010, Annual: types.Temp(10)},
		{Year: 2005, Annual: types.Temp(10)},
	}
	st, err := Compute(recs)
	require.NoError(t, err)
	assert.Equal(t, 2010, st.ExtremeYears.Hottest.Year)
	assert.Equal(t, 2010, st.ExtremeYears.Coldest.Year)

	again, err := Compute(recs)
	require.NoError(t, err)
	assert.Equal(t, st, again)
}

func TestStatistics_JSONShape(t *testing.T) {
	st, err := Compute([]types.Record{{Year: 2020, Annual: types.Temp(12.0)}})
	require.NoError(t, err)
	b, err := json.Marshal(st)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	for _, k := range []string{"total_records", "year_range", "annual_statistics", "seasonal_statistics", "extreme_years"} {
		assert.Contains(t, m, k)
	}
	annual := m["annual_statistics"].(map[string]any)
	assert.Equal(t, 12.0, annual["avg_temperature"])
	seasonal := m["seasonal_statistics"].(map[string]any)
	assert.Nil(t, seasonal["winter"].(map[string]any)["avg"])
}

func TestCompute_HugeFiniteValuesKeepAverageFinite(t *testing.T) {
	recs := []types.Record{
		{Year: 2020, Annual: types.Temp(1.7e308)},
		{Year: 2021, Annual: types.Temp(1.7e308)},
	}
	st, err := Compute(recs)
	require.NoError(t, err)

	assert.Equal(t, types.Temp(1.7e308), st.Annual.Avg)
	assert.LessOrEqual(t, st.Annual.Avg.Celsius, st.Annual.Max.Celsius)
	assert.GreaterOrEqual(t, st.Annual.Avg.Celsius, st.Annual.Min.Celsius)

	_, err = json.Marshal(st)
	require.NoError(t, err)
}

func TestSummarize_OppositeExtremesAverageToZero(t *testing.T) {
	recs := []types.Record{
		{Year: 2020, Annual: types.Temp(1.7e308)},
		{Year: 2021, Annual: types.Temp(1.7e308)},
		{Year: 2022, Annual: types.Temp(-1.7e308)},
		{Year: 2023, Annual: types.Temp(-1.7e308)},
	}
	s, err := Summarize(recs, types.Annual)
	require.NoError(t, err)
	require.True(t, s.Avg.Valid)
	assert.False(t, math.IsInf(s.Avg.Celsius, 0))
	assert.False(t, math.IsNaN(s.Avg.Celsius))
	assert.InDelta(t, 0, s.Avg.Celsius, 1e300)
}
