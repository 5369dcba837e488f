package parser

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ukweather/internal/modules/weather/types"
)

func TestParse_ExampleDocument(t *testing.T) {
	doc := "year jan feb win ann\n" +
		"2020 5.1 6.2 5.6 10.0\n" +
		"2021 --- 7.0 N/A 11.0\n"

	res, err := ParseString(doc)
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	assert.Empty(t, res.Diagnostics)

	first := res.Records[0]
	assert.Equal(t, 2020, first.Year)
	assert.Equal(t, types.Temp(5.1), first.January)
	assert.Equal(t, types.Temp(6.2), first.February)
	assert.Equal(t, types.Temp(5.6), first.Winter)
	assert.Equal(t, types.Temp(10.0), first.Annual)

	second := res.Records[1]
	assert.Equal(t, 2021, second.Year)
	assert.False(t, second.January.Valid)
	assert.Equal(t, types.Temp(7.0), second.February)
	assert.False(t, second.Winter.Valid)
	assert.Equal(t, types.Temp(11.0), second.Annual)
}

func TestParse_FormatErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "empty", doc: ""},
		{name: "blank lines only", doc: "\n   \n\t\n"},
		{name: "no year column", doc: "jan feb ann\n1.0 2.0 3.0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseString(tt.doc)
			var fe *FormatError
			require.ErrorAs(t, err, &fe)
		})
	}
}

func TestParse_ReadFailureIsFormatError(t *testing.T) {
	boom := errors.New("disk gone")
	_, err := Parse(iotest.ErrReader(boom))
	var fe *FormatError
	require.ErrorAs(t, err, &fe)
	assert.ErrorIs(t, err, boom)
}

func TestParse_HeaderIsCaseInsensitiveAndMayFollowBlankLines(t *testing.T) {
	res, err := ParseString("\n\n  YEAR Jan ANN  \n1990 3.5 9.1\n")
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, 1990, res.Records[0].Year)
	assert.Equal(t, types.Temp(3.5), res.Records[0].January)
	assert.Equal(t, types.Temp(9.1), res.Records[0].Annual)
}

func TestParse_UnknownColumnsAreIgnored(t *testing.T) {
	res, err := ParseString("station year ann rank\nheathrow 2001 10.4 7\n")
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Empty(t, res.Diagnostics)
	assert.Equal(t, 2001, res.Records[0].Year)
	assert.Equal(t, types.Temp(10.4), res.Records[0].Annual)
}

func TestParse_ColumnOrderIsArbitrary(t *testing.T) {
	res, err := ParseString("ann dec year\n9.9 4.4 1950\n")
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	rec := res.Records[0]
	assert.Equal(t, 1950, rec.Year)
	assert.Equal(t, types.Temp(4.4), rec.December)
	assert.Equal(t, types.Temp(9.9), rec.Annual)
}

func TestParse_SkipsMalformedRowsAndContinues(t *testing.T) {
	doc := strings.Join([]string{
		"year jan ann",
		"2000 1.0 9.0",
		"2001 1.0",
		"20x2 1.0 9.0",
		"",
		"2003 1.0 9.0 extra",
		"2004 2.0 10.0",
	}, "\n")

	res, err := ParseString(doc)
	require.NoError(t, err)

	years := make([]int, 0, len(res.Records))
	for _, r := range res.Records {
		years = append(years, r.Year)
	}
	assert.Equal(t, []int{2000, 2004}, years)

	require.Len(t, res.Diagnostics, 3)
	assert.Equal(t, 3, res.Diagnostics[0].Line)
	assert.Equal(t, "2001 1.0", res.Diagnostics[0].Text)
	assert.Contains(t, res.Diagnostics[0].Message(), "column count mismatch")
	assert.Equal(t, 4, res.Diagnostics[1].Line)
	assert.Contains(t, res.Diagnostics[1].Message(), "invalid year")
	assert.Equal(t, 6, res.Diagnostics[2].Line)

	for _, d := range res.Diagnostics {
		var re *RowError
		assert.ErrorAs(t, d.Err, &re)
	}
}

func TestParse_SentinelsYieldNoObservationInEveryColumn(t *testing.T) {
	for _, sentinel := range []string{"---", "N/A"} {
		for _, tok := range StandardHeader[1:] {
			t.Run(tok+"="+sentinel, func(t *testing.T) {
				res, err := ParseString("year " + tok + "\n1999 " + sentinel + "\n")
				require.NoError(t, err)
				require.Len(t, res.Records, 1)
				f := columns[tok]
				assert.False(t, res.Records[0].Get(f).Valid)
			})
		}
	}
}

func TestParse_GarbageValueIsSilentlyMissing(t *testing.T) {
	res, err := ParseString("year jan feb\n1999 warm 3.0\n")
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Empty(t, res.Diagnostics)
	assert.False(t, res.Records[0].January.Valid)
	assert.Equal(t, types.Temp(3.0), res.Records[0].February)
}

func TestParse_AcceptsOutOfRangeYears(t *testing.T) {
	res, err := ParseString("year ann\n1066 8.0\n2500 12.0\n")
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	assert.Equal(t, 1066, res.Records[0].Year)
	assert.Equal(t, 2500, res.Records[1].Year)
}

func TestParse_KeepsDuplicatesInFileOrder(t *testing.T) {
	res, err := ParseString("year ann\n2000 1.0\n1999 2.0\n2000 3.0\n")
	require.NoError(t, err)
	require.Len(t, res.Records, 3)
	assert.Equal(t, 2000, res.Records[0].Year)
	assert.Equal(t, 1999, res.Records[1].Year)
	assert.Equal(t, types.Temp(3.0), res.Records[2].Annual)
}

func TestParse_RepeatedColumnRightmostWins(t *testing.T) {
	res, err := ParseString("year ann ann\n2000 1.0 2.0\n")
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, types.Temp(2.0), res.Records[0].Annual)
}

func TestFormatRow_RoundTrip(t *testing.T) {
	var rec types.Record
	rec.Year = 1976
	for i, f := range types.Fields {
		*rec.Field(f) = types.Temp(float64(i) + 0.25)
	}

	row := FormatRow(StandardHeader, rec)
	res, err := ParseString(strings.Join(StandardHeader, " ") + "\n" + row + "\n")
	require.NoError(t, err)
	require.Len(t, res.Records, 1)

	got := res.Records[0]
	assert.Equal(t, rec.Year, got.Year)
	for _, f := range types.Fields {
		assert.Equal(t, rec.Get(f), got.Get(f), f.Name())
	}
}

func TestWrite_ParsesBack(t *testing.T) {
	recs := []types.Record{
		{Year: 2020, January: types.Temp(5.1), Annual: types.Temp(10)},
		{Year: 2021, Winter: types.Temp(-0.5)},
	}
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, recs))

	res, err := Parse(&buf)
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	assert.Equal(t, types.Temp(5.1), res.Records[0].January)
	assert.Equal(t, types.Temp(10), res.Records[0].Annual)
	assert.False(t, res.Records[0].February.Valid)
	assert.Equal(t, types.Temp(-0.5), res.Records[1].Winter)
	assert.False(t, res.Records[1].Annual.Valid)
}
