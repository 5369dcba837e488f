// Package parser reads the whitespace-delimited temperature tables published
// by the UK Met Office.
//
// The first non-blank line is a header of column tokens (year, jan..dec,
// win spr sum aut, ann) in any order. Each following line holds one value per
// header column. Missing observations are written as "---" or "N/A".
package parser

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"ukweather/internal/modules/weather/types"
)

const yearColumn = "year"

// columns maps header tokens to record fields. Header tokens that are not
// listed here are ignored.
var columns = map[string]types.Field{
	"jan": types.January,
	"feb": types.February,
	"mar": types.March,
	"apr": types.April,
	"may": types.May,
	"jun": types.June,
	"jul": types.July,
	"aug": types.August,
	"sep": types.September,
	"oct": types.October,
	"nov": types.November,
	"dec": types.December,
	"win": types.Winter,
	"spr": types.Spring,
	"sum": types.Summer,
	"aut": types.Autumn,
	"ann": types.Annual,
}

// StandardHeader is the column layout used when writing records back out.
var StandardHeader = []string{
	"year",
	"jan", "feb", "mar", "apr", "may", "jun", "jul", "aug", "sep", "oct", "nov", "dec",
	"win", "spr", "sum", "aut",
	"ann",
}

// Result is the outcome of a parse: records in file order plus one
// diagnostic per skipped row.
type Result struct {
	Records     []types.Record
	Diagnostics []Diagnostic
}

type column struct {
	idx   int
	field types.Field
}

// header is the resolved column layout of a file. When a token repeats, the
// rightmost column wins.
type header struct {
	width   int
	yearIdx int
	columns []column
}

func parseHeader(line string) (header, error) {
	tokens := strings.Fields(line)
	h := header{width: len(tokens), yearIdx: -1}
	for i, tok := range tokens {
		tok = strings.ToLower(tok)
		if tok == yearColumn {
			h.yearIdx = i
			continue
		}
		if f, ok := columns[tok]; ok {
			h.columns = append(h.columns, column{idx: i, field: f})
		}
	}
	if h.yearIdx < 0 {
		return header{}, &FormatError{Reason: "'year' column not found"}
	}
	return h, nil
}

func (h header) parseRow(lineNo int, line string) (types.Record, error) {
	values := strings.Fields(line)
	if len(values) != h.width {
		return types.Record{}, &RowError{
			Line:   lineNo,
			Reason: fmt.Sprintf("column count mismatch: expected %d, got %d", h.width, len(values)),
		}
	}

	year, err := strconv.Atoi(values[h.yearIdx])
	if err != nil {
		return types.Record{}, &RowError{Line: lineNo, Reason: "invalid year value", Err: err}
	}

	rec := types.Record{Year: year}
	for _, c := range h.columns {
		*rec.Field(c.field) = types.ParseTemperature(values[c.idx])
	}
	return rec, nil
}

// Parse reads a whole document from r. It fails only with a *FormatError;
// malformed data rows are skipped and reported in Result.Diagnostics.
func Parse(r io.Reader) (Result, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		res    Result
		h      header
		found  bool
		lineNo int
	)
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if !found {
			var err error
			h, err = parseHeader(line)
			if err != nil {
				return Result{}, err
			}
			found = true
			continue
		}

		rec, err := h.parseRow(lineNo, line)
		if err != nil {
			res.Diagnostics = append(res.Diagnostics, Diagnostic{Line: lineNo, Text: line, Err: err})
			continue
		}
		res.Records = append(res.Records, rec)
	}
	if err := sc.Err(); err != nil {
		return Result{}, &FormatError{Reason: "read input", Err: err}
	}
	if !found {
		return Result{}, &FormatError{Reason: "empty content provided"}
	}
	return res, nil
}

// ParseString is Parse over an in-memory document.
func ParseString(s string) (Result, error) {
	return Parse(strings.NewReader(s))
}

// FormatRow renders rec as a data row for the given header tokens. Columns
// that are not mapped are written as "---".
func FormatRow(headerTokens []string, rec types.Record) string {
	out := make([]string, len(headerTokens))
	for i, tok := range headerTokens {
		tok = strings.ToLower(tok)
		if tok == yearColumn {
			out[i] = strconv.Itoa(rec.Year)
			continue
		}
		if f, ok := columns[tok]; ok {
			out[i] = rec.Get(f).Format()
			continue
		}
		out[i] = "---"
	}
	return strings.Join(out, " ")
}
