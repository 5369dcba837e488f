package parser

import (
	"bufio"
	"io"
	"strings"

	"ukweather/internal/modules/weather/types"
)

// Write renders records under StandardHeader, one row per record.
func Write(w io.Writer, records []types.Record) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(strings.Join(StandardHeader, " ") + "\n"); err != nil {
		return err
	}
	for _, rec := range records {
		if _, err := bw.WriteString(FormatRow(StandardHeader, rec) + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}
