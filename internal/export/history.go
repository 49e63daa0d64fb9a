package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/roach88/poser/internal/ir"
)

// HistoryHeader is the first row of a history export.
var HistoryHeader = []string{"date_iso", "tension_sec", "total_sec", "poses"}

// isoLayout is ISO 8601 in UTC with milliseconds.
const isoLayout = "2006-01-02T15:04:05.000Z07:00"

// WriteHistoryCSV writes one row per record, in the order given.
func WriteHistoryCSV(w io.Writer, recs []ir.SessionRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(HistoryHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range recs {
		row := []string{
			r.Timestamp.UTC().Format(isoLayout),
			strconv.Itoa(r.TensionSec),
			strconv.Itoa(r.TotalSec),
			strconv.Itoa(r.PosesCompleted),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %s: %w", r.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadHistoryCSV parses an export produced by WriteHistoryCSV. Records have
// no ID or reason.
func ReadHistoryCSV(r io.Reader) ([]ir.SessionRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(HistoryHeader)

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("read csv: missing header")
	}

	recs := make([]ir.SessionRecord, 0, len(rows)-1)
	for i, row := range rows[1:] {
		at, err := time.Parse(time.RFC3339Nano, row[0])
		if err != nil {
			return nil, fmt.Errorf("row %d: date: %w", i+2, err)
		}
		nums := make([]int, 3)
		for j := range nums {
			if nums[j], err = strconv.Atoi(row[j+1]); err != nil {
				return nil, fmt.Errorf("row %d: %s: %w", i+2, HistoryHeader[j+1], err)
			}
		}
		recs = append(recs, ir.SessionRecord{
			Timestamp:      at,
			TensionSec:     nums[0],
			TotalSec:       nums[1],
			PosesCompleted: nums[2],
		})
	}
	return recs, nil
}
