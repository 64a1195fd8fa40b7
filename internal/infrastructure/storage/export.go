package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"pallet-vision/internal/domain/entity"
)

// ExportCSV выгружает записи о браке в CSV для сменного отчёта
func ExportCSV(w io.Writer, records []entity.FaultRecord) error {
	writer := csv.NewWriter(w)

	header := []string{"ID", "Timestamp", "Task", "Source", "Frame", "Details", "Measurement", "Relay"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, r := range records {
		measurement := ""
		if r.Measurement != nil {
			measurement = strconv.FormatFloat(*r.Measurement, 'f', 1, 64)
		}
		row := []string{
			strconv.FormatUint(r.ID, 10),
			r.Timestamp.Format("2006-01-02 15:04:05"),
			string(r.Task),
			r.SourceID,
			strconv.FormatUint(r.FrameSeq, 10),
			r.Details,
			measurement,
			strconv.FormatBool(r.RelayTriggered),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}
