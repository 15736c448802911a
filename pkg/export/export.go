package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/driveinsight/fleet/core/model"
)

// Formats lists the values accepted by Write.
var Formats = []string{"json", "csv"}

// WriteJSON writes v to w as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteVehiclesCSV writes one row per vehicle with a header line.
func WriteVehiclesCSV(w io.Writer, vs []model.Vehicle) error {
	rows := make([][]string, 0, len(vs))
	for _, v := range vs {
		rows = append(rows, []string{
			v.ID, v.DriverName, string(v.Corridor), string(v.VehicleType), string(v.Status),
			ftoa(v.Speed), strconv.Itoa(v.Fuel), ftoa(v.Latitude), ftoa(v.Longitude),
			v.LastUpdate.UTC().Format(time.RFC3339),
		})
	}
	return writeCSV(w, []string{"id", "driver_name", "corridor", "vehicle_type", "status",
		"speed", "fuel", "latitude", "longitude", "last_update"}, rows)
}

// WriteDailyMetricsCSV writes one row per vehicle and day.
func WriteDailyMetricsCSV(w io.Writer, ms []model.DailyMetrics) error {
	rows := make([][]string, 0, len(ms))
	for _, m := range ms {
		rows = append(rows, []string{
			m.VehicleID, m.Date.UTC().Format(time.DateOnly),
			ftoa(m.TotalDistance), ftoa(m.AvgSpeed), ftoa(m.FuelEfficiency),
		})
	}
	return writeCSV(w, []string{"vehicle_id", "date", "total_distance", "avg_speed", "fuel_efficiency"}, rows)
}

// Write dispatches on format. csvFn renders the CSV form.
func Write(w io.Writer, format string, v any, csvFn func(io.Writer) error) error {
	switch format {
	case "json":
		return WriteJSON(w, v)
	case "csv":
		return csvFn(w)
	default:
		return fmt.Errorf("unknown format %q (want one of %v)", format, Formats)
	}
}

func writeCSV(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

func ftoa(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
