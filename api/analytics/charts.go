package analytics

import (
	"bytes"
	"fmt"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/driveinsight/fleet/core/analytics"
	"github.com/driveinsight/fleet/core/model"
)

// ChartsHTML renders the corridor pie, status bar and type bar on a single
// page.
func ChartsHTML(vs []model.Vehicle) ([]byte, error) {
	pie := charts.NewPie()
	pie.SetGlobalOptions(charts.WithTitleOpts(opts.Title{Title: "Vehicles by corridor"}))
	var slices []opts.PieData
	for _, c := range analytics.Corridors(vs) {
		slices = append(slices, opts.PieData{Name: string(c.Corridor), Value: c.Count})
	}
	pie.AddSeries("Corridors", slices)

	status := charts.NewBar()
	status.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Fleet status"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Vehicles"}),
	)
	var statusX []string
	var statusY []opts.BarData
	for _, s := range analytics.FleetStatus(vs) {
		statusX = append(statusX, string(s.Status))
		statusY = append(statusY, opts.BarData{Value: s.Count})
	}
	status.SetXAxis(statusX).AddSeries("Vehicles", statusY)

	types := charts.NewBar()
	types.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Vehicle types"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Vehicles"}),
	)
	var typeX []string
	var typeY []opts.BarData
	for _, t := range analytics.VehicleTypes(vs) {
		typeX = append(typeX, string(t.Type))
		typeY = append(typeY, opts.BarData{Value: t.Count})
	}
	types.SetXAxis(typeX).AddSeries("Vehicles", typeY)

	page := components.NewPage()
	page.PageTitle = "Fleet dashboard"
	page.AddCharts(pie, status, types)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return nil, fmt.Errorf("render page: %w", err)
	}
	return buf.Bytes(), nil
}
