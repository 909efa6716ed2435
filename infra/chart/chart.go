// Package chart renders price tables and charge plans as HTML charts.
package chart

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/kilianp07/smartcharge/core/model"
)

// PriceChartHTML renders the prices as a line and marks the intervals
// overlapping a planned slot in a second series.
func PriceChartHTML(prices []model.PricedInterval, plan model.ChargePlan, loc *time.Location) (string, error) {
	if len(prices) == 0 {
		return "", fmt.Errorf("no prices to chart")
	}
	if loc == nil {
		loc = time.Local
	}
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Electricity price", Subtitle: subtitle(plan)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Time"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Price per kWh"}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{}),
	)

	xAxis := make([]string, 0, len(prices))
	priceData := make([]opts.LineData, 0, len(prices))
	planned := make([]opts.LineData, 0, len(prices))
	for _, p := range prices {
		xAxis = append(xAxis, p.Start.In(loc).Format("2006-01-02 15:04"))
		priceData = append(priceData, opts.LineData{Value: p.Price})
		if overlapsPlan(p, plan) {
			planned = append(planned, opts.LineData{Value: p.Price})
		} else {
			planned = append(planned, opts.LineData{Value: "-"})
		}
	}

	line.SetXAxis(xAxis).
		AddSeries("Price", priceData).
		AddSeries("Planned", planned)

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		return "", fmt.Errorf("failed to render chart: %w", err)
	}
	return buf.String(), nil
}

func overlapsPlan(p model.PricedInterval, plan model.ChargePlan) bool {
	for _, s := range plan.Slots {
		if p.Start.Before(s.End) && s.Start.Before(p.End) {
			return true
		}
	}
	return false
}

func subtitle(plan model.ChargePlan) string {
	if len(plan.Slots) == 0 {
		return ""
	}
	return fmt.Sprintf("%d slots, %.2f kWh, approx. cost %.2f", len(plan.Slots), plan.PlannedEnergy, plan.ApproxCost)
}
