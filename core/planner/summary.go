package planner

import (
	"github.com/shopspring/decimal"

	"github.com/kilianp07/smartcharge/core/model"
)

// Summary aggregates the informative figures of a plan.
type Summary struct {
	PlannedEnergy float64 // kWh at max power over all slots
	ApproxCost    float64 // sum of slot price × energy
}

// Summarize computes planned energy and approximate cost of slots charged at
// maxPower, rounded to two decimals.
func Summarize(slots []model.PlanSlot, maxPower float64) Summary {
	energy := decimal.Zero
	cost := decimal.Zero
	power := decimal.NewFromFloat(maxPower)
	for _, s := range slots {
		e := power.Mul(decimal.NewFromInt(int64(s.Minutes))).Div(decimal.NewFromInt(60))
		energy = energy.Add(e)
		cost = cost.Add(e.Mul(decimal.NewFromFloat(s.Price)))
	}
	return Summary{
		PlannedEnergy: energy.Round(2).InexactFloat64(),
		ApproxCost:    cost.Round(2).InexactFloat64(),
	}
}

// Round2 rounds v to two decimals.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
