package planner

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/kilianp07/smartcharge/core/model"
)

// NoteNoPrices is returned when no price interval overlaps the window.
const NoteNoPrices = "no price intervals within the window"

// Request holds the planning inputs.
type Request struct {
	Prices       []model.PricedInterval
	WindowStart  time.Time
	WindowEnd    time.Time
	NeededEnergy float64 // kWh
	MaxPower     float64 // kW
	MinBlock     time.Duration
	// Markup converts the unit price of a selected interval into the
	// price reported on the slot. Nil keeps the unit price.
	Markup func(float64) float64
}

// Result is the outcome of a planning run.
type Result struct {
	Slots []model.PlanSlot
	// Note explains an empty or best-effort plan.
	Note string
	// SelectedEnergy is the energy deliverable in the selected slots at
	// max power.
	SelectedEnergy float64
}

// Plan runs the cheapest-window selection.
func Plan(req Request) Result {
	within := Clip(req.Prices, req.WindowStart, req.WindowEnd, req.MaxPower)
	if len(within) == 0 {
		return Result{Note: NoteNoPrices}
	}

	chosen := selectCheapest(within, req.NeededEnergy)
	blocks := contiguousBlocks(within, chosen)
	enforceMinBlock(within, chosen, blocks, req.MinBlock)

	markup := req.Markup
	if markup == nil {
		markup = func(p float64) float64 { return p }
	}
	var (
		slots      []model.PlanSlot
		capacities []float64
	)
	for _, i := range byStart(within, chosen) {
		iv := within[i]
		slots = append(slots, model.PlanSlot{
			Start:   iv.Start,
			End:     iv.End,
			Minutes: iv.Minutes,
			Price:   markup(iv.Price),
		})
		capacities = append(capacities, iv.EnergyCapacity)
	}
	res := Result{Slots: slots, SelectedEnergy: floats.Sum(capacities)}
	if res.SelectedEnergy < req.NeededEnergy {
		res.Note = fmt.Sprintf("insufficient price data: %.2f of %.2f kWh can be planned before %s",
			res.SelectedEnergy, req.NeededEnergy, req.WindowEnd.Format(time.RFC3339))
	}
	return res
}

// Clip intersects every interval with [start, end] and computes the energy
// deliverable at maxPower. Intervals with no positive overlap are dropped;
// input order is preserved.
func Clip(prices []model.PricedInterval, start, end time.Time, maxPower float64) []model.NormalizedSlot {
	var out []model.NormalizedSlot
	for _, p := range prices {
		if p.End.Before(start) || p.Start.After(end) {
			continue
		}
		s := p.Start
		if s.Before(start) {
			s = start
		}
		e := p.End
		if e.After(end) {
			e = end
		}
		minutes := int(math.Round(e.Sub(s).Minutes()))
		if minutes <= 0 {
			continue
		}
		hours := float64(minutes) / 60
		out = append(out, model.NormalizedSlot{
			Start:          s,
			End:            e,
			Minutes:        minutes,
			Hours:          hours,
			EnergyCapacity: maxPower * hours,
			Price:          p.Price,
		})
	}
	return out
}

// selectCheapest marks intervals in ascending price order until their
// capacity covers needed. Ties keep input order. At least one interval is
// always selected.
func selectCheapest(within []model.NormalizedSlot, needed float64) []bool {
	order := make([]int, len(within))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return within[order[a]].Price < within[order[b]].Price
	})

	chosen := make([]bool, len(within))
	acc := 0.0
	any := false
	for _, i := range order {
		if acc >= needed {
			break
		}
		chosen[i] = true
		any = true
		acc += within[i].EnergyCapacity
	}
	if !any {
		chosen[order[0]] = true
	}
	return chosen
}

// byStart returns the indices of chosen intervals ordered by start time.
func byStart(within []model.NormalizedSlot, chosen []bool) []int {
	var idx []int
	for i, c := range chosen {
		if c {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return within[idx[a]].Start.Before(within[idx[b]].Start)
	})
	return idx
}

// contiguousBlocks groups the chosen intervals into maximal gap-free runs.
func contiguousBlocks(within []model.NormalizedSlot, chosen []bool) [][]int {
	sorted := byStart(within, chosen)
	if len(sorted) == 0 {
		return nil
	}
	var blocks [][]int
	cur := []int{sorted[0]}
	for _, i := range sorted[1:] {
		prevEnd := within[cur[len(cur)-1]].End
		if within[i].Start.Equal(prevEnd) {
			cur = append(cur, i)
			continue
		}
		blocks = append(blocks, cur)
		cur = []int{i}
	}
	return append(blocks, cur)
}

// enforceMinBlock widens every block shorter than minBlock by borrowing the
// unselected neighbour ending at its start and the one starting at its end,
// left first, until the block is long enough or no neighbour is left.
func enforceMinBlock(within []model.NormalizedSlot, chosen []bool, blocks [][]int, minBlock time.Duration) {
	if minBlock <= 0 {
		return
	}
	startsAt := make(map[int64]int, len(within))
	endsAt := make(map[int64]int, len(within))
	for i, iv := range within {
		startsAt[iv.Start.UnixNano()] = i
		endsAt[iv.End.UnixNano()] = i
	}

	for b, block := range blocks {
		duration := within[block[len(block)-1]].End.Sub(within[block[0]].Start)
		for duration < minBlock {
			expanded := false
			if l, ok := endsAt[within[block[0]].Start.UnixNano()]; ok && !chosen[l] {
				block = append([]int{l}, block...)
				chosen[l] = true
				expanded = true
			}
			if r, ok := startsAt[within[block[len(block)-1]].End.UnixNano()]; ok && !chosen[r] {
				block = append(block, r)
				chosen[r] = true
				expanded = true
			}
			duration = within[block[len(block)-1]].End.Sub(within[block[0]].Start)
			if !expanded {
				break
			}
		}
		blocks[b] = block
	}
}
