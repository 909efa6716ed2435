package device

import (
	"sort"

	"github.com/kilianp07/smartcharge/core/factory"
	"github.com/kilianp07/smartcharge/core/model"
)

// CarSelector picks the car assumed to be connected to the charger.
type CarSelector interface {
	Select(cars []model.Car) (model.Car, bool)
}

// LowestSoC always assumes the car with the lowest state of charge is
// plugged in. This guarantees every car reaches its target at the price of
// sometimes planning for the wrong one.
type LowestSoC struct{}

func (LowestSoC) Select(cars []model.Car) (model.Car, bool) {
	if len(cars) == 0 {
		return model.Car{}, false
	}
	sorted := append([]model.Car(nil), cars...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].SoC < sorted[j].SoC })
	return sorted[0], true
}

// ProbeConnection prefers cars that do not report being unplugged and falls
// back to LowestSoC when every car reports plugged_out.
type ProbeConnection struct{}

func (ProbeConnection) Select(cars []model.Car) (model.Car, bool) {
	var plugged []model.Car
	for _, c := range cars {
		if !c.PluggedOut() {
			plugged = append(plugged, c)
		}
	}
	if len(plugged) > 0 {
		return plugged[0], true
	}
	return LowestSoC{}.Select(cars)
}

// Selectors holds the available car selection strategies.
var Selectors = factory.NewRegistry[CarSelector]()

func init() {
	Selectors.MustRegister("lowest_soc", func(map[string]any) (CarSelector, error) { return LowestSoC{}, nil })
	Selectors.MustRegister("probe_connection", func(map[string]any) (CarSelector, error) { return ProbeConnection{}, nil })
}
