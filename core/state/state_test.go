package state

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/smartcharge/core/model"
)

type mapStore struct {
	mu      sync.Mutex
	vals    map[string]string
	failGet bool
}

func newMapStore() *mapStore { return &mapStore{vals: map[string]string{}} }

func (m *mapStore) Get(_ context.Context, name string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet {
		return "", false, errors.New("unavailable")
	}
	v, ok := m.vals[name]
	return v, ok, nil
}

func (m *mapStore) Set(_ context.Context, name, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vals[name] = value
	return nil
}

func TestPlanRoundTrip(t *testing.T) {
	ctx := context.Background()
	vars := newMapStore()
	s := New(vars, nil)

	_, ok := s.Plan(ctx)
	assert.False(t, ok)

	start := time.Date(2025, 1, 14, 23, 0, 0, 0, time.UTC)
	p := model.ChargePlan{
		ID:        "p1",
		ChargerID: "easee-1",
		Slots:     []model.PlanSlot{{Start: start, End: start.Add(time.Hour), Minutes: 60, Price: 0.6}},
	}
	require.NoError(t, s.SavePlan(ctx, p))
	assert.Contains(t, vars.vals[VarPlan], `"chargerId":"easee-1"`)

	got, ok := s.Plan(ctx)
	require.True(t, ok)
	assert.Equal(t, "p1", got.ID)
	require.Len(t, got.Slots, 1)
	assert.True(t, got.Slots[0].Start.Equal(start))
}

func TestPlanUnreadable(t *testing.T) {
	ctx := context.Background()
	vars := newMapStore()
	s := New(vars, nil)

	vars.vals[VarPlan] = "{"
	_, ok := s.Plan(ctx)
	assert.False(t, ok)

	vars.vals[VarPlan] = "{}"
	_, ok = s.Plan(ctx)
	assert.False(t, ok)

	vars.failGet = true
	_, ok = s.Plan(ctx)
	assert.False(t, ok)
}

func TestStatus(t *testing.T) {
	ctx := context.Background()
	vars := newMapStore()
	s := New(vars, nil)

	assert.Equal(t, model.StatusUnset, s.Status(ctx))
	require.NoError(t, s.SetStatus(ctx, model.StatusOffCapacity))
	assert.Equal(t, "off_capacity", vars.vals[VarStatus])
	assert.Equal(t, model.StatusOffCapacity, s.Status(ctx))

	vars.vals[VarStatus] = "sleeping"
	assert.Equal(t, model.StatusUnset, s.Status(ctx))
}

func TestLimits(t *testing.T) {
	ctx := context.Background()
	vars := newMapStore()
	s := New(vars, nil)

	def := model.Uniform(16)
	assert.Equal(t, def, s.Limits(ctx, def))

	require.NoError(t, s.SaveLimits(ctx, model.PhaseCurrents{L1: 16, L2: 3, L3: 12}))
	assert.JSONEq(t, `{"L1":16,"L2":3,"L3":12}`, vars.vals[VarLimits])
	assert.Equal(t, model.PhaseCurrents{L1: 16, L2: 3, L3: 12}, s.Limits(ctx, def))

	vars.vals[VarLimits] = "garbage"
	assert.Equal(t, def, s.Limits(ctx, def))
}

func TestUserVariables(t *testing.T) {
	ctx := context.Background()
	vars := newMapStore()
	s := New(vars, nil)
	def := model.Clock{Hour: 8}

	assert.Equal(t, def, s.Departure(ctx, def))
	vars.vals[VarDeparture] = "06:30"
	assert.Equal(t, model.Clock{Hour: 6, Minute: 30}, s.Departure(ctx, def))
	vars.vals[VarDeparture] = "later"
	assert.Equal(t, def, s.Departure(ctx, def))

	assert.True(t, s.SmartCharging(ctx, true))
	vars.vals[VarSmart] = "false"
	assert.False(t, s.SmartCharging(ctx, true))
	vars.vals[VarSmart] = "maybe"
	assert.True(t, s.SmartCharging(ctx, true))

	_, ok := s.CarCapacity(ctx, "tesla")
	assert.False(t, ok)
	vars.vals[CarCapacityVar("tesla")] = "75"
	c, ok := s.CarCapacity(ctx, "tesla")
	require.True(t, ok)
	assert.Equal(t, 75.0, c)
	vars.vals[CarCapacityVar("tesla")] = "-1"
	_, ok = s.CarCapacity(ctx, "tesla")
	assert.False(t, ok)
}

func TestUserVariableSetters(t *testing.T) {
	ctx := context.Background()
	vars := newMapStore()
	s := New(vars, nil)

	require.NoError(t, s.SetDeparture(ctx, model.Clock{Hour: 6, Minute: 45}))
	assert.Equal(t, "06:45", vars.vals[VarDeparture])
	assert.Equal(t, model.Clock{Hour: 6, Minute: 45}, s.Departure(ctx, model.Clock{Hour: 8}))

	require.NoError(t, s.SetSmartCharging(ctx, false))
	assert.False(t, s.SmartCharging(ctx, true))
}
