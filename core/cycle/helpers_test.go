package cycle

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/kilianp07/smartcharge/core/model"
)

type command struct {
	device string
	action string
	args   map[string]any
}

type fakeDevices struct {
	mu       sync.Mutex
	numbers  map[string]float64
	strings  map[string]string
	bools    map[string]bool
	commands []command
	fail     map[string]bool
}

func newFakeDevices() *fakeDevices {
	return &fakeDevices{
		numbers: map[string]float64{},
		strings: map[string]string{},
		bools:   map[string]bool{},
		fail:    map[string]bool{},
	}
}

func key(id, attr string) string { return id + "/" + attr }

func (f *fakeDevices) Number(_ context.Context, id, attr string) (float64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.numbers[key(id, attr)]
	return v, ok
}

func (f *fakeDevices) String(_ context.Context, id, attr string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.strings[key(id, attr)]
	return v, ok
}

func (f *fakeDevices) Bool(_ context.Context, id, attr string) (bool, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.bools[key(id, attr)]
	return v, ok
}

func (f *fakeDevices) Command(_ context.Context, id, action string, args map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, command{id, action, args})
	if f.fail[action] {
		return errors.New("rejected")
	}
	return nil
}

func (f *fakeDevices) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.commands))
	for i, c := range f.commands {
		out[i] = c.action
	}
	return out
}

type mapVars struct {
	mu   sync.Mutex
	vals map[string]string
}

func newMapVars() *mapVars { return &mapVars{vals: map[string]string{}} }

func (m *mapVars) Get(_ context.Context, name string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vals[name]
	return v, ok, nil
}

func (m *mapVars) Set(_ context.Context, name, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vals[name] = value
	return nil
}

type staticPrices struct {
	intervals []model.PricedInterval
	days      []time.Time
	pruned    []time.Time
}

func (s *staticPrices) Prices(_ context.Context, days ...time.Time) []model.PricedInterval {
	s.days = days
	return s.intervals
}

func (s *staticPrices) Fallback() time.Duration { return time.Hour }

func (s *staticPrices) Prune(before time.Time) { s.pruned = append(s.pruned, before) }

type pushRecorder struct {
	mu    sync.Mutex
	texts []string
}

func (p *pushRecorder) Push(_ context.Context, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.texts = append(p.texts, text)
	return nil
}

func fixedNow(t time.Time) func() time.Time { return func() time.Time { return t } }
