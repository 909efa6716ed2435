package cmd

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/kilianp07/smartcharge/core/model"
)

func samplePlan() model.ChargePlan {
	start := time.Date(2025, 1, 15, 1, 0, 0, 0, time.UTC)
	return model.ChargePlan{
		ID:            "p1",
		ChargerID:     "easee",
		CarID:         "bmw",
		PlannedEnergy: 11,
		Slots:         []model.PlanSlot{{Start: start, End: start.Add(time.Hour)}},
	}
}

func TestWritePlanJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writePlan(&buf, samplePlan(), "json"))
	var got model.ChargePlan
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "easee", got.ChargerID)
	assert.Len(t, got.Slots, 1)
}

func TestWritePlanYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writePlan(&buf, samplePlan(), "yaml"))
	var got map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "easee", got["charger_id"])
	assert.Equal(t, "bmw", got["car_id"])
}

func TestWritePlanUnknownFormat(t *testing.T) {
	assert.Error(t, writePlan(&bytes.Buffer{}, samplePlan(), "xml"))
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, n := range []string{"plan", "execute", "balance", "prices"} {
		assert.True(t, names[n], n)
	}
}
