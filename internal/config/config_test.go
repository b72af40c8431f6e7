package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAggregatesEveryFailingField(t *testing.T) {
	cfg := DefaultRuntimeConfig(4)
	cfg.Scheduler.NumCores = 0
	cfg.Scheduler.ReductionBudget = 1
	cfg.Timer.Tick = 0

	err := cfg.Validate()
	require.Error(t, err)

	ve, ok := err.(ValidationErrors)
	require.True(t, ok)
	assert.Len(t, ve, 3)
}

func TestValidatePassesOnDefaults(t *testing.T) {
	cfg := DefaultRuntimeConfig(4)
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsTooManyCores(t *testing.T) {
	cfg := DefaultRuntimeConfig(65)
	cfg.Scheduler.MaxConcurrentStealers = 65

	err := cfg.Validate()
	require.Error(t, err)
	ve, ok := err.(ValidationErrors)
	require.True(t, ok)
	assert.Len(t, ve, 1)
	assert.Equal(t, "scheduler.num_cores", ve[0].Field)
}

func TestValidateRejectsWrongPriorityLevels(t *testing.T) {
	cfg := DefaultRuntimeConfig(4)
	cfg.Scheduler.PriorityLevels = 8

	err := cfg.Validate()
	require.Error(t, err)
	ve, ok := err.(ValidationErrors)
	require.True(t, ok)
	assert.Len(t, ve, 1)
	assert.Equal(t, "scheduler.priority_levels", ve[0].Field)
}

func TestYAMLRendersEffectiveConfig(t *testing.T) {
	cfg := DefaultRuntimeConfig(4)
	out, err := cfg.YAML()
	require.NoError(t, err)
	assert.Contains(t, out, "num_cores: 4")
	assert.Contains(t, out, "near_slots: 512")
}

func TestValidateExtendedFlagsTooManyStealers(t *testing.T) {
	cfg := DefaultRuntimeConfig(4)
	cfg.Scheduler.MaxConcurrentStealers = 8

	err := cfg.ValidateExtended()
	require.Error(t, err)
	ve, ok := err.(ValidationErrors)
	require.True(t, ok)
	assert.Len(t, ve, 1)
}
