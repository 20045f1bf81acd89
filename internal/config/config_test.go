package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultHysteresis(t *testing.T) {
	cfg := Default()
	assert.Greater(t, cfg.Simulation.DematerializationRadius, cfg.Simulation.MaterializationRadius)
	assert.Equal(t, 0.05, cfg.Combat.BaseKillProbability)
	assert.Equal(t, 60*time.Second, cfg.Simulation.AutoSaveInterval)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.toml")
	body := `
[server]
name = "test-front"

[simulation]
total_agents = 200
movement_budget = "5ms"

[storage]
backend = "memory"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "test-front", cfg.Server.Name)
	assert.Equal(t, 200, cfg.Simulation.TotalAgents)
	assert.Equal(t, 5*time.Millisecond, cfg.Simulation.MovementBudget)
	assert.Equal(t, "memory", cfg.Storage.Backend)
	// untouched keys keep their defaults
	assert.Equal(t, 10, cfg.Simulation.SquadSize)
	assert.Equal(t, 200.0, cfg.Combat.EngagementRange)
	assert.NotZero(t, cfg.Server.StartTime)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}
