package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/frontline/warsim/internal/war"
	"github.com/frontline/warsim/internal/war/wartest"
)

func TestMetricsObserve(t *testing.T) {
	m, err := New(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)

	r := wartest.Roster(
		wartest.Squad{Faction: war.Blufor, Members: wartest.Line(war.Vec3{}, 4, 1)},
		wartest.Squad{Faction: war.Opfor, Members: wartest.Line(war.Vec3{}, 3, 1)},
	)
	r.Kill(r.Agents()[0])
	m.Observe(r)
	assert.Equal(t, int64(3), m.Alive(war.Blufor))
	assert.Equal(t, int64(3), m.Alive(war.Opfor))
	assert.Zero(t, m.Alive(war.NoFaction))

	assert.NotPanics(t, func() {
		m.AddCasualties(war.Opfor, 2)
		m.AddEngagements(1)
		m.RecordPipeline(1, 2, 0)
		m.AddEvents(5)
		m.RecordSave(0, true)
		m.AddReinforcements(war.Blufor, 30)
		m.ObserveTick(3 * time.Millisecond)
	})
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Observe(nil)
		m.AddCasualties(war.Blufor, 1)
		m.RecordSave(1, false)
		m.ObserveTick(time.Millisecond)
	})
	assert.Zero(t, m.Alive(war.Blufor))
}

func TestGlobalMeter(t *testing.T) {
	m, err := New(nil)
	require.NoError(t, err)
	assert.NotNil(t, m)
}
