package scripting

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frontline/warsim/internal/director"
	"github.com/frontline/warsim/internal/war"
)

func writeScript(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "doctrine"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "doctrine", "ratios.lua"), []byte(src), 0o644))
	return dir
}

const desperate = `
function doctrine_ratios(faction, ctx)
  if faction == "opfor" and ctx.alive < ctx.total / 2 then
    return { name = "last_stand", attack = 0, defend = 4, patrol = 1 }
  end
  return nil
end
`

func TestScriptedDoctrineOverridesAndFallsBack(t *testing.T) {
	e, err := NewEngine(writeScript(t, desperate), nil)
	require.NoError(t, err)
	defer e.Close()
	require.True(t, e.HasFunc("doctrine_ratios"))

	src := NewDoctrines(e, nil)
	d := src.Doctrine(war.Opfor, director.Context{Alive: 10, Total: 100})
	assert.Equal(t, "last_stand", d.Name)
	assert.Equal(t, 4.0, d.Defend)

	d = src.Doctrine(war.Opfor, director.Context{Alive: 90, Total: 100})
	assert.Equal(t, director.Offensive, d, "nil result uses the static profile")
	d = src.Doctrine(war.Blufor, director.Context{Alive: 1, Total: 100})
	assert.Equal(t, director.Defensive, d)
}

func TestScriptErrorsFallBack(t *testing.T) {
	cases := map[string]string{
		"runtime error": `function doctrine_ratios(f, ctx) error("boom") end`,
		"non table":     `function doctrine_ratios(f, ctx) return 42 end`,
		"negative":      `function doctrine_ratios(f, ctx) return { attack = -1, defend = 1, patrol = 1 } end`,
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			e, err := NewEngine(writeScript(t, src), nil)
			require.NoError(t, err)
			defer e.Close()
			_, ok := e.DoctrineRatios(war.Blufor, director.Context{})
			assert.False(t, ok)
			assert.Equal(t, director.Defensive, NewDoctrines(e, nil).Doctrine(war.Blufor, director.Context{}))
		})
	}
}

func TestMissingScriptsDir(t *testing.T) {
	e, err := NewEngine(filepath.Join(t.TempDir(), "nope"), nil)
	require.NoError(t, err)
	defer e.Close()
	assert.False(t, e.HasFunc("doctrine_ratios"))
	_, ok := e.DoctrineRatios(war.Opfor, director.Context{})
	assert.False(t, ok)
}

func TestBrokenScriptFailsLoad(t *testing.T) {
	_, err := NewEngine(writeScript(t, `function doctrine_ratios(`), nil)
	assert.Error(t, err)
}

func TestShippedAdaptiveDoctrine(t *testing.T) {
	e, err := NewEngine(filepath.Join("..", "..", "scripts"), nil)
	require.NoError(t, err)
	defer e.Close()
	require.True(t, e.HasFunc("clamp"))

	d, ok := e.DoctrineRatios(war.Blufor, director.Context{Alive: 30, Total: 100})
	require.True(t, ok)
	assert.Equal(t, "last_stand", d.Name)

	d, ok = e.DoctrineRatios(war.Opfor, director.Context{Alive: 90, Total: 100, Owned: 5, Enemy: 2, Contested: 1})
	require.True(t, ok)
	assert.Equal(t, "exploit", d.Name)

	_, ok = e.DoctrineRatios(war.Opfor, director.Context{Alive: 60, Total: 100, Owned: 2, Enemy: 4})
	assert.False(t, ok)
	_, ok = e.DoctrineRatios(war.Opfor, director.Context{})
	assert.False(t, ok)
}
