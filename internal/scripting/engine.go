package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/frontline/warsim/internal/director"
	"github.com/frontline/warsim/internal/war"
)

// Engine wraps a single gopher-lua VM for strategy overrides.
// Single-goroutine access only (simulation loop).
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads all scripts from the given directory.
// Missing directories are skipped, so an empty scripts dir yields a VM with no
// overrides.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	// Set API version global
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}

	// core helpers first, then doctrine scripts
	for _, sub := range []string{"core", "doctrine"} {
		p := filepath.Join(scriptsDir, sub)
		if err := e.loadDir(p); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load %s scripts: %w", sub, err)
		}
	}

	return e, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// HasFunc reports whether a global Lua function is defined.
func (e *Engine) HasFunc(name string) bool {
	_, ok := e.vm.GetGlobal(name).(*lua.LFunction)
	return ok
}

// DoctrineRatios calls the Lua doctrine_ratios(faction, ctx) function. The
// second result is false when the function is missing, fails, or returns
// something other than a usable table.
func (e *Engine) DoctrineRatios(f war.Faction, ctx director.Context) (director.Doctrine, bool) {
	fn := e.vm.GetGlobal("doctrine_ratios")
	if fn == lua.LNil {
		return director.Doctrine{}, false
	}

	t := e.vm.NewTable()
	t.RawSetString("alive", lua.LNumber(ctx.Alive))
	t.RawSetString("total", lua.LNumber(ctx.Total))
	t.RawSetString("strong", lua.LNumber(ctx.Strong))
	t.RawSetString("weak", lua.LNumber(ctx.Weak))
	t.RawSetString("spent", lua.LNumber(ctx.Spent))
	t.RawSetString("owned", lua.LNumber(ctx.Owned))
	t.RawSetString("enemy", lua.LNumber(ctx.Enemy))
	t.RawSetString("contested", lua.LNumber(ctx.Contested))
	t.RawSetString("neutral", lua.LNumber(ctx.Neutral))
	t.RawSetString("elapsed", lua.LNumber(ctx.Elapsed))

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, lua.LString(f.String()), t); err != nil {
		e.log.Error("lua doctrine_ratios error", zap.Error(err))
		return director.Doctrine{}, false
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	rt, ok := result.(*lua.LTable)
	if !ok {
		if result != lua.LNil {
			e.log.Error("lua doctrine_ratios returned non-table")
		}
		return director.Doctrine{}, false
	}

	d := director.Doctrine{
		Name:   lStr(rt, "name"),
		Attack: lFloat(rt, "attack"),
		Defend: lFloat(rt, "defend"),
		Patrol: lFloat(rt, "patrol"),
	}
	if err := d.Validate(); err != nil {
		e.log.Warn("lua doctrine rejected", zap.Error(err))
		return director.Doctrine{}, false
	}
	if d.Name == "" {
		d.Name = "scripted"
	}
	return d, true
}

// lFloat reads a numeric field from a Lua table.
func lFloat(t *lua.LTable, key string) float64 {
	return float64(lua.LVAsNumber(t.RawGetString(key)))
}

// lStr reads a string field from a Lua table.
func lStr(t *lua.LTable, key string) string {
	return lua.LVAsString(t.RawGetString(key))
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}

// Doctrines is a director.DoctrineSource backed by Lua, falling back to
// another source whenever the script declines.
type Doctrines struct {
	engine   *Engine
	fallback director.DoctrineSource
}

func NewDoctrines(e *Engine, fallback director.DoctrineSource) *Doctrines {
	if fallback == nil {
		fallback = director.DefaultDoctrines()
	}
	return &Doctrines{engine: e, fallback: fallback}
}

func (s *Doctrines) Doctrine(f war.Faction, ctx director.Context) director.Doctrine {
	if s.engine != nil {
		if d, ok := s.engine.DoctrineRatios(f, ctx); ok {
			return d
		}
	}
	return s.fallback.Doctrine(f, ctx)
}
