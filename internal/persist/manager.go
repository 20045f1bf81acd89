package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/frontline/warsim/internal/war"
)

const (
	AutoSlot = 0 // written by the auto-save timer
	MaxSlot  = 2 // 1..MaxSlot are manual slots
)

// SlotKey is the storage key of a slot.
func SlotKey(slot int) string { return fmt.Sprintf("warsim_slot_%d", slot) }

// ValidSlot reports whether slot is 0..MaxSlot.
func ValidSlot(slot int) bool { return slot >= AutoSlot && slot <= MaxSlot }

// SlotInfo is the envelope metadata of a stored save.
type SlotInfo struct {
	Slot        int
	SavedAt     time.Time
	GameMode    string
	ElapsedTime float64
	Size        int
	Schema      int
}

// Manager maps slot numbers onto a SlotStore and owns the auto-save timer.
// Every failure is logged and reported as a false result; nothing here stops
// the simulation.
type Manager struct {
	store    SlotStore
	log      *zap.Logger
	gameMode string
	compress bool
	interval time.Duration // simulated time between auto-saves
	timeout  time.Duration

	acc time.Duration
}

type ManagerOption func(*Manager)

// WithCompression zstd-compresses every written payload.
func WithCompression(on bool) ManagerOption { return func(m *Manager) { m.compress = on } }

// WithGameMode stamps the game mode into every envelope.
func WithGameMode(mode string) ManagerOption { return func(m *Manager) { m.gameMode = mode } }

// WithAutoSaveInterval sets the simulated-time auto-save period. Zero disables it.
func WithAutoSaveInterval(d time.Duration) ManagerOption {
	return func(m *Manager) { m.interval = d }
}

// WithTimeout bounds every storage call.
func WithTimeout(d time.Duration) ManagerOption { return func(m *Manager) { m.timeout = d } }

func NewManager(store SlotStore, log *zap.Logger, opts ...ManagerOption) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Manager{
		store:    store,
		log:      log,
		interval: 60 * time.Second,
		timeout:  5 * time.Second,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *Manager) ctx(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	if m.timeout <= 0 {
		return parent, func() {}
	}
	return context.WithTimeout(parent, m.timeout)
}

// Advance feeds simulated time into the auto-save timer and reports whether
// an auto-save is due. The timer restarts on every due report.
func (m *Manager) Advance(dt time.Duration) bool {
	if m.interval <= 0 {
		return false
	}
	m.acc += dt
	if m.acc < m.interval {
		return false
	}
	m.acc = 0
	return true
}

// ResetTimer restarts the auto-save countdown.
func (m *Manager) ResetTimer() { m.acc = 0 }

// Save writes st into slot.
func (m *Manager) Save(ctx context.Context, slot int, st *war.WarState) bool {
	if !ValidSlot(slot) || st == nil || m.store == nil {
		return false
	}
	data, err := Encode(st, m.gameMode, m.compress)
	if err != nil {
		m.log.Error("save encode failed", zap.Int("slot", slot), zap.Error(err))
		return false
	}
	ctx, cancel := m.ctx(ctx)
	defer cancel()
	if err := m.store.Put(ctx, SlotKey(slot), data); err != nil {
		m.log.Error("save write failed", zap.Int("slot", slot), zap.Error(err))
		return false
	}
	m.log.Debug("saved",
		zap.Int("slot", slot),
		zap.Int("bytes", len(data)),
		zap.Int("agents", len(st.Agents)))
	return true
}

// Load reads the state in slot. A foreign schema or a corrupt payload is
// logged and reported as false.
func (m *Manager) Load(ctx context.Context, slot int) (*war.WarState, bool) {
	if !ValidSlot(slot) || m.store == nil {
		return nil, false
	}
	ctx, cancel := m.ctx(ctx)
	defer cancel()
	data, err := m.store.Get(ctx, SlotKey(slot))
	if errors.Is(err, ErrNotFound) {
		return nil, false
	}
	if err != nil {
		m.log.Error("load read failed", zap.Int("slot", slot), zap.Error(err))
		return nil, false
	}
	_, st, err := Decode(data)
	switch {
	case errors.Is(err, war.ErrSchemaMismatch):
		m.log.Warn("save rejected", zap.Int("slot", slot), zap.Error(err))
		return nil, false
	case err != nil:
		m.log.Error("load decode failed", zap.Int("slot", slot), zap.Error(err))
		return nil, false
	}
	return st, true
}

// Delete removes the save in slot.
func (m *Manager) Delete(ctx context.Context, slot int) bool {
	if !ValidSlot(slot) || m.store == nil {
		return false
	}
	ctx, cancel := m.ctx(ctx)
	defer cancel()
	if err := m.store.Delete(ctx, SlotKey(slot)); err != nil {
		m.log.Error("delete failed", zap.Int("slot", slot), zap.Error(err))
		return false
	}
	return true
}

// Info returns the envelope metadata of slot without decoding its state.
func (m *Manager) Info(ctx context.Context, slot int) (SlotInfo, bool) {
	if !ValidSlot(slot) || m.store == nil {
		return SlotInfo{}, false
	}
	ctx, cancel := m.ctx(ctx)
	defer cancel()
	data, err := m.store.Get(ctx, SlotKey(slot))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			m.log.Error("info read failed", zap.Int("slot", slot), zap.Error(err))
		}
		return SlotInfo{}, false
	}
	env, err := DecodeEnvelope(data)
	if err != nil {
		m.log.Error("info decode failed", zap.Int("slot", slot), zap.Error(err))
		return SlotInfo{}, false
	}
	return SlotInfo{
		Slot:        slot,
		SavedAt:     time.UnixMilli(env.SavedAt),
		GameMode:    env.GameMode,
		ElapsedTime: env.ElapsedTime,
		Size:        len(data),
		Schema:      env.SchemaVersion,
	}, true
}

// Close releases the underlying store.
func (m *Manager) Close() error {
	if m.store == nil {
		return nil
	}
	return m.store.Close()
}
