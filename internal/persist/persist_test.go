package persist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frontline/warsim/internal/config"
	"github.com/frontline/warsim/internal/war"
	"github.com/frontline/warsim/internal/war/wartest"
)

func sampleState(t *testing.T, elapsed float64) *war.WarState {
	t.Helper()
	r := wartest.Roster(
		wartest.Squad{Faction: war.Blufor, Members: wartest.Line(war.Vec3{}, 10, 2)},
		wartest.Squad{Faction: war.Opfor, Members: wartest.Line(war.Vec3{X: 500}, 10, 2)},
	)
	require.True(t, r.Kill(r.Agents()[3]))
	r.RefreshSquads()
	return r.Snapshot(elapsed, time.UnixMilli(1_700_000_000_000), nil, war.Vec3{X: 5}, nil)
}

func TestEnvelopeRoundTrip(t *testing.T) {
	for _, compress := range []bool{false, true} {
		st := sampleState(t, 42.5)
		data, err := Encode(st, "conquest", compress)
		require.NoError(t, err)
		assert.Equal(t, compress, bytes.HasPrefix(data, zstdMagic))

		env, got, err := Decode(data)
		require.NoError(t, err)
		assert.Equal(t, "conquest", env.GameMode)
		assert.Equal(t, 42.5, env.ElapsedTime)
		assert.Equal(t, int64(1_700_000_000_000), env.SavedAt)
		assert.Equal(t, 42.5, got.ElapsedTime)
		assert.Len(t, got.Agents, 20)
	}
}

func TestDecodeRejectsTamperedState(t *testing.T) {
	data, err := Encode(sampleState(t, 1), "conquest", false)
	require.NoError(t, err)
	tampered := bytes.Replace(data, []byte(`"elapsedTime":1,"agents"`), []byte(`"elapsedTime":9,"agents"`), 1)
	require.NotEqual(t, data, tampered)

	_, _, err = Decode(tampered)
	assert.ErrorIs(t, err, ErrChecksum)
}

func TestDecodeRejectsForeignSchema(t *testing.T) {
	env := Envelope{SchemaVersion: war.SchemaVersion + 1, State: json.RawMessage(`{}`)}
	data, err := json.Marshal(env)
	require.NoError(t, err)

	_, st, err := Decode(data)
	assert.Nil(t, st)
	assert.ErrorIs(t, err, war.ErrSchemaMismatch)

	_, _, err = Decode([]byte("not json"))
	assert.Error(t, err)
}

func TestSlotStores(t *testing.T) {
	dir := t.TempDir()
	fileStore, err := NewFileStore(filepath.Join(dir, "files"))
	require.NoError(t, err)
	sqliteStore, err := NewSQLiteStore(filepath.Join(dir, "saves.db"))
	require.NoError(t, err)
	memSQLite, err := NewSQLiteStore("")
	require.NoError(t, err)

	stores := map[string]SlotStore{
		"memory":        NewMemoryStore(),
		"file":          fileStore,
		"sqlite":        sqliteStore,
		"sqlite_memory": memSQLite,
	}
	ctx := context.Background()
	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			defer s.Close()
			_, err := s.Get(ctx, "warsim_slot_1")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.Put(ctx, "warsim_slot_1", []byte("first")))
			require.NoError(t, s.Put(ctx, "warsim_slot_1", []byte("second")))
			got, err := s.Get(ctx, "warsim_slot_1")
			require.NoError(t, err)
			assert.Equal(t, []byte("second"), got)

			require.NoError(t, s.Delete(ctx, "warsim_slot_1"))
			require.NoError(t, s.Delete(ctx, "warsim_slot_1"), "deleting twice is fine")
			_, err = s.Get(ctx, "warsim_slot_1")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestFileStoreRejectsPathKeys(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	assert.Error(t, s.Put(context.Background(), "../escape", []byte("x")))
}

func TestOpenBackends(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, config.StorageConfig{Backend: "memory"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(ctx, config.StorageConfig{Backend: "sqlite", Path: filepath.Join(t.TempDir(), "nested")}, nil)
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, config.StorageConfig{Backend: "floppy"}, nil)
	assert.Error(t, err)
}

type brokenStore struct{ MemoryStore }

func (*brokenStore) Put(context.Context, string, []byte) error {
	return errors.New("quota exceeded")
}

func TestManagerSaveLoad(t *testing.T) {
	m := NewManager(NewMemoryStore(), nil, WithGameMode("conquest"), WithCompression(true))
	ctx := context.Background()
	st := sampleState(t, 321)

	require.True(t, m.Save(ctx, 1, st))
	got, ok := m.Load(ctx, 1)
	require.True(t, ok)
	assert.Equal(t, 321.0, got.ElapsedTime)
	assert.Len(t, got.Agents, len(st.Agents))

	info, ok := m.Info(ctx, 1)
	require.True(t, ok)
	assert.Equal(t, "conquest", info.GameMode)
	assert.Equal(t, 321.0, info.ElapsedTime)
	assert.Equal(t, war.SchemaVersion, info.Schema)

	_, ok = m.Load(ctx, 2)
	assert.False(t, ok, "empty slot")
	assert.True(t, m.Delete(ctx, 1))
	_, ok = m.Load(ctx, 1)
	assert.False(t, ok)
}

func TestManagerInvalidSlots(t *testing.T) {
	m := NewManager(NewMemoryStore(), nil)
	ctx := context.Background()
	st := sampleState(t, 1)
	for _, slot := range []int{-1, 3, 99} {
		assert.False(t, m.Save(ctx, slot, st))
		_, ok := m.Load(ctx, slot)
		assert.False(t, ok)
		assert.False(t, m.Delete(ctx, slot))
		_, ok = m.Info(ctx, slot)
		assert.False(t, ok)
	}
	assert.False(t, m.Save(ctx, 0, nil))
}

func TestManagerRejectsForeignSchema(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager(store, nil)
	raw, err := json.Marshal(Envelope{SchemaVersion: 99, State: json.RawMessage(`{"schemaVersion":99}`)})
	require.NoError(t, err)
	require.NoError(t, store.Put(context.Background(), SlotKey(2), raw))

	_, ok := m.Load(context.Background(), 2)
	assert.False(t, ok)
}

func TestManagerStorageFailure(t *testing.T) {
	m := NewManager(&brokenStore{}, nil)
	assert.False(t, m.Save(context.Background(), 0, sampleState(t, 1)))
}

func TestManagerAutoSaveGate(t *testing.T) {
	m := NewManager(NewMemoryStore(), nil, WithAutoSaveInterval(time.Minute))
	due := 0
	for i := 0; i < 150; i++ {
		if m.Advance(time.Second) {
			due++
		}
	}
	assert.Equal(t, 2, due)

	off := NewManager(NewMemoryStore(), nil, WithAutoSaveInterval(0))
	assert.False(t, off.Advance(time.Hour))
}

func TestSlotKey(t *testing.T) {
	assert.Equal(t, "warsim_slot_0", SlotKey(AutoSlot))
	assert.True(t, ValidSlot(MaxSlot))
	assert.False(t, ValidSlot(MaxSlot+1))
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("WARSIM_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("WARSIM_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	s, err := Open(ctx, config.StorageConfig{Backend: "postgres", DSN: dsn, MaxConns: 2}, nil)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Put(ctx, "warsim_slot_test", []byte("payload")))
	got, err := s.Get(ctx, "warsim_slot_test")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)
	require.NoError(t, s.Delete(ctx, "warsim_slot_test"))
}
