package persist

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/crypto/blake2b"

	"github.com/frontline/warsim/internal/war"
)

var ErrChecksum = errors.New("save checksum mismatch")

// Envelope wraps a serialized WarState with the metadata needed to reject it
// before decoding the state itself.
type Envelope struct {
	SchemaVersion int             `json:"schemaVersion"`
	SavedAt       int64           `json:"savedAt"` // unix millis
	GameMode      string          `json:"gameMode"`
	ElapsedTime   float64         `json:"elapsedTime"`
	Checksum      string          `json:"checksum,omitempty"` // hex blake2b-256 of State
	State         json.RawMessage `json:"state"`
}

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Shared codec instances; EncodeAll/DecodeAll are safe for concurrent use.
var (
	zenc, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	zdec, _ = zstd.NewReader(nil)
)

func checksum(b []byte) string {
	sum := blake2b.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Encode serializes st inside an envelope, zstd-compressed when compress is set.
func Encode(st *war.WarState, gameMode string, compress bool) ([]byte, error) {
	if st == nil {
		return nil, errors.New("encode: nil state")
	}
	raw, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("marshal state: %w", err)
	}
	env := Envelope{
		SchemaVersion: st.SchemaVersion,
		SavedAt:       st.Timestamp,
		GameMode:      gameMode,
		ElapsedTime:   st.ElapsedTime,
		Checksum:      checksum(raw),
		State:         raw,
	}
	out, err := json.Marshal(&env)
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	if compress {
		out = zenc.EncodeAll(out, make([]byte, 0, len(out)/4))
	}
	return out, nil
}

// DecodeEnvelope unwraps the envelope only, leaving State raw.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	if bytes.HasPrefix(data, zstdMagic) {
		plain, err := zdec.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("decompress save: %w", err)
		}
		data = plain
	}
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	return &env, nil
}

// Decode unwraps and verifies a save. A foreign schema version is reported as
// war.ErrSchemaMismatch without decoding the state.
func Decode(data []byte) (*Envelope, *war.WarState, error) {
	env, err := DecodeEnvelope(data)
	if err != nil {
		return nil, nil, err
	}
	if env.SchemaVersion != war.SchemaVersion {
		return env, nil, fmt.Errorf("%w: save has %d, want %d", war.ErrSchemaMismatch, env.SchemaVersion, war.SchemaVersion)
	}
	if env.Checksum != "" && env.Checksum != checksum(env.State) {
		return env, nil, ErrChecksum
	}
	var st war.WarState
	if err := json.Unmarshal(env.State, &st); err != nil {
		return env, nil, fmt.Errorf("unmarshal state: %w", err)
	}
	if st.SchemaVersion != war.SchemaVersion {
		return env, nil, fmt.Errorf("%w: state has %d, want %d", war.ErrSchemaMismatch, st.SchemaVersion, war.SchemaVersion)
	}
	return env, &st, nil
}
