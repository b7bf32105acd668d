package persist

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/core/bitset"
	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/core/ecs"
	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/core/spatial"
	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/world"
)

type cargo struct {
	Units int `json:"units"`
}

func sampleSnapshot(units int) world.Snapshot {
	a := ecs.NewEntityID(0, 1)
	b := ecs.NewEntityID(1, 1)
	return world.Snapshot{
		Step:  42,
		Taken: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Kinds: []ecs.KindInfo{{Kind: 0, Name: "position"}, {Kind: 1, Name: "cargo"}},
		Entities: []world.EntityRecord{
			{ID: a, Mask: bitset.Of(0, 1)},
			{ID: b, Mask: bitset.Of(1)},
		},
		Components: map[string][]world.ComponentRecord{
			"position": {{Entity: a, Value: spatial.Vec2{X: 1, Y: 2}}},
			"cargo":    {{Entity: a, Value: cargo{units}}, {Entity: b, Value: cargo{3}}},
		},
	}
}

func TestEncode(t *testing.T) {
	enc, err := Encode(sampleSnapshot(7))
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, enc.ID)
	assert.Equal(t, uint64(42), enc.Step)
	assert.Equal(t, 2, enc.EntityCount)

	var ents []struct {
		ID    uint64   `json:"id"`
		Kinds []uint16 `json:"kinds"`
	}
	require.NoError(t, json.Unmarshal(enc.Entities, &ents))
	require.Len(t, ents, 2)
	assert.Equal(t, []uint16{0, 1}, ents[0].Kinds)

	require.Len(t, enc.Kinds, 2)
	assert.Equal(t, "position", enc.Kinds[0].Name, "registration order")
	assert.Equal(t, "cargo", enc.Kinds[1].Name)
	assert.Equal(t, 2, enc.Kinds[1].Count)

	var rows []struct {
		Entity uint64 `json:"entity"`
		Value  cargo  `json:"value"`
	}
	require.NoError(t, json.Unmarshal(enc.Kinds[1].Payload, &rows))
	assert.Equal(t, 7, rows[0].Value.Units)
	assert.Equal(t, uint64(ecs.NewEntityID(1, 1)), rows[1].Entity)
}

func TestChecksumTracksContent(t *testing.T) {
	a, err := Encode(sampleSnapshot(7))
	require.NoError(t, err)
	b, err := Encode(sampleSnapshot(7))
	require.NoError(t, err)
	c, err := Encode(sampleSnapshot(8))
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, a.Checksum, b.Checksum)
	assert.NotEqual(t, a.Checksum, c.Checksum)
}

type fakeStore struct {
	mu      sync.Mutex
	saved   []*Encoded
	fail    bool
	started chan struct{}
	release chan struct{}
}

func (f *fakeStore) Save(ctx context.Context, enc *Encoded) error {
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	if f.fail {
		return errors.New("connection refused")
	}
	f.mu.Lock()
	f.saved = append(f.saved, enc)
	f.mu.Unlock()
	return nil
}

func TestSaverSavesAndCloses(t *testing.T) {
	store := &fakeStore{}
	s := NewSaver(store, zap.NewNop(), time.Second)
	assert.True(t, s.Enqueue(sampleSnapshot(1)))
	s.Close()

	require.Len(t, store.saved, 1)
	saved, failed := s.Counts()
	assert.Equal(t, 1, saved)
	assert.Zero(t, failed)
	assert.False(t, s.Enqueue(sampleSnapshot(1)), "closed saver refuses")
	s.Close()
}

// go test -run ^TestSaverDropsWhenBusy$ ./internal/persist -count 1
func TestSaverDropsWhenBusy(t *testing.T) {
	store := &fakeStore{
		started: make(chan struct{}, 4),
		release: make(chan struct{}),
	}
	s := NewSaver(store, zap.NewNop(), time.Second)

	require.True(t, s.Enqueue(sampleSnapshot(1)))
	<-store.started // worker is now blocked inside Save
	assert.True(t, s.Enqueue(sampleSnapshot(2)), "one may wait")
	assert.False(t, s.Enqueue(sampleSnapshot(3)), "queue full")

	close(store.release)
	s.Close()
	assert.Len(t, store.saved, 2)
}

func TestSaverLogsFailure(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	s := NewSaver(&fakeStore{fail: true}, zap.New(core), time.Second)
	require.True(t, s.Enqueue(sampleSnapshot(1)))
	s.Close()

	_, failed := s.Counts()
	assert.Equal(t, 1, failed)
	entries := logs.FilterMessage("snapshot save failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "connection refused", entries[0].ContextMap()["error"])
}

func TestGooseLoggerWritesToZap(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := gooseLogger{log: zap.New(core)}
	l.Printf("OK   %s (%v)\n", "00001_snapshots.sql", "12ms")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "OK   00001_snapshots.sql (12ms)", entries[0].Message)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
}
