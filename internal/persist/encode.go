package persist

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/core/ecs"
	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/world"
)

// EncodedKind is one component kind's payload: a JSON array of
// {"entity": id, "value": ...} objects in entity order.
type EncodedKind struct {
	Name    string
	Count   int
	Payload []byte
}

// Encoded is a snapshot ready to be written.
type Encoded struct {
	ID          uuid.UUID
	Step        uint64
	Taken       time.Time
	EntityCount int
	Entities    []byte // JSON array of {"id": ..., "kinds": [...]}
	Kinds       []EncodedKind
	Checksum    [blake2b.Size256]byte
}

type entityRow struct {
	ID    ecs.EntityID `json:"id"`
	Kinds []uint16     `json:"kinds"`
}

type componentRow struct {
	Entity ecs.EntityID `json:"entity"`
	Value  any          `json:"value"`
}

// Encode serializes snap. The checksum covers the entity table and every
// kind payload in registration order, so equal worlds hash equal.
func Encode(snap world.Snapshot) (*Encoded, error) {
	enc := &Encoded{
		ID:          uuid.New(),
		Step:        snap.Step,
		Taken:       snap.Taken,
		EntityCount: len(snap.Entities),
	}

	rows := make([]entityRow, len(snap.Entities))
	for i, e := range snap.Entities {
		rows[i] = entityRow{ID: e.ID, Kinds: e.Mask.Bits()}
	}
	var err error
	if enc.Entities, err = json.Marshal(rows); err != nil {
		return nil, fmt.Errorf("encode entities: %w", err)
	}

	h, err := blake2b.New256(nil)
	if err != nil {
		return nil, err
	}
	h.Write(enc.Entities)

	for _, k := range snap.Kinds {
		recs, ok := snap.Components[k.Name]
		if !ok {
			continue
		}
		out := make([]componentRow, len(recs))
		for i, r := range recs {
			out[i] = componentRow{Entity: r.Entity, Value: r.Value}
		}
		payload, err := json.Marshal(out)
		if err != nil {
			return nil, fmt.Errorf("encode kind %q: %w", k.Name, err)
		}
		enc.Kinds = append(enc.Kinds, EncodedKind{Name: k.Name, Count: len(recs), Payload: payload})
		h.Write([]byte(k.Name))
		h.Write(payload)
	}
	copy(enc.Checksum[:], h.Sum(nil))
	return enc, nil
}
