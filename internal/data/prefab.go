package data

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/component"
	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/core/spatial"
)

// Prefab is an entity template spawned Count times. Nil fields are not
// attached.
type Prefab struct {
	Name     string              `yaml:"name"`
	Count    int                 `yaml:"count"`
	Position *spatial.Vec2       `yaml:"position"`
	Spread   float64             `yaml:"spread"` // random offset per axis, ±Spread
	Velocity *component.Velocity `yaml:"velocity"`
	Vessel   *component.Vessel   `yaml:"vessel"`
	Cargo    *component.Cargo    `yaml:"cargo"`
	Port     *component.Port     `yaml:"port"`
	Route    []spatial.Vec2      `yaml:"route"`
	Loop     bool                `yaml:"loop"` // route repeats
}

type prefabFile struct {
	Prefabs []Prefab `yaml:"prefabs"`
}

// PrefabTable holds prefabs in file order with lookup by name.
type PrefabTable struct {
	list   []*Prefab
	byName map[string]*Prefab
}

// LoadPrefabTable loads a prefab YAML file.
func LoadPrefabTable(path string) (*PrefabTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prefabs: %w", err)
	}
	return ParsePrefabs(raw)
}

// ParsePrefabs parses and validates prefab YAML.
func ParsePrefabs(raw []byte) (*PrefabTable, error) {
	var f prefabFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse prefabs: %w", err)
	}
	t := &PrefabTable{
		list:   make([]*Prefab, 0, len(f.Prefabs)),
		byName: make(map[string]*Prefab, len(f.Prefabs)),
	}
	for i := range f.Prefabs {
		p := &f.Prefabs[i]
		switch {
		case p.Name == "":
			return nil, fmt.Errorf("prefab #%d: %w", i, errors.New("name is required"))
		case p.Count < 0:
			return nil, fmt.Errorf("prefab %q: count must not be negative", p.Name)
		case p.Spread < 0:
			return nil, fmt.Errorf("prefab %q: spread must not be negative", p.Name)
		case p.Port != nil && p.Port.Radius <= 0:
			return nil, fmt.Errorf("prefab %q: port radius must be positive", p.Name)
		}
		if _, dup := t.byName[p.Name]; dup {
			return nil, fmt.Errorf("prefab %q: duplicate name", p.Name)
		}
		t.byName[p.Name] = p
		t.list = append(t.list, p)
	}
	return t, nil
}

// Get returns the prefab by name, or nil.
func (t *PrefabTable) Get(name string) *Prefab {
	return t.byName[name]
}

// All returns prefabs in file order.
func (t *PrefabTable) All() []*Prefab {
	return t.list
}

// Count returns the number of prefabs loaded.
func (t *PrefabTable) Count() int {
	return len(t.list)
}

// Total returns the number of entities the table spawns.
func (t *PrefabTable) Total() int {
	n := 0
	for _, p := range t.list {
		n += p.Count
	}
	return n
}
