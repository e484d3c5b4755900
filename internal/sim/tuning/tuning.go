// Package tuning loads the operator-editable server parameters from YAML.
package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"shopcraft.gg/internal/sim/world"
)

type Tuning struct {
	WorldID    string `yaml:"world_id"`
	TickRateHz int    `yaml:"tick_rate_hz"`

	Currency        string `yaml:"currency"`
	StartingBalance int64  `yaml:"starting_balance"`

	BulkQty   int `yaml:"bulk_qty"`
	StackSize int `yaml:"stack_size"`

	PlayerSlots    int `yaml:"player_slots"`
	ContainerSlots int `yaml:"container_slots"`

	SignTextLimit int `yaml:"sign_text_limit"`

	SnapshotEveryTicks int `yaml:"snapshot_every_ticks"`

	Operators []string            `yaml:"operators"`
	Grants    map[string][]string `yaml:"grants"`
}

// Defaults are the values a fresh server runs with when no tuning file is
// given.
func Defaults() Tuning {
	return Tuning{
		WorldID:            "world_1",
		TickRateHz:         10,
		Currency:           "$",
		StartingBalance:    1000,
		BulkQty:            64,
		StackSize:          64,
		PlayerSlots:        36,
		ContainerSlots:     27,
		SignTextLimit:      200,
		SnapshotEveryTicks: 3000,
	}
}

func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) WorldConfig() world.WorldConfig {
	return world.WorldConfig{
		ID:                 t.WorldID,
		TickRateHz:         t.TickRateHz,
		Currency:           t.Currency,
		StartingBalance:    t.StartingBalance,
		BulkQty:            t.BulkQty,
		StackSize:          t.StackSize,
		PlayerSlots:        t.PlayerSlots,
		ContainerSlots:     t.ContainerSlots,
		SignTextLimit:      t.SignTextLimit,
		SnapshotEveryTicks: t.SnapshotEveryTicks,
		Operators:          t.Operators,
		Grants:             t.Grants,
	}
}
