package world

import (
	"sort"

	"shopcraft.gg/internal/protocol"
)

// ArmState is the per-player shop-creation state machine. An armed player's
// next sign placement is interpreted as a shop creation attempt; the flag is
// consumed by that placement no matter how it turns out.
type ArmState int

const (
	Unarmed ArmState = iota
	ArmedPlayer
	ArmedAdmin
)

type Player struct {
	ID   string // account id, stable across sessions
	Name string

	// ResumeToken is a transport-level token used for reconnects.
	// It is intentionally NOT included in snapshots.
	ResumeToken string

	Inventory map[string]int
	slots     int

	Arm ArmState

	Events []protocol.Event

	Connected bool
}

func (p *Player) AddEvent(e protocol.Event) {
	p.Events = append(p.Events, e)
}

func (p *Player) TakeEvents() []protocol.Event {
	ev := p.Events
	p.Events = nil
	return ev
}

func (p *Player) InventoryList() []protocol.ItemStack {
	out := make([]protocol.ItemStack, 0, len(p.Inventory))
	for item, c := range p.Inventory {
		if c <= 0 {
			continue
		}
		out = append(out, protocol.ItemStack{Item: item, Count: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Item < out[j].Item })
	return out
}

// Count / Extract / Insert / Slots make *Player a shop.Inventory.

func (p *Player) Count(itemID string) int { return p.Inventory[itemID] }

func (p *Player) Extract(itemID string, qty int) {
	if qty <= 0 || p.Inventory[itemID] < qty {
		return
	}
	p.Inventory[itemID] -= qty
	if p.Inventory[itemID] <= 0 {
		delete(p.Inventory, itemID)
	}
}

func (p *Player) Insert(itemID string, qty int) {
	if qty <= 0 {
		return
	}
	p.Inventory[itemID] += qty
}

func (p *Player) Slots() int { return p.slots }
