package world

import (
	"sort"

	"shopcraft.gg/internal/protocol"
)

// Note is a written document stored in a container. A signed note carries the
// recorded author identity; shop configuration read from a signed note is only
// valid for the player who signed it.
type Note struct {
	Author string // account id; empty for an unsigned note
	Text   string
}

func (n Note) Signed() bool { return n.Author != "" }

type Container struct {
	Pos       Vec3i
	SlotCount int
	Inventory map[string]int
	Notes     []Note
}

func (c *Container) InventoryList() []protocol.ItemStack {
	out := make([]protocol.ItemStack, 0, len(c.Inventory))
	for item, n := range c.Inventory {
		if n <= 0 {
			continue
		}
		out = append(out, protocol.ItemStack{Item: item, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Item < out[j].Item })
	return out
}

// firstNote returns the first usable configuration note: the first signed note
// if one exists, otherwise (for admin shops) the first note of any kind.
func (c *Container) firstNote(allowUnsigned bool) (Note, bool) {
	for _, n := range c.Notes {
		if n.Signed() {
			return n, true
		}
	}
	if allowUnsigned && len(c.Notes) > 0 {
		return c.Notes[0], true
	}
	return Note{}, false
}

// Count / Extract / Insert / Slots make *Container a shop.Inventory.

func (c *Container) Count(itemID string) int { return c.Inventory[itemID] }

func (c *Container) Extract(itemID string, qty int) {
	if qty <= 0 || c.Inventory[itemID] < qty {
		return
	}
	c.Inventory[itemID] -= qty
	if c.Inventory[itemID] <= 0 {
		delete(c.Inventory, itemID)
	}
}

func (c *Container) Insert(itemID string, qty int) {
	if qty <= 0 {
		return
	}
	c.Inventory[itemID] += qty
}

func (c *Container) Slots() int { return c.SlotCount }

func (w *World) ensureContainer(pos Vec3i) *Container {
	c := w.containers[pos]
	if c != nil {
		return c
	}
	c = &Container{
		Pos:       pos,
		SlotCount: w.cfg.ContainerSlots,
		Inventory: map[string]int{},
	}
	w.containers[pos] = c
	return c
}

func (w *World) removeContainer(pos Vec3i) *Container {
	c := w.containers[pos]
	if c == nil {
		return nil
	}
	delete(w.containers, pos)
	return c
}

// containerBehind resolves the container backing a sign, nil when the sign
// faces no container (or has no valid facing at all).
func (w *World) containerBehind(s *Sign) *Container {
	pos, ok := s.BehindPos()
	if !ok {
		return nil
	}
	return w.containers[pos]
}
