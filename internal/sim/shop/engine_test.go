package shop

import (
	"errors"
	"testing"

	"shopcraft.gg/internal/persistence/kvstore"
	"shopcraft.gg/internal/sim/economy"
)

// mapInv is a minimal Inventory over a plain item map.
type mapInv struct {
	items map[string]int
	slots int
}

func newMapInv(slots int) *mapInv {
	return &mapInv{items: map[string]int{}, slots: slots}
}

func (m *mapInv) Count(itemID string) int { return m.items[itemID] }

func (m *mapInv) Extract(itemID string, qty int) {
	if m.items[itemID] < qty {
		return // fails silently, like the game inventory
	}
	m.items[itemID] -= qty
	if m.items[itemID] == 0 {
		delete(m.items, itemID)
	}
}

func (m *mapInv) Insert(itemID string, qty int) { m.items[itemID] += qty }
func (m *mapInv) Slots() int                    { return m.slots }

func (m *mapInv) total() int {
	n := 0
	for _, c := range m.items {
		n += c
	}
	return n
}

func newTestEngine(t *testing.T, startingBalance int64) (*Engine, *economy.Ledger) {
	t.Helper()
	l := economy.NewLedger(kvstore.NewMemStore(), startingBalance)
	return NewEngine(l, 64, 64), l
}

func buyShop(price int64, admin bool) Record {
	return Record{Owner: "owner", IsAdmin: admin, Mode: ModeBuy, ItemID: "minecraft:diamond", Price: price, PosKey: "1,2,3"}
}

func sellShop(price int64, admin bool) Record {
	return Record{Owner: "owner", IsAdmin: admin, Mode: ModeSell, ItemID: "minecraft:diamond", Price: price, PosKey: "1,2,3"}
}

func TestEngine_BuySingle(t *testing.T) {
	e, l := newTestEngine(t, 1000)
	actorInv := newMapInv(36)
	container := newMapInv(27)
	container.items["minecraft:diamond"] = 10

	rcpt, err := e.Execute(buyShop(50, false), "actor", actorInv, container, false)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if rcpt.Qty != 1 || rcpt.Cost != 50 || rcpt.Balance != 950 {
		t.Fatalf("receipt: %+v", rcpt)
	}
	if actorInv.Count("minecraft:diamond") != 1 {
		t.Fatalf("actor inventory: %v", actorInv.items)
	}
	if container.Count("minecraft:diamond") != 9 {
		t.Fatalf("container: %v", container.items)
	}
	if v, _ := l.Get("actor"); v != 950 {
		t.Fatalf("balance: %d", v)
	}
}

func TestEngine_BuyInsufficientFundsLeavesStateUntouched(t *testing.T) {
	e, l := newTestEngine(t, 30)
	actorInv := newMapInv(36)
	container := newMapInv(27)
	container.items["minecraft:diamond"] = 10

	_, err := e.Execute(buyShop(50, false), "actor", actorInv, container, false)
	assertTradeReason(t, err, InsufficientFunds)

	if v, _ := l.Get("actor"); v != 30 {
		t.Fatalf("balance mutated: %d", v)
	}
	if actorInv.total() != 0 || container.Count("minecraft:diamond") != 10 {
		t.Fatalf("inventory mutated: actor=%v container=%v", actorInv.items, container.items)
	}
}

func TestEngine_BuyOutOfStockLeavesStateUntouched(t *testing.T) {
	e, l := newTestEngine(t, 10000)
	actorInv := newMapInv(36)
	container := newMapInv(27)
	container.items["minecraft:diamond"] = 3

	_, err := e.Execute(buyShop(50, false), "actor", actorInv, container, true) // wants 64
	assertTradeReason(t, err, OutOfStock)

	if v, _ := l.Get("actor"); v != 10000 {
		t.Fatalf("balance mutated: %d", v)
	}
	if actorInv.total() != 0 || container.Count("minecraft:diamond") != 3 {
		t.Fatalf("inventory mutated: actor=%v container=%v", actorInv.items, container.items)
	}
}

func TestEngine_BuyContainerMissing(t *testing.T) {
	e, _ := newTestEngine(t, 1000)
	_, err := e.Execute(buyShop(50, false), "actor", newMapInv(36), nil, false)
	assertTradeReason(t, err, ContainerMissing)
}

func TestEngine_AdminBuyBulkSkipsStock(t *testing.T) {
	e, l := newTestEngine(t, 1000)
	actorInv := newMapInv(36)

	rcpt, err := e.Execute(buyShop(10, true), "actor", actorInv, nil, true)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if rcpt.Qty != 64 || rcpt.Cost != 640 {
		t.Fatalf("receipt: %+v", rcpt)
	}
	if actorInv.Count("minecraft:diamond") != 64 {
		t.Fatalf("actor inventory: %v", actorInv.items)
	}
	if v, _ := l.Get("actor"); v != 360 {
		t.Fatalf("balance: %d", v)
	}
}

func TestEngine_BuyConservation(t *testing.T) {
	// Actor pays exactly qty*price; no other account changes.
	e, l := newTestEngine(t, 5000)
	if _, err := l.Get("bystander"); err != nil {
		t.Fatalf("seed bystander: %v", err)
	}
	container := newMapInv(27)
	container.items["minecraft:diamond"] = 64

	if _, err := e.Execute(buyShop(7, false), "actor", newMapInv(36), container, true); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if v, _ := l.Get("actor"); v != 5000-7*64 {
		t.Fatalf("actor balance: %d", v)
	}
	if v, _ := l.Get("bystander"); v != 5000 {
		t.Fatalf("bystander balance changed: %d", v)
	}
}

func TestEngine_SellSingle(t *testing.T) {
	e, l := newTestEngine(t, 100)
	actorInv := newMapInv(36)
	actorInv.items["minecraft:diamond"] = 5
	container := newMapInv(27)

	rcpt, err := e.Execute(sellShop(20, false), "actor", actorInv, container, false)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if rcpt.Qty != 1 || rcpt.Cost != 20 || rcpt.Balance != 120 {
		t.Fatalf("receipt: %+v", rcpt)
	}
	if actorInv.Count("minecraft:diamond") != 4 {
		t.Fatalf("actor inventory: %v", actorInv.items)
	}
	if container.Count("minecraft:diamond") != 1 {
		t.Fatalf("container: %v", container.items)
	}
	if v, _ := l.Get("actor"); v != 120 {
		t.Fatalf("balance: %d", v)
	}
}

func TestEngine_SellInsufficientItems(t *testing.T) {
	e, l := newTestEngine(t, 100)
	actorInv := newMapInv(36)
	actorInv.items["minecraft:diamond"] = 3
	container := newMapInv(27)

	_, err := e.Execute(sellShop(20, false), "actor", actorInv, container, true) // needs 64
	assertTradeReason(t, err, InsufficientItems)

	if v, _ := l.Get("actor"); v != 100 {
		t.Fatalf("balance mutated: %d", v)
	}
	if actorInv.Count("minecraft:diamond") != 3 || container.total() != 0 {
		t.Fatalf("inventory mutated: actor=%v container=%v", actorInv.items, container.items)
	}
}

func TestEngine_SellContainerMissing(t *testing.T) {
	e, _ := newTestEngine(t, 100)
	actorInv := newMapInv(36)
	actorInv.items["minecraft:diamond"] = 5
	_, err := e.Execute(sellShop(20, false), "actor", actorInv, nil, false)
	assertTradeReason(t, err, ContainerMissing)
	if actorInv.Count("minecraft:diamond") != 5 {
		t.Fatalf("inventory mutated: %v", actorInv.items)
	}
}

func TestEngine_SellContainerFull(t *testing.T) {
	e, l := newTestEngine(t, 100)
	actorInv := newMapInv(36)
	actorInv.items["minecraft:diamond"] = 64
	// 1 slot x 64 stack = capacity 64, already holding 10.
	container := newMapInv(1)
	container.items["minecraft:diamond"] = 10

	_, err := e.Execute(sellShop(20, false), "actor", actorInv, container, true)
	assertTradeReason(t, err, ContainerFull)

	if v, _ := l.Get("actor"); v != 100 {
		t.Fatalf("balance mutated: %d", v)
	}
	if actorInv.Count("minecraft:diamond") != 64 || container.Count("minecraft:diamond") != 10 {
		t.Fatalf("inventory mutated: actor=%v container=%v", actorInv.items, container.items)
	}
}

func TestEngine_AdminSellSkipsContainer(t *testing.T) {
	e, l := newTestEngine(t, 0)
	actorInv := newMapInv(36)
	actorInv.items["minecraft:diamond"] = 64

	rcpt, err := e.Execute(sellShop(5, true), "actor", actorInv, nil, true)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if rcpt.Cost != 320 {
		t.Fatalf("receipt: %+v", rcpt)
	}
	if actorInv.Count("minecraft:diamond") != 0 {
		t.Fatalf("actor inventory: %v", actorInv.items)
	}
	if v, _ := l.Get("actor"); v != 320 {
		t.Fatalf("balance: %d", v)
	}
}

func assertTradeReason(t *testing.T, err error, want TradeReason) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	var te *TradeError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TradeError, got %T: %v", err, err)
	}
	if te.Reason != want {
		t.Fatalf("expected reason %s, got %s (%v)", want, te.Reason, te)
	}
}
