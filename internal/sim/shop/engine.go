package shop

import (
	"fmt"

	"shopcraft.gg/internal/sim/economy"
)

// Inventory is the engine's view of an item holder: the acting player's
// inventory or the container backing a shop. Extract fails silently on
// insufficient stock, so the engine always pre-checks Count.
type Inventory interface {
	Count(itemID string) int
	Extract(itemID string, qty int)
	Insert(itemID string, qty int)
	Slots() int
}

// Engine executes buy/sell transactions. Validation happens up front and the
// inventory move lands before the paying side's ledger mutation, so no failure
// path can leave currency and items disagreeing.
type Engine struct {
	ledger *economy.Ledger

	bulkQty   int // quantity for a bulk trade (shift-click)
	stackSize int // per-slot capacity used for the container estimate
}

func NewEngine(ledger *economy.Ledger, bulkQty, stackSize int) *Engine {
	if bulkQty <= 0 {
		bulkQty = 64
	}
	if stackSize <= 0 {
		stackSize = 64
	}
	return &Engine{ledger: ledger, bulkQty: bulkQty, stackSize: stackSize}
}

// Receipt describes one completed transaction.
type Receipt struct {
	Mode    Mode
	ItemID  string
	Qty     int
	Cost    int64
	Balance int64 // actor balance after the trade
}

// Execute runs one trade of the given shop by actor. container is the shop's
// backing inventory and may be nil; admin shops never touch it, non-admin
// shops fail with ContainerMissing when it is absent.
func (e *Engine) Execute(rec Record, actor string, actorInv Inventory, container Inventory, bulk bool) (Receipt, error) {
	qty := 1
	if bulk {
		qty = e.bulkQty
	}
	cost := rec.Price * int64(qty)

	switch rec.Mode {
	case ModeBuy:
		return e.executeBuy(rec, actor, actorInv, container, qty, cost)
	case ModeSell:
		return e.executeSell(rec, actor, actorInv, container, qty, cost)
	}
	return Receipt{}, fmt.Errorf("shop %s: invalid mode %q", rec.PosKey, rec.Mode)
}

// executeBuy: actor purchases qty items from the shop for cost.
func (e *Engine) executeBuy(rec Record, actor string, actorInv, container Inventory, qty int, cost int64) (Receipt, error) {
	balance, err := e.ledger.Get(actor)
	if err != nil {
		return Receipt{}, err
	}
	if balance < cost {
		return Receipt{}, &TradeError{
			Reason:  InsufficientFunds,
			Message: fmt.Sprintf("need %d, have %d", cost, balance),
		}
	}

	if !rec.IsAdmin {
		if container == nil {
			return Receipt{}, &TradeError{Reason: ContainerMissing, Message: "shop container is missing"}
		}
		stock := container.Count(rec.ItemID)
		if stock < qty {
			return Receipt{}, &TradeError{
				Reason:  OutOfStock,
				Message: fmt.Sprintf("out of stock (only %d available)", stock),
			}
		}
		container.Extract(rec.ItemID, qty)
	}

	newBalance, err := e.ledger.Add(actor, -cost)
	if err != nil {
		return Receipt{}, err
	}
	actorInv.Insert(rec.ItemID, qty)

	return Receipt{Mode: ModeBuy, ItemID: rec.ItemID, Qty: qty, Cost: cost, Balance: newBalance}, nil
}

// executeSell: actor sells qty items to the shop for cost.
func (e *Engine) executeSell(rec Record, actor string, actorInv, container Inventory, qty int, cost int64) (Receipt, error) {
	held := actorInv.Count(rec.ItemID)
	if held < qty {
		return Receipt{}, &TradeError{
			Reason:  InsufficientItems,
			Message: fmt.Sprintf("need %dx %s, have %d", qty, rec.ItemID, held),
		}
	}

	if !rec.IsAdmin {
		if container == nil {
			return Receipt{}, &TradeError{Reason: ContainerMissing, Message: "shop container is missing"}
		}
		current := container.Count(rec.ItemID)
		capacity := container.Slots() * e.stackSize
		if current+qty > capacity {
			return Receipt{}, &TradeError{Reason: ContainerFull, Message: "shop container is full"}
		}
		container.Insert(rec.ItemID, qty)
	}

	actorInv.Extract(rec.ItemID, qty)
	newBalance, err := e.ledger.Add(actor, cost)
	if err != nil {
		return Receipt{}, err
	}

	return Receipt{Mode: ModeSell, ItemID: rec.ItemID, Qty: qty, Cost: cost, Balance: newBalance}, nil
}
