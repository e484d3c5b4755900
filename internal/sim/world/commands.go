package world

import (
	"shopcraft.gg/internal/protocol"
)

// Command types accepted on the inbox.
const (
	CmdTypeBalance    = "BALANCE"
	CmdTypePay        = "PAY"
	CmdTypeEcoGive    = "ECO_GIVE"
	CmdTypeEcoTake    = "ECO_TAKE"
	CmdTypeEcoSet     = "ECO_SET"
	CmdTypeEcoBalance = "ECO_BALANCE"

	CmdTypeShopCreate      = "SHOP_CREATE"
	CmdTypeShopCreateAdmin = "SHOP_CREATE_ADMIN"
	CmdTypeShopEdit        = "SHOP_EDIT"
	CmdTypeShopRemove      = "SHOP_REMOVE"
	CmdTypeShopInfo        = "SHOP_INFO"
	CmdTypeListMyShops     = "LIST_MY_SHOPS"
	CmdTypeListAllShops    = "LIST_ALL_SHOPS"

	CmdTypePlaceSign      = "PLACE_SIGN"
	CmdTypeBreakSign      = "BREAK_SIGN"
	CmdTypeUseShop        = "USE_SHOP"
	CmdTypePlaceContainer = "PLACE_CONTAINER"
	CmdTypeBreakContainer = "BREAK_CONTAINER"
	CmdTypeStoreNote      = "STORE_NOTE"
	CmdTypeDeposit        = "DEPOSIT"
	CmdTypeWithdraw       = "WITHDRAW"
	CmdTypeInventory      = "INVENTORY"
)

type cmdHandler func(*World, *Player, protocol.CmdReq, uint64)

var cmdDispatch = map[string]cmdHandler{
	CmdTypeBalance:    handleCmdBalance,
	CmdTypePay:        handleCmdPay,
	CmdTypeEcoGive:    handleCmdEcoGive,
	CmdTypeEcoTake:    handleCmdEcoTake,
	CmdTypeEcoSet:     handleCmdEcoSet,
	CmdTypeEcoBalance: handleCmdEcoBalance,

	CmdTypeShopCreate:      handleCmdShopCreate,
	CmdTypeShopCreateAdmin: handleCmdShopCreateAdmin,
	CmdTypeShopEdit:        handleCmdShopEdit,
	CmdTypeShopRemove:      handleCmdShopRemove,
	CmdTypeShopInfo:        handleCmdShopInfo,
	CmdTypeListMyShops:     handleCmdListMyShops,
	CmdTypeListAllShops:    handleCmdListAllShops,

	CmdTypePlaceSign:      handleCmdPlaceSign,
	CmdTypeBreakSign:      handleCmdBreakSign,
	CmdTypeUseShop:        handleCmdUseShop,
	CmdTypePlaceContainer: handleCmdPlaceContainer,
	CmdTypeBreakContainer: handleCmdBreakContainer,
	CmdTypeStoreNote:      handleCmdStoreNote,
	CmdTypeDeposit:        handleCmdDeposit,
	CmdTypeWithdraw:       handleCmdWithdraw,
	CmdTypeInventory:      handleCmdInventory,
}

func (w *World) applyCmd(p *Player, cmd protocol.CmdReq, nowTick uint64) {
	h := cmdDispatch[cmd.Type]
	if h == nil {
		p.AddEvent(actionResult(nowTick, cmd.ID, false, protocol.ErrBadRequest, "unknown command"))
		return
	}
	h(w, p, cmd, nowTick)
}

func actionResult(tick uint64, ref string, ok bool, code string, message string) protocol.Event {
	if !protocol.IsKnownCode(code) {
		code = protocol.ErrInternal
		if message == "" {
			message = "unknown error code"
		}
	}
	e := protocol.Event{
		"t":    tick,
		"type": "ACTION_RESULT",
		"ref":  ref,
		"ok":   ok,
	}
	if code != "" {
		e["code"] = code
	}
	if message != "" {
		e["message"] = message
	}
	return e
}

// failInternal reports a backing-store failure. These are not player mistakes;
// they get logged and surfaced as E_INTERNAL.
func (w *World) failInternal(p *Player, ref string, nowTick uint64, err error) {
	w.logf("store error: %v", err)
	p.AddEvent(actionResult(nowTick, ref, false, protocol.ErrInternal, "storage failure"))
}

func cmdPos(cmd protocol.CmdReq) (Vec3i, bool) {
	if cmd.Pos == nil {
		return Vec3i{}, false
	}
	return Vec3i{X: cmd.Pos[0], Y: cmd.Pos[1], Z: cmd.Pos[2]}, true
}

// ---- economy commands ----

func handleCmdBalance(w *World, p *Player, cmd protocol.CmdReq, nowTick uint64) {
	bal, err := w.ledger.Get(p.ID)
	if err != nil {
		w.failInternal(p, cmd.ID, nowTick, err)
		return
	}
	e := actionResult(nowTick, cmd.ID, true, "", "")
	e["balance"] = bal
	e["currency"] = w.cfg.Currency
	p.AddEvent(e)
}

func handleCmdPay(w *World, p *Player, cmd protocol.CmdReq, nowTick uint64) {
	if cmd.Amount <= 0 {
		p.AddEvent(actionResult(nowTick, cmd.ID, false, protocol.ErrBadRequest, "amount must be positive"))
		return
	}
	target := w.playerByRef(cmd.Target)
	if target == nil {
		p.AddEvent(actionResult(nowTick, cmd.ID, false, protocol.ErrInvalidTarget, "player not found"))
		return
	}
	if target.ID == p.ID {
		p.AddEvent(actionResult(nowTick, cmd.ID, false, protocol.ErrBadRequest, "cannot pay yourself"))
		return
	}
	bal, err := w.ledger.Get(p.ID)
	if err != nil {
		w.failInternal(p, cmd.ID, nowTick, err)
		return
	}
	if bal < cmd.Amount {
		p.AddEvent(actionResult(nowTick, cmd.ID, false, protocol.ErrInsufficientFunds, "insufficient funds"))
		return
	}
	if err := w.ledger.Transfer(p.ID, target.ID, cmd.Amount); err != nil {
		w.failInternal(p, cmd.ID, nowTick, err)
		return
	}
	w.auditEvent(nowTick, p.ID, "PAY", Vec3i{}, "", map[string]any{
		"to":     target.ID,
		"amount": cmd.Amount,
	})
	e := actionResult(nowTick, cmd.ID, true, "", "")
	e["to"] = target.ID
	e["amount"] = cmd.Amount
	p.AddEvent(e)
	target.AddEvent(protocol.Event{
		"t":      nowTick,
		"type":   "PAYMENT",
		"from":   p.ID,
		"amount": cmd.Amount,
	})
}

func requireEcoPerm(w *World, p *Player, cmd protocol.CmdReq, nowTick uint64) bool {
	if !w.hasPermission(p.ID, PermAdmin) {
		p.AddEvent(actionResult(nowTick, cmd.ID, false, protocol.ErrNoPermission, "economy commands require admin"))
		return false
	}
	return true
}

func handleCmdEcoGive(w *World, p *Player, cmd protocol.CmdReq, nowTick uint64) {
	if !requireEcoPerm(w, p, cmd, nowTick) {
		return
	}
	if cmd.Amount <= 0 {
		p.AddEvent(actionResult(nowTick, cmd.ID, false, protocol.ErrBadRequest, "amount must be positive"))
		return
	}
	target := w.playerByRef(cmd.Target)
	if target == nil {
		p.AddEvent(actionResult(nowTick, cmd.ID, false, protocol.ErrInvalidTarget, "player not found"))
		return
	}
	bal, err := w.ledger.Add(target.ID, cmd.Amount)
	if err != nil {
		w.failInternal(p, cmd.ID, nowTick, err)
		return
	}
	w.auditEvent(nowTick, p.ID, "ECO_GIVE", Vec3i{}, "", map[string]any{"to": target.ID, "amount": cmd.Amount})
	e := actionResult(nowTick, cmd.ID, true, "", "")
	e["target"] = target.ID
	e["balance"] = bal
	p.AddEvent(e)
}

func handleCmdEcoTake(w *World, p *Player, cmd protocol.CmdReq, nowTick uint64) {
	if !requireEcoPerm(w, p, cmd, nowTick) {
		return
	}
	if cmd.Amount <= 0 {
		p.AddEvent(actionResult(nowTick, cmd.ID, false, protocol.ErrBadRequest, "amount must be positive"))
		return
	}
	target := w.playerByRef(cmd.Target)
	if target == nil {
		p.AddEvent(actionResult(nowTick, cmd.ID, false, protocol.ErrInvalidTarget, "player not found"))
		return
	}
	bal, err := w.ledger.Add(target.ID, -cmd.Amount)
	if err != nil {
		w.failInternal(p, cmd.ID, nowTick, err)
		return
	}
	w.auditEvent(nowTick, p.ID, "ECO_TAKE", Vec3i{}, "", map[string]any{"from": target.ID, "amount": cmd.Amount})
	e := actionResult(nowTick, cmd.ID, true, "", "")
	e["target"] = target.ID
	e["balance"] = bal
	p.AddEvent(e)
}

func handleCmdEcoSet(w *World, p *Player, cmd protocol.CmdReq, nowTick uint64) {
	if !requireEcoPerm(w, p, cmd, nowTick) {
		return
	}
	target := w.playerByRef(cmd.Target)
	if target == nil {
		p.AddEvent(actionResult(nowTick, cmd.ID, false, protocol.ErrInvalidTarget, "player not found"))
		return
	}
	if err := w.ledger.Set(target.ID, cmd.Amount); err != nil {
		w.failInternal(p, cmd.ID, nowTick, err)
		return
	}
	bal, err := w.ledger.Get(target.ID)
	if err != nil {
		w.failInternal(p, cmd.ID, nowTick, err)
		return
	}
	w.auditEvent(nowTick, p.ID, "ECO_SET", Vec3i{}, "", map[string]any{"target": target.ID, "amount": cmd.Amount})
	e := actionResult(nowTick, cmd.ID, true, "", "")
	e["target"] = target.ID
	e["balance"] = bal
	p.AddEvent(e)
}

func handleCmdEcoBalance(w *World, p *Player, cmd protocol.CmdReq, nowTick uint64) {
	if !requireEcoPerm(w, p, cmd, nowTick) {
		return
	}
	target := w.playerByRef(cmd.Target)
	if target == nil {
		p.AddEvent(actionResult(nowTick, cmd.ID, false, protocol.ErrInvalidTarget, "player not found"))
		return
	}
	bal, err := w.ledger.Get(target.ID)
	if err != nil {
		w.failInternal(p, cmd.ID, nowTick, err)
		return
	}
	e := actionResult(nowTick, cmd.ID, true, "", "")
	e["target"] = target.ID
	e["balance"] = bal
	p.AddEvent(e)
}

// ---- listing commands ----

func handleCmdListMyShops(w *World, p *Player, cmd protocol.CmdReq, nowTick uint64) {
	all, err := w.registry.All()
	if err != nil {
		w.failInternal(p, cmd.ID, nowTick, err)
		return
	}
	shops := make([]protocol.Event, 0, 4)
	for _, key := range sortedShopKeys(all) {
		rec := all[key]
		if rec.Owner != p.ID {
			continue
		}
		shops = append(shops, shopSummary(rec))
	}
	e := actionResult(nowTick, cmd.ID, true, "", "")
	e["shops"] = shops
	p.AddEvent(e)
}

// handleCmdInventory reports the player's own items, plus a container's when
// the command addresses one by position.
func handleCmdInventory(w *World, p *Player, cmd protocol.CmdReq, nowTick uint64) {
	e := actionResult(nowTick, cmd.ID, true, "", "")
	e["items"] = p.InventoryList()
	if pos, ok := cmdPos(cmd); ok {
		c := w.containers[pos]
		if c == nil {
			p.AddEvent(actionResult(nowTick, cmd.ID, false, protocol.ErrInvalidTarget, "no container at that position"))
			return
		}
		e["container_items"] = c.InventoryList()
	}
	p.AddEvent(e)
}

func handleCmdListAllShops(w *World, p *Player, cmd protocol.CmdReq, nowTick uint64) {
	all, err := w.registry.All()
	if err != nil {
		w.failInternal(p, cmd.ID, nowTick, err)
		return
	}
	shops := make([]protocol.Event, 0, len(all))
	for _, key := range sortedShopKeys(all) {
		shops = append(shops, shopSummary(all[key]))
	}
	e := actionResult(nowTick, cmd.ID, true, "", "")
	e["shops"] = shops
	p.AddEvent(e)
}
