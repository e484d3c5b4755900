package world

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"shopcraft.gg/internal/protocol"
	"shopcraft.gg/internal/sim/shop"
)

func posKeyOf(pos Vec3i) string { return shop.PosKey(pos.X, pos.Y, pos.Z) }

func shopSummary(rec shop.Record) protocol.Event {
	return protocol.Event{
		"pos_key":  rec.PosKey,
		"mode":     string(rec.Mode),
		"item":     rec.ItemID,
		"price":    rec.Price,
		"is_admin": rec.IsAdmin,
	}
}

func sortedShopKeys(all map[string]shop.Record) []string {
	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ---- arming ----

func handleCmdShopCreate(w *World, p *Player, cmd protocol.CmdReq, nowTick uint64) {
	p.Arm = ArmedPlayer
	e := actionResult(nowTick, cmd.ID, true, "", "place a sign on a container to create the shop")
	e["armed"] = "player"
	p.AddEvent(e)
}

func handleCmdShopCreateAdmin(w *World, p *Player, cmd protocol.CmdReq, nowTick uint64) {
	if !w.hasPermission(p.ID, PermAdmin) {
		p.AddEvent(actionResult(nowTick, cmd.ID, false, protocol.ErrNoPermission, "admin shops require admin"))
		return
	}
	p.Arm = ArmedAdmin
	e := actionResult(nowTick, cmd.ID, true, "", "place a sign to create the admin shop")
	e["armed"] = "admin"
	p.AddEvent(e)
}

// ---- placement ----

func handleCmdPlaceSign(w *World, p *Player, cmd protocol.CmdReq, nowTick uint64) {
	pos, ok := cmdPos(cmd)
	if !ok {
		p.AddEvent(actionResult(nowTick, cmd.ID, false, protocol.ErrBadRequest, "missing pos"))
		return
	}
	if len(cmd.Text) > w.cfg.SignTextLimit {
		p.AddEvent(actionResult(nowTick, cmd.ID, false, protocol.ErrBadRequest, "text too large"))
		return
	}

	s := w.ensureSign(pos, cmd.Facing)
	setSignText(s, cmd.Text, p.ID, nowTick)

	// The armed flag is consumed by this placement no matter what happens
	// next; a failed creation must not leave the player stuck armed.
	arm := p.Arm
	p.Arm = Unarmed
	if arm == Unarmed {
		p.AddEvent(actionResult(nowTick, cmd.ID, true, "", "sign placed"))
		return
	}
	w.createShopAt(p, s, arm == ArmedAdmin, cmd.ID, nowTick)
}

func setSignText(s *Sign, text, by string, nowTick uint64) {
	var lines [4]string
	for i, l := range strings.SplitN(text, "\n", 4) {
		lines[i] = l
	}
	s.Lines = lines
	s.UpdatedBy = by
	s.UpdatedTick = nowTick
}

// createShopAt runs the creation flow for an armed placement: resolve the
// backing container, resolve the configuration source, parse, register.
func (w *World) createShopAt(p *Player, s *Sign, isAdmin bool, ref string, nowTick uint64) {
	if isAdmin && !w.hasPermission(p.ID, PermAdmin) {
		p.AddEvent(actionResult(nowTick, ref, false, protocol.ErrNoPermission, "admin shops require admin"))
		return
	}

	container := w.containerBehind(s)
	if container == nil && !isAdmin {
		p.AddEvent(actionResult(nowTick, ref, false, protocol.ErrContainerMissing, "sign must be placed on a container"))
		return
	}

	raw, noteAuthor, ok := resolveShopConfig(s, container, isAdmin)
	if !ok {
		p.AddEvent(actionResult(nowTick, ref, false, protocol.ErrMissingConfig, "no configuration note or sign text found"))
		return
	}

	cfg, err := shop.Parse(raw, shop.ParseContext{
		AuthorID:   p.ID,
		IsAdmin:    isAdmin,
		NoteAuthor: noteAuthor,
	})
	if err != nil {
		w.reportParseError(p, ref, nowTick, err)
		return
	}

	key := posKeyOf(s.Pos)
	rec, err := shop.NewRecord(p.ID, isAdmin, cfg, key)
	if err != nil {
		p.AddEvent(actionResult(nowTick, ref, false, protocol.ErrBadRequest, err.Error()))
		return
	}
	if err := w.registry.Register(key, rec); err != nil {
		w.failInternal(p, ref, nowTick, err)
		return
	}

	w.writeShopSign(s, rec, nowTick)
	w.auditEvent(nowTick, p.ID, "SHOP_CREATE", s.Pos, "", map[string]any{
		"pos_key":  key,
		"mode":     string(rec.Mode),
		"item":     rec.ItemID,
		"price":    rec.Price,
		"is_admin": rec.IsAdmin,
	})

	e := actionResult(nowTick, ref, true, "", "shop created")
	e["shop"] = shopSummary(rec)
	p.AddEvent(e)
}

// resolveShopConfig picks the configuration source: a note from the backing
// container wins over the sign's own text. Regular shops only accept signed
// notes; the sign-text fallback carries no author identity.
func resolveShopConfig(s *Sign, container *Container, isAdmin bool) (raw, noteAuthor string, ok bool) {
	if container != nil {
		if note, found := container.firstNote(isAdmin); found {
			return note.Text, note.Author, true
		}
	}
	if text := strings.TrimSpace(s.Text()); text != "" {
		return s.Text(), "", true
	}
	return "", "", false
}

func (w *World) reportParseError(p *Player, ref string, nowTick uint64, err error) {
	var pe *shop.ParseError
	if errors.As(err, &pe) {
		p.AddEvent(actionResult(nowTick, ref, false, pe.Code(), pe.Message))
		return
	}
	p.AddEvent(actionResult(nowTick, ref, false, protocol.ErrBadRequest, err.Error()))
}

// writeShopSign rewrites the sign display to the canonical shop lines.
func (w *World) writeShopSign(s *Sign, rec shop.Record, nowTick uint64) {
	s.Lines = [4]string{
		string(rec.Mode),
		shop.DisplayName(rec.ItemID),
		fmt.Sprintf("%s%d", w.cfg.Currency, rec.Price),
		"[Click]",
	}
	s.UpdatedTick = nowTick
}

// ---- edit / remove / info ----

// canManageShop: owner or shops.admin.
func (w *World) canManageShop(p *Player, rec shop.Record) bool {
	return rec.Owner == p.ID || w.hasPermission(p.ID, PermAdmin)
}

func (w *World) lookupShopCmd(p *Player, cmd protocol.CmdReq, nowTick uint64) (shop.Record, Vec3i, bool) {
	pos, ok := cmdPos(cmd)
	if !ok {
		p.AddEvent(actionResult(nowTick, cmd.ID, false, protocol.ErrBadRequest, "missing pos"))
		return shop.Record{}, Vec3i{}, false
	}
	rec, found, err := w.registry.Lookup(posKeyOf(pos))
	if err != nil {
		w.failInternal(p, cmd.ID, nowTick, err)
		return shop.Record{}, Vec3i{}, false
	}
	if !found {
		p.AddEvent(actionResult(nowTick, cmd.ID, false, protocol.ErrInvalidTarget, "no shop at that position"))
		return shop.Record{}, Vec3i{}, false
	}
	return rec, pos, true
}

func handleCmdShopEdit(w *World, p *Player, cmd protocol.CmdReq, nowTick uint64) {
	rec, pos, ok := w.lookupShopCmd(p, cmd, nowTick)
	if !ok {
		return
	}
	if !w.canManageShop(p, rec) {
		p.AddEvent(actionResult(nowTick, cmd.ID, false, protocol.ErrNotOwner, "you do not own this shop"))
		return
	}

	cfg, err := shop.Parse(cmd.Text, shop.ParseContext{AuthorID: p.ID, IsAdmin: rec.IsAdmin})
	if err != nil {
		w.reportParseError(p, cmd.ID, nowTick, err)
		return
	}

	// Owner, IsAdmin and PosKey are carried forward; only the trade terms change.
	rec.Mode = cfg.Mode
	rec.ItemID = cfg.ItemID
	rec.Price = cfg.Price
	if err := w.registry.Update(rec.PosKey, rec); err != nil {
		w.failInternal(p, cmd.ID, nowTick, err)
		return
	}

	if s := w.signs[pos]; s != nil {
		w.writeShopSign(s, rec, nowTick)
	}
	w.auditEvent(nowTick, p.ID, "SHOP_EDIT", pos, "", map[string]any{
		"pos_key": rec.PosKey,
		"mode":    string(rec.Mode),
		"item":    rec.ItemID,
		"price":   rec.Price,
	})

	e := actionResult(nowTick, cmd.ID, true, "", "shop updated")
	e["shop"] = shopSummary(rec)
	p.AddEvent(e)
}

func handleCmdShopRemove(w *World, p *Player, cmd protocol.CmdReq, nowTick uint64) {
	rec, pos, ok := w.lookupShopCmd(p, cmd, nowTick)
	if !ok {
		return
	}
	if !w.canManageShop(p, rec) {
		p.AddEvent(actionResult(nowTick, cmd.ID, false, protocol.ErrNotOwner, "you do not own this shop"))
		return
	}
	if err := w.registry.Delete(rec.PosKey); err != nil {
		w.failInternal(p, cmd.ID, nowTick, err)
		return
	}
	if s := w.signs[pos]; s != nil {
		s.Lines = [4]string{}
		s.UpdatedTick = nowTick
	}
	w.auditEvent(nowTick, p.ID, "SHOP_REMOVE", pos, "", map[string]any{"pos_key": rec.PosKey})
	p.AddEvent(actionResult(nowTick, cmd.ID, true, "", "shop removed"))
}

func handleCmdShopInfo(w *World, p *Player, cmd protocol.CmdReq, nowTick uint64) {
	rec, _, ok := w.lookupShopCmd(p, cmd, nowTick)
	if !ok {
		return
	}
	e := actionResult(nowTick, cmd.ID, true, "", "")
	e["shop"] = shopSummary(rec)
	e["owner"] = rec.Owner
	p.AddEvent(e)
}

// ---- sign break ----

func handleCmdBreakSign(w *World, p *Player, cmd protocol.CmdReq, nowTick uint64) {
	pos, ok := cmdPos(cmd)
	if !ok {
		p.AddEvent(actionResult(nowTick, cmd.ID, false, protocol.ErrBadRequest, "missing pos"))
		return
	}
	if w.signs[pos] == nil {
		p.AddEvent(actionResult(nowTick, cmd.ID, false, protocol.ErrInvalidTarget, "no sign at that position"))
		return
	}

	key := posKeyOf(pos)
	rec, found, err := w.registry.Lookup(key)
	if err != nil {
		w.failInternal(p, cmd.ID, nowTick, err)
		return
	}
	if found {
		if !w.canManageShop(p, rec) {
			p.AddEvent(actionResult(nowTick, cmd.ID, false, protocol.ErrNotOwner, "you do not own this shop"))
			return
		}
		if err := w.registry.Delete(key); err != nil {
			w.failInternal(p, cmd.ID, nowTick, err)
			return
		}
		w.auditEvent(nowTick, p.ID, "SHOP_REMOVE", pos, "sign broken", map[string]any{"pos_key": key})
		if owner := w.players[rec.Owner]; owner != nil && owner.ID != p.ID {
			owner.AddEvent(protocol.Event{
				"t":       nowTick,
				"type":    "SHOP_REMOVED",
				"pos_key": key,
				"by":      p.ID,
			})
		}
	}
	w.removeSign(pos)
	p.AddEvent(actionResult(nowTick, cmd.ID, true, "", "sign removed"))
}

// ---- trading ----

func handleCmdUseShop(w *World, p *Player, cmd protocol.CmdReq, nowTick uint64) {
	rec, pos, ok := w.lookupShopCmd(p, cmd, nowTick)
	if !ok {
		return
	}
	if rec.IsAdmin && !w.hasPermission(p.ID, PermUse) {
		p.AddEvent(actionResult(nowTick, cmd.ID, false, protocol.ErrNoPermission, "admin shops require shops.use"))
		return
	}

	var container *Container
	if s := w.signs[pos]; s != nil {
		container = w.containerBehind(s)
	}

	var containerInv shop.Inventory
	if container != nil {
		containerInv = container
	}
	rcpt, err := w.engine.Execute(rec, p.ID, p, containerInv, cmd.Bulk)
	if err != nil {
		var te *shop.TradeError
		if errors.As(err, &te) {
			p.AddEvent(actionResult(nowTick, cmd.ID, false, te.Code(), te.Message))
			return
		}
		w.failInternal(p, cmd.ID, nowTick, err)
		return
	}

	action := "TRADE_BUY"
	if rcpt.Mode == shop.ModeSell {
		action = "TRADE_SELL"
	}
	w.auditEvent(nowTick, p.ID, action, pos, "", map[string]any{
		"pos_key": rec.PosKey,
		"owner":   rec.Owner,
		"item":    rcpt.ItemID,
		"qty":     rcpt.Qty,
		"cost":    rcpt.Cost,
	})

	e := actionResult(nowTick, cmd.ID, true, "", "")
	e["mode"] = string(rcpt.Mode)
	e["item"] = rcpt.ItemID
	e["qty"] = rcpt.Qty
	e["cost"] = rcpt.Cost
	e["balance"] = rcpt.Balance
	p.AddEvent(e)
}

// ---- container glue ----

func handleCmdPlaceContainer(w *World, p *Player, cmd protocol.CmdReq, nowTick uint64) {
	pos, ok := cmdPos(cmd)
	if !ok {
		p.AddEvent(actionResult(nowTick, cmd.ID, false, protocol.ErrBadRequest, "missing pos"))
		return
	}
	w.ensureContainer(pos)
	p.AddEvent(actionResult(nowTick, cmd.ID, true, "", "container placed"))
}

// handleCmdBreakContainer removes a container; its contents go to the
// breaking player. A shop sign mounted on it keeps its record and simply
// fails ContainerMissing until a container is placed back.
func handleCmdBreakContainer(w *World, p *Player, cmd protocol.CmdReq, nowTick uint64) {
	pos, ok := cmdPos(cmd)
	if !ok {
		p.AddEvent(actionResult(nowTick, cmd.ID, false, protocol.ErrBadRequest, "missing pos"))
		return
	}
	c := w.removeContainer(pos)
	if c == nil {
		p.AddEvent(actionResult(nowTick, cmd.ID, false, protocol.ErrInvalidTarget, "no container at that position"))
		return
	}
	for item, n := range c.Inventory {
		p.Insert(item, n)
	}
	p.AddEvent(actionResult(nowTick, cmd.ID, true, "", "container removed"))
}

func handleCmdStoreNote(w *World, p *Player, cmd protocol.CmdReq, nowTick uint64) {
	pos, ok := cmdPos(cmd)
	if !ok {
		p.AddEvent(actionResult(nowTick, cmd.ID, false, protocol.ErrBadRequest, "missing pos"))
		return
	}
	c := w.containers[pos]
	if c == nil {
		p.AddEvent(actionResult(nowTick, cmd.ID, false, protocol.ErrInvalidTarget, "no container at that position"))
		return
	}
	if strings.TrimSpace(cmd.Text) == "" {
		p.AddEvent(actionResult(nowTick, cmd.ID, false, protocol.ErrBadRequest, "empty note"))
		return
	}
	note := Note{Text: cmd.Text}
	if cmd.Signed {
		note.Author = p.ID
	}
	c.Notes = append(c.Notes, note)
	p.AddEvent(actionResult(nowTick, cmd.ID, true, "", "note stored"))
}

func handleCmdDeposit(w *World, p *Player, cmd protocol.CmdReq, nowTick uint64) {
	pos, ok := cmdPos(cmd)
	if !ok {
		p.AddEvent(actionResult(nowTick, cmd.ID, false, protocol.ErrBadRequest, "missing pos"))
		return
	}
	c := w.containers[pos]
	if c == nil {
		p.AddEvent(actionResult(nowTick, cmd.ID, false, protocol.ErrInvalidTarget, "no container at that position"))
		return
	}
	if cmd.Item == "" || cmd.Qty <= 0 {
		p.AddEvent(actionResult(nowTick, cmd.ID, false, protocol.ErrBadRequest, "item and positive qty required"))
		return
	}
	if p.Count(cmd.Item) < cmd.Qty {
		p.AddEvent(actionResult(nowTick, cmd.ID, false, protocol.ErrInsufficientItems, "you do not have that many"))
		return
	}
	p.Extract(cmd.Item, cmd.Qty)
	c.Insert(cmd.Item, cmd.Qty)
	p.AddEvent(actionResult(nowTick, cmd.ID, true, "", "deposited"))
}

func handleCmdWithdraw(w *World, p *Player, cmd protocol.CmdReq, nowTick uint64) {
	pos, ok := cmdPos(cmd)
	if !ok {
		p.AddEvent(actionResult(nowTick, cmd.ID, false, protocol.ErrBadRequest, "missing pos"))
		return
	}
	c := w.containers[pos]
	if c == nil {
		p.AddEvent(actionResult(nowTick, cmd.ID, false, protocol.ErrInvalidTarget, "no container at that position"))
		return
	}
	if cmd.Item == "" || cmd.Qty <= 0 {
		p.AddEvent(actionResult(nowTick, cmd.ID, false, protocol.ErrBadRequest, "item and positive qty required"))
		return
	}
	if c.Count(cmd.Item) < cmd.Qty {
		p.AddEvent(actionResult(nowTick, cmd.ID, false, protocol.ErrInsufficientItems, "container does not hold that many"))
		return
	}
	c.Extract(cmd.Item, cmd.Qty)
	p.Insert(cmd.Item, cmd.Qty)
	p.AddEvent(actionResult(nowTick, cmd.ID, true, "", "withdrawn"))
}
