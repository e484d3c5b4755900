package world

import (
	"context"
	"fmt"
	"testing"
	"time"

	"shopcraft.gg/internal/persistence/kvstore"
	"shopcraft.gg/internal/protocol"
	"shopcraft.gg/internal/sim/economy"
	"shopcraft.gg/internal/sim/shop"
)

func newTestWorld(t *testing.T, cfg WorldConfig) *World {
	t.Helper()
	store := kvstore.NewMemStore()
	ledger := economy.NewLedger(store, cfg.StartingBalance)
	registry := shop.NewRegistry(store)
	engine := shop.NewEngine(ledger, cfg.BulkQty, cfg.StackSize)
	perms := NewStaticPermissions(cfg.Operators, cfg.Grants)
	w, err := New(cfg, ledger, registry, engine, perms)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return w
}

func defaultTestConfig() WorldConfig {
	return WorldConfig{
		ID:              "w_test",
		Currency:        "$",
		StartingBalance: 1000,
	}
}

func addPlayer(w *World, id, name string) *Player {
	p := &Player{ID: id, Name: name, Inventory: map[string]int{}, slots: w.cfg.PlayerSlots}
	w.players[id] = p
	w.byName[name] = p.ID
	return p
}

var cmdSeq int

func cmd(cmdType string, mut func(*protocol.CmdReq)) protocol.CmdReq {
	cmdSeq++
	c := protocol.CmdReq{ID: fmt.Sprintf("C%d", cmdSeq), Type: cmdType}
	if mut != nil {
		mut(&c)
	}
	return c
}

// lastResult drains the player's events and returns the final ACTION_RESULT.
func lastResult(t *testing.T, p *Player) protocol.Event {
	t.Helper()
	var last protocol.Event
	for _, e := range p.TakeEvents() {
		if e["type"] == "ACTION_RESULT" {
			last = e
		}
	}
	if last == nil {
		t.Fatalf("no ACTION_RESULT event for %s", p.ID)
	}
	return last
}

func wantOK(t *testing.T, e protocol.Event) {
	t.Helper()
	if e["ok"] != true {
		t.Fatalf("expected ok result, got %v", e)
	}
}

func wantCode(t *testing.T, e protocol.Event, code string) {
	t.Helper()
	if e["ok"] != false {
		t.Fatalf("expected failure %s, got %v", code, e)
	}
	if e["code"] != code {
		t.Fatalf("expected code %s, got %v", code, e)
	}
}

func mustBalance(t *testing.T, w *World, account string) int64 {
	t.Helper()
	bal, err := w.ledger.Get(account)
	if err != nil {
		t.Fatalf("ledger.Get(%s): %v", account, err)
	}
	return bal
}

// createShop drives the full creation flow: arm, place a container with a
// signed note, place the sign on it.
func createShop(t *testing.T, w *World, p *Player, signPos Vec3i, config string) shop.Record {
	t.Helper()
	contPos := signPos.Add(Vec3i{Z: 1}) // north-facing sign mounts on z+1

	w.applyCmd(p, cmd(CmdTypePlaceContainer, func(c *protocol.CmdReq) {
		arr := contPos.ToArray()
		c.Pos = &arr
	}), 1)
	w.applyCmd(p, cmd(CmdTypeStoreNote, func(c *protocol.CmdReq) {
		arr := contPos.ToArray()
		c.Pos = &arr
		c.Text = config
		c.Signed = true
	}), 1)
	w.applyCmd(p, cmd(CmdTypeShopCreate, nil), 1)
	w.applyCmd(p, cmd(CmdTypePlaceSign, func(c *protocol.CmdReq) {
		arr := signPos.ToArray()
		c.Pos = &arr
		c.Facing = "north"
	}), 1)
	res := lastResult(t, p)
	wantOK(t, res)

	rec, found, err := w.registry.Lookup(posKeyOf(signPos))
	if err != nil || !found {
		t.Fatalf("shop not registered: found=%v err=%v", found, err)
	}
	return rec
}

func TestPayTransfersBetweenPlayers(t *testing.T) {
	w := newTestWorld(t, defaultTestConfig())
	alice := addPlayer(w, "a1", "alice")
	bob := addPlayer(w, "b1", "bob")

	w.applyCmd(alice, cmd(CmdTypePay, func(c *protocol.CmdReq) {
		c.Target = "bob"
		c.Amount = 250
	}), 5)
	wantOK(t, lastResult(t, alice))

	if got := mustBalance(t, w, alice.ID); got != 750 {
		t.Fatalf("alice balance = %d, want 750", got)
	}
	if got := mustBalance(t, w, bob.ID); got != 1250 {
		t.Fatalf("bob balance = %d, want 1250", got)
	}
	var paid bool
	for _, e := range bob.TakeEvents() {
		if e["type"] == "PAYMENT" && e["from"] == alice.ID {
			paid = true
		}
	}
	if !paid {
		t.Fatalf("bob did not receive PAYMENT event")
	}
}

func TestPayRejectsNonPositiveAmountBeforeAnyMutation(t *testing.T) {
	w := newTestWorld(t, defaultTestConfig())
	alice := addPlayer(w, "a1", "alice")
	bob := addPlayer(w, "b1", "bob")

	for _, amount := range []int64{0, -5} {
		w.applyCmd(alice, cmd(CmdTypePay, func(c *protocol.CmdReq) {
			c.Target = "bob"
			c.Amount = amount
		}), 5)
		wantCode(t, lastResult(t, alice), protocol.ErrBadRequest)
	}
	if got := mustBalance(t, w, alice.ID); got != 1000 {
		t.Fatalf("alice balance mutated: %d", got)
	}
	if got := mustBalance(t, w, bob.ID); got != 1000 {
		t.Fatalf("bob balance mutated: %d", got)
	}
}

func TestPayInsufficientFunds(t *testing.T) {
	w := newTestWorld(t, defaultTestConfig())
	alice := addPlayer(w, "a1", "alice")
	addPlayer(w, "b1", "bob")

	w.applyCmd(alice, cmd(CmdTypePay, func(c *protocol.CmdReq) {
		c.Target = "bob"
		c.Amount = 2000
	}), 5)
	wantCode(t, lastResult(t, alice), protocol.ErrInsufficientFunds)
	if got := mustBalance(t, w, alice.ID); got != 1000 {
		t.Fatalf("alice balance mutated: %d", got)
	}
}

func TestEcoCommandsRequireAdmin(t *testing.T) {
	cfg := defaultTestConfig()
	cfg.Operators = []string{"op1"}
	w := newTestWorld(t, cfg)
	op := addPlayer(w, "op1", "op")
	alice := addPlayer(w, "a1", "alice")

	w.applyCmd(alice, cmd(CmdTypeEcoGive, func(c *protocol.CmdReq) {
		c.Target = "alice"
		c.Amount = 100
	}), 1)
	wantCode(t, lastResult(t, alice), protocol.ErrNoPermission)

	w.applyCmd(op, cmd(CmdTypeEcoGive, func(c *protocol.CmdReq) {
		c.Target = "alice"
		c.Amount = 100
	}), 1)
	wantOK(t, lastResult(t, op))
	if got := mustBalance(t, w, alice.ID); got != 1100 {
		t.Fatalf("alice balance = %d, want 1100", got)
	}

	// eco take clamps at zero instead of rejecting.
	w.applyCmd(op, cmd(CmdTypeEcoTake, func(c *protocol.CmdReq) {
		c.Target = "alice"
		c.Amount = 5000
	}), 1)
	wantOK(t, lastResult(t, op))
	if got := mustBalance(t, w, alice.ID); got != 0 {
		t.Fatalf("alice balance = %d, want 0", got)
	}

	w.applyCmd(op, cmd(CmdTypeEcoSet, func(c *protocol.CmdReq) {
		c.Target = "alice"
		c.Amount = 42
	}), 1)
	wantOK(t, lastResult(t, op))
	if got := mustBalance(t, w, alice.ID); got != 42 {
		t.Fatalf("alice balance = %d, want 42", got)
	}
}

func TestShopCreateFromSignedNote(t *testing.T) {
	w := newTestWorld(t, defaultTestConfig())
	alice := addPlayer(w, "a1", "alice")

	rec := createShop(t, w, alice, Vec3i{X: 4, Y: 64, Z: 9}, "BUY\nminecraft:diamond\n10")
	if rec.Owner != alice.ID || rec.Mode != shop.ModeBuy || rec.ItemID != "minecraft:diamond" || rec.Price != 10 {
		t.Fatalf("record = %+v", rec)
	}
	if rec.IsAdmin {
		t.Fatalf("player shop marked admin")
	}

	// Sign display rewritten to the canonical lines.
	s := w.signs[Vec3i{X: 4, Y: 64, Z: 9}]
	if s == nil {
		t.Fatalf("sign missing")
	}
	want := [4]string{"BUY", "Diamond", "$10", "[Click]"}
	if s.Lines != want {
		t.Fatalf("sign lines = %v, want %v", s.Lines, want)
	}
}

func TestShopCreateConsumesArmOnFailure(t *testing.T) {
	w := newTestWorld(t, defaultTestConfig())
	alice := addPlayer(w, "a1", "alice")

	w.applyCmd(alice, cmd(CmdTypeShopCreate, nil), 1)
	if alice.Arm != ArmedPlayer {
		t.Fatalf("arm = %v, want armed", alice.Arm)
	}

	// Sign placed with no container behind it: creation fails, arm consumed.
	w.applyCmd(alice, cmd(CmdTypePlaceSign, func(c *protocol.CmdReq) {
		arr := [3]int{0, 64, 0}
		c.Pos = &arr
		c.Facing = "north"
	}), 2)
	wantCode(t, lastResult(t, alice), protocol.ErrContainerMissing)
	if alice.Arm != Unarmed {
		t.Fatalf("arm not consumed on failure")
	}
	if _, found, _ := w.registry.Lookup(posKeyOf(Vec3i{Y: 64})); found {
		t.Fatalf("failed creation registered a shop")
	}
}

func TestShopCreateRejectsForeignSignedNote(t *testing.T) {
	w := newTestWorld(t, defaultTestConfig())
	alice := addPlayer(w, "a1", "alice")
	mallory := addPlayer(w, "m1", "mallory")

	signPos := Vec3i{X: 1, Y: 64, Z: 1}
	contPos := signPos.Add(Vec3i{Z: 1})
	arr := contPos.ToArray()

	w.applyCmd(alice, cmd(CmdTypePlaceContainer, func(c *protocol.CmdReq) { c.Pos = &arr }), 1)
	w.applyCmd(alice, cmd(CmdTypeStoreNote, func(c *protocol.CmdReq) {
		c.Pos = &arr
		c.Text = "BUY\nminecraft:diamond\n10"
		c.Signed = true
	}), 1)

	// Mallory tries to create a shop off Alice's signed configuration.
	w.applyCmd(mallory, cmd(CmdTypeShopCreate, nil), 2)
	w.applyCmd(mallory, cmd(CmdTypePlaceSign, func(c *protocol.CmdReq) {
		sp := signPos.ToArray()
		c.Pos = &sp
		c.Facing = "north"
	}), 2)
	wantCode(t, lastResult(t, mallory), protocol.ErrAuthorMismatch)
	if _, found, _ := w.registry.Lookup(posKeyOf(signPos)); found {
		t.Fatalf("author-mismatched creation registered a shop")
	}
}

func TestShopCreateInvalidConfigCodes(t *testing.T) {
	cases := []struct {
		name   string
		config string
		code   string
	}{
		{"bad mode", "TRADE\nminecraft:diamond\n10", protocol.ErrInvalidMode},
		{"bad price", "BUY\nminecraft:diamond\nfree", protocol.ErrInvalidPrice},
		{"zero price", "BUY\nminecraft:diamond\n0", protocol.ErrInvalidPrice},
		{"missing lines", "BUY\nminecraft:diamond", protocol.ErrMissingConfig},
	}
	for i, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := newTestWorld(t, defaultTestConfig())
			alice := addPlayer(w, "a1", "alice")
			signPos := Vec3i{X: i, Y: 64, Z: 0}
			contPos := signPos.Add(Vec3i{Z: 1})
			arr := contPos.ToArray()

			w.applyCmd(alice, cmd(CmdTypePlaceContainer, func(c *protocol.CmdReq) { c.Pos = &arr }), 1)
			w.applyCmd(alice, cmd(CmdTypeStoreNote, func(c *protocol.CmdReq) {
				c.Pos = &arr
				c.Text = tc.config
				c.Signed = true
			}), 1)
			w.applyCmd(alice, cmd(CmdTypeShopCreate, nil), 1)
			w.applyCmd(alice, cmd(CmdTypePlaceSign, func(c *protocol.CmdReq) {
				sp := signPos.ToArray()
				c.Pos = &sp
				c.Facing = "north"
			}), 1)
			wantCode(t, lastResult(t, alice), tc.code)
		})
	}
}

func TestUseShopBuySingleAndBulk(t *testing.T) {
	w := newTestWorld(t, defaultTestConfig())
	alice := addPlayer(w, "a1", "alice")
	bob := addPlayer(w, "b1", "bob")

	signPos := Vec3i{X: 4, Y: 64, Z: 9}
	createShop(t, w, alice, signPos, "BUY\nminecraft:diamond\n10")

	cont := w.containers[signPos.Add(Vec3i{Z: 1})]
	cont.Insert("minecraft:diamond", 100)

	sp := signPos.ToArray()
	w.applyCmd(bob, cmd(CmdTypeUseShop, func(c *protocol.CmdReq) { c.Pos = &sp }), 10)
	res := lastResult(t, bob)
	wantOK(t, res)
	if res["qty"] != 1 || res["cost"] != int64(10) {
		t.Fatalf("single buy receipt: %v", res)
	}
	if bob.Count("minecraft:diamond") != 1 {
		t.Fatalf("bob items = %d, want 1", bob.Count("minecraft:diamond"))
	}
	if got := mustBalance(t, w, bob.ID); got != 990 {
		t.Fatalf("bob balance = %d, want 990", got)
	}

	w.applyCmd(bob, cmd(CmdTypeUseShop, func(c *protocol.CmdReq) {
		c.Pos = &sp
		c.Bulk = true
	}), 11)
	res = lastResult(t, bob)
	wantOK(t, res)
	if res["qty"] != 64 || res["cost"] != int64(640) {
		t.Fatalf("bulk buy receipt: %v", res)
	}
	if bob.Count("minecraft:diamond") != 65 {
		t.Fatalf("bob items = %d, want 65", bob.Count("minecraft:diamond"))
	}
	if cont.Count("minecraft:diamond") != 35 {
		t.Fatalf("container items = %d, want 35", cont.Count("minecraft:diamond"))
	}
}

func TestUseShopBuyOutOfStockLeavesStateUntouched(t *testing.T) {
	w := newTestWorld(t, defaultTestConfig())
	alice := addPlayer(w, "a1", "alice")
	bob := addPlayer(w, "b1", "bob")

	signPos := Vec3i{X: 4, Y: 64, Z: 9}
	createShop(t, w, alice, signPos, "BUY\nminecraft:diamond\n10")

	sp := signPos.ToArray()
	w.applyCmd(bob, cmd(CmdTypeUseShop, func(c *protocol.CmdReq) { c.Pos = &sp }), 10)
	wantCode(t, lastResult(t, bob), protocol.ErrOutOfStock)
	if got := mustBalance(t, w, bob.ID); got != 1000 {
		t.Fatalf("bob balance mutated: %d", got)
	}
	if bob.Count("minecraft:diamond") != 0 {
		t.Fatalf("bob received items on failed trade")
	}
}

func TestUseShopSellFlow(t *testing.T) {
	w := newTestWorld(t, defaultTestConfig())
	alice := addPlayer(w, "a1", "alice")
	bob := addPlayer(w, "b1", "bob")

	signPos := Vec3i{X: 2, Y: 64, Z: 2}
	createShop(t, w, alice, signPos, "SELL\nminecraft:iron_ingot\n3")

	bob.Insert("minecraft:iron_ingot", 5)

	sp := signPos.ToArray()
	w.applyCmd(bob, cmd(CmdTypeUseShop, func(c *protocol.CmdReq) { c.Pos = &sp }), 10)
	wantOK(t, lastResult(t, bob))

	if bob.Count("minecraft:iron_ingot") != 4 {
		t.Fatalf("bob items = %d, want 4", bob.Count("minecraft:iron_ingot"))
	}
	cont := w.containers[signPos.Add(Vec3i{Z: 1})]
	if cont.Count("minecraft:iron_ingot") != 1 {
		t.Fatalf("container items = %d, want 1", cont.Count("minecraft:iron_ingot"))
	}
	if got := mustBalance(t, w, bob.ID); got != 1003 {
		t.Fatalf("bob balance = %d, want 1003", got)
	}
}

func TestAdminShopSkipsContainerAndUsePermission(t *testing.T) {
	cfg := defaultTestConfig()
	cfg.Operators = []string{"op1"}
	cfg.Grants = map[string][]string{"b1": {PermUse}}
	w := newTestWorld(t, cfg)
	op := addPlayer(w, "op1", "op")
	bob := addPlayer(w, "b1", "bob")
	eve := addPlayer(w, "e1", "eve")

	// Admin shop on a bare sign; no container anywhere.
	signPos := Vec3i{X: 7, Y: 64, Z: 7}
	w.applyCmd(op, cmd(CmdTypeShopCreateAdmin, nil), 1)
	w.applyCmd(op, cmd(CmdTypePlaceSign, func(c *protocol.CmdReq) {
		sp := signPos.ToArray()
		c.Pos = &sp
		c.Facing = "north"
		c.Text = "BUY\nminecraft:bread\n2"
	}), 1)
	wantOK(t, lastResult(t, op))

	rec, found, _ := w.registry.Lookup(posKeyOf(signPos))
	if !found || !rec.IsAdmin {
		t.Fatalf("admin shop not registered: %+v found=%v", rec, found)
	}

	sp := signPos.ToArray()

	// Without shops.use the trade is denied.
	w.applyCmd(eve, cmd(CmdTypeUseShop, func(c *protocol.CmdReq) { c.Pos = &sp }), 5)
	wantCode(t, lastResult(t, eve), protocol.ErrNoPermission)

	// With shops.use it succeeds with infinite stock.
	w.applyCmd(bob, cmd(CmdTypeUseShop, func(c *protocol.CmdReq) { c.Pos = &sp }), 5)
	wantOK(t, lastResult(t, bob))
	if bob.Count("minecraft:bread") != 1 {
		t.Fatalf("bob bread = %d", bob.Count("minecraft:bread"))
	}
	if got := mustBalance(t, w, bob.ID); got != 998 {
		t.Fatalf("bob balance = %d, want 998", got)
	}
}

func TestShopCreateAdminRequiresPermission(t *testing.T) {
	w := newTestWorld(t, defaultTestConfig())
	alice := addPlayer(w, "a1", "alice")

	w.applyCmd(alice, cmd(CmdTypeShopCreateAdmin, nil), 1)
	wantCode(t, lastResult(t, alice), protocol.ErrNoPermission)
	if alice.Arm != Unarmed {
		t.Fatalf("unauthorized admin arm set")
	}
}

func TestShopEditAndRemovePermissions(t *testing.T) {
	cfg := defaultTestConfig()
	cfg.Operators = []string{"op1"}
	w := newTestWorld(t, cfg)
	alice := addPlayer(w, "a1", "alice")
	mallory := addPlayer(w, "m1", "mallory")
	op := addPlayer(w, "op1", "op")

	signPos := Vec3i{X: 3, Y: 64, Z: 3}
	createShop(t, w, alice, signPos, "BUY\nminecraft:diamond\n10")
	sp := signPos.ToArray()

	// Stranger cannot edit or remove.
	w.applyCmd(mallory, cmd(CmdTypeShopEdit, func(c *protocol.CmdReq) {
		c.Pos = &sp
		c.Text = "SELL\nminecraft:diamond\n5"
	}), 5)
	wantCode(t, lastResult(t, mallory), protocol.ErrNotOwner)
	w.applyCmd(mallory, cmd(CmdTypeShopRemove, func(c *protocol.CmdReq) { c.Pos = &sp }), 5)
	wantCode(t, lastResult(t, mallory), protocol.ErrNotOwner)

	// Owner edit keeps ownership and flips the terms.
	w.applyCmd(alice, cmd(CmdTypeShopEdit, func(c *protocol.CmdReq) {
		c.Pos = &sp
		c.Text = "SELL\nminecraft:diamond\n5"
	}), 6)
	wantOK(t, lastResult(t, alice))
	rec, _, _ := w.registry.Lookup(posKeyOf(signPos))
	if rec.Mode != shop.ModeSell || rec.Price != 5 || rec.Owner != alice.ID {
		t.Fatalf("edited record = %+v", rec)
	}

	// Admin can remove someone else's shop.
	w.applyCmd(op, cmd(CmdTypeShopRemove, func(c *protocol.CmdReq) { c.Pos = &sp }), 7)
	wantOK(t, lastResult(t, op))
	if _, found, _ := w.registry.Lookup(posKeyOf(signPos)); found {
		t.Fatalf("shop still registered after remove")
	}
}

func TestBreakSignDeletesShopRecord(t *testing.T) {
	w := newTestWorld(t, defaultTestConfig())
	alice := addPlayer(w, "a1", "alice")

	signPos := Vec3i{X: 6, Y: 64, Z: 6}
	createShop(t, w, alice, signPos, "BUY\nminecraft:diamond\n10")

	sp := signPos.ToArray()
	w.applyCmd(alice, cmd(CmdTypeBreakSign, func(c *protocol.CmdReq) { c.Pos = &sp }), 9)
	wantOK(t, lastResult(t, alice))
	if _, found, _ := w.registry.Lookup(posKeyOf(signPos)); found {
		t.Fatalf("record survives sign break")
	}
	if w.signs[signPos] != nil {
		t.Fatalf("sign survives break")
	}
}

func TestListShops(t *testing.T) {
	w := newTestWorld(t, defaultTestConfig())
	alice := addPlayer(w, "a1", "alice")
	bob := addPlayer(w, "b1", "bob")

	createShop(t, w, alice, Vec3i{X: 1, Y: 64, Z: 1}, "BUY\nminecraft:diamond\n10")
	createShop(t, w, bob, Vec3i{X: 2, Y: 64, Z: 1}, "SELL\nminecraft:dirt\n1")

	w.applyCmd(alice, cmd(CmdTypeListMyShops, nil), 20)
	res := lastResult(t, alice)
	wantOK(t, res)
	mine := res["shops"].([]protocol.Event)
	if len(mine) != 1 {
		t.Fatalf("alice shops = %d, want 1", len(mine))
	}

	w.applyCmd(alice, cmd(CmdTypeListAllShops, nil), 20)
	res = lastResult(t, alice)
	wantOK(t, res)
	all := res["shops"].([]protocol.Event)
	if len(all) != 2 {
		t.Fatalf("all shops = %d, want 2", len(all))
	}
}

func TestSnapshotRoundTripRestoresWorldState(t *testing.T) {
	w := newTestWorld(t, defaultTestConfig())
	alice := addPlayer(w, "a1", "alice")
	alice.Insert("minecraft:diamond", 7)
	signPos := Vec3i{X: 4, Y: 64, Z: 9}
	createShop(t, w, alice, signPos, "BUY\nminecraft:diamond\n10")

	snap := w.ExportSnapshot(123)

	w2 := newTestWorld(t, defaultTestConfig())
	w2.ImportSnapshot(snap)

	if w2.Tick() != 123 {
		t.Fatalf("tick = %d, want 123", w2.Tick())
	}
	p := w2.players["a1"]
	if p == nil || p.Count("minecraft:diamond") != 7 {
		t.Fatalf("player inventory not restored: %+v", p)
	}
	s := w2.signs[signPos]
	if s == nil || s.Lines[3] != "[Click]" {
		t.Fatalf("sign not restored: %+v", s)
	}
	c := w2.containers[signPos.Add(Vec3i{Z: 1})]
	if c == nil || len(c.Notes) != 1 || c.Notes[0].Author != "a1" {
		t.Fatalf("container notes not restored: %+v", c)
	}
}

func TestBreakContainerScoopsContents(t *testing.T) {
	w := newTestWorld(t, defaultTestConfig())
	alice := addPlayer(w, "a1", "alice")
	pos := [3]int{2, 64, 2}
	w.applyCmd(alice, cmd(CmdTypePlaceContainer, func(c *protocol.CmdReq) { c.Pos = &pos }), 1)
	wantOK(t, lastResult(t, alice))
	w.containers[Vec3i{X: 2, Y: 64, Z: 2}].Insert("minecraft:iron_ingot", 12)

	w.applyCmd(alice, cmd(CmdTypeBreakContainer, func(c *protocol.CmdReq) { c.Pos = &pos }), 2)
	wantOK(t, lastResult(t, alice))
	if w.containers[Vec3i{X: 2, Y: 64, Z: 2}] != nil {
		t.Fatalf("container still present after break")
	}
	if got := alice.Count("minecraft:iron_ingot"); got != 12 {
		t.Fatalf("player got %d iron ingots, want 12", got)
	}

	// Breaking again finds nothing there.
	w.applyCmd(alice, cmd(CmdTypeBreakContainer, func(c *protocol.CmdReq) { c.Pos = &pos }), 3)
	wantCode(t, lastResult(t, alice), protocol.ErrInvalidTarget)
}

func TestBreakContainerLeavesShopRecord(t *testing.T) {
	w := newTestWorld(t, defaultTestConfig())
	alice := addPlayer(w, "a1", "alice")
	alice.Insert("minecraft:diamond", 5)
	signPos := Vec3i{X: 4, Y: 64, Z: 9}
	createShop(t, w, alice, signPos, "BUY\nminecraft:diamond\n10")

	containerPos := signPos.Add(Vec3i{Z: 1}).ToArray()
	w.applyCmd(alice, cmd(CmdTypeBreakContainer, func(c *protocol.CmdReq) { c.Pos = &containerPos }), 5)
	wantOK(t, lastResult(t, alice))

	// The record survives; using the shop now reports the missing container.
	bob := addPlayer(w, "b1", "bob")
	sp := signPos.ToArray()
	w.applyCmd(bob, cmd(CmdTypeUseShop, func(c *protocol.CmdReq) { c.Pos = &sp }), 6)
	wantCode(t, lastResult(t, bob), protocol.ErrContainerMissing)
}

func TestInventoryCommandListsPlayerAndContainer(t *testing.T) {
	w := newTestWorld(t, defaultTestConfig())
	alice := addPlayer(w, "a1", "alice")
	alice.Insert("minecraft:diamond", 3)
	pos := [3]int{5, 64, 5}
	w.applyCmd(alice, cmd(CmdTypePlaceContainer, func(c *protocol.CmdReq) { c.Pos = &pos }), 1)
	w.containers[Vec3i{X: 5, Y: 64, Z: 5}].Insert("minecraft:emerald", 9)
	alice.TakeEvents()

	w.applyCmd(alice, cmd(CmdTypeInventory, nil), 2)
	e := lastResult(t, alice)
	wantOK(t, e)
	items, ok := e["items"].([]protocol.ItemStack)
	if !ok || len(items) != 1 || items[0] != (protocol.ItemStack{Item: "minecraft:diamond", Count: 3}) {
		t.Fatalf("items = %v", e["items"])
	}
	if _, present := e["container_items"]; present {
		t.Fatalf("container_items present without a pos: %v", e)
	}

	w.applyCmd(alice, cmd(CmdTypeInventory, func(c *protocol.CmdReq) { c.Pos = &pos }), 3)
	e = lastResult(t, alice)
	wantOK(t, e)
	stacks, ok := e["container_items"].([]protocol.ItemStack)
	if !ok || len(stacks) != 1 || stacks[0] != (protocol.ItemStack{Item: "minecraft:emerald", Count: 9}) {
		t.Fatalf("container_items = %v", e["container_items"])
	}

	missing := [3]int{9, 9, 9}
	w.applyCmd(alice, cmd(CmdTypeInventory, func(c *protocol.CmdReq) { c.Pos = &missing }), 4)
	wantCode(t, lastResult(t, alice), protocol.ErrInvalidTarget)
}

func TestStopHaltsRunLoop(t *testing.T) {
	cfg := defaultTestConfig()
	cfg.TickRateHz = 200
	w := newTestWorld(t, cfg)

	done := make(chan error, 1)
	go func() { done <- w.Run(context.Background()) }()

	time.Sleep(20 * time.Millisecond)
	w.Stop()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after Stop")
	}
}
