package world

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"shopcraft.gg/internal/persistence/snapshot"
	"shopcraft.gg/internal/protocol"
)

// Run drives the world loop until the context is cancelled or Stop is called.
// Joins, leaves and commands are buffered between ticks and applied at the
// next tick boundary, in arrival order.
func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pendingCmds []CmdEnvelope
	var pendingJoins []JoinRequest
	var pendingLeaves []string

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.join:
			pendingJoins = append(pendingJoins, req)
		case id := <-w.leave:
			pendingLeaves = append(pendingLeaves, id)
		case env := <-w.inbox:
			pendingCmds = append(pendingCmds, env)
		case <-ticker.C:
			w.step(pendingJoins, pendingLeaves, pendingCmds)
			pendingJoins = pendingJoins[:0]
			pendingLeaves = pendingLeaves[:0]
			pendingCmds = pendingCmds[:0]
		}
	}
}

func (w *World) Stop() { close(w.stop) }

func (w *World) step(joins []JoinRequest, leaves []string, cmds []CmdEnvelope) {
	nowTick := w.tick.Load()

	for _, id := range leaves {
		w.handleLeave(id)
	}
	for _, req := range joins {
		w.handleJoin(req)
	}

	// Commands apply in inbox order.
	for _, env := range cmds {
		p := w.players[env.AccountID]
		if p == nil {
			continue
		}
		w.applyCmd(p, env.Cmd, nowTick)
	}

	w.flushEvents(nowTick)
	w.maybeSnapshot(nowTick)

	w.tick.Add(1)
}

// flushEvents drains each player's event buffer and ships it to the connected
// client. Disconnected players keep accumulating events until they return.
func (w *World) flushEvents(nowTick uint64) {
	for id, p := range w.players {
		cl := w.clients[id]
		if cl == nil || len(p.Events) == 0 {
			continue
		}
		msg := protocol.EventsMsg{
			Type:            protocol.TypeEvents,
			ProtocolVersion: protocol.Version,
			Tick:            nowTick,
			Events:          p.TakeEvents(),
		}
		b, err := json.Marshal(msg)
		if err != nil {
			continue
		}
		sendLatest(cl.Out, b)
	}
}

func (w *World) maybeSnapshot(nowTick uint64) {
	if w.snapshotSink == nil || nowTick == 0 || w.cfg.SnapshotEveryTicks <= 0 {
		return
	}
	if nowTick%uint64(w.cfg.SnapshotEveryTicks) != 0 {
		return
	}
	select {
	case w.snapshotSink <- w.ExportSnapshot(nowTick):
	default:
		// Drop the snapshot if the sink is backed up.
	}
}

// sendLatest delivers b without ever blocking the world loop; when the client
// channel is full the oldest pending message is dropped first.
func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}

// ExportSnapshot captures the in-memory world state. Balances and shop
// records are not included; they live in the key-value store.
func (w *World) ExportSnapshot(nowTick uint64) snapshot.SnapshotV1 {
	snap := snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version: 1,
			WorldID: w.cfg.ID,
			Tick:    nowTick,
		},
		TickRate:           w.cfg.TickRateHz,
		SnapshotEveryTicks: w.cfg.SnapshotEveryTicks,
	}

	snap.Players = make([]snapshot.PlayerV1, 0, len(w.players))
	for _, p := range w.players {
		snap.Players = append(snap.Players, snapshot.PlayerV1{
			ID:        p.ID,
			Name:      p.Name,
			Inventory: copyInv(p.Inventory),
		})
	}
	snap.Signs = make([]snapshot.SignV1, 0, len(w.signs))
	for _, s := range w.signs {
		snap.Signs = append(snap.Signs, snapshot.SignV1{
			Pos:         s.Pos.ToArray(),
			Facing:      s.Facing,
			Lines:       s.Lines,
			UpdatedTick: s.UpdatedTick,
			UpdatedBy:   s.UpdatedBy,
		})
	}
	snap.Containers = make([]snapshot.ContainerV1, 0, len(w.containers))
	for _, c := range w.containers {
		cv := snapshot.ContainerV1{
			Pos:       c.Pos.ToArray(),
			SlotCount: c.SlotCount,
			Inventory: copyInv(c.Inventory),
		}
		for _, n := range c.Notes {
			cv.Notes = append(cv.Notes, snapshot.NoteV1{Author: n.Author, Text: n.Text})
		}
		snap.Containers = append(snap.Containers, cv)
	}
	return snap
}

// ImportSnapshot restores world state from a capture. Call before Run, never
// on a live world.
func (w *World) ImportSnapshot(snap snapshot.SnapshotV1) {
	w.tick.Store(snap.Header.Tick)

	w.players = map[string]*Player{}
	w.byName = map[string]string{}
	for _, pv := range snap.Players {
		p := &Player{
			ID:        pv.ID,
			Name:      pv.Name,
			Inventory: copyInv(pv.Inventory),
			slots:     w.cfg.PlayerSlots,
		}
		if p.Inventory == nil {
			p.Inventory = map[string]int{}
		}
		w.players[p.ID] = p
		w.byName[strings.ToLower(pv.Name)] = p.ID
	}

	w.signs = map[Vec3i]*Sign{}
	for _, sv := range snap.Signs {
		pos := Vec3i{X: sv.Pos[0], Y: sv.Pos[1], Z: sv.Pos[2]}
		w.signs[pos] = &Sign{
			Pos:         pos,
			Facing:      sv.Facing,
			Lines:       sv.Lines,
			UpdatedTick: sv.UpdatedTick,
			UpdatedBy:   sv.UpdatedBy,
		}
	}

	w.containers = map[Vec3i]*Container{}
	for _, cv := range snap.Containers {
		pos := Vec3i{X: cv.Pos[0], Y: cv.Pos[1], Z: cv.Pos[2]}
		c := &Container{
			Pos:       pos,
			SlotCount: cv.SlotCount,
			Inventory: copyInv(cv.Inventory),
		}
		if c.Inventory == nil {
			c.Inventory = map[string]int{}
		}
		if c.SlotCount <= 0 {
			c.SlotCount = w.cfg.ContainerSlots
		}
		for _, n := range cv.Notes {
			c.Notes = append(c.Notes, Note{Author: n.Author, Text: n.Text})
		}
		w.containers[pos] = c
	}
}

func copyInv(m map[string]int) map[string]int {
	if m == nil {
		return nil
	}
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
