package world

import (
	"fmt"
	"log"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"

	"shopcraft.gg/internal/persistence/snapshot"
	"shopcraft.gg/internal/protocol"
	"shopcraft.gg/internal/sim/economy"
	"shopcraft.gg/internal/sim/shop"
)

type JoinRequest struct {
	Name        string
	ResumeToken string
	Out         chan []byte
	Resp        chan JoinResponse
}

type JoinResponse struct {
	Welcome protocol.WelcomeMsg
}

type CmdEnvelope struct {
	AccountID string
	Cmd       protocol.CmdReq
}

// World is a single-threaded authoritative simulation. All state must be
// accessed only from the world loop goroutine (or, in tests, by calling the
// handlers directly from one goroutine).
type World struct {
	cfg WorldConfig

	ledger   *economy.Ledger
	registry *shop.Registry
	engine   *shop.Engine
	perms    Permissions

	tick atomic.Uint64

	players map[string]*Player
	byName  map[string]string // lowercased player name -> account id
	clients map[string]*clientState

	signs      map[Vec3i]*Sign
	containers map[Vec3i]*Container

	inbox chan CmdEnvelope
	join  chan JoinRequest
	leave chan string
	stop  chan struct{}

	// Optional audit sink (may be nil). Implemented in internal/persistence.
	auditLogger AuditLogger

	// Optional snapshot sink (may be nil). Snapshot writing is off-thread.
	snapshotSink chan<- snapshot.SnapshotV1

	logger *log.Logger
}

type AuditLogger interface {
	WriteAudit(entry AuditEntry) error
}

type AuditEntry struct {
	Tick    uint64         `json:"tick"`
	Actor   string         `json:"actor"`
	Action  string         `json:"action"` // e.g. "TRADE_BUY"
	Pos     [3]int         `json:"pos"`
	Reason  string         `json:"reason,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

type clientState struct {
	Out chan []byte
}

func New(cfg WorldConfig, ledger *economy.Ledger, registry *shop.Registry, engine *shop.Engine, perms Permissions) (*World, error) {
	cfg.applyDefaults()
	if ledger == nil || registry == nil || engine == nil {
		return nil, fmt.Errorf("world: ledger, registry and engine are required")
	}
	w := &World{
		cfg:        cfg,
		ledger:     ledger,
		registry:   registry,
		engine:     engine,
		perms:      perms,
		players:    map[string]*Player{},
		byName:     map[string]string{},
		clients:    map[string]*clientState{},
		signs:      map[Vec3i]*Sign{},
		containers: map[Vec3i]*Container{},
		inbox:      make(chan CmdEnvelope, 1024),
		join:       make(chan JoinRequest, 16),
		leave:      make(chan string, 16),
		stop:       make(chan struct{}),
	}
	return w, nil
}

func (w *World) Inbox() chan<- CmdEnvelope  { return w.inbox }
func (w *World) Join() chan<- JoinRequest   { return w.join }
func (w *World) Leave() chan<- string       { return w.leave }
func (w *World) Tick() uint64               { return w.tick.Load() }
func (w *World) Config() WorldConfig        { return w.cfg }
func (w *World) SetAuditLogger(l AuditLogger) { w.auditLogger = l }
func (w *World) SetSnapshotSink(ch chan<- snapshot.SnapshotV1) { w.snapshotSink = ch }
func (w *World) SetLogger(l *log.Logger)    { w.logger = l }

func (w *World) logf(format string, args ...any) {
	if w.logger != nil {
		w.logger.Printf(format, args...)
	}
}

func (w *World) handleJoin(req JoinRequest) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = "player"
	}

	var p *Player
	if tok := strings.TrimSpace(req.ResumeToken); tok != "" {
		for _, cand := range w.players {
			if cand.ResumeToken == tok {
				p = cand
				break
			}
		}
	}
	if p == nil {
		if id, ok := w.byName[strings.ToLower(name)]; ok {
			// Same name without a valid token: treat as the returning player.
			p = w.players[id]
		}
	}
	if p == nil {
		p = &Player{
			ID:        uuid.NewString(),
			Name:      name,
			Inventory: map[string]int{},
			slots:     w.cfg.PlayerSlots,
		}
		w.players[p.ID] = p
		w.byName[strings.ToLower(name)] = p.ID
	}
	p.ResumeToken = newResumeToken(w.cfg.ID)
	p.Connected = true
	if req.Out != nil {
		w.clients[p.ID] = &clientState{Out: req.Out}
	}

	if req.Resp != nil {
		req.Resp <- JoinResponse{Welcome: protocol.WelcomeMsg{
			Type:            protocol.TypeWelcome,
			ProtocolVersion: protocol.Version,
			AccountID:       p.ID,
			ResumeToken:     p.ResumeToken,
			Currency:        w.cfg.Currency,
			StartingBalance: w.cfg.StartingBalance,
			TickRateHz:      w.cfg.TickRateHz,
		}}
	}
}

func (w *World) handleLeave(accountID string) {
	delete(w.clients, accountID)
	if p := w.players[accountID]; p != nil {
		p.Connected = false
	}
}

func newResumeToken(worldID string) string {
	return fmt.Sprintf("resume_%s_%s", worldID, uuid.NewString())
}

// playerByRef resolves a command target: account id first, then player name.
func (w *World) playerByRef(ref string) *Player {
	if p := w.players[ref]; p != nil {
		return p
	}
	if id, ok := w.byName[strings.ToLower(ref)]; ok {
		return w.players[id]
	}
	return nil
}

func (w *World) auditEvent(tick uint64, actor string, action string, pos Vec3i, reason string, details map[string]any) {
	if w.auditLogger == nil {
		return
	}
	_ = w.auditLogger.WriteAudit(AuditEntry{
		Tick:    tick,
		Actor:   actor,
		Action:  action,
		Pos:     pos.ToArray(),
		Reason:  reason,
		Details: details,
	})
}
