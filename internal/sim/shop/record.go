// Package shop holds the trade-post core: the parsed trade configuration, the
// persisted shop registry, and the transaction engine that executes buys and
// sells against the ledger and the surrounding inventories.
package shop

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Trade direction of a shop, from the buyer-player's perspective: a BUY shop
// sells items to players, a SELL shop buys items from them.
type Mode string

const (
	ModeBuy  Mode = "BUY"
	ModeSell Mode = "SELL"
)

func (m Mode) Valid() bool { return m == ModeBuy || m == ModeSell }

// TradeConfig is the validated mode/item/price triple parsed from a shop's
// configuration text. It is transient; Record carries the persisted copy.
type TradeConfig struct {
	Mode   Mode
	ItemID string
	Price  int64
}

// Record is one persisted trade post.
type Record struct {
	Owner   string `json:"owner"`
	IsAdmin bool   `json:"is_admin"`
	Mode    Mode   `json:"mode"`
	ItemID  string `json:"item_id"`
	Price   int64  `json:"price"`
	// PosKey duplicates the registry key so a Record stays addressable when
	// passed around by value.
	PosKey string `json:"pos_key"`
}

func NewRecord(owner string, isAdmin bool, cfg TradeConfig, posKey string) (Record, error) {
	if !cfg.Mode.Valid() {
		return Record{}, fmt.Errorf("invalid mode %q", cfg.Mode)
	}
	if strings.TrimSpace(cfg.ItemID) == "" {
		return Record{}, fmt.Errorf("empty item id")
	}
	if cfg.Price <= 0 {
		return Record{}, fmt.Errorf("non-positive price %d", cfg.Price)
	}
	return Record{
		Owner:   owner,
		IsAdmin: isAdmin,
		Mode:    cfg.Mode,
		ItemID:  cfg.ItemID,
		Price:   cfg.Price,
		PosKey:  posKey,
	}, nil
}

// PosKey builds the canonical registry key for a block position. Re-deriving
// the key for the same coordinates is byte-identical across restarts.
func PosKey(x, y, z int) string {
	return fmt.Sprintf("%d,%d,%d", x, y, z)
}

// DisplayName renders an item id for a sign line: namespace stripped,
// underscores to spaces, words capitalized, truncated past 15 runes.
func DisplayName(itemID string) string {
	name := itemID
	if i := strings.IndexByte(itemID, ':'); i >= 0 {
		name = itemID[i+1:]
	}
	words := strings.Split(name, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		r, size := utf8.DecodeRuneInString(w)
		words[i] = strings.ToUpper(string(r)) + w[size:]
	}
	out := strings.Join(words, " ")
	if utf8.RuneCountInString(out) > 15 {
		out = string([]rune(out)[:12]) + "..."
	}
	return out
}
