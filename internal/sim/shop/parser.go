package shop

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseContext carries who is configuring the shop and, when the text comes
// from a signed note, who authored it.
type ParseContext struct {
	AuthorID string // account id of the acting player
	IsAdmin  bool   // admin shops may use unsigned notes
	// NoteAuthor is the recorded author identity of a signed note, empty when
	// the text came from plain sign lines or an unsigned note.
	NoteAuthor string
}

// Parse turns raw configuration text into a validated TradeConfig.
//
// The text needs at least three non-empty lines: mode (BUY/SELL, any case),
// item id, and a positive integer price. A fourth instructions line is
// tolerated and ignored. A signed note whose author is not the acting player
// is rejected outright; accepting it would let anyone deploy shops under
// someone else's identity.
func Parse(raw string, ctx ParseContext) (TradeConfig, error) {
	if ctx.NoteAuthor != "" && ctx.NoteAuthor != ctx.AuthorID {
		return TradeConfig{}, &ParseError{
			Reason:  AuthorMismatch,
			Message: fmt.Sprintf("note signed by %s, not by you", ctx.NoteAuthor),
		}
	}

	var lines []string
	for _, l := range strings.Split(raw, "\n") {
		l = strings.TrimSpace(l)
		if l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) < 3 {
		return TradeConfig{}, &ParseError{
			Reason:  MissingConfig,
			Message: "need 3 lines: BUY/SELL, item id, price",
		}
	}

	mode := Mode(strings.ToUpper(lines[0]))
	if !mode.Valid() {
		return TradeConfig{}, &ParseError{
			Reason:  InvalidMode,
			Message: fmt.Sprintf("line 1 must be BUY or SELL, got %q", lines[0]),
		}
	}

	item := lines[1]
	if item == "" {
		return TradeConfig{}, &ParseError{Reason: InvalidItem, Message: "line 2 must be an item id"}
	}

	price, err := strconv.ParseInt(lines[2], 10, 64)
	if err != nil || price <= 0 {
		return TradeConfig{}, &ParseError{
			Reason:  InvalidPrice,
			Message: fmt.Sprintf("line 3 must be a positive number, got %q", lines[2]),
		}
	}

	return TradeConfig{Mode: mode, ItemID: item, Price: price}, nil
}
