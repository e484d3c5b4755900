package shop

import "shopcraft.gg/internal/protocol"

// ParseReason says which rule a configuration text broke.
type ParseReason string

const (
	InvalidMode    ParseReason = "INVALID_MODE"
	InvalidItem    ParseReason = "INVALID_ITEM"
	InvalidPrice   ParseReason = "INVALID_PRICE"
	AuthorMismatch ParseReason = "AUTHOR_MISMATCH"
	MissingConfig  ParseReason = "MISSING_CONFIG"
)

type ParseError struct {
	Reason  ParseReason
	Message string
}

func (e *ParseError) Error() string { return e.Message }

// Code maps the reason to its wire error code.
func (e *ParseError) Code() string {
	switch e.Reason {
	case InvalidMode:
		return protocol.ErrInvalidMode
	case InvalidItem:
		return protocol.ErrInvalidItem
	case InvalidPrice:
		return protocol.ErrInvalidPrice
	case AuthorMismatch:
		return protocol.ErrAuthorMismatch
	case MissingConfig:
		return protocol.ErrMissingConfig
	}
	return protocol.ErrInternal
}

// TradeReason says why a transaction was rejected. Every rejection leaves
// balances, inventories, and the registry untouched.
type TradeReason string

const (
	InsufficientFunds TradeReason = "INSUFFICIENT_FUNDS"
	InsufficientItems TradeReason = "INSUFFICIENT_ITEMS"
	OutOfStock        TradeReason = "OUT_OF_STOCK"
	ContainerMissing  TradeReason = "CONTAINER_MISSING"
	ContainerFull     TradeReason = "CONTAINER_FULL"
)

type TradeError struct {
	Reason  TradeReason
	Message string
}

func (e *TradeError) Error() string { return e.Message }

func (e *TradeError) Code() string {
	switch e.Reason {
	case InsufficientFunds:
		return protocol.ErrInsufficientFunds
	case InsufficientItems:
		return protocol.ErrInsufficientItems
	case OutOfStock:
		return protocol.ErrOutOfStock
	case ContainerMissing:
		return protocol.ErrContainerMissing
	case ContainerFull:
		return protocol.ErrContainerFull
	}
	return protocol.ErrInternal
}
