package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Command layer.
	ErrBadRequest    = "E_BAD_REQUEST"
	ErrNoPermission  = "E_NO_PERMISSION"
	ErrNotOwner      = "E_NOT_OWNER"
	ErrInvalidTarget = "E_INVALID_TARGET"
	ErrInternal      = "E_INTERNAL"

	// Shop configuration parsing.
	ErrInvalidMode    = "E_INVALID_MODE"
	ErrInvalidItem    = "E_INVALID_ITEM"
	ErrInvalidPrice   = "E_INVALID_PRICE"
	ErrAuthorMismatch = "E_AUTHOR_MISMATCH"
	ErrMissingConfig  = "E_MISSING_CONFIG"

	// Trade execution.
	ErrInsufficientFunds = "E_INSUFFICIENT_FUNDS"
	ErrInsufficientItems = "E_INSUFFICIENT_ITEMS"
	ErrOutOfStock        = "E_OUT_OF_STOCK"
	ErrContainerMissing  = "E_CONTAINER_MISSING"
	ErrContainerFull     = "E_CONTAINER_FULL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest:   {},
	ErrBadRequest:        {},
	ErrNoPermission:      {},
	ErrNotOwner:          {},
	ErrInvalidTarget:     {},
	ErrInternal:          {},
	ErrInvalidMode:       {},
	ErrInvalidItem:       {},
	ErrInvalidPrice:      {},
	ErrAuthorMismatch:    {},
	ErrMissingConfig:     {},
	ErrInsufficientFunds: {},
	ErrInsufficientItems: {},
	ErrOutOfStock:        {},
	ErrContainerMissing:  {},
	ErrContainerFull:     {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
