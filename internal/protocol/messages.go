package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	PlayerName      string     `json:"player_name"`
	Auth            *HelloAuth `json:"auth,omitempty"`
}

type HelloAuth struct {
	// ResumeToken lets a reconnecting client keep its account identity.
	ResumeToken string `json:"resume_token,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	AccountID       string `json:"account_id"`
	ResumeToken     string `json:"resume_token"`
	Currency        string `json:"currency"`
	StartingBalance int64  `json:"starting_balance"`
	TickRateHz      int    `json:"tick_rate_hz"`
}

// CMD (client -> server): a single player command.
type CmdMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Cmd             CmdReq `json:"cmd"`
}

// CmdReq carries one command. Fields beyond ID/Type are command-specific.
type CmdReq struct {
	ID   string `json:"id"`
	Type string `json:"type"`

	// PAY / ECO_GIVE / ECO_TAKE / ECO_SET / ECO_BALANCE.
	Target string `json:"target,omitempty"`
	Amount int64  `json:"amount,omitempty"`

	// Shop commands address signs by block position.
	Pos    *[3]int `json:"pos,omitempty"`
	Facing string  `json:"facing,omitempty"`
	Text   string  `json:"text,omitempty"`

	// USE_SHOP: bulk toggles the 64x quantity (shift-click in game terms).
	Bulk bool `json:"bulk,omitempty"`

	// Container commands.
	Item   string `json:"item,omitempty"`
	Qty    int    `json:"qty,omitempty"`
	Signed bool   `json:"signed,omitempty"`
}

// Event is a loosely-typed server -> client event payload.
type Event map[string]any

// EVENTS (server -> client): everything addressed to one player this tick.
type EventsMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version"`
	Tick            uint64  `json:"tick"`
	Events          []Event `json:"events"`
}

// ItemStack is an (item id, count) pair used in inventory listings.
type ItemStack struct {
	Item  string `json:"item"`
	Count int    `json:"count"`
}
