package world

type WorldConfig struct {
	ID         string
	TickRateHz int

	Currency        string
	StartingBalance int64

	// Trade quantities.
	BulkQty   int // quantity for a bulk (shift) trade
	StackSize int // per-slot capacity for the container estimate

	// Inventory sizes.
	PlayerSlots    int
	ContainerSlots int

	SignTextLimit int

	// Operational parameters.
	SnapshotEveryTicks int

	// Permission data for the default permission backend.
	Operators []string
	Grants    map[string][]string // account id -> granted permissions
}

func (c *WorldConfig) applyDefaults() {
	if c.ID == "" {
		c.ID = "world_1"
	}
	if c.TickRateHz <= 0 {
		c.TickRateHz = 10
	}
	if c.Currency == "" {
		c.Currency = "$"
	}
	if c.StartingBalance < 0 {
		c.StartingBalance = 0
	}
	if c.BulkQty <= 0 {
		c.BulkQty = 64
	}
	if c.StackSize <= 0 {
		c.StackSize = 64
	}
	if c.PlayerSlots <= 0 {
		c.PlayerSlots = 36
	}
	if c.ContainerSlots <= 0 {
		c.ContainerSlots = 27
	}
	if c.SignTextLimit <= 0 {
		c.SignTextLimit = 200
	}
	if c.SnapshotEveryTicks <= 0 {
		c.SnapshotEveryTicks = 3000
	}
}
