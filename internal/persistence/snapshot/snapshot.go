// Package snapshot writes and reads whole-world state captures. The on-disk
// format is a zstd stream holding a JSON header line (cheap to peek at with
// zstdcat) followed by a gob encoding of the full snapshot.
package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

type Header struct {
	Version int    `json:"version"`
	WorldID string `json:"world_id"`
	Tick    uint64 `json:"tick"`
}

// SnapshotV1 captures the volatile world state: players, signs and containers.
// Balances and shop records live in the key-value store and are not part of
// the snapshot.
type SnapshotV1 struct {
	Header Header `json:"header"`

	TickRate           int `json:"tick_rate_hz"`
	SnapshotEveryTicks int `json:"snapshot_every_ticks,omitempty"`

	Players    []PlayerV1    `json:"players"`
	Signs      []SignV1      `json:"signs,omitempty"`
	Containers []ContainerV1 `json:"containers,omitempty"`
}

type PlayerV1 struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	ResumeToken string         `json:"resume_token,omitempty"`
	Inventory   map[string]int `json:"inventory"`
}

type SignV1 struct {
	Pos         [3]int    `json:"pos"`
	Facing      string    `json:"facing,omitempty"`
	Lines       [4]string `json:"lines"`
	UpdatedTick uint64    `json:"updated_tick,omitempty"`
	UpdatedBy   string    `json:"updated_by,omitempty"`
}

type NoteV1 struct {
	Author string `json:"author,omitempty"`
	Text   string `json:"text"`
}

type ContainerV1 struct {
	Pos       [3]int         `json:"pos"`
	SlotCount int            `json:"slot_count"`
	Inventory map[string]int `json:"inventory"`
	Notes     []NoteV1       `json:"notes,omitempty"`
}

func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriterSize(enc, 64*1024)
	defer bw.Flush()

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 64*1024)

	// Skip the header line; the gob body carries the header too.
	_, _ = br.ReadBytes('\n')

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	return snap, nil
}
