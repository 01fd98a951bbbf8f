package sync

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Checkpoint Variants
// ---------------------------------------------------------------------------

// Checkpoint is the resumption state persisted on a queue item between page
// invocations. Each sync type has its own tagged variant; the payload is
// decoded with validation at the boundary, never treated as an open map.
type Checkpoint interface {
	// SyncType returns the variant tag
	SyncType() SyncType
	// Validate checks the decoded payload
	Validate() error
}

// ProductSyncCheckpoint carries product catalog sync progress
type ProductSyncCheckpoint struct {
	// JobID links back to the SyncJob created on the first page
	JobID uuid.UUID `json:"job_id"`
	// Cursor is the platform page_info token; empty means start of resource
	Cursor string `json:"cursor"`
	// PagesDone counts fully committed pages
	PagesDone int `json:"pages_done"`
}

// SyncType returns the variant tag
func (c *ProductSyncCheckpoint) SyncType() SyncType { return SyncTypeProduct }

// Validate checks the decoded payload
func (c *ProductSyncCheckpoint) Validate() error {
	if c.JobID == uuid.Nil {
		return fmt.Errorf("%w: product checkpoint missing job_id", ErrCheckpointInvalid)
	}
	if c.PagesDone < 0 {
		return fmt.Errorf("%w: negative pages_done", ErrCheckpointInvalid)
	}
	return nil
}

// OrderSyncCheckpoint carries order sync progress
type OrderSyncCheckpoint struct {
	// JobID links back to the SyncJob created on the first page
	JobID uuid.UUID `json:"job_id"`
	// Cursor is the platform page_info token; empty means start of resource
	Cursor string `json:"cursor"`
	// PagesDone counts fully committed pages
	PagesDone int `json:"pages_done"`
	// Since bounds the order window; orders created before it are skipped
	Since time.Time `json:"since,omitzero"`
}

// SyncType returns the variant tag
func (c *OrderSyncCheckpoint) SyncType() SyncType { return SyncTypeOrder }

// Validate checks the decoded payload
func (c *OrderSyncCheckpoint) Validate() error {
	if c.JobID == uuid.Nil {
		return fmt.Errorf("%w: order checkpoint missing job_id", ErrCheckpointInvalid)
	}
	if c.PagesDone < 0 {
		return fmt.Errorf("%w: negative pages_done", ErrCheckpointInvalid)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Encoding
// ---------------------------------------------------------------------------

// checkpointEnvelope is the wire form: a tag plus the raw variant payload
type checkpointEnvelope struct {
	SyncType SyncType        `json:"sync_type"`
	Data     json.RawMessage `json:"data"`
}

// EncodeCheckpoint serializes a checkpoint into its tagged envelope
func EncodeCheckpoint(cp Checkpoint) ([]byte, error) {
	if err := cp.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(cp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCheckpointInvalid, err)
	}
	return json.Marshal(checkpointEnvelope{SyncType: cp.SyncType(), Data: data})
}

// DecodeCheckpoint parses and validates a tagged checkpoint payload.
// The decoded variant must match expected or ErrCheckpointTypeMismatch is
// returned; a nil or empty payload decodes to (nil, nil), meaning "start".
func DecodeCheckpoint(raw []byte, expected SyncType) (Checkpoint, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var env checkpointEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCheckpointInvalid, err)
	}
	if env.SyncType != expected {
		return nil, fmt.Errorf("%w: got %q, want %q", ErrCheckpointTypeMismatch, env.SyncType, expected)
	}

	var cp Checkpoint
	switch env.SyncType {
	case SyncTypeProduct:
		cp = &ProductSyncCheckpoint{}
	case SyncTypeOrder:
		cp = &OrderSyncCheckpoint{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidSyncType, env.SyncType)
	}

	if err := json.Unmarshal(env.Data, cp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCheckpointInvalid, err)
	}
	if err := cp.Validate(); err != nil {
		return nil, err
	}
	return cp, nil
}
