package docstore

import (
	"context"
	"time"
)

type ChangeOp string

const (
	OpPut    ChangeOp = "put"
	OpDelete ChangeOp = "delete"
)

// Change describes one acknowledged write. Backends without a native
// notification channel publish changes so that watches in other processes
// sharing the same database see the write.
type Change struct {
	Collection string    `json:"collection"`
	DocumentID string    `json:"document_id"`
	Op         ChangeOp  `json:"op"`
	Origin     string    `json:"origin"`
	Timestamp  time.Time `json:"timestamp"`
}

// ChangePublisher fans a change out to other processes.
type ChangePublisher interface {
	PublishChange(ctx context.Context, c Change) error
}
