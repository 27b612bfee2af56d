package sync

import "github.com/opensyncd/syncd/internal/metadata"

// Msg is one reconciliation event flowing through the client's event
// queue: a path, the side it originated from, and the post-state it
// asserts. Msgs are immutable once enqueued.
type Msg struct {
	Filename string
	Remote   bool
	FileData metadata.FileData
}
