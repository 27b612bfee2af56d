// Package connector defines the narrow capability interface the sync
// engine consumes from the remote peer. Only one implementation exists
// today (internal/connector/sock), matching the single-case "conn"
// dispatch in the original client.cxx constructor — no plugin registry
// is introduced.
package connector

import (
	"io"

	"github.com/opensyncd/syncd/internal/metadata"
)

// Connector is the capability surface the sync engine consumes from a
// remote peer. Every method may fail with a *syncerr.TransportError.
type Connector interface {
	// GetMetadata returns a synchronous full snapshot of the remote's
	// metadata, used once at startup to drive the merge.
	GetMetadata() (*metadata.Store, error)

	// GetFile streams path's content (as of expectedModified, which is
	// advisory for the server) into sink.
	GetFile(path string, expectedModified int64, sink io.Writer) error

	// PushFile uploads size bytes of path's content from source, tagged
	// with the local modification time.
	PushFile(path string, modified int64, source io.Reader, size int64) error

	// DeleteFile tombstones path at modified.
	DeleteFile(path string, modified int64) error

	// Wait blocks until the server pushes an update, returning the
	// relative path and its new FileData. It fails once the connector is
	// closed.
	Wait() (path string, fd metadata.FileData, err error)

	// Close is an idempotent shutdown that causes in-flight Wait and
	// streaming calls to fail.
	Close() error
}
