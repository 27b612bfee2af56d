// Package sync implements the synchronization engine: a multi-producer /
// single-consumer state machine that merges local and remote metadata at
// startup and reconciles local-filesystem events, remote-push
// notifications, and applies into a single stream of file operations.
// Grounded on internal/client/daemon.go and internal/client/sync/sync_manager.go
// for the construct-then-Start(ctx) lifecycle and errgroup-based role
// supervision, generalized from that repo's much larger multi-stage sync
// engine down to this system's three roles.
package sync

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/opensyncd/syncd/internal/connector"
	"github.com/opensyncd/syncd/internal/metadata"
	"github.com/opensyncd/syncd/internal/queue"
	"github.com/opensyncd/syncd/internal/syncerr"
	"github.com/opensyncd/syncd/internal/watch"
)

// Client is the synchronization engine core. It owns the sync directory
// path, a connector to the remote peer, the metadata store, the watcher
// handle, and the event queue.
type Client struct {
	syncDir  string
	conn     connector.Connector
	watcher  *watch.Watcher
	meta     *metadata.Store
	metaPath string
	queue    *queue.FIFO[Msg]

	closeOnce sync.Once
}

// New constructs a Client: it loads the persisted local metadata
// snapshot (empty if none exists), fetches a full remote snapshot,
// starts watching syncDir, and performs the startup merge before any
// role runs. A *syncerr.TransportError from GetMetadata here is fatal.
func New(syncDir string, conn connector.Connector, w *watch.Watcher, metaPath string) (*Client, error) {
	local, err := metadata.LoadSnapshot(metaPath)
	if err != nil {
		return nil, syncerr.NewFilesystemError(metaPath, err)
	}

	remote, err := conn.GetMetadata()
	if err != nil {
		return nil, syncerr.NewTransportError("get_metadata", err)
	}

	if err := w.AddWatch(syncDir, true); err != nil {
		return nil, syncerr.NewFilesystemError(syncDir, err)
	}

	c := &Client{
		syncDir:  syncDir,
		conn:     conn,
		watcher:  w,
		meta:     local,
		metaPath: metaPath,
		queue:    queue.NewFIFO[Msg](),
	}

	enqueued := 0
	mergeStartup(func(m Msg) {
		c.queue.Push(m)
		enqueued++
	}, local, remote)
	slog.Info("startup merge complete", "enqueued", enqueued)

	return c, nil
}

// Start spawns the three long-running roles and blocks until ctx is
// cancelled; no role returns an error of its own. Shutdown closes the watcher and
// connector (causing remote-listen and local-watch to exit) and raises
// the queue's done flag (causing apply to drain and exit), then joins
// all three before returning.
func (c *Client) Start(ctx context.Context) error {
	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		c.applyLoop()
		return nil
	})
	eg.Go(func() error {
		c.remoteListenLoop()
		return nil
	})
	eg.Go(func() error {
		c.localWatchLoop()
		return nil
	})
	eg.Go(func() error {
		<-egCtx.Done()
		return c.Close()
	})

	return eg.Wait()
}

// Close is an idempotent shutdown: watcher and connector are closed
// exactly once, and the event queue is marked done, waking the apply
// role.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		werr := c.watcher.Close()
		cerr := c.conn.Close()
		c.queue.Shutdown()
		if werr != nil {
			err = werr
		} else if cerr != nil {
			err = cerr
		}
	})
	return err
}
