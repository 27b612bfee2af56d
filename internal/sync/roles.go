package sync

import (
	"path/filepath"

	"github.com/opensyncd/syncd/internal/metadata"
	"github.com/opensyncd/syncd/internal/watch"
)

// remoteListenLoop is the remote-listen role: it blocks on the
// connector's push channel and translates every update into a
// remote-origin Msg. It exits silently once the connector is closed.
func (c *Client) remoteListenLoop() {
	for {
		path, fd, err := c.conn.Wait()
		if err != nil {
			return
		}
		c.queue.Push(Msg{Filename: path, Remote: true, FileData: fd})
	}
}

// localWatchLoop is the local-watch role: it blocks on the filesystem
// watcher and translates every event into a local-origin Msg, stripping
// the sync directory prefix. It exits silently once the watcher is
// closed.
func (c *Client) localWatchLoop() {
	for {
		ev, err := c.watcher.Wait()
		if err != nil {
			return
		}

		rel, err := filepath.Rel(c.syncDir, ev.Path)
		if err != nil {
			continue
		}
		rel = filepath.ToSlash(rel)

		c.queue.Push(Msg{
			Filename: rel,
			Remote:   false,
			FileData: metadata.FileData{
				Modified: ev.Modified,
				Deleted:  ev.Status == watch.StatusDeleted,
			},
		})
	}
}
