package sync

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/opensyncd/syncd/internal/syncerr"
)

// applyLoop is the sole consumer of the event queue. It runs until the
// queue reports shutdown.
func (c *Client) applyLoop() {
	for {
		msg, ok := c.queue.PopBlocking()
		if !ok {
			return
		}
		c.applyOne(msg)
	}
}

// applyOne processes a single Msg: staleness check, then dispatch to the
// remote- or local-origin branch, then (on success) advance local
// metadata and persist the snapshot.
func (c *Client) applyOne(msg Msg) {
	cur := c.meta.GetFile(msg.Filename)
	if msg.FileData.Deleted == cur.Deleted && msg.FileData.Modified < cur.Modified {
		slog.Debug("stale event dropped", "path", msg.Filename, "modified", msg.FileData.Modified, "current", cur.Modified)
		return
	}

	var err error
	if msg.Remote {
		err = c.applyRemote(msg)
	} else {
		err = c.applyLocal(msg)
	}
	if err != nil {
		// A FilesystemError leaves the metadata unadvanced for this path
		// so the next merge cycle can retry it.
		slog.Error("apply failed", "path", msg.Filename, "remote", msg.Remote, "error", err)
		return
	}

	c.meta.Set(msg.Filename, msg.FileData)
	if err := c.meta.SaveSnapshot(c.metaPath); err != nil {
		slog.Warn("metadata snapshot persist failed", "path", c.metaPath, "error", err)
	}
}

// applyRemote writes a remote-origin Msg to the filesystem, bracketing
// the entire mutation (including the mtime fix-up) with a watcher
// disregard/regard pair so the write is never observed as a phantom
// local-origin event.
func (c *Client) applyRemote(msg Msg) error {
	absPath := filepath.Join(c.syncDir, filepath.FromSlash(msg.Filename))

	c.watcher.Disregard(absPath)
	defer c.watcher.Regard(absPath)

	if msg.FileData.Deleted {
		if err := os.RemoveAll(absPath); err != nil {
			return syncerr.NewFilesystemError(absPath, err)
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return syncerr.NewFilesystemError(absPath, err)
	}

	f, err := os.Create(absPath)
	if err != nil {
		return syncerr.NewFilesystemError(absPath, err)
	}

	getErr := c.conn.GetFile(msg.Filename, msg.FileData.Modified, f)
	closeErr := f.Close()
	if getErr != nil {
		return syncerr.NewTransportError("get_file", getErr)
	}
	if closeErr != nil {
		return syncerr.NewFilesystemError(absPath, closeErr)
	}

	modTime := time.Unix(msg.FileData.Modified, 0)
	if err := os.Chtimes(absPath, time.Now(), modTime); err != nil {
		return syncerr.NewFilesystemError(absPath, err)
	}

	if info, err := os.Stat(absPath); err == nil {
		slog.Info("applied remote file", "path", msg.Filename, "size", humanize.Bytes(uint64(info.Size())))
	}
	return nil
}

// applyLocal pushes a local-origin Msg to the connector. Connector
// errors here are logged at WARNING and swallowed: the local filesystem
// already reflects the new state, so metadata still advances even when
// the best-effort push fails.
func (c *Client) applyLocal(msg Msg) error {
	if msg.FileData.Deleted {
		if err := c.conn.DeleteFile(msg.Filename, msg.FileData.Modified); err != nil {
			slog.Warn("delete_file failed", "path", msg.Filename, "error", err)
		}
		return nil
	}

	absPath := filepath.Join(c.syncDir, filepath.FromSlash(msg.Filename))
	f, err := os.Open(absPath)
	if err != nil {
		return syncerr.NewFilesystemError(absPath, err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return syncerr.NewFilesystemError(absPath, err)
	}

	if err := c.conn.PushFile(msg.Filename, stat.ModTime().Unix(), f, stat.Size()); err != nil {
		slog.Warn("push_file failed", "path", msg.Filename, "size", humanize.Bytes(uint64(stat.Size())), "error", err)
		return nil
	}
	slog.Info("pushed file", "path", msg.Filename, "size", humanize.Bytes(uint64(stat.Size())))
	return nil
}
