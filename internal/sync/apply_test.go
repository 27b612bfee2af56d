package sync

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/opensyncd/syncd/internal/metadata"
	"github.com/opensyncd/syncd/internal/queue"
	"github.com/opensyncd/syncd/internal/watch"
)

func newTestClient(t *testing.T, conn *fakeConnector) (*Client, string) {
	t.Helper()
	dir := t.TempDir()

	w, err := watch.New()
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })
	require.NoError(t, w.AddWatch(dir, true))

	c := &Client{
		syncDir:  dir,
		conn:     conn,
		watcher:  w,
		meta:     metadata.New(),
		metaPath: filepath.Join(dir, ".meta.json"),
		queue:    queue.NewFIFO[Msg](),
	}
	return c, dir
}

// TestApplyOne_LocalCreatePushesToConnector checks a local create is
// pushed to the connector with the right path, mtime, and size.
func TestApplyOne_LocalCreatePushesToConnector(t *testing.T) {
	conn := newFakeConnector(metadata.New())
	c, dir := newTestClient(t, conn)

	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))
	mtime := time.Unix(100, 0)
	require.NoError(t, os.Chtimes(path, mtime, mtime))

	c.applyOne(Msg{Filename: "a.txt", Remote: false, FileData: metadata.FileData{Modified: 100}})

	require.Equal(t, 1, conn.pushCount())
	push := conn.lastPush()
	require.Equal(t, "a.txt", push.Path)
	require.Equal(t, int64(100), push.Modified)
	require.Equal(t, []byte("hello"), push.Data)

	require.Equal(t, int64(100), c.meta.GetFile("a.txt").Modified)
}

// TestApplyOne_RemoteCreateWritesContentAndMtime checks a remote create
// writes content and sets the mtime to the remote-supplied value.
func TestApplyOne_RemoteCreateWritesContentAndMtime(t *testing.T) {
	conn := newFakeConnector(metadata.New())
	conn.setFile("b.txt", []byte("remote-bytes"))
	c, dir := newTestClient(t, conn)

	c.applyOne(Msg{Filename: "b.txt", Remote: true, FileData: metadata.FileData{Modified: 200}})

	data, err := os.ReadFile(filepath.Join(dir, "b.txt"))
	require.NoError(t, err)
	require.Equal(t, []byte("remote-bytes"), data)

	info, err := os.Stat(filepath.Join(dir, "b.txt"))
	require.NoError(t, err)
	require.Equal(t, int64(200), info.ModTime().Unix())

	require.Equal(t, int64(200), c.meta.GetFile("b.txt").Modified)
}

// TestApplyOne_StaleRemoteUpdateIsDropped checks a stale remote update is
// dropped: no file is written and metadata keeps the newer record.
func TestApplyOne_StaleRemoteUpdateIsDropped(t *testing.T) {
	conn := newFakeConnector(metadata.New())
	c, dir := newTestClient(t, conn)
	c.meta.Set("c.txt", metadata.FileData{Modified: 500, Deleted: false})

	c.applyOne(Msg{Filename: "c.txt", Remote: true, FileData: metadata.FileData{Modified: 300, Deleted: false}})

	_, statErr := os.Stat(filepath.Join(dir, "c.txt"))
	require.True(t, os.IsNotExist(statErr))
	require.Equal(t, int64(500), c.meta.GetFile("c.txt").Modified)
}

// TestApplyOne_TieIsNotStale documents an intentional asymmetry: an equal
// modified+deleted pair is processed (not dropped) by apply, even though
// the startup merge treats the same tie as a no-op.
func TestApplyOne_TieIsNotStale(t *testing.T) {
	conn := newFakeConnector(metadata.New())
	conn.setFile("d.txt", []byte("same-time"))
	c, _ := newTestClient(t, conn)
	c.meta.Set("d.txt", metadata.FileData{Modified: 42, Deleted: false})

	c.applyOne(Msg{Filename: "d.txt", Remote: true, FileData: metadata.FileData{Modified: 42, Deleted: false}})

	data, err := os.ReadFile(filepath.Join(c.syncDir, "d.txt"))
	require.NoError(t, err)
	require.Equal(t, []byte("same-time"), data)
}

// TestApplyOne_RemoteDeleteRemovesRecursively covers a remote tombstone
// against a directory tree.
func TestApplyOne_RemoteDeleteRemovesRecursively(t *testing.T) {
	conn := newFakeConnector(metadata.New())
	c, dir := newTestClient(t, conn)

	nested := filepath.Join(dir, "sub", "e.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(nested), 0o755))
	require.NoError(t, os.WriteFile(nested, []byte("x"), 0o644))

	c.applyOne(Msg{Filename: "sub", Remote: true, FileData: metadata.FileData{Modified: 99, Deleted: true}})

	_, statErr := os.Stat(filepath.Join(dir, "sub"))
	require.True(t, os.IsNotExist(statErr))
	require.True(t, c.meta.GetFile("sub").Deleted)
}

// TestApplyOne_LocalDeleteTombstonesRemote covers a local-origin delete
// reaching the connector's delete_file.
func TestApplyOne_LocalDeleteTombstonesRemote(t *testing.T) {
	conn := newFakeConnector(metadata.New())
	c, _ := newTestClient(t, conn)

	c.applyOne(Msg{Filename: "f.txt", Remote: false, FileData: metadata.FileData{Modified: 77, Deleted: true}})

	require.Equal(t, 1, conn.deleteCount())
	require.True(t, c.meta.GetFile("f.txt").Deleted)
}

// TestApplyOne_RemoteWriteFailureLeavesMetadataUnadvanced documents the
// FilesystemError policy: when the remote-origin write itself fails,
// metadata is not advanced for that path so the next merge cycle can
// retry it.
func TestApplyOne_RemoteWriteFailureLeavesMetadataUnadvanced(t *testing.T) {
	conn := newFakeConnector(metadata.New())
	// no file registered under this path, so GetFile writes zero bytes
	// successfully; instead force a filesystem failure by routing the
	// Msg's path through a regular file, which cannot hold a subdirectory.
	c, dir := newTestClient(t, conn)
	blocker := filepath.Join(dir, "blocked")
	require.NoError(t, os.WriteFile(blocker, []byte("not a dir"), 0o644))

	c.applyOne(Msg{Filename: "blocked/g.txt", Remote: true, FileData: metadata.FileData{Modified: 1}})

	require.True(t, c.meta.GetFile("blocked/g.txt").Deleted)
}
