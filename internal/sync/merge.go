package sync

import "github.com/opensyncd/syncd/internal/metadata"

// mergeStartup compares local and remote metadata snapshots and enqueues
// a Msg for every path where one side is strictly newer than the other.
// Equal timestamps are a no-op on both passes, matching the asymmetry
// against the apply role's staleness check (which treats ties as
// non-stale).
func mergeStartup(enqueue func(Msg), local, remote *metadata.Store) {
	for path, l := range local.Snapshot() {
		r := remote.GetFile(path)
		if l.Modified > r.Modified {
			enqueue(Msg{Filename: path, Remote: false, FileData: l})
		}
	}

	for path, r := range remote.Snapshot() {
		l := local.GetFile(path)
		if r.Modified > l.Modified {
			enqueue(Msg{Filename: path, Remote: true, FileData: r})
		}
	}
}
