package sync

import (
	"bytes"
	"io"
	"sync"

	"github.com/opensyncd/syncd/internal/metadata"
)

// fakeConnector is an in-memory stand-in for connector.Connector, used to
// exercise the sync engine without a real socket transport.
type fakeConnector struct {
	mu       sync.Mutex
	snapshot *metadata.Store
	files    map[string][]byte

	pushes  []pushCall
	deletes []deleteCall

	waitCh    chan waitResult
	closed    chan struct{}
	closeOnce sync.Once
}

type pushCall struct {
	Path     string
	Modified int64
	Data     []byte
}

type deleteCall struct {
	Path     string
	Modified int64
}

type waitResult struct {
	path string
	fd   metadata.FileData
}

func newFakeConnector(snapshot *metadata.Store) *fakeConnector {
	return &fakeConnector{
		snapshot: snapshot,
		files:    make(map[string][]byte),
		waitCh:   make(chan waitResult, 16),
		closed:   make(chan struct{}),
	}
}

func (f *fakeConnector) GetMetadata() (*metadata.Store, error) {
	out := metadata.New()
	for path, fd := range f.snapshot.Snapshot() {
		out.Set(path, fd)
	}
	return out, nil
}

func (f *fakeConnector) GetFile(path string, expectedModified int64, sink io.Writer) error {
	f.mu.Lock()
	data := f.files[path]
	f.mu.Unlock()
	_, err := sink.Write(data)
	return err
}

func (f *fakeConnector) PushFile(path string, modified int64, source io.Reader, size int64) error {
	data, err := io.ReadAll(source)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.pushes = append(f.pushes, pushCall{Path: path, Modified: modified, Data: data})
	f.mu.Unlock()
	return nil
}

func (f *fakeConnector) DeleteFile(path string, modified int64) error {
	f.mu.Lock()
	f.deletes = append(f.deletes, deleteCall{Path: path, Modified: modified})
	f.mu.Unlock()
	return nil
}

func (f *fakeConnector) Wait() (string, metadata.FileData, error) {
	select {
	case r := <-f.waitCh:
		return r.path, r.fd, nil
	case <-f.closed:
		return "", metadata.FileData{}, io.ErrClosedPipe
	}
}

func (f *fakeConnector) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

// push simulates the remote peer pushing an unsolicited update.
func (f *fakeConnector) push(path string, fd metadata.FileData) {
	f.waitCh <- waitResult{path: path, fd: fd}
}

func (f *fakeConnector) setFile(path string, content []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[path] = bytes.Clone(content)
}

func (f *fakeConnector) pushCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pushes)
}

func (f *fakeConnector) lastPush() pushCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pushes[len(f.pushes)-1]
}

func (f *fakeConnector) deleteCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.deletes)
}
