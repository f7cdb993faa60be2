package s3blob

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"encarwatch/internal/domain"
)

// memBlobs is an in-memory object store backing both sides of the
// archive in tests.
type memBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemBlobs() *memBlobs {
	return &memBlobs{objects: make(map[string][]byte)}
}

func (m *memBlobs) Put(ctx context.Context, path string, data io.Reader, contentType string) error {
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[path] = b
	return nil
}

func (m *memBlobs) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (m *memBlobs) List(ctx context.Context, prefix string) ([]domain.BlobInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.BlobInfo
	for path, b := range m.objects {
		if strings.HasPrefix(path, prefix) {
			out = append(out, domain.BlobInfo{Path: path, Size: int64(len(b))})
		}
	}
	return out, nil
}

func (m *memBlobs) Delete(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, path)
	return nil
}

func TestArchivePagePartitionsByDay(t *testing.T) {
	blobs := newMemBlobs()
	a := NewPayloadArchive(blobs, blobs)
	a.now = func() time.Time {
		return time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	}

	if err := a.ArchivePage(context.Background(), "cycle-1", 0, []byte(`{"Count":0}`)); err != nil {
		t.Fatalf("ArchivePage: %v", err)
	}
	if _, ok := blobs.objects["raw/2026-08-31/cycle-1-p0.json"]; !ok {
		t.Fatalf("unexpected keys: %v", blobs.objects)
	}
}

func TestArchivePageSkipsEmptyPayload(t *testing.T) {
	blobs := newMemBlobs()
	a := NewPayloadArchive(blobs, blobs)

	if err := a.ArchivePage(context.Background(), "cycle-1", 0, nil); err != nil {
		t.Fatalf("ArchivePage: %v", err)
	}
	if len(blobs.objects) != 0 {
		t.Errorf("empty payload archived: %v", blobs.objects)
	}
}

func TestPurgeBeforeDeletesExpiredDays(t *testing.T) {
	blobs := newMemBlobs()
	blobs.objects["raw/2026-07-01/old-p0.json"] = []byte("{}")
	blobs.objects["raw/2026-07-01/old-p1.json"] = []byte("{}")
	blobs.objects["raw/2026-08-30/fresh-p0.json"] = []byte("{}")
	blobs.objects["raw/oddkey.json"] = []byte("{}")

	a := NewPayloadArchive(blobs, blobs)
	cutoff := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	deleted, err := a.PurgeBefore(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("PurgeBefore: %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}
	for _, keep := range []string{"raw/2026-08-30/fresh-p0.json", "raw/oddkey.json"} {
		if _, ok := blobs.objects[keep]; !ok {
			t.Errorf("%s purged, want kept", keep)
		}
	}
	if _, ok := blobs.objects["raw/2026-07-01/old-p0.json"]; ok {
		t.Error("expired payload survived purge")
	}
}
