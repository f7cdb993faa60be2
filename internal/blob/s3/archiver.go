package s3blob

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"encarwatch/internal/domain"
)

// payloadPrefix is the key prefix under which raw payloads live.
const payloadPrefix = "raw/"

// PayloadArchive implements domain.PayloadArchiver by uploading raw
// acquisition payloads to S3. Each search page fetched during a cycle is
// stored verbatim so failed parses can be replayed later.
//
// Keys are partitioned by acquisition date:
//
//	raw/2025-01-15/<cycle-id>-p0.json
//	raw/2025-01-15/<cycle-id>-p1.json
type PayloadArchive struct {
	writer domain.BlobWriter
	reader domain.BlobReader
	now    func() time.Time
}

// NewPayloadArchive creates a PayloadArchive that uploads through the given
// writer and purges through the given reader.
func NewPayloadArchive(writer domain.BlobWriter, reader domain.BlobReader) *PayloadArchive {
	return &PayloadArchive{
		writer: writer,
		reader: reader,
		now:    time.Now,
	}
}

// ArchivePage uploads one page of raw search JSON for the given cycle.
// An empty payload is skipped without error.
func (a *PayloadArchive) ArchivePage(ctx context.Context, cycleID string, page int, payload []byte) error {
	if len(payload) == 0 {
		return nil
	}

	path := payloadPath(a.now().UTC(), cycleID, page)
	if err := a.writer.Put(ctx, path, bytes.NewReader(payload), "application/json"); err != nil {
		return fmt.Errorf("s3blob: archive page %d of cycle %s: %w", page, cycleID, err)
	}
	return nil
}

// PurgeBefore deletes archived payloads from days strictly before the
// cutoff and reports how many objects went. Keys whose date segment does
// not parse are left alone.
func (a *PayloadArchive) PurgeBefore(ctx context.Context, cutoff time.Time) (int, error) {
	infos, err := a.reader.List(ctx, payloadPrefix)
	if err != nil {
		return 0, fmt.Errorf("s3blob: list archived payloads: %w", err)
	}

	horizon := cutoff.UTC().Truncate(24 * time.Hour)
	deleted := 0
	for _, info := range infos {
		day, ok := payloadDay(info.Path)
		if !ok || !day.Before(horizon) {
			continue
		}
		if err := a.reader.Delete(ctx, info.Path); err != nil {
			return deleted, fmt.Errorf("s3blob: purge %s: %w", info.Path, err)
		}
		deleted++
	}
	return deleted, nil
}

// payloadPath builds the S3 key for a raw payload page, partitioned by the
// day it was acquired.
func payloadPath(at time.Time, cycleID string, page int) string {
	return fmt.Sprintf("%s%s/%s-p%d.json", payloadPrefix, at.Format("2006-01-02"), cycleID, page)
}

// payloadDay extracts the date partition from an archived payload key.
func payloadDay(path string) (time.Time, bool) {
	rest := strings.TrimPrefix(path, payloadPrefix)
	day, _, found := strings.Cut(rest, "/")
	if !found {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", day)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

var _ domain.PayloadArchiver = (*PayloadArchive)(nil)
