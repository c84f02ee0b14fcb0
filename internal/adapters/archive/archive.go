// Package archive is the compressed cold tier. Objects are written once
// under date-partitioned keys and never rewritten; the hot store answers
// live queries while the archive keeps the full history.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"

	"github.com/kioko/matchpulse/pkg/logger"
	"github.com/kioko/matchpulse/pkg/metrics"
)

// Default archive configuration constants.
const (
	defaultRoot = "data/archive"

	compressedExt   = ".json.gz"
	uncompressedExt = ".json"
)

// Object is the archived body for one match snapshot. The event count is
// always derived from the list.
type Object struct {
	MatchID    string            `json:"match_id"`
	ArchivedAt time.Time         `json:"archived_at"`
	EventCount int               `json:"event_count"`
	Events     []json.RawMessage `json:"events"`
}

// Archive writes gzip-compressed objects to a date-partitioned tree:
// year=YYYY/month=MM/day=DD/<match_id>.json.gz.
type Archive struct {
	root      string
	level     int
	collector *metrics.Collector
	manager   *metrics.Manager
	log       logger.Logger
}

// New creates an archive rooted at the configured directory.
func New(opts ...Option) (*Archive, error) {
	a := &Archive{
		root:  defaultRoot,
		level: gzip.DefaultCompression,
		log:   logger.Named("archive"),
	}

	for _, opt := range opts {
		opt(a)
	}

	if err := os.MkdirAll(a.root, 0o755); err != nil {
		return nil, err
	}

	return a, nil
}

// Root returns the directory the object tree lives under.
func (a *Archive) Root() string {
	return a.root
}

// Key builds the date-partitioned object key for one match's snapshot.
func Key(matchID string, ts time.Time) string {
	ts = ts.UTC()
	return filepath.Join(
		fmt.Sprintf("year=%04d", ts.Year()),
		fmt.Sprintf("month=%02d", ts.Month()),
		fmt.Sprintf("day=%02d", ts.Day()),
		matchID+compressedExt,
	)
}

// ArchiveEvents wraps the encoded events of a match into an archive object
// and writes it under the day's key, returning the key.
func (a *Archive) ArchiveEvents(ctx context.Context, matchID string, ts time.Time, events []json.RawMessage) (string, error) {
	body, err := json.Marshal(Object{
		MatchID:    matchID,
		ArchivedAt: ts.UTC(),
		EventCount: len(events),
		Events:     events,
	})
	if err != nil {
		return "", err
	}
	return a.Write(ctx, Key(matchID, ts), body)
}

// Write compresses the payload and stores it under the given key. The
// object lands atomically: a torn write never becomes visible.
func (a *Archive) Write(ctx context.Context, objectKey string, payload []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path := filepath.Join(a.root, objectKey)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, a.level)
	if err != nil {
		return "", err
	}
	if _, err := zw.Write(payload); err != nil {
		return "", err
	}
	if err := zw.Close(); err != nil {
		return "", err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}

	if a.collector != nil {
		a.collector.AddObjectPuts(1)
	}
	if a.manager != nil {
		a.manager.RecordArchiveObject(buf.Len())
	}

	a.log.Debug(ctx, "object archived",
		logger.String("key", objectKey),
		logger.Int("raw_bytes", len(payload)),
		logger.Int("compressed_bytes", buf.Len()))

	return objectKey, nil
}

// Read returns the decompressed payload for a key. A compressed key falls
// back to its uncompressed twin, so objects written before compression was
// in place stay readable.
func (a *Archive) Read(ctx context.Context, objectKey string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := a.readObject(objectKey)
	if os.IsNotExist(err) && strings.HasSuffix(objectKey, compressedExt) {
		plain := strings.TrimSuffix(objectKey, compressedExt) + uncompressedExt
		data, err = a.readObject(plain)
	}
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if a.collector != nil {
		a.collector.AddObjectGets(1)
	}
	return data, nil
}

// ReadObject reads and decodes one archived match snapshot.
func (a *Archive) ReadObject(ctx context.Context, objectKey string) (*Object, error) {
	data, err := a.Read(ctx, objectKey)
	if err != nil {
		return nil, err
	}
	var obj Object
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, err
	}
	return &obj, nil
}

// List returns every object key archived for a match, sorted, which is also
// chronological given the date-partitioned layout.
func (a *Archive) List(ctx context.Context, matchID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var keys []string
	err := filepath.WalkDir(a.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasSuffix(path, ".tmp") {
			return nil
		}
		name := d.Name()
		if name != matchID+compressedExt && name != matchID+uncompressedExt {
			return nil
		}
		rel, err := filepath.Rel(a.root, path)
		if err != nil {
			return err
		}
		keys = append(keys, rel)
		return nil
	})
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	sort.Strings(keys)
	return keys, nil
}

func (a *Archive) readObject(objectKey string) ([]byte, error) {
	f, err := os.Open(filepath.Join(a.root, objectKey))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if !strings.HasSuffix(objectKey, ".gz") {
		return io.ReadAll(f)
	}

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}
