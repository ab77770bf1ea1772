// internal/archive/archive.go
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"

	"github.com/xkilldash9x/wanderer/internal/analytics"
	"github.com/xkilldash9x/wanderer/internal/config"
)

const (
	gzipSuffix  = ".gz"
	contentType = "application/x-ndjson"
)

// Archive writes fetched events as JSON lines to a local path or an
// s3://bucket/key location, and reads them back.
type Archive struct {
	region string
	logger *zap.Logger

	storeOnce sync.Once
	store     ObjectStore
	storeErr  error
}

// Option configures an Archive.
type Option func(*Archive)

// WithObjectStore replaces the S3 client, mostly for tests.
func WithObjectStore(store ObjectStore) Option {
	return func(a *Archive) {
		a.store = store
		a.storeOnce.Do(func() {})
	}
}

func New(cfg config.ArchiveConfig, logger *zap.Logger, opts ...Option) *Archive {
	a := &Archive{region: cfg.S3Region, logger: logger.Named("archive")}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// objectStore creates the S3 client on first use so that local-only runs
// never touch AWS configuration.
func (a *Archive) objectStore(ctx context.Context) (ObjectStore, error) {
	a.storeOnce.Do(func() {
		a.store, a.storeErr = newS3Store(ctx, a.region)
	})
	return a.store, a.storeErr
}

// Save writes events to dest. A ".gz" suffix selects gzip compression.
func (a *Archive) Save(ctx context.Context, dest string, events *analytics.Events) error {
	loc, err := parseLocation(dest)
	if err != nil {
		return err
	}
	data, err := Encode(events, loc.compressed())
	if err != nil {
		return fmt.Errorf("failed to encode archive %s: %w", dest, err)
	}

	if loc.isS3() {
		store, err := a.objectStore(ctx)
		if err != nil {
			return fmt.Errorf("failed to set up S3 client: %w", err)
		}
		encoding := ""
		if loc.compressed() {
			encoding = "gzip"
		}
		if err := store.Put(ctx, loc.bucket, loc.key, data, contentType, encoding); err != nil {
			return fmt.Errorf("failed to upload archive to %s: %w", dest, err)
		}
	} else if err := writeFileAtomic(loc.path, data); err != nil {
		return err
	}

	a.logger.Info("Events archived.",
		zap.String("dest", dest),
		zap.Int("events", events.Len()),
		zap.Int("bytes", len(data)))
	return nil
}

// Load reads an archive written by Save, or any export body. Gzip is
// detected from the content, so the suffix is not required.
func (a *Archive) Load(ctx context.Context, src string) (*analytics.Events, error) {
	loc, err := parseLocation(src)
	if err != nil {
		return nil, err
	}

	var data []byte
	if loc.isS3() {
		store, err := a.objectStore(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to set up S3 client: %w", err)
		}
		if data, err = store.Get(ctx, loc.bucket, loc.key); err != nil {
			return nil, fmt.Errorf("failed to download archive %s: %w", src, err)
		}
	} else if data, err = os.ReadFile(loc.path); err != nil {
		return nil, fmt.Errorf("failed to read archive: %w", err)
	}

	events, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode archive %s: %w", src, err)
	}
	a.logger.Info("Archive loaded.",
		zap.String("src", src),
		zap.Int("events", events.Len()),
		zap.Int("skipped", events.Skipped()))
	return events, nil
}

// Encode renders events as JSON lines in export record format.
func Encode(events *analytics.Events, compress bool) ([]byte, error) {
	var buf bytes.Buffer
	var w io.Writer = &buf
	var zw *gzip.Writer
	if compress {
		zw = gzip.NewWriter(&buf)
		w = zw
	}

	enc := json.NewEncoder(w)
	for ev := range events.All() {
		if err := enc.Encode(ev.Record()); err != nil {
			return nil, err
		}
	}
	if zw != nil {
		if err := zw.Close(); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// Decode reverses Encode. Lines that are not valid events are skipped the
// same way the export decoder skips them.
func Decode(data []byte) (*analytics.Events, error) {
	if isGzip(data) {
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		return analytics.Decode(zr)
	}
	return analytics.DecodeBytes(data)
}

func isGzip(data []byte) bool {
	return len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b
}

type location struct {
	path   string
	bucket string
	key    string
}

func (l location) isS3() bool { return l.bucket != "" }

func (l location) compressed() bool {
	name := l.path
	if l.isS3() {
		name = l.key
	}
	return strings.HasSuffix(strings.ToLower(name), gzipSuffix)
}

func parseLocation(s string) (location, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return location{}, fmt.Errorf("archive location is empty")
	}
	if rest, ok := strings.CutPrefix(s, "s3://"); ok {
		bucket, key, _ := strings.Cut(rest, "/")
		if bucket == "" || key == "" {
			return location{}, fmt.Errorf("invalid S3 location %q: expected s3://bucket/key", s)
		}
		return location{bucket: bucket, key: key}, nil
	}
	path, err := homedir.Expand(s)
	if err != nil {
		return location{}, fmt.Errorf("failed to expand %q: %w", s, err)
	}
	return location{path: path}, nil
}

// writeFileAtomic writes through a temp file in the same directory so that a
// reader never sees a partial archive.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write archive: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move archive into place: %w", err)
	}
	return nil
}
