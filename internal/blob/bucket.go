package blob

import (
	"context"
	"fmt"
	"log/slog"

	"xetra/internal/tabular"
)

// Bucket reads and writes tabular frames through a Backend.
type Bucket struct {
	backend Backend
	logger  *slog.Logger
}

// NewBucket returns a Bucket over backend.
func NewBucket(backend Backend, logger *slog.Logger) *Bucket {
	return &Bucket{backend: backend, logger: logger}
}

func (b *Bucket) String() string { return b.backend.String() }

// List returns the keys under prefix.
func (b *Bucket) List(ctx context.Context, prefix string) ([]string, error) {
	return b.backend.List(ctx, prefix)
}

// Read fetches key and decodes it with enc. A missing key yields an error
// wrapping ErrNotFound.
func (b *Bucket) Read(ctx context.Context, key string, enc tabular.Encoding) (*tabular.Frame, error) {
	if !enc.Valid() {
		return nil, fmt.Errorf("reading %s: %w: %q", key, tabular.ErrUnsupportedEncoding, string(enc))
	}
	b.logger.Info("reading object", "key", key, "encoding", string(enc))

	data, err := b.backend.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	f, err := tabular.Decode(enc, data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", key, err)
	}
	return f, nil
}

// Write encodes f with enc and stores it at key. An empty frame is not
// written.
func (b *Bucket) Write(ctx context.Context, f *tabular.Frame, key string, enc tabular.Encoding) error {
	if f.Empty() {
		b.logger.Info("frame is empty, nothing written", "key", key)
		return nil
	}
	if !enc.Valid() {
		b.logger.Error("unsupported encoding, nothing written", "key", key, "encoding", string(enc))
		return fmt.Errorf("writing %s: %w: %q", key, tabular.ErrUnsupportedEncoding, string(enc))
	}

	data, err := tabular.Encode(enc, f)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	if err := b.backend.Put(ctx, key, data); err != nil {
		return err
	}
	b.logger.Info("object written", "key", key, "rows", f.Len(), "bytes", len(data))
	return nil
}
