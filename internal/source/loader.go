package source

import (
	"bytes"
	"context"
	"fmt"

	"github.com/newthinker/tradermood/internal/core"
	"github.com/newthinker/tradermood/internal/storage/archive"
)

// Loader reads CSV datasets out of archive storage.
type Loader struct {
	store archive.Storage
}

// NewLoader creates a Loader over the given storage backend.
func NewLoader(store archive.Storage) *Loader {
	return &Loader{store: store}
}

// Load reads and decodes the dataset at path. Any failure to obtain or
// decode the bytes is reported as ErrSourceUnavailable naming the path.
func (l *Loader) Load(ctx context.Context, path string) (*Table, error) {
	if path == "" {
		return nil, core.WrapError(core.ErrSourceUnavailable, fmt.Errorf("no path given"))
	}

	data, err := l.store.Read(ctx, path)
	if err != nil {
		return nil, core.WrapError(core.ErrSourceUnavailable, fmt.Errorf("%s: %w", path, err))
	}

	table, err := ReadCSV(path, bytes.NewReader(data))
	if err != nil {
		return nil, core.WrapError(core.ErrSourceUnavailable, err)
	}
	return table, nil
}

// LoadPair loads the trade and sentiment datasets. Both must be readable
// before any analysis starts; the first failure is returned.
func (l *Loader) LoadPair(ctx context.Context, tradesPath, sentimentPath string) (*Table, *Table, error) {
	trades, err := l.Load(ctx, tradesPath)
	if err != nil {
		return nil, nil, err
	}
	sentiment, err := l.Load(ctx, sentimentPath)
	if err != nil {
		return nil, nil, err
	}
	return trades, sentiment, nil
}
