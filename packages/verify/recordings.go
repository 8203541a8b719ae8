package verify

import (
	"context"
	"fmt"

	"github.com/abdul-hamid-achik/httpspy/packages/db"
	"github.com/abdul-hamid-achik/httpspy/packages/export"
	"github.com/abdul-hamid-achik/httpspy/packages/spy"
)

// LoadRecordings reads recorded requests from source: a .json, .yaml or .yml
// export, or a SQLite store named "sqlite:<path>".
func LoadRecordings(ctx context.Context, source string) ([]*spy.RecordedRequest, error) {
	if db.IsConnectionString(source) {
		store, err := db.Open(ctx, source)
		if err != nil {
			return nil, err
		}
		defer store.Close()

		return store.Load(ctx)
	}

	requests, err := export.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("failed to load recordings from %s: %w", source, err)
	}
	return requests, nil
}

// Run loads recordings and expectations and evaluates them.
func Run(ctx context.Context, recordingsSource, expectationsPath string) (*Report, error) {
	requests, err := LoadRecordings(ctx, recordingsSource)
	if err != nil {
		return nil, err
	}

	f, err := Load(expectationsPath)
	if err != nil {
		return nil, err
	}

	return Evaluate(f, requests), nil
}
