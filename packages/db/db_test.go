package db

import (
	"context"
	"net/http"
	"path/filepath"
	"strings"
	"testing"

	"github.com/abdul-hamid-achik/httpspy/packages/spy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T, prefix string) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "recordings.db")

	store, err := Open(context.Background(), prefix+dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func record(t *testing.T, s *spy.Spy, method, url, body string) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("X-Request", method)
	require.NoError(t, s.Record(req))
}

func TestStore_SaveLoad(t *testing.T) {
	store := openTestStore(t, "sqlite://")
	ctx := context.Background()

	s := spy.New(spy.Detached())
	record(t, s, http.MethodGet, "http://domain/path/to/resource?param=1", "")
	record(t, s, http.MethodPost, "http://domain/path/to/resource", `{"Property":"P"}`)

	require.NoError(t, store.Save(ctx, s.Requests()))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	assert.Equal(t, http.MethodGet, loaded[0].Method())
	assert.Equal(t, "http://domain/path/to/resource?param=1", loaded[0].URL().String())
	assert.Equal(t, http.MethodPost, loaded[1].Method())
	assert.Equal(t, `{"Property":"P"}`, loaded[1].BodyString())
	assert.Equal(t, "POST", loaded[1].Header().Get("X-Request"))
	assert.Equal(t, s.Requests()[1].ID(), loaded[1].ID())
}

func TestStore_SaveIsIdempotent(t *testing.T) {
	store := openTestStore(t, "sqlite:")
	ctx := context.Background()

	s := spy.New(spy.Detached())
	record(t, s, http.MethodDelete, "http://domain/items/1", "")

	require.NoError(t, store.Save(ctx, s.Requests()))
	require.NoError(t, store.Save(ctx, s.Requests()))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded, 1)
}

func TestStore_Clear(t *testing.T) {
	store := openTestStore(t, "sqlite://")
	ctx := context.Background()

	s := spy.New(spy.Detached())
	record(t, s, http.MethodGet, "http://domain/", "")
	require.NoError(t, store.Save(ctx, s.Requests()))
	require.NoError(t, store.Clear(ctx))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestParseConnectionString(t *testing.T) {
	tests := []struct {
		name    string
		connStr string
		dsn     string
		wantErr bool
	}{
		{name: "sqlite double slash", connStr: "sqlite://./test.db", dsn: "./test.db"},
		{name: "sqlite colon", connStr: "sqlite:test.db", dsn: "test.db"},
		{name: "trims whitespace", connStr: "  sqlite:test.db ", dsn: "test.db"},
		{name: "postgres unsupported", connStr: "postgres://user@host/db", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dsn, err := parseConnectionString(tt.connStr)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedScheme)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.dsn, dsn)
		})
	}
}

func TestIsConnectionString(t *testing.T) {
	assert.True(t, IsConnectionString("sqlite:./recordings.db"))
	assert.False(t, IsConnectionString("recordings.json"))
}
