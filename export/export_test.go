package export

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	exportdtest "github.com/veldt-io/exportd/internal/testing"
	"github.com/veldt-io/exportd/library"
	"github.com/veldt-io/exportd/translate"
)

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

// insertDefinition stores a definition watching the given scope and returns it.
func insertDefinition(t *testing.T, defs *Store, kind ScopeKind, scopeID, path, translatorID string) *Definition {
	t.Helper()
	def, err := NewDefinition(kind, scopeID, path, translatorID, translate.Options{})
	require.NoError(t, err)
	require.NoError(t, defs.Insert(def))
	return def
}

// seedCollection creates a collection holding one item and returns the
// collection id.
func seedCollection(t *testing.T, db *sql.DB, collectionID, libraryID string) {
	t.Helper()
	lib := library.NewStore(db)
	require.NoError(t, lib.CreateCollection(&library.Collection{
		ID: collectionID, LibraryID: libraryID, Name: "Seeded " + collectionID,
	}))
	require.NoError(t, lib.CreateItem(&library.Item{
		ID: "item-" + collectionID, LibraryID: libraryID,
		Title: "Item in " + collectionID, CollectionIDs: []string{collectionID},
	}))
}

// promotions collects promoted identities for scheduler tests.
type promotions struct {
	mu  sync.Mutex
	ids []string
}

func (p *promotions) add(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ids = append(p.ids, id)
}

func (p *promotions) list() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.ids))
	copy(out, p.ids)
	return out
}

func (p *promotions) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.ids)
}

// fakeTranslator runs an injected function; used to observe and fail runs.
type fakeTranslator struct {
	id string
	fn func(ctx context.Context, opts translate.Options, items []*library.Item, outputPath string) error
}

func (f *fakeTranslator) ID() string { return f.id }

func (f *fakeTranslator) Translate(ctx context.Context, opts translate.Options, items []*library.Item, outputPath string) error {
	return f.fn(ctx, opts, items, outputPath)
}

// newTestRunner builds a runner over a fresh database with the fake
// translator registered under id "fake".
func newTestRunner(t *testing.T, fn func(ctx context.Context, opts translate.Options, items []*library.Item, outputPath string) error) (*Runner, *Store, *sql.DB) {
	t.Helper()
	db := exportdtest.CreateTestDB(t)
	defs := NewStore(db)
	lib := library.NewStore(db)

	registry := translate.NewRegistry()
	registry.Register(&fakeTranslator{id: "fake", fn: fn})
	registry.Register(translate.NewJSONTranslator())

	runner := NewRunner(defs, lib, registry, RunnerConfig{}, testLogger())
	t.Cleanup(runner.Shutdown)
	return runner, defs, db
}
