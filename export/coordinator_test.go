package export

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veldt-io/exportd/bus"
	"github.com/veldt-io/exportd/config"
	exportdtest "github.com/veldt-io/exportd/internal/testing"
	"github.com/veldt-io/exportd/library"
	"github.com/veldt-io/exportd/translate"
)

func newTestCoordinator(t *testing.T, mode string, fn func(ctx context.Context, opts translate.Options, items []*library.Item, outputPath string) error) (*Coordinator, *bus.Bus, *sql.DB) {
	t.Helper()
	db := exportdtest.CreateTestDB(t)
	b := bus.New(testLogger())

	registry := translate.NewRegistry()
	registry.Register(&fakeTranslator{id: "fake", fn: fn})

	cfg := &config.Config{}
	cfg.AutoExport.Mode = mode
	cfg.AutoExport.QuietPeriodMS = 40
	coord := NewCoordinator(db, b, registry, cfg, testLogger())
	t.Cleanup(coord.Shutdown)
	return coord, b, db
}

func TestAddReplacesDefinitionAtPath(t *testing.T) {
	coord, _, _ := newTestCoordinator(t, config.ModeImmediate, nil)

	first, err := NewDefinition(ScopeCollection, "c1", "/tmp/out.fake", "fake", translate.Options{})
	require.NoError(t, err)
	require.NoError(t, coord.Add(first))

	second, err := NewDefinition(ScopeLibrary, "lib1", "/tmp/out.fake", "fake", translate.Options{})
	require.NoError(t, err)
	require.NoError(t, coord.Add(second))

	all, err := coord.Definitions().List()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, second.ID, all[0].ID)
	assert.Equal(t, ScopeLibrary, all[0].ScopeKind)
}

func TestChangedFlowsThroughToExport(t *testing.T) {
	exported := make(chan string, 4)
	coord, _, db := newTestCoordinator(t, config.ModeImmediate, func(ctx context.Context, opts translate.Options, items []*library.Item, outputPath string) error {
		exported <- outputPath
		return nil
	})
	seedCollection(t, db, "c1", "lib1")

	def, err := NewDefinition(ScopeCollection, "c1", "/tmp/c1.fake", "fake", translate.Options{})
	require.NoError(t, err)
	require.NoError(t, coord.Add(def))

	lib := library.NewStore(db)
	item, err := lib.GetItem("item-c1")
	require.NoError(t, err)
	require.NoError(t, coord.Changed([]*library.Item{item}))

	select {
	case path := <-exported:
		assert.Equal(t, "/tmp/c1.fake", path)
	case <-time.After(2 * time.Second):
		t.Fatal("export never ran")
	}

	coord.Runner().Wait()
	got, err := coord.Definitions().Get(def.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDone, got.Status)
}

func TestChangedInNestedCollectionReachesAncestorWatch(t *testing.T) {
	exported := make(chan string, 4)
	coord, _, db := newTestCoordinator(t, config.ModeImmediate, func(ctx context.Context, opts translate.Options, items []*library.Item, outputPath string) error {
		exported <- outputPath
		return nil
	})

	lib := library.NewStore(db)
	nestedCollections(t, lib)
	require.NoError(t, lib.CreateItem(&library.Item{
		ID: "i1", LibraryID: "lib1", Title: "Leaf item", CollectionIDs: []string{"c3"},
	}))

	// Watch sits on the top of the tree; the mutation lands in the leaf
	def, err := NewDefinition(ScopeCollection, "c1", "/tmp/top.fake", "fake", translate.Options{})
	require.NoError(t, err)
	require.NoError(t, coord.Add(def))

	item, err := lib.GetItem("i1")
	require.NoError(t, err)
	require.NoError(t, coord.Changed([]*library.Item{item}))

	select {
	case path := <-exported:
		assert.Equal(t, "/tmp/top.fake", path)
	case <-time.After(2 * time.Second):
		t.Fatal("ancestor watch never fired")
	}
}

func TestRemoveEventCancelsPendingWork(t *testing.T) {
	exported := make(chan string, 4)
	coord, b, db := newTestCoordinator(t, config.ModeImmediate, func(ctx context.Context, opts translate.Options, items []*library.Item, outputPath string) error {
		exported <- outputPath
		return nil
	})
	seedCollection(t, db, "c1", "lib1")

	def, err := NewDefinition(ScopeCollection, "c1", "/tmp/c1.fake", "fake", translate.Options{})
	require.NoError(t, err)
	require.NoError(t, coord.Add(def))

	require.NoError(t, coord.Schedule(ScopeCollection, []string{"c1"}))
	b.Emit(EventCollectionsRemoved, []string{"c1"})

	// The debounce wait was cancelled along with the definition
	time.Sleep(150 * time.Millisecond)
	assert.Empty(t, exported)

	all, err := coord.Definitions().List()
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRunBypassesDebounceAndMode(t *testing.T) {
	exported := make(chan string, 4)
	coord, _, db := newTestCoordinator(t, config.ModeOff, func(ctx context.Context, opts translate.Options, items []*library.Item, outputPath string) error {
		exported <- outputPath
		return nil
	})
	seedCollection(t, db, "c1", "lib1")

	def, err := NewDefinition(ScopeCollection, "c1", "/tmp/c1.fake", "fake", translate.Options{})
	require.NoError(t, err)
	require.NoError(t, coord.Add(def))

	// Mode off gates the scheduler, not a direct run
	require.NoError(t, coord.Run(def.ID))

	select {
	case <-exported:
	case <-time.After(2 * time.Second):
		t.Fatal("direct run never executed")
	}
}

func TestModeOffHoldsScheduledWork(t *testing.T) {
	exported := make(chan string, 4)
	coord, b, db := newTestCoordinator(t, config.ModeOff, func(ctx context.Context, opts translate.Options, items []*library.Item, outputPath string) error {
		exported <- outputPath
		return nil
	})
	seedCollection(t, db, "c1", "lib1")

	def, err := NewDefinition(ScopeCollection, "c1", "/tmp/c1.fake", "fake", translate.Options{})
	require.NoError(t, err)
	require.NoError(t, coord.Add(def))

	require.NoError(t, coord.Schedule(ScopeCollection, []string{"c1"}))
	time.Sleep(150 * time.Millisecond)
	assert.Empty(t, exported)

	// A preference flip mid-flight releases the retained work
	b.Emit(EventPreferencesChanged, config.ModeImmediate)

	select {
	case <-exported:
	case <-time.After(2 * time.Second):
		t.Fatal("retained work never ran after mode switch")
	}
}

func TestInitReenqueuesIncomplete(t *testing.T) {
	exported := make(chan string, 4)
	coord, _, db := newTestCoordinator(t, config.ModeImmediate, func(ctx context.Context, opts translate.Options, items []*library.Item, outputPath string) error {
		exported <- outputPath
		return nil
	})
	seedCollection(t, db, "c1", "lib1")

	interrupted, err := NewDefinition(ScopeCollection, "c1", "/tmp/interrupted.fake", "fake", translate.Options{})
	require.NoError(t, err)
	interrupted.Status = StatusRunning
	require.NoError(t, coord.Add(interrupted))

	settled, err := NewDefinition(ScopeCollection, "c1", "/tmp/settled.fake", "fake", translate.Options{})
	require.NoError(t, err)
	require.NoError(t, coord.Add(settled))

	require.NoError(t, coord.Init())
	coord.Runner().Wait()

	require.Len(t, exported, 1)
	assert.Equal(t, "/tmp/interrupted.fake", <-exported)

	got, err := coord.Definitions().Get(interrupted.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDone, got.Status)
}
