package library

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	exportdtest "github.com/veldt-io/exportd/internal/testing"
	"github.com/veldt-io/exportd/internal/util"
)

func TestCreateAndGetCollection(t *testing.T) {
	db := exportdtest.CreateTestDB(t)
	store := NewStore(db)

	parent := &Collection{ID: "c-parent", LibraryID: "lib1", Name: "Biology"}
	require.NoError(t, store.CreateCollection(parent))

	child := &Collection{ID: "c-child", LibraryID: "lib1", ParentID: "c-parent", Name: "Genetics"}
	require.NoError(t, store.CreateCollection(child))

	got, err := store.GetCollection("c-child")
	require.NoError(t, err)
	assert.Equal(t, "c-parent", got.ParentID)
	assert.Equal(t, "Genetics", got.Name)
}

func TestParentCollection(t *testing.T) {
	db := exportdtest.CreateTestDB(t)
	store := NewStore(db)

	require.NoError(t, store.CreateCollection(&Collection{ID: "top", LibraryID: "lib1", Name: "Top"}))
	require.NoError(t, store.CreateCollection(&Collection{ID: "mid", LibraryID: "lib1", ParentID: "top", Name: "Mid"}))

	parent, ok, err := store.ParentCollection("mid")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "top", parent)

	// Top-level collection has no parent
	_, ok, err = store.ParentCollection("top")
	require.NoError(t, err)
	assert.False(t, ok)

	// Unknown collection ends the walk quietly
	_, ok, err = store.ParentCollection("ghost")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestItemsInCollectionAndLibrary(t *testing.T) {
	db := exportdtest.CreateTestDB(t)
	store := NewStore(db)

	require.NoError(t, store.CreateCollection(&Collection{ID: "c1", LibraryID: "lib1", Name: "Papers"}))

	items := []*Item{
		{ID: "i1", LibraryID: "lib1", Title: "First", Creators: "Doe, Jane", Year: util.Ptr(2021), CollectionIDs: []string{"c1"}},
		{ID: "i2", LibraryID: "lib1", Title: "Second", Creators: "Roe, Riley"},
		{ID: "i3", LibraryID: "lib2", Title: "Elsewhere"},
	}
	for _, item := range items {
		require.NoError(t, store.CreateItem(item))
	}

	inCollection, err := store.ItemsInCollection("c1")
	require.NoError(t, err)
	require.Len(t, inCollection, 1)
	assert.Equal(t, "i1", inCollection[0].ID)
	assert.Equal(t, []string{"c1"}, inCollection[0].CollectionIDs)

	inLibrary, err := store.ItemsInLibrary("lib1")
	require.NoError(t, err)
	assert.Len(t, inLibrary, 2)
}

func TestGetItemNotFound(t *testing.T) {
	db := exportdtest.CreateTestDB(t)
	store := NewStore(db)

	_, err := store.GetItem("missing")
	require.Error(t, err)
}
