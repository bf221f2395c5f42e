package library

import (
	"database/sql"
	"time"

	"github.com/veldt-io/exportd/errors"
)

// Store handles persistence of library items and collections.
type Store struct {
	db *sql.DB
}

// NewStore creates a library store on an open database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateCollection inserts a new collection. ParentID may be empty for a
// top-level collection.
func (s *Store) CreateCollection(c *Collection) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}

	parentID := sql.NullString{String: c.ParentID, Valid: c.ParentID != ""}

	_, err := s.db.Exec(`
		INSERT INTO collections (id, library_id, parent_id, name, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.LibraryID, parentID, c.Name, c.CreatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to create collection")
	}
	return nil
}

// GetCollection retrieves a collection by id.
func (s *Store) GetCollection(id string) (*Collection, error) {
	var c Collection
	var parentID sql.NullString

	err := s.db.QueryRow(`
		SELECT id, library_id, parent_id, name, created_at
		FROM collections WHERE id = ?`, id,
	).Scan(&c.ID, &c.LibraryID, &parentID, &c.Name, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFoundError("collection %s", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get collection")
	}

	c.ParentID = parentID.String
	return &c, nil
}

// ParentCollection implements AncestorLookup. A collection that does not
// exist reports no parent rather than an error, so a stale id ends an
// ancestor walk instead of aborting the batch.
func (s *Store) ParentCollection(collectionID string) (string, bool, error) {
	var parentID sql.NullString
	err := s.db.QueryRow(`SELECT parent_id FROM collections WHERE id = ?`, collectionID).Scan(&parentID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "failed to look up parent collection")
	}
	return parentID.String, parentID.Valid && parentID.String != "", nil
}

// CreateItem inserts a new item and records its collection memberships.
func (s *Store) CreateItem(item *Item) error {
	now := time.Now()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now

	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, "failed to begin tx")
	}

	_, err = tx.Exec(`
		INSERT INTO items (id, library_id, title, creators, year, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.LibraryID, item.Title, item.Creators, item.Year, item.Notes,
		item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		tx.Rollback()
		return errors.Wrap(err, "failed to create item")
	}

	for _, collectionID := range item.CollectionIDs {
		if _, err := tx.Exec(`
			INSERT INTO item_collections (item_id, collection_id) VALUES (?, ?)`,
			item.ID, collectionID,
		); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "failed to add item %s to collection %s", item.ID, collectionID)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit item")
	}
	return nil
}

// GetItem retrieves an item with its collection memberships.
func (s *Store) GetItem(id string) (*Item, error) {
	var item Item
	err := s.db.QueryRow(`
		SELECT id, library_id, title, creators, year, notes, created_at, updated_at
		FROM items WHERE id = ?`, id,
	).Scan(&item.ID, &item.LibraryID, &item.Title, &item.Creators, &item.Year,
		&item.Notes, &item.CreatedAt, &item.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFoundError("item %s", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get item")
	}

	memberships, err := s.itemCollections(item.ID)
	if err != nil {
		return nil, err
	}
	item.CollectionIDs = memberships

	return &item, nil
}

// ItemsInCollection returns the items directly contained in a collection,
// oldest first.
func (s *Store) ItemsInCollection(collectionID string) ([]*Item, error) {
	rows, err := s.db.Query(`
		SELECT i.id, i.library_id, i.title, i.creators, i.year, i.notes, i.created_at, i.updated_at
		FROM items i
		JOIN item_collections ic ON ic.item_id = i.id
		WHERE ic.collection_id = ?
		ORDER BY i.created_at ASC`, collectionID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list items in collection")
	}
	defer rows.Close()

	return s.scanItems(rows, "collection items")
}

// ItemsInLibrary returns every item in a library, oldest first.
func (s *Store) ItemsInLibrary(libraryID string) ([]*Item, error) {
	rows, err := s.db.Query(`
		SELECT id, library_id, title, creators, year, notes, created_at, updated_at
		FROM items
		WHERE library_id = ?
		ORDER BY created_at ASC`, libraryID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list items in library")
	}
	defer rows.Close()

	return s.scanItems(rows, "library items")
}

func (s *Store) itemCollections(itemID string) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT collection_id FROM item_collections WHERE item_id = ? ORDER BY collection_id`, itemID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list item collections")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "failed to scan collection id")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating item collections")
	}
	return ids, nil
}

func (s *Store) scanItems(rows *sql.Rows, context string) ([]*Item, error) {
	var items []*Item
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.LibraryID, &item.Title, &item.Creators,
			&item.Year, &item.Notes, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan item")
		}
		items = append(items, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "error iterating %s", context)
	}

	// Load memberships so routers/translators see direct collections
	for _, item := range items {
		memberships, err := s.itemCollections(item.ID)
		if err != nil {
			return nil, err
		}
		item.CollectionIDs = memberships
	}

	return items, nil
}
