// Package library provides the reference library model backing exports:
// items, nestable collections, and item membership. The change router and
// the built-in translators both read from here.
package library

import (
	"time"
)

// Collection is a named, optionally nested grouping of items within a library.
type Collection struct {
	ID        string    `json:"id"`
	LibraryID string    `json:"library_id"`
	ParentID  string    `json:"parent_id,omitempty"` // empty = top-level
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Item is a single library entry. CollectionIDs carries the item's direct
// collection memberships when loaded via GetItem/ItemsIn*.
type Item struct {
	ID            string    `json:"id"`
	LibraryID     string    `json:"library_id"`
	Title         string    `json:"title"`
	Creators      string    `json:"creators"` // semicolon-separated "Family, Given" names
	Year          *int      `json:"year,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	CollectionIDs []string  `json:"collection_ids,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// AncestorLookup resolves a collection's parent. The change router walks
// this to mark every ancestor of a touched collection as touched too.
type AncestorLookup interface {
	// ParentCollection returns the parent id of the given collection and
	// whether a parent exists. A missing collection reports no parent.
	ParentCollection(collectionID string) (string, bool, error)
}
