package export

import (
	"sort"

	"go.uber.org/zap"

	"github.com/veldt-io/exportd/bus"
	"github.com/veldt-io/exportd/errors"
	"github.com/veldt-io/exportd/library"
)

// ChangeRouter translates low-level item mutations into coarse scope-change
// events. For each batch it computes the set of touched library ids and the
// set of touched collection ids, where touching a nested collection also
// touches every ancestor up to the top level. Sets are deduplicated within
// the batch; an ancestor already recorded is not re-walked.
type ChangeRouter struct {
	ancestors library.AncestorLookup
	bus       *bus.Bus
	logger    *zap.SugaredLogger
}

// NewChangeRouter creates a router emitting onto the given bus.
func NewChangeRouter(ancestors library.AncestorLookup, b *bus.Bus, logger *zap.SugaredLogger) *ChangeRouter {
	return &ChangeRouter{
		ancestors: ancestors,
		bus:       b,
		logger:    logger,
	}
}

// Changed processes a batch of mutated items and emits at most two events:
// collections.changed and libraries.changed, each only if non-empty.
func (r *ChangeRouter) Changed(items []*library.Item) error {
	libraries := make(map[string]bool)
	collections := make(map[string]bool)

	for _, item := range items {
		if item.LibraryID != "" {
			libraries[item.LibraryID] = true
		}
		for _, collectionID := range item.CollectionIDs {
			if err := r.walkAncestry(collectionID, collections); err != nil {
				return err
			}
		}
	}

	if len(collections) > 0 {
		ids := sortedKeys(collections)
		r.logger.Debugw("Collections changed", "ids", ids)
		r.bus.Emit(EventCollectionsChanged, ids)
	}
	if len(libraries) > 0 {
		ids := sortedKeys(libraries)
		r.logger.Debugw("Libraries changed", "ids", ids)
		r.bus.Emit(EventLibrariesChanged, ids)
	}
	return nil
}

// walkAncestry records the collection and each of its ancestors, stopping at
// a collection with no parent or one already seen this batch.
func (r *ChangeRouter) walkAncestry(collectionID string, seen map[string]bool) error {
	id := collectionID
	for id != "" && !seen[id] {
		seen[id] = true

		parent, ok, err := r.ancestors.ParentCollection(id)
		if err != nil {
			return errors.Wrapf(err, "ancestor walk from collection %s", collectionID)
		}
		if !ok {
			break
		}
		id = parent
	}
	return nil
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
