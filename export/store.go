package export

import (
	"database/sql"
	"strings"
	"time"

	"github.com/veldt-io/exportd/errors"
)

// Store handles persistence of watch definitions. It is the single source of
// truth for definition status: every status mutation is a read-modify-write
// against this store.
type Store struct {
	db *sql.DB
}

// NewStore creates a definition store on an open database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const definitionColumns = `id, scope_kind, scope_id, path, translator_id, options, status, last_error, created_at, updated_at`

// Insert adds a new definition.
func (s *Store) Insert(def *Definition) error {
	opts, err := marshalOptions(def.Options)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO export_definitions (`+definitionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		def.ID, def.ScopeKind, def.ScopeID, def.Path, def.TranslatorID,
		opts, def.Status, def.LastError, def.CreatedAt, def.UpdatedAt,
	)
	if err != nil {
		err = errors.Wrap(err, "failed to insert definition")
		err = errors.WithDetailf(err, "Definition ID: %s", def.ID)
		err = errors.WithDetailf(err, "Path: %s", def.Path)
		return err
	}
	return nil
}

// Update rewrites an existing definition.
func (s *Store) Update(def *Definition) error {
	opts, err := marshalOptions(def.Options)
	if err != nil {
		return err
	}

	def.UpdatedAt = time.Now()
	_, err = s.db.Exec(`
		UPDATE export_definitions
		SET scope_kind = ?, scope_id = ?, path = ?, translator_id = ?,
		    options = ?, status = ?, last_error = ?, updated_at = ?
		WHERE id = ?`,
		def.ScopeKind, def.ScopeID, def.Path, def.TranslatorID,
		opts, def.Status, def.LastError, def.UpdatedAt, def.ID,
	)
	if err != nil {
		err = errors.Wrap(err, "failed to update definition")
		err = errors.WithDetailf(err, "Definition ID: %s", def.ID)
		return err
	}
	return nil
}

// MarkStatus sets a definition's status, persisting immediately so external
// observers see the pipeline position.
func (s *Store) MarkStatus(id string, status Status) error {
	result, err := s.db.Exec(`
		UPDATE export_definitions SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now(), id,
	)
	if err != nil {
		return errors.Wrapf(err, "failed to mark definition %s as %s", id, status)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.NewNotFoundError("definition %s", id)
	}
	return nil
}

// Get retrieves a definition by id.
func (s *Store) Get(id string) (*Definition, error) {
	def, err := s.scanOne(s.db.QueryRow(`
		SELECT `+definitionColumns+` FROM export_definitions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFoundError("definition %s", id)
	}
	return def, err
}

// FindByPath retrieves the definition bound to an output path, or nil.
func (s *Store) FindByPath(path string) (*Definition, error) {
	def, err := s.scanOne(s.db.QueryRow(`
		SELECT `+definitionColumns+` FROM export_definitions WHERE path = ?`, path))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return def, err
}

// FindByScope returns every definition watching one of the given scope ids.
func (s *Store) FindByScope(kind ScopeKind, scopeIDs []string) ([]*Definition, error) {
	if len(scopeIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?, ", len(scopeIDs)-1) + "?"
	args := make([]interface{}, 0, len(scopeIDs)+1)
	args = append(args, kind)
	for _, id := range scopeIDs {
		args = append(args, id)
	}

	rows, err := s.db.Query(`
		SELECT `+definitionColumns+` FROM export_definitions
		WHERE scope_kind = ? AND scope_id IN (`+placeholders+`)
		ORDER BY created_at ASC`, args...,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find definitions by scope")
	}
	defer rows.Close()

	return s.scanMany(rows)
}

// ListIncomplete returns definitions whose status is not done: work that was
// interrupted mid-schedule or mid-run in a prior process lifetime.
func (s *Store) ListIncomplete() ([]*Definition, error) {
	rows, err := s.db.Query(`
		SELECT `+definitionColumns+` FROM export_definitions
		WHERE status != ? ORDER BY created_at ASC`, StatusDone,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list incomplete definitions")
	}
	defer rows.Close()

	return s.scanMany(rows)
}

// List returns all definitions, oldest first.
func (s *Store) List() ([]*Definition, error) {
	rows, err := s.db.Query(`
		SELECT ` + definitionColumns + ` FROM export_definitions ORDER BY created_at ASC`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list definitions")
	}
	defer rows.Close()

	return s.scanMany(rows)
}

// Remove deletes a definition by id.
func (s *Store) Remove(id string) error {
	result, err := s.db.Exec(`DELETE FROM export_definitions WHERE id = ?`, id)
	if err != nil {
		return errors.Wrapf(err, "failed to remove definition %s", id)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.NewNotFoundError("definition %s", id)
	}
	return nil
}

// RemoveByPath deletes any definition bound to the output path. Returns the
// number of definitions removed (0 or 1 given the path uniqueness invariant).
func (s *Store) RemoveByPath(path string) (int, error) {
	result, err := s.db.Exec(`DELETE FROM export_definitions WHERE path = ?`, path)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to remove definitions at %s", path)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to get rows affected")
	}
	return int(rows), nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (s *Store) scanOne(row rowScanner) (*Definition, error) {
	var def Definition
	var opts string

	err := row.Scan(&def.ID, &def.ScopeKind, &def.ScopeID, &def.Path,
		&def.TranslatorID, &opts, &def.Status, &def.LastError,
		&def.CreatedAt, &def.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, errors.Wrap(err, "failed to scan definition")
	}

	def.Options, err = unmarshalOptions(opts)
	if err != nil {
		return nil, err
	}
	return &def, nil
}

func (s *Store) scanMany(rows *sql.Rows) ([]*Definition, error) {
	var defs []*Definition
	for rows.Next() {
		def, err := s.scanOne(rows)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating definitions")
	}
	return defs, nil
}
