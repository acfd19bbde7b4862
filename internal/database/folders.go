package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"media-manager/internal/logging"
)

// maxDepth bounds ancestor walks. The parent chain is acyclic by
// construction; hitting this limit means the tree is corrupt.
const maxDepth = 64

// subtreeCTE selects the ids of a folder and all of its descendants.
const subtreeCTE = `
	WITH RECURSIVE subtree(id) AS (
		SELECT id FROM folders WHERE id = ?
		UNION ALL
		SELECT f.id FROM folders f JOIN subtree s ON f.parent_id = s.id
	)`

// CreateFolder creates a folder under parentID (nil for root level) and
// computes its materialized path from the ancestor chain.
func (d *Database) CreateFolder(ctx context.Context, name string, parentID *string, creatorID string, isPublic bool) (*Folder, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("create_folder", start, err) }()

	if err = validateFolderName(name); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	path := name
	if parentID != nil {
		var parent *Folder
		parent, err = d.getFolderLocked(ctx, *parentID)
		if err != nil {
			return nil, fmt.Errorf("parent folder %s: %w", *parentID, err)
		}
		path = parent.Path + PathSeparator + name
	}

	var taken bool
	taken, err = d.siblingNameTaken(ctx, name, parentID, "")
	if err != nil {
		return nil, err
	}
	if taken {
		err = fmt.Errorf("folder %q under this parent: %w", name, ErrNameConflict)
		return nil, err
	}

	folder := &Folder{
		ID:        uuid.NewString(),
		Name:      name,
		ParentID:  parentID,
		Path:      path,
		IsPublic:  isPublic,
		CreatorID: creatorID,
		CreatedAt: time.Now().Truncate(time.Second),
	}

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO folders (id, name, parent_id, path, is_public, creator_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		folder.ID, folder.Name, folder.ParentID, folder.Path,
		folder.IsPublic, folder.CreatorID, folder.CreatedAt.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert folder: %w", err)
	}

	logging.Debug("Created folder %s at %q", folder.ID, folder.Path)
	return folder, nil
}

// GetFolder retrieves a single folder by id.
func (d *Database) GetFolder(ctx context.Context, id string) (*Folder, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_folder", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var folder *Folder
	folder, err = d.getFolderLocked(ctx, id)
	return folder, err
}

func (d *Database) getFolderLocked(ctx context.Context, id string) (*Folder, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT id, name, parent_id, path, is_public, creator_id, created_at
		FROM folders WHERE id = ?`, id)
	return scanFolder(row)
}

// RootFolders returns all folders with no parent, sorted by name.
func (d *Database) RootFolders(ctx context.Context) ([]Folder, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("root_folders", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var rows *sql.Rows
	rows, err = d.db.QueryContext(ctx, `
		SELECT id, name, parent_id, path, is_public, creator_id, created_at
		FROM folders WHERE parent_id IS NULL
		ORDER BY name COLLATE NOCASE, id`)
	if err != nil {
		return nil, fmt.Errorf("root folders query: %w", err)
	}
	defer rows.Close()

	return collectFolders(rows)
}

// FolderChain returns the ancestor chain of a folder from root to the
// folder itself.
func (d *Database) FolderChain(ctx context.Context, id string) ([]Folder, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("folder_chain", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var chain []Folder
	current := &id
	for depth := 0; current != nil; depth++ {
		if depth >= maxDepth {
			err = fmt.Errorf("folder %s: ancestor chain exceeds depth %d", id, maxDepth)
			return nil, err
		}
		var folder *Folder
		folder, err = d.getFolderLocked(ctx, *current)
		if err != nil {
			return nil, err
		}
		chain = append([]Folder{*folder}, chain...)
		current = folder.ParentID
	}
	return chain, nil
}

// MoveFolder reparents a folder and recomputes the materialized path of the
// folder and every descendant in one transaction. Moving a folder under
// itself or one of its descendants fails with ErrCycle.
func (d *Database) MoveFolder(ctx context.Context, id string, newParentID *string) (*Folder, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("move_folder", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var folder *Folder
	folder, err = d.getFolderLocked(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("folder %s: %w", id, err)
	}

	newPath := folder.Name
	if newParentID != nil {
		if *newParentID == id {
			err = fmt.Errorf("folder %s into itself: %w", id, ErrCycle)
			return nil, err
		}
		var parent *Folder
		parent, err = d.getFolderLocked(ctx, *newParentID)
		if err != nil {
			return nil, fmt.Errorf("target folder %s: %w", *newParentID, err)
		}
		// Walk the target's ancestor chain; finding the moved folder
		// there means the move would create a cycle.
		var cyclic bool
		cyclic, err = d.isDescendantLocked(ctx, *newParentID, id)
		if err != nil {
			return nil, err
		}
		if cyclic {
			err = fmt.Errorf("folder %s under its descendant %s: %w", id, *newParentID, ErrCycle)
			return nil, err
		}
		newPath = parent.Path + PathSeparator + folder.Name
	}

	var taken bool
	taken, err = d.siblingNameTaken(ctx, folder.Name, newParentID, id)
	if err != nil {
		return nil, err
	}
	if taken {
		err = fmt.Errorf("folder %q at destination: %w", folder.Name, ErrNameConflict)
		return nil, err
	}

	err = d.repathSubtree(ctx, folder, newParentID, folder.Name, newPath)
	if err != nil {
		return nil, err
	}

	folder.ParentID = newParentID
	folder.Path = newPath
	logging.Debug("Moved folder %s to %q", id, newPath)
	return folder, nil
}

// RenameFolder renames a folder and propagates the path change to all
// descendants in one transaction.
func (d *Database) RenameFolder(ctx context.Context, id, name string) (*Folder, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("rename_folder", start, err) }()

	if err = validateFolderName(name); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var folder *Folder
	folder, err = d.getFolderLocked(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("folder %s: %w", id, err)
	}
	if folder.Name == name {
		return folder, nil
	}

	var taken bool
	taken, err = d.siblingNameTaken(ctx, name, folder.ParentID, id)
	if err != nil {
		return nil, err
	}
	if taken {
		err = fmt.Errorf("folder %q under this parent: %w", name, ErrNameConflict)
		return nil, err
	}

	newPath := name
	if idx := strings.LastIndex(folder.Path, PathSeparator); idx >= 0 {
		newPath = folder.Path[:idx+1] + name
	}

	err = d.repathSubtree(ctx, folder, folder.ParentID, name, newPath)
	if err != nil {
		return nil, err
	}

	folder.Name = name
	folder.Path = newPath
	logging.Debug("Renamed folder %s to %q", id, newPath)
	return folder, nil
}

// repathSubtree rewrites parent/name on the folder row and the path prefix
// on the whole subtree atomically. Every descendant path shares the moved
// folder's old path as a prefix, so the rewrite is a prefix substitution.
func (d *Database) repathSubtree(ctx context.Context, folder *Folder, newParentID *string, newName, newPath string) error {
	tx, txStart, err := d.begin(ctx)
	if err != nil {
		return fmt.Errorf("begin move transaction: %w", err)
	}

	err = func() error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE folders SET parent_id = ?, name = ? WHERE id = ?`,
			newParentID, newName, folder.ID,
		); err != nil {
			return fmt.Errorf("update folder row: %w", err)
		}

		// substr is 1-based and counts characters, not bytes, so the
		// drop offset must be the old path's rune count.
		if _, err := tx.ExecContext(ctx,
			subtreeCTE+`
			UPDATE folders SET path = ? || substr(path, ?)
			WHERE id IN (SELECT id FROM subtree)`,
			folder.ID, newPath, utf8.RuneCountInString(folder.Path)+1,
		); err != nil {
			return fmt.Errorf("repath subtree: %w", err)
		}
		return nil
	}()

	return d.end(tx, txStart, err)
}

// DeleteFolder removes a folder. Without cascade the folder must be empty
// (no child folders, no files) or the call fails with ErrFolderNotEmpty.
// With cascade the entire subtree and every contained file is deleted;
// files are deleted rather than reassigned, in one transaction.
func (d *Database) DeleteFolder(ctx context.Context, id string, cascade bool) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("delete_folder", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err = d.getFolderLocked(ctx, id); err != nil {
		return fmt.Errorf("folder %s: %w", id, err)
	}

	if !cascade {
		var children, files int
		if err = d.db.QueryRowContext(ctx,
			`SELECT
				(SELECT COUNT(*) FROM folders WHERE parent_id = ?),
				(SELECT COUNT(*) FROM files WHERE folder_id = ?)`,
			id, id,
		).Scan(&children, &files); err != nil {
			return fmt.Errorf("emptiness check: %w", err)
		}
		if children > 0 || files > 0 {
			err = fmt.Errorf("folder %s has %d folders and %d files: %w", id, children, files, ErrFolderNotEmpty)
			return err
		}

		_, err = d.db.ExecContext(ctx, `DELETE FROM folders WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete folder: %w", err)
		}
		return nil
	}

	tx, txStart, err := d.begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete transaction: %w", err)
	}

	err = func() error {
		if _, err := tx.ExecContext(ctx,
			subtreeCTE+`DELETE FROM files WHERE folder_id IN (SELECT id FROM subtree)`, id,
		); err != nil {
			return fmt.Errorf("delete contained files: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			subtreeCTE+`DELETE FROM folders WHERE id IN (SELECT id FROM subtree)`, id,
		); err != nil {
			return fmt.Errorf("delete subtree: %w", err)
		}
		return nil
	}()

	if err = d.end(tx, txStart, err); err != nil {
		return err
	}

	logging.Debug("Deleted folder %s (cascade)", id)
	return nil
}

// GetHierarchy builds the nested folder tree by grouping all folders by
// parent id. Runs in time linear in folder count. Every node carries the
// number of files directly inside it.
func (d *Database) GetHierarchy(ctx context.Context) ([]*FolderNode, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_hierarchy", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var rows *sql.Rows
	rows, err = d.db.QueryContext(ctx, `
		SELECT f.id, f.name, f.parent_id, f.path, f.is_public, f.creator_id, f.created_at,
			(SELECT COUNT(*) FROM files WHERE folder_id = f.id)
		FROM folders f
		ORDER BY f.name COLLATE NOCASE, f.id`)
	if err != nil {
		return nil, fmt.Errorf("hierarchy query: %w", err)
	}
	defer rows.Close()

	nodes := make(map[string]*FolderNode)
	var order []*FolderNode
	for rows.Next() {
		node := &FolderNode{Children: []*FolderNode{}}
		var parentID sql.NullString
		var isPublic int
		var createdAt int64
		if err = rows.Scan(
			&node.ID, &node.Name, &parentID, &node.Path,
			&isPublic, &node.CreatorID, &createdAt, &node.FileCount,
		); err != nil {
			return nil, fmt.Errorf("hierarchy scan: %w", err)
		}
		if parentID.Valid {
			node.ParentID = &parentID.String
		}
		node.IsPublic = isPublic != 0
		node.CreatedAt = time.Unix(createdAt, 0)
		nodes[node.ID] = node
		order = append(order, node)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("hierarchy rows: %w", err)
	}

	roots := []*FolderNode{}
	for _, node := range order {
		if node.ParentID == nil {
			roots = append(roots, node)
			continue
		}
		if parent, ok := nodes[*node.ParentID]; ok {
			parent.Children = append(parent.Children, node)
		} else {
			// Orphaned row; surface it at the root rather than drop it.
			logging.Warn("Folder %s references missing parent %s", node.ID, *node.ParentID)
			roots = append(roots, node)
		}
	}
	return roots, nil
}

// isDescendantLocked walks the ancestor chain of id looking for ancestorID.
func (d *Database) isDescendantLocked(ctx context.Context, id, ancestorID string) (bool, error) {
	current := &id
	for depth := 0; current != nil; depth++ {
		if depth >= maxDepth {
			return false, fmt.Errorf("folder %s: ancestor chain exceeds depth %d", id, maxDepth)
		}
		folder, err := d.getFolderLocked(ctx, *current)
		if err != nil {
			return false, err
		}
		if folder.ParentID != nil && *folder.ParentID == ancestorID {
			return true, nil
		}
		current = folder.ParentID
	}
	return false, nil
}

// siblingNameTaken reports whether a sibling under parentID already carries
// name, excluding excludeID (the folder being renamed or moved).
func (d *Database) siblingNameTaken(ctx context.Context, name string, parentID *string, excludeID string) (bool, error) {
	query := `SELECT COUNT(*) FROM folders WHERE name = ? AND id != ?`
	args := []interface{}{name, excludeID}
	if parentID == nil {
		query += ` AND parent_id IS NULL`
	} else {
		query += ` AND parent_id = ?`
		args = append(args, *parentID)
	}

	var count int
	if err := d.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("sibling name check: %w", err)
	}
	return count > 0, nil
}

func validateFolderName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("folder name is empty: %w", ErrValidation)
	}
	if strings.Contains(name, PathSeparator) {
		return fmt.Errorf("folder name %q contains %q: %w", name, PathSeparator, ErrValidation)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanFolder(row rowScanner) (*Folder, error) {
	var folder Folder
	var parentID sql.NullString
	var isPublic int
	var createdAt int64

	err := row.Scan(
		&folder.ID, &folder.Name, &parentID, &folder.Path,
		&isPublic, &folder.CreatorID, &createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("folder scan: %w", err)
	}

	if parentID.Valid {
		folder.ParentID = &parentID.String
	}
	folder.IsPublic = isPublic != 0
	folder.CreatedAt = time.Unix(createdAt, 0)
	return &folder, nil
}

func collectFolders(rows *sql.Rows) ([]Folder, error) {
	folders := []Folder{}
	for rows.Next() {
		folder, err := scanFolder(rows)
		if err != nil {
			return nil, err
		}
		folders = append(folders, *folder)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("folder rows: %w", err)
	}
	return folders, nil
}
