package database

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"media-manager/internal/logging"
)

// CreateFile registers an uploaded file. Filename must be the generated
// storage-unique name; OriginalName is what the user sees. A nil folderID
// leaves the file unfiled.
func (d *Database) CreateFile(ctx context.Context, file *File) (*File, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("create_file", start, err) }()

	if file.Filename == "" || file.OriginalName == "" {
		err = fmt.Errorf("filename is required: %w", ErrValidation)
		return nil, err
	}
	if file.Status == "" {
		file.Status = StatusPending
	}
	if !ValidStatus(file.Status) {
		err = fmt.Errorf("status %q: %w", file.Status, ErrValidation)
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if file.FolderID != nil {
		if _, err = d.getFolderLocked(ctx, *file.FolderID); err != nil {
			return nil, fmt.Errorf("folder %s: %w", *file.FolderID, err)
		}
	}

	if file.ID == "" {
		file.ID = uuid.NewString()
	}
	file.CreatedAt = time.Now().Truncate(time.Second)

	var width, height interface{}
	if file.Width > 0 {
		width = file.Width
	}
	if file.Height > 0 {
		height = file.Height
	}

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO files (id, filename, original_name, mime_type, size_bytes, url,
			folder_id, uploader_id, width, height, processing_status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		file.ID, file.Filename, file.OriginalName, file.MimeType, file.SizeBytes,
		file.URL, file.FolderID, file.UploaderID, width, height,
		string(file.Status), file.CreatedAt.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert file: %w", err)
	}

	logging.Debug("Registered file %s (%s)", file.ID, file.OriginalName)
	return file, nil
}

// GetFile retrieves a single file by id.
func (d *Database) GetFile(ctx context.Context, id string) (*File, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_file", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := d.db.QueryRowContext(ctx, `
		SELECT id, filename, original_name, mime_type, size_bytes, url,
			folder_id, uploader_id, width, height, processing_status, created_at
		FROM files WHERE id = ?`, id)

	var file *File
	file, err = scanFile(row)
	return file, err
}

// ListFiles returns a paginated, sorted slice of files. Sorting ties are
// broken by id ascending so pages are deterministic.
func (d *Database) ListFiles(ctx context.Context, opts ListOptions) (*FileListing, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_files", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit < 1 {
		opts.Limit = 50
	}
	if opts.Limit > 200 {
		opts.Limit = 200
	}

	where := ` WHERE 1=1`
	args := []interface{}{}

	if opts.FolderID != nil {
		if *opts.FolderID == "" {
			where += ` AND folder_id IS NULL`
		} else {
			where += ` AND folder_id = ?`
			args = append(args, *opts.FolderID)
		}
	}
	if opts.MimePrefix != "" {
		where += ` AND mime_type LIKE ? ESCAPE '\'`
		args = append(args, likePrefix(opts.MimePrefix))
	}
	if opts.Query != "" {
		where += ` AND original_name LIKE ? ESCAPE '\'`
		args = append(args, "%"+escapeLike(opts.Query)+"%")
	}

	var total int64
	err = d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files`+where, args...).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count query: %w", err)
	}

	sortColumn := "original_name COLLATE NOCASE"
	switch opts.SortField {
	case SortBySize:
		sortColumn = "size_bytes"
	case SortByDate:
		sortColumn = "created_at"
	case SortByType:
		sortColumn = "mime_type"
	}
	sortDir := "ASC"
	if opts.SortOrder == SortDesc {
		sortDir = "DESC"
	}

	totalPages := int(math.Ceil(float64(total) / float64(opts.Limit)))
	if totalPages < 1 {
		totalPages = 1
	}
	offset := (opts.Page - 1) * opts.Limit

	query := `
		SELECT id, filename, original_name, mime_type, size_bytes, url,
			folder_id, uploader_id, width, height, processing_status, created_at
		FROM files` + where +
		fmt.Sprintf(` ORDER BY %s %s, id ASC LIMIT ? OFFSET ?`, sortColumn, sortDir)
	args = append(args, opts.Limit, offset)

	var rows *sql.Rows
	rows, err = d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select query: %w", err)
	}
	defer rows.Close()

	files := []File{}
	for rows.Next() {
		var file *File
		if file, err = scanFile(rows); err != nil {
			return nil, err
		}
		files = append(files, *file)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("file rows: %w", err)
	}

	return &FileListing{
		Files: files,
		Pagination: Pagination{
			Page:       opts.Page,
			Limit:      opts.Limit,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    opts.Page < totalPages,
			HasPrev:    opts.Page > 1,
		},
	}, nil
}

// ReassignFolder moves a file into newFolderID, or unfiles it when nil.
func (d *Database) ReassignFolder(ctx context.Context, fileID string, newFolderID *string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("reassign_folder", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if newFolderID != nil {
		if _, err = d.getFolderLocked(ctx, *newFolderID); err != nil {
			return fmt.Errorf("folder %s: %w", *newFolderID, err)
		}
	}

	var result sql.Result
	result, err = d.db.ExecContext(ctx,
		`UPDATE files SET folder_id = ? WHERE id = ?`, newFolderID, fileID)
	if err != nil {
		return fmt.Errorf("reassign file: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		err = fmt.Errorf("file %s: %w", fileID, ErrNotFound)
		return err
	}
	return nil
}

// MarkStatus sets a file's processing status. Only enum membership is
// checked; the status is advisory.
func (d *Database) MarkStatus(ctx context.Context, fileID string, status ProcessingStatus) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("mark_status", start, err) }()

	if !ValidStatus(status) {
		err = fmt.Errorf("status %q: %w", status, ErrValidation)
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var result sql.Result
	result, err = d.db.ExecContext(ctx,
		`UPDATE files SET processing_status = ? WHERE id = ?`, string(status), fileID)
	if err != nil {
		return fmt.Errorf("mark status: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		err = fmt.Errorf("file %s: %w", fileID, ErrNotFound)
		return err
	}
	return nil
}

// DeleteFile removes a file record. Deletion is terminal.
func (d *Database) DeleteFile(ctx context.Context, id string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("delete_file", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var result sql.Result
	result, err = d.db.ExecContext(ctx, `DELETE FROM files WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		err = fmt.Errorf("file %s: %w", id, ErrNotFound)
		return err
	}
	return nil
}

// AddTags attaches tags to a file, ignoring duplicates.
func (d *Database) AddTags(ctx context.Context, fileID string, tags []string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("add_tags", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var exists int
	if err = d.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM files WHERE id = ?`, fileID).Scan(&exists); err != nil {
		return fmt.Errorf("file check: %w", err)
	}
	if exists == 0 {
		err = fmt.Errorf("file %s: %w", fileID, ErrNotFound)
		return err
	}

	for _, tag := range tags {
		if tag == "" {
			continue
		}
		if _, err = d.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO file_tags (file_id, tag) VALUES (?, ?)`,
			fileID, tag,
		); err != nil {
			return fmt.Errorf("tag %q: %w", tag, err)
		}
	}
	return nil
}

// FileTags returns the tags attached to a file, sorted.
func (d *Database) FileTags(ctx context.Context, fileID string) ([]string, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("file_tags", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var rows *sql.Rows
	rows, err = d.db.QueryContext(ctx,
		`SELECT tag FROM file_tags WHERE file_id = ? ORDER BY tag`, fileID)
	if err != nil {
		return nil, fmt.Errorf("tags query: %w", err)
	}
	defer rows.Close()

	tags := []string{}
	for rows.Next() {
		var tag string
		if err = rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("tag scan: %w", err)
		}
		tags = append(tags, tag)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("tag rows: %w", err)
	}
	return tags, nil
}

func scanFile(row rowScanner) (*File, error) {
	var file File
	var folderID sql.NullString
	var width, height sql.NullInt64
	var status string
	var createdAt int64

	err := row.Scan(
		&file.ID, &file.Filename, &file.OriginalName, &file.MimeType,
		&file.SizeBytes, &file.URL, &folderID, &file.UploaderID,
		&width, &height, &status, &createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("file scan: %w", err)
	}

	if folderID.Valid {
		file.FolderID = &folderID.String
	}
	file.Width = int(width.Int64)
	file.Height = int(height.Int64)
	file.Status = ProcessingStatus(status)
	file.CreatedAt = time.Unix(createdAt, 0)
	return &file, nil
}

func likePrefix(prefix string) string {
	return escapeLike(prefix) + "%"
}

func escapeLike(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '%' || r == '_' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}
