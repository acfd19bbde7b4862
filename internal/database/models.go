package database

import "time"

// PathSeparator joins ancestor folder names into a materialized path.
const PathSeparator = "/"

// ProcessingStatus tracks the optimization state of an uploaded file.
// The status is advisory: callers set it after a processing step completes
// or fails, and no transition ordering is enforced beyond enum membership.
type ProcessingStatus string

const (
	// StatusPending means the file has not been processed yet.
	StatusPending ProcessingStatus = "pending"
	// StatusProcessing means an optimization pass is in flight.
	StatusProcessing ProcessingStatus = "processing"
	// StatusReady means processing completed successfully.
	StatusReady ProcessingStatus = "ready"
	// StatusFailed means processing failed.
	StatusFailed ProcessingStatus = "failed"
)

// ValidStatus reports whether s is a member of the status enum.
func ValidStatus(s ProcessingStatus) bool {
	switch s {
	case StatusPending, StatusProcessing, StatusReady, StatusFailed:
		return true
	}
	return false
}

// Folder is a named node in the media hierarchy. Path is derived from the
// ancestor chain and kept consistent with ParentID on every mutation.
type Folder struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ParentID  *string   `json:"parentId"`
	Path      string    `json:"path"`
	IsPublic  bool      `json:"isPublic"`
	CreatorID string    `json:"creatorId"`
	CreatedAt time.Time `json:"createdAt"`
}

// FolderNode is a folder with its direct children, used by the hierarchy view.
type FolderNode struct {
	Folder
	FileCount int           `json:"fileCount"`
	Children  []*FolderNode `json:"children"`
}

// File is a registered media file. FolderID is nil for unfiled files.
type File struct {
	ID           string           `json:"id"`
	Filename     string           `json:"filename"`
	OriginalName string           `json:"originalName"`
	MimeType     string           `json:"mimeType"`
	SizeBytes    int64            `json:"sizeBytes"`
	URL          string           `json:"url"`
	FolderID     *string          `json:"folderId"`
	UploaderID   string           `json:"uploaderId"`
	Width        int              `json:"width,omitempty"`
	Height       int              `json:"height,omitempty"`
	Status       ProcessingStatus `json:"processingStatus"`
	CreatedAt    time.Time        `json:"createdAt"`
}

// SortField specifies which field to sort file listings by.
type SortField string

// SortOrder specifies the direction of sorting.
type SortOrder string

const (
	// SortByName sorts by the user-facing file name.
	SortByName SortField = "name"
	// SortBySize sorts by file size.
	SortBySize SortField = "size"
	// SortByDate sorts by creation time.
	SortByDate SortField = "createdAt"
	// SortByType sorts by MIME type.
	SortByType SortField = "type"
	// SortAsc sorts in ascending order.
	SortAsc SortOrder = "asc"
	// SortDesc sorts in descending order.
	SortDesc SortOrder = "desc"
)

// ListOptions filters and paginates a file listing.
//
// FolderID is a three-state filter: nil means no folder filter, a pointer
// to the empty string selects unfiled files (folder_id IS NULL), and any
// other value selects files in that folder.
type ListOptions struct {
	FolderID   *string
	MimePrefix string
	Query      string
	Page       int
	Limit      int
	SortField  SortField
	SortOrder  SortOrder
}

// Pagination describes the window of a paginated listing.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
	HasPrev    bool  `json:"hasPrev"`
}

// FileListing is a page of files plus its pagination window.
type FileListing struct {
	Files      []File     `json:"data"`
	Pagination Pagination `json:"pagination"`
}
