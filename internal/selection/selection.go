package selection

import (
	"sort"
	"strings"

	"media-manager/internal/database"
)

// ViewMode controls how the file listing is rendered.
type ViewMode string

const (
	ViewGrid ViewMode = "grid"
	ViewList ViewMode = "list"
)

// State is the full UI-facing browsing state. It is treated as immutable:
// Apply returns a fresh copy with owned maps and slices, so callers can keep
// old states around for comparison or undo.
type State struct {
	SelectedFiles map[string]bool
	ViewMode      ViewMode
	SearchTerm    string
	SelectedTypes []string
	SortField     database.SortField
	SortOrder     database.SortOrder

	// CurrentFolderID is empty at the root level.
	CurrentFolderID string
	// FolderPath is the breadcrumb chain from a root folder down to the
	// current folder. PathComplete is false when an ancestor was missing
	// from the folder set supplied with the navigation event, in which
	// case FolderPath holds the longest suffix that could be resolved.
	FolderPath   []database.Folder
	PathComplete bool

	ShowUploadModal       bool
	ShowCreateFolderModal bool
	ShowMoveModal         bool
}

// NewState returns the initial browsing state: root folder, grid view,
// name-ascending sort, nothing selected.
func NewState() State {
	return State{
		SelectedFiles: map[string]bool{},
		ViewMode:      ViewGrid,
		SortField:     database.SortByName,
		SortOrder:     database.SortAsc,
		PathComplete:  true,
	}
}

// SelectedIDs returns the selected file ids in lexical order.
func (s State) SelectedIDs() []string {
	ids := make([]string, 0, len(s.SelectedFiles))
	for id := range s.SelectedFiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Event is a state transition input. The concrete event types below are the
// only implementations; Apply ignores anything else.
type Event interface {
	isEvent()
}

// ToggleSelect flips membership of one file in the selection set.
type ToggleSelect struct{ FileID string }

// ClearSelection empties the selection set.
type ClearSelection struct{}

// SetViewMode switches between grid and list rendering.
type SetViewMode struct{ Mode ViewMode }

// SetSearch replaces the search term. Leading and trailing whitespace is
// trimmed.
type SetSearch struct{ Term string }

// SetTypes replaces the media-kind filter.
type SetTypes struct{ Types []string }

// SetSort replaces the sort field and order.
type SetSort struct {
	Field database.SortField
	Order database.SortOrder
}

// Navigate moves to a folder (or the root when FolderID is empty). Folders
// carries the caller's loaded folder set keyed by id; the reducer walks the
// target's ancestor chain against it to rebuild the breadcrumb path.
// Navigation always clears the selection.
type Navigate struct {
	FolderID string
	Folders  map[string]database.Folder
}

// SetModal shows or hides one of the dialog surfaces.
type SetModal struct {
	Modal Modal
	Open  bool
}

// Modal names a dialog surface toggled by SetModal.
type Modal string

const (
	ModalUpload       Modal = "upload"
	ModalCreateFolder Modal = "createFolder"
	ModalMove         Modal = "move"
)

func (ToggleSelect) isEvent()   {}
func (ClearSelection) isEvent() {}
func (SetViewMode) isEvent()    {}
func (SetSearch) isEvent()      {}
func (SetTypes) isEvent()       {}
func (SetSort) isEvent()        {}
func (Navigate) isEvent()       {}
func (SetModal) isEvent()       {}

// Apply computes the next state from the current one and an event. It never
// mutates its input; unknown events return the input unchanged.
func Apply(s State, ev Event) State {
	next := clone(s)

	switch e := ev.(type) {
	case ToggleSelect:
		if e.FileID == "" {
			return next
		}
		if next.SelectedFiles[e.FileID] {
			delete(next.SelectedFiles, e.FileID)
		} else {
			next.SelectedFiles[e.FileID] = true
		}

	case ClearSelection:
		next.SelectedFiles = map[string]bool{}

	case SetViewMode:
		if e.Mode == ViewGrid || e.Mode == ViewList {
			next.ViewMode = e.Mode
		}

	case SetSearch:
		next.SearchTerm = strings.TrimSpace(e.Term)

	case SetTypes:
		next.SelectedTypes = append([]string(nil), e.Types...)

	case SetSort:
		next.SortField = e.Field
		next.SortOrder = e.Order

	case Navigate:
		// Selection never survives a folder change.
		next.SelectedFiles = map[string]bool{}
		next.CurrentFolderID = e.FolderID
		next.FolderPath, next.PathComplete = buildPath(e.FolderID, e.Folders)

	case SetModal:
		switch e.Modal {
		case ModalUpload:
			next.ShowUploadModal = e.Open
		case ModalCreateFolder:
			next.ShowCreateFolderModal = e.Open
		case ModalMove:
			next.ShowMoveModal = e.Open
		}
	}

	return next
}

// buildPath walks the ancestor chain from the target folder up to a root and
// returns it root-first. When an ancestor is missing from the supplied set
// the walk stops and the partial chain is returned with complete = false.
func buildPath(folderID string, folders map[string]database.Folder) ([]database.Folder, bool) {
	if folderID == "" {
		return nil, true
	}

	const maxDepth = 64

	var chain []database.Folder
	id := folderID
	for depth := 0; depth < maxDepth; depth++ {
		folder, ok := folders[id]
		if !ok {
			reverse(chain)
			return chain, false
		}
		chain = append(chain, folder)
		if folder.ParentID == nil {
			reverse(chain)
			return chain, true
		}
		id = *folder.ParentID
	}

	// Depth guard tripped; treat it as an unresolvable chain.
	reverse(chain)
	return chain, false
}

func reverse(folders []database.Folder) {
	for i, j := 0, len(folders)-1; i < j; i, j = i+1, j-1 {
		folders[i], folders[j] = folders[j], folders[i]
	}
}

func clone(s State) State {
	next := s
	next.SelectedFiles = make(map[string]bool, len(s.SelectedFiles))
	for id, v := range s.SelectedFiles {
		next.SelectedFiles[id] = v
	}
	next.SelectedTypes = append([]string(nil), s.SelectedTypes...)
	next.FolderPath = append([]database.Folder(nil), s.FolderPath...)
	return next
}
