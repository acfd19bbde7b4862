package handlers

import (
	"net/http"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gorilla/mux"

	"media-manager/internal/events"
	"media-manager/internal/logging"
)

const maxFolderNameLength = 255

type createFolderRequest struct {
	Name      string  `json:"name"`
	ParentID  *string `json:"parentId"`
	CreatorID string  `json:"creatorId"`
	IsPublic  bool    `json:"isPublic"`
}

func (req createFolderRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Name, validation.Required, validation.Length(1, maxFolderNameLength)),
		validation.Field(&req.CreatorID, validation.Required),
	)
}

// CreateFolder handles POST /api/folders.
func (h *Handlers) CreateFolder(w http.ResponseWriter, r *http.Request) {
	var req createFolderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, err)
		return
	}

	folder, err := h.db.CreateFolder(r.Context(), req.Name, req.ParentID, req.CreatorID, req.IsPublic)
	if err != nil {
		writeError(w, err)
		return
	}

	logging.Info("Created folder %s (%s)", folder.Path, folder.ID)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"data":    folder,
	})
}

// updateFolderRequest carries a rename, a move, or both. Omitted fields are
// left unchanged; moving to root is expressed as "parentId": null alongside
// "move": true since null is also the zero value of an omitted field.
type updateFolderRequest struct {
	Name     *string `json:"name"`
	ParentID *string `json:"parentId"`
	Move     bool    `json:"move"`
}

func (req updateFolderRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Name, validation.NilOrNotEmpty, validation.Length(1, maxFolderNameLength)),
	)
}

// UpdateFolder handles PUT /api/folders/{id}: rename and/or move.
func (h *Handlers) UpdateFolder(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req updateFolderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, err)
		return
	}

	folder, err := h.db.GetFolder(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	if req.Move {
		folder, err = h.db.MoveFolder(r.Context(), id, req.ParentID)
		if err != nil {
			writeError(w, err)
			return
		}
		logging.Info("Moved folder %s to %s", id, folder.Path)
	}

	if req.Name != nil {
		folder, err = h.db.RenameFolder(r.Context(), id, *req.Name)
		if err != nil {
			writeError(w, err)
			return
		}
		logging.Info("Renamed folder %s to %s", id, folder.Path)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    folder,
	})
}

// DeleteFolder handles DELETE /api/folders/{id}?cascade=true.
func (h *Handlers) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	cascade, _ := strconv.ParseBool(r.URL.Query().Get("cascade"))

	if err := h.db.DeleteFolder(r.Context(), id, cascade); err != nil {
		writeError(w, err)
		return
	}

	logging.Info("Deleted folder %s (cascade=%v)", id, cascade)
	h.publisher.Publish(events.SubjectFolderDeleted, events.FolderDeleted{
		FolderID:  id,
		Cascade:   cascade,
		DeletedAt: time.Now().UTC(),
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
	})
}

// ListRootFolders handles GET /api/folders.
func (h *Handlers) ListRootFolders(w http.ResponseWriter, r *http.Request) {
	folders, err := h.db.RootFolders(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    folders,
	})
}

// GetHierarchy handles GET /api/folders/hierarchy.
func (h *Handlers) GetHierarchy(w http.ResponseWriter, r *http.Request) {
	tree, err := h.db.GetHierarchy(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    tree,
	})
}
