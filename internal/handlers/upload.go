package handlers

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"media-manager/internal/database"
	"media-manager/internal/events"
	"media-manager/internal/logging"
	"media-manager/internal/mediatypes"
	"media-manager/internal/optimizer"
)

// multipartMemory bounds how much of a parsed upload is held in memory;
// larger bodies spill to temporary files.
const multipartMemory = 32 << 20

// UploadFile handles POST /api/files/upload as multipart form data. Image
// uploads are optimized before storage; other media kinds are stored as
// received.
func (h *Handlers) UploadFile(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, fmt.Errorf("%w: uploads require object storage", database.ErrValidation))
		return
	}

	// MaxBytesReader enforces the upload cap; the parse limit only sets
	// how much stays in memory before spilling to disk.
	r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		writeError(w, fmt.Errorf("%w: invalid multipart form: %v", database.ErrValidation, err))
		return
	}

	part, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, fmt.Errorf("%w: missing file field: %v", database.ErrValidation, err))
		return
	}
	defer part.Close()

	uploaderID := r.FormValue("uploaderId")
	if uploaderID == "" {
		writeError(w, fmt.Errorf("%w: uploaderId is required", database.ErrValidation))
		return
	}

	var folderID *string
	if v := r.FormValue("folderId"); v != "" {
		folderID = &v
	}

	source, err := io.ReadAll(part)
	if err != nil {
		writeError(w, fmt.Errorf("failed to read upload: %w", err))
		return
	}

	mimeType := uploadMimeType(header)
	file := &database.File{
		OriginalName: header.Filename,
		MimeType:     mimeType,
		FolderID:     folderID,
		UploaderID:   uploaderID,
		Status:       database.StatusPending,
	}

	data := source
	if mediatypes.IsImageMime(mimeType) {
		opts := optimizer.Options{
			Quality:   h.config.OptimizeQuality,
			MaxWidth:  h.config.OptimizeMaxWidth,
			MaxHeight: h.config.OptimizeMaxHeight,
			Format:    optimizer.RecommendedFormat(),
		}
		optimized, optErr := optimizer.Optimize(r.Context(), source, opts)
		if optErr != nil {
			writeError(w, optErr)
			return
		}
		data = optimized.Data
		file.MimeType = optimizer.MimeType(optimized.Format)
		file.Width = optimized.Width
		file.Height = optimized.Height
		file.Status = database.StatusReady
		logging.Debug("Optimized upload %s: %s saved (%.1f%%)",
			header.Filename,
			optimizer.FormatFileSize(int64(len(source))-int64(len(data))),
			optimizer.CompressionRatio(int64(len(source)), int64(len(data))))
	} else {
		file.Status = database.StatusReady
	}

	ext := filepath.Ext(header.Filename)
	if mediatypes.IsImageMime(file.MimeType) {
		// The stored object carries the optimized encoding, not the
		// original one.
		ext = "." + string(optimizer.RecommendedFormat())
	}
	file.Filename = uuid.NewString() + ext
	file.SizeBytes = int64(len(data))
	file.URL = "/api/files/" + file.Filename

	if err := h.store.Put(r.Context(), file.Filename, bytes.NewReader(data), file.SizeBytes, file.MimeType); err != nil {
		writeError(w, err)
		return
	}

	created, err := h.db.CreateFile(r.Context(), file)
	if err != nil {
		// Keep storage consistent with the registry.
		if rmErr := h.store.Remove(r.Context(), file.Filename); rmErr != nil {
			logging.Warn("Failed to clean up orphaned object %s: %v", file.Filename, rmErr)
		}
		writeError(w, err)
		return
	}

	logging.Info("Uploaded file %s (%s, %s)", created.OriginalName, created.ID,
		optimizer.FormatFileSize(created.SizeBytes))
	h.publisher.Publish(events.SubjectFileUploaded, events.FileUploaded{
		FileID:     created.ID,
		Filename:   created.Filename,
		MimeType:   created.MimeType,
		SizeBytes:  created.SizeBytes,
		FolderID:   created.FolderID,
		UploaderID: created.UploaderID,
		UploadedAt: time.Now().UTC(),
	})

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"data":    created,
	})
}

// uploadMimeType prefers the part's declared content type, falling back to
// the filename extension.
func uploadMimeType(header *multipart.FileHeader) string {
	if ct := header.Header.Get("Content-Type"); ct != "" && ct != "application/octet-stream" {
		return ct
	}
	return mediatypes.MimeForExtension(filepath.Ext(header.Filename))
}
