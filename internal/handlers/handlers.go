package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"media-manager/internal/database"
	"media-manager/internal/events"
	"media-manager/internal/startup"
	"media-manager/internal/storage"
)

type Handlers struct {
	db        *database.Database
	store     storage.ObjectStore
	publisher *events.Publisher
	config    *startup.Config
}

func New(db *database.Database, store storage.ObjectStore, publisher *events.Publisher, config *startup.Config) *Handlers {
	return &Handlers{
		db:        db,
		store:     store,
		publisher: publisher,
		config:    config,
	}
}

// RegisterRoutes attaches all API routes to the router.
func (h *Handlers) RegisterRoutes(r *mux.Router) {
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/folders", h.ListRootFolders).Methods(http.MethodGet)
	api.HandleFunc("/folders", h.CreateFolder).Methods(http.MethodPost)
	api.HandleFunc("/folders/hierarchy", h.GetHierarchy).Methods(http.MethodGet)
	api.HandleFunc("/folders/{id}", h.UpdateFolder).Methods(http.MethodPut)
	api.HandleFunc("/folders/{id}", h.DeleteFolder).Methods(http.MethodDelete)

	api.HandleFunc("/files", h.ListFiles).Methods(http.MethodGet)
	api.HandleFunc("/files/upload", h.UploadFile).Methods(http.MethodPost)
	api.HandleFunc("/files/bulk", h.BulkOperation).Methods(http.MethodPost)
	api.HandleFunc("/files/{id}", h.GetFile).Methods(http.MethodGet)
	api.HandleFunc("/files/{id}", h.DeleteFile).Methods(http.MethodDelete)
	api.HandleFunc("/files/{id}/folder", h.ReassignFolder).Methods(http.MethodPut)
	api.HandleFunc("/files/{id}/status", h.MarkStatus).Methods(http.MethodPut)

	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/livez", h.Livez).Methods(http.MethodGet)
	r.HandleFunc("/readyz", h.Readyz).Methods(http.MethodGet)
	r.HandleFunc("/api/version", h.Version).Methods(http.MethodGet)
}
