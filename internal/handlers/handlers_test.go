package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"media-manager/internal/database"
	"media-manager/internal/startup"
)

// memStore is an in-memory ObjectStore for handler tests. A nonzero delay
// stalls PresignGet so tests can hold requests in flight.
type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	failing bool
	delay   time.Duration
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}}
}

func (m *memStore) Put(_ context.Context, name string, r io.Reader, _ int64, _ string) error {
	if m.failing {
		return errors.New("storage down")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[name] = data
	return nil
}

func (m *memStore) Get(_ context.Context, name string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[name]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memStore) Remove(_ context.Context, name string) error {
	if m.failing {
		return errors.New("storage down")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, name)
	return nil
}

func (m *memStore) Copy(_ context.Context, src, dst string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[src]
	if !ok {
		return errors.New("source not found")
	}
	m.objects[dst] = append([]byte(nil), data...)
	return nil
}

func (m *memStore) PresignGet(_ context.Context, name string, _ time.Duration) (string, error) {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[name]; !ok {
		return "", errors.New("object not found")
	}
	return "https://storage.test/" + name, nil
}

func (m *memStore) Ping(context.Context) error { return nil }

func setupTest(t *testing.T) (*Handlers, *mux.Router, *memStore) {
	t.Helper()

	db, err := database.New(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close database: %v", err)
		}
	})

	store := newMemStore()
	h := New(db, store, nil, &startup.Config{
		MaxUploadBytes:    10 << 20,
		OptimizeQuality:   85,
		OptimizeMaxWidth:  1920,
		OptimizeMaxHeight: 1080,
	})
	router := mux.NewRouter()
	h.RegisterRoutes(router)
	return h, router, store
}

func doJSON(t *testing.T, router *mux.Router, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var out map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func createTestFolder(t *testing.T, router *mux.Router, name string, parentID *string) string {
	t.Helper()

	rec := doJSON(t, router, http.MethodPost, "/api/folders", map[string]interface{}{
		"name":      name,
		"parentId":  parentID,
		"creatorId": "user-1",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create folder %s: status %d body %s", name, rec.Code, rec.Body.String())
	}
	data := decodeBody(t, rec)["data"].(map[string]interface{})
	return data["id"].(string)
}

func createTestFile(t *testing.T, h *Handlers, name string, folderID *string) string {
	t.Helper()

	file, err := h.db.CreateFile(context.Background(), &database.File{
		Filename:     name + "-obj",
		OriginalName: name,
		MimeType:     "image/jpeg",
		SizeBytes:    100,
		FolderID:     folderID,
		UploaderID:   "user-1",
	})
	if err != nil {
		t.Fatalf("CreateFile failed: %v", err)
	}
	h.store.Put(context.Background(), file.Filename, strings.NewReader("data"), 4, "image/jpeg")
	return file.ID
}

func TestCreateFolderEndpoint(t *testing.T) {
	_, router, _ := setupTest(t)

	rec := doJSON(t, router, http.MethodPost, "/api/folders", map[string]interface{}{
		"name":      "photos",
		"creatorId": "user-1",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	if body["success"] != true {
		t.Errorf("success = %v", body["success"])
	}
	data := body["data"].(map[string]interface{})
	if data["path"] != "photos" || data["name"] != "photos" {
		t.Errorf("folder data: %v", data)
	}
}

func TestCreateFolderEndpointErrors(t *testing.T) {
	_, router, _ := setupTest(t)
	parent := createTestFolder(t, router, "parent", nil)
	createTestFolder(t, router, "taken", &parent)

	tests := []struct {
		name       string
		body       map[string]interface{}
		wantStatus int
	}{
		{"missing name", map[string]interface{}{"creatorId": "u"}, http.StatusBadRequest},
		{"missing creator", map[string]interface{}{"name": "x"}, http.StatusBadRequest},
		{"unknown parent", map[string]interface{}{"name": "x", "creatorId": "u", "parentId": "nope"}, http.StatusNotFound},
		{"duplicate sibling", map[string]interface{}{"name": "taken", "creatorId": "u", "parentId": parent}, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodPost, "/api/folders", tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if body := decodeBody(t, rec); body["success"] != false {
				t.Errorf("success = %v, want false", body["success"])
			}
		})
	}
}

func TestMoveFolderCycleEndpoint(t *testing.T) {
	_, router, _ := setupTest(t)

	a := createTestFolder(t, router, "a", nil)
	b := createTestFolder(t, router, "b", &a)

	rec := doJSON(t, router, http.MethodPut, "/api/folders/"+a, map[string]interface{}{
		"parentId": b,
		"move":     true,
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("cycle move: status = %d, want 409 (body %s)", rec.Code, rec.Body.String())
	}
}

func TestRenameFolderEndpoint(t *testing.T) {
	_, router, _ := setupTest(t)

	id := createTestFolder(t, router, "before", nil)
	rec := doJSON(t, router, http.MethodPut, "/api/folders/"+id, map[string]interface{}{
		"name": "after",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	data := decodeBody(t, rec)["data"].(map[string]interface{})
	if data["path"] != "after" {
		t.Errorf("path = %v, want after", data["path"])
	}
}

func TestDeleteFolderEndpoint(t *testing.T) {
	h, router, _ := setupTest(t)

	id := createTestFolder(t, router, "full", nil)
	createTestFile(t, h, "inside.jpg", &id)

	rec := doJSON(t, router, http.MethodDelete, "/api/folders/"+id, nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("non-empty delete: status = %d, want 409", rec.Code)
	}

	rec = doJSON(t, router, http.MethodDelete, "/api/folders/"+id+"?cascade=true", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("cascade delete: status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestHierarchyEndpoint(t *testing.T) {
	h, router, _ := setupTest(t)

	root := createTestFolder(t, router, "root", nil)
	createTestFolder(t, router, "child", &root)
	createTestFile(t, h, "in-root.jpg", &root)

	rec := doJSON(t, router, http.MethodGet, "/api/folders/hierarchy", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	data := decodeBody(t, rec)["data"].([]interface{})
	if len(data) != 1 {
		t.Fatalf("got %d roots, want 1", len(data))
	}
	node := data[0].(map[string]interface{})
	if node["fileCount"] != float64(1) {
		t.Errorf("fileCount = %v, want 1", node["fileCount"])
	}
	if children := node["children"].([]interface{}); len(children) != 1 {
		t.Errorf("children = %v", children)
	}
}

func TestListFilesEndpoint(t *testing.T) {
	h, router, _ := setupTest(t)

	folder := createTestFolder(t, router, "filed", nil)
	createTestFile(t, h, "a.jpg", &folder)
	createTestFile(t, h, "b.jpg", nil)

	rec := doJSON(t, router, http.MethodGet, "/api/files", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["success"] != true {
		t.Errorf("success = %v", body["success"])
	}
	if files := body["data"].([]interface{}); len(files) != 2 {
		t.Errorf("got %d files, want 2", len(files))
	}
	pagination := body["pagination"].(map[string]interface{})
	if pagination["total"] != float64(2) || pagination["page"] != float64(1) {
		t.Errorf("pagination: %v", pagination)
	}

	// Folder filter plus unfiled filter.
	rec = doJSON(t, router, http.MethodGet, "/api/files?folderId="+folder, nil)
	if files := decodeBody(t, rec)["data"].([]interface{}); len(files) != 1 {
		t.Errorf("folder filter: %d files, want 1", len(files))
	}
	rec = doJSON(t, router, http.MethodGet, "/api/files?folderId=null", nil)
	if files := decodeBody(t, rec)["data"].([]interface{}); len(files) != 1 {
		t.Errorf("unfiled filter: %d files, want 1", len(files))
	}

	// Bad pagination input.
	rec = doJSON(t, router, http.MethodGet, "/api/files?page=zero", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad page: status = %d, want 400", rec.Code)
	}
}

func TestReassignAndStatusEndpoints(t *testing.T) {
	h, router, _ := setupTest(t)

	folder := createTestFolder(t, router, "dest", nil)
	id := createTestFile(t, h, "move.jpg", nil)

	rec := doJSON(t, router, http.MethodPut, "/api/files/"+id+"/folder", map[string]interface{}{
		"folderId": folder,
	})
	if rec.Code != http.StatusOK {
		t.Errorf("reassign: status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodPut, "/api/files/"+id+"/status", map[string]interface{}{
		"status": "ready",
	})
	if rec.Code != http.StatusOK {
		t.Errorf("mark status: status = %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPut, "/api/files/"+id+"/status", map[string]interface{}{
		"status": "archived",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid status: status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPut, "/api/files/no-such/folder", map[string]interface{}{
		"folderId": nil,
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing file: status = %d, want 404", rec.Code)
	}
}

func TestBulkDeletePartialFailure(t *testing.T) {
	h, router, _ := setupTest(t)

	ids := make([]string, 5)
	for i := range ids {
		ids[i] = createTestFile(t, h, fmt.Sprintf("bulk-%d.jpg", i), nil)
	}
	// Two registry records vanish before the batch runs, so their
	// per-item delete fails while the other three succeed.
	for _, id := range []string{ids[1], ids[3]} {
		if err := h.db.DeleteFile(context.Background(), id); err != nil {
			t.Fatalf("setup delete failed: %v", err)
		}
	}

	rec := doJSON(t, router, http.MethodPost, "/api/files/bulk", map[string]interface{}{
		"fileIds":   ids,
		"operation": "delete",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	if body["attempted"] != float64(5) {
		t.Errorf("attempted = %v, want 5", body["attempted"])
	}
	if succeeded := body["succeeded"].([]interface{}); len(succeeded) != 3 {
		t.Errorf("succeeded = %v, want 3 ids", succeeded)
	}
	if failed := body["failed"].([]interface{}); len(failed) != 2 {
		t.Errorf("failed = %v, want 2 entries", failed)
	}
}

func TestBulkMoveEndpoint(t *testing.T) {
	h, router, _ := setupTest(t)

	folder := createTestFolder(t, router, "dest", nil)
	ids := []string{
		createTestFile(t, h, "m1.jpg", nil),
		createTestFile(t, h, "m2.jpg", nil),
	}

	rec := doJSON(t, router, http.MethodPost, "/api/files/bulk", map[string]interface{}{
		"fileIds":   ids,
		"operation": "move",
		"payload":   map[string]interface{}{"folderId": folder},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	for _, id := range ids {
		file, err := h.db.GetFile(context.Background(), id)
		if err != nil {
			t.Fatalf("GetFile failed: %v", err)
		}
		if file.FolderID == nil || *file.FolderID != folder {
			t.Errorf("file %s not moved", id)
		}
	}
}

func TestBulkDownloadEndpoint(t *testing.T) {
	h, router, _ := setupTest(t)

	id := createTestFile(t, h, "d.jpg", nil)

	rec := doJSON(t, router, http.MethodPost, "/api/files/bulk", map[string]interface{}{
		"fileIds":   []string{id},
		"operation": "download",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	urls := decodeBody(t, rec)["urls"].(map[string]interface{})
	if urls[id] != "https://storage.test/d.jpg-obj" {
		t.Errorf("urls = %v", urls)
	}
}

func TestBulkConcurrentRequests(t *testing.T) {
	h, router, store := setupTest(t)

	idA := createTestFile(t, h, "a.jpg", nil)
	idB := createTestFile(t, h, "b.jpg", nil)
	// Stall presigning so the two requests overlap in flight.
	store.delay = 50 * time.Millisecond

	var wg sync.WaitGroup
	codes := make([]int, 2)
	for i, id := range []string{idA, idB} {
		body := []byte(`{"fileIds":["` + id + `"],"operation":"download"}`)
		wg.Add(1)
		go func(i int, body []byte) {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/api/files/bulk", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			codes[i] = rec.Code
		}(i, body)
	}
	wg.Wait()

	for i, code := range codes {
		if code != http.StatusOK {
			t.Errorf("request %d: status = %d, want 200", i, code)
		}
	}
}

func TestBulkValidation(t *testing.T) {
	_, router, _ := setupTest(t)

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"empty selection", map[string]interface{}{"fileIds": []string{}, "operation": "delete"}},
		{"unknown operation", map[string]interface{}{"fileIds": []string{"x"}, "operation": "shred"}},
		{"tag without tags", map[string]interface{}{"fileIds": []string{"x"}, "operation": "tag"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodPost, "/api/files/bulk", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400 (body %s)", rec.Code, rec.Body.String())
			}
		})
	}
}

func uploadBody(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.WriteField("uploaderId", "user-1"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestUploadFileEndpoint(t *testing.T) {
	_, router, store := setupTest(t)

	body, contentType := uploadBody(t, "notes.txt", []byte("plain text payload"))
	req := httptest.NewRequest(http.MethodPost, "/api/files/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	data := decodeBody(t, rec)["data"].(map[string]interface{})
	if data["originalName"] != "notes.txt" {
		t.Errorf("originalName = %v", data["originalName"])
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.objects) != 1 {
		t.Errorf("stored objects = %d, want 1", len(store.objects))
	}
}

func TestUploadFileOverCap(t *testing.T) {
	h, router, _ := setupTest(t)
	h.config.MaxUploadBytes = 1024

	body, contentType := uploadBody(t, "big.bin", bytes.Repeat([]byte("x"), 8192))
	req := httptest.NewRequest(http.MethodPost, "/api/files/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 (body %s)", rec.Code, rec.Body.String())
	}
}

func TestDeleteFileEndpoint(t *testing.T) {
	h, router, store := setupTest(t)

	id := createTestFile(t, h, "gone.jpg", nil)

	rec := doJSON(t, router, http.MethodDelete, "/api/files/"+id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if _, err := h.db.GetFile(context.Background(), id); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("record survived delete: %v", err)
	}
	store.mu.Lock()
	_, exists := store.objects["gone.jpg-obj"]
	store.mu.Unlock()
	if exists {
		t.Error("storage object survived delete")
	}
}

func TestHealthEndpoints(t *testing.T) {
	_, router, _ := setupTest(t)

	for _, path := range []string{"/healthz", "/livez", "/readyz", "/api/version"} {
		rec := doJSON(t, router, http.MethodGet, path, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status = %d", path, rec.Code)
		}
	}

	rec := doJSON(t, router, http.MethodGet, "/healthz", nil)
	body := decodeBody(t, rec)
	if body["status"] != "healthy" || body["database"] != true {
		t.Errorf("health body: %v", body)
	}
}
