package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"media-manager/internal/logging"
)

// Subjects published by this service.
const (
	SubjectFileUploaded  = "media.file.uploaded"
	SubjectBulkCompleted = "media.bulk.completed"
	SubjectFolderDeleted = "media.folder.deleted"
)

// FileUploaded is sent after an upload has been stored and registered.
type FileUploaded struct {
	FileID     string    `json:"fileId"`
	Filename   string    `json:"filename"`
	MimeType   string    `json:"mimeType"`
	SizeBytes  int64     `json:"sizeBytes"`
	FolderID   *string   `json:"folderId,omitempty"`
	UploaderID string    `json:"uploaderId"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// BulkCompleted is sent when a bulk batch finishes, whatever its outcome.
type BulkCompleted struct {
	Operation   string    `json:"operation"`
	Attempted   int       `json:"attempted"`
	Succeeded   int       `json:"succeeded"`
	Failed      int       `json:"failed"`
	CompletedAt time.Time `json:"completedAt"`
}

// FolderDeleted is sent after a folder delete, cascading or not.
type FolderDeleted struct {
	FolderID  string    `json:"folderId"`
	Cascade   bool      `json:"cascade"`
	DeletedAt time.Time `json:"deletedAt"`
}

// Publisher sends JSON events to NATS. A nil *Publisher is valid and drops
// every event, so callers never have to branch on whether eventing is
// configured.
type Publisher struct {
	nc *nats.Conn
}

// Connect dials NATS with reconnect handling. The returned publisher keeps
// working across broker restarts.
func Connect(url string) (*Publisher, error) {
	opts := []nats.Option{
		nats.Name("media-manager"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logging.Warn("NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logging.Info("NATS reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			logging.Info("NATS connection closed")
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, err
	}

	logging.Info("Connected to NATS at %s", url)
	return &Publisher{nc: nc}, nil
}

// Publish marshals the payload and sends it on the subject. Events are
// advisory; failures are logged, not returned, so a broker outage never
// fails the user-facing operation that triggered the event.
func (p *Publisher) Publish(subject string, payload any) {
	if p == nil || p.nc == nil {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Failed to marshal event for %s: %v", subject, err)
		return
	}

	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
		Header:  nats.Header{"Nats-Msg-Id": []string{uuid.NewString()}},
	}
	if err := p.nc.PublishMsg(msg); err != nil {
		logging.Error("Failed to publish event on %s: %v", subject, err)
	}
}

// Close drains the connection so buffered events flush before shutdown.
func (p *Publisher) Close() {
	if p == nil || p.nc == nil {
		return
	}
	if err := p.nc.Drain(); err != nil {
		logging.Warn("NATS drain failed: %v", err)
	}
}
