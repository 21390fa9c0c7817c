package s3

import (
	"context"
	"encoding/json"
	"time"

	"chainreact/internal/config"
	"chainreact/internal/generation"
	"chainreact/pkg/logger"
)

// Artifact is the debug bundle stored for one generation run. It carries the
// prompts, the raw model response, and the repair trail, so a run can be
// replayed offline.
type Artifact struct {
	ID         string                        `json:"id"`
	Prompt     string                        `json:"prompt"`
	Model      string                        `json:"model"`
	Mode       string                        `json:"mode"`
	Workflow   *generation.GeneratedWorkflow `json:"workflow"`
	Errors     []generation.ValidationError  `json:"errors,omitempty"`
	Debug      *generation.DebugInfo         `json:"debug"`
	DurationMS int64                         `json:"durationMs"`
	ArchivedAt time.Time                     `json:"archivedAt"`
}

// ObjectStore is the slice of the client the archiver needs.
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
}

// Archiver writes debug bundles to object storage. A disabled archiver is
// valid and discards every bundle, so callers never branch on the storage
// provider.
type Archiver struct {
	store   ObjectStore
	logger  logger.Logger
	enabled bool
	now     func() time.Time
}

// NewArchiver builds an archiver from the storage configuration. Provider
// "none" yields a disabled archiver.
func NewArchiver(cfg *config.StorageConfig) (*Archiver, error) {
	a := &Archiver{
		logger: logger.New("artifact-archiver"),
		now:    time.Now,
	}

	if cfg == nil || cfg.Provider != "s3" {
		return a, nil
	}

	client, err := New(cfg.S3Config)
	if err != nil {
		return nil, err
	}

	a.store = client
	a.enabled = true
	return a, nil
}

// NewArchiverWithStore builds an enabled archiver around an existing store.
func NewArchiverWithStore(store ObjectStore) *Archiver {
	return &Archiver{
		store:   store,
		logger:  logger.New("artifact-archiver"),
		enabled: true,
		now:     time.Now,
	}
}

// WithClock overrides the timestamp source.
func (a *Archiver) WithClock(now func() time.Time) *Archiver {
	a.now = now
	return a
}

// Enabled reports whether bundles will actually be stored.
func (a *Archiver) Enabled() bool {
	return a.enabled
}

// Archive stores the debug bundle for a finished generation and returns the
// object key. Archiving is best effort: failures are logged and the empty
// key is returned, so the request path never degrades because of storage.
func (a *Archiver) Archive(ctx context.Context, prompt string, result *generation.Result) string {
	if !a.enabled || result == nil || result.Debug == nil {
		return ""
	}

	artifact := &Artifact{
		ID:         result.ID,
		Prompt:     prompt,
		Model:      result.Model,
		Mode:       result.Mode,
		Workflow:   result.Workflow,
		Errors:     result.Errors,
		Debug:      result.Debug,
		DurationMS: result.DurationMS,
		ArchivedAt: a.now().UTC(),
	}

	body, err := json.Marshal(artifact)
	if err != nil {
		a.logger.ErrorContext(ctx, "Failed to encode debug artifact",
			"generation_id", result.ID,
			"error", err,
		)
		return ""
	}

	key := ArtifactKey(result.ID)
	if err := a.store.Put(ctx, key, body, "application/json"); err != nil {
		a.logger.ErrorContext(ctx, "Failed to archive debug artifact",
			"generation_id", result.ID,
			"key", key,
			"error", err,
		)
		return ""
	}

	a.logger.InfoContext(ctx, "Archived debug artifact",
		"generation_id", result.ID,
		"key", key,
		"bytes", len(body),
	)
	return key
}

// ArtifactKey returns the object key for a generation's debug bundle.
func ArtifactKey(generationID string) string {
	return "generations/" + generationID + ".json"
}
