// Package evidence moves uploaded file content into blob storage and hands
// the compliance store an opaque reference. Control records never carry
// bytes; they carry the blob URL minted here.
package evidence

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"

	"compliancecore/internal/blob"
	"compliancecore/pkg/domain"
)

// MaxUploadBytes caps a single evidence upload at 5MB.
const MaxUploadBytes = 5 << 20

const (
	keyPrefix = "evidence/"
	urlScheme = "blob://"
)

// ErrTooLarge is returned when an upload exceeds MaxUploadBytes.
var ErrTooLarge = errors.New("evidence: upload exceeds 5MB limit")

// ErrNotBlobURL is returned by Resolve for URLs this package did not mint.
var ErrNotBlobURL = errors.New("evidence: not a blob url")

// suggestedExtensions are the upload types the UI suggests. Anything else is
// accepted with a warning, never rejected.
var suggestedExtensions = map[string]struct{}{
	".pdf": {}, ".doc": {}, ".docx": {}, ".xls": {}, ".xlsx": {}, ".png": {}, ".jpg": {}, ".jpeg": {},
}

// Upload carries one file submitted as evidence.
type Upload struct {
	Name    string
	Type    string // MIME type as reported by the uploader
	Content io.Reader
}

// WarnLogger receives advisory events from the intake.
type WarnLogger interface {
	Warn(msg string, fields map[string]any)
}

type noopWarnLogger struct{}

func (noopWarnLogger) Warn(string, map[string]any) {}

// IntakeOption configures an Intake.
type IntakeOption func(*Intake)

// WithKeyGenerator injects the generator for blob key suffixes.
func WithKeyGenerator(fn func() string) IntakeOption {
	return func(i *Intake) { i.newKey = fn }
}

// WithWarnLogger injects the logger for advisory events.
func WithWarnLogger(l WarnLogger) IntakeOption {
	return func(i *Intake) { i.logger = l }
}

// Intake stores uploads in a blob store under evidence/ keys.
type Intake struct {
	blobs  blob.Store
	newKey func() string
	logger WarnLogger
}

// NewIntake constructs an intake over the given blob store.
func NewIntake(blobs blob.Store, opts ...IntakeOption) *Intake {
	i := &Intake{
		blobs:  blobs,
		newKey: uuid.NewString,
		logger: noopWarnLogger{},
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Store persists the upload and returns the evidence fields to hand to the
// compliance store. The returned URL is opaque to everything but Resolve.
func (i *Intake) Store(ctx context.Context, up Upload) (domain.EvidenceInput, error) {
	if up.Content == nil {
		return domain.EvidenceInput{}, errors.New("evidence: upload content required")
	}
	content, err := io.ReadAll(io.LimitReader(up.Content, MaxUploadBytes+1))
	if err != nil {
		return domain.EvidenceInput{}, fmt.Errorf("read upload: %w", err)
	}
	if len(content) > MaxUploadBytes {
		return domain.EvidenceInput{}, ErrTooLarge
	}

	ext := strings.ToLower(path.Ext(up.Name))
	if _, ok := suggestedExtensions[ext]; !ok {
		i.logger.Warn("evidence upload outside suggested types", map[string]any{
			"name": up.Name,
			"type": up.Type,
		})
	}

	key := keyPrefix + i.newKey()
	if _, err := i.blobs.Put(ctx, key, bytes.NewReader(content), blob.PutOptions{
		ContentType: up.Type,
		Metadata:    map[string]string{"filename": up.Name},
	}); err != nil {
		return domain.EvidenceInput{}, fmt.Errorf("store upload: %w", err)
	}

	return domain.EvidenceInput{
		Name: up.Name,
		Type: up.Type,
		URL:  urlScheme + key,
	}, nil
}

// Resolve maps an evidence URL back to its stored content.
func (i *Intake) Resolve(ctx context.Context, url string) (blob.Info, io.ReadCloser, error) {
	key, ok := strings.CutPrefix(url, urlScheme)
	if !ok || key == "" {
		return blob.Info{}, nil, ErrNotBlobURL
	}
	return i.blobs.Get(ctx, key)
}

// Discard removes the stored content behind an evidence URL. Used after the
// matching evidence record is removed from its control.
func (i *Intake) Discard(ctx context.Context, url string) (bool, error) {
	key, ok := strings.CutPrefix(url, urlScheme)
	if !ok || key == "" {
		return false, ErrNotBlobURL
	}
	return i.blobs.Delete(ctx, key)
}
