package evidence

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"compliancecore/internal/blob"
)

type warnCapture struct {
	events []string
}

func (w *warnCapture) Warn(msg string, _ map[string]any) {
	w.events = append(w.events, msg)
}

func staticKeys(keys ...string) func() string {
	i := 0
	return func() string {
		k := keys[i%len(keys)]
		i++
		return k
	}
}

func TestStoreMintsBlobURL(t *testing.T) {
	blobs := blob.NewMemory()
	intake := NewIntake(blobs, WithKeyGenerator(staticKeys("abc-123")))
	ctx := context.Background()

	input, err := intake.Store(ctx, Upload{Name: "policy.pdf", Type: "application/pdf", Content: strings.NewReader("pdf bytes")})
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if input.URL != "blob://evidence/abc-123" {
		t.Fatalf("unexpected url: %s", input.URL)
	}
	if input.Name != "policy.pdf" || input.Type != "application/pdf" {
		t.Fatalf("unexpected input: %+v", input)
	}

	info, err := blobs.Head(ctx, "evidence/abc-123")
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if info.ContentType != "application/pdf" || info.Metadata["filename"] != "policy.pdf" {
		t.Fatalf("unexpected stored info: %+v", info)
	}
}

func TestStoreEnforcesSizeCap(t *testing.T) {
	intake := NewIntake(blob.NewMemory())
	ctx := context.Background()

	big := strings.NewReader(strings.Repeat("x", MaxUploadBytes+1))
	if _, err := intake.Store(ctx, Upload{Name: "big.pdf", Content: big}); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}

	exact := strings.NewReader(strings.Repeat("x", MaxUploadBytes))
	if _, err := intake.Store(ctx, Upload{Name: "exact.pdf", Content: exact}); err != nil {
		t.Fatalf("upload at the cap must pass: %v", err)
	}
}

func TestStoreWarnsOnUnexpectedType(t *testing.T) {
	warns := &warnCapture{}
	intake := NewIntake(blob.NewMemory(), WithWarnLogger(warns))
	ctx := context.Background()

	if _, err := intake.Store(ctx, Upload{Name: "notes.txt", Type: "text/plain", Content: strings.NewReader("x")}); err != nil {
		t.Fatalf("unexpected type must still be accepted: %v", err)
	}
	if len(warns.events) != 1 {
		t.Fatalf("expected one warning, got %v", warns.events)
	}

	if _, err := intake.Store(ctx, Upload{Name: "scan.PDF", Type: "application/pdf", Content: strings.NewReader("x")}); err != nil {
		t.Fatalf("store: %v", err)
	}
	if len(warns.events) != 1 {
		t.Fatalf("suggested type must not warn: %v", warns.events)
	}
}

func TestResolveRoundTrip(t *testing.T) {
	intake := NewIntake(blob.NewMemory())
	ctx := context.Background()

	input, err := intake.Store(ctx, Upload{Name: "scan.pdf", Type: "application/pdf", Content: strings.NewReader("the content")})
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	_, rc, err := intake.Resolve(ctx, input.URL)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	body, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	_ = rc.Close()
	if string(body) != "the content" {
		t.Fatalf("unexpected content: %q", body)
	}

	if _, _, err := intake.Resolve(ctx, "https://example.com/x"); !errors.Is(err, ErrNotBlobURL) {
		t.Fatalf("expected ErrNotBlobURL, got %v", err)
	}
}

func TestDiscardRemovesContent(t *testing.T) {
	intake := NewIntake(blob.NewMemory())
	ctx := context.Background()

	input, err := intake.Store(ctx, Upload{Name: "scan.pdf", Content: strings.NewReader("x")})
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	existed, err := intake.Discard(ctx, input.URL)
	if err != nil || !existed {
		t.Fatalf("discard: %v %v", existed, err)
	}
	if _, _, err := intake.Resolve(ctx, input.URL); err == nil {
		t.Fatalf("resolve after discard must fail")
	}
}
