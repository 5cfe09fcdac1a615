package blob

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestMemoryPutGetHeadDelete(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	info, err := s.Put(ctx, "evidence/a", strings.NewReader("payload"), PutOptions{ContentType: "application/pdf", Metadata: map[string]string{"control": "1"}})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != 7 || info.ContentType != "application/pdf" {
		t.Fatalf("unexpected info: %+v", info)
	}

	if _, err := s.Put(ctx, "evidence/a", strings.NewReader("other"), PutOptions{}); err == nil {
		t.Fatalf("duplicate key must be rejected")
	}

	got, rc, err := s.Get(ctx, "evidence/a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	_ = rc.Close()
	if string(body) != "payload" || got.Metadata["control"] != "1" {
		t.Fatalf("unexpected content: %q %+v", body, got)
	}

	head, err := s.Head(ctx, "evidence/a")
	if err != nil || head.Size != 7 {
		t.Fatalf("head: %+v %v", head, err)
	}

	existed, err := s.Delete(ctx, "evidence/a")
	if err != nil || !existed {
		t.Fatalf("delete: %v %v", existed, err)
	}
	existed, err = s.Delete(ctx, "evidence/a")
	if err != nil || existed {
		t.Fatalf("second delete should report absent: %v %v", existed, err)
	}
	if _, _, err := s.Get(ctx, "evidence/a"); err == nil {
		t.Fatalf("get after delete must fail")
	}
}

func TestMemoryListByPrefix(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	for _, key := range []string{"evidence/b", "evidence/a", "exports/x"} {
		if _, err := s.Put(ctx, key, strings.NewReader("x"), PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}
	infos, err := s.List(ctx, "evidence/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 || infos[0].Key != "evidence/a" || infos[1].Key != "evidence/b" {
		t.Fatalf("unexpected listing: %+v", infos)
	}
}

func TestMemoryPresignUnsupported(t *testing.T) {
	s := NewMemory()
	if _, err := s.PresignURL(context.Background(), "k", SignedURLOptions{}); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestOpenSelectsDriver(t *testing.T) {
	t.Setenv("COMPLIANCECORE_BLOB_DRIVER", "memory")
	s, err := Open(context.Background())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if s.Driver() != DriverMemory {
		t.Fatalf("expected memory driver, got %s", s.Driver())
	}

	t.Setenv("COMPLIANCECORE_BLOB_DRIVER", "fs")
	t.Setenv("COMPLIANCECORE_BLOB_FS_ROOT", t.TempDir())
	s, err = Open(context.Background())
	if err != nil {
		t.Fatalf("open fs: %v", err)
	}
	if s.Driver() != DriverFilesystem {
		t.Fatalf("expected fs driver, got %s", s.Driver())
	}

	t.Setenv("COMPLIANCECORE_BLOB_DRIVER", "gcs")
	if _, err := Open(context.Background()); err == nil {
		t.Fatalf("unknown driver must error")
	}
}

func TestOpenS3RequiresBucket(t *testing.T) {
	t.Setenv("COMPLIANCECORE_BLOB_DRIVER", "s3")
	t.Setenv("COMPLIANCECORE_BLOB_S3_BUCKET", "")
	if _, err := Open(context.Background()); err == nil {
		t.Fatalf("missing bucket must error")
	}
}
