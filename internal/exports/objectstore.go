package exports

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"compliancecore/internal/blob"
)

// BlobObjectStore persists export artifacts through the blob store.
type BlobObjectStore struct {
	blobs blob.Store
}

// NewBlobObjectStore wraps a blob store as an artifact store.
func NewBlobObjectStore(blobs blob.Store) *BlobObjectStore {
	return &BlobObjectStore{blobs: blobs}
}

func (s *BlobObjectStore) Put(ctx context.Context, key string, payload []byte, contentType string, metadata map[string]any) (ExportArtifact, error) {
	meta := make(map[string]string, len(metadata))
	for k, v := range metadata {
		meta[k] = fmt.Sprint(v)
	}
	info, err := s.blobs.Put(ctx, key, bytes.NewReader(payload), blob.PutOptions{
		ContentType: contentType,
		Metadata:    meta,
	})
	if err != nil {
		return ExportArtifact{}, err
	}
	return artifactFromInfo(info), nil
}

func (s *BlobObjectStore) Get(ctx context.Context, key string) (ExportArtifact, []byte, error) {
	info, reader, err := s.blobs.Get(ctx, key)
	if err != nil {
		return ExportArtifact{}, nil, err
	}
	defer reader.Close()
	payload, err := io.ReadAll(reader)
	if err != nil {
		return ExportArtifact{}, nil, err
	}
	return artifactFromInfo(info), payload, nil
}

func (s *BlobObjectStore) Delete(ctx context.Context, key string) (bool, error) {
	return s.blobs.Delete(ctx, key)
}

func (s *BlobObjectStore) List(ctx context.Context, prefix string) ([]ExportArtifact, error) {
	infos, err := s.blobs.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	out := make([]ExportArtifact, 0, len(infos))
	for _, info := range infos {
		out = append(out, artifactFromInfo(info))
	}
	return out, nil
}

func artifactFromInfo(info blob.Info) ExportArtifact {
	var meta map[string]any
	if len(info.Metadata) > 0 {
		meta = make(map[string]any, len(info.Metadata))
		for k, v := range info.Metadata {
			meta[k] = v
		}
	}
	return ExportArtifact{
		ID:          info.Key,
		ContentType: info.ContentType,
		SizeBytes:   info.Size,
		URL:         info.URL,
		Metadata:    meta,
		CreatedAt:   info.LastModified,
	}
}

type memoryObject struct {
	artifact ExportArtifact
	payload  []byte
}

// MemoryObjectStore is an in-memory artifact store for tests and ephemeral use.
type MemoryObjectStore struct {
	mu      sync.Mutex
	objects map[string]memoryObject
	nowFn   func() time.Time
}

// NewMemoryObjectStore constructs an empty in-memory artifact store.
func NewMemoryObjectStore() *MemoryObjectStore {
	return &MemoryObjectStore{
		objects: make(map[string]memoryObject),
		nowFn:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryObjectStore) Put(_ context.Context, key string, payload []byte, contentType string, metadata map[string]any) (ExportArtifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.objects[key]; exists {
		return ExportArtifact{}, fmt.Errorf("object %s already exists", key)
	}
	var meta map[string]any
	if len(metadata) > 0 {
		meta = make(map[string]any, len(metadata))
		for k, v := range metadata {
			meta[k] = v
		}
	}
	artifact := ExportArtifact{
		ID:          key,
		ContentType: contentType,
		SizeBytes:   int64(len(payload)),
		Metadata:    meta,
		CreatedAt:   s.nowFn(),
	}
	s.objects[key] = memoryObject{artifact: artifact, payload: append([]byte(nil), payload...)}
	return artifact, nil
}

func (s *MemoryObjectStore) Get(_ context.Context, key string) (ExportArtifact, []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[key]
	if !ok {
		return ExportArtifact{}, nil, fmt.Errorf("object %s not found", key)
	}
	return obj.artifact, append([]byte(nil), obj.payload...), nil
}

func (s *MemoryObjectStore) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; !ok {
		return false, nil
	}
	delete(s.objects, key)
	return true, nil
}

func (s *MemoryObjectStore) List(_ context.Context, prefix string) ([]ExportArtifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.objects))
	for key := range s.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	out := make([]ExportArtifact, 0, len(keys))
	for _, key := range keys {
		out = append(out, s.objects[key].artifact)
	}
	return out, nil
}
