package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"
)

type memoryObject struct {
	data        []byte
	contentType string
}

// MemoryStore keeps objects in process memory. It backs the "memory" storage
// driver for local runs and the package tests of the content engine.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
	puts    int
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: map[string]memoryObject{}, now: time.Now}
}

func memoryKey(bucket, key string) string { return bucket + "/" + key }

func (s *MemoryStore) Put(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read object %s/%s: %w", bucket, key, err)
	}
	if size >= 0 && int64(len(data)) != size {
		return "", fmt.Errorf("object %s/%s: read %d bytes, expected %d", bucket, key, len(data), size)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[memoryKey(bucket, key)] = memoryObject{data: data, contentType: contentType}
	s.puts++
	return "memory://" + memoryKey(bucket, key), nil
}

func (s *MemoryStore) Exists(ctx context.Context, bucket, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[memoryKey(bucket, key)]
	return ok, nil
}

func (s *MemoryStore) Delete(ctx context.Context, bucket, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, memoryKey(bucket, key))
	return nil
}

func (s *MemoryStore) Presign(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	ok, err := s.Exists(ctx, bucket, key)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("presign %s/%s: %w", bucket, key, ErrObjectNotFound)
	}
	return fmt.Sprintf("memory://%s?expires=%d", memoryKey(bucket, key), s.now().Add(ttl).Unix()), nil
}

// Get returns a copy of the stored object.
func (s *MemoryStore) Get(bucket, key string) ([]byte, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[memoryKey(bucket, key)]
	if !ok {
		return nil, "", ErrObjectNotFound
	}
	return bytes.Clone(obj.data), obj.contentType, nil
}

// Keys lists the keys stored in bucket, sorted.
func (s *MemoryStore) Keys(bucket string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	prefix := bucket + "/"
	var keys []string
	for k := range s.objects {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			keys = append(keys, k[len(prefix):])
		}
	}
	sort.Strings(keys)
	return keys
}

// PutCount is the number of successful Put calls.
func (s *MemoryStore) PutCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.puts
}
