package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"musicbox/model"
)

// AudioContentType is what stored audio is served as.
const AudioContentType = "audio/mpeg"

// AudioStore keeps song audio blobs. Get returns model.ErrNotFound for a
// missing key.
type AudioStore interface {
	PutAudio(ctx context.Context, key string, data []byte) error
	GetAudio(ctx context.Context, key string) ([]byte, error)
	DeleteAudio(ctx context.Context, key string) error
}

// AudioKey is the object key for a song's audio.
func AudioKey(songID string) string {
	return "audio/" + songID
}

// ObjectInfo 文件信息
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// BucketStats 存储桶统计信息
type BucketStats struct {
	TotalObjects int64
	TotalSize    int64
	LastModified time.Time
}

// MemoryAudioStore is an AudioStore held in process memory.
type MemoryAudioStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

type memoryObject struct {
	data     []byte
	modified time.Time
}

func NewMemoryAudioStore() *MemoryAudioStore {
	return &MemoryAudioStore{objects: make(map[string]memoryObject)}
}

func (m *MemoryAudioStore) PutAudio(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = memoryObject{data: append([]byte(nil), data...), modified: time.Now().UTC()}
	return nil
}

func (m *MemoryAudioStore) GetAudio(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("audio object %s: %w", key, model.ErrNotFound)
	}
	return append([]byte(nil), obj.data...), nil
}

func (m *MemoryAudioStore) DeleteAudio(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

// ListObjects returns objects under prefix sorted by key.
func (m *MemoryAudioStore) ListObjects(_ context.Context, prefix string) ([]ObjectInfo, *BucketStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &BucketStats{}
	objects := make([]ObjectInfo, 0)
	for key, obj := range m.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		objects = append(objects, ObjectInfo{Key: key, Size: int64(len(obj.data)), LastModified: obj.modified})
		stats.add(int64(len(obj.data)), obj.modified)
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, stats, nil
}

func (s *BucketStats) add(size int64, modified time.Time) {
	s.TotalObjects++
	s.TotalSize += size
	if modified.After(s.LastModified) {
		s.LastModified = modified
	}
}

// FormatSize renders a byte count for CLI output.
func FormatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
