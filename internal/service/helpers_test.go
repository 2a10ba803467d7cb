package service_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pageza/flavor-monk/backend/internal/apperrors"
)

type recordingInvalidator struct {
	mu    sync.Mutex
	users []string
}

func (r *recordingInvalidator) InvalidateUser(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = append(r.users, userID)
	return nil
}

func (r *recordingInvalidator) calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.users...)
}

type memArchive struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemArchive() *memArchive {
	return &memArchive{objects: make(map[string][]byte)}
}

func (a *memArchive) Put(_ context.Context, key string, data []byte, _ string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.objects[key] = data
	return nil
}

func (a *memArchive) Get(_ context.Context, key string) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	data, ok := a.objects[key]
	if !ok {
		return nil, apperrors.NotFound("archive snapshot")
	}
	return data, nil
}

// linkingArchive is a memArchive that also presigns links.
type linkingArchive struct {
	*memArchive
}

func (a linkingArchive) PresignURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	return fmt.Sprintf("https://archive.test/%s?expires=%d", key, int(ttl.Seconds())), nil
}

func (a *memArchive) keys() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	keys := make([]string, 0, len(a.objects))
	for k := range a.objects {
		keys = append(keys, k)
	}
	return keys
}

var testLogger = zap.NewNop()
