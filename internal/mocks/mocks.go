// Package mocks holds testify mocks of the service and queue interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/pageza/flavor-monk/backend/internal/queue"
	"github.com/pageza/flavor-monk/backend/internal/recommend"
	"github.com/pageza/flavor-monk/backend/internal/service"
)

// MockRanker is a mock implementation of service.Ranker
type MockRanker struct {
	mock.Mock
}

func (m *MockRanker) Rank(ctx context.Context, query, userID string, intentStrength float64) ([]recommend.RankedCandidate, error) {
	args := m.Called(ctx, query, userID, intentStrength)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]recommend.RankedCandidate), args.Error(1)
}

// MockKojoService is a mock implementation of service.IKojoService
type MockKojoService struct {
	mock.Mock
}

func (m *MockKojoService) Chat(ctx context.Context, userID, message string) (*service.ChatReply, error) {
	args := m.Called(ctx, userID, message)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ChatReply), args.Error(1)
}

// MockQueue is a mock implementation of queue.Queue
type MockQueue struct {
	mock.Mock
}

func (m *MockQueue) Enqueue(ctx context.Context, task *queue.Task) error {
	return m.Called(ctx, task).Error(0)
}

func (m *MockQueue) Reserve(ctx context.Context, wait time.Duration) (*queue.Task, error) {
	args := m.Called(ctx, wait)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*queue.Task), args.Error(1)
}

func (m *MockQueue) Ack(ctx context.Context, task *queue.Task) error {
	return m.Called(ctx, task).Error(0)
}

func (m *MockQueue) Nack(ctx context.Context, task *queue.Task) error {
	return m.Called(ctx, task).Error(0)
}

func (m *MockQueue) RequeueStale(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

var (
	_ service.Ranker       = (*MockRanker)(nil)
	_ service.IKojoService = (*MockKojoService)(nil)
	_ queue.Queue          = (*MockQueue)(nil)
)
