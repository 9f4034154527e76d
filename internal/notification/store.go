// Package notification хранит уведомления для панели администратора.
package notification

import (
	"context"
	"errors"
	"sync"

	"github.com/mmeshcher/schoolshop/internal/model"
)

// ErrNotFound возвращается, если уведомление не найдено или уже истекло.
var ErrNotFound = errors.New("notification not found")

// Store описывает хранилище уведомлений.
type Store interface {
	Add(ctx context.Context, n model.Notification) error
	List(ctx context.Context) ([]model.Notification, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context) error
	Clear(ctx context.Context) error
}

// DefaultCapacity задаёт, сколько уведомлений хранит MemoryStore.
const DefaultCapacity = 200

// MemoryStore хранит уведомления в памяти процесса. Старые уведомления вытесняются.
type MemoryStore struct {
	mu       sync.Mutex
	items    []model.Notification
	capacity int
}

// NewMemoryStore создаёт хранилище на capacity уведомлений.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemoryStore{capacity: capacity}
}

// Add добавляет уведомление.
func (s *MemoryStore) Add(_ context.Context, n model.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = append(s.items, n)
	if len(s.items) > s.capacity {
		s.items = append([]model.Notification(nil), s.items[len(s.items)-s.capacity:]...)
	}
	return nil
}

// List возвращает уведомления, начиная с самых новых.
func (s *MemoryStore) List(_ context.Context) ([]model.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := make([]model.Notification, 0, len(s.items))
	for i := len(s.items) - 1; i >= 0; i-- {
		res = append(res, s.items[i])
	}
	return res, nil
}

// MarkRead отмечает уведомление прочитанным.
func (s *MemoryStore) MarkRead(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].Read = true
			return nil
		}
	}
	return ErrNotFound
}

// MarkAllRead отмечает все уведомления прочитанными.
func (s *MemoryStore) MarkAllRead(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		s.items[i].Read = true
	}
	return nil
}

// Clear удаляет все уведомления.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	return nil
}
