package channels

import (
	"context"
	"sync"

	"github.com/anonto42/nano-midea/notifier/internal/models"
)

type fakeStore struct {
	mu        sync.Mutex
	subs      map[string][]models.PushSubscription
	listErr   error
	removeErr error
	removed   []string
}

func newFakeStore(subs ...models.PushSubscription) *fakeStore {
	s := &fakeStore{subs: map[string][]models.PushSubscription{}}
	for _, sub := range subs {
		s.subs[sub.UserID] = append(s.subs[sub.UserID], sub)
	}
	return s
}

func (s *fakeStore) ListByUserID(_ context.Context, userID string) ([]models.PushSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	return append([]models.PushSubscription{}, s.subs[userID]...), nil
}

func (s *fakeStore) RemoveExpired(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removeErr != nil {
		return s.removeErr
	}
	s.removed = append(s.removed, id)
	for user, subs := range s.subs {
		kept := subs[:0]
		for _, sub := range subs {
			if sub.ID != id {
				kept = append(kept, sub)
			}
		}
		s.subs[user] = kept
	}
	return nil
}
