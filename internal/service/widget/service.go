package widget

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/zhouzirui/support-chat/backend/internal/model/chat"
	"github.com/zhouzirui/support-chat/backend/internal/model/profile"
)

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrSessionNotFound = errors.New("session not found")
)

// Config tunes sessions created by the Service.
type Config struct {
	DefaultProfile string
	ThinkingText   string
}

// Service keeps the live widget sessions in memory. Sessions are never
// persisted and end when closed or when the process exits.
type Service struct {
	profiles profile.Store
	client   Completer
	cfg      Config

	mu      sync.RWMutex
	widgets map[string]*Widget
}

// NewService creates a session registry whose widgets share client.
func NewService(profiles profile.Store, client Completer, cfg Config) *Service {
	if cfg.DefaultProfile == "" {
		cfg.DefaultProfile = profile.DefaultID
	}
	return &Service{
		profiles: profiles,
		client:   client,
		cfg:      cfg,
		widgets:  make(map[string]*Widget),
	}
}

// CreateSession mounts a new widget bound to profileID, or the default
// profile when profileID is empty.
func (s *Service) CreateSession(_ context.Context, profileID string) (*Widget, error) {
	if profileID == "" {
		profileID = s.cfg.DefaultProfile
	}

	p, ok := s.profiles.FindByID(profileID)
	if !ok {
		return nil, ErrProfileNotFound
	}

	w := New(Options{
		ID:           uuid.NewString(),
		ProfileID:    p.ID,
		Greeting:     p.Greeting,
		ThinkingText: s.cfg.ThinkingText,
		Client:       s.client,
	})

	s.mu.Lock()
	s.widgets[w.ID()] = w
	s.mu.Unlock()

	metricActiveSessions.Inc()
	log.Printf("[widget] created session=%s profile=%s", w.ID(), p.ID)
	return w, nil
}

// Get returns the widget for sessionID.
func (s *Service) Get(_ context.Context, sessionID string) (*Widget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.widgets[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return w, nil
}

// List returns snapshots of all live sessions ordered by creation time.
func (s *Service) List(_ context.Context) []chat.Session {
	s.mu.RLock()
	snapshots := make([]chat.Session, 0, len(s.widgets))
	for _, w := range s.widgets {
		snapshots = append(snapshots, w.Snapshot())
	}
	s.mu.RUnlock()

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].CreatedAt.Before(snapshots[j].CreatedAt)
	})
	return snapshots
}

// Close tears a session down and ends its subscriptions.
func (s *Service) Close(_ context.Context, sessionID string) error {
	s.mu.Lock()
	w, ok := s.widgets[sessionID]
	if ok {
		delete(s.widgets, sessionID)
	}
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}

	w.Close()
	metricActiveSessions.Dec()
	log.Printf("[widget] closed session=%s", sessionID)
	return nil
}
