package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/tcavaliere/coldreach/internal/outreach"
)

// SenderStore keeps sender profiles in-memory for development.
type SenderStore struct {
	mu      sync.RWMutex
	senders map[string]outreach.SenderProfile
}

// NewSenderStore constructs a SenderStore.
func NewSenderStore() *SenderStore {
	return &SenderStore{senders: make(map[string]outreach.SenderProfile)}
}

// PutSenderProfile registers or replaces a sender profile.
func (s *SenderStore) PutSenderProfile(_ context.Context, profile outreach.SenderProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.senders[profile.ID] = profile
	return nil
}

// GetSenderProfile resolves a sender by ID.
func (s *SenderStore) GetSenderProfile(_ context.Context, id string) (outreach.SenderProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.senders[id]
	if !ok {
		return outreach.SenderProfile{}, fmt.Errorf("sender %s: %w", id, outreach.ErrNotFound)
	}
	return profile, nil
}

// DraftStore archives drafts in-memory for development.
type DraftStore struct {
	mu     sync.RWMutex
	drafts []outreach.DraftRecord
}

// NewDraftStore constructs a DraftStore.
func NewDraftStore() *DraftStore {
	return &DraftStore{}
}

// SaveDraft appends the record.
func (s *DraftStore) SaveDraft(_ context.Context, rec outreach.DraftRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts = append(s.drafts, rec)
	return nil
}

// Drafts returns a copy of the archived records. Test helper.
func (s *DraftStore) Drafts() []outreach.DraftRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]outreach.DraftRecord, len(s.drafts))
	copy(out, s.drafts)
	return out
}

var (
	_ outreach.SenderStore = (*SenderStore)(nil)
	_ outreach.DraftStore  = (*DraftStore)(nil)
)
