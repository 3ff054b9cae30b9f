package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tcavaliere/coldreach/internal/outreach"
)

func TestSenderStoreRoundTrip(t *testing.T) {
	t.Parallel()

	s := NewSenderStore()
	ctx := context.Background()

	profile := outreach.SenderProfile{
		ID:          "sender-1",
		Name:        "Acme",
		Description: "We make widgets.",
		Services:    []outreach.Service{{Name: "Widgets"}},
	}
	if err := s.PutSenderProfile(ctx, profile); err != nil {
		t.Fatalf("PutSenderProfile() error = %v", err)
	}

	got, err := s.GetSenderProfile(ctx, "sender-1")
	if err != nil {
		t.Fatalf("GetSenderProfile() error = %v", err)
	}
	if got.Name != "Acme" || len(got.Services) != 1 {
		t.Fatalf("unexpected profile %+v", got)
	}
}

func TestSenderStoreMissingSender(t *testing.T) {
	t.Parallel()

	s := NewSenderStore()
	_, err := s.GetSenderProfile(context.Background(), "ghost")
	if !errors.Is(err, outreach.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDraftStoreAppends(t *testing.T) {
	t.Parallel()

	s := NewDraftStore()
	ctx := context.Background()

	for _, id := range []string{"job-1", "job-2"} {
		err := s.SaveDraft(ctx, outreach.DraftRecord{
			JobID:     id,
			Subject:   "Hi",
			CreatedAt: time.Now(),
		})
		if err != nil {
			t.Fatalf("SaveDraft(%s) error = %v", id, err)
		}
	}

	drafts := s.Drafts()
	if len(drafts) != 2 || drafts[0].JobID != "job-1" || drafts[1].JobID != "job-2" {
		t.Fatalf("unexpected drafts %+v", drafts)
	}
}
