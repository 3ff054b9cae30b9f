package generator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tcavaliere/coldreach/internal/outreach"
)

type fakeTextGenerator struct {
	response   string
	err        error
	lastSystem string
	lastPrompt string
}

func (f *fakeTextGenerator) Generate(_ context.Context, system, prompt string) (string, error) {
	f.lastSystem = system
	f.lastPrompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func TestParseDraft(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name        string
		raw         string
		wantSubject string
		wantBody    string
	}{
		{
			name:        "marker with body",
			raw:         "SUBJECT: Hello\nBody line one\nBody line two",
			wantSubject: "Hello",
			wantBody:    "Body line one\nBody line two",
		},
		{
			name:        "preamble before marker discarded",
			raw:         "Sure, here is your email:\nSUBJECT: Quick question\nHi there.",
			wantSubject: "Quick question",
			wantBody:    "Hi there.",
		},
		{
			name:        "marker without body",
			raw:         "SUBJECT: Only a subject",
			wantSubject: "Only a subject",
			wantBody:    "",
		},
		{
			name:        "no marker",
			raw:         "Just some email text.",
			wantSubject: "Introduction from Acme",
			wantBody:    "Just some email text.",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			draft := ParseDraft(tc.raw, "Acme")
			require.Equal(t, tc.wantSubject, draft.Subject)
			require.Equal(t, tc.wantBody, draft.Body)
		})
	}
}

func TestComposeRendersPrompt(t *testing.T) {
	t.Parallel()

	gen := &fakeTextGenerator{response: "SUBJECT: Hi\nHello."}
	c := New(gen, nil)

	sender := outreach.SenderProfile{
		Name:        "Acme",
		Description: "We make widgets.",
		Services: []outreach.Service{
			{Name: "Widgets", Description: "Small ones"},
			{Name: "Support"},
		},
	}
	target := outreach.SiteProfile{
		Name:          "Globex",
		Description:   "A conglomerate.",
		BusinessAreas: []string{"Energy", "Retail"},
	}
	contact := &outreach.ContactInfo{Found: true, Name: "Jane Smith", Email: "jane@globex.com"}

	draft := c.Compose(context.Background(), sender, target, contact, outreach.JobRequest{
		Tone:                 outreach.ToneCasual,
		PersonalizationLevel: outreach.PersonalizationHigh,
		CustomInstructions:   "Mention the trade show.",
	})

	require.Equal(t, "Hi", draft.Subject)
	require.Equal(t, "Hello.", draft.Body)

	require.Equal(t, systemDirective, gen.lastSystem)
	require.Contains(t, gen.lastPrompt, "- Company Name: Acme")
	require.Contains(t, gen.lastPrompt, "- Widgets: Small ones")
	require.Contains(t, gen.lastPrompt, "- Support")
	require.Contains(t, gen.lastPrompt, "- Company Name: Globex")
	require.Contains(t, gen.lastPrompt, "Business Areas: Energy, Retail")
	require.Contains(t, gen.lastPrompt, "- Name: Jane Smith")
	require.Contains(t, gen.lastPrompt, "- Email: jane@globex.com")
	require.Contains(t, gen.lastPrompt, toneInstructions[outreach.ToneCasual])
	require.Contains(t, gen.lastPrompt, personalizationInstructions[outreach.PersonalizationHigh])
	require.Contains(t, gen.lastPrompt, "Mention the trade show.")
}

func TestComposeUnknownStylesFallBack(t *testing.T) {
	t.Parallel()

	gen := &fakeTextGenerator{response: "SUBJECT: Hi\nHello."}
	c := New(gen, nil)

	c.Compose(context.Background(), outreach.SenderProfile{Name: "Acme"}, outreach.SiteProfile{}, nil, outreach.JobRequest{
		Tone:                 "sarcastic",
		PersonalizationLevel: "extreme",
	})

	require.Contains(t, gen.lastPrompt, toneFallback)
	require.Contains(t, gen.lastPrompt, personalizationFallback)
	require.Contains(t, gen.lastPrompt, "No specific contact information found.")
	require.Contains(t, gen.lastPrompt, "- Company Name: Unknown Company")
	require.Contains(t, gen.lastPrompt, "Business Areas: Unknown")
	require.Contains(t, gen.lastPrompt, "No specific additional instructions.")
}

func TestComposeGenerationErrorYieldsFallbackDraft(t *testing.T) {
	t.Parallel()

	gen := &fakeTextGenerator{err: errors.New("rate limited")}
	c := New(gen, nil)

	draft := c.Compose(context.Background(), outreach.SenderProfile{Name: "Acme"}, outreach.SiteProfile{}, nil, outreach.JobRequest{})

	require.Equal(t, "Introduction from Acme", draft.Subject)
	require.Contains(t, draft.Body, "Please try again later")
}

func TestFallbackDraftWithoutSenderName(t *testing.T) {
	t.Parallel()

	draft := FallbackDraft("")
	require.Equal(t, "Introduction from Our Company", draft.Subject)
}
