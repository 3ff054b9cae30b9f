// Package generator renders cold-email prompts and turns model responses
// into drafts.
package generator

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tcavaliere/coldreach/internal/outreach"
)

const systemDirective = "You are a professional email writer who creates effective cold emails."

const subjectMarker = "SUBJECT:"

var toneInstructions = map[string]string{
	outreach.ToneProfessional: "Keep the tone professional, polished, and business-appropriate.",
	outreach.ToneCasual:       "Keep the tone friendly, conversational, and approachable, but still professional.",
	outreach.ToneFormal:       "Use a formal tone with proper business etiquette and traditional business language.",
	outreach.ToneDirect:       "Be straightforward and concise, focusing on clarity and directness.",
}

const toneFallback = "Keep the tone professional and business-appropriate."

var personalizationInstructions = map[string]string{
	outreach.PersonalizationLow:    "Include minimal personalization, focusing on general value propositions.",
	outreach.PersonalizationMedium: "Include moderate personalization based on the target company's business.",
	outreach.PersonalizationHigh:   "Create a highly personalized email that demonstrates deep understanding of the target company.",
}

const personalizationFallback = "Include moderate personalization based on the target company's business."

// Composer turns sender and target profiles into an email draft. Every
// failure path yields a usable fallback draft so background jobs never
// surface generation errors.
type Composer struct {
	gen    outreach.TextGenerator
	logger *zap.Logger
}

// New builds a Composer.
func New(gen outreach.TextGenerator, logger *zap.Logger) *Composer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Composer{gen: gen, logger: logger}
}

// Compose renders the prompt, invokes the text generator once, and parses
// the response into a draft. Unrecognized tone or personalization values
// select the fallback directives.
func (c *Composer) Compose(
	ctx context.Context,
	sender outreach.SenderProfile,
	target outreach.SiteProfile,
	contact *outreach.ContactInfo,
	req outreach.JobRequest,
) outreach.EmailDraft {
	prompt := renderPrompt(sender, target, contact, req)

	raw, err := c.gen.Generate(ctx, systemDirective, prompt)
	if err != nil {
		c.logger.Error("email generation failed",
			zap.String("sender", sender.Name),
			zap.String("target", target.Name),
			zap.Error(err))
		return FallbackDraft(sender.Name)
	}

	return ParseDraft(raw, sender.Name)
}

func renderPrompt(
	sender outreach.SenderProfile,
	target outreach.SiteProfile,
	contact *outreach.ContactInfo,
	req outreach.JobRequest,
) string {
	var services strings.Builder
	for _, svc := range sender.Services {
		services.WriteString("- " + svc.Name)
		if svc.Description != "" {
			services.WriteString(": " + svc.Description)
		}
		services.WriteString("\n")
	}
	servicesText := services.String()
	if servicesText == "" {
		servicesText = "- No specific services provided\n"
	}

	tone, ok := toneInstructions[req.Tone]
	if !ok {
		tone = toneFallback
	}
	personalization, ok := personalizationInstructions[req.PersonalizationLevel]
	if !ok {
		personalization = personalizationFallback
	}

	custom := req.CustomInstructions
	if custom == "" {
		custom = "No specific additional instructions."
	}

	var b strings.Builder
	b.WriteString("You are a professional cold email writer. You need to write a personalized cold email from a company to a potential client.\n\n")

	b.WriteString("SENDER COMPANY INFORMATION:\n")
	fmt.Fprintf(&b, "- Company Name: %s\n", sender.Name)
	fmt.Fprintf(&b, "- Company Description: %s\n", orDefault(sender.Description, "No description provided"))
	b.WriteString("- Services Offered:\n")
	b.WriteString(servicesText)
	b.WriteString("\n")

	b.WriteString("TARGET COMPANY INFORMATION:\n")
	fmt.Fprintf(&b, "- Company Name: %s\n", orDefault(target.Name, "Unknown Company"))
	fmt.Fprintf(&b, "- Company Description: %s\n", orDefault(target.Description, "No description available"))
	fmt.Fprintf(&b, "- Business Areas: %s\n\n", businessAreasText(target.BusinessAreas))

	b.WriteString("CONTACT INFORMATION:\n")
	b.WriteString(contactText(contact))
	b.WriteString("\n\n")

	b.WriteString("STYLE INSTRUCTIONS:\n")
	fmt.Fprintf(&b, "- %s\n", tone)
	fmt.Fprintf(&b, "- %s\n", personalization)
	b.WriteString("- Do not use emojis or excessive formatting.\n")
	b.WriteString("- Focus on how the sender's services can specifically benefit the target company.\n")
	b.WriteString("- Be concise and respect the reader's time.\n")
	b.WriteString("- Include a clear call-to-action that's easy to respond to.\n\n")

	b.WriteString("CUSTOM INSTRUCTIONS:\n")
	b.WriteString(custom)
	b.WriteString("\n\n")

	b.WriteString("FORMAT:\n")
	b.WriteString(`First provide just the email subject line labeled as "SUBJECT:", then provide the email body.`)
	b.WriteString("\n")

	return b.String()
}

func businessAreasText(areas []string) string {
	if len(areas) == 0 {
		return "Unknown"
	}
	return strings.Join(areas, ", ")
}

func contactText(contact *outreach.ContactInfo) string {
	if contact == nil || !contact.Found {
		return "No specific contact information found."
	}
	var b strings.Builder
	b.WriteString("Contact information:")
	if contact.Name != "" {
		b.WriteString("\n- Name: " + contact.Name)
	}
	if contact.Position != "" {
		b.WriteString("\n- Position: " + contact.Position)
	}
	if contact.Email != "" {
		b.WriteString("\n- Email: " + contact.Email)
	}
	if contact.Phone != "" {
		b.WriteString("\n- Phone: " + contact.Phone)
	}
	return b.String()
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// ParseDraft splits a model response on the subject marker. Text before
// the first marker is discarded, the line after it becomes the subject,
// and the remainder becomes the body. A response without the marker is
// kept whole as the body under a synthesized subject.
func ParseDraft(raw, senderName string) outreach.EmailDraft {
	full := strings.TrimSpace(raw)

	if _, after, found := strings.Cut(full, subjectMarker); found {
		rest := strings.TrimSpace(after)
		subject, body, hasBody := strings.Cut(rest, "\n")
		draft := outreach.EmailDraft{Subject: strings.TrimSpace(subject)}
		if hasBody {
			draft.Body = strings.TrimSpace(body)
		}
		return draft
	}

	return outreach.EmailDraft{
		Subject: syntheticSubject(senderName),
		Body:    full,
	}
}

// FallbackDraft is returned when the generation service fails entirely.
func FallbackDraft(senderName string) outreach.EmailDraft {
	return outreach.EmailDraft{
		Subject: syntheticSubject(senderName),
		Body:    "[Error generating personalized email. Please try again later.]",
	}
}

func syntheticSubject(senderName string) string {
	if senderName == "" {
		senderName = "Our Company"
	}
	return "Introduction from " + senderName
}
