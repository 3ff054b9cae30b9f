// Package contact locates contact details on a target's contact page.
package contact

import (
	"context"

	"go.uber.org/zap"

	"github.com/tcavaliere/coldreach/internal/extract"
	"github.com/tcavaliere/coldreach/internal/outreach"
)

// Finder fetches a site's contact page and pulls out reachable details.
type Finder struct {
	fetcher outreach.Fetcher
	logger  *zap.Logger
}

// New builds a Finder.
func New(fetcher outreach.Fetcher, logger *zap.Logger) *Finder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Finder{fetcher: fetcher, logger: logger}
}

// Find fetches the contact page and returns the first email, phone, and
// named person it can locate. An empty contactPageURL skips the network
// entirely. All failures degrade to a not-found result.
func (f *Finder) Find(ctx context.Context, contactPageURL string) outreach.ContactInfo {
	if contactPageURL == "" {
		return outreach.ContactInfo{}
	}

	page, err := f.fetcher.Fetch(ctx, contactPageURL)
	if err != nil {
		f.logger.Warn("contact page fetch failed",
			zap.String("url", contactPageURL),
			zap.Error(err))
		return outreach.ContactInfo{}
	}

	doc, err := extract.Parse(page.Body)
	if err != nil {
		f.logger.Warn("contact page parse failed",
			zap.String("url", contactPageURL),
			zap.Error(err))
		return outreach.ContactInfo{}
	}

	info := outreach.ContactInfo{}
	if emails := extract.Emails(doc); len(emails) > 0 {
		info.Email = emails[0]
	}
	if phones := extract.Phones(doc); len(phones) > 0 {
		info.Phone = phones[0]
	}
	info.Name, info.Position = extract.ContactPerson(doc)

	info.Found = info.Email != "" || info.Phone != "" || info.Name != ""
	return info
}
