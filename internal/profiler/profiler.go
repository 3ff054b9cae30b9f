// Package profiler builds a SiteProfile for a target business by fetching
// its pages and merging extracted signals.
package profiler

import (
	"context"

	"go.uber.org/zap"

	"github.com/tcavaliere/coldreach/internal/extract"
	"github.com/tcavaliere/coldreach/internal/outreach"
)

// Profiler fetches and profiles target websites. Fetch or parse failures
// degrade to partial or empty profiles rather than failing the job.
type Profiler struct {
	fetcher outreach.Fetcher
	logger  *zap.Logger

	// maxAuxiliary caps the number of extra URLs scanned per job.
	maxAuxiliary int
}

// New builds a Profiler.
func New(fetcher outreach.Fetcher, maxAuxiliary int, logger *zap.Logger) *Profiler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Profiler{
		fetcher:      fetcher,
		logger:       logger,
		maxAuxiliary: maxAuxiliary,
	}
}

// Build profiles the main URL and enriches the result from the site's
// about page and any auxiliary URLs. The returned profile is never nil;
// a completely unreachable site yields an empty profile.
func (p *Profiler) Build(ctx context.Context, mainURL string, auxiliaryURLs []string) outreach.SiteProfile {
	profile := outreach.SiteProfile{}

	aboutURL := ""
	if main, ok := p.profilePage(ctx, mainURL); ok {
		profile = main.profile
		aboutURL = main.aboutURL
	}

	if aboutURL != "" && aboutURL != mainURL {
		if about, ok := p.profilePage(ctx, aboutURL); ok {
			merge(&profile, about.profile)
		}
	}

	aux := auxiliaryURLs
	if p.maxAuxiliary > 0 && len(aux) > p.maxAuxiliary {
		aux = aux[:p.maxAuxiliary]
	}
	for _, u := range aux {
		if u == "" || u == mainURL {
			continue
		}
		if page, ok := p.profilePage(ctx, u); ok {
			merge(&profile, page.profile)
		}
	}

	return profile
}

type pageSignals struct {
	profile  outreach.SiteProfile
	aboutURL string
}

func (p *Profiler) profilePage(ctx context.Context, url string) (pageSignals, bool) {
	page, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		p.logger.Warn("page fetch failed",
			zap.String("url", url),
			zap.Error(err))
		return pageSignals{}, false
	}

	doc, err := extract.Parse(page.Body)
	if err != nil {
		p.logger.Warn("page parse failed",
			zap.String("url", url),
			zap.Error(err))
		return pageSignals{}, false
	}

	return pageSignals{
		profile: outreach.SiteProfile{
			Name:           extract.Name(doc, url),
			Description:    extract.Description(doc),
			BusinessAreas:  extract.BusinessAreas(doc),
			ContactPageURL: extract.ContactPageURL(doc, url),
		},
		aboutURL: extract.AboutPageURL(doc, url),
	}, true
}

// merge folds extra signals into dst. The first non-empty name and contact
// URL win, the longer description wins, and business areas accumulate in
// insertion order without duplicates.
func merge(dst *outreach.SiteProfile, extra outreach.SiteProfile) {
	if dst.Name == "" {
		dst.Name = extra.Name
	}
	if len(extra.Description) > len(dst.Description) {
		dst.Description = extra.Description
	}
	if dst.ContactPageURL == "" {
		dst.ContactPageURL = extra.ContactPageURL
	}

	seen := make(map[string]struct{}, len(dst.BusinessAreas))
	for _, area := range dst.BusinessAreas {
		seen[area] = struct{}{}
	}
	for _, area := range extra.BusinessAreas {
		if _, dup := seen[area]; dup {
			continue
		}
		seen[area] = struct{}{}
		dst.BusinessAreas = append(dst.BusinessAreas, area)
	}
}
