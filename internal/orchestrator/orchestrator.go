// Package orchestrator drives a single generation job through its stages:
// website analysis, optional contact search, and email composition.
package orchestrator

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/tcavaliere/coldreach/internal/generator"
	"github.com/tcavaliere/coldreach/internal/outreach"
)

// SiteProfiler builds a target profile from its pages.
type SiteProfiler interface {
	Build(ctx context.Context, mainURL string, auxiliaryURLs []string) outreach.SiteProfile
}

// ContactFinder locates contact details on a target's contact page.
type ContactFinder interface {
	Find(ctx context.Context, contactPageURL string) outreach.ContactInfo
}

// DraftComposer produces the final email draft.
type DraftComposer interface {
	Compose(ctx context.Context, sender outreach.SenderProfile, target outreach.SiteProfile, contact *outreach.ContactInfo, req outreach.JobRequest) outreach.EmailDraft
}

// Orchestrator executes jobs. Soft failures (unreachable sites, empty
// extractions, generation errors) degrade into a completed result with
// placeholder content; only escapes such as panics produce a failed result.
type Orchestrator struct {
	jobs     outreach.JobStore
	profiler SiteProfiler
	contacts ContactFinder
	composer DraftComposer
	logger   *zap.Logger
}

// New builds an Orchestrator.
func New(jobs outreach.JobStore, profiler SiteProfiler, contacts ContactFinder, composer DraftComposer, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		jobs:     jobs,
		profiler: profiler,
		contacts: contacts,
		composer: composer,
		logger:   logger,
	}
}

// Run executes one job to a terminal result. It never panics: an escape is
// recovered into a failed result carrying a fallback draft so the job ID
// always resolves to something pollable.
func (o *Orchestrator) Run(ctx context.Context, job outreach.Job) (result outreach.JobResult) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("job panicked",
				zap.String("job_id", job.ID),
				zap.Any("panic", r))
			draft := generator.FallbackDraft(job.Sender.Name)
			result = outreach.JobResult{
				State:      outreach.StateFailed,
				Draft:      &draft,
				TargetName: "Unknown Company",
				TargetURL:  job.Request.TargetURL,
				Error:      fmt.Sprintf("job panicked: %v", r),
			}
		}
	}()

	o.progress(ctx, job.ID, 10, "Starting website analysis")

	profile := o.profiler.Build(ctx, job.Request.TargetURL, job.Request.AuxiliaryURLs)
	o.progress(ctx, job.ID, 40, "Website analyzed")

	var contactInfo *outreach.ContactInfo
	if job.Request.FindContact {
		o.progress(ctx, job.ID, 45, "Searching for contact information")
		info := o.contacts.Find(ctx, profile.ContactPageURL)
		contactInfo = &info
		o.progress(ctx, job.ID, 60, "Contact search completed")
	}

	o.progress(ctx, job.ID, 70, "Generating email content")
	o.progress(ctx, job.ID, 75, "Crafting email with AI")
	o.progress(ctx, job.ID, 85, "Processing with AI")
	draft := o.composer.Compose(ctx, job.Sender, profile, contactInfo, job.Request)
	o.progress(ctx, job.ID, 95, "Email content generated")

	o.progress(ctx, job.ID, 100, "Email generation completed")

	targetName := profile.Name
	if targetName == "" {
		targetName = "Unknown Company"
	}

	return outreach.JobResult{
		State:       outreach.StateCompleted,
		Draft:       &draft,
		TargetName:  targetName,
		TargetURL:   job.Request.TargetURL,
		ContactInfo: contactInfo,
	}
}

// progress records a stage transition. Registry write failures are logged
// and ignored; they must not interrupt the job.
func (o *Orchestrator) progress(ctx context.Context, jobID string, percent int, message string) {
	if err := o.jobs.UpdateProgress(ctx, jobID, percent, message); err != nil {
		o.logger.Warn("progress update failed",
			zap.String("job_id", jobID),
			zap.Int("percent", percent),
			zap.Error(err))
	}
}
