// Package outreach defines core types shared across subsystems.
package outreach

import "time"

// JobState represents the lifecycle state of a generation job.
type JobState string

// Job state values held in the job registry. StateUnknown is the sentinel
// returned for IDs that were never issued or have been evicted; it is a
// status value, never an error.
const (
	StateQueued    JobState = "queued"
	StateRunning   JobState = "running"
	StateCompleted JobState = "completed"
	StateFailed    JobState = "failed"
	StateUnknown   JobState = "unknown"
)

// Tone values accepted for generated drafts. Unrecognized values fall back
// to a professional-style directive rather than erroring.
const (
	ToneProfessional = "professional"
	ToneCasual       = "casual"
	ToneFormal       = "formal"
	ToneDirect       = "direct"
)

// Personalization levels accepted for generated drafts.
const (
	PersonalizationLow    = "low"
	PersonalizationMedium = "medium"
	PersonalizationHigh   = "high"
)

// JobRequest captures everything a single generation job needs. It is
// validated at submission time and immutable once queued.
type JobRequest struct {
	SenderID             string   `json:"sender_id"`
	TargetURL            string   `json:"target_url"`
	AuxiliaryURLs        []string `json:"auxiliary_urls,omitempty"`
	Tone                 string   `json:"tone,omitempty"`
	PersonalizationLevel string   `json:"personalization_level,omitempty"`
	FindContact          bool     `json:"find_contact,omitempty"`
	CustomInstructions   string   `json:"custom_instructions,omitempty"`
}

// Job is one unit of queued asynchronous work. The sender profile is
// resolved at submission so the worker never touches the entity store.
type Job struct {
	ID        string        `json:"id"`
	Request   JobRequest    `json:"request"`
	Sender    SenderProfile `json:"sender"`
	Submitted time.Time     `json:"submitted_at"`
}

// JobStatus is the pollable progress snapshot for a job. It is mutated only
// by the worker executing the job; readers always observe a copy.
type JobStatus struct {
	State    JobState `json:"state"`
	Progress int      `json:"progress"`
	Message  string   `json:"message"`
}

// JobResult is the terminal artifact of a job, written exactly once.
type JobResult struct {
	State       JobState     `json:"state"`
	Draft       *EmailDraft  `json:"draft,omitempty"`
	TargetName  string       `json:"target_company_name,omitempty"`
	TargetURL   string       `json:"target_url,omitempty"`
	ContactInfo *ContactInfo `json:"contact_info,omitempty"`
	Error       string       `json:"error,omitempty"`
}

// SiteProfile is a structured summary of a target website. It is assembled
// by merging per-page extractions and never mutated afterwards.
type SiteProfile struct {
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	BusinessAreas  []string `json:"business_areas"`
	ContactPageURL string   `json:"contact_page_url,omitempty"`
}

// ContactInfo holds best-effort contact details extracted for a target.
// Every field is optional; Found reports whether anything was extracted.
type ContactInfo struct {
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Name     string `json:"name,omitempty"`
	Position string `json:"position,omitempty"`
	Found    bool   `json:"found"`
}

// EmailDraft is the final generated subject/body pair.
type EmailDraft struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Service describes one offering of the sender company.
type Service struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// SenderProfile is the sender-side context fed into prompt rendering. It is
// owned by the entity store; the pipeline only reads it.
type SenderProfile struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Services    []Service `json:"services,omitempty"`
}

// Page is the result of fetching a single URL.
type Page struct {
	URL        string
	StatusCode int
	Body       []byte
	Duration   time.Duration
}

// DraftRecord is persisted for each completed draft.
type DraftRecord struct {
	JobID       string       `json:"job_id"`
	SenderID    string       `json:"sender_id"`
	TargetName  string       `json:"target_company_name"`
	TargetURL   string       `json:"target_url"`
	Subject     string       `json:"subject"`
	Body        string       `json:"body"`
	ContactInfo *ContactInfo `json:"contact_info,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}
