package outreach

import (
	"errors"
	"fmt"
	"net/url"
)

// ErrNotFound is returned by stores when an entity does not exist.
var ErrNotFound = errors.New("not found")

// Validate checks a JobRequest at submission time. Tone and personalization
// are not validated here: unrecognized values degrade to defaults inside the
// generator instead of rejecting the job.
func (r JobRequest) Validate() error {
	if r.SenderID == "" {
		return errors.New("sender_id is required")
	}
	if r.TargetURL == "" {
		return errors.New("target_url is required")
	}
	if err := checkURL(r.TargetURL); err != nil {
		return fmt.Errorf("target_url: %w", err)
	}
	for _, aux := range r.AuxiliaryURLs {
		if err := checkURL(aux); err != nil {
			return fmt.Errorf("auxiliary_urls: %w", err)
		}
	}
	return nil
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url %q must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("url %q has no host", raw)
	}
	return nil
}
