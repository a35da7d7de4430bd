package jobclient

import (
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
)

const (
	DefaultMaxSites = 10
	MaxMaxSites     = 100
	MaxNicheLength  = 100
)

var ErrInvalidRequest = errors.New("invalid request")

// NewRunRequest applies the runner's validation rules before anything is sent.
// A maxSites of zero or less selects the default.
func NewRunRequest(niche string, maxSites int) (RunRequest, error) {
	niche = strings.TrimSpace(niche)
	if niche == "" {
		return RunRequest{}, errors.Wrap(ErrInvalidRequest, "niche is required")
	}
	if n := utf8.RuneCountInString(niche); n > MaxNicheLength {
		return RunRequest{}, errors.Wrapf(ErrInvalidRequest, "niche is %d characters, at most %d allowed", n, MaxNicheLength)
	}
	if maxSites <= 0 {
		maxSites = DefaultMaxSites
	}
	if maxSites > MaxMaxSites {
		return RunRequest{}, errors.Wrapf(ErrInvalidRequest, "max_sites must be between 1 and %d, got %d", MaxMaxSites, maxSites)
	}
	return RunRequest{Niche: niche, MaxSites: maxSites}, nil
}

// DraftStatus values accepted by the runner.
const (
	DraftStatusDraft   = "draft"
	DraftStatusSent    = "sent"
	DraftStatusReplied = "replied"
)

func validDraftStatus(s string) bool {
	switch s {
	case DraftStatusDraft, DraftStatusSent, DraftStatusReplied:
		return true
	}
	return false
}
