package protocol

import "github.com/pkg/errors"

// Step identifies one of the six fixed pipeline stages.
type Step string

const (
	StepDiscovery    Step = "discovery"
	StepVerification Step = "verification"
	StepAudit        Step = "audit"
	StepAnalysis     Step = "analysis"
	StepContacts     Step = "contacts"
	StepOutreach     Step = "outreach"
)

// Steps is the execution order. Each entry weighs 1/len(Steps) in aggregate progress.
var Steps = []Step{
	StepDiscovery,
	StepVerification,
	StepAudit,
	StepAnalysis,
	StepContacts,
	StepOutreach,
}

var ErrInvalidStep = errors.New("invalid pipeline step")

// ValidateStep is the only place a string is turned into a Step.
func ValidateStep(s string) (Step, error) {
	for _, step := range Steps {
		if string(step) == s {
			return step, nil
		}
	}
	return "", errors.Wrapf(ErrInvalidStep, "%q", s)
}

// Index returns the position of step in Steps, or -1.
func (s Step) Index() int {
	for i, step := range Steps {
		if step == s {
			return i
		}
	}
	return -1
}

func (s Step) Title() string {
	switch s {
	case StepDiscovery:
		return "Discovery"
	case StepVerification:
		return "Verification"
	case StepAudit:
		return "Audit"
	case StepAnalysis:
		return "Analysis"
	case StepContacts:
		return "Contacts"
	case StepOutreach:
		return "Outreach"
	default:
		return string(s)
	}
}
