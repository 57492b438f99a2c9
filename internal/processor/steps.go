package processor

import "github.com/anyspecs/anyspecs/internal/models"

// Step is the linear progress indicator shown while processing:
// upload, then process, then done.
type Step int

const (
	StepUpload Step = iota
	StepProcess
	StepDone
)

func (s Step) String() string {
	switch s {
	case StepUpload:
		return "upload"
	case StepProcess:
		return "process"
	case StepDone:
		return "done"
	default:
		return "unknown"
	}
}

// Steps lists the indicator in display order.
func Steps() []Step {
	return []Step{StepUpload, StepProcess, StepDone}
}

// Progress reports one item moving through the steps. An item always
// reports StepUpload first and StepDone last; StepProcess is skipped when
// the upload fails.
type Progress struct {
	Index int
	Total int
	Item  models.Item
	Step  Step
}
