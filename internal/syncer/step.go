package syncer

// Step is a state of the per-identifier sync pipeline.
type Step int

const (
	StepFetchingEngineResult Step = iota
	StepResolvingSchema
	StepResolvingRelations
	StepLocatingExistingPage
	StepCreating
	StepDiffingAndUpdating
	StepDone
	StepFailed
)

var stepNames = [...]string{
	StepFetchingEngineResult: "fetching engine result",
	StepResolvingSchema:      "resolving schema",
	StepResolvingRelations:   "resolving relations",
	StepLocatingExistingPage: "locating existing page",
	StepCreating:             "creating page",
	StepDiffingAndUpdating:   "diffing and updating page",
	StepDone:                 "done",
	StepFailed:               "failed",
}

func (s Step) String() string {
	if s < 0 || int(s) >= len(stepNames) {
		return "unknown"
	}
	return stepNames[s]
}
