package orchestrator

// Stage identifies a step of a pipeline run
type Stage string

const (
	StageFetching  Stage = "fetching"
	StageQuestions Stage = "questions"
	StageAnswers   Stage = "answers"
	StageDone      Stage = "done"
)

// Status messages shown to the user for each stage
const (
	MessageFetching  = "Fetching transcript..."
	MessageQuestions = "Extracting knowledge..."
	MessageAnswers   = "Preparing QA-catalogue..."
	MessageDone      = "Done analyzing the video!"
)

// Progress is one status update emitted during a run
type Progress struct {
	Stage   Stage  `json:"stage"`
	Message string `json:"message"`
}

// ProgressFunc receives status updates in stage order. It may be nil.
type ProgressFunc func(Progress)

// Result is the outcome of one run. It belongs to the request that produced it.
type Result struct {
	RunID     string   `json:"run_id"`
	VideoID   string   `json:"video_id"`
	Questions string   `json:"questions"`
	Answers   string   `json:"answers"`
	Status    string   `json:"status"`
	Warnings  []string `json:"warnings,omitempty"`
}

// Degraded reports whether a stage failed but the run still produced a result.
func (r *Result) Degraded() bool {
	return len(r.Warnings) > 0
}
