// Package result defines build, execution and run report types.
package result

// Status is the overall outcome of one run.
type Status string

const (
	StatusAllPassed   Status = "AllPassed"
	StatusSomeFailed  Status = "SomeFailed"
	StatusBuildFailed Status = "BuildFailed"
	StatusNoTestCases Status = "NoTestCases"
)

// Outcome is the verdict for one test case.
type Outcome string

const (
	OutcomePassed       Outcome = "Passed"
	OutcomeWrongOutput  Outcome = "WrongOutput"
	OutcomeRuntimeError Outcome = "RuntimeError"
	OutcomeTimedOut     Outcome = "TimedOut"
)

// BuildReason classifies a failed build.
type BuildReason string

const (
	BuildReasonCompileError BuildReason = "compile-error"
	BuildReasonToolMissing  BuildReason = "tool-missing"
	BuildReasonTimeout      BuildReason = "build-timeout"
)

// Phase is the lifecycle state reported while a run progresses.
type Phase string

const (
	PhaseBuilding  Phase = "Building"
	PhaseRunning   Phase = "Running"
	PhaseReporting Phase = "Reporting"
	PhaseDone      Phase = "Done"
)

// RunResult captures raw execution data for one process.
type RunResult struct {
	ExitCode  int    `json:"exit_code"`
	TimeMs    int64  `json:"time_ms"`
	Stdout    string `json:"-"`
	Stderr    string `json:"-"`
	TimedOut  bool   `json:"timed_out"`
	Truncated bool   `json:"truncated"`
}

// BuildResult contains the build outcome.
type BuildResult struct {
	OK         bool        `json:"ok"`
	Reason     BuildReason `json:"reason,omitempty"`
	Diagnostic string      `json:"diagnostic,omitempty"`
	ExitCode   int         `json:"exit_code"`
	TimeMs     int64       `json:"time_ms"`
	// ArtifactPath is what the run command executes. Never serialized.
	ArtifactPath string `json:"-"`
	// Artifacts are files the build created and the run must remove.
	Artifacts []string `json:"-"`
}

// Diff locates the first differing line between expected and actual output.
type Diff struct {
	Line     int    `json:"line"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	// Line counts after normalization; Line beyond a count means that side ended.
	ExpectedLines int `json:"expected_lines"`
	ActualLines   int `json:"actual_lines"`
}

// CaseVerdict contains the judged outcome of one test case.
type CaseVerdict struct {
	Index    int     `json:"index"`
	Name     string  `json:"name"`
	Outcome  Outcome `json:"outcome"`
	ExitCode int     `json:"exit_code"`
	TimeMs   int64   `json:"time_ms"`
	// Actual is the program output, shortened for display.
	Actual  string `json:"actual,omitempty"`
	Stderr  string `json:"stderr,omitempty"`
	Diff    *Diff  `json:"diff,omitempty"`
	Message string `json:"message,omitempty"`
}

// Passed reports whether the case was accepted.
func (v CaseVerdict) Passed() bool {
	return v.Outcome == OutcomePassed
}

// RunReport is the unified response structure for one run.
type RunReport struct {
	RunID       string        `json:"run_id"`
	Status      Status        `json:"status"`
	Language    string        `json:"language"`
	SourcePath  string        `json:"source_path"`
	Build       *BuildResult  `json:"build,omitempty"`
	Cases       []CaseVerdict `json:"cases"`
	TotalTimeMs int64         `json:"total_time_ms"`
}

// BuildDiagnostic returns the compiler output when the build failed.
func (r RunReport) BuildDiagnostic() string {
	if r.Status != StatusBuildFailed || r.Build == nil {
		return ""
	}
	return r.Build.Diagnostic
}

// FirstFailure returns the first case that did not pass, or nil.
func (r RunReport) FirstFailure() *CaseVerdict {
	for i := range r.Cases {
		if !r.Cases[i].Passed() {
			return &r.Cases[i]
		}
	}
	return nil
}

// PassedCount returns the number of accepted cases.
func (r RunReport) PassedCount() int {
	n := 0
	for _, c := range r.Cases {
		if c.Passed() {
			n++
		}
	}
	return n
}
