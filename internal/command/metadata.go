package command

// Severity classifies how urgently a warning needs attention.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Warning flags a non-fatal issue on a successful result, such as a
// permanent side effect the caller should surface to the user.
type Warning struct {
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity,omitempty"`
}

// NewWarning creates a warning with medium severity.
func NewWarning(code, message string) Warning {
	return Warning{Code: code, Message: message, Severity: SeverityMedium}
}

// StepStatus is the state of a single PlanStep.
type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepInProgress StepStatus = "in_progress"
	StepComplete   StepStatus = "complete"
	StepFailed     StepStatus = "failed"
	StepSkipped    StepStatus = "skipped"
)

// PlanStep is one stage of a multi-step operation, giving callers
// visibility into what the command did (or is doing).
type PlanStep struct {
	ID          string     `json:"id"`
	Action      string     `json:"action"`
	Status      StepStatus `json:"status"`
	Description string     `json:"description,omitempty"`
}

// SourceType categorizes where result data came from.
type SourceType string

const (
	SourceURL       SourceType = "url"
	SourceFile      SourceType = "file"
	SourceDatabase  SourceType = "database"
	SourceAPI       SourceType = "api"
	SourceKnowledge SourceType = "knowledge"
	SourceUser      SourceType = "user"
	SourceOther     SourceType = "other"
)

// Source attributes result data to where it came from, letting callers
// verify information.
type Source struct {
	Name       string     `json:"name"`
	Type       SourceType `json:"type"`
	URL        string     `json:"url,omitempty"`
	AccessedAt string     `json:"accessedAt,omitempty"`
	Relevance  float64    `json:"relevance,omitempty"`
	Snippet    string     `json:"snippet,omitempty"`
}

// Alternative is an option the command considered but did not select.
type Alternative struct {
	Data       any     `json:"data"`
	Reason     string  `json:"reason"`
	Confidence float64 `json:"confidence,omitempty"`
}
