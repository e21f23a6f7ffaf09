package workspace

import "fmt"

// Severity grades feedback from cosmetic to release-blocking.
type Severity string

const (
	// SeverityNit is cosmetic feedback that never blocks
	SeverityNit Severity = "nit"

	// SeverityBlocking must be addressed before the artifact ships
	SeverityBlocking Severity = "blocking"

	// SeverityCritical blocks and additionally fans out a critical event
	SeverityCritical Severity = "critical"
)

// FeedbackStatus defines the lifecycle state of a feedback thread.
type FeedbackStatus string

const (
	FeedbackStatusPending    FeedbackStatus = "pending"
	FeedbackStatusInProgress FeedbackStatus = "in_progress"
	FeedbackStatusAddressed  FeedbackStatus = "addressed"
	FeedbackStatusWontfix    FeedbackStatus = "wontfix"
)

// FeedbackComment is a single entry in a thread's ordered comment list.
type FeedbackComment struct {
	ID          string `json:"id"`
	Author      string `json:"author"`
	Content     string `json:"content"`
	CreatedAtMs int64  `json:"created_at_ms"`
}

// FeedbackThread is a severity-tagged discussion attached to an artifact.
// Threads are keyed by artifact id, not workspace, so the same artifact's
// feedback is visible from every workspace view that references it.
type FeedbackThread struct {
	ID          string            `json:"id"`
	ArtifactID  string            `json:"artifact_id"`
	Author      string            `json:"author"`
	Title       string            `json:"title"`
	Severity    Severity          `json:"severity"`
	Status      FeedbackStatus    `json:"status"`
	Comments    []FeedbackComment `json:"comments"`
	Tags        []string          `json:"tags,omitempty"`
	Location    string            `json:"location,omitempty"` // e.g. file:line within the artifact
	CreatedAtMs int64             `json:"created_at_ms"`
	UpdatedAtMs int64             `json:"updated_at_ms"`
}

// IsBlocking reports whether this thread currently blocks its artifact:
// blocking or critical severity that is still pending or in progress.
func (t *FeedbackThread) IsBlocking() bool {
	if t.Severity != SeverityBlocking && t.Severity != SeverityCritical {
		return false
	}
	return t.Status == FeedbackStatusPending || t.Status == FeedbackStatusInProgress
}

// Validate checks if the Severity is a valid enum value.
func (s Severity) Validate() error {
	switch s {
	case SeverityNit, SeverityBlocking, SeverityCritical:
		return nil
	default:
		return fmt.Errorf("unknown severity: %q", s)
	}
}

// Validate checks if the FeedbackStatus is a valid enum value.
func (fs FeedbackStatus) Validate() error {
	switch fs {
	case FeedbackStatusPending, FeedbackStatusInProgress,
		FeedbackStatusAddressed, FeedbackStatusWontfix:
		return nil
	default:
		return fmt.Errorf("unknown feedback status: %q", fs)
	}
}

// Validate checks if the FeedbackThread has valid field values.
func (t *FeedbackThread) Validate() error {
	if !isValidUUID(t.ID) {
		return fmt.Errorf("invalid thread ID: not a valid UUID")
	}

	if t.ArtifactID == "" {
		return fmt.Errorf("artifact ID cannot be empty")
	}

	if t.Author == "" {
		return fmt.Errorf("author cannot be empty")
	}

	if err := t.Severity.Validate(); err != nil {
		return fmt.Errorf("invalid severity: %w", err)
	}

	if err := t.Status.Validate(); err != nil {
		return fmt.Errorf("invalid status: %w", err)
	}

	if len(t.Comments) == 0 {
		return fmt.Errorf("thread must carry at least its initial comment")
	}

	return nil
}
