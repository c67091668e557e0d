package statement

import (
	"time"

	"bsie/internal/pipeline"
)

// TemplateBinding records the extraction template a statement was matched to.
type TemplateBinding struct {
	ID      string
	Version string
}

// Record is the authoritative representation of one statement document's
// position in the pipeline.
type Record struct {
	ID               string
	ContentHash      string
	OriginalFilename string
	SizeBytes        int64
	PageCount        int
	StoragePath      string

	CurrentState pipeline.State
	StateVersion int64

	Template *TemplateBinding

	ErrorCode    string
	ErrorMessage string
	RetryCount   int

	// Artifacts maps artifact name to its storage location. The map grows as
	// stages complete; names are free-form so later phases can add more.
	Artifacts map[string]string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// JournalEntry is one row of the append-only transition journal.
type JournalEntry struct {
	ID          string
	StatementID string

	// FromState is nil only on the creation entry.
	FromState *pipeline.State
	ToState   pipeline.State

	Trigger       string
	WorkerID      string
	ArtifactNames []string
	Metadata      map[string]any

	Forced bool
	Actor  string
	Reason string

	DurationMS *int64
	CreatedAt  time.Time
}

// NewRecord carries the fields required to originate a statement record.
type NewRecord struct {
	ID               string
	ContentHash      string
	OriginalFilename string
	SizeBytes        int64
	PageCount        int
	StoragePath      string
}

// TransitionApply describes the atomic unit a successful transition commits:
// the guarded record update plus its journal row.
type TransitionApply struct {
	StatementID string
	// ExpectedVersion guards the update; the row is only written when its
	// state_version still equals this value.
	ExpectedVersion int64
	FromState       pipeline.State
	ToState         pipeline.State

	// Artifacts is the full artifact map to persist (prior artifacts merged
	// with the transition's bundle); ArtifactNames lists only the names the
	// transition added, for the journal.
	Artifacts     map[string]string
	ArtifactNames []string

	Trigger  string
	WorkerID string
	Metadata map[string]any

	Forced bool
	Actor  string
	Reason string

	DurationMS *int64
}
