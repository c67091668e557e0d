package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Statement describes a statement record in a transport-friendly format.
type Statement struct {
	ID               string            `json:"id"`
	OriginalFilename string            `json:"originalFilename"`
	ContentHash      string            `json:"contentHash"`
	SizeBytes        int64             `json:"sizeBytes"`
	PageCount        int               `json:"pageCount"`
	StoragePath      string            `json:"storagePath"`
	State            string            `json:"state"`
	StateLabel       string            `json:"stateLabel"`
	StateVersion     int64             `json:"stateVersion"`
	TemplateID       string            `json:"templateId,omitempty"`
	TemplateVersion  string            `json:"templateVersion,omitempty"`
	ErrorCode        string            `json:"errorCode,omitempty"`
	ErrorMessage     string            `json:"errorMessage,omitempty"`
	RetryCount       int               `json:"retryCount"`
	Artifacts        map[string]string `json:"artifacts,omitempty"`
	CreatedAt        string            `json:"createdAt,omitempty"`
	UpdatedAt        string            `json:"updatedAt,omitempty"`
}

// StateView reports a statement's position with its outgoing options.
type StateView struct {
	ID                 string   `json:"id"`
	State              string   `json:"state"`
	StateLabel         string   `json:"stateLabel"`
	StateVersion       int64    `json:"stateVersion"`
	Terminal           bool     `json:"terminal"`
	AllowedTransitions []string `json:"allowedTransitions"`
}

// JournalEntry is the transport form of one transition journal row.
type JournalEntry struct {
	ID            string         `json:"id"`
	FromState     string         `json:"fromState,omitempty"`
	ToState       string         `json:"toState"`
	Trigger       string         `json:"trigger"`
	WorkerID      string         `json:"workerId,omitempty"`
	ArtifactNames []string       `json:"artifactNames,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	Forced        bool           `json:"forced"`
	Actor         string         `json:"actor,omitempty"`
	Reason        string         `json:"reason,omitempty"`
	DurationMS    *int64         `json:"durationMs,omitempty"`
	CreatedAt     string         `json:"createdAt,omitempty"`
}

// TransitionOutcome is the transport form of a transition attempt's result.
type TransitionOutcome struct {
	Success           bool     `json:"success"`
	StatementID       string   `json:"statementId"`
	PreviousState     string   `json:"previousState,omitempty"`
	CurrentState      string   `json:"currentState,omitempty"`
	Timestamp         string   `json:"timestamp"`
	ErrorKind         string   `json:"errorKind,omitempty"`
	Error             string   `json:"error,omitempty"`
	ArtifactsRecorded []string `json:"artifactsRecorded,omitempty"`
	Forced            bool     `json:"forced"`
}

// TransitionRequestBody is the JSON payload accepted by the transition
// endpoint.
type TransitionRequestBody struct {
	ToState         string            `json:"toState"`
	Trigger         string            `json:"trigger"`
	Artifacts       map[string]string `json:"artifacts,omitempty"`
	WorkerID        string            `json:"workerId,omitempty"`
	Metadata        map[string]any    `json:"metadata,omitempty"`
	ExpectedVersion *int64            `json:"expectedVersion,omitempty"`
}

// StageHealth mirrors readiness reporting for pipeline stages.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool           `json:"running"`
	PID          int            `json:"pid"`
	DatabasePath string         `json:"databasePath"`
	StorageDir   string         `json:"storageDir"`
	StateCounts  map[string]int `json:"stateCounts"`
	StageHealth  []StageHealth  `json:"stageHealth"`
	LastError    string         `json:"lastError,omitempty"`
}

// StatementListResponse wraps a collection of statements.
type StatementListResponse struct {
	Statements []Statement `json:"statements"`
}

// HistoryResponse wraps a statement's journal.
type HistoryResponse struct {
	StatementID string         `json:"statementId"`
	Entries     []JournalEntry `json:"entries"`
}

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
