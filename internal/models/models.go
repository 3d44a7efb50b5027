package models

import "time"

// PersonaID identifies one of the predefined agent personas. The set is
// closed: every valid ID is declared below and registered at startup.
type PersonaID string

const (
	PersonaChecksheetSpecialist PersonaID = "checksheet-specialist"
	PersonaDataAnalyst          PersonaID = "data-analyst"
	PersonaSpreadsheetExpert    PersonaID = "spreadsheet-expert"
	PersonaStrategicAdvisor     PersonaID = "strategic-advisor"
	PersonaLeadershipCoach      PersonaID = "leadership-coach"
	PersonaSixSigmaBlackBelt    PersonaID = "six-sigma-black-belt"
	PersonaLeanExpert           PersonaID = "lean-expert"
	PersonaProductivityCoach    PersonaID = "productivity-coach"
	PersonaGeneralAssistant     PersonaID = "general-assistant"
)

// AllPersonaIDs lists every valid persona ID in definition order.
var AllPersonaIDs = []PersonaID{
	PersonaChecksheetSpecialist,
	PersonaDataAnalyst,
	PersonaSpreadsheetExpert,
	PersonaStrategicAdvisor,
	PersonaLeadershipCoach,
	PersonaSixSigmaBlackBelt,
	PersonaLeanExpert,
	PersonaProductivityCoach,
	PersonaGeneralAssistant,
}

// Persona is a named behavioral configuration selectable by the user to bias
// the completion request. Entries are immutable after startup.
type Persona struct {
	ID           PersonaID `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	PromptPrefix string    `json:"prompt_prefix"`
	Color        string    `json:"color"` // UI accent color
}

// Priority levels a user can assign to a request.
type Priority string

const (
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

// Valid reports whether p is a known priority. Empty is allowed and means
// the user did not pick one.
func (p Priority) Valid() bool {
	switch p {
	case "", PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Urgency levels a user can assign to a request.
type Urgency string

const (
	UrgencyLow       Urgency = "Low"
	UrgencyMedium    Urgency = "Medium"
	UrgencyHigh      Urgency = "High"
	UrgencyImmediate Urgency = "Immediate"
)

// Valid reports whether u is a known urgency. Empty is allowed.
func (u Urgency) Valid() bool {
	switch u {
	case "", UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyImmediate:
		return true
	}
	return false
}

// TaskStatus tracks a task through its lifecycle:
// Pending -> Processing -> Completed or Failed. Terminal states never change.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "Pending"
	TaskStatusProcessing TaskStatus = "Processing"
	TaskStatusCompleted  TaskStatus = "Completed"
	TaskStatusFailed     TaskStatus = "Failed"
)

// Task is one logged problem-solving interaction. Tasks live only in the
// session's in-memory log and are never persisted.
type Task struct {
	ID        int        `json:"id"` // monotonic per session, starts at 1
	Title     string     `json:"title"`
	PersonaID PersonaID  `json:"persona_id"`
	Persona   string     `json:"persona"`
	Priority  Priority   `json:"priority,omitempty"`
	Urgency   Urgency    `json:"urgency,omitempty"`
	Status    TaskStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	Response  string     `json:"response"`
}

// AssistRequest is one user submission to the problem solver.
type AssistRequest struct {
	PersonaID          PersonaID `json:"persona_id"`
	ProblemDescription string    `json:"problem_description"`
	AdditionalContext  string    `json:"additional_context,omitempty"`
	Priority           Priority  `json:"priority,omitempty"`
	Urgency            Urgency   `json:"urgency,omitempty"`
}

// AssistResponse is returned by the assist endpoint on success.
type AssistResponse struct {
	TaskID    int       `json:"task_id"`
	PersonaID PersonaID `json:"persona_id"`
	Persona   string    `json:"persona"`
	Response  string    `json:"response"`
	CreatedAt time.Time `json:"created_at"`
}
