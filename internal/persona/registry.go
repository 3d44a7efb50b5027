package persona

import (
	"errors"
	"fmt"

	"github.com/kwisener01/workassist/internal/models"
)

// ErrNotFound is returned when a persona ID does not exist in the registry.
var ErrNotFound = errors.New("persona not found")

// Registry holds the fixed set of agent personas. It is built once at startup
// and never mutated afterwards; lookups are safe for concurrent use.
type Registry struct {
	order   []models.PersonaID
	entries map[models.PersonaID]models.Persona
}

// NewRegistry builds the registry with the full persona set in definition
// order.
func NewRegistry() *Registry {
	r := &Registry{
		entries: make(map[models.PersonaID]models.Persona, len(definitions)),
	}
	for _, p := range definitions {
		r.order = append(r.order, p.ID)
		r.entries[p.ID] = p
	}
	return r
}

// Get returns the persona for the given ID, or ErrNotFound if the ID is
// unknown.
func (r *Registry) Get(id models.PersonaID) (*models.Persona, error) {
	p, ok := r.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	// Copy so callers cannot mutate the registry entry.
	out := p
	return &out, nil
}

// List returns all personas in definition order. The returned slice and its
// elements are copies; the order is stable across calls.
func (r *Registry) List() []*models.Persona {
	out := make([]*models.Persona, 0, len(r.order))
	for _, id := range r.order {
		p := r.entries[id]
		out = append(out, &p)
	}
	return out
}

// Default returns the fallback persona for callers that do not pick one.
func (r *Registry) Default() models.PersonaID {
	return models.PersonaGeneralAssistant
}

var definitions = []models.Persona{
	{
		ID:           models.PersonaChecksheetSpecialist,
		Name:         "Checksheet Specialist",
		Description:  "Creates comprehensive checklists, audit forms, and quality control sheets",
		PromptPrefix: "You are a Checksheet Specialist expert in creating detailed, professional checklists and audit forms. Focus on completeness, clarity, and actionability.",
		Color:        "#FF6B6B",
	},
	{
		ID:           models.PersonaDataAnalyst,
		Name:         "Data Analyst",
		Description:  "Analyzes data, creates visualizations, and provides insights",
		PromptPrefix: "You are a Data Analyst expert in statistical analysis, data visualization, and business intelligence. Provide clear insights with actionable recommendations.",
		Color:        "#4ECDC4",
	},
	{
		ID:           models.PersonaSpreadsheetExpert,
		Name:         "Spreadsheet Expert",
		Description:  "Designs and optimizes spreadsheets with formulas and automation",
		PromptPrefix: "You are a Spreadsheet Expert specialized in Excel/Google Sheets optimization, complex formulas, and data organization. Create efficient, user-friendly solutions.",
		Color:        "#45B7D1",
	},
	{
		ID:           models.PersonaStrategicAdvisor,
		Name:         "Strategic Advisor",
		Description:  "Provides strategic business advice and decision-making support",
		PromptPrefix: "You are a Strategic Business Advisor with expertise in business strategy, decision-making frameworks, and organizational development. Provide thoughtful, actionable advice.",
		Color:        "#96CEB4",
	},
	{
		ID:           models.PersonaLeadershipCoach,
		Name:         "Leadership Coach",
		Description:  "Offers leadership development and team management guidance",
		PromptPrefix: "You are a Leadership Coach specializing in team development, communication, and leadership effectiveness. Provide practical, empathetic guidance.",
		Color:        "#FFEAA7",
	},
	{
		ID:           models.PersonaSixSigmaBlackBelt,
		Name:         "Six Sigma Black Belt",
		Description:  "Applies Six Sigma methodology for process improvement",
		PromptPrefix: "You are a Six Sigma Black Belt expert in DMAIC methodology, statistical process control, and quality improvement. Focus on data-driven solutions.",
		Color:        "#DDA0DD",
	},
	{
		ID:           models.PersonaLeanExpert,
		Name:         "Lean Manufacturing Expert",
		Description:  "Implements lean principles and waste reduction strategies",
		PromptPrefix: "You are a Lean Manufacturing Expert specializing in waste elimination, value stream mapping, and continuous improvement. Focus on efficiency and value creation.",
		Color:        "#98D8C8",
	},
	{
		ID:           models.PersonaProductivityCoach,
		Name:         "Productivity Coach",
		Description:  "Helps with task management, prioritization, and productivity optimization",
		PromptPrefix: "You are a Productivity Coach expert in time management, goal setting, and workflow optimization. Help users stay focused and achieve their objectives.",
		Color:        "#F7DC6F",
	},
	{
		ID:           models.PersonaGeneralAssistant,
		Name:         "General Assistant",
		Description:  "Handles diverse tasks and provides comprehensive support",
		PromptPrefix: "You are a versatile General Assistant capable of handling various business tasks. Adapt your expertise to the specific needs presented.",
		Color:        "#BB8FCE",
	},
}
