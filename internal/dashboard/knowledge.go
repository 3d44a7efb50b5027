package dashboard

// QuickActions are canned problem statements the UI offers as one-click
// submissions.
var QuickActions = []string{
	"Create quality checklist",
	"Analyze production data",
	"Design KPI dashboard",
	"Develop training plan",
	"Process improvement project",
	"Cost reduction analysis",
	"Team performance review",
	"Risk assessment",
}

// BestPractice is one knowledge-base guidance section.
type BestPractice struct {
	Category string   `json:"category"`
	Tips     []string `json:"tips"`
}

// BestPractices returns the fixed knowledge-base guidance, in display order.
func BestPractices() []BestPractice {
	return []BestPractice{
		{
			Category: "Problem Description",
			Tips: []string{
				"Be specific about the current situation",
				"Include quantifiable metrics when possible",
				"Mention constraints and limitations",
				"Specify desired outcomes",
			},
		},
		{
			Category: "Agent Selection",
			Tips: []string{
				"Choose the agent that best matches your problem domain",
				"Consider using multiple agents for complex problems",
				"Start with the General Assistant if unsure",
				"Review agent descriptions before selecting",
			},
		},
		{
			Category: "Context Provision",
			Tips: []string{
				"Include budget and timeline constraints",
				"Mention team size and capabilities",
				"Specify current tools and systems",
				"Note any regulatory requirements",
			},
		},
	}
}
