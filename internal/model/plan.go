package model

// Plan is the decomposition of a research query into focused sub-questions
type Plan struct {
	Query string `json:"query"` // The original user query
	Tasks []Task `json:"tasks"` // Sub-questions to research independently
}

// Task is a single researchable sub-question
type Task struct {
	ID           string `json:"id"`                     // Stable ordinal (e.g., "T1")
	Question     string `json:"question"`               // The sub-question text
	Instructions string `json:"instructions,omitempty"` // Guidance for the summarizer
}
