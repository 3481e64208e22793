package model

// Summary is the synthesized answer to a research query, one section per task
type Summary struct {
	Query    string    `json:"query"`
	Sections []Section `json:"sections"`
	Content  string    `json:"content"` // All section contents joined, the text under originality review
}

// Section is the synthesized answer to one sub-question with its citation list
type Section struct {
	TaskID    string   `json:"task_id"`
	Question  string   `json:"question"`
	Content   string   `json:"content"`
	Citations []string `json:"citations,omitempty"` // "[n] Title - URL" entries matching in-text markers
}
