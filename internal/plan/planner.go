package plan

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ameins/delver/internal/llm"
	"github.com/ameins/delver/internal/model"
)

// Planner decomposes a research query into focused sub-questions using an
// LLM provider. Planning is best-effort: with no provider, a provider
// failure, or an unusable response, it falls back to a deterministic
// heuristic plan so the pipeline always has tasks to work on.
type Planner struct {
	provider llm.Provider
}

// NewPlanner creates a planner on top of the given provider (may be nil)
func NewPlanner(provider llm.Provider) *Planner {
	return &Planner{provider: provider}
}

const plannerSystem = "You are an expert research planner. Break complex queries into focused, searchable sub-questions that build toward comprehensive understanding."

const plannerPromptTemplate = `You are a senior research strategist. Given the user query: %s break it into sub-questions. Return JSON with a 'tasks' array of objects with id, question, instructions.`

// planResponse mirrors the JSON shape the provider is asked for
type planResponse struct {
	Tasks []struct {
		ID           string `json:"id"`
		Question     string `json:"question"`
		Instructions string `json:"instructions"`
	} `json:"tasks"`
}

// Plan produces the task decomposition for a query
func (p *Planner) Plan(ctx context.Context, query string) model.Plan {
	if p.provider == nil {
		return fallbackPlan(query)
	}

	resp, err := p.provider.Complete(ctx, llm.CompletionRequest{
		System: plannerSystem,
		Messages: []llm.Message{
			{Role: "user", Content: fmt.Sprintf(plannerPromptTemplate, query)},
		},
		Temperature:  -1, // Use the provider's configured default
		JSONResponse: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: planning failed (%v), using fallback plan\n", err)
		return fallbackPlan(query)
	}

	var parsed planResponse
	if err := json.Unmarshal([]byte(resp.Content), &parsed); err != nil || len(parsed.Tasks) == 0 {
		fmt.Fprintf(os.Stderr, "Warning: unusable plan from provider, using fallback plan\n")
		return fallbackPlan(query)
	}

	result := model.Plan{Query: query}
	for i, t := range parsed.Tasks {
		id := strings.TrimSpace(t.ID)
		if id == "" {
			id = fmt.Sprintf("T%d", i+1)
		}
		question := strings.TrimSpace(t.Question)
		if question == "" {
			continue
		}
		result.Tasks = append(result.Tasks, model.Task{
			ID:           id,
			Question:     question,
			Instructions: strings.TrimSpace(t.Instructions),
		})
	}
	if len(result.Tasks) == 0 {
		return fallbackPlan(query)
	}
	return result
}

// fallbackPlan builds a deterministic three-task plan from the query itself
func fallbackPlan(query string) model.Plan {
	keywords := query
	if words := strings.Fields(query); len(words) > 3 {
		keywords = strings.Join(words[:3], " ")
	}

	return model.Plan{
		Query: query,
		Tasks: []model.Task{
			{ID: "T1", Question: fmt.Sprintf("What is %s?", query), Instructions: "Find definitions and basic information"},
			{ID: "T2", Question: fmt.Sprintf("Key aspects of %s", keywords), Instructions: "Identify main components and characteristics"},
			{ID: "T3", Question: fmt.Sprintf("Latest developments in %s", keywords), Instructions: "Find recent news and updates"},
		},
	}
}
