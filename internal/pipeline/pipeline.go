package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/ameins/delver/internal/llm"
	"github.com/ameins/delver/internal/model"
	"github.com/ameins/delver/internal/originality"
	"github.com/ameins/delver/internal/plan"
	"github.com/ameins/delver/internal/retrieve"
	"github.com/ameins/delver/internal/synth"
	"github.com/ameins/delver/internal/worker"
)

// Pipeline orchestrates one research run: plan, retrieve, synthesize,
// check originality and rewrite flagged passages.
type Pipeline struct {
	planner    *plan.Planner
	retriever  retrieve.Retriever // nil means no sources configured
	summarizer *synth.Summarizer
	scorer     *originality.Scorer
	rewriter   *originality.Rewriter
	rewriteFn  originality.RewriteFunc
	renderer   *Renderer
	provider   llm.Provider
	config     *model.Config
}

// NewPipeline creates a pipeline with the given configuration.
// retriever may be nil when no source list or corpus is configured.
func NewPipeline(cfg *model.Config, retriever retrieve.Retriever) *Pipeline {
	var provider llm.Provider
	if cfg.LLM.Provider != "" {
		p, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM))
		if err != nil {
			fmt.Printf("Warning: failed to initialize LLM provider: %v\n", err)
		} else {
			provider = p
		}
	}

	var rewriteFn originality.RewriteFunc
	if provider != nil {
		rewriteFn = synth.NewRewriteCapability(provider, cfg.LLM.Temperature)
	}

	return &Pipeline{
		planner:    plan.NewPlanner(provider),
		retriever:  retriever,
		summarizer: synth.NewSummarizer(provider),
		scorer:     originality.NewScorer(cfg.Originality),
		rewriter:   originality.NewRewriter(cfg.Rewrite),
		rewriteFn:  rewriteFn,
		renderer:   NewRenderer(cfg.Output.IncludeFooter),
		provider:   provider,
		config:     cfg,
	}
}

// Research runs the full pipeline for a single query
func (p *Pipeline) Research(ctx context.Context, query string) (*model.Report, error) {
	if query == "" {
		return nil, fmt.Errorf("empty query")
	}

	start := time.Now()

	researchPlan := p.planner.Plan(ctx, query)

	documents := p.retrieveAll(ctx, researchPlan)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	summary := p.summarizer.Summarize(ctx, researchPlan, documents)

	var refs []model.Document
	for _, docs := range documents {
		refs = append(refs, docs...)
	}

	report := &model.Report{
		Query:       query,
		GeneratedAt: time.Now().UTC(),
		Plan:        researchPlan,
		Documents:   documents,
		Summary:     summary,
	}

	report.Originality = p.scorer.CheckDocuments(ctx, summary.Content, refs)

	if len(report.Originality.Flags) > 0 && p.rewriteFn != nil {
		p.rewriteFlagged(ctx, report, refs)
	}

	if p.provider != nil {
		report.LLM = model.LLMInfo{
			Provider: p.provider.Name(),
			Model:    p.config.LLM.Model,
		}
	}

	report.Elapsed = time.Since(start)

	return report, nil
}

// rewriteFlagged runs up to MaxPasses rewrite rounds, re-checking after
// each one. It stops early when a pass clears all flags or changes nothing.
func (p *Pipeline) rewriteFlagged(ctx context.Context, report *model.Report, refs []model.Document) {
	content := report.Summary.Content
	flags := report.Originality.Flags

	passes := p.config.Rewrite.MaxPasses
	if passes <= 0 {
		passes = 1
	}

	for pass := 0; pass < passes; pass++ {
		result := p.rewriter.Rewrite(ctx, content, flags, p.rewriteFn)
		report.Rewrite = &result

		recheck := p.scorer.CheckDocuments(ctx, result.Content, refs)
		report.PostRewrite = &recheck

		if result.ChangedSegments == 0 || len(recheck.Flags) == 0 {
			break
		}

		content = result.Content
		flags = recheck.Flags
	}
}

// retrieveAll fetches documents for every task through the worker pool.
// A failed task degrades to an empty source list rather than aborting.
func (p *Pipeline) retrieveAll(ctx context.Context, researchPlan model.Plan) map[string][]model.Document {
	documents := make(map[string][]model.Document, len(researchPlan.Tasks))

	if p.retriever == nil {
		return documents
	}

	pool := worker.NewPool(p.config.Concurrency.TaskWorkers)
	pool.Start()

	for _, task := range researchPlan.Tasks {
		pool.Submit(&taskJob{task: task, retriever: p.retriever})
	}

	for _, result := range pool.Wait() {
		tr := result.(*taskResult)
		if tr.err != nil {
			fmt.Printf("Warning: retrieval failed for %s: %v\n", tr.taskID, tr.err)
			continue
		}
		documents[tr.taskID] = tr.docs
	}

	return documents
}

type taskJob struct {
	task      model.Task
	retriever retrieve.Retriever
}

func (j *taskJob) Execute(ctx context.Context) worker.Result {
	docs, err := j.retriever.Retrieve(ctx, j.task)
	return &taskResult{taskID: j.task.ID, docs: docs, err: err}
}

type taskResult struct {
	taskID string
	docs   []model.Document
	err    error
}

func (r *taskResult) GetError() error {
	return r.err
}

// RenderReport writes the report to the configured outputs
func (p *Pipeline) RenderReport(report *model.Report, jsonPath, mdPath string, verbose bool) error {
	if jsonPath != "" {
		if err := p.renderer.RenderJSON(report, jsonPath); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		if verbose {
			fmt.Printf("✓ Wrote JSON: %s\n", jsonPath)
		}
	}

	if mdPath != "" {
		if err := p.renderer.RenderMarkdown(report, mdPath); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		if verbose {
			fmt.Printf("✓ Wrote Markdown: %s\n", mdPath)
		}
	}

	p.renderer.RenderSummary(report)

	return nil
}

// AppendRunLog appends a one-line run record to the JSONL log at path
func (p *Pipeline) AppendRunLog(report *model.Report, path string) error {
	return p.renderer.AppendRunLog(report, path)
}
