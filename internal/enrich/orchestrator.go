// Package enrich runs AI enrichment over matched tag groups: it renders the
// target region, asks the model, and writes the response back onto the
// structure tree under the operation's mutation policy.
package enrich

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"tagassist/internal/ai"
	"tagassist/internal/doctree"
	"tagassist/internal/logger"
	"tagassist/internal/prompt"
	"tagassist/internal/tags"
)

// Re-exported so callers build one Request without importing prompt.
const (
	KindAltText      = prompt.KindAltText
	KindTableSummary = prompt.KindTableSummary
	KindMathML       = prompt.KindMathML
)

// DefaultWorkers is the worker-pool width for concurrent tag processing.
const DefaultWorkers = 10

// Completer is the AI collaborator contract consumed by the orchestrator.
type Completer interface {
	Complete(ctx context.Context, req ai.Request) (string, error)
}

// Request is the immutable per-run configuration, shared read-only by every
// concurrent task.
type Request struct {
	Kind          prompt.Kind
	Lang          string
	MathMLVersion string
	Model         string
	// PathOrPrompt overrides the built-in prompt template.
	PathOrPrompt string
	// Overwrite replaces pre-existing alt text / table summaries.
	Overwrite bool
	// RegenerateMathML controls whether formulas with existing associated
	// files are re-processed. Defaults to true via NewRequest.
	RegenerateMathML bool
	// Workers bounds pool concurrency; 0 means DefaultWorkers.
	Workers int
}

// NewRequest returns a Request with the historical defaults.
func NewRequest(kind prompt.Kind) Request {
	return Request{
		Kind:             kind,
		Lang:             "en",
		MathMLVersion:    "mathml-4",
		RegenerateMathML: true,
	}
}

// Report aggregates per-tag outcomes for one run.
type Report struct {
	Done    int
	Skipped int
	Failed  int
}

type outcome int

const (
	outcomeDone outcome = iota
	outcomeSkipped
	outcomeFailed
)

// Orchestrator fans enrichment out over matched groups. Tasks share the
// document handle for reads; each task writes only its own target element,
// so correctness rests on group targets being pairwise disjoint (guaranteed
// by the group builder's matched-nodes-are-leaves rule).
type Orchestrator struct {
	renderer  doctree.Renderer
	completer Completer
	log       zerolog.Logger
}

// NewOrchestrator wires the two external collaborators.
func NewOrchestrator(renderer doctree.Renderer, completer Completer) *Orchestrator {
	return &Orchestrator{
		renderer:  renderer,
		completer: completer,
		log:       logger.WithComponent("enrich"),
	}
}

// Run processes every group and returns the aggregated report. The first
// group runs inline so an invalid API key fails the run before any pool
// work starts; the rest run on a bounded pool. An authentication failure
// inside the pool is re-raised only after all in-flight tasks settle, so no
// task is abandoned mid-write. All other per-tag failures are logged and
// counted, never fatal. The caller saves the document only when Run returns
// a nil error.
func (o *Orchestrator) Run(ctx context.Context, groups []tags.Group, req Request) (Report, error) {
	var (
		mu     sync.Mutex
		report Report
	)
	record := func(out outcome) {
		mu.Lock()
		defer mu.Unlock()
		switch out {
		case outcomeDone:
			report.Done++
		case outcomeSkipped:
			report.Skipped++
		case outcomeFailed:
			report.Failed++
		}
	}

	if len(groups) == 0 {
		o.log.Info().Msg("No tags matched the search criteria")
		return report, nil
	}

	creator := &prompt.Creator{Kind: req.Kind, PathOrPrompt: req.PathOrPrompt}

	// Credential probe: the first tag runs synchronously.
	out, err := o.processGroup(ctx, groups[0], creator, req)
	if err != nil {
		record(outcomeFailed)
		return report, err
	}
	record(out)

	workers := req.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	// A plain errgroup (no shared context) keeps sibling tasks running to
	// completion even after an authentication failure.
	var (
		pool     errgroup.Group
		authOnce sync.Once
		authErr  error
	)
	pool.SetLimit(workers)

	for _, group := range groups[1:] {
		pool.Go(func() error {
			out, err := o.processGroup(ctx, group, creator, req)
			if err != nil {
				authOnce.Do(func() { authErr = err })
				record(outcomeFailed)
				return nil
			}
			record(out)
			return nil
		})
	}
	_ = pool.Wait()

	if authErr != nil {
		return report, authErr
	}
	return report, nil
}

// processGroup runs the full per-tag pipeline. The returned error is
// non-nil only for authentication failures; every other failure is logged
// and folded into the outcome.
func (o *Orchestrator) processGroup(ctx context.Context, group tags.Group, creator *prompt.Creator, req Request) (outcome, error) {
	target := group.Target()
	identity := fmt.Sprintf("%s [obj: %d, id: %d]", target.Kind(false), target.ObjectID(), target.StructID())

	page := resolvePage(target)
	if page == -1 {
		o.log.Info().Str("tag", identity).Msg("Skipping tag: cannot determine the page number")
		return outcomeSkipped, nil
	}
	identity = fmt.Sprintf("%s [obj: %d, id: %d, page: %d]", target.Kind(false), target.ObjectID(), target.StructID(), page+1)

	page, bbox := resolveBBox(target, page)
	if bbox.Degenerate() {
		o.log.Info().Str("tag", identity).Msg("Skipping tag: cannot determine the bounding box")
		return outcomeSkipped, nil
	}

	if req.alreadyEnriched(target) {
		o.log.Info().Str("tag", identity).Msg("Skipping tag: content already exists")
		return outcomeSkipped, nil
	}

	o.log.Info().Str("tag", identity).Msg("Processing tag")

	data, err := o.renderer.RenderRegion(ctx, page, bbox, 1)
	if err != nil {
		o.log.Error().Err(err).Str("tag", identity).Msg("Failed to render tag region")
		return outcomeFailed, nil
	}
	imageURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data)

	promptText, err := creator.Assemble(&group, req.Lang, req.MathMLVersion)
	if err != nil {
		o.log.Error().Err(err).Str("tag", identity).Msg("Failed to assemble prompt")
		return outcomeFailed, nil
	}

	content, err := o.completer.Complete(ctx, ai.Request{
		Prompt:       promptText,
		ImageDataURL: imageURL,
		Model:        req.Model,
	})
	if err != nil {
		if errors.Is(err, ai.ErrAuthentication) {
			return outcomeFailed, err
		}
		o.log.Error().Err(err).Str("tag", identity).Msg("Completion failed for tag")
		return outcomeFailed, nil
	}
	if content == "" {
		o.log.Info().Str("tag", identity).Msg("Model returned no content for tag")
		return outcomeSkipped, nil
	}

	req.apply(target, content)
	o.log.Info().Str("tag", identity).Str("operation", req.Kind.String()).Msg("Content set for tag")
	return outcomeDone, nil
}

// resolvePage finds the target's page: its own first occurrence, else the
// first child content with a page association. -1 means unresolvable.
func resolvePage(el doctree.Element) int {
	if page := el.PageNumber(0); page != -1 {
		return page
	}
	for i := 0; i < el.NumChildren(); i++ {
		if page := el.ChildPageNumber(i); page != -1 {
			return page
		}
	}
	return -1
}

// resolveBBox returns the page and box of the element's first page
// occurrence; the fallback page keeps the child-resolved page with an empty
// box, which the caller treats as a skip.
func resolveBBox(el doctree.Element, fallbackPage int) (int, doctree.Rect) {
	if el.PageCount() > 0 {
		page := el.PageNumber(0)
		return page, el.BBox(page)
	}
	return fallbackPage, doctree.Rect{}
}
