package enrich

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tagassist/internal/ai"
	"tagassist/internal/doctree"
	"tagassist/internal/doctree/memdoc"
	"tagassist/internal/tags"
)

// stubCompleter is an in-memory Completer. Without a respond hook it echoes
// Response for every call.
type stubCompleter struct {
	Response string
	// respond, when set, decides the outcome of each call by its 1-based
	// sequence number.
	respond func(call int, req ai.Request) (string, error)

	mu      sync.Mutex
	calls   int
	prompts []string
}

func (s *stubCompleter) Complete(_ context.Context, req ai.Request) (string, error) {
	s.mu.Lock()
	s.calls++
	call := s.calls
	s.prompts = append(s.prompts, req.Prompt)
	s.mu.Unlock()

	if s.respond != nil {
		return s.respond(call, req)
	}
	return s.Response, nil
}

func (s *stubCompleter) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func authError() error {
	return &ai.Error{Op: "chat completion", Err: ai.ErrAuthentication}
}

var pageBox = doctree.Rect{Left: 10, Bottom: 10, Right: 200, Top: 100}

func matchGroups(t *testing.T, root doctree.Element, pattern string) []tags.Group {
	t.Helper()
	matcher, err := tags.NewMatcher(pattern)
	require.NoError(t, err)
	return tags.BuildGroups(root, matcher, 4)
}

func TestRun_EmptyGroups(t *testing.T) {
	completer := &stubCompleter{}
	orch := NewOrchestrator(&memdoc.Renderer{}, completer)

	report, err := orch.Run(context.Background(), nil, NewRequest(KindAltText))

	require.NoError(t, err)
	assert.Equal(t, Report{}, report)
	assert.Equal(t, 0, completer.Calls())
}

func TestRun_SetsAltText(t *testing.T) {
	doc := memdoc.NewDocument()
	figure := doc.NewElement("Figure").OnPage(0, pageBox)
	doc.SetRoot(doc.NewElement("Document").Append(figure))
	root, err := doc.StructRoot()
	require.NoError(t, err)

	completer := &stubCompleter{Response: "a bar chart of quarterly revenue"}
	orch := NewOrchestrator(&memdoc.Renderer{}, completer)

	report, err := orch.Run(context.Background(), matchGroups(t, root, "Figure"), NewRequest(KindAltText))

	require.NoError(t, err)
	assert.Equal(t, Report{Done: 1}, report)
	assert.Equal(t, 1, completer.Calls())
	assert.Equal(t, "a bar chart of quarterly revenue", figure.Alt())
}

func TestRun_SetsTableSummary(t *testing.T) {
	doc := memdoc.NewDocument()
	table := doc.NewElement("Table").OnPage(0, pageBox)
	doc.SetRoot(doc.NewElement("Document").Append(table))
	root, err := doc.StructRoot()
	require.NoError(t, err)

	completer := &stubCompleter{Response: "Quarterly revenue by region."}
	orch := NewOrchestrator(&memdoc.Renderer{}, completer)

	report, err := orch.Run(context.Background(), matchGroups(t, root, "Table"), NewRequest(KindTableSummary))

	require.NoError(t, err)
	assert.Equal(t, Report{Done: 1}, report)
	require.Equal(t, 1, table.NumAttrs())
	attr := table.Attr(0)
	assert.Equal(t, "Table", attr.Name("O"))
	assert.Equal(t, "Quarterly revenue by region.", attr.String("Summary"))
}

func TestRun_AttachesMathML(t *testing.T) {
	doc := memdoc.NewDocument()
	formula := doc.NewElement("Formula").OnPage(2, pageBox)
	doc.SetRoot(doc.NewElement("Document").Append(formula))
	root, err := doc.StructRoot()
	require.NoError(t, err)

	completer := &stubCompleter{Response: "<math><mi>x</mi></math>"}
	orch := NewOrchestrator(&memdoc.Renderer{}, completer)

	report, err := orch.Run(context.Background(), matchGroups(t, root, "Formula"), NewRequest(KindMathML))

	require.NoError(t, err)
	assert.Equal(t, Report{Done: 1}, report)
	files := formula.AssociatedFiles()
	require.Len(t, files, 1)
	assert.Equal(t, "mathml-4", files[0].Name)
	assert.Equal(t, "Supplement", files[0].Relationship)
	assert.Equal(t, "application/mathml+xml", files[0].MIMEType)
	assert.Equal(t, []byte("<math><mi>x</mi></math>"), files[0].Data)
}

func TestRun_SkipsExistingAltText(t *testing.T) {
	doc := memdoc.NewDocument()
	figure := doc.NewElement("Figure").WithAlt("cat").OnPage(0, pageBox)
	doc.SetRoot(doc.NewElement("Document").Append(figure))
	root, err := doc.StructRoot()
	require.NoError(t, err)

	renderer := &memdoc.Renderer{}
	completer := &stubCompleter{Response: "dog"}
	orch := NewOrchestrator(renderer, completer)

	report, err := orch.Run(context.Background(), matchGroups(t, root, "Figure"), NewRequest(KindAltText))

	require.NoError(t, err)
	assert.Equal(t, Report{Skipped: 1}, report)
	assert.Equal(t, 0, completer.Calls())
	assert.Equal(t, 0, renderer.Calls())
	assert.Equal(t, "cat", figure.Alt())
}

func TestRun_OverwriteReplacesAltText(t *testing.T) {
	doc := memdoc.NewDocument()
	figure := doc.NewElement("Figure").WithAlt("cat").OnPage(0, pageBox)
	doc.SetRoot(doc.NewElement("Document").Append(figure))
	root, err := doc.StructRoot()
	require.NoError(t, err)

	completer := &stubCompleter{Response: "dog"}
	orch := NewOrchestrator(&memdoc.Renderer{}, completer)

	req := NewRequest(KindAltText)
	req.Overwrite = true
	report, err := orch.Run(context.Background(), matchGroups(t, root, "Figure"), req)

	require.NoError(t, err)
	assert.Equal(t, Report{Done: 1}, report)
	assert.Equal(t, "dog", figure.Alt())
}

func TestRun_SkipsExistingTableSummary(t *testing.T) {
	doc := memdoc.NewDocument()
	table := doc.NewElement("Table").OnPage(0, pageBox)
	attr := table.AddAttr()
	attr.PutName("O", "Table")
	attr.PutString("Summary", "existing summary")
	doc.SetRoot(doc.NewElement("Document").Append(table))
	root, err := doc.StructRoot()
	require.NoError(t, err)

	completer := &stubCompleter{Response: "new summary"}
	orch := NewOrchestrator(&memdoc.Renderer{}, completer)

	report, err := orch.Run(context.Background(), matchGroups(t, root, "Table"), NewRequest(KindTableSummary))

	require.NoError(t, err)
	assert.Equal(t, Report{Skipped: 1}, report)
	assert.Equal(t, 0, completer.Calls())
	assert.Equal(t, "existing summary", table.Attr(0).String("Summary"))
}

func TestRun_MathMLRegeneratesByDefault(t *testing.T) {
	doc := memdoc.NewDocument()
	formula := doc.NewElement("Formula").OnPage(0, pageBox)
	formula.AppendAssociatedFile(doctree.FileSpec{Name: "mathml-3"})
	doc.SetRoot(doc.NewElement("Document").Append(formula))
	root, err := doc.StructRoot()
	require.NoError(t, err)

	completer := &stubCompleter{Response: "<math/>"}
	orch := NewOrchestrator(&memdoc.Renderer{}, completer)

	report, err := orch.Run(context.Background(), matchGroups(t, root, "Formula"), NewRequest(KindMathML))

	require.NoError(t, err)
	assert.Equal(t, Report{Done: 1}, report)
	assert.Len(t, formula.AssociatedFiles(), 2)
}

func TestRun_MathMLSkipWhenRegenerationDisabled(t *testing.T) {
	doc := memdoc.NewDocument()
	formula := doc.NewElement("Formula").OnPage(0, pageBox)
	formula.AppendAssociatedFile(doctree.FileSpec{Name: "mathml-3"})
	doc.SetRoot(doc.NewElement("Document").Append(formula))
	root, err := doc.StructRoot()
	require.NoError(t, err)

	completer := &stubCompleter{Response: "<math/>"}
	orch := NewOrchestrator(&memdoc.Renderer{}, completer)

	req := NewRequest(KindMathML)
	req.RegenerateMathML = false
	report, err := orch.Run(context.Background(), matchGroups(t, root, "Formula"), req)

	require.NoError(t, err)
	assert.Equal(t, Report{Skipped: 1}, report)
	assert.Equal(t, 0, completer.Calls())
	assert.Len(t, formula.AssociatedFiles(), 1)
}

func TestRun_SkipsTagWithoutPage(t *testing.T) {
	doc := memdoc.NewDocument()
	figure := doc.NewElement("Figure")
	doc.SetRoot(doc.NewElement("Document").Append(figure))
	root, err := doc.StructRoot()
	require.NoError(t, err)

	completer := &stubCompleter{Response: "x"}
	orch := NewOrchestrator(&memdoc.Renderer{}, completer)

	report, err := orch.Run(context.Background(), matchGroups(t, root, "Figure"), NewRequest(KindAltText))

	require.NoError(t, err)
	assert.Equal(t, Report{Skipped: 1}, report)
	assert.Equal(t, 0, completer.Calls())
}

func TestRun_SkipsDegenerateBBox(t *testing.T) {
	doc := memdoc.NewDocument()
	// Page comes from a marked-content child but the element itself has no
	// box, which resolves to an empty rectangle.
	figure := doc.NewElement("Figure").AppendContent(3)
	doc.SetRoot(doc.NewElement("Document").Append(figure))
	root, err := doc.StructRoot()
	require.NoError(t, err)

	completer := &stubCompleter{Response: "x"}
	orch := NewOrchestrator(&memdoc.Renderer{}, completer)

	report, err := orch.Run(context.Background(), matchGroups(t, root, "Figure"), NewRequest(KindAltText))

	require.NoError(t, err)
	assert.Equal(t, Report{Skipped: 1}, report)
	assert.Equal(t, 0, completer.Calls())
}

func TestRun_RenderFailureCountsAsFailed(t *testing.T) {
	doc := memdoc.NewDocument()
	figure := doc.NewElement("Figure").OnPage(0, pageBox)
	doc.SetRoot(doc.NewElement("Document").Append(figure))
	root, err := doc.StructRoot()
	require.NoError(t, err)

	renderer := &memdoc.Renderer{Err: errors.New("render backend unavailable")}
	completer := &stubCompleter{Response: "x"}
	orch := NewOrchestrator(renderer, completer)

	report, err := orch.Run(context.Background(), matchGroups(t, root, "Figure"), NewRequest(KindAltText))

	require.NoError(t, err)
	assert.Equal(t, Report{Failed: 1}, report)
	assert.Equal(t, 0, completer.Calls())
}

func TestRun_EmptyResponseSkips(t *testing.T) {
	doc := memdoc.NewDocument()
	figure := doc.NewElement("Figure").OnPage(0, pageBox)
	doc.SetRoot(doc.NewElement("Document").Append(figure))
	root, err := doc.StructRoot()
	require.NoError(t, err)

	completer := &stubCompleter{Response: ""}
	orch := NewOrchestrator(&memdoc.Renderer{}, completer)

	report, err := orch.Run(context.Background(), matchGroups(t, root, "Figure"), NewRequest(KindAltText))

	require.NoError(t, err)
	assert.Equal(t, Report{Skipped: 1}, report)
	assert.Equal(t, 1, completer.Calls())
	assert.Equal(t, "", figure.Alt())
}

func TestRun_RequestFailureDoesNotStopSiblings(t *testing.T) {
	doc := memdoc.NewDocument()
	figures := []*memdoc.Node{
		doc.NewElement("Figure").OnPage(0, pageBox),
		doc.NewElement("Figure").OnPage(1, pageBox),
		doc.NewElement("Figure").OnPage(2, pageBox),
	}
	doc.SetRoot(doc.NewElement("Document").Append(figures...))
	root, err := doc.StructRoot()
	require.NoError(t, err)

	completer := &stubCompleter{
		respond: func(call int, _ ai.Request) (string, error) {
			if call == 2 {
				return "", &ai.Error{Op: "chat completion", Err: ai.ErrRequestFailed, Details: "502"}
			}
			return "described", nil
		},
	}
	orch := NewOrchestrator(&memdoc.Renderer{}, completer)

	report, err := orch.Run(context.Background(), matchGroups(t, root, "Figure"), NewRequest(KindAltText))

	require.NoError(t, err)
	assert.Equal(t, 3, completer.Calls())
	assert.Equal(t, 2, report.Done)
	assert.Equal(t, 1, report.Failed)
}

func TestRun_AuthFailureOnFirstTagStopsRun(t *testing.T) {
	doc := memdoc.NewDocument()
	figures := []*memdoc.Node{
		doc.NewElement("Figure").OnPage(0, pageBox),
		doc.NewElement("Figure").OnPage(1, pageBox),
		doc.NewElement("Figure").OnPage(2, pageBox),
	}
	doc.SetRoot(doc.NewElement("Document").Append(figures...))
	root, err := doc.StructRoot()
	require.NoError(t, err)

	completer := &stubCompleter{
		respond: func(int, ai.Request) (string, error) {
			return "", authError()
		},
	}
	orch := NewOrchestrator(&memdoc.Renderer{}, completer)

	report, err := orch.Run(context.Background(), matchGroups(t, root, "Figure"), NewRequest(KindAltText))

	require.ErrorIs(t, err, ai.ErrAuthentication)
	// The credential probe fails before any pool task starts.
	assert.Equal(t, 1, completer.Calls())
	assert.Equal(t, Report{Failed: 1}, report)
	for _, figure := range figures {
		assert.Equal(t, "", figure.Alt())
	}
}

func TestRun_PoolAuthFailureSettlesAllTasks(t *testing.T) {
	doc := memdoc.NewDocument()
	var figures []*memdoc.Node
	for page := 0; page < 6; page++ {
		figures = append(figures, doc.NewElement("Figure").OnPage(page, pageBox))
	}
	doc.SetRoot(doc.NewElement("Document").Append(figures...))
	root, err := doc.StructRoot()
	require.NoError(t, err)

	completer := &stubCompleter{
		respond: func(call int, _ ai.Request) (string, error) {
			if call == 3 {
				return "", authError()
			}
			return "described", nil
		},
	}
	orch := NewOrchestrator(&memdoc.Renderer{}, completer)

	report, err := orch.Run(context.Background(), matchGroups(t, root, "Figure"), NewRequest(KindAltText))

	// The auth error surfaces only after every in-flight task finished.
	require.ErrorIs(t, err, ai.ErrAuthentication)
	assert.Equal(t, 6, completer.Calls())
	assert.Equal(t, 5, report.Done)
	assert.Equal(t, 1, report.Failed)
}

func TestRun_PromptCarriesSurroundingContext(t *testing.T) {
	doc := memdoc.NewDocument()
	figure := doc.NewElement("Figure").OnPage(0, pageBox)
	doc.SetRoot(doc.NewElement("Document").Append(
		doc.NewElement("P").WithText("The chart below shows revenue."),
		figure,
	))
	root, err := doc.StructRoot()
	require.NoError(t, err)

	completer := &stubCompleter{Response: "a revenue chart"}
	orch := NewOrchestrator(&memdoc.Renderer{}, completer)

	_, err = orch.Run(context.Background(), matchGroups(t, root, "Figure"), NewRequest(KindAltText))

	require.NoError(t, err)
	require.Len(t, completer.prompts, 1)
	assert.Contains(t, completer.prompts[0], "The chart below shows revenue.")
	assert.Contains(t, completer.prompts[0], "This is position of Figure")
}

func TestRun_SendsRenderedImage(t *testing.T) {
	doc := memdoc.NewDocument()
	figure := doc.NewElement("Figure").OnPage(0, pageBox)
	doc.SetRoot(doc.NewElement("Document").Append(figure))
	root, err := doc.StructRoot()
	require.NoError(t, err)

	renderer := &memdoc.Renderer{Bytes: []byte("jpeg-bytes")}
	var gotImage string
	completer := &stubCompleter{
		respond: func(_ int, req ai.Request) (string, error) {
			gotImage = req.ImageDataURL
			return "described", nil
		},
	}
	orch := NewOrchestrator(renderer, completer)

	_, err = orch.Run(context.Background(), matchGroups(t, root, "Figure"), NewRequest(KindAltText))

	require.NoError(t, err)
	assert.Equal(t, 1, renderer.Calls())
	require.True(t, strings.HasPrefix(gotImage, "data:image/jpeg;base64,"))
	assert.Contains(t, gotImage, "anBlZy1ieXRlcw==")
}

func TestFindTableAttr_LastWins(t *testing.T) {
	doc := memdoc.NewDocument()
	table := doc.NewElement("Table")

	first := table.AddAttr()
	first.PutName("O", "Table")
	first.PutString("Summary", "stale")

	layout := table.AddAttr()
	layout.PutName("O", "Layout")

	second := table.AddAttr()
	second.PutName("O", "Table")

	setTableSummary(table, "fresh")

	assert.Equal(t, "fresh", second.String("Summary"))
	assert.Equal(t, "stale", first.String("Summary"))
	assert.Equal(t, 3, table.NumAttrs())
}
