package cmd

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"tagassist/internal/ai"
	"tagassist/internal/config"
	"tagassist/internal/doctree"
	"tagassist/internal/enrich"
	"tagassist/internal/logger"
	"tagassist/internal/prompt"
	"tagassist/internal/tags"
)

// defaultTagsCount is the surrounding-window size passed to the group
// builder (half on each side of the target).
const defaultTagsCount = 4

var imageExts = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".bmp":  "image/bmp",
	".gif":  "image/gif",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".webp": "image/webp",
}

// addOperationFlags registers the flag set shared by the three enrichment
// subcommands.
func addOperationFlags(cmd *cobra.Command, kind prompt.Kind) {
	cmd.Flags().StringP("input", "i", "", "The input PDF, image or XML file")
	cmd.Flags().StringP("output", "o", "", "The output PDF, TXT, XML or JSON file")
	cmd.Flags().String("openai-key", "", "OpenAI API key (default $OPENAI_API_KEY)")
	cmd.Flags().String("name", "", "Document backend license name")
	cmd.Flags().String("key", "", "Document backend license key")
	cmd.Flags().String("tags", kind.DefaultTagPattern(), "Regular expression over tag type names to process")
	cmd.Flags().Int("tags-count", defaultTagsCount, "Number of surrounding tags used as model context")
	cmd.Flags().String("lang", "en", "Language of the generated text")
	cmd.Flags().String("model", "", "OpenAI model (default $OPENAI_MODEL or gpt-4o)")
	cmd.Flags().String("prompt", "", "Custom prompt template: a file path or the template text")
	cmd.Flags().Bool("overwrite", false, "Overwrite previously generated content")
	cmd.Flags().String("backend", "", "Document backend name (default: the registered backend)")

	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")
}

// runOptions is the resolved per-invocation configuration.
type runOptions struct {
	kind          prompt.Kind
	input         string
	output        string
	openAIKey     string
	backend       string
	creds         doctree.Credentials
	tagsPattern   string
	tagsCount     int
	lang          string
	mathMLVersion string
	model         string
	pathOrPrompt  string
	overwrite     bool
	regenMathML   bool
}

// resolveOptions merges flags with environment configuration.
func resolveOptions(cmd *cobra.Command, kind prompt.Kind) (*runOptions, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	opts := &runOptions{kind: kind}
	opts.input, _ = cmd.Flags().GetString("input")
	opts.output, _ = cmd.Flags().GetString("output")
	opts.openAIKey, _ = cmd.Flags().GetString("openai-key")
	opts.backend, _ = cmd.Flags().GetString("backend")
	opts.creds.Name, _ = cmd.Flags().GetString("name")
	opts.creds.Key, _ = cmd.Flags().GetString("key")
	opts.tagsPattern, _ = cmd.Flags().GetString("tags")
	opts.tagsCount, _ = cmd.Flags().GetInt("tags-count")
	opts.lang, _ = cmd.Flags().GetString("lang")
	opts.model, _ = cmd.Flags().GetString("model")
	opts.pathOrPrompt, _ = cmd.Flags().GetString("prompt")
	opts.overwrite, _ = cmd.Flags().GetBool("overwrite")
	opts.mathMLVersion = "mathml-4"
	if cmd.Flags().Lookup("mathml-version") != nil {
		opts.mathMLVersion, _ = cmd.Flags().GetString("mathml-version")
	}
	opts.regenMathML = true
	if cmd.Flags().Lookup("regenerate-mathml") != nil {
		opts.regenMathML, _ = cmd.Flags().GetBool("regenerate-mathml")
	}

	if opts.tagsCount < 0 {
		return nil, &argError{
			code: CodeArgGeneral,
			msg:  fmt.Sprintf("invalid tags-count %d, must be zero or positive", opts.tagsCount),
		}
	}
	if opts.openAIKey == "" {
		opts.openAIKey = cfg.OpenAIAPIKey
	}
	if opts.openAIKey == "" {
		return nil, &argError{code: CodeArgOpenAIKey, msg: "invalid or missing arguments for the OpenAI API key"}
	}
	if opts.model == "" {
		opts.model = cfg.DefaultModel
	}
	if opts.creds.Name == "" && opts.creds.Key == "" {
		opts.creds = doctree.Credentials{Name: cfg.LicenseName, Key: cfg.LicenseKey}
	}
	if opts.backend == "" {
		if names := doctree.Backends(); len(names) > 0 {
			opts.backend = names[0]
		}
	}

	return opts, nil
}

// runOperation dispatches on the input/output file combination.
func runOperation(cmd *cobra.Command, kind prompt.Kind) error {
	opts, err := resolveOptions(cmd, kind)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	inExt := strings.ToLower(filepath.Ext(opts.input))
	outExt := strings.ToLower(filepath.Ext(opts.output))

	switch {
	case inExt == ".pdf" && outExt == ".pdf":
		return runPDF(ctx, opts)
	case imageExts[inExt] != "" && (outExt == ".txt" || outExt == ".xml"):
		return runImage(ctx, opts)
	case inExt == ".xml" && outExt == ".txt":
		return runXML(ctx, opts)
	case inExt == ".json" && outExt == ".json":
		return runJSON(ctx, opts)
	}
	return &argError{
		code: CodeArgBadFilePair,
		msg:  fmt.Sprintf("not allowed input output file combination (%s -> %s), see --help", inExt, outExt),
	}
}

// runPDF is the core path: group matching tags, enrich them concurrently,
// save the document.
func runPDF(ctx context.Context, opts *runOptions) error {
	log := logger.WithComponent("process-pdf")

	preflightPDF(opts.input, log)

	doc, err := doctree.Open(opts.backend, opts.input, opts.creds)
	if err != nil {
		return err
	}
	defer doc.Close()

	root, err := doc.StructRoot()
	if err != nil {
		return err
	}

	matcher, err := tags.NewMatcher(opts.tagsPattern)
	if err != nil {
		return &argError{code: CodeArgGeneral, msg: err.Error()}
	}

	groups := tags.BuildGroups(root, matcher, opts.tagsCount)
	log.Info().
		Int("matched", len(groups)).
		Str("pattern", opts.tagsPattern).
		Msg("Structure tree walked")

	renderer, ok := doc.(doctree.Renderer)
	if !ok {
		return doctree.NewError("Render", doctree.ErrRender, "backend cannot rasterize pages")
	}

	req := enrich.NewRequest(opts.kind)
	req.Lang = opts.lang
	req.MathMLVersion = opts.mathMLVersion
	req.Model = opts.model
	req.PathOrPrompt = opts.pathOrPrompt
	req.Overwrite = opts.overwrite
	req.RegenerateMathML = opts.regenMathML

	orchestrator := enrich.NewOrchestrator(renderer, ai.NewClient(opts.openAIKey))
	report, err := orchestrator.Run(ctx, groups, req)
	log.Info().
		Int("done", report.Done).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Msg("Enrichment finished")
	if err != nil {
		return err
	}

	if err := doc.Save(opts.output); err != nil {
		return err
	}
	log.Info().Str("output", opts.output).Msg("Document saved")
	return nil
}

// preflightPDF sanity-checks the input with pdfcpu before handing it to the
// document backend. Advisory only: the backend has the final say.
func preflightPDF(path string, log zerolog.Logger) {
	pages, err := api.PageCountFile(path)
	if err != nil {
		log.Warn().Err(err).Str("input", path).Msg("PDF preflight failed, continuing")
		return
	}
	log.Info().Int("pages", pages).Str("input", path).Msg("PDF preflight passed")
}

// runImage sends a standalone image to the model and writes the response.
func runImage(ctx context.Context, opts *runOptions) error {
	data, err := os.ReadFile(opts.input)
	if err != nil {
		return &argError{code: CodeArgImageRead, msg: fmt.Sprintf("failed to read image data from %s", opts.input)}
	}

	mime := imageExts[strings.ToLower(filepath.Ext(opts.input))]
	dataURL := fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(data))

	creator := &prompt.Creator{Kind: opts.kind, PathOrPrompt: opts.pathOrPrompt}
	promptText, err := creator.Assemble(nil, opts.lang, opts.mathMLVersion)
	if err != nil {
		return err
	}

	content, err := ai.NewClient(opts.openAIKey).Complete(ctx, ai.Request{
		Prompt:       promptText,
		ImageDataURL: dataURL,
		Model:        opts.model,
	})
	if err != nil {
		return err
	}

	return os.WriteFile(opts.output, []byte(content), 0o644)
}

// runXML sends a MathML XML fragment to the model as text.
func runXML(ctx context.Context, opts *runOptions) error {
	data, err := os.ReadFile(opts.input)
	if err != nil {
		return &argError{code: CodeArgGeneral, msg: fmt.Sprintf("failed to read %s", opts.input)}
	}

	creator := &prompt.Creator{Kind: opts.kind, IsXML: true, PathOrPrompt: opts.pathOrPrompt}
	promptText, err := creator.Assemble(nil, opts.lang, opts.mathMLVersion)
	if err != nil {
		return err
	}

	content, err := ai.NewClient(opts.openAIKey).Complete(ctx, ai.Request{
		Prompt:  promptText,
		XMLData: string(data),
		Model:   opts.model,
	})
	if err != nil {
		return err
	}

	return os.WriteFile(opts.output, []byte(content), 0o644)
}

// runJSON reads {"image": <base64>} and writes {"content": <response>}.
func runJSON(ctx context.Context, opts *runOptions) error {
	raw, err := os.ReadFile(opts.input)
	if err != nil {
		return &argError{code: CodeArgGeneral, msg: fmt.Sprintf("failed to read %s", opts.input)}
	}

	var payload struct {
		Image string `json:"image"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Image == "" {
		return &argError{code: CodeArgImageRead, msg: fmt.Sprintf("failed to read image data from %s", opts.input)}
	}

	dataURL := payload.Image
	if !strings.HasPrefix(dataURL, "data:") {
		dataURL = "data:image/jpeg;base64," + dataURL
	}

	creator := &prompt.Creator{Kind: opts.kind, PathOrPrompt: opts.pathOrPrompt}
	promptText, err := creator.Assemble(nil, opts.lang, opts.mathMLVersion)
	if err != nil {
		return err
	}

	content, err := ai.NewClient(opts.openAIKey).Complete(ctx, ai.Request{
		Prompt:       promptText,
		ImageDataURL: dataURL,
		Model:        opts.model,
	})
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(map[string]string{"content": content}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(opts.output, out, 0o644)
}
