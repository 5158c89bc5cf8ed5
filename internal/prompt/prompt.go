// Package prompt builds the text sent to the model: it extracts context from
// the structure tree around a target tag and combines it with an operation
// template.
package prompt

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"tagassist/internal/tags"
)

//go:embed templates/*.txt
var templates embed.FS

const (
	// MaxPromptLen is the soft budget for the whole prompt. Half of it is
	// reserved for the surrounding-context JSON.
	MaxPromptLen = 4000
)

// placeholderRE captures {name} placeholders in templates.
var placeholderRE = regexp.MustCompile(`\{([^}]+)\}`)

// keptPlaceholders are the only placeholder names substituted at assembly
// time; every other {name} in a user-supplied template is stripped so a
// stray placeholder cannot break formatting.
var keptPlaceholders = map[string]bool{
	"lang":            true,
	"math_ml_version": true,
}

// Creator assembles prompts for one operation. It is immutable: the per-task
// surrounding group is passed to Assemble explicitly, so concurrent tasks
// share one Creator safely.
type Creator struct {
	// Kind selects the operation template family.
	Kind Kind
	// IsXML selects the XML-input template variant (alt text only).
	IsXML bool
	// PathOrPrompt overrides the built-in template: a readable file path
	// is loaded, any other non-empty value is used as the template
	// itself. Empty falls back to the embedded default.
	PathOrPrompt string
}

// Assemble produces the final prompt text. A non-nil group appends the
// surrounding-context JSON with the target entry replaced by a positional
// marker.
func (c *Creator) Assemble(group *tags.Group, lang, mathMLVersion string) (string, error) {
	template, err := c.template(group != nil)
	if err != nil {
		return "", err
	}

	assembled := strings.NewReplacer(
		"{lang}", lang,
		"{math_ml_version}", mathMLVersion,
	).Replace(template)

	if group != nil {
		assembled += "\n" + surroundingJSON(*group)
	}

	return assembled, nil
}

func (c *Creator) template(hasContext bool) (string, error) {
	if isFile(c.PathOrPrompt) {
		raw, err := os.ReadFile(c.PathOrPrompt)
		if err != nil {
			return "", fmt.Errorf("prompt: reading template %s: %w", c.PathOrPrompt, err)
		}
		return filterPlaceholders(strings.TrimSpace(string(raw))), nil
	}
	if c.PathOrPrompt != "" {
		return filterPlaceholders(c.PathOrPrompt), nil
	}
	return c.defaultTemplate(hasContext)
}

func (c *Creator) defaultTemplate(hasContext bool) (string, error) {
	var name string
	switch c.Kind {
	case KindAltText:
		name = "generate-alt-text"
		if c.IsXML {
			name += "-xml"
		}
	case KindTableSummary:
		name = "generate-table-summary"
	case KindMathML:
		name = "generate-mathml"
	default:
		return "", fmt.Errorf("%w: %v", ErrUnknownKind, c.Kind)
	}
	if hasContext {
		name += "-with-surround-tags"
	}

	raw, err := templates.ReadFile("templates/" + name + "-prompt.txt")
	if err != nil {
		return "", fmt.Errorf("prompt: missing built-in template %s: %w", name, err)
	}
	return filterPlaceholders(strings.TrimSpace(string(raw))), nil
}

func isFile(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// filterPlaceholders strips every {name} that is not a recognized
// substitution target.
func filterPlaceholders(template string) string {
	return placeholderRE.ReplaceAllStringFunc(template, func(match string) string {
		name := match[1 : len(match)-1]
		if keptPlaceholders[name] {
			return match
		}
		return ""
	})
}

// surroundingJSON serializes the group as a JSON array of one-entry objects
// mapping tag type to extracted content. The target's entry carries a fixed
// marker instead of content.
func surroundingJSON(group tags.Group) string {
	if len(group.Tags) == 0 {
		return "[]"
	}

	maxTagChars := MaxPromptLen / 2 / len(group.Tags)

	entries := make([]map[string]string, 0, len(group.Tags))
	for i, el := range group.Tags {
		kind := el.Kind(false)
		entry := make(map[string]string, 1)
		if i == group.TargetIndex {
			entry[kind] = fmt.Sprintf("This is position of %s that you are generating text for.", kind)
		} else {
			entry[kind] = ExtractContext(el, maxTagChars)
		}
		entries = append(entries, entry)
	}

	encoded, err := json.MarshalIndent(entries, "", " ")
	if err != nil {
		return "[]"
	}
	return string(encoded)
}
