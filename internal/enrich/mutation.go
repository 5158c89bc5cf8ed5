package enrich

import (
	"tagassist/internal/doctree"
)

// alreadyEnriched is the idempotence pre-check: it reports whether the
// target already carries content for the operation, in which case the tag
// is skipped unless overwrite (or MathML regeneration) is requested.
func (r Request) alreadyEnriched(el doctree.Element) bool {
	switch r.Kind {
	case KindAltText:
		return !r.Overwrite && el.Alt() != ""
	case KindTableSummary:
		return !r.Overwrite && hasTableSummary(el)
	case KindMathML:
		// Historically this path always regenerated; the pre-check is
		// opt-in via RegenerateMathML=false.
		return !r.RegenerateMathML && len(el.AssociatedFiles()) > 0
	}
	return false
}

// apply writes the model response onto the target element.
func (r Request) apply(el doctree.Element, content string) {
	switch r.Kind {
	case KindAltText:
		el.SetAlt(content)
	case KindTableSummary:
		setTableSummary(el, content)
	case KindMathML:
		attachMathML(el, content, r.MathMLVersion)
	}
}

// findTableAttr returns the last attribute dictionary tagged as Table
// owner, or nil. Scanning in reverse insertion order mirrors how viewers
// resolve conflicting attribute objects.
func findTableAttr(el doctree.Element) doctree.Dict {
	for i := el.NumAttrs() - 1; i >= 0; i-- {
		attr := el.Attr(i)
		if attr == nil {
			continue
		}
		if attr.Name("O") == "Table" {
			return attr
		}
	}
	return nil
}

func hasTableSummary(el doctree.Element) bool {
	attr := findTableAttr(el)
	return attr != nil && attr.String("Summary") != ""
}

// setTableSummary upserts the Summary entry on the element's Table
// attribute dictionary, creating the dictionary if none exists.
func setTableSummary(el doctree.Element, summary string) {
	attr := findTableAttr(el)
	if attr == nil {
		attr = el.AddAttr()
		attr.PutName("O", "Table")
	}
	attr.PutString("Summary", summary)
}

// attachMathML appends the MathML markup as a supplemental associated file
// named by the MathML version. Existing associated files are kept.
func attachMathML(el doctree.Element, mathML, version string) {
	el.AppendAssociatedFile(doctree.FileSpec{
		Name:         version,
		Description:  version,
		Relationship: "Supplement",
		MIMEType:     "application/mathml+xml",
		Data:         []byte(mathML),
	})
}
