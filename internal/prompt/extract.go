package prompt

import (
	"encoding/json"

	"tagassist/internal/doctree"
)

// extractFunc converts one element subtree into context text for the model.
type extractFunc func(el doctree.Element, maxChars int) string

// extractors is the closed dispatch table over known tag kinds. Anything not
// listed falls back to best-effort plain text. Populated in init because the
// list and table extractors recurse through ExtractContext.
var extractors map[string]extractFunc

func init() {
	extractors = map[string]extractFunc{
		"Caption": extractText,
		"H":       extractText,
		"H1":      extractText,
		"H2":      extractText,
		"H3":      extractText,
		"H4":      extractText,
		"H5":      extractText,
		"H6":      extractText,
		"H7":      extractText,
		"H8":      extractText,
		"P":       extractText,
		"Figure":  extractAlt,
		"Formula": extractAlt,
		"L":       extractList,
		"Table":   extractTable,
	}
}

// ExtractContext converts an element subtree into a short textual or JSON
// summary for use as surrounding context. It never fails: malformed or
// partial subtrees degrade to an empty string.
func ExtractContext(el doctree.Element, maxChars int) string {
	if el == nil {
		return ""
	}
	if extract, ok := extractors[el.Kind(false)]; ok {
		return extract(el, maxChars)
	}
	return extractText(el, maxChars)
}

func extractText(el doctree.Element, maxChars int) string {
	return truncate(el.Text(maxChars), maxChars)
}

func extractAlt(el doctree.Element, maxChars int) string {
	return truncate(el.Alt(), maxChars)
}

// extractList renders an L element as a JSON array of item texts, one entry
// per LBody, with the character budget split evenly across entries.
func extractList(el doctree.Element, maxChars int) string {
	items := make([]string, 0)
	for _, line := range listBodies(el) {
		if text := line.Text(maxChars); text != "" {
			items = append(items, text)
			continue
		}
		// Structured item: collect the content of each nested element.
		for i := 0; i < line.NumChildren(); i++ {
			if line.ChildKind(i) != doctree.ChildElement {
				continue
			}
			content := line.Child(i)
			if content == nil {
				continue
			}
			if text := ExtractContext(content, maxChars); text != "" {
				items = append(items, text)
			}
		}
	}

	items = shortenList(items, maxChars)
	encoded, err := json.Marshal(items)
	if err != nil {
		return ""
	}
	return string(encoded)
}

// listBodies returns the LBody elements of each LI child, in order.
func listBodies(el doctree.Element) []doctree.Element {
	var result []doctree.Element
	for i := 0; i < el.NumChildren(); i++ {
		if el.ChildKind(i) != doctree.ChildElement {
			continue
		}
		item := el.Child(i)
		if item == nil || item.Kind(false) != "LI" {
			continue
		}
		for j := 0; j < item.NumChildren(); j++ {
			if item.ChildKind(j) != doctree.ChildElement {
				continue
			}
			body := item.Child(j)
			if body != nil && body.Kind(false) == "LBody" {
				result = append(result, body)
			}
		}
	}
	return result
}

// extractTable renders a Table element as a JSON 2D array of cell texts.
// The budget is split across rows and again across each row's cells.
func extractTable(el doctree.Element, maxChars int) string {
	data := make([][]string, 0)
	for _, row := range tableRows(el) {
		cells := make([]string, 0)
		for i := 0; i < row.NumChildren(); i++ {
			if row.ChildKind(i) != doctree.ChildElement {
				continue
			}
			cell := row.Child(i)
			if cell == nil {
				continue
			}
			switch cell.Kind(false) {
			case "TH", "TD":
				if text := cellText(cell, maxChars); text != "" {
					cells = append(cells, text)
				}
			}
		}
		data = append(data, cells)
	}

	data = shortenTable(data, maxChars)
	encoded, err := json.Marshal(data)
	if err != nil {
		return ""
	}
	return string(encoded)
}

// tableRows collects TR elements, both direct children and those grouped
// under THead or TBody.
func tableRows(el doctree.Element) []doctree.Element {
	var result []doctree.Element
	for i := 0; i < el.NumChildren(); i++ {
		if el.ChildKind(i) != doctree.ChildElement {
			continue
		}
		child := el.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind(false) {
		case "TR":
			result = append(result, child)
		case "THead", "TBody":
			for j := 0; j < child.NumChildren(); j++ {
				if child.ChildKind(j) != doctree.ChildElement {
					continue
				}
				row := child.Child(j)
				if row != nil && row.Kind(false) == "TR" {
					result = append(result, row)
				}
			}
		}
	}
	return result
}

// cellText extracts the primary content of a TH or TD cell: its own text,
// or the first non-empty content of a nested element.
func cellText(cell doctree.Element, maxChars int) string {
	if text := cell.Text(maxChars); text != "" {
		return text
	}
	for i := 0; i < cell.NumChildren(); i++ {
		if cell.ChildKind(i) != doctree.ChildElement {
			continue
		}
		content := cell.Child(i)
		if content == nil {
			continue
		}
		if text := ExtractContext(content, maxChars); text != "" {
			return text
		}
	}
	return ""
}

// shortenList caps every member at maxChars divided evenly across members.
func shortenList(items []string, maxChars int) []string {
	count := len(items)
	if count < 1 {
		return items
	}
	perItem := maxChars / count
	for i, item := range items {
		items[i] = truncate(item, perItem)
	}
	return items
}

// shortenTable applies the even split per row, then per cell within a row.
func shortenTable(rows [][]string, maxChars int) [][]string {
	count := len(rows)
	if count < 1 {
		return rows
	}
	perRow := maxChars / count
	for i, row := range rows {
		rows[i] = shortenList(row, perRow)
	}
	return rows
}

func truncate(s string, max int) string {
	if max >= 0 && len(s) > max {
		return s[:max]
	}
	return s
}
