package prompt

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tagassist/internal/doctree/memdoc"
)

func TestExtractContext_Nil(t *testing.T) {
	assert.Equal(t, "", ExtractContext(nil, 100))
}

func TestExtractContext_ParagraphAndHeadings(t *testing.T) {
	doc := memdoc.NewDocument()

	for _, kind := range []string{"P", "H", "H1", "H4", "H8", "Caption"} {
		el := doc.NewElement(kind).WithText("some running text")
		assert.Equal(t, "some running text", ExtractContext(el, 100), kind)
	}
}

func TestExtractContext_TruncatesText(t *testing.T) {
	doc := memdoc.NewDocument()
	el := doc.NewElement("P").WithText("abcdefghij")

	assert.Equal(t, "abcde", ExtractContext(el, 5))
}

func TestExtractContext_FigureAndFormulaUseAltText(t *testing.T) {
	doc := memdoc.NewDocument()

	fig := doc.NewElement("Figure").WithAlt("a sleeping cat").WithText("ignored")
	assert.Equal(t, "a sleeping cat", ExtractContext(fig, 100))

	formula := doc.NewElement("Formula").WithAlt("x squared")
	assert.Equal(t, "x squared", ExtractContext(formula, 100))

	empty := doc.NewElement("Figure")
	assert.Equal(t, "", ExtractContext(empty, 100))
}

func TestExtractContext_UnknownKindFallsBackToText(t *testing.T) {
	doc := memdoc.NewDocument()
	el := doc.NewElement("BlockQuote").WithText("quoted words")

	assert.Equal(t, "quoted words", ExtractContext(el, 100))
}

func TestExtractContext_List(t *testing.T) {
	doc := memdoc.NewDocument()
	list := doc.NewElement("L").Append(
		listItem(doc, "first"),
		listItem(doc, "second"),
		listItem(doc, "third"),
	)

	out := ExtractContext(list, 300)

	var items []string
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	assert.Equal(t, []string{"first", "second", "third"}, items)
}

func TestExtractContext_ListBudgetSplitEvenly(t *testing.T) {
	doc := memdoc.NewDocument()
	long := strings.Repeat("x", 100)
	list := doc.NewElement("L").Append(
		listItem(doc, long),
		listItem(doc, long),
		listItem(doc, long),
	)

	out := ExtractContext(list, 30)

	var items []string
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 3)
	for _, item := range items {
		// 30 chars over 3 members: each gets exactly floor(30/3).
		assert.Len(t, item, 10)
	}
}

func TestExtractContext_EmptyList(t *testing.T) {
	doc := memdoc.NewDocument()
	list := doc.NewElement("L")

	assert.Equal(t, "[]", ExtractContext(list, 100))
}

func TestExtractContext_ListWithStructuredItems(t *testing.T) {
	doc := memdoc.NewDocument()
	body := doc.NewElement("LBody").Append(doc.NewElement("P").WithText("nested paragraph"))
	item := doc.NewElement("LI").Append(body)
	list := doc.NewElement("L").Append(item)

	out := ExtractContext(list, 300)

	var items []string
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	assert.Equal(t, []string{"nested paragraph"}, items)
}

func TestExtractContext_Table(t *testing.T) {
	doc := memdoc.NewDocument()
	table := doc.NewElement("Table").Append(
		doc.NewElement("THead").Append(
			tableRow(doc, "TH", "Name", "Age"),
		),
		doc.NewElement("TBody").Append(
			tableRow(doc, "TD", "Alice", "30"),
			tableRow(doc, "TD", "Bob", "25"),
		),
	)

	out := ExtractContext(table, 300)

	var data [][]string
	require.NoError(t, json.Unmarshal([]byte(out), &data))
	require.Len(t, data, 3)
	assert.Equal(t, []string{"Name", "Age"}, data[0])
	assert.Equal(t, []string{"Alice", "30"}, data[1])
	assert.Equal(t, []string{"Bob", "25"}, data[2])
}

func TestExtractContext_TableDirectRows(t *testing.T) {
	doc := memdoc.NewDocument()
	table := doc.NewElement("Table").Append(
		tableRow(doc, "TD", "a", "b"),
		tableRow(doc, "TD", "c", "d"),
	)

	out := ExtractContext(table, 300)

	var data [][]string
	require.NoError(t, json.Unmarshal([]byte(out), &data))
	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}}, data)
}

func TestExtractContext_TableBudgetLaw(t *testing.T) {
	doc := memdoc.NewDocument()
	long := strings.Repeat("y", 200)
	table := doc.NewElement("Table").Append(
		tableRow(doc, "TD", long, long),
		tableRow(doc, "TD", long, long),
		tableRow(doc, "TD", long, long),
	)

	out := ExtractContext(table, 300)

	var data [][]string
	require.NoError(t, json.Unmarshal([]byte(out), &data))
	require.Len(t, data, 3)
	for _, row := range data {
		require.Len(t, row, 2)
		for _, cell := range row {
			// Budget 300 over 3 rows then 2 cells: floor(floor(300/3)/2).
			assert.Len(t, cell, 50)
		}
	}
}

func TestExtractContext_MalformedTableDegrades(t *testing.T) {
	doc := memdoc.NewDocument()
	// Rows carrying junk children and empty cells must not fail.
	table := doc.NewElement("Table").Append(
		doc.NewElement("TR").Append(
			doc.NewElement("TD"),
			doc.NewElement("P").WithText("not a cell"),
		),
		doc.NewElement("P").WithText("not a row"),
	)

	out := ExtractContext(table, 300)

	var data [][]string
	require.NoError(t, json.Unmarshal([]byte(out), &data))
	require.Len(t, data, 1)
	assert.Empty(t, data[0])
}

func listItem(doc *memdoc.Document, text string) *memdoc.Node {
	return doc.NewElement("LI").Append(doc.NewElement("LBody").WithText(text))
}

func tableRow(doc *memdoc.Document, cellKind string, texts ...string) *memdoc.Node {
	row := doc.NewElement("TR")
	for _, text := range texts {
		row.Append(doc.NewElement(cellKind).WithText(text))
	}
	return row
}
