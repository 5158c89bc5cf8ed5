// Package memdoc is an in-memory doctree backend used as a test fixture.
// It implements the full Element/Document surface so the grouping, prompt
// and enrichment packages can be exercised against hand-built trees without
// a PDF SDK.
package memdoc

import (
	"context"
	"strings"
	"sync"

	"tagassist/internal/doctree"
)

// Document is an in-memory tagged document.
type Document struct {
	mu     sync.Mutex
	root   *Node
	nextID int

	// SavedTo records the path of the last successful Save.
	SavedTo string
	// SaveErr, when set, is returned by Save.
	SaveErr error
}

// NewDocument creates an empty document with no structure tree.
func NewDocument() *Document {
	return &Document{}
}

// SetRoot installs the structure tree root.
func (d *Document) SetRoot(root *Node) {
	d.root = root
}

// StructRoot implements doctree.Document.
func (d *Document) StructRoot() (doctree.Element, error) {
	if d.root == nil {
		return nil, doctree.NewError("StructRoot", doctree.ErrNoStructTree, "")
	}
	return d.root, nil
}

// Save implements doctree.Document.
func (d *Document) Save(path string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.SaveErr != nil {
		return doctree.NewError("Save", doctree.ErrSave, d.SaveErr.Error())
	}
	d.SavedTo = path
	return nil
}

// Close implements doctree.Document.
func (d *Document) Close() error { return nil }

// Opener returns a doctree.Opener that always yields doc, for registry tests.
func (d *Document) Opener() doctree.Opener {
	return func(string, doctree.Credentials) (doctree.Document, error) {
		return d, nil
	}
}

type pageOccurrence struct {
	page int
	bbox doctree.Rect
}

type child struct {
	kind doctree.ChildKind
	node *Node
	page int
}

// Node is an in-memory structure element.
type Node struct {
	doc        *Document
	objectID   int
	structID   int
	kind       string
	mappedKind string

	children []child
	pages    []pageOccurrence

	mu         sync.Mutex
	alt        string
	actualText string
	title      string
	text       string
	attrs      []*Dict
	files      []doctree.FileSpec
}

// NewElement creates a node of the given raw tag type. The mapped type
// defaults to the raw type.
func (d *Document) NewElement(kind string) *Node {
	d.nextID++
	return &Node{
		doc:        d,
		objectID:   100 + d.nextID,
		structID:   d.nextID,
		kind:       kind,
		mappedKind: kind,
	}
}

// WithMappedKind overrides the role-mapped tag type.
func (n *Node) WithMappedKind(mapped string) *Node {
	n.mappedKind = mapped
	return n
}

// WithText sets the node's own plain text.
func (n *Node) WithText(text string) *Node {
	n.text = text
	return n
}

// WithAlt sets the node's alternate text.
func (n *Node) WithAlt(alt string) *Node {
	n.alt = alt
	return n
}

// WithActualText sets the node's actual-text replacement.
func (n *Node) WithActualText(s string) *Node {
	n.actualText = s
	return n
}

// WithTitle sets the node's title.
func (n *Node) WithTitle(s string) *Node {
	n.title = s
	return n
}

// OnPage records a page occurrence with a bounding box.
func (n *Node) OnPage(page int, bbox doctree.Rect) *Node {
	n.pages = append(n.pages, pageOccurrence{page: page, bbox: bbox})
	return n
}

// Append adds nested element children.
func (n *Node) Append(nodes ...*Node) *Node {
	for _, node := range nodes {
		n.children = append(n.children, child{kind: doctree.ChildElement, node: node, page: -1})
	}
	return n
}

// AppendContent adds a leaf marked-content child on the given page.
func (n *Node) AppendContent(page int) *Node {
	n.children = append(n.children, child{kind: doctree.ChildPageContent, page: page})
	return n
}

// Element interface

func (n *Node) ObjectID() int    { return n.objectID }
func (n *Node) StructID() int    { return n.structID }
func (n *Node) NumChildren() int { return len(n.children) }

func (n *Node) Kind(mapped bool) string {
	if mapped {
		return n.mappedKind
	}
	return n.kind
}

func (n *Node) ChildKind(i int) doctree.ChildKind {
	if i < 0 || i >= len(n.children) {
		return doctree.ChildInvalid
	}
	return n.children[i].kind
}

func (n *Node) Child(i int) doctree.Element {
	if i < 0 || i >= len(n.children) || n.children[i].node == nil {
		return nil
	}
	return n.children[i].node
}

func (n *Node) ChildPageNumber(i int) int {
	if i < 0 || i >= len(n.children) {
		return -1
	}
	c := n.children[i]
	if c.node != nil {
		return c.node.PageNumber(0)
	}
	return c.page
}

func (n *Node) PageCount() int { return len(n.pages) }

func (n *Node) PageNumber(i int) int {
	if i < 0 || i >= len(n.pages) {
		return -1
	}
	return n.pages[i].page
}

func (n *Node) BBox(page int) doctree.Rect {
	for _, occ := range n.pages {
		if occ.page == page {
			return occ.bbox
		}
	}
	return doctree.Rect{}
}

func (n *Node) Alt() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.alt
}

func (n *Node) SetAlt(alt string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alt = alt
}

func (n *Node) ActualText() string { return n.actualText }
func (n *Node) Title() string      { return n.title }

// Text returns the node's own text, or the concatenated text of its element
// children, truncated to max characters. max <= 0 means unlimited.
func (n *Node) Text(max int) string {
	text := n.text
	if text == "" && len(n.children) > 0 {
		var parts []string
		for _, c := range n.children {
			if c.node == nil {
				continue
			}
			if t := c.node.Text(max); t != "" {
				parts = append(parts, t)
			}
		}
		text = strings.Join(parts, " ")
	}
	if max > 0 && len(text) > max {
		return text[:max]
	}
	return text
}

func (n *Node) NumAttrs() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.attrs)
}

func (n *Node) Attr(i int) doctree.Dict {
	n.mu.Lock()
	defer n.mu.Unlock()
	if i < 0 || i >= len(n.attrs) {
		return nil
	}
	return n.attrs[i]
}

func (n *Node) AddAttr() doctree.Dict {
	n.mu.Lock()
	defer n.mu.Unlock()
	attr := newDict()
	n.attrs = append(n.attrs, attr)
	return attr
}

func (n *Node) AssociatedFiles() []doctree.FileSpec {
	n.mu.Lock()
	defer n.mu.Unlock()
	files := make([]doctree.FileSpec, len(n.files))
	copy(files, n.files)
	return files
}

func (n *Node) AppendAssociatedFile(f doctree.FileSpec) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.files = append(n.files, f)
}

// Dict is an in-memory attribute dictionary.
type Dict struct {
	mu      sync.Mutex
	names   map[string]string
	strings map[string]string
}

func newDict() *Dict {
	return &Dict{
		names:   make(map[string]string),
		strings: make(map[string]string),
	}
}

func (d *Dict) Name(key string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.names[key]
}

func (d *Dict) String(key string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.strings[key]
}

func (d *Dict) PutName(key, value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.names[key] = value
}

func (d *Dict) PutString(key, value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.strings[key] = value
}

// Renderer is a canned doctree.Renderer for tests.
type Renderer struct {
	// Bytes is returned for every render call.
	Bytes []byte
	// Err, when set, is returned instead.
	Err error

	mu    sync.Mutex
	calls int
}

func (r *Renderer) RenderRegion(_ context.Context, _ int, _ doctree.Rect, _ float64) ([]byte, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	if r.Bytes == nil {
		return []byte{0xff, 0xd8, 0xff, 0xd9}, nil
	}
	return r.Bytes, nil
}

// Calls reports how many times RenderRegion was invoked.
func (r *Renderer) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}
