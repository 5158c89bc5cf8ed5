// Package doctree defines the boundary to the tagged-PDF document backend.
//
// The enrichment engine never talks to a concrete PDF SDK directly. It walks
// Element handles, reads bounding boxes and text, and writes alt text,
// attribute dictionaries and associated files through the interfaces below.
// A backend (a commercial SDK binding, or the in-memory fixture used by
// tests) registers itself with Register and is selected by name at open time.
package doctree

// Rect is a bounding box in PDF user-space coordinates.
type Rect struct {
	Left   float64
	Bottom float64
	Right  float64
	Top    float64
}

// Degenerate reports whether the box has zero width or zero height.
func (r Rect) Degenerate() bool {
	return r.Left == r.Right || r.Top == r.Bottom
}

// ChildKind classifies a structure element child reference.
type ChildKind int

const (
	// ChildInvalid marks an out-of-range or unresolvable child slot.
	ChildInvalid ChildKind = iota
	// ChildElement is a nested structure element.
	ChildElement
	// ChildPageContent is a leaf marked-content reference on a page.
	ChildPageContent
	// ChildObject is a leaf object reference (annotation, XObject).
	ChildObject
)

// Dict is an opaque key/value dictionary owned by the document, used for
// structure-element attribute objects.
type Dict interface {
	// Name returns the value of a name-typed entry, or "".
	Name(key string) string
	// String returns the value of a string-typed entry, or "".
	String(key string) string
	PutName(key, value string)
	PutString(key, value string)
}

// FileSpec describes an embedded associated file on a structure element.
type FileSpec struct {
	Name         string
	Description  string
	Relationship string
	MIMEType     string
	Data         []byte
}

// Element is a handle into the document's tagged structure tree. Handles are
// owned by the document and stay valid for the lifetime of one run. Reads
// are reentrant; concurrent writes are safe only on distinct elements.
type Element interface {
	// ObjectID is the underlying object identity, stable for one run.
	ObjectID() int
	// StructID is the element's identity within the structure tree.
	StructID() int
	// Kind returns the tag type name, alias-mapped through the document's
	// role map when mapped is true, raw otherwise.
	Kind(mapped bool) string

	NumChildren() int
	ChildKind(i int) ChildKind
	// Child resolves child i to an Element, or nil for leaf content.
	Child(i int) Element
	// ChildPageNumber returns the page of child i's content, or -1.
	ChildPageNumber(i int) int

	// PageCount is the number of page occurrences of this element.
	PageCount() int
	// PageNumber returns the page of occurrence i, or -1 when unknown.
	PageNumber(i int) int
	// BBox returns the element's bounding box on the given page.
	BBox(page int) Rect

	Alt() string
	SetAlt(alt string)
	ActualText() string
	Title() string
	// Text collects the element's plain text, truncated to max characters.
	Text(max int) string

	NumAttrs() int
	// Attr returns attribute object i in insertion order, or nil.
	Attr(i int) Dict
	// AddAttr creates a new attribute dictionary bound to the owning
	// document and appends it to the element's attribute list.
	AddAttr() Dict

	AssociatedFiles() []FileSpec
	// AppendAssociatedFile adds to the element's associated-file list,
	// never replacing existing entries.
	AppendAssociatedFile(f FileSpec)
}

// Document is an open document handle shared across enrichment tasks.
type Document interface {
	// StructRoot returns the root structure element, or ErrNoStructTree.
	StructRoot() (Element, error)
	// Save writes the document with all in-memory mutations applied.
	Save(path string) error
	Close() error
}

// Credentials carry the backend license.
type Credentials struct {
	Name string
	Key  string
}
