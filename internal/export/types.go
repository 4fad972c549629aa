// Package export renders a book as printable HTML and converts it to PDF.
package export

import "errors"

// BookData is the fully resolved content of one book, ready to render.
// The caller assembles it from the book record, its pages and the board
// state so this package stays free of storage concerns.
type BookData struct {
	Title string
	Rows  int
	Cols  int
	Pages []PageData
}

// PageData is one printable page.
type PageData struct {
	Label string
	Slots []SlotData
}

// SlotData is one rendered card slot. Empty slots render as outlines.
type SlotData struct {
	Empty         bool
	ImageURL      string
	ShowImage     bool
	Caption       string
	Tags          string
	FilterEnabled bool
	FilterColor   string
	FilterOpacity int
}

// Result contains the export output
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
var ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
