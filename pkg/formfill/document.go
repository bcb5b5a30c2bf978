package formfill

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// Document describes the resume file that will be uploaded.
type Document struct {
	Path  string
	Size  int64
	PDF   bool
	Pages int

	// PDFErr is set when a .pdf file could not be parsed. The file is still
	// uploaded; the target site gets the final say.
	PDFErr error
}

// InspectDocument checks that path is a readable regular file and, for PDFs,
// counts its pages. An error means the upload must be skipped.
func InspectDocument(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("document is not readable: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat document: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("document %s is not a regular file", path)
	}

	doc := &Document{Path: path, Size: info.Size()}
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		doc.PDF = true
		pages, err := api.PageCountFile(path)
		if err != nil {
			doc.PDFErr = fmt.Errorf("failed to read PDF: %w", err)
		} else {
			doc.Pages = pages
		}
	}
	return doc, nil
}
