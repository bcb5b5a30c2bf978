package formfill

import (
	"fmt"

	"github.com/entrhq/formpilot/pkg/browser"
)

// fileInputSelector finds the resume input. File inputs are frequently hidden
// behind styled buttons, so presence is checked rather than visibility.
const fileInputSelector = "input[type='file']"

// uploadDocument attaches doc to the first file input on the page. The
// returned warnings are non-fatal; the error is only set when the page is gone.
func uploadDocument(page browser.Page, doc *Document) (*UploadResult, []string, error) {
	result := &UploadResult{Path: doc.Path, PDFPages: doc.Pages}
	var warnings []string

	if doc.PDFErr != nil {
		warnings = append(warnings, fmt.Sprintf("Document %s may be invalid: %v", doc.Path, doc.PDFErr))
	}

	input := page.Locate(fileInputSelector)
	count, err := input.Count()
	if err != nil || count == 0 {
		if ferr := fatal(err); ferr != nil {
			return result, warnings, ferr
		}
		return result, append(warnings, "File upload input not found"), nil
	}

	if err := input.SetInputFiles(doc.Path); err != nil {
		if ferr := fatal(err); ferr != nil {
			return result, warnings, ferr
		}
		return result, append(warnings, fmt.Sprintf("File upload failed: %v", err)), nil
	}

	result.Uploaded = true
	return result, warnings, nil
}
