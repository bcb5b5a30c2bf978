package formfill

import (
	"fmt"

	"github.com/entrhq/formpilot/pkg/browser"
)

// SubmitPhrases are matched against button names in priority order. An
// earlier phrase always wins over a later one, even when both are present.
var SubmitPhrases = []string{
	"Submit Application",
	"Submit",
	"Apply Now",
	"Apply",
	"Send Application",
	"Send",
}

// NoSubmitWarning is recorded when live mode finds nothing to click.
const NoSubmitWarning = "No submit button found"

// submitCandidate is one way of finding a submit control.
type submitCandidate struct {
	description string
	locate      func(page browser.Page) browser.Element
}

// submitCandidates returns the search order: named buttons by phrase, then
// any submit-typed button, then any submit-typed input.
func submitCandidates() []submitCandidate {
	candidates := make([]submitCandidate, 0, len(SubmitPhrases)+2)
	for _, phrase := range SubmitPhrases {
		phrase := phrase
		candidates = append(candidates, submitCandidate{
			description: fmt.Sprintf("button %q", phrase),
			locate:      func(page browser.Page) browser.Element { return page.ButtonByName(phrase) },
		})
	}
	return append(candidates,
		submitCandidate{
			description: "button[type='submit']",
			locate:      func(page browser.Page) browser.Element { return page.Locate("button[type='submit']") },
		},
		submitCandidate{
			description: "input[type='submit']",
			locate:      func(page browser.Page) browser.Element { return page.Locate("input[type='submit']") },
		},
	)
}

// clickSubmit clicks the first visible candidate and stops. It returns the
// description of the clicked control, or "" when nothing was clicked.
func clickSubmit(page browser.Page) (string, error) {
	for _, candidate := range submitCandidates() {
		el := candidate.locate(page)

		visible, err := el.IsVisible()
		if err != nil || !visible {
			if ferr := fatal(err); ferr != nil {
				return "", ferr
			}
			continue
		}

		if err := el.Click(); err != nil {
			if ferr := fatal(err); ferr != nil {
				return "", ferr
			}
			continue
		}
		return candidate.description, nil
	}
	return "", nil
}
