package formfill

import (
	"errors"

	"github.com/entrhq/formpilot/pkg/browser"
	"github.com/entrhq/formpilot/pkg/profile"
)

// Strategy names recorded on FieldResult.
const (
	StrategyLabel       = "label"
	StrategyPlaceholder = "placeholder"
)

// fieldStrategy locates a control for a logical field by its human name.
type fieldStrategy struct {
	name   string
	locate func(page browser.Page, text string) browser.Element
}

// fieldStrategies are tried in order; the first visible match wins.
var fieldStrategies = []fieldStrategy{
	{
		name:   StrategyLabel,
		locate: func(page browser.Page, text string) browser.Element { return page.ByLabel(text) },
	},
	{
		name:   StrategyPlaceholder,
		locate: func(page browser.Page, text string) browser.Element { return page.ByPlaceholder(text) },
	},
}

// fieldValue is one logical field to fill.
type fieldValue struct {
	name  string
	value string
}

// profileFields returns the fields to fill in their fixed order. Optional
// fields are only included when the profile has them.
func profileFields(p profile.Profile, coverLetterLimit int) []fieldValue {
	fields := []fieldValue{
		{name: FieldName, value: p.Name},
		{name: FieldEmail, value: p.Email},
	}
	if p.HasPhone() {
		fields = append(fields, fieldValue{name: FieldPhone, value: p.Phone})
	}
	if p.HasLinkedIn() {
		fields = append(fields, fieldValue{name: FieldLinkedIn, value: p.LinkedIn})
	}
	if p.HasCoverLetter() {
		fields = append(fields, fieldValue{name: FieldCoverLetter, value: excerpt(p.CoverLetter, coverLetterLimit)})
	}
	return fields
}

// resolveField runs the strategies for one field. A field that no strategy
// can fill is reported as not found; only a closed page is an error.
func resolveField(page browser.Page, field fieldValue) (FieldResult, error) {
	for _, strategy := range fieldStrategies {
		filled, err := fillElement(strategy.locate(page, field.name), field.value)
		if err != nil {
			return FieldResult{}, err
		}
		if filled {
			return FieldResult{Field: field.name, Status: FieldFilled, Strategy: strategy.name}, nil
		}
	}
	return FieldResult{Field: field.name, Status: FieldNotFound}, nil
}

// fillElement fills el if it is visible.
func fillElement(el browser.Element, value string) (bool, error) {
	visible, err := el.IsVisible()
	if err != nil || !visible {
		return false, fatal(err)
	}
	if err := el.Fill(value); err != nil {
		return false, fatal(err)
	}
	return true, nil
}

// fatal keeps the errors that mean the page itself is gone and drops the
// ones that only mean a control could not be used.
func fatal(err error) error {
	if err != nil && errors.Is(err, browser.ErrPageClosed) {
		return err
	}
	return nil
}

// excerpt truncates s to at most limit runes. A limit <= 0 keeps s whole.
func excerpt(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
