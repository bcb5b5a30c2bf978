// Package profile holds the candidate data a form is filled with.
package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Profile is the candidate information used to fill application forms.
// Optional fields are considered present when they are not blank.
type Profile struct {
	Name     string `yaml:"name" json:"name"`
	Email    string `yaml:"email" json:"email"`
	Phone    string `yaml:"phone,omitempty" json:"phone,omitempty"`
	LinkedIn string `yaml:"linkedin,omitempty" json:"linkedin,omitempty"`
	GitHub   string `yaml:"github,omitempty" json:"github,omitempty"`
	Website  string `yaml:"website,omitempty" json:"website,omitempty"`

	// CoverLetter is the (possibly tailored) cover letter text. Only an
	// excerpt of it is pasted into forms.
	CoverLetter string `yaml:"cover_letter,omitempty" json:"cover_letter_template,omitempty"`

	// CVText is the plain-text resume. It is never typed into a form; the
	// resume document is uploaded instead.
	CVText string `yaml:"cv_text,omitempty" json:"cv_text,omitempty"`
}

// HasPhone reports whether a phone number is present.
func (p Profile) HasPhone() bool { return present(p.Phone) }

// HasLinkedIn reports whether a professional network URL is present.
func (p Profile) HasLinkedIn() bool { return present(p.LinkedIn) }

// HasCoverLetter reports whether cover letter text is present.
func (p Profile) HasCoverLetter() bool { return present(p.CoverLetter) }

// Validate checks the fields every form needs.
func (p Profile) Validate() error {
	if !present(p.Name) {
		return fmt.Errorf("profile name is required")
	}
	if !present(p.Email) {
		return fmt.Errorf("profile email is required")
	}
	if !strings.Contains(p.Email, "@") {
		return fmt.Errorf("profile email %q is not an address", p.Email)
	}
	return nil
}

func present(s string) bool {
	return strings.TrimSpace(s) != ""
}

// Load reads a profile from a YAML or JSON file, chosen by extension.
// Sibling cv.txt and cover_letter.txt files fill CVText and CoverLetter when
// the profile leaves them empty.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}

	var p Profile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("failed to parse profile JSON: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("failed to parse profile YAML: %w", err)
		}
	}

	dir := filepath.Dir(path)
	if !present(p.CVText) {
		p.CVText = readOptional(filepath.Join(dir, "cv.txt"))
	}
	if !present(p.CoverLetter) {
		p.CoverLetter = readOptional(filepath.Join(dir, "cover_letter.txt"))
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid profile %s: %w", path, err)
	}
	return &p, nil
}

func readOptional(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
