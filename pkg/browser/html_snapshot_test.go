package browser

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const applicationForm = `<html>
	<head>
		<title>Apply: Backend Engineer</title>
		<script>window.track = true;</script>
		<style>form { margin: 0 }</style>
	</head>
	<body>
		<!-- tracking pixel -->
		<form action="/apply" method="post" data-test="application">
			<label for="name">Full Name</label>
			<input id="name" name="name" type="text" data-test="name-field">
			<label>Email <input type="email" name="email" placeholder="you@example.com"></label>
			<input type="tel" name="phone" placeholder="Phone">
			<textarea name="cover" placeholder="Cover Letter"></textarea>
			<input type="file" name="resume">
			<input type="hidden" name="token" value="secret">
			<button type="button">Save draft</button>
			<button>Submit Application</button>
		</form>
	</body>
</html>`

func TestNewSnapshot(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		maxLength int
		wantTitle string
		want      []string
		wantNot   []string
		truncated bool
	}{
		{
			name:      "keeps form structure and targeting attributes",
			input:     applicationForm,
			maxLength: 10000,
			wantTitle: "Apply: Backend Engineer",
			want: []string{
				`<form action="/apply" method="post">`,
				`<label for="name">`,
				`placeholder="you@example.com"`,
				`<input type="file" name="resume">`,
				"Submit Application",
			},
			wantNot: []string{"<script>", "window.track", "<style>", "tracking pixel", "data-test", `value="secret"`},
		},
		{
			name:      "truncates long content",
			input:     "<html><body><p>" + strings.Repeat("a", 500) + "</p></body></html>",
			maxLength: 100,
			want:      []string{"..."},
			truncated: true,
		},
		{
			name:      "truncates on a rune boundary",
			input:     "<p>" + strings.Repeat("é", 50) + "</p>",
			maxLength: 31,
			want:      []string{"é..."},
			truncated: true,
		},
		{
			name:      "truncates on an entity boundary",
			input:     "<p>" + strings.Repeat("&", 50) + "</p>",
			maxLength: 60,
			want:      []string{"&amp;..."},
			wantNot:   []string{"&...", "&a...", "&am...", "&amp..."},
			truncated: true,
		},
		{
			name:      "zero length uses default cap",
			input:     "<p>short</p>",
			maxLength: 0,
			want:      []string{"short"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := NewSnapshot(tt.input, tt.maxLength)
			require.NoError(t, err)

			assert.Equal(t, tt.wantTitle, snap.Title)
			assert.Equal(t, tt.truncated, snap.Truncated)
			assert.True(t, utf8.ValidString(snap.HTML))
			for _, s := range tt.want {
				assert.Contains(t, snap.HTML, s)
			}
			for _, s := range tt.wantNot {
				assert.NotContains(t, snap.HTML, s)
			}
		})
	}
}

func TestInventoryForms(t *testing.T) {
	inv, err := InventoryForms(applicationForm)
	require.NoError(t, err)

	assert.Equal(t, "Apply: Backend Engineer", inv.Title)
	assert.Equal(t, 1, inv.Forms)
	assert.Equal(t, 3, inv.TextInputs) // name, email, phone; hidden is ignored
	assert.Equal(t, 1, inv.TextAreas)
	assert.Equal(t, 1, inv.FileInputs)
	assert.Equal(t, 1, inv.SubmitControls)
	assert.Equal(t, []string{"Full Name", "Email"}, inv.Labels)
}

func TestInventoryFormsEmptyPage(t *testing.T) {
	inv, err := InventoryForms("<html><body><p>Position closed</p></body></html>")
	require.NoError(t, err)

	assert.Zero(t, inv.Forms)
	assert.Zero(t, inv.SubmitControls)
	assert.Empty(t, inv.Labels)
}
