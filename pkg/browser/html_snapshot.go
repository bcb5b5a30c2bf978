package browser

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// Snapshot is a cleaned copy of a page's DOM kept as audit evidence.
type Snapshot struct {
	HTML      string
	Title     string
	Truncated bool
}

// FormInventory summarizes the form controls found on a page.
type FormInventory struct {
	Title          string   `json:"title,omitempty"`
	Forms          int      `json:"forms"`
	TextInputs     int      `json:"text_inputs"`
	TextAreas      int      `json:"text_areas"`
	FileInputs     int      `json:"file_inputs"`
	SubmitControls int      `json:"submit_controls"`
	Labels         []string `json:"labels,omitempty"`
}

// DefaultSnapshotLength caps the size of a DOM snapshot
const DefaultSnapshotLength = 200000

// NewSnapshot strips scripts, styles and other noise from rawHTML while
// keeping the structure and the attributes needed to see how a form was
// targeted.
func NewSnapshot(rawHTML string, maxLength int) (*Snapshot, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	if maxLength <= 0 {
		maxLength = DefaultSnapshotLength
	}

	var builder strings.Builder
	var currentLength int
	truncated := cleanNode(doc, &builder, &currentLength, maxLength, 0)

	return &Snapshot{
		HTML:      builder.String(),
		Title:     extractTitle(doc),
		Truncated: truncated,
	}, nil
}

// InventoryForms counts the fillable and submit controls in rawHTML.
func InventoryForms(rawHTML string) (*FormInventory, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	inv := &FormInventory{Title: extractTitle(doc)}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && !isSkippedElement(n.Data) {
			switch n.Data {
			case "form":
				inv.Forms++
			case "textarea":
				inv.TextAreas++
			case "label":
				if text := strings.Join(strings.Fields(textContent(n)), " "); text != "" {
					inv.Labels = append(inv.Labels, text)
				}
			case "button":
				// buttons inside a form default to type=submit
				if t := attr(n, "type"); t == "" || strings.EqualFold(t, "submit") {
					inv.SubmitControls++
				}
			case "input":
				switch strings.ToLower(attr(n, "type")) {
				case "", "text", "email", "tel", "url":
					inv.TextInputs++
				case "file":
					inv.FileInputs++
				case "submit":
					inv.SubmitControls++
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return inv, nil
}

// cleanNode recursively writes n to builder, dropping noise elements.
// It reports whether output was truncated.
func cleanNode(n *html.Node, builder *strings.Builder, currentLength *int, maxLength int, depth int) bool {
	if *currentLength >= maxLength {
		return true
	}

	switch n.Type {
	case html.CommentNode:
		return false
	case html.TextNode:
		return writeText(n, builder, currentLength, maxLength)
	case html.ElementNode:
		if isSkippedElement(strings.ToLower(n.Data)) {
			return false
		}
		return writeElement(n, builder, currentLength, maxLength, depth)
	}

	return writeChildren(n, builder, currentLength, maxLength, depth)
}

func writeText(n *html.Node, builder *strings.Builder, currentLength *int, maxLength int) bool {
	raw := strings.TrimSpace(n.Data)
	if raw == "" {
		return false
	}
	text := html.EscapeString(raw)

	if *currentLength+len(text) > maxLength {
		remaining := maxLength - *currentLength
		builder.WriteString(truncateEscaped(raw, remaining) + "...")
		*currentLength = maxLength
		return true
	}

	builder.WriteString(text)
	*currentLength += len(text)
	return false
}

// truncateEscaped escapes raw and keeps at most limit bytes of the result
// without splitting a rune or an entity.
func truncateEscaped(raw string, limit int) string {
	var b strings.Builder
	for _, r := range raw {
		part := html.EscapeString(string(r))
		if b.Len()+len(part) > limit {
			break
		}
		b.WriteString(part)
	}
	return b.String()
}

func writeElement(n *html.Node, builder *strings.Builder, currentLength *int, maxLength int, depth int) bool {
	tagName := strings.ToLower(n.Data)

	if depth > 0 && isBlockElement(tagName) {
		builder.WriteString("\n")
		builder.WriteString(strings.Repeat("  ", depth))
	}

	builder.WriteString("<")
	builder.WriteString(tagName)
	for _, a := range n.Attr {
		if shouldPreserveAttribute(tagName, a.Key) {
			fmt.Fprintf(builder, ` %s="%s"`, a.Key, html.EscapeString(a.Val))
		}
	}
	builder.WriteString(">")
	*currentLength += len(tagName) + 2

	truncated := writeChildren(n, builder, currentLength, maxLength, depth+1)

	if !isVoidElement(tagName) {
		if isBlockElement(tagName) {
			builder.WriteString("\n")
			builder.WriteString(strings.Repeat("  ", depth))
		}
		builder.WriteString("</")
		builder.WriteString(tagName)
		builder.WriteString(">")
		*currentLength += len(tagName) + 3
	}

	return truncated
}

func writeChildren(n *html.Node, builder *strings.Builder, currentLength *int, maxLength int, depth int) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if cleanNode(c, builder, currentLength, maxLength, depth) {
			return true
		}
	}
	return false
}

var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"iframe":   true,
	"embed":    true,
	"object":   true,
	"svg":      true,
}

func isSkippedElement(tagName string) bool {
	return skippedElements[tagName]
}

var blockElements = map[string]bool{
	"div": true, "p": true, "section": true, "article": true, "header": true,
	"footer": true, "nav": true, "main": true, "aside": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"ul": true, "ol": true, "li": true, "table": true, "tr": true, "td": true, "th": true,
	"form": true, "fieldset": true, "label": true,
}

func isBlockElement(tagName string) bool {
	return blockElements[tagName]
}

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true, "hr": true,
	"img": true, "input": true, "link": true, "meta": true, "param": true,
	"source": true, "track": true, "wbr": true,
}

func isVoidElement(tagName string) bool {
	return voidElements[tagName]
}

// shouldPreserveAttribute keeps the attributes form heuristics match on
func shouldPreserveAttribute(tagName, attrName string) bool {
	attrName = strings.ToLower(attrName)

	switch attrName {
	case "id", "class", "role", "aria-label", "aria-labelledby", "aria-describedby":
		return true
	}

	switch tagName {
	case "a":
		return attrName == "href"
	case "input", "textarea", "select":
		return attrName == "name" || attrName == "type" || attrName == "placeholder"
	case "button":
		return attrName == "type" || attrName == "name"
	case "label":
		return attrName == "for"
	case "form":
		return attrName == "action" || attrName == "method"
	}
	return false
}

func extractTitle(doc *html.Node) string {
	var title string
	var traverse func(*html.Node) bool
	traverse = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "title" {
			title = strings.TrimSpace(textContent(n))
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if traverse(c) {
				return true
			}
		}
		return false
	}
	traverse(doc)
	return title
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && isSkippedElement(c.Data) {
			continue
		}
		sb.WriteString(textContent(c))
	}
	return sb.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
