// Package adf converts Atlassian Document Format JSON trees into plain
// Markdown or HTML text. It is the concrete function the rest of the
// system injects into the Renderer Adapter; nothing outside this
// package and its caller in cmd/local-jira knows the conversion exists.
package adf

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/s-d-m/local-jira/internal/model"
)

// node is the generic shape of one ADF tree node: a type tag, optional
// text content, optional marks (bold/italic/code/link), and children.
type node struct {
	Type    string          `json:"type"`
	Text    string          `json:"text"`
	Content []node          `json:"content"`
	Marks   []mark          `json:"marks"`
	Attrs   json.RawMessage `json:"attrs"`
}

type mark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs"`
}

// Render converts doc into format. An empty document renders as an
// empty string rather than an error, since a missing rich-text body is
// common (e.g. a field that was never set); a document that is not
// valid JSON is reported as an error.
func Render(doc json.RawMessage, format model.Format) (string, error) {
	if len(doc) == 0 {
		return "", nil
	}
	var root node
	if err := json.Unmarshal(doc, &root); err != nil {
		return "", fmt.Errorf("parsing ADF document: %w", err)
	}

	var b strings.Builder
	switch format {
	case model.FormatHTML:
		renderHTML(&b, root)
	default:
		renderMarkdown(&b, root)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func renderMarkdown(b *strings.Builder, n node) {
	switch n.Type {
	case "text":
		b.WriteString(applyMarkdownMarks(n.Text, n.Marks))
	case "paragraph":
		renderChildrenMarkdown(b, n.Content)
		b.WriteString("\n\n")
	case "heading":
		b.WriteString(strings.Repeat("#", headingLevel(n.Attrs)) + " ")
		renderChildrenMarkdown(b, n.Content)
		b.WriteString("\n\n")
	case "bulletList":
		for _, item := range n.Content {
			b.WriteString("- ")
			renderChildrenMarkdown(b, item.Content)
		}
	case "orderedList":
		for i, item := range n.Content {
			fmt.Fprintf(b, "%d. ", i+1)
			renderChildrenMarkdown(b, item.Content)
		}
	case "codeBlock":
		b.WriteString("```\n")
		renderChildrenMarkdown(b, n.Content)
		b.WriteString("\n```\n\n")
	case "hardBreak":
		b.WriteString("\n")
	case "mention":
		b.WriteString("@" + mentionText(n.Attrs))
	default:
		renderChildrenMarkdown(b, n.Content)
	}
}

func renderChildrenMarkdown(b *strings.Builder, children []node) {
	for _, c := range children {
		renderMarkdown(b, c)
	}
}

func applyMarkdownMarks(text string, marks []mark) string {
	for _, m := range marks {
		switch m.Type {
		case "strong":
			text = "**" + text + "**"
		case "em":
			text = "_" + text + "_"
		case "code":
			text = "`" + text + "`"
		case "link":
			if href, ok := m.Attrs["href"].(string); ok {
				text = fmt.Sprintf("[%s](%s)", text, href)
			}
		}
	}
	return text
}

func renderHTML(b *strings.Builder, n node) {
	switch n.Type {
	case "text":
		b.WriteString(applyHTMLMarks(htmlEscape(n.Text), n.Marks))
	case "paragraph":
		b.WriteString("<p>")
		renderChildrenHTML(b, n.Content)
		b.WriteString("</p>")
	case "heading":
		tag := fmt.Sprintf("h%d", headingLevel(n.Attrs))
		b.WriteString("<" + tag + ">")
		renderChildrenHTML(b, n.Content)
		b.WriteString("</" + tag + ">")
	case "bulletList":
		b.WriteString("<ul>")
		for _, item := range n.Content {
			b.WriteString("<li>")
			renderChildrenHTML(b, item.Content)
			b.WriteString("</li>")
		}
		b.WriteString("</ul>")
	case "orderedList":
		b.WriteString("<ol>")
		for _, item := range n.Content {
			b.WriteString("<li>")
			renderChildrenHTML(b, item.Content)
			b.WriteString("</li>")
		}
		b.WriteString("</ol>")
	case "codeBlock":
		b.WriteString("<pre><code>")
		renderChildrenHTML(b, n.Content)
		b.WriteString("</code></pre>")
	case "hardBreak":
		b.WriteString("<br/>")
	case "mention":
		b.WriteString("@" + htmlEscape(mentionText(n.Attrs)))
	default:
		renderChildrenHTML(b, n.Content)
	}
}

func renderChildrenHTML(b *strings.Builder, children []node) {
	for _, c := range children {
		renderHTML(b, c)
	}
}

func applyHTMLMarks(text string, marks []mark) string {
	for _, m := range marks {
		switch m.Type {
		case "strong":
			text = "<strong>" + text + "</strong>"
		case "em":
			text = "<em>" + text + "</em>"
		case "code":
			text = "<code>" + text + "</code>"
		case "link":
			if href, ok := m.Attrs["href"].(string); ok {
				text = fmt.Sprintf(`<a href="%s">%s</a>`, htmlEscape(href), text)
			}
		}
	}
	return text
}

func htmlEscape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return r.Replace(s)
}

func headingLevel(attrs json.RawMessage) int {
	var a struct {
		Level int `json:"level"`
	}
	if err := json.Unmarshal(attrs, &a); err != nil || a.Level < 1 || a.Level > 6 {
		return 3
	}
	return a.Level
}

func mentionText(attrs json.RawMessage) string {
	var a struct {
		Text string `json:"text"`
		ID   string `json:"id"`
	}
	if err := json.Unmarshal(attrs, &a); err != nil {
		return ""
	}
	if a.Text != "" {
		return strings.TrimPrefix(a.Text, "@")
	}
	return a.ID
}
