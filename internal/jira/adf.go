package jira

import (
	"encoding/json"
	"strings"
)

// adfDocFromText wraps plain text in a minimal Atlassian Document Format document,
// one paragraph per line. API v3 rejects plain strings for rich-text fields.
func adfDocFromText(text string) map[string]any {
	var content []any
	for _, line := range strings.Split(text, "\n") {
		para := map[string]any{"type": "paragraph"}
		if line != "" {
			para["content"] = []any{map[string]any{"type": "text", "text": line}}
		}
		content = append(content, para)
	}
	return map[string]any{
		"type":    "doc",
		"version": 1,
		"content": content,
	}
}

// adfNode is the subset of an ADF node needed to flatten it back to text.
type adfNode struct {
	Type    string    `json:"type"`
	Text    string    `json:"text"`
	Content []adfNode `json:"content"`
	Attrs   struct {
		Text string `json:"text"` // mentions
	} `json:"attrs"`
}

// richText returns a rich-text field as plain text. v2 sends strings; v3 sends ADF.
func richText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var doc adfNode
	if err := json.Unmarshal(raw, &doc); err != nil {
		return ""
	}
	var sb strings.Builder
	flattenADF(&sb, doc)
	return strings.TrimRight(sb.String(), "\n")
}

func flattenADF(sb *strings.Builder, n adfNode) {
	switch n.Type {
	case "text":
		sb.WriteString(n.Text)
	case "mention":
		sb.WriteString(n.Attrs.Text)
	case "hardBreak":
		sb.WriteString("\n")
	}
	for _, c := range n.Content {
		flattenADF(sb, c)
	}
	switch n.Type {
	case "paragraph", "heading", "codeBlock":
		sb.WriteString("\n")
	}
}
