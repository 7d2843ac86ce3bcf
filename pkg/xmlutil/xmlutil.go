// Package xmlutil builds the XML-delimited sections of briefing prompts.
// Names and labels come from imported facility data and are never trusted.
package xmlutil

import (
	"encoding/xml"
	"strings"
)

// Escape makes s safe to place between prompt tags. Invalid UTF-8 is
// replaced with U+FFFD so the result is always escaped.
func Escape(s string) string {
	var buf strings.Builder
	_ = xml.EscapeText(&buf, []byte(strings.ToValidUTF8(s, "\uFFFD")))
	return buf.String()
}

// Element wraps escaped content in a tag pair on one line.
func Element(tag, content string) string {
	return "<" + tag + ">" + Escape(content) + "</" + tag + ">"
}
