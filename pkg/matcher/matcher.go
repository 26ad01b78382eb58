// Package matcher tags records with the configured keywords they
// contain and with the location the search listing attributes the
// match to.
package matcher

import "strings"

// Location tags, stored in the persisted document.
const (
	LocationTitle     = "标题"
	LocationBody      = "正文"
	LocationAttach    = "附件"
	LocationTenderDoc = "标书"
	LocationUnknown   = "未知"
)

// Display strings shown to users for each canonical tag set.
const (
	displayTitle     = "关键字在标题"
	displayBody      = "关键字在内容中"
	displayAttach    = "关键字在内容或附件中"
	displayTenderDoc = "关键字在内容或标书中"
)

type Matcher struct {
	keywords []string
}

func New(keywords []string) *Matcher {
	return &Matcher{keywords: keywords}
}

// Keywords returns the configured keyword list in order.
func (m *Matcher) Keywords() []string {
	return m.keywords
}

// Match returns the configured keywords present in text as substrings.
// The result preserves the configured order, not occurrence order.
func (m *Matcher) Match(text string) []string {
	if text == "" {
		return []string{}
	}

	matched := []string{}
	for _, keyword := range m.keywords {
		if strings.Contains(text, keyword) {
			matched = append(matched, keyword)
		}
	}

	return matched
}

// IsRelevant reports whether the title or body contains at least one
// configured keyword.
func (m *Matcher) IsRelevant(title, body string) bool {
	return len(m.Match(title+" "+body)) > 0
}

// Locate normalizes the keyword location for a record. title must be
// the display title with the trailing parenthetical already stripped;
// annotation is that parenthetical's raw text ("" when absent);
// matchedOutsideTitle tells whether the record matched keywords
// anywhere beyond the title.
//
// Keywords found directly in the title win over any annotation. With
// no title hit the annotation decides, and a bare match with no
// annotation counts as a body match. Only when nothing signals a
// location at all is the tag left unknown.
func (m *Matcher) Locate(title, annotation string, matchedOutsideTitle bool) (tags []string, display string, hasAttachments, hasTenderDocs bool) {
	if len(m.Match(title)) > 0 {
		return []string{LocationTitle}, displayTitle, false, false
	}

	switch {
	case strings.Contains(annotation, "标书"):
		return []string{LocationBody, LocationTenderDoc}, displayTenderDoc, false, true
	case strings.Contains(annotation, "附件"):
		return []string{LocationBody, LocationAttach}, displayAttach, true, false
	case strings.Contains(annotation, "在标题"):
		return []string{LocationTitle}, displayTitle, false, false
	case strings.Contains(annotation, "在内容中") || strings.Contains(annotation, "在正文中"):
		return []string{LocationBody}, displayBody, false, false
	}

	if matchedOutsideTitle {
		return []string{LocationBody}, displayBody, false, false
	}

	return []string{LocationUnknown}, "", false, false
}
