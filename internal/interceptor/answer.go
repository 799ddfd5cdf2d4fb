package interceptor

import (
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/remowork/soundswap/internal/page"
)

// Default answer-click match lists. They follow the host page's current
// markup and are a best-effort heuristic; both can be overridden.
var (
	DefaultAnswerTexts   = []string{"answer", "accept", "応答", "通話に出る", "出る", "応答する"}
	DefaultAnswerClasses = []string{"answer", "accept", "pickup"}
)

const (
	// maxAnswerTextRunes skips containers whose text is a whole panel.
	maxAnswerTextRunes = 32
	// maxAnswerDepth bounds the ancestor walk from the clicked element.
	maxAnswerDepth = 5
)

// AnswerMatcher recognizes clicks on the host page's call-answer controls.
type AnswerMatcher struct {
	texts   []string
	classes []string
}

// NewAnswerMatcher builds a matcher. Empty lists fall back to the defaults.
func NewAnswerMatcher(texts, classes []string) *AnswerMatcher {
	if len(texts) == 0 {
		texts = DefaultAnswerTexts
	}
	if len(classes) == 0 {
		classes = DefaultAnswerClasses
	}

	m := &AnswerMatcher{}
	for _, t := range texts {
		if n := normalize(t); n != "" {
			m.texts = append(m.texts, n)
		}
	}
	for _, c := range classes {
		if n := normalize(c); n != "" {
			m.classes = append(m.classes, n)
		}
	}
	return m
}

// Match reports whether el or one of its close ancestors looks like an
// answer control.
func (m *AnswerMatcher) Match(el *page.Element) bool {
	for depth := 0; el != nil && depth < maxAnswerDepth; depth++ {
		if m.matchClasses(el.Classes) || m.matchText(el.TextContent()) {
			return true
		}
		el = el.Parent()
	}
	return false
}

func (m *AnswerMatcher) matchText(text string) bool {
	text = normalize(text)
	if text == "" || utf8.RuneCountInString(text) > maxAnswerTextRunes {
		return false
	}

	words := strings.Fields(text)
	for _, term := range m.texts {
		if text == term || slices.Contains(words, term) {
			return true
		}
		// Scripts without word spacing match by substring.
		if !isASCII(term) && strings.Contains(text, term) {
			return true
		}
	}
	return false
}

func (m *AnswerMatcher) matchClasses(classes []string) bool {
	for _, class := range classes {
		class = normalize(class)
		tokens := strings.FieldsFunc(class, func(r rune) bool { return r == '-' || r == '_' })
		for _, term := range m.classes {
			if class == term || slices.Contains(tokens, term) {
				return true
			}
		}
	}
	return false
}

var folder = cases.Fold()

// normalize applies NFKC, case folding and whitespace collapsing.
func normalize(s string) string {
	s = folder.String(norm.NFKC.String(s))
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
