// Package scan finds GitHub issue, pull request, discussion, and user
// references inside chat lines.
package scan

import (
	"regexp"
	"strconv"
	"strings"
)

// Kind tags the syntactic class a Reference was recognized as.
type Kind int

const (
	// KindIssue is an abbreviated reference: #3, repo#3, owner/repo#3.
	KindIssue Kind = iota
	// KindURL is a literal github.com issue/pull/discussion URL.
	KindURL
	// KindUser is an @name mention.
	KindUser
)

// Reference is one recognized mention in a chat line. Text is the exact
// source substring and doubles as the throttle history key.
type Reference struct {
	Kind   Kind
	Owner  string
	Repo   string
	Number int
	Name   string
	Text   string
}

var (
	// Alternatives in priority order: URL, abbreviated issue ref, mention.
	// Groups: 1-3 URL owner/repo/number, 4-6 issue owner/repo/number, 7 user.
	refPattern = regexp.MustCompile(
		`https://github\.com/([A-Za-z0-9._-]+)/([A-Za-z0-9._-]+)/(?:issues|pull|discussions)/([0-9]+)` +
			`|(?:([a-z0-9._-]+)/)?([a-z0-9._-]+)?#([0-9]+)` +
			`|@([A-Za-z0-9_-]+)`)

	// Substitution/insertion lines for a cooperating scribe tool. The whole
	// line belongs to that tool, never to us.
	scribeLine = regexp.MustCompile(`^\s*[is](/[^/]*/[^/]*/?|\|[^|]*\|[^|]*\|?)\s*[gG]?\s*$`)
)

// Scanner extracts References from text. The zero value is ready to use.
type Scanner struct {
	// ExtraWordChars lists additional runes treated as word characters when
	// checking match boundaries. Legacy deployments differ on punctuation
	// handling, so this is tunable rather than fixed.
	ExtraWordChars string
}

// Scan returns all references in line, left to right. Backtick code spans
// are skipped wholesale, and scribe substitution lines yield nothing.
func (s *Scanner) Scan(line string) []Reference {
	if scribeLine.MatchString(line) {
		return nil
	}

	var refs []Reference
	for _, seg := range splitCodeSpans(line) {
		text := line[seg.start:seg.end]
		for _, m := range refPattern.FindAllStringSubmatchIndex(text, -1) {
			ref, ok := s.classify(line, text, seg.start, m)
			if ok {
				refs = append(refs, ref)
			}
		}
	}
	return refs
}

func (s *Scanner) classify(line, text string, off int, m []int) (Reference, bool) {
	start, end := off+m[0], off+m[1]
	if !s.boundedAt(line, start, end) {
		return Reference{}, false
	}

	src := line[start:end]
	group := func(i int) string {
		if m[2*i] < 0 {
			return ""
		}
		return text[m[2*i]:m[2*i+1]]
	}

	switch {
	case m[2] >= 0: // literal URL
		n, _ := strconv.Atoi(group(3))
		return Reference{Kind: KindURL, Owner: group(1), Repo: group(2), Number: n, Text: src}, true
	case m[12] >= 0: // abbreviated issue ref
		// A slash right before the match means an owner segment failed
		// the charset (W3C/aria#15); matching the tail would resolve
		// aria#15 against the wrong owner.
		if start > 0 && line[start-1] == '/' {
			return Reference{}, false
		}
		n, _ := strconv.Atoi(group(6))
		return Reference{Kind: KindIssue, Owner: group(4), Repo: group(5), Number: n, Text: src}, true
	default: // mention
		// An @ glued to preceding word text is almost always an email
		// address. Accept the false negatives this costs.
		if start > 0 && isEmailContext(line[start-1]) {
			return Reference{}, false
		}
		return Reference{Kind: KindUser, Name: group(7), Text: src}, true
	}
}

// boundedAt reports whether the match at [start,end) sits on token
// boundaries, so fool#3x and trailing-garbage forms do not match.
func (s *Scanner) boundedAt(line string, start, end int) bool {
	if start > 0 && s.isWordChar(line[start-1]) {
		return false
	}
	if end < len(line) && s.isWordChar(line[end]) {
		return false
	}
	return true
}

func (s *Scanner) isWordChar(c byte) bool {
	if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' {
		return true
	}
	return strings.IndexByte(s.ExtraWordChars, c) >= 0
}

func isEmailContext(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '.' || c == '_' || c == '-'
}

type span struct{ start, end int }

// splitCodeSpans returns the byte ranges of line lying outside backtick
// code spans. A delimiter run of N backticks closes on the next run of
// exactly N, per Markdown convention; an unclosed run is literal text.
func splitCodeSpans(line string) []span {
	var out []span
	pos, i := 0, 0
	for i < len(line) {
		if line[i] != '`' {
			i++
			continue
		}
		n := backtickRun(line, i)
		if j := closingRun(line, i+n, n); j >= 0 {
			if i > pos {
				out = append(out, span{pos, i})
			}
			i = j + n
			pos = i
			continue
		}
		i += n
	}
	if pos < len(line) {
		out = append(out, span{pos, len(line)})
	}
	return out
}

func backtickRun(s string, i int) int {
	j := i
	for j < len(s) && s[j] == '`' {
		j++
	}
	return j - i
}

// closingRun finds the start of the next backtick run of exactly n
// beginning at or after i, or -1.
func closingRun(s string, i, n int) int {
	for i < len(s) {
		if s[i] != '`' {
			i++
			continue
		}
		run := backtickRun(s, i)
		if run == n {
			return i
		}
		i += run
	}
	return -1
}
