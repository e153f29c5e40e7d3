// Package state holds the per-channel configuration and expansion history,
// plus the durable store that persists it across restarts.
package state

import (
	"sort"
	"strings"

	"issuebot/internal/repos"
)

const (
	// DefaultDelay is the minimum number of chat lines between repeated
	// expansions of the same reference.
	DefaultDelay = 15
	// DefaultMaxFullLines caps full-description listings per request.
	DefaultMaxFullLines = 10
	// MaxFullLinesCeiling is the hard upper bound on that cap.
	MaxFullLinesCeiling = 100
)

// RefClass separates issue-style references from name mentions, which have
// independent suspend flags.
type RefClass int

const (
	ClassIssue RefClass = iota
	ClassName
)

// Channel is the bot's state for one IRC channel. It is owned by the event
// loop and must not be shared across goroutines.
type Channel struct {
	Name            string
	Repos           *repos.List
	DelayLines      int
	MaxFullLines    int
	IssuesSuspended bool
	NamesSuspended  bool

	ignoredNicks map[string]bool
	lineNumber   int
	history      map[string]int
}

// NewChannel returns a Channel with default settings and an empty
// repository list.
func NewChannel(name string) *Channel {
	return &Channel{
		Name:         name,
		Repos:        repos.NewList(),
		DelayLines:   DefaultDelay,
		MaxFullLines: DefaultMaxFullLines,
		ignoredNicks: make(map[string]bool),
		history:      make(map[string]int),
	}
}

// BumpLine advances the channel's logical clock. Call once per chat line.
func (c *Channel) BumpLine() { c.lineNumber++ }

// LineNumber returns the current logical clock value.
func (c *Channel) LineNumber() int { return c.lineNumber }

// ShouldExpand decides whether a reference may be expanded now. Direct
// address always wins; passive scanning respects the class's suspend flag
// and the delay window. A true result records the expansion.
func (c *Channel) ShouldExpand(key string, class RefClass, addressed bool) bool {
	if !addressed {
		if class == ClassIssue && c.IssuesSuspended {
			return false
		}
		if class == ClassName && c.NamesSuspended {
			return false
		}
		last, seen := c.history[key]
		if !seen {
			last = -c.DelayLines
		}
		if c.lineNumber-last <= c.DelayLines {
			return false
		}
	}
	c.history[key] = c.lineNumber
	return true
}

// ClearHistory forgets all expansion history. Called whenever the
// repository list changes, since old keys may now resolve differently.
func (c *Channel) ClearHistory() { c.history = make(map[string]int) }

// SetDelay sets the throttle window, clamping negatives to zero.
func (c *Channel) SetDelay(n int) {
	if n < 0 {
		n = 0
	}
	c.DelayLines = n
}

// SetMaxFullLines sets the listing cap, clamped to the hard ceiling.
func (c *Channel) SetMaxFullLines(n int) {
	if n < 1 {
		n = 1
	}
	if n > MaxFullLinesCeiling {
		n = MaxFullLinesCeiling
	}
	c.MaxFullLines = n
}

// Ignore adds nick to the ignore list.
func (c *Channel) Ignore(nick string) { c.ignoredNicks[strings.ToLower(nick)] = true }

// Unignore removes nick from the ignore list and reports whether it was
// present.
func (c *Channel) Unignore(nick string) bool {
	key := strings.ToLower(nick)
	if !c.ignoredNicks[key] {
		return false
	}
	delete(c.ignoredNicks, key)
	return true
}

// IsIgnored reports whether nick is on the ignore list.
func (c *Channel) IsIgnored(nick string) bool { return c.ignoredNicks[strings.ToLower(nick)] }

// IgnoredNicks returns the ignore list, sorted for stable output.
func (c *Channel) IgnoredNicks() []string {
	out := make([]string, 0, len(c.ignoredNicks))
	for n := range c.ignoredNicks {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Aliases maps case-folded IRC nicks to GitHub logins. Process-wide.
type Aliases struct {
	m map[string]string
}

// NewAliases returns an empty alias table.
func NewAliases() *Aliases { return &Aliases{m: make(map[string]string)} }

// Set records nick as an alias for the given GitHub login.
func (a *Aliases) Set(nick, login string) { a.m[strings.ToLower(nick)] = login }

// Lookup resolves nick to a GitHub login if an alias exists.
func (a *Aliases) Lookup(nick string) (string, bool) {
	login, ok := a.m[strings.ToLower(nick)]
	return login, ok
}

// Resolve returns the login for nick, or nick itself when no alias exists.
func (a *Aliases) Resolve(nick string) string {
	if login, ok := a.Lookup(nick); ok {
		return login
	}
	return nick
}

// Snapshot returns a copy of the table for persistence.
func (a *Aliases) Snapshot() map[string]string {
	out := make(map[string]string, len(a.m))
	for k, v := range a.m {
		out[k] = v
	}
	return out
}
