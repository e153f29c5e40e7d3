// Package repos tracks the per-channel repository list and resolves
// abbreviated references against it.
package repos

import (
	"fmt"
	"strings"
)

// Repo is one tracked repository.
type Repo struct {
	Owner string
	Name  string
}

// FullName returns "owner/name".
func (r Repo) FullName() string { return r.Owner + "/" + r.Name }

// URL returns the repository's github.com URL.
func (r Repo) URL() string { return "https://github.com/" + r.FullName() }

// Parse splits "owner/name" or a github.com URL into a Repo. A bare name
// yields a Repo with an empty Owner.
func Parse(s string) Repo {
	s = strings.TrimSuffix(strings.TrimPrefix(s, "https://github.com/"), "/")
	if i := strings.LastIndex(s, "/"); i >= 0 {
		return Repo{Owner: s[:i], Name: s[i+1:]}
	}
	return Repo{Name: s}
}

// List is an ordered repository list, most recently used first, with no
// duplicates.
type List struct {
	repos []Repo
}

// NewList builds a List from full names, preserving order.
func NewList(fullNames ...string) *List {
	l := &List{}
	for i := len(fullNames) - 1; i >= 0; i-- {
		l.Prepend(Parse(fullNames[i]))
	}
	return l
}

// Len reports how many repositories are tracked.
func (l *List) Len() int { return len(l.repos) }

// Front returns the most recently used repository.
func (l *List) Front() (Repo, bool) {
	if len(l.repos) == 0 {
		return Repo{}, false
	}
	return l.repos[0], true
}

// All returns the tracked repositories in MRU order.
func (l *List) All() []Repo {
	out := make([]Repo, len(l.repos))
	copy(out, l.repos)
	return out
}

// FullNames returns "owner/name" strings in MRU order.
func (l *List) FullNames() []string {
	out := make([]string, 0, len(l.repos))
	for _, r := range l.repos {
		out = append(out, r.FullName())
	}
	return out
}

// Prepend puts r at the front, removing any existing entry for the same
// repository first. Re-adding therefore moves to front.
func (l *List) Prepend(r Repo) {
	l.removeExact(r)
	l.repos = append([]Repo{r}, l.repos...)
}

func (l *List) removeExact(r Repo) {
	for i, have := range l.repos {
		if strings.EqualFold(have.Owner, r.Owner) && strings.EqualFold(have.Name, r.Name) {
			l.repos = append(l.repos[:i], l.repos[i+1:]...)
			return
		}
	}
}

// RemoveNamed drops every entry whose name component equals name
// (case-insensitive) and reports whether anything was removed.
func (l *List) RemoveNamed(name string) bool {
	name = strings.TrimPrefix(name, "https://github.com/")
	target := Parse(name)
	removed := false
	kept := l.repos[:0]
	for _, have := range l.repos {
		match := strings.EqualFold(have.Name, target.Name) &&
			(target.Owner == "" || strings.EqualFold(have.Owner, target.Owner))
		if match {
			removed = true
			continue
		}
		kept = append(kept, have)
	}
	l.repos = kept
	return removed
}

// ErrNoRepository is returned when no owner can be inferred for a prefix.
var ErrNoRepository = fmt.Errorf("no repository to infer an owner from")

// Resolve maps an abbreviated reference prefix to a concrete repository.
//
// An empty prefix means the most recently used repository. A bare name is
// matched against tracked names, exact before prefix, in MRU order; exact
// first so a name that happens to prefix another stays reachable. An
// owner/name form is taken literally. A bare name with no match borrows
// the MRU repository's owner.
func (l *List) Resolve(prefix string) (Repo, error) {
	if prefix == "" {
		r, ok := l.Front()
		if !ok {
			return Repo{}, ErrNoRepository
		}
		return r, nil
	}

	if !strings.Contains(prefix, "/") {
		for _, r := range l.repos {
			if strings.EqualFold(r.Name, prefix) {
				return r, nil
			}
		}
		lower := strings.ToLower(prefix)
		for _, r := range l.repos {
			if strings.HasPrefix(strings.ToLower(r.Name), lower) {
				return r, nil
			}
		}
		if front, ok := l.Front(); ok {
			return Repo{Owner: front.Owner, Name: prefix}, nil
		}
		return Repo{}, ErrNoRepository
	}

	return Parse(prefix), nil
}

// AddText splits text on commas and whitespace and prepends each token,
// resolving bare names through the same owner-inference rules. It returns
// the repositories added and an error naming the first token whose owner
// could not be inferred.
func (l *List) AddText(text string) ([]Repo, error) {
	var added []Repo
	for _, tok := range splitTokens(text) {
		r := Parse(tok)
		if r.Owner == "" {
			if front, ok := l.Front(); ok {
				r.Owner = front.Owner
			} else {
				return added, fmt.Errorf("%q: %w", tok, ErrNoRepository)
			}
		}
		l.Prepend(r)
		added = append(added, r)
	}
	return added, nil
}

// RemoveText splits text like AddText and removes each named repository.
// It reports, per token, whether the token matched anything.
func (l *List) RemoveText(text string) (removed, missing []string) {
	for _, tok := range splitTokens(text) {
		if l.RemoveNamed(tok) {
			removed = append(removed, tok)
		} else {
			missing = append(missing, tok)
		}
	}
	return removed, missing
}

func splitTokens(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
}
