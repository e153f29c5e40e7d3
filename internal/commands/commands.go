// Package commands parses chat lines against the bot's command grammar.
//
// Parsing is an ordered table of matchers, tried first to last; the first
// match wins. Matchers are pure text recognition: gating on suspend
// flags, ignore lists, and credentials happens in the handlers, which
// have the channel state.
package commands

import (
	"regexp"
	"strconv"
	"strings"
)

// Command is a parsed chat command, one concrete variant per kind.
type Command interface{ isCommand() }

// IssueTarget identifies the issue a command operates on: a full
// owner/repo/number from a URL, or a number with an optional repository
// prefix still to be resolved against the channel's list.
type IssueTarget struct {
	Owner  string // set for URL form
	Repo   string // set for URL form
	Prefix string // abbreviated form: "", "repo", or "owner/repo"
	Number int
}

// Resolved reports whether the target needs no repository resolution.
func (t IssueTarget) Resolved() bool { return t.Owner != "" }

type (
	// Bye asks the bot to leave the channel.
	Bye struct{}
	// AddRepos starts tracking repositories.
	AddRepos struct{ Text string }
	// RemoveRepos stops tracking repositories.
	RemoveRepos struct{ Text string }
	// ClearRepos empties the channel's repository list.
	ClearRepos struct{}
	// SetDelay sets the expansion throttle window.
	SetDelay struct{ Lines int }
	// SetMaxLines sets the full-listing cap.
	SetMaxLines struct{ Lines int }
	// Status asks for the channel's settings.
	Status struct{}
	// Help asks for usage.
	Help struct{}
	// Suspend toggles expansion. Class is "all", "issues", or "names".
	Suspend struct {
		Class     string
		Suspended bool
	}
	// CreateIssue opens a new issue on the channel's default repository.
	CreateIssue struct{ Title string }
	// CloseIssue closes an issue.
	CloseIssue struct{ Target IssueTarget }
	// ReopenIssue reopens an issue.
	ReopenIssue struct{ Target IssueTarget }
	// CommentIssue adds a comment to an issue.
	CommentIssue struct {
		Target IssueTarget
		Body   string
	}
	// CreateAction opens an action-labelled issue with assignees and an
	// optional free-form due clause still attached to Text.
	CreateAction struct {
		Assignees []string
		Text      string
	}
	// Account asks which GitHub login a nick maps to. Empty Nick means
	// the sender.
	Account struct{ Nick string }
	// SetIgnore adds or removes a nick on the ignore list.
	SetIgnore struct {
		Nick    string
		Ignored bool
	}
	// DefineAlias maps an IRC nick to a GitHub login.
	DefineAlias struct{ Nick, Login string }
	// Search lists issues with optional modifiers.
	Search struct {
		Scope    string // "open" (default), "closed", "all"
		Actions  bool   // restrict to action-labelled issues
		Labels   []string
		Creator  string
		Assignee string // may be "me"/"my", resolved by the handler
		Repo     string // repository prefix, "" means default
		Verbose  bool
	}
	// NextPage continues the previous search.
	NextPage struct{}
)

func (Bye) isCommand()          {}
func (AddRepos) isCommand()     {}
func (RemoveRepos) isCommand()  {}
func (ClearRepos) isCommand()   {}
func (SetDelay) isCommand()     {}
func (SetMaxLines) isCommand()  {}
func (Status) isCommand()       {}
func (Help) isCommand()         {}
func (Suspend) isCommand()      {}
func (CreateIssue) isCommand()  {}
func (CloseIssue) isCommand()   {}
func (ReopenIssue) isCommand()  {}
func (CommentIssue) isCommand() {}
func (CreateAction) isCommand() {}
func (Account) isCommand()      {}
func (SetIgnore) isCommand()    {}
func (DefineAlias) isCommand()  {}
func (Search) isCommand()       {}
func (NextPage) isCommand()     {}

// target matches a literal issue/pull URL or an abbreviated reference.
// Groups: 1-3 URL owner/repo/number, 4-5 abbreviated prefix/number.
const targetPat = `(?:https://github\.com/([A-Za-z0-9._-]+)/([A-Za-z0-9._-]+)/(?:issues|pull)/([0-9]+)|((?:[a-z0-9._-]+/)?[a-z0-9._-]*)#([0-9]+))`

var (
	byeRe      = regexp.MustCompile(`(?i)^bye\s*[.!]?$`)
	addRe      = regexp.MustCompile(`(?i)^(?:discussing|use|using|take\s+up|this\s+is)\s+(.+)$`)
	addAmbRe   = regexp.MustCompile(`(?i)^repo:\s*(\S.*)$`)
	removeRe   = regexp.MustCompile(`(?i)^(?:forget|drop|remove|don'?t\s+use)\s+(.+)$`)
	remAmbRe   = regexp.MustCompile(`(?i)^repo-\s*(\S.*)$`)
	clearRe    = regexp.MustCompile(`(?i)^repo:\s*$`)
	delayRe    = regexp.MustCompile(`(?i)^(?:set\s+)?delay\s*[=:]?\s*([0-9]+)\s*$`)
	maxLinesRe = regexp.MustCompile(`(?i)^(?:set\s+)?max\s*lines\s*[=:]?\s*([0-9]+)\s*$`)
	statusRe   = regexp.MustCompile(`(?i)^status\s*\??$`)
	helpRe     = regexp.MustCompile(`(?i)^help\s*[.!?]?$`)
	suspendRe  = regexp.MustCompile(`(?i)^(?:suspend|stop)(?:\s+(issues|names))?\s*[.!]?$`)
	resumeRe   = regexp.MustCompile(`(?i)^(?:resume|start)(?:\s+(issues|names))?\s*[.!]?$`)
	toggleRe   = regexp.MustCompile(`(?i)^(issues|names)\s+(on|off)\s*[.!]?$`)
	issueRe    = regexp.MustCompile(`(?i)^issue\s*:\s*(\S.*)$`)

	closeRe   = regexp.MustCompile(`(?i)^close\s+` + targetPat + `\s*[.!]?$`)
	closedRe  = regexp.MustCompile(`(?i)^` + targetPat + `\s+(?:is\s+)?closed\s*[.!]?$`)
	reopenRe  = regexp.MustCompile(`(?i)^reopen\s+` + targetPat + `\s*[.!]?$`)
	reopenedR = regexp.MustCompile(`(?i)^` + targetPat + `\s+(?:is\s+)?reopened\s*[.!]?$`)

	commentRe  = regexp.MustCompile(`(?i)^(?:comment|note)\s+(?:on\s+)?` + targetPat + `\s*[:,]?\s+(\S.*)$`)
	commentPfR = regexp.MustCompile(`(?i)^` + targetPat + `\s+(?:comment|note)\s*[:,]?\s+(\S.*)$`)

	actionRe    = regexp.MustCompile(`(?i)^action\s+([^:]+?)\s*:\s*(\S.*)$`)
	actionToRe  = regexp.MustCompile(`(?i)^action\s*:\s*(.+?)\s+to\s+(\S.*)$`)
	accountRe   = regexp.MustCompile(`(?i)^(?:github\s+)?account(?:\s+@?([\w-]+))?\s*\??$`)
	ignoreRe    = regexp.MustCompile(`(?i)^ignore\s+(\S+)\s*[.!]?$`)
	unignoreRe  = regexp.MustCompile(`(?i)^(?:unignore|don'?t\s+ignore)\s+(\S+)\s*[.!]?$`)
	aliasIsRe   = regexp.MustCompile(`(?i)^([\w-]+)\s+is\s+@?([\w-]+)\s*[.!]?$`)
	aliasEqRe   = regexp.MustCompile(`(?i)^([\w-]+)\s*=\s*@?([\w-]+)\s*[.!]?$`)
	searchRe    = regexp.MustCompile(`(?i)^(?:list|search|find|look\s+up)\b\s*(.*)$`)
	nextRe      = regexp.MustCompile(`(?i)^(?:next|more)\s*[.!]?$`)
	assigneeSep = regexp.MustCompile(`(?i)\s*,\s*|\s+and\s+`)
)

type matcher func(line string, addressed bool) (Command, bool)

// Matchers in priority order. Earlier entries win.
var matchers = []matcher{
	matchBye,
	matchAddRepos,
	matchRemoveRepos,
	matchClearRepos,
	matchSettings,
	matchCreateIssue,
	matchCloseReopen,
	matchComment,
	matchAction,
	matchAccountIgnoreAlias,
	matchSearch,
	matchNext,
}

// Parse matches line against the command grammar. A false result means
// the line is plain chat and falls through to reference expansion.
func Parse(line string, addressed bool) (Command, bool) {
	line = strings.TrimSpace(line)
	for _, m := range matchers {
		if cmd, ok := m(line, addressed); ok {
			return cmd, true
		}
	}
	return nil, false
}

func matchBye(line string, addressed bool) (Command, bool) {
	if addressed && byeRe.MatchString(line) {
		return Bye{}, true
	}
	return nil, false
}

func matchAddRepos(line string, addressed bool) (Command, bool) {
	if addressed {
		if m := addRe.FindStringSubmatch(line); m != nil {
			return AddRepos{Text: m[1]}, true
		}
	}
	if m := addAmbRe.FindStringSubmatch(line); m != nil {
		return AddRepos{Text: m[1]}, true
	}
	return nil, false
}

func matchRemoveRepos(line string, addressed bool) (Command, bool) {
	if addressed {
		if m := removeRe.FindStringSubmatch(line); m != nil {
			return RemoveRepos{Text: m[1]}, true
		}
	}
	if m := remAmbRe.FindStringSubmatch(line); m != nil {
		return RemoveRepos{Text: m[1]}, true
	}
	return nil, false
}

func matchClearRepos(line string, _ bool) (Command, bool) {
	if clearRe.MatchString(line) {
		return ClearRepos{}, true
	}
	return nil, false
}

func matchSettings(line string, addressed bool) (Command, bool) {
	if !addressed {
		return nil, false
	}
	if m := delayRe.FindStringSubmatch(line); m != nil {
		n, _ := strconv.Atoi(m[1])
		return SetDelay{Lines: n}, true
	}
	if m := maxLinesRe.FindStringSubmatch(line); m != nil {
		n, _ := strconv.Atoi(m[1])
		return SetMaxLines{Lines: n}, true
	}
	if statusRe.MatchString(line) {
		return Status{}, true
	}
	if helpRe.MatchString(line) {
		return Help{}, true
	}
	if m := suspendRe.FindStringSubmatch(line); m != nil {
		return Suspend{Class: classOrAll(m[1]), Suspended: true}, true
	}
	if m := resumeRe.FindStringSubmatch(line); m != nil {
		return Suspend{Class: classOrAll(m[1]), Suspended: false}, true
	}
	if m := toggleRe.FindStringSubmatch(line); m != nil {
		return Suspend{Class: strings.ToLower(m[1]), Suspended: strings.EqualFold(m[2], "off")}, true
	}
	return nil, false
}

func classOrAll(s string) string {
	if s == "" {
		return "all"
	}
	return strings.ToLower(s)
}

func matchCreateIssue(line string, _ bool) (Command, bool) {
	if m := issueRe.FindStringSubmatch(line); m != nil {
		return CreateIssue{Title: strings.TrimSpace(m[1])}, true
	}
	return nil, false
}

func matchCloseReopen(line string, _ bool) (Command, bool) {
	if m := closeRe.FindStringSubmatch(line); m != nil {
		return CloseIssue{Target: targetFrom(m, 1)}, true
	}
	if m := closedRe.FindStringSubmatch(line); m != nil {
		return CloseIssue{Target: targetFrom(m, 1)}, true
	}
	if m := reopenRe.FindStringSubmatch(line); m != nil {
		return ReopenIssue{Target: targetFrom(m, 1)}, true
	}
	if m := reopenedR.FindStringSubmatch(line); m != nil {
		return ReopenIssue{Target: targetFrom(m, 1)}, true
	}
	return nil, false
}

func matchComment(line string, _ bool) (Command, bool) {
	if m := commentRe.FindStringSubmatch(line); m != nil {
		return CommentIssue{Target: targetFrom(m, 1), Body: strings.TrimSpace(m[6])}, true
	}
	if m := commentPfR.FindStringSubmatch(line); m != nil {
		return CommentIssue{Target: targetFrom(m, 1), Body: strings.TrimSpace(m[6])}, true
	}
	return nil, false
}

func matchAction(line string, _ bool) (Command, bool) {
	if m := actionRe.FindStringSubmatch(line); m != nil {
		return CreateAction{Assignees: splitAssignees(m[1]), Text: strings.TrimSpace(m[2])}, true
	}
	if m := actionToRe.FindStringSubmatch(line); m != nil {
		return CreateAction{Assignees: splitAssignees(m[1]), Text: strings.TrimSpace(m[2])}, true
	}
	return nil, false
}

func splitAssignees(s string) []string {
	var out []string
	for _, name := range assigneeSep.Split(strings.TrimSpace(s), -1) {
		name = strings.TrimPrefix(strings.TrimSpace(name), "@")
		if name != "" {
			out = append(out, name)
		}
	}
	return out
}

func matchAccountIgnoreAlias(line string, addressed bool) (Command, bool) {
	if !addressed {
		return nil, false
	}
	if m := accountRe.FindStringSubmatch(line); m != nil {
		return Account{Nick: m[1]}, true
	}
	if m := ignoreRe.FindStringSubmatch(line); m != nil {
		return SetIgnore{Nick: m[1], Ignored: true}, true
	}
	if m := unignoreRe.FindStringSubmatch(line); m != nil {
		return SetIgnore{Nick: m[1], Ignored: false}, true
	}
	if m := aliasIsRe.FindStringSubmatch(line); m != nil {
		return DefineAlias{Nick: m[1], Login: m[2]}, true
	}
	if m := aliasEqRe.FindStringSubmatch(line); m != nil {
		return DefineAlias{Nick: m[1], Login: m[2]}, true
	}
	return nil, false
}

func matchNext(line string, addressed bool) (Command, bool) {
	if addressed && nextRe.MatchString(line) {
		return NextPage{}, true
	}
	return nil, false
}

func targetFrom(m []string, base int) IssueTarget {
	if m[base] != "" || m[base+2] != "" {
		n, _ := strconv.Atoi(m[base+2])
		return IssueTarget{Owner: m[base], Repo: m[base+1], Number: n}
	}
	n, _ := strconv.Atoi(m[base+4])
	return IssueTarget{Prefix: strings.TrimSuffix(m[base+3], "/"), Number: n}
}

// matchSearch parses "list ..." with its modifier grammar. Unrecognized
// modifier words make the match fail so the line falls through to plain
// scanning rather than silently running a wrong search.
func matchSearch(line string, addressed bool) (Command, bool) {
	if !addressed {
		return nil, false
	}
	m := searchRe.FindStringSubmatch(line)
	if m == nil {
		return nil, false
	}

	cmd := Search{Scope: "open"}
	words := strings.Fields(m[1])
	i := 0
	for i < len(words) {
		w := strings.ToLower(strings.TrimRight(words[i], ".,"))
		switch w {
		case "open", "closed", "all":
			cmd.Scope = w
			i++
		case "issues", "issue":
			i++
		case "actions", "action":
			cmd.Actions = true
			i++
		case "full", "verbosely":
			cmd.Verbose = true
			i++
		case "with":
			// "with labels a,b" or "with descriptions"
			if i+1 < len(words) && strings.EqualFold(words[i+1], "descriptions") {
				cmd.Verbose = true
				i += 2
				continue
			}
			if i+2 < len(words) && (strings.EqualFold(words[i+1], "labels") || strings.EqualFold(words[i+1], "label")) {
				for _, l := range strings.Split(words[i+2], ",") {
					if l = strings.TrimSpace(l); l != "" {
						cmd.Labels = append(cmd.Labels, l)
					}
				}
				i += 3
				continue
			}
			return nil, false
		case "by":
			if i+1 >= len(words) {
				return nil, false
			}
			cmd.Creator = strings.TrimPrefix(words[i+1], "@")
			i += 2
		case "for":
			if i+1 >= len(words) {
				return nil, false
			}
			cmd.Assignee = strings.TrimPrefix(words[i+1], "@")
			i += 2
		case "from":
			if i+1 >= len(words) {
				return nil, false
			}
			cmd.Repo = words[i+1]
			i += 2
		default:
			return nil, false
		}
	}
	return cmd, true
}
