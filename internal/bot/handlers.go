package bot

import (
	"context"
	"fmt"
	"strings"

	"issuebot/internal/commands"
	"issuebot/internal/dates"
	"issuebot/internal/github"
	"issuebot/internal/irc"
	"issuebot/internal/repos"
	"issuebot/internal/state"
)

func (b *Bot) handleCommand(ch *state.Channel, ev irc.Event, cmd commands.Command) {
	switch c := cmd.(type) {
	case commands.Bye:
		b.handleBye(ch, ev)
	case commands.AddRepos:
		b.handleAddRepos(ch, ev, c)
	case commands.RemoveRepos:
		b.handleRemoveRepos(ch, ev, c)
	case commands.ClearRepos:
		ch.Repos = repos.NewList()
		ch.ClearHistory()
		b.save()
		b.Say(ev.Target, "OK, I am no longer tracking any repositories here.")
	case commands.SetDelay:
		ch.SetDelay(c.Lines)
		b.save()
		b.Say(ev.Target, fmt.Sprintf("OK, delay is now %d lines.", ch.DelayLines))
	case commands.SetMaxLines:
		ch.SetMaxFullLines(c.Lines)
		b.save()
		b.Say(ev.Target, fmt.Sprintf("OK, I will list at most %d issues in full.", ch.MaxFullLines))
	case commands.Status:
		b.handleStatus(ch, ev)
	case commands.Help:
		b.handleHelp(ev)
	case commands.Suspend:
		b.handleSuspend(ch, ev, c)
	case commands.CreateIssue:
		b.handleCreateIssue(ch, ev, c)
	case commands.CloseIssue:
		b.handleSetState(ch, ev, c.Target, false)
	case commands.ReopenIssue:
		b.handleSetState(ch, ev, c.Target, true)
	case commands.CommentIssue:
		b.handleComment(ch, ev, c)
	case commands.CreateAction:
		b.handleCreateAction(ch, ev, c)
	case commands.Account:
		b.handleAccount(ev, c)
	case commands.SetIgnore:
		b.handleSetIgnore(ch, ev, c)
	case commands.DefineAlias:
		b.aliases.Set(c.Nick, c.Login)
		b.save()
		b.Say(ev.Target, fmt.Sprintf("OK, %s is %s on GitHub.", c.Nick, c.Login))
	case commands.Search:
		b.handleSearch(ch, ev, c)
	case commands.NextPage:
		b.handleNextPage(ch, ev)
	}
}

func (b *Bot) handleBye(ch *state.Channel, ev irc.Event) {
	if ev.Direct || b.Part == nil {
		return
	}
	b.Part(ev.Target, "OK, bye.")
	// Drop runtime state but keep the channel block in the state file,
	// so rejoining restores the repository list.
	ch.ClearHistory()
}

func (b *Bot) handleAddRepos(ch *state.Channel, ev irc.Event, c commands.AddRepos) {
	added, err := ch.Repos.AddText(c.Text)
	ch.ClearHistory()
	b.save()
	if err != nil {
		b.Say(ev.Target, fmt.Sprintf("Sorry, I cannot infer an owner for %s. Try OWNER/REPO.", c.Text))
		return
	}
	names := make([]string, 0, len(added))
	for _, r := range added {
		names = append(names, r.FullName())
	}
	b.Say(ev.Target, "OK, now discussing "+strings.Join(names, ", ")+".")
}

func (b *Bot) handleRemoveRepos(ch *state.Channel, ev irc.Event, c commands.RemoveRepos) {
	removed, missing := ch.Repos.RemoveText(c.Text)
	if len(removed) > 0 {
		ch.ClearHistory()
		b.save()
	}
	var parts []string
	if len(removed) > 0 {
		parts = append(parts, "forgot "+strings.Join(removed, ", "))
	}
	for _, m := range missing {
		parts = append(parts, fmt.Sprintf("%s was not being tracked", m))
	}
	b.Say(ev.Target, "OK, "+strings.Join(parts, "; ")+".")
}

func (b *Bot) handleStatus(ch *state.Channel, ev irc.Event) {
	lines := []string{
		fmt.Sprintf("Repositories: %s", orNone(strings.Join(ch.Repos.FullNames(), ", "))),
		fmt.Sprintf("Delay: %d lines. Max full listings: %d.", ch.DelayLines, ch.MaxFullLines),
		fmt.Sprintf("Issue expansion: %s. Name expansion: %s.",
			onOff(!ch.IssuesSuspended), onOff(!ch.NamesSuspended)),
	}
	if ignored := ch.IgnoredNicks(); len(ignored) > 0 {
		lines = append(lines, "Ignoring: "+strings.Join(ignored, ", ")+".")
	}
	b.Say(ev.Target, strings.Join(lines, "\n"))
}

func (b *Bot) handleHelp(ev irc.Event) {
	b.Say(ev.Target, strings.Join([]string{
		"I expand issue references like #3, repo#3 and owner/repo#3, and @name mentions.",
		fmt.Sprintf("Commands (address me as \"%s, ...\"): use OWNER/REPO | forget REPO | delay N | status | suspend/resume [issues|names] | list [open|closed|all] [issues|actions] [full] [by NICK] [for NICK] [from REPO] | next | NICK = GITHUB-LOGIN | bye", b.Nick),
		"Ambient commands: issue: TITLE | close #N | #N closed | note #N: TEXT | action NAMES: TEXT [due DATE]",
	}, "\n"))
}

func (b *Bot) handleSuspend(ch *state.Channel, ev irc.Event, c commands.Suspend) {
	switch c.Class {
	case "issues":
		ch.IssuesSuspended = c.Suspended
	case "names":
		ch.NamesSuspended = c.Suspended
	default:
		ch.IssuesSuspended = c.Suspended
		ch.NamesSuspended = c.Suspended
	}
	b.save()
	b.Say(ev.Target, fmt.Sprintf("OK, issue expansion is %s and name expansion is %s.",
		onOff(!ch.IssuesSuspended), onOff(!ch.NamesSuspended)))
}

// guardMutation runs the checks every GitHub mutation needs: sender not
// ignored, a credential, a resolvable repository, and rate-limit budget.
// It reports the repository to act on and whether to proceed. An ignored
// sender fails silently; everything else gets a chat line.
func (b *Bot) guardMutation(ch *state.Channel, ev irc.Event, prefix string) (repos.Repo, bool) {
	if ch.IsIgnored(ev.Sender) {
		return repos.Repo{}, false
	}
	if b.GitHub == nil {
		b.Say(ev.Target, "Sorry, I have no GitHub credential, so I cannot do that.")
		return repos.Repo{}, false
	}
	r, err := ch.Repos.Resolve(prefix)
	if err != nil {
		b.Say(ev.Target, fmt.Sprintf("Sorry, I don't know which repository you mean. Try \"%s, use OWNER/REPO\" first.", b.Nick))
		return repos.Repo{}, false
	}
	if !b.limiter.TryConsume(r.FullName()) {
		b.Say(ev.Target, fmt.Sprintf("Sorry, too many changes to %s recently. Try again later.", r.FullName()))
		return repos.Repo{}, false
	}
	return r, true
}

// targetRepo turns an IssueTarget into a concrete repository, going
// through the same mutation guards.
func (b *Bot) targetRepo(ch *state.Channel, ev irc.Event, t commands.IssueTarget) (repos.Repo, bool) {
	if t.Resolved() {
		// Still consumes guard checks: credential, ignore, budget.
		if ch.IsIgnored(ev.Sender) {
			return repos.Repo{}, false
		}
		if b.GitHub == nil {
			b.Say(ev.Target, "Sorry, I have no GitHub credential, so I cannot do that.")
			return repos.Repo{}, false
		}
		r := repos.Repo{Owner: t.Owner, Name: t.Repo}
		if !b.limiter.TryConsume(r.FullName()) {
			b.Say(ev.Target, fmt.Sprintf("Sorry, too many changes to %s recently. Try again later.", r.FullName()))
			return repos.Repo{}, false
		}
		return r, true
	}
	return b.guardMutation(ch, ev, t.Prefix)
}

func (b *Bot) handleCreateIssue(ch *state.Channel, ev irc.Event, c commands.CreateIssue) {
	if ch.IssuesSuspended && !ev.Addressed {
		return
	}
	r, ok := b.guardMutation(ch, ev, "")
	if !ok {
		return
	}
	body := fmt.Sprintf("Opened by %s via IRC channel %s", ev.Sender, ev.Target)
	gh := b.GitHub
	go func() {
		iss, err := gh.Create(context.Background(), r.Owner, r.Name, c.Title, body, nil, nil)
		b.results <- result{target: ev.Target, lines: b.mutationReport(r, "Created", iss, err)}
	}()
}

func (b *Bot) handleSetState(ch *state.Channel, ev irc.Event, t commands.IssueTarget, reopen bool) {
	r, ok := b.targetRepo(ch, ev, t)
	if !ok {
		return
	}
	gh := b.GitHub
	go func() {
		var (
			iss  github.Issue
			err  error
			verb = "Closed"
		)
		if reopen {
			verb = "Reopened"
			iss, err = gh.Reopen(context.Background(), r.Owner, r.Name, t.Number)
		} else {
			iss, err = gh.Close(context.Background(), r.Owner, r.Name, t.Number)
		}
		b.results <- result{target: ev.Target, lines: b.mutationReport(r, verb, iss, err)}
	}()
}

func (b *Bot) handleComment(ch *state.Channel, ev irc.Event, c commands.CommentIssue) {
	r, ok := b.targetRepo(ch, ev, c.Target)
	if !ok {
		return
	}
	body := fmt.Sprintf("%s\n\n-- %s, via IRC channel %s", c.Body, ev.Sender, ev.Target)
	gh := b.GitHub
	go func() {
		iss, err := gh.Comment(context.Background(), r.Owner, r.Name, c.Target.Number, body)
		b.results <- result{target: ev.Target, lines: b.mutationReport(r, "Commented on", iss, err)}
	}()
}

func (b *Bot) handleCreateAction(ch *state.Channel, ev irc.Event, c commands.CreateAction) {
	if ch.IssuesSuspended && !ev.Addressed {
		return
	}
	r, ok := b.guardMutation(ch, ev, "")
	if !ok {
		return
	}

	title, dueText := dates.SplitDue(c.Text)
	if title == "" {
		title = c.Text
	}
	body := fmt.Sprintf("Opened by %s via IRC channel %s", ev.Sender, ev.Target)

	var adjusted []string
	if dueText != "" {
		due, err := dates.Parse(dueText, b.now())
		if err != nil {
			b.Say(ev.Target, fmt.Sprintf("Sorry, I cannot interpret %q as a date.", dueText))
			return
		}
		if due.Adjusted {
			adjusted = append(adjusted, fmt.Sprintf("Note: %q was in the past, using %s.", dueText, due))
		}
		body = fmt.Sprintf("Due: %s.\n\n%s", due, body)
	}

	assignees := make([]string, 0, len(c.Assignees))
	for _, a := range c.Assignees {
		assignees = append(assignees, b.aliases.Resolve(a))
	}

	gh := b.GitHub
	go func() {
		iss, err := gh.Create(context.Background(), r.Owner, r.Name, title, body, assignees, []string{"action"})
		lines := append(adjusted, b.mutationReport(r, "Created action", iss, err)...)
		b.results <- result{target: ev.Target, lines: lines}
	}()
}

func (b *Bot) mutationReport(r repos.Repo, verb string, iss github.Issue, err error) []string {
	if err != nil {
		b.Logger.Error("github mutation failed", "repo", r.FullName(), "error", err)
		return []string{fmt.Sprintf("Sorry, %s: %s.", r.FullName(), github.KindOf(err).Message())}
	}
	return []string{fmt.Sprintf("%s %s", verb, github.FormatIssue(iss))}
}

func (b *Bot) handleAccount(ev irc.Event, c commands.Account) {
	nick := c.Nick
	if nick == "" {
		nick = ev.Sender
	}
	if login, ok := b.aliases.Lookup(nick); ok {
		b.Say(ev.Target, fmt.Sprintf("%s is %s on GitHub (%s).", nick, login, github.UserURL(login)))
		return
	}
	b.Say(ev.Target, fmt.Sprintf("I have no GitHub account on record for %s; assuming %s.", nick, github.UserURL(nick)))
}

func (b *Bot) handleSetIgnore(ch *state.Channel, ev irc.Event, c commands.SetIgnore) {
	if c.Ignored {
		ch.Ignore(c.Nick)
		b.save()
		b.Say(ev.Target, fmt.Sprintf("OK, I will ignore commands from %s.", c.Nick))
		return
	}
	if ch.Unignore(c.Nick) {
		b.save()
		b.Say(ev.Target, fmt.Sprintf("OK, no longer ignoring %s.", c.Nick))
		return
	}
	b.Say(ev.Target, fmt.Sprintf("I was not ignoring %s.", c.Nick))
}

func (b *Bot) handleSearch(ch *state.Channel, ev irc.Event, c commands.Search) {
	if b.GitHub == nil {
		b.Say(ev.Target, "Sorry, I have no GitHub credential, so I cannot search.")
		return
	}
	r, err := ch.Repos.Resolve(c.Repo)
	if err != nil {
		b.Say(ev.Target, fmt.Sprintf("Sorry, I don't know which repository to search. Try \"%s, use OWNER/REPO\" first.", b.Nick))
		return
	}

	f := github.Filters{State: c.Scope, Labels: c.Labels}
	if c.Actions {
		f.Labels = append(f.Labels, "action")
	}
	if c.Creator != "" {
		f.Creator = b.resolvePerson(c.Creator, ev.Sender)
	}
	if c.Assignee != "" {
		f.Assignee = b.resolvePerson(c.Assignee, ev.Sender)
	}

	b.searchAsync(ev.Target, searchCursor{
		owner: r.Owner, repo: r.Name, filters: f, page: 0,
		verbose: c.Verbose,
	}, ch.MaxFullLines)
}

func (b *Bot) handleNextPage(ch *state.Channel, ev irc.Event) {
	cur, ok := b.cursors.Get(ev.Target)
	if !ok {
		b.Say(ev.Target, "There is no search to continue.")
		return
	}
	if cur.page == 0 {
		b.Say(ev.Target, "That was the last page.")
		return
	}
	b.cursors.Delete(ev.Target)
	b.searchAsync(ev.Target, cur, ch.MaxFullLines)
}

func (b *Bot) searchAsync(target string, cur searchCursor, maxFull int) {
	gh := b.GitHub
	go func() {
		page, err := gh.Search(context.Background(), cur.owner, cur.repo, cur.filters, cur.page)
		if err != nil {
			b.Logger.Error("github search failed", "repo", cur.owner+"/"+cur.repo, "error", err)
			b.results <- result{target: target, lines: []string{
				fmt.Sprintf("Sorry, %s/%s: %s.", cur.owner, cur.repo, github.KindOf(err).Message()),
			}}
			return
		}

		var lines []string
		switch {
		case len(page.Issues) == 0:
			lines = []string{fmt.Sprintf("No matching issues in %s/%s.", cur.owner, cur.repo)}
		case cur.verbose:
			shown := page.Issues
			if len(shown) > maxFull {
				shown = shown[:maxFull]
			}
			for _, iss := range shown {
				lines = append(lines, github.FormatIssue(iss))
			}
			if len(page.Issues) > len(shown) {
				lines = append(lines, fmt.Sprintf("(%d more on this page not shown.)", len(page.Issues)-len(shown)))
			}
		default:
			lines = []string{fmt.Sprintf("%s/%s: %s", cur.owner, cur.repo, github.FormatNumbers(page.Issues))}
		}
		if page.NextPage != 0 {
			lines = append(lines, "Say \"next\" for more.")
		}

		next := cur
		next.page = page.NextPage
		b.results <- result{target: target, lines: lines, cursor: &next}
	}()
}

// resolvePerson maps "me"/"my" to the sender and then any nick through
// the alias table to a GitHub login.
func (b *Bot) resolvePerson(name, sender string) string {
	if strings.EqualFold(name, "me") || strings.EqualFold(name, "my") {
		name = sender
	}
	return b.aliases.Resolve(name)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
