// Package bot runs the single-threaded event loop that owns all channel
// state and dispatches chat lines to commands or reference expansion.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"issuebot/internal/cache"
	"issuebot/internal/commands"
	"issuebot/internal/github"
	"issuebot/internal/irc"
	"issuebot/internal/ratelimit"
	"issuebot/internal/repos"
	"issuebot/internal/scan"
	"issuebot/internal/state"
)

// cursorTTL is how long a "next" continuation stays valid.
const cursorTTL = time.Hour

// Bot owns all per-channel state. Everything in here is touched only by
// the goroutine running Run; GitHub workers get immutable values and a
// result channel.
type Bot struct {
	Nick string
	// Say sends one possibly multi-line message to a channel or nick.
	Say func(target, text string)
	// Part leaves a channel. Nil disables the "bye" command.
	Part func(channel, message string)
	// GitHub is nil when no credential is configured; lookups then fall
	// back to bare URL expansion and mutations are refused.
	GitHub github.Service
	Store  *state.Store
	Logger *slog.Logger

	channels map[string]*state.Channel
	aliases  *state.Aliases
	limiter  *ratelimit.Limiter
	scanner  scan.Scanner
	cursors  *cache.Cache[string, searchCursor]
	results  chan result
	now      func() time.Time
}

// searchCursor remembers where a paginated search left off.
type searchCursor struct {
	owner   string
	repo    string
	filters github.Filters
	page    int
	verbose bool
}

// result is what a GitHub worker reports back into the loop.
type result struct {
	target string
	lines  []string
	cursor *searchCursor // non-nil stores a continuation for target
}

// New assembles a Bot from previously loaded state.
func New(nick string, channels map[string]*state.Channel, aliases *state.Aliases) *Bot {
	if channels == nil {
		channels = make(map[string]*state.Channel)
	}
	if aliases == nil {
		aliases = state.NewAliases()
	}
	return &Bot{
		Nick:     nick,
		Logger:   slog.Default(),
		channels: channels,
		aliases:  aliases,
		limiter:  ratelimit.New(),
		cursors:  cache.New[string, searchCursor](),
		results:  make(chan result, 16),
		now:      time.Now,
	}
}

// Run consumes chat events until ctx is done or events closes. It is the
// only goroutine allowed to touch channel state.
func (b *Bot) Run(ctx context.Context, events <-chan irc.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			b.HandleLine(ev)
		case r := <-b.results:
			b.deliver(r)
		}
	}
}

func (b *Bot) deliver(r result) {
	if r.cursor != nil {
		b.cursors.Set(r.target, *r.cursor, cursorTTL)
	}
	for _, line := range r.lines {
		b.Say(r.target, line)
	}
}

// channel returns the state for target, creating it on first sight (a
// fresh join or a direct-message conversation).
func (b *Bot) channel(target string) *state.Channel {
	ch, ok := b.channels[target]
	if !ok {
		ch = state.NewChannel(target)
		b.channels[target] = ch
	}
	return ch
}

// HandleLine processes one inbound chat line in arrival order.
func (b *Bot) HandleLine(ev irc.Event) {
	ch := b.channel(ev.Target)
	ch.BumpLine()

	cmd, ok := commands.Parse(ev.Text, ev.Addressed)
	if ok {
		b.handleCommand(ch, ev, cmd)
		return
	}

	if ch.IsIgnored(ev.Sender) {
		return
	}
	expanded := b.expandReferences(ch, ev)
	if !expanded && ev.Addressed && ev.Text != "" {
		b.Say(ev.Target, fmt.Sprintf("Sorry, I don't understand. Try \"%s, help\".", b.Nick))
	}
}

// expandReferences scans a plain chat line and expands whatever the
// throttle lets through. Returns whether anything was said or looked up.
func (b *Bot) expandReferences(ch *state.Channel, ev irc.Event) bool {
	any := false
	for _, ref := range b.scanner.Scan(ev.Text) {
		switch ref.Kind {
		case scan.KindUser:
			if !ch.ShouldExpand(ref.Text, state.ClassName, ev.Addressed) {
				continue
			}
			any = true
			b.Say(ev.Target, github.UserURL(ref.Name))
		case scan.KindURL:
			// The URL is already complete; only live metadata adds
			// anything, so stay quiet when we have no client. The line
			// still counts as handled, it was not gibberish.
			if b.GitHub == nil {
				any = true
				continue
			}
			if !ch.ShouldExpand(ref.Text, state.ClassIssue, ev.Addressed) {
				continue
			}
			any = true
			b.lookupAsync(ev.Target, ref.Owner, ref.Repo, ref.Number)
		case scan.KindIssue:
			r, err := b.resolveRef(ch, ref)
			if err != nil {
				if ev.Addressed {
					any = true
					b.Say(ev.Target, fmt.Sprintf("Sorry, I don't know which repository %s refers to. Try \"%s, use OWNER/REPO\".", ref.Text, b.Nick))
				}
				continue
			}
			if !ch.ShouldExpand(ref.Text, state.ClassIssue, ev.Addressed) {
				continue
			}
			any = true
			if b.GitHub == nil {
				b.Say(ev.Target, fmt.Sprintf("%s -> #%d", github.IssueURL(r.Owner, r.Name, ref.Number, false), ref.Number))
				continue
			}
			b.lookupAsync(ev.Target, r.Owner, r.Name, ref.Number)
		}
	}
	return any
}

func (b *Bot) resolveRef(ch *state.Channel, ref scan.Reference) (repos.Repo, error) {
	if ref.Owner != "" {
		return repos.Repo{Owner: ref.Owner, Name: ref.Repo}, nil
	}
	return ch.Repos.Resolve(ref.Repo)
}

func (b *Bot) lookupAsync(target, owner, repo string, number int) {
	gh := b.GitHub
	go func() {
		iss, err := gh.Lookup(context.Background(), owner, repo, number)
		if err != nil {
			b.Logger.Error("issue lookup failed",
				"repo", owner+"/"+repo, "number", number, "error", err)
			b.results <- result{target: target, lines: []string{
				fmt.Sprintf("%s#%d: %s", repo, number, github.KindOf(err).Message()),
			}}
			return
		}
		b.results <- result{target: target, lines: []string{github.FormatIssue(iss)}}
	}()
}

// save persists all state; failures are logged and the bot carries on in
// memory.
func (b *Bot) save() {
	if b.Store == nil {
		return
	}
	if err := b.Store.Save(b.channels, b.aliases); err != nil {
		b.Logger.Error("persisting state failed", "error", err)
	}
}
