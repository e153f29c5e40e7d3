package bot

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"issuebot/internal/github"
	"issuebot/internal/irc"
)

type said struct {
	target string
	text   string
}

// fakeService records calls and returns canned issues.
type fakeService struct {
	calls   []string
	lookups []string
	fail    error
}

func (f *fakeService) record(format string, args ...any) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeService) Lookup(_ context.Context, owner, repo string, number int) (github.Issue, error) {
	f.lookups = append(f.lookups, fmt.Sprintf("%s/%s#%d", owner, repo, number))
	if f.fail != nil {
		return github.Issue{}, f.fail
	}
	return github.Issue{Owner: owner, Repo: repo, Number: number, Title: "Title", State: "open"}, nil
}

func (f *fakeService) Create(_ context.Context, owner, repo, title, body string, assignees, labels []string) (github.Issue, error) {
	f.record("create %s/%s %q assignees=%v labels=%v body=%q", owner, repo, title, assignees, labels, body)
	if f.fail != nil {
		return github.Issue{}, f.fail
	}
	return github.Issue{Owner: owner, Repo: repo, Number: 42, Title: title, State: "open", Assignees: assignees, Labels: labels}, nil
}

func (f *fakeService) Close(_ context.Context, owner, repo string, number int) (github.Issue, error) {
	f.record("close %s/%s#%d", owner, repo, number)
	if f.fail != nil {
		return github.Issue{}, f.fail
	}
	return github.Issue{Owner: owner, Repo: repo, Number: number, Title: "Title", State: "closed"}, nil
}

func (f *fakeService) Reopen(_ context.Context, owner, repo string, number int) (github.Issue, error) {
	f.record("reopen %s/%s#%d", owner, repo, number)
	return github.Issue{Owner: owner, Repo: repo, Number: number, Title: "Title", State: "open"}, nil
}

func (f *fakeService) Comment(_ context.Context, owner, repo string, number int, body string) (github.Issue, error) {
	f.record("comment %s/%s#%d %q", owner, repo, number, body)
	return github.Issue{Owner: owner, Repo: repo, Number: number, Title: "Title", State: "open"}, nil
}

func (f *fakeService) Search(_ context.Context, owner, repo string, fl github.Filters, page int) (github.SearchPage, error) {
	f.record("search %s/%s state=%s labels=%v creator=%s assignee=%s page=%d",
		owner, repo, fl.State, fl.Labels, fl.Creator, fl.Assignee, page)
	return github.SearchPage{Issues: []github.Issue{
		{Owner: owner, Repo: repo, Number: 1, Title: "One", State: "open"},
		{Owner: owner, Repo: repo, Number: 4, Title: "Four", State: "open"},
	}}, nil
}

type fixture struct {
	bot  *Bot
	gh   *fakeService
	out  []said
	part []string
}

func newFixture(t *testing.T, withGitHub bool) *fixture {
	t.Helper()
	f := &fixture{gh: &fakeService{}}
	f.bot = New("issuebot", nil, nil)
	f.bot.Say = func(target, text string) { f.out = append(f.out, said{target, text}) }
	f.bot.Part = func(channel, _ string) { f.part = append(f.part, channel) }
	if withGitHub {
		f.bot.GitHub = f.gh
	}
	return f
}

// drain waits for one async worker result and applies it on the loop's
// behalf.
func (f *fixture) drain(t *testing.T) {
	t.Helper()
	select {
	case r := <-f.bot.results:
		f.bot.deliver(r)
	case <-time.After(2 * time.Second):
		t.Fatal("no async result arrived")
	}
}

func (f *fixture) line(channel, sender, text string, addressed bool) {
	f.bot.HandleLine(irc.Event{Target: channel, Sender: sender, Text: text, Addressed: addressed})
}

func (f *fixture) saidLines() []string {
	var out []string
	for _, s := range f.out {
		out = append(out, s.text)
	}
	return out
}

func TestExpandExplicitOwnerRepo(t *testing.T) {
	// Scenario: the reference carries owner and repo, so an empty channel
	// repository list is no obstacle.
	f := newFixture(t, true)
	f.line("#chan", "alice", "Let's talk about w3c/aria#15", false)
	f.drain(t)

	if len(f.gh.lookups) != 1 || f.gh.lookups[0] != "w3c/aria#15" {
		t.Fatalf("lookups = %v, want [w3c/aria#15]", f.gh.lookups)
	}
	if len(f.out) != 1 || !strings.Contains(f.out[0].text, "https://github.com/w3c/aria/issues/15") {
		t.Errorf("output = %v", f.out)
	}
}

func TestExpandBareNumberUsesDefaultRepo(t *testing.T) {
	f := newFixture(t, false) // no client: URL-only expansion
	ch := f.bot.channel("#chan")
	if _, err := ch.Repos.AddText("w3c/scribe2"); err != nil {
		t.Fatal(err)
	}

	f.line("#chan", "alice", "#3", true)
	want := "https://github.com/w3c/scribe2/issues/3 -> #3"
	if len(f.out) != 1 || f.out[0].text != want {
		t.Errorf("output = %v, want %q", f.out, want)
	}
}

func TestExpandThrottlesRepeatsButNotAddressed(t *testing.T) {
	f := newFixture(t, false)
	ch := f.bot.channel("#chan")
	if _, err := ch.Repos.AddText("w3c/scribe2"); err != nil {
		t.Fatal(err)
	}

	f.line("#chan", "alice", "look at #9", false)
	f.line("#chan", "bob", "yes, #9 again", false)
	if len(f.out) != 1 {
		t.Fatalf("output = %v, want one expansion", f.out)
	}

	f.line("#chan", "alice", "#9", true)
	if len(f.out) != 2 {
		t.Errorf("output = %v, want addressed repeat to expand", f.out)
	}
}

func TestExpandSkipsIgnoredSender(t *testing.T) {
	f := newFixture(t, false)
	ch := f.bot.channel("#chan")
	if _, err := ch.Repos.AddText("w3c/scribe2"); err != nil {
		t.Fatal(err)
	}
	ch.Ignore("badbot")

	f.line("#chan", "badbot", "see #3", false)
	if len(f.out) != 0 {
		t.Errorf("output = %v, want none for ignored sender", f.out)
	}
}

func TestExpandMentionSaysUserURL(t *testing.T) {
	f := newFixture(t, false)
	f.line("#chan", "alice", "ask @octocat", false)
	if len(f.out) != 1 || f.out[0].text != "https://github.com/octocat" {
		t.Errorf("output = %v", f.out)
	}
}

func TestResolutionFailureSilentUnlessAddressed(t *testing.T) {
	f := newFixture(t, false)

	f.line("#chan", "alice", "see #3", false)
	if len(f.out) != 0 {
		t.Fatalf("output = %v, want silence for ambient unresolvable ref", f.out)
	}

	f.line("#chan", "alice", "see #3", true)
	if len(f.out) != 1 || !strings.Contains(f.out[0].text, "which repository") {
		t.Errorf("output = %v, want resolution complaint when addressed", f.out)
	}
}

func TestAddressedURLWithoutClientStaysQuiet(t *testing.T) {
	// The URL needs no expansion and there is no client for metadata;
	// the bot should neither reply nor claim not to understand.
	f := newFixture(t, false)
	f.line("#chan", "alice", "https://github.com/w3c/aria/issues/15", true)
	if len(f.out) != 0 {
		t.Errorf("output = %v, want none", f.out)
	}
}

func TestCloseCommand(t *testing.T) {
	f := newFixture(t, true)
	ch := f.bot.channel("#chan")
	if _, err := ch.Repos.AddText("w3c/scribe2"); err != nil {
		t.Fatal(err)
	}

	f.line("#chan", "alice", "close #7", false)
	f.drain(t)

	if len(f.gh.calls) != 1 || f.gh.calls[0] != "close w3c/scribe2#7" {
		t.Fatalf("calls = %v", f.gh.calls)
	}
	if len(f.out) != 1 || !strings.Contains(f.out[0].text, "Closed") {
		t.Errorf("output = %v", f.out)
	}
}

func TestCloseFromIgnoredNickIsSuppressed(t *testing.T) {
	// The command parses, but the ignored-nick guard stops it: no
	// network call, no chat output.
	f := newFixture(t, true)
	ch := f.bot.channel("#chan")
	if _, err := ch.Repos.AddText("w3c/scribe2"); err != nil {
		t.Fatal(err)
	}
	ch.Ignore("badbot")

	f.line("#chan", "badbot", "close #7", false)
	if len(f.gh.calls) != 0 {
		t.Errorf("calls = %v, want none", f.gh.calls)
	}
	if len(f.out) != 0 {
		t.Errorf("output = %v, want none", f.out)
	}
}

func TestCloseWithoutCredential(t *testing.T) {
	f := newFixture(t, false)
	ch := f.bot.channel("#chan")
	if _, err := ch.Repos.AddText("w3c/scribe2"); err != nil {
		t.Fatal(err)
	}

	f.line("#chan", "alice", "close #7", false)
	if len(f.out) != 1 || !strings.Contains(f.out[0].text, "no GitHub credential") {
		t.Errorf("output = %v", f.out)
	}
}

func TestRateLimitDenied(t *testing.T) {
	f := newFixture(t, true)
	ch := f.bot.channel("#chan")
	if _, err := ch.Repos.AddText("w3c/scribe2"); err != nil {
		t.Fatal(err)
	}
	f.bot.limiter.Limit = 1

	f.line("#chan", "alice", "close #7", false)
	f.drain(t)
	f.line("#chan", "alice", "close #8", false)

	if len(f.gh.calls) != 1 {
		t.Fatalf("calls = %v, want the second close denied", f.gh.calls)
	}
	last := f.out[len(f.out)-1]
	if !strings.Contains(last.text, "Try again later") {
		t.Errorf("output = %v, want rate-limit message", f.out)
	}
}

func TestAddReposCommand(t *testing.T) {
	f := newFixture(t, false)
	f.line("#chan", "alice", "use w3c/aria", true)

	ch := f.bot.channel("#chan")
	if got := ch.Repos.FullNames(); len(got) != 1 || got[0] != "w3c/aria" {
		t.Fatalf("repos = %v", got)
	}
	if len(f.out) != 1 || !strings.Contains(f.out[0].text, "w3c/aria") {
		t.Errorf("output = %v", f.out)
	}
}

func TestCreateActionResolvesAliasesAndDue(t *testing.T) {
	f := newFixture(t, true)
	ch := f.bot.channel("#chan")
	if _, err := ch.Repos.AddText("w3c/scribe2"); err != nil {
		t.Fatal(err)
	}
	f.bot.aliases.Set("alice", "alice-gh")
	f.bot.now = func() time.Time {
		return time.Date(2026, time.August, 29, 12, 0, 0, 0, time.UTC)
	}

	f.line("#chan", "carol", "action alice, bob: fix the thing - due 1 June", false)
	f.drain(t)

	if len(f.gh.calls) != 1 {
		t.Fatalf("calls = %v", f.gh.calls)
	}
	call := f.gh.calls[0]
	for _, want := range []string{`"fix the thing"`, "alice-gh", "bob", "[action]", "Due: 2027-06-01"} {
		if !strings.Contains(call, want) {
			t.Errorf("create call %q missing %q", call, want)
		}
	}
	// The past date was moved forward a year; the channel hears about it.
	joined := strings.Join(f.saidLines(), "\n")
	if !strings.Contains(joined, "2027-06-01") {
		t.Errorf("output = %v, want year-adjustment note", f.out)
	}
}

func TestSearchCompactAndNext(t *testing.T) {
	f := newFixture(t, true)
	ch := f.bot.channel("#chan")
	if _, err := ch.Repos.AddText("w3c/scribe2"); err != nil {
		t.Fatal(err)
	}

	f.line("#chan", "alice", "list open issues", true)
	f.drain(t)

	joined := strings.Join(f.saidLines(), "\n")
	if !strings.Contains(joined, "#1, #4") {
		t.Errorf("output = %v, want compact number list", f.out)
	}

	// The fake returns no next page, so "next" reports the end.
	f.out = nil
	f.line("#chan", "alice", "next", true)
	if len(f.out) != 1 || !strings.Contains(f.out[0].text, "last page") {
		t.Errorf("output = %v", f.out)
	}
}

func TestSearchActionsAddsLabel(t *testing.T) {
	f := newFixture(t, true)
	ch := f.bot.channel("#chan")
	if _, err := ch.Repos.AddText("w3c/scribe2"); err != nil {
		t.Fatal(err)
	}

	f.line("#chan", "alice", "list all actions for me", true)
	f.drain(t)

	if len(f.gh.calls) != 1 {
		t.Fatalf("calls = %v", f.gh.calls)
	}
	call := f.gh.calls[0]
	for _, want := range []string{"state=all", "[action]", "assignee=alice"} {
		if !strings.Contains(call, want) {
			t.Errorf("search call %q missing %q", call, want)
		}
	}
}

func TestStatusCommand(t *testing.T) {
	f := newFixture(t, false)
	ch := f.bot.channel("#chan")
	if _, err := ch.Repos.AddText("w3c/scribe2"); err != nil {
		t.Fatal(err)
	}

	f.line("#chan", "alice", "status?", true)
	joined := strings.Join(f.saidLines(), "\n")
	for _, want := range []string{"w3c/scribe2", "Delay: 15", "on"} {
		if !strings.Contains(joined, want) {
			t.Errorf("status output %q missing %q", joined, want)
		}
	}
}

func TestUnknownAddressedLineGetsHint(t *testing.T) {
	f := newFixture(t, false)
	f.line("#chan", "alice", "make me a sandwich", true)
	if len(f.out) != 1 || !strings.Contains(f.out[0].text, "help") {
		t.Errorf("output = %v, want usage hint", f.out)
	}
}

func TestByePartsChannel(t *testing.T) {
	f := newFixture(t, false)
	f.line("#chan", "alice", "bye", true)
	if len(f.part) != 1 || f.part[0] != "#chan" {
		t.Errorf("part = %v, want [#chan]", f.part)
	}
}

func TestSuspendStopsAmbientExpansion(t *testing.T) {
	f := newFixture(t, false)
	ch := f.bot.channel("#chan")
	if _, err := ch.Repos.AddText("w3c/scribe2"); err != nil {
		t.Fatal(err)
	}

	f.line("#chan", "alice", "suspend issues", true)
	f.out = nil

	f.line("#chan", "bob", "see #3", false)
	if len(f.out) != 0 {
		t.Fatalf("output = %v, want suspended", f.out)
	}

	f.line("#chan", "bob", "#3", true)
	if len(f.out) != 1 {
		t.Errorf("output = %v, want addressed expansion despite suspend", f.out)
	}
}
