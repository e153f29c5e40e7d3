// Package github wraps the GitHub REST API behind the small set of
// operations the bot performs, with failures classified for chat output.
package github

import (
	"context"
	"time"

	gh "github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"
)

// DefaultTimeout bounds each API call. There is no retry: a user who
// cares re-issues the command.
const DefaultTimeout = 10 * time.Second

// Issue is the metadata the bot reports for an issue or pull request.
type Issue struct {
	Owner     string
	Repo      string
	Number    int
	Title     string
	State     string
	Labels    []string
	Assignees []string
	URL       string
	Body      string
	IsPull    bool
}

// Filters narrow a repository issue search.
type Filters struct {
	State    string // "open", "closed", or "all"
	Labels   []string
	Creator  string
	Assignee string
}

// SearchPage is one page of search results. NextPage is zero on the last
// page.
type SearchPage struct {
	Issues   []Issue
	NextPage int
}

// Service is the GitHub surface the command handlers call. The concrete
// Client talks to the real API; tests substitute fakes.
type Service interface {
	Lookup(ctx context.Context, owner, repo string, number int) (Issue, error)
	Create(ctx context.Context, owner, repo, title, body string, assignees, labels []string) (Issue, error)
	Close(ctx context.Context, owner, repo string, number int) (Issue, error)
	Reopen(ctx context.Context, owner, repo string, number int) (Issue, error)
	Comment(ctx context.Context, owner, repo string, number int, body string) (Issue, error)
	Search(ctx context.Context, owner, repo string, f Filters, page int) (SearchPage, error)
}

// Client implements Service against api.github.com.
type Client struct {
	gh      *gh.Client
	timeout time.Duration
}

// NewClient returns a Client authenticated with token.
func NewClient(token string) *Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(context.Background(), ts)
	return &Client{gh: gh.NewClient(tc), timeout: DefaultTimeout}
}

func (c *Client) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

// Lookup fetches issue or PR metadata. The issues endpoint serves both;
// pull requests are flagged via their links.
func (c *Client) Lookup(ctx context.Context, owner, repo string, number int) (Issue, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	iss, _, err := c.gh.Issues.Get(ctx, owner, repo, number)
	if err != nil {
		return Issue{}, classify(err)
	}
	return fromAPI(owner, repo, iss), nil
}

// Create opens a new issue.
func (c *Client) Create(ctx context.Context, owner, repo, title, body string, assignees, labels []string) (Issue, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	req := &gh.IssueRequest{Title: gh.String(title)}
	if body != "" {
		req.Body = gh.String(body)
	}
	if len(assignees) > 0 {
		req.Assignees = &assignees
	}
	if len(labels) > 0 {
		req.Labels = &labels
	}
	iss, _, err := c.gh.Issues.Create(ctx, owner, repo, req)
	if err != nil {
		return Issue{}, classify(err)
	}
	return fromAPI(owner, repo, iss), nil
}

// Close marks an issue closed.
func (c *Client) Close(ctx context.Context, owner, repo string, number int) (Issue, error) {
	return c.setState(ctx, owner, repo, number, "closed")
}

// Reopen marks a closed issue open again.
func (c *Client) Reopen(ctx context.Context, owner, repo string, number int) (Issue, error) {
	return c.setState(ctx, owner, repo, number, "open")
}

func (c *Client) setState(ctx context.Context, owner, repo string, number int, s string) (Issue, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	iss, _, err := c.gh.Issues.Edit(ctx, owner, repo, number, &gh.IssueRequest{State: gh.String(s)})
	if err != nil {
		return Issue{}, classify(err)
	}
	return fromAPI(owner, repo, iss), nil
}

// Comment adds a comment to an issue and returns the issue's current
// metadata.
func (c *Client) Comment(ctx context.Context, owner, repo string, number int, body string) (Issue, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	if _, _, err := c.gh.Issues.CreateComment(ctx, owner, repo, number, &gh.IssueComment{Body: gh.String(body)}); err != nil {
		return Issue{}, classify(err)
	}
	iss, _, err := c.gh.Issues.Get(ctx, owner, repo, number)
	if err != nil {
		return Issue{}, classify(err)
	}
	return fromAPI(owner, repo, iss), nil
}

// Search lists repository issues matching f, one page at a time.
func (c *Client) Search(ctx context.Context, owner, repo string, f Filters, page int) (SearchPage, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	opts := &gh.IssueListByRepoOptions{
		State:       f.State,
		Labels:      f.Labels,
		Creator:     f.Creator,
		Assignee:    f.Assignee,
		ListOptions: gh.ListOptions{Page: page, PerPage: 25},
	}
	if opts.State == "" {
		opts.State = "open"
	}

	issues, resp, err := c.gh.Issues.ListByRepo(ctx, owner, repo, opts)
	if err != nil {
		return SearchPage{}, classify(err)
	}

	out := SearchPage{NextPage: resp.NextPage}
	for _, iss := range issues {
		out.Issues = append(out.Issues, fromAPI(owner, repo, iss))
	}
	return out, nil
}

func fromAPI(owner, repo string, iss *gh.Issue) Issue {
	out := Issue{
		Owner:  owner,
		Repo:   repo,
		Number: iss.GetNumber(),
		Title:  iss.GetTitle(),
		State:  iss.GetState(),
		URL:    iss.GetHTMLURL(),
		Body:   iss.GetBody(),
		IsPull: iss.IsPullRequest(),
	}
	for _, l := range iss.Labels {
		out.Labels = append(out.Labels, l.GetName())
	}
	for _, a := range iss.Assignees {
		out.Assignees = append(out.Assignees, a.GetLogin())
	}
	return out
}
