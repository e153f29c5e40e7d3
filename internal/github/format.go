package github

import (
	"fmt"
	"strings"
)

// FormatIssue renders one issue as a single IRC line:
//
//	https://github.com/o/r/issues/5 -> #5 [open] Title (alice) [action]
func FormatIssue(i Issue) string {
	url := i.URL
	if url == "" {
		url = IssueURL(i.Owner, i.Repo, i.Number, i.IsPull)
	}
	line := fmt.Sprintf("%s -> #%d [%s] %s", url, i.Number, i.State, i.Title)
	if len(i.Assignees) > 0 {
		line += fmt.Sprintf(" (%s)", strings.Join(i.Assignees, ", "))
	}
	if len(i.Labels) > 0 {
		line += fmt.Sprintf(" [%s]", strings.Join(i.Labels, ", "))
	}
	return line
}

// FormatNumbers renders a compact result list: "#1, #4, #9".
func FormatNumbers(issues []Issue) string {
	parts := make([]string, 0, len(issues))
	for _, i := range issues {
		parts = append(parts, fmt.Sprintf("#%d", i.Number))
	}
	return strings.Join(parts, ", ")
}

// IssueURL builds the github.com URL for an issue or pull request.
func IssueURL(owner, repo string, number int, isPull bool) string {
	kind := "issues"
	if isPull {
		kind = "pull"
	}
	return fmt.Sprintf("https://github.com/%s/%s/%s/%d", owner, repo, kind, number)
}

// UserURL builds the github.com URL for a user or team handle.
func UserURL(name string) string {
	return "https://github.com/" + name
}
