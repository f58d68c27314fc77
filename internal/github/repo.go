package github

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
)

var (
	httpsRemoteRe = regexp.MustCompile(`https?://[^/]+/([^/]+)/([^/\s]+)`)
	sshRemoteRe   = regexp.MustCompile(`[^@]+@[^:]+:([^/]+)/([^/\s]+)`)
)

// DetectRepo parses owner/repo from the git remote origin URL.
func DetectRepo(ctx context.Context) (owner, repo string, err error) {
	out, err := exec.CommandContext(ctx, "git", "remote", "get-url", "origin").Output()
	if err != nil {
		return "", "", fmt.Errorf("cannot detect repo: git remote get-url origin failed: %w", err)
	}
	return ParseRemoteURL(strings.TrimSpace(string(out)))
}

// ParseRemoteURL extracts owner/repo from a git remote URL.
func ParseRemoteURL(url string) (owner, repo string, err error) {
	url = strings.TrimSuffix(url, ".git")
	if m := httpsRemoteRe.FindStringSubmatch(url); len(m) == 3 {
		return m[1], m[2], nil
	}
	if m := sshRemoteRe.FindStringSubmatch(url); len(m) == 3 {
		return m[1], m[2], nil
	}
	return "", "", fmt.Errorf("cannot parse owner/repo from remote URL: %s", url)
}

// SplitFullName splits "owner/repo".
func SplitFullName(fullName string) (owner, repo string, err error) {
	owner, repo, ok := strings.Cut(fullName, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf("invalid repository %q, want owner/repo", fullName)
	}
	return owner, repo, nil
}

// PullRequestEvent is the subset of a pull_request event stylegate acts on.
type PullRequestEvent struct {
	Action  string
	Owner   string
	Repo    string
	Number  int
	HeadSHA string
	BaseSHA string
}

// Supported reports whether the action means new code to review.
func (e PullRequestEvent) Supported() bool {
	switch strings.ToLower(e.Action) {
	case "opened", "synchronize", "reopened":
		return true
	}
	return false
}

type eventPayload struct {
	Action      string `json:"action"`
	Number      int    `json:"number"`
	PullRequest struct {
		Number int `json:"number"`
		Head   struct {
			SHA string `json:"sha"`
		} `json:"head"`
		Base struct {
			SHA string `json:"sha"`
		} `json:"base"`
	} `json:"pull_request"`
	Repository struct {
		FullName string `json:"full_name"`
	} `json:"repository"`
}

// ParseEventFile reads the event payload GitHub Actions writes to
// GITHUB_EVENT_PATH. repository, usually GITHUB_REPOSITORY, is used when
// the payload does not name one.
func ParseEventFile(path, repository string) (PullRequestEvent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return PullRequestEvent{}, fmt.Errorf("reading event file: %w", err)
	}
	var p eventPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return PullRequestEvent{}, fmt.Errorf("parsing event file: %w", err)
	}
	full := p.Repository.FullName
	if full == "" {
		full = repository
	}
	owner, repo, err := SplitFullName(full)
	if err != nil {
		return PullRequestEvent{}, err
	}
	number := p.PullRequest.Number
	if number == 0 {
		number = p.Number
	}
	if number == 0 {
		return PullRequestEvent{}, fmt.Errorf("event is not a pull_request event")
	}
	return PullRequestEvent{
		Action:  p.Action,
		Owner:   owner,
		Repo:    repo,
		Number:  number,
		HeadSHA: p.PullRequest.Head.SHA,
		BaseSHA: p.PullRequest.Base.SHA,
	}, nil
}
