package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"

	"github.com/dshills/stylegate/internal/logging"
)

// DefaultMaxRetries is how many times a retryable call is repeated.
const DefaultMaxRetries = 3

// Client provides the GitHub operations stylegate needs.
type Client struct {
	gh         *github.Client
	maxRetries int
	logger     *slog.Logger
}

// NewClient creates a client authenticated with a static token. An empty
// apiURL targets github.com; otherwise it is a GitHub Enterprise API base
// such as https://ghe.example.com/api/v3/.
func NewClient(ctx context.Context, token, apiURL string) (*Client, error) {
	if token == "" {
		return nil, &authError{message: "no GitHub token configured"}
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return NewClientWithHTTP(oauth2.NewClient(ctx, ts), apiURL)
}

// NewClientWithHTTP creates a client on top of a caller-supplied HTTP
// client, which is responsible for authentication.
func NewClientWithHTTP(httpClient *http.Client, apiURL string) (*Client, error) {
	gh := github.NewClient(httpClient)
	if apiURL != "" {
		if !strings.HasSuffix(apiURL, "/") {
			apiURL += "/"
		}
		var err error
		gh, err = gh.WithEnterpriseURLs(apiURL, apiURL)
		if err != nil {
			return nil, fmt.Errorf("github api url %q: %w", apiURL, err)
		}
	}
	return &Client{gh: gh, maxRetries: DefaultMaxRetries, logger: logging.Discard()}, nil
}

// WithLogger sets the logger used for retry diagnostics and returns c.
func (c *Client) WithLogger(l *slog.Logger) *Client {
	c.logger = logging.OrDiscard(l)
	return c
}

// GetPRDiff fetches the unified diff of a pull request.
func (c *Client) GetPRDiff(ctx context.Context, owner, repo string, number int) (string, error) {
	var diff string
	err := c.retry(ctx, "get pr diff", func() error {
		d, _, err := c.gh.PullRequests.GetRaw(ctx, owner, repo, number, github.RawOptions{Type: github.Diff})
		diff = d
		return err
	})
	if err != nil {
		return "", fmt.Errorf("fetching diff for %s/%s#%d: %w", owner, repo, number, err)
	}
	return diff, nil
}

// GetPRHeadSHA returns the head commit of a pull request.
func (c *Client) GetPRHeadSHA(ctx context.Context, owner, repo string, number int) (string, error) {
	var sha string
	err := c.retry(ctx, "get pr", func() error {
		pr, _, err := c.gh.PullRequests.Get(ctx, owner, repo, number)
		if err != nil {
			return err
		}
		sha = pr.GetHead().GetSHA()
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("fetching %s/%s#%d: %w", owner, repo, number, err)
	}
	return sha, nil
}

// GetCompareDiff fetches the diff between two commits.
func (c *Client) GetCompareDiff(ctx context.Context, owner, repo, base, head string) (string, error) {
	var diff string
	err := c.retry(ctx, "compare commits", func() error {
		d, _, err := c.gh.Repositories.CompareCommitsRaw(ctx, owner, repo, base, head, github.RawOptions{Type: github.Diff})
		diff = d
		return err
	})
	if err != nil {
		return "", fmt.Errorf("comparing %s...%s in %s/%s: %w", base, head, owner, repo, err)
	}
	return diff, nil
}

// PostReview submits a review on a pull request.
func (c *Client) PostReview(ctx context.Context, owner, repo string, number int, req ReviewRequest) error {
	payload := &github.PullRequestReviewRequest{
		Body:  github.Ptr(req.Body),
		Event: github.Ptr(req.Event),
	}
	if req.CommitID != "" {
		payload.CommitID = github.Ptr(req.CommitID)
	}
	for _, rc := range req.Comments {
		payload.Comments = append(payload.Comments, &github.DraftReviewComment{
			Path: github.Ptr(rc.Path),
			Line: github.Ptr(rc.Line),
			Side: github.Ptr("RIGHT"),
			Body: github.Ptr(rc.Body),
		})
	}
	err := c.retryCreate(ctx, "create review", func() error {
		_, _, err := c.gh.PullRequests.CreateReview(ctx, owner, repo, number, payload)
		return err
	})
	if err != nil {
		return fmt.Errorf("posting review to %s/%s#%d: %w", owner, repo, number, err)
	}
	return nil
}

// SetStatus sets a commit status on sha.
func (c *Client) SetStatus(ctx context.Context, owner, repo, sha string, st Status) error {
	payload := &github.RepoStatus{
		State:       github.Ptr(st.State),
		Description: github.Ptr(truncate(st.Description, 140)),
		Context:     github.Ptr(st.Context),
	}
	if st.TargetURL != "" {
		payload.TargetURL = github.Ptr(st.TargetURL)
	}
	err := c.retry(ctx, "create status", func() error {
		_, _, err := c.gh.Repositories.CreateStatus(ctx, owner, repo, sha, payload)
		return err
	})
	if err != nil {
		return fmt.Errorf("setting status on %s/%s@%s: %w", owner, repo, shortSHA(sha), err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}
