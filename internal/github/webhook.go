package github

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/go-github/v68/github"
)

// ErrIgnoredEvent is returned by ParseWebhook for events other than
// pull_request.
var ErrIgnoredEvent = errors.New("ignored event")

// ValidateWebhook reads the request body and checks its signature against
// secret. An empty secret skips the signature check.
func ValidateWebhook(r *http.Request, secret []byte) ([]byte, error) {
	payload, err := github.ValidatePayload(r, secret)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook: %w", err)
	}
	return payload, nil
}

// ParseWebhook decodes a validated payload of the given X-GitHub-Event
// type.
func ParseWebhook(eventType string, payload []byte) (PullRequestEvent, error) {
	if eventType != "pull_request" {
		return PullRequestEvent{}, ErrIgnoredEvent
	}
	ev, err := github.ParseWebHook(eventType, payload)
	if err != nil {
		return PullRequestEvent{}, fmt.Errorf("parsing %s payload: %w", eventType, err)
	}
	pr, ok := ev.(*github.PullRequestEvent)
	if !ok {
		return PullRequestEvent{}, ErrIgnoredEvent
	}
	out := PullRequestEvent{
		Action:  pr.GetAction(),
		Owner:   pr.GetRepo().GetOwner().GetLogin(),
		Repo:    pr.GetRepo().GetName(),
		Number:  pr.GetNumber(),
		HeadSHA: pr.GetPullRequest().GetHead().GetSHA(),
		BaseSHA: pr.GetPullRequest().GetBase().GetSHA(),
	}
	if out.Number == 0 {
		out.Number = pr.GetPullRequest().GetNumber()
	}
	if out.Owner == "" || out.Repo == "" || out.Number == 0 {
		return PullRequestEvent{}, fmt.Errorf("pull_request payload missing repository or number")
	}
	return out, nil
}
