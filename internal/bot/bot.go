package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dshills/stylegate/internal/cache"
	"github.com/dshills/stylegate/internal/config"
	"github.com/dshills/stylegate/internal/diff"
	"github.com/dshills/stylegate/internal/github"
	"github.com/dshills/stylegate/internal/gitctx"
	"github.com/dshills/stylegate/internal/logging"
	"github.com/dshills/stylegate/internal/metrics"
	"github.com/dshills/stylegate/internal/redact"
	"github.com/dshills/stylegate/internal/review"
	"github.com/dshills/stylegate/internal/ruleset"
	"github.com/dshills/stylegate/internal/storage"
)

// DiffFetcher fetches the unified diff of a pull request.
type DiffFetcher interface {
	GetPRDiff(ctx context.Context, owner, repo string, number int) (string, error)
}

// HeadResolver looks up a pull request's head commit. A DiffFetcher that
// also implements it lets PRRef.HeadSHA be left empty.
type HeadResolver interface {
	GetPRHeadSHA(ctx context.Context, owner, repo string, number int) (string, error)
}

// CompareFetcher fetches the diff between two commits. It serves
// incremental reviews of the commits pushed since PRRef.Since.
type CompareFetcher interface {
	GetCompareDiff(ctx context.Context, owner, repo, base, head string) (string, error)
}

// ReviewPoster posts a review on a pull request.
type ReviewPoster interface {
	PostReview(ctx context.Context, owner, repo string, number int, req github.ReviewRequest) error
}

// StatusSetter sets a commit status.
type StatusSetter interface {
	SetStatus(ctx context.Context, owner, repo, sha string, st github.Status) error
}

// PRRef identifies a pull request and, optionally, its head commit.
type PRRef struct {
	Owner   string
	Repo    string
	Number  int
	HeadSHA string
	// Since, when set, limits the review to changes between this commit
	// and the head.
	Since string
}

func (p PRRef) String() string {
	return fmt.Sprintf("%s/%s#%d", p.Owner, p.Repo, p.Number)
}

// FullName returns "owner/repo".
func (p PRRef) FullName() string {
	return p.Owner + "/" + p.Repo
}

// Runner reviews pull requests. Store, Cache and Metrics are optional.
type Runner struct {
	Source   DiffFetcher
	Reviews  ReviewPoster
	Statuses StatusSetter
	Rules    ruleset.RuleSet
	Config   config.Config
	Store    storage.Store
	Cache    *cache.Cache
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

// Run reviews one pull request. The returned error is non-nil only when
// the diff cannot be obtained.
func (r *Runner) Run(ctx context.Context, ref PRRef) (*review.Report, error) {
	logger := logging.OrDiscard(r.Logger).With("pr", ref.String())
	start := time.Now()

	if ref.HeadSHA == "" {
		if hr, ok := r.Source.(HeadResolver); ok {
			sha, err := hr.GetPRHeadSHA(ctx, ref.Owner, ref.Repo, ref.Number)
			if err != nil {
				r.Metrics.Failure("get_head")
				return nil, err
			}
			ref.HeadSHA = sha
		}
	}
	logger = logger.With("head", ref.HeadSHA)

	key := ""
	if ref.HeadSHA != "" {
		digest := r.Rules.Digest()
		if ref.Since != "" {
			digest += ":" + ref.Since
		}
		key = cache.ReviewKey(ref.FullName(), ref.Number, ref.HeadSHA, digest)
		if prev, ok := r.cached(key); ok {
			logger.Info("already reviewed, skipping", "run", prev.RunID)
			return prev, nil
		}
	}

	text, err := r.fetch(ctx, ref)
	if err != nil {
		r.Metrics.Failure("fetch_diff")
		return nil, err
	}

	cfg := r.Config
	d := gitctx.FromText(text, "github", ref.String(), gitctx.DiffOptions{
		MaxDiffBytes: cfg.MaxDiffBytes,
		Include:      cfg.Include,
		Exclude:      cfg.Exclude,
	})
	if d.Truncated {
		logger.Warn("diff truncated", "maxDiffBytes", cfg.MaxDiffBytes)
	}
	report := review.Run(d, r.Rules, cfg, logger)
	report.Repo.Head = ref.HeadSHA
	report = redact.Report(report, cfg.Privacy)

	delivered := r.deliver(ctx, ref, d, report, logger)

	if r.Store != nil {
		if err := r.Store.SaveRun(ctx, storage.NewRun(report, "github", ref.FullName(), ref.Number, ref.HeadSHA)); err != nil {
			r.Metrics.Failure("save_run")
			logger.Error("saving run", "err", err)
		}
	}
	if delivered && key != "" {
		if data, err := json.Marshal(report); err == nil {
			if err := r.Cache.Put(key, string(data)); err != nil {
				logger.Warn("caching review", "err", err)
			}
		}
	}

	r.Metrics.ObserveReport(report, time.Since(start).Seconds())
	logger.Info("review finished",
		"run", report.RunID,
		"outcome", report.Verdict.Outcome,
		"violations", report.Verdict.TotalViolations)
	return report, nil
}

func (r *Runner) fetch(ctx context.Context, ref PRRef) (string, error) {
	if ref.Since == "" {
		return r.Source.GetPRDiff(ctx, ref.Owner, ref.Repo, ref.Number)
	}
	cf, ok := r.Source.(CompareFetcher)
	if !ok {
		return "", fmt.Errorf("incremental review of %s: diff source cannot compare commits", ref)
	}
	if ref.HeadSHA == "" {
		return "", fmt.Errorf("incremental review of %s: head commit unknown", ref)
	}
	return cf.GetCompareDiff(ctx, ref.Owner, ref.Repo, ref.Since, ref.HeadSHA)
}

// deliver posts the review and sets the status. It reports whether
// everything that should have been sent was sent.
func (r *Runner) deliver(ctx context.Context, ref PRRef, d gitctx.DiffResult, report *review.Report, logger *slog.Logger) bool {
	cfg := r.Config
	if cfg.GitHub.DryRun {
		logger.Info("dry run, not posting",
			"violations", report.Verdict.TotalViolations,
			"status", github.ReportStatus(report, cfg.GitHub.StatusContext).State)
		return false
	}

	ok := true
	// A truncated run gets a review even without violations, so the
	// pull request says why the check is incomplete.
	if (len(report.Violations) > 0 || report.Inputs.Truncated) && r.Reviews != nil {
		files := diff.Parse(d.Diff, diff.Options{Extension: cfg.Extension, Logger: logging.Discard()})
		req := github.BuildReview(report, files, github.ReviewOptions{
			LineMapping: cfg.LineMapping,
			MaxComments: cfg.MaxComments,
			CommitID:    ref.HeadSHA,
		})
		if err := r.Reviews.PostReview(ctx, ref.Owner, ref.Repo, ref.Number, req); err != nil {
			ok = false
			r.Metrics.Failure("post_review")
			logger.Error("posting review", "err", err)
		} else {
			logger.Debug("review posted", "comments", len(req.Comments))
		}
	}

	switch {
	case r.Statuses == nil:
	case ref.HeadSHA == "":
		ok = false
		logger.Warn("no head commit, status not set")
	default:
		st := github.ReportStatus(report, cfg.GitHub.StatusContext)
		if err := r.Statuses.SetStatus(ctx, ref.Owner, ref.Repo, ref.HeadSHA, st); err != nil {
			ok = false
			r.Metrics.Failure("set_status")
			logger.Error("setting status", "err", err)
		}
	}
	return ok
}

func (r *Runner) cached(key string) (*review.Report, bool) {
	data, ok := r.Cache.Get(key)
	if !ok {
		return nil, false
	}
	var rep review.Report
	if err := json.Unmarshal([]byte(data), &rep); err != nil {
		return nil, false
	}
	return &rep, true
}
