// Package orchestrator drives a download job through its lifecycle:
// metadata extraction, download on the primary backend with a single
// retry on the fallback backend, staging into the public directory and
// link publication.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ytdbot/ytd-bot/internal/domain"
	"github.com/ytdbot/ytd-bot/internal/engine"
)

// Stager relocates a finished download into the public directory.
type Stager interface {
	Stage(reportedPath, mediaID, title string) (*domain.StagedArtifact, error)
}

// Publisher turns a staged artifact into a shareable link.
type Publisher interface {
	Publish(ctx context.Context, art *domain.StagedArtifact, displayTitle string) (string, error)
}

// History records finished jobs. Recording failures never fail the job.
type History interface {
	Record(ctx context.Context, entry *domain.HistoryEntry) error
}

// Observer is notified after every state transition, on the job's
// goroutine. Used to drive status-message edits.
type Observer func(job *domain.DownloadJob)

// CookieResolver returns the cookie jar path for a user, or "" when the
// user has not uploaded one.
type CookieResolver func(userID int64) string

// Orchestrator owns the job state machine. Safe for concurrent use; each
// Run call operates on its own job.
type Orchestrator struct {
	primary  engine.Engine
	fallback engine.Engine // nil disables the fallback attempt
	stager   Stager
	pub      Publisher
	history  History
	cookies  CookieResolver

	workDir         string
	downloadTimeout time.Duration
	log             *slog.Logger
}

// Config collects the orchestrator's collaborators.
type Config struct {
	Primary         engine.Engine
	Fallback        engine.Engine
	Stager          Stager
	Publisher       Publisher
	History         History
	Cookies         CookieResolver
	WorkDir         string
	DownloadTimeout time.Duration
}

// New creates an Orchestrator. History and Fallback are optional.
func New(cfg Config, log *slog.Logger) *Orchestrator {
	cookies := cfg.Cookies
	if cookies == nil {
		cookies = func(int64) string { return "" }
	}
	return &Orchestrator{
		primary:         cfg.Primary,
		fallback:        cfg.Fallback,
		stager:          cfg.Stager,
		pub:             cfg.Publisher,
		history:         cfg.History,
		cookies:         cookies,
		workDir:         cfg.WorkDir,
		downloadTimeout: cfg.DownloadTimeout,
		log:             log,
	}
}

// Run executes the job to a terminal state and returns the staged
// artifact on success. The returned error carries a failure kind and a
// user-addressable hint where one is known. observe may be nil.
func (o *Orchestrator) Run(ctx context.Context, job *domain.DownloadJob, observe Observer) (*domain.StagedArtifact, error) {
	art, err := o.run(ctx, job, observe)

	if o.history != nil {
		entry := &domain.HistoryEntry{
			JobID:      job.ID,
			UserID:     job.UserID,
			URL:        job.URL,
			Title:      job.Title,
			Mode:       job.Mode,
			State:      job.State,
			CreatedAt:  job.CreatedAt,
			FinishedAt: time.Now().UTC(),
		}
		if art != nil {
			entry.FileName = art.FileName
			entry.SizeBytes = art.SizeBytes
			entry.PublicURL = art.PublicURL
		}
		if err != nil {
			entry.Error = err.Error()
		}
		if herr := o.history.Record(ctx, entry); herr != nil {
			o.log.Warn("failed to record job history", "job_id", job.ID, "error", herr)
		}
	}

	return art, err
}

func (o *Orchestrator) run(ctx context.Context, job *domain.DownloadJob, observe Observer) (*domain.StagedArtifact, error) {
	cookieFile := o.cookies(job.UserID)
	opts := o.buildOptions(job, cookieFile)

	if job.Title == "" {
		o.transition(job, domain.StateExtractingMetadata, observe)
		meta, err := o.primary.Probe(ctx, job.URL, opts)
		if err != nil {
			o.fail(job, observe)
			return nil, o.classify(domain.FailExtraction, err)
		}
		job.Title = meta.Title
	}

	o.transition(job, domain.StateDownloadingPrimary, observe)
	res, err := o.primary.Download(ctx, job.URL, opts)
	if err != nil {
		primaryErr := err
		if o.fallback == nil {
			o.fail(job, observe)
			return nil, o.classify(domain.FailDownload, primaryErr)
		}

		o.log.Warn("primary backend failed, retrying on fallback",
			"job_id", job.ID,
			"backend", o.primary.Name(),
			"error", primaryErr,
		)
		o.transition(job, domain.StateDownloadingFallback, observe)
		res, err = o.fallback.Download(ctx, job.URL, opts)
		if err != nil {
			o.fail(job, observe)
			// The primary error usually names the upstream condition,
			// the fallback error is the one users see last.
			return nil, o.classify(domain.FailDownload, fmt.Errorf("%v; fallback: %w", primaryErr, err))
		}
	}

	o.transition(job, domain.StateStaging, observe)
	art, err := o.stager.Stage(res.Path, job.ID, job.Title)
	if err != nil {
		o.fail(job, observe)
		return nil, domain.NewFailure(domain.FailStaging, "", err)
	}

	link, err := o.pub.Publish(ctx, art, job.Title)
	if err != nil {
		o.fail(job, observe)
		return nil, domain.NewFailure(domain.FailStaging, "", err)
	}
	art.PublicURL = link

	o.transition(job, domain.StatePublished, observe)
	return art, nil
}

func (o *Orchestrator) classify(kind domain.FailureKind, err error) error {
	reason := engine.Classify(err)
	return domain.NewFailure(kind, string(reason), err)
}

func (o *Orchestrator) transition(job *domain.DownloadJob, next domain.JobState, observe Observer) {
	prev := job.State
	job.State = next
	o.log.Info("job state changed",
		"job_id", job.ID,
		"from", prev,
		"to", next,
		"mode", job.Mode,
	)
	if observe != nil {
		observe(job)
	}
}

func (o *Orchestrator) fail(job *domain.DownloadJob, observe Observer) {
	o.transition(job, domain.StateFailed, observe)
}
