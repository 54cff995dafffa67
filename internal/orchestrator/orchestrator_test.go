package orchestrator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/ytdbot/ytd-bot/internal/domain"
	"github.com/ytdbot/ytd-bot/internal/engine"
)

type fakeEngine struct {
	name        string
	downloadErr error
	probeErr    error
	calls       int
	gotOpts     engine.Options
}

func (f *fakeEngine) Name() string { return f.name }

func (f *fakeEngine) Probe(_ context.Context, _ string, _ engine.Options) (*engine.Metadata, error) {
	if f.probeErr != nil {
		return nil, f.probeErr
	}
	return &engine.Metadata{Title: "Probed Title"}, nil
}

func (f *fakeEngine) Download(_ context.Context, _ string, opts engine.Options) (*engine.Result, error) {
	f.calls++
	f.gotOpts = opts
	if f.downloadErr != nil {
		return nil, f.downloadErr
	}
	return &engine.Result{Path: "/work/" + f.name + ".mp4"}, nil
}

type fakeStager struct {
	err error
}

func (f *fakeStager) Stage(reportedPath, mediaID, title string) (*domain.StagedArtifact, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.StagedArtifact{FileName: "abcd1234_1.mp4", Ext: "mp4", Path: reportedPath, SizeBytes: 42}, nil
}

type fakePublisher struct{}

func (fakePublisher) Publish(_ context.Context, art *domain.StagedArtifact, _ string) (string, error) {
	return "https://files.test/" + art.FileName, nil
}

type fakeHistory struct {
	entries []*domain.HistoryEntry
}

func (f *fakeHistory) Record(_ context.Context, e *domain.HistoryEntry) error {
	f.entries = append(f.entries, e)
	return nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestOrchestrator(primary, fallback engine.Engine, hist History) *Orchestrator {
	return New(Config{
		Primary:         primary,
		Fallback:        fallback,
		Stager:          &fakeStager{},
		Publisher:       fakePublisher{},
		History:         hist,
		WorkDir:         "/work",
		DownloadTimeout: time.Minute,
	}, discard())
}

func TestRun_PrimarySucceeds(t *testing.T) {
	primary := &fakeEngine{name: "primary"}
	fallback := &fakeEngine{name: "fallback"}
	o := newTestOrchestrator(primary, fallback, nil)

	job := domain.NewDownloadJob("job-1", "https://example.com/v", "Title", domain.ModeSafeFallback, 1, 1)

	var states []domain.JobState
	art, err := o.Run(context.Background(), job, func(j *domain.DownloadJob) {
		states = append(states, j.State)
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if art.PublicURL != "https://files.test/abcd1234_1.mp4" {
		t.Errorf("PublicURL = %q", art.PublicURL)
	}
	if fallback.calls != 0 {
		t.Errorf("fallback invoked %d times, want 0", fallback.calls)
	}

	want := []domain.JobState{
		domain.StateDownloadingPrimary,
		domain.StateStaging,
		domain.StatePublished,
	}
	if len(states) != len(want) {
		t.Fatalf("transitions = %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Errorf("transition %d = %s, want %s", i, states[i], want[i])
		}
	}
}

func TestRun_FallbackAfterPrimaryFailure(t *testing.T) {
	primary := &fakeEngine{name: "primary", downloadErr: errors.New("network reset")}
	fallback := &fakeEngine{name: "fallback"}
	o := newTestOrchestrator(primary, fallback, nil)

	job := domain.NewDownloadJob("job-2", "https://example.com/v", "Title", domain.ModeBestQuality, 1, 1)

	var states []domain.JobState
	art, err := o.Run(context.Background(), job, func(j *domain.DownloadJob) {
		states = append(states, j.State)
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if art == nil {
		t.Fatal("expected artifact")
	}
	if fallback.calls != 1 {
		t.Errorf("fallback invoked %d times, want 1", fallback.calls)
	}

	sawFallback := false
	for _, s := range states {
		if s == domain.StateDownloadingFallback {
			sawFallback = true
		}
	}
	if !sawFallback {
		t.Errorf("transitions %v missing fallback state", states)
	}
	if job.State != domain.StatePublished {
		t.Errorf("final state = %s, want published", job.State)
	}
}

func TestRun_BothBackendsFail(t *testing.T) {
	primary := &fakeEngine{name: "primary", downloadErr: errors.New("ERROR: Sign in to confirm your age")}
	fallback := &fakeEngine{name: "fallback", downloadErr: errors.New("ERROR: Sign in to confirm your age")}
	hist := &fakeHistory{}
	o := newTestOrchestrator(primary, fallback, hist)

	job := domain.NewDownloadJob("job-3", "https://example.com/v", "Title", domain.ModeAnyFormat, 7, 7)

	_, err := o.Run(context.Background(), job, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if job.State != domain.StateFailed {
		t.Errorf("final state = %s, want failed", job.State)
	}
	if kind := domain.KindOf(err); kind != domain.FailDownload {
		t.Errorf("failure kind = %s, want download", kind)
	}
	if hint := domain.HintOf(err); hint != string(engine.ReasonAgeRestricted) {
		t.Errorf("hint = %q, want %q", hint, engine.ReasonAgeRestricted)
	}

	if len(hist.entries) != 1 {
		t.Fatalf("history entries = %d, want 1", len(hist.entries))
	}
	e := hist.entries[0]
	if e.State != domain.StateFailed || e.Error == "" {
		t.Errorf("history entry = %+v, want failed with error", e)
	}
	if !strings.Contains(e.Error, "fallback") {
		t.Errorf("history error %q should mention the fallback attempt", e.Error)
	}
}

func TestRun_ProbesWhenTitleUnknown(t *testing.T) {
	primary := &fakeEngine{name: "primary"}
	o := newTestOrchestrator(primary, nil, nil)

	job := domain.NewDownloadJob("job-4", "https://example.com/v", "", domain.ModeSafeFallback, 1, 1)

	var first domain.JobState
	_, err := o.Run(context.Background(), job, func(j *domain.DownloadJob) {
		if first == "" {
			first = j.State
		}
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if first != domain.StateExtractingMetadata {
		t.Errorf("first transition = %s, want extracting_metadata", first)
	}
	if job.Title != "Probed Title" {
		t.Errorf("job title = %q", job.Title)
	}
}

func TestBuildOptions_ModeMapping(t *testing.T) {
	o := newTestOrchestrator(&fakeEngine{name: "p"}, nil, nil)

	tests := []struct {
		mode         domain.DownloadMode
		renditionID  string
		wantExpr     string
		wantMerge    string
		wantExtract  bool
		wantAudioFmt string
	}{
		{domain.ModeSafeFallback, "", "best[ext=mp4]/best", "", false, ""},
		{domain.ModeBestQuality, "", "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best", "mp4", false, ""},
		{domain.ModeAnyFormat, "", "best", "", false, ""},
		{domain.ModeAudioOnly, "", "bestaudio/best", "", true, "mp3"},
		{domain.ModeInteractivePick, "137", "137+ba/b", "mp4", false, ""},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			job := domain.NewDownloadJob("j", "u", "t", tt.mode, 1, 1)
			job.RenditionID = tt.renditionID
			opts := o.buildOptions(job, "")
			if opts.FormatExpr != tt.wantExpr {
				t.Errorf("FormatExpr = %q, want %q", opts.FormatExpr, tt.wantExpr)
			}
			if opts.MergeFormat != tt.wantMerge {
				t.Errorf("MergeFormat = %q, want %q", opts.MergeFormat, tt.wantMerge)
			}
			if opts.ExtractAudio != tt.wantExtract {
				t.Errorf("ExtractAudio = %v, want %v", opts.ExtractAudio, tt.wantExtract)
			}
			if opts.AudioFormat != tt.wantAudioFmt {
				t.Errorf("AudioFormat = %q, want %q", opts.AudioFormat, tt.wantAudioFmt)
			}
			if opts.Retries != 5 || opts.FragmentRetries != 10 {
				t.Errorf("retries = %d/%d, want 5/10", opts.Retries, opts.FragmentRetries)
			}
		})
	}
}
