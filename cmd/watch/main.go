package main

// Submit an Instagram video for analysis (or attach to an existing job) and
// print the analysis sections once it completes:
//   go run ./cmd/watch -url https://www.instagram.com/reel/abc123/
//   go run ./cmd/watch -job 5f0c...

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"video-dashboard/internal/backend"
	"video-dashboard/internal/jobs"
	"video-dashboard/internal/poller"
	"video-dashboard/internal/sections"
	"video-dashboard/internal/shared/config"
	"video-dashboard/internal/shared/telemetry"
)

var errJobNotCompleted = errors.New("job did not complete")

type watchBackend interface {
	poller.StatusFetcher
	SubmitAnalysis(ctx context.Context, req jobs.SubmitRequest) (jobs.SubmitResponse, error)
}

type options struct {
	URL          string
	AnalysisType string
	JobID        string
	BackendURL   string
	Interval     time.Duration
	Timeout      time.Duration
	Tolerant     bool
}

func main() {
	cfg := config.Load()
	telemetry.Configure("ERROR", os.Stderr)

	opts, err := parseFlags(os.Args[1:], cfg)
	if err != nil {
		exitErr(err.Error())
	}

	client, err := backend.NewClient(opts.BackendURL, cfg.BackendTimeout)
	if err != nil {
		exitErr(err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	if err := run(ctx, opts, client, os.Stdout); err != nil {
		exitErr(err.Error())
	}
}

func parseFlags(args []string, cfg config.Config) (options, error) {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var opts options
	fs.StringVar(&opts.URL, "url", "", "Instagram post/reel URL to submit")
	fs.StringVar(&opts.AnalysisType, "type", jobs.DefaultAnalysisType, "Analysis type")
	fs.StringVar(&opts.JobID, "job", "", "Existing job id to watch instead of submitting")
	fs.StringVar(&opts.BackendURL, "backend", cfg.BackendURL, "Backend API base URL")
	fs.DurationVar(&opts.Interval, "interval", cfg.PollInterval, "Poll interval")
	fs.DurationVar(&opts.Timeout, "timeout", 0, "Give up after this long (0 waits forever)")
	fs.BoolVar(&opts.Tolerant, "tolerant", false, "Use tolerant section headings")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	opts.URL = strings.TrimSpace(opts.URL)
	opts.JobID = strings.TrimSpace(opts.JobID)
	switch {
	case opts.URL == "" && opts.JobID == "":
		return options{}, errors.New("either -url or -job is required")
	case opts.URL != "" && opts.JobID != "":
		return options{}, errors.New("-url and -job are mutually exclusive")
	}
	return opts, nil
}

func run(ctx context.Context, opts options, client watchBackend, out io.Writer) error {
	jobID := opts.JobID
	if jobID == "" {
		req, err := jobs.NewSubmitRequest(opts.URL, opts.AnalysisType)
		if err != nil {
			return err
		}
		resp, err := client.SubmitAnalysis(ctx, req)
		if err != nil {
			return fmt.Errorf("submit: %s", backend.ErrorMessage(err))
		}
		jobID = resp.JobID
		fmt.Fprintf(out, "submitted %s (%s)\n", jobID, resp.Status)
	}

	var last jobs.Presentation
	lastPercent := -1.0
	p := poller.New(client, jobID, poller.Options{
		Interval: opts.Interval,
		OnSnapshot: func(job jobs.Job) {
			pres := jobs.PresentationFor(job.Status)
			percent := job.ProgressPercent()
			if pres == last && percent == lastPercent {
				return
			}
			last, lastPercent = pres, percent
			fmt.Fprintf(out, "%s: %s (%.0f%%)\n", jobID, pres.Label, percent)
		},
		OnError: func(err error) {
			fmt.Fprintf(out, "%s: poll error: %s\n", jobID, backend.ErrorMessage(err))
		},
	})
	if err := p.Run(ctx); err != nil {
		return err
	}
	return report(out, p.State(), opts.Tolerant)
}

func report(out io.Writer, state poller.State, tolerant bool) error {
	job := state.Job
	if job == nil {
		return errJobNotCompleted
	}
	if job.Status != jobs.StatusCompleted || job.AnalysisResult == nil {
		msg := job.ErrorMessage
		if msg == "" {
			msg = jobs.PresentationFor(job.Status).Label
		}
		return fmt.Errorf("%w: %s", errJobNotCompleted, msg)
	}

	raw := job.AnalysisResult.Analysis.RawResponse
	segmented := sections.Segment(raw)
	if tolerant {
		segmented = sections.SegmentTolerant(raw)
	}
	tabs := segmented.Tabs()
	if len(tabs) == 0 {
		fmt.Fprintf(out, "\n%s\n", raw)
		return nil
	}
	for _, tab := range tabs {
		fmt.Fprintf(out, "\n== %s ==\n%s\n", tab.Title, tab.Content)
	}
	return nil
}

func exitErr(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
