package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/perbu/dockhand/pkg/api"
	"github.com/perbu/dockhand/pkg/assistant"
	"github.com/perbu/dockhand/pkg/dockhand"
	"github.com/perbu/dockhand/pkg/loader"
)

func runIngest(ctx context.Context, args []string) error {
	fs, configPath := newFlagSet("ingest")
	batch := fs.Int("batch", loader.DefaultBatchSize, "chunks per embedding request")
	parallel := fs.Int("parallel", loader.DefaultConcurrency, "concurrent embedding requests")
	fs.Parse(args)
	if fs.NArg() != 1 {
		return errors.New("usage: dockhand ingest [-config path] <docs-dir>")
	}

	a, err := newApp(*configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	dir := fs.Arg(0)
	fmt.Printf("Ingesting %s (model=%s)...\n", dir, a.emb.ModelInfo())

	ing := loader.NewIngester(a.emb, a.store, *batch, *parallel, a.logger)
	n, err := ing.Ingest(ctx, os.DirFS(dir), ".")
	if err != nil {
		return err
	}

	total, err := a.store.CountChunks(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("✓ Stored %d chunks (%d in database)\n", n, total)
	return nil
}

func runAsk(ctx context.Context, args []string) error {
	fs, configPath := newFlagSet("ask")
	module := fs.String("module", "", "restrict retrieval to one training module")
	sources := fs.Bool("sources", false, "show the passages the answer was grounded on")
	fs.Parse(args)
	if fs.NArg() == 0 {
		return errors.New("usage: dockhand ask [-module name] <question>")
	}

	a, err := newApp(*configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	ans, err := a.assistant.Ask(ctx, strings.Join(fs.Args(), " "), *module)
	if err != nil {
		return err
	}

	fmt.Println(ans.Answer)
	fmt.Println()
	switch {
	case ans.Cached:
		fmt.Printf("(golden answer, similarity %.2f)\n", ans.TopSimilarity)
	case ans.NotFound:
		fmt.Println("(no matching procedure found)")
	default:
		fmt.Printf("(top similarity %.2f, %d queries)\n", ans.TopSimilarity, len(ans.Queries))
	}
	fmt.Printf("Interaction: %s\n", ans.InteractionID)

	if *sources {
		for _, s := range ans.Sources {
			fmt.Printf("  %.2f | %s\n", s.Similarity, s.Chunk.SourceLocator)
		}
	}
	return nil
}

func runRate(ctx context.Context, args []string) error {
	fs, configPath := newFlagSet("rate")
	fs.Parse(args)
	if fs.NArg() != 2 || (fs.Arg(1) != "up" && fs.Arg(1) != "down") {
		return errors.New("usage: dockhand rate <interaction-id> up|down")
	}

	a, err := newApp(*configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.assistant.Rate(ctx, fs.Arg(0), fs.Arg(1) == "up"); err != nil {
		return err
	}
	fmt.Println("✓ Rating recorded")
	return nil
}

func runFeedback(ctx context.Context, args []string) error {
	fs, configPath := newFlagSet("feedback")
	typ := fs.String("type", dockhand.FeedbackSuggestion, "suggestion, complaint, praise or question")
	category := fs.String("category", "", "training, workflow, equipment, safety or other")
	urgency := fs.String("urgency", "", "low, normal or high")
	fs.Parse(args)
	if fs.NArg() == 0 {
		return errors.New("usage: dockhand feedback -type t [-category c] [-urgency u] <message>")
	}

	a, err := newApp(*configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	fb, err := a.assistant.SubmitFeedback(ctx, assistant.FeedbackInput{
		Type:     *typ,
		Category: *category,
		Urgency:  *urgency,
		Message:  strings.Join(fs.Args(), " "),
	})
	if err != nil {
		return err
	}
	fmt.Printf("✓ Feedback %s recorded\n", fb.ID)
	return nil
}

func runAnalyze(ctx context.Context, args []string) error {
	fs, configPath := newFlagSet("analyze")
	since := fs.Duration("since", 0, "analyze this far back from now (default analysis.lookback)")
	from := fs.String("from", "", "period start, RFC3339")
	to := fs.String("to", "", "period end, RFC3339")
	fs.Parse(args)

	a, err := newApp(*configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	lookback := a.cfg.Analysis.Lookback
	if *since > 0 {
		lookback = *since
	}
	start, end, err := analysisPeriod(time.Now().UTC(), lookback, *from, *to)
	if err != nil {
		return err
	}

	// Runs to completion even on interrupt; a half-finished run is marked failed
	run, err := a.analyzer.Run(context.WithoutCancel(ctx), start, end)
	if err != nil {
		if run != nil {
			fmt.Fprintf(os.Stderr, "Run %s failed after persisting %d gaps\n", run.ID, run.GapsFound)
		}
		return err
	}

	fmt.Printf("✓ Run %s: %d signals, %d gaps\n", run.ID, run.TotalSignals, run.GapsFound)
	return nil
}

// analysisPeriod resolves the -from/-to flags. A missing end is now and a
// missing start is lookback before the end.
func analysisPeriod(now time.Time, lookback time.Duration, from, to string) (time.Time, time.Time, error) {
	end := now
	if to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid -to: %w", err)
		}
		end = t
	}
	start := end.Add(-lookback)
	if from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid -from: %w", err)
		}
		start = t
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("period start %s is not before end %s",
			start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return start, end, nil
}

func runRuns(ctx context.Context, args []string) error {
	fs, configPath := newFlagSet("runs")
	limit := fs.Int("limit", 10, "number of runs to show")
	fs.Parse(args)

	a, err := newApp(*configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	runs, err := a.store.ListRuns(ctx, *limit)
	if err != nil {
		return err
	}
	for _, r := range runs {
		fmt.Printf("%s  %-9s  %s .. %s  signals=%d gaps=%d\n", r.ID, r.Status,
			r.PeriodStart.Format(time.DateOnly), r.PeriodEnd.Format(time.DateOnly), r.TotalSignals, r.GapsFound)
	}
	return nil
}

func runGaps(ctx context.Context, args []string) error {
	fs, configPath := newFlagSet("gaps")
	status := fs.String("status", "", "filter by status")
	verbose := fs.Bool("v", false, "show description and sample signals")
	fs.Parse(args)

	st := dockhand.GapStatus(*status)
	if st != "" && !st.Valid() {
		return fmt.Errorf("invalid status %q", *status)
	}

	a, err := newApp(*configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	list, err := a.store.ListGaps(ctx, st)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("No gaps found")
		return nil
	}

	for i, g := range list {
		fmt.Printf("[%s] %-6s %-12s %s (%d signals", g.ID, g.Severity, g.Status, g.Title, g.SignalCount)
		if g.SuggestedModule != "" {
			fmt.Printf(", %s", g.SuggestedModule)
		}
		fmt.Println(")")

		if *verbose {
			fmt.Printf("\n%s\n", g.Description)
			for _, q := range g.SampleSignals.Questions {
				fmt.Printf("  ? %s\n", q)
			}
			for _, f := range g.SampleSignals.Feedback {
				fmt.Printf("  ! %s\n", f)
			}
			if i < len(list)-1 {
				fmt.Println("\n" + strings.Repeat("-", 80) + "\n")
			}
		}
	}
	return nil
}

func runGapStatus(ctx context.Context, args []string) error {
	fs, configPath := newFlagSet("gap-status")
	fs.Parse(args)
	if fs.NArg() != 2 {
		return errors.New("usage: dockhand gap-status <gap-id> <status>")
	}
	next := dockhand.GapStatus(fs.Arg(1))
	if !next.Valid() {
		return fmt.Errorf("invalid status %q", fs.Arg(1))
	}

	a, err := newApp(*configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	gap, err := a.store.UpdateGapStatus(ctx, fs.Arg(0), next, time.Now().UTC())
	if err != nil {
		return err
	}
	fmt.Printf("✓ Gap %s is now %s\n", gap.ID, gap.Status)
	return nil
}

func runSOP(ctx context.Context, args []string) error {
	fs, configPath := newFlagSet("sop")
	fs.Parse(args)
	if fs.NArg() != 1 {
		return errors.New("usage: dockhand sop <gap-id>")
	}

	a, err := newApp(*configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	gap, err := a.drafter.Draft(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	fmt.Println(*gap.SOPDraft)
	return nil
}

func runServe(ctx context.Context, args []string) error {
	fs, configPath := newFlagSet("serve")
	addr := fs.String("addr", "", "listen address (default server.addr)")
	fs.Parse(args)

	a, err := newApp(*configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	listen := a.cfg.Server.Addr
	if *addr != "" {
		listen = *addr
	}

	if !a.cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	h := api.NewHandler(a.assistant, a.analyzer, a.drafter, a.store, a.cfg.Analysis.Lookback, a.logger)
	srv := &http.Server{
		Addr:              listen,
		Handler:           api.NewRouter(h, a.logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", zap.String("addr", listen))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
