package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

type command struct {
	name    string
	usage   string
	summary string
	run     func(ctx context.Context, args []string) error
}

var commands = []command{
	{"ingest", "ingest [-config path] <docs-dir>", "chunk and embed markdown procedures", runIngest},
	{"ask", "ask [-module name] [-sources] <question>", "answer a question", runAsk},
	{"rate", "rate <interaction-id> up|down", "rate an answer; up promotes it to the golden cache", runRate},
	{"feedback", "feedback -type t [-category c] [-urgency u] <message>", "submit staff feedback", runFeedback},
	{"analyze", "analyze [-since 168h] [-from RFC3339 -to RFC3339]", "run gap analysis for a period", runAnalyze},
	{"runs", "runs [-limit n]", "list recent analysis runs", runRuns},
	{"gaps", "gaps [-status open|acknowledged|resolved|dismissed] [-v]", "list knowledge gaps", runGaps},
	{"gap-status", "gap-status <gap-id> <status>", "move a gap through its lifecycle", runGapStatus},
	{"sop", "sop <gap-id>", "generate an SOP draft for a gap", runSOP},
	{"serve", "serve [-addr :8080]", "run the HTTP API", runServe},
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: dockhand <command> [options]\n\nCommands:\n")
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "  %-11s %s\n", c.name, c.summary)
	}
	fmt.Fprintf(os.Stderr, "\nRun 'dockhand <command> -h' for command options.\n")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	name := os.Args[1]
	if name == "-h" || name == "--help" || name == "help" {
		usage()
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, c := range commands {
		if c.name != name {
			continue
		}
		if err := c.run(ctx, os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			stop()
			os.Exit(1)
		}
		return
	}

	fmt.Fprintf(os.Stderr, "Unknown command %q\n\n", name)
	usage()
	os.Exit(1)
}
