package gaps

import (
	"fmt"
	"strings"

	"github.com/perbu/dockhand/pkg/dockhand"
)

func buildSummaryPrompt(samples dockhand.SampleSignals) string {
	var b strings.Builder
	b.WriteString("You are helping a warehouse supervisor understand where floor staff lack guidance.\n")
	b.WriteString("The following questions went unanswered and the feedback messages describe the same topic.\n\n")

	if len(samples.Questions) > 0 {
		b.WriteString("Questions:\n")
		for _, q := range samples.Questions {
			fmt.Fprintf(&b, "- %s\n", q)
		}
		b.WriteString("\n")
	}
	if len(samples.Feedback) > 0 {
		b.WriteString("Feedback:\n")
		for _, f := range samples.Feedback {
			fmt.Fprintf(&b, "- %s\n", f)
		}
		b.WriteString("\n")
	}

	b.WriteString(`Respond with JSON only: {"title": "<short topic title, max 80 characters>", "description": "<two sentences describing the missing knowledge>"}`)
	return b.String()
}

func buildSOPPrompt(gap *dockhand.KnowledgeGap) string {
	var b strings.Builder
	b.WriteString("Draft a standard operating procedure for a warehouse team that closes the following knowledge gap.\n\n")
	fmt.Fprintf(&b, "Topic: %s\n", gap.Title)
	fmt.Fprintf(&b, "Description: %s\n", gap.Description)
	if gap.SuggestedModule != "" {
		fmt.Fprintf(&b, "Training module: %s\n", gap.SuggestedModule)
	}

	if len(gap.SampleSignals.Questions) > 0 {
		b.WriteString("\nQuestions staff asked:\n")
		for _, q := range gap.SampleSignals.Questions {
			fmt.Fprintf(&b, "- %s\n", q)
		}
	}
	if len(gap.SampleSignals.Feedback) > 0 {
		b.WriteString("\nFeedback staff gave:\n")
		for _, f := range gap.SampleSignals.Feedback {
			fmt.Fprintf(&b, "- %s\n", f)
		}
	}

	b.WriteString("\nWrite the procedure in markdown with sections Purpose, Scope, Steps and Safety notes. Mark anything you are unsure of as [VERIFY].")
	return b.String()
}
