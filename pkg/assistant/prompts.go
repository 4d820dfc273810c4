package assistant

import (
	"fmt"
	"strings"

	"github.com/perbu/dockhand/pkg/dockhand"
)

func buildExpansionPrompt(question string, n int) string {
	return fmt.Sprintf(`A warehouse worker asked the question below. Write up to %d alternative search queries that could find the answer in procedure documents. Use warehouse terminology and vary the wording.

Question: %s

Respond with JSON only: {"queries": ["...", "..."]}`, n, question)
}

func buildAnswerPrompt(question string, chunks []dockhand.ScoredChunk) string {
	var b strings.Builder
	b.WriteString("You answer questions from warehouse floor staff using only the procedure excerpts below.\n")
	b.WriteString("If the excerpts do not contain the answer, say you couldn't find it and set not_found to true.\n\n")

	for i, c := range chunks {
		fmt.Fprintf(&b, "[%d] %s (%s)\n%s\n\n", i+1, c.Chunk.DocTitle, c.Chunk.SourceLocator, c.Chunk.Text)
	}

	fmt.Fprintf(&b, "Question: %s\n\n", question)
	b.WriteString(`Respond with JSON only: {"answer": "<answer for the worker>", "not_found": false}`)
	return b.String()
}
