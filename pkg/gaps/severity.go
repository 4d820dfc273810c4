package gaps

import (
	"sort"

	"github.com/perbu/dockhand/pkg/dockhand"
)

// Severity scores how urgently a cluster needs attention
func Severity(c *Cluster) dockhand.Severity {
	total := c.Size()

	var urgent, complaint, negative bool
	for _, m := range c.Members {
		switch m.Kind {
		case KindFeedback:
			urgent = urgent || m.Urgency == dockhand.UrgencyHigh
			complaint = complaint || m.Complaint
		case KindQuestion:
			negative = negative || m.NegativelyRated
		}
	}

	switch {
	case total >= 5, urgent, complaint && total >= 3:
		return dockhand.SeverityHigh
	case total >= 3, negative, complaint:
		return dockhand.SeverityMedium
	default:
		return dockhand.SeverityLow
	}
}

// SuggestModule infers the training module a cluster belongs to by weighted
// vote. Questions vote for their module hint, feedback for the module its
// category maps to. Equal votes go to the alphabetically first module.
// Returns "" when no member carries a hint.
func SuggestModule(c *Cluster, policy SignalPolicy) string {
	if policy == nil {
		policy = DefaultPolicy
	}

	votes := make(map[string]float64)
	for _, m := range c.Members {
		var module string
		switch m.Kind {
		case KindQuestion:
			module = m.ModuleHint
		case KindFeedback:
			module = CategoryModules[m.CategoryHint]
		}
		if module == "" {
			continue
		}
		votes[module] += policy[m.Kind].ModuleWeight
	}

	modules := make([]string, 0, len(votes))
	for m := range votes {
		modules = append(modules, m)
	}
	sort.Strings(modules)

	winner := ""
	for _, m := range modules {
		if winner == "" || votes[m] > votes[winner] {
			winner = m
		}
	}
	return winner
}

// Samples returns the bounded sample of member texts kept with a gap
func Samples(c *Cluster) dockhand.SampleSignals {
	samples := dockhand.SampleSignals{Questions: []string{}, Feedback: []string{}}
	for _, m := range c.Members {
		switch m.Kind {
		case KindQuestion:
			if len(samples.Questions) < dockhand.MaxSampleQuestions {
				samples.Questions = append(samples.Questions, m.Text)
			}
		case KindFeedback:
			if len(samples.Feedback) < dockhand.MaxSampleFeedback {
				samples.Feedback = append(samples.Feedback, m.Text)
			}
		}
	}
	return samples
}
