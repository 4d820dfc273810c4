package gaps

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perbu/dockhand/pkg/dockhand"
)

func question(text string, emb []float32) Signal {
	return Signal{Kind: KindQuestion, Text: text, Embedding: emb, SourceID: text}
}

func feedback(text string, emb []float32) Signal {
	return Signal{Kind: KindFeedback, Text: text, Embedding: emb, SourceID: text}
}

func memberEmbeddings(c *Cluster) [][]float32 {
	out := make([][]float32, len(c.Members))
	for i, m := range c.Members {
		out[i] = m.Embedding
	}
	return out
}

func TestSingleTopicFormsOneCluster(t *testing.T) {
	questions := []Signal{
		question("where do damaged pallets go", vec(0)),
		question("damaged pallet drop zone", vec(0.15)),
		question("what to do with broken pallets", vec(0.3)),
	}

	clusters := NewClusterer(nil).Cluster(questions, nil)
	require.Len(t, clusters, 1)
	assert.Equal(t, 3, clusters[0].QuestionCount())
	assert.Equal(t, 0, clusters[0].FeedbackCount())
}

func TestSingletonIsDiscarded(t *testing.T) {
	clusters := NewClusterer(nil).Cluster([]Signal{question("lonely", vec(0))}, nil)
	assert.Empty(t, clusters)
}

func TestUnrelatedSignalsStaySeparate(t *testing.T) {
	questions := []Signal{
		question("a1", vec(0)),
		question("b1", vec(1.5)),
		question("a2", vec(0.1)),
		question("c1", vec(3.0)),
	}

	clusters := NewClusterer(nil).Cluster(questions, nil)
	require.Len(t, clusters, 1)
	assert.Equal(t, []string{"a1", "a2"}, []string{clusters[0].Members[0].Text, clusters[0].Members[1].Text})
}

func TestFeedbackUsesLooserThreshold(t *testing.T) {
	// cos(0.68) ≈ 0.778: above the feedback threshold, below the question threshold
	anchor := question("anchor", vec(0))

	withQuestion := NewClusterer(nil).Cluster([]Signal{anchor, question("q", vec(0.68))}, nil)
	assert.Empty(t, withQuestion, "question at 0.778 must not join")

	withFeedback := NewClusterer(nil).Cluster([]Signal{anchor}, []Signal{feedback("f", vec(0.68))})
	require.Len(t, withFeedback, 1)
	assert.Equal(t, 1, withFeedback[0].QuestionCount())
	assert.Equal(t, 1, withFeedback[0].FeedbackCount())
}

func TestFeedbackFormsFeedbackOnlyClusters(t *testing.T) {
	clusters := NewClusterer(nil).Cluster(nil, []Signal{
		feedback("scanner battery dies", vec(2)),
		feedback("scanner batteries die mid shift", vec(2.1)),
	})
	require.Len(t, clusters, 1)
	assert.Equal(t, 2, clusters[0].FeedbackCount())
}

func TestQuestionsAreAssignedBeforeFeedback(t *testing.T) {
	// Feedback is listed separately and lands after the questions it joins
	questions := []Signal{question("q1", vec(0)), question("q2", vec(0.1))}
	fb := []Signal{feedback("f1", vec(0.35))}

	clusters := NewClusterer(nil).Cluster(questions, fb)
	require.Len(t, clusters, 1)
	assert.Equal(t, 3, clusters[0].Size())
	assert.Equal(t, KindFeedback, clusters[0].Members[2].Kind)
}

func TestSignalJoinsNearestCluster(t *testing.T) {
	c := NewClusterer(SignalPolicy{
		KindQuestion: {JoinThreshold: 0.5, ModuleWeight: 1},
		KindFeedback: {JoinThreshold: 0.5, ModuleWeight: 0.5},
	})

	var clusters []*Cluster
	clusters = c.assign(clusters, question("left", vec(0)))
	clusters = c.assign(clusters, question("right", vec(1.2)))
	require.Len(t, clusters, 2)

	clusters = c.assign(clusters, question("closer to right", vec(0.9)))
	require.Len(t, clusters, 2)
	assert.Equal(t, 1, clusters[0].Size())
	assert.Equal(t, 2, clusters[1].Size())
}

func TestSignalsWithoutEmbeddingAreIgnored(t *testing.T) {
	clusters := NewClusterer(nil).Cluster([]Signal{
		question("a", vec(0)),
		question("no vector", nil),
		question("b", vec(0.05)),
	}, nil)
	require.Len(t, clusters, 1)
	assert.Equal(t, 2, clusters[0].Size())
}

func TestCentroidIsMeanAfterEveryJoin(t *testing.T) {
	c := NewClusterer(nil)
	signals := []Signal{
		question("a", vec(0)), question("b", vec(0.2)), question("c", vec(2)),
		question("d", vec(0.1)), question("e", vec(2.2)), question("f", vec(0.3)),
		feedback("g", vec(2.1)), feedback("h", vec(0.05)),
	}

	var clusters []*Cluster
	for _, s := range signals {
		clusters = c.assign(clusters, s)
		for _, cl := range clusters {
			want := dockhand.Centroid(memberEmbeddings(cl))
			require.Len(t, cl.Centroid, len(want))
			for i := range want {
				assert.InDelta(t, want[i], cl.Centroid[i], 1e-6)
			}
		}
	}
}

func TestClusteringIsDeterministic(t *testing.T) {
	var questions, fb []Signal
	for i := 0; i < 40; i++ {
		questions = append(questions, question(string(rune('a'+i%26)), vec(float64(i%7)*0.45+float64(i)*0.01)))
	}
	for i := 0; i < 15; i++ {
		fb = append(fb, feedback(string(rune('A'+i)), vec(float64(i%5)*0.6)))
	}

	first := NewClusterer(nil).Cluster(questions, fb)
	second := NewClusterer(nil).Cluster(questions, fb)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Members, second[i].Members)
		assert.Equal(t, first[i].Centroid, second[i].Centroid)
	}
}

func TestNoSurvivorBelowMinimumSize(t *testing.T) {
	var questions []Signal
	for i := 0; i < 20; i++ {
		questions = append(questions, question("q", vec(float64(i)*0.9)))
	}
	for _, cl := range NewClusterer(nil).Cluster(questions, nil) {
		assert.GreaterOrEqual(t, cl.QuestionCount()+cl.FeedbackCount(), MinClusterSize)
	}
}
