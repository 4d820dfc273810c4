package gaps

import "github.com/perbu/dockhand/pkg/dockhand"

// MinClusterSize is the smallest cluster reported as a recurring gap
const MinClusterSize = 2

// Cluster is a group of signals about one topic.
// Centroid is always the mean of the member embeddings.
type Cluster struct {
	Members  []Signal
	Centroid []float32

	sum []float64
}

func newCluster(s Signal) *Cluster {
	c := &Cluster{sum: make([]float64, len(s.Embedding))}
	c.add(s)
	return c
}

// add appends a member and recomputes the centroid from the running sum
func (c *Cluster) add(s Signal) {
	c.Members = append(c.Members, s)
	for i := range c.sum {
		if i < len(s.Embedding) {
			c.sum[i] += float64(s.Embedding[i])
		}
	}

	n := float64(len(c.Members))
	centroid := make([]float32, len(c.sum))
	for i, v := range c.sum {
		centroid[i] = float32(v / n)
	}
	c.Centroid = centroid
}

// Size returns the number of members
func (c *Cluster) Size() int {
	return len(c.Members)
}

// QuestionCount returns the number of question members
func (c *Cluster) QuestionCount() int {
	return c.count(KindQuestion)
}

// FeedbackCount returns the number of feedback members
func (c *Cluster) FeedbackCount() int {
	return c.count(KindFeedback)
}

func (c *Cluster) count(kind SignalKind) int {
	n := 0
	for _, m := range c.Members {
		if m.Kind == kind {
			n++
		}
	}
	return n
}

// Clusterer groups signals with an online, greedy, single-pass algorithm
type Clusterer struct {
	policy SignalPolicy
}

// NewClusterer creates a clusterer. A nil policy selects DefaultPolicy.
func NewClusterer(policy SignalPolicy) *Clusterer {
	if policy == nil {
		policy = DefaultPolicy
	}
	return &Clusterer{policy: policy}
}

// Cluster assigns every question, then every feedback item, in the order
// given. Each signal joins the cluster whose centroid is most similar if the
// similarity exceeds its kind's join threshold, otherwise it starts a new
// cluster. Clusters smaller than MinClusterSize are discarded. Signals
// without an embedding are ignored.
func (c *Clusterer) Cluster(questions, feedback []Signal) []*Cluster {
	var clusters []*Cluster
	for _, s := range questions {
		clusters = c.assign(clusters, s)
	}
	for _, s := range feedback {
		clusters = c.assign(clusters, s)
	}
	return survivors(clusters)
}

func (c *Clusterer) assign(clusters []*Cluster, s Signal) []*Cluster {
	if len(s.Embedding) == 0 {
		return clusters
	}

	var best *Cluster
	bestSim := 0.0
	for _, cl := range clusters {
		sim := dockhand.CosineSimilarity(s.Embedding, cl.Centroid)
		// strict comparison keeps the earliest cluster on ties
		if best == nil || sim > bestSim {
			best, bestSim = cl, sim
		}
	}

	if best != nil && bestSim > c.policy[s.Kind].JoinThreshold {
		best.add(s)
		return clusters
	}
	return append(clusters, newCluster(s))
}

func survivors(clusters []*Cluster) []*Cluster {
	out := make([]*Cluster, 0, len(clusters))
	for _, cl := range clusters {
		if cl.QuestionCount()+cl.FeedbackCount() >= MinClusterSize {
			out = append(out, cl)
		}
	}
	return out
}
