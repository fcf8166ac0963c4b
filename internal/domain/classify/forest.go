package classify

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/okian/aula/internal/domain/model"
)

// artifactFormat is the only artifact revision this build understands.
const artifactFormat = "stress-forest/v1"

// forestNode is one decision node. Leaf < 0 marks an internal node that
// compares features[Feature] <= Threshold and descends Left or Right;
// Leaf >= 0 is a class index into the artifact's class list.
type forestNode struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Leaf      int     `json:"leaf"`
}

type forestTree struct {
	Nodes []forestNode `json:"nodes"`
}

// forestArtifact mirrors the JSON export of the offline trainer.
type forestArtifact struct {
	Format   string       `json:"format"`
	Features []string     `json:"features"`
	Classes  []string     `json:"classes"`
	Trees    []forestTree `json:"trees"`
}

// Forest is the process-scoped classifier handle: a read-only decision
// forest loaded once at startup and shared by every submission.
type Forest struct {
	classes []model.Level
	trees   []forestTree
}

// Load reads and validates a forest artifact. Every structural invariant is
// checked up front so prediction never indexes out of range.
func Load(path string) (*Forest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	var art forestArtifact
	if err := json.Unmarshal(raw, &art); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArtifact, err)
	}
	if art.Format != artifactFormat {
		return nil, fmt.Errorf("%w: unsupported format %q", ErrInvalidArtifact, art.Format)
	}
	if err := checkFeatureOrder(art.Features); err != nil {
		return nil, err
	}

	classes := make([]model.Level, len(art.Classes))
	for i, raw := range art.Classes {
		level, ok := model.ParseLevel(raw)
		if !ok {
			return nil, fmt.Errorf("%w: unknown class %q", ErrInvalidArtifact, raw)
		}
		classes[i] = level
	}
	if len(classes) == 0 {
		return nil, fmt.Errorf("%w: no classes", ErrInvalidArtifact)
	}

	if len(art.Trees) == 0 {
		return nil, fmt.Errorf("%w: no trees", ErrInvalidArtifact)
	}
	for ti, tree := range art.Trees {
		if err := checkTree(tree, len(classes)); err != nil {
			return nil, fmt.Errorf("%w: tree %d: %w", ErrInvalidArtifact, ti, err)
		}
	}

	return &Forest{classes: classes, trees: art.Trees}, nil
}

// checkFeatureOrder rejects artifacts trained against a different feature
// table. The comparison is exact and ordered.
func checkFeatureOrder(features []string) error {
	if len(features) != len(FeatureColumns) {
		return fmt.Errorf("%w: expected %d features, got %d",
			ErrInvalidArtifact, len(FeatureColumns), len(features))
	}
	for i, want := range FeatureColumns {
		if features[i] != want {
			return fmt.Errorf("%w: feature %d is %q, want %q",
				ErrInvalidArtifact, i, features[i], want)
		}
	}
	return nil
}

func checkTree(tree forestTree, classCount int) error {
	if len(tree.Nodes) == 0 {
		return fmt.Errorf("empty tree")
	}
	for i, n := range tree.Nodes {
		if n.Leaf >= 0 {
			if n.Leaf >= classCount {
				return fmt.Errorf("node %d: leaf class %d out of range", i, n.Leaf)
			}
			continue
		}
		if n.Feature < 0 || n.Feature >= len(FeatureColumns) {
			return fmt.Errorf("node %d: feature %d out of range", i, n.Feature)
		}
		if n.Left <= i || n.Left >= len(tree.Nodes) || n.Right <= i || n.Right >= len(tree.Nodes) {
			// Children must point forward to keep traversal acyclic.
			return fmt.Errorf("node %d: child index out of range", i)
		}
	}
	return nil
}

// Predict walks every tree and returns the majority class; ties resolve to
// the first class reaching the maximum vote. Deterministic for identical
// inputs.
func (f *Forest) Predict(features []float64) (model.Level, error) {
	if len(features) != len(FeatureColumns) {
		return "", fmt.Errorf("%w: got %d values, want %d",
			ErrBadFeatures, len(features), len(FeatureColumns))
	}

	votes := make([]int, len(f.classes))
	for _, tree := range f.trees {
		votes[walkTree(tree, features)]++
	}

	best := 0
	for i, v := range votes {
		if v > votes[best] {
			best = i
		}
	}
	return f.classes[best], nil
}

func walkTree(tree forestTree, features []float64) int {
	i := 0
	for {
		n := tree.Nodes[i]
		if n.Leaf >= 0 {
			return n.Leaf
		}
		if features[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}
