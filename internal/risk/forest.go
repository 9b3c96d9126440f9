package risk

import (
	"context"
	"math"
	"math/rand/v2"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"
)

// ForestParams controls random-forest construction.
type ForestParams struct {
	Trees int
	Seed  int64
	// MaxFeatures is the number of candidate columns drawn per split.
	// Zero means floor(sqrt(FeatureCount)).
	MaxFeatures int
	// MinSamplesSplit is the smallest node that may be split. Zero means 2.
	MinSamplesSplit int
}

func (p ForestParams) withDefaults() ForestParams {
	if p.Trees <= 0 {
		p.Trees = 100
	}
	if p.MaxFeatures <= 0 || p.MaxFeatures > FeatureCount {
		p.MaxFeatures = max(1, int(math.Sqrt(FeatureCount)))
	}
	if p.MinSamplesSplit < 2 {
		p.MinSamplesSplit = 2
	}
	return p
}

// forest is an immutable ensemble of classification trees.
type forest struct {
	trees []tree
}

// tree stores nodes in a flat slice; index 0 is the root.
type tree struct {
	nodes []node
}

type node struct {
	leaf      bool
	feature   int
	threshold float64
	left      int32
	right     int32
	// positive is the fraction of bootstrap samples in the leaf labelled 1.
	positive float64
}

// fitForest grows p.Trees CART trees on bootstrap resamples of (x, y). Each
// tree draws from its own generator seeded from (p.Seed, tree index), so the
// result does not depend on goroutine scheduling.
func fitForest(ctx context.Context, x []FeatureVector, y []int, p ForestParams) (*forest, error) {
	p = p.withDefaults()
	f := &forest{trees: make([]tree, p.Trees)}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range p.Trees {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewPCG(uint64(p.Seed), uint64(i)))
			f.trees[i] = growTree(x, y, bootstrap(rng, len(x)), rng, p)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return f, nil
}

// predict returns the mean positive fraction across trees and the share of
// trees whose vote agrees with the ensemble's majority class.
func (f *forest) predict(v FeatureVector) (probability, confidence float64) {
	if len(f.trees) == 0 {
		return SentinelProbability, SentinelConfidence
	}

	var sum float64
	votes := 0
	for i := range f.trees {
		p := f.trees[i].leafFraction(v)
		sum += p
		if p > 0.5 {
			votes++
		}
	}
	n := float64(len(f.trees))
	probability = sum / n

	agree := len(f.trees) - votes
	if probability > 0.5 {
		agree = votes
	}
	return probability, float64(agree) / n
}

func (t *tree) leafFraction(v FeatureVector) float64 {
	i := int32(0)
	for {
		nd := &t.nodes[i]
		if nd.leaf {
			return nd.positive
		}
		if v[nd.feature] <= nd.threshold {
			i = nd.left
		} else {
			i = nd.right
		}
	}
}

func bootstrap(rng *rand.Rand, n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = rng.IntN(n)
	}
	return idx
}

type treeBuilder struct {
	x     []FeatureVector
	y     []int
	rng   *rand.Rand
	p     ForestParams
	nodes []node
}

func growTree(x []FeatureVector, y []int, sample []int, rng *rand.Rand, p ForestParams) tree {
	b := &treeBuilder{x: x, y: y, rng: rng, p: p}
	b.build(sample)
	return tree{nodes: b.nodes}
}

// build appends the subtree for sample and returns its root index.
func (b *treeBuilder) build(sample []int) int32 {
	idx := int32(len(b.nodes))
	b.nodes = append(b.nodes, node{})

	pos := 0
	for _, s := range sample {
		pos += b.y[s]
	}
	fraction := float64(pos) / float64(len(sample))

	if pos == 0 || pos == len(sample) || len(sample) < b.p.MinSamplesSplit {
		b.nodes[idx] = node{leaf: true, positive: fraction}
		return idx
	}

	feature, threshold, ok := b.bestSplit(sample, pos)
	if !ok {
		b.nodes[idx] = node{leaf: true, positive: fraction}
		return idx
	}

	var left, right []int
	for _, s := range sample {
		if b.x[s][feature] <= threshold {
			left = append(left, s)
		} else {
			right = append(right, s)
		}
	}

	l := b.build(left)
	r := b.build(right)
	b.nodes[idx] = node{feature: feature, threshold: threshold, left: l, right: r, positive: fraction}
	return idx
}

// bestSplit searches at least MaxFeatures randomly ordered columns for the
// threshold minimising weighted Gini impurity, continuing past MaxFeatures
// only while no valid split has been found.
func (b *treeBuilder) bestSplit(sample []int, pos int) (feature int, threshold float64, ok bool) {
	order := b.rng.Perm(FeatureCount)
	sorted := make([]int, len(sample))
	n := float64(len(sample))
	best := math.Inf(1)

	for tried, f := range order {
		if tried >= b.p.MaxFeatures && ok {
			break
		}

		copy(sorted, sample)
		slices.SortFunc(sorted, func(a, c int) int {
			switch va, vc := b.x[a][f], b.x[c][f]; {
			case va < vc:
				return -1
			case va > vc:
				return 1
			}
			return 0
		})

		leftPos := 0
		for i := 0; i < len(sorted)-1; i++ {
			leftPos += b.y[sorted[i]]
			lo, hi := b.x[sorted[i]][f], b.x[sorted[i+1]][f]
			if lo == hi {
				continue
			}
			nl := float64(i + 1)
			nr := n - nl
			score := nl*gini(float64(leftPos), nl) + nr*gini(float64(pos-leftPos), nr)
			if score < best {
				best = score
				feature = f
				threshold = lo + (hi-lo)/2
				if threshold >= hi {
					threshold = lo
				}
				ok = true
			}
		}
	}
	return feature, threshold, ok
}

func gini(positive, total float64) float64 {
	p := positive / total
	return 1 - p*p - (1-p)*(1-p)
}
