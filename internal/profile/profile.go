// Package profile maintains an incremental Time-Price-Opportunity market
// profile: a count of how often price touched each one-pip level, with the
// point of control and 70% value area derived from it.
package profile

import (
	"fmt"
	"math"
	"sort"
	"time"

	"PipGauge/internal/model"
)

// State tracks the aggregator lifecycle. There is no terminal state; the
// profile lives until its display is torn down.
type State int

const (
	Uninitialized State = iota
	Built
	Updating
)

// DefaultValueAreaRatio is the share of total touches the value area targets.
const DefaultValueAreaRatio = 0.70

// Bucket is one quantized price level in the profile.
type Bucket struct {
	Level       float64
	Count       int64
	FirstSeenAt time.Time
}

// ValueArea is the contiguous price band around the POC holding at least the
// target share of all touches.
type ValueArea struct {
	Low   float64
	High  float64
	Count int64
}

// Aggregator buckets bars and ticks into fixed one-pip price levels.
//
// Both Build and Tick quantize prices to the nearest bucket boundary
// (round(price/bucketSize)); the two paths must share one rounding rule or
// historical and live counts land in different buckets and the POC drifts.
type Aggregator struct {
	bucketSize float64
	vaRatio    float64
	state      State

	buckets  map[int64]*Bucket
	total    int64
	levelSum int64 // sum of occupied level indexes, feeds the POC tie-break mean

	pocIdx   int64
	pocCount int64
	pocDirty bool

	va      ValueArea
	vaDirty bool

	now func() time.Time
}

// New creates an empty aggregator for the given bucket width.
func New(bucketSize, valueAreaRatio float64) (*Aggregator, error) {
	if bucketSize <= 0 || math.IsNaN(bucketSize) || math.IsInf(bucketSize, 0) {
		return nil, fmt.Errorf("invalid bucket size %v", bucketSize)
	}
	if valueAreaRatio <= 0 || valueAreaRatio > 1 {
		valueAreaRatio = DefaultValueAreaRatio
	}
	return &Aggregator{
		bucketSize: bucketSize,
		vaRatio:    valueAreaRatio,
		buckets:    make(map[int64]*Bucket),
		now:        time.Now,
	}, nil
}

// ForSymbol creates an aggregator sized to one pip of the given symbol.
func ForSymbol(meta model.SymbolMeta, valueAreaRatio float64) (*Aggregator, error) {
	if err := meta.Validate(); err != nil {
		return nil, fmt.Errorf("profile bucket sizing: %w", err)
	}
	return New(meta.BucketSize(), valueAreaRatio)
}

func (a *Aggregator) levelIndex(price float64) int64 {
	return int64(math.Round(price / a.bucketSize))
}

func (a *Aggregator) levelPrice(idx int64) float64 {
	return float64(idx) * a.bucketSize
}

// Build seeds the profile from historical bars: each bar touches every level
// in the inclusive [low, high] range once. Any previous content is discarded.
func (a *Aggregator) Build(bars []model.Bar) {
	a.clear()
	for _, bar := range bars {
		lo := a.levelIndex(bar.Low)
		hi := a.levelIndex(bar.High)
		if hi < lo {
			lo, hi = hi, lo
		}
		for idx := lo; idx <= hi; idx++ {
			a.touch(idx)
		}
	}
	a.state = Built
}

// Tick applies one live price: quantize, increment, O(1). Non-finite or
// non-positive prices are dropped and reported false.
func (a *Aggregator) Tick(price float64) bool {
	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return false
	}
	a.touch(a.levelIndex(price))
	a.state = Updating
	return true
}

func (a *Aggregator) touch(idx int64) {
	b := a.buckets[idx]
	if b == nil {
		b = &Bucket{Level: a.levelPrice(idx), FirstSeenAt: a.now()}
		a.buckets[idx] = b
		a.levelSum += idx
	}
	b.Count++
	a.total++
	a.vaDirty = true
	// POC only moves when the touched bucket reaches the current leader.
	if b.Count >= a.pocCount {
		a.pocDirty = true
	}
}

// POC returns the point of control: the bucket with the maximum count, ties
// broken by the level closest to the arithmetic mean of all occupied levels,
// then by the lower level. Recomputed lazily.
func (a *Aggregator) POC() (Bucket, bool) {
	if a.total == 0 {
		return Bucket{}, false
	}
	if a.pocDirty {
		a.recomputePOC()
	}
	return *a.buckets[a.pocIdx], true
}

func (a *Aggregator) recomputePOC() {
	mean := float64(a.levelSum) / float64(len(a.buckets))
	first := true
	var bestIdx int64
	var bestCount int64
	for idx, b := range a.buckets {
		if first || better(idx, b.Count, bestIdx, bestCount, mean) {
			bestIdx, bestCount = idx, b.Count
			first = false
		}
	}
	a.pocIdx, a.pocCount = bestIdx, bestCount
	a.pocDirty = false
}

// better reports whether candidate (idx, count) beats the current best.
// Map iteration order is random, so every comparison must be a total order.
func better(idx, count, bestIdx, bestCount int64, mean float64) bool {
	if count != bestCount {
		return count > bestCount
	}
	d, bd := math.Abs(float64(idx)-mean), math.Abs(float64(bestIdx)-mean)
	if d != bd {
		return d < bd
	}
	return idx < bestIdx
}

// ValueAreaBand returns the cached value area, recomputing it only when the
// profile changed since the last call. Intended to be read once per rendered
// frame, not per data tick.
func (a *Aggregator) ValueAreaBand() (ValueArea, bool) {
	if a.total == 0 {
		return ValueArea{}, false
	}
	if a.vaDirty {
		a.recomputeValueArea()
	}
	return a.va, true
}

func (a *Aggregator) recomputeValueArea() {
	if a.pocDirty {
		a.recomputePOC()
	}
	idxs := a.sortedIndexes()
	pos := sort.Search(len(idxs), func(i int) bool { return idxs[i] >= a.pocIdx })

	lo, hi := pos, pos
	acc := a.buckets[idxs[pos]].Count
	target := int64(math.Ceil(a.vaRatio * float64(a.total)))

	// Greedy expansion outward from the POC: each step takes the side with
	// the higher adjacent count, ties going up.
	for acc < target && (lo > 0 || hi < len(idxs)-1) {
		var below, above int64 = -1, -1
		if lo > 0 {
			below = a.buckets[idxs[lo-1]].Count
		}
		if hi < len(idxs)-1 {
			above = a.buckets[idxs[hi+1]].Count
		}
		if above >= below {
			hi++
			acc += above
		} else {
			lo--
			acc += below
		}
	}
	a.va = ValueArea{
		Low:   a.levelPrice(idxs[lo]),
		High:  a.levelPrice(idxs[hi]),
		Count: acc,
	}
	a.vaDirty = false
}

func (a *Aggregator) sortedIndexes() []int64 {
	idxs := make([]int64, 0, len(a.buckets))
	for idx := range a.buckets {
		idxs = append(idxs, idx)
	}
	sort.Slice(idxs, func(i, j int) bool { return idxs[i] < idxs[j] })
	return idxs
}

// Levels returns all buckets in ascending price order, for rendering.
func (a *Aggregator) Levels() []Bucket {
	idxs := a.sortedIndexes()
	out := make([]Bucket, 0, len(idxs))
	for _, idx := range idxs {
		out = append(out, *a.buckets[idx])
	}
	return out
}

// MaxCount returns the POC count, used to scale histogram bar widths.
func (a *Aggregator) MaxCount() int64 {
	if poc, ok := a.POC(); ok {
		return poc.Count
	}
	return 0
}

// Total is the number of touches recorded across all buckets.
func (a *Aggregator) Total() int64 { return a.total }

// Len is the number of occupied price levels.
func (a *Aggregator) Len() int { return len(a.buckets) }

// BucketSize is the fixed level width, one pip.
func (a *Aggregator) BucketSize() float64 { return a.bucketSize }

// State reports the lifecycle phase.
func (a *Aggregator) State() State { return a.state }

// Reset discards everything on session or symbol change.
func (a *Aggregator) Reset() {
	a.clear()
	a.state = Uninitialized
}

func (a *Aggregator) clear() {
	a.buckets = make(map[int64]*Bucket)
	a.total = 0
	a.levelSum = 0
	a.pocIdx = 0
	a.pocCount = 0
	a.pocDirty = false
	a.va = ValueArea{}
	a.vaDirty = false
}
