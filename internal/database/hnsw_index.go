package database

import (
	"errors"
	"sync"

	"github.com/coder/hnsw"
)

// hnswMaxNeighbors (M) is the maximum number of neighbors per graph node.
const hnswMaxNeighbors = 16

// SampleIndex is an in-memory HNSW graph over face sample fingerprints,
// used to answer look-alike queries without scanning the store.
type SampleIndex struct {
	graph      *hnsw.Graph[int64]
	idToSample map[int64]*FaceSample
	mu         sync.RWMutex
}

// NewSampleIndex creates an empty sample index.
func NewSampleIndex() *SampleIndex {
	return &SampleIndex{
		idToSample: make(map[int64]*FaceSample),
	}
}

func newGraph() *hnsw.Graph[int64] {
	g := hnsw.NewGraph[int64]()
	g.M = hnswMaxNeighbors
	g.Ml = 1.0 / float64(hnswMaxNeighbors)
	g.Distance = hnsw.CosineDistance
	return g
}

// Build replaces the index contents with the given samples.
func (x *SampleIndex) Build(samples []FaceSample) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if len(samples) == 0 {
		x.graph = nil
		x.idToSample = make(map[int64]*FaceSample)
		return nil
	}

	g := newGraph()
	x.idToSample = make(map[int64]*FaceSample, len(samples))
	for i := range samples {
		s := &samples[i]
		if len(s.Fingerprint) == 0 {
			continue
		}
		g.Add(hnsw.MakeNode(s.ID, s.Fingerprint))
		x.idToSample[s.ID] = s
	}
	x.graph = g
	return nil
}

// Add inserts a single sample into the index.
func (x *SampleIndex) Add(s *FaceSample) {
	if len(s.Fingerprint) == 0 {
		return
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	if x.graph == nil {
		x.graph = newGraph()
	}
	x.graph.Add(hnsw.MakeNode(s.ID, s.Fingerprint))
	x.idToSample[s.ID] = s
}

// Search returns the k stored samples nearest to the query fingerprint,
// nearest first.
func (x *SampleIndex) Search(query []float32, k int) ([]SampleMatch, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.graph == nil {
		return nil, errors.New("sample index not initialized")
	}

	neighbors := x.graph.Search(query, k)
	matches := make([]SampleMatch, 0, len(neighbors))
	for _, n := range neighbors {
		s, ok := x.idToSample[n.Key]
		if !ok {
			continue
		}
		matches = append(matches, SampleMatch{
			Sample:   *s,
			Distance: CosineDistance(query, n.Value),
		})
	}
	return matches, nil
}

// Count returns the number of indexed samples.
func (x *SampleIndex) Count() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.idToSample)
}
