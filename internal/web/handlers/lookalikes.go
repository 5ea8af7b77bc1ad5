package handlers

import (
	"errors"
	"log"
	"net/http"
	"sort"
	"strconv"

	"github.com/kozaktomas/roll-call/internal/database"
)

// defaultLookalikeNeighbors is how many nearest samples are inspected per
// query sample.
const defaultLookalikeNeighbors = 10

// LookalikesHandler reports which other subjects have face samples visually
// close to a subject's own. Close fingerprints are an operational warning:
// the classifier is more likely to confuse those subjects.
type LookalikesHandler struct {
	store database.Store
	index *database.SampleIndex
}

func NewLookalikesHandler(store database.Store, index *database.SampleIndex) *LookalikesHandler {
	return &LookalikesHandler{store: store, index: index}
}

type lookalikeResponse struct {
	SubjectID   int64   `json:"subject_id"`
	FullName    string  `json:"full_name"`
	MinDistance float64 `json:"min_distance"`
	Hits        int     `json:"hits"`
}

// Get handles GET /subjects/{id}/lookalikes.
func (h *LookalikesHandler) Get(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := idParam(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid subject id")
		return
	}

	if _, err := h.store.GetUser(r.Context(), subjectID); err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			respondError(w, http.StatusNotFound, "subject not found")
			return
		}
		log.Printf("loading subject %d: %v", subjectID, err)
		respondError(w, http.StatusInternalServerError, "could not load subject")
		return
	}

	k := defaultLookalikeNeighbors
	if raw := r.URL.Query().Get("k"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			k = n
		}
	}

	all, err := h.store.ListFaceSamples(r.Context())
	if err != nil {
		log.Printf("listing face samples: %v", err)
		respondError(w, http.StatusInternalServerError, "could not list face samples")
		return
	}

	var own []database.FaceSample
	for _, s := range all {
		if s.UserID == subjectID && len(s.Fingerprint) > 0 {
			own = append(own, s)
		}
	}

	type agg struct {
		minDistance float64
		hits        int
	}
	bySubject := make(map[int64]*agg)

	for _, sample := range own {
		matches, err := h.nearest(r, sample.Fingerprint, k)
		if err != nil {
			log.Printf("searching lookalikes for subject %d: %v", subjectID, err)
			respondError(w, http.StatusInternalServerError, "could not search samples")
			return
		}

		for _, m := range matches {
			if m.Sample.UserID == subjectID {
				continue
			}
			a, ok := bySubject[m.Sample.UserID]
			if !ok {
				bySubject[m.Sample.UserID] = &agg{minDistance: m.Distance, hits: 1}
				continue
			}
			a.hits++
			if m.Distance < a.minDistance {
				a.minDistance = m.Distance
			}
		}
	}

	out := make([]lookalikeResponse, 0, len(bySubject))
	for id, a := range bySubject {
		name := ""
		if u, err := h.store.GetUser(r.Context(), id); err == nil {
			name = u.FullName
		}
		out = append(out, lookalikeResponse{
			SubjectID:   id,
			FullName:    name,
			MinDistance: a.minDistance,
			Hits:        a.hits,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MinDistance < out[j].MinDistance })

	respondJSON(w, http.StatusOK, map[string]any{
		"subject_id": subjectID,
		"samples":    len(own),
		"lookalikes": out,
	})
}

// nearest prefers the in-memory index and falls back to the store's own
// similarity query when the index has not been built.
func (h *LookalikesHandler) nearest(r *http.Request, fingerprint []float32, k int) ([]database.SampleMatch, error) {
	if h.index != nil && h.index.Count() > 0 {
		return h.index.Search(fingerprint, k)
	}
	return h.store.SimilarSamples(r.Context(), fingerprint, k)
}
