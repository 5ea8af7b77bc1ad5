package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/roll-call/internal/database"
	"github.com/kozaktomas/roll-call/internal/database/mock"
)

// unitVector builds a normalized fingerprint dominated by the given axes.
func unitVector(axes ...int) []float32 {
	v := make([]float32, database.FingerprintDim)
	for _, a := range axes {
		v[a] = 1
	}
	return v
}

func seedLookalikes(t *testing.T) (store *mock.Store, subjectID, twinID, otherID int64) {
	t.Helper()
	ctx := t.Context()
	store = mock.NewStore()

	var err error
	subjectID, err = store.AddUser(ctx, "Tomas Novak", "tomas@example.com", database.RoleStudent)
	if err != nil {
		t.Fatal(err)
	}
	twinID, err = store.AddUser(ctx, "Jan Novak", "jan@example.com", database.RoleStudent)
	if err != nil {
		t.Fatal(err)
	}
	otherID, err = store.AddUser(ctx, "Eva Benesova", "eva@example.com", database.RoleStudent)
	if err != nil {
		t.Fatal(err)
	}

	// twin's samples point the same way as the subject's, the other
	// student's are orthogonal
	for i, fp := range [][]float32{unitVector(0), unitVector(0, 1)} {
		if _, err := store.SaveFaceSample(ctx, subjectID, fp, fmt.Sprintf("dataset/User.%d.%d.jpg", subjectID, i+1)); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := store.SaveFaceSample(ctx, twinID, unitVector(0), "dataset/User.2.1.jpg"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.SaveFaceSample(ctx, otherID, unitVector(40), "dataset/User.3.1.jpg"); err != nil {
		t.Fatal(err)
	}
	return store, subjectID, twinID, otherID
}

func getLookalikes(t *testing.T, h *LookalikesHandler, subjectID int64) []lookalikeResponse {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/subjects/%d/lookalikes", subjectID), nil)
	req = requestWithChiParams(req, map[string]string{"id": fmt.Sprint(subjectID)})
	rec := httptest.NewRecorder()
	h.Get(rec, req)
	assertStatusCode(t, rec, http.StatusOK)

	var resp struct {
		Lookalikes []lookalikeResponse `json:"lookalikes"`
	}
	parseJSONResponse(t, rec, &resp)
	return resp.Lookalikes
}

func TestLookalikesStoreFallback(t *testing.T) {
	store, subjectID, twinID, _ := seedLookalikes(t)
	h := NewLookalikesHandler(store, nil)

	out := getLookalikes(t, h, subjectID)
	if len(out) == 0 {
		t.Fatal("expected at least one lookalike")
	}
	if out[0].SubjectID != twinID {
		t.Errorf("expected the twin closest, got %+v", out[0])
	}
}

func TestLookalikesWithIndex(t *testing.T) {
	store, subjectID, twinID, _ := seedLookalikes(t)

	samples, err := store.ListFaceSamples(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	index := database.NewSampleIndex()
	if err := index.Build(samples); err != nil {
		t.Fatal(err)
	}

	h := NewLookalikesHandler(store, index)
	out := getLookalikes(t, h, subjectID)
	if len(out) == 0 {
		t.Fatal("expected at least one lookalike")
	}
	if out[0].SubjectID != twinID {
		t.Errorf("expected the twin closest, got %+v", out[0])
	}
}

func TestLookalikesUnknownSubject(t *testing.T) {
	h := NewLookalikesHandler(mock.NewStore(), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/subjects/999/lookalikes", nil)
	req = requestWithChiParams(req, map[string]string{"id": "999"})
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	assertStatusCode(t, rec, http.StatusNotFound)
}
