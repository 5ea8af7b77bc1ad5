package samples

import (
	"image"
	"os"
	"path/filepath"
	"testing"
)

func TestParseFilename(t *testing.T) {
	tests := []struct {
		name   string
		userID int64
		seq    int
		ok     bool
	}{
		{"User.1.1.jpg", 1, 1, true},
		{"User.42.30.jpg", 42, 30, true},
		{"User.7.12.JPG", 7, 12, true},
		{"user.1.1.jpg", 0, 0, false},
		{"User.1.jpg", 0, 0, false},
		{"User.abc.1.jpg", 0, 0, false},
		{"User.1.0.jpg", 0, 0, false},
		{"User.-3.1.jpg", 0, 0, false},
		{"User.1.1.png", 0, 0, false},
		{"readme.txt", 0, 0, false},
	}

	for _, tc := range tests {
		userID, seq, ok := parseFilename(tc.name)
		if userID != tc.userID || seq != tc.seq || ok != tc.ok {
			t.Errorf("parseFilename(%q) = (%d, %d, %v), expected (%d, %d, %v)",
				tc.name, userID, seq, ok, tc.userID, tc.seq, tc.ok)
		}
	}
}

func TestSaveScanLoad(t *testing.T) {
	store := NewStore(t.TempDir())

	face := image.NewGray(image.Rect(0, 0, 32, 32))
	for i := range face.Pix {
		face.Pix[i] = uint8(i % 256)
	}

	path, err := store.Save(5, 1, face)
	if err != nil {
		t.Fatalf("could not save sample: %v", err)
	}
	if filepath.Base(path) != "User.5.1.jpg" {
		t.Errorf("unexpected sample filename %q", path)
	}

	if _, err := store.Save(5, 2, face); err != nil {
		t.Fatalf("could not save second sample: %v", err)
	}
	if _, err := store.Save(9, 1, face); err != nil {
		t.Fatalf("could not save sample for second subject: %v", err)
	}

	// stray files must be ignored
	if err := os.WriteFile(filepath.Join(store.Dir(), "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	all, err := store.Scan()
	if err != nil {
		t.Fatalf("could not scan dataset: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(all))
	}

	loaded, err := store.Load(path)
	if err != nil {
		t.Fatalf("could not load sample: %v", err)
	}
	if loaded.Bounds().Dx() != 32 || loaded.Bounds().Dy() != 32 {
		t.Errorf("unexpected sample size %v", loaded.Bounds())
	}
}

func TestNextSequence(t *testing.T) {
	store := NewStore(t.TempDir())

	seq, err := store.NextSequence(3)
	if err != nil {
		t.Fatalf("could not get next sequence: %v", err)
	}
	if seq != 1 {
		t.Errorf("expected sequence 1 for empty dataset, got %d", seq)
	}

	face := image.NewGray(image.Rect(0, 0, 16, 16))
	for _, n := range []int{1, 2, 7} {
		if _, err := store.Save(3, n, face); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := store.Save(4, 20, face); err != nil {
		t.Fatal(err)
	}

	seq, err = store.NextSequence(3)
	if err != nil {
		t.Fatal(err)
	}
	if seq != 8 {
		t.Errorf("expected sequence to continue after highest file, got %d", seq)
	}
}

func TestScanMissingDirectory(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "does-not-exist"))

	all, err := store.Scan()
	if err != nil {
		t.Fatalf("missing directory should be an empty dataset: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("expected no samples, got %d", len(all))
	}
}
