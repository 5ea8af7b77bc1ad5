// Package samples manages the on-disk face sample dataset. Every sample is
// a grayscale JPEG crop named User.<id>.<n>.jpg where id is the subject and
// n a per-subject sequence number.
package samples

import (
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const jpegQuality = 95

// Sample is one dataset file attributed to a subject.
type Sample struct {
	UserID int64
	Seq    int
	Path   string
}

// Store reads and writes samples under a single dataset directory.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the dataset directory.
func (s *Store) Dir() string {
	return s.dir
}

// NextSequence returns the first free sequence number for a subject. The
// sequence continues from the highest existing file so re-running a capture
// never overwrites earlier samples.
func (s *Store) NextSequence(userID int64) (int, error) {
	all, err := s.Scan()
	if err != nil {
		return 0, err
	}

	highest := 0
	for _, sample := range all {
		if sample.UserID == userID && sample.Seq > highest {
			highest = sample.Seq
		}
	}

	return highest + 1, nil
}

// Save writes a grayscale crop for the subject and returns its path.
func (s *Store) Save(userID int64, seq int, face *image.Gray) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("could not create dataset directory: %w", err)
	}

	path := filepath.Join(s.dir, fmt.Sprintf("User.%d.%d.jpg", userID, seq))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("could not create sample file: %w", err)
	}

	if err := jpeg.Encode(f, face, &jpeg.Options{Quality: jpegQuality}); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("could not encode sample: %w", err)
	}

	if err := f.Close(); err != nil {
		return "", fmt.Errorf("could not close sample file: %w", err)
	}

	return path, nil
}

// Scan lists every well-formed sample in the dataset directory. Files that
// do not follow the naming scheme are ignored. A missing directory is an
// empty dataset, not an error.
func (s *Store) Scan() ([]Sample, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("could not read dataset directory: %w", err)
	}

	var out []Sample
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		userID, seq, ok := parseFilename(entry.Name())
		if !ok {
			continue
		}

		out = append(out, Sample{
			UserID: userID,
			Seq:    seq,
			Path:   filepath.Join(s.dir, entry.Name()),
		})
	}

	return out, nil
}

// Load reads a sample file back as a grayscale image.
func (s *Store) Load(path string) (*image.Gray, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open sample: %w", err)
	}
	defer func() { _ = f.Close() }()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("could not decode sample %q: %w", path, err)
	}

	return toGray(img), nil
}

func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}

	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray.Set(x, y, img.At(x, y))
		}
	}
	return gray
}

// parseFilename extracts subject id and sequence from User.<id>.<n>.jpg.
func parseFilename(name string) (int64, int, bool) {
	parts := strings.Split(name, ".")
	if len(parts) != 4 || parts[0] != "User" || !strings.EqualFold(parts[3], "jpg") {
		return 0, 0, false
	}

	userID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || userID <= 0 {
		return 0, 0, false
	}

	seq, err := strconv.Atoi(parts[2])
	if err != nil || seq <= 0 {
		return 0, 0, false
	}

	return userID, seq, true
}
