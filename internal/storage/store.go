// Package storage persists search results: one directory per run holding
// metadata.json, neighbors.txt and num_neighbors.txt (optionally zstd
// compressed).
package storage

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
)

const (
	MetadataFile  = "metadata.json"
	NeighborsFile = "neighbors.txt"
	CountsFile    = "num_neighbors.txt"
	zstdSuffix    = ".zst"
)

var ErrRunNotFound = errors.New("storage: run not found")

type Store struct {
	baseDir  string
	compress bool
	create   func(path string) (io.WriteCloser, error)
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir, create: createFile}
}

func createFile(path string) (io.WriteCloser, error) { return os.Create(path) }

// WithCompression makes Save write zstd-compressed text files.
func (s *Store) WithCompression(on bool) *Store {
	s.compress = on
	return s
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID               string             `json:"id"`
	Timestamp        time.Time          `json:"timestamp"`
	Source           string             `json:"source"`
	Particles        int                `json:"particles"`
	SupportRadius    float64            `json:"support_radius"`
	CellSize         float64            `json:"cell_size"`
	DomainSize       [3]float64         `json:"domain_size"`
	Storage          string             `json:"storage"`
	CellCapacity     int                `json:"cell_capacity"`
	NeighborCapacity int                `json:"neighbor_capacity"`
	Compressed       bool               `json:"compressed"`
	Metrics          map[string]float64 `json:"metrics"`
}

// Save writes a run. indices is the row-major Particles × NeighborCapacity
// buffer and counts the per-particle neighbor counts. The generated run ID
// is stored in meta and returned.
func (s *Store) Save(meta RunMetadata, indices, counts []int32) (string, error) {
	if meta.NeighborCapacity <= 0 || len(indices) != len(counts)*meta.NeighborCapacity {
		return "", fmt.Errorf("storage: %d indices do not form %d rows of %d", len(indices), len(counts), meta.NeighborCapacity)
	}

	meta.ID = uuid.NewString()
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	meta.Particles = len(counts)
	meta.Compressed = s.compress

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}
	if err := s.writeRun(runDir, meta, indices, counts); err != nil {
		os.RemoveAll(runDir)
		return "", err
	}
	return meta.ID, nil
}

// writeRun fills runDir; metadata.json goes last so a run only lists once
// its matrices are complete.
func (s *Store) writeRun(runDir string, meta RunMetadata, indices, counts []int32) error {
	if err := s.writeFile(filepath.Join(runDir, NeighborsFile), func(w io.Writer) error {
		return WriteMatrix(w, indices, meta.NeighborCapacity)
	}); err != nil {
		return err
	}
	if err := s.writeFile(filepath.Join(runDir, CountsFile), func(w io.Writer) error {
		return WriteMatrix(w, counts, 1)
	}); err != nil {
		return err
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(runDir, MetadataFile), data, 0644)
}

func (s *Store) writeFile(path string, write func(io.Writer) error) error {
	if s.compress {
		path += zstdSuffix
	}
	f, err := s.create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if !s.compress {
		if err := write(f); err != nil {
			return err
		}
		return f.Close()
	}

	enc, err := zstd.NewWriter(f)
	if err != nil {
		return err
	}
	if err := write(enc); err != nil {
		enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return f.Close()
}

// WriteMatrix writes values as rows of width integers separated by single
// spaces, one row per line.
func WriteMatrix(w io.Writer, values []int32, width int) error {
	bw := bufio.NewWriter(w)
	buf := make([]byte, 0, 16)
	for i, v := range values {
		if i%width != 0 {
			bw.WriteByte(' ')
		}
		buf = strconv.AppendInt(buf[:0], int64(v), 10)
		bw.Write(buf)
		if i%width == width-1 {
			bw.WriteByte('\n')
		}
	}
	return bw.Flush()
}

// ReadMatrix parses WriteMatrix output and returns the values with the row
// width. All rows must have the same width.
func ReadMatrix(r io.Reader) ([]int32, int, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	var values []int32
	width := -1
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if width < 0 {
			width = len(fields)
		} else if len(fields) != width {
			return nil, 0, fmt.Errorf("storage: line %d has %d values, want %d", line, len(fields), width)
		}
		for _, f := range fields {
			v, err := strconv.ParseInt(f, 10, 32)
			if err != nil {
				return nil, 0, fmt.Errorf("storage: line %d: %w", line, err)
			}
			values = append(values, int32(v))
		}
	}
	if err := sc.Err(); err != nil {
		return nil, 0, err
	}
	return values, max(width, 0), nil
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, MetadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadCounts returns the per-particle neighbor counts of a run.
func (s *Store) LoadCounts(runID string) ([]int32, error) {
	values, _, err := s.readMatrix(runID, CountsFile)
	return values, err
}

// LoadNeighbors returns the neighbor index buffer of a run and its row width.
func (s *Store) LoadNeighbors(runID string) ([]int32, int, error) {
	return s.readMatrix(runID, NeighborsFile)
}

func (s *Store) readMatrix(runID, name string) ([]int32, int, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, 0, err
	}
	path := filepath.Join(s.baseDir, runID, name)
	if meta.Compressed {
		path += zstdSuffix
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	var r io.Reader = f
	if meta.Compressed {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, 0, err
		}
		defer dec.Close()
		r = dec
	}
	return ReadMatrix(r)
}
