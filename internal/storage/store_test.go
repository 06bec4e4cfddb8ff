package storage

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestWriteMatrix(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMatrix(&buf, []int32{1, 2, -1, 0, -1, -1}, 3))
	require.Equal(t, "1 2 -1\n0 -1 -1\n", buf.String())

	values, width, err := ReadMatrix(&buf)
	require.NoError(t, err)
	require.Equal(t, 3, width)
	require.Equal(t, []int32{1, 2, -1, 0, -1, -1}, values)
}

func TestReadMatrix_Ragged(t *testing.T) {
	_, _, err := ReadMatrix(bytes.NewBufferString("1 2\n3\n"))
	require.Error(t, err)
}

func TestStoreSaveLoad(t *testing.T) {
	for _, compress := range []bool{false, true} {
		name := "plain"
		if compress {
			name = "zstd"
		}
		t.Run(name, func(t *testing.T) {
			st := New(t.TempDir()).WithCompression(compress)
			require.NoError(t, st.Init())

			indices := []int32{1, -1, 0, 2, 1, -1}
			counts := []int32{1, 2, 1}
			meta := RunMetadata{
				Source:           "cube.ply",
				SupportRadius:    0.04,
				Storage:          "sparse",
				NeighborCapacity: 2,
				Metrics:          map[string]float64{"mean_neighbors": 4.0 / 3.0},
			}

			runID, err := st.Save(meta, indices, counts)
			require.NoError(t, err)
			require.NotEmpty(t, runID)

			loaded, err := st.Load(runID)
			require.NoError(t, err)
			require.Equal(t, runID, loaded.ID)
			require.Equal(t, 3, loaded.Particles)
			require.Equal(t, compress, loaded.Compressed)
			require.Equal(t, "sparse", loaded.Storage)
			require.InDelta(t, 4.0/3.0, loaded.Metrics["mean_neighbors"], 1e-12)

			gotCounts, err := st.LoadCounts(runID)
			require.NoError(t, err)
			if diff := cmp.Diff(counts, gotCounts); diff != "" {
				t.Errorf("counts (-want +got):\n%s", diff)
			}

			gotIdx, width, err := st.LoadNeighbors(runID)
			require.NoError(t, err)
			require.Equal(t, 2, width)
			if diff := cmp.Diff(indices, gotIdx); diff != "" {
				t.Errorf("indices (-want +got):\n%s", diff)
			}

			suffix := ""
			if compress {
				suffix = ".zst"
			}
			_, err = os.Stat(filepath.Join(st.baseDir, runID, NeighborsFile+suffix))
			require.NoError(t, err)
		})
	}
}

func TestStoreSave_ShapeMismatch(t *testing.T) {
	st := New(t.TempDir())
	_, err := st.Save(RunMetadata{NeighborCapacity: 3}, []int32{1, 2}, []int32{1})
	require.Error(t, err)
}

func TestStoreSave_FailedWriteLeavesNoRun(t *testing.T) {
	for _, compress := range []bool{false, true} {
		st := New(t.TempDir()).WithCompression(compress)
		require.NoError(t, st.Init())

		diskFull := errors.New("no space left on device")
		st.create = func(path string) (io.WriteCloser, error) {
			if strings.HasPrefix(filepath.Base(path), CountsFile) {
				return nil, diskFull
			}
			return os.Create(path)
		}

		_, err := st.Save(RunMetadata{NeighborCapacity: 2}, []int32{1, -1, 0, -1}, []int32{1, 1})
		require.ErrorIs(t, err, diskFull)

		entries, err := os.ReadDir(st.baseDir)
		require.NoError(t, err)
		require.Empty(t, entries)
		runs, err := st.List()
		require.NoError(t, err)
		require.Empty(t, runs)
	}
}

func TestStoreList(t *testing.T) {
	st := New(filepath.Join(t.TempDir(), "runs"))

	runs, err := st.List()
	require.NoError(t, err)
	require.Empty(t, runs)

	require.NoError(t, st.Init())
	for i := 0; i < 3; i++ {
		_, err := st.Save(RunMetadata{NeighborCapacity: 1}, []int32{-1}, []int32{0})
		require.NoError(t, err)
	}
	require.NoError(t, os.WriteFile(filepath.Join(st.baseDir, "stray.txt"), nil, 0644))

	runs, err = st.List()
	require.NoError(t, err)
	require.Len(t, runs, 3)
	for i := 1; i < len(runs); i++ {
		require.False(t, runs[i].Timestamp.Before(runs[i-1].Timestamp))
	}
}

func TestStoreLoad_NotFound(t *testing.T) {
	st := New(t.TempDir())
	_, err := st.Load("missing")
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("err = %v, want ErrRunNotFound", err)
	}
}
