package pointcloud

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"math/rand"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/san-kum/nsearch/internal/grid"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestReadPLY_ASCII(t *testing.T) {
	src := `ply
format ascii 1.0
comment exported for tests
element vertex 3
property float x
property float y
property float z
property uchar red
element face 1
property list uchar int vertex_indices
end_header
0 0 0 255
0.5 0.25 1 0
-1 2 3.5 7
3 0 1 2
`
	pts, err := ReadPLY(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	want := []r3.Vec{{}, {X: 0.5, Y: 0.25, Z: 1}, {X: -1, Y: 2, Z: 3.5}}
	if diff := cmp.Diff(want, pts); diff != "" {
		t.Errorf("points mismatch (-want +got):\n%s", diff)
	}
}

func binaryPLY(order binary.ByteOrder, formatName string, pts []r3.Vec) []byte {
	var buf bytes.Buffer
	buf.WriteString("ply\nformat " + formatName + " 1.0\n")
	buf.WriteString("element vertex 2\nproperty double x\nproperty float y\nproperty float z\nproperty list uchar int idx\nend_header\n")
	for _, p := range pts {
		binary.Write(&buf, order, p.X)
		binary.Write(&buf, order, float32(p.Y))
		binary.Write(&buf, order, float32(p.Z))
		buf.WriteByte(2)
		binary.Write(&buf, order, int32(7))
		binary.Write(&buf, order, int32(9))
	}
	return buf.Bytes()
}

func TestReadPLY_Binary(t *testing.T) {
	pts := []r3.Vec{{X: 0.1, Y: 0.5, Z: 0.75}, {X: 3, Y: -2, Z: 0.125}}

	tests := []struct {
		name  string
		order binary.ByteOrder
	}{
		{"binary_little_endian", binary.LittleEndian},
		{"binary_big_endian", binary.BigEndian},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadPLY(bytes.NewReader(binaryPLY(tt.order, tt.name, pts)))
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(pts, got); diff != "" {
				t.Errorf("points mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReadPLY_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{"not ply", "obj\n", ErrNotPLY},
		{"no vertex", "ply\nformat ascii 1.0\nelement face 0\nproperty list uchar int idx\nend_header\n", ErrNoVertices},
		{"missing z", "ply\nformat ascii 1.0\nelement vertex 1\nproperty float x\nproperty float y\nend_header\n1 2\n", ErrMissingAxis},
		{"bad format", "ply\nformat binary_middle_endian 1.0\nend_header\n", ErrUnsupportedPLY},
		{"bad type", "ply\nformat ascii 1.0\nelement vertex 1\nproperty quad x\nend_header\n", ErrUnsupportedPLY},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadPLY(strings.NewReader(tt.src))
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}

	trunc := "ply\nformat ascii 1.0\nelement vertex 2\nproperty float x\nproperty float y\nproperty float z\nend_header\n1 2 3\n"
	if _, err := ReadPLY(strings.NewReader(trunc)); err == nil {
		t.Error("expected error for truncated body")
	}
}

func TestWritePLYRoundTrip(t *testing.T) {
	pts := Cube(r3.Vec{X: 0.5, Y: 0.25, Z: 0}, 1, 0.25)
	path := filepath.Join(t.TempDir(), "cube.ply")

	if err := WritePLYFile(path, pts); err != nil {
		t.Fatal(err)
	}
	got, err := ReadPLYFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(pts, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestCube(t *testing.T) {
	pts := Cube(r3.Vec{X: 1, Y: 1, Z: 1}, 1, 0.25)
	if len(pts) != 64 {
		t.Fatalf("expected 64 points, got %d", len(pts))
	}
	if pts[0] != (r3.Vec{X: 1, Y: 1, Z: 1}) {
		t.Errorf("first point = %v", pts[0])
	}
	if pts[1] != (r3.Vec{X: 1.25, Y: 1, Z: 1}) {
		t.Errorf("x should vary fastest, got %v", pts[1])
	}
	if last := pts[63]; last != (r3.Vec{X: 1.75, Y: 1.75, Z: 1.75}) {
		t.Errorf("last point = %v", last)
	}

	if Cube(r3.Vec{}, 0, 0.1) != nil {
		t.Error("zero edge should yield nil")
	}
}

func TestJitterAndClamp(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	base := Cube(r3.Vec{}, 1, 0.5)
	pts := append([]r3.Vec(nil), base...)

	Jitter(pts, 0.1, rng)
	for i := range pts {
		d := r3.Sub(pts[i], base[i])
		if math.Abs(d.X) > 0.1+1e-12 || math.Abs(d.Y) > 0.1+1e-12 || math.Abs(d.Z) > 0.1+1e-12 {
			t.Fatalf("point %d moved too far: %v", i, d)
		}
	}

	g, err := grid.NewGeometry(r3.Vec{X: 1, Y: 1, Z: 1}, 0.04)
	if err != nil {
		t.Fatal(err)
	}
	Clamp(pts, g)
	for _, p := range pts {
		if p.X < 0 || p.X >= 1 || p.Y < 0 || p.Y >= 1 || p.Z < 0 || p.Z >= 1 {
			t.Fatalf("point %v outside extent", p)
		}
		if !g.Valid(g.CellOf(p)) {
			t.Fatalf("point %v clamped into invalid cell %v", p, g.CellOf(p))
		}
	}
}

func TestUniform(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	extent := r3.Vec{X: 2, Y: 1, Z: 0.5}
	pts := Uniform(500, extent, rng)
	if len(pts) != 500 {
		t.Fatalf("len = %d", len(pts))
	}
	for _, p := range pts {
		if p.X < 0 || p.X >= extent.X || p.Y < 0 || p.Y >= extent.Y || p.Z < 0 || p.Z >= extent.Z {
			t.Fatalf("point %v outside extent", p)
		}
	}
}
