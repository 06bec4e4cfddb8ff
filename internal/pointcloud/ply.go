// Package pointcloud loads and generates particle positions: PLY files
// (ascii and binary) and regular lattices with optional jitter.
package pointcloud

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

var (
	ErrNotPLY         = errors.New("pointcloud: missing ply magic")
	ErrNoVertices     = errors.New("pointcloud: no vertex element")
	ErrMissingAxis    = errors.New("pointcloud: vertex element lacks x, y or z")
	ErrUnsupportedPLY = errors.New("pointcloud: unsupported ply feature")
)

type plyFormat int

const (
	formatASCII plyFormat = iota
	formatBinaryLE
	formatBinaryBE
)

type plyProperty struct {
	name   string
	typ    string
	isList bool
	count  string
}

type plyElement struct {
	name  string
	count int
	props []plyProperty
}

type plyHeader struct {
	format   plyFormat
	elements []plyElement
}

var scalarSize = map[string]int{
	"char": 1, "int8": 1, "uchar": 1, "uint8": 1,
	"short": 2, "int16": 2, "ushort": 2, "uint16": 2,
	"int": 4, "int32": 4, "uint": 4, "uint32": 4,
	"float": 4, "float32": 4, "double": 8, "float64": 8,
}

// ReadPLYFile reads vertex x, y, z from a PLY file.
func ReadPLYFile(path string) ([]r3.Vec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	pts, err := ReadPLY(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return pts, nil
}

// ReadPLY reads vertex x, y, z from r. Elements after the vertex element are
// not read.
func ReadPLY(r io.Reader) ([]r3.Vec, error) {
	br := bufio.NewReader(r)
	h, err := readHeader(br)
	if err != nil {
		return nil, err
	}

	for _, el := range h.elements {
		if el.name == "vertex" {
			return readVertices(br, h.format, el)
		}
		if err := skipElement(br, h.format, el); err != nil {
			return nil, err
		}
	}
	return nil, ErrNoVertices
}

func readHeader(br *bufio.Reader) (plyHeader, error) {
	var h plyHeader
	line, err := br.ReadString('\n')
	if err != nil || strings.TrimSpace(line) != "ply" {
		return h, ErrNotPLY
	}
	sawFormat := false
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			return h, fmt.Errorf("pointcloud: truncated header: %w", err)
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "format":
			if len(fields) < 2 {
				return h, fmt.Errorf("%w: bad format line", ErrUnsupportedPLY)
			}
			switch fields[1] {
			case "ascii":
				h.format = formatASCII
			case "binary_little_endian":
				h.format = formatBinaryLE
			case "binary_big_endian":
				h.format = formatBinaryBE
			default:
				return h, fmt.Errorf("%w: format %s", ErrUnsupportedPLY, fields[1])
			}
			sawFormat = true
		case "element":
			if len(fields) != 3 {
				return h, fmt.Errorf("%w: bad element line %q", ErrUnsupportedPLY, strings.TrimSpace(line))
			}
			n, err := strconv.Atoi(fields[2])
			if err != nil || n < 0 {
				return h, fmt.Errorf("%w: bad element count %q", ErrUnsupportedPLY, fields[2])
			}
			h.elements = append(h.elements, plyElement{name: fields[1], count: n})
		case "property":
			if len(h.elements) == 0 {
				return h, fmt.Errorf("%w: property before element", ErrUnsupportedPLY)
			}
			el := &h.elements[len(h.elements)-1]
			var p plyProperty
			if len(fields) == 5 && fields[1] == "list" {
				p = plyProperty{name: fields[4], typ: fields[3], isList: true, count: fields[2]}
			} else if len(fields) == 3 {
				p = plyProperty{name: fields[2], typ: fields[1]}
			} else {
				return h, fmt.Errorf("%w: bad property line %q", ErrUnsupportedPLY, strings.TrimSpace(line))
			}
			if _, ok := scalarSize[p.typ]; !ok {
				return h, fmt.Errorf("%w: property type %s", ErrUnsupportedPLY, p.typ)
			}
			el.props = append(el.props, p)
		case "comment", "obj_info":
		case "end_header":
			if !sawFormat {
				return h, fmt.Errorf("%w: no format line", ErrUnsupportedPLY)
			}
			return h, nil
		}
	}
}

func axisIndex(el plyElement) ([3]int, error) {
	idx := [3]int{-1, -1, -1}
	for i, p := range el.props {
		if p.isList {
			continue
		}
		switch p.name {
		case "x":
			idx[0] = i
		case "y":
			idx[1] = i
		case "z":
			idx[2] = i
		}
	}
	for _, i := range idx {
		if i < 0 {
			return idx, ErrMissingAxis
		}
	}
	return idx, nil
}

func readVertices(br *bufio.Reader, format plyFormat, el plyElement) ([]r3.Vec, error) {
	axes, err := axisIndex(el)
	if err != nil {
		return nil, err
	}
	pts := make([]r3.Vec, el.count)
	values := make([]float64, len(el.props))
	for i := range pts {
		if err := readRecord(br, format, el, values); err != nil {
			return nil, fmt.Errorf("pointcloud: vertex %d: %w", i, err)
		}
		pts[i] = r3.Vec{X: values[axes[0]], Y: values[axes[1]], Z: values[axes[2]]}
	}
	return pts, nil
}

func skipElement(br *bufio.Reader, format plyFormat, el plyElement) error {
	values := make([]float64, len(el.props))
	for i := 0; i < el.count; i++ {
		if err := readRecord(br, format, el, values); err != nil {
			return fmt.Errorf("pointcloud: %s %d: %w", el.name, i, err)
		}
	}
	return nil
}

// readRecord decodes one element record. List properties are consumed and
// left as zero in values.
func readRecord(br *bufio.Reader, format plyFormat, el plyElement, values []float64) error {
	if format == formatASCII {
		line, err := br.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			return err
		}
		fields := strings.Fields(line)
		pos := 0
		for i, p := range el.props {
			if pos >= len(fields) {
				return io.ErrUnexpectedEOF
			}
			if p.isList {
				n, err := strconv.Atoi(fields[pos])
				if err != nil {
					return err
				}
				pos += 1 + n
				values[i] = 0
				continue
			}
			v, err := strconv.ParseFloat(fields[pos], 64)
			if err != nil {
				return err
			}
			values[i] = v
			pos++
		}
		return nil
	}

	var order binary.ByteOrder = binary.LittleEndian
	if format == formatBinaryBE {
		order = binary.BigEndian
	}
	var buf [8]byte
	for i, p := range el.props {
		if p.isList {
			n, err := readScalar(br, order, p.count, buf[:])
			if err != nil {
				return err
			}
			skip := int(n) * scalarSize[p.typ]
			if _, err := br.Discard(skip); err != nil {
				return err
			}
			values[i] = 0
			continue
		}
		v, err := readScalar(br, order, p.typ, buf[:])
		if err != nil {
			return err
		}
		values[i] = v
	}
	return nil
}

func readScalar(r io.Reader, order binary.ByteOrder, typ string, buf []byte) (float64, error) {
	size, ok := scalarSize[typ]
	if !ok {
		return 0, fmt.Errorf("%w: type %s", ErrUnsupportedPLY, typ)
	}
	b := buf[:size]
	if _, err := io.ReadFull(r, b); err != nil {
		return 0, err
	}
	switch typ {
	case "char", "int8":
		return float64(int8(b[0])), nil
	case "uchar", "uint8":
		return float64(b[0]), nil
	case "short", "int16":
		return float64(int16(order.Uint16(b))), nil
	case "ushort", "uint16":
		return float64(order.Uint16(b)), nil
	case "int", "int32":
		return float64(int32(order.Uint32(b))), nil
	case "uint", "uint32":
		return float64(order.Uint32(b)), nil
	case "float", "float32":
		return float64(math.Float32frombits(order.Uint32(b))), nil
	default:
		return math.Float64frombits(order.Uint64(b)), nil
	}
}

// WritePLY writes pts as an ascii PLY with float32 vertex coordinates, the
// layout produced by common point-cloud exporters.
func WritePLY(w io.Writer, pts []r3.Vec) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "ply\nformat ascii 1.0\nelement vertex %d\n", len(pts))
	fmt.Fprint(bw, "property float x\nproperty float y\nproperty float z\nend_header\n")
	for _, p := range pts {
		fmt.Fprintf(bw, "%s %s %s\n",
			strconv.FormatFloat(float64(float32(p.X)), 'g', -1, 32),
			strconv.FormatFloat(float64(float32(p.Y)), 'g', -1, 32),
			strconv.FormatFloat(float64(float32(p.Z)), 'g', -1, 32))
	}
	return bw.Flush()
}

// WritePLYFile writes pts to path, creating or truncating it.
func WritePLYFile(path string, pts []r3.Vec) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WritePLY(f, pts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
