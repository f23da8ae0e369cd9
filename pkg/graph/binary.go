package graph

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"os"
	"unsafe"
)

const (
	magicBytes       = "PCLROUTE"
	version          = uint32(1)
	maxNodes         = 10_000_000
	maxEdges         = 50_000_000
	maxNameBytes     = 1 << 30
	maxEstimateNodes = 8192 // dense matrix stays below 512 MB
)

const (
	flagCoordinates = 1 << iota
	flagEstimates
)

// fileHeader is the binary header.
type fileHeader struct {
	Magic     [8]byte
	Version   uint32
	Flags     uint32
	NumNodes  uint32
	NumEdges  uint32
	NameBytes uint32
}

// WriteBinary serializes a graph and an optional dense estimate matrix
// (row-major, estimates[goal*NumNodes+location]) to a binary file.
// The file is written to a temp path and renamed into place.
func WriteBinary(path string, g *Graph, estimates []float64) error {
	if estimates != nil && len(estimates) != int(g.NumNodes)*int(g.NumNodes) {
		return fmt.Errorf("estimate matrix has %d entries, want %d", len(estimates), int(g.NumNodes)*int(g.NumNodes))
	}
	if estimates != nil && g.NumNodes > maxEstimateNodes {
		return fmt.Errorf("estimate matrix for %d nodes exceeds limit %d", g.NumNodes, maxEstimateNodes)
	}

	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmpPath) // clean up on error
	}()

	crcWriter := crc32Writer{w: f, hash: crc32.NewIEEE()}
	w := &crcWriter

	nameLens := make([]uint32, len(g.Names))
	var nameBytes uint32
	for i, n := range g.Names {
		nameLens[i] = uint32(len(n))
		nameBytes += uint32(len(n))
	}

	hdr := fileHeader{
		Version:   version,
		NumNodes:  g.NumNodes,
		NumEdges:  g.NumEdges,
		NameBytes: nameBytes,
	}
	if g.HasCoordinates() {
		hdr.Flags |= flagCoordinates
	}
	if estimates != nil {
		hdr.Flags |= flagEstimates
	}
	copy(hdr.Magic[:], magicBytes)
	if err := binary.Write(w, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	// Location names: lengths, then concatenated bytes.
	if err := writeUint32Slice(w, nameLens); err != nil {
		return fmt.Errorf("write name lengths: %w", err)
	}
	for _, n := range g.Names {
		if _, err := io.WriteString(w, n); err != nil {
			return fmt.Errorf("write names: %w", err)
		}
	}

	// Adjacency.
	if err := writeUint32Slice(w, g.FirstOut); err != nil {
		return fmt.Errorf("write FirstOut: %w", err)
	}
	if err := writeUint32Slice(w, g.Head); err != nil {
		return fmt.Errorf("write Head: %w", err)
	}
	if err := writeFloat64Slice(w, g.Weight); err != nil {
		return fmt.Errorf("write Weight: %w", err)
	}

	if hdr.Flags&flagCoordinates != 0 {
		if err := writeFloat64Slice(w, g.NodeLat); err != nil {
			return fmt.Errorf("write NodeLat: %w", err)
		}
		if err := writeFloat64Slice(w, g.NodeLon); err != nil {
			return fmt.Errorf("write NodeLon: %w", err)
		}
	}
	if hdr.Flags&flagEstimates != 0 {
		if err := writeFloat64Slice(w, estimates); err != nil {
			return fmt.Errorf("write estimates: %w", err)
		}
	}

	// Write CRC32 trailer.
	checksum := crcWriter.hash.Sum32()
	if err := binary.Write(f, binary.LittleEndian, checksum); err != nil {
		return fmt.Errorf("write CRC32: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	// Atomic rename.
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}

	return nil
}

// ReadBinary deserializes a graph and its estimate matrix (nil if the file
// carries none) from a binary file written by WriteBinary.
func ReadBinary(path string) (*Graph, []float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	crcReader := crc32Reader{r: f, hash: crc32.NewIEEE()}
	r := &crcReader

	var hdr fileHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}

	if string(hdr.Magic[:]) != magicBytes {
		return nil, nil, fmt.Errorf("invalid magic bytes: %q", hdr.Magic)
	}
	if hdr.Version != version {
		return nil, nil, fmt.Errorf("unsupported version: %d", hdr.Version)
	}
	if hdr.NumNodes > maxNodes {
		return nil, nil, fmt.Errorf("NumNodes %d exceeds limit %d", hdr.NumNodes, maxNodes)
	}
	if hdr.NumEdges > maxEdges {
		return nil, nil, fmt.Errorf("edge count exceeds limit %d", maxEdges)
	}
	if hdr.NameBytes > maxNameBytes {
		return nil, nil, fmt.Errorf("name table %d bytes exceeds limit %d", hdr.NameBytes, maxNameBytes)
	}
	if hdr.Flags&flagEstimates != 0 && hdr.NumNodes > maxEstimateNodes {
		return nil, nil, fmt.Errorf("estimate matrix for %d nodes exceeds limit %d", hdr.NumNodes, maxEstimateNodes)
	}

	g := &Graph{NumNodes: hdr.NumNodes, NumEdges: hdr.NumEdges}

	nameLens, err := readUint32Slice(r, int(hdr.NumNodes))
	if err != nil {
		return nil, nil, fmt.Errorf("read name lengths: %w", err)
	}
	blob := make([]byte, hdr.NameBytes)
	if _, err := io.ReadFull(r, blob); err != nil {
		return nil, nil, fmt.Errorf("read names: %w", err)
	}
	g.Names = make([]string, hdr.NumNodes)
	var off uint64
	for i, n := range nameLens {
		if off+uint64(n) > uint64(len(blob)) {
			return nil, nil, fmt.Errorf("name %d overruns name table", i)
		}
		g.Names[i] = string(blob[off : off+uint64(n)])
		off += uint64(n)
	}

	if g.FirstOut, err = readUint32Slice(r, int(hdr.NumNodes+1)); err != nil {
		return nil, nil, fmt.Errorf("read FirstOut: %w", err)
	}
	if g.Head, err = readUint32Slice(r, int(hdr.NumEdges)); err != nil {
		return nil, nil, fmt.Errorf("read Head: %w", err)
	}
	if g.Weight, err = readFloat64Slice(r, int(hdr.NumEdges)); err != nil {
		return nil, nil, fmt.Errorf("read Weight: %w", err)
	}

	if hdr.Flags&flagCoordinates != 0 {
		if g.NodeLat, err = readFloat64Slice(r, int(hdr.NumNodes)); err != nil {
			return nil, nil, fmt.Errorf("read NodeLat: %w", err)
		}
		if g.NodeLon, err = readFloat64Slice(r, int(hdr.NumNodes)); err != nil {
			return nil, nil, fmt.Errorf("read NodeLon: %w", err)
		}
	}

	var estimates []float64
	if hdr.Flags&flagEstimates != 0 {
		n := int(hdr.NumNodes) * int(hdr.NumNodes)
		if estimates, err = readFloat64Slice(r, n); err != nil {
			return nil, nil, fmt.Errorf("read estimates: %w", err)
		}
		if estimates == nil {
			estimates = []float64{}
		}
	}

	// Read and validate CRC32.
	expectedCRC := crcReader.hash.Sum32()
	var storedCRC uint32
	if err := binary.Read(f, binary.LittleEndian, &storedCRC); err != nil {
		return nil, nil, fmt.Errorf("read CRC32: %w", err)
	}
	if storedCRC != expectedCRC {
		return nil, nil, fmt.Errorf("CRC32 mismatch: stored=%08x computed=%08x", storedCRC, expectedCRC)
	}

	if err := validateCSR(g.FirstOut, g.Head, hdr.NumNodes); err != nil {
		return nil, nil, fmt.Errorf("CSR invalid: %w", err)
	}
	for i, w := range g.Weight {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, nil, fmt.Errorf("Weight[%d]=%v: %w", i, w, ErrBadCost)
		}
	}

	g.buildIndex()
	if len(g.index) != len(g.Names) {
		return nil, nil, fmt.Errorf("name table: %w", ErrDuplicateLocation)
	}

	return g, estimates, nil
}

// validateCSR checks CSR invariants.
func validateCSR(firstOut, head []uint32, numNodes uint32) error {
	if uint32(len(firstOut)) != numNodes+1 {
		return fmt.Errorf("FirstOut length %d != NumNodes+1 %d", len(firstOut), numNodes+1)
	}
	numEdges := firstOut[numNodes]
	if uint32(len(head)) != numEdges {
		return fmt.Errorf("Head length %d != FirstOut[NumNodes] %d", len(head), numEdges)
	}
	for i := uint32(1); i <= numNodes; i++ {
		if firstOut[i] < firstOut[i-1] {
			return fmt.Errorf("FirstOut not monotonic at %d: %d < %d", i, firstOut[i], firstOut[i-1])
		}
	}
	for i, h := range head {
		if h >= numNodes {
			return fmt.Errorf("Head[%d]=%d >= NumNodes=%d", i, h, numNodes)
		}
	}
	return nil
}

// Zero-copy I/O helpers using unsafe.Slice.

func writeUint32Slice(w io.Writer, s []uint32) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*4)
	_, err := w.Write(b)
	return err
}

func writeFloat64Slice(w io.Writer, s []float64) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*8)
	_, err := w.Write(b)
	return err
}

func readUint32Slice(r io.Reader, n int) ([]uint32, error) {
	if n == 0 {
		return nil, nil
	}
	s := make([]uint32, n)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n*4)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return s, nil
}

func readFloat64Slice(r io.Reader, n int) ([]float64, error) {
	if n == 0 {
		return nil, nil
	}
	s := make([]float64, n)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n*8)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return s, nil
}

// CRC32 wrapping writers/readers.

type crc32Hash interface {
	Write([]byte) (int, error)
	Sum32() uint32
}

type crc32Writer struct {
	w    io.Writer
	hash crc32Hash
}

func (cw *crc32Writer) Write(p []byte) (int, error) {
	cw.hash.Write(p)
	return cw.w.Write(p)
}

type crc32Reader struct {
	r    io.Reader
	hash crc32Hash
}

func (cr *crc32Reader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.hash.Write(p[:n])
	}
	return n, err
}
