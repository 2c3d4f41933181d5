package octree

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/o0olele/octree-nav/geometry"
)

// File format constants.
const (
	OctreeFileMagic   uint32 = 0x4F435452 // "OCTR"
	OctreeFileVersion uint32 = 1

	// maxFileNodes bounds the allocation a corrupt header can request.
	maxFileNodes = 1 << 26
)

// ErrBadFile is wrapped by every decoding failure.
var ErrBadFile = errors.New("octree: bad file")

// FileHeader leads every octree file.
type FileHeader struct {
	Magic   uint32
	Version uint32
}

type fileMeta struct {
	RootBounds  geometry.AABB
	MinNodeSize float32
	MaxDepth    int32
	NodeCount   uint32
}

// Save writes tree to w, gzip compressed when compress is set.
func Save(w io.Writer, tree *Octree, compress bool) error {
	if err := tree.Validate(); err != nil {
		return fmt.Errorf("invalid octree: %w", err)
	}

	var out io.Writer = w
	var gz *gzip.Writer
	if compress {
		gz = gzip.NewWriter(w)
		out = gz
	}
	bw := bufio.NewWriter(out)

	header := FileHeader{Magic: OctreeFileMagic, Version: OctreeFileVersion}
	if err := binary.Write(bw, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	meta := fileMeta{
		RootBounds:  tree.RootBounds,
		MinNodeSize: tree.MinNodeSize,
		MaxDepth:    tree.MaxDepth,
		NodeCount:   uint32(len(tree.Nodes)),
	}
	if err := binary.Write(bw, binary.LittleEndian, meta); err != nil {
		return fmt.Errorf("failed to write meta: %w", err)
	}

	if err := binary.Write(bw, binary.LittleEndian, tree.Nodes); err != nil {
		return fmt.Errorf("failed to write nodes: %w", err)
	}

	if err := bw.Flush(); err != nil {
		return err
	}
	if gz != nil {
		return gz.Close()
	}
	return nil
}

// Load reads a tree written by Save; gzip input is detected automatically.
// The decoded tree is validated before it is returned.
func Load(r io.Reader) (*Octree, error) {
	in, err := maybeGunzip(r)
	if err != nil {
		return nil, err
	}

	meta, err := readHeader(in)
	if err != nil {
		return nil, err
	}

	tree := &Octree{
		RootBounds:  meta.RootBounds,
		MinNodeSize: meta.MinNodeSize,
		MaxDepth:    meta.MaxDepth,
		Nodes:       make([]Node, meta.NodeCount),
	}
	if err := binary.Read(in, binary.LittleEndian, tree.Nodes); err != nil {
		return nil, fmt.Errorf("%w: failed to read nodes: %v", ErrBadFile, err)
	}

	if err := tree.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFile, err)
	}
	return tree, nil
}

func maybeGunzip(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(2)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFile, err)
	}
	if bytes.Equal(magic, []byte{0x1f, 0x8b}) {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadFile, err)
		}
		return gz, nil
	}
	return br, nil
}

func readHeader(in io.Reader) (fileMeta, error) {
	var header FileHeader
	var meta fileMeta
	if err := binary.Read(in, binary.LittleEndian, &header); err != nil {
		return meta, fmt.Errorf("%w: failed to read header: %v", ErrBadFile, err)
	}
	if header.Magic != OctreeFileMagic {
		return meta, fmt.Errorf("%w: magic number mismatch", ErrBadFile)
	}
	if header.Version != OctreeFileVersion {
		return meta, fmt.Errorf("%w: unsupported file version %d", ErrBadFile, header.Version)
	}
	if err := binary.Read(in, binary.LittleEndian, &meta); err != nil {
		return meta, fmt.Errorf("%w: failed to read meta: %v", ErrBadFile, err)
	}
	if meta.NodeCount == 0 || meta.NodeCount > maxFileNodes {
		return meta, fmt.Errorf("%w: node count %d", ErrBadFile, meta.NodeCount)
	}
	return meta, nil
}

// SaveFile writes tree to filename.
func SaveFile(filename string, tree *Octree, compress bool) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := Save(f, tree, compress); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadFile reads a tree from filename.
func LoadFile(filename string) (*Octree, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// FileInfo describes an octree file without decoding its nodes.
type FileInfo struct {
	Filename    string        `json:"filename"`
	FileSize    int64         `json:"file_size"`
	Version     uint32        `json:"version"`
	RootBounds  geometry.AABB `json:"root_bounds"`
	MinNodeSize float32       `json:"min_node_size"`
	MaxDepth    int32         `json:"max_depth"`
	NodeCount   int           `json:"node_count"`
	ModTime     time.Time     `json:"mod_time"`
}

// GetFileInfo reads the header of an octree file.
func GetFileInfo(filename string) (*FileInfo, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}

	in, err := maybeGunzip(f)
	if err != nil {
		return nil, err
	}
	meta, err := readHeader(in)
	if err != nil {
		return nil, err
	}

	return &FileInfo{
		Filename:    filename,
		FileSize:    stat.Size(),
		Version:     OctreeFileVersion,
		RootBounds:  meta.RootBounds,
		MinNodeSize: meta.MinNodeSize,
		MaxDepth:    meta.MaxDepth,
		NodeCount:   int(meta.NodeCount),
		ModTime:     stat.ModTime(),
	}, nil
}
