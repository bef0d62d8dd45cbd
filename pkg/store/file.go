package store

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/xhad/newsrag/internal/models"
	"gopkg.in/yaml.v3"
)

// Index file layout, little-endian:
//
//	magic "NRFX" | version uint32 | generation [16]byte | dim uint32 | count uint64 | count*dim float32
const (
	indexMagic   = "NRFX"
	indexVersion = uint32(1)
)

type indexHeader struct {
	Version    uint32
	Generation uuid.UUID
	Dim        uint32
	Count      uint64
}

// itemsFile is the on-disk shape of the headline list.
type itemsFile struct {
	Generation string            `yaml:"generation"`
	Count      int               `yaml:"count"`
	Items      []models.NewsItem `yaml:"items"`
}

func writeIndex(w io.Writer, ix *FlatIndex, generation uuid.UUID) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(indexMagic); err != nil {
		return goerr.Wrap(err, "failed to write index header")
	}
	header := indexHeader{
		Version:    indexVersion,
		Generation: generation,
		Dim:        uint32(ix.dim),
		Count:      uint64(ix.Size()),
	}
	if err := binary.Write(bw, binary.LittleEndian, header); err != nil {
		return goerr.Wrap(err, "failed to write index header")
	}

	buf := make([]byte, 4)
	for _, f := range ix.data {
		binary.LittleEndian.PutUint32(buf, math.Float32bits(f))
		if _, err := bw.Write(buf); err != nil {
			return goerr.Wrap(err, "failed to write index vectors")
		}
	}
	if err := bw.Flush(); err != nil {
		return goerr.Wrap(err, "failed to flush index")
	}
	return nil
}

// readIndex decodes an index file of the given size. The header is checked
// against size before any vector storage is allocated.
func readIndex(r io.Reader, size int64) (*FlatIndex, uuid.UUID, error) {
	br := bufio.NewReader(r)

	magic := make([]byte, len(indexMagic))
	if _, err := io.ReadFull(br, magic); err != nil {
		return nil, uuid.Nil, goerr.Wrap(err, "failed to read index header")
	}
	if string(magic) != indexMagic {
		return nil, uuid.Nil, goerr.New("not a flat index file", goerr.V("magic", string(magic)))
	}

	var header indexHeader
	if err := binary.Read(br, binary.LittleEndian, &header); err != nil {
		return nil, uuid.Nil, goerr.Wrap(err, "failed to read index header")
	}
	if header.Version != indexVersion {
		return nil, uuid.Nil, goerr.New("unsupported index version", goerr.V("version", header.Version))
	}

	if header.Dim == 0 {
		return nil, uuid.Nil, goerr.New("index dimension must be positive")
	}
	headerLen := int64(len(indexMagic) + binary.Size(indexHeader{}))
	if size < headerLen {
		return nil, uuid.Nil, goerr.New("index file truncated", goerr.V("size", size))
	}
	body := uint64(size - headerLen)
	rowBytes := 4 * uint64(header.Dim)
	if header.Count > body/rowBytes || header.Count*rowBytes != body {
		return nil, uuid.Nil, goerr.New("index header does not match file size",
			goerr.V("dim", header.Dim), goerr.V("count", header.Count), goerr.V("size", size))
	}

	ix, err := NewFlatIndex(int(header.Dim))
	if err != nil {
		return nil, uuid.Nil, err
	}

	total := header.Count * uint64(header.Dim)
	ix.data = make([]float32, 0, total)
	buf := make([]byte, 4)
	for i := uint64(0); i < total; i++ {
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, uuid.Nil, goerr.Wrap(err, "index file truncated",
				goerr.V("expected_values", total), goerr.V("read_values", i))
		}
		ix.data = append(ix.data, math.Float32frombits(binary.LittleEndian.Uint32(buf)))
	}

	return ix, header.Generation, nil
}

func writeItems(w io.Writer, items []models.NewsItem, generation uuid.UUID) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()

	doc := itemsFile{
		Generation: generation.String(),
		Count:      len(items),
		Items:      items,
	}
	if err := enc.Encode(doc); err != nil {
		return goerr.Wrap(err, "failed to encode news items")
	}
	return nil
}

func readItems(r io.Reader) (*itemsFile, error) {
	var doc itemsFile
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode news items")
	}
	if doc.Items == nil {
		doc.Items = []models.NewsItem{}
	}
	return &doc, nil
}

// writeFileAtomic writes through a temp file in the target directory and
// renames it into place, so a reader never sees a half-written file.
func writeFileAtomic(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return goerr.Wrap(err, "failed to create temp file", goerr.V("path", path))
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return goerr.Wrap(err, "failed to sync temp file", goerr.V("path", tmpName))
	}
	if err := tmp.Close(); err != nil {
		return goerr.Wrap(err, "failed to close temp file", goerr.V("path", tmpName))
	}
	if err := os.Rename(tmpName, path); err != nil {
		return goerr.Wrap(err, "failed to move file into place", goerr.V("path", path))
	}
	return nil
}
