package serialization

import (
	"encoding/binary"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// LibVersion is recorded in every header written by this package.
const LibVersion = "0.3.0"

// Writer writes state dicts in .wvec format.
type Writer struct {
	file   *os.File
	closed bool
}

// NewWriter creates a new .wvec file writer.
func NewWriter(path string) (*Writer, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for model saving
	file, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create file")
	}
	return &Writer{file: file}, nil
}

// WriteStateDict writes state with the given header fields. Tables,
// FormatVersion, LibVersion and CreatedAt are filled in by the writer.
func (w *Writer) WriteStateDict(state map[string]*mat.Dense, header Header) error {
	if w.closed {
		return ErrClosed
	}
	return WriteTo(w.file, state, header)
}

// Close closes the writer and the underlying file.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.file.Close()
}

// WriteTo encodes state to writer.
//
//nolint:gocyclo,cyclop // Binary layout is written field by field
func WriteTo(writer io.Writer, state map[string]*mat.Dense, header Header) error {
	names := make([]string, 0, len(state))
	for name, m := range state {
		if m == nil {
			return errors.Wrapf(ErrInvalidShape, "table %q is nil", name)
		}
		if err := ValidateTableName(name); err != nil {
			return err
		}
		names = append(names, name)
	}
	slices.Sort(names)

	header.FormatVersion = FormatVersion
	header.LibVersion = LibVersion
	if header.CreatedAt.IsZero() {
		header.CreatedAt = time.Now().UTC()
	}
	if header.Metadata == nil {
		header.Metadata = make(map[string]string)
	}

	// Table data is encoded up front so the checksum can go in the fixed header.
	var data []byte
	header.Tables = make([]TableMeta, 0, len(names))
	for _, name := range names {
		m := state[name]
		r, c := m.Dims()
		start := int64(len(data))
		data = encodeTable(data, m)
		header.Tables = append(header.Tables, TableMeta{
			Name:   name,
			DType:  DTypeFloat64,
			Shape:  []int{r, c},
			Offset: start,
			Size:   int64(len(data)) - start,
		})
	}
	checksum := ComputeChecksum(data)

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return errors.Wrap(err, "failed to marshal header")
	}
	if len(headerJSON) > MaxHeaderSize {
		return ErrHeaderTooLarge
	}

	fixed := make([]byte, FixedHeaderSize)
	// 0x00-0x03: Magic bytes
	copy(fixed[0:4], MagicBytes)
	// 0x04-0x07: Version
	binary.LittleEndian.PutUint32(fixed[4:8], uint32(FormatVersion))
	// 0x08-0x0B: Flags
	binary.LittleEndian.PutUint32(fixed[8:12], flagsFor(header))
	// 0x0C-0x0F: Reserved
	// 0x10-0x17: Header size
	binary.LittleEndian.PutUint64(fixed[16:24], uint64(len(headerJSON)))
	// 0x18-0x1F: Data size
	binary.LittleEndian.PutUint64(fixed[24:32], uint64(len(data)))
	// 0x20-0x3F: SHA-256 checksum
	copy(fixed[ChecksumOffset:ChecksumOffset+ChecksumSize], checksum[:])

	if _, err := writer.Write(fixed); err != nil {
		return errors.Wrap(err, "failed to write fixed header")
	}
	if _, err := writer.Write(headerJSON); err != nil {
		return errors.Wrap(err, "failed to write header JSON")
	}

	headerSize := int64(len(headerJSON))
	if padding := alignedDataOffset(headerSize) - FixedHeaderSize - headerSize; padding > 0 {
		if _, err := writer.Write(make([]byte, padding)); err != nil {
			return errors.Wrap(err, "failed to write padding")
		}
	}

	if _, err := writer.Write(data); err != nil {
		return errors.Wrap(err, "failed to write table data")
	}
	return nil
}

// SaveFile writes state to path atomically: the file is written next to
// path and renamed into place once complete.
func SaveFile(path string, state map[string]*mat.Dense, header Header) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.Wrap(err, "failed to create temporary file")
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }() // no-op after a successful rename

	if err := WriteTo(tmp, state, header); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to close temporary file")
	}
	return errors.Wrap(os.Rename(tmpName, path), "failed to move checkpoint into place")
}

func flagsFor(h Header) uint32 {
	var flags uint32
	if len(h.Metadata) > 0 {
		flags |= FlagHasMetadata
	}
	if h.CheckpointMeta != nil {
		flags |= FlagIsCheckpoint
	}
	for _, t := range h.Tables {
		if strings.HasSuffix(t.Name, ".moment") {
			flags |= FlagHasMoments
			break
		}
	}
	return flags
}
