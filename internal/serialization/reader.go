package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ReaderOptions configures how a .wvec file is opened.
type ReaderOptions struct {
	SkipChecksumValidation bool            // Skip checksum validation (faster but less safe)
	ValidationLevel        ValidationLevel // Validation strictness level (default: strict)
}

// Reader reads state dicts from .wvec files.
type Reader struct {
	file       *os.File
	header     Header
	flags      uint32
	dataOffset int64 // Offset where table data starts
	dataSize   int64 // Size of the data section
	checksum   [32]byte
	opts       ReaderOptions
	closed     bool
}

// fixedHeader is the decoded 64-byte prefix of a .wvec file.
type fixedHeader struct {
	flags      uint32
	headerSize int64
	dataSize   int64
	checksum   [32]byte
}

// NewReader opens a .wvec file with strict validation.
func NewReader(path string) (*Reader, error) {
	return NewReaderWithOptions(path, ReaderOptions{ValidationLevel: ValidationStrict})
}

// NewReaderWithOptions opens a .wvec file with custom options. The header is
// parsed and validated, and the checksum verified unless skipped.
func NewReaderWithOptions(path string, opts ReaderOptions) (*Reader, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for model loading
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open file")
	}

	r := &Reader{file: file, opts: opts}
	if err := r.parse(); err != nil {
		_ = file.Close()
		return nil, err
	}
	return r, nil
}

func (r *Reader) parse() error {
	buf := make([]byte, FixedHeaderSize)
	if _, err := io.ReadFull(r.file, buf); err != nil {
		return errors.Wrap(err, "failed to read fixed header")
	}
	fh, err := parseFixedHeader(buf)
	if err != nil {
		return err
	}
	r.flags, r.checksum, r.dataSize = fh.flags, fh.checksum, fh.dataSize

	headerBytes := make([]byte, fh.headerSize)
	if _, err := io.ReadFull(r.file, headerBytes); err != nil {
		return errors.Wrap(err, "failed to read header JSON")
	}
	if err := json.Unmarshal(headerBytes, &r.header); err != nil {
		return errors.Wrap(err, "failed to parse header JSON")
	}
	r.dataOffset = alignedDataOffset(fh.headerSize)

	info, err := r.file.Stat()
	if err != nil {
		return errors.Wrap(err, "failed to stat file")
	}
	if r.dataOffset+r.dataSize > info.Size() {
		return &ValidationError{
			Type:   "out_of_bounds",
			Detail: "data section extends beyond end of file",
			Err:    ErrOutOfBounds,
		}
	}

	if err := ValidateHeader(&r.header, r.dataSize, r.opts.ValidationLevel); err != nil {
		return errors.Wrap(err, "validation failed")
	}

	if !r.opts.SkipChecksumValidation {
		section := io.NewSectionReader(r.file, r.dataOffset, r.dataSize)
		computed, err := ComputeChecksumReader(section)
		if err != nil {
			return err
		}
		if err := ValidateChecksum(computed, r.checksum); err != nil {
			return err
		}
	}
	return nil
}

func parseFixedHeader(buf []byte) (fixedHeader, error) {
	var fh fixedHeader
	if string(buf[0:4]) != MagicBytes {
		return fh, ErrInvalidMagic
	}
	if v := binary.LittleEndian.Uint32(buf[4:8]); v != FormatVersion {
		return fh, errors.Wrapf(ErrUnsupportedVersion, "got %d, expected %d", v, FormatVersion)
	}
	fh.flags = binary.LittleEndian.Uint32(buf[8:12])

	headerSize := binary.LittleEndian.Uint64(buf[16:24])
	if headerSize > MaxHeaderSize {
		return fh, ErrHeaderTooLarge
	}
	dataSize := binary.LittleEndian.Uint64(buf[24:32])
	if dataSize > MaxTableElements*float64Size*MaxTableCount {
		return fh, errors.Wrapf(ErrOutOfBounds, "data size %d", dataSize)
	}
	//nolint:gosec // G115: both sizes are bounded above
	fh.headerSize, fh.dataSize = int64(headerSize), int64(dataSize)
	copy(fh.checksum[:], buf[ChecksumOffset:ChecksumOffset+ChecksumSize])
	return fh, nil
}

// Header returns the file header.
func (r *Reader) Header() Header {
	return r.header
}

// Flags returns the flag word of the fixed header.
func (r *Reader) Flags() uint32 {
	return r.flags
}

// Metadata returns the metadata map from the header.
func (r *Reader) Metadata() map[string]string {
	return r.header.Metadata
}

// TableNames returns the names of all tables in file order.
func (r *Reader) TableNames() []string {
	names := make([]string, len(r.header.Tables))
	for i, meta := range r.header.Tables {
		names[i] = meta.Name
	}
	return names
}

// TableInfo returns the metadata of one table.
func (r *Reader) TableInfo(name string) (*TableMeta, error) {
	for _, meta := range r.header.Tables {
		if meta.Name == name {
			return &meta, nil
		}
	}
	return nil, errors.Wrapf(ErrTableNotFound, "%q", name)
}

// ReadTable loads a single table.
func (r *Reader) ReadTable(name string) (*mat.Dense, error) {
	if r.closed {
		return nil, ErrClosed
	}
	meta, err := r.TableInfo(name)
	if err != nil {
		return nil, err
	}
	if err := ValidateTableShape(*meta); err != nil {
		return nil, err
	}
	data := make([]byte, meta.Size)
	if _, err := r.file.ReadAt(data, r.dataOffset+meta.Offset); err != nil {
		return nil, errors.Wrapf(err, "failed to read table %q", name)
	}
	return decodeTable(data, meta.Rows(), meta.Cols())
}

// ReadStateDict loads every table.
func (r *Reader) ReadStateDict() (map[string]*mat.Dense, error) {
	if r.closed {
		return nil, ErrClosed
	}
	state := make(map[string]*mat.Dense, len(r.header.Tables))
	for _, meta := range r.header.Tables {
		m, err := r.ReadTable(meta.Name)
		if err != nil {
			return nil, err
		}
		state[meta.Name] = m
	}
	return state, nil
}

// Close closes the reader and the underlying file.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.file.Close()
}

// LoadFile reads a complete state dict and its header from path.
func LoadFile(path string, opts ReaderOptions) (map[string]*mat.Dense, Header, error) {
	r, err := NewReaderWithOptions(path, opts)
	if err != nil {
		return nil, Header{}, err
	}
	defer func() { _ = r.Close() }()

	state, err := r.ReadStateDict()
	if err != nil {
		return nil, Header{}, err
	}
	return state, r.Header(), nil
}

// ReadFrom decodes a state dict from a stream written by WriteTo.
func ReadFrom(reader io.Reader, opts ReaderOptions) (map[string]*mat.Dense, Header, error) {
	buf := make([]byte, FixedHeaderSize)
	if _, err := io.ReadFull(reader, buf); err != nil {
		return nil, Header{}, errors.Wrap(err, "failed to read fixed header")
	}
	fh, err := parseFixedHeader(buf)
	if err != nil {
		return nil, Header{}, err
	}

	headerBytes := make([]byte, fh.headerSize)
	if _, err := io.ReadFull(reader, headerBytes); err != nil {
		return nil, Header{}, errors.Wrap(err, "failed to read header JSON")
	}
	var header Header
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return nil, Header{}, errors.Wrap(err, "failed to parse header JSON")
	}
	if err := ValidateHeader(&header, fh.dataSize, opts.ValidationLevel); err != nil {
		return nil, Header{}, errors.Wrap(err, "validation failed")
	}

	padding := alignedDataOffset(fh.headerSize) - FixedHeaderSize - fh.headerSize
	if _, err := io.CopyN(io.Discard, reader, padding); err != nil {
		return nil, Header{}, errors.Wrap(err, "failed to read padding")
	}
	data := make([]byte, fh.dataSize)
	if _, err := io.ReadFull(reader, data); err != nil {
		return nil, Header{}, errors.Wrap(err, "failed to read table data")
	}
	if !opts.SkipChecksumValidation {
		if err := ValidateChecksum(ComputeChecksum(data), fh.checksum); err != nil {
			return nil, Header{}, err
		}
	}

	state := make(map[string]*mat.Dense, len(header.Tables))
	section := bytes.NewReader(data)
	for _, meta := range header.Tables {
		if err := ValidateTableShape(meta); err != nil {
			return nil, Header{}, err
		}
		raw := make([]byte, meta.Size)
		if _, err := section.ReadAt(raw, meta.Offset); err != nil {
			return nil, Header{}, errors.Wrapf(err, "failed to read table %q", meta.Name)
		}
		m, err := decodeTable(raw, meta.Rows(), meta.Cols())
		if err != nil {
			return nil, Header{}, err
		}
		state[meta.Name] = m
	}
	return state, header, nil
}
