package serialization

import (
	"crypto/sha256"
	"encoding/binary"
	"hash"
	"io"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ComputeChecksum computes the SHA-256 checksum of data.
func ComputeChecksum(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// ComputeChecksumReader computes the SHA-256 checksum of everything read
// from r.
func ComputeChecksumReader(r io.Reader) ([32]byte, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return [32]byte{}, errors.Wrap(err, "failed to hash data")
	}
	return sum(h), nil
}

// ValidateChecksum compares a computed checksum against the stored one.
func ValidateChecksum(computed, stored [32]byte) error {
	if computed != stored {
		return ErrChecksumMismatch
	}
	return nil
}

// encodeTable appends the little-endian float64 encoding of m to buf.
func encodeTable(buf []byte, m *mat.Dense) []byte {
	rows, _ := m.Dims()
	for i := range rows {
		for _, v := range m.RawRowView(i) {
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
		}
	}
	return buf
}

// decodeTable fills a rows x cols table from its little-endian encoding.
func decodeTable(data []byte, rows, cols int) (*mat.Dense, error) {
	if rows <= 0 || cols <= 0 || len(data) != rows*cols*float64Size {
		return nil, errors.Wrapf(ErrInvalidShape, "%d bytes for a %dx%d table", len(data), rows, cols)
	}
	vals := make([]float64, rows*cols)
	for i := range vals {
		vals[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*float64Size:]))
	}
	return mat.NewDense(rows, cols, vals), nil
}

func sum(h hash.Hash) [32]byte {
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
