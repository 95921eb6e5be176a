package serialization

import (
	"time"
)

// Format constants.
const (
	MagicBytes      = "WVEC"
	FormatVersion   = 1    // Fixed header with SHA-256 checksum
	HeaderAlignment = 64   // Align table data to 64 bytes
	FixedHeaderSize = 64   // Fixed header size (0x40 bytes)
	ChecksumSize    = 32   // SHA-256 checksum size
	ChecksumOffset  = 0x20 // Checksum offset in the fixed header
)

// DTypeFloat64 is the only element type stored by this format.
const DTypeFloat64 = "float64"

// float64Size is the encoded size of one table element.
const float64Size = 8

// Flags for the .wvec format.
const (
	FlagHasMoments   uint32 = 1 << 0 // bit 0: adagrad moments included
	FlagHasMetadata  uint32 = 1 << 1 // bit 1: custom metadata included
	FlagIsCheckpoint uint32 = 1 << 2 // bit 2: training state included
)

// Header represents the JSON header in a .wvec file.
type Header struct {
	FormatVersion  int               `json:"format_version"`       // Version of the .wvec format
	LibVersion     string            `json:"lib_version"`          // Version of the library that wrote the file
	ModelType      string            `json:"model_type"`           // Pipeline that produced the state (e.g. "context-w2v")
	RunID          string            `json:"run_id,omitempty"`     // Training run identifier
	CreatedAt      time.Time         `json:"created_at"`           // When the file was created
	Tables         []TableMeta       `json:"tables"`               // Table metadata
	Metadata       map[string]string `json:"metadata"`             // Custom metadata
	CheckpointMeta *CheckpointMeta   `json:"checkpoint,omitempty"` // Training state (optional)
}

// CheckpointMeta contains training state information for checkpoints.
type CheckpointMeta struct {
	Epoch           int            `json:"epoch"`            // Training epoch number
	Step            int64          `json:"step"`             // Training step (batch) number
	Loss            float64        `json:"loss"`             // Mean batch loss at checkpoint
	OptimizerType   string         `json:"optimizer_type"`   // Always "adagrad" for now
	OptimizerConfig map[string]any `json:"optimizer_config"` // Optimizer hyperparameters
	TrainingMeta    map[string]any `json:"training_meta"`    // Additional training metadata
}

// TableMeta describes a table in the .wvec file.
type TableMeta struct {
	Name   string `json:"name"`   // Table name (e.g., "lut.W")
	DType  string `json:"dtype"`  // Element type, always "float64"
	Shape  []int  `json:"shape"`  // [rows, cols]
	Offset int64  `json:"offset"` // Offset in the data section
	Size   int64  `json:"size"`   // Size in bytes
}

// Rows returns the row count recorded in the shape.
func (m TableMeta) Rows() int {
	if len(m.Shape) != 2 {
		return 0
	}
	return m.Shape[0]
}

// Cols returns the column count recorded in the shape.
func (m TableMeta) Cols() int {
	if len(m.Shape) != 2 {
		return 0
	}
	return m.Shape[1]
}

// alignedDataOffset returns where table data starts for a JSON header of
// headerSize bytes.
func alignedDataOffset(headerSize int64) int64 {
	pos := int64(FixedHeaderSize) + headerSize
	return pos + (HeaderAlignment-(pos%HeaderAlignment))%HeaderAlignment
}
