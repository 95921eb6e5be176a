package serialization

import (
	"fmt"
	"sort"
	"strings"
)

// Validation limits for resource protection.
const (
	MaxHeaderSize    = 100 * 1024 * 1024 // 100MB - maximum JSON header size
	MaxTableCount    = 10_000            // Maximum number of tables in a file
	MaxTableNameLen  = 1024              // Maximum table name length
	MaxTableElements = 1 << 31           // Maximum elements per table
)

// ValidationLevel controls the strictness of validation.
type ValidationLevel int

const (
	// ValidationStrict performs all checks (default).
	ValidationStrict ValidationLevel = iota
	// ValidationNormal checks names and shapes but not offsets.
	ValidationNormal
	// ValidationNone skips validation. Use only with trusted input.
	ValidationNone
)

// ValidateTableOffsets checks for overlapping regions and out-of-bounds
// access in the data section.
func ValidateTableOffsets(tables []TableMeta, dataSize int64) error {
	if len(tables) > MaxTableCount {
		return &ValidationError{
			Type:   "too_many_tables",
			Detail: fmt.Sprintf("got %d, max %d", len(tables), MaxTableCount),
			Err:    ErrTooManyTables,
		}
	}

	sorted := make([]TableMeta, len(tables))
	copy(sorted, tables)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Offset < sorted[j].Offset
	})

	for i, t := range sorted {
		if t.Offset < 0 || t.Size < 0 {
			return &ValidationError{
				Type:   "negative_offset",
				Table:  t.Name,
				Detail: fmt.Sprintf("offset=%d, size=%d", t.Offset, t.Size),
				Err:    ErrNegativeOffset,
			}
		}

		if t.Offset+t.Size > dataSize {
			return &ValidationError{
				Type:   "out_of_bounds",
				Table:  t.Name,
				Detail: fmt.Sprintf("offset %d + size %d > data_size %d", t.Offset, t.Size, dataSize),
				Err:    ErrOutOfBounds,
			}
		}

		if i < len(sorted)-1 {
			next := sorted[i+1]
			if t.Offset+t.Size > next.Offset {
				return &ValidationError{
					Type:   "offset_overlap",
					Table:  t.Name,
					Table2: next.Name,
					Detail: fmt.Sprintf("regions [%d-%d] and [%d-%d] overlap",
						t.Offset, t.Offset+t.Size, next.Offset, next.Offset+next.Size),
					Err: ErrOffsetOverlap,
				}
			}
		}
	}

	return nil
}

// ValidateTableName rejects empty, oversized and path-like names.
// Dotted names such as "context.W.moment" are valid.
func ValidateTableName(name string) error {
	invalid := func(detail string) error {
		return &ValidationError{Type: "invalid_name", Table: name, Detail: detail, Err: ErrInvalidTableName}
	}
	switch {
	case name == "":
		return invalid("empty name")
	case len(name) > MaxTableNameLen:
		return invalid(fmt.Sprintf("length %d > max %d", len(name), MaxTableNameLen))
	case strings.Contains(name, ".."):
		return invalid("contains '..'")
	case strings.ContainsAny(name, "/\\"):
		return invalid("contains path separator (/ or \\)")
	case strings.Contains(name, "\x00"):
		return invalid("contains null byte")
	}
	return nil
}

// ValidateTableShape checks that a table is a non-empty float64 matrix whose
// byte size matches its shape.
func ValidateTableShape(t TableMeta) error {
	bad := func(detail string) error {
		return &ValidationError{Type: "invalid_shape", Table: t.Name, Detail: detail, Err: ErrInvalidShape}
	}
	if t.DType != DTypeFloat64 {
		return bad(fmt.Sprintf("unsupported dtype %q", t.DType))
	}
	if len(t.Shape) != 2 || t.Shape[0] <= 0 || t.Shape[1] <= 0 {
		return bad(fmt.Sprintf("shape %v is not a positive 2D shape", t.Shape))
	}
	if int64(t.Shape[0])*int64(t.Shape[1]) > MaxTableElements {
		return bad(fmt.Sprintf("shape %v exceeds %d elements", t.Shape, int64(MaxTableElements)))
	}
	if want := int64(t.Shape[0]) * int64(t.Shape[1]) * float64Size; t.Size != want {
		return bad(fmt.Sprintf("size %d, want %d for shape %v", t.Size, want, t.Shape))
	}
	return nil
}

// ValidateHeader performs header validation at the given level.
func ValidateHeader(h *Header, dataSize int64, level ValidationLevel) error {
	if level == ValidationNone {
		return nil
	}

	if len(h.Tables) > MaxTableCount {
		return &ValidationError{
			Type:   "too_many_tables",
			Detail: fmt.Sprintf("got %d, max %d", len(h.Tables), MaxTableCount),
			Err:    ErrTooManyTables,
		}
	}

	seen := make(map[string]bool, len(h.Tables))
	for _, t := range h.Tables {
		if err := ValidateTableName(t.Name); err != nil {
			return err
		}
		if seen[t.Name] {
			return &ValidationError{Type: "duplicate_name", Table: t.Name, Detail: "appears twice", Err: ErrInvalidTableName}
		}
		seen[t.Name] = true
		if err := ValidateTableShape(t); err != nil {
			return err
		}
	}

	if level == ValidationStrict {
		if err := ValidateTableOffsets(h.Tables, dataSize); err != nil {
			return err
		}
	}

	return nil
}
