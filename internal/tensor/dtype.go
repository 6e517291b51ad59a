// Package tensor provides the dense tensor types shared by the facet
// training stack.
//
// The package is deliberately small: the trainer moves image batches and
// integer label vectors between loaders, models and checkpoints, so only
// Float32 and Int64 payloads exist and all data lives in host memory.
package tensor

// DataType represents runtime type information for tensors.
type DataType int

// Supported data types.
const (
	Float32 DataType = iota
	Int64
)

// Size returns the size of one element in bytes.
func (dt DataType) Size() int {
	switch dt {
	case Float32:
		return 4
	case Int64:
		return 8
	default:
		return 0
	}
}

// String returns a human-readable type name.
func (dt DataType) String() string {
	switch dt {
	case Float32:
		return "float32"
	case Int64:
		return "int64"
	default:
		return "unknown"
	}
}
