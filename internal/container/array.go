package container

import (
	"encoding/binary"
	"fmt"
	"math"
)

// #region dtype
// DType names the element type of an Array.
type DType string

const (
	DTypeFloat32 DType = "float32"
	DTypeFloat64 DType = "float64"
	DTypeInt32   DType = "int32"
	DTypeInt64   DType = "int64"
	DTypeUint8   DType = "uint8"
)

// ItemSize returns the byte width of one element, or 0 for an unknown dtype.
func (d DType) ItemSize() int {
	switch d {
	case DTypeFloat32, DTypeInt32:
		return 4
	case DTypeFloat64, DTypeInt64:
		return 8
	case DTypeUint8:
		return 1
	}
	return 0
}
// #endregion dtype

// #region array
// Array is a dense n-dimensional array stored as little-endian bytes in
// row-major order.
type Array struct {
	DType DType
	Shape []int
	Data  []byte
}

// Len returns the number of elements implied by Shape.
func (a Array) Len() int {
	n := 1
	for _, d := range a.Shape {
		n *= d
	}
	return n
}

// Check verifies that the dtype is known and Data matches Shape.
func (a Array) Check() error {
	want, err := a.ByteSize()
	if err != nil {
		return err
	}
	if len(a.Data) != want {
		return fmt.Errorf("%s shape %v needs %d bytes, have %d", a.DType, a.Shape, want, len(a.Data))
	}
	return nil
}

// ByteSize returns the payload length implied by DType and Shape. It
// fails on an unknown dtype, a negative dimension, or a size that does
// not fit in an int.
func (a Array) ByteSize() (int, error) {
	size := a.DType.ItemSize()
	if size == 0 {
		return 0, fmt.Errorf("unknown dtype %q", a.DType)
	}
	n := size
	for i, d := range a.Shape {
		if d < 0 {
			return 0, fmt.Errorf("negative dimension %d at axis %d", d, i)
		}
		if d != 0 && n > math.MaxInt/d {
			return 0, fmt.Errorf("shape %v overflows", a.Shape)
		}
		n *= d
	}
	return n, nil
}

func shapeOrFlat(shape []int, n int) []int {
	if len(shape) == 0 {
		return []int{n}
	}
	return append([]int(nil), shape...)
}
// #endregion array

// #region constructors
// FromFloat32 packs values; an empty shape means one dimension of len(values).
func FromFloat32(values []float32, shape ...int) Array {
	buf := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return Array{DType: DTypeFloat32, Shape: shapeOrFlat(shape, len(values)), Data: buf}
}

// FromFloat64 packs values; an empty shape means one dimension of len(values).
func FromFloat64(values []float64, shape ...int) Array {
	buf := make([]byte, len(values)*8)
	for i, v := range values {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return Array{DType: DTypeFloat64, Shape: shapeOrFlat(shape, len(values)), Data: buf}
}

// FromInt32 packs values; an empty shape means one dimension of len(values).
func FromInt32(values []int32, shape ...int) Array {
	buf := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], uint32(v))
	}
	return Array{DType: DTypeInt32, Shape: shapeOrFlat(shape, len(values)), Data: buf}
}

// FromInt64 packs values; an empty shape means one dimension of len(values).
func FromInt64(values []int64, shape ...int) Array {
	buf := make([]byte, len(values)*8)
	for i, v := range values {
		binary.LittleEndian.PutUint64(buf[i*8:], uint64(v))
	}
	return Array{DType: DTypeInt64, Shape: shapeOrFlat(shape, len(values)), Data: buf}
}

// FromUint8 copies values; an empty shape means one dimension of len(values).
func FromUint8(values []uint8, shape ...int) Array {
	return Array{DType: DTypeUint8, Shape: shapeOrFlat(shape, len(values)), Data: append([]byte(nil), values...)}
}
// #endregion constructors

// #region accessors
// Float32s unpacks a float32 array.
func (a Array) Float32s() ([]float32, error) {
	if err := a.want(DTypeFloat32); err != nil {
		return nil, err
	}
	out := make([]float32, len(a.Data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(a.Data[i*4:]))
	}
	return out, nil
}

// Float64s unpacks a float64 array.
func (a Array) Float64s() ([]float64, error) {
	if err := a.want(DTypeFloat64); err != nil {
		return nil, err
	}
	out := make([]float64, len(a.Data)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(a.Data[i*8:]))
	}
	return out, nil
}

// Int32s unpacks an int32 array.
func (a Array) Int32s() ([]int32, error) {
	if err := a.want(DTypeInt32); err != nil {
		return nil, err
	}
	out := make([]int32, len(a.Data)/4)
	for i := range out {
		out[i] = int32(binary.LittleEndian.Uint32(a.Data[i*4:]))
	}
	return out, nil
}

// Int64s unpacks an int64 array.
func (a Array) Int64s() ([]int64, error) {
	if err := a.want(DTypeInt64); err != nil {
		return nil, err
	}
	out := make([]int64, len(a.Data)/8)
	for i := range out {
		out[i] = int64(binary.LittleEndian.Uint64(a.Data[i*8:]))
	}
	return out, nil
}

// Uint8s returns a copy of a uint8 array.
func (a Array) Uint8s() ([]uint8, error) {
	if err := a.want(DTypeUint8); err != nil {
		return nil, err
	}
	return append([]uint8(nil), a.Data...), nil
}

func (a Array) want(d DType) error {
	if a.DType != d {
		return fmt.Errorf("array is %s, not %s", a.DType, d)
	}
	if len(a.Data)%d.ItemSize() != 0 {
		return fmt.Errorf("%s payload of %d bytes is not a whole number of elements", d, len(a.Data))
	}
	return nil
}
// #endregion accessors
