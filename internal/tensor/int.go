package tensor

import "fmt"

// IntTensor is a dense row-major int32 tensor.
// It carries token ids and 0/1 attention-validity indicators.
type IntTensor struct {
	shape Shape
	data  []int32
}

// FromInts creates an IntTensor from a Go slice (copied).
func FromInts(data []int32, shape ...int) (*IntTensor, error) {
	s := Shape(shape)
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if s.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, but got %d", s, s.NumElements(), len(data))
	}
	t := &IntTensor{shape: s.Clone(), data: make([]int32, len(data))}
	copy(t.data, data)
	return t, nil
}

// MustFromInts is FromInts that panics on error.
func MustFromInts(data []int32, shape ...int) *IntTensor {
	t, err := FromInts(data, shape...)
	if err != nil {
		panic(err)
	}
	return t
}

// FromRows builds a (len(rows), width) IntTensor, right-padding short rows with pad.
// Rows longer than width are truncated.
func FromRows(rows [][]int32, width int, pad int32) *IntTensor {
	t := FullInt(pad, len(rows), width)
	for i, row := range rows {
		copy(t.data[i*width:(i+1)*width], row)
	}
	return t
}

// FullInt creates an IntTensor filled with value.
func FullInt(value int32, shape ...int) *IntTensor {
	s := Shape(shape)
	if err := s.Validate(); err != nil {
		panic(fmt.Sprintf("tensor.FullInt: %v", err))
	}
	t := &IntTensor{shape: s.Clone(), data: make([]int32, s.NumElements())}
	for i := range t.data {
		t.data[i] = value
	}
	return t
}

// Shape returns the tensor's shape. The returned slice must not be modified.
func (t *IntTensor) Shape() Shape {
	return t.shape
}

// Data returns the underlying storage (zero-copy).
func (t *IntTensor) Data() []int32 {
	return t.data
}

// NumElements returns the total number of elements.
func (t *IntTensor) NumElements() int {
	return len(t.data)
}

// At returns the element at (row, col) of a 2D tensor.
func (t *IntTensor) At(row, col int) int32 {
	t.require2D("At")
	return t.data[row*t.shape[1]+col]
}

// Set writes the element at (row, col) of a 2D tensor.
func (t *IntTensor) Set(value int32, row, col int) {
	t.require2D("Set")
	t.data[row*t.shape[1]+col] = value
}

// Row returns a copy of row i of a 2D tensor.
func (t *IntTensor) Row(i int) []int32 {
	t.require2D("Row")
	w := t.shape[1]
	row := make([]int32, w)
	copy(row, t.data[i*w:(i+1)*w])
	return row
}

// Rows returns every row of a 2D tensor as a separate slice.
func (t *IntTensor) Rows() [][]int32 {
	t.require2D("Rows")
	rows := make([][]int32, t.shape[0])
	for i := range rows {
		rows[i] = t.Row(i)
	}
	return rows
}

// Clone returns a deep copy.
func (t *IntTensor) Clone() *IntTensor {
	data := make([]int32, len(t.data))
	copy(data, t.data)
	return &IntTensor{shape: t.shape.Clone(), data: data}
}

// Equal returns a BoolTensor that is true where the element equals value.
func (t *IntTensor) Equal(value int32) *BoolTensor {
	out := &BoolTensor{shape: t.shape.Clone(), data: make([]bool, len(t.data))}
	for i, v := range t.data {
		out.data[i] = v == value
	}
	return out
}

// NotEqual returns a BoolTensor that is true where the element differs from value.
func (t *IntTensor) NotEqual(value int32) *BoolTensor {
	return t.Equal(value).Not()
}

// AppendColumn returns a new (B, T+1) tensor with col appended on the right.
func (t *IntTensor) AppendColumn(col []int32) *IntTensor {
	t.require2D("AppendColumn")
	b, w := t.shape[0], t.shape[1]
	if len(col) != b {
		panic(fmt.Sprintf("tensor.AppendColumn: column has %d rows, tensor has %d", len(col), b))
	}
	out := &IntTensor{shape: Shape{b, w + 1}, data: make([]int32, b*(w+1))}
	for i := 0; i < b; i++ {
		copy(out.data[i*(w+1):], t.data[i*w:(i+1)*w])
		out.data[i*(w+1)+w] = col[i]
	}
	return out
}

// DropFirstColumn returns a new (B, T-1) tensor without column 0.
func (t *IntTensor) DropFirstColumn() *IntTensor {
	t.require2D("DropFirstColumn")
	b, w := t.shape[0], t.shape[1]
	if w == 0 {
		panic("tensor.DropFirstColumn: tensor has no columns")
	}
	out := &IntTensor{shape: Shape{b, w - 1}, data: make([]int32, b*(w-1))}
	for i := 0; i < b; i++ {
		copy(out.data[i*(w-1):(i+1)*(w-1)], t.data[i*w+1:(i+1)*w])
	}
	return out
}

func (t *IntTensor) require2D(op string) {
	if len(t.shape) != 2 {
		panic(fmt.Sprintf("tensor.%s: expected 2D IntTensor, got shape %v", op, t.shape))
	}
}
