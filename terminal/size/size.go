package size

// CellCountInt is the integer type used to count cells in either
// dimension of the grid. A terminal dimension can never exceed what
// fits here; sequences that ask for more saturate.
type CellCountInt = uint16

// MaxCellCount is the largest value representable by CellCountInt.
const MaxCellCount CellCountInt = 0xFFFF
