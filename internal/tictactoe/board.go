package tictactoe

const (
	MarkerX Marker = "X"
	MarkerO Marker = "O"

	Empty Marker = ""

	Size = 9
)

// WinLines lists the canonical triples in evaluation order: rows, columns, diagonals.
var WinLines = [8]Line{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

type Marker string

// Board is a 3x3 grid stored row-major.
type Board [Size]Marker

type Line [3]int

// Outcome is the result of evaluating a board.
type Outcome struct {
	Winner Marker
	Line   Line
	IsDraw bool
}

func (that Outcome) HasWinner() bool {
	return that.Winner != Empty
}

func (that Outcome) IsTerminal() bool {
	return that.HasWinner() || that.IsDraw
}

// ValidCell - checks that the index addresses a cell of the board.
func ValidCell(cell int) bool {
	return cell >= 0 && cell < Size
}

func (that Board) IsFull() bool {
	for _, cell := range that {
		if cell == Empty {
			return false
		}
	}

	return true
}

// CheckOutcome - reports the first completed line, a draw when the board is full, or neither.
func CheckOutcome(board Board) Outcome {
	for _, line := range WinLines {
		a, b, c := board[line[0]], board[line[1]], board[line[2]]
		if a != Empty && a == b && b == c {
			return Outcome{Winner: a, Line: line}
		}
	}

	if board.IsFull() {
		return Outcome{IsDraw: true}
	}

	return Outcome{}
}
