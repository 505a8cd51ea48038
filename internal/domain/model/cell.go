package model

// CellJob asks for the walking distance of one active cost-matrix cell.
type CellJob struct {
	Row    int
	Col    int
	Origin Coordinate
	Dest   Coordinate
}

// CellResult is the outcome of a CellJob. Found is false when the routing
// service had no route; Err is set when the request itself failed.
type CellResult struct {
	Row    int
	Col    int
	Meters float64
	Found  bool
	Err    error
}
