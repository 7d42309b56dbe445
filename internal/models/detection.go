package models

// Detection is one surviving detection stored in the journal.
type Detection struct {
	ID         int64   `json:"id"`
	RunID      int64   `json:"run_id"`
	Frame      int     `json:"frame"`
	ClassID    int     `json:"class_id"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
}
