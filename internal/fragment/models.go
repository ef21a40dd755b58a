package fragment

import (
	"encoding/json"
	"math"
	"time"
)

// Fragment is one OCR-extracted text span on a document page. Fragments are
// immutable once recorded; a page accumulates fragments from every extraction
// attempt ever run against it.
type Fragment struct {
	ID                  string    `json:"id"`
	DocumentID          string    `json:"document_id"`
	PageNumber          int       `json:"page_number"`
	Text                string    `json:"text"`
	Box                 MaybeBox  `json:"bounding_box"`
	ExtractionRequestID string    `json:"extraction_request_id,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}

// Box is an axis-aligned bounding box in page coordinates.
type Box struct {
	X0, Y0, X1, Y1 float64
}

// Area returns the box area with negative extents clamped to zero, so
// degenerate boxes (x1 < x0) sort like empty ones instead of going negative.
func (b Box) Area() float64 {
	w := math.Max(0, b.X1-b.X0)
	h := math.Max(0, b.Y1-b.Y0)
	return w * h
}

// MaybeBox wraps an optional bounding box coming from an untrusted producer.
// Anything that is not exactly four finite numbers decodes as absent rather
// than failing the whole batch.
type MaybeBox struct {
	Box *Box
}

func (m *MaybeBox) UnmarshalJSON(data []byte) error {
	m.Box = nil
	var coords []float64
	if err := json.Unmarshal(data, &coords); err != nil {
		return nil
	}
	if len(coords) != 4 {
		return nil
	}
	for _, c := range coords {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return nil
		}
	}
	m.Box = &Box{X0: coords[0], Y0: coords[1], X1: coords[2], Y1: coords[3]}
	return nil
}

func (m MaybeBox) MarshalJSON() ([]byte, error) {
	if m.Box == nil {
		return []byte("null"), nil
	}
	return json.Marshal([4]float64{m.Box.X0, m.Box.Y0, m.Box.X1, m.Box.Y1})
}

// NewBox is a convenience constructor used by callers that already hold
// validated coordinates.
func NewBox(x0, y0, x1, y1 float64) MaybeBox {
	return MaybeBox{Box: &Box{X0: x0, Y0: y0, X1: x1, Y1: y1}}
}

// Selection is the result of isolating the most recent extraction attempt on
// a page. RequestID is empty when no fragment carried a request id and the
// whole input was returned.
type Selection struct {
	RequestID string     `json:"selected_request_id"`
	Fragments []Fragment `json:"fragments"`
}
