package query

import "errors"

// ErrPageOutOfRange is returned for a page past the last one. An empty first page is allowed.
var ErrPageOutOfRange = errors.New("page out of range")

// Page is one slice of a paginated listing.
type Page[T any] struct {
	Items       []T   `json:"items"`
	Number      int   `json:"number"`
	Size        int   `json:"size"`
	Total       int64 `json:"total"`
	NumPages    int   `json:"num_pages"`
	HasNext     bool  `json:"has_next"`
	HasPrevious bool  `json:"has_previous"`
}

func newPage[T any](number, size int, total int64) (*Page[T], error) {
	if size <= 0 {
		size = 10
	}
	if number <= 0 {
		number = 1
	}
	numPages := int((total + int64(size) - 1) / int64(size))
	if numPages == 0 {
		numPages = 1
	}
	if number > numPages {
		return nil, ErrPageOutOfRange
	}
	return &Page[T]{
		Items:       []T{},
		Number:      number,
		Size:        size,
		Total:       total,
		NumPages:    numPages,
		HasNext:     number < numPages,
		HasPrevious: number > 1,
	}, nil
}

func (p *Page[T]) offset() int {
	return (p.Number - 1) * p.Size
}
