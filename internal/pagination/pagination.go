package pagination

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/apperr"
)

const (
	DefaultLimit = 20
	MaxLimit     = 200
)

// Page selects a window of a result set.
type Page struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// Normalize clamps the page to sane bounds.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// Window returns the [start, end) bounds of the page over n items.
func (p Page) Window(n int) (int, int) {
	p = p.Normalize()
	start := p.Offset
	if start > n {
		start = n
	}
	end := start + p.Limit
	if end > n {
		end = n
	}
	return start, end
}

// Result is a page of items plus the total count of the filtered set.
type Result[T any] struct {
	Items  []T `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// NewResult builds a Result, never returning a nil Items slice.
func NewResult[T any](items []T, total int, p Page) Result[T] {
	if items == nil {
		items = []T{}
	}
	p = p.Normalize()
	return Result[T]{Items: items, Total: total, Limit: p.Limit, Offset: p.Offset}
}

// Slice pages over an in-memory slice.
func Slice[T any](all []T, p Page) Result[T] {
	start, end := p.Window(len(all))
	out := make([]T, end-start)
	copy(out, all[start:end])
	return NewResult(out, len(all), p)
}

// Parse reads limit and offset query values.
func Parse(limitRaw, offsetRaw string) (Page, error) {
	var p Page
	if s := strings.TrimSpace(limitRaw); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 || v > MaxLimit {
			return Page{}, apperr.Field("limit", fmt.Sprintf("limit must be between 1 and %d", MaxLimit))
		}
		p.Limit = v
	}
	if s := strings.TrimSpace(offsetRaw); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 0 {
			return Page{}, apperr.Field("offset", "offset must be a non-negative integer")
		}
		p.Offset = v
	}
	return p.Normalize(), nil
}
