package domain

// Page is one slice of an ordered listing
type Page[T any] struct {
	Items   []T
	Number  int // 1-based
	PerPage int
	Total   int
}

// NewPage normalises a requested page number; anything below 1 becomes 1
func NewPage[T any](items []T, number, perPage, total int) Page[T] {
	if number < 1 {
		number = 1
	}
	return Page[T]{Items: items, Number: number, PerPage: perPage, Total: total}
}

// Offset returns the number of rows to skip for a page
func Offset(number, perPage int) int {
	if number < 1 {
		number = 1
	}
	return (number - 1) * perPage
}

// Pages returns the total number of pages, at least 1
func (p Page[T]) Pages() int {
	if p.PerPage <= 0 || p.Total == 0 {
		return 1
	}
	return (p.Total + p.PerPage - 1) / p.PerPage
}

func (p Page[T]) HasPrev() bool { return p.Number > 1 }
func (p Page[T]) HasNext() bool { return p.Number < p.Pages() }
func (p Page[T]) PrevNum() int  { return p.Number - 1 }
func (p Page[T]) NextNum() int  { return p.Number + 1 }

// IterPages lists page numbers for a pager: one page at each edge, one before
// and two after the current page. A 0 marks a gap.
func (p Page[T]) IterPages() []int {
	const leftEdge, leftCurrent, rightCurrent, rightEdge = 1, 1, 2, 1

	pages := p.Pages()
	var out []int
	last := 0
	for n := 1; n <= pages; n++ {
		inWindow := n <= leftEdge ||
			(n >= p.Number-leftCurrent && n <= p.Number+rightCurrent) ||
			n > pages-rightEdge
		if !inWindow {
			continue
		}
		if last+1 != n {
			out = append(out, 0)
		}
		out = append(out, n)
		last = n
	}
	return out
}
