package domain

// PaginationParams holds offset-based pagination parameters for list queries.
// From is the number of rows to skip, Size the maximum number of rows to return.
type PaginationParams struct {
	From int
	Size int
}

// Offset returns the row offset, never negative.
func (p PaginationParams) Offset() int {
	if p.From < 0 {
		return 0
	}
	return p.From
}

// Limit returns the page size, falling back to 10 when unset.
func (p PaginationParams) Limit() int {
	if p.Size < 1 {
		return 10
	}
	return p.Size
}
