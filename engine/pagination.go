package engine

// PageRequest carries the caller's pagination parameters. StartIndex is
// 1-based with a floor of 1; Count below zero means unset and takes the
// default page size, otherwise it is clamped to [0, max].
type PageRequest struct {
	StartIndex int
	Count      int
}

// Page is one page of a filtered listing. TotalResults is always the
// cardinality of the set after the filter is applied, never the tenant's
// unfiltered count. ItemsPerPage is the number of items actually returned,
// which may be smaller than requested near the end of the set. StartIndex
// is echoed unchanged (after flooring).
type Page struct {
	TotalResults int
	StartIndex   int
	ItemsPerPage int
	Resources    []*Entity
}

// plan maps the request onto a bounded storage range.
func (r PageRequest) plan(defaultSize, maxSize int) (startIndex, offset, limit int) {
	startIndex = r.StartIndex
	if startIndex < 1 {
		startIndex = 1
	}

	limit = r.Count
	if limit < 0 {
		limit = defaultSize
	}
	if limit > maxSize {
		limit = maxSize
	}

	return startIndex, startIndex - 1, limit
}
