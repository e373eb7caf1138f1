package pagination

// Metadata describes the page returned alongside list items.
type Metadata struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Pages int   `json:"pages"`
}

// Result is a single page of items.
type Result[T any] struct {
	Items    []T      `json:"items"`
	Metadata Metadata `json:"metadata"`
}

// NewMetadata computes the page count as ceil(total/limit).
func NewMetadata(total int64, page, limit int) Metadata {
	pages := 0
	if limit > 0 && total > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Metadata{Total: total, Page: page, Limit: limit, Pages: pages}
}

// MapResult converts the items of a page while keeping its metadata.
func MapResult[T, U any](in *Result[T], fn func(T) U) *Result[U] {
	out := &Result[U]{Items: make([]U, 0, len(in.Items)), Metadata: in.Metadata}
	for _, item := range in.Items {
		out.Items = append(out.Items, fn(item))
	}
	return out
}
