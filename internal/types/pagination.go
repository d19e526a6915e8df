package types

// PageInfo contains pagination metadata for list responses.
type PageInfo struct {
	HasMore    bool `json:"has_more"`
	TotalItems *int `json:"total_items,omitempty"`
}

// ListResponse is a generic paginated response wrapper.
type ListResponse[T any] struct {
	Data     []T      `json:"data"`
	PageInfo PageInfo `json:"pagination"`
}

// ResponseMeta contains non-blocking metadata returned with API responses.
type ResponseMeta struct {
	Warnings   []string  `json:"warnings,omitempty"`
	Pagination *PageInfo `json:"pagination,omitempty"`
}

// ListParams bounds offset-based list queries. The zero value means
// "first page, default size".
type ListParams struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// Default list sizing. Repositories clamp caller-supplied values into
// [1, MaxListLimit].
const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// Normalize clamps the params into valid bounds.
func (p ListParams) Normalize() ListParams {
	if p.Limit <= 0 {
		p.Limit = DefaultListLimit
	}
	if p.Limit > MaxListLimit {
		p.Limit = MaxListLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}
