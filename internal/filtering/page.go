package filtering

// Page is one slice of a filtered result set.
type Page[T any] struct {
	Items       []T `json:"items"`
	Total       int `json:"total"`
	TotalPages  int `json:"total_pages"`
	CurrentPage int `json:"current_page"`
}

// Paginate slices items for a 1-based page. A page outside 1..TotalPages is
// empty but still reports the totals.
func Paginate[T any](items []T, page, limit int) Page[T] {
	total := len(items)
	result := Page[T]{
		Items:       []T{},
		Total:       total,
		TotalPages:  (total + limit - 1) / limit,
		CurrentPage: page,
	}

	if page < 1 || page > result.TotalPages {
		return result
	}
	start := (page - 1) * limit
	end := min(start+limit, total)
	result.Items = items[start:end]
	return result
}
