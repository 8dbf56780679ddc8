package relevance

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Page - 정렬/필터가 끝난 목록의 한 페이지
type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// Paginate - 1부터 시작하는 offset 페이지네이션
// page < 1 은 1로, pageSize <= 0 은 기본값으로, MaxPageSize 초과는 MaxPageSize로 보정
// 범위를 벗어난 페이지는 빈 Items와 전체 개수를 돌려준다
func Paginate[T any](items []T, page, pageSize int) Page[T] {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	total := len(items)
	result := Page[T]{
		Items:      []T{},
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: (total + pageSize - 1) / pageSize,
	}

	// 곱셈 전에 범위를 확인해야 큰 page 값에서 overflow가 나지 않는다
	if page > result.TotalPages {
		return result
	}
	start := (page - 1) * pageSize
	end := start + pageSize
	if end > total {
		end = total
	}
	result.Items = items[start:end]
	return result
}
