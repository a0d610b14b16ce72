package calendar

const (
	DefaultPageSize = 10
	MaxPageSize     = 100

	// MaxPage ограничивает номер страницы, чтобы смещение не переполнялось.
	MaxPage = 1_000_000
)

// PageRequest описывает запрошенную страницу списка.
type PageRequest struct {
	Page     int // номер страницы (с 1)
	PageSize int // количество элементов на странице
}

// NormalizePage приводит параметры к допустимым значениям:
// page <= 0 -> 1, page > MaxPage -> MaxPage, size <= 0 -> DefaultPageSize, size > MaxPageSize -> MaxPageSize.
func NormalizePage(page, pageSize int) PageRequest {
	if page <= 0 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return PageRequest{Page: page, PageSize: pageSize}
}

func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Page описывает одну страницу элементов.
type Page[T any] struct {
	Items    []T
	Page     int
	PageSize int
	Total    int64
}

func NewPage[T any](items []T, req PageRequest, total int64) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Page: req.Page, PageSize: req.PageSize, Total: total}
}

// TotalPages — количество страниц, округление вверх.
func (p Page[T]) TotalPages() int {
	if p.PageSize <= 0 {
		return 0
	}
	return int((p.Total + int64(p.PageSize) - 1) / int64(p.PageSize))
}

func (p Page[T]) HasNext() bool { return p.Page < p.TotalPages() }
func (p Page[T]) HasPrev() bool { return p.Page > 1 }
