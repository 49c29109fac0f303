package models

import "time"

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// OrderListFilter is the caller-supplied list query. Nil pointers mean the
// parameter was not supplied.
type OrderListFilter struct {
	UserID    int64
	Status    *string
	Page      *int
	PageSize  *int
	SortOrder *string
	StartDate *time.Time
	EndDate   *time.Time
}

// OrderQuery is a validated, defaulted OrderListFilter ready for storage.
type OrderQuery struct {
	UserID    int64
	Status    *OrderStatus
	Page      int
	PageSize  int
	SortOrder SortOrder
	StartDate *time.Time
	EndDate   *time.Time
}

func (q OrderQuery) Offset() int {
	return (q.Page - 1) * q.PageSize
}

// OrderPage is one page of orders plus the metadata derived from the total.
type OrderPage struct {
	Data            []Order `json:"data"`
	TotalItems      int     `json:"totalItems"`
	TotalPages      int     `json:"totalPages"`
	CurrentPage     int     `json:"currentPage"`
	HasNextPage     bool    `json:"hasNextPage"`
	HasPreviousPage bool    `json:"hasPreviousPage"`
}

// NewOrderPage derives the page metadata for a storage result.
func NewOrderPage(orders []Order, totalItems int, q OrderQuery) OrderPage {
	if orders == nil {
		orders = []Order{}
	}
	totalPages := 0
	if q.PageSize > 0 {
		totalPages = (totalItems + q.PageSize - 1) / q.PageSize
	}
	return OrderPage{
		Data:            orders,
		TotalItems:      totalItems,
		TotalPages:      totalPages,
		CurrentPage:     q.Page,
		HasNextPage:     q.Page < totalPages,
		HasPreviousPage: q.Page > 1,
	}
}
