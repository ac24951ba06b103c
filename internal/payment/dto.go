package payment

import (
	"github.com/frahmantamala/hosted-checkout/internal/core/datamodel/payment"
)

type ListPaymentsResponse struct {
	Payments   []*payment.Payment `json:"payments"`
	Pagination Pagination         `json:"pagination"`
}

type Pagination struct {
	Total   int64 `json:"total"`
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	HasMore bool  `json:"hasMore"`
}

func NewPagination(total int64, limit, offset int) Pagination {
	return Pagination{
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: int64(offset+limit) < total,
	}
}
