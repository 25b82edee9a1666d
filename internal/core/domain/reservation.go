// internal/core/domain/reservation.go
package domain

import "github.com/google/uuid"

// ReservationRequest asks the reservation layer to decrement one product's
// stock. Requests for the same product are merged before locking.
type ReservationRequest struct {
	ProductID uuid.UUID
	Quantity  int
}

// ReservationRequestsFromItems maps sale items onto reservation requests.
// Items are expected to already be merged per product.
func ReservationRequestsFromItems(items []SaleItem) []ReservationRequest {
	reqs := make([]ReservationRequest, 0, len(items))
	for _, item := range items {
		reqs = append(reqs, ReservationRequest{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}
	return reqs
}
