package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"bus-ticket/internal/auth"
	"bus-ticket/models"
)

type PaymentService struct {
	gw *auth.Gateway
}

func NewPaymentService(gw *auth.Gateway) *PaymentService {
	return &PaymentService{gw: gw}
}

// OrderID packs ticket ids into the provider order reference; SplitOrderID
// undoes it when the provider redirects back.
func OrderID(ticketIDs []string) string {
	return strings.Join(ticketIDs, "-")
}

func SplitOrderID(orderID string) []string {
	if orderID == "" {
		return nil
	}
	return strings.Split(orderID, "-")
}

// Create asks the backend for a hosted payment page at the provider and
// returns the URL the user must open to complete the charge.
func (s *PaymentService) Create(ctx context.Context, req models.PaymentRequest) (*models.PaymentSession, error) {
	body, err := marshalBody(req)
	if err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	resp, err := s.gw.Do(ctx, http.MethodPost, "/payment/create", body, nil)
	if err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	var reply struct {
		Success bool                  `json:"success"`
		Message string                `json:"message"`
		Data    models.PaymentSession `json:"data"`
	}
	if err := decodeInto(resp, &reply); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}
	if !reply.Success {
		return nil, fmt.Errorf("create payment: backend rejected request: %s", reply.Message)
	}
	if reply.Data.PaymentURL == "" {
		return nil, fmt.Errorf("create payment: backend returned no payment url")
	}
	return &reply.Data, nil
}
