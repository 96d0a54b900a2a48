package api

import (
	"context"
	"fmt"
	"net/http"

	"bus-ticket/internal/auth"
	"bus-ticket/models"
)

// TicketService books and manages tickets on behalf of the signed-in user.
// Every call goes through the gateway and may transparently refresh the
// session.
type TicketService struct {
	gw *auth.Gateway
}

func NewTicketService(gw *auth.Gateway) *TicketService {
	return &TicketService{gw: gw}
}

// Book reserves the given seat indexes on a trip. The backend books seats
// individually, so a partial success is a normal outcome: check
// BookingResult.FailedSeats, not just the error.
func (s *TicketService) Book(ctx context.Context, tripID string, seatNumbers []int, phone string) (*models.BookingResult, error) {
	body, err := marshalBody(map[string]any{
		"tripId":      tripID,
		"seatNumbers": seatNumbers,
		"phone":       phone,
	})
	if err != nil {
		return nil, fmt.Errorf("book: %w", err)
	}

	resp, err := s.gw.Do(ctx, http.MethodPost, "/tickets", body, nil)
	if err != nil {
		return nil, fmt.Errorf("book: %w", err)
	}

	var reply struct {
		Success bool                 `json:"success"`
		Message string               `json:"message"`
		Data    models.BookingResult `json:"data"`
	}
	if err := decodeInto(resp, &reply); err != nil {
		return nil, fmt.Errorf("book: %w", err)
	}
	if !reply.Success {
		return nil, fmt.Errorf("book: backend rejected booking: %s", reply.Message)
	}
	return &reply.Data, nil
}

// Cancel releases a single ticket.
func (s *TicketService) Cancel(ctx context.Context, ticketID string) error {
	resp, err := s.gw.Do(ctx, http.MethodDelete, "/tickets/"+ticketID, nil, nil)
	if err != nil {
		return fmt.Errorf("cancel ticket: %w", err)
	}

	var reply struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := decodeInto(resp, &reply); err != nil {
		return fmt.Errorf("cancel ticket: %w", err)
	}
	if !reply.Success {
		return fmt.Errorf("cancel ticket: backend rejected cancel: %s", reply.Message)
	}
	return nil
}

// MarkPaid flips a ticket to paid after the payment provider confirmed the
// charge.
func (s *TicketService) MarkPaid(ctx context.Context, ticketID, paymentMethod string) error {
	body, err := marshalBody(map[string]string{
		"paymentStatus": "paid",
		"paymentMethod": paymentMethod,
	})
	if err != nil {
		return fmt.Errorf("mark paid: %w", err)
	}

	resp, err := s.gw.Do(ctx, http.MethodPut, "/tickets/update/"+ticketID, body, nil)
	if err != nil {
		return fmt.Errorf("mark paid: %w", err)
	}

	var reply struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := decodeInto(resp, &reply); err != nil {
		return fmt.Errorf("mark paid: %w", err)
	}
	if !reply.Success {
		return fmt.Errorf("mark paid: backend rejected update: %s", reply.Message)
	}
	return nil
}

// ListMine returns the signed-in user's tickets.
func (s *TicketService) ListMine(ctx context.Context) ([]models.Ticket, error) {
	resp, err := s.gw.Do(ctx, http.MethodGet, "/tickets/user", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}

	var reply struct {
		Success bool            `json:"success"`
		Tickets []models.Ticket `json:"tickets"`
	}
	if err := decodeInto(resp, &reply); err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	return reply.Tickets, nil
}
