package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TicketTrip is the trip summary embedded in a ticket record.
type TicketTrip struct {
	EstimatedTravelTime TravelTime `json:"estimatedTravelTime"`
	Bus                 Bus        `json:"bus"`
	Driver              struct {
		Name string `json:"name"`
	} `json:"driver"`
	StartLocation Station         `json:"startLocation"`
	EndLocation   Station         `json:"endLocation"`
	DepartureTime time.Time       `json:"departureTime"`
	ArriveTime    time.Time       `json:"arriveTime"`
	Price         decimal.Decimal `json:"price"`
}

type Ticket struct {
	ID   string     `json:"_id"`
	Trip TicketTrip `json:"trip"`

	// SeatNumber is the global seat index into the bus, the key into the
	// trip's booked-markers sequence.
	SeatNumber int `json:"seatNumber"`

	PaymentStatus string `json:"paymentStatus"` // unpaid, paid
	PaymentMethod string `json:"paymentMethod"` // MOMO, VNPAY
	Status        string `json:"status"`
	IssuedAt      string `json:"issuedAt"`
}

type BookedSeat struct {
	TicketID   string `json:"ticketId"`
	SeatNumber int    `json:"seatNumber"`
}

// BookingResult reports a partially successful booking: seats already taken
// come back in FailedSeats while the rest are held as unpaid tickets.
type BookingResult struct {
	BookedSeats    []BookedSeat `json:"bookedSeats"`
	FailedSeats    []int        `json:"failedSeats"`
	TotalRequested int          `json:"totalRequested"`
	TotalBooked    int          `json:"totalBooked"`
}
