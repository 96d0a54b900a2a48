package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Station struct {
	ID      string `json:"_id"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
}

type TravelTime struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
}

type Bus struct {
	ID           string `json:"_id"`
	SeatCapacity int    `json:"seatCapacity"`
	LicensePlate string `json:"licensePlate,omitempty"`
}

type Trip struct {
	ID                  string          `json:"_id"`
	Bus                 Bus             `json:"bus"`
	Driver              string          `json:"driver"`
	StartLocation       Station         `json:"startLocation"`
	EndLocation         Station         `json:"endLocation"`
	DepartureTime       time.Time       `json:"departureTime"`
	ArriveTime          time.Time       `json:"arriveTime"`
	Price               decimal.Decimal `json:"price"`
	AvailableSeats      int             `json:"availableSeats"`
	EstimatedTravelTime TravelTime      `json:"estimatedTravelTime"`

	// BookedPhoneNumbers is indexed by seat index; a non-empty entry means
	// the seat is taken. Snapshot state owned by the server.
	BookedPhoneNumbers []string `json:"bookedPhoneNumbers"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
