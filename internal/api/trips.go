package api

import (
	"context"
	"fmt"
	"net/url"

	"bus-ticket/models"
)

type TripService struct {
	c     *Client
	cache *SnapshotCache
}

func NewTripService(c *Client, cache *SnapshotCache) *TripService {
	return &TripService{c: c, cache: cache}
}

// Search lists trips between two stations on a given date. The date is the
// backend's wire format, YYYY-MM-DD.
func (s *TripService) Search(ctx context.Context, startID, endID, date string) ([]models.Trip, error) {
	if s.cache != nil {
		if trips, ok := s.cache.Trips(ctx, startID, endID, date); ok {
			return trips, nil
		}
	}

	q := url.Values{}
	q.Set("startLocation", startID)
	q.Set("endLocation", endID)
	q.Set("time", date)

	resp, err := s.c.get(ctx, "/trips?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("trips: %w", err)
	}

	var reply struct {
		Message string `json:"message"`
		Data    struct {
			Trips []models.Trip `json:"trips"`
		} `json:"data"`
	}
	if err := decodeInto(resp, &reply); err != nil {
		return nil, fmt.Errorf("trips: %w", err)
	}

	if s.cache != nil {
		s.cache.PutTrips(ctx, startID, endID, date, reply.Data.Trips)
	}
	return reply.Data.Trips, nil
}

// Detail fetches a single trip, including its current booked-seat markers.
// Never cached: seat availability goes stale too fast.
func (s *TripService) Detail(ctx context.Context, tripID string) (*models.Trip, error) {
	resp, err := s.c.get(ctx, "/trips/"+tripID)
	if err != nil {
		return nil, fmt.Errorf("trip detail: %w", err)
	}

	var reply struct {
		Message string      `json:"message"`
		Data    models.Trip `json:"data"`
	}
	if err := decodeInto(resp, &reply); err != nil {
		return nil, fmt.Errorf("trip detail: %w", err)
	}
	return &reply.Data, nil
}
