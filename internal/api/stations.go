package api

import (
	"context"
	"fmt"

	"bus-ticket/models"
)

type StationService struct {
	c     *Client
	cache *SnapshotCache
}

func NewStationService(c *Client, cache *SnapshotCache) *StationService {
	return &StationService{c: c, cache: cache}
}

// List returns every station the operator serves.
func (s *StationService) List(ctx context.Context) ([]models.Station, error) {
	if s.cache != nil {
		if stations, ok := s.cache.Stations(ctx); ok {
			return stations, nil
		}
	}

	resp, err := s.c.get(ctx, "/stations")
	if err != nil {
		return nil, fmt.Errorf("stations: %w", err)
	}

	var reply struct {
		Message string           `json:"message"`
		Data    []models.Station `json:"data"`
	}
	if err := decodeInto(resp, &reply); err != nil {
		return nil, fmt.Errorf("stations: %w", err)
	}

	if s.cache != nil {
		s.cache.PutStations(ctx, reply.Data)
	}
	return reply.Data, nil
}
