package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"bus-ticket/models"
	"bus-ticket/monitoring"
)

// SnapshotCache keeps short-lived station and trip snapshots in Redis so
// repeated invocations don't refetch catalog data the server rarely changes.
// All methods degrade to a miss on any Redis failure; the cache must never
// make a lookup fail.
type SnapshotCache struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewSnapshotCache(redisClient *redis.Client, ttl time.Duration) *SnapshotCache {
	if ttl == 0 {
		ttl = 5 * time.Minute
	}
	return &SnapshotCache{redis: redisClient, ttl: ttl}
}

const stationsKey = "snapshot:stations"

func tripsKey(startID, endID, date string) string {
	return fmt.Sprintf("snapshot:trips:%s:%s:%s", startID, endID, date)
}

func (c *SnapshotCache) Stations(ctx context.Context) ([]models.Station, bool) {
	var stations []models.Station
	if !c.lookup(ctx, stationsKey, &stations) {
		return nil, false
	}
	return stations, true
}

func (c *SnapshotCache) PutStations(ctx context.Context, stations []models.Station) {
	c.put(ctx, stationsKey, stations)
}

func (c *SnapshotCache) Trips(ctx context.Context, startID, endID, date string) ([]models.Trip, bool) {
	var trips []models.Trip
	if !c.lookup(ctx, tripsKey(startID, endID, date), &trips) {
		return nil, false
	}
	return trips, true
}

func (c *SnapshotCache) PutTrips(ctx context.Context, startID, endID, date string, trips []models.Trip) {
	c.put(ctx, tripsKey(startID, endID, date), trips)
}

func (c *SnapshotCache) lookup(ctx context.Context, key string, out any) bool {
	raw, err := c.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		monitoring.TrackCache("miss")
		return false
	}
	if err != nil {
		monitoring.TrackCache("miss")
		slog.Warn("snapshot cache get failed", "key", key, "error", err)
		return false
	}

	if err := json.Unmarshal([]byte(raw), out); err != nil {
		monitoring.TrackCache("miss")
		slog.Warn("snapshot cache entry corrupt", "key", key, "error", err)
		return false
	}

	monitoring.TrackCache("hit")
	return true
}

func (c *SnapshotCache) put(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		slog.Warn("snapshot cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		slog.Warn("snapshot cache set failed", "key", key, "error", err)
	}
}
