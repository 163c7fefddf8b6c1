package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"geobot/internal/geo"
	"geobot/internal/geoguesser"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const redisKeyPrefix = "geobot:locations:"

// Location pool kept in one redis set per mode
type RedisStore struct {
	client *redis.Client
}

type redisLocation struct {
	ID      uuid.UUID       `json:"id"`
	Initial geo.Coordinates `json:"initial"`
	Road    geo.Coordinates `json:"road"`
}

func OpenRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return rdb, nil
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func redisKey(mode geoguesser.Mode) string {
	return redisKeyPrefix + mode.String()
}

func (r *RedisStore) LoadRandom(ctx context.Context, mode geoguesser.Mode, count int) ([]geoguesser.Location, error) {
	if count <= 0 {
		return nil, nil
	}
	members, err := r.client.SRandMemberN(ctx, redisKey(mode), int64(count)).Result()
	if err != nil {
		return nil, fmt.Errorf("loading locations: %w", err)
	}

	locations := make([]geoguesser.Location, 0, len(members))
	for _, member := range members {
		location, err := decodeRedisLocation(mode, member)
		if err != nil {
			log.Warn().Err(err).Str("key", redisKey(mode)).Msg("Skipping malformed stored location")
			continue
		}
		locations = append(locations, location)
	}
	return locations, nil
}

func (r *RedisStore) SaveMany(ctx context.Context, mode geoguesser.Mode, locations []geoguesser.Location) error {
	if len(locations) == 0 {
		return nil
	}
	members := make([]interface{}, 0, len(locations))
	for _, location := range locations {
		member, err := encodeRedisLocation(location)
		if err != nil {
			return err
		}
		members = append(members, member)
	}
	if err := r.client.SAdd(ctx, redisKey(mode), members...).Err(); err != nil {
		return fmt.Errorf("saving %d locations: %w", len(locations), err)
	}
	return nil
}

func (r *RedisStore) Count(ctx context.Context, mode geoguesser.Mode) (int, error) {
	n, err := r.client.SCard(ctx, redisKey(mode)).Result()
	return int(n), err
}

func (r *RedisStore) Check(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func encodeRedisLocation(location geoguesser.Location) (string, error) {
	data, err := json.Marshal(redisLocation{ID: location.ID, Initial: location.Initial, Road: location.Road})
	if err != nil {
		return "", fmt.Errorf("encoding location %s: %w", location.ID, err)
	}
	return string(data), nil
}

func decodeRedisLocation(mode geoguesser.Mode, member string) (geoguesser.Location, error) {
	var stored redisLocation
	if err := json.Unmarshal([]byte(member), &stored); err != nil {
		return geoguesser.Location{}, err
	}
	if stored.ID == uuid.Nil {
		return geoguesser.Location{}, fmt.Errorf("location without id")
	}
	return geoguesser.Location{ID: stored.ID, Mode: mode, Initial: stored.Initial, Road: stored.Road}, nil
}
