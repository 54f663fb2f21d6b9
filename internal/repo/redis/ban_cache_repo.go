package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const banCacheTTL = 24 * time.Hour

// BanCacheRepo caches report ids of banned subjects so the lookup endpoint
// can skip Postgres for repeat queries. Best-effort: a miss or a redis error
// just falls through to the store.
type BanCacheRepo struct {
	client *goredis.Client
}

func NewBanCacheRepo(client *goredis.Client) *BanCacheRepo {
	return &BanCacheRepo{client: client}
}

func (r *BanCacheRepo) SetBanned(ctx context.Context, subjectUserID, reportID int64) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if subjectUserID <= 0 || reportID <= 0 {
		return fmt.Errorf("invalid ban cache payload")
	}

	if err := r.client.Set(ctx, banKey(subjectUserID), reportID, banCacheTTL).Err(); err != nil {
		return fmt.Errorf("set ban cache entry: %w", err)
	}

	return nil
}

// GetBannedReportID returns the cached report id for a banned subject, or
// (0, false) on a cache miss.
func (r *BanCacheRepo) GetBannedReportID(ctx context.Context, subjectUserID int64) (int64, bool, error) {
	if r.client == nil {
		return 0, false, fmt.Errorf("redis client is nil")
	}
	if subjectUserID <= 0 {
		return 0, false, fmt.Errorf("invalid subject user id")
	}

	value, err := r.client.Get(ctx, banKey(subjectUserID)).Result()
	if err == goredis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get ban cache entry: %w", err)
	}

	reportID, err := strconv.ParseInt(value, 10, 64)
	if err != nil || reportID <= 0 {
		return 0, false, nil
	}

	return reportID, true, nil
}

func banKey(subjectUserID int64) string {
	return "bans:subject:" + strconv.FormatInt(subjectUserID, 10)
}
