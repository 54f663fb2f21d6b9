package redis

import (
	"context"
	"testing"
	"time"
)

func TestBanCacheRoundTrip(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := NewBanCacheRepo(client)
	ctx := context.Background()

	if err := repo.SetBanned(ctx, 42, 7); err != nil {
		t.Fatalf("set banned: %v", err)
	}

	reportID, ok, err := repo.GetBannedReportID(ctx, 42)
	if err != nil {
		t.Fatalf("get banned: %v", err)
	}
	if !ok || reportID != 7 {
		t.Fatalf("expected hit with report 7, got ok=%v id=%d", ok, reportID)
	}
}

func TestBanCacheMiss(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := NewBanCacheRepo(client)

	reportID, ok, err := repo.GetBannedReportID(context.Background(), 999)
	if err != nil {
		t.Fatalf("get banned: %v", err)
	}
	if ok || reportID != 0 {
		t.Fatalf("expected clean miss, got ok=%v id=%d", ok, reportID)
	}
}

func TestBanCacheEntryExpires(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := NewBanCacheRepo(client)
	ctx := context.Background()

	if err := repo.SetBanned(ctx, 42, 7); err != nil {
		t.Fatalf("set banned: %v", err)
	}

	mr.FastForward(25 * time.Hour)

	_, ok, err := repo.GetBannedReportID(ctx, 42)
	if err != nil {
		t.Fatalf("get banned: %v", err)
	}
	if ok {
		t.Fatalf("entry should expire after the cache ttl")
	}
}

func TestBanCacheGarbageValueIsMiss(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	if err := mr.Set("bans:subject:42", "not-a-number"); err != nil {
		t.Fatalf("seed cache key: %v", err)
	}

	repo := NewBanCacheRepo(client)

	_, ok, err := repo.GetBannedReportID(context.Background(), 42)
	if err != nil {
		t.Fatalf("get banned: %v", err)
	}
	if ok {
		t.Fatalf("unparseable value should be treated as a miss")
	}
}

func TestBanCacheRejectsInvalidPayload(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := NewBanCacheRepo(client)
	ctx := context.Background()

	if err := repo.SetBanned(ctx, 0, 7); err == nil {
		t.Fatalf("expected error on zero subject id")
	}
	if err := repo.SetBanned(ctx, 42, 0); err == nil {
		t.Fatalf("expected error on zero report id")
	}
	if _, _, err := repo.GetBannedReportID(ctx, -1); err == nil {
		t.Fatalf("expected error on negative subject id")
	}
}
