package usecase

import (
	"fmt"
	"hash/fnv"

	"github.com/samber/lo"

	"github.com/jfilter/track-the-news/internal/domain"
)

// SelectShard keeps the feeds assigned to worker index out of total.
// Assignment hashes the outlet name, so it is stable across restarts and
// independent of feed order.
func SelectShard(feeds []domain.Feed, index, total int) ([]domain.Feed, error) {
	if total <= 1 {
		return feeds, nil
	}
	if index < 0 || index >= total {
		return nil, fmt.Errorf("shard index %d out of range [0,%d)", index, total)
	}
	return lo.Filter(feeds, func(feed domain.Feed, _ int) bool {
		return ShardOf(feed.Outlet, total) == index
	}), nil
}

// ShardOf maps an outlet to its shard.
func ShardOf(outlet string, total int) int {
	if total <= 1 {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(outlet))
	return int(h.Sum32() % uint32(total))
}
