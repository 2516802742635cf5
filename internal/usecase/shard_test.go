package usecase

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jfilter/track-the-news/internal/domain"
)

func TestSelectShardPartitionsFeeds(t *testing.T) {
	var feeds []domain.Feed
	for i := 0; i < 40; i++ {
		feeds = append(feeds, domain.Feed{Outlet: fmt.Sprintf("Outlet %d", i), URL: fmt.Sprintf("http://ex.com/%d", i)})
	}

	const total = 3
	seen := map[string]int{}
	for index := 0; index < total; index++ {
		shard, err := SelectShard(feeds, index, total)
		require.NoError(t, err)
		for _, feed := range shard {
			seen[feed.URL]++
			assert.Equal(t, index, ShardOf(feed.Outlet, total))
		}
	}

	assert.Len(t, seen, len(feeds))
	for url, n := range seen {
		assert.Equal(t, 1, n, url)
	}
}

func TestSelectShardIsStable(t *testing.T) {
	assert.Equal(t, ShardOf("Example Times", 5), ShardOf("Example Times", 5))
	assert.Zero(t, ShardOf("anything", 1))
}

func TestSelectShardSingleWorker(t *testing.T) {
	feeds := []domain.Feed{{Outlet: "A"}, {Outlet: "B"}}
	shard, err := SelectShard(feeds, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, feeds, shard)

	_, err = SelectShard(feeds, 3, 2)
	require.Error(t, err)
}
