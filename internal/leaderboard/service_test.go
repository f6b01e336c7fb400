package leaderboard

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bennie10colado/JogoPOO-FORK/internal/game"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewService(client, zerolog.Nop(), ServiceOptions{TopN: 10, KeyPrefix: "test"})
}

func TestRecordScoreAccumulates(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	player := game.Player{ID: uuid.New(), DisplayName: "Ace"}

	require.NoError(t, svc.RecordScore(ctx, player, 3))
	require.NoError(t, svc.RecordScore(ctx, player, 2))

	top, err := svc.Top(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, player.ID, top[0].PlayerID)
	assert.Equal(t, "Ace", top[0].DisplayName)
	assert.Equal(t, 5, top[0].Score)
}

func TestTopOrdersByScore(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	low := game.Player{ID: uuid.New(), DisplayName: "low"}
	high := game.Player{ID: uuid.New(), DisplayName: "high"}
	require.NoError(t, svc.RecordScore(ctx, low, 1))
	require.NoError(t, svc.RecordScore(ctx, high, 7))

	top, err := svc.Top(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "high", top[0].DisplayName)
	assert.Equal(t, "low", top[1].DisplayName)
}

func TestTopHonorsLimit(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		p := game.Player{ID: uuid.New(), DisplayName: "p"}
		require.NoError(t, svc.RecordScore(ctx, p, i+1))
	}

	top, err := svc.Top(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, top, 3)
}

func TestTopOnEmptyRanking(t *testing.T) {
	svc := newTestService(t)

	top, err := svc.Top(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, top)
}
