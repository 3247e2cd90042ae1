package queue

import (
	"context"
	"errors"
	"log"
	"time"

	"codearena/internal/platform/config"

	"github.com/redis/go-redis/v9"
)

var RDB *redis.Client

func ConnectRedis() {
	RDB = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisDB,
	})

	ctx := context.Background()
	if _, err := RDB.Ping(ctx).Result(); err != nil {
		log.Fatalf("Could not connect to Redis: %v", err)
	}
}

func CloseRedis() {
	if RDB != nil {
		RDB.Close()
	}
}

// JudgeQueue carries submission ids from the state machine to the
// judge workers over a Redis list.
type JudgeQueue struct {
	rdb  *redis.Client
	name string
}

func NewJudgeQueue(rdb *redis.Client, name string) *JudgeQueue {
	return &JudgeQueue{rdb: rdb, name: name}
}

func (q *JudgeQueue) EnqueueJudging(ctx context.Context, submissionID string) error {
	return q.rdb.LPush(ctx, q.name, submissionID).Err()
}

// Dequeue blocks up to timeout for the next submission id. It returns
// ("", nil) on timeout so worker loops can re-check their context.
func (q *JudgeQueue) Dequeue(ctx context.Context, timeout time.Duration) (string, error) {
	res, err := q.rdb.BRPop(ctx, timeout, q.name).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", err
	}
	// BRPop result is [queueName, value].
	if len(res) < 2 {
		return "", nil
	}
	return res[1], nil
}
