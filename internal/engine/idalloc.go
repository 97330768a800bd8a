package engine

import (
	"context"

	"github.com/Priya8975/hr-event-ledger/internal/domain"
	"github.com/redis/go-redis/v9"
)

// EmployeeIDKey holds the last employee id handed out by RedisIDAllocator.
const EmployeeIDKey = "hr:employee_id_seq"

// raiseAndIncrScript lifts the counter to at least the log's current max
// employee id, then increments it, in one atomic step.
var raiseAndIncrScript = redis.NewScript(`
local floor = tonumber(ARGV[1])
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
if current < floor then
    redis.call('SET', KEYS[1], floor)
end
return redis.call('INCR', KEYS[1])
`)

// RedisIDAllocator allocates employee ids atomically so that concurrent
// creates never share an id. Ids are never reused; an append that fails
// after allocation leaves a gap.
type RedisIDAllocator struct {
	redisClient *redis.Client
	log         IDAllocator
	key         string
}

// NewRedisIDAllocator seeds from log so that ids stay above every id already
// present in history, including ones written without this allocator.
func NewRedisIDAllocator(redisClient *redis.Client, log IDAllocator) *RedisIDAllocator {
	return &RedisIDAllocator{
		redisClient: redisClient,
		log:         log,
		key:         EmployeeIDKey,
	}
}

func (a *RedisIDAllocator) NextEmployeeID(ctx context.Context) (int64, error) {
	next, err := a.log.NextEmployeeID(ctx)
	if err != nil {
		return 0, err
	}

	id, err := raiseAndIncrScript.Run(ctx, a.redisClient, []string{a.key}, next-1).Int64()
	if err != nil {
		return 0, &domain.PersistenceError{Op: "allocating employee id", Err: err}
	}
	return id, nil
}
