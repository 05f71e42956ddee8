package video

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	redisClient "maxprompt-server/modules/common/redis"
)

const (
	queueKey    = "jobs:video"
	jobTTL      = 24 * time.Hour
	inflightTTL = 45 * time.Minute
)

func jobKey(jobID string) string {
	return fmt.Sprintf("job:video:%s", jobID)
}

func inflightKey(userID string) string {
	return fmt.Sprintf("jobs:video:inflight:%s", userID)
}

// JobStore persists jobs in Redis and feeds the worker queue.
type JobStore struct {
	rdb *redis.Client
}

func NewJobStore(rdb *redis.Client) *JobStore {
	return &JobStore{rdb: rdb}
}

// Save writes the full job state. Jobs expire a day after their last update.
func (s *JobStore) Save(ctx context.Context, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job %s: %w", job.JobID, err)
	}
	if err := s.rdb.Set(ctx, jobKey(job.JobID), data, jobTTL).Err(); err != nil {
		return fmt.Errorf("failed to save job %s: %w", job.JobID, err)
	}
	return nil
}

// Get loads a job. A missing job returns (nil, nil) so callers can answer 404.
func (s *JobStore) Get(ctx context.Context, jobID string) (*Job, error) {
	data, err := s.rdb.Get(ctx, jobKey(jobID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load job %s: %w", jobID, err)
	}
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job %s: %w", jobID, err)
	}
	return &job, nil
}

// Enqueue pushes a job ID for the worker to pick up.
func (s *JobStore) Enqueue(ctx context.Context, jobID string) error {
	if err := s.rdb.LPush(ctx, queueKey, jobID).Err(); err != nil {
		return fmt.Errorf("failed to enqueue job %s: %w", jobID, err)
	}
	return nil
}

// Dequeue blocks until a job ID is available.
func (s *JobStore) Dequeue(ctx context.Context) (string, error) {
	result, err := s.rdb.BRPop(ctx, 0, queueKey).Result()
	if err != nil {
		return "", err
	}
	// result[0] is the queue name, result[1] the job ID
	return result[1], nil
}

// AcquireUser claims the one-in-flight slot for a user. The TTL is a
// safety valve in case a crash skips ReleaseUser.
func (s *JobStore) AcquireUser(ctx context.Context, userID, jobID string) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, inflightKey(userID), jobID, inflightTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire slot for user %s: %w", userID, err)
	}
	return ok, nil
}

// ReleaseUser frees the user's slot once their job reaches a terminal state.
func (s *JobStore) ReleaseUser(ctx context.Context, userID string) error {
	if err := s.rdb.Del(ctx, inflightKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to release slot for user %s: %w", userID, err)
	}
	return nil
}

// MarkDismissed flags the job so progress delivery for it stops.
func (s *JobStore) MarkDismissed(ctx context.Context, jobID string) error {
	return redisClient.SetJobDismissed(s.rdb, jobID)
}

// Dismissed reports whether the job carries the dismissed flag.
func (s *JobStore) Dismissed(ctx context.Context, jobID string) bool {
	return redisClient.IsJobDismissed(s.rdb, jobID)
}
