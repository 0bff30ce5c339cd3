package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/crewgate/crewgate/internal/model"
)

const redisKeyPrefix = "crewgate"

// Compile-time interface satisfaction check.
var _ Store = (*RedisStore)(nil)

// RedisStore implements Store on Redis so several instances can share one
// registry. Each record is a JSON value; a list keeps insertion order.
// Updates are read-modify-write without locking, matching the registry's
// last-writer-wins contract.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to Redis at addr and verifies the connection.
func NewRedisStore(addr, password string, db int) (*RedisStore, error) {
	if addr == "" {
		return nil, errors.New("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisStore{client: client, prefix: redisKeyPrefix}, nil
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) jobKey(id string) string { return s.prefix + ":job:" + id }
func (s *RedisStore) idsKey() string          { return s.prefix + ":jobs" }

// CreateJob inserts a new job record and appends its id to the order list.
func (s *RedisStore) CreateJob(ctx context.Context, j *model.Job) error {
	data, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}

	ok, err := s.client.SetNX(ctx, s.jobKey(j.ID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	if !ok {
		return fmt.Errorf("job %s already exists", j.ID)
	}

	if err := s.client.RPush(ctx, s.idsKey(), j.ID).Err(); err != nil {
		return fmt.Errorf("append job id: %w", err)
	}
	return nil
}

// GetJob retrieves a job by ID.
func (s *RedisStore) GetJob(ctx context.Context, id string) (*model.Job, error) {
	data, err := s.client.Get(ctx, s.jobKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}

	j := &model.Job{}
	if err := json.Unmarshal(data, j); err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}
	return j, nil
}

// ListJobs returns all jobs in insertion order. Ids whose record was deleted
// concurrently are skipped.
func (s *RedisStore) ListJobs(ctx context.Context) ([]*model.Job, error) {
	ids, err := s.client.LRange(ctx, s.idsKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list job ids: %w", err)
	}

	jobs := make([]*model.Job, 0, len(ids))
	for _, id := range ids {
		j, err := s.GetJob(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, nil
}

// UpdateJobStatus transitions a job's status.
func (s *RedisStore) UpdateJobStatus(ctx context.Context, id, status string) error {
	j, err := s.GetJob(ctx, id)
	if err != nil {
		return err
	}
	if !model.ValidTransition(j.Status, status) {
		return ErrInvalidTransition
	}

	now := time.Now().UTC()
	j.Status = status
	switch {
	case status == model.StatusRunning:
		j.StartedAt = &now
	case model.Terminal(status):
		j.CompletedAt = &now
	}
	return s.setJob(ctx, j)
}

// UpdateJob writes a terminal outcome for a job.
func (s *RedisStore) UpdateJob(ctx context.Context, in *model.Job) error {
	j, err := s.GetJob(ctx, in.ID)
	if err != nil {
		return err
	}
	if !model.ValidTransition(j.Status, in.Status) {
		return ErrInvalidTransition
	}

	j.Status = in.Status
	j.Result = in.Result
	j.Error = in.Error
	if in.DurationMS != nil {
		j.DurationMS = in.DurationMS
	}
	if in.StartedAt != nil {
		j.StartedAt = in.StartedAt
	}
	if in.CompletedAt != nil {
		j.CompletedAt = in.CompletedAt
	}
	return s.setJob(ctx, j)
}

// DeleteJob removes the record for id and its entry in the order list.
func (s *RedisStore) DeleteJob(ctx context.Context, id string) error {
	deleted, err := s.client.Del(ctx, s.jobKey(id)).Result()
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	if deleted == 0 {
		return ErrNotFound
	}

	if err := s.client.LRem(ctx, s.idsKey(), 0, id).Err(); err != nil {
		return fmt.Errorf("remove job id: %w", err)
	}
	return nil
}

// GetJobStats aggregates counts and average duration over all records.
func (s *RedisStore) GetJobStats(ctx context.Context) (*JobStats, error) {
	jobs, err := s.ListJobs(ctx)
	if err != nil {
		return nil, err
	}

	stats := &JobStats{CountByStatus: make(map[string]int)}
	var durSum, durCount int
	for _, j := range jobs {
		stats.Total++
		stats.CountByStatus[j.Status]++
		if j.DurationMS != nil {
			durSum += *j.DurationMS
			durCount++
		}
	}
	if durCount > 0 {
		stats.AvgDurationMS = float64(durSum) / float64(durCount)
	}
	return stats, nil
}

// DeleteFinishedBefore evicts terminal records older than cutoff.
func (s *RedisStore) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	jobs, err := s.ListJobs(ctx)
	if err != nil {
		return 0, err
	}

	var deleted int
	for _, j := range jobs {
		if !model.Terminal(j.Status) || j.CompletedAt == nil || !j.CompletedAt.Before(cutoff) {
			continue
		}
		if err := s.DeleteJob(ctx, j.ID); err != nil && !errors.Is(err, ErrNotFound) {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

func (s *RedisStore) setJob(ctx context.Context, j *model.Job) error {
	data, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	if err := s.client.Set(ctx, s.jobKey(j.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("write job: %w", err)
	}
	return nil
}
