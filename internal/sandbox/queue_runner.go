package sandbox

import (
	"context"
	"encoding/json"
	"time"

	"tournament-session-service/internal/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// ExecutionJobsQueue is the list external workers BRPOP from.
	ExecutionJobsQueue = "grading:jobs"
	// executionResultPrefix is the pub/sub channel the result comes back on.
	executionResultPrefix = "grading:results:"
)

type executionJob struct {
	JobID string            `json:"job_id"`
	Code  string            `json:"code"`
	Tests []domain.TestCase `json:"tests"`
}

type executionResult struct {
	JobID  string `json:"job_id"`
	Passed int    `json:"passed"`
	Total  int    `json:"total"`
	Error  string `json:"error,omitempty"`
}

// QueueRunner hands submissions to a pool of external workers over a Redis
// list and waits for the verdict on a per-job pub/sub channel. The wait is
// bounded; a worker that never answers surfaces as a backend failure, not a
// hung session.
type QueueRunner struct {
	client  *redis.Client
	timeout time.Duration
}

func NewQueueRunner(client *redis.Client, timeout time.Duration) *QueueRunner {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &QueueRunner{client: client, timeout: timeout}
}

func (r *QueueRunner) RunTests(ctx context.Context, code string, tests []domain.TestCase) (int, int, error) {
	jobID := uuid.NewString()

	// Subscribe before enqueueing so a fast worker cannot publish into the void.
	pubsub := r.client.Subscribe(ctx, executionResultPrefix+jobID)
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		return 0, 0, domain.ErrGradingBackendUnavailable
	}

	payload, err := json.Marshal(executionJob{JobID: jobID, Code: code, Tests: tests})
	if err != nil {
		return 0, 0, err
	}
	if err := r.client.LPush(ctx, ExecutionJobsQueue, payload).Err(); err != nil {
		return 0, 0, domain.ErrGradingBackendUnavailable
	}

	waitCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	ch := pubsub.Channel()
	for {
		select {
		case <-waitCtx.Done():
			return 0, 0, domain.ErrGradingBackendUnavailable
		case msg, ok := <-ch:
			if !ok {
				return 0, 0, domain.ErrGradingBackendUnavailable
			}
			var result executionResult
			if err := json.Unmarshal([]byte(msg.Payload), &result); err != nil {
				continue
			}
			if result.JobID != jobID {
				continue
			}
			if result.Error != "" {
				return 0, 0, domain.ErrGradingBackendUnavailable
			}
			return result.Passed, result.Total, nil
		}
	}
}
