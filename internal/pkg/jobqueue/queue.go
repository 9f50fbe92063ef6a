package jobqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/oggatonama/oggatonama/internal/pkg/cache"
)

const (
	// Redis key prefixes
	JobKeyPrefix     = "job:"
	JobQueueKey      = "job_queue"
	JobProcessingKey = "job_processing"

	// Job settings
	DefaultMaxRetries = 3
	JobTTL            = 24 * time.Hour // Jobs expire after 24 hours
)

// JobType identifies what a job does
type JobType string

const (
	JobTypeResetMail     JobType = "send_reset_mail"
	JobTypeCarbonPersist JobType = "carbon_persist"
)

// JobStatus values
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Job is one unit of background work
type Job struct {
	ID         string                 `json:"id"`
	Type       JobType                `json:"type"`
	Status     JobStatus              `json:"status"`
	Payload    map[string]interface{} `json:"payload"`
	ErrorMsg   string                 `json:"error_msg,omitempty"`
	RetryCount int                    `json:"retry_count"`
	MaxRetries int                    `json:"max_retries"`
	CreatedAt  time.Time              `json:"created_at"`
	UpdatedAt  time.Time              `json:"updated_at"`
}

// Handler processes one job of a registered type.
type Handler func(ctx context.Context, job *Job) error

// Queue manages background jobs using Redis
type Queue struct {
	client   *redis.Client
	workers  int
	handlers map[JobType]Handler
	stopCh   chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	running  bool
}

// NewQueue creates a new job queue
func NewQueue(workers int) *Queue {
	if workers <= 0 {
		workers = 2
	}
	return &Queue{
		client:   cache.GetClient(),
		workers:  workers,
		handlers: make(map[JobType]Handler),
		stopCh:   make(chan struct{}),
	}
}

// Register binds a handler to a job type. Must be called before Start.
func (q *Queue) Register(jobType JobType, h Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[jobType] = h
}

// Start starts the job queue workers
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.running {
		return
	}

	q.running = true
	q.stopCh = make(chan struct{})
	log.Infof("[JobQueue] Starting %d workers", q.workers)

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
}

// Stop stops the job queue workers
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.running {
		return
	}

	log.Info("[JobQueue] Stopping workers...")
	close(q.stopCh)
	q.running = false
	q.wg.Wait()
	log.Info("[JobQueue] All workers stopped")
}

// EnqueueJob adds a new job to the queue
func (q *Queue) EnqueueJob(jobType JobType, payload map[string]interface{}) (*Job, error) {
	ctx := context.Background()

	job := &Job{
		ID:         uuid.New().String(),
		Type:       jobType,
		Status:     JobStatusPending,
		Payload:    payload,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
		MaxRetries: DefaultMaxRetries,
	}

	jobData, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job: %w", err)
	}

	pipe := q.client.Pipeline()
	pipe.Set(ctx, JobKeyPrefix+job.ID, jobData, JobTTL)
	pipe.LPush(ctx, JobQueueKey, job.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to enqueue job: %w", err)
	}

	log.Infof("[JobQueue] Enqueued job %s (Type: %s)", job.ID, job.Type)
	return job, nil
}

// worker processes jobs from the queue
func (q *Queue) worker(id int) {
	defer q.wg.Done()
	log.Infof("[JobQueue] Worker %d started", id)

	ctx := context.Background()

	for {
		select {
		case <-q.stopCh:
			log.Infof("[JobQueue] Worker %d stopping", id)
			return
		default:
			job, err := q.dequeueJob(ctx)
			if err != nil {
				if err != redis.Nil {
					log.Errorf("[JobQueue] Worker %d: Error dequeuing job: %v", id, err)
					time.Sleep(time.Second)
				}
				continue
			}
			if job != nil {
				q.processJob(ctx, job)
			}
		}
	}
}

// dequeueJob moves the next job id from pending to processing and loads it
func (q *Queue) dequeueJob(ctx context.Context) (*Job, error) {
	jobID, err := q.client.BRPopLPush(ctx, JobQueueKey, JobProcessingKey, time.Second).Result()
	if err != nil {
		return nil, err
	}

	jobData, err := q.client.Get(ctx, JobKeyPrefix+jobID).Result()
	if err != nil {
		// Job data expired or missing; drop the processing entry
		q.client.LRem(ctx, JobProcessingKey, 1, jobID)
		return nil, fmt.Errorf("job data not found for ID %s", jobID)
	}

	var job Job
	if err := json.Unmarshal([]byte(jobData), &job); err != nil {
		q.client.LRem(ctx, JobProcessingKey, 1, jobID)
		return nil, fmt.Errorf("failed to unmarshal job %s: %w", jobID, err)
	}

	job.Status = JobStatusProcessing
	job.UpdatedAt = time.Now()
	q.updateJob(ctx, &job)
	return &job, nil
}

// processJob runs the registered handler and handles retry/failure bookkeeping.
// Job failures stay inside the queue; they never propagate to request handlers.
func (q *Queue) processJob(ctx context.Context, job *Job) {
	defer q.client.LRem(ctx, JobProcessingKey, 1, job.ID)

	q.mu.Lock()
	handler, ok := q.handlers[job.Type]
	q.mu.Unlock()
	if !ok {
		log.Errorf("[JobQueue] No handler for job type %s (job %s)", job.Type, job.ID)
		job.Status = JobStatusFailed
		job.ErrorMsg = "no handler registered"
		q.updateJob(ctx, job)
		return
	}

	err := handler(ctx, job)
	if err == nil {
		job.Status = JobStatusCompleted
		job.ErrorMsg = ""
		job.UpdatedAt = time.Now()
		q.updateJob(ctx, job)
		return
	}

	log.Errorf("[JobQueue] Job %s (%s) failed: %v", job.ID, job.Type, err)
	job.RetryCount++
	job.ErrorMsg = err.Error()
	job.UpdatedAt = time.Now()

	if job.RetryCount >= job.MaxRetries {
		job.Status = JobStatusFailed
		q.updateJob(ctx, job)
		return
	}

	job.Status = JobStatusPending
	q.updateJob(ctx, job)
	q.client.RPush(ctx, JobQueueKey, job.ID)
}

func (q *Queue) updateJob(ctx context.Context, job *Job) {
	data, err := json.Marshal(job)
	if err != nil {
		log.Errorf("[JobQueue] Failed to marshal job %s: %v", job.ID, err)
		return
	}
	if err := q.client.Set(ctx, JobKeyPrefix+job.ID, data, JobTTL).Err(); err != nil {
		log.Errorf("[JobQueue] Failed to update job %s: %v", job.ID, err)
	}
}
