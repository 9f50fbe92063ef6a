package jobqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/gofiber/fiber/v2/log"

	"github.com/oggatonama/oggatonama/app/models"
	"github.com/oggatonama/oggatonama/app/repository"
	"github.com/oggatonama/oggatonama/internal/pkg/env"
	"github.com/oggatonama/oggatonama/internal/pkg/mail"
)

// Manager owns the global job queue
type Manager struct {
	queue   *Queue
	mu      sync.Mutex
	running bool
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// GetManager returns the global job queue manager (singleton)
func GetManager() *Manager {
	managerOnce.Do(func() {
		workers := 2
		if v, err := strconv.Atoi(env.GetEnv("JOB_WORKERS", "")); err == nil && v > 0 {
			workers = v
		}
		globalManager = &Manager{queue: NewQueue(workers)}
	})
	return globalManager
}

// GetQueue returns the managed job queue
func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// Start registers the built-in handlers and starts the workers
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}
	m.running = true

	m.queue.Register(JobTypeResetMail, handleResetMail)
	m.queue.Register(JobTypeCarbonPersist, handleCarbonPersist)
	m.queue.Start()
	log.Info("[JobQueue Manager] Started")
}

// Stop stops the workers
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	m.running = false
	m.queue.Stop()
	log.Info("[JobQueue Manager] Stopped")
}

// EnqueueResetMail queues a password-reset code email. The caller never
// waits on delivery; failures are retried and logged inside the queue.
func EnqueueResetMail(to, code string) {
	_, err := GetManager().GetQueue().EnqueueJob(JobTypeResetMail, map[string]interface{}{
		"to":   to,
		"code": code,
	})
	if err != nil {
		log.Errorf("[JobQueue] Failed to enqueue reset mail for %s: %v", to, err)
	}
}

// EnqueueCarbonRecord queues one emission record for persistence.
func EnqueueCarbonRecord(record *models.CarbonEmission) {
	payload, err := toPayload(record)
	if err != nil {
		log.Errorf("[JobQueue] Failed to encode carbon record: %v", err)
		return
	}
	if _, err := GetManager().GetQueue().EnqueueJob(JobTypeCarbonPersist, payload); err != nil {
		log.Errorf("[JobQueue] Failed to enqueue carbon record: %v", err)
	}
}

func handleResetMail(ctx context.Context, job *Job) error {
	to, _ := job.Payload["to"].(string)
	code, _ := job.Payload["code"].(string)
	if to == "" || code == "" {
		return fmt.Errorf("reset mail job %s missing recipient or code", job.ID)
	}
	return mail.SendResetCode(to, code)
}

func handleCarbonPersist(ctx context.Context, job *Job) error {
	var record models.CarbonEmission
	if err := fromPayload(job.Payload, &record); err != nil {
		return fmt.Errorf("carbon job %s: %w", job.ID, err)
	}
	return repository.GetGlobalFactory().GetCarbonRepository().Create(&record)
}

func toPayload(v interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func fromPayload(payload map[string]interface{}, v interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
