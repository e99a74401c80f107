package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/soltixdb/forecaster/internal/config"
	"github.com/soltixdb/forecaster/internal/logging"
	"github.com/soltixdb/forecaster/internal/metrics"
	"github.com/soltixdb/forecaster/internal/models"
	"github.com/soltixdb/forecaster/internal/webhook"
)

var (
	// ErrQueueFull is returned when every queue slot is taken
	ErrQueueFull = errors.New("callback queue is full")
	// ErrServiceStopped is returned for submissions after Stop
	ErrServiceStopped = errors.New("callback service stopped")
)

// CallbackJob is one asynchronous request. It owns its copy of the request.
type CallbackJob struct {
	RequestID string
	Request   models.PredictRequest
}

// ProcessFunc computes the payload delivered for a job
type ProcessFunc func(ctx context.Context, job *CallbackJob) (interface{}, error)

// CallbackService runs asynchronous jobs on a fixed pool of workers and
// posts each result to the job's callback address. Delivery is attempted
// once; failures are logged and counted.
type CallbackService struct {
	logger  *logging.Logger
	client  *webhook.Client
	metrics *metrics.Recorder
	process ProcessFunc

	// Worker pool
	taskQueue chan *CallbackJob
	closed    bool
	mu        sync.RWMutex
	wg        sync.WaitGroup
}

// NewCallbackService starts cfg.Workers workers consuming a queue of
// cfg.QueueSize jobs
func NewCallbackService(
	logger *logging.Logger,
	client *webhook.Client,
	recorder *metrics.Recorder,
	cfg config.CallbackConfig,
	process ProcessFunc,
) *CallbackService {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	s := &CallbackService{
		logger:    logger,
		client:    client,
		metrics:   recorder,
		process:   process,
		taskQueue: make(chan *CallbackJob, max(cfg.QueueSize, 0)),
	}
	s.startWorkers(workers)
	return s
}

// startWorkers starts the worker pool for processing callback jobs
func (s *CallbackService) startWorkers(numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
	s.logger.Info("Callback workers started", "count", numWorkers, "queue_size", cap(s.taskQueue))
}

// worker processes jobs until the queue is closed and drained
func (s *CallbackService) worker(id int) {
	defer s.wg.Done()

	for job := range s.taskQueue {
		s.metrics.SetQueueDepth(len(s.taskQueue))
		s.handle(job)
	}
	s.logger.Debug("Callback worker stopping", "worker_id", id)
}

// Enqueue hands job to the pool without blocking
func (s *CallbackService) Enqueue(job *CallbackJob) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrServiceStopped
	}
	select {
	case s.taskQueue <- job:
		s.metrics.SetQueueDepth(len(s.taskQueue))
		s.logger.Debug("Callback job queued", "request_id", job.RequestID)
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop rejects new jobs, lets workers finish every queued job and waits
// for them to exit
func (s *CallbackService) Stop() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.taskQueue)
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("Callback service stopped")
}

// handle computes the payload for job and delivers it. Any processing
// failure, panics included, is delivered as a CallbackFailure.
func (s *CallbackService) handle(job *CallbackJob) {
	ctx := logging.WithRequestID(context.Background(), job.RequestID)
	log := s.logger.WithContext(ctx)

	payload, err := s.safeProcess(ctx, job)
	if err != nil {
		log.Warn("Asynchronous forecast failed", "error", err)
		payload = models.CallbackFailure{
			Error:     models.ErrorCodeCallbackFailed,
			Message:   err.Error(),
			RequestID: job.RequestID,
			Status:    models.StatusFailed,
		}
	}

	if err := s.client.Post(ctx, job.Request.CallbackURL, job.RequestID, payload); err != nil {
		s.metrics.RecordCallback("failed")
		log.Error("Callback delivery failed", "callback_url", job.Request.CallbackURL, "error", err)
		return
	}
	s.metrics.RecordCallback("delivered")
	log.Info("Callback delivered", "callback_url", job.Request.CallbackURL)
}

func (s *CallbackService) safeProcess(ctx context.Context, job *CallbackJob) (payload interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during forecast: %v", r)
		}
	}()
	return s.process(ctx, job)
}
