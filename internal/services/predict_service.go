package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/soltixdb/forecaster/internal/config"
	"github.com/soltixdb/forecaster/internal/events"
	"github.com/soltixdb/forecaster/internal/frame"
	"github.com/soltixdb/forecaster/internal/logging"
	"github.com/soltixdb/forecaster/internal/metrics"
	"github.com/soltixdb/forecaster/internal/models"
	"github.com/soltixdb/forecaster/internal/pipeline"
	"github.com/soltixdb/forecaster/internal/webhook"
)

// Execution modes, used in logs, metrics and events
const (
	ModeSync  = "sync"
	ModeAsync = "async"
)

// AckMessage is returned to clients whose request continues in the background
const AckMessage = "Request accepted, processing continues in the background"

// Runner executes the forecasting pipeline
type Runner interface {
	Run(ctx context.Context, table *frame.Table, params pipeline.Params) (*models.PredictResponse, error)
}

// PredictService dispatches predict requests: synchronously inline, or
// asynchronously through the callback worker pool.
type PredictService struct {
	logger            *logging.Logger
	runner            Runner
	callbacks         *CallbackService
	emitter           *events.Emitter
	metrics           *metrics.Recorder
	confidenceDefault bool

	seq atomic.Uint64
}

// NewPredictService creates the service and starts its callback workers
func NewPredictService(
	logger *logging.Logger,
	runner Runner,
	client *webhook.Client,
	emitter *events.Emitter,
	recorder *metrics.Recorder,
	cfg *config.Config,
) *PredictService {
	s := &PredictService{
		logger:            logger,
		runner:            runner,
		emitter:           emitter,
		metrics:           recorder,
		confidenceDefault: cfg.Pipeline.ReturnConfidenceDefault,
	}
	s.callbacks = NewCallbackService(logger, client, recorder, cfg.Callback, s.processJob)
	return s
}

// ParseRequest validates a raw body using the configured confidence default
func (s *PredictService) ParseRequest(body []byte) (*models.PredictRequest, error) {
	return ParseRequest(body, s.confidenceDefault)
}

// Execute runs the pipeline inline
func (s *PredictService) Execute(ctx context.Context, req *models.PredictRequest) (*models.PredictResponse, error) {
	requestID := logging.RequestIDFrom(ctx)
	return s.run(ctx, requestID, ModeSync, req)
}

// Submit queues req for background execution and returns the
// acknowledgment. A full queue is reported as SERVER_BUSY.
func (s *PredictService) Submit(ctx context.Context, req *models.PredictRequest) (*models.AckResponse, error) {
	job := &CallbackJob{
		RequestID: s.NewRequestID(),
		Request:   *req,
	}
	job.Request.FeatureColumns = append([]string(nil), req.FeatureColumns...)

	if err := s.callbacks.Enqueue(job); err != nil {
		s.metrics.RecordPrediction(ModeAsync, "rejected")
		s.logger.WithContext(ctx).Warn("Asynchronous request rejected", "request_id", job.RequestID, "error", err)
		return nil, &ServiceError{
			Code:    CodeServerBusy,
			Message: "server is busy, please try again later",
			Err:     err,
		}
	}

	s.logger.WithContext(ctx).Info("Asynchronous request accepted",
		"request_id", job.RequestID,
		"callback_key", req.CallbackKey,
	)
	return &models.AckResponse{
		Success:     true,
		Message:     AckMessage,
		RequestID:   job.RequestID,
		Status:      models.StatusProcessing,
		CallbackURL: req.CallbackURL,
	}, nil
}

// Stop waits for queued asynchronous jobs to finish
func (s *PredictService) Stop() {
	s.callbacks.Stop()
}

// NewRequestID returns an id of the form req_<digits>, unique within the
// process
func (s *PredictService) NewRequestID() string {
	return fmt.Sprintf("req_%d%06d", time.Now().Unix(), s.seq.Add(1)%1_000_000)
}

func (s *PredictService) processJob(ctx context.Context, job *CallbackJob) (interface{}, error) {
	resp, err := s.run(ctx, job.RequestID, ModeAsync, &job.Request)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// run executes the pipeline and records the outcome in logs, metrics and
// lifecycle events
func (s *PredictService) run(ctx context.Context, requestID, mode string, req *models.PredictRequest) (*models.PredictResponse, error) {
	log := s.logger.WithContext(ctx)
	start := time.Now()

	resp, err := s.runner.Run(ctx, req.Data, pipeline.Params{
		Frequency:      req.PredictionFrequency,
		Horizon:        req.PredictionPeriod,
		FeatureColumns: req.FeatureColumns,
		IncludeBounds:  req.ConfidenceInterval,
	})
	elapsed := time.Since(start)
	s.metrics.ObservePipeline(req.PredictionFrequency, elapsed)

	ev := events.Event{
		RequestID:  requestID,
		Mode:       mode,
		Frequency:  req.PredictionFrequency,
		Horizon:    req.PredictionPeriod,
		DurationMS: elapsed.Milliseconds(),
	}

	if err != nil {
		svcErr := FromPipelineError(err)
		s.metrics.RecordPrediction(mode, strings.ToLower(svcErr.Code))
		ev.Type = events.ForecastFailed
		ev.ErrorCode = strings.ToLower(svcErr.Code)
		s.emitter.Emit(ctx, ev)

		if errors.Is(err, pipeline.ErrInsufficientData) {
			log.Info("Forecast rejected", "mode", mode, "reason", err.Error())
		} else {
			log.Error("Forecast failed", "mode", mode, "error", err)
		}
		return nil, svcErr
	}

	s.metrics.RecordPrediction(mode, "success")
	ev.Type = events.ForecastCompleted
	ev.Predictions = len(resp.Predictions)
	s.emitter.Emit(ctx, ev)

	log.Info("Forecast completed",
		"mode", mode,
		"frequency", req.PredictionFrequency,
		"horizon", req.PredictionPeriod,
		"input_rows", resp.DataSummary.InputRows,
		"duration", elapsed,
	)
	return resp, nil
}
