// Kafka 토픽에서 알림을 받아 AlertService.Ingest로 저장하는 수집 워커

package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/ioc-radar/backend/internal/cache"
	"github.com/ioc-radar/backend/internal/config"
	"github.com/ioc-radar/backend/internal/metrics"
	"github.com/ioc-radar/backend/internal/model"
	"github.com/ioc-radar/backend/internal/service"
)

const maxBackoff = 30 * time.Second

// errMalformed - 재시도해도 성공할 수 없는 메시지
var errMalformed = errors.New("malformed alert message")

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// alertIngester - *service.AlertService
type alertIngester interface {
	Ingest(ctx context.Context, req model.CreateAlertRequest) (*model.Alert, error)
}

type Worker struct {
	reader     messageReader
	dlq        messageWriter
	alerts     alertIngester
	seen       *cache.Memory
	dedupeTTL  time.Duration
	maxRetries int
	backoff    time.Duration
	topic      string
	log        *slog.Logger
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewWorker - consumer group reader와 DLQ writer 생성 (수동 commit)
func NewWorker(cfg config.KafkaConfig, alerts alertIngester, logger *slog.Logger) *Worker {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          cfg.Topic,
		GroupID:        cfg.ConsumerGroup,
		MinBytes:       1e3,
		MaxBytes:       10e6,
		CommitInterval: 0,
	})
	dlq := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.DLQTopic,
		Balancer:     &kafka.LeastBytes{},
		MaxAttempts:  3,
		RequiredAcks: kafka.RequireAll,
	}
	return newWorker(reader, dlq, alerts, cfg, logger)
}

func newWorker(reader messageReader, dlq messageWriter, alerts alertIngester, cfg config.KafkaConfig, logger *slog.Logger) *Worker {
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	return &Worker{
		reader:     reader,
		dlq:        dlq,
		alerts:     alerts,
		seen:       cache.NewMemory(cache.WithCapacity(cfg.DedupeCapacity), cache.WithDefaultTTL(cfg.DedupeTTL)),
		dedupeTTL:  cfg.DedupeTTL,
		maxRetries: cfg.MaxRetries,
		backoff:    backoff,
		topic:      cfg.Topic,
		log:        logger,
		now:        time.Now,
		sleep:      sleepContext,
	}
}

// Run - ctx가 취소될 때까지 메시지를 처리
// 처리 성공 또는 DLQ 기록 성공 시에만 offset commit
func (w *Worker) Run(ctx context.Context) error {
	defer w.close()
	w.log.Info("ingest worker started", "topic", w.topic)

	for {
		msg, err := w.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				w.log.Info("ingest worker stopping")
				return nil
			}
			w.log.Error("failed to fetch message", "error", err)
			if err := w.sleep(ctx, w.backoff); err != nil {
				return nil
			}
			continue
		}

		if !w.handle(ctx, msg) {
			if ctx.Err() != nil {
				return nil
			}
			continue
		}
		if err := w.reader.CommitMessages(ctx, msg); err != nil {
			w.log.Error("failed to commit message", "partition", msg.Partition, "offset", msg.Offset, "error", err)
		}
	}
}

// handle - commit 가능하면 true
func (w *Worker) handle(ctx context.Context, msg kafka.Message) bool {
	err := w.processWithRetry(ctx, msg)
	if err == nil {
		return true
	}
	if ctx.Err() != nil {
		return false
	}

	w.log.Warn("alert message failed, sending to DLQ",
		"partition", msg.Partition,
		"offset", msg.Offset,
		"error", err,
	)
	if dlqErr := w.deadLetter(ctx, msg, err); dlqErr != nil {
		w.log.Error("DLQ write exhausted retries, message left uncommitted",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"error", dlqErr,
		)
		return false
	}
	metrics.DeadLetters.Inc()
	return true
}

func (w *Worker) processWithRetry(ctx context.Context, msg kafka.Message) error {
	var err error
	for attempt := 0; attempt <= w.maxRetries; attempt++ {
		if attempt > 0 {
			if sleepErr := w.sleep(ctx, w.backoffFor(attempt-1)); sleepErr != nil {
				return sleepErr
			}
		}
		err = w.process(ctx, msg)
		if err == nil || !retryable(err) {
			return err
		}
		w.log.Debug("retrying alert message", "offset", msg.Offset, "attempt", attempt+1, "error", err)
	}
	return err
}

// process - 디코딩, 중복 확인, 저장
// 이미 저장된 알림(ErrConflict)은 성공으로 처리
func (w *Worker) process(ctx context.Context, msg kafka.Message) error {
	req, err := decodeAlert(msg)
	if err != nil {
		return err
	}

	key := dedupeKey(req)
	if key != "" && w.seen.Contains(key) {
		w.log.Debug("duplicate alert message skipped", "key", key)
		return nil
	}

	alert, err := w.alerts.Ingest(ctx, req)
	switch {
	case err == nil:
		w.log.Info("alert ingested from kafka", "alert_id", alert.ID, "offset", msg.Offset)
	case errors.Is(err, service.ErrConflict):
		w.log.Debug("alert already stored", "alert_id", req.ID)
	default:
		return err
	}

	if key != "" {
		_ = w.seen.Set(ctx, key, []byte{1}, w.dedupeTTL)
	}
	return nil
}

func decodeAlert(msg kafka.Message) (model.CreateAlertRequest, error) {
	var req model.CreateAlertRequest
	if len(msg.Value) == 0 {
		return req, fmt.Errorf("%w: empty payload", errMalformed)
	}
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		return req, fmt.Errorf("%w: %v", errMalformed, err)
	}
	// id가 없으면 UUID 형식의 메시지 key를 id로 사용
	if strings.TrimSpace(req.ID) == "" {
		if id, err := uuid.Parse(strings.TrimSpace(string(msg.Key))); err == nil {
			req.ID = id.String()
		}
	}
	return req, nil
}

func dedupeKey(req model.CreateAlertRequest) string {
	if id := strings.TrimSpace(req.ID); id != "" {
		return "alert:" + id
	}
	return ""
}

func retryable(err error) bool {
	return !errors.Is(err, errMalformed) &&
		!errors.Is(err, service.ErrInvalidInput) &&
		!errors.Is(err, context.Canceled)
}

// deadLetter - 원본 메시지에 오류 정보를 헤더로 붙여 DLQ에 기록
func (w *Worker) deadLetter(ctx context.Context, msg kafka.Message, cause error) error {
	headers := make([]kafka.Header, 0, len(msg.Headers)+5)
	headers = append(headers, msg.Headers...)
	headers = append(headers,
		kafka.Header{Key: "original_topic", Value: []byte(msg.Topic)},
		kafka.Header{Key: "original_partition", Value: []byte(strconv.Itoa(msg.Partition))},
		kafka.Header{Key: "original_offset", Value: []byte(strconv.FormatInt(msg.Offset, 10))},
		kafka.Header{Key: "error", Value: []byte(cause.Error())},
		kafka.Header{Key: "timestamp", Value: []byte(w.now().UTC().Format(time.RFC3339))},
	)
	dlqMsg := kafka.Message{Key: msg.Key, Value: msg.Value, Headers: headers}

	var err error
	for attempt := 0; attempt <= w.maxRetries; attempt++ {
		if attempt > 0 {
			if sleepErr := w.sleep(ctx, w.backoffFor(attempt-1)); sleepErr != nil {
				return sleepErr
			}
		}
		if err = w.dlq.WriteMessages(ctx, dlqMsg); err == nil {
			return nil
		}
		w.log.Warn("DLQ write failed", "attempt", attempt+1, "error", err)
	}
	return err
}

// backoffFor - backoff * 2^attempt, 최대 maxBackoff
func (w *Worker) backoffFor(attempt int) time.Duration {
	d := w.backoff
	for i := 0; i < attempt && d < maxBackoff; i++ {
		d *= 2
	}
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}

func (w *Worker) close() {
	if err := w.reader.Close(); err != nil {
		w.log.Warn("failed to close kafka reader", "error", err)
	}
	if err := w.dlq.Close(); err != nil {
		w.log.Warn("failed to close DLQ writer", "error", err)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
