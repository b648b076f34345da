package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"paywatch.backend/internal/config"
	"paywatch.backend/internal/domain/entities"
	domainRepos "paywatch.backend/internal/domain/repositories"
	"paywatch.backend/internal/usecases"
	"paywatch.backend/pkg/logger"
	"paywatch.backend/pkg/metrics"
)

// PaymentLocker guards a payment id against concurrent evaluation.
type PaymentLocker interface {
	TryAcquire(ctx context.Context, id string) (bool, func())
}

// PaymentMonitorJob drives the scan cycle: sweep expired requests, load the
// pending working set, evaluate each payment with bounded per-network
// concurrency. A slow cycle is skipped, never stacked.
type PaymentMonitorJob struct {
	repo    domainRepos.PaymentRequestRepository
	monitor *usecases.PaymentMonitorUsecase
	locks   PaymentLocker
	cfg     config.MonitorConfig
	cron    *cron.Cron
}

func NewPaymentMonitorJob(
	repo domainRepos.PaymentRequestRepository,
	monitor *usecases.PaymentMonitorUsecase,
	locks PaymentLocker,
	cfg config.MonitorConfig,
) *PaymentMonitorJob {
	return &PaymentMonitorJob{
		repo:    repo,
		monitor: monitor,
		locks:   locks,
		cfg:     cfg,
	}
}

// Start schedules the scan cycle. Overlap protection comes from cron's
// SkipIfStillRunning chain: if a cycle overruns the interval the next tick
// is dropped, not queued behind it.
func (j *PaymentMonitorJob) Start() error {
	cl := &cronLogger{}
	j.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cl)))

	_, err := j.cron.AddFunc("@every "+j.cfg.ScanInterval.String(), func() {
		j.RunCycle(context.Background())
	})
	if err != nil {
		return err
	}

	j.cron.Start()
	logger.Info(context.Background(), "payment monitor started",
		zap.Duration("interval", j.cfg.ScanInterval),
		zap.Int("batch_limit", j.cfg.BatchLimit))
	return nil
}

// Stop halts scheduling and waits for the in-flight cycle to finish, so no
// per-payment write is abandoned halfway.
func (j *PaymentMonitorJob) Stop() {
	if j.cron == nil {
		return
	}
	ctx := j.cron.Stop()
	<-ctx.Done()
	logger.Info(context.Background(), "payment monitor stopped")
}

// RunCycle executes one full scan pass. Exported so the serve path can run
// an immediate pass on startup.
func (j *PaymentMonitorJob) RunCycle(ctx context.Context) {
	start := time.Now()

	// Expiry first: stale requests must never be queried on-chain, even
	// when a matching transfer exists. Expiry wins that race.
	expired, err := j.repo.BulkExpire(ctx, start)
	if err != nil {
		logger.Error(ctx, "expiry sweep failed", zap.Error(err))
	} else if expired > 0 {
		metrics.PaymentsExpired.Add(float64(expired))
	}

	pending, err := j.repo.ListPending(ctx, j.cfg.BatchLimit)
	if err != nil {
		logger.Error(ctx, "loading pending payments failed", zap.Error(err))
		return
	}

	byNetwork := make(map[entities.Network][]*entities.PaymentRequest)
	for _, p := range pending {
		byNetwork[p.Network] = append(byNetwork[p.Network], p)
	}

	var wg sync.WaitGroup
	for network, payments := range byNetwork {
		wg.Add(1)
		go func(network entities.Network, payments []*entities.PaymentRequest) {
			defer wg.Done()
			j.processNetwork(ctx, network, payments)
		}(network, payments)
	}
	wg.Wait()

	elapsed := time.Since(start)
	metrics.ScanCycleDuration.Observe(elapsed.Seconds())
	logger.Info(ctx, "scan cycle finished",
		zap.Duration("duration", elapsed),
		zap.Int64("expired", expired),
		zap.Int("pending_checked", len(pending)))
}

// processNetwork evaluates one network's payments through a bounded worker
// pool, respecting the provider's tolerance for parallel calls.
func (j *PaymentMonitorJob) processNetwork(ctx context.Context, network entities.Network, payments []*entities.PaymentRequest) {
	concurrency := j.cfg.NetworkConcurrency
	if concurrency < 1 {
		concurrency = 1
	}

	queue := make(chan *entities.PaymentRequest)
	var wg sync.WaitGroup
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range queue {
				j.processPayment(ctx, p)
			}
		}()
	}

	for _, p := range payments {
		queue <- p
	}
	close(queue)
	wg.Wait()
}

// processPayment is the per-payment isolation boundary: a panic or error in
// one evaluation never aborts the rest of the batch or the scheduling loop.
func (j *PaymentMonitorJob) processPayment(ctx context.Context, payment *entities.PaymentRequest) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "panic while processing payment",
				zap.String("payment_id", payment.ID.String()),
				zap.Any("panic", r))
		}
	}()

	ok, release := j.locks.TryAcquire(ctx, payment.ID.String())
	if !ok {
		logger.Debug(ctx, "payment evaluation already in flight, skipping",
			zap.String("payment_id", payment.ID.String()))
		return
	}
	defer release()

	callCtx, cancel := context.WithTimeout(ctx, j.cfg.CallTimeout)
	defer cancel()

	metrics.PaymentsScanned.Inc()
	if err := j.monitor.Advance(callCtx, payment); err != nil {
		logger.Error(ctx, "payment evaluation failed",
			zap.String("payment_id", payment.ID.String()),
			zap.String("network", string(payment.Network)),
			zap.Error(err))
	}
}

// cronLogger adapts pkg/logger to cron's logging interface.
type cronLogger struct{}

func (l *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Debug(context.Background(), "cron: "+msg, zap.Any("kv", keysAndValues))
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Error(context.Background(), "cron: "+msg, zap.Error(err), zap.Any("kv", keysAndValues))
}
