package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Blu-Chips/Invoice-Extractor/internal/domain/model"
)

// PaymentFacade exposes the subset of application functionality required by the poller.
type PaymentFacade interface {
	DuePayments(ctx context.Context, limit int) ([]model.PaymentRequest, error)
	PollPayment(ctx context.Context, checkoutID string) (*model.PaymentRequest, error)
}

// PaymentPoller checks pending checkouts against the gateway concurrently.
type PaymentPoller struct {
	facade       PaymentFacade
	pollInterval time.Duration
	batchSize    int
	workers      int
	logger       *slog.Logger

	jobs   chan model.PaymentRequest
	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewPaymentPoller constructs the poller worker pool.
func NewPaymentPoller(facade PaymentFacade, pollInterval time.Duration, batchSize, workers int, logger *slog.Logger) *PaymentPoller {
	if workers <= 0 {
		workers = 1
	}
	if batchSize <= 0 {
		batchSize = 1
	}
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &PaymentPoller{
		facade:       facade,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		workers:      workers,
		logger:       logger,
		jobs:         make(chan model.PaymentRequest, batchSize*workers),
	}
}

// Start launches background polling.
func (p *PaymentPoller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	jobs := p.jobs
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(runCtx, jobs)
	}

	p.wg.Add(1)
	go p.dispatch(runCtx, jobs)
}

// Stop waits for all workers to finish.
func (p *PaymentPoller) Stop() {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
		p.jobs = make(chan model.PaymentRequest, p.batchSize*p.workers)
	}
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *PaymentPoller) dispatch(ctx context.Context, jobs chan<- model.PaymentRequest) {
	defer p.wg.Done()
	defer close(jobs)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.fetchAndDispatch(ctx, jobs)
		}
	}
}

func (p *PaymentPoller) fetchAndDispatch(ctx context.Context, jobs chan<- model.PaymentRequest) {
	due, err := p.facade.DuePayments(ctx, p.batchSize)
	if err != nil {
		p.logger.Error("fetch due payments failed", slog.String("error", err.Error()))
		return
	}
	for _, request := range due {
		select {
		case <-ctx.Done():
			return
		case jobs <- request:
		}
	}
}

func (p *PaymentPoller) worker(ctx context.Context, jobs <-chan model.PaymentRequest) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case request, ok := <-jobs:
			if !ok {
				return
			}
			p.handle(ctx, request)
		}
	}
}

func (p *PaymentPoller) handle(ctx context.Context, request model.PaymentRequest) {
	result, err := p.facade.PollPayment(ctx, request.CheckoutID)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.logger.Error("payment poll failed",
			slog.String("checkout_id", request.CheckoutID),
			slog.String("error", err.Error()),
		)
		return
	}
	if result.Status.Terminal() {
		p.logger.Info("payment settled",
			slog.String("checkout_id", result.CheckoutID),
			slog.String("status", string(result.Status)),
			slog.Int("attempts", result.AttemptCount),
		)
	}
}
