package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const sweepTimeout = 10 * time.Second

// ExpirySweeper периодически удаляет просроченные ссылки
type ExpirySweeper struct {
	shortener ShortenerService
	interval  time.Duration
	logger    *zap.Logger

	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
	started atomic.Bool
}

func NewExpirySweeper(shortener ShortenerService, interval time.Duration, logger *zap.Logger) *ExpirySweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &ExpirySweeper{
		shortener: shortener,
		interval:  interval,
		logger:    logger,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start делает первую очистку сразу, дальше по тикеру
func (s *ExpirySweeper) Start() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	s.logger.Info("Запуск фоновой очистки просроченных ссылок", zap.Duration("interval", s.interval))
	go s.loop()
}

// Stop можно вызывать несколько раз
func (s *ExpirySweeper) Stop() {
	s.once.Do(func() {
		close(s.stop)
		if s.started.Load() {
			<-s.done
		}
		s.logger.Info("Фоновая очистка остановлена")
	})
}

func (s *ExpirySweeper) loop() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *ExpirySweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	if s.shortener.CleanupExpiredURLs(ctx) {
		s.logger.Debug("Очистка удалила просроченные ссылки")
	}
}
