package service

import (
	"context"
	"sync"
	"time"

	"github.com/SergeiKhy/local-shortener/internal/models"
	"go.uber.org/zap"
)

// Константы worker pool
const (
	defaultWorkerCount   = 3    // Количество воркеров
	defaultChannelBuffer = 1000 // Размер буфера канала
	clickWriteTimeout    = 5 * time.Second
)

// ClickProcessor асинхронная запись кликов, чтобы не задерживать редирект
type ClickProcessor interface {
	Start()
	Stop()
	RecordClick(ctx context.Context, shortcode string, visit models.Visit) error
}

type clickJob struct {
	shortcode string
	visit     models.Visit
}

// clickProcessor реализация процессора кликов с использованием Worker Pool
type clickProcessor struct {
	shortener    ShortenerService
	logger       *zap.Logger
	clickChannel chan clickJob
	workerCount  int
	wg           sync.WaitGroup
	ctx          context.Context
	cancel       context.CancelFunc
}

// NewClickProcessor создаёт новый экземпляр процессора кликов.
// workerCount <= 0 означает значение по умолчанию.
func NewClickProcessor(shortener ShortenerService, workerCount int, logger *zap.Logger) ClickProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if workerCount <= 0 {
		workerCount = defaultWorkerCount
	}
	return &clickProcessor{
		shortener:    shortener,
		logger:       logger,
		clickChannel: make(chan clickJob, defaultChannelBuffer),
		workerCount:  workerCount,
	}
}

// Start запускает worker pool
func (p *clickProcessor) Start() {
	p.ctx, p.cancel = context.WithCancel(context.Background())

	p.logger.Info("Запуск воркеров процессора кликов", zap.Int("count", p.workerCount))

	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop останавливает воркеров; уже принятые клики дописываются
func (p *clickProcessor) Stop() {
	p.logger.Info("Остановка процессора кликов...")
	p.cancel()
	p.wg.Wait()
	p.logger.Info("Процессор кликов остановлен")
}

func (p *clickProcessor) worker(id int) {
	defer p.wg.Done()

	p.logger.Debug("Воркер кликов запущен", zap.Int("id", id))

	for {
		select {
		case <-p.ctx.Done():
			p.drain()
			p.logger.Debug("Воркер кликов остановлен", zap.Int("id", id))
			return

		case job := <-p.clickChannel:
			p.processClick(job)
		}
	}
}

func (p *clickProcessor) drain() {
	for {
		select {
		case job := <-p.clickChannel:
			p.processClick(job)
		default:
			return
		}
	}
}

func (p *clickProcessor) processClick(job clickJob) {
	// p.ctx уже может быть отменён при остановке, поэтому свой контекст
	ctx, cancel := context.WithTimeout(context.Background(), clickWriteTimeout)
	defer cancel()

	click := p.shortener.RecordClick(ctx, job.shortcode, job.visit)

	p.logger.Debug("Клик записан",
		zap.String("shortcode", job.shortcode),
		zap.String("referrer", click.Referrer),
		zap.String("timezone", click.Timezone),
	)
}

// RecordClick ставит клик в очередь (неблокирующая операция)
func (p *clickProcessor) RecordClick(ctx context.Context, shortcode string, visit models.Visit) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case p.clickChannel <- clickJob{shortcode: shortcode, visit: visit}:
		return nil
	default:
		// Буфер заполнен: теряем статистику, но не задерживаем редирект
		p.logger.Warn("Буфер канала кликов заполнен, событие потеряно",
			zap.String("shortcode", shortcode),
		)
		return nil
	}
}
