package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"sync"
	"time"

	"github.com/SergeiKhy/local-shortener/internal/models"
	"github.com/SergeiKhy/local-shortener/internal/repository"
	"github.com/SergeiKhy/local-shortener/internal/validator"
	"go.uber.org/zap"
)

// Ошибки сервиса
var (
	ErrShortcodeExists  = errors.New("короткий код уже занят")
	ErrURLNotFound      = errors.New("ссылка не найдена")
	ErrURLExpired       = errors.New("срок действия ссылки истёк")
	ErrTooManyEntries   = errors.New("слишком много ссылок в одном запросе")
	ErrValidationFailed = errors.New("ошибка валидации")
	ErrValidityTooLarge = errors.New("слишком большой срок действия")
)

// Константы сервиса
const (
	DefaultShortcodeLength = 8
	DefaultValidityMinutes = 30
	MaxBatchEntries        = 5
	ReferrerDirect         = "Direct"
	MsgShortcodeExists     = "Shortcode already exists"
	charset                = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// ShortenerService хранилище ссылок и аналитики поверх двух коллекций
type ShortenerService interface {
	GenerateShortcode(length int) (string, error)

	GetStoredURLs(ctx context.Context) repository.LoadResult[models.URLCollection]
	SaveURLs(ctx context.Context, urls models.URLCollection) error
	GetAnalytics(ctx context.Context) repository.LoadResult[models.AnalyticsCollection]
	SaveAnalytics(ctx context.Context, analytics models.AnalyticsCollection) error

	CleanupExpiredURLs(ctx context.Context) bool
	AddURL(ctx context.Context, originalURL, customShortcode string, validityMinutes int) (*models.URLRecord, error)
	GetURLByShortcode(ctx context.Context, shortcode string) *models.URLRecord
	RecordClick(ctx context.Context, shortcode string, visit models.Visit) models.ClickEvent

	ShortenBatch(ctx context.Context, entries []models.ShortenEntry) (*models.BatchResult, error)
	Resolve(ctx context.Context, shortcode string) (*models.URLRecord, error)
	Statistics(ctx context.Context, query models.StatsQuery) *models.Dashboard

	// Now часы сервиса, по ним считаются сроки жизни
	Now() time.Time
}

// Options настройки сервиса. Нулевые значения заменяются значениями по умолчанию.
type Options struct {
	ShortcodeLength        int
	DefaultValidityMinutes int
	Location               *time.Location
	Clock                  func() time.Time
	Random                 io.Reader
}

// shortenerService реализация сервиса.
// mu сериализует пары load/save внутри процесса; между процессами действует last-write-wins.
type shortenerService struct {
	mu              sync.Mutex
	repo            repository.CollectionRepository
	logger          *zap.Logger
	codeLength      int
	defaultValidity int
	location        *time.Location
	now             func() time.Time
	random          io.Reader
}

// NewShortenerService создаёт новый экземпляр сервиса
func NewShortenerService(repo repository.CollectionRepository, logger *zap.Logger, opts Options) ShortenerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.ShortcodeLength <= 0 {
		opts.ShortcodeLength = DefaultShortcodeLength
	}
	if opts.DefaultValidityMinutes <= 0 {
		opts.DefaultValidityMinutes = DefaultValidityMinutes
	}
	// time.Local называется "Local", в клик нужно IANA-имя
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Random == nil {
		opts.Random = rand.Reader
	}

	return &shortenerService{
		repo:            repo,
		logger:          logger,
		codeLength:      opts.ShortcodeLength,
		defaultValidity: opts.DefaultValidityMinutes,
		location:        opts.Location,
		now:             opts.Clock,
		random:          opts.Random,
	}
}

func (s *shortenerService) Now() time.Time {
	return s.now()
}

// GenerateShortcode генерирует случайный код из 62 символов. Уникальность не проверяется.
func (s *shortenerService) GenerateShortcode(length int) (string, error) {
	if length <= 0 {
		length = s.codeLength
	}

	result := make([]byte, length)
	for i := 0; i < length; i++ {
		num, err := rand.Int(s.random, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[num.Int64()]
	}
	return string(result), nil
}

func (s *shortenerService) GetStoredURLs(ctx context.Context) repository.LoadResult[models.URLCollection] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadURLs(ctx)
}

func (s *shortenerService) SaveURLs(ctx context.Context, urls models.URLCollection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveURLs(ctx, urls)
}

func (s *shortenerService) GetAnalytics(ctx context.Context) repository.LoadResult[models.AnalyticsCollection] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadAnalytics(ctx)
}

func (s *shortenerService) SaveAnalytics(ctx context.Context, analytics models.AnalyticsCollection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveAnalytics(ctx, analytics)
}

// CleanupExpiredURLs удаляет просроченные ссылки вместе с их аналитикой.
// Коллекции сохраняются только если что-то было удалено.
func (s *shortenerService) CleanupExpiredURLs(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cleanupExpired(ctx)
}

// AddURL сохраняет новую ссылку и пустую аналитику для неё.
// Сгенерированный код при коллизии не перегенерируется: ошибку получает вызывающий.
func (s *shortenerService) AddURL(ctx context.Context, originalURL, customShortcode string, validityMinutes int) (*models.URLRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addURL(ctx, originalURL, customShortcode, validityMinutes)
}

// GetURLByShortcode возвращает запись без проверки срока жизни
func (s *shortenerService) GetURLByShortcode(ctx context.Context, shortcode string) *models.URLRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookup(ctx, shortcode)
}

// RecordClick дописывает клик в журнал ссылки. Срок жизни не проверяется.
func (s *shortenerService) RecordClick(ctx context.Context, shortcode string, visit models.Visit) models.ClickEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	analytics := s.loadAnalytics(ctx).Data

	record, ok := analytics[shortcode]
	if !ok {
		s.logger.Debug("Нет записи аналитики, создаём новую", zap.String("shortcode", shortcode))
		record = models.AnalyticsRecord{Clicks: []models.ClickEvent{}}
	}

	referrer := visit.Referrer
	if referrer == "" {
		referrer = ReferrerDirect
	}
	timezone := visit.Timezone
	if timezone == "" {
		timezone = s.location.String()
	}

	click := models.ClickEvent{
		Timestamp: s.now().UnixMilli(),
		Referrer:  referrer,
		UserAgent: visit.UserAgent,
		Timezone:  timezone,
	}

	record.Clicks = append(record.Clicks, click)
	record.TotalClicks++
	analytics[shortcode] = record

	_ = s.saveAnalytics(ctx, analytics)

	return click
}

// ShortenBatch сокращает до MaxBatchEntries ссылок за раз.
// Пустые строки пропускаются. Ошибки возвращаются по ключам "<index>_<field>".
func (s *shortenerService) ShortenBatch(ctx context.Context, entries []models.ShortenEntry) (*models.BatchResult, error) {
	if len(entries) > MaxBatchEntries {
		return nil, ErrTooManyEntries
	}

	result := &models.BatchResult{
		Records: []models.URLRecord{},
		Errors:  make(map[string]string),
	}

	// Сначала валидируем всё, затем сохраняем
	for i, entry := range entries {
		if entry.OriginalURL == "" {
			continue
		}

		validity := ""
		if entry.ValidityMinutes != nil {
			validity = strconv.Itoa(*entry.ValidityMinutes)
		}

		check := validator.ValidateURLEntry(validator.FormatURL(entry.OriginalURL), entry.CustomShortcode, validity)
		for field, msg := range check.Errors {
			result.Errors[entryKey(i, field)] = msg
		}
	}

	if len(result.Errors) > 0 {
		return result, ErrValidationFailed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var collided bool
	for i, entry := range entries {
		if entry.OriginalURL == "" {
			continue
		}

		validity := s.defaultValidity
		if entry.ValidityMinutes != nil {
			validity = *entry.ValidityMinutes
		}

		record, err := s.addURL(ctx, validator.FormatURL(entry.OriginalURL), entry.CustomShortcode, validity)
		if err != nil {
			if errors.Is(err, ErrShortcodeExists) {
				collided = true
				result.Errors[entryKey(i, validator.FieldCustomShortcode)] = MsgShortcodeExists
				continue
			}
			return nil, err
		}
		result.Records = append(result.Records, *record)
	}

	if collided {
		return result, ErrShortcodeExists
	}

	return result, nil
}

// Resolve ищет ссылку для редиректа и проверяет срок жизни
func (s *shortenerService) Resolve(ctx context.Context, shortcode string) (*models.URLRecord, error) {
	record := s.GetURLByShortcode(ctx, shortcode)
	if record == nil {
		return nil, ErrURLNotFound
	}
	if record.IsExpired(s.now()) {
		return nil, ErrURLExpired
	}
	return record, nil
}

func (s *shortenerService) addURL(ctx context.Context, originalURL, customShortcode string, validityMinutes int) (*models.URLRecord, error) {
	// иначе now + minutes*60000 переполнит int64
	if int64(validityMinutes) > validator.MaxValidityMinutes {
		return nil, fmt.Errorf("%w: %d мин", ErrValidityTooLarge, validityMinutes)
	}

	urls := s.loadURLs(ctx).Data

	shortcode := customShortcode
	if shortcode == "" {
		code, err := s.GenerateShortcode(s.codeLength)
		if err != nil {
			return nil, fmt.Errorf("failed to generate code: %w", err)
		}
		shortcode = code
	}

	if _, exists := urls[shortcode]; exists {
		return nil, fmt.Errorf("%w: %s", ErrShortcodeExists, shortcode)
	}

	now := s.now().UnixMilli()
	var expiryTime *int64
	if validityMinutes > 0 {
		t := now + int64(validityMinutes)*int64(time.Minute/time.Millisecond)
		expiryTime = &t
	}

	record := models.URLRecord{
		OriginalURL:     originalURL,
		Shortcode:       shortcode,
		CreatedAt:       now,
		ExpiryTime:      expiryTime,
		ValidityMinutes: validityMinutes,
	}

	urls[shortcode] = record
	_ = s.saveURLs(ctx, urls)

	analytics := s.loadAnalytics(ctx).Data
	analytics[shortcode] = models.AnalyticsRecord{Clicks: []models.ClickEvent{}}
	_ = s.saveAnalytics(ctx, analytics)

	s.logger.Info("Ссылка создана",
		zap.String("shortcode", shortcode),
		zap.Int("validity_minutes", validityMinutes),
	)

	return &record, nil
}

func (s *shortenerService) lookup(ctx context.Context, shortcode string) *models.URLRecord {
	record, ok := s.loadURLs(ctx).Data[shortcode]
	if !ok {
		return nil
	}
	return &record
}

func (s *shortenerService) cleanupExpired(ctx context.Context) bool {
	urls := s.loadURLs(ctx).Data
	analytics := s.loadAnalytics(ctx).Data
	now := s.now()

	removed := 0
	for shortcode, record := range urls {
		if record.IsExpired(now) {
			delete(urls, shortcode)
			delete(analytics, shortcode)
			removed++
		}
	}

	if removed == 0 {
		return false
	}

	_ = s.saveURLs(ctx, urls)
	_ = s.saveAnalytics(ctx, analytics)

	s.logger.Info("Удалены просроченные ссылки", zap.Int("count", removed))
	return true
}

// loadURLs / loadAnalytics никогда не падают: диагностика уходит в лог
func (s *shortenerService) loadURLs(ctx context.Context) repository.LoadResult[models.URLCollection] {
	res := s.repo.LoadURLs(ctx)
	if res.Degraded() {
		s.logger.Error("Ошибка чтения ссылок из хранилища",
			zap.Stringer("status", res.Status),
			zap.Error(res.Err),
		)
	}
	return res
}

func (s *shortenerService) loadAnalytics(ctx context.Context) repository.LoadResult[models.AnalyticsCollection] {
	res := s.repo.LoadAnalytics(ctx)
	if res.Degraded() {
		s.logger.Error("Ошибка чтения аналитики из хранилища",
			zap.Stringer("status", res.Status),
			zap.Error(res.Err),
		)
	}
	return res
}

func (s *shortenerService) saveURLs(ctx context.Context, urls models.URLCollection) error {
	if err := s.repo.SaveURLs(ctx, urls); err != nil {
		s.logger.Error("Ошибка сохранения ссылок в хранилище", zap.Error(err))
		return err
	}
	return nil
}

func (s *shortenerService) saveAnalytics(ctx context.Context, analytics models.AnalyticsCollection) error {
	if err := s.repo.SaveAnalytics(ctx, analytics); err != nil {
		s.logger.Error("Ошибка сохранения аналитики в хранилище", zap.Error(err))
		return err
	}
	return nil
}

func entryKey(index int, field string) string {
	return strconv.Itoa(index) + "_" + field
}
