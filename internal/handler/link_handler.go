package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/SergeiKhy/local-shortener/internal/models"
	"github.com/SergeiKhy/local-shortener/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TimezoneHeader клиент может сообщить свою таймзону (IANA), иначе берётся таймзона сервера
const TimezoneHeader = "X-Timezone"

type LinkHandler struct {
	service        service.ShortenerService
	clickProcessor service.ClickProcessor
	logger         *zap.Logger
}

func NewLinkHandler(service service.ShortenerService, clickProcessor service.ClickProcessor, logger *zap.Logger) *LinkHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LinkHandler{
		service:        service,
		clickProcessor: clickProcessor,
		logger:         logger,
	}
}

type CreateLinksRequest struct {
	Entries []models.ShortenEntry `json:"entries" binding:"required,min=1"`
}

type LinkResponse struct {
	models.URLRecord
	ShortURL string `json:"shortUrl"`
}

type CreateLinksResponse struct {
	Links []LinkResponse `json:"links"`
}

type LinkDetailsResponse struct {
	Link      LinkResponse           `json:"link"`
	Analytics models.AnalyticsRecord `json:"analytics"`
	Expired   bool                   `json:"expired"`
	ExpiresIn string                 `json:"expiresIn"`
}

type StatsRequest struct {
	Search string `form:"search"`
	Sort   string `form:"sort" binding:"omitempty,oneof=created clicks expiry"`
}

type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	Links   []LinkResponse    `json:"links,omitempty"`
}

// CreateLinks godoc
// @Summary Shorten up to 5 URLs at once
// @Tags links
// @Accept json
// @Produce json
// @Param request body CreateLinksRequest true "Entries to shorten"
// @Success 201 {object} CreateLinksResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/links [post]
func (h *LinkHandler) CreateLinks(c *gin.Context) {
	var req CreateLinksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	result, err := h.service.ShortenBatch(c.Request.Context(), req.Entries)
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, CreateLinksResponse{Links: h.toLinks(c, result.Records)})

	case errors.Is(err, service.ErrTooManyEntries):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "too_many_entries",
			Message: "At most 5 URLs can be shortened at once",
		})

	case errors.Is(err, service.ErrValidationFailed):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_failed",
			Message: "Please fix the validation errors",
			Fields:  result.Errors,
		})

	case errors.Is(err, service.ErrShortcodeExists):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "shortcode_exists",
			Message: service.MsgShortcodeExists,
			Fields:  result.Errors,
			Links:   h.toLinks(c, result.Records),
		})

	default:
		h.logger.Error("Failed to create links", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to create links",
		})
	}
}

// GetLink godoc
// @Summary Get a short link with its click log
// @Description Returns the stored record even if it has already expired
// @Tags links
// @Produce json
// @Param code path string true "Shortcode"
// @Success 200 {object} LinkDetailsResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/links/{code} [get]
func (h *LinkHandler) GetLink(c *gin.Context) {
	code := c.Param("code")
	ctx := c.Request.Context()

	record := h.service.GetURLByShortcode(ctx, code)
	if record == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Link not found",
		})
		return
	}

	analytics, ok := h.service.GetAnalytics(ctx).Data[code]
	if !ok {
		analytics = models.AnalyticsRecord{Clicks: []models.ClickEvent{}}
	}

	now := h.service.Now()
	c.JSON(http.StatusOK, LinkDetailsResponse{
		Link:      h.toLink(c, *record),
		Analytics: analytics,
		Expired:   record.IsExpired(now),
		ExpiresIn: service.TimeUntilExpiry(record.ExpiryTime, now),
	})
}

// GetStats godoc
// @Summary Statistics dashboard
// @Tags stats
// @Produce json
// @Param search query string false "Substring of original URL or shortcode"
// @Param sort query string false "created | clicks | expiry" default(created)
// @Success 200 {object} models.Dashboard
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/stats [get]
func (h *LinkHandler) GetStats(c *gin.Context) {
	var req StatsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	dashboard := h.service.Statistics(c.Request.Context(), models.StatsQuery{
		Search: req.Search,
		SortBy: req.Sort,
	})

	c.JSON(http.StatusOK, dashboard)
}

// Cleanup godoc
// @Summary Remove expired links now
// @Tags links
// @Produce json
// @Success 200 {object} map[string]bool
// @Router /api/v1/cleanup [post]
func (h *LinkHandler) Cleanup(c *gin.Context) {
	removed := h.service.CleanupExpiredURLs(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

// Redirect godoc
// @Summary Redirect to original URL
// @Tags links
// @Param code path string true "Shortcode"
// @Success 307
// @Failure 404 {object} ErrorResponse
// @Failure 410 {object} ErrorResponse
// @Router /{code} [get]
func (h *LinkHandler) Redirect(c *gin.Context) {
	code := c.Param("code")

	record, err := h.service.Resolve(c.Request.Context(), code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrURLExpired):
			c.JSON(http.StatusGone, ErrorResponse{
				Error:   "expired",
				Message: "This URL has expired and is no longer available.",
			})
		default:
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "URL not found. This link may have expired or never existed.",
			})
		}
		return
	}

	visit := models.Visit{
		Referrer:  c.Request.Referer(),
		UserAgent: c.Request.UserAgent(),
		Timezone:  clientTimezone(c),
	}
	if err := h.clickProcessor.RecordClick(c.Request.Context(), code, visit); err != nil {
		h.logger.Debug("Failed to record click (non-blocking)", zap.Error(err))
	}

	c.Redirect(http.StatusTemporaryRedirect, record.OriginalURL)
}

func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *LinkHandler) toLinks(c *gin.Context, records []models.URLRecord) []LinkResponse {
	links := make([]LinkResponse, 0, len(records))
	for _, r := range records {
		links = append(links, h.toLink(c, r))
	}
	return links
}

func (h *LinkHandler) toLink(c *gin.Context, record models.URLRecord) LinkResponse {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	return LinkResponse{
		URLRecord: record,
		ShortURL:  scheme + "://" + c.Request.Host + "/" + record.Shortcode,
	}
}

// clientTimezone пустая строка, если заголовок не задан или это не IANA-имя
func clientTimezone(c *gin.Context) string {
	tz := c.GetHeader(TimezoneHeader)
	if tz == "" {
		return ""
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return ""
	}
	return tz
}
