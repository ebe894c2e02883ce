package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"parkgate-service/internal/config"
	"parkgate-service/internal/domain/parking"
	"parkgate-service/internal/exitflow"
	"parkgate-service/internal/repository"
	"parkgate-service/internal/service"
)

type Handler struct {
	orchestrator *service.Orchestrator
	coordinator  *exitflow.Coordinator
	repo         *repository.BookingRepository
	config       *config.Config
	log          zerolog.Logger
}

func NewHandler(
	orchestrator *service.Orchestrator,
	coordinator *exitflow.Coordinator,
	repo *repository.BookingRepository,
	cfg *config.Config,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		coordinator:  coordinator,
		repo:         repo,
		config:       cfg,
		log:          log,
	}
}

func (h *Handler) Register(r *gin.Engine, authMiddleware gin.HandlerFunc) {
	// Confirmation response surface: token-authorized, no auth layer.
	r.GET("/healthz", h.healthz)
	r.GET("/exit-confirmation/:token", h.exitConfirmationPage)
	r.GET("/exit-response/:token/:response", h.exitResponse)
	r.POST("/submit-response/:token", h.submitResponse)

	public := r.Group("/api/v1")
	{
		public.POST("/anpr/events", h.createDetection)
	}

	protected := r.Group("/api/v1")
	protected.Use(authMiddleware)
	{
		protected.GET("/events", h.listEvents)
		protected.GET("/slots", h.listSlots)
	}
}

func (h *Handler) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) exitConfirmationPage(c *gin.Context) {
	token := c.Param("token")
	plate, ok := h.coordinator.Plate(token)
	if !ok {
		c.Data(http.StatusNotFound, "text/html; charset=utf-8", []byte(invalidLinkPage))
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(confirmationPage(plate, token)))
}

func (h *Handler) exitResponse(c *gin.Context) {
	token := c.Param("token")
	response := c.Param("response")

	plate, _ := h.coordinator.Plate(token)
	if !h.coordinator.Resolve(token, response) {
		// The token may have been consumed by a confirmation timeout
		// between the lookup and the resolve; re-check before blaming
		// the response value.
		if _, live := h.coordinator.Plate(token); live {
			c.Data(http.StatusBadRequest, "text/html; charset=utf-8",
				[]byte("Invalid response. Please use the buttons in your email."))
			return
		}
		c.Data(http.StatusNotFound, "text/html; charset=utf-8", []byte(invalidLinkPage))
		return
	}

	if response == exitflow.AnswerYes {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(approvedPage(plate)))
	} else {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(deniedPage(plate)))
	}
}

func (h *Handler) submitResponse(c *gin.Context) {
	token := c.Param("token")

	var body struct {
		Response string `json:"response"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error"})
		return
	}

	if !h.coordinator.Resolve(token, body.Response) {
		c.JSON(http.StatusOK, gin.H{"status": "error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) createDetection(c *gin.Context) {
	var payload parking.DetectionPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	if err := h.orchestrator.ProcessDetection(c.Request.Context(), payload); err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
			return
		}
		h.log.Error().Err(err).Msg("failed to process detection")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "ok"})
}

func (h *Handler) listEvents(c *gin.Context) {
	var kind, plate *string
	if k := strings.TrimSpace(c.Query("kind")); k != "" {
		kind = &k
	}
	if p := strings.TrimSpace(c.Query("plate")); p != "" {
		plate = &p
	}

	var fromTime, toTime *time.Time
	if f := strings.TrimSpace(c.Query("from")); f != "" {
		t, err := time.Parse(time.RFC3339, f)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("invalid from time format"))
			return
		}
		fromTime = &t
	}
	if to := strings.TrimSpace(c.Query("to")); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("invalid to time format"))
			return
		}
		toTime = &t
	}

	limit := 50
	if l := c.Query("limit"); l != "" {
		if parsed, err := parseInt(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	offset := 0
	if o := c.Query("offset"); o != "" {
		if parsed, err := parseInt(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	events, err := h.repo.FindEvents(c.Request.Context(), kind, plate, fromTime, toTime, limit, offset)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to find events")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
		return
	}

	c.JSON(http.StatusOK, successResponse(events))
}

func (h *Handler) listSlots(c *gin.Context) {
	c.JSON(http.StatusOK, successResponse(h.orchestrator.SlotStates()))
}

func successResponse(data interface{}) gin.H {
	return gin.H{
		"data": data,
	}
}

func errorResponse(message string) gin.H {
	return gin.H{
		"error": message,
	}
}

func parseInt(s string) (int, error) {
	return strconv.Atoi(s)
}
