package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quizquest/quizquest-go/internal/middleware"
	"github.com/quizquest/quizquest-go/internal/model"
	"github.com/quizquest/quizquest-go/internal/response"
	"github.com/quizquest/quizquest-go/internal/service"
	"github.com/quizquest/quizquest-go/internal/validator"
)

// GameHandler handles the level and task endpoints.
type GameHandler struct {
	gameService *service.GameService
}

// NewGameHandler creates a new GameHandler.
func NewGameHandler(gameService *service.GameService) *GameHandler {
	return &GameHandler{gameService: gameService}
}

// Intro godoc
// GET /api/v1/game/levels/:level_id/intro
func (h *GameHandler) Intro(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	intro, err := h.gameService.Intro(c.Request.Context(), claims.UserID, c.Param("level_id"))
	if err != nil {
		h.failGame(c, err)
		return
	}
	response.Success(c, http.StatusOK, intro)
}

// Start godoc
// POST /api/v1/game/levels/:level_id/start
func (h *GameHandler) Start(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	prog, err := h.gameService.Start(c.Request.Context(), claims.UserID, c.Param("level_id"))
	if err != nil {
		h.failGame(c, err)
		return
	}
	response.Success(c, http.StatusOK, prog)
}

// Replay godoc
// POST /api/v1/game/levels/:level_id/replay
// Returns 429 with retry_after while the replay cooldown is running.
func (h *GameHandler) Replay(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	prog, err := h.gameService.Replay(c.Request.Context(), claims.UserID, c.Param("level_id"))
	if err != nil {
		var cooldown *service.CooldownActiveError
		if errors.As(err, &cooldown) {
			response.FailWithRetryAfter(c, http.StatusTooManyRequests, response.ErrReplayCooldown, cooldown.Until)
			return
		}
		h.failGame(c, err)
		return
	}
	response.Success(c, http.StatusOK, prog)
}

// NextTask godoc
// GET /api/v1/game/levels/:level_id/next
func (h *GameHandler) NextTask(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	res, err := h.gameService.NextTask(c.Request.Context(), claims.UserID, c.Param("level_id"))
	if err != nil {
		h.failGame(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

// Submit godoc
// POST /api/v1/game/tasks/:task_id/submit
// The Idempotency-Key header makes duplicate deliveries safe.
func (h *GameHandler) Submit(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.SubmitRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.gameService.Submit(
		c.Request.Context(),
		claims.UserID,
		claims.DisplayName,
		c.Param("task_id"),
		req,
		c.GetHeader("Idempotency-Key"),
	)
	if err != nil {
		h.failGame(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

// Leaderboard godoc
// GET /api/v1/game/levels/:level_id/leaderboard
func (h *GameHandler) Leaderboard(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	lb, err := h.gameService.Leaderboard(c.Request.Context(), c.Param("level_id"))
	if err != nil {
		h.failGame(c, err)
		return
	}
	response.Success(c, http.StatusOK, lb)
}

// failGame maps game service errors onto the response envelope.
func (h *GameHandler) failGame(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrLevelNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrLevelNotFound)
	case errors.Is(err, service.ErrTaskNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrTaskNotFound)
	case errors.Is(err, service.ErrLevelLocked):
		response.Fail(c, http.StatusForbidden, response.ErrLevelLocked)
	case errors.Is(err, service.ErrLevelNotStarted):
		response.Fail(c, http.StatusConflict, response.ErrLevelNotStarted)
	case errors.Is(err, service.ErrLevelNotCompleted):
		response.Fail(c, http.StatusConflict, response.ErrLevelNotComplete)
	case errors.Is(err, service.ErrAttemptMismatch):
		response.Fail(c, http.StatusConflict, response.ErrAttemptToken)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
