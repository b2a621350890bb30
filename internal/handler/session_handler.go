package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"FOBI-Map/internal/domain/model"
	"FOBI-Map/internal/usecase"
)

// SessionHandler は対話的な地図セッションAPIのハンドラー
type SessionHandler struct {
	sessionUseCase usecase.SessionUseCase
}

// NewSessionHandler は新しいSessionHandlerインスタンスを作成
func NewSessionHandler(sessionUseCase usecase.SessionUseCase) *SessionHandler {
	return &SessionHandler{sessionUseCase: sessionUseCase}
}

// PostSession POST /api/sessions
func (h *SessionHandler) PostSession(c *gin.Context) {
	var req model.CreateSessionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "リクエストの形式が正しくありません",
				"details": err.Error(),
			})
			return
		}
	}
	if err := applyBoundingShape(&req.Filter, req.BoundingShape); err != nil {
		respondValidation(c, err)
		return
	}
	if req.Viewport != nil {
		if err := validateViewport(*req.Viewport); err != nil {
			respondValidation(c, err)
			return
		}
	}

	resp, err := h.sessionUseCase.CreateSession(c.Request.Context(), req.Filter, req.Viewport)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "セッションの作成に失敗しました",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// PostViewport POST /api/sessions/:id/viewport - moveend / zoomend イベント
func (h *SessionHandler) PostViewport(c *gin.Context) {
	var event model.ViewportEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "リクエストの形式が正しくありません",
			"details": err.Error(),
		})
		return
	}
	if err := validateViewport(event.Viewport); err != nil {
		respondValidation(c, err)
		return
	}

	if err := h.sessionUseCase.HandleViewportEvent(c.Request.Context(), c.Param("id"), event); err != nil {
		respondSessionError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

// PutFilter PUT /api/sessions/:id/filter - フィルタ変更
func (h *SessionHandler) PutFilter(c *gin.Context) {
	var req model.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "リクエストの形式が正しくありません",
			"details": err.Error(),
		})
		return
	}
	if err := applyBoundingShape(&req.Filter, req.BoundingShape); err != nil {
		respondValidation(c, err)
		return
	}

	resp, err := h.sessionUseCase.UpdateFilter(c.Request.Context(), c.Param("id"), req.Filter)
	if err != nil {
		respondSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetGrid GET /api/sessions/:id/grid - 最後に適用された集計結果
func (h *SessionHandler) GetGrid(c *gin.Context) {
	result, err := h.sessionUseCase.LatestGrid(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondSessionError(c, err)
		return
	}
	respondGrid(c, result, nil, c.Query("format"))
}

// GetCellRecords GET /api/sessions/:id/cells/:key/records - サイドバーの次のページ
func (h *SessionHandler) GetCellRecords(c *gin.Context) {
	page, err := h.sessionUseCase.LoadCellRecords(c.Request.Context(), c.Param("id"), c.Param("key"))
	if err != nil {
		respondSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// DeleteSession DELETE /api/sessions/:id
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	if err := h.sessionUseCase.DeleteSession(c.Request.Context(), c.Param("id")); err != nil {
		respondSessionError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func respondSessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, usecase.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "セッションが見つかりません", "details": err.Error()})
	case errors.Is(err, usecase.ErrCellNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "セルが見つかりません", "details": err.Error()})
	case errors.Is(err, usecase.ErrGridNotReady):
		c.JSON(http.StatusAccepted, gin.H{"status": "pending", "details": err.Error()})
	case errors.Is(err, usecase.ErrUnknownEvent):
		c.JSON(http.StatusBadRequest, gin.H{"error": "バリデーションエラー", "details": err.Error()})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "処理が中断されました", "details": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "内部エラーが発生しました", "details": err.Error()})
	}
}
