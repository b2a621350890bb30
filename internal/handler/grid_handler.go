package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"FOBI-Map/internal/domain/model"
	repoImpl "FOBI-Map/internal/repository"
	"FOBI-Map/internal/usecase"
)

// GridHandler はグリッド集計・統計APIのハンドラー
type GridHandler struct {
	gridUseCase usecase.GridUseCase
}

// NewGridHandler は新しいGridHandlerインスタンスを作成
func NewGridHandler(gridUseCase usecase.GridUseCase) *GridHandler {
	return &GridHandler{gridUseCase: gridUseCase}
}

// GetGrid GET /api/grid - 表示範囲とズームからグリッドを集計する
func (h *GridHandler) GetGrid(c *gin.Context) {
	vp, err := parseBBox(c.Query("bbox"))
	if err != nil {
		respondValidation(c, err)
		return
	}
	if vp.Zoom, err = parseZoom(c.Query("zoom")); err != nil {
		respondValidation(c, err)
		return
	}
	filter, err := parseFilterQuery(c)
	if err != nil {
		respondValidation(c, err)
		return
	}

	h.computeAndRespond(c, vp, filter, c.Query("format"))
}

// PostGrid POST /api/grid - 範囲図形を含むフィルタでグリッドを集計する
func (h *GridHandler) PostGrid(c *gin.Context) {
	var req model.GridRequest
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

	format := req.Format
	if q := c.Query("format"); q != "" {
		format = q
	}
	h.computeAndRespond(c, req.Viewport, req.Filter, format)
}

// GetStats GET /api/stats - 絞り込み後の統計
func (h *GridHandler) GetStats(c *gin.Context) {
	filter, err := parseFilterQuery(c)
	if err != nil {
		respondValidation(c, err)
		return
	}

	stats, err := h.gridUseCase.ComputeStats(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "統計の取得に失敗しました",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *GridHandler) computeAndRespond(c *gin.Context, vp model.Viewport, filter model.FilterState, format string) {
	if err := validateViewport(vp); err != nil {
		respondValidation(c, err)
		return
	}

	result, stats, err := h.gridUseCase.ComputeGrid(c.Request.Context(), vp, filter)
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidViewport) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "バリデーションエラー",
				"details": err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "グリッドの集計に失敗しました",
			"details": err.Error(),
		})
		return
	}

	respondGrid(c, result, stats, format)
}

// respondGrid format=geojson なら FeatureCollection、それ以外はJSON
func respondGrid(c *gin.Context, result *model.GridResult, stats *model.Stats, format string) {
	if strings.EqualFold(format, "geojson") {
		c.JSON(http.StatusOK, repoImpl.CellsToFeatureCollection(result.Cells))
		return
	}
	resp := model.NewGridResponse(result)
	resp.Stats = stats
	c.JSON(http.StatusOK, resp)
}

func respondValidation(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "バリデーションエラー",
		"details": err.Error(),
	})
}
