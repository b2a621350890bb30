package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/apex/log"
	"github.com/google/uuid"

	"FOBI-Map/internal/domain/helper"
	"FOBI-Map/internal/domain/model"
	"FOBI-Map/internal/domain/repository"
	"FOBI-Map/internal/domain/service"
)

// markersCacheTTL 同じ検索条件のマーカー一覧を使い回す期間
const markersCacheTTL = 5 * time.Minute

// ErrInvalidViewport 表示範囲が不正
var ErrInvalidViewport = errors.New("表示範囲が不正です")

type GridUseCase interface {
	// LoadFilteredPoints マーカーを取得してフィルタ条件で絞り込む
	LoadFilteredPoints(ctx context.Context, filter model.FilterState) ([]model.Point, error)

	// ComputeGrid 取得→絞り込み→表示範囲→集計を1回で行う
	ComputeGrid(ctx context.Context, vp model.Viewport, filter model.FilterState) (*model.GridResult, *model.Stats, error)

	// ComputeStats 絞り込み後の観測点の統計
	ComputeStats(ctx context.Context, filter model.FilterState) (*model.Stats, error)
}

type gridUseCaseImpl struct {
	markersRepo  repository.MarkersRepository
	cache        repository.CacheRepository
	filterEngine *service.FilterEngine
}

// NewGridUseCase 新しいGridUseCaseを作成。cache は nil でもよい
func NewGridUseCase(markersRepo repository.MarkersRepository, cache repository.CacheRepository, filterEngine *service.FilterEngine) GridUseCase {
	if filterEngine == nil {
		filterEngine = service.NewFilterEngine()
	}
	return &gridUseCaseImpl{
		markersRepo:  markersRepo,
		cache:        cache,
		filterEngine: filterEngine,
	}
}

func (u *gridUseCaseImpl) LoadFilteredPoints(ctx context.Context, filter model.FilterState) ([]model.Point, error) {
	points, err := u.fetchMarkers(ctx, model.CriteriaFromFilter(filter))
	if err != nil {
		return nil, err
	}
	filtered := u.filterEngine.Filter(points, filter)
	log.Infof("🔎 フィルタ適用: %d件 -> %d件", len(points), len(filtered))
	return filtered, nil
}

func (u *gridUseCaseImpl) ComputeGrid(ctx context.Context, vp model.Viewport, filter model.FilterState) (*model.GridResult, *model.Stats, error) {
	vp.Zoom = service.ClampZoom(vp.Zoom)
	if !vp.IsValid() {
		return nil, nil, ErrInvalidViewport
	}

	points, err := u.LoadFilteredPoints(ctx, filter)
	if err != nil {
		return nil, nil, err
	}

	start := time.Now()
	visible := service.PointsInViewport(points, vp)
	gridType := service.GridTypeForZoom(vp.Zoom)
	cellSize := service.CellSizeForGridType(gridType)
	cells := service.Aggregate(visible, cellSize)
	log.Infof("✅ グリッド集計完了: 表示範囲内 %d件 -> %dセル (%s, %v)", len(visible), len(cells), gridType, time.Since(start))

	stats := service.ComputeStats(points)
	return &model.GridResult{
		RequestID: uuid.New().String(),
		Viewport:  vp,
		GridType:  gridType,
		CellSize:  cellSize,
		Cells:     cells,
		Signature: service.Signature(gridType, vp, len(visible)),
		CreatedAt: time.Now(),
	}, &stats, nil
}

func (u *gridUseCaseImpl) ComputeStats(ctx context.Context, filter model.FilterState) (*model.Stats, error) {
	points, err := u.LoadFilteredPoints(ctx, filter)
	if err != nil {
		return nil, err
	}
	stats := service.ComputeStats(points)
	return &stats, nil
}

// fetchMarkers 検索条件ごとにキャッシュしながらマーカーを取得する
func (u *gridUseCaseImpl) fetchMarkers(ctx context.Context, criteria model.MarkerCriteria) ([]model.Point, error) {
	key, keyErr := markersCacheKey(criteria)
	if u.cache != nil && keyErr == nil {
		if data, err := u.cache.Get(ctx, key); err == nil {
			var points []model.Point
			if err := json.Unmarshal(data, &points); err == nil {
				log.Debugf("📦 マーカーをキャッシュから取得: %d件", len(points))
				return points, nil
			}
		} else if !errors.Is(err, repository.ErrCacheMiss) {
			log.Warnf("⚠️ マーカーキャッシュ読み込み失敗: %v", err)
		}
	}

	points, err := u.markersRepo.FetchMarkers(ctx, criteria)
	if err != nil {
		return nil, fmt.Errorf("マーカーの取得に失敗: %w", err)
	}

	if u.cache != nil && keyErr == nil {
		if data, err := json.Marshal(helper.SanitizePoints(points)); err == nil {
			if err := u.cache.Set(ctx, key, data, markersCacheTTL); err != nil {
				log.Warnf("⚠️ マーカーキャッシュ書き込み失敗: %v", err)
			}
		}
	}
	return points, nil
}

func markersCacheKey(c model.MarkerCriteria) (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return "markers:" + string(b), nil
}
