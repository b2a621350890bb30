package repository

import (
	"context"

	"FOBI-Map/internal/domain/model"
)

// MarkersRepository 地図に載せる観測マーカーの取得元
type MarkersRepository interface {
	// FetchMarkers 条件に合うマーカーを取得する。座標の検証は呼び出し側で行う
	FetchMarkers(ctx context.Context, criteria model.MarkerCriteria) ([]model.Point, error)
}
