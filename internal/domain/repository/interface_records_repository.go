package repository

import (
	"context"

	"FOBI-Map/internal/domain/model"
)

// RecordsRepository サイドバーに表示する観測詳細の取得元
type RecordsRepository interface {
	// FetchRecordDetail 観測IDから詳細を取得する。存在しなければ ErrNotFound
	FetchRecordDetail(ctx context.Context, id string) (*model.ObservationRecord, error)
}
