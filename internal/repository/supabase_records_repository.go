package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"FOBI-Map/internal/domain/model"
	"FOBI-Map/internal/domain/repository"
	"FOBI-Map/internal/infrastructure/database"
)

type SupabaseRecordsRepository struct {
	client *database.SupabaseClient
}

func NewSupabaseRecordsRepository(client *database.SupabaseClient) repository.RecordsRepository {
	return &SupabaseRecordsRepository{
		client: client,
	}
}

func (r *SupabaseRecordsRepository) FetchRecordDetail(ctx context.Context, id string) (*model.ObservationRecord, error) {
	data, _, err := r.client.GetClient().From("observation_details").Select("*", "exact", false).Eq("id", id).Execute()
	if err != nil {
		return nil, fmt.Errorf("観測詳細データの取得失敗: %w", err)
	}

	return decodeRecordRows(data, id)
}

// decodeRecordRows Supabaseの配列レスポンスから先頭の1件を取り出す
func decodeRecordRows(data []byte, id string) (*model.ObservationRecord, error) {
	var rows []recordRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("観測詳細データのJSONアンマーシャル失敗: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("観測ID %s: %w", id, repository.ErrNotFound)
	}

	rec := rows[0].toRecord()
	if rec.ID == "" {
		rec.ID = id
	}
	return rec, nil
}
