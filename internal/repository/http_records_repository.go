package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"FOBI-Map/internal/domain/model"
	"FOBI-Map/internal/domain/repository"
)

// HTTPRecordsRepository FOBI APIから観測詳細を取得する実装
type HTTPRecordsRepository struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHTTPRecordsRepository 新しいHTTP観測詳細リポジトリを作成
func NewHTTPRecordsRepository(baseURL, token string) repository.RecordsRepository {
	return &HTTPRecordsRepository{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// FetchRecordDetail GET /api/observations/:id を呼び出す
func (r *HTTPRecordsRepository) FetchRecordDetail(ctx context.Context, id string) (*model.ObservationRecord, error) {
	reqURL := r.baseURL + "/api/observations/" + url.PathEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("リクエストの作成に失敗: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("観測詳細APIリクエストに失敗: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("観測ID %s: %w", id, repository.ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("観測詳細APIからエラーステータスが返されました: %s", resp.Status)
	}

	var row recordRow
	if err := json.NewDecoder(resp.Body).Decode(&row); err != nil {
		return nil, fmt.Errorf("観測詳細JSONのパースに失敗: %w", err)
	}
	rec := row.toRecord()
	if rec.ID == "" {
		rec.ID = id
	}
	return rec, nil
}

// recordRow 観測詳細の共通レスポンス形式（Supabaseの行と共用）
type recordRow struct {
	ID             json.RawMessage `json:"id"`
	Source         string          `json:"source"`
	ScientificName string          `json:"scientific_name"`
	CommonName     string          `json:"common_name"`
	Grade          string          `json:"grade"`
	ObserverName   string          `json:"observer_name"`
	MediaURLs      []string        `json:"media_urls"`
	ObservedAt     string          `json:"observed_at"`
	LocationName   string          `json:"location_name"`
	Latitude       flexFloat       `json:"latitude"`
	Longitude      flexFloat       `json:"longitude"`
}

func (r recordRow) toRecord() *model.ObservationRecord {
	return &model.ObservationRecord{
		ID:             rawID(r.ID),
		Source:         model.Source(strings.ToLower(r.Source)),
		ScientificName: r.ScientificName,
		CommonName:     r.CommonName,
		Grade:          r.Grade,
		ObserverName:   r.ObserverName,
		MediaURLs:      r.MediaURLs,
		ObservedAt:     parseTimestamp(r.ObservedAt),
		LocationName:   r.LocationName,
		Latitude:       float64(r.Latitude),
		Longitude:      float64(r.Longitude),
	}
}
