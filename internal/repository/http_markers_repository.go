package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/apex/log"

	"FOBI-Map/internal/domain/model"
	"FOBI-Map/internal/domain/repository"
	"FOBI-Map/internal/metrics"
)

// HTTPMarkersRepository FOBI APIからマーカーを取得する実装
type HTTPMarkersRepository struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHTTPMarkersRepository 新しいHTTPマーカーリポジトリを作成
func NewHTTPMarkersRepository(baseURL, token string) repository.MarkersRepository {
	return &HTTPMarkersRepository{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// FetchMarkers GET /api/markers を呼び出してマーカー一覧を取得する
func (r *HTTPMarkersRepository) FetchMarkers(ctx context.Context, criteria model.MarkerCriteria) ([]model.Point, error) {
	start := time.Now()
	defer func() {
		metrics.MarkersFetchDurationMs.WithLabelValues("http").Observe(float64(time.Since(start).Milliseconds()))
	}()

	reqURL := r.baseURL + "/api/markers"
	if q := markerQuery(criteria).Encode(); q != "" {
		reqURL += "?" + q
	}

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
		return nil, fmt.Errorf("マーカーAPIリクエストに失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("マーカーAPIからエラーステータスが返されました: %s", resp.Status)
	}

	var rows []markerRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("マーカーJSONのパースに失敗: %w", err)
	}

	points := make([]model.Point, 0, len(rows))
	for _, row := range rows {
		points = append(points, row.toPoint())
	}
	log.Infof("📍 マーカー取得完了: %d件 (%v)", len(points), time.Since(start))
	return points, nil
}

func markerQuery(c model.MarkerCriteria) url.Values {
	params := url.Values{}
	if len(c.Sources) > 0 {
		sources := make([]string, 0, len(c.Sources))
		for _, s := range c.Sources {
			sources = append(sources, s.String())
		}
		params.Set("sources", strings.Join(sources, ","))
	}
	if c.Search != "" {
		params.Set("search", c.Search)
	}
	if c.StartDate != "" {
		params.Set("start_date", c.StartDate)
	}
	if c.EndDate != "" {
		params.Set("end_date", c.EndDate)
	}
	if len(c.Grades) > 0 {
		params.Set("grades", strings.Join(c.Grades, ","))
	}
	return params
}

// --- FOBI APIのレスポンスをパースするための構造体 ---

type markerRow struct {
	ID             json.RawMessage `json:"id"`
	Latitude       flexFloat       `json:"latitude"`
	Longitude      flexFloat       `json:"longitude"`
	Source         string          `json:"source"`
	CreatedAt      string          `json:"created_at"`
	ScientificName string          `json:"scientific_name"`
	CommonName     string          `json:"common_name"`
	Grade          string          `json:"grade"`
	MediaTypes     []string        `json:"media_types"`
	LocationName   string          `json:"location_name"`
	ObserverID     json.RawMessage `json:"observer_id"`
	TaxonID        json.RawMessage `json:"taxon_id"`
}

func (m markerRow) toPoint() model.Point {
	return model.Point{
		ID:        rawID(m.ID),
		Latitude:  float64(m.Latitude),
		Longitude: float64(m.Longitude),
		Source:    model.Source(strings.ToLower(m.Source)),
		CreatedAt: parseTimestamp(m.CreatedAt),
		Metadata: model.PointMetadata{
			ScientificName: m.ScientificName,
			CommonName:     m.CommonName,
			Grade:          m.Grade,
			MediaTypes:     m.MediaTypes,
			LocationName:   m.LocationName,
			ObserverID:     rawID(m.ObserverID),
			TaxonID:        rawID(m.TaxonID),
		},
	}
}

// flexFloat 数値・文字列どちらの座標も受け付ける。解釈できない値は NaN（後段で除外される）
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*f = flexFloat(math.NaN())
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*f = flexFloat(math.NaN())
		return nil
	}
	*f = flexFloat(v)
	return nil
}

// rawID 数値・文字列どちらのIDも文字列にする
func rawID(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str
	}
	return s
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTimestamp 解釈できない日時はゼロ値（日付条件だけが不成立になる）
func parseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
