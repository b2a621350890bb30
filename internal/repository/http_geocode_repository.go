package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"FOBI-Map/internal/domain/repository"
)

// HTTPGeocodeRepository Nominatim互換APIで逆ジオコーディングする実装
type HTTPGeocodeRepository struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPGeocodeRepository 新しい逆ジオコーディングリポジトリを作成
func NewHTTPGeocodeRepository(baseURL string) repository.GeocodeRepository {
	return &HTTPGeocodeRepository{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// ReverseGeocode 座標から「村/区, 市/県, 州」形式の地名を返す
func (r *HTTPGeocodeRepository) ReverseGeocode(ctx context.Context, lat, lng float64) (string, error) {
	params := url.Values{}
	params.Set("format", "json")
	params.Set("lat", fmt.Sprintf("%f", lat))
	params.Set("lon", fmt.Sprintf("%f", lng))
	params.Set("zoom", "14")
	params.Set("accept-language", "id")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/reverse?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("リクエストの作成に失敗: %w", err)
	}
	req.Header.Set("User-Agent", "FOBI-Map/1.0")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("逆ジオコーディングAPIリクエストに失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("逆ジオコーディングAPIからエラーステータスが返されました: %s", resp.Status)
	}

	var body reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("逆ジオコーディングJSONのパースに失敗: %w", err)
	}
	return body.name(), nil
}

// --- 逆ジオコーディングAPIのレスポンスをパースするための構造体 ---

type reverseResponse struct {
	DisplayName string         `json:"display_name"`
	Address     reverseAddress `json:"address"`
}

type reverseAddress struct {
	Village string `json:"village"`
	Suburb  string `json:"suburb"`
	Town    string `json:"town"`
	City    string `json:"city"`
	County  string `json:"county"`
	State   string `json:"state"`
}

func (r reverseResponse) name() string {
	var parts []string
	for _, p := range []string{
		firstNonEmpty(r.Address.Village, r.Address.Suburb),
		firstNonEmpty(r.Address.Town, r.Address.City, r.Address.County),
		r.Address.State,
	} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return r.DisplayName
	}
	return strings.Join(parts, ", ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
