package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/apex/log"

	"FOBI-Map/internal/domain/helper"
	"FOBI-Map/internal/domain/repository"
)

// LocationNameTTL 地名キャッシュの有効期間
const LocationNameTTL = 24 * time.Hour

// LocationNameService セル中心などの座標から地名を引く（キャッシュ付き）
type LocationNameService struct {
	geocoder repository.GeocodeRepository
	cache    repository.CacheRepository
}

// NewLocationNameService 新しい地名解決サービスを作成。cache は nil でもよい
func NewLocationNameService(geocoder repository.GeocodeRepository, cache repository.CacheRepository) *LocationNameService {
	return &LocationNameService{geocoder: geocoder, cache: cache}
}

// LocationCacheKey 0.001度単位に丸めたキャッシュキー
func LocationCacheKey(lat, lng float64) string {
	return fmt.Sprintf("geocode:%.3f,%.3f", lat, lng)
}

// Resolve 地名を返す。取得できない場合は空文字（不正な座標のみエラー）
func (s *LocationNameService) Resolve(ctx context.Context, lat, lng float64) (string, error) {
	lng = helper.NormalizeLongitude(lng)
	if !helper.IsValidCoordinate(lat, lng) {
		return "", fmt.Errorf("座標が不正です: lat=%v lng=%v", lat, lng)
	}

	key := LocationCacheKey(lat, lng)
	if s.cache != nil {
		data, err := s.cache.Get(ctx, key)
		if err == nil {
			return string(data), nil
		}
		if !errors.Is(err, repository.ErrCacheMiss) {
			log.Warnf("⚠️ 地名キャッシュ読み込み失敗: %v", err)
		}
	}

	if s.geocoder == nil {
		return "", nil
	}
	name, err := s.geocoder.ReverseGeocode(ctx, lat, lng)
	if err != nil {
		log.Warnf("⚠️ 逆ジオコーディング失敗 (%s): %v", key, err)
		return "", nil
	}

	if s.cache != nil && name != "" {
		if err := s.cache.Set(ctx, key, []byte(name), LocationNameTTL); err != nil {
			log.Warnf("⚠️ 地名キャッシュ書き込み失敗: %v", err)
		}
	}
	return name, nil
}
