package helper

import (
	"math"

	"FOBI-Map/internal/domain/model"
)

// IsValidCoordinate 緯度経度が有限値で範囲内か判定
func IsValidCoordinate(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// IsValidPoint 観測点の座標が有効か判定（副作用なし）
func IsValidPoint(p model.Point) bool {
	return IsValidCoordinate(p.Latitude, p.Longitude)
}

// NormalizeLongitude 経度を [-180, 180) に折り返す
func NormalizeLongitude(lng float64) float64 {
	if math.IsNaN(lng) || math.IsInf(lng, 0) {
		return lng
	}
	if lng >= -180 && lng < 180 {
		return lng
	}
	m := math.Mod(lng+180, 360)
	if m < 0 {
		m += 360
	}
	return m - 180
}

// SanitizePoint 経度を正規化してから検証する
// 取り込み時の共通判定で、無効な点は false を返して黙って捨てる
func SanitizePoint(p model.Point) (model.Point, bool) {
	p.Longitude = NormalizeLongitude(p.Longitude)
	if !IsValidPoint(p) {
		return p, false
	}
	return p, true
}

// SanitizePoints 無効な点を除き、経度を正規化した新しいスライスを返す
func SanitizePoints(points []model.Point) []model.Point {
	out := make([]model.Point, 0, len(points))
	for _, p := range points {
		if sp, ok := SanitizePoint(p); ok {
			out = append(out, sp)
		}
	}
	return out
}
