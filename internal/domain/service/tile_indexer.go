package service

import (
	"math"

	"FOBI-Map/internal/domain/helper"
	"FOBI-Map/internal/domain/model"
)

// TileSize タイルの一辺（度）。ズームに依存しない固定値
const TileSize = 1.0

// maxTilesPerAxis 1軸あたりのタイル列挙上限（全球）
const maxTilesPerAxis = 360

// TileIndex 1度タイルごとに観測点をまとめた事前フィルタ用インデックス
// 集計のたびに作り直す（呼び出しをまたいでキャッシュしない）
type TileIndex map[model.TileKey][]model.Point

// TileKeyFor 座標が属するタイル
func TileKeyFor(lat, lng float64) model.TileKey {
	return model.TileKey{
		Lng: int(math.Floor(lng / TileSize)),
		Lat: int(math.Floor(lat / TileSize)),
	}
}

// BuildTileIndex 観測点をタイルに振り分ける。無効な点は入れない
func BuildTileIndex(points []model.Point) TileIndex {
	idx := make(TileIndex)
	for _, p := range points {
		sp, ok := helper.SanitizePoint(p)
		if !ok {
			continue
		}
		key := TileKeyFor(sp.Latitude, sp.Longitude)
		idx[key] = append(idx[key], sp)
	}
	return idx
}

// TilesForBounds 表示範囲と一部でも重なるタイルを列挙する
// 境界付近の余分なタイルは許容し、取りこぼしは出さない
func TilesForBounds(vp model.Viewport) []model.TileKey {
	if math.IsNaN(vp.South) || math.IsNaN(vp.North) || math.IsNaN(vp.West) || math.IsNaN(vp.East) {
		return nil
	}
	south := math.Max(-90, math.Min(vp.South, vp.North))
	north := math.Min(90, math.Max(vp.South, vp.North))
	minLat := int(math.Floor(south / TileSize))
	maxLat := int(math.Ceil(north / TileSize))

	var lngRanges [][2]int
	west := helper.NormalizeLongitude(vp.West)
	east := helper.NormalizeLongitude(vp.East)
	if vp.East-vp.West >= 360 {
		lngRanges = [][2]int{{-180, 179}}
	} else if vp.CrossesAntimeridian() || west > east {
		lngRanges = [][2]int{
			{int(math.Floor(west / TileSize)), 179},
			{-180, int(math.Ceil(east / TileSize))},
		}
	} else {
		lngRanges = [][2]int{{int(math.Floor(west / TileSize)), int(math.Ceil(east / TileSize))}}
	}

	var keys []model.TileKey
	seen := make(map[model.TileKey]struct{})
	for _, r := range lngRanges {
		from, to := r[0], r[1]
		if to-from >= maxTilesPerAxis {
			from, to = -180, 179
		}
		for x := from; x <= to; x++ {
			for y := minLat; y <= maxLat; y++ {
				key := model.TileKey{Lng: x, Lat: y}
				// 日付変更線をまたぐ範囲どうしが重なっても同じタイルは1回だけ
				if _, ok := seen[key]; ok {
					continue
				}
				seen[key] = struct{}{}
				keys = append(keys, key)
			}
		}
	}
	return keys
}

// VisiblePoints 表示範囲に重なるタイルの観測点を連結して返す（スーパーセット）
func (idx TileIndex) VisiblePoints(vp model.Viewport) []model.Point {
	var out []model.Point
	for _, key := range TilesForBounds(vp) {
		if pts, ok := idx[key]; ok {
			out = append(out, pts...)
		}
	}
	return out
}

// Len インデックスに含まれる観測点の総数
func (idx TileIndex) Len() int {
	n := 0
	for _, pts := range idx {
		n += len(pts)
	}
	return n
}

// PointsInViewport タイルで事前に絞り込んだ上で表示範囲の厳密判定を行う
func PointsInViewport(points []model.Point, vp model.Viewport) []model.Point {
	candidates := BuildTileIndex(points).VisiblePoints(vp)
	out := make([]model.Point, 0, len(candidates))
	for _, p := range candidates {
		if vp.Contains(p.Latitude, p.Longitude) {
			out = append(out, p)
		}
	}
	return out
}
