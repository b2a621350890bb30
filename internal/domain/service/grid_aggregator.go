package service

import (
	"math"
	"sort"

	"FOBI-Map/internal/domain/helper"
	"FOBI-Map/internal/domain/model"
)

// keyEpsilon 割り算の誤差でセル境界ちょうどの値が隣のセルに落ちないための補正
const keyEpsilon = 1e-9

// AggregateFunc 集計関数の型（ワーカーに差し替え可能な形で渡す）
type AggregateFunc func(points []model.Point, cellSize float64) []model.GridCell

// cellIndex floor(v/cellSize) を誤差補正込みで求める
func cellIndex(v, cellSize float64) int64 {
	return int64(math.Floor(v/cellSize + keyEpsilon))
}

// CellKeyFor 座標が属するセルのキー。経度は事前に正規化しておくこと
func CellKeyFor(lat, lng, cellSize float64) model.CellKey {
	latIdx := cellIndex(lat, cellSize)
	lngIdx := cellIndex(lng, cellSize)
	return model.CellKey{
		LatIndex: latIdx,
		LngIndex: lngIdx,
		Lat:      model.RoundDegree(float64(latIdx) * cellSize),
		Lng:      model.RoundDegree(float64(lngIdx) * cellSize),
	}
}

// Aggregate 観測点を緯度経度のグリッドセルにまとめる
// 状態を持たない純粋関数。無効な点は除外し、結果はキー順に並べる
func Aggregate(points []model.Point, cellSize float64) []model.GridCell {
	if math.IsNaN(cellSize) || math.IsInf(cellSize, 0) || cellSize <= 0 {
		return nil
	}

	groups := make(map[model.CellKey][]model.Point)
	var order []model.CellKey
	for _, p := range points {
		sp, ok := helper.SanitizePoint(p)
		if !ok {
			continue
		}
		key := CellKeyFor(sp.Latitude, sp.Longitude, cellSize)
		if _, exists := groups[key]; !exists {
			order = append(order, key)
		}
		groups[key] = append(groups[key], sp)
	}

	cells := make([]model.GridCell, 0, len(groups))
	for _, key := range order {
		members := groups[key]
		south := key.Lat
		west := key.Lng
		north := model.RoundDegree(float64(key.LatIndex+1) * cellSize)
		east := model.RoundDegree(float64(key.LngIndex+1) * cellSize)

		if !validCellBounds(south, west, north, east) {
			continue
		}

		cells = append(cells, model.GridCell{
			Key:    key,
			Bounds: [2][2]float64{{south, west}, {north, east}},
			Center: model.LatLng{
				Lat: model.RoundDegree((south + north) / 2),
				Lng: model.RoundDegree((west + east) / 2),
			},
			Count:          len(members),
			Points:         members,
			DominantSource: DominantSource(members),
		})
	}

	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Key.LatIndex != cells[j].Key.LatIndex {
			return cells[i].Key.LatIndex < cells[j].Key.LatIndex
		}
		return cells[i].Key.LngIndex < cells[j].Key.LngIndex
	})
	return cells
}

// DominantSource セルの代表ソース
// FOBI系のソースが1件でもあれば fobi、なければ最後に見たメンバーのソース
func DominantSource(members []model.Point) model.Source {
	var last model.Source
	for _, p := range members {
		if p.Source.IsFobi() {
			return model.SourceFobi
		}
		last = p.Source
	}
	return last
}

// validCellBounds 上流で検証済みでも NaN や範囲外のセルは出さない
func validCellBounds(south, west, north, east float64) bool {
	for _, v := range []float64{south, west, north, east} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	if south < -90 || south > 90 || west < -180 || west > 180 {
		return false
	}
	// 北端・東端はセル幅ぶんはみ出し得るため一辺までは許容する
	return north > south && east > west && north <= 90+(north-south) && east <= 180+(east-west)
}
