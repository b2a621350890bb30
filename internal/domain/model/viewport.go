package model

import (
	"fmt"
	"math"
)

// Viewport 地図の表示範囲とズーム
// West > East の場合は日付変更線をまたぐ表示範囲として扱う
type Viewport struct {
	South float64 `json:"south"`
	North float64 `json:"north"`
	West  float64 `json:"west"`
	East  float64 `json:"east"`
	Zoom  float64 `json:"zoom"`
}

// CrossesAntimeridian 日付変更線をまたぐか
func (v Viewport) CrossesAntimeridian() bool {
	return v.West > v.East
}

// Contains 表示範囲に座標が含まれるか（境界を含む）
func (v Viewport) Contains(lat, lng float64) bool {
	if lat < v.South || lat > v.North {
		return false
	}
	if v.CrossesAntimeridian() {
		return lng >= v.West || lng <= v.East
	}
	if lng >= v.West && lng <= v.East {
		return true
	}
	// 経度は [-180,180) に正規化されるので、東端180の範囲では -180 も東端上の点
	return v.East >= 180 && lng == -180
}

// BBoxString 重複計算の判定に使う正規化済みの境界ボックス文字列 (west,south,east,north)
func (v Viewport) BBoxString() string {
	return fmt.Sprintf("%.6f,%.6f,%.6f,%.6f", v.West, v.South, v.East, v.North)
}

// IsValid 表示範囲として成立しているか
func (v Viewport) IsValid() bool {
	for _, f := range []float64{v.South, v.North, v.West, v.East, v.Zoom} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	if v.South > v.North {
		return false
	}
	if v.South < -90 || v.North > 90 {
		return false
	}
	return v.West >= -180 && v.West <= 180 && v.East >= -180 && v.East <= 180
}
