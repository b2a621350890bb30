package service

import (
	"math"

	"FOBI-Map/internal/domain/model"
)

const (
	minZoom = 0.0
	maxZoom = 22.0
)

// gridBreakpoint ズームの下限とセルの一辺（度）
type gridBreakpoint struct {
	minZoom  float64
	cellSize float64
	gridType model.GridType
}

// gridBreakpoints ズームの大きい順。セルサイズはズームに対して単調非増加
var gridBreakpoints = []gridBreakpoint{
	{14, 0.005, model.GridTypeTiny},
	{12, 0.01, model.GridTypeVerySmall},
	{10, 0.02, model.GridTypeSmall},
	{9, 0.05, model.GridTypeMediumSmall},
	{8, 0.1, model.GridTypeMedium},
	{7, 0.15, model.GridTypeMediumLarge},
	{6, 0.2, model.GridTypeLarge},
	{5, 0.3, model.GridTypeVeryLarge},
	{math.Inf(-1), 0.5, model.GridTypeExtremelyLarge},
}

// ClampZoom ズームを [0, 22] に収める。NaN は 0 とみなす
func ClampZoom(zoom float64) float64 {
	if math.IsNaN(zoom) {
		return minZoom
	}
	return math.Max(minZoom, math.Min(maxZoom, zoom))
}

func breakpointForZoom(zoom float64) gridBreakpoint {
	z := ClampZoom(zoom)
	for _, bp := range gridBreakpoints {
		if z >= bp.minZoom {
			return bp
		}
	}
	return gridBreakpoints[len(gridBreakpoints)-1]
}

// CellSizeForZoom ズームからグリッドセルの一辺（度）を求める
func CellSizeForZoom(zoom float64) float64 {
	return breakpointForZoom(zoom).cellSize
}

// GridTypeForZoom ズームをグリッド種別に分類する（グリッドサイズ表示用）
func GridTypeForZoom(zoom float64) model.GridType {
	return breakpointForZoom(zoom).gridType
}

// CellSizeForGridType グリッド種別からセルサイズを引く。未知の種別は最大セル
func CellSizeForGridType(gt model.GridType) float64 {
	for _, bp := range gridBreakpoints {
		if bp.gridType == gt {
			return bp.cellSize
		}
	}
	return gridBreakpoints[len(gridBreakpoints)-1].cellSize
}
