package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// GridType ズーム段階に対応するグリッドの名前
type GridType string

// GridCell 集計セル（集計のたびに作り直され、永続化されない）
type GridCell struct {
	Key            CellKey       `json:"key"`
	Bounds         [2][2]float64 `json:"bounds"` // [[south, west], [north, east]]
	Center         LatLng        `json:"center"`
	Count          int           `json:"count"`
	Points         []Point       `json:"points,omitempty"`
	DominantSource Source        `json:"dominant_source"`
}

// PointIDs セルに含まれる観測IDの一覧
func (c *GridCell) PointIDs() []string {
	ids := make([]string, 0, len(c.Points))
	for _, p := range c.Points {
		ids = append(ids, p.ID)
	}
	return ids
}

// Contains セルの範囲に座標が含まれるか（境界を含む）
func (c *GridCell) Contains(lat, lng float64) bool {
	return lat >= c.Bounds[0][0] && lat <= c.Bounds[1][0] &&
		lng >= c.Bounds[0][1] && lng <= c.Bounds[1][1]
}

// CellKey セルの識別子（floor(lat/cellSize), floor(lng/cellSize) のインデックス）
type CellKey struct {
	LatIndex int64   `json:"lat_index"`
	LngIndex int64   `json:"lng_index"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
}

// String "<lat>_<lng>" 形式のキー文字列
func (k CellKey) String() string {
	return FormatDegree(k.Lat) + "_" + FormatDegree(k.Lng)
}

// ParseCellKey "<lat>_<lng>" 形式のキー文字列を緯度経度に分解
func ParseCellKey(s string) (lat, lng float64, err error) {
	parts := strings.Split(s, "_")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("セルキーの形式が不正です: %s", s)
	}
	lat, err = strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("セルキーの緯度が不正です: %w", err)
	}
	lng, err = strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("セルキーの経度が不正です: %w", err)
	}
	return lat, lng, nil
}

// TileKey 1度四方の空間インデックスタイル
type TileKey struct {
	Lng int `json:"lng"`
	Lat int `json:"lat"`
}

// String "<lng>:<lat>" 形式
func (t TileKey) String() string {
	return strconv.Itoa(t.Lng) + ":" + strconv.Itoa(t.Lat)
}

// RoundDegree 浮動小数点の誤差を落とすため小数9桁に丸める
func RoundDegree(v float64) float64 {
	return math.Round(v*1e9) / 1e9
}

// FormatDegree 度数を最短表記の文字列にする
func FormatDegree(v float64) string {
	return strconv.FormatFloat(RoundDegree(v), 'f', -1, 64)
}
