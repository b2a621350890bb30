package repository

import (
	"fmt"

	geojson "github.com/paulmach/go.geojson"
	"github.com/paulmach/orb"
	orbjson "github.com/paulmach/orb/geojson"

	"FOBI-Map/internal/domain/model"
)

// ViewportToBound model.Viewport を orb.Bound に変換（日付変更線をまたぐ場合は東側を +360 する）
func ViewportToBound(vp model.Viewport) orb.Bound {
	east := vp.East
	if vp.CrossesAntimeridian() {
		east += 360
	}
	return orb.Bound{
		Min: orb.Point{vp.West, vp.South},
		Max: orb.Point{east, vp.North},
	}
}

// CellToPolygon セルの範囲を閉じたポリゴンにする
func CellToPolygon(cell model.GridCell) orb.Polygon {
	south, west := cell.Bounds[0][0], cell.Bounds[0][1]
	north, east := cell.Bounds[1][0], cell.Bounds[1][1]
	return orb.Polygon{
		orb.Ring{
			{west, south}, // 左下
			{east, south}, // 右下
			{east, north}, // 右上
			{west, north}, // 左上
			{west, south}, // 閉じる
		},
	}
}

// CellsToFeatureCollection 集計結果を地図描画用の GeoJSON に変換
func CellsToFeatureCollection(cells []model.GridCell) *orbjson.FeatureCollection {
	fc := orbjson.NewFeatureCollection()
	for _, cell := range cells {
		f := orbjson.NewFeature(CellToPolygon(cell))
		f.ID = cell.Key.String()
		f.Properties["key"] = cell.Key.String()
		f.Properties["count"] = cell.Count
		f.Properties["dominant_source"] = cell.DominantSource.String()
		f.Properties["center"] = []float64{cell.Center.Lng, cell.Center.Lat}
		fc.Append(f)
	}
	return fc
}

// BoundingShapeFromFeature ユーザーが描いた GeoJSON から絞り込み範囲を作る
// Polygon はそのまま、Point は properties.radius_km を持つ円として扱う
func BoundingShapeFromFeature(f *geojson.Feature) (*model.BoundingShape, error) {
	if f == nil || f.Geometry == nil {
		return nil, fmt.Errorf("範囲図形のジオメトリがありません")
	}

	switch {
	case f.Geometry.IsPolygon():
		if len(f.Geometry.Polygon) == 0 {
			return nil, fmt.Errorf("ポリゴンの座標がありません")
		}
		poly := make(orb.Polygon, 0, len(f.Geometry.Polygon))
		for _, ring := range f.Geometry.Polygon {
			if len(ring) < 4 {
				return nil, fmt.Errorf("ポリゴンのリングには4点以上が必要です")
			}
			r := make(orb.Ring, 0, len(ring))
			for _, c := range ring {
				if len(c) < 2 {
					return nil, fmt.Errorf("座標の形式が不正です")
				}
				r = append(r, orb.Point{c[0], c[1]})
			}
			if !r.Closed() {
				return nil, fmt.Errorf("ポリゴンのリングが閉じていません")
			}
			poly = append(poly, r)
		}
		return &model.BoundingShape{Type: model.ShapePolygon, Polygon: poly}, nil

	case f.Geometry.IsPoint():
		if len(f.Geometry.Point) < 2 {
			return nil, fmt.Errorf("円の中心座標が不正です")
		}
		radius, err := f.PropertyFloat64("radius_km")
		if err != nil {
			return nil, fmt.Errorf("円の半径(radius_km)がありません: %w", err)
		}
		if radius < 0 {
			return nil, fmt.Errorf("円の半径は0以上である必要があります")
		}
		return &model.BoundingShape{
			Type:     model.ShapeCircle,
			Center:   orb.Point{f.Geometry.Point[0], f.Geometry.Point[1]},
			RadiusKm: radius,
		}, nil

	default:
		return nil, fmt.Errorf("未対応のジオメトリ種別です: %s", f.Geometry.Type)
	}
}
