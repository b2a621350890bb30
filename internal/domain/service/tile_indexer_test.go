package service

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FOBI-Map/internal/domain/model"
)

func gridOfPoints(south, west, north, east, step float64) []model.Point {
	var pts []model.Point
	for lat := south; lat <= north; lat += step {
		for lng := west; lng <= east; lng += step {
			pts = append(pts, model.Point{
				ID:        fmt.Sprintf("%.3f_%.3f", lat, lng),
				Latitude:  lat,
				Longitude: lng,
				Source:    model.SourceBurungnesia,
			})
		}
	}
	return pts
}

func idsOf(points []model.Point) map[string]bool {
	ids := make(map[string]bool, len(points))
	for _, p := range points {
		ids[p.ID] = true
	}
	return ids
}

func TestTileKeyFor(t *testing.T) {
	assert.Equal(t, model.TileKey{Lng: 106, Lat: -7}, TileKeyFor(-6.2, 106.8))
	assert.Equal(t, model.TileKey{Lng: 0, Lat: 0}, TileKeyFor(0, 0))
	assert.Equal(t, model.TileKey{Lng: -180, Lat: 89}, TileKeyFor(89.5, -180))
}

func TestBuildTileIndex(t *testing.T) {
	pts := []model.Point{
		{ID: "a", Latitude: -6.2, Longitude: 106.8},
		{ID: "b", Latitude: -6.9, Longitude: 106.1},
		{ID: "c", Latitude: 1.3, Longitude: 103.8},
		{ID: "bad", Latitude: math.NaN(), Longitude: 10},
	}
	idx := BuildTileIndex(pts)

	assert.Equal(t, 3, idx.Len())
	assert.Len(t, idx[model.TileKey{Lng: 106, Lat: -7}], 2)
	assert.Len(t, idx[model.TileKey{Lng: 103, Lat: 1}], 1)
}

func TestVisiblePoints_取りこぼしがない(t *testing.T) {
	pts := gridOfPoints(-10, 100, -2, 112, 0.35)
	idx := BuildTileIndex(pts)

	viewports := []model.Viewport{
		{South: -6.5, North: -5.9, West: 106.55, East: 107.1, Zoom: 10},
		{South: -9.99, North: -2.01, West: 100.01, East: 111.99, Zoom: 5},
		{South: -7, North: -7, West: 105, East: 105, Zoom: 14},
		{South: -3.4, North: -3.3, West: 110.2, East: 110.25, Zoom: 14},
	}
	for _, vp := range viewports {
		visible := idsOf(idx.VisiblePoints(vp))
		for _, p := range pts {
			if vp.Contains(p.Latitude, p.Longitude) {
				assert.True(t, visible[p.ID], "表示範囲内の点 %s がタイル候補にない (vp=%+v)", p.ID, vp)
			}
		}
	}
}

func TestTilesForBounds_日付変更線をまたぐ(t *testing.T) {
	vp := model.Viewport{South: -1, North: 1, West: 170, East: -170, Zoom: 6}
	tiles := TilesForBounds(vp)

	has := func(lng, lat int) bool {
		for _, k := range tiles {
			if k.Lng == lng && k.Lat == lat {
				return true
			}
		}
		return false
	}
	assert.True(t, has(175, 0))
	assert.True(t, has(-175, 0))
	assert.False(t, has(0, 0))
}

func TestTilesForBounds_重複しない(t *testing.T) {
	vp := model.Viewport{South: 0, North: 0.5, West: 179.5, East: 179.2, Zoom: 3}
	tiles := TilesForBounds(vp)

	seen := make(map[model.TileKey]bool)
	for _, k := range tiles {
		require.False(t, seen[k], "タイル %s が重複している", k)
		seen[k] = true
	}
}

func TestPointsInViewport(t *testing.T) {
	pts := []model.Point{
		{ID: "in", Latitude: -6.2, Longitude: 106.8},
		{ID: "edge", Latitude: -6.0, Longitude: 107.0},
		{ID: "out", Latitude: -6.2, Longitude: 107.3},
		{ID: "bad", Latitude: 100, Longitude: 106.8},
	}
	vp := model.Viewport{South: -6.5, North: -6.0, West: 106.5, East: 107.0, Zoom: 10}

	got := idsOf(PointsInViewport(pts, vp))
	assert.Equal(t, map[string]bool{"in": true, "edge": true}, got)
}

func TestPointsInViewport_日付変更線(t *testing.T) {
	pts := []model.Point{
		{ID: "east", Latitude: 0, Longitude: 175},
		{ID: "west", Latitude: 0, Longitude: -175},
		{ID: "wrapped", Latitude: 0, Longitude: 185}, // -175 と同じ
		{ID: "far", Latitude: 0, Longitude: 0},
	}
	vp := model.Viewport{South: -5, North: 5, West: 170, East: -170, Zoom: 5}

	got := idsOf(PointsInViewport(pts, vp))
	assert.Equal(t, map[string]bool{"east": true, "west": true, "wrapped": true}, got)
}

func TestPointsInViewport_東端180の範囲(t *testing.T) {
	pts := []model.Point{
		{ID: "lng180", Latitude: 5, Longitude: 180}, // -180 に正規化される
		{ID: "lngMinus180", Latitude: 5, Longitude: -180},
		{ID: "inside", Latitude: 5, Longitude: 175},
		{ID: "outside", Latitude: 5, Longitude: 169},
	}

	t.Run("東端が180", func(t *testing.T) {
		vp := model.Viewport{South: 0, North: 10, West: 170, East: 180, Zoom: 5}
		got := idsOf(PointsInViewport(pts, vp))
		assert.Equal(t, map[string]bool{"lng180": true, "lngMinus180": true, "inside": true}, got)
	})

	t.Run("西端が-180", func(t *testing.T) {
		vp := model.Viewport{South: 0, North: 10, West: -180, East: -170, Zoom: 5}
		got := idsOf(PointsInViewport(pts, vp))
		assert.Equal(t, map[string]bool{"lng180": true, "lngMinus180": true}, got)
	})
}
