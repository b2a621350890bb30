package service

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FOBI-Map/internal/domain/model"
)

func randomPoints(n int, seed int64) []model.Point {
	r := rand.New(rand.NewSource(seed))
	sources := []model.Source{
		model.SourceBurungnesia, model.SourceKupunesia, model.SourceFobi,
		model.SourceFobiBurungnesia, model.SourceFobiKupunesia, model.SourceTaxa,
	}
	pts := make([]model.Point, 0, n)
	for i := 0; i < n; i++ {
		pts = append(pts, model.Point{
			ID:        string(rune('a'+i%26)) + string(rune('a'+(i/26)%26)),
			Latitude:  -11 + r.Float64()*17,  // -11 .. 6
			Longitude: 95 + r.Float64()*46.3, // 95 .. 141.3
			Source:    sources[r.Intn(len(sources))],
		})
	}
	return pts
}

func TestAggregate_エンドツーエンドの例(t *testing.T) {
	// ズーム6（0.2度）で2点が同じセル -6.4_106.8 に入る
	pts := []model.Point{
		{ID: "1", Latitude: -6.25, Longitude: 106.85, Source: model.SourceFobi},
		{ID: "2", Latitude: -6.21, Longitude: 106.81, Source: model.SourceBurungnesia},
	}
	cells := Aggregate(pts, CellSizeForZoom(6))

	require.Len(t, cells, 1)
	cell := cells[0]
	assert.Equal(t, "-6.4_106.8", cell.Key.String())
	assert.Equal(t, 2, cell.Count)
	assert.Equal(t, model.SourceFobi, cell.DominantSource)
	assert.InDelta(t, -6.4, cell.Bounds[0][0], 1e-9)
	assert.InDelta(t, 106.8, cell.Bounds[0][1], 1e-9)
	assert.InDelta(t, -6.2, cell.Bounds[1][0], 1e-9)
	assert.InDelta(t, 107.0, cell.Bounds[1][1], 1e-9)
	assert.InDelta(t, -6.3, cell.Center.Lat, 1e-9)
	assert.InDelta(t, 106.9, cell.Center.Lng, 1e-9)
	assert.ElementsMatch(t, []string{"1", "2"}, cell.PointIDs())
}

func TestAggregate_境界上の点を含む3点の例(t *testing.T) {
	// -6.2 は floor の規則どおり -6.2 のセルに入るため、-6.21 とは別のセルになる
	pts := []model.Point{
		{ID: "1", Latitude: -6.2, Longitude: 106.8, Source: model.SourceFobi},
		{ID: "2", Latitude: -6.21, Longitude: 106.81, Source: model.SourceBurungnesia},
		{ID: "3", Latitude: 10.0, Longitude: 20.0, Source: model.SourceKupunesia},
	}
	cells := Aggregate(pts, CellSizeForZoom(6))

	require.Len(t, cells, 3)
	byKey := make(map[string]model.GridCell, len(cells))
	for _, c := range cells {
		byKey[c.Key.String()] = c
	}

	require.Contains(t, byKey, "-6.2_106.8")
	assert.Equal(t, 1, byKey["-6.2_106.8"].Count)
	assert.Equal(t, model.SourceFobi, byKey["-6.2_106.8"].DominantSource)

	require.Contains(t, byKey, "-6.4_106.8")
	assert.Equal(t, 1, byKey["-6.4_106.8"].Count)
	assert.Equal(t, model.SourceBurungnesia, byKey["-6.4_106.8"].DominantSource)

	require.Contains(t, byKey, "10_20")
	assert.Equal(t, 1, byKey["10_20"].Count)
	assert.Equal(t, model.SourceKupunesia, byKey["10_20"].DominantSource)
	kupunesiaCell := byKey["10_20"]
	assert.Equal(t, []string{"3"}, kupunesiaCell.PointIDs())
}

func TestAggregate_セル境界上の点は北側のセル(t *testing.T) {
	// -6.2 はちょうど境界なので floor(-6.2/0.2) = -31 のセル
	pts := []model.Point{
		{ID: "boundary", Latitude: -6.2, Longitude: 106.8, Source: model.SourceFobi},
		{ID: "inside", Latitude: -6.21, Longitude: 106.81, Source: model.SourceBurungnesia},
	}
	cells := Aggregate(pts, 0.2)

	require.Len(t, cells, 2)
	keys := []string{cells[0].Key.String(), cells[1].Key.String()}
	assert.ElementsMatch(t, []string{"-6.2_106.8", "-6.4_106.8"}, keys)
}

func TestAggregate_不変条件(t *testing.T) {
	pts := randomPoints(2000, 42)
	pts = append(pts,
		model.Point{ID: "nan", Latitude: math.NaN(), Longitude: 100},
		model.Point{ID: "lat95", Latitude: 95, Longitude: 100},
		model.Point{ID: "inf", Latitude: 0, Longitude: math.Inf(-1)},
	)

	for _, zoom := range []float64{3, 5, 6, 7, 8, 9, 10, 12, 14} {
		cellSize := CellSizeForZoom(zoom)
		cells := Aggregate(pts, cellSize)

		total := 0
		seen := make(map[string]bool)
		for _, cell := range cells {
			assert.Greater(t, cell.Count, 0)
			assert.Equal(t, len(cell.Points), cell.Count)
			assert.False(t, seen[cell.Key.String()], "セルキーが重複: %s", cell.Key)
			seen[cell.Key.String()] = true
			for _, p := range cell.Points {
				assert.True(t, cell.Contains(p.Latitude, p.Longitude),
					"点 %s (%v,%v) がセル %s の範囲外", p.ID, p.Latitude, p.Longitude, cell.Key)
			}
			total += cell.Count
		}
		assert.Equal(t, 2000, total, "zoom=%v", zoom)
	}
}

func TestAggregate_決定的(t *testing.T) {
	pts := randomPoints(500, 7)
	a := Aggregate(pts, 0.1)
	b := Aggregate(pts, 0.1)
	assert.Equal(t, a, b)
}

func TestAggregate_経度181は経度マイナス179と同じセル(t *testing.T) {
	a := Aggregate([]model.Point{{ID: "x", Latitude: 10, Longitude: 181}}, 0.5)
	b := Aggregate([]model.Point{{ID: "x", Latitude: 10, Longitude: -179}}, 0.5)
	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.Equal(t, b[0].Key, a[0].Key)
}

func TestAggregate_空入力と不正なセルサイズ(t *testing.T) {
	assert.Empty(t, Aggregate(nil, 0.2))
	assert.Nil(t, Aggregate(randomPoints(10, 1), 0))
	assert.Nil(t, Aggregate(randomPoints(10, 1), -1))
	assert.Nil(t, Aggregate(randomPoints(10, 1), math.NaN()))
}

func TestDominantSource(t *testing.T) {
	t.Run("FOBI系が1件でもあればfobi", func(t *testing.T) {
		members := []model.Point{
			{Source: model.SourceBurungnesia},
			{Source: model.SourceFobiKupunesia},
			{Source: model.SourceKupunesia},
		}
		assert.Equal(t, model.SourceFobi, DominantSource(members))
	})

	t.Run("FOBI系がなければ最後のメンバーのソース", func(t *testing.T) {
		members := []model.Point{
			{Source: model.SourceBurungnesia},
			{Source: model.SourceKupunesia},
		}
		assert.Equal(t, model.SourceKupunesia, DominantSource(members))
	})
}
