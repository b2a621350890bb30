package service

import (
	"strings"

	"github.com/golang/geo/s2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"FOBI-Map/internal/domain/helper"
	"FOBI-Map/internal/domain/model"
)

// EarthRadiusKm 円範囲の判定に使う地球半径
const EarthRadiusKm = 6371.0088

// FilterEngine 観測点をフィルタ条件で絞り込む
type FilterEngine struct{}

// NewFilterEngine 新しいフィルタエンジンを作成
func NewFilterEngine() *FilterEngine {
	return &FilterEngine{}
}

// Filter すべての条件を満たす観測点だけを返す（AND条件）
// 空の条件は素通しし、点側の属性が欠けている場合はその属性を使う条件だけが不成立になる
func (f *FilterEngine) Filter(points []model.Point, state model.FilterState) []model.Point {
	out := make([]model.Point, 0, len(points))
	if state.IsEmpty() {
		return append(out, helper.SanitizePoints(points)...)
	}

	c := newCompiledFilter(state)
	for _, p := range points {
		sp, ok := helper.SanitizePoint(p)
		if !ok {
			continue
		}
		if c.match(&sp) {
			out = append(out, sp)
		}
	}
	return out
}

// compiledFilter 比較用に前処理したフィルタ条件
type compiledFilter struct {
	state    model.FilterState
	search   string
	location string
	grades   map[string]struct{}
	sources  map[model.Source]struct{}
	media    string
}

func newCompiledFilter(state model.FilterState) *compiledFilter {
	c := &compiledFilter{
		state:    state,
		search:   strings.ToLower(strings.TrimSpace(state.Search)),
		location: strings.ToLower(strings.TrimSpace(state.Location)),
		media:    strings.ToLower(strings.TrimSpace(state.MediaType)),
	}
	if len(state.Grades) > 0 {
		c.grades = make(map[string]struct{}, len(state.Grades))
		for _, g := range state.Grades {
			c.grades[strings.ToLower(strings.TrimSpace(g))] = struct{}{}
		}
	}
	if len(state.DataSources) > 0 {
		c.sources = make(map[model.Source]struct{}, len(state.DataSources))
		for _, s := range state.DataSources {
			c.sources[s] = struct{}{}
		}
	}
	return c
}

func (c *compiledFilter) match(p *model.Point) bool {
	return c.matchDate(p) &&
		c.matchSource(p) &&
		c.matchMedia(p) &&
		c.matchGrade(p) &&
		c.matchSearch(p) &&
		c.matchLocation(p) &&
		c.matchShape(p)
}

func (c *compiledFilter) matchDate(p *model.Point) bool {
	dr := c.state.DateRange
	if dr.IsEmpty() {
		return true
	}
	if p.CreatedAt.IsZero() {
		return false
	}
	if dr.Start != nil && p.CreatedAt.Before(*dr.Start) {
		return false
	}
	if dr.End != nil && p.CreatedAt.After(*dr.End) {
		return false
	}
	return true
}

func (c *compiledFilter) matchSource(p *model.Point) bool {
	if c.sources == nil {
		return true
	}
	_, ok := c.sources[p.Source]
	return ok
}

func (c *compiledFilter) matchMedia(p *model.Point) bool {
	if c.state.HasMedia != nil && *c.state.HasMedia != p.HasMedia() {
		return false
	}
	if c.media == "" {
		return true
	}
	for _, m := range p.Metadata.MediaTypes {
		if strings.ToLower(m) == c.media {
			return true
		}
	}
	return false
}

func (c *compiledFilter) matchGrade(p *model.Point) bool {
	if c.grades == nil {
		return true
	}
	if p.Metadata.Grade == "" {
		return false
	}
	_, ok := c.grades[strings.ToLower(p.Metadata.Grade)]
	return ok
}

func (c *compiledFilter) matchSearch(p *model.Point) bool {
	if c.search == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Metadata.ScientificName), c.search) ||
		strings.Contains(strings.ToLower(p.Metadata.CommonName), c.search)
}

func (c *compiledFilter) matchLocation(p *model.Point) bool {
	if c.location == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Metadata.LocationName), c.location)
}

func (c *compiledFilter) matchShape(p *model.Point) bool {
	shape := c.state.BoundingShape
	if shape == nil {
		return true
	}
	switch shape.Type {
	case model.ShapePolygon:
		if len(shape.Polygon) == 0 {
			return true
		}
		return planar.PolygonContains(shape.Polygon, orb.Point{p.Longitude, p.Latitude})
	case model.ShapeCircle:
		if shape.RadiusKm < 0 {
			return false
		}
		return DistanceKm(shape.Center.Lat(), shape.Center.Lon(), p.Latitude, p.Longitude) <= shape.RadiusKm
	default:
		return true
	}
}

// DistanceKm 2点間の大円距離（km）
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	a := s2.LatLngFromDegrees(lat1, lng1)
	b := s2.LatLngFromDegrees(lat2, lng2)
	return a.Distance(b).Radians() * EarthRadiusKm
}
