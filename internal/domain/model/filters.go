package model

import (
	"time"

	"github.com/paulmach/orb"
)

// FilterState ユーザー操作のたびに組み立て直すフィルタ条件（値オブジェクト）
type FilterState struct {
	Search        string         `json:"search,omitempty"`
	Location      string         `json:"location,omitempty"`
	DateRange     DateRange      `json:"date_range"`
	Grades        []string       `json:"grades,omitempty"`
	HasMedia      *bool          `json:"has_media,omitempty"`
	MediaType     string         `json:"media_type,omitempty"`
	DataSources   []Source       `json:"data_sources,omitempty"`
	BoundingShape *BoundingShape `json:"-"`
}

// IsEmpty どの条件も設定されていないか
func (f *FilterState) IsEmpty() bool {
	return f.Search == "" &&
		f.Location == "" &&
		f.DateRange.IsEmpty() &&
		len(f.Grades) == 0 &&
		f.HasMedia == nil &&
		f.MediaType == "" &&
		len(f.DataSources) == 0 &&
		f.BoundingShape == nil
}

// DateRange 観測日の範囲（両端を含む）
type DateRange struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// IsEmpty 開始・終了ともに未設定か
func (d DateRange) IsEmpty() bool {
	return d.Start == nil && d.End == nil
}

// BoundingShape ユーザーが描いたポリゴンまたは円
type BoundingShape struct {
	Type     string      `json:"type"`
	Polygon  orb.Polygon `json:"-"`
	Center   orb.Point   `json:"-"`
	RadiusKm float64     `json:"radius_km,omitempty"`
}

// MarkerCriteria マーカー取得APIに渡す検索条件
type MarkerCriteria struct {
	Sources   []Source `json:"sources,omitempty"`
	Search    string   `json:"search,omitempty"`
	StartDate string   `json:"start_date,omitempty"`
	EndDate   string   `json:"end_date,omitempty"`
	Grades    []string `json:"grades,omitempty"`
}

// CriteriaFromFilter フィルタ条件のうちサーバー側で絞れる部分を取り出す
func CriteriaFromFilter(f FilterState) MarkerCriteria {
	c := MarkerCriteria{
		Sources: f.DataSources,
		Search:  f.Search,
		Grades:  f.Grades,
	}
	if f.DateRange.Start != nil {
		c.StartDate = f.DateRange.Start.Format("2006-01-02")
	}
	if f.DateRange.End != nil {
		c.EndDate = f.DateRange.End.Format("2006-01-02")
	}
	return c
}
