package handler

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	geojson "github.com/paulmach/go.geojson"

	"FOBI-Map/internal/domain/model"
	repoImpl "FOBI-Map/internal/repository"
)

const dateLayout = "2006-01-02"

// ValidationError はバリデーションエラーを表す
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// parseBBox "west,south,east,north" 形式の bbox を解析する
func parseBBox(bbox string) (model.Viewport, error) {
	if bbox == "" {
		return model.Viewport{}, &ValidationError{Field: "bbox", Message: "bboxは必須です (形式: west,south,east,north)"}
	}
	coords := strings.Split(bbox, ",")
	if len(coords) != 4 {
		return model.Viewport{}, &ValidationError{Field: "bbox", Message: "bboxには4つの値が必要です (west,south,east,north)"}
	}

	names := []string{"west", "south", "east", "north"}
	values := make([]float64, 4)
	for i, c := range coords {
		v, err := strconv.ParseFloat(strings.TrimSpace(c), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return model.Viewport{}, &ValidationError{Field: "bbox." + names[i], Message: "数値で指定してください"}
		}
		values[i] = v
	}
	return model.Viewport{West: values[0], South: values[1], East: values[2], North: values[3]}, nil
}

// parseZoom 未指定はエラー、数値でなければエラー（範囲外は後段で丸める）
func parseZoom(s string) (float64, error) {
	if s == "" {
		return 0, &ValidationError{Field: "zoom", Message: "zoomは必須です"}
	}
	z, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(z) {
		return 0, &ValidationError{Field: "zoom", Message: "zoomは数値で指定してください"}
	}
	return z, nil
}

// validateViewport 緯度経度の範囲チェック
func validateViewport(vp model.Viewport) error {
	if vp.South < -90 || vp.South > 90 || vp.North < -90 || vp.North > 90 {
		return &ValidationError{Field: "bbox", Message: "緯度は-90から90の範囲で指定してください"}
	}
	if vp.West < -180 || vp.West > 180 || vp.East < -180 || vp.East > 180 {
		return &ValidationError{Field: "bbox", Message: "経度は-180から180の範囲で指定してください"}
	}
	if vp.South > vp.North {
		return &ValidationError{Field: "bbox", Message: "southはnorth以下である必要があります"}
	}
	return nil
}

// parseFilterQuery クエリパラメータからフィルタ条件を組み立てる
func parseFilterQuery(c *gin.Context) (model.FilterState, error) {
	f := model.FilterState{
		Search:    strings.TrimSpace(c.Query("search")),
		Location:  strings.TrimSpace(c.Query("location")),
		MediaType: strings.TrimSpace(c.Query("media_type")),
		Grades:    splitList(c.Query("grades")),
	}
	for _, s := range splitList(c.Query("sources")) {
		f.DataSources = append(f.DataSources, model.Source(strings.ToLower(s)))
	}

	if v := c.Query("has_media"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, &ValidationError{Field: "has_media", Message: "true または false で指定してください"}
		}
		f.HasMedia = &b
	}

	if v := c.Query("start_date"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return f, &ValidationError{Field: "start_date", Message: "YYYY-MM-DD 形式で指定してください"}
		}
		f.DateRange.Start = &t
	}
	if v := c.Query("end_date"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return f, &ValidationError{Field: "end_date", Message: "YYYY-MM-DD 形式で指定してください"}
		}
		// 終了日はその日の終わりまで含める
		end := t.Add(24*time.Hour - time.Nanosecond)
		f.DateRange.End = &end
	}
	if f.DateRange.Start != nil && f.DateRange.End != nil && f.DateRange.Start.After(*f.DateRange.End) {
		return f, &ValidationError{Field: "date_range", Message: "start_dateはend_date以前である必要があります"}
	}
	return f, nil
}

// applyBoundingShape GeoJSON の範囲図形をフィルタ条件に取り込む
func applyBoundingShape(f *model.FilterState, feature *geojson.Feature) error {
	if feature == nil {
		return nil
	}
	shape, err := repoImpl.BoundingShapeFromFeature(feature)
	if err != nil {
		return &ValidationError{Field: "bounding_shape", Message: err.Error()}
	}
	f.BoundingShape = shape
	return nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
