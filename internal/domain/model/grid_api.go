package model

import (
	"time"

	geojson "github.com/paulmach/go.geojson"
)

// GridRequest POST /api/grid のリクエストボディ
type GridRequest struct {
	Viewport      Viewport         `json:"viewport"`
	Filter        FilterState      `json:"filter"`
	BoundingShape *geojson.Feature `json:"bounding_shape,omitempty"`
	Format        string           `json:"format,omitempty"`
}

// GridResponse 集計結果のレスポンス
type GridResponse struct {
	RequestID     string             `json:"request_id,omitempty"`
	GridType      GridType           `json:"grid_type"`
	GridTypeLabel string             `json:"grid_type_label"`
	CellSize      float64            `json:"cell_size"`
	Zoom          float64            `json:"zoom"`
	TotalPoints   int                `json:"total_points"`
	Cells         []GridCellResponse `json:"cells"`
	Stats         *Stats             `json:"stats,omitempty"`
}

// GridCellResponse 描画用のセル（観測点本体は含めない）
type GridCellResponse struct {
	Key            string        `json:"key"`
	Bounds         [2][2]float64 `json:"bounds"`
	Center         LatLng        `json:"center"`
	Count          int           `json:"count"`
	DominantSource Source        `json:"dominant_source"`
}

// NewGridResponse 集計結果からレスポンスを作る
func NewGridResponse(r *GridResult) *GridResponse {
	resp := &GridResponse{
		RequestID:     r.RequestID,
		GridType:      r.GridType,
		GridTypeLabel: GridTypeNameMap[r.GridType],
		CellSize:      r.CellSize,
		Zoom:          r.Viewport.Zoom,
		TotalPoints:   r.TotalCount(),
		Cells:         make([]GridCellResponse, 0, len(r.Cells)),
	}
	for _, c := range r.Cells {
		resp.Cells = append(resp.Cells, GridCellResponse{
			Key:            c.Key.String(),
			Bounds:         c.Bounds,
			Center:         c.Center,
			Count:          c.Count,
			DominantSource: c.DominantSource,
		})
	}
	return resp
}

// CreateSessionRequest POST /api/sessions のリクエストボディ
type CreateSessionRequest struct {
	Filter        FilterState      `json:"filter"`
	BoundingShape *geojson.Feature `json:"bounding_shape,omitempty"`
	Viewport      *Viewport        `json:"viewport,omitempty"`
}

// SessionResponse セッション作成のレスポンス
type SessionResponse struct {
	SessionID   string    `json:"session_id"`
	PointCount  int       `json:"point_count"`
	ExpiresAt   time.Time `json:"expires_at"`
	TrackerIdle bool      `json:"tracker_idle"`
}

// ViewportEvent 地図操作イベント（moveend / zoomend）
type ViewportEvent struct {
	Event string `json:"event" binding:"required"`
	Viewport
}

// RecordsPageResponse サイドバーの1ページ分
type RecordsPageResponse struct {
	CellKey      string              `json:"cell_key"`
	LocationName string              `json:"location_name,omitempty"`
	Records      []ObservationRecord `json:"records"`
	Loaded       int                 `json:"loaded"`
	Total        int                 `json:"total"`
	Failed       int                 `json:"failed"`
	HasMore      bool                `json:"has_more"`
}
