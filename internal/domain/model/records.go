package model

import "time"

// ObservationRecord サイドバーに表示する観測の詳細
type ObservationRecord struct {
	ID             string    `json:"id"`
	Source         Source    `json:"source"`
	ScientificName string    `json:"scientific_name"`
	CommonName     string    `json:"common_name,omitempty"`
	Grade          string    `json:"grade,omitempty"`
	ObserverName   string    `json:"observer_name,omitempty"`
	MediaURLs      []string  `json:"media_urls,omitempty"`
	ObservedAt     time.Time `json:"observed_at"`
	LocationName   string    `json:"location_name,omitempty"`
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
}

// Stats 絞り込み後の観測点から求める統計
type Stats struct {
	CountsBySource    map[Source]int `json:"counts_by_source"`
	TotalObservations int            `json:"total_observations"`
	TotalSpecies      int            `json:"total_species"`
	TotalContributors int            `json:"total_contributors"`
}

// GridResult 1回の集計パスの結果
type GridResult struct {
	RequestID string     `json:"request_id"`
	Sequence  uint64     `json:"sequence"`
	Viewport  Viewport   `json:"viewport"`
	GridType  GridType   `json:"grid_type"`
	CellSize  float64    `json:"cell_size"`
	Cells     []GridCell `json:"cells"`
	Signature string     `json:"signature"`
	CreatedAt time.Time  `json:"created_at"`
}

// FindCell キー文字列でセルを探す
func (r *GridResult) FindCell(key string) (*GridCell, bool) {
	if r == nil {
		return nil, false
	}
	for i := range r.Cells {
		if r.Cells[i].Key.String() == key {
			return &r.Cells[i], true
		}
	}
	return nil, false
}

// TotalCount 全セルの観測数合計
func (r *GridResult) TotalCount() int {
	if r == nil {
		return 0
	}
	total := 0
	for _, c := range r.Cells {
		total += c.Count
	}
	return total
}
