package model

import (
	"strings"
	"time"
)

// LatLng 緯度経度を表す基本的な型（セル中心などで使用）
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Source 観測データの出所（データセット）を表すタグ
type Source string

// IsFobi ソースがFOBI系（fobi, fobi_burungnesia, fobi_kupunesia）か判定
func (s Source) IsFobi() bool {
	return strings.Contains(strings.ToLower(string(s)), SourceFobi.String())
}

// String ソース名を文字列で返す
func (s Source) String() string {
	return string(s)
}

// IsKnown 定義済みのソースかどうか
func (s Source) IsKnown() bool {
	_, ok := SourceNameMap[s]
	return ok
}

// Point 観測マーカー（地図上の1観測点）
type Point struct {
	ID        string        `json:"id"`
	Latitude  float64       `json:"latitude"`
	Longitude float64       `json:"longitude"`
	Source    Source        `json:"source"`
	CreatedAt time.Time     `json:"created_at"`
	Metadata  PointMetadata `json:"metadata"`
}

// PointMetadata フィルタと統計で参照する任意属性
// どのフィールドも空になり得る（空は「不明」として扱い、エラーにはしない）
type PointMetadata struct {
	ScientificName string   `json:"scientific_name,omitempty"`
	CommonName     string   `json:"common_name,omitempty"`
	Grade          string   `json:"grade,omitempty"`
	MediaTypes     []string `json:"media_types,omitempty"`
	LocationName   string   `json:"location_name,omitempty"`
	ObserverID     string   `json:"observer_id,omitempty"`
	TaxonID        string   `json:"taxon_id,omitempty"`
}

// DisplayName 表示名（和名・一般名があればそちらを優先）
func (p *Point) DisplayName() string {
	if p.Metadata.CommonName != "" {
		return p.Metadata.CommonName
	}
	return p.Metadata.ScientificName
}

// HasMedia 写真・音声などのメディアが添付されているか
func (p *Point) HasMedia() bool {
	return len(p.Metadata.MediaTypes) > 0
}

// ToLatLng マーカーの位置をLatLng型に変換
func (p *Point) ToLatLng() LatLng {
	return LatLng{Lat: p.Latitude, Lng: p.Longitude}
}
