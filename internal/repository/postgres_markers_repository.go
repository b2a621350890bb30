package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/lib/pq"

	"FOBI-Map/internal/domain/model"
	"FOBI-Map/internal/domain/repository"
	"FOBI-Map/internal/infrastructure/database"
	"FOBI-Map/internal/metrics"
)

const markerColumns = `id, latitude, longitude, source, created_at, scientific_name, common_name, grade, media_types, location_name, observer_id, taxon_id`

type PostgresMarkersRepository struct {
	client *database.PostgreSQLClient
}

func NewPostgresMarkersRepository(client *database.PostgreSQLClient) repository.MarkersRepository {
	return &PostgresMarkersRepository{
		client: client,
	}
}

// markerResult observations テーブルの1行を受け取るための構造体
type markerResult struct {
	ID             string
	Latitude       sql.NullFloat64
	Longitude      sql.NullFloat64
	Source         string
	CreatedAt      sql.NullTime
	ScientificName sql.NullString
	CommonName     sql.NullString
	Grade          sql.NullString
	MediaTypes     sql.NullString
	LocationName   sql.NullString
	ObserverID     sql.NullString
	TaxonID        sql.NullString
}

// ToPoint markerResult を model.Point に変換。座標が NULL の行は NaN にして後段で除外させる
func (mr *markerResult) ToPoint() model.Point {
	p := model.Point{
		ID:        mr.ID,
		Latitude:  math.NaN(),
		Longitude: math.NaN(),
		Source:    model.Source(strings.ToLower(mr.Source)),
		Metadata: model.PointMetadata{
			ScientificName: mr.ScientificName.String,
			CommonName:     mr.CommonName.String,
			Grade:          mr.Grade.String,
			LocationName:   mr.LocationName.String,
			ObserverID:     mr.ObserverID.String,
			TaxonID:        mr.TaxonID.String,
		},
	}
	if mr.Latitude.Valid {
		p.Latitude = mr.Latitude.Float64
	}
	if mr.Longitude.Valid {
		p.Longitude = mr.Longitude.Float64
	}
	if mr.CreatedAt.Valid {
		p.CreatedAt = mr.CreatedAt.Time
	}
	if mr.MediaTypes.Valid && mr.MediaTypes.String != "" {
		var media []string
		if err := json.Unmarshal([]byte(mr.MediaTypes.String), &media); err != nil {
			log.Warnf("⚠️ media_types JSONBパースエラー (id=%s): %v", mr.ID, err)
		} else {
			p.Metadata.MediaTypes = media
		}
	}
	return p
}

// BuildMarkersQuery 検索条件から SELECT 文と引数を組み立てる
func BuildMarkersQuery(c model.MarkerCriteria) (string, []interface{}) {
	var conds []string
	var args []interface{}
	next := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if len(c.Sources) > 0 {
		sources := make([]string, 0, len(c.Sources))
		for _, s := range c.Sources {
			sources = append(sources, s.String())
		}
		conds = append(conds, "source = ANY("+next(pq.Array(sources))+")")
	}
	if c.Search != "" {
		ph := next("%" + c.Search + "%")
		conds = append(conds, "(scientific_name ILIKE "+ph+" OR common_name ILIKE "+ph+")")
	}
	if c.StartDate != "" {
		conds = append(conds, "created_at >= "+next(c.StartDate)+"::date")
	}
	if c.EndDate != "" {
		conds = append(conds, "created_at < "+next(c.EndDate)+"::date + 1")
	}
	if len(c.Grades) > 0 {
		grades := make([]string, 0, len(c.Grades))
		for _, g := range c.Grades {
			grades = append(grades, strings.ToLower(g))
		}
		conds = append(conds, "LOWER(grade) = ANY("+next(pq.Array(grades))+")")
	}

	query := "SELECT " + markerColumns + " FROM observations"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"
	return query, args
}

func (r *PostgresMarkersRepository) FetchMarkers(ctx context.Context, criteria model.MarkerCriteria) ([]model.Point, error) {
	start := time.Now()
	defer func() {
		metrics.MarkersFetchDurationMs.WithLabelValues("postgres").Observe(float64(time.Since(start).Milliseconds()))
	}()

	query, args := BuildMarkersQuery(criteria)
	rows, err := r.client.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("マーカーデータの取得失敗: %w", err)
	}
	defer rows.Close()

	var points []model.Point
	for rows.Next() {
		var result markerResult
		err := rows.Scan(&result.ID, &result.Latitude, &result.Longitude, &result.Source, &result.CreatedAt,
			&result.ScientificName, &result.CommonName, &result.Grade, &result.MediaTypes,
			&result.LocationName, &result.ObserverID, &result.TaxonID)
		if err != nil {
			return nil, fmt.Errorf("マーカーデータスキャンエラー: %w", err)
		}
		points = append(points, result.ToPoint())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("マーカーデータ読み込みエラー: %w", err)
	}

	log.Infof("📍 マーカー取得完了(PostgreSQL): %d件", len(points))
	return points, nil
}
