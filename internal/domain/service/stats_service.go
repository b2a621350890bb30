package service

import (
	"strings"

	"FOBI-Map/internal/domain/model"
)

// ComputeStats 絞り込み後の観測点から統計を求める
// 種数は TaxonID、なければ学名で数える。投稿者は ObserverID で数える
func ComputeStats(points []model.Point) model.Stats {
	stats := model.Stats{
		CountsBySource: make(map[model.Source]int),
	}
	species := make(map[string]struct{})
	contributors := make(map[string]struct{})

	for _, p := range points {
		stats.TotalObservations++
		stats.CountsBySource[p.Source]++

		if key := speciesKey(p.Metadata); key != "" {
			species[key] = struct{}{}
		}
		if p.Metadata.ObserverID != "" {
			contributors[p.Metadata.ObserverID] = struct{}{}
		}
	}

	stats.TotalSpecies = len(species)
	stats.TotalContributors = len(contributors)
	return stats
}

func speciesKey(m model.PointMetadata) string {
	if m.TaxonID != "" {
		return "taxon:" + m.TaxonID
	}
	if name := strings.ToLower(strings.TrimSpace(m.ScientificName)); name != "" {
		return "name:" + name
	}
	return ""
}
