package game

import (
	"math"
	"sort"

	"github.com/abrezinsky/derbyrush/internal/models"
)

// ComputeOdds derives the live win-probability distribution from current
// positions: each racer's share is round(100 * position / totalProgress).
// Before any progress every share is zero. Shares are not renormalized after
// rounding, so the sum may drift from 100 by up to the racer count.
//
// The snapshot is ordered by descending share; ties keep the racers' join
// order, which the caller provides.
func ComputeOdds(racers []models.Racer) []models.OddsEntry {
	total := 0
	for _, r := range racers {
		total += r.Position
	}

	entries := make([]models.OddsEntry, 0, len(racers))
	for _, r := range racers {
		share := 0
		if total > 0 {
			share = int(math.Round(float64(r.Position) / float64(total) * 100))
		}
		entries = append(entries, models.OddsEntry{
			ID:    r.ID,
			Name:  r.Name,
			Share: share,
			Color: r.Color,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Share > entries[j].Share
	})
	return entries
}

// Results ranks racers by descending position. The sort is stable, so racers
// tied on position keep their relative order in the input.
func Results(racers []models.Racer) []models.RaceResult {
	ranked := make([]models.RaceResult, 0, len(racers))
	for _, r := range racers {
		ranked = append(ranked, models.RaceResult{ID: r.ID, Name: r.Name, Position: r.Position})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Position > ranked[j].Position
	})
	return ranked
}
