package game

import (
	"math"

	"github.com/abrezinsky/derbyrush/internal/models"
)

// Settlement splits the pot into four equal prize buckets: first, second,
// and third place plus the last-place finisher.
const bucketCount = 4

// Settle computes the pari-mutuel payout for a finished race. It is a pure
// function of (results, bettors, pot): replaying it with the same inputs
// always yields the same records.
//
// Each bucket is worth pot/4 and is split evenly among the bettors whose
// wager named that bucket's actual finisher in the right slot. A bucket with
// no correct pickers pays nobody; its value is breakage, never rolled into
// the other buckets. A bettor's total is rounded once, on the sum across
// buckets, so per-bucket rounding cannot compound.
//
// Every bettor gets a record, including bettors without a wager and bettors
// whose every pick was wrong; both receive zero points.
func Settle(results []models.RaceResult, bettors []models.Bettor, pot int) []models.SettlementRecord {
	records := make([]models.SettlementRecord, 0, len(bettors))
	if len(results) == 0 {
		return records
	}

	bucketValue := float64(pot) / bucketCount
	lastID := results[len(results)-1].ID

	// First pass: how many bettors named each bucket's finisher correctly.
	var correct [bucketCount]int
	for _, b := range bettors {
		if b.Bets == nil {
			continue
		}
		for slot, pick := range b.Bets.Top3 {
			if slot < len(results) && pick == results[slot].ID {
				correct[slot]++
			}
		}
		if b.Bets.Last != "" && b.Bets.Last == lastID {
			correct[3]++
		}
	}

	// Second pass: each correct picker takes an even split of its bucket.
	// A bettor who never wagered still gets a zero record, so the display
	// can tell everyone where they stand.
	for _, b := range bettors {
		record := models.SettlementRecord{BettorID: b.ID, BettorName: b.Name}

		if b.Bets != nil {
			var payout float64
			for slot, pick := range b.Bets.Top3 {
				if slot < len(results) && pick == results[slot].ID {
					payout += bucketValue / float64(correct[slot])
					record.CorrectTop3++
				}
			}
			if b.Bets.Last != "" && b.Bets.Last == lastID {
				payout += bucketValue / float64(correct[3])
				record.CorrectLast = true
			}
			record.TotalPoints = int(math.Round(payout))
		}

		records = append(records, record)
	}

	return records
}
