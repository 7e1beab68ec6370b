package domain

import (
	"fmt"
	"math"
	"sort"
)

// Accumulate folds daily unions into one credit score per plot. Keys are
// walked in sorted (plot, day) order so recomputation over the same input
// set is bit-for-bit deterministic; summation over any partition of the
// input merges back to the full result within floating-point tolerance.
// A non-finite weight is fatal for that plot's score only.
func Accumulate(unions map[GroupKey]DailyUnion, plots map[string]Plot, weight Weighting, runID string) (map[string]CreditScore, []ScoreError) {
	if weight == nil {
		weight = UnitWeight
	}

	keys := make([]GroupKey, 0, len(unions))
	for k := range unions {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].PlotID != keys[j].PlotID {
			return keys[i].PlotID < keys[j].PlotID
		}
		return keys[i].Day.Before(keys[j].Day)
	})

	now := clock.Now()
	scores := make(map[string]CreditScore)
	var failures []ScoreError
	failed := make(map[string]bool)

	for _, k := range keys {
		if failed[k.PlotID] {
			continue
		}
		du := unions[k]

		w := weight(k.PlotID, k.Day)
		if math.IsNaN(w) || math.IsInf(w, 0) {
			failures = append(failures, ScoreError{
				PlotID: k.PlotID,
				Err:    fmt.Errorf("non-finite weight %g for day %s", w, k.Day),
			})
			failed[k.PlotID] = true
			delete(scores, k.PlotID)
			continue
		}

		s, ok := scores[k.PlotID]
		if !ok {
			s = CreditScore{
				PlotID:     k.PlotID,
				RunID:      runID,
				ComputedAt: now,
				From:       k.Day,
				To:         k.Day,
			}
			if plot, found := plots[k.PlotID]; found {
				s.ProjectID = plot.ProjectID
				s.CertifierID = plot.CertifierID
			}
		}

		s.CreditedArea += du.Area
		s.WeightedCredit += du.Area * w
		s.Days++
		if k.Day.Before(s.From) {
			s.From = k.Day
		}
		if s.To.Before(k.Day) {
			s.To = k.Day
		}
		scores[k.PlotID] = s
	}

	return scores, failures
}

// MergeScores combines score maps computed over disjoint partitions of the
// same run's daily unions. Credit sums are associative, so partitioned
// recomputation plus a merge matches a full recomputation within tolerance.
func MergeScores(parts ...map[string]CreditScore) map[string]CreditScore {
	merged := make(map[string]CreditScore)
	for _, part := range parts {
		for plotID, s := range part {
			m, ok := merged[plotID]
			if !ok {
				merged[plotID] = s
				continue
			}
			m.CreditedArea += s.CreditedArea
			m.WeightedCredit += s.WeightedCredit
			m.Days += s.Days
			if s.From.Before(m.From) {
				m.From = s.From
			}
			if m.To.Before(s.To) {
				m.To = s.To
			}
			merged[plotID] = m
		}
	}
	return merged
}

// CertifierWeights builds a weighting that multiplies credit by the plot
// certifier's configured factor. Certifiers absent from the table weigh 1.
func CertifierWeights(plots map[string]Plot, table map[string]float64) Weighting {
	return func(plotID string, _ Date) float64 {
		plot, ok := plots[plotID]
		if !ok {
			return 1.0
		}
		if w, ok := table[plot.CertifierID]; ok {
			return w
		}
		return 1.0
	}
}
