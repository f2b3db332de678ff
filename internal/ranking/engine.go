package ranking

import (
	"cmp"
	"slices"

	"scoreboard/internal/model"
)

// PageSize is the number of ranks returned per page.
const PageSize = 100

// Compute reduces a generation to one entry per player and orders the result
// by score descending, then by row_num ascending. rowsDesc must be ordered by
// row_num descending so the first row seen for a player is its current score.
func Compute(rowsDesc []model.RankEntry) []model.RankEntry {
	seen := make(map[string]struct{}, len(rowsDesc))
	entries := make([]model.RankEntry, 0, len(rowsDesc))
	for _, r := range rowsDesc {
		if _, ok := seen[r.PlayerID]; ok {
			continue
		}
		seen[r.PlayerID] = struct{}{}
		entries = append(entries, r)
	}

	slices.SortFunc(entries, func(a, b model.RankEntry) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.RowNum, b.RowNum)
	})
	return entries
}

// Paginate skips rankAfter entries and numbers the next PageSize from
// rankAfter+1.
func Paginate(entries []model.RankEntry, rankAfter int64) []model.Rank {
	ranks := make([]model.Rank, 0, PageSize)
	if rankAfter >= int64(len(entries)) {
		return ranks
	}
	for i, e := range entries[rankAfter:] {
		if i == PageSize {
			break
		}
		ranks = append(ranks, model.Rank{
			Rank:              rankAfter + int64(i) + 1,
			Score:             e.Score,
			PlayerID:          e.PlayerID,
			PlayerDisplayName: e.PlayerDisplayName,
		})
	}
	return ranks
}
