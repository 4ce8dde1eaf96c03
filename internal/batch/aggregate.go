package batch

import "sort"

// Aggregate folds checkpoint state into a report. Results come out
// sorted by rank and the success and failure counts always sum to
// totalRows, with rows never attempted counted as failed.
func Aggregate(batchID, mode string, totalRows int, cp *Checkpoint) Report {
	results := make([]RowResult, len(cp.Results))
	copy(results, cp.Results)
	sort.Slice(results, func(i, j int) bool { return results[i].Rank < results[j].Rank })

	success := 0
	for _, r := range results {
		if r.APISuccess {
			success++
		}
	}

	return Report{
		BatchID:      batchID,
		Mode:         mode,
		TotalRows:    totalRows,
		SuccessCount: success,
		FailedCount:  totalRows - success,
		TokenTotals:  cp.TokenTotals,
		Results:      results,
	}
}
