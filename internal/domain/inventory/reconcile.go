package inventory

// Replay walks a counter's ledger in sequence order and checks that
//   - sequences run 1..n without gaps
//   - the first entry starts from zero
//   - each entry starts where the previous one ended
//   - each entry's resulting quantity equals original plus signed delta
//   - the last resulting quantity equals the counter's current count
//
// It returns nil when the chain is intact, or a LedgerReconciliationError
// listing every break. Entries must already be ordered by sequence.
func Replay(counter *StockCounter, entries []LedgerEntry) error {
	var breaks []ChainBreak
	var running int64

	for i := range entries {
		e := &entries[i]
		expectedSeq := int64(i + 1)
		if e.Sequence != expectedSeq {
			breaks = append(breaks, ChainBreak{Sequence: e.Sequence, Expected: expectedSeq, Actual: e.Sequence, Reason: "sequence gap"})
		}
		if e.OriginalQuantity != running {
			breaks = append(breaks, ChainBreak{Sequence: e.Sequence, Expected: running, Actual: e.OriginalQuantity, Reason: "original does not match previous resulting"})
		}
		if want := e.OriginalQuantity + e.SignedDelta(); e.ResultingQuantity != want {
			breaks = append(breaks, ChainBreak{Sequence: e.Sequence, Expected: want, Actual: e.ResultingQuantity, Reason: "resulting does not match delta"})
		}
		if e.ResultingQuantity < 0 {
			breaks = append(breaks, ChainBreak{Sequence: e.Sequence, Expected: 0, Actual: e.ResultingQuantity, Reason: "negative stock"})
		}
		running = e.ResultingQuantity
	}

	if running != counter.CurrentCount {
		breaks = append(breaks, ChainBreak{Sequence: int64(len(entries)), Expected: running, Actual: counter.CurrentCount, Reason: "counter does not match ledger"})
	}
	if int64(len(entries)) != counter.LastSequence {
		breaks = append(breaks, ChainBreak{Sequence: counter.LastSequence, Expected: int64(len(entries)), Actual: counter.LastSequence, Reason: "counter sequence does not match ledger length"})
	}

	if len(breaks) == 0 {
		return nil
	}
	return &LedgerReconciliationError{CounterID: counter.ID, Key: counter.Key(), Breaks: breaks}
}
