package selector

import (
	"sort"

	"github.com/Patrick841130/LKS-sub003/foundation/blockchain/database"
)

// tipSelect returns transactions sorted by the best tip while still
// respecting the nonce ordering for each account.
var tipSelect = func(m map[database.AccountID][]database.BlockTx, howMany int) []database.BlockTx {

	// Sort the transactions per account by nonce.
	for key := range m {
		if len(m[key]) > 1 {
			sort.Sort(byNonce(m[key]))
		}
	}

	// Pick the first transaction in the slice for each account. Each iteration
	// represents a new row of selections. Keep doing that until all the
	// transactions have been selected.
	var rows [][]database.BlockTx
	for {
		var row []database.BlockTx
		for key := range m {
			if len(m[key]) > 0 {
				row = append(row, m[key][0])
				m[key] = m[key][1:]
			}
		}
		if row == nil {
			break
		}
		rows = append(rows, row)
	}

	// Sort each row by tip unless we will take all transactions from that row
	// anyway. Then try to select the number of requested transactions. Keep
	// pulling transactions from each row until the row is empty or the
	// requested number of transactions is reached.
	final := []database.BlockTx{}
done:
	for _, row := range rows {
		need := howMany - len(final)
		switch {
		case howMany == -1 || len(row) <= need:
			final = append(final, row...)
		default:
			sort.Sort(byTip(row))
			final = append(final, row[:need]...)
			break done
		}
	}

	return final
}

// nonceSelect returns transactions in insertion order per account, nonce
// ascending, interleaving accounts row by row.
var nonceSelect = func(m map[database.AccountID][]database.BlockTx, howMany int) []database.BlockTx {

	for key := range m {
		if len(m[key]) > 1 {
			sort.Sort(byNonce(m[key]))
		}
	}

	var final []database.BlockTx
	for {
		var picked bool
		for key := range m {
			if len(m[key]) > 0 {
				final = append(final, m[key][0])
				m[key] = m[key][1:]
				picked = true
			}
			if howMany != -1 && len(final) >= howMany {
				return final[:howMany]
			}
		}
		if !picked {
			break
		}
	}

	return final
}
