// This program performs administrative tasks against the chain database.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Patrick841130/LKS-sub003/foundation/blockchain/database"
	"github.com/Patrick841130/LKS-sub003/foundation/blockchain/ledger"
)

func main() {
	if err := run(os.Args); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: admin [bals|blocks]")
	}

	lgr, err := ledger.New("zblock/blocks.db")
	if err != nil {
		return err
	}
	defer lgr.Close()

	switch args[1] {
	case "bals":
		if err := balances(lgr); err != nil {
			return fmt.Errorf("getting balances: %w", err)
		}
	case "blocks":
		if err := blocks(lgr); err != nil {
			return fmt.Errorf("getting blocks: %w", err)
		}
	default:
		return fmt.Errorf("unknown command %q", args[1])
	}

	return nil
}

// balances walks the account records and prints each balance and nonce.
func balances(lgr *ledger.Ledger) error {
	return lgr.ForEachPrefix(ledger.PrefixAccount, func(key string, value []byte) bool {
		var account database.Account
		if err := json.Unmarshal(value, &account); err != nil {
			fmt.Printf("%s: corrupt record: %v\n", key, err)
			return true
		}

		fmt.Printf("%s: balance[%d] nonce[%d]\n", account.AccountID, account.Balance, account.Nonce)
		return true
	})
}

// blocks walks the chain in block number order and prints a header summary.
func blocks(lgr *ledger.Ledger) error {
	return lgr.ForEachPrefix(ledger.PrefixBlockNum, func(key string, value []byte) bool {
		var blockData database.BlockData
		if err := json.Unmarshal(value, &blockData); err != nil {
			fmt.Printf("%s: corrupt record: %v\n", key, err)
			return true
		}

		fmt.Printf("block[%d] hash[%s] prev[%s] txs[%d]\n",
			blockData.Header.Number, blockData.Hash, blockData.Header.PrevBlockHash, len(blockData.Trans))
		return true
	})
}
