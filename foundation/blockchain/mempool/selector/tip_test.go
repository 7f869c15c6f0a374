package selector_test

import (
	"fmt"
	"testing"

	"github.com/Patrick841130/LKS-sub003/foundation/blockchain/database"
	"github.com/Patrick841130/LKS-sub003/foundation/blockchain/mempool/selector"
	"github.com/ethereum/go-ethereum/crypto"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const (
	signPavel = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	signBill  = "9f332e3700d8fc2446eaf6d15034cf96e0c2745e40353deef032a5dbf1dfed93"
	signEd    = "aed31b6b5a341af8f27e66fb0b7633cf20fc27049e3eb7f6f623a4655b719ebb"
)

func sign(hexKey string, nonce uint64, tip uint64) (database.BlockTx, error) {
	const to = "0xbEE6ACE826eC3DE1B6349888B9151B92522F7F76"

	pk, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return database.BlockTx{}, err
	}

	tx, err := database.NewTx(1, database.TxKindTransfer, nonce, to, 100, tip, nil)
	if err != nil {
		return database.BlockTx{}, err
	}

	signedTx, err := tx.Sign(pk)
	if err != nil {
		return database.BlockTx{}, err
	}

	return database.NewBlockTx(signedTx, 15, 1), nil
}

// group builds the account grouped map the selector functions take.
func group(t *testing.T, testID int, specs [][3]uint64, keys []string) map[database.AccountID][]database.BlockTx {
	t.Helper()

	m := make(map[database.AccountID][]database.BlockTx)
	for _, spec := range specs {
		tx, err := sign(keys[spec[0]], spec[1], spec[2])
		if err != nil {
			t.Fatalf("\t%s\tTest %d:\tShould be able to sign transaction: %v", failed, testID, err)
		}

		from, err := tx.FromAccount()
		if err != nil {
			t.Fatalf("\t%s\tTest %d:\tShould be able to recover the from account: %v", failed, testID, err)
		}

		m[from] = append(m[from], tx)
	}

	return m
}

// ident keys a transaction by its sender and nonce.
func ident(t *testing.T, tx database.BlockTx) string {
	t.Helper()

	from, err := tx.FromAccount()
	if err != nil {
		t.Fatalf("\t%s\tShould be able to recover the from account: %v", failed, err)
	}

	return fmt.Sprintf("%s:%d", from, tx.Nonce)
}

func TestTipSort(t *testing.T) {
	keys := []string{signPavel, signBill, signEd}

	// account index, nonce, tip
	specs := [][3]uint64{
		{0, 1, 25}, {0, 2, 75}, {0, 3, 50},
		{1, 1, 10}, {1, 2, 5}, {1, 3, 75},
		{2, 1, 5}, {2, 2, 50}, {2, 3, 25},
	}

	t.Log("Given the need to pick the best transactions by tip.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen asking for every transaction.", testID)
		{
			fn, err := selector.Retrieve(selector.StrategyTip)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to retrieve the tip strategy: %v", failed, testID, err)
			}

			final := fn(group(t, testID, specs, keys), -1)
			if len(final) != len(specs) {
				t.Fatalf("\t%s\tTest %d:\tShould get back all %d transactions, got %d.", failed, testID, len(specs), len(final))
			}
			t.Logf("\t%s\tTest %d:\tShould get back all %d transactions.", success, testID, len(specs))

			// Nonce order per account must hold in the selection.
			lastNonce := make(map[string]uint64)
			for _, tx := range final {
				from, err := tx.FromAccount()
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to recover the from account: %v", failed, testID, err)
				}
				if tx.Nonce <= lastNonce[string(from)] {
					t.Fatalf("\t%s\tTest %d:\tShould keep nonces ascending for %s.", failed, testID, from)
				}
				lastNonce[string(from)] = tx.Nonce
			}
			t.Logf("\t%s\tTest %d:\tShould keep nonces ascending per account.", success, testID)
		}

		testID = 1
		t.Logf("\tTest %d:\tWhen asking for four transactions.", testID)
		{
			fn, err := selector.Retrieve(selector.StrategyTip)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to retrieve the tip strategy: %v", failed, testID, err)
			}

			final := fn(group(t, testID, specs, keys), 4)
			if len(final) != 4 {
				t.Fatalf("\t%s\tTest %d:\tShould get back 4 transactions, got %d.", failed, testID, len(final))
			}
			t.Logf("\t%s\tTest %d:\tShould get back 4 transactions.", success, testID)

			// The first nonce of every account plus the best tip from the
			// second cycle, which is Pavel's 75.
			pavelTx, err := sign(signPavel, 2, 75)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to sign transaction: %v", failed, testID, err)
			}

			want := map[string]bool{ident(t, pavelTx): true}
			for i, key := range keys {
				tx, err := sign(key, 1, specs[i*3][2])
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to sign transaction: %v", failed, testID, err)
				}
				want[ident(t, tx)] = true
			}

			for _, tx := range final {
				if !want[ident(t, tx)] {
					t.Fatalf("\t%s\tTest %d:\tShould not select %s.", failed, testID, ident(t, tx))
				}
			}
			t.Logf("\t%s\tTest %d:\tShould select the first cycle plus the best second cycle tip.", success, testID)
		}
	}
}

func TestNonceSort(t *testing.T) {
	keys := []string{signPavel, signBill}

	specs := [][3]uint64{
		{0, 2, 0}, {0, 1, 0},
		{1, 1, 0},
	}

	t.Log("Given the need to pick transactions in nonce order.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen asking for every transaction.", testID)
		{
			fn, err := selector.Retrieve(selector.StrategyNonce)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to retrieve the nonce strategy: %v", failed, testID, err)
			}

			final := fn(group(t, testID, specs, keys), -1)
			if len(final) != 3 {
				t.Fatalf("\t%s\tTest %d:\tShould get back 3 transactions, got %d.", failed, testID, len(final))
			}

			lastNonce := make(map[string]uint64)
			for _, tx := range final {
				from, err := tx.FromAccount()
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to recover the from account: %v", failed, testID, err)
				}
				if tx.Nonce <= lastNonce[string(from)] {
					t.Fatalf("\t%s\tTest %d:\tShould keep nonces ascending for %s.", failed, testID, from)
				}
				lastNonce[string(from)] = tx.Nonce
			}
			t.Logf("\t%s\tTest %d:\tShould keep nonces ascending per account.", success, testID)
		}
	}
}

func TestUnknownStrategy(t *testing.T) {
	t.Log("Given the need to reject an unknown strategy.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen retrieving a strategy that does not exist.", testID)
		{
			if _, err := selector.Retrieve("fifo"); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould get an error for an unknown strategy.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould get an error for an unknown strategy.", success, testID)
		}
	}
}
