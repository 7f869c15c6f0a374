package mempool_test

import (
	"testing"
	"time"

	"github.com/Patrick841130/LKS-sub003/foundation/blockchain/database"
	"github.com/Patrick841130/LKS-sub003/foundation/blockchain/mempool"
	"github.com/ethereum/go-ethereum/crypto"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const to = "0xbEE6ACE826eC3DE1B6349888B9151B92522F7F76"

func sign(hexKey string, nonce uint64, tip uint64) (database.BlockTx, error) {
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

func TestCRUD(t *testing.T) {
	signPavel := "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	signBill := "9f332e3700d8fc2446eaf6d15034cf96e0c2745e40353deef032a5dbf1dfed93"
	signEd := "aed31b6b5a341af8f27e66fb0b7633cf20fc27049e3eb7f6f623a4655b719ebb"

	type txSpec struct {
		hexKey string
		nonce  uint64
		tip    uint64
	}

	txs := []txSpec{
		{signPavel, 1, 10},
		{signBill, 1, 50},
		{signEd, 1, 100},
		{signPavel, 2, 10},
	}

	t.Log("Given the need to validate mempool api.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen handling a set of transactions.", testID)
		{
			mp, err := mempool.New()
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to construct a mempool: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to construct a mempool.", success, testID)

			for _, spec := range txs {
				tx, err := sign(spec.hexKey, spec.nonce, spec.tip)
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to sign transaction: %v", failed, testID, err)
				}

				if _, err := mp.Upsert(tx); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to add new transaction: %v", failed, testID, err)
				}
				t.Logf("\t%s\tTest %d:\tShould be able to add new transaction: %s", success, testID, tx)
			}

			if cnt := mp.Count(); cnt != 4 {
				t.Fatalf("\t%s\tTest %d:\tShould have 4 transactions in the pool, got %d.", failed, testID, cnt)
			}
			t.Logf("\t%s\tTest %d:\tShould have 4 transactions in the pool.", success, testID)

			best := mp.PickBest(3)
			if len(best) != 3 {
				t.Fatalf("\t%s\tTest %d:\tShould get back 3 best transactions, got %d.", failed, testID, len(best))
			}
			t.Logf("\t%s\tTest %d:\tShould get back 3 best transactions.", success, testID)

			tx, err := sign(signEd, 1, 100)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to sign transaction: %v", failed, testID, err)
			}
			if err := mp.Delete(tx); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to delete a transaction: %v", failed, testID, err)
			}
			if cnt := mp.Count(); cnt != 3 {
				t.Fatalf("\t%s\tTest %d:\tShould have 3 transactions after delete, got %d.", failed, testID, cnt)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to delete a transaction.", success, testID)

			mp.Truncate()
			if cnt := mp.Count(); cnt != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould have 0 transactions after truncate, got %d.", failed, testID, cnt)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to truncate the mempool.", success, testID)
		}
	}
}

func TestDuplicateUpsert(t *testing.T) {
	t.Log("Given the need to validate duplicate admission is a no-op.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen admitting the same transaction twice.", testID)
		{
			mp, err := mempool.New()
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to construct a mempool: %v", failed, testID, err)
			}

			tx, err := sign("fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959", 1, 10)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to sign transaction: %v", failed, testID, err)
			}

			if _, err := mp.Upsert(tx); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to admit the transaction: %v", failed, testID, err)
			}

			cnt, err := mp.Upsert(tx)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to admit the duplicate: %v", failed, testID, err)
			}
			if cnt != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould still have 1 transaction, got %d.", failed, testID, cnt)
			}
			t.Logf("\t%s\tTest %d:\tShould still have 1 transaction after the duplicate.", success, testID)
		}
	}
}

func TestBadHashRejected(t *testing.T) {
	t.Log("Given the need to validate hash integrity at admission.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen admitting a transaction with a tampered value.", testID)
		{
			mp, err := mempool.New()
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to construct a mempool: %v", failed, testID, err)
			}

			tx, err := sign("fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959", 1, 10)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to sign transaction: %v", failed, testID, err)
			}

			tx.Value = 1_000_000

			if _, err := mp.Upsert(tx); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould reject the tampered transaction.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould reject the tampered transaction.", success, testID)
		}
	}
}

func TestEvictExpired(t *testing.T) {
	t.Log("Given the need to validate expired transactions are evicted.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen evicting with different ttl values.", testID)
		{
			mp, err := mempool.New()
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to construct a mempool: %v", failed, testID, err)
			}

			tx, err := sign("fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959", 1, 10)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to sign transaction: %v", failed, testID, err)
			}
			if _, err := mp.Upsert(tx); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to admit the transaction: %v", failed, testID, err)
			}

			if evicted := mp.EvictExpired(time.Hour); evicted != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould evict nothing with a long ttl, evicted %d.", failed, testID, evicted)
			}
			t.Logf("\t%s\tTest %d:\tShould evict nothing with a long ttl.", success, testID)

			time.Sleep(5 * time.Millisecond)

			if evicted := mp.EvictExpired(time.Millisecond); evicted != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould evict the stale transaction, evicted %d.", failed, testID, evicted)
			}
			if cnt := mp.Count(); cnt != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould have an empty pool after eviction, got %d.", failed, testID, cnt)
			}
			t.Logf("\t%s\tTest %d:\tShould evict the stale transaction.", success, testID)
		}
	}
}
