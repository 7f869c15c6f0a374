package state

import (
	"encoding/json"
	"errors"
	"sort"

	"github.com/Patrick841130/LKS-sub003/foundation/blockchain/database"
	"github.com/Patrick841130/LKS-sub003/foundation/blockchain/ledger"
	"github.com/Patrick841130/LKS-sub003/foundation/blockchain/signature"
)

// getAccount reads the committed account record through the ledger. A
// missing record returns a zero balance account.
func (s *State) getAccount(accountID database.AccountID) (database.Account, error) {
	data, err := s.ledger.Get(ledger.AccountKey(string(accountID)))
	return decodeAccount(accountID, data, err)
}

// stagedAccount reads the account record with the writes of the block being
// applied overlaid. Only the apply path reads through here.
func (s *State) stagedAccount(accountID database.AccountID) (database.Account, error) {
	data, err := s.ledger.GetStaged(ledger.AccountKey(string(accountID)))
	return decodeAccount(accountID, data, err)
}

func decodeAccount(accountID database.AccountID, data []byte, err error) (database.Account, error) {
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return database.Account{AccountID: accountID}, nil
		}
		return database.Account{}, err
	}

	var account database.Account
	if err := json.Unmarshal(data, &account); err != nil {
		return database.Account{}, err
	}

	return account, nil
}

// putAccount stages the account record for the next commit.
func (s *State) putAccount(account database.Account) error {
	data, err := json.Marshal(account)
	if err != nil {
		return err
	}

	s.ledger.Set(ledger.AccountKey(string(account.AccountID)), data)
	return nil
}

// stateRoot computes the hash summarizing the entire application state,
// including writes staged by the block currently being applied. The accounts
// are walked in key order so the hash is deterministic across nodes.
func (s *State) stateRoot() (string, error) {
	var accounts []database.Account

	fn := func(key string, value []byte) bool {
		var account database.Account
		if err := json.Unmarshal(value, &account); err != nil {
			return true
		}
		accounts = append(accounts, account)
		return true
	}

	if err := s.ledger.ForEachPrefixStaged(ledger.PrefixAccount, fn); err != nil {
		return "", err
	}

	sort.Sort(byAccountID(accounts))

	return signature.Hash(accounts), nil
}

// =============================================================================

// byAccountID provides deterministic ordering for state hashing.
type byAccountID []database.Account

func (ba byAccountID) Len() int           { return len(ba) }
func (ba byAccountID) Less(i, j int) bool { return ba[i].AccountID < ba[j].AccountID }
func (ba byAccountID) Swap(i, j int)      { ba[i], ba[j] = ba[j], ba[i] }
