package public

import (
	"github.com/Patrick841130/LKS-sub003/business/core/collateral"
	"github.com/Patrick841130/LKS-sub003/business/core/stablecoin"
	"github.com/Patrick841130/LKS-sub003/business/sys/validate"
	"github.com/Patrick841130/LKS-sub003/foundation/blockchain/database"
)

// tx is the view model for a transaction with resolved account names.
type tx struct {
	FromAccount database.AccountID `json:"from"`
	FromName    string             `json:"from_name"`
	To          database.AccountID `json:"to"`
	ToName      string             `json:"to_name"`
	Kind        string             `json:"kind"`
	Nonce       uint64             `json:"nonce"`
	Value       uint64             `json:"value"`
	Tip         uint64             `json:"tip"`
	Data        []byte             `json:"data"`
	TimeStamp   uint64             `json:"timestamp"`
	GasPrice    uint64             `json:"gas_price"`
	GasUnits    uint64             `json:"gas_units"`
	Sig         string             `json:"sig"`
}

// info is the view model for an account.
type info struct {
	Account database.AccountID `json:"account"`
	Name    string             `json:"name"`
	Balance uint64             `json:"balance"`
	Nonce   uint64             `json:"nonce"`
}

// actInfo wraps the account list with chain context.
type actInfo struct {
	LatestBlock string `json:"latest_block"`
	Uncommitted int    `json:"uncommitted"`
	Accounts    []info `json:"accounts"`
}

// =============================================================================

// asset is the request model for one collateral asset.
type asset struct {
	TokenAddress string `json:"token_address" validate:"required"`
	Amount       uint64 `json:"amount" validate:"required,gt=0"`
	Price        uint64 `json:"price"`
}

// mintRequest is the request model for minting stablecoin units.
type mintRequest struct {
	Minter            string  `json:"minter" validate:"required"`
	StablecoinAddress string  `json:"stablecoin_address" validate:"required"`
	Amount            uint64  `json:"amount" validate:"required,gt=0"`
	CollateralAssets  []asset `json:"collateral_assets" validate:"required,min=1,dive"`
}

// Validate runs the declared field rules after decoding.
func (r mintRequest) Validate() error {
	return validate.Check(r)
}

func (r mintRequest) toCore() stablecoin.MintRequest {
	assets := make([]collateral.Asset, len(r.CollateralAssets))
	for i, a := range r.CollateralAssets {
		assets[i] = collateral.Asset{
			TokenAddress: a.TokenAddress,
			Amount:       a.Amount,
			Price:        a.Price,
		}
	}

	return stablecoin.MintRequest{
		Minter:            database.AccountID(r.Minter),
		StablecoinAddress: database.AccountID(r.StablecoinAddress),
		Amount:            r.Amount,
		CollateralAssets:  assets,
	}
}

// burnRequest is the request model for burning stablecoin units.
type burnRequest struct {
	Burner            string `json:"burner" validate:"required"`
	StablecoinAddress string `json:"stablecoin_address" validate:"required"`
	Amount            uint64 `json:"amount" validate:"required,gt=0"`
	CollateralLockID  string `json:"collateral_lock_id" validate:"required"`
}

// Validate runs the declared field rules after decoding.
func (r burnRequest) Validate() error {
	return validate.Check(r)
}

func (r burnRequest) toCore() stablecoin.BurnRequest {
	return stablecoin.BurnRequest{
		Burner:            database.AccountID(r.Burner),
		StablecoinAddress: database.AccountID(r.StablecoinAddress),
		Amount:            r.Amount,
		CollateralLockID:  r.CollateralLockID,
	}
}

// settleRequest is the request model for settling a batch of transactions.
type settleRequest struct {
	Requester       string   `json:"requester" validate:"required"`
	TxHashes        []string `json:"tx_hashes" validate:"required,min=1"`
	TotalAmount     uint64   `json:"total_amount" validate:"required,gt=0"`
	SettlementToken string   `json:"settlement_token"`
}

// Validate runs the declared field rules after decoding.
func (r settleRequest) Validate() error {
	return validate.Check(r)
}

func (r settleRequest) toCore() stablecoin.SettlementRequest {
	return stablecoin.SettlementRequest{
		Requester:       database.AccountID(r.Requester),
		TxHashes:        r.TxHashes,
		TotalAmount:     r.TotalAmount,
		SettlementToken: r.SettlementToken,
	}
}
