package database

import (
	"bytes"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/Patrick841130/LKS-sub003/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Set of transaction kinds supported by the chain.
const (
	TxKindTransfer   = "transfer"
	TxKindMint       = "stablecoin-mint"
	TxKindBurn       = "stablecoin-burn"
	TxKindSettlement = "settlement"
)

// =============================================================================

// Tx is the transactional information between two parties.
type Tx struct {
	ChainID uint16    `json:"chain_id"` // The chain id that this transaction is bound to.
	Kind    string    `json:"kind"`     // The kind of transaction: transfer, mint, burn, settlement.
	Nonce   uint64    `json:"nonce"`    // Unique id for the transaction supplied by the user.
	ToID    AccountID `json:"to"`       // Account receiving the benefit of the transaction.
	Value   uint64    `json:"value"`    // Monetary value received from this transaction.
	Tip     uint64    `json:"tip"`      // Tip offered by the sender as an incentive.
	Data    []byte    `json:"data"`     // Extra data related to the transaction.
}

// NewTx constructs a new transaction.
func NewTx(chainID uint16, kind string, nonce uint64, toID AccountID, value uint64, tip uint64, data []byte) (Tx, error) {
	if !toID.IsAccountID() {
		return Tx{}, fmt.Errorf("to account is not properly formatted")
	}

	switch kind {
	case TxKindTransfer, TxKindMint, TxKindBurn, TxKindSettlement:
	default:
		return Tx{}, fmt.Errorf("transaction kind %q is not supported", kind)
	}

	tx := Tx{
		ChainID: chainID,
		Kind:    kind,
		Nonce:   nonce,
		ToID:    toID,
		Value:   value,
		Tip:     tip,
		Data:    data,
	}

	return tx, nil
}

// Sign uses the specified private key to sign the transaction.
func (tx Tx) Sign(privateKey *ecdsa.PrivateKey) (SignedTx, error) {

	// Sign the transaction with the private key to produce a signature.
	v, r, s, err := signature.Sign(tx, privateKey)
	if err != nil {
		return SignedTx{}, err
	}

	// Construct the signed transaction by adding the signature
	// in the [R|S|V] format.
	signedTx := SignedTx{
		Tx: tx,
		V:  v,
		R:  r,
		S:  s,
	}

	return signedTx, nil
}

// =============================================================================

// SignedTx is a signed version of the transaction. This is how clients like
// a wallet provide transactions for inclusion into the blockchain.
type SignedTx struct {
	Tx
	V *big.Int `json:"v"` // Recovery identifier, either 41 or 42 with lksID.
	R *big.Int `json:"r"` // First coordinate of the ECDSA signature.
	S *big.Int `json:"s"` // Second coordinate of the ECDSA signature.
}

// Validate verifies the transaction has a proper signature that conforms to
// our standards, is associated with the data claimed to be signed, and is
// bound to the specified chain.
func (tx SignedTx) Validate(chainID uint16) error {
	if tx.ChainID != chainID {
		return fmt.Errorf("invalid chain id, got %d, exp %d", tx.ChainID, chainID)
	}

	if !tx.ToID.IsAccountID() {
		return errors.New("invalid account for to account")
	}

	switch tx.Kind {
	case TxKindTransfer, TxKindMint, TxKindBurn:
		if tx.Value == 0 {
			return fmt.Errorf("transaction of kind %q requires a non-zero value", tx.Kind)
		}
	case TxKindSettlement:
	default:
		return fmt.Errorf("transaction kind %q is not supported", tx.Kind)
	}

	if err := signature.VerifySignature(tx.V, tx.R, tx.S); err != nil {
		return err
	}

	return nil
}

// FromAccount extracts the account id that signed the transaction.
func (tx SignedTx) FromAccount() (AccountID, error) {
	address, err := signature.FromAddress(tx.Tx, tx.V, tx.R, tx.S)
	return AccountID(address), err
}

// SignatureString returns the signature as a string.
func (tx SignedTx) SignatureString() string {
	return signature.SignatureString(tx.V, tx.R, tx.S)
}

// String implements the fmt.Stringer interface for logging.
func (tx SignedTx) String() string {
	from, err := tx.FromAccount()
	if err != nil {
		from = "unknown"
	}

	return fmt.Sprintf("%s:%d", from, tx.Nonce)
}

// =============================================================================

// BlockTx represents the transaction as it's recorded inside a block. This
// includes the content-addressed hash, a timestamp and gas fees.
type BlockTx struct {
	SignedTx
	TxHash      string `json:"tx_hash"`      // Content-addressed hash computed from the remaining fields.
	TimeStamp   uint64 `json:"timestamp"`    // The time the transaction was received.
	GasPrice    uint64 `json:"gas_price"`    // The price of one unit of gas to be paid for fees.
	GasUnits    uint64 `json:"gas_units"`    // The number of units of gas used for this transaction.
	BlockNumber uint64 `json:"block_number"` // The block this transaction was included in, once applied.
}

// NewBlockTx constructs a new block transaction with its content hash.
func NewBlockTx(signedTx SignedTx, gasPrice uint64, unitsOfGas uint64) BlockTx {
	tx := BlockTx{
		SignedTx:  signedTx,
		TimeStamp: uint64(time.Now().UTC().Unix()),
		GasPrice:  gasPrice,
		GasUnits:  unitsOfGas,
	}
	tx.TxHash = tx.ComputeHash()

	return tx
}

// ComputeHash recomputes the content hash from the transaction fields. The
// hash never covers TxHash itself or the including-block number, which is
// assigned after the fact.
func (tx BlockTx) ComputeHash() string {
	content := struct {
		SignedTx  SignedTx `json:"signed_tx"`
		TimeStamp uint64   `json:"timestamp"`
		GasPrice  uint64   `json:"gas_price"`
		GasUnits  uint64   `json:"gas_units"`
	}{
		SignedTx:  tx.SignedTx,
		TimeStamp: tx.TimeStamp,
		GasPrice:  tx.GasPrice,
		GasUnits:  tx.GasUnits,
	}

	return signature.Hash(content)
}

// VerifyHash recomputes the content hash and compares it to the stored hash.
func (tx BlockTx) VerifyHash() error {
	if hash := tx.ComputeHash(); hash != tx.TxHash {
		return fmt.Errorf("transaction hash mismatch, got %s, exp %s", tx.TxHash, hash)
	}

	return nil
}

// Hash implements the merkle Hashable interface for providing a hash
// of a block transaction.
func (tx BlockTx) Hash() ([]byte, error) {
	return hexutil.Decode(tx.TxHash)
}

// Equals implements the merkle Hashable interface for providing an equality
// check between two block transactions. If the nonce and signatures are the
// same, the two transactions are the same.
func (tx BlockTx) Equals(otherTx BlockTx) bool {
	txSig := signature.ToSignatureBytes(tx.V, tx.R, tx.S)
	otherTxSig := signature.ToSignatureBytes(otherTx.V, otherTx.R, otherTx.S)

	return tx.Nonce == otherTx.Nonce && bytes.Equal(txSig, otherTxSig)
}
