package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/Patrick841130/LKS-sub003/foundation/blockchain/merkle"
	"github.com/Patrick841130/LKS-sub003/foundation/blockchain/signature"
)

// =============================================================================

// BlockHeader represents common information required for each block.
type BlockHeader struct {
	Number        uint64    `json:"number"`          // Block number in the chain, monotonic and unique.
	PrevBlockHash string    `json:"prev_block_hash"` // Hash of the previous block in the chain.
	TimeStamp     uint64    `json:"timestamp"`       // Time the block was proposed.
	BeneficiaryID AccountID `json:"beneficiary"`     // The account of the proposer receiving fees and tips.
	StateRoot     string    `json:"state_root"`      // Hash of the application state after applying this block.
	TransRoot     string    `json:"trans_root"`      // Merkle tree root hash for the transactions in this block.
	ReceiptRoot   string    `json:"receipt_root"`    // Hash over the receipts produced by this block.
	GasLimit      uint64    `json:"gas_limit"`       // Maximum amount of gas this block may consume.
	GasUsed       uint64    `json:"gas_used"`        // Amount of gas consumed by the block's transactions.
}

// Block represents a group of transactions batched together.
type Block struct {
	Header Header
	Trans  *merkle.Tree[BlockTx]
}

// Header is an alias kept so the zero Block value reads naturally at call
// sites that deal with an absent head.
type Header = BlockHeader

// NewBlockArgs are the arguments required to construct a candidate block.
type NewBlockArgs struct {
	BeneficiaryID AccountID
	PrevBlock     Block
	HavePrev      bool
	StateRoot     string
	GasLimit      uint64
	Trans         []BlockTx
}

// NewBlock constructs a candidate block to be proposed to the chain. The
// previous block's hash links the new block; a missing previous block
// produces the genesis block at number 0.
func NewBlock(args NewBlockArgs) (Block, error) {

	prevBlockHash := signature.ZeroHash
	var number uint64
	if args.HavePrev {
		prevBlockHash = args.PrevBlock.Hash()
		number = args.PrevBlock.Header.Number + 1
	}

	// Construct a merkle tree from the transactions for this block. The root
	// of this tree is part of the block being proposed.
	tree, err := merkle.NewTree(args.Trans)
	if err != nil {
		return Block{}, err
	}

	var gasUsed uint64
	for _, tx := range args.Trans {
		gasUsed += tx.GasUnits
	}
	if gasUsed > args.GasLimit {
		return Block{}, fmt.Errorf("block gas %d exceeds limit %d", gasUsed, args.GasLimit)
	}

	nb := Block{
		Header: BlockHeader{
			Number:        number,
			PrevBlockHash: prevBlockHash,
			TimeStamp:     uint64(time.Now().UTC().Unix()),
			BeneficiaryID: args.BeneficiaryID,
			StateRoot:     args.StateRoot,
			TransRoot:     tree.RootHex(),
			ReceiptRoot:   signature.ZeroHash,
			GasLimit:      args.GasLimit,
			GasUsed:       gasUsed,
		},
		Trans: tree,
	}

	return nb, nil
}

// Hash returns the unique hash for the block. The hash is a pure function of
// the header and is always recomputed, never trusted from the wire.
func (b Block) Hash() string {
	return signature.Hash(b.Header)
}

// =============================================================================

// ValidationError reports every consensus rule a candidate block violated.
// None of the rules are retried; the block is rejected and the caller decides
// whether to request a different proposal.
type ValidationError struct {
	Rules []string
}

// Error implements the error interface.
func (ve *ValidationError) Error() string {
	return fmt.Sprintf("block rejected: %s", strings.Join(ve.Rules, "; "))
}

// Validate checks a candidate block against the current head block. The head
// is absent when bootstrapping genesis. State root verification is deferred
// until after application since the state root is a function of post-apply
// state.
func (b Block) Validate(head Block, haveHead bool, evHandler func(v string, args ...any)) error {
	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	var rules []string

	ev("database: Validate: blk[%d]: check: block number is the next number", b.Header.Number)

	switch {
	case haveHead:
		if b.Header.Number != head.Header.Number+1 {
			rules = append(rules, fmt.Sprintf("block number is not the next number, got %d, exp %d", b.Header.Number, head.Header.Number+1))
		}
	default:
		if b.Header.Number != 0 {
			rules = append(rules, fmt.Sprintf("genesis block number must be 0, got %d", b.Header.Number))
		}
	}

	ev("database: Validate: blk[%d]: check: parent hash matches head block", b.Header.Number)

	switch {
	case haveHead:
		if b.Header.PrevBlockHash != head.Hash() {
			rules = append(rules, fmt.Sprintf("parent block hash doesn't match our known head, got %s, exp %s", b.Header.PrevBlockHash, head.Hash()))
		}
	default:
		if b.Header.PrevBlockHash != signature.ZeroHash {
			rules = append(rules, "genesis block must link to the zero hash")
		}
	}

	ev("database: Validate: blk[%d]: check: transaction hashes recompute cleanly", b.Header.Number)

	for _, tx := range b.Trans.Values() {
		if err := tx.VerifyHash(); err != nil {
			rules = append(rules, err.Error())
		}
	}

	ev("database: Validate: blk[%d]: check: merkle root matches transactions", b.Header.Number)

	if b.Header.TransRoot != b.Trans.RootHex() {
		rules = append(rules, fmt.Sprintf("merkle root does not match transactions, got %s, exp %s", b.Trans.RootHex(), b.Header.TransRoot))
	}

	if b.Header.GasUsed > b.Header.GasLimit {
		rules = append(rules, fmt.Sprintf("block gas %d exceeds limit %d", b.Header.GasUsed, b.Header.GasLimit))
	}

	if len(rules) > 0 {
		return &ValidationError{Rules: rules}
	}

	return nil
}

// =============================================================================

// BlockData represents what is serialized into the ledger store.
type BlockData struct {
	Hash   string      `json:"hash"`
	Header BlockHeader `json:"block"`
	Trans  []BlockTx   `json:"trans"`
}

// NewBlockData constructs the value to serialize into the store.
func NewBlockData(block Block) BlockData {
	blockData := BlockData{
		Hash:   block.Hash(),
		Header: block.Header,
		Trans:  block.Trans.Values(),
	}

	return blockData
}

// ToBlock converts a BlockData back into a Block.
func ToBlock(blockData BlockData) (Block, error) {
	tree, err := merkle.NewTree(blockData.Trans)
	if err != nil {
		return Block{}, err
	}

	nb := Block{
		Header: blockData.Header,
		Trans:  tree,
	}

	return nb, nil
}
