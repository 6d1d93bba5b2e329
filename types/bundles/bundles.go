// Package bundles defines the eth_sendBundle payloads accepted by the
// Beaverbuild, Flashbots and Titan builder RPCs.
package bundles

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
)

var ErrInvalidTransaction = errors.New("invalid transaction")

// Request is a bundle that can be sent with eth_sendBundle.
type Request interface {
	Transactions() []hexutil.Bytes
	TargetBlock() uint64
}

// EthSendBundle holds the fields every builder accepts. BlockNumber zero
// targets the next block only.
type EthSendBundle struct {
	Txs               []hexutil.Bytes `json:"txs"`
	BlockNumber       hexutil.Uint64  `json:"blockNumber"`
	MinTimestamp      *uint64         `json:"minTimestamp,omitempty"`
	MaxTimestamp      *uint64         `json:"maxTimestamp,omitempty"`
	RevertingTxHashes []common.Hash   `json:"revertingTxHashes,omitempty"`
}

func (b *EthSendBundle) Transactions() []hexutil.Bytes { return b.Txs }
func (b *EthSendBundle) TargetBlock() uint64          { return uint64(b.BlockNumber) }

// EthBundleHash is the eth_sendBundle result.
type EthBundleHash struct {
	BundleHash common.Hash `json:"bundleHash"`
}

// FlashbotsBundle is the Flashbots eth_sendBundle shape.
type FlashbotsBundle struct {
	EthSendBundle
	ReplacementUUID string `json:"replacementUuid,omitempty"`
}

// BeaverBundle is the Beaverbuild eth_sendBundle shape. The deprecated
// replacementUuid is replaced by uuid. RefundPercent is between 1 and 99.
type BeaverBundle struct {
	EthSendBundle
	DroppingTxHashes []common.Hash   `json:"droppingTxHashes,omitempty"`
	UUID             string          `json:"uuid,omitempty"`
	RefundPercent    *uint64         `json:"refundPercent,omitempty"`
	RefundRecipient  *common.Address `json:"refundRecipient,omitempty"`
	RefundTxHashes   []common.Hash   `json:"refundTransactionHashes,omitempty"`
}

// TitanBundle is the Titan eth_sendBundle shape.
type TitanBundle struct {
	Txs               []hexutil.Bytes `json:"txs"`
	BlockNumber       hexutil.Uint64  `json:"blockNumber,omitempty"`
	RevertingTxHashes []common.Hash   `json:"revertingTxHashes,omitempty"`
	DroppingTxHashes  []common.Hash   `json:"droppingTxHashes,omitempty"`
	ReplacementUUID   string          `json:"replacementUuid,omitempty"`
	RefundPercent     *uint64         `json:"refundPercent,omitempty"`
	RefundIndex       *uint64         `json:"refundIndex,omitempty"`
	RefundRecipient   *common.Address `json:"refundRecipient,omitempty"`
}

func (b *TitanBundle) Transactions() []hexutil.Bytes { return b.Txs }
func (b *TitanBundle) TargetBlock() uint64          { return uint64(b.BlockNumber) }

// BundleFromRLPHex builds a bundle from hex encoded signed transactions,
// rejecting any that do not decode.
func BundleFromRLPHex(txs []string, blockNumber uint64) (EthSendBundle, error) {
	bundle := EthSendBundle{
		Txs:         make([]hexutil.Bytes, 0, len(txs)),
		BlockNumber: hexutil.Uint64(blockNumber),
	}
	for i, raw := range txs {
		encoded, err := hexutil.Decode(raw)
		if err != nil {
			return EthSendBundle{}, fmt.Errorf("%w %d: %w", ErrInvalidTransaction, i, err)
		}
		if _, err := DecodeTransaction(encoded); err != nil {
			return EthSendBundle{}, fmt.Errorf("%w %d: %w", ErrInvalidTransaction, i, err)
		}
		bundle.Txs = append(bundle.Txs, encoded)
	}
	return bundle, nil
}

func DecodeTransaction(encoded []byte) (*gethtypes.Transaction, error) {
	tx := new(gethtypes.Transaction)
	if err := tx.UnmarshalBinary(encoded); err != nil {
		return nil, err
	}
	return tx, nil
}

// TransactionHashes decodes every transaction of b and returns its hash.
func TransactionHashes(b Request) ([]common.Hash, error) {
	txs := b.Transactions()
	hashes := make([]common.Hash, len(txs))
	for i, encoded := range txs {
		tx, err := DecodeTransaction(encoded)
		if err != nil {
			return nil, fmt.Errorf("%w %d: %w", ErrInvalidTransaction, i, err)
		}
		hashes[i] = tx.Hash()
	}
	return hashes, nil
}
