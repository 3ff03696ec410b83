package test

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/stretchr/testify/require"
)

const Gwei = 1000000000

var (
	DefaultL2NetworkURL       = "http://127.0.0.1:8545"
	DefaultReplayURL          = "http://127.0.0.1:8650"
	DefaultReplayWSURL        = "ws://127.0.0.1:8650/ws"
	DefaultL2AdminPrivateKey  = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	DefaultL2AdminAddress     = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	DefaultTimeoutTxToBeMined = 30 * time.Second
)

// setupTestEnvironment waits for the node to produce its first block.
func setupTestEnvironment(t *testing.T, ctx context.Context, client *ethclient.Client) uint64 {
	var blockNumber uint64
	var err error
	for i := 0; i < 30; i++ {
		blockNumber, err = client.BlockNumber(ctx)
		require.NoError(t, err)
		if blockNumber > 0 {
			break
		}
		time.Sleep(1 * time.Second)
	}
	require.Greater(t, blockNumber, uint64(0), "Block number should be greater than 0")
	return blockNumber
}

func adminKey(t *testing.T) *ecdsa.PrivateKey {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(DefaultL2AdminPrivateKey, "0x"))
	require.NoError(t, err)
	return privateKey
}

func nativeTransferTx(t *testing.T, ctx context.Context, client *ethclient.Client, amount *big.Int, toAddress common.Address) *types.Transaction {
	chainID, err := client.ChainID(ctx)
	require.NoError(t, err)
	privateKey := adminKey(t)
	from := crypto.PubkeyToAddress(privateKey.PublicKey)

	nonce, err := client.PendingNonceAt(ctx, from)
	require.NoError(t, err)
	gasPrice, err := client.SuggestGasPrice(ctx)
	require.NoError(t, err)
	gas, err := client.EstimateGas(ctx, ethereum.CallMsg{
		From:  from,
		To:    &toAddress,
		Value: amount,
	})
	require.NoError(t, err)

	tx := types.NewTransaction(nonce, toAddress, amount, gas, gasPrice, nil)
	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), privateKey)
	require.NoError(t, err)
	require.NoError(t, client.SendTransaction(ctx, signedTx))
	return signedTx
}

// WaitTxToBeMined waits until a tx has been mined or the given timeout expires.
func WaitTxToBeMined(parentCtx context.Context, client *ethclient.Client, tx *types.Transaction, timeout time.Duration) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(parentCtx, timeout)
	defer cancel()

	queryTicker := time.NewTicker(100 * time.Millisecond)
	defer queryTicker.Stop()
	for {
		receipt, err := client.TransactionReceipt(ctx, tx.Hash())
		if err == nil {
			if receipt.Status == types.ReceiptStatusFailed {
				return nil, fmt.Errorf("transaction %s failed", tx.Hash())
			}
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-queryTicker.C:
		}
	}
}
