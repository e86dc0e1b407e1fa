package treasury

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

const transferGasLimit = 21000

// ChainClient moves funds on chain from the platform hot wallet to the
// payout address. All sends go through a single signing key.
type ChainClient struct {
	client  *ethclient.Client
	key     *ecdsa.PrivateKey
	from    common.Address
	payout  common.Address
	chainID *big.Int
	logger  *zap.Logger
}

// NewChainClient connects to the given RPC endpoint.
func NewChainClient(rpcURL, signingKey, payoutAddr string, chainID int64, logger *zap.Logger) (*ChainClient, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to chain RPC: %w", err)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(signingKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parsing signing key: %w", err)
	}

	if !common.IsHexAddress(payoutAddr) {
		return nil, fmt.Errorf("invalid payout address %q", payoutAddr)
	}

	return &ChainClient{
		client:  client,
		key:     key,
		from:    crypto.PubkeyToAddress(key.PublicKey),
		payout:  common.HexToAddress(payoutAddr),
		chainID: big.NewInt(chainID),
		logger:  logger,
	}, nil
}

// Forward sends amount wei to the payout address and returns the
// transaction hash.
func (c *ChainClient) Forward(ctx context.Context, amount *big.Int) (string, error) {
	return c.send(ctx, c.payout, amount)
}

// Residual returns the hot-wallet balance that a sweep could recover,
// net of the gas the sweep itself would burn.
func (c *ChainClient) Residual(ctx context.Context) (*big.Int, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	balance, err := c.client.BalanceAt(ctx, c.from, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching balance: %w", err)
	}
	gasPrice, err := c.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching gas price: %w", err)
	}
	cost := new(big.Int).Mul(gasPrice, big.NewInt(transferGasLimit))
	residual := new(big.Int).Sub(balance, cost)
	if residual.Sign() < 0 {
		return big.NewInt(0), nil
	}
	return residual, nil
}

// Sweep sends the recoverable residual balance to the payout address.
func (c *ChainClient) Sweep(ctx context.Context) (string, *big.Int, error) {
	residual, err := c.Residual(ctx)
	if err != nil {
		return "", nil, err
	}
	if residual.Sign() == 0 {
		return "", big.NewInt(0), nil
	}
	hash, err := c.send(ctx, c.payout, residual)
	return hash, residual, err
}

func (c *ChainClient) send(ctx context.Context, to common.Address, amount *big.Int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	nonce, err := c.client.PendingNonceAt(ctx, c.from)
	if err != nil {
		return "", fmt.Errorf("fetching nonce: %w", err)
	}
	gasPrice, err := c.client.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("fetching gas price: %w", err)
	}

	tx := types.NewTransaction(nonce, to, amount, transferGasLimit, gasPrice, nil)
	signed, err := types.SignTx(tx, types.NewLondonSigner(c.chainID), c.key)
	if err != nil {
		return "", fmt.Errorf("signing transaction: %w", err)
	}
	if err := c.client.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("broadcasting transaction: %w", err)
	}

	c.logger.Info("funds transfer broadcast",
		zap.String("tx_hash", signed.Hash().Hex()),
		zap.String("to", to.Hex()),
		zap.String("amount_wei", amount.String()))
	return signed.Hash().Hex(), nil
}
