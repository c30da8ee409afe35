package mint

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

const mintABI = `[{"inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"name":"mint","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"}]`

// DefaultGasLimit bounds the gas supplied to a mint transaction.
const DefaultGasLimit = 200_000

// EVMMinter submits signed mint transactions against the reward token contract.
type EVMMinter struct {
	client   *ethclient.Client
	key      *ecdsa.PrivateKey
	from     common.Address
	token    common.Address
	chainID  *big.Int
	gasLimit uint64
	abi      abi.ABI
}

// NewEVMMinter dials the RPC endpoint, loads the admin signing key and resolves
// the chain ID. The returned minter is ready for use.
func NewEVMMinter(ctx context.Context, rpcURL, signerKeyHex string, token common.Address, gasLimit uint64) (*EVMMinter, error) {
	if strings.TrimSpace(rpcURL) == "" {
		return nil, fmt.Errorf("mint: rpc url required")
	}
	keyHex := strings.TrimPrefix(strings.TrimSpace(signerKeyHex), "0x")
	if keyHex == "" {
		return nil, fmt.Errorf("mint: signer key required")
	}
	key, err := gethcrypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("mint: load signer key: %w", err)
	}
	client, err := ethclient.DialContext(ctx, strings.TrimSpace(rpcURL))
	if err != nil {
		return nil, fmt.Errorf("mint: dial rpc: %w", err)
	}
	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("mint: resolve chain id: %w", err)
	}
	parsed, err := abi.JSON(strings.NewReader(mintABI))
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("mint: parse abi: %w", err)
	}
	if gasLimit == 0 {
		gasLimit = DefaultGasLimit
	}
	return &EVMMinter{
		client:   client,
		key:      key,
		from:     gethcrypto.PubkeyToAddress(key.PublicKey),
		token:    token,
		chainID:  chainID,
		gasLimit: gasLimit,
		abi:      parsed,
	}, nil
}

// Ready reports whether the minter can submit transactions.
func (m *EVMMinter) Ready() bool {
	return m != nil && m.client != nil && m.key != nil
}

// From returns the admin account address used to sign mints.
func (m *EVMMinter) From() common.Address {
	return m.from
}

// Close releases the underlying RPC client.
func (m *EVMMinter) Close() {
	if m != nil && m.client != nil {
		m.client.Close()
	}
}

// Mint builds, signs and submits a mint transaction, then waits for the
// receipt. The caller bounds the wait through ctx.
func (m *EVMMinter) Mint(ctx context.Context, recipient common.Address, amount *big.Int) (Receipt, error) {
	if !m.Ready() {
		return Receipt{}, fmt.Errorf("mint: minter not configured")
	}
	if amount == nil || amount.Sign() <= 0 {
		return Receipt{}, fmt.Errorf("mint: amount must be positive")
	}
	nonce, err := m.client.PendingNonceAt(ctx, m.from)
	if err != nil {
		return Receipt{}, fmt.Errorf("mint: fetch nonce: %w", err)
	}
	gasPrice, err := m.client.SuggestGasPrice(ctx)
	if err != nil {
		return Receipt{}, fmt.Errorf("mint: suggest gas price: %w", err)
	}
	// 20% premium so settlement is not stranded behind a fee spike.
	gasPrice.Mul(gasPrice, big.NewInt(120))
	gasPrice.Div(gasPrice, big.NewInt(100))
	data, err := m.abi.Pack("mint", recipient, amount)
	if err != nil {
		return Receipt{}, fmt.Errorf("mint: pack calldata: %w", err)
	}
	tx := gethtypes.NewTx(&gethtypes.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      m.gasLimit,
		To:       &m.token,
		Data:     data,
	})
	signed, err := gethtypes.SignTx(tx, gethtypes.LatestSignerForChainID(m.chainID), m.key)
	if err != nil {
		return Receipt{}, fmt.Errorf("mint: sign transaction: %w", err)
	}
	if err := m.client.SendTransaction(ctx, signed); err != nil {
		return Receipt{}, fmt.Errorf("mint: send transaction: %w", err)
	}
	receipt, err := bind.WaitMined(ctx, m.client, signed)
	if err != nil {
		return Receipt{TxHash: signed.Hash().Hex()}, fmt.Errorf("mint: wait for receipt: %w", err)
	}
	out := Receipt{
		TxHash:    signed.Hash().Hex(),
		Confirmed: receipt.Status == gethtypes.ReceiptStatusSuccessful,
	}
	if receipt.BlockNumber != nil {
		out.BlockNumber = receipt.BlockNumber.Uint64()
	}
	return out, nil
}

var _ Minter = (*EVMMinter)(nil)
