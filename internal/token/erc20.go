package token

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"
)

// erc20ABI is the minimal transfer surface of the stake token.
const erc20ABI = `[
  {"inputs":[{"name":"account","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
  {"inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"},
  {"inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"name":"transferFrom","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"},
  {"inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"}
]`

const erc20GasLimit = 100_000

// ERC20Ledger moves a real ERC-20 stable token on chain. The engine acts as
// custodian: internal accounts (market pools, the treasury vault) all resolve
// to the custodian address, participant accounts are hex addresses. A move
// between two internal accounts is pure bookkeeping and issues no transaction.
type ERC20Ledger struct {
	client    *ethclient.Client
	tokenAddr common.Address
	abi       abi.ABI

	key       *ecdsa.PrivateKey
	custodian common.Address
	chainID   *big.Int

	mu  sync.Mutex // serializes nonce use
	log *logrus.Entry
}

// DialERC20 connects to the RPC endpoint with a hex-encoded custodian key.
func DialERC20(ctx context.Context, rpcURL, hexKey string, tokenAddr common.Address, log *logrus.Logger) (*ERC20Ledger, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	hexKey = strings.TrimPrefix(hexKey, "0x")
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("chain id: %w", err)
	}
	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}

	custodian := crypto.PubkeyToAddress(key.PublicKey)
	return &ERC20Ledger{
		client:    client,
		tokenAddr: tokenAddr,
		abi:       parsed,
		key:       key,
		custodian: custodian,
		chainID:   chainID,
		log:       log.WithField("custodian", custodian.Hex()),
	}, nil
}

// Custodian returns the engine's on-chain address.
func (l *ERC20Ledger) Custodian() common.Address {
	return l.custodian
}

// resolve maps an engine account id to its on-chain address. Internal
// accounts live in the custodian wallet.
func (l *ERC20Ledger) resolve(account string) common.Address {
	if common.IsHexAddress(account) {
		return common.HexToAddress(account)
	}
	return l.custodian
}

// BalanceOf implements Ledger.
func (l *ERC20Ledger) BalanceOf(account string) (uint64, error) {
	data, err := l.abi.Pack("balanceOf", l.resolve(account))
	if err != nil {
		return 0, err
	}
	out, err := l.client.CallContract(context.Background(), ethereum.CallMsg{To: &l.tokenAddr, Data: data}, nil)
	if err != nil {
		return 0, fmt.Errorf("balanceOf: %w", err)
	}
	values, err := l.abi.Unpack("balanceOf", out)
	if err != nil {
		return 0, err
	}
	return values[0].(*big.Int).Uint64(), nil
}

// Transfer implements Ledger. from must resolve to the custodian.
func (l *ERC20Ledger) Transfer(from, to string, amount uint64) error {
	if l.resolve(from) != l.custodian {
		return fmt.Errorf("account %s is not held by the custodian", from)
	}
	toAddr := l.resolve(to)
	if toAddr == l.custodian {
		// Internal move, funds stay in custody.
		return nil
	}
	data, err := l.abi.Pack("transfer", toAddr, new(big.Int).SetUint64(amount))
	if err != nil {
		return err
	}
	return l.transact(data)
}

// TransferFrom implements Ledger. Pulls previously approved funds from a
// participant address into custody.
func (l *ERC20Ledger) TransferFrom(spender, from, to string, amount uint64) error {
	if l.resolve(spender) != l.custodian || l.resolve(to) != l.custodian {
		return fmt.Errorf("transferFrom must move funds into custody")
	}
	fromAddr := l.resolve(from)
	if fromAddr == l.custodian {
		return nil
	}
	data, err := l.abi.Pack("transferFrom", fromAddr, l.custodian, new(big.Int).SetUint64(amount))
	if err != nil {
		return err
	}
	return l.transact(data)
}

// Approve implements Ledger for the custodian's own allowances.
func (l *ERC20Ledger) Approve(owner, spender string, amount uint64) error {
	if l.resolve(owner) != l.custodian {
		return fmt.Errorf("account %s is not held by the custodian", owner)
	}
	data, err := l.abi.Pack("approve", l.resolve(spender), new(big.Int).SetUint64(amount))
	if err != nil {
		return err
	}
	return l.transact(data)
}

// transact signs, submits and waits for one token call. Waiting for the
// receipt keeps the engine's atomicity contract: a caller only sees success
// after the funds actually moved.
func (l *ERC20Ledger) transact(data []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	ctx := context.Background()
	nonce, err := l.client.PendingNonceAt(ctx, l.custodian)
	if err != nil {
		return fmt.Errorf("nonce: %w", err)
	}
	gasPrice, err := l.client.SuggestGasPrice(ctx)
	if err != nil {
		return fmt.Errorf("gas price: %w", err)
	}

	tx := types.NewTransaction(nonce, l.tokenAddr, big.NewInt(0), erc20GasLimit, gasPrice, data)
	signed, err := types.SignTx(tx, types.NewEIP155Signer(l.chainID), l.key)
	if err != nil {
		return fmt.Errorf("sign tx: %w", err)
	}
	if err := l.client.SendTransaction(ctx, signed); err != nil {
		return fmt.Errorf("send tx: %w", err)
	}

	receipt, err := bind.WaitMined(ctx, l.client, signed)
	if err != nil {
		return fmt.Errorf("wait mined: %w", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("token transaction %s reverted", signed.Hash().Hex())
	}
	l.log.WithField("tx", signed.Hash().Hex()).Debug("Token transfer mined")
	return nil
}

// Close releases the RPC connection.
func (l *ERC20Ledger) Close() {
	l.client.Close()
}
