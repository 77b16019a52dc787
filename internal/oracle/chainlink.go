package oracle

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
)

// aggregatorABI is the read surface of a Chainlink AggregatorV3 feed.
const aggregatorABI = `[
  {"inputs":[],"name":"decimals","outputs":[{"internalType":"uint8","name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
  {"inputs":[],"name":"latestRoundData","outputs":[
    {"internalType":"uint80","name":"roundId","type":"uint80"},
    {"internalType":"int256","name":"answer","type":"int256"},
    {"internalType":"uint256","name":"startedAt","type":"uint256"},
    {"internalType":"uint256","name":"updatedAt","type":"uint256"},
    {"internalType":"uint80","name":"answeredInRound","type":"uint80"}
  ],"stateMutability":"view","type":"function"}
]`

// ChainlinkFeed reads a Chainlink aggregator over JSON-RPC.
type ChainlinkFeed struct {
	client   *ethclient.Client
	address  common.Address
	abi      abi.ABI
	decimals int32
}

// DialChainlinkFeed connects to the RPC endpoint and caches the feed's
// decimals so later reads are a single call.
func DialChainlinkFeed(ctx context.Context, rpcURL string, address common.Address) (*ChainlinkFeed, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}

	parsed, err := abi.JSON(strings.NewReader(aggregatorABI))
	if err != nil {
		return nil, fmt.Errorf("parse aggregator abi: %w", err)
	}

	feed := &ChainlinkFeed{client: client, address: address, abi: parsed}

	data, err := parsed.Pack("decimals")
	if err != nil {
		return nil, err
	}
	out, err := client.CallContract(ctx, ethereum.CallMsg{To: &address, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("read decimals: %w", err)
	}
	values, err := parsed.Unpack("decimals", out)
	if err != nil {
		return nil, fmt.Errorf("unpack decimals: %w", err)
	}
	feed.decimals = int32(values[0].(uint8))

	return feed, nil
}

// ReadValue fetches latestRoundData and converts the answer into a decimal
// in the feed's quote units.
func (f *ChainlinkFeed) ReadValue(ctx context.Context) (Reading, error) {
	data, err := f.abi.Pack("latestRoundData")
	if err != nil {
		return Reading{}, err
	}
	out, err := f.client.CallContract(ctx, ethereum.CallMsg{To: &f.address, Data: data}, nil)
	if err != nil {
		return Reading{}, fmt.Errorf("latestRoundData: %w", err)
	}
	values, err := f.abi.Unpack("latestRoundData", out)
	if err != nil {
		return Reading{}, fmt.Errorf("unpack latestRoundData: %w", err)
	}

	answer := values[1].(*big.Int)
	updatedAt := values[3].(*big.Int)

	return Reading{
		Value:      decimal.NewFromBigInt(answer, -f.decimals),
		ObservedAt: time.Unix(updatedAt.Int64(), 0),
	}, nil
}

// Close releases the RPC connection.
func (f *ChainlinkFeed) Close() {
	f.client.Close()
}
