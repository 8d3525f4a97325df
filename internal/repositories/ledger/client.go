package ledger

import (
	"context"
	"errors"
	"math/big"

	"github.com/FireFistisDead/SmartPay-sub004/internal/interfaces"
	"github.com/FireFistisDead/SmartPay-sub004/internal/lib"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ErrSource marks transient failures of the ledger node. The sync engine
// retries these with backoff.
var ErrSource = errors.New("ledger source error")

// EthereumClient is the subset of ethclient.Client the ledger source needs
type EthereumClient interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
}

// Client reads the append-only event log of a single escrow contract.
// It never writes to the chain.
type Client struct {
	client EthereumClient
	addr   common.Address
	log    interfaces.ILogger
}

func NewClient(client EthereumClient, escrowAddr common.Address, log interfaces.ILogger) *Client {
	return &Client{
		client: client,
		addr:   escrowAddr,
		log:    log,
	}
}

// HeadBlock returns the current height of the ledger
func (c *Client) HeadBlock(ctx context.Context) (uint64, error) {
	head, err := c.client.BlockNumber(ctx)
	if err != nil {
		return 0, lib.WrapError(ErrSource, err)
	}
	return head, nil
}

// FetchLogs returns all escrow contract logs in [fromBlock, toBlock] inclusive.
// Removed (reorged-out) logs are dropped before they reach the decoder.
func (c *Client) FetchLogs(ctx context.Context, fromBlock, toBlock uint64) ([]types.Log, error) {
	query := ethereum.FilterQuery{
		Addresses: []common.Address{c.addr},
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
	}

	logs, err := c.client.FilterLogs(ctx, query)
	if err != nil {
		return nil, lib.WrapError(ErrSource, err)
	}

	filtered := logs[:0]
	for _, l := range logs {
		if l.Removed {
			c.log.Warnf("skipping removed log, block %d index %d", l.BlockNumber, l.Index)
			continue
		}
		filtered = append(filtered, l)
	}
	return filtered, nil
}
