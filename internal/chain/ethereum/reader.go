// Package ethereum implements chain.PoolReader against a live EVM node
// using the pool manager's event log and the state-view lens contract.
package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	ethereumapi "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/Telcoin-Association/telcoin-application-network-issuance-sub000/internal/chain"
	"github.com/Telcoin-Association/telcoin-application-network-issuance-sub000/internal/domain"
	"github.com/Telcoin-Association/telcoin-application-network-issuance-sub000/internal/observability"
)

// stateViewABI covers the lens reads the engine needs. All functions are
// views keyed by pool ID.
const stateViewABI = `[
	{"name":"getFeeGrowthInside","type":"function","stateMutability":"view","inputs":[{"name":"poolId","type":"bytes32"},{"name":"tickLower","type":"int24"},{"name":"tickUpper","type":"int24"}],"outputs":[{"name":"feeGrowthInside0X128","type":"uint256"},{"name":"feeGrowthInside1X128","type":"uint256"}]},
	{"name":"getFeeGrowthGlobals","type":"function","stateMutability":"view","inputs":[{"name":"poolId","type":"bytes32"}],"outputs":[{"name":"feeGrowthGlobal0","type":"uint256"},{"name":"feeGrowthGlobal1","type":"uint256"}]},
	{"name":"getSlot0","type":"function","stateMutability":"view","inputs":[{"name":"poolId","type":"bytes32"}],"outputs":[{"name":"sqrtPriceX96","type":"uint160"},{"name":"tick","type":"int24"},{"name":"protocolFee","type":"uint24"},{"name":"lpFee","type":"uint24"}]},
	{"name":"getTickBitmap","type":"function","stateMutability":"view","inputs":[{"name":"poolId","type":"bytes32"},{"name":"tick","type":"int16"}],"outputs":[{"name":"tickBitmap","type":"uint256"}]},
	{"name":"getTickFeeGrowthOutside","type":"function","stateMutability":"view","inputs":[{"name":"poolId","type":"bytes32"},{"name":"tick","type":"int24"}],"outputs":[{"name":"feeGrowthOutside0X128","type":"uint256"},{"name":"feeGrowthOutside1X128","type":"uint256"}]}
]`

// positionTokenABI is the slice of the position manager's ERC-721
// surface used for owner resolution.
const positionTokenABI = `[
	{"name":"ownerOf","type":"function","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"owner","type":"address"}]}
]`

// modifyLiquidityTopic is the pool manager's
// ModifyLiquidity(bytes32,address,int24,int24,int256,bytes32) signature.
var modifyLiquidityTopic = crypto.Keccak256Hash(
	[]byte("ModifyLiquidity(bytes32,address,int24,int24,int256,bytes32)"),
)

// Reader reads pool state and events from an Ethereum node.
type Reader struct {
	ec            *ethclient.Client
	logger        *zap.Logger
	poolManager   common.Address
	stateView     common.Address
	positionToken common.Address
	svABI         abi.ABI
	erc721ABI     abi.ABI
}

// Config locates the three contracts a Reader talks to.
type Config struct {
	PoolManager   common.Address
	StateView     common.Address
	PositionToken common.Address
}

// NewReader creates a Reader on top of an established client connection.
func NewReader(ec *ethclient.Client, cfg Config, logger *zap.Logger) (*Reader, error) {
	svABI, err := abi.JSON(strings.NewReader(stateViewABI))
	if err != nil {
		return nil, fmt.Errorf("parse state view abi: %w", err)
	}
	erc721ABI, err := abi.JSON(strings.NewReader(positionTokenABI))
	if err != nil {
		return nil, fmt.Errorf("parse position token abi: %w", err)
	}
	return &Reader{
		ec:            ec,
		logger:        logger,
		poolManager:   cfg.PoolManager,
		stateView:     cfg.StateView,
		positionToken: cfg.PositionToken,
		svABI:         svABI,
		erc721ABI:     erc721ABI,
	}, nil
}

// Compile-time interface check.
var _ chain.PoolReader = (*Reader)(nil)

// Dial connects to an RPC endpoint and wraps it in a Reader.
func Dial(ctx context.Context, rpcURL string, cfg Config, logger *zap.Logger) (*Reader, error) {
	ec, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial ethereum rpc: %w", err)
	}
	return NewReader(ec, cfg, logger)
}

// ModificationEvents filters the pool manager's ModifyLiquidity logs for
// one pool and decodes them into validated events sorted by
// (block, log index).
func (r *Reader) ModificationEvents(ctx context.Context, poolID common.Hash, fromBlock, toBlock uint64) ([]*domain.ModifyLiquidityEvent, error) {
	query := ethereumapi.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{r.poolManager},
		Topics:    [][]common.Hash{{modifyLiquidityTopic}, {poolID}},
	}

	logs, err := r.ec.FilterLogs(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("filter modify liquidity logs: %w", err)
	}

	events := make([]*domain.ModifyLiquidityEvent, 0, len(logs))
	for _, l := range logs {
		if l.Removed {
			continue
		}
		ev, err := decodeModifyLiquidity(&l)
		if err != nil {
			return nil, fmt.Errorf("decode log %s/%d: %w", l.TxHash.Hex(), l.Index, err)
		}
		events = append(events, ev)
	}

	domain.SortModifyEvents(events)
	r.logger.Debug("fetched modification events",
		zap.String("pool", poolID.Hex()),
		zap.Uint64("fromBlock", fromBlock),
		zap.Uint64("toBlock", toBlock),
		zap.Int("count", len(events)),
	)
	return events, nil
}

// OwnerOf resolves the position token holder at a block. A reverting
// ownerOf call means the token does not exist at that block, reported
// as an unassigned owner rather than an error.
func (r *Reader) OwnerOf(ctx context.Context, key *big.Int, atBlock uint64) (domain.Owner, error) {
	input, err := r.erc721ABI.Pack("ownerOf", key)
	if err != nil {
		return domain.NoOwner(), fmt.Errorf("pack ownerOf: %w", err)
	}

	out, err := r.call(ctx, "ownerOf", r.positionToken, input, atBlock)
	if err != nil {
		// ownerOf reverts for burned or never-minted token IDs. A
		// transport failure is not a revert and must not be mistaken
		// for one: that would silently drop the position's owner.
		if isRevert(err) {
			return domain.NoOwner(), nil
		}
		return domain.NoOwner(), fmt.Errorf("ownerOf(%s)@%d: %w", key, atBlock, err)
	}

	vals, err := r.erc721ABI.Unpack("ownerOf", out)
	if err != nil {
		return domain.NoOwner(), fmt.Errorf("unpack ownerOf: %w", err)
	}
	return domain.OwnerOf(vals[0].(common.Address)), nil
}

// IsPositionClosed reports whether the position token has been burned.
func (r *Reader) IsPositionClosed(ctx context.Context, key *big.Int, atBlock uint64) (bool, error) {
	owner, err := r.OwnerOf(ctx, key, atBlock)
	if err != nil {
		return false, err
	}
	return !owner.Assigned(), nil
}

// FeeGrowthInside queries the lens helper directly. Reverts map to
// chain.ErrUnavailable so the adapter can fall back to the derived path.
func (r *Reader) FeeGrowthInside(ctx context.Context, poolID common.Hash, tickLower, tickUpper int32, atBlock uint64) (chain.FeeGrowth, error) {
	input, err := r.svABI.Pack("getFeeGrowthInside", poolID, big.NewInt(int64(tickLower)), big.NewInt(int64(tickUpper)))
	if err != nil {
		return chain.FeeGrowth{}, fmt.Errorf("pack getFeeGrowthInside: %w", err)
	}

	out, err := r.call(ctx, "getFeeGrowthInside", r.stateView, input, atBlock)
	if err != nil {
		if isRevert(err) {
			return chain.FeeGrowth{}, fmt.Errorf("%w: getFeeGrowthInside(%d,%d)@%d: %v",
				chain.ErrUnavailable, tickLower, tickUpper, atBlock, err)
		}
		return chain.FeeGrowth{}, fmt.Errorf("getFeeGrowthInside(%d,%d)@%d: %w", tickLower, tickUpper, atBlock, err)
	}
	return r.unpackFeeGrowthPair("getFeeGrowthInside", out)
}

// GlobalFeeGrowth returns the pool-wide counters.
func (r *Reader) GlobalFeeGrowth(ctx context.Context, poolID common.Hash, atBlock uint64) (chain.FeeGrowth, error) {
	input, err := r.svABI.Pack("getFeeGrowthGlobals", poolID)
	if err != nil {
		return chain.FeeGrowth{}, fmt.Errorf("pack getFeeGrowthGlobals: %w", err)
	}

	out, err := r.call(ctx, "getFeeGrowthGlobals", r.stateView, input, atBlock)
	if err != nil {
		return chain.FeeGrowth{}, fmt.Errorf("getFeeGrowthGlobals@%d: %w", atBlock, err)
	}
	return r.unpackFeeGrowthPair("getFeeGrowthGlobals", out)
}

// CurrentTick returns the pool's active tick from slot0.
func (r *Reader) CurrentTick(ctx context.Context, poolID common.Hash, atBlock uint64) (int32, error) {
	input, err := r.svABI.Pack("getSlot0", poolID)
	if err != nil {
		return 0, fmt.Errorf("pack getSlot0: %w", err)
	}

	out, err := r.call(ctx, "getSlot0", r.stateView, input, atBlock)
	if err != nil {
		return 0, fmt.Errorf("getSlot0@%d: %w", atBlock, err)
	}

	vals, err := r.svABI.Unpack("getSlot0", out)
	if err != nil {
		return 0, fmt.Errorf("unpack getSlot0: %w", err)
	}
	return int32(vals[1].(*big.Int).Int64()), nil
}

// TickBitmapWord returns one word of the initialized-tick bitmap.
func (r *Reader) TickBitmapWord(ctx context.Context, poolID common.Hash, wordIndex int16, atBlock uint64) (*uint256.Int, error) {
	input, err := r.svABI.Pack("getTickBitmap", poolID, big.NewInt(int64(wordIndex)))
	if err != nil {
		return nil, fmt.Errorf("pack getTickBitmap: %w", err)
	}

	out, err := r.call(ctx, "getTickBitmap", r.stateView, input, atBlock)
	if err != nil {
		return nil, fmt.Errorf("getTickBitmap(%d)@%d: %w", wordIndex, atBlock, err)
	}

	vals, err := r.svABI.Unpack("getTickBitmap", out)
	if err != nil {
		return nil, fmt.Errorf("unpack getTickBitmap: %w", err)
	}
	word, overflow := uint256.FromBig(vals[0].(*big.Int))
	if overflow {
		return nil, fmt.Errorf("tick bitmap word out of range")
	}
	return word, nil
}

// FeeGrowthOutside returns the counters recorded at one tick.
func (r *Reader) FeeGrowthOutside(ctx context.Context, poolID common.Hash, tick int32, atBlock uint64) (chain.FeeGrowth, error) {
	input, err := r.svABI.Pack("getTickFeeGrowthOutside", poolID, big.NewInt(int64(tick)))
	if err != nil {
		return chain.FeeGrowth{}, fmt.Errorf("pack getTickFeeGrowthOutside: %w", err)
	}

	out, err := r.call(ctx, "getTickFeeGrowthOutside", r.stateView, input, atBlock)
	if err != nil {
		return chain.FeeGrowth{}, fmt.Errorf("getTickFeeGrowthOutside(%d)@%d: %w", tick, atBlock, err)
	}
	return r.unpackFeeGrowthPair("getTickFeeGrowthOutside", out)
}

// isRevert reports whether an eth_call failed inside the EVM rather
// than in transport. Geth-style nodes attach the revert return data
// through rpc.DataError; some providers send only the message.
func isRevert(err error) bool {
	var de rpc.DataError
	if errors.As(err, &de) && de.ErrorData() != nil {
		return true
	}
	return strings.Contains(err.Error(), "execution reverted")
}

// call performs an eth_call pinned to a historic block.
func (r *Reader) call(ctx context.Context, method string, to common.Address, input []byte, atBlock uint64) ([]byte, error) {
	msg := ethereumapi.CallMsg{To: &to, Data: input}
	start := time.Now()
	out, err := r.ec.CallContract(ctx, msg, new(big.Int).SetUint64(atBlock))
	observability.RecordChainCall(method, time.Since(start).Seconds(), err)
	return out, err
}

// unpackFeeGrowthPair decodes a (uint256, uint256) counter pair.
func (r *Reader) unpackFeeGrowthPair(method string, out []byte) (chain.FeeGrowth, error) {
	vals, err := r.svABI.Unpack(method, out)
	if err != nil {
		return chain.FeeGrowth{}, fmt.Errorf("unpack %s: %w", method, err)
	}
	fee0, overflow0 := uint256.FromBig(vals[0].(*big.Int))
	fee1, overflow1 := uint256.FromBig(vals[1].(*big.Int))
	if overflow0 || overflow1 {
		return chain.FeeGrowth{}, fmt.Errorf("%s: counter out of range", method)
	}
	return chain.FeeGrowth{Fee0: fee0, Fee1: fee1}, nil
}

// decodeModifyLiquidity unpacks one ModifyLiquidity log.
// Topics: [signature, poolId, sender]. Data words: tickLower (int24),
// tickUpper (int24), liquidityDelta (int256), salt (bytes32). The salt
// is the position token ID, which the engine uses as the position key.
func decodeModifyLiquidity(l *types.Log) (*domain.ModifyLiquidityEvent, error) {
	if len(l.Topics) != 3 {
		return nil, fmt.Errorf("expected 3 topics, got %d", len(l.Topics))
	}
	if len(l.Data) != 4*32 {
		return nil, fmt.Errorf("expected 128 data bytes, got %d", len(l.Data))
	}

	return &domain.ModifyLiquidityEvent{
		Key:            new(big.Int).SetBytes(l.Data[3*32 : 4*32]),
		TickLower:      tickAt(l.Data, 0),
		TickUpper:      tickAt(l.Data, 32),
		LiquidityDelta: signedWordAt(l.Data, 64),
		Block:          l.BlockNumber,
		LogIndex:       l.Index,
	}, nil
}

// tickAt reads a big-endian int24 packed into the low bytes of a
// 32-byte ABI word.
func tickAt(data []byte, wordOffset int) int32 {
	off := wordOffset + 29
	v := int32(uint32(data[off])<<16 | uint32(data[off+1])<<8 | uint32(data[off+2]))
	if v&0x800000 != 0 {
		v -= 1 << 24
	}
	return v
}

// signedWordAt reads a two's-complement int256 ABI word.
func signedWordAt(data []byte, wordOffset int) *big.Int {
	v := new(big.Int).SetBytes(data[wordOffset : wordOffset+32])
	if data[wordOffset]&0x80 != 0 {
		v.Sub(v, twoTo256)
	}
	return v
}

var twoTo256 = new(big.Int).Lsh(big.NewInt(1), 256)
