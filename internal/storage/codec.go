package storage

import (
	"encoding/json"
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Telcoin-Association/telcoin-application-network-issuance-sub000/internal/domain"
)

// Checkpoint wire format. Large integers are decimal strings so no
// precision is lost crossing JSON; owners are hex addresses with null
// meaning unassigned. Position and LP lists are sorted for stable
// output.

type checkpointJSON struct {
	PoolID      string         `json:"poolId"`
	Period      uint64         `json:"period"`
	StartBlock  uint64         `json:"startBlock"`
	EndBlock    uint64         `json:"endBlock"`
	Currency0   string         `json:"currency0"`
	Currency1   string         `json:"currency1"`
	Denominator string         `json:"denominator"`
	Positions   []positionJSON `json:"positions"`
	LP          []lpJSON       `json:"lpData"`
}

type positionJSON struct {
	Key              string       `json:"key"`
	TickLower        int32        `json:"tickLower"`
	TickUpper        int32        `json:"tickUpper"`
	Liquidity        string       `json:"liquidity"`
	LastOwner        *string      `json:"lastOwner"`
	FeeGrowthInside0 string       `json:"feeGrowthInside0"`
	FeeGrowthInside1 string       `json:"feeGrowthInside1"`
	Timeline         []changeJSON `json:"liquidityModifications"`
}

type changeJSON struct {
	Block     uint64  `json:"blockNumber"`
	Liquidity string  `json:"liquidity"`
	Owner     *string `json:"owner"`
}

type lpJSON struct {
	Owner           string `json:"owner"`
	Fees0           string `json:"periodFeesCurrency0"`
	Fees1           string `json:"periodFeesCurrency1"`
	FeesDenominator string `json:"totalFeesCommonDenominator"`
	Reward          string `json:"reward"`
}

// EncodeCheckpoint serializes a checkpoint losslessly to JSON.
func EncodeCheckpoint(cp *domain.Checkpoint) ([]byte, error) {
	if cp == nil {
		return nil, ErrInvalidInput
	}

	out := checkpointJSON{
		PoolID:      cp.PoolID.Hex(),
		Period:      cp.Period,
		StartBlock:  cp.StartBlock,
		EndBlock:    cp.EndBlock,
		Currency0:   cp.Currency0.Hex(),
		Currency1:   cp.Currency1.Hex(),
		Denominator: cp.Denominator.Hex(),
	}

	keys := make([]string, 0, len(cp.Positions))
	for k := range cp.Positions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		p := cp.Positions[k]
		pj := positionJSON{
			Key:              p.Key.String(),
			TickLower:        p.TickLower,
			TickUpper:        p.TickUpper,
			Liquidity:        p.Liquidity.String(),
			LastOwner:        encodeOwner(p.LastOwner),
			FeeGrowthInside0: p.FeeGrowthInside0.String(),
			FeeGrowthInside1: p.FeeGrowthInside1.String(),
		}
		for _, c := range p.Timeline {
			pj.Timeline = append(pj.Timeline, changeJSON{
				Block:     c.Block,
				Liquidity: c.Liquidity.String(),
				Owner:     encodeOwner(c.Owner),
			})
		}
		out.Positions = append(out.Positions, pj)
	}

	owners := make([]common.Address, 0, len(cp.LP))
	for addr := range cp.LP {
		owners = append(owners, addr)
	}
	sort.Slice(owners, func(i, j int) bool {
		return owners[i].Cmp(owners[j]) < 0
	})
	for _, addr := range owners {
		data := cp.LP[addr]
		out.LP = append(out.LP, lpJSON{
			Owner:           addr.Hex(),
			Fees0:           data.Fees0.String(),
			Fees1:           data.Fees1.String(),
			FeesDenominator: data.FeesDenominator.String(),
			Reward:          data.Reward.String(),
		})
	}

	return json.MarshalIndent(out, "", "  ")
}

// DecodeCheckpoint parses a checkpoint produced by EncodeCheckpoint.
func DecodeCheckpoint(raw []byte) (*domain.Checkpoint, error) {
	var in checkpointJSON
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("unmarshal checkpoint: %w", err)
	}

	cp := domain.NewCheckpoint(common.HexToHash(in.PoolID), in.Period, in.StartBlock, in.EndBlock)
	cp.Currency0 = common.HexToAddress(in.Currency0)
	cp.Currency1 = common.HexToAddress(in.Currency1)
	cp.Denominator = common.HexToAddress(in.Denominator)

	for _, pj := range in.Positions {
		key, err := parseBig(pj.Key)
		if err != nil {
			return nil, fmt.Errorf("position key: %w", err)
		}
		pos := domain.NewPosition(key, pj.TickLower, pj.TickUpper)
		if pos.Liquidity, err = parseBig(pj.Liquidity); err != nil {
			return nil, fmt.Errorf("position %s liquidity: %w", pj.Key, err)
		}
		if pos.FeeGrowthInside0, err = parseBig(pj.FeeGrowthInside0); err != nil {
			return nil, fmt.Errorf("position %s feeGrowthInside0: %w", pj.Key, err)
		}
		if pos.FeeGrowthInside1, err = parseBig(pj.FeeGrowthInside1); err != nil {
			return nil, fmt.Errorf("position %s feeGrowthInside1: %w", pj.Key, err)
		}
		pos.LastOwner = decodeOwner(pj.LastOwner)
		for _, cj := range pj.Timeline {
			liq, err := parseBig(cj.Liquidity)
			if err != nil {
				return nil, fmt.Errorf("position %s timeline liquidity: %w", pj.Key, err)
			}
			pos.Timeline = append(pos.Timeline, domain.LiquidityChange{
				Block:     cj.Block,
				Liquidity: liq,
				Owner:     decodeOwner(cj.Owner),
			})
		}
		cp.Positions[pos.KeyString()] = pos
	}

	for _, lj := range in.LP {
		data := domain.NewLPData()
		var err error
		if data.Fees0, err = parseBig(lj.Fees0); err != nil {
			return nil, fmt.Errorf("lp %s fees0: %w", lj.Owner, err)
		}
		if data.Fees1, err = parseBig(lj.Fees1); err != nil {
			return nil, fmt.Errorf("lp %s fees1: %w", lj.Owner, err)
		}
		if data.FeesDenominator, err = parseBig(lj.FeesDenominator); err != nil {
			return nil, fmt.Errorf("lp %s feesDenominator: %w", lj.Owner, err)
		}
		if data.Reward, err = parseBig(lj.Reward); err != nil {
			return nil, fmt.Errorf("lp %s reward: %w", lj.Owner, err)
		}
		cp.LP[common.HexToAddress(lj.Owner)] = data
	}

	return cp, nil
}

// CloneCheckpoint deep-copies a checkpoint via the wire codec, so
// stores can hand out copies without sharing big.Int state.
func CloneCheckpoint(cp *domain.Checkpoint) (*domain.Checkpoint, error) {
	raw, err := EncodeCheckpoint(cp)
	if err != nil {
		return nil, err
	}
	return DecodeCheckpoint(raw)
}

func encodeOwner(o domain.Owner) *string {
	addr, ok := o.Address()
	if !ok {
		return nil
	}
	s := addr.Hex()
	return &s
}

func decodeOwner(s *string) domain.Owner {
	if s == nil {
		return domain.NoOwner()
	}
	return domain.OwnerOf(common.HexToAddress(*s))
}

func parseBig(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", s)
	}
	return v, nil
}
