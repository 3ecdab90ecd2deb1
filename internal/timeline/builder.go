// Package timeline reconciles liquidity-modification events with the
// previous period's position state into complete per-position timelines
// spanning exactly the requested period.
package timeline

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"go.uber.org/zap"

	"github.com/Telcoin-Association/telcoin-application-network-issuance-sub000/internal/chain"
	"github.com/Telcoin-Association/telcoin-application-network-issuance-sub000/internal/domain"
)

// Errors returned by the builder.
var (
	// ErrUnordered is returned when the event list is not strictly
	// ordered by (block, log index).
	ErrUnordered = errors.New("events are not in deterministic order")

	// ErrMissingEventFields indicates an event that cannot seed a new
	// position record. This is an internal invariant violation, not a
	// data error.
	ErrMissingEventFields = errors.New("event is missing required fields")
)

// Builder folds events into position timelines.
type Builder struct {
	reader chain.PoolReader
	logger *zap.Logger
}

// NewBuilder creates a Builder using the reader for owner resolution
// and closed-position checks.
func NewBuilder(reader chain.PoolReader, logger *zap.Logger) *Builder {
	return &Builder{reader: reader, logger: logger}
}

// Build produces the period's position map. Every returned position has
// a timeline whose first point sits at startBlock and last point at
// endBlock, with non-decreasing blocks and liquidity constant between
// consecutive points.
//
// prev is the previous checkpoint's position map (nil or empty on the
// program's first period); events must be sorted ascending by
// (block, log index) and restricted to [startBlock, endBlock].
func (b *Builder) Build(
	ctx context.Context,
	prev map[string]*domain.Position,
	events []*domain.ModifyLiquidityEvent,
	startBlock, endBlock uint64,
) (map[string]*domain.Position, error) {
	if !domain.ValidateModifyEventOrdering(events) {
		return nil, ErrUnordered
	}

	// Carry the previous period's positions with period-scoped state
	// reset. Liquidity and last owner persist.
	positions := make(map[string]*domain.Position, len(prev))
	for k, p := range prev {
		positions[k] = p.Clone()
	}

	// Zero-liquidity carries are only kept while their on-chain record
	// still exists; once burned they can never accrue again.
	if err := b.pruneClosed(ctx, positions, startBlock); err != nil {
		return nil, err
	}

	for _, ev := range events {
		if err := b.applyEvent(ctx, positions, ev, startBlock); err != nil {
			return nil, err
		}
	}

	if err := b.close(ctx, positions, startBlock, endBlock); err != nil {
		return nil, err
	}

	return positions, nil
}

// pruneClosed drops carried-over zero-liquidity positions whose
// on-chain record is confirmed closed, so resumed runs never re-create
// them.
func (b *Builder) pruneClosed(ctx context.Context, positions map[string]*domain.Position, startBlock uint64) error {
	for k, p := range positions {
		if p.Liquidity.Sign() != 0 {
			continue
		}
		closed, err := b.reader.IsPositionClosed(ctx, p.Key, startBlock)
		if err != nil {
			return fmt.Errorf("check closed %s: %w", k, err)
		}
		if closed {
			b.logger.Debug("pruning closed position", zap.String("key", k))
			delete(positions, k)
		}
	}
	return nil
}

// applyEvent folds one modification into the position map.
func (b *Builder) applyEvent(ctx context.Context, positions map[string]*domain.Position, ev *domain.ModifyLiquidityEvent, startBlock uint64) error {
	if ev.Key == nil || ev.LiquidityDelta == nil {
		return ErrMissingEventFields
	}

	owner, err := b.reader.OwnerOf(ctx, ev.Key, ev.Block)
	if err != nil {
		return fmt.Errorf("resolve owner of %s@%d: %w", ev.Key, ev.Block, err)
	}

	k := ev.Key.String()
	pos, known := positions[k]
	if !known {
		// Brand-new position: its pre-event sub-period has no liquidity
		// and nobody to credit.
		pos = domain.NewPosition(ev.Key, ev.TickLower, ev.TickUpper)
		pos.Timeline = append(pos.Timeline, domain.LiquidityChange{
			Block:     startBlock,
			Liquidity: new(big.Int),
			Owner:     domain.NoOwner(),
		})
		positions[k] = pos
	} else if len(pos.Timeline) == 0 {
		// First event this period for a carried position: capture the
		// sub-period from the period start to this event.
		pos.Timeline = append(pos.Timeline, domain.LiquidityChange{
			Block:     startBlock,
			Liquidity: new(big.Int).Set(pos.Liquidity),
			Owner:     owner,
		})
	}

	pos.Liquidity = new(big.Int).Add(pos.Liquidity, ev.LiquidityDelta)
	pos.Timeline = append(pos.Timeline, domain.LiquidityChange{
		Block:     ev.Block,
		Liquidity: new(big.Int).Set(pos.Liquidity),
		Owner:     owner,
	})
	pos.LastOwner = owner
	return nil
}

// close appends the endBlock point to every timeline, so each position
// can be processed with the same sub-period loop regardless of how many
// real events it had.
func (b *Builder) close(ctx context.Context, positions map[string]*domain.Position, startBlock, endBlock uint64) error {
	for k, pos := range positions {
		endOwner, err := b.reader.OwnerOf(ctx, pos.Key, endBlock)
		if err != nil {
			return fmt.Errorf("resolve owner of %s@%d: %w", k, endBlock, err)
		}

		if len(pos.Timeline) == 0 {
			// Quiet position: either nothing to attribute, or one flat
			// sub-period covering the whole period.
			if pos.Liquidity.Sign() == 0 {
				delete(positions, k)
				continue
			}
			pos.Timeline = append(pos.Timeline, domain.LiquidityChange{
				Block:     startBlock,
				Liquidity: new(big.Int).Set(pos.Liquidity),
				Owner:     pos.LastOwner,
			})
		}

		pos.Timeline = append(pos.Timeline, domain.LiquidityChange{
			Block:     endBlock,
			Liquidity: new(big.Int).Set(pos.Liquidity),
			Owner:     endOwner,
		})
		if endOwner.Assigned() {
			pos.LastOwner = endOwner
		}
	}
	return nil
}
