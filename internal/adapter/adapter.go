// Package adapter translates the exchange's decimal/JSON order language
// into permit envelopes: fixed-point conversion at market-specific
// decimal counts, strictly increasing nonce assignment within a batch,
// and deterministic client-order-id mapping.
package adapter

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/solperp/permitgate/internal/market"
	"github.com/solperp/permitgate/internal/permit"
	"github.com/solperp/permitgate/internal/pkg/apperrors"
)

// QuoteDecimals is the fixed-point scale of quote-denominated amounts
// (withdraw, faucet, fee caps).
const QuoteDecimals int32 = 6

// Adapter holds the read-only context a conversion needs: the market
// registry and a configured envelope builder (domain, authorizer,
// expiry/window/fee-cap defaults). One instance is safe to share.
type Adapter struct {
	registry *market.Registry
	builder  *permit.Builder
}

func New(registry *market.Registry, builder *permit.Builder) *Adapter {
	return &Adapter{registry: registry, builder: builder}
}

// BuildEnvelopes converts one exchange request into its permit
// envelopes, one per sub-item, nonces assigned base+offset in input
// order so sequence-style replay modes see strictly increasing values.
func (a *Adapter) BuildEnvelopes(req *Request) ([]*permit.PermitEnvelopeV1, error) {
	if req == nil {
		return nil, apperrors.NewInvalidRequest("request is required")
	}

	base := req.Nonce
	if base == 0 {
		base = a.builder.DefaultNonce()
	}
	n := newNonceSeq(base)

	switch req.Action.Type {
	case KindOrder, KindBatchOrder:
		if len(req.Action.Orders) == 0 {
			return nil, apperrors.NewInvalidRequest("order action requires at least one order")
		}
		envs := make([]*permit.PermitEnvelopeV1, 0, len(req.Action.Orders))
		for i, item := range req.Action.Orders {
			env, err := a.placeEnvelope(item, n.next())
			if err != nil {
				return nil, fmt.Errorf("order %d: %w", i, err)
			}
			envs = append(envs, env)
		}
		return envs, nil

	case KindCancel:
		envs := make([]*permit.PermitEnvelopeV1, 0, len(req.Action.Cancels))
		for i, item := range req.Action.Cancels {
			m, err := a.resolveMarket(item.Market, item.Asset)
			if err != nil {
				return nil, fmt.Errorf("cancel %d: %w", i, err)
			}
			envs = append(envs, a.builder.CancelByID(m.Index, item.OrderID, nonceOpts(n.next())))
		}
		if len(envs) == 0 {
			return nil, apperrors.NewInvalidRequest("cancel action requires at least one cancel")
		}
		return envs, nil

	case KindCancelByCloid:
		envs := make([]*permit.PermitEnvelopeV1, 0, len(req.Action.Cancels))
		for i, item := range req.Action.Cancels {
			m, err := a.resolveMarket(item.Market, item.Asset)
			if err != nil {
				return nil, fmt.Errorf("cancel %d: %w", i, err)
			}
			cloid, err := ParseClientID(item.Cloid)
			if err != nil {
				return nil, fmt.Errorf("cancel %d: %w", i, err)
			}
			envs = append(envs, a.builder.CancelByClientID(m.Index, cloid, nonceOpts(n.next())))
		}
		if len(envs) == 0 {
			return nil, apperrors.NewInvalidRequest("cancelByCloid action requires at least one cancel")
		}
		return envs, nil

	case KindModify, KindModifyBatch:
		if len(req.Action.Modifies) == 0 {
			return nil, apperrors.NewInvalidRequest("modify action requires at least one modify")
		}
		envs := make([]*permit.PermitEnvelopeV1, 0, len(req.Action.Modifies))
		for i, item := range req.Action.Modifies {
			env, err := a.modifyEnvelope(item, n.next())
			if err != nil {
				return nil, fmt.Errorf("modify %d: %w", i, err)
			}
			envs = append(envs, env)
		}
		return envs, nil

	case KindUpdateLeverage:
		if req.Action.Leverage == nil {
			return nil, apperrors.NewInvalidRequest("updateLeverage action requires leverage")
		}
		item := req.Action.Leverage
		m, err := a.resolveMarket(item.Market, item.Asset)
		if err != nil {
			return nil, err
		}
		bps := LeverageToBps(item.Leverage)
		return []*permit.PermitEnvelopeV1{
			a.builder.SetLeverage(m.Index, bps, item.IsCross, nil, nonceOpts(n.next())),
		}, nil

	case KindWithdraw:
		amount, err := requireQuoteAmount(req.Action.Amount, "withdraw")
		if err != nil {
			return nil, err
		}
		return []*permit.PermitEnvelopeV1{
			a.builder.Withdraw(amount, nil, nonceOpts(n.next())),
		}, nil

	case KindFaucet:
		amount, err := requireQuoteAmount(req.Action.Amount, "faucet")
		if err != nil {
			return nil, apperrors.New(apperrors.ErrInvalidFaucetRequest, err.Error(), err)
		}
		if amount == 0 {
			return nil, apperrors.New(apperrors.ErrInvalidFaucetRequest, "faucet amount must be positive", nil)
		}
		return []*permit.PermitEnvelopeV1{
			a.builder.Faucet(amount, nonceOpts(n.next())),
		}, nil

	case KindNoop:
		return []*permit.PermitEnvelopeV1{a.builder.Noop(nonceOpts(n.next()))}, nil

	default:
		return nil, apperrors.NewInvalidRequest(fmt.Sprintf("unknown action type %q", req.Action.Type))
	}
}

func (a *Adapter) placeEnvelope(item OrderItem, nonce uint64) (*permit.PermitEnvelopeV1, error) {
	m, err := a.resolveMarket(item.Market, item.Asset)
	if err != nil {
		return nil, err
	}

	qty, err := requireUnsignedFixed(item.Size, m.SzDecimals, "size")
	if err != nil {
		return nil, err
	}
	price, err := optionalUnsignedFixed(item.Price, m.PriceDecimals, "price")
	if err != nil {
		return nil, err
	}
	trigger, err := optionalUnsignedFixed(item.Trigger, m.PriceDecimals, "trigger")
	if err != nil {
		return nil, err
	}
	tif, err := ParseTif(item.Tif)
	if err != nil {
		return nil, err
	}
	cloid, err := ParseClientID(item.Cloid)
	if err != nil {
		return nil, err
	}

	action := permit.PlaceAction{
		MarketID:     m.Index,
		Side:         sideOf(item.IsBuy),
		Qty:          qty,
		Price:        price,
		Tif:          tif,
		ReduceOnly:   item.ReduceOnly,
		ClientID:     cloid,
		TriggerPrice: trigger,
	}
	return a.builder.PlaceOrder(action, nonceOpts(nonce)), nil
}

func (a *Adapter) modifyEnvelope(item ModifyItem, nonce uint64) (*permit.PermitEnvelopeV1, error) {
	m, err := a.resolveMarket(item.Order.Market, item.Order.Asset)
	if err != nil {
		return nil, err
	}
	qty, err := requireUnsignedFixed(item.Order.Size, m.SzDecimals, "size")
	if err != nil {
		return nil, err
	}
	price, err := optionalUnsignedFixed(item.Order.Price, m.PriceDecimals, "price")
	if err != nil {
		return nil, err
	}
	tif, err := ParseTif(item.Order.Tif)
	if err != nil {
		return nil, err
	}
	cloid, err := ParseClientID(item.Order.Cloid)
	if err != nil {
		return nil, err
	}

	action := permit.ModifyAction{
		MarketID:    m.Index,
		OrderID:     item.OrderID,
		Qty:         qty,
		Price:       price,
		Tif:         tif,
		NewClientID: cloid,
	}
	return a.builder.Modify(action, nonceOpts(nonce)), nil
}

func (a *Adapter) resolveMarket(symbol string, asset *uint64) (market.Market, error) {
	if symbol != "" {
		return a.registry.BySymbol(symbol)
	}
	if asset != nil {
		return a.registry.ByIndex(*asset)
	}
	return market.Market{}, apperrors.New(apperrors.ErrUnknownMarket, "market symbol or asset index required", nil)
}

// DecimalToFixed converts a decimal string to a fixed-point integer at
// the given decimal-places count, truncating toward zero. It never
// rounds up; sign is preserved.
func DecimalToFixed(s string, decimals int32) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, apperrors.NewInvalidRequest(fmt.Sprintf("invalid decimal %q", s))
	}
	scaled := d.Shift(decimals).Truncate(0)
	bi := scaled.BigInt()
	if !bi.IsInt64() {
		return 0, apperrors.New(apperrors.ErrFieldOverflow,
			fmt.Sprintf("%s does not fit 64 bits at %d decimals", s, decimals), nil)
	}
	return bi.Int64(), nil
}

func requireUnsignedFixed(s string, decimals int32, field string) (uint64, error) {
	if s == "" {
		return 0, apperrors.NewInvalidRequest(field + " is required")
	}
	v, err := DecimalToFixed(s, decimals)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, apperrors.NewInvalidRequest(field + " must not be negative")
	}
	return uint64(v), nil
}

func optionalUnsignedFixed(s string, decimals int32, field string) (*uint64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := requireUnsignedFixed(s, decimals, field)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func requireQuoteAmount(s, kind string) (uint64, error) {
	if s == "" {
		return 0, apperrors.NewInvalidRequest(kind + " amount is required")
	}
	return requireUnsignedFixed(s, QuoteDecimals, "amount")
}

// ParseTif maps exchange time-in-force strings case-insensitively.
// Empty means GTC; anything outside {Gtc, Ioc, Alo} is rejected.
func ParseTif(s string) (permit.TimeInForce, error) {
	switch strings.ToLower(s) {
	case "", "gtc":
		return permit.TifGTC{}, nil
	case "ioc":
		return permit.TifIOC{}, nil
	case "alo":
		return permit.TifALO{}, nil
	default:
		return nil, apperrors.New(apperrors.ErrUnsupportedTif,
			fmt.Sprintf("unsupported time-in-force %q", s), nil)
	}
}

// ParseClientID maps a client order id string to its 128-bit form.
// Decimal strings parse as base 10, 0x-prefixed strings as hex; any
// other string maps through the big-endian integer value of its bytes,
// truncated to 128 bits. The mapping is stable across calls so replay
// semantics keyed on a client id stay consistent for a given string.
func ParseClientID(s string) (permit.Uint128, error) {
	if s == "" {
		return permit.Uint128{}, nil
	}
	if v, ok := new(big.Int).SetString(s, 10); ok && v.Sign() >= 0 {
		return permit.U128FromBig(v), nil
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		if v, ok := new(big.Int).SetString(s[2:], 16); ok {
			return permit.U128FromBig(v), nil
		}
	}
	return permit.U128FromBig(new(big.Int).SetBytes([]byte(s))), nil
}

// LeverageToBps converts a leverage multiplier to basis points, clamped
// to the 16-bit unsigned range.
func LeverageToBps(leverage float64) uint16 {
	if leverage <= 0 {
		return 0
	}
	bps := leverage * 10000
	if bps > 65535 {
		return 65535
	}
	return uint16(bps)
}

func sideOf(isBuy bool) permit.Side {
	if isBuy {
		return permit.SideBid
	}
	return permit.SideAsk
}

type nonceSeq struct {
	base uint64
	off  uint64
}

func newNonceSeq(base uint64) *nonceSeq {
	return &nonceSeq{base: base}
}

func (n *nonceSeq) next() uint64 {
	v := n.base + n.off
	n.off++
	return v
}

func nonceOpts(nonce uint64) *permit.BuildOpts {
	return &permit.BuildOpts{Nonce: &nonce}
}
