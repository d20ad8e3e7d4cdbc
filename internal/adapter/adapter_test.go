package adapter

import (
	"math/big"
	"testing"
	"time"

	solana "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solperp/permitgate/internal/market"
	"github.com/solperp/permitgate/internal/permit"
	"github.com/solperp/permitgate/internal/pkg/apperrors"
)

type fixedClock struct {
	t time.Time
}

func (c fixedClock) Now() time.Time { return c.t }

func testAdapter(t *testing.T) *Adapter {
	t.Helper()
	registry := market.NewRegistry([]market.Market{
		{Index: 0, Symbol: "BTC", SzDecimals: 8, PriceDecimals: 6, MaxLeverage: 50},
		{Index: 1, Symbol: "ETH", SzDecimals: 6, PriceDecimals: 6, MaxLeverage: 50},
	})
	domain := permit.PermitDomain{
		ProgramID: solana.MustPublicKeyFromBase58("9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"),
		Version:   permit.EnvelopeVersion,
		Cluster:   permit.ClusterDevnet,
	}
	auth := solana.MustPublicKeyFromBase58("7v91N7iZ9mNicL8WfG6cgSCKyRXydQjLh6UYBWwm6y1Q")
	builder := permit.NewBuilder(domain, auth, 5000, fixedClock{t: time.Unix(1_700_000_000, 0)})
	return New(registry, builder)
}

func TestDecimalToFixed(t *testing.T) {
	cases := []struct {
		in       string
		decimals int32
		want     int64
	}{
		{"131425", 6, 131425000000},
		{"0.00021", 8, 21000},
		{"-1.5", 2, -150},
		{"0", 8, 0},
		{"1.999999999", 2, 199}, // truncates, never rounds up
		{"-1.999", 2, -199},     // truncation is toward zero
		{"0.1", 0, 0},
	}
	for _, tc := range cases {
		got, err := DecimalToFixed(tc.in, tc.decimals)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, "%s at %d decimals", tc.in, tc.decimals)
	}

	_, err := DecimalToFixed("not-a-number", 6)
	assert.Error(t, err)

	_, err = DecimalToFixed("99999999999999999999", 6)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrFieldOverflow))
}

func TestParseTif(t *testing.T) {
	for _, s := range []string{"Gtc", "GTC", "gtc", ""} {
		tif, err := ParseTif(s)
		require.NoError(t, err)
		assert.Equal(t, permit.TifGTC{}, tif)
	}
	tif, err := ParseTif("Ioc")
	require.NoError(t, err)
	assert.Equal(t, permit.TifIOC{}, tif)
	tif, err = ParseTif("ALO")
	require.NoError(t, err)
	assert.Equal(t, permit.TifALO{}, tif)

	_, err = ParseTif("Gtd")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrUnsupportedTif))
}

func TestParseClientID(t *testing.T) {
	id, err := ParseClientID("12345")
	require.NoError(t, err)
	assert.Equal(t, permit.U128FromUint64(12345), id)

	id, err = ParseClientID("0xdeadbeef")
	require.NoError(t, err)
	assert.Equal(t, permit.U128FromUint64(0xdeadbeef), id)

	// Non-numeric ids map through their bytes, deterministically.
	a, err := ParseClientID("my-bot-7")
	require.NoError(t, err)
	b, err := ParseClientID("my-bot-7")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.False(t, a.IsZero())
	assert.Equal(t, permit.U128FromBig(new(big.Int).SetBytes([]byte("my-bot-7"))), a)

	c, err := ParseClientID("my-bot-8")
	require.NoError(t, err)
	assert.NotEqual(t, a, c)

	id, err = ParseClientID("")
	require.NoError(t, err)
	assert.True(t, id.IsZero())
}

func TestLeverageToBps(t *testing.T) {
	assert.Equal(t, uint16(10000), LeverageToBps(1))
	assert.Equal(t, uint16(25000), LeverageToBps(2.5))
	assert.Equal(t, uint16(65535), LeverageToBps(20)) // clamped
	assert.Equal(t, uint16(0), LeverageToBps(-3))
}

func TestBuildEnvelopes_PlaceScenario(t *testing.T) {
	a := testAdapter(t)

	envs, err := a.BuildEnvelopes(&Request{
		Nonce: 1000,
		Action: Action{
			Type: KindOrder,
			Orders: []OrderItem{{
				Market: "BTC",
				IsBuy:  true,
				Price:  "131425",
				Size:   "0.00021",
				Tif:    "Ioc",
			}},
		},
	})
	require.NoError(t, err)
	require.Len(t, envs, 1)

	place, ok := envs[0].Action.(permit.PlaceAction)
	require.True(t, ok)
	assert.Equal(t, uint64(0), place.MarketID)
	assert.Equal(t, permit.SideBid, place.Side)
	assert.Equal(t, uint64(21000), place.Qty)
	require.NotNil(t, place.Price)
	assert.Equal(t, uint64(131425000000), *place.Price)
	assert.Equal(t, permit.TifIOC{}, place.Tif)
	assert.Equal(t, uint64(1000), envs[0].Nonce)
}

func TestBuildEnvelopes_BatchNonceSequencing(t *testing.T) {
	a := testAdapter(t)

	envs, err := a.BuildEnvelopes(&Request{
		Nonce: 500,
		Action: Action{
			Type: KindBatchOrder,
			Orders: []OrderItem{
				{Market: "BTC", IsBuy: true, Size: "0.001", Tif: "Gtc"},
				{Market: "ETH", IsBuy: false, Size: "1.5", Tif: "Gtc"},
				{Market: "BTC", IsBuy: false, Size: "0.002", Tif: "Alo"},
			},
		},
	})
	require.NoError(t, err)
	require.Len(t, envs, 3)

	assert.Equal(t, uint64(500), envs[0].Nonce)
	assert.Equal(t, uint64(501), envs[1].Nonce)
	assert.Equal(t, uint64(502), envs[2].Nonce)
}

func TestBuildEnvelopes_Cancels(t *testing.T) {
	a := testAdapter(t)
	asset := uint64(1)

	envs, err := a.BuildEnvelopes(&Request{
		Nonce: 9,
		Action: Action{
			Type: KindCancel,
			Cancels: []CancelItem{
				{Market: "BTC", OrderID: 77},
				{Asset: &asset, OrderID: 78},
			},
		},
	})
	require.NoError(t, err)
	require.Len(t, envs, 2)

	c0 := envs[0].Action.(permit.CancelByIDAction)
	assert.Equal(t, uint64(0), c0.MarketID)
	assert.Equal(t, uint64(77), c0.OrderID)
	c1 := envs[1].Action.(permit.CancelByIDAction)
	assert.Equal(t, uint64(1), c1.MarketID)

	envs, err = a.BuildEnvelopes(&Request{
		Nonce: 10,
		Action: Action{
			Type:    KindCancelByCloid,
			Cancels: []CancelItem{{Market: "ETH", Cloid: "0xabc123"}},
		},
	})
	require.NoError(t, err)
	require.Len(t, envs, 1)
	cc := envs[0].Action.(permit.CancelByClientIDAction)
	assert.Equal(t, permit.U128FromUint64(0xabc123), cc.ClientID)
}

func TestBuildEnvelopes_ModifyLeverageWithdraw(t *testing.T) {
	a := testAdapter(t)

	envs, err := a.BuildEnvelopes(&Request{
		Nonce: 5,
		Action: Action{
			Type: KindModify,
			Modifies: []ModifyItem{{
				OrderID: 42,
				Order:   OrderItem{Market: "BTC", IsBuy: true, Size: "0.5", Price: "100000", Tif: "Gtc", Cloid: "7"},
			}},
		},
	})
	require.NoError(t, err)
	mod := envs[0].Action.(permit.ModifyAction)
	assert.Equal(t, uint64(42), mod.OrderID)
	assert.Equal(t, uint64(50000000), mod.Qty)
	assert.Equal(t, permit.U128FromUint64(7), mod.NewClientID)

	envs, err = a.BuildEnvelopes(&Request{
		Action: Action{
			Type:     KindUpdateLeverage,
			Leverage: &LeverageItem{Market: "ETH", Leverage: 5, IsCross: true},
		},
	})
	require.NoError(t, err)
	lev := envs[0].Action.(permit.SetLeverageAction)
	assert.Equal(t, uint16(50000), lev.LeverageBps)
	assert.True(t, lev.Cross)

	envs, err = a.BuildEnvelopes(&Request{
		Action: Action{Type: KindWithdraw, Amount: "250.5"},
	})
	require.NoError(t, err)
	wd := envs[0].Action.(permit.WithdrawAction)
	assert.Equal(t, uint64(250500000), wd.Amount)
}

func TestBuildEnvelopes_FaucetAndNoop(t *testing.T) {
	a := testAdapter(t)

	envs, err := a.BuildEnvelopes(&Request{
		Action: Action{Type: KindFaucet, Amount: "100"},
	})
	require.NoError(t, err)
	assert.Equal(t, permit.FaucetAction{Amount: 100000000}, envs[0].Action)

	_, err = a.BuildEnvelopes(&Request{
		Action: Action{Type: KindFaucet, Amount: "0"},
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidFaucetRequest))

	envs, err = a.BuildEnvelopes(&Request{Action: Action{Type: KindNoop}})
	require.NoError(t, err)
	assert.Equal(t, permit.NoopAction{}, envs[0].Action)
}

func TestBuildEnvelopes_InputErrors(t *testing.T) {
	a := testAdapter(t)

	_, err := a.BuildEnvelopes(&Request{
		Action: Action{Type: KindOrder, Orders: []OrderItem{{Market: "DOGE", Size: "1"}}},
	})
	require.Error(t, err)

	_, err = a.BuildEnvelopes(&Request{
		Action: Action{Type: KindOrder, Orders: []OrderItem{{Market: "BTC", Size: "1", Tif: "Fok"}}},
	})
	require.Error(t, err)

	_, err = a.BuildEnvelopes(&Request{
		Action: Action{Type: KindOrder, Orders: []OrderItem{{Market: "BTC", Size: "-1"}}},
	})
	require.Error(t, err)

	_, err = a.BuildEnvelopes(&Request{Action: Action{Type: "transfer"}})
	require.Error(t, err)
}

func TestBuildEnvelopes_DefaultBaseNonce(t *testing.T) {
	a := testAdapter(t)

	envs, err := a.BuildEnvelopes(&Request{Action: Action{Type: KindNoop}})
	require.NoError(t, err)
	// Fixed clock: base nonce is its millisecond count.
	assert.Equal(t, uint64(1_700_000_000_000), envs[0].Nonce)
}
