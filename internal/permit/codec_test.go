package permit

import (
	"testing"

	solana "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solperp/permitgate/internal/pkg/apperrors"
)

func testDomain() PermitDomain {
	return PermitDomain{
		ProgramID: solana.MustPublicKeyFromBase58("9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"),
		Version:   EnvelopeVersion,
		Cluster:   ClusterDevnet,
	}
}

func u64p(v uint64) *uint64 { return &v }

func fullEnvelope() *PermitEnvelopeV1 {
	relayer := solana.MustPublicKeyFromBase58("4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T")
	return &PermitEnvelopeV1{
		Domain:     testDomain(),
		Authorizer: solana.MustPublicKeyFromBase58("7v91N7iZ9mNicL8WfG6cgSCKyRXydQjLh6UYBWwm6y1Q"),
		KeyType:    KeyEd25519,
		Action: PlaceAction{
			MarketID:     3,
			Side:         SideAsk,
			Qty:          21000,
			Price:        u64p(131425000000),
			Tif:          TifGTT{Timestamp: 1893456000},
			ReduceOnly:   true,
			ClientID:     Uint128{Lo: 0xdeadbeef, Hi: 0x1122},
			TriggerPrice: u64p(130000000000),
			HealthFloor:  &HealthFloor{Metric: HealthRatioBps, Min: -2500},
		},
		Mode:        ModeSequence{Expected: 41},
		ExpiresUnix: 1893456060,
		MaxFeeQuote: 5000,
		Relayer:     &relayer,
		Nonce:       1700000000123,
	}
}

func TestCodec_RoundTrip(t *testing.T) {
	env := fullEnvelope()

	raw, err := Encode(env)
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	decoded, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, env, decoded)
}

func TestCodec_RoundTrip_AllVariants(t *testing.T) {
	salt := [32]byte{1, 2, 3}
	allowanceID := [32]byte{4, 5, 6}

	cases := []struct {
		name   string
		action PermitAction
		mode   ReplayMode
	}{
		{"place_minimal", PlaceAction{MarketID: 0, Side: SideBid, Qty: 1, Tif: TifIOC{}}, ModeHlWindow{K: 128}},
		{"place_fok", PlaceAction{MarketID: 9, Side: SideAsk, Qty: 7, Price: u64p(42), Tif: TifFOK{}}, ModeHlWindow{K: 1}},
		{"place_alo", PlaceAction{MarketID: 9, Side: SideBid, Qty: 7, Tif: TifALO{}}, ModeNonce{Salt: salt}},
		{"cancel_by_id", CancelByIDAction{MarketID: 2, OrderID: 991}, ModeSequence{Expected: 1}},
		{"cancel_by_client_id", CancelByClientIDAction{MarketID: 2, ClientID: Uint128{Lo: 77}}, ModeNonce{Salt: salt}},
		{"cancel_all_one_market", CancelAllAction{MarketID: u64p(5)}, ModeHlWindow{K: 64}},
		{"cancel_all_global", CancelAllAction{}, ModeHlWindow{K: 64}},
		{"modify", ModifyAction{MarketID: 1, OrderID: 10, Qty: 500, Price: u64p(9), Tif: TifGTC{}, NewClientID: Uint128{Hi: 1}}, ModeAllowance{ID: allowanceID}},
		{"withdraw", WithdrawAction{Amount: 1_000_000, HealthFloor: &HealthFloor{Metric: HealthMaintenance, Min: 100}}, ModeSequence{Expected: 2}},
		{"set_leverage", SetLeverageAction{MarketID: 4, LeverageBps: 65535, Cross: true}, ModeHlWindow{K: 255}},
		{"noop", NoopAction{}, ModeHlWindow{K: 128}},
		{"faucet", FaucetAction{Amount: 123}, ModeHlWindow{K: 128}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := &PermitEnvelopeV1{
				Domain:      testDomain(),
				Authorizer:  solana.MustPublicKeyFromBase58("7v91N7iZ9mNicL8WfG6cgSCKyRXydQjLh6UYBWwm6y1Q"),
				KeyType:     KeyEd25519,
				Action:      tc.action,
				Mode:        tc.mode,
				ExpiresUnix: 1893456060,
				MaxFeeQuote: 1,
				Nonce:       7,
			}
			raw, err := Encode(env)
			require.NoError(t, err)

			decoded, err := Decode(raw)
			require.NoError(t, err)
			assert.Equal(t, env, decoded)
		})
	}
}

func TestCodec_Deterministic(t *testing.T) {
	env := fullEnvelope()

	a, err := Encode(env)
	require.NoError(t, err)
	b, err := Encode(env)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestCodec_LayoutPrefix(t *testing.T) {
	env := fullEnvelope()
	raw, err := Encode(env)
	require.NoError(t, err)

	// program id, version byte, cluster byte, authorizer, key type byte,
	// then the action discriminant.
	assert.Equal(t, env.Domain.ProgramID.Bytes(), raw[0:32])
	assert.Equal(t, EnvelopeVersion, raw[32])
	assert.Equal(t, uint8(ClusterDevnet), raw[33])
	assert.Equal(t, env.Authorizer.Bytes(), raw[34:66])
	assert.Equal(t, uint8(KeyEd25519), raw[66])
	assert.Equal(t, TagPlace, raw[67])
}

func TestDecode_Truncated(t *testing.T) {
	raw, err := Encode(fullEnvelope())
	require.NoError(t, err)

	for _, n := range []int{0, 1, 31, 33, len(raw) / 2, len(raw) - 1} {
		_, err := Decode(raw[:n])
		require.Error(t, err, "prefix length %d", n)
		assert.True(t, apperrors.Is(err, apperrors.ErrMalformedEnvelope))
	}
}

func TestDecode_TrailingBytes(t *testing.T) {
	raw, err := Encode(fullEnvelope())
	require.NoError(t, err)

	_, err = Decode(append(raw, 0x00))
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrMalformedEnvelope))
}

func TestDecode_UnknownDiscriminants(t *testing.T) {
	raw, err := Encode(fullEnvelope())
	require.NoError(t, err)

	// Action discriminant sits right after domain+authorizer+keyType.
	bad := append([]byte(nil), raw...)
	bad[67] = 200
	_, err = Decode(bad)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrMalformedEnvelope))

	// Unsupported version byte.
	bad = append([]byte(nil), raw...)
	bad[32] = 2
	_, err = Decode(bad)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrMalformedEnvelope))
}

func TestDecode_BadOptionByte(t *testing.T) {
	price := uint64(10)
	env := &PermitEnvelopeV1{
		Domain:      testDomain(),
		Authorizer:  solana.MustPublicKeyFromBase58("7v91N7iZ9mNicL8WfG6cgSCKyRXydQjLh6UYBWwm6y1Q"),
		KeyType:     KeyEd25519,
		Action:      PlaceAction{MarketID: 1, Side: SideBid, Qty: 2, Price: &price, Tif: TifGTC{}},
		Mode:        ModeHlWindow{K: 128},
		ExpiresUnix: 1,
		MaxFeeQuote: 1,
		Nonce:       1,
	}
	raw, err := Encode(env)
	require.NoError(t, err)

	// Price option flag: action tag + marketId(8) + side(1) + qty(8).
	idx := 68 + 8 + 1 + 8
	require.Equal(t, uint8(1), raw[idx])
	raw[idx] = 2
	_, err = Decode(raw)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrMalformedEnvelope))
}

func TestEncode_NilUnionFields(t *testing.T) {
	env := fullEnvelope()
	env.Action = nil
	_, err := Encode(env)
	assert.Error(t, err)

	env = fullEnvelope()
	env.Mode = nil
	_, err = Encode(env)
	assert.Error(t, err)
}

func BenchmarkEncode(b *testing.B) {
	env := fullEnvelope()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Encode(env)
	}
}

func BenchmarkDecode(b *testing.B) {
	raw, _ := Encode(fullEnvelope())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Decode(raw)
	}
}
