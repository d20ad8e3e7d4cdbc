package service

import (
	"encoding/hex"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solperp/permitgate/internal/adapter"
	"github.com/solperp/permitgate/internal/config"
	"github.com/solperp/permitgate/internal/market"
	"github.com/solperp/permitgate/internal/model"
	"github.com/solperp/permitgate/internal/permit"
	"github.com/solperp/permitgate/internal/pkg/apperrors"
)

type fixedClock struct {
	t time.Time
}

func (c fixedClock) Now() time.Time { return c.t }

func testGateway(t *testing.T) (*GatewayService, solana.PrivateKey) {
	t.Helper()

	sessionKey, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Auth.APIKey = "sk-test"
	cfg.Permit.SessionKey = sessionKey.String()
	cfg.RateLimit.RPS = 10
	cfg.RateLimit.Burst = 20

	domain := permit.PermitDomain{
		ProgramID: solana.MustPublicKeyFromBase58("9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"),
		Version:   permit.EnvelopeVersion,
		Cluster:   permit.ClusterDevnet,
	}
	authorizer := solana.MustPublicKeyFromBase58("7v91N7iZ9mNicL8WfG6cgSCKyRXydQjLh6UYBWwm6y1Q")
	builder := permit.NewBuilder(domain, authorizer, 5000, fixedClock{t: time.UnixMilli(1_700_000_000_000)})

	registry := market.NewRegistry([]market.Market{
		{Index: 0, Symbol: "BTC", SzDecimals: 8, PriceDecimals: 6, MaxLeverage: 50},
	})

	tm := NewTenantManager(cfg)
	return NewGatewayService(cfg, tm, builder, registry), sessionKey
}

func placeRequest() *model.BuildRequest {
	return &model.BuildRequest{
		Exchange: adapter.Request{
			Action: adapter.Action{
				Type: adapter.KindOrder,
				Orders: []adapter.OrderItem{
					{Market: "BTC", IsBuy: true, Size: "0.00021", Price: "131425", Tif: "Ioc"},
				},
			},
			Nonce: 1000,
		},
	}
}

func TestGatewayBuild(t *testing.T) {
	svc, _ := testGateway(t)

	resp, envs, err := svc.Build(placeRequest())
	require.NoError(t, err)
	require.Len(t, envs, 1)
	require.Len(t, resp.Envelopes, 1)

	assert.Equal(t, []uint64{1000}, resp.Nonces)

	raw, err := hex.DecodeString(resp.Envelopes[0])
	require.NoError(t, err)
	decoded, err := permit.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, envs[0], decoded)
}

func TestGatewayBuildUnknownMarket(t *testing.T) {
	svc, _ := testGateway(t)

	req := placeRequest()
	req.Exchange.Action.Orders[0].Market = "DOGE"

	_, _, err := svc.Build(req)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrUnknownMarket))
}

func TestGatewaySignAndVerify(t *testing.T) {
	svc, sessionKey := testGateway(t)
	tenant := svc.tm.DefaultTenant()
	require.NotNil(t, tenant)

	signResp, err := svc.Sign(tenant, placeRequest())
	require.NoError(t, err)
	require.Len(t, signResp.Signatures, 1)
	assert.Equal(t, sessionKey.PublicKey().String(), signResp.PublicKey)

	verifyResp, err := svc.Verify(&model.VerifyRequest{
		Envelope:  signResp.Messages[0],
		Signature: signResp.Signatures[0],
		PublicKey: signResp.PublicKey,
	})
	require.NoError(t, err)
	assert.True(t, verifyResp.Valid)
}

func TestGatewaySignDelegatesAuthorizerToSessionKey(t *testing.T) {
	svc, sessionKey := testGateway(t)
	tenant := svc.tm.DefaultTenant()

	signResp, err := svc.Sign(tenant, placeRequest())
	require.NoError(t, err)

	// The signed message must carry the session pubkey as authorizer,
	// not the builder's configured owner.
	raw, err := hex.DecodeString(signResp.Messages[0])
	require.NoError(t, err)
	env, err := permit.Decode(raw)
	require.NoError(t, err)

	assert.Equal(t, sessionKey.PublicKey(), env.Authorizer)
	assert.Equal(t, signResp.PublicKey, env.Authorizer.String())
	assert.NotEqual(t, svc.builder.Authorizer(), env.Authorizer)
}

func TestGatewaySignVerifyRejectsTamper(t *testing.T) {
	svc, _ := testGateway(t)
	tenant := svc.tm.DefaultTenant()

	signResp, err := svc.Sign(tenant, placeRequest())
	require.NoError(t, err)

	// Flip the nonce inside the hex message.
	raw, err := hex.DecodeString(signResp.Messages[0])
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0x01

	verifyResp, err := svc.Verify(&model.VerifyRequest{
		Envelope:  hex.EncodeToString(raw),
		Signature: signResp.Signatures[0],
		PublicKey: signResp.PublicKey,
	})
	require.NoError(t, err)
	assert.False(t, verifyResp.Valid)
}

func TestGatewaySignSessionKeyOverride(t *testing.T) {
	svc, _ := testGateway(t)
	tenant := svc.tm.DefaultTenant()

	override, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)

	req := placeRequest()
	req.SessionKey = override.String()

	signResp, err := svc.Sign(tenant, req)
	require.NoError(t, err)
	assert.Equal(t, override.PublicKey().String(), signResp.PublicKey)
}

func TestGatewaySignNoKeyConfigured(t *testing.T) {
	svc, _ := testGateway(t)
	svc.config.Permit.SessionKey = ""

	tenant := &model.Tenant{ID: "bare"}
	_, err := svc.Sign(tenant, placeRequest())
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrAuthFailed))
}

func TestGatewayInspect(t *testing.T) {
	svc, _ := testGateway(t)

	resp, _, err := svc.Build(placeRequest())
	require.NoError(t, err)

	out, err := svc.Inspect(resp.Envelopes[0])
	require.NoError(t, err)
	assert.Equal(t, "place", out["action"])
	assert.Equal(t, uint64(1000), out["nonce"])
	assert.Equal(t, true, out["risk_affecting"])
}

func TestGatewayInspectBadHex(t *testing.T) {
	svc, _ := testGateway(t)

	_, err := svc.Inspect("not-hex!")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidRequest))
}
