package service

import (
	"encoding/base64"
	"encoding/hex"
	"errors"

	"github.com/gagliardetto/solana-go"

	"github.com/solperp/permitgate/internal/adapter"
	"github.com/solperp/permitgate/internal/config"
	"github.com/solperp/permitgate/internal/market"
	"github.com/solperp/permitgate/internal/model"
	"github.com/solperp/permitgate/internal/permit"
	"github.com/solperp/permitgate/internal/pkg/apperrors"
	"github.com/solperp/permitgate/internal/pkg/logger"
	"github.com/solperp/permitgate/internal/pkg/metrics"
	"github.com/solperp/permitgate/internal/signer"
)

// GatewayService turns exchange-style requests into canonical permit
// envelopes and signs them with the configured session key.
type GatewayService struct {
	tm       *TenantManager
	config   *config.Config
	builder  *permit.Builder
	adapter  *adapter.Adapter
	registry *market.Registry
}

func NewGatewayService(cfg *config.Config, tm *TenantManager, builder *permit.Builder, registry *market.Registry) *GatewayService {
	return &GatewayService{
		tm:       tm,
		config:   cfg,
		builder:  builder,
		adapter:  adapter.New(registry, builder),
		registry: registry,
	}
}

func (s *GatewayService) Builder() *permit.Builder   { return s.builder }
func (s *GatewayService) Registry() *market.Registry { return s.registry }

// Build translates the exchange request into unsigned envelopes and
// returns their canonical hex encodings.
func (s *GatewayService) Build(req *model.BuildRequest) (*model.BuildResponse, []*permit.PermitEnvelopeV1, error) {
	envs, err := s.adapter.BuildEnvelopes(&req.Exchange)
	if err != nil {
		metrics.AdapterRejects.WithLabelValues(rejectReason(err)).Inc()
		return nil, nil, err
	}

	resp := &model.BuildResponse{
		Envelopes: make(model.FlexStrings, 0, len(envs)),
		Nonces:    make([]uint64, 0, len(envs)),
	}
	for _, env := range envs {
		raw, err := permit.Encode(env)
		if err != nil {
			return nil, nil, err
		}
		resp.Envelopes = append(resp.Envelopes, hex.EncodeToString(raw))
		resp.Nonces = append(resp.Nonces, env.Nonce)
		metrics.PermitsBuilt.WithLabelValues(permit.ActionName(env.Action)).Inc()
	}
	return resp, envs, nil
}

// Sign builds and signs in one shot. The session key resolves in order:
// request override, tenant key, global config key.
func (s *GatewayService) Sign(tenant *model.Tenant, req *model.BuildRequest) (*model.SignResponse, error) {
	keypair, err := s.resolveSessionKey(tenant, req.SessionKey)
	if err != nil {
		return nil, err
	}

	_, envs, err := s.Build(req)
	if err != nil {
		return nil, err
	}

	// The session key signs as a delegate: each envelope's authorizer
	// becomes the session pubkey so the verifier can cross-check the
	// session record.
	signed, err := signer.SignPermitsWithSession(envs, keypair)
	if err != nil {
		return nil, err
	}

	resp := &model.SignResponse{
		Signatures:               make(model.FlexStrings, 0, len(signed)),
		Messages:                 make(model.FlexStrings, 0, len(signed)),
		VerificationInstructions: make(model.FlexStrings, 0, len(signed)),
		PublicKey:                keypair.PublicKey().String(),
		Nonces:                   make([]uint64, 0, len(signed)),
	}
	for _, sp := range signed {
		resp.Signatures = append(resp.Signatures, sp.SignatureBase64())
		resp.Messages = append(resp.Messages, sp.MessageHex())
		resp.VerificationInstructions = append(resp.VerificationInstructions, base64.StdEncoding.EncodeToString(sp.VerificationInstruction))
		resp.Nonces = append(resp.Nonces, sp.Envelope.Nonce)
		metrics.PermitsSigned.WithLabelValues(permit.ActionName(sp.Envelope.Action), "ed25519").Inc()
	}

	logger.Info("permits signed",
		"tenant", tenant.ID,
		"count", len(signed),
		"pubkey", resp.PublicKey,
	)
	return resp, nil
}

// Verify checks a detached signature against a hex canonical envelope.
func (s *GatewayService) Verify(req *model.VerifyRequest) (*model.VerifyResponse, error) {
	raw, err := hex.DecodeString(req.Envelope)
	if err != nil {
		return nil, apperrors.NewInvalidRequest("envelope must be hex")
	}
	env, err := permit.Decode(raw)
	if err != nil {
		return nil, err
	}

	sigBytes, err := base64.StdEncoding.DecodeString(req.Signature)
	if err != nil || len(sigBytes) != 64 {
		return nil, apperrors.NewInvalidRequest("signature must be 64 bytes base64")
	}
	pubkey, err := solana.PublicKeyFromBase58(req.PublicKey)
	if err != nil {
		return nil, apperrors.NewInvalidRequest("pubkey must be base58")
	}

	sp := &signer.SignedPermit{
		Envelope:  env,
		Message:   raw,
		Signature: solana.SignatureFromBytes(sigBytes),
		PublicKey: pubkey,
	}
	return &model.VerifyResponse{Valid: signer.Verify(sp)}, nil
}

// Inspect decodes a hex envelope into a readable structure.
func (s *GatewayService) Inspect(envelopeHex string) (map[string]interface{}, error) {
	raw, err := hex.DecodeString(envelopeHex)
	if err != nil {
		return nil, apperrors.NewInvalidRequest("envelope must be hex")
	}
	env, err := permit.Decode(raw)
	if err != nil {
		return nil, err
	}

	out := map[string]interface{}{
		"program_id":     env.Domain.ProgramID.String(),
		"version":        env.Domain.Version,
		"cluster":        env.Domain.Cluster,
		"authorizer":     env.Authorizer.String(),
		"key_type":       env.KeyType,
		"action":         permit.ActionName(env.Action),
		"action_tag":     permit.ActionTag(env.Action),
		"expires_unix":   env.ExpiresUnix,
		"max_fee_quote":  env.MaxFeeQuote,
		"nonce":          env.Nonce,
		"risk_affecting": env.RiskAffecting(),
	}
	if env.Relayer != nil {
		out["relayer"] = env.Relayer.String()
	}
	if floor := env.Floor(); floor != nil {
		out["health_floor"] = map[string]interface{}{
			"metric": floor.Metric,
			"min":    floor.Min,
		}
	}
	return out, nil
}

func (s *GatewayService) resolveSessionKey(tenant *model.Tenant, override string) (solana.PrivateKey, error) {
	keyStr := override
	if keyStr == "" && tenant != nil {
		keyStr = tenant.SessionKey
	}
	if keyStr == "" {
		keyStr = s.config.Permit.SessionKey
	}
	if keyStr == "" {
		return nil, apperrors.New(apperrors.ErrAuthFailed, "no session key configured for tenant", nil)
	}
	keypair, err := solana.PrivateKeyFromBase58(keyStr)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrAuthFailed, "session key is not valid base58", err)
	}
	return keypair, nil
}

func rejectReason(err error) string {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		return "internal"
	}
	return string(appErr.Type)
}
