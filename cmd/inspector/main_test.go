package main

import (
	"encoding/hex"
	"fmt"
	"testing"

	solana "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solperp/permitgate/internal/pda"
	"github.com/solperp/permitgate/internal/permit"
)

func inspectorEnvelope(mode permit.ReplayMode) *permit.PermitEnvelopeV1 {
	return &permit.PermitEnvelopeV1{
		Domain: permit.PermitDomain{
			ProgramID: solana.MustPublicKeyFromBase58("9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"),
			Version:   permit.EnvelopeVersion,
			Cluster:   permit.ClusterDevnet,
		},
		Authorizer:  solana.MustPublicKeyFromBase58("7v91N7iZ9mNicL8WfG6cgSCKyRXydQjLh6UYBWwm6y1Q"),
		KeyType:     permit.KeyEd25519,
		Action:      permit.NoopAction{},
		Mode:        mode,
		ExpiresUnix: 1893456060,
		MaxFeeQuote: 5000,
		Nonce:       42,
	}
}

func TestRecordLinesWindowMode(t *testing.T) {
	env := inspectorEnvelope(permit.ModeHlWindow{K: 128})

	lines := recordLines(env)
	require.Len(t, lines, 1)

	rec, err := pda.NonceWindowRecord(env.Domain.ProgramID, env.Authorizer)
	require.NoError(t, err)
	assert.Contains(t, lines[0], rec.Address.String())
}

func TestRecordLinesNonceMode(t *testing.T) {
	var salt [32]byte
	salt[0] = 7
	env := inspectorEnvelope(permit.ModeNonce{Salt: salt})

	lines := recordLines(env)
	require.Len(t, lines, 1)

	rec, err := pda.UsedNonceRecord(env.Domain.ProgramID, env.Authorizer, salt[:])
	require.NoError(t, err)
	assert.Contains(t, lines[0], rec.Address.String())
}

func TestRecordLinesAllowanceModePrintsNoAddress(t *testing.T) {
	// The envelope does not carry the allowance record's seed
	// components, so no address can be derived for it.
	var id [32]byte
	id[0] = 9
	env := inspectorEnvelope(permit.ModeAllowance{ID: id})

	assert.Empty(t, recordLines(env))
}

func TestDecodeInputFormats(t *testing.T) {
	env := inspectorEnvelope(permit.ModeHlWindow{K: 128})
	raw, err := permit.Encode(env)
	require.NoError(t, err)

	got, err := decodeInput(hex.EncodeToString(raw))
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	_, err = decodeInput("!!not-an-encoding!!")
	require.Error(t, err)
}

func TestPrintEnvelopeDoesNotPanic(t *testing.T) {
	// Smoke over every mode variant.
	modes := []permit.ReplayMode{
		permit.ModeSequence{Expected: 1},
		permit.ModeNonce{},
		permit.ModeAllowance{},
		permit.ModeHlWindow{K: 128},
	}
	for i, mode := range modes {
		t.Run(fmt.Sprintf("mode_%d", i), func(t *testing.T) {
			printEnvelope(inspectorEnvelope(mode))
		})
	}
}
