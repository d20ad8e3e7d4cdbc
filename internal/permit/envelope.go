package permit

import (
	solana "github.com/gagliardetto/solana-go"
)

// PermitEnvelopeV1 is the signed unit. Once serialized it is immutable:
// any field change invalidates the signature over its canonical bytes.
// The struct is a plain value; nothing in this package retains one.
type PermitEnvelopeV1 struct {
	Domain      PermitDomain
	Authorizer  solana.PublicKey
	KeyType     KeyType
	Action      PermitAction
	Mode        ReplayMode
	ExpiresUnix int64
	MaxFeeQuote uint64
	Relayer     *solana.PublicKey
	Nonce       uint64
}

// RiskAffecting reports whether the envelope's action is one of the four
// variants allowed to carry a HealthFloor.
func (e *PermitEnvelopeV1) RiskAffecting() bool {
	switch e.Action.(type) {
	case PlaceAction, ModifyAction, WithdrawAction, SetLeverageAction:
		return true
	default:
		return false
	}
}

// Floor returns the action's health floor, or nil.
func (e *PermitEnvelopeV1) Floor() *HealthFloor {
	switch a := e.Action.(type) {
	case PlaceAction:
		return a.HealthFloor
	case ModifyAction:
		return a.HealthFloor
	case WithdrawAction:
		return a.HealthFloor
	case SetLeverageAction:
		return a.HealthFloor
	default:
		return nil
	}
}
