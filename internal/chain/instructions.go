// Package chain builds the instructions the permit program consumes:
// the permit-consumption instruction that references a preceding
// Ed25519 verification instruction by index, and the session/allowance
// delegation instructions.
package chain

import (
	"encoding/binary"
	"fmt"

	solana "github.com/gagliardetto/solana-go"

	"github.com/solperp/permitgate/internal/permit"
)

// Instruction discriminants.
const (
	IxConsumePermit   uint8 = 50
	IxDelegateSession uint8 = 51
	IxRevokeSession   uint8 = 52
	IxCreateAllowance uint8 = 53
	IxRevokeAllowance uint8 = 54
)

// Session scope bitmask flags.
const (
	ScopePlace       uint32 = 1 << 0
	ScopeCancel      uint32 = 1 << 1
	ScopeWithdraw    uint32 = 1 << 2
	ScopeSetLeverage uint32 = 1 << 3
	ScopeFaucet      uint32 = 1 << 4
	ScopeAll         uint32 = 0xFFFFFFFF
)

// ScopeForAction returns the bitmask flag a session needs to sign the
// given action. Modify amends resting orders and rides the Place scope;
// Noop needs no scope at all.
func ScopeForAction(a permit.PermitAction) uint32 {
	switch a.(type) {
	case permit.PlaceAction, permit.ModifyAction:
		return ScopePlace
	case permit.CancelByIDAction, permit.CancelByClientIDAction, permit.CancelAllAction:
		return ScopeCancel
	case permit.WithdrawAction:
		return ScopeWithdraw
	case permit.SetLeverageAction:
		return ScopeSetLeverage
	case permit.FaucetAction:
		return ScopeFaucet
	default:
		return 0
	}
}

// ConsumeAccounts is the ordered account list of the consumption
// instruction. The four record slots are conditional: which ones must
// be present follows from the envelope's replay mode and whether a
// session key signed.
type ConsumeAccounts struct {
	Submitter   solana.PublicKey
	GlobalState solana.PublicKey
	Margin      solana.PublicKey
	Market      solana.PublicKey
	OrderRecord solana.PublicKey
	OrderLog    solana.PublicKey
	RentPayer   solana.PublicKey

	SessionRecord     *solana.PublicKey
	NonceWindowRecord *solana.PublicKey
	AllowanceRecord   *solana.PublicKey
	UsedNonceRecord   *solana.PublicKey
}

// NewConsumePermitInstruction builds the instruction that consumes a
// verified permit. A companion Ed25519 verification instruction must
// precede it in the same transaction at index 0; the program reads it
// back through the instructions sysvar.
func NewConsumePermitInstruction(programID solana.PublicKey, accts ConsumeAccounts, sig solana.Signature) solana.Instruction {
	metas := solana.AccountMetaSlice{
		solana.NewAccountMeta(accts.Submitter, true, true),
		solana.NewAccountMeta(solana.SysVarInstructionsPubkey, false, false),
		solana.NewAccountMeta(accts.GlobalState, true, false),
		solana.NewAccountMeta(accts.Margin, true, false),
		solana.NewAccountMeta(accts.Market, true, false),
		solana.NewAccountMeta(accts.OrderRecord, true, false),
		solana.NewAccountMeta(accts.OrderLog, true, false),
		solana.NewAccountMeta(accts.RentPayer, true, true),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
	}
	if accts.SessionRecord != nil {
		metas = append(metas, solana.NewAccountMeta(*accts.SessionRecord, false, false))
	}
	if accts.NonceWindowRecord != nil {
		metas = append(metas, solana.NewAccountMeta(*accts.NonceWindowRecord, true, false))
	}
	if accts.AllowanceRecord != nil {
		metas = append(metas, solana.NewAccountMeta(*accts.AllowanceRecord, true, false))
	}
	if accts.UsedNonceRecord != nil {
		metas = append(metas, solana.NewAccountMeta(*accts.UsedNonceRecord, true, false))
	}

	data := make([]byte, 2+64)
	data[0] = IxConsumePermit
	data[1] = 0 // verification instruction index
	copy(data[2:], sig[:])
	return solana.NewInstruction(programID, metas, data)
}

// RequiredRecords names which conditional record accounts a consumption
// instruction must carry for an envelope, given whether a session key
// signed it.
type RequiredRecords struct {
	Session     bool
	NonceWindow bool
	Allowance   bool
	UsedNonce   bool
}

func RecordsForEnvelope(env *permit.PermitEnvelopeV1, delegated bool) (RequiredRecords, error) {
	req := RequiredRecords{Session: delegated}
	switch env.Mode.(type) {
	case permit.ModeSequence:
		// Sequence counters live in the margin account itself.
	case permit.ModeNonce:
		req.UsedNonce = true
	case permit.ModeAllowance:
		req.Allowance = true
	case permit.ModeHlWindow:
		req.NonceWindow = true
	default:
		return req, fmt.Errorf("unknown replay mode %T", env.Mode)
	}
	return req, nil
}

// NewDelegateSessionInstruction registers a session key under the owner
// with a scope bitmask and expiry.
func NewDelegateSessionInstruction(programID, owner, sessionRecord, sessionPubkey solana.PublicKey, expiresUnix int64, scope uint32) solana.Instruction {
	data := make([]byte, 1+32+8+4)
	data[0] = IxDelegateSession
	copy(data[1:33], sessionPubkey.Bytes())
	binary.LittleEndian.PutUint64(data[33:41], uint64(expiresUnix))
	binary.LittleEndian.PutUint32(data[41:45], scope)

	return solana.NewInstruction(programID, solana.AccountMetaSlice{
		solana.NewAccountMeta(owner, true, true),
		solana.NewAccountMeta(sessionRecord, true, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
	}, data)
}

func NewRevokeSessionInstruction(programID, owner, sessionRecord, sessionPubkey solana.PublicKey) solana.Instruction {
	data := make([]byte, 1+32)
	data[0] = IxRevokeSession
	copy(data[1:33], sessionPubkey.Bytes())

	return solana.NewInstruction(programID, solana.AccountMetaSlice{
		solana.NewAccountMeta(owner, true, true),
		solana.NewAccountMeta(sessionRecord, true, false),
	}, data)
}

// NewCreateAllowanceInstruction creates a bounded-use allowance for an
// authorizer key.
func NewCreateAllowanceInstruction(programID, owner, allowanceRecord, authorizer solana.PublicKey, id uint64, maxUses uint16) solana.Instruction {
	data := make([]byte, 1+32+8+2)
	data[0] = IxCreateAllowance
	copy(data[1:33], authorizer.Bytes())
	binary.LittleEndian.PutUint64(data[33:41], id)
	binary.LittleEndian.PutUint16(data[41:43], maxUses)

	return solana.NewInstruction(programID, solana.AccountMetaSlice{
		solana.NewAccountMeta(owner, true, true),
		solana.NewAccountMeta(allowanceRecord, true, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
	}, data)
}

func NewRevokeAllowanceInstruction(programID, owner, allowanceRecord solana.PublicKey) solana.Instruction {
	return solana.NewInstruction(programID, solana.AccountMetaSlice{
		solana.NewAccountMeta(owner, true, true),
		solana.NewAccountMeta(allowanceRecord, true, false),
	}, []byte{IxRevokeAllowance})
}
