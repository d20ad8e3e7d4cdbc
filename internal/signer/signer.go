package signer

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	solana "github.com/gagliardetto/solana-go"

	"github.com/solperp/permitgate/internal/permit"
	"github.com/solperp/permitgate/internal/pkg/apperrors"
)

// Ed25519ProgramID is the native signature-verification precompile the
// companion instruction targets.
var Ed25519ProgramID = solana.MustPublicKeyFromBase58("Ed25519SigVerify111111111111111111111111111")

// Verification-instruction data layout. The header is 16 bytes:
//
//	[0]     numSignatures = 1
//	[1:3]   signature offset (u16 LE)          = 16
//	[3:5]   signature instruction index (u16)  = 0
//	[5:7]   pubkey offset (u16)                = 80
//	[7:9]   pubkey instruction index (u16)     = 0
//	[9:11]  message offset (u16)               = 112
//	[11:13] message length (u16)
//	[13:15] message instruction index (u16)    = 0
//	[15]    padding
//
// followed by the 64-byte signature, the 32-byte pubkey and the message.
// Offsets are relative to the start of this instruction's own data, so
// any producer of an Ed25519 verification instruction on the same chain
// consumes it identically.
const (
	verifyHeaderLen     = 16
	verifySigOffset     = 16
	verifyPubkeyOffset  = verifySigOffset + 64
	verifyMessageOffset = verifyPubkeyOffset + 32
)

// SignedPermit pairs an envelope with its detached signature and the
// ready-to-submit verification instruction data. The signature covers
// exactly Message, the envelope's canonical encoding; everything else
// is derived, not independently authoritative.
type SignedPermit struct {
	Envelope                *permit.PermitEnvelopeV1
	Message                 []byte
	Signature               solana.Signature
	PublicKey               solana.PublicKey
	VerificationInstruction []byte
}

func (p *SignedPermit) SignatureBase64() string {
	return base64.StdEncoding.EncodeToString(p.Signature[:])
}

func (p *SignedPermit) MessageHex() string {
	return hex.EncodeToString(p.Message)
}

// VerifyInstruction wraps the verification data as an instruction for
// the Ed25519 precompile. The precompile takes no accounts.
func (p *SignedPermit) VerifyInstruction() solana.Instruction {
	return solana.NewInstruction(Ed25519ProgramID, solana.AccountMetaSlice{}, p.VerificationInstruction)
}

// Sign encodes the envelope canonically, signs the bytes with the
// Ed25519 keypair and builds the companion verification instruction.
func Sign(env *permit.PermitEnvelopeV1, keypair solana.PrivateKey) (*SignedPermit, error) {
	if len(keypair) == 0 {
		return nil, fmt.Errorf("keypair is required")
	}
	if env.KeyType != permit.KeyEd25519 {
		return nil, fmt.Errorf("envelope key type %d is not Ed25519", env.KeyType)
	}

	message, err := permit.Encode(env)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}

	sig, err := keypair.Sign(message)
	if err != nil {
		return nil, fmt.Errorf("sign envelope: %w", err)
	}

	pub := keypair.PublicKey()
	ixData, err := BuildVerificationData(sig, pub, message)
	if err != nil {
		return nil, err
	}

	return &SignedPermit{
		Envelope:                env,
		Message:                 message,
		Signature:               sig,
		PublicKey:               pub,
		VerificationInstruction: ixData,
	}, nil
}

// SignWithSession signs as a delegated session key: the envelope's
// authorizer is overridden to the session key's public key before
// signing, and the on-chain verifier cross-checks the session record to
// confirm the delegate is authorized and in scope.
func SignWithSession(env *permit.PermitEnvelopeV1, sessionKeypair solana.PrivateKey) (*SignedPermit, error) {
	if len(sessionKeypair) == 0 {
		return nil, fmt.Errorf("session keypair is required")
	}
	delegated := *env
	delegated.Authorizer = sessionKeypair.PublicKey()
	return Sign(&delegated, sessionKeypair)
}

// SignPermits signs each envelope independently with the same keypair.
// There is no aggregation; results are positionally parallel to input.
func SignPermits(envs []*permit.PermitEnvelopeV1, keypair solana.PrivateKey) ([]*SignedPermit, error) {
	out := make([]*SignedPermit, 0, len(envs))
	for i, env := range envs {
		sp, err := Sign(env, keypair)
		if err != nil {
			return nil, fmt.Errorf("permit %d: %w", i, err)
		}
		out = append(out, sp)
	}
	return out, nil
}

// SignPermitsWithSession is the batch form of SignWithSession: every
// envelope's authorizer is overridden to the session pubkey before
// signing. Results are positionally parallel to input.
func SignPermitsWithSession(envs []*permit.PermitEnvelopeV1, sessionKeypair solana.PrivateKey) ([]*SignedPermit, error) {
	out := make([]*SignedPermit, 0, len(envs))
	for i, env := range envs {
		sp, err := SignWithSession(env, sessionKeypair)
		if err != nil {
			return nil, fmt.Errorf("permit %d: %w", i, err)
		}
		out = append(out, sp)
	}
	return out, nil
}

// Verify re-derives the message from the envelope and checks the
// detached signature locally. A self-check, not a substitute for the
// on-chain verification path.
func Verify(sp *SignedPermit) bool {
	if sp == nil || sp.Envelope == nil {
		return false
	}
	message, err := permit.Encode(sp.Envelope)
	if err != nil {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(sp.PublicKey.Bytes()), message, sp.Signature[:])
}

// BuildVerificationData assembles the precompile instruction data for
// one signature over one message.
func BuildVerificationData(sig solana.Signature, pubkey solana.PublicKey, message []byte) ([]byte, error) {
	if len(message) > 0xFFFF {
		return nil, apperrors.New(apperrors.ErrFieldOverflow,
			fmt.Sprintf("message length %d exceeds u16", len(message)), nil)
	}

	data := make([]byte, verifyMessageOffset+len(message))
	data[0] = 1
	binary.LittleEndian.PutUint16(data[1:3], verifySigOffset)
	binary.LittleEndian.PutUint16(data[3:5], 0)
	binary.LittleEndian.PutUint16(data[5:7], verifyPubkeyOffset)
	binary.LittleEndian.PutUint16(data[7:9], 0)
	binary.LittleEndian.PutUint16(data[9:11], verifyMessageOffset)
	binary.LittleEndian.PutUint16(data[11:13], uint16(len(message)))
	binary.LittleEndian.PutUint16(data[13:15], 0)
	data[15] = 0

	copy(data[verifySigOffset:], sig[:])
	copy(data[verifyPubkeyOffset:], pubkey.Bytes())
	copy(data[verifyMessageOffset:], message)
	return data, nil
}

// ParseVerificationData recovers (signature, pubkey, message) from
// instruction data produced by BuildVerificationData. Used by the
// inspector and tests.
func ParseVerificationData(data []byte) (solana.Signature, solana.PublicKey, []byte, error) {
	var sig solana.Signature
	var pub solana.PublicKey
	if len(data) < verifyMessageOffset {
		return sig, pub, nil, fmt.Errorf("verification data too short: %d bytes", len(data))
	}
	if data[0] != 1 {
		return sig, pub, nil, fmt.Errorf("unsupported signature count %d", data[0])
	}
	msgOffset := int(binary.LittleEndian.Uint16(data[9:11]))
	msgLen := int(binary.LittleEndian.Uint16(data[11:13]))
	if msgOffset+msgLen > len(data) {
		return sig, pub, nil, fmt.Errorf("message range out of bounds")
	}
	copy(sig[:], data[verifySigOffset:verifyPubkeyOffset])
	copy(pub[:], data[verifyPubkeyOffset:verifyMessageOffset])
	return sig, pub, data[msgOffset : msgOffset+msgLen], nil
}
