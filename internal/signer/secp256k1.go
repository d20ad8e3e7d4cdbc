package signer

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/solperp/permitgate/internal/permit"
)

// Secp256k1Permit is the alternate key-type form: a 65-byte recoverable
// signature over keccak256 of the canonical envelope bytes. No
// verification instruction is built for this path; the program verifies
// secp256k1 signatures itself from the raw signature.
type Secp256k1Permit struct {
	Envelope  *permit.PermitEnvelopeV1
	Message   []byte
	Signature []byte
	Address   common.Address
}

// SignSecp256k1 signs the envelope's canonical bytes with a secp256k1
// key. The envelope must declare KeySecp256k1.
func SignSecp256k1(env *permit.PermitEnvelopeV1, key *ecdsa.PrivateKey) (*Secp256k1Permit, error) {
	if key == nil {
		return nil, fmt.Errorf("private key is required")
	}
	if env.KeyType != permit.KeySecp256k1 {
		return nil, fmt.Errorf("envelope key type %d is not Secp256k1", env.KeyType)
	}

	message, err := permit.Encode(env)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}

	digest := crypto.Keccak256(message)
	sig, err := crypto.Sign(digest, key)
	if err != nil {
		return nil, fmt.Errorf("sign envelope: %w", err)
	}

	return &Secp256k1Permit{
		Envelope:  env,
		Message:   message,
		Signature: sig,
		Address:   crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

// VerifySecp256k1 recovers the signer from the recoverable signature
// and checks it against the permit's address.
func VerifySecp256k1(p *Secp256k1Permit) bool {
	if p == nil || p.Envelope == nil || len(p.Signature) != 65 {
		return false
	}
	message, err := permit.Encode(p.Envelope)
	if err != nil {
		return false
	}
	digest := crypto.Keccak256(message)
	pub, err := crypto.SigToPub(digest, p.Signature)
	if err != nil {
		return false
	}
	return crypto.PubkeyToAddress(*pub) == p.Address
}
