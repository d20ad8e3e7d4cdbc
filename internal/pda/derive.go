// Package pda derives the program-owned record addresses the permit
// program keys its state by. All derivations are pure; the canonical
// bump for a seed set is the first valid one found going down from 255,
// which is the order every chain-side lookup uses. A different valid
// bump would still hash-verify but would not match the account the
// program expects.
package pda

import (
	"encoding/binary"

	solana "github.com/gagliardetto/solana-go"

	"github.com/solperp/permitgate/internal/pkg/apperrors"
)

// Domain-separating labels. Versioned independently of the envelope
// wire version: the on-chain account layouts own these strings.
const (
	SeedSession     = "session_v1.0"
	SeedNonceWindow = "nonce_window_v1.0"
	SeedAllowance   = "allowance_v1.0"
	SeedUsedNonce   = "used_nonce_v1.0"
	SeedOrder       = "order_v1.0"
)

// Record is a derived address plus its bump discriminator.
type Record struct {
	Address solana.PublicKey
	Bump    uint8
}

// derive searches bumps 255..0 for the first seed set that hashes off
// the curve. Exhausting all 256 bumps is practically impossible and is
// surfaced as a fatal configuration error, never retried.
func derive(programID solana.PublicKey, seeds ...[]byte) (Record, error) {
	for bump := 255; bump >= 0; bump-- {
		attempt := make([][]byte, len(seeds), len(seeds)+1)
		copy(attempt, seeds)
		attempt = append(attempt, []byte{uint8(bump)})
		addr, err := solana.CreateProgramAddress(attempt, programID)
		if err != nil {
			continue
		}
		return Record{Address: addr, Bump: uint8(bump)}, nil
	}
	return Record{}, apperrors.New(apperrors.ErrDerivationExhausted,
		"no valid bump for record derivation", nil)
}

// SessionRecord holds a delegated session key's scope and expiry.
func SessionRecord(programID, owner, session solana.PublicKey) (Record, error) {
	return derive(programID, []byte(SeedSession), owner.Bytes(), session.Bytes())
}

// NonceWindowRecord backs the sliding-window replay mode for a signer.
func NonceWindowRecord(programID, signer solana.PublicKey) (Record, error) {
	return derive(programID, []byte(SeedNonceWindow), signer.Bytes())
}

// AllowanceRecord backs the bounded-use replay mode.
func AllowanceRecord(programID, owner, authorizer solana.PublicKey, id uint64) (Record, error) {
	var idLE [8]byte
	binary.LittleEndian.PutUint64(idLE[:], id)
	return derive(programID, []byte(SeedAllowance), owner.Bytes(), authorizer.Bytes(), idLE[:])
}

// UsedNonceRecord marks a one-time salt as consumed.
func UsedNonceRecord(programID, owner solana.PublicKey, salt []byte) (Record, error) {
	return derive(programID, []byte(SeedUsedNonce), owner.Bytes(), salt)
}

// OrderRecord is the per-order account referenced by the consumption
// instruction.
func OrderRecord(programID solana.PublicKey, marketID uint64, user solana.PublicKey, orderID uint64) (Record, error) {
	var marketLE, orderLE [8]byte
	binary.LittleEndian.PutUint64(marketLE[:], marketID)
	binary.LittleEndian.PutUint64(orderLE[:], orderID)
	return derive(programID, []byte(SeedOrder), marketLE[:], user.Bytes(), orderLE[:])
}
