package permit

import (
	"encoding/binary"
	"math/big"
)

// Uint128 holds a 128-bit client-supplied identifier. Client order ids
// from external exchanges exceed 64 bits, so they travel as two words.
type Uint128 struct {
	Lo uint64
	Hi uint64
}

func U128FromUint64(v uint64) Uint128 {
	return Uint128{Lo: v}
}

// U128FromBig truncates b to its low 128 bits. Negative inputs take the
// two's-complement interpretation of their absolute value's low bits.
func U128FromBig(b *big.Int) Uint128 {
	var buf [16]byte
	raw := b.Bytes()
	if len(raw) > 16 {
		raw = raw[len(raw)-16:]
	}
	copy(buf[16-len(raw):], raw)
	return Uint128{
		Hi: binary.BigEndian.Uint64(buf[0:8]),
		Lo: binary.BigEndian.Uint64(buf[8:16]),
	}
}

func (u Uint128) Big() *big.Int {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[0:8], u.Hi)
	binary.BigEndian.PutUint64(buf[8:16], u.Lo)
	return new(big.Int).SetBytes(buf[:])
}

func (u Uint128) IsZero() bool {
	return u.Lo == 0 && u.Hi == 0
}

func (u Uint128) String() string {
	return u.Big().String()
}
