package permit

import (
	"encoding/binary"
	"fmt"

	solana "github.com/gagliardetto/solana-go"

	"github.com/solperp/permitgate/internal/pkg/apperrors"
)

// Canonical wire layout, version 1. Fixed-width little-endian fields,
// one discriminant byte ahead of every tagged union payload, Option<T>
// as a presence byte (0/1) then T, booleans as one byte. No padding,
// no length prefixes. The on-chain verifier rebuilds these exact bytes
// from the state it is handed and hash-checks them against the
// signature, so any one-byte deviation here fails verification.

// Encode serializes an envelope to its canonical bytes. It is total and
// pure for well-formed envelopes; the only failures are structural
// (nil action/mode or a union variant this version does not know).
func Encode(e *PermitEnvelopeV1) ([]byte, error) {
	if e == nil {
		return nil, fmt.Errorf("nil envelope")
	}
	if e.Action == nil {
		return nil, fmt.Errorf("envelope action is required")
	}
	if e.Mode == nil {
		return nil, fmt.Errorf("envelope replay mode is required")
	}

	w := newWriter()
	w.pubkey(e.Domain.ProgramID)
	w.u8(e.Domain.Version)
	w.u8(uint8(e.Domain.Cluster))
	w.pubkey(e.Authorizer)
	w.u8(uint8(e.KeyType))

	if err := encodeAction(w, e.Action); err != nil {
		return nil, err
	}
	if err := encodeMode(w, e.Mode); err != nil {
		return nil, err
	}

	w.i64(e.ExpiresUnix)
	w.u64(e.MaxFeeQuote)
	if e.Relayer != nil {
		w.u8(1)
		w.pubkey(*e.Relayer)
	} else {
		w.u8(0)
	}
	w.u64(e.Nonce)
	return w.buf, nil
}

func encodeAction(w *writer, a PermitAction) error {
	switch v := a.(type) {
	case PlaceAction:
		w.u8(TagPlace)
		w.u64(v.MarketID)
		w.u8(uint8(v.Side))
		w.u64(v.Qty)
		w.optU64(v.Price)
		if err := encodeTif(w, v.Tif); err != nil {
			return err
		}
		w.boolean(v.ReduceOnly)
		w.u128(v.ClientID)
		w.optU64(v.TriggerPrice)
		w.optFloor(v.HealthFloor)
	case CancelByIDAction:
		w.u8(TagCancelByID)
		w.u64(v.MarketID)
		w.u64(v.OrderID)
	case CancelByClientIDAction:
		w.u8(TagCancelByClientID)
		w.u64(v.MarketID)
		w.u128(v.ClientID)
	case CancelAllAction:
		w.u8(TagCancelAll)
		w.optU64(v.MarketID)
	case ModifyAction:
		w.u8(TagModify)
		w.u64(v.MarketID)
		w.u64(v.OrderID)
		w.u64(v.Qty)
		w.optU64(v.Price)
		if err := encodeTif(w, v.Tif); err != nil {
			return err
		}
		w.u128(v.NewClientID)
		w.optFloor(v.HealthFloor)
	case WithdrawAction:
		w.u8(TagWithdraw)
		w.u64(v.Amount)
		w.optFloor(v.HealthFloor)
	case SetLeverageAction:
		w.u8(TagSetLeverage)
		w.u64(v.MarketID)
		w.u16(v.LeverageBps)
		w.boolean(v.Cross)
		w.optFloor(v.HealthFloor)
	case NoopAction:
		w.u8(TagNoop)
	case FaucetAction:
		w.u8(TagFaucet)
		w.u64(v.Amount)
	default:
		return fmt.Errorf("unknown permit action %T", a)
	}
	return nil
}

func encodeTif(w *writer, t TimeInForce) error {
	switch v := t.(type) {
	case TifIOC:
		w.u8(tagTifIOC)
	case TifFOK:
		w.u8(tagTifFOK)
	case TifGTC:
		w.u8(tagTifGTC)
	case TifALO:
		w.u8(tagTifALO)
	case TifGTT:
		w.u8(tagTifGTT)
		w.u64(v.Timestamp)
	default:
		return fmt.Errorf("unknown time-in-force %T", t)
	}
	return nil
}

func encodeMode(w *writer, m ReplayMode) error {
	switch v := m.(type) {
	case ModeSequence:
		w.u8(tagModeSequence)
		w.u64(v.Expected)
	case ModeNonce:
		w.u8(tagModeNonce)
		w.bytes(v.Salt[:])
	case ModeAllowance:
		w.u8(tagModeAllowance)
		w.bytes(v.ID[:])
	case ModeHlWindow:
		w.u8(tagModeHlWindow)
		w.u8(v.K)
	default:
		return fmt.Errorf("unknown replay mode %T", m)
	}
	return nil
}

// Decode is the exact inverse of Encode. Any structural violation
// (truncation, unknown discriminant, option byte outside {0,1},
// trailing bytes) fails with a MALFORMED_ENVELOPE error.
func Decode(data []byte) (*PermitEnvelopeV1, error) {
	r := &reader{buf: data}
	e := &PermitEnvelopeV1{}

	var err error
	if e.Domain.ProgramID, err = r.pubkey(); err != nil {
		return nil, err
	}
	ver, err := r.u8()
	if err != nil {
		return nil, err
	}
	if ver != EnvelopeVersion {
		return nil, malformed(fmt.Sprintf("unsupported envelope version %d", ver))
	}
	e.Domain.Version = ver
	cluster, err := r.u8()
	if err != nil {
		return nil, err
	}
	if cluster > uint8(ClusterLocalnet) {
		return nil, malformed(fmt.Sprintf("unknown cluster %d", cluster))
	}
	e.Domain.Cluster = Cluster(cluster)

	if e.Authorizer, err = r.pubkey(); err != nil {
		return nil, err
	}
	kt, err := r.u8()
	if err != nil {
		return nil, err
	}
	if kt > uint8(KeySecp256k1) {
		return nil, malformed(fmt.Sprintf("unknown key type %d", kt))
	}
	e.KeyType = KeyType(kt)

	if e.Action, err = decodeAction(r); err != nil {
		return nil, err
	}
	if e.Mode, err = decodeMode(r); err != nil {
		return nil, err
	}
	if e.ExpiresUnix, err = r.i64(); err != nil {
		return nil, err
	}
	if e.MaxFeeQuote, err = r.u64(); err != nil {
		return nil, err
	}
	hasRelayer, err := r.option()
	if err != nil {
		return nil, err
	}
	if hasRelayer {
		pk, err := r.pubkey()
		if err != nil {
			return nil, err
		}
		e.Relayer = &pk
	}
	if e.Nonce, err = r.u64(); err != nil {
		return nil, err
	}
	if r.pos != len(r.buf) {
		return nil, malformed(fmt.Sprintf("%d trailing bytes after envelope", len(r.buf)-r.pos))
	}
	return e, nil
}

func decodeAction(r *reader) (PermitAction, error) {
	tag, err := r.u8()
	if err != nil {
		return nil, err
	}
	switch tag {
	case TagPlace:
		var a PlaceAction
		if a.MarketID, err = r.u64(); err != nil {
			return nil, err
		}
		side, err := r.u8()
		if err != nil {
			return nil, err
		}
		if side > 1 {
			return nil, malformed(fmt.Sprintf("invalid side %d", side))
		}
		a.Side = Side(side)
		if a.Qty, err = r.u64(); err != nil {
			return nil, err
		}
		if a.Price, err = r.optU64(); err != nil {
			return nil, err
		}
		if a.Tif, err = decodeTif(r); err != nil {
			return nil, err
		}
		if a.ReduceOnly, err = r.boolean(); err != nil {
			return nil, err
		}
		if a.ClientID, err = r.u128(); err != nil {
			return nil, err
		}
		if a.TriggerPrice, err = r.optU64(); err != nil {
			return nil, err
		}
		if a.HealthFloor, err = r.optFloor(); err != nil {
			return nil, err
		}
		return a, nil
	case TagCancelByID:
		var a CancelByIDAction
		if a.MarketID, err = r.u64(); err != nil {
			return nil, err
		}
		if a.OrderID, err = r.u64(); err != nil {
			return nil, err
		}
		return a, nil
	case TagCancelByClientID:
		var a CancelByClientIDAction
		if a.MarketID, err = r.u64(); err != nil {
			return nil, err
		}
		if a.ClientID, err = r.u128(); err != nil {
			return nil, err
		}
		return a, nil
	case TagCancelAll:
		var a CancelAllAction
		if a.MarketID, err = r.optU64(); err != nil {
			return nil, err
		}
		return a, nil
	case TagModify:
		var a ModifyAction
		if a.MarketID, err = r.u64(); err != nil {
			return nil, err
		}
		if a.OrderID, err = r.u64(); err != nil {
			return nil, err
		}
		if a.Qty, err = r.u64(); err != nil {
			return nil, err
		}
		if a.Price, err = r.optU64(); err != nil {
			return nil, err
		}
		if a.Tif, err = decodeTif(r); err != nil {
			return nil, err
		}
		if a.NewClientID, err = r.u128(); err != nil {
			return nil, err
		}
		if a.HealthFloor, err = r.optFloor(); err != nil {
			return nil, err
		}
		return a, nil
	case TagWithdraw:
		var a WithdrawAction
		if a.Amount, err = r.u64(); err != nil {
			return nil, err
		}
		if a.HealthFloor, err = r.optFloor(); err != nil {
			return nil, err
		}
		return a, nil
	case TagSetLeverage:
		var a SetLeverageAction
		if a.MarketID, err = r.u64(); err != nil {
			return nil, err
		}
		if a.LeverageBps, err = r.u16(); err != nil {
			return nil, err
		}
		if a.Cross, err = r.boolean(); err != nil {
			return nil, err
		}
		if a.HealthFloor, err = r.optFloor(); err != nil {
			return nil, err
		}
		return a, nil
	case TagNoop:
		return NoopAction{}, nil
	case TagFaucet:
		var a FaucetAction
		if a.Amount, err = r.u64(); err != nil {
			return nil, err
		}
		return a, nil
	default:
		return nil, malformed(fmt.Sprintf("unknown action discriminant %d", tag))
	}
}

func decodeTif(r *reader) (TimeInForce, error) {
	tag, err := r.u8()
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagTifIOC:
		return TifIOC{}, nil
	case tagTifFOK:
		return TifFOK{}, nil
	case tagTifGTC:
		return TifGTC{}, nil
	case tagTifALO:
		return TifALO{}, nil
	case tagTifGTT:
		ts, err := r.u64()
		if err != nil {
			return nil, err
		}
		return TifGTT{Timestamp: ts}, nil
	default:
		return nil, malformed(fmt.Sprintf("unknown time-in-force discriminant %d", tag))
	}
}

func decodeMode(r *reader) (ReplayMode, error) {
	tag, err := r.u8()
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagModeSequence:
		v, err := r.u64()
		if err != nil {
			return nil, err
		}
		return ModeSequence{Expected: v}, nil
	case tagModeNonce:
		var m ModeNonce
		if err := r.fixed(m.Salt[:]); err != nil {
			return nil, err
		}
		return m, nil
	case tagModeAllowance:
		var m ModeAllowance
		if err := r.fixed(m.ID[:]); err != nil {
			return nil, err
		}
		return m, nil
	case tagModeHlWindow:
		k, err := r.u8()
		if err != nil {
			return nil, err
		}
		return ModeHlWindow{K: k}, nil
	default:
		return nil, malformed(fmt.Sprintf("unknown replay mode discriminant %d", tag))
	}
}

func malformed(msg string) error {
	return apperrors.New(apperrors.ErrMalformedEnvelope, msg, nil)
}

// --- byte-level helpers ---

type writer struct {
	buf []byte
}

func newWriter() *writer {
	return &writer{buf: make([]byte, 0, 192)}
}

func (w *writer) u8(v uint8)   { w.buf = append(w.buf, v) }
func (w *writer) bytes(b []byte) { w.buf = append(w.buf, b...) }

func (w *writer) u16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

func (w *writer) u64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

func (w *writer) i64(v int64) {
	w.u64(uint64(v))
}

func (w *writer) boolean(v bool) {
	if v {
		w.u8(1)
	} else {
		w.u8(0)
	}
}

func (w *writer) pubkey(pk solana.PublicKey) {
	w.bytes(pk.Bytes())
}

func (w *writer) u128(v Uint128) {
	w.u64(v.Lo)
	w.u64(v.Hi)
}

func (w *writer) optU64(v *uint64) {
	if v == nil {
		w.u8(0)
		return
	}
	w.u8(1)
	w.u64(*v)
}

func (w *writer) optFloor(f *HealthFloor) {
	if f == nil {
		w.u8(0)
		return
	}
	w.u8(1)
	w.u8(uint8(f.Metric))
	w.i64(f.Min)
}

type reader struct {
	buf []byte
	pos int
}

func (r *reader) take(n int) ([]byte, error) {
	if len(r.buf)-r.pos < n {
		return nil, malformed(fmt.Sprintf("truncated envelope: need %d bytes at offset %d, have %d", n, r.pos, len(r.buf)-r.pos))
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *reader) u8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) u16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *reader) u64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *reader) i64() (int64, error) {
	v, err := r.u64()
	return int64(v), err
}

func (r *reader) boolean() (bool, error) {
	b, err := r.u8()
	if err != nil {
		return false, err
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, malformed(fmt.Sprintf("invalid boolean byte %d", b))
	}
}

func (r *reader) option() (bool, error) {
	b, err := r.u8()
	if err != nil {
		return false, err
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, malformed(fmt.Sprintf("invalid option byte %d", b))
	}
}

func (r *reader) fixed(dst []byte) error {
	b, err := r.take(len(dst))
	if err != nil {
		return err
	}
	copy(dst, b)
	return nil
}

func (r *reader) pubkey() (solana.PublicKey, error) {
	var pk solana.PublicKey
	if err := r.fixed(pk[:]); err != nil {
		return pk, err
	}
	return pk, nil
}

func (r *reader) u128() (Uint128, error) {
	lo, err := r.u64()
	if err != nil {
		return Uint128{}, err
	}
	hi, err := r.u64()
	if err != nil {
		return Uint128{}, err
	}
	return Uint128{Lo: lo, Hi: hi}, nil
}

func (r *reader) optU64() (*uint64, error) {
	present, err := r.option()
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, nil
	}
	v, err := r.u64()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *reader) optFloor() (*HealthFloor, error) {
	present, err := r.option()
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, nil
	}
	m, err := r.u8()
	if err != nil {
		return nil, err
	}
	if m > uint8(HealthRatioBps) {
		return nil, malformed(fmt.Sprintf("unknown health metric %d", m))
	}
	min, err := r.i64()
	if err != nil {
		return nil, err
	}
	return &HealthFloor{Metric: HealthMetric(m), Min: min}, nil
}
