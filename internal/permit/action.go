package permit

// TimeInForce is a closed sum type: only GTT carries a payload.
// The codec switches exhaustively over these variants; adding one means
// touching every switch (codec, builder, adapter) plus the wire version.
type TimeInForce interface {
	tifTag() uint8
}

type TifIOC struct{}
type TifFOK struct{}
type TifGTC struct{}
type TifALO struct{}
type TifGTT struct {
	Timestamp uint64
}

func (TifIOC) tifTag() uint8 { return tagTifIOC }
func (TifFOK) tifTag() uint8 { return tagTifFOK }
func (TifGTC) tifTag() uint8 { return tagTifGTC }
func (TifALO) tifTag() uint8 { return tagTifALO }
func (TifGTT) tifTag() uint8 { return tagTifGTT }

const (
	tagTifIOC uint8 = iota
	tagTifFOK
	tagTifGTC
	tagTifALO
	tagTifGTT
)

// ReplayMode selects which replay-protection record(s) the consuming
// instruction must reference on chain.
type ReplayMode interface {
	modeTag() uint8
}

// ModeSequence requires the on-chain sequence counter to equal Expected.
type ModeSequence struct {
	Expected uint64
}

// ModeNonce burns a one-time salt into a used-nonce record.
type ModeNonce struct {
	Salt [32]byte
}

// ModeAllowance decrements a pre-created allowance record.
type ModeAllowance struct {
	ID [32]byte
}

// ModeHlWindow accepts any nonce within a sliding window of width K over
// the signer's nonce-window record.
type ModeHlWindow struct {
	K uint8
}

func (ModeSequence) modeTag() uint8  { return tagModeSequence }
func (ModeNonce) modeTag() uint8     { return tagModeNonce }
func (ModeAllowance) modeTag() uint8 { return tagModeAllowance }
func (ModeHlWindow) modeTag() uint8  { return tagModeHlWindow }

const (
	tagModeSequence uint8 = iota
	tagModeNonce
	tagModeAllowance
	tagModeHlWindow
)

// PermitAction is the closed set of operations a permit can authorize.
// Discriminants 0-8 are wire constants.
type PermitAction interface {
	actionTag() uint8
}

type PlaceAction struct {
	MarketID     uint64
	Side         Side
	Qty          uint64
	Price        *uint64
	Tif          TimeInForce
	ReduceOnly   bool
	ClientID     Uint128
	TriggerPrice *uint64
	HealthFloor  *HealthFloor
}

type CancelByIDAction struct {
	MarketID uint64
	OrderID  uint64
}

type CancelByClientIDAction struct {
	MarketID uint64
	ClientID Uint128
}

// CancelAllAction with a nil MarketID cancels across every market.
type CancelAllAction struct {
	MarketID *uint64
}

type ModifyAction struct {
	MarketID    uint64
	OrderID     uint64
	Qty         uint64
	Price       *uint64
	Tif         TimeInForce
	NewClientID Uint128
	HealthFloor *HealthFloor
}

type WithdrawAction struct {
	Amount      uint64
	HealthFloor *HealthFloor
}

type SetLeverageAction struct {
	MarketID    uint64
	LeverageBps uint16
	Cross       bool
	HealthFloor *HealthFloor
}

type NoopAction struct{}

type FaucetAction struct {
	Amount uint64
}

func (PlaceAction) actionTag() uint8            { return TagPlace }
func (CancelByIDAction) actionTag() uint8       { return TagCancelByID }
func (CancelByClientIDAction) actionTag() uint8 { return TagCancelByClientID }
func (CancelAllAction) actionTag() uint8        { return TagCancelAll }
func (ModifyAction) actionTag() uint8           { return TagModify }
func (WithdrawAction) actionTag() uint8         { return TagWithdraw }
func (SetLeverageAction) actionTag() uint8      { return TagSetLeverage }
func (NoopAction) actionTag() uint8             { return TagNoop }
func (FaucetAction) actionTag() uint8           { return TagFaucet }

const (
	TagPlace uint8 = iota
	TagCancelByID
	TagCancelByClientID
	TagCancelAll
	TagModify
	TagWithdraw
	TagSetLeverage
	TagNoop
	TagFaucet
)

// ActionTag exposes the wire discriminant of an action.
func ActionTag(a PermitAction) uint8 { return a.actionTag() }

// ActionName returns a stable lowercase name for logs and metrics.
func ActionName(a PermitAction) string {
	switch a.(type) {
	case PlaceAction:
		return "place"
	case CancelByIDAction:
		return "cancel_by_id"
	case CancelByClientIDAction:
		return "cancel_by_client_id"
	case CancelAllAction:
		return "cancel_all"
	case ModifyAction:
		return "modify"
	case WithdrawAction:
		return "withdraw"
	case SetLeverageAction:
		return "set_leverage"
	case NoopAction:
		return "noop"
	case FaucetAction:
		return "faucet"
	default:
		return "unknown"
	}
}
