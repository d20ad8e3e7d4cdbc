package permit

import (
	"time"

	solana "github.com/gagliardetto/solana-go"
)

const (
	// DefaultExpiry is added to the clock when a call does not pin its
	// own expiry.
	DefaultExpiry = 60 * time.Second

	// DefaultWindowK is the sliding-window width used when no replay
	// mode is supplied.
	DefaultWindowK uint8 = 128
)

// Clock abstracts wall-clock reads so builder defaults are replaceable
// in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the production clock.
var SystemClock Clock = systemClock{}

// BuildOpts overrides the builder defaults for a single call. A nil
// BuildOpts (or nil field) means "use the default".
type BuildOpts struct {
	Nonce     *uint64
	ExpiresIn *time.Duration
	Relayer   *solana.PublicKey
	Mode      ReplayMode
}

// Builder assembles well-formed envelopes from action values, filling
// domain, fee cap, expiry, replay mode and nonce. It holds only
// read-only configuration; concurrent callers may share one instance.
type Builder struct {
	domain      PermitDomain
	authorizer  solana.PublicKey
	maxFeeQuote uint64
	expiry      time.Duration
	windowK     uint8
	clock       Clock
}

func NewBuilder(domain PermitDomain, authorizer solana.PublicKey, maxFeeQuote uint64, clock Clock) *Builder {
	if clock == nil {
		clock = SystemClock
	}
	if domain.Version == 0 {
		domain.Version = EnvelopeVersion
	}
	return &Builder{
		domain:      domain,
		authorizer:  authorizer,
		maxFeeQuote: maxFeeQuote,
		expiry:      DefaultExpiry,
		windowK:     DefaultWindowK,
		clock:       clock,
	}
}

// WithExpiry returns a copy of the builder with a different default TTL.
func (b *Builder) WithExpiry(d time.Duration) *Builder {
	cp := *b
	cp.expiry = d
	return &cp
}

// WithWindowK returns a copy of the builder whose default replay mode
// uses a different window exponent.
func (b *Builder) WithWindowK(k uint8) *Builder {
	cp := *b
	cp.windowK = k
	return &cp
}

func (b *Builder) Domain() PermitDomain         { return b.domain }
func (b *Builder) Authorizer() solana.PublicKey { return b.authorizer }

// DefaultNonce is the nonce used when a caller supplies none: the
// clock's current millisecond count.
func (b *Builder) DefaultNonce() uint64 {
	return uint64(b.clock.Now().UnixMilli())
}

func (b *Builder) PlaceOrder(a PlaceAction, opts *BuildOpts) *PermitEnvelopeV1 {
	if a.Tif == nil {
		a.Tif = TifGTC{}
	}
	return b.finish(a, opts)
}

func (b *Builder) Modify(a ModifyAction, opts *BuildOpts) *PermitEnvelopeV1 {
	if a.Tif == nil {
		a.Tif = TifGTC{}
	}
	return b.finish(a, opts)
}

func (b *Builder) CancelByID(marketID, orderID uint64, opts *BuildOpts) *PermitEnvelopeV1 {
	return b.finish(CancelByIDAction{MarketID: marketID, OrderID: orderID}, opts)
}

func (b *Builder) CancelByClientID(marketID uint64, clientID Uint128, opts *BuildOpts) *PermitEnvelopeV1 {
	return b.finish(CancelByClientIDAction{MarketID: marketID, ClientID: clientID}, opts)
}

// CancelAll with a nil marketID cancels across every market.
func (b *Builder) CancelAll(marketID *uint64, opts *BuildOpts) *PermitEnvelopeV1 {
	return b.finish(CancelAllAction{MarketID: marketID}, opts)
}

func (b *Builder) Withdraw(amount uint64, floor *HealthFloor, opts *BuildOpts) *PermitEnvelopeV1 {
	return b.finish(WithdrawAction{Amount: amount, HealthFloor: floor}, opts)
}

func (b *Builder) SetLeverage(marketID uint64, leverageBps uint16, cross bool, floor *HealthFloor, opts *BuildOpts) *PermitEnvelopeV1 {
	return b.finish(SetLeverageAction{
		MarketID:    marketID,
		LeverageBps: leverageBps,
		Cross:       cross,
		HealthFloor: floor,
	}, opts)
}

func (b *Builder) Faucet(amount uint64, opts *BuildOpts) *PermitEnvelopeV1 {
	return b.finish(FaucetAction{Amount: amount}, opts)
}

func (b *Builder) Noop(opts *BuildOpts) *PermitEnvelopeV1 {
	return b.finish(NoopAction{}, opts)
}

func (b *Builder) finish(action PermitAction, opts *BuildOpts) *PermitEnvelopeV1 {
	now := b.clock.Now()

	// Millisecond wall clock is monotonic enough for casual use but NOT
	// unique under rapid concurrent calls sharing one clock resolution.
	// Callers needing distinct nonces must pass their own (the exchange
	// adapter always does).
	nonce := uint64(now.UnixMilli())
	expiresIn := b.expiry
	var relayer *solana.PublicKey
	var mode ReplayMode

	if opts != nil {
		if opts.Nonce != nil {
			nonce = *opts.Nonce
		}
		if opts.ExpiresIn != nil {
			expiresIn = *opts.ExpiresIn
		}
		relayer = opts.Relayer
		mode = opts.Mode
	}
	if mode == nil {
		mode = ModeHlWindow{K: b.windowK}
	}

	return &PermitEnvelopeV1{
		Domain:      b.domain,
		Authorizer:  b.authorizer,
		KeyType:     KeyEd25519,
		Action:      action,
		Mode:        mode,
		ExpiresUnix: now.Add(expiresIn).Unix(),
		MaxFeeQuote: b.maxFeeQuote,
		Relayer:     relayer,
		Nonce:       nonce,
	}
}
