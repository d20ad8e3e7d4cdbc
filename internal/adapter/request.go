package adapter

// Exchange JSON request/response shapes. Decimal fields travel as
// strings; the adapter converts them to fixed-point at each market's
// decimal counts.

// Request is the incoming exchange envelope: one action, one base
// nonce. Batch actions fan out into several permits whose nonces are
// base + position.
type Request struct {
	Action Action `json:"action" binding:"required"`
	Nonce  uint64 `json:"nonce,omitempty"`
}

// Action kinds understood by the adapter.
const (
	KindOrder          = "order"
	KindBatchOrder     = "batchOrder"
	KindCancel         = "cancel"
	KindCancelByCloid  = "cancelByCloid"
	KindModify         = "modify"
	KindModifyBatch    = "modifyBatch"
	KindUpdateLeverage = "updateLeverage"
	KindWithdraw       = "withdraw"
	KindFaucet         = "faucet"
	KindNoop           = "noop"
)

type Action struct {
	Type string `json:"type" binding:"required"`

	// order / batchOrder
	Orders []OrderItem `json:"orders,omitempty"`

	// cancel / cancelByCloid
	Cancels []CancelItem `json:"cancels,omitempty"`

	// modify / modifyBatch
	Modifies []ModifyItem `json:"modifies,omitempty"`

	// updateLeverage
	Leverage *LeverageItem `json:"leverage,omitempty"`

	// withdraw / faucet
	Amount string `json:"amount,omitempty"`
}

// OrderItem is one order intent. Market may be named by symbol or by
// numeric index; symbol wins when both are set.
type OrderItem struct {
	Market     string  `json:"market,omitempty"`
	Asset      *uint64 `json:"asset,omitempty"`
	IsBuy      bool    `json:"isBuy"`
	Price      string  `json:"price,omitempty"`
	Size       string  `json:"size"`
	ReduceOnly bool    `json:"reduceOnly,omitempty"`
	Tif        string  `json:"tif,omitempty"`
	Cloid      string  `json:"cloid,omitempty"`
	Trigger    string  `json:"trigger,omitempty"`
}

type CancelItem struct {
	Market  string  `json:"market,omitempty"`
	Asset   *uint64 `json:"asset,omitempty"`
	OrderID uint64  `json:"oid,omitempty"`
	Cloid   string  `json:"cloid,omitempty"`
}

type ModifyItem struct {
	OrderID uint64    `json:"oid"`
	Order   OrderItem `json:"order"`
}

type LeverageItem struct {
	Market   string  `json:"market,omitempty"`
	Asset    *uint64 `json:"asset,omitempty"`
	Leverage float64 `json:"leverage"`
	IsCross  bool    `json:"isCross"`
}
