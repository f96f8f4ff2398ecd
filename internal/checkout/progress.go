package checkout

import "time"

type GateState string

const (
	GatePending   GateState = "PENDING"
	GateConfirmed GateState = "CONFIRMED"
)

func (s GateState) Confirmed() bool {
	return s == GateConfirmed
}

// Progress tracks the three checkout gates for one session. It lives only
// in memory: navigating away abandons it and a fresh checkout starts with
// every gate pending, while the persisted cart itself survives.
type Progress struct {
	Address  GateState `json:"address"`
	Payment  GateState `json:"payment"`
	Delivery GateState `json:"delivery"`

	placing   bool
	updatedAt time.Time
}

func newProgress() *Progress {
	return &Progress{
		Address:  GatePending,
		Payment:  GatePending,
		Delivery: GatePending,
	}
}

// ReadyToPlaceOrder reports whether every gate is confirmed.
func (p Progress) ReadyToPlaceOrder() bool {
	return p.Address.Confirmed() && p.Payment.Confirmed() && p.Delivery.Confirmed()
}
