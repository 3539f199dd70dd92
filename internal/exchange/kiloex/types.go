package kiloex

// Task types as reported by the novice-task endpoint.
const (
	TaskMining           = "mining"
	TaskTradeCoin        = "trade_coin"
	TaskReferral         = "referral"
	TaskSubscribeChannel = "subscribe_tg_channel"
	TaskSpeedChannel     = "speed_tg_channel"
)

// Position directions accepted by the order endpoint.
const (
	PositionLong  = "long"
	PositionShort = "short"
)

// UserInfo is the mini-app account state returned by /tg/user/info.
type UserInfo struct {
	ID      int64   `json:"id"`
	Level   int     `json:"level"`
	Balance float64 `json:"balance"`
	Stamina float64 `json:"stamina"`
	Exp     float64 `json:"exp"`
}

// Product is one catalog entry from /tg/product/list.
type Product struct {
	ID   int    `json:"id"`
	Base string `json:"base"`
	Name string `json:"name"`
	Sort int    `json:"sort"`
}

// TaskStats holds the per-account progress counters reported alongside the
// task list.
type TaskStats struct {
	TradeVolume float64 `json:"tradeVolume"`
	Mining      float64 `json:"mining"`
	InviteNum   int     `json:"inviteNum"`
}

// Requirement is a single task completion threshold.
type Requirement struct {
	Amount float64 `json:"amount"`
}

// Task is a remote-owned gamified task. DoneTime and ReceiveTime are set by
// the remote once the task is completed and its reward claimed; UnlockID is
// non-nil while the task is gated behind another one.
type Task struct {
	ID          int64         `json:"id"`
	Name        string        `json:"name"`
	Type        string        `json:"type"`
	UnlockID    *int64        `json:"unlockId"`
	Requirement []Requirement `json:"requirement"`
	DoneTime    *int64        `json:"doneTime"`
	ReceiveTime *int64        `json:"receiveTime"`
}

// Done reports whether the task has already been completed or its reward
// already claimed.
func (t Task) Done() bool {
	return t.DoneTime != nil || t.ReceiveTime != nil
}

// OrderReq is the body of /tg/order/open.
type OrderReq struct {
	Account      string  `json:"account"`
	ProductID    int     `json:"productId"`
	Margin       float64 `json:"margin"`
	Leverage     int     `json:"leverage"`
	PositionType string  `json:"positionType"`
	SettleDelay  int     `json:"settleDelay"`
}

// Order describes an opened position.
type Order struct {
	Leverage  float64 `json:"leverage"`
	Margin    float64 `json:"margin"`
	CloseTime int64   `json:"closeTime"`
}

// Reward is a claimed task reward.
type Reward struct {
	Name   string  `json:"name"`
	Number float64 `json:"number"`
}

// ReferralCode is one bound referral code entry.
type ReferralCode struct {
	Code string `json:"code"`
}
