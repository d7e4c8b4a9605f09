package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

type Relief string

const (
	// ReliefWaived books the whole window as non-chargeable (no-generation time).
	ReliefWaived Relief = "waived"
	// ReliefChargeable books the whole window as chargeable.
	ReliefChargeable Relief = "chargeable"
	// ReliefAllowance waives hours up to the contract allowance left for the month.
	ReliefAllowance Relief = "allowance"
)

func (r Relief) Valid() bool {
	switch r {
	case ReliefWaived, ReliefChargeable, ReliefAllowance:
		return true
	}
	return false
}

type DowntimeState string

const (
	DowntimeDraft     DowntimeState = "draft"
	DowntimeSubmitted DowntimeState = "submitted"
	DowntimeApproved  DowntimeState = "approved"
	DowntimeRejected  DowntimeState = "rejected"
)

type DowntimeRequest struct {
	ID              int64           `json:"id"`
	ContractID      int64           `json:"contract_id"`
	Start           time.Time       `json:"start"`
	End             time.Time       `json:"end"`
	Relief          Relief          `json:"relief"`
	Reason          string          `json:"reason"`
	State           DowntimeState   `json:"state"`
	WaivedHours     decimal.Decimal `json:"waived_hours"`
	ChargeableHours decimal.Decimal `json:"chargeable_hours"`
	ApprovedBy      *int64          `json:"approved_by"`
	ApprovedAt      *time.Time      `json:"approved_at"`
}

// DowntimeAllocation is the outcome of approving a request: the updated orders and request.
type DowntimeAllocation struct {
	Request DowntimeRequest
	Monthly []MonthlyOrder
	Daily   []DailyOrder
}

// DowntimeContext is the locked state a downtime approval is computed from.
type DowntimeContext struct {
	Request  DowntimeRequest
	Contract Contract
	Monthly  []MonthlyOrder
	Daily    []DailyOrder
}
