package storage

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type Workcenter struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	ExternalID string `json:"external_id"`
	CompanyID  int64  `json:"company_id"`
}

type ContractState string

const (
	ContractDraft     ContractState = "draft"
	ContractConfirmed ContractState = "confirmed"
)

// Contract is the confirmed sales contract the production chain is derived from.
type Contract struct {
	ID                int64           `json:"id"`
	Name              string          `json:"name"`
	Customer          string          `json:"customer"`
	CompanyID         int64           `json:"company_id"`
	WorkcenterID      int64           `json:"workcenter_id"`
	Product           string          `json:"product"`
	StartDate         time.Time       `json:"start_date"`
	EndDate           time.Time       `json:"end_date"`
	MonthlyMGQ        decimal.Decimal `json:"monthly_mgq"`
	WaiveOffAllowance decimal.Decimal `json:"waive_off_allowance_hours"`
	UnitRate          decimal.Decimal `json:"unit_rate"`
	StandbyRateDelta  decimal.Decimal `json:"standby_rate_delta"`
	DowntimeHourRate  decimal.Decimal `json:"downtime_hour_rate"`
	CoolingMonths     int             `json:"cooling_period_months"`
	State             ContractState   `json:"state"`
	CreatedAt         time.Time       `json:"created_at"`
}

// CoolingEnd is the last day of the cooling period, or the zero time when the contract
// has none. No standby is billed for days up to and including it.
func (c Contract) CoolingEnd() time.Time {
	if c.CoolingMonths <= 0 {
		return time.Time{}
	}
	// Month arithmetic clamps to the last day of the target month instead of overflowing.
	first := time.Date(c.StartDate.Year(), c.StartDate.Month()+time.Month(c.CoolingMonths), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1).Day()
	day := min(c.StartDate.Day(), last)
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
}

type MonthlyState string

const (
	MonthlyDraft     MonthlyState = "draft"
	MonthlyScheduled MonthlyState = "scheduled"
	MonthlyDone      MonthlyState = "done"
)

type MonthlyOrder struct {
	ID                 int64           `json:"id"`
	ContractID         int64           `json:"contract_id"`
	WorkcenterID       int64           `json:"workcenter_id"`
	Name               string          `json:"name"`
	DateStart          time.Time       `json:"date_start"`
	DateEnd            time.Time       `json:"date_end"`
	TargetQty          decimal.Decimal `json:"target_qty"`
	AdjustedTargetQty  decimal.Decimal `json:"adjusted_target_qty"`
	WaivedHours        decimal.Decimal `json:"waived_hours"`
	ChargeableHours    decimal.Decimal `json:"chargeable_hours"`
	AllowanceUsedHours decimal.Decimal `json:"allowance_used_hours"`
	Cooling            bool            `json:"is_cooling"`
	State              MonthlyState    `json:"state"`
}

type DailyState string

const (
	DailyConfirmed DailyState = "confirmed"
	DailyProgress  DailyState = "progress"
	DailyDone      DailyState = "done"
	DailyCancel    DailyState = "cancel"
)

// Open reports whether telemetry may still be booked against an order in this state.
func (s DailyState) Open() bool {
	return s == DailyConfirmed || s == DailyProgress
}

type DailyOrder struct {
	ID              int64           `json:"id"`
	MonthlyOrderID  int64           `json:"monthly_order_id"`
	ContractID      int64           `json:"contract_id"`
	WorkcenterID    int64           `json:"workcenter_id"`
	Name            string          `json:"name"`
	Date            time.Time       `json:"date"`
	Sequence        int             `json:"sequence"`
	TargetQty       decimal.Decimal `json:"target_qty"`
	ProducedQty     decimal.Decimal `json:"produced_qty"`
	RuntimeMinutes  decimal.Decimal `json:"runtime_minutes"`
	IdleMinutes     decimal.Decimal `json:"idle_minutes"`
	ReliefQty       decimal.Decimal `json:"relief_qty"`
	WaivedHours     decimal.Decimal `json:"waived_hours"`
	ChargeableHours decimal.Decimal `json:"chargeable_hours"`
	State           DailyState      `json:"state"`
	LastTelemetryAt *time.Time      `json:"last_telemetry_at"`

	// Docket is the draft docket created together with the order.
	Docket *Docket `json:"docket,omitempty"`
}

type DocketSource string

const (
	DocketSchedule  DocketSource = "schedule"
	DocketTelemetry DocketSource = "telemetry"
	DocketManual    DocketSource = "manual"
)

type DocketState string

const (
	DocketDraft        DocketState = "draft"
	DocketInProduction DocketState = "in_production"
	DocketDelivered    DocketState = "delivered"
	DocketCancel       DocketState = "cancel"
)

type Docket struct {
	ID             int64           `json:"id"`
	DailyOrderID   int64           `json:"daily_order_id"`
	MonthlyOrderID int64           `json:"monthly_order_id"`
	ContractID     int64           `json:"contract_id"`
	WorkcenterID   int64           `json:"workcenter_id"`
	DocketNo       string          `json:"docket_no"`
	Date           time.Time       `json:"date"`
	Source         DocketSource    `json:"source"`
	State          DocketState     `json:"state"`
	Qty            decimal.Decimal `json:"qty"`
	RuntimeMinutes decimal.Decimal `json:"runtime_minutes"`
	IdleMinutes    decimal.Decimal `json:"idle_minutes"`
	Alarms         []string        `json:"alarms"`
	Payload        json.RawMessage `json:"payload,omitempty"`
	Note           string          `json:"note"`
	ReceivedAt     *time.Time      `json:"received_at"`
}

// Advance reports whether a docket may move from s to next. Dockets only move forward
// and any docket except a cancelled one may be cancelled.
func (s DocketState) Advance(next DocketState) bool {
	switch next {
	case DocketInProduction:
		return s == DocketDraft
	case DocketDelivered:
		return s == DocketDraft || s == DocketInProduction
	case DocketCancel:
		return s != DocketCancel
	}
	return false
}

// DocketChange is what a manual docket edit changes: the recomputed order, its schedule
// docket and the docket that was created or moved.
type DocketChange struct {
	Order  DailyOrder `json:"order"`
	Docket Docket     `json:"docket"`
	// Created is set when Docket is new and must be inserted.
	Created bool `json:"created"`
}

// TelemetryBooking is what one telemetry payload changes: the current order (with its
// schedule docket) and the docket appended for the payload.
type TelemetryBooking struct {
	Order  DailyOrder
	Docket Docket
}
