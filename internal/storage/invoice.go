package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

type InvoiceLineKind string

const (
	LinePrime    InvoiceLineKind = "prime"
	LineStandby  InvoiceLineKind = "standby"
	LineDowntime InvoiceLineKind = "downtime"
	LineWaived   InvoiceLineKind = "waived"
)

type Invoice struct {
	ID              int64           `json:"id"`
	Reference       string          `json:"reference"`
	MonthlyOrderID  int64           `json:"monthly_order_id"`
	ContractID      int64           `json:"contract_id"`
	Customer        string          `json:"customer"`
	InvoiceDate     time.Time       `json:"invoice_date"`
	PeriodStart     time.Time       `json:"period_start"`
	PeriodEnd       time.Time       `json:"period_end"`
	TargetQty       decimal.Decimal `json:"target_qty"`
	AdjustedQty     decimal.Decimal `json:"adjusted_target_qty"`
	PrimeOutputQty  decimal.Decimal `json:"prime_output_qty"`
	StandbyQty      decimal.Decimal `json:"standby_qty"`
	WaivedHours     decimal.Decimal `json:"waived_hours"`
	ChargeableHours decimal.Decimal `json:"chargeable_hours"`
	RuntimeMinutes  decimal.Decimal `json:"runtime_minutes"`
	IdleMinutes     decimal.Decimal `json:"idle_minutes"`
	DocketCount     int             `json:"docket_count"`
	Cooling         bool            `json:"is_cooling"`
	Total           decimal.Decimal `json:"total"`
	State           string          `json:"state"`
	Lines           []InvoiceLine   `json:"lines"`
}

type InvoiceLine struct {
	ID        int64           `json:"id"`
	InvoiceID int64           `json:"invoice_id"`
	Kind      InvoiceLineKind `json:"kind"`
	Name      string          `json:"name"`
	Unit      string          `json:"unit"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Amount    decimal.Decimal `json:"amount"`
}
