package storage

import "time"

type ReportState string

const (
	ReportDraft     ReportState = "draft"
	ReportSubmitted ReportState = "submitted"
)

type Report struct {
	ID          int64       `json:"id"`
	Date        time.Time   `json:"date"`
	Scope       Scope       `json:"scope"`
	ManagerID   int64       `json:"manager_id"`
	Activities  string      `json:"activities"`
	Notes       string      `json:"notes"`
	State       ReportState `json:"state"`
	SubmittedAt *time.Time  `json:"submitted_at"`
	SubmittedBy *int64      `json:"submitted_by"`
	CreatedAt   time.Time   `json:"created_at"`

	Complaints        []Complaint        `json:"complaints"`
	StaffLogs         []StaffLog         `json:"staff_logs"`
	ContractorRatings []ContractorRating `json:"contractor_ratings"`
	MetricLines       []MetricLine       `json:"metric_lines"`
	Sections          []Section          `json:"sections"`
}

type Complaint struct {
	ID            int64     `json:"id"`
	ReportID      int64     `json:"report_id"`
	Scope         Scope     `json:"scope"`
	Description   string    `json:"description"`
	Customer      string    `json:"customer"`
	Severity      string    `json:"severity"`
	ActionTaken   string    `json:"action_taken"`
	Resolved      bool      `json:"resolved"`
	ResponsibleID int64     `json:"responsible_id,omitempty"`
	Date          time.Time `json:"date"`
	Reference     string    `json:"reference"`
}

type StaffLog struct {
	ID         int64  `json:"id"`
	ReportID   int64  `json:"report_id"`
	Scope      Scope  `json:"scope"`
	StaffName  string `json:"staff_name"`
	Role       string `json:"role"`
	Shift      string `json:"shift"`
	Issue      string `json:"issue"`
	Action     string `json:"action"`
	Attendance string `json:"attendance"`
	Note       string `json:"note"`
}

type ContractorRating struct {
	ID              int64   `json:"id"`
	ReportID        int64   `json:"report_id"`
	Scope           Scope   `json:"scope"`
	Contractor      string  `json:"contractor"`
	Rating          float64 `json:"rating"`
	Comment         string  `json:"comment"`
	FollowUpAction  string  `json:"follow_up_action"`
	ReferencePeriod string  `json:"reference_period"`
}

type MetricLine struct {
	ID         int64       `json:"id"`
	ReportID   int64       `json:"report_id"`
	TemplateID int64       `json:"template_id"`
	Scope      Scope       `json:"scope"`
	Name       string      `json:"name"`
	ValueType  ValueType   `json:"metric_type"`
	Options    []string    `json:"options,omitempty"`
	Required   bool        `json:"required"`
	Value      MetricValue `json:"value"`
	Sequence   int         `json:"sequence"`
}

type Section struct {
	ID          int64  `json:"id"`
	ReportID    int64  `json:"report_id"`
	TemplateID  int64  `json:"template_id"`
	Scope       Scope  `json:"scope"`
	Title       string `json:"title"`
	Subject     string `json:"subject"`
	Description string `json:"description"`
	Employee    string `json:"employee"`
	Partner     string `json:"partner"`
	Sequence    int    `json:"sequence"`
}

type ReportFilter struct {
	From       time.Time
	To         time.Time
	CompanyIDs []int64 // empty means all companies
	State      ReportState
}

// ReportTransition is a conditional state change: it applies only while the report is in From.
type ReportTransition struct {
	From        ReportState
	To          ReportState
	SubmittedAt *time.Time
	SubmittedBy *int64
}
