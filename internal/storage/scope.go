package storage

// Scope is the company/branch/department triple a record belongs to.
// A zero id means the field is unset.
type Scope struct {
	CompanyID    int64 `json:"company_id"`
	BranchID     int64 `json:"branch_id,omitempty"`
	DepartmentID int64 `json:"department_id,omitempty"`
}

func (s Scope) IsZero() bool {
	return s.CompanyID == 0 && s.BranchID == 0 && s.DepartmentID == 0
}

// Covers reports whether a template restricted to s applies to a record in target:
// every set field of s must equal the corresponding field of target.
func (s Scope) Covers(target Scope) bool {
	if s.CompanyID != 0 && s.CompanyID != target.CompanyID {
		return false
	}
	if s.BranchID != 0 && s.BranchID != target.BranchID {
		return false
	}
	if s.DepartmentID != 0 && s.DepartmentID != target.DepartmentID {
		return false
	}
	return true
}
