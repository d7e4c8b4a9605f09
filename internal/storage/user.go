package storage

type User struct {
	ID           int64   `json:"id"`
	Login        string  `json:"login"`
	Name         string  `json:"name"`
	PasswordHash string  `json:"-"`
	Role         string  `json:"role"`
	CompanyIDs   []int64 `json:"company_ids"`
	DepartmentID int64   `json:"department_id"`
	Active       bool    `json:"active"`
}
