package mysql

import (
	"context"
	"encoding/json"
	"fmt"

	"plantops/internal/storage"
)

func (s *Storage) CreateUser(ctx context.Context, u *storage.User) error {
	const op = "storage.mysql.CreateUser"

	companies, err := json.Marshal(nonNil(u.CompanyIDs))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (login, name, password_hash, role, company_ids, department_id, is_active) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.Login, u.Name, u.PasswordHash, u.Role, companies, u.DepartmentID, u.Active)
	if err != nil {
		return mapErr(op, err)
	}

	u.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

const userColumns = `id, login, name, password_hash, role, company_ids, department_id, is_active`

func scanUser(row scanner) (*storage.User, error) {
	u := &storage.User{}
	var companies []byte
	if err := row.Scan(&u.ID, &u.Login, &u.Name, &u.PasswordHash, &u.Role, &companies, &u.DepartmentID, &u.Active); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(companies, &u.CompanyIDs); err != nil {
		return nil, fmt.Errorf("company ids: %w", err)
	}
	return u, nil
}

func (s *Storage) UserByLogin(ctx context.Context, login string) (*storage.User, error) {
	const op = "storage.mysql.UserByLogin"

	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE login = ?`, login))
	if err != nil {
		return nil, mapErr(op, err)
	}
	return u, nil
}

func (s *Storage) ListUsers(ctx context.Context) ([]storage.User, error) {
	const op = "storage.mysql.ListUsers"

	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY login`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	users := []storage.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return users, nil
}

func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}
