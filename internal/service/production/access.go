package production

import (
	"context"
	"fmt"

	"plantops/internal/access"
	"plantops/internal/apperr"
	"plantops/internal/storage"
)

func contractScope(c *storage.Contract) storage.Scope {
	return storage.Scope{CompanyID: c.CompanyID}
}

// requireAdmin guards the operations that shape a contract: work centers, contracts,
// scheduling and invoicing.
func requireAdmin(actor access.Actor) error {
	if !actor.Privileged() {
		return apperr.ErrPermissionDenied
	}
	return nil
}

// contractFor loads a contract the actor may read, or change when write is set.
func (s *Service) contractFor(ctx context.Context, actor access.Actor, id int64, write bool) (*storage.Contract, error) {
	c, err := s.store.GetContract(ctx, id)
	if err != nil {
		return nil, err
	}
	allowed := actor.CanRead(contractScope(c))
	if write {
		allowed = actor.CanWrite(contractScope(c))
	}
	if !allowed {
		return nil, fmt.Errorf("contract %d: %w", id, apperr.ErrPermissionDenied)
	}
	return c, nil
}

// monthlyOrderFor loads a monthly order whose contract the actor may read or change.
func (s *Service) monthlyOrderFor(ctx context.Context, actor access.Actor, id int64, write bool) (*storage.MonthlyOrder, *storage.Contract, error) {
	m, err := s.store.GetMonthlyOrder(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	c, err := s.contractFor(ctx, actor, m.ContractID, write)
	if err != nil {
		return nil, nil, err
	}
	return m, c, nil
}
