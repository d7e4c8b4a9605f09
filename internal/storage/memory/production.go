package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	"plantops/internal/apperr"
	"plantops/internal/storage"
)

func (s *Storage) CreateWorkcenter(_ context.Context, w *storage.Workcenter) error {
	const op = "storage.memory.CreateWorkcenter"

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.workcenters {
		if existing.ExternalID == w.ExternalID {
			return fmt.Errorf("%s: external id %q: %w", op, w.ExternalID, apperr.ErrConflict)
		}
	}
	w.ID = s.id()
	s.workcenters[w.ID] = *w
	return nil
}

func (s *Storage) ListWorkcenters(_ context.Context) ([]storage.Workcenter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []storage.Workcenter{}
	for _, id := range sortedKeys(s.workcenters) {
		out = append(out, s.workcenters[id])
	}
	return out, nil
}

func (s *Storage) WorkcenterByExternalID(_ context.Context, externalID string) (*storage.Workcenter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, w := range s.workcenters {
		if w.ExternalID == externalID {
			return &w, nil
		}
	}
	return nil, fmt.Errorf("storage.memory.WorkcenterByExternalID: %q: %w", externalID, apperr.ErrNotFound)
}

func (s *Storage) CreateContract(_ context.Context, c *storage.Contract) error {
	const op = "storage.memory.CreateContract"

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.workcenters[c.WorkcenterID]; !ok {
		return fmt.Errorf("%s: workcenter %d: %w", op, c.WorkcenterID, apperr.ErrValidation)
	}
	c.ID = s.id()
	s.contracts[c.ID] = *c
	return nil
}

func (s *Storage) GetContract(_ context.Context, id int64) (*storage.Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.contracts[id]
	if !ok {
		return nil, fmt.Errorf("storage.memory.GetContract: contract %d: %w", id, apperr.ErrNotFound)
	}
	return &c, nil
}

func (s *Storage) ConfirmContract(_ context.Context, id int64, orders []storage.MonthlyOrder) ([]storage.MonthlyOrder, error) {
	const op = "storage.memory.ConfirmContract"

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.contracts[id]
	if !ok {
		return nil, fmt.Errorf("%s: contract %d: %w", op, id, apperr.ErrNotFound)
	}
	if c.State != storage.ContractDraft {
		return nil, fmt.Errorf("%s: contract %d is %s: %w", op, id, c.State, apperr.ErrInvalidTransition)
	}

	out := make([]storage.MonthlyOrder, 0, len(orders))
	for _, m := range orders {
		m.ID = s.id()
		m.ContractID = id
		s.monthly[m.ID] = m
		out = append(out, m)
	}
	c.State = storage.ContractConfirmed
	s.contracts[id] = c
	return out, nil
}

func (s *Storage) ListMonthlyOrders(_ context.Context, contractID int64) ([]storage.MonthlyOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.monthlyOf(contractID), nil
}

func (s *Storage) monthlyOf(contractID int64) []storage.MonthlyOrder {
	out := []storage.MonthlyOrder{}
	for _, id := range sortedKeys(s.monthly) {
		if m := s.monthly[id]; m.ContractID == contractID {
			out = append(out, m)
		}
	}
	return out
}

func (s *Storage) GetMonthlyOrder(_ context.Context, id int64) (*storage.MonthlyOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.monthly[id]
	if !ok {
		return nil, fmt.Errorf("storage.memory.GetMonthlyOrder: monthly order %d: %w", id, apperr.ErrNotFound)
	}
	return &m, nil
}

func (s *Storage) ScheduleMonthlyOrder(_ context.Context, id int64, orders []storage.DailyOrder) ([]storage.DailyOrder, error) {
	const op = "storage.memory.ScheduleMonthlyOrder"

	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.monthly[id]
	if !ok {
		return nil, fmt.Errorf("%s: monthly order %d: %w", op, id, apperr.ErrNotFound)
	}
	if m.State != storage.MonthlyDraft {
		return nil, fmt.Errorf("%s: monthly order %d is %s: %w", op, id, m.State, apperr.ErrInvalidTransition)
	}

	out := make([]storage.DailyOrder, 0, len(orders))
	for _, o := range orders {
		o.ID = s.id()
		o.MonthlyOrderID = id
		var docket *storage.Docket
		if o.Docket != nil {
			d := *o.Docket
			d.ID = s.id()
			d.DailyOrderID = o.ID
			s.dockets[d.ID] = d
			docket = &d
		}
		o.Docket = nil
		s.daily[o.ID] = o
		o.Docket = docket
		out = append(out, o)
	}
	m.State = storage.MonthlyScheduled
	s.monthly[id] = m
	return out, nil
}

func (s *Storage) ListDailyOrders(_ context.Context, monthlyID int64) ([]storage.DailyOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []storage.DailyOrder{}
	for _, id := range sortedKeys(s.daily) {
		if o := s.daily[id]; o.MonthlyOrderID == monthlyID {
			o.Docket = s.scheduleDocket(o.ID)
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Sequence < out[j].Sequence
	})
	return out, nil
}

// scheduleDocket returns a copy of the docket created together with the order.
func (s *Storage) scheduleDocket(orderID int64) *storage.Docket {
	for _, id := range sortedKeys(s.dockets) {
		if d := s.dockets[id]; d.DailyOrderID == orderID && d.Source == storage.DocketSchedule {
			return &d
		}
	}
	return nil
}

func (s *Storage) ListDockets(_ context.Context, monthlyID int64) ([]storage.Docket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []storage.Docket{}
	for _, id := range sortedKeys(s.dockets) {
		if d := s.dockets[id]; d.MonthlyOrderID == monthlyID {
			d.Alarms = slices.Clone(d.Alarms)
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *Storage) GetDailyOrder(_ context.Context, id int64) (*storage.DailyOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.daily[id]
	if !ok {
		return nil, fmt.Errorf("storage.memory.GetDailyOrder: daily order %d: %w", id, apperr.ErrNotFound)
	}
	o.Docket = s.scheduleDocket(o.ID)
	return &o, nil
}

func (s *Storage) GetDocket(_ context.Context, id int64) (*storage.Docket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.dockets[id]
	if !ok {
		return nil, fmt.Errorf("storage.memory.GetDocket: docket %d: %w", id, apperr.ErrNotFound)
	}
	d.Alarms = slices.Clone(d.Alarms)
	return &d, nil
}

func (s *Storage) ChangeDockets(_ context.Context, dailyOrderID int64,
	apply func(order storage.DailyOrder, dockets []storage.Docket) (*storage.DocketChange, error)) (*storage.DocketChange, error) {
	const op = "storage.memory.ChangeDockets"

	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.daily[dailyOrderID]
	if !ok {
		return nil, fmt.Errorf("%s: daily order %d: %w", op, dailyOrderID, apperr.ErrNotFound)
	}
	order.Docket = s.scheduleDocket(order.ID)

	var dockets []storage.Docket
	for _, id := range sortedKeys(s.dockets) {
		if d := s.dockets[id]; d.DailyOrderID == dailyOrderID {
			d.Alarms = slices.Clone(d.Alarms)
			dockets = append(dockets, d)
		}
	}

	change, err := apply(order, dockets)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !change.Created {
		if _, ok := s.dockets[change.Docket.ID]; !ok {
			return nil, fmt.Errorf("%s: docket %d: %w", op, change.Docket.ID, apperr.ErrNotFound)
		}
	}

	if d := change.Order.Docket; d != nil {
		s.dockets[d.ID] = *d
	}
	stored := change.Order
	stored.Docket = nil
	s.daily[stored.ID] = stored

	if change.Created {
		change.Docket.ID = s.id()
	}
	d := change.Docket
	d.Alarms = slices.Clone(d.Alarms)
	s.dockets[d.ID] = d

	return change, nil
}

func (s *Storage) RecordTelemetry(_ context.Context, workcenterID int64, day time.Time,
	apply func(open []storage.DailyOrder) (*storage.TelemetryBooking, error)) (*storage.TelemetryBooking, error) {
	const op = "storage.memory.RecordTelemetry"

	s.mu.Lock()
	defer s.mu.Unlock()

	var open []storage.DailyOrder
	for _, id := range sortedKeys(s.daily) {
		o := s.daily[id]
		if o.WorkcenterID == workcenterID && o.Date.Equal(day) && o.State.Open() {
			o.Docket = s.scheduleDocket(o.ID)
			open = append(open, o)
		}
	}

	booking, err := apply(open)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if _, ok := s.daily[booking.Order.ID]; !ok {
		return nil, fmt.Errorf("%s: daily order %d: %w", op, booking.Order.ID, apperr.ErrNotFound)
	}
	if d := booking.Order.Docket; d != nil {
		s.dockets[d.ID] = *d
	}
	order := booking.Order
	order.Docket = nil
	s.daily[order.ID] = order

	booking.Docket.ID = s.id()
	docket := booking.Docket
	docket.Alarms = slices.Clone(docket.Alarms)
	s.dockets[docket.ID] = docket

	return booking, nil
}

func (s *Storage) CreateDowntime(_ context.Context, d *storage.DowntimeRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.contracts[d.ContractID]; !ok {
		return fmt.Errorf("storage.memory.CreateDowntime: contract %d: %w", d.ContractID, apperr.ErrNotFound)
	}
	d.ID = s.id()
	s.downtime[d.ID] = *d
	return nil
}

func (s *Storage) GetDowntime(_ context.Context, id int64) (*storage.DowntimeRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.downtime[id]
	if !ok {
		return nil, fmt.Errorf("storage.memory.GetDowntime: downtime %d: %w", id, apperr.ErrNotFound)
	}
	return &d, nil
}

func (s *Storage) ListDowntime(_ context.Context, contractID int64) ([]storage.DowntimeRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []storage.DowntimeRequest{}
	for _, id := range sortedKeys(s.downtime) {
		if d := s.downtime[id]; d.ContractID == contractID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *Storage) TransitionDowntime(_ context.Context, id int64, from, to storage.DowntimeState) error {
	const op = "storage.memory.TransitionDowntime"

	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.downtime[id]
	if !ok {
		return fmt.Errorf("%s: downtime %d: %w", op, id, apperr.ErrNotFound)
	}
	if d.State != from {
		return fmt.Errorf("%s: downtime %d is %s: %w", op, id, d.State, apperr.ErrInvalidTransition)
	}
	d.State = to
	s.downtime[id] = d
	return nil
}

func (s *Storage) ApproveDowntime(_ context.Context, id int64,
	apply func(dc storage.DowntimeContext) (*storage.DowntimeAllocation, error)) (*storage.DowntimeAllocation, error) {
	const op = "storage.memory.ApproveDowntime"

	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.downtime[id]
	if !ok {
		return nil, fmt.Errorf("%s: downtime %d: %w", op, id, apperr.ErrNotFound)
	}
	contract, ok := s.contracts[req.ContractID]
	if !ok {
		return nil, fmt.Errorf("%s: contract %d: %w", op, req.ContractID, apperr.ErrNotFound)
	}

	dc := storage.DowntimeContext{
		Request:  req,
		Contract: contract,
		Monthly:  s.monthlyOf(contract.ID),
	}
	for _, oid := range sortedKeys(s.daily) {
		if o := s.daily[oid]; o.ContractID == contract.ID {
			dc.Daily = append(dc.Daily, o)
		}
	}

	alloc, err := apply(dc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.downtime[id] = alloc.Request
	for _, m := range alloc.Monthly {
		s.monthly[m.ID] = m
	}
	for _, o := range alloc.Daily {
		o.Docket = nil
		s.daily[o.ID] = o
	}
	return alloc, nil
}

func (s *Storage) CreateInvoice(_ context.Context, inv *storage.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv.ID = s.id()
	for i := range inv.Lines {
		inv.Lines[i].ID = s.id()
		inv.Lines[i].InvoiceID = inv.ID
	}
	stored := *inv
	stored.Lines = slices.Clone(inv.Lines)
	s.invoices[inv.ID] = stored
	return nil
}

func (s *Storage) GetInvoice(_ context.Context, id int64) (*storage.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.invoices[id]
	if !ok {
		return nil, fmt.Errorf("storage.memory.GetInvoice: invoice %d: %w", id, apperr.ErrNotFound)
	}
	inv.Lines = slices.Clone(inv.Lines)
	return &inv, nil
}
