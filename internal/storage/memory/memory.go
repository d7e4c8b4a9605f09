// Package memory is an in-process store with the same semantics as the MySQL store.
// A single mutex serialises every operation, so each call behaves like one transaction.
package memory

import (
	"slices"
	"sync"

	"plantops/internal/storage"
)

type Storage struct {
	mu     sync.Mutex
	nextID int64

	metricTemplates  map[int64]storage.MetricTemplate
	sectionTemplates map[int64]storage.SectionTemplate
	reports          map[int64]*storage.Report
	users            map[int64]storage.User

	workcenters map[int64]storage.Workcenter
	contracts   map[int64]storage.Contract
	monthly     map[int64]storage.MonthlyOrder
	daily       map[int64]storage.DailyOrder
	dockets     map[int64]storage.Docket
	downtime    map[int64]storage.DowntimeRequest
	invoices    map[int64]storage.Invoice
}

func New() *Storage {
	return &Storage{
		metricTemplates:  map[int64]storage.MetricTemplate{},
		sectionTemplates: map[int64]storage.SectionTemplate{},
		reports:          map[int64]*storage.Report{},
		users:            map[int64]storage.User{},
		workcenters:      map[int64]storage.Workcenter{},
		contracts:        map[int64]storage.Contract{},
		monthly:          map[int64]storage.MonthlyOrder{},
		daily:            map[int64]storage.DailyOrder{},
		dockets:          map[int64]storage.Docket{},
		downtime:         map[int64]storage.DowntimeRequest{},
		invoices:         map[int64]storage.Invoice{},
	}
}

// id hands out the next identifier; callers hold mu.
func (s *Storage) id() int64 {
	s.nextID++
	return s.nextID
}

// sortedKeys returns the ids of m in ascending order.
func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func cloneReport(r *storage.Report) *storage.Report {
	out := *r
	out.Complaints = slices.Clone(r.Complaints)
	out.StaffLogs = slices.Clone(r.StaffLogs)
	out.ContractorRatings = slices.Clone(r.ContractorRatings)
	out.MetricLines = slices.Clone(r.MetricLines)
	for i := range out.MetricLines {
		out.MetricLines[i].Options = slices.Clone(out.MetricLines[i].Options)
	}
	out.Sections = slices.Clone(r.Sections)
	return &out
}
