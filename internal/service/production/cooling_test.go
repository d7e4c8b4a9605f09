package production

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plantops/internal/apperr"
	"plantops/internal/storage"
)

func TestConfirmContract_CoolingPeriod(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.svc.CreateContract(ctx, admin, storage.Contract{
		Name:          "SO-200",
		Customer:      "Skyline Infra",
		CompanyID:     1,
		WorkcenterID:  f.contract.WorkcenterID,
		StartDate:     date(2024, 6, 15),
		EndDate:       date(2024, 8, 31),
		MonthlyMGQ:    dec("310"),
		UnitRate:      dec("4000"),
		CoolingMonths: 1,
	})
	require.NoError(t, err)

	monthly, err := f.svc.ConfirmContract(ctx, admin, c.ID)
	require.NoError(t, err)
	require.Len(t, monthly, 4)

	assert.Equal(t, "SO-200/2024-06", monthly[0].Name)
	assert.True(t, monthly[0].Cooling)

	assert.Equal(t, "SO-200/2024-07-C", monthly[1].Name)
	assert.True(t, monthly[1].Cooling)
	assert.Equal(t, date(2024, 7, 14), monthly[1].DateEnd)
	assert.True(t, dec("140").Equal(monthly[1].TargetQty), monthly[1].TargetQty.String())

	assert.Equal(t, "SO-200/2024-07", monthly[2].Name)
	assert.False(t, monthly[2].Cooling)
	assert.Equal(t, date(2024, 7, 15), monthly[2].DateStart)
	assert.True(t, dec("170").Equal(monthly[2].TargetQty), monthly[2].TargetQty.String())

	assert.False(t, monthly[3].Cooling)

	stored, err := f.store.ListMonthlyOrders(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, monthly, stored)
}

func TestCreateContract_NegativeCooling(t *testing.T) {
	f := newFixture(t)

	c := *f.contract
	c.CoolingMonths = -1
	_, err := f.svc.CreateContract(context.Background(), admin, c)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestBuildInvoice_CoolingHasNoStandby(t *testing.T) {
	c := storage.Contract{ID: 1, UnitRate: dec("4000"), DowntimeHourRate: dec("1500")}
	m := storage.MonthlyOrder{
		ID:                2,
		Name:              "SO-1/2024-06",
		DateStart:         date(2024, 6, 1),
		DateEnd:           date(2024, 6, 30),
		TargetQty:         dec("200"),
		AdjustedTargetQty: dec("200"),
		Cooling:           true,
	}
	dockets := []storage.Docket{{Qty: dec("120"), State: storage.DocketDelivered}}

	inv, err := BuildInvoice(c, m, dockets, dec("50"))
	require.NoError(t, err)
	assert.True(t, inv.Cooling)
	assert.True(t, inv.StandbyQty.IsZero())
	require.Len(t, inv.Lines, 1)
	assert.Equal(t, storage.LinePrime, inv.Lines[0].Kind)
	assert.True(t, dec("480000").Equal(inv.Total))

	m.Cooling = false
	inv, err = BuildInvoice(c, m, dockets, dec("50"))
	require.NoError(t, err)
	assert.True(t, dec("80").Equal(inv.StandbyQty))

	// a cooling month with nothing produced has nothing to bill
	m.Cooling = true
	_, err = BuildInvoice(c, m, nil, dec("50"))
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}
