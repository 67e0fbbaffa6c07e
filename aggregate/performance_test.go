package aggregate_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tywin1104/mc-dashboard/aggregate"
	"github.com/tywin1104/mc-dashboard/types"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestAdminPerformance(t *testing.T) {
	submitted := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	handledBy := func(admin string, status types.Status, after time.Duration) types.WhitelistRequest {
		r := fulfilled(status, submitted, after)
		r.Admin = admin
		return r
	}
	requests := []types.WhitelistRequest{
		handledBy("op1@gmail.com", types.StatusApproved, 10*time.Minute),
		handledBy("op1@gmail.com", types.StatusDenied, 30*time.Minute),
		handledBy("op2@gmail.com", types.StatusApproved, 2*time.Hour),
		{Status: types.StatusPending, Timestamp: submitted, Admin: "op3@gmail.com"},
	}
	performance := aggregate.AdminPerformance(requests)

	require.Len(t, performance, 2)
	assert.Equal(t, 2, performance["op1@gmail.com"].TotalHandled)
	assert.InDelta(t, 20, performance["op1@gmail.com"].AverageResponseTimeInMinutes, 1e-9)
	assert.Equal(t, 1, performance["op2@gmail.com"].TotalHandled)
	assert.InDelta(t, 120, performance["op2@gmail.com"].AverageResponseTimeInMinutes, 1e-9)
}

func TestOvertime(t *testing.T) {
	reference := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	late := primitive.NewObjectID()
	exactly := primitive.NewObjectID()
	requests := []types.WhitelistRequest{
		{ID: late, Status: types.StatusPending, Timestamp: reference.Add(-48 * time.Hour)},
		{ID: exactly, Status: types.StatusPending, Timestamp: reference.Add(-24 * time.Hour)},
		{ID: primitive.NewObjectID(), Status: types.StatusPending, Timestamp: reference.Add(-23 * time.Hour)},
		{ID: primitive.NewObjectID(), Status: types.StatusApproved, Timestamp: reference.Add(-72 * time.Hour)},
		{ID: primitive.NewObjectID(), Status: types.StatusPending},
	}

	overtime := aggregate.Overtime(requests, reference, 0)
	assert.Equal(t, 2, overtime.OvertimeCount)
	assert.Equal(t, []string{late.Hex(), exactly.Hex()}, overtime.OvertimeIDs)

	overtime = aggregate.Overtime(requests, reference, 36*time.Hour)
	assert.Equal(t, 1, overtime.OvertimeCount)

	overtime = aggregate.Overtime(nil, reference, 0)
	assert.Equal(t, 0, overtime.OvertimeCount)
	assert.NotNil(t, overtime.OvertimeIDs)
}

func TestNewReport(t *testing.T) {
	reference := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	requests := []types.WhitelistRequest{
		fulfilled(types.StatusApproved, reference.Add(-time.Hour), 30*time.Minute),
		{Status: types.StatusPending, Timestamp: reference.Add(-30 * time.Hour)},
	}
	report, err := aggregate.NewReport(requests, aggregate.Options{Reference: reference})
	require.NoError(t, err)

	assert.Len(t, report.Daily, aggregate.DefaultWindowDays)
	assert.Equal(t, 1, report.Daily[4].Count)
	assert.Equal(t, 1, report.Daily[3].Count)
	assert.Equal(t, 1, report.Stats.Approved)
	assert.Equal(t, 1, report.Overtime.OvertimeCount)
	assert.Equal(t, reference, report.GeneratedAt)

	_, err = aggregate.NewReport(requests, aggregate.Options{WindowDays: -3})
	assert.ErrorIs(t, err, aggregate.ErrInvalidWindow)
}
