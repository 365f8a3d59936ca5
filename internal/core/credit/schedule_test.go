package credit

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleAmortisesToZero(t *testing.T) {
	start := date(2026, 1, 31)
	schedule, err := Schedule(dec("500000"), dec("12"), 24, start)
	require.NoError(t, err)
	require.Len(t, schedule, 24)

	first := schedule[0]
	assert.Equal(t, 1, first.Period)
	assert.True(t, first.Interest.Equal(dec("5000")))
	assert.True(t, first.Principal.Equal(dec("18536.74")))
	assert.True(t, first.Payment.Equal(dec("23536.74")))
	assert.Equal(t, start.AddDate(0, 1, 0), first.DueDate)

	paid := decimal.Zero
	for _, inst := range schedule {
		paid = paid.Add(inst.Principal)
		assert.True(t, inst.Payment.Equal(inst.Principal.Add(inst.Interest)))
		assert.False(t, inst.Balance.IsNegative())
	}
	assert.True(t, paid.Equal(dec("500000")), "principal repaid %s", paid)
	assert.True(t, schedule[23].Balance.IsZero())
}

func TestScheduleZeroRate(t *testing.T) {
	schedule, err := Schedule(dec("120000"), decimal.Zero, 12, date(2026, 3, 1))
	require.NoError(t, err)
	for _, inst := range schedule {
		assert.True(t, inst.Interest.IsZero())
		assert.True(t, inst.Payment.Equal(dec("10000")))
	}
	assert.True(t, schedule[11].Balance.IsZero())
}

func TestScheduleRejectsInvalidTerms(t *testing.T) {
	_, err := Schedule(dec("1000"), dec("10"), 0, date(2026, 3, 1))
	assert.Error(t, err)
}
