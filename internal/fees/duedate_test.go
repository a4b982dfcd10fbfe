package fees

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNextDueDateMonthly(t *testing.T) {
	cases := []struct {
		name   string
		dueDay int
		ref    time.Time
		want   time.Time
	}{
		{"day not yet passed", 10, day(2024, time.January, 5), day(2024, time.January, 10)},
		{"day already passed rolls to next month", 10, day(2024, time.January, 15), day(2024, time.February, 10)},
		{"due today stays today", 10, day(2024, time.January, 10), day(2024, time.January, 10)},
		{"december rollover crosses the year", 10, day(2024, time.December, 20), day(2025, time.January, 10)},
		{"day 31 clamps to february", 31, day(2024, time.February, 1), day(2024, time.February, 29)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NextDueDate("monthly", tc.dueDay, tc.ref))
		})
	}
}

func TestNextDueDateOneTimeMatchesMonthly(t *testing.T) {
	ref := day(2024, time.March, 20)
	assert.Equal(t, NextDueDate("monthly", 10, ref), NextDueDate("one-time", 10, ref))
}

func TestNextDueDateQuarterly(t *testing.T) {
	cases := []struct {
		name string
		ref  time.Time
		want time.Time
	}{
		{"within q1 before anchor day", day(2024, time.January, 5), day(2024, time.January, 10)},
		{"within q1 after anchor day rolls to q2", day(2024, time.February, 20), day(2024, time.April, 10)},
		{"q4 rolls into next year", day(2024, time.November, 15), day(2025, time.January, 10)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NextDueDate("quarterly", 10, tc.ref))
		})
	}
}

func TestNextDueDateHalfYearly(t *testing.T) {
	assert.Equal(t, day(2024, time.January, 10), NextDueDate("half-yearly", 10, day(2024, time.January, 3)))
	assert.Equal(t, day(2024, time.July, 10), NextDueDate("half-yearly", 10, day(2024, time.March, 3)))
	assert.Equal(t, day(2025, time.January, 10), NextDueDate("half-yearly", 10, day(2024, time.August, 3)))
}

func TestNextDueDateYearly(t *testing.T) {
	assert.Equal(t, day(2024, time.April, 10), NextDueDate("yearly", 10, day(2024, time.February, 1)))
	assert.Equal(t, day(2025, time.April, 10), NextDueDate("yearly", 10, day(2024, time.June, 1)))
}

func TestNextDueDateUnknownCodeFallsBackToNextMonth(t *testing.T) {
	assert.Equal(t, day(2024, time.February, 10), NextDueDate("weekly", 10, day(2024, time.January, 15)))
	assert.Equal(t, day(2024, time.February, 10), NextDueDate("weekly", 10, day(2024, time.January, 5)))
}

func TestNextDueDateClampsDueDay(t *testing.T) {
	assert.Equal(t, day(2024, time.January, 1), NextDueDate("monthly", 0, day(2024, time.January, 1)))
	assert.Equal(t, day(2024, time.April, 30), NextDueDate("monthly", 45, day(2024, time.April, 1)))
}
