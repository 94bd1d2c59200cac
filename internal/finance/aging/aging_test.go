package aging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var asOf = time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

func TestBucketBoundaries(t *testing.T) {
	cases := []struct {
		name    string
		daysAgo int
		want    string
	}{
		{"due today", 0, Bucket0to30},
		{"30 days past due stays in first bucket", 30, Bucket0to30},
		{"31 days past due", 31, Bucket31to60},
		{"60 days past due", 60, Bucket31to60},
		{"61 days past due", 61, Bucket61to90},
		{"90 days past due", 90, Bucket61to90},
		{"91 days past due", 91, Bucket90Plus},
		{"365 days past due", 365, Bucket90Plus},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			due := asOf.AddDate(0, 0, -tc.daysAgo)
			require.Equal(t, tc.want, Bucket(due, asOf))
		})
	}
}

func TestBucketFutureDueDate(t *testing.T) {
	for _, daysOut := range []int{1, 45, 400} {
		due := asOf.AddDate(0, 0, daysOut)
		require.Equal(t, Bucket0to30, Bucket(due, asOf), "future due dates always land in the first bucket")
	}
}

func TestStatusDerivation(t *testing.T) {
	due := asOf.AddDate(0, 0, -1)
	notDue := asOf.AddDate(0, 0, 10)

	require.Equal(t, StatusPaid, Status(1000, 1000, due, asOf))
	require.Equal(t, StatusPaid, Status(1200, 1000, due, asOf))
	require.Equal(t, StatusPartial, Status(500, 1000, due, asOf))
	require.Equal(t, StatusOverdue, Status(0, 1000, due, asOf))
	require.Equal(t, StatusCurrent, Status(0, 1000, notDue, asOf))
	require.Equal(t, StatusCurrent, Status(0, 1000, asOf, asOf), "due today is not yet overdue")
}

func TestSummaryAdd(t *testing.T) {
	var s Summary
	s.Add(asOf.AddDate(0, 0, -5), asOf, 100)
	s.Add(asOf.AddDate(0, 0, -40), asOf, 200)
	s.Add(asOf.AddDate(0, 0, -70), asOf, 300)
	s.Add(asOf.AddDate(0, 0, -120), asOf, 400)
	s.Add(asOf.AddDate(0, 0, -120), asOf, 0)
	s.Add(asOf.AddDate(0, 0, -120), asOf, -50)

	require.Equal(t, 100.0, s.Bucket0to30)
	require.Equal(t, 200.0, s.Bucket31to60)
	require.Equal(t, 300.0, s.Bucket61to90)
	require.Equal(t, 400.0, s.Bucket90Plus)
	require.Equal(t, 1000.0, s.Total)
}
