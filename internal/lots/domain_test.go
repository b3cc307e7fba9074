package lots

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var classifyNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

const window = 7 * 24 * time.Hour

func datePtr(t time.Time) *time.Time { return &t }

func TestClassify(t *testing.T) {
	cases := []struct {
		name       string
		expiration *time.Time
		want       Status
	}{
		{"no expiration date", nil, StatusGood},
		{"far in the future", datePtr(classifyNow.Add(30 * 24 * time.Hour)), StatusGood},
		{"just outside the window", datePtr(classifyNow.Add(window + time.Hour)), StatusGood},
		{"inside the window", datePtr(classifyNow.Add(3 * 24 * time.Hour)), StatusNearExpiry},
		{"exactly at the window edge", datePtr(classifyNow.Add(window)), StatusNearExpiry},
		{"expires this instant", datePtr(classifyNow), StatusExpired},
		{"already expired", datePtr(classifyNow.Add(-24 * time.Hour)), StatusExpired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Classify(tc.expiration, classifyNow, window))
		})
	}
}

func TestDaysUntilExpiration(t *testing.T) {
	_, ok := DaysUntilExpiration(nil, classifyNow)
	require.False(t, ok)

	// Partial days round up.
	days, ok := DaysUntilExpiration(datePtr(classifyNow.Add(36*time.Hour)), classifyNow)
	require.True(t, ok)
	require.Equal(t, 2, days)

	days, ok = DaysUntilExpiration(datePtr(classifyNow.Add(24*time.Hour)), classifyNow)
	require.True(t, ok)
	require.Equal(t, 1, days)

	// Expired lots go negative.
	days, ok = DaysUntilExpiration(datePtr(classifyNow.Add(-48*time.Hour)), classifyNow)
	require.True(t, ok)
	require.Equal(t, -2, days)
}

func TestStatusReDerivedOnRead(t *testing.T) {
	// A lot stored as GOOD before its window opened reads as NEAR_EXPIRY once
	// time has moved inside the window, without any write.
	expiration := datePtr(classifyNow.Add(5 * 24 * time.Hour))
	stored := Lot{ID: 1, ExpirationDate: expiration, Status: StatusGood}

	svc := &Service{window: window, now: func() time.Time { return classifyNow }}
	v := svc.view(stored)
	require.Equal(t, StatusNearExpiry, v.Status)
	require.NotNil(t, v.DaysUntilExpiration)
	require.Equal(t, 5, *v.DaysUntilExpiration)

	// And EXPIRED once past the date.
	svc.now = func() time.Time { return expiration.Add(time.Minute) }
	require.Equal(t, StatusExpired, svc.view(stored).Status)
}
