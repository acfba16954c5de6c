package cache

import (
	"testing"
	"time"
)

func TestEntry_EffectiveStatus(t *testing.T) {
	fetchedAt := time.Now()

	tests := []struct {
		name  string
		entry Entry
		at    time.Time
		want  Status
	}{
		{
			name:  "fresh within window",
			entry: Entry{Status: StatusFresh, FetchedAt: fetchedAt, StaleAfter: time.Minute},
			at:    fetchedAt.Add(30 * time.Second),
			want:  StatusFresh,
		},
		{
			name:  "fresh past window becomes stale",
			entry: Entry{Status: StatusFresh, FetchedAt: fetchedAt, StaleAfter: time.Minute},
			at:    fetchedAt.Add(2 * time.Minute),
			want:  StatusStale,
		},
		{
			name:  "explicitly stale stays stale",
			entry: Entry{Status: StatusStale, FetchedAt: fetchedAt, StaleAfter: time.Minute},
			at:    fetchedAt,
			want:  StatusStale,
		},
		{
			name:  "error is not demoted",
			entry: Entry{Status: StatusError, FetchedAt: fetchedAt, StaleAfter: time.Minute},
			at:    fetchedAt.Add(time.Hour),
			want:  StatusError,
		},
		{
			name:  "pending is not demoted",
			entry: Entry{Status: StatusPending, FetchedAt: fetchedAt, StaleAfter: time.Minute},
			at:    fetchedAt.Add(time.Hour),
			want:  StatusPending,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.entry.EffectiveStatus(tt.at); got != tt.want {
				t.Errorf("EffectiveStatus() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEntry_Expired(t *testing.T) {
	fetchedAt := time.Now()
	entry := Entry{FetchedAt: fetchedAt, ExpiresAfter: 10 * time.Minute}

	if entry.Expired(fetchedAt.Add(5 * time.Minute)) {
		t.Error("Entry expired before ExpiresAfter elapsed")
	}
	if !entry.Expired(fetchedAt.Add(11 * time.Minute)) {
		t.Error("Entry not expired after ExpiresAfter elapsed")
	}

	unbounded := Entry{FetchedAt: fetchedAt}
	if unbounded.Expired(fetchedAt.Add(24 * time.Hour)) {
		t.Error("Entry without ExpiresAfter must never expire")
	}
}

func TestPolicyFor(t *testing.T) {
	for _, entityType := range []string{"products", "categories", "brands", "orders", "users", "cart", "stats"} {
		p := PolicyFor(entityType)
		if p.StaleAfter <= 0 {
			t.Errorf("PolicyFor(%q).StaleAfter = %v, want > 0", entityType, p.StaleAfter)
		}
		if p.ExpiresAfter < 5*p.StaleAfter {
			t.Errorf("PolicyFor(%q): ExpiresAfter %v not materially larger than StaleAfter %v",
				entityType, p.ExpiresAfter, p.StaleAfter)
		}
	}

	if PolicyFor("unknown") != DefaultPolicy() {
		t.Error("Unknown entity type should get the default policy")
	}
}
