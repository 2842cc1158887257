package models

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestAddressRoundTrip(t *testing.T) {
	a := &Account{}
	a.SetAddress(Address{
		Street:     "12 rue des Lilas",
		Complement: "Bat. B",
		Zip:        "75011",
		City:       "Paris",
		Country:    "BE",
	})

	got := a.Address()
	if got.Street != "12 rue des Lilas" || got.Complement != "Bat. B" || got.Zip != "75011" || got.City != "Paris" {
		t.Fatalf("address fields did not round-trip: %+v", got)
	}
	if got.Country != "BE" {
		t.Fatalf("country = %q, want BE", got.Country)
	}
}

func TestAddressDefaultsCountryToFR(t *testing.T) {
	a := &Account{}
	a.SetAddress(Address{Street: "1 rue Basse", Zip: "59000", City: "Lille"})

	if got := a.Address().Country; got != "FR" {
		t.Fatalf("country = %q, want FR", got)
	}
}

func TestIsFree(t *testing.T) {
	free := &Account{ExpiredAt: time.Unix(0, 0)}
	if !free.IsFree() {
		t.Fatal("epoch expiration should mean permanently free")
	}
	paying := &Account{ExpiredAt: time.Now()}
	if paying.IsFree() {
		t.Fatal("non-epoch expiration should not be free")
	}
}

func TestIsExpiringSoon(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		expiredAt time.Time
		want      bool
	}{
		{name: "already expired", expiredAt: now.AddDate(0, -1, 0), want: true},
		{name: "in 2 days", expiredAt: now.Add(2 * 24 * time.Hour), want: true},
		{name: "exactly 7 days", expiredAt: now.Add(7 * 24 * time.Hour), want: true},
		{name: "in 8 days", expiredAt: now.Add(8 * 24 * time.Hour), want: false},
		{name: "free account", expiredAt: time.Unix(0, 0), want: false},
	}

	for _, tt := range tests {
		a := &Account{ExpiredAt: tt.expiredAt}
		if got := a.IsExpiringSoon(now); got != tt.want {
			t.Fatalf("%s: IsExpiringSoon = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestCanRenew(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	a := &Account{ExpiredAt: now.AddDate(0, 1, 0)}
	if !a.CanRenew(now) {
		t.Fatal("expiration exactly one month ahead should be renewable")
	}
	a = &Account{ExpiredAt: now.AddDate(0, 1, 1)}
	if a.CanRenew(now) {
		t.Fatal("expiration beyond one month should be rejected")
	}
	a = &Account{ExpiredAt: now.AddDate(0, -2, 0)}
	if !a.CanRenew(now) {
		t.Fatal("expired account should be renewable")
	}
}

func TestExpiredAtColumnHoldsEpochSentinel(t *testing.T) {
	// MySQL TIMESTAMP starts at 1970-01-01 00:00:01; the free-account
	// sentinel time.Unix(0, 0) only fits a DATETIME column.
	field, ok := reflect.TypeOf(Account{}).FieldByName("ExpiredAt")
	if !ok {
		t.Fatal("Account has no ExpiredAt field")
	}
	if tag := field.Tag.Get("gorm"); !strings.Contains(tag, "type:datetime") {
		t.Fatalf("ExpiredAt gorm tag %q does not pin a datetime column", tag)
	}
}

func TestExtendBy(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	// Active subscription extends from its current expiration.
	a := &Account{ExpiredAt: now.AddDate(0, 0, 5)}
	a.ExtendBy(CadenceYear, now)
	if want := now.AddDate(1, 0, 5); !a.ExpiredAt.Equal(want) {
		t.Fatalf("ExpiredAt = %v, want %v", a.ExpiredAt, want)
	}

	// Lapsed subscription extends from now, not from the stale expiration.
	a = &Account{ExpiredAt: now.AddDate(0, -6, 0)}
	a.ExtendBy(CadenceMonth, now)
	if want := now.AddDate(0, 1, 0); !a.ExpiredAt.Equal(want) {
		t.Fatalf("ExpiredAt = %v, want %v", a.ExpiredAt, want)
	}
}
