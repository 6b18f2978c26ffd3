package domain

import "testing"

func TestFlatteningOperationTransitions(t *testing.T) {
	cases := []struct {
		from string
		to   string
		want bool
	}{
		{FlatteningStatusPending, FlatteningStatusCompleted, true},
		{FlatteningStatusPending, FlatteningStatusFailed, true},
		{FlatteningStatusPending, FlatteningStatusReverted, true},
		{FlatteningStatusCompleted, FlatteningStatusReverted, true},
		{FlatteningStatusCompleted, FlatteningStatusPending, false},
		{FlatteningStatusReverted, FlatteningStatusCompleted, false},
		{FlatteningStatusFailed, FlatteningStatusCompleted, false},
	}

	for _, tc := range cases {
		op := FlatteningOperation{Status: tc.from}
		if got := op.CanTransitionTo(tc.to); got != tc.want {
			t.Fatalf("CanTransitionTo(%s -> %s) returned %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestStringListRoundTrip(t *testing.T) {
	list := StringList{"192.0.2.1", "192.0.2.2"}

	value, err := list.Value()
	if err != nil {
		t.Fatalf("Value returned error: %v", err)
	}

	var scanned StringList
	if err := scanned.Scan(value); err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}

	if len(scanned) != 2 || scanned[0] != "192.0.2.1" || scanned[1] != "192.0.2.2" {
		t.Fatalf("scanned list is %v, want the original entries", scanned)
	}
}

func TestStringListEmptyValue(t *testing.T) {
	var list StringList

	value, err := list.Value()
	if err != nil {
		t.Fatalf("Value returned error: %v", err)
	}
	if string(value.([]byte)) != "[]" {
		t.Fatalf("empty list serialized as %s, want []", value)
	}
}
