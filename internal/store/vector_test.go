package store

import "testing"

func TestFormatVector(t *testing.T) {
	cases := []struct {
		in   []float64
		want string
	}{
		{nil, "[]"},
		{[]float64{0.5}, "[0.5]"},
		{[]float64{0.1, -0.25, 3}, "[0.1,-0.25,3]"},
	}
	for _, tc := range cases {
		if got := FormatVector(tc.in); got != tc.want {
			t.Errorf("FormatVector(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNullableVector(t *testing.T) {
	if NullableVector(nil) != nil {
		t.Error("nil embedding should map to NULL")
	}
	if NullableVector([]float64{}) != nil {
		t.Error("empty embedding should map to NULL")
	}
	if got := NullableVector([]float64{1, 2}); got != "[1,2]" {
		t.Errorf("NullableVector = %v", got)
	}
}

func TestPrimaryArtist(t *testing.T) {
	if got := (SyncRecord{Singers: []string{"Lata"}}).PrimaryArtist(); got != "Lata" {
		t.Errorf("PrimaryArtist = %q", got)
	}
	if got := (SyncRecord{}).PrimaryArtist(); got != "Unknown" {
		t.Errorf("PrimaryArtist fallback = %q", got)
	}
	if got := (SyncRecord{Singers: []string{"  "}}).PrimaryArtist(); got != "Unknown" {
		t.Errorf("PrimaryArtist blank = %q", got)
	}
}
