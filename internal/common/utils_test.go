package common

import "testing"

func TestHasAnyFold(t *testing.T) {
	cases := []struct {
		s    string
		subs []string
		want bool
	}{
		{"Light RAIN", []string{"rain"}, true},
		{"broken clouds", []string{"mist", "Cloud"}, true},
		{"clear sky", []string{"snow"}, false},
		{"", []string{"snow"}, false},
		{"anything", nil, false},
	}
	for _, tc := range cases {
		if got := HasAnyFold(tc.s, tc.subs...); got != tc.want {
			t.Errorf("HasAnyFold(%q, %v) = %v, want %v", tc.s, tc.subs, got, tc.want)
		}
	}
}
