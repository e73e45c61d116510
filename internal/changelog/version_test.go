package changelog

import (
	"errors"
	"testing"

	"ppabuild/internal/services"
)

func TestCompareVersions(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"25.01", "25.01", 0},
		{"25.01-1", "24.07-1", 1},
		{"24.07-1", "25.01-1", -1},
		{"25.01-1~ubuntu22.10~ppa1", "25.01-1", -1},
		{"25.01-1~ubuntu22.10~ppa2", "25.01-1~ubuntu22.10~ppa1", 1},
		{"25.01-1~ubuntu24.04~ppa1", "25.01-1~ubuntu22.10~ppa1", 1},
		{"1.0~rc1", "1.0", -1},
		{"1.0", "1.0+b1", -1},
		{"1:0.1", "25.01", 1},
		{"1.010", "1.9", 1},
		{"1.0a", "1.0", 1},
		{"1.0-1", "1.0", 1},
		{"0001.0", "1.0", 0},
	}
	for _, tc := range cases {
		got, err := CompareVersions(tc.a, tc.b)
		if err != nil {
			t.Fatalf("CompareVersions(%q, %q): %v", tc.a, tc.b, err)
		}
		if sign(got) != tc.want {
			t.Fatalf("CompareVersions(%q, %q) = %d, want sign %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestValidateVersion(t *testing.T) {
	valid := []string{"25.01-1~ubuntu22.10~ppa1", "1:2.0-3", "25.01", "2.0+dfsg-1ubuntu1"}
	for _, v := range valid {
		if err := ValidateVersion(v); err != nil {
			t.Fatalf("ValidateVersion(%q): %v", v, err)
		}
	}
	invalid := []string{"", "v25.01", "25.01 -1", "x:1.0", "1.0-", "1.0_1", ":1.0"}
	for _, v := range invalid {
		if err := ValidateVersion(v); !errors.Is(err, services.ErrUsage) {
			t.Fatalf("ValidateVersion(%q) = %v, want usage error", v, err)
		}
	}
}

func TestParseVersionRoundTrip(t *testing.T) {
	v, err := ParseVersion("2:25.01-1~ppa1")
	if err != nil {
		t.Fatal(err)
	}
	if v.Epoch != "2" || v.Upstream != "25.01" || v.Revision != "1~ppa1" {
		t.Fatalf("unexpected parse %+v", v)
	}
	if v.String() != "2:25.01-1~ppa1" {
		t.Fatalf("unexpected string %s", v.String())
	}
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}
