package plate

import "testing"

func TestNormalizeTaiwan(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"seven chars with dash", "abc-1234", "ABC1234"},
		{"ambiguous chars both blocks", "AB0 I23J", "ABQ1231"},
		{"letter block substitutions", "0512345", "QSI2345"},
		{"digit block substitutions", "ABCOSBZ", "ABC0582"},
		{"short plate passthrough", "AB12", "AB12"},
		{"six chars untouched", "XYZ987", "XYZ987"},
		{"too short rejected", "XY", ""},
		{"too long rejected", "ABCD12345", ""},
		{"empty rejected", "", ""},
		{"newlines stripped", "ab\nc1\n234", "ABC1234"},
		{"pipe becomes one", "AB|1234", "AB11234"},
		{"ampersand becomes eight", "A&C123", "A8C123"},
		{"punctuation removed", "AB.1234", "AB1234"},
		{"diacritic folded", "åbc-1234", "ABC1234"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.raw, RegionTaiwan); got != tt.want {
				t.Errorf("Normalize(%q, tw) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalizeHongKong(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"excluded letters mapped", "IO Q23", "10023"},
		{"plain plate kept", "AB1234", "AB1234"},
		{"too short rejected", "AB1", ""},
		{"too long rejected", "AB123456", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.raw, RegionHongKong); got != tt.want {
				t.Errorf("Normalize(%q, hk) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalizeUnknownRegionFallsBackToTaiwan(t *testing.T) {
	if got := Normalize("abc-1234", "xx"); got != "ABC1234" {
		t.Errorf("Normalize with unknown region = %q, want ABC1234", got)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"abc-1234", "AB0 I23J", "XY", "IO Q23", "åbc-1234",
		"A&C123", "xyz987", "AB12",
	}
	for _, region := range []string{RegionTaiwan, RegionHongKong} {
		for _, raw := range inputs {
			once := Normalize(raw, region)
			twice := Normalize(once, region)
			if once != twice {
				t.Errorf("Normalize not idempotent for %q (%s): %q -> %q", raw, region, once, twice)
			}
		}
	}
}
