package strconvx

import "testing"

// Expectations hold for both the host delegation and the firmware
// implementation, so the cases avoid platform-dependent bit sizes.

func TestParseUintPrefixes(t *testing.T) {
	for _, c := range []struct {
		s    string
		base int
		want uint64
	}{
		{"0", 0, 0},
		{"1000", 0, 1000},
		{"0x1f", 0, 31},
		{"0XFF", 0, 255},
		{"0b101", 0, 5},
		{"0o17", 0, 15},
		{"017", 0, 15},
		{"ff", 16, 255},
		{"FF", 16, 255},
		{"101", 2, 5},
	} {
		got, err := ParseUint(c.s, c.base, 64)
		if err != nil {
			t.Fatalf("ParseUint(%q, %d) error: %v", c.s, c.base, err)
		}
		if got != c.want {
			t.Fatalf("ParseUint(%q, %d) = %d, want %d", c.s, c.base, got, c.want)
		}
	}
}

func TestParseUintRejects(t *testing.T) {
	for _, c := range []struct {
		s       string
		base    int
		bitSize int
	}{
		{"", 10, 64},
		{"0x", 0, 64},
		{"12g", 16, 64},
		{"0b102", 0, 64},
		{"-5", 10, 64},
		{"70000", 0, 16},
		{"0x1ffffffff", 0, 32},
	} {
		if _, err := ParseUint(c.s, c.base, c.bitSize); err == nil {
			t.Fatalf("ParseUint(%q, %d, %d) expected error", c.s, c.base, c.bitSize)
		}
	}
}

func TestParseIntSigns(t *testing.T) {
	for _, c := range []struct {
		s    string
		want int64
	}{
		{"+7", 7},
		{"-15", -15},
		{"-0x10", -16},
		{"0", 0},
	} {
		got, err := ParseInt(c.s, 0, 64)
		if err != nil {
			t.Fatalf("ParseInt(%q) error: %v", c.s, err)
		}
		if got != c.want {
			t.Fatalf("ParseInt(%q) = %d, want %d", c.s, got, c.want)
		}
	}
	if _, err := ParseInt("200", 10, 8); err == nil {
		t.Fatal("ParseInt(200, 10, 8) expected range error")
	}
}

func TestAtoi(t *testing.T) {
	for _, c := range []struct {
		s    string
		want int
	}{
		{"0", 0},
		{"42", 42},
		{"-99999", -99999},
	} {
		got, err := Atoi(c.s)
		if err != nil {
			t.Fatalf("Atoi(%q) error: %v", c.s, err)
		}
		if got != c.want {
			t.Fatalf("Atoi(%q) = %d, want %d", c.s, got, c.want)
		}
	}
	if _, err := Atoi("12a"); err == nil {
		t.Fatal("Atoi(12a) expected error")
	}
}

func TestFormatInt(t *testing.T) {
	for _, c := range []struct {
		v    int64
		base int
		want string
	}{
		{0, 10, "0"},
		{255, 16, "ff"},
		{5, 2, "101"},
		{35, 36, "z"},
		{-15, 10, "-15"},
		{-255, 16, "-ff"},
	} {
		if got := FormatInt(c.v, c.base); got != c.want {
			t.Fatalf("FormatInt(%d, %d) = %q, want %q", c.v, c.base, got, c.want)
		}
	}
}
