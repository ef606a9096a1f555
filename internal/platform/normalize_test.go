package platform

import "testing"

func TestNormalizeArch(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"amd64", "amd64"},
		{"x86_64", "amd64"},
		{"X86_64", "amd64"},
		{" x64 ", "amd64"},
		{"arm64", "arm64"},
		{"aarch64", "arm64"},
		{"armv8l", "arm64"},
		{"386", ""},
		{"i686", ""},
		{"armv7l", ""},
		{"riscv64", ""},
		{"s390x", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := NormalizeArch(tt.raw); got != tt.want {
				t.Errorf("NormalizeArch(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}
