package update

import (
	"errors"
	"testing"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantPre string
		wantErr bool
	}{
		{"plain", "1.2.0", "1.2.0", "", false},
		{"v prefix", "v1.2.0", "1.2.0", "", false},
		{"equals prefix", "=1.2.0", "1.2.0", "", false},
		{"whitespace", "  v1.3.0\n", "1.3.0", "", false},
		{"prerelease", "1.3.0-beta.1", "1.3.0-beta.1", "beta.1", false},
		{"build metadata", "1.3.0+build.7", "1.3.0", "", false},
		{"prefixed build metadata", "v1.3.0+build.5", "1.3.0", "", false},
		{"empty", "", "", "", true},
		{"shorthand", "1.2", "", "", true},
		{"garbage", "latest", "", "", true},
		{"leading zero", "01.2.3", "", "", true},
		{"four parts", "1.2.3.4", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseVersion(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseVersion(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidVersion) {
					t.Errorf("ParseVersion(%q) error should wrap ErrInvalidVersion", tt.input)
				}
				return
			}
			if got.String() != tt.want {
				t.Errorf("ParseVersion(%q).String() = %q, want %q", tt.input, got.String(), tt.want)
			}
			if got.Prerelease != tt.wantPre {
				t.Errorf("ParseVersion(%q).Prerelease = %q, want %q", tt.input, got.Prerelease, tt.wantPre)
			}
		})
	}
}

func TestParseVersion_Fields(t *testing.T) {
	v, err := ParseVersion("v2.10.3-rc.1+abc")
	if err != nil {
		t.Fatal(err)
	}
	if v.Major != 2 || v.Minor != 10 || v.Patch != 3 {
		t.Errorf("ParseVersion() = %d.%d.%d, want 2.10.3", v.Major, v.Minor, v.Patch)
	}
	if v.Build != "abc" {
		t.Errorf("Build = %q, want abc", v.Build)
	}
	if v.Tag() != "v2.10.3-rc.1" {
		t.Errorf("Tag() = %q", v.Tag())
	}
}

func TestVersionCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.3.0", "1.2.0", 1},
		{"1.2.0", "1.3.0", -1},
		{"1.2.0", "1.2.0", 0},
		{"1.10.0", "1.9.9", 1},
		{"2.0.0", "1.99.99", 1},
		{"1.3.0-beta", "1.3.0", -1},
		{"1.3.0-alpha", "1.3.0-beta", -1},
		{"1.3.0+build.1", "1.3.0+build.2", 0},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_vs_"+tt.b, func(t *testing.T) {
			a, err := ParseVersion(tt.a)
			if err != nil {
				t.Fatal(err)
			}
			b, err := ParseVersion(tt.b)
			if err != nil {
				t.Fatal(err)
			}
			if got := a.Compare(b); got != tt.want {
				t.Errorf("Compare(%s, %s) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestNewerAvailable(t *testing.T) {
	tests := []struct {
		name    string
		current VersionResult
		latest  VersionResult
		want    bool
	}{
		{"newer", Resolve("1.2.0"), Resolve("v1.3.0"), true},
		{"same", Resolve("1.3.0"), Resolve("v1.3.0"), false},
		{"older", Resolve("1.3.0"), Resolve("1.2.9"), false},
		{"prerelease of current", Resolve("1.3.0"), Resolve("1.3.0-rc.1"), false},
		{"release after prerelease", Resolve("1.3.0-rc.1"), Resolve("1.3.0"), true},
		{"current unresolved", Unresolved(errors.New("no file")), Resolve("1.3.0"), false},
		{"latest unparsable", Resolve("1.2.0"), Resolve("nightly"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewerAvailable(tt.current, tt.latest); got != tt.want {
				t.Errorf("NewerAvailable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVersionResult(t *testing.T) {
	r := Resolve("nightly")
	if r.Resolved() {
		t.Error("Resolve(nightly).Resolved() = true")
	}
	if r.Raw != "nightly" {
		t.Errorf("Raw = %q, want nightly", r.Raw)
	}
	if r.String() != "unknown" {
		t.Errorf("String() = %q, want unknown", r.String())
	}
	if r.Err == nil {
		t.Error("Err = nil for unparsable version")
	}

	ok := Resolve("v1.3.0")
	if !ok.Resolved() || ok.String() != "1.3.0" {
		t.Errorf("Resolve(v1.3.0) = %+v", ok)
	}
}
