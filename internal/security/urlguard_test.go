package security

import (
	"errors"
	"testing"

	"github.com/uxlens/pagescope/internal/types"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"already https", "https://example.com/a", "https://example.com/a"},
		{"already http", "http://example.com", "http://example.com"},
		{"schemeless", "example.com/page", "https://example.com/page"},
		{"schemeless with whitespace", "  example.com  ", "https://example.com"},
		{"other scheme untouched", "file:///etc/passwd", "file:///etc/passwd"},
		{"javascript untouched", "javascript:alert(1)", "javascript:alert(1)"},
		{"empty stays empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsValidURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://example.com", true},
		{"http://example.com:8080/path?q=1", true},
		{"HTTPS://EXAMPLE.COM", true},
		{"ftp://example.com", false},
		{"file:///etc/passwd", false},
		{"javascript:alert(1)", false},
		{"data:text/html,hi", false},
		{"https://", false},
		{"not a url", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsValidURL(tt.url); got != tt.want {
			t.Errorf("IsValidURL(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestIsBlockedURL(t *testing.T) {
	blocked := []string{
		"http://localhost/",
		"http://localhost:8080/admin",
		"http://LOCALHOST/",
		"http://localhost.localdomain/",
		"http://foo.localhost/",
		"http://127.0.0.1/",
		"http://127.0.0.2/",
		"http://0.0.0.0/",
		"http://[::1]/",
		"http://10.0.0.5/",
		"http://172.16.0.1/",
		"http://172.31.255.255/",
		"http://192.168.1.1/",
		"http://169.254.169.254/",
		"http://metadata.google.internal/",
		"http://2130706433/",   // decimal 127.0.0.1
		"http://0177.0.0.1/",   // octal
		"http://0x7f.0.0.1/",   // hex
		"http://127.1/",        // shortened
		"http://%zz",           // unparsable, fail closed
	}
	for _, u := range blocked {
		if !IsBlockedURL(u) {
			t.Errorf("IsBlockedURL(%q) = false, want true", u)
		}
	}

	allowed := []string{
		"https://example.com/",
		"http://93.184.216.34/",
		"http://172.32.0.1/", // just outside 172.16/12
		"http://8.8.8.8/",
	}
	for _, u := range allowed {
		if IsBlockedURL(u) {
			t.Errorf("IsBlockedURL(%q) = true, want false", u)
		}
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr error
	}{
		{"empty", "", types.ErrURLRequired},
		{"bad scheme", "ftp://example.com", types.ErrBlockedScheme},
		{"javascript", "javascript:alert(1)", types.ErrBlockedScheme},
		{"localhost", "http://localhost/", types.ErrBlockedHost},
		{"loopback", "http://127.0.0.1/", types.ErrBlockedHost},
		{"decimal loopback", "http://2130706433/", types.ErrBlockedHost},
		{"ipv4-mapped ipv6 loopback", "http://[::ffff:127.0.0.1]/", types.ErrBlockedHost},
		{"ipv4-mapped ipv6 private", "http://[::ffff:192.168.0.1]/", types.ErrPrivateIPBlocked},
		{"private 10", "http://10.1.2.3/", types.ErrPrivateIPBlocked},
		{"link local", "http://169.254.1.1/", types.ErrPrivateIPBlocked},
		{"aws metadata", "http://169.254.169.254/", types.ErrPrivateIPBlocked},
		{"alibaba metadata", "http://100.100.100.200/", types.ErrPrivateIPBlocked},
		{"unspecified", "http://0.0.0.0/", types.ErrBlockedHost},
		{"ula ipv6", "http://[fd00::1]/", types.ErrPrivateIPBlocked},
		{"public ip", "http://93.184.216.34/", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateURL(%q) = %v, want nil", tt.url, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateURL(%q) = %v, want %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestValidateURLUnresolvableHostAllowed(t *testing.T) {
	// DNS failure is left to the browser to surface as a navigation error.
	if err := ValidateURL("http://definitely-does-not-exist.invalid/"); err != nil {
		t.Errorf("ValidateURL(unresolvable) = %v, want nil", err)
	}
}

func TestCheckAllowedDomains(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		allowlist []string
		want      bool
	}{
		{"empty allowlist allows all", "https://anything.example/", nil, true},
		{"exact match", "https://example.com/", []string{"example.com"}, true},
		{"subdomain match", "https://app.example.com/", []string{"example.com"}, true},
		{"deep subdomain match", "https://a.b.example.com/", []string{"example.com"}, true},
		{"case insensitive", "https://APP.EXAMPLE.COM/", []string{"example.com"}, true},
		{"suffix is not subdomain", "https://notexample.com/", []string{"example.com"}, false},
		{"different domain", "https://evil.com/", []string{"example.com"}, false},
		{"second entry matches", "https://other.org/", []string{"example.com", "other.org"}, true},
		{"unparsable url rejected", "http://%zz", []string{"example.com"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CheckAllowedDomains(tt.url, tt.allowlist); got != tt.want {
				t.Errorf("CheckAllowedDomains(%q, %v) = %v, want %v", tt.url, tt.allowlist, got, tt.want)
			}
		})
	}
}

func TestParseIPWithNormalization(t *testing.T) {
	tests := []struct {
		host string
		want string // empty means nil
	}{
		{"192.168.1.1", "192.168.1.1"},
		{"2130706433", "127.0.0.1"},
		{"0177.0.0.1", "127.0.0.1"},
		{"0x7f.0.0.1", "127.0.0.1"},
		{"127.1", "127.0.0.1"},
		{"::1", "::1"},
		{"example.com", ""},
		{"999.1.1.1", ""},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			got := parseIPWithNormalization(tt.host)
			if tt.want == "" {
				if got != nil {
					t.Errorf("parseIPWithNormalization(%q) = %v, want nil", tt.host, got)
				}
				return
			}
			if got == nil || got.String() != tt.want {
				t.Errorf("parseIPWithNormalization(%q) = %v, want %s", tt.host, got, tt.want)
			}
		})
	}
}
