// Package security provides URL validation and SSRF protection for
// untrusted navigation targets.
package security

import (
	"net"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/idna"

	"github.com/uxlens/pagescope/internal/types"
)

// AllowedSchemes defines the permitted URL schemes.
var AllowedSchemes = map[string]bool{
	"http":  true,
	"https": true,
}

// BlockedHosts contains hostnames that should never be navigated to.
var BlockedHosts = map[string]bool{
	"localhost":                true,
	"127.0.0.1":                true,
	"0.0.0.0":                  true,
	"::1":                      true,
	"metadata.google.internal": true, // GCP metadata
	"metadata":                 true, // Generic cloud metadata
	"instance-data":            true, // AWS instance metadata hostname
}

// cloudMetadataIPs contains IP addresses used by cloud provider metadata
// services. These must be blocked to prevent SSRF from reaching credentials.
var cloudMetadataIPs = []net.IP{
	net.ParseIP("169.254.169.254"), // AWS, GCP, Azure, DigitalOcean, OpenStack
	net.ParseIP("169.254.170.2"),   // AWS ECS task metadata
	net.ParseIP("100.100.100.200"), // Alibaba Cloud
	net.ParseIP("192.0.0.192"),     // Oracle Cloud IMDS
	net.ParseIP("fd00:ec2::254"),   // AWS IPv6 metadata
}

// privateIPv4Prefixes are the literal-hostname patterns of the private
// IPv4 ranges: 10.0.0.0/8, 172.16.0.0/12, 192.168.0.0/16, 169.254.0.0/16.
var privateIPv4Prefixes = []*net.IPNet{
	mustCIDR("10.0.0.0/8"),
	mustCIDR("172.16.0.0/12"),
	mustCIDR("192.168.0.0/16"),
	mustCIDR("169.254.0.0/16"),
}

func mustCIDR(s string) *net.IPNet {
	_, n, err := net.ParseCIDR(s)
	if err != nil {
		panic(err)
	}
	return n
}

// Normalize returns the canonical form of a user-supplied URL string.
// Input without any scheme gets https:// prepended; input that already
// carries a scheme is left alone so scheme checks see it unchanged.
// Normalize never fails; unfixable input is returned as-is.
func Normalize(input string) string {
	input = strings.TrimSpace(input)
	if u, err := url.Parse(input); err == nil && u.Scheme != "" {
		return input
	}
	candidate := "https://" + input
	if u, err := url.Parse(candidate); err == nil && u.Host != "" {
		return candidate
	}
	return input
}

// IsValidURL reports whether the string parses as an absolute URL whose
// scheme is exactly http or https.
func IsValidURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return u.Host != "" && AllowedSchemes[strings.ToLower(u.Scheme)]
}

// IsBlockedURL reports whether the URL targets a loopback/meta hostname
// or a private IPv4 range. This is a syntactic check on the literal
// hostname only; resolution-based checks are done by ValidateURL.
// Parse failure is treated as blocked (fail closed).
func IsBlockedURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	hostname := normalizeHostname(u.Hostname())
	if hostname == "" {
		return true
	}

	if BlockedHosts[hostname] || isLocalhostHostname(hostname) {
		return true
	}

	if ip := parseIPWithNormalization(hostname); ip != nil {
		if ip4 := ip.To4(); ip4 != nil {
			for _, n := range privateIPv4Prefixes {
				if n.Contains(ip4) {
					return true
				}
			}
			if ip4[0] == 127 {
				return true
			}
		}
		if ip.IsLoopback() || ip.IsUnspecified() {
			return true
		}
	}

	return false
}

// CheckAllowedDomains reports whether the URL's hostname equals or is a
// subdomain of some allowlist entry. An empty allowlist allows everything.
func CheckAllowedDomains(rawURL string, allowlist []string) bool {
	if len(allowlist) == 0 {
		return true
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	hostname := normalizeHostname(u.Hostname())
	for _, domain := range allowlist {
		domain = strings.ToLower(strings.TrimSpace(domain))
		if domain == "" {
			continue
		}
		if hostname == domain || strings.HasSuffix(hostname, "."+domain) {
			return true
		}
	}
	return false
}

// ValidateURL checks that a URL is safe to navigate to. Beyond the
// syntactic checks it resolves the hostname and re-validates every
// resolved IP, closing the public-hostname-resolves-to-private-address
// SSRF bypass. It blocks:
//   - Non-HTTP(S) schemes (file://, javascript:, data:, etc.)
//   - Loopback, private (RFC 1918/4193), and link-local addresses
//   - Cloud metadata service IPs
//   - IP encoding bypasses (decimal, octal, hex, IPv4-mapped IPv6)
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return types.ErrURLRequired
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return types.ErrInvalidURL
	}
	if !AllowedSchemes[strings.ToLower(u.Scheme)] {
		return types.ErrBlockedScheme
	}

	hostname := normalizeHostname(u.Hostname())
	if hostname == "" {
		return types.ErrInvalidURL
	}
	if BlockedHosts[hostname] || isLocalhostHostname(hostname) {
		return types.ErrBlockedHost
	}

	if ip := parseIPWithNormalization(hostname); ip != nil {
		return validateIP(normalizeIPv4Mapped(ip))
	}

	// Hostname: resolve and check all IPs. If DNS resolution fails the
	// URL is allowed through - the browser will surface the error.
	ips, err := net.LookupIP(hostname)
	if err != nil {
		return nil
	}
	for _, resolved := range ips {
		if err := validateIP(normalizeIPv4Mapped(resolved)); err != nil {
			return err
		}
	}
	return nil
}

// normalizeHostname lowercases a hostname and converts internationalized
// names to their punycode form so the denylist cannot be bypassed with
// unicode lookalikes.
func normalizeHostname(hostname string) string {
	hostname = strings.ToLower(strings.TrimSuffix(hostname, "."))
	if ascii, err := idna.Lookup.ToASCII(hostname); err == nil {
		return ascii
	}
	return hostname
}

// isLocalhostHostname checks if a hostname is a localhost variant.
func isLocalhostHostname(hostname string) bool {
	switch hostname {
	case "localhost", "localhost.localdomain", "local", "ip6-localhost", "ip6-loopback":
		return true
	}
	return strings.HasSuffix(hostname, ".localhost") || strings.HasPrefix(hostname, "localhost.")
}

// parseIPWithNormalization parses an IP address string, handling encoding
// formats that could be used to bypass SSRF protections:
//   - Standard dotted decimal (192.168.1.1) and IPv6
//   - Single decimal encoding (2130706433 for 127.0.0.1)
//   - Octal/hex components (0177.0.0.1, 0x7f.0.0.1)
//   - Shortened forms (127.1)
func parseIPWithNormalization(hostname string) net.IP {
	if ip := net.ParseIP(hostname); ip != nil {
		return ip
	}

	if num, err := strconv.ParseUint(hostname, 10, 32); err == nil {
		return net.IPv4(byte(num>>24), byte(num>>16), byte(num>>8), byte(num))
	}

	parts := strings.Split(hostname, ".")
	if len(parts) == 4 {
		var octets [4]byte
		for i, part := range parts {
			val, err := parseIntWithBase(part)
			if err != nil || val > 255 {
				return nil
			}
			octets[i] = byte(val)
		}
		return net.IPv4(octets[0], octets[1], octets[2], octets[3])
	}

	if len(parts) == 2 {
		first, err1 := parseIntWithBase(parts[0])
		second, err2 := parseIntWithBase(parts[1])
		if err1 == nil && err2 == nil && first <= 255 && second <= 0xFFFFFF {
			return net.IPv4(byte(first), byte(second>>16), byte(second>>8), byte(second))
		}
	}

	return nil
}

// parseIntWithBase parses an integer in decimal, octal (0-prefixed), or
// hexadecimal (0x-prefixed) format.
func parseIntWithBase(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return strconv.ParseUint(s[2:], 16, 64)
	}
	if strings.HasPrefix(s, "0") && len(s) > 1 {
		return strconv.ParseUint(s[1:], 8, 64)
	}
	return strconv.ParseUint(s, 10, 64)
}

// normalizeIPv4Mapped converts IPv4-mapped IPv6 addresses (::ffff:x.x.x.x)
// to IPv4 so IPv6 notation cannot hide a blocked IPv4 address.
func normalizeIPv4Mapped(ip net.IP) net.IP {
	if ip4 := ip.To4(); ip4 != nil {
		return ip4
	}
	return ip
}

// validateIP checks if an IP address is safe to access.
func validateIP(ip net.IP) error {
	if ip.IsLoopback() {
		return types.ErrBlockedHost
	}
	if ip.IsPrivate() {
		return types.ErrPrivateIPBlocked
	}
	if ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return types.ErrPrivateIPBlocked
	}
	if ip.IsUnspecified() {
		return types.ErrPrivateIPBlocked
	}
	for _, metadataIP := range cloudMetadataIPs {
		if ip.Equal(metadataIP) {
			return types.ErrPrivateIPBlocked
		}
	}
	return nil
}
