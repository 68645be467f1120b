package event

import (
	"sort"
	"strings"
)

// Category classifies an event heading by its log source. Derived from the
// heading prefix; scoring is keyed by category alone.
type Category string

const (
	CategoryWindows Category = "windows"
	CategoryRTU     Category = "rtu"
	CategoryAMT     Category = "amt"
	CategoryPLC     Category = "plc"
	CategoryLinux   Category = "linux"
	CategoryOther   Category = "other"
)

// ParseCategory validates a category filter value. Empty means no filter.
func ParseCategory(raw string) (Category, bool) {
	c := Category(strings.TrimSpace(strings.ToLower(raw)))
	switch c {
	case "", CategoryWindows, CategoryRTU, CategoryAMT, CategoryPLC, CategoryLinux, CategoryOther:
		return c, true
	default:
		return "", false
	}
}

// catalog is the closed set of submittable event headings, keyed by
// heading value. Each category also carries a generic "*_other" entry.
var catalog = map[string]Category{
	"win_usb_connect": CategoryWindows,
	"win_clear_log":   CategoryWindows,
	"win_create_user": CategoryWindows,
	"win_delete_user": CategoryWindows,
	"win_rdp_fail":    CategoryWindows,
	"win_rdp_success": CategoryWindows,
	"win_other":       CategoryWindows,

	"rtu_login_fail_pwd":  CategoryRTU,
	"rtu_login_fail_user": CategoryRTU,
	"rtu_restart":         CategoryRTU,
	"rtu_upload_config":   CategoryRTU,
	"rtu_download_config": CategoryRTU,
	"rtu_manual_reset":    CategoryRTU,
	"rtu_other":           CategoryRTU,

	"amt_port_scan":              CategoryAMT,
	"amt_unknown_device_network": CategoryAMT,
	"amt_unauth_comm":            CategoryAMT,
	"amt_ip_mac_mismatch":        CategoryAMT,
	"amt_host_scan":              CategoryAMT,
	"amt_suspected_flooding":     CategoryAMT,
	"amt_dos_attack":             CategoryAMT,
	"amt_suspicious_apdu":        CategoryAMT,
	"amt_unknown_device_search":  CategoryAMT,
	"amt_tcp_termination":        CategoryAMT,
	"amt_no_comm":                CategoryAMT,
	"amt_other":                  CategoryAMT,

	"plc_login_success": CategoryPLC,
	"plc_login_denied":  CategoryPLC,
	"plc_cpu_stop":      CategoryPLC,
	"plc_other":         CategoryPLC,

	"linux_auth_success": CategoryLinux,
	"linux_auth_fail":    CategoryLinux,
	"linux_rm_file":      CategoryLinux,
	"linux_other":        CategoryLinux,

	"other_event": CategoryOther,
}

// KnownHeading reports whether heading is part of the submittable catalog.
func KnownHeading(heading string) bool {
	_, ok := catalog[heading]
	return ok
}

// CategoryOf derives the category from a heading's prefix tag. Headings
// outside the catalog fall back to the generic "other" category so that
// legacy records still aggregate.
func CategoryOf(heading string) Category {
	if c, ok := catalog[heading]; ok {
		return c
	}
	switch prefix, _, _ := strings.Cut(strings.ToLower(heading), "_"); prefix {
	case "win":
		return CategoryWindows
	case "rtu":
		return CategoryRTU
	case "amt":
		return CategoryAMT
	case "plc":
		return CategoryPLC
	case "linux":
		return CategoryLinux
	default:
		return CategoryOther
	}
}

// Headings returns the catalog values in sorted order.
func Headings() []string {
	out := make([]string, 0, len(catalog))
	for h := range catalog {
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}
