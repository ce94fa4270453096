package model

import "strings"

// VendorID is a normalized vendor identifier. The three external data sources
// join only on free-text vendor names, so comparisons must be case- and
// whitespace-insensitive to avoid silent mismatches.
type VendorID string

// NormalizeVendor lowercases a vendor name and collapses interior whitespace.
func NormalizeVendor(name string) VendorID {
	fields := strings.Fields(strings.ToLower(name))
	return VendorID(strings.Join(fields, " "))
}

// SameVendor reports whether two free-text vendor names refer to the same vendor.
func SameVendor(a, b string) bool {
	return NormalizeVendor(a) == NormalizeVendor(b)
}
