package utils

import "regexp"

var idRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.:-]{0,127}$`)

// IsId reports whether id is usable as a device id in URLs and topics:
// 1 to 128 characters, alphanumeric first, then alphanumerics or _ . : -
func IsId(id string) bool {
	return idRe.MatchString(id)
}
