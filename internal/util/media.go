package util

import "encoding/base64"

// IsBase64Payload reports whether value should be sent to the gateway as
// embedded file data rather than as a URL.
//
// The check is a strict standard-alphabet decode followed by a re-encode; the
// value qualifies only when the round trip reproduces it exactly. Any string
// that happens to be canonical base64 is treated as data, even if the caller
// meant it as a URL. The empty string round-trips and therefore counts as
// data.
func IsBase64Payload(value string) bool {
	decoded, err := base64.StdEncoding.Strict().DecodeString(value)
	if err != nil {
		return false
	}
	return base64.StdEncoding.EncodeToString(decoded) == value
}
