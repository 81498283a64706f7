//go:build !libpostal

package parse

// NewRefiner returns nil when the binary is built without libpostal.
func NewRefiner() AddressRefiner {
	return nil
}
