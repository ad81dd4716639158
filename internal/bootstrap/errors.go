package bootstrap

import "errors"

var (
	// ErrAllSeedsFailed is returned when every configured DNS seed's SRV
	// lookup fails.
	ErrAllSeedsFailed = errors.New("bootstrap: all seed SRV lookups failed")

	// ErrNoResolverConfig is returned when the system resolver
	// configuration (/etc/resolv.conf) can't be read.
	ErrNoResolverConfig = errors.New("bootstrap: could not read resolver configuration")
)
