package bootstrap

import (
	"errors"
	"strings"

	"github.com/miekg/dns"

	"lightstore/internal/lcrypto"
)

// ErrInvalidURL is returned by ParseURL for anything that isn't one of
// the two recognized lsd:// forms.
var ErrInvalidURL = errors.New("bootstrap: invalid lsd:// url")

// ErrNoMatchingTXT is returned when a host-form URL's TXT records don't
// name a matching path.
var ErrNoMatchingTXT = errors.New("bootstrap: no matching lightstore TXT record")

const urlScheme = "lsd://"

// ParsedURL is the resolved identity and content path named by an
// lsd:// URL (§6).
type ParsedURL struct {
	Key  lcrypto.VerifyKey
	Path string
}

// ParseURL resolves both URL forms documented in §6:
//   - lsd://<base32>/ : the key is encoded directly, no DNS involved.
//   - lsd://<host>/<path> : <host> carries a TXT record of the form
//     "lightstore <base32> <path>"; the record whose path matches wins.
func ParseURL(raw string) (*ParsedURL, error) {
	if !strings.HasPrefix(raw, urlScheme) {
		return nil, ErrInvalidURL
	}
	rest := strings.TrimPrefix(raw, urlScheme)
	slash := strings.IndexByte(rest, '/')
	var host, path string
	if slash < 0 {
		host = rest
	} else {
		host = rest[:slash]
		path = rest[slash+1:]
	}
	if host == "" {
		return nil, ErrInvalidURL
	}

	if path == "" {
		if keyBytes, err := lcrypto.DecodeBase32(host, 32); err == nil {
			var key lcrypto.VerifyKey
			copy(key[:], keyBytes)
			return &ParsedURL{Key: key}, nil
		}
	}

	return resolveHostForm(host, path)
}

// resolveHostForm looks up host's TXT records and returns the key from
// whichever "lightstore <base32> <path>" record's path matches.
func resolveHostForm(host, path string) (*ParsedURL, error) {
	cfg, err := resolverConfig()
	if err != nil {
		return nil, err
	}
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(host), dns.TypeTXT)
	resp, err := queryFirstServer(cfg, m)
	if err != nil {
		return nil, err
	}
	for _, rr := range resp.Answer {
		txt, ok := rr.(*dns.TXT)
		if !ok {
			continue
		}
		for _, s := range txt.Txt {
			fields := strings.Fields(s)
			if len(fields) != 3 || fields[0] != "lightstore" {
				continue
			}
			if fields[2] != path {
				continue
			}
			keyBytes, err := lcrypto.DecodeBase32(fields[1], 32)
			if err != nil {
				continue
			}
			var key lcrypto.VerifyKey
			copy(key[:], keyBytes)
			return &ParsedURL{Key: key, Path: path}, nil
		}
	}
	return nil, ErrNoMatchingTXT
}
