// Package bootstrap implements initial peer discovery (§6): resolve a
// small set of well-known DNS names to SRV records naming candidate
// bootstrap nodes, pick among same-priority candidates by weighted
// random selection (RFC 2782), decode each candidate's Bech32-encoded
// public key from its target hostname, and resolve that hostname to
// concrete addresses.
//
// Grounded on lightning/src/bootstrap.rs's bootstrap_lookup, adapted
// from trust_dns_resolver + the rust bech32/secp256k1 crates to
// github.com/miekg/dns, github.com/btcsuite/btcutil/bech32, and
// github.com/decred/dcrd/dcrec/secp256k1/v4.
package bootstrap

import (
	"math/rand"
	"net"
	"strings"

	"github.com/btcsuite/btcutil/bech32"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/miekg/dns"
	"golang.org/x/sync/errgroup"
)

// DefaultSeeds is the well-known set of domains carrying SRV records for
// bootstrap candidates.
var DefaultSeeds = []string{
	"seed1.lightstore.example",
	"seed2.lightstore.example",
}

// Endpoint is one resolved, key-identified bootstrap candidate.
type Endpoint struct {
	PubKey *secp256k1.PublicKey
	Addr   *net.UDPAddr
}

// resolverConfigFunc and exchangeFunc are overridden in tests to replace
// /etc/resolv.conf and live DNS exchanges with fixed fixtures, so the
// bootstrap pipeline (ResolveSeeds -> OrderByPriorityAndWeight ->
// decodeTargetPubKey -> resolveIPs) can be exercised end to end without a
// network.
var (
	resolverConfigFunc = defaultResolverConfig
	exchangeFunc       = defaultExchange
)

func defaultResolverConfig() (*dns.ClientConfig, error) {
	cfg, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil {
		return nil, ErrNoResolverConfig
	}
	return cfg, nil
}

func defaultExchange(m *dns.Msg, server string) (*dns.Msg, error) {
	c := new(dns.Client)
	resp, _, err := c.Exchange(m, server)
	return resp, err
}

// resolverConfig reads the system's nameserver list the way dig/miekg's
// own examples do, rather than hand-rolling nameserver discovery.
func resolverConfig() (*dns.ClientConfig, error) {
	return resolverConfigFunc()
}

func queryFirstServer(cfg *dns.ClientConfig, m *dns.Msg) (*dns.Msg, error) {
	var lastErr error
	for _, server := range cfg.Servers {
		resp, err := exchangeFunc(m, net.JoinHostPort(server, cfg.Port))
		if err != nil {
			lastErr = err
			continue
		}
		return resp, nil
	}
	return nil, lastErr
}

// lookupSRV resolves one seed name's SRV records, trying each
// configured nameserver in turn.
func lookupSRV(cfg *dns.ClientConfig, seed string) ([]*dns.SRV, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(seed), dns.TypeSRV)
	resp, err := queryFirstServer(cfg, m)
	if err != nil {
		return nil, err
	}
	var records []*dns.SRV
	for _, rr := range resp.Answer {
		if srv, ok := rr.(*dns.SRV); ok {
			records = append(records, srv)
		}
	}
	return records, nil
}

// ResolveSeeds tries every seed in order and returns the SRV records
// from the first one that answers successfully, matching
// bootstrap_lookup's AllSeedLookupsFailed-only-on-total-failure
// behavior.
func ResolveSeeds(seeds []string) ([]*dns.SRV, error) {
	cfg, err := resolverConfig()
	if err != nil {
		return nil, err
	}
	for _, seed := range seeds {
		records, err := lookupSRV(cfg, seed)
		if err == nil && len(records) > 0 {
			return records, nil
		}
	}
	return nil, ErrAllSeedsFailed
}

// OrderByPriorityAndWeight groups SRV records by ascending priority and,
// within each priority group, repeatedly draws one record via the RFC
// 2782 weighted random algorithm (draw a uniform value in
// [0,total_weight], walk the sorted-by-weight group accumulating weight
// until the draw is covered). Matches bootstrap.rs's ordered_results
// construction exactly, including sorting each group by weight first.
func OrderByPriorityAndWeight(records []*dns.SRV, rng *rand.Rand) []*dns.SRV {
	byPriority := map[uint16][]*dns.SRV{}
	var priorities []uint16
	for _, r := range records {
		if _, ok := byPriority[r.Priority]; !ok {
			priorities = append(priorities, r.Priority)
		}
		byPriority[r.Priority] = append(byPriority[r.Priority], r)
	}
	sortUint16s(priorities)

	ordered := make([]*dns.SRV, 0, len(records))
	for _, p := range priorities {
		group := append([]*dns.SRV{}, byPriority[p]...)
		sortSRVByWeight(group)
		for len(group) > 0 {
			var total uint64
			for _, r := range group {
				total += uint64(r.Weight)
			}
			target := uint64(0)
			if total > 0 {
				target = uint64(rng.Int63n(int64(total) + 1))
			}
			var sum uint64
			for i, r := range group {
				sum += uint64(r.Weight)
				if target <= sum {
					ordered = append(ordered, r)
					group = append(group[:i], group[i+1:]...)
					break
				}
			}
		}
	}
	return ordered
}

func sortUint16s(s []uint16) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j] < s[j-1]; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

func sortSRVByWeight(s []*dns.SRV) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j].Weight < s[j-1].Weight; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

// decodeTargetPubKey extracts and decodes the Bech32-encoded public key
// carried in an SRV target's leading DNS label (e.g.
// "<bech32>.seed.example." names a candidate whose identity is the
// label itself).
func decodeTargetPubKey(target string) (*secp256k1.PublicKey, error) {
	label := strings.SplitN(strings.TrimSuffix(target, "."), ".", 2)[0]
	_, data, err := bech32.Decode(label)
	if err != nil {
		return nil, err
	}
	keyBytes, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return nil, err
	}
	return secp256k1.ParsePubKey(keyBytes)
}

// resolveIPs resolves target to its A/AAAA addresses.
func resolveIPs(cfg *dns.ClientConfig, target string) ([]net.IP, error) {
	var ips []net.IP
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		m := new(dns.Msg)
		m.SetQuestion(dns.Fqdn(target), qtype)
		resp, err := queryFirstServer(cfg, m)
		if err != nil {
			continue
		}
		for _, rr := range resp.Answer {
			switch rec := rr.(type) {
			case *dns.A:
				ips = append(ips, rec.A)
			case *dns.AAAA:
				ips = append(ips, rec.AAAA)
			}
		}
	}
	return ips, nil
}

// maxConcurrentResolves bounds how many candidates' A/AAAA lookups run at
// once, so a seed with a long SRV answer can't open unbounded sockets.
const maxConcurrentResolves = 8

// Lookup runs the full bootstrap pipeline: resolve seeds' SRV records,
// order candidates by priority/weight, then decode each candidate's
// identity key and resolve its address concurrently (bounded by
// maxConcurrentResolves, via errgroup), returning every (key, address)
// pair found in candidate order.
func Lookup(seeds []string, rng *rand.Rand) ([]Endpoint, error) {
	records, err := ResolveSeeds(seeds)
	if err != nil {
		return nil, err
	}
	cfg, err := resolverConfig()
	if err != nil {
		return nil, err
	}

	ordered := OrderByPriorityAndWeight(records, rng)
	perCandidate := make([][]Endpoint, len(ordered))

	g := new(errgroup.Group)
	g.SetLimit(maxConcurrentResolves)
	for i, r := range ordered {
		i, r := i, r
		g.Go(func() error {
			key, err := decodeTargetPubKey(r.Target)
			if err != nil {
				return nil
			}
			ips, err := resolveIPs(cfg, r.Target)
			if err != nil {
				return nil
			}
			found := make([]Endpoint, len(ips))
			for j, ip := range ips {
				found[j] = Endpoint{PubKey: key, Addr: &net.UDPAddr{IP: ip, Port: int(r.Port)}}
			}
			perCandidate[i] = found
			return nil
		})
	}
	_ = g.Wait()

	var endpoints []Endpoint
	for _, found := range perCandidate {
		endpoints = append(endpoints, found...)
	}
	return endpoints, nil
}
