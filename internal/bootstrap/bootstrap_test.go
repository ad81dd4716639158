package bootstrap

import (
	"math/rand"
	"net"
	"testing"

	"github.com/btcsuite/btcutil/bech32"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/miekg/dns"

	"lightstore/internal/lcrypto"
)

func TestParseURLDirectForm(t *testing.T) {
	key := make([]byte, 32)
	for i := range key {
		key[i] = 0x04
	}
	encoded := lcrypto.EncodeBase32(key)
	if len(encoded) != 52 {
		t.Fatalf("expected a 52-char Crockford base32 encoding of a 32-byte key, got %d chars", len(encoded))
	}

	parsed, err := ParseURL("lsd://" + encoded + "/")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	for i, b := range parsed.Key {
		if b != key[i] {
			t.Fatalf("byte %d: got %x want %x", i, b, key[i])
		}
	}
}

func TestParseURLRejectsWrongScheme(t *testing.T) {
	if _, err := ParseURL("http://example.com/"); err != ErrInvalidURL {
		t.Fatalf("got %v, want ErrInvalidURL", err)
	}
}

func TestOrderByPriorityAndWeightRespectsPriorityGroups(t *testing.T) {
	records := []*dns.SRV{
		{Priority: 10, Weight: 1, Target: "b.example.", Port: 1},
		{Priority: 0, Weight: 1, Target: "a.example.", Port: 2},
		{Priority: 10, Weight: 1, Target: "c.example.", Port: 3},
	}
	rng := rand.New(rand.NewSource(1))
	ordered := OrderByPriorityAndWeight(records, rng)
	if len(ordered) != 3 {
		t.Fatalf("got %d records, want 3", len(ordered))
	}
	if ordered[0].Target != "a.example." {
		t.Fatalf("priority-0 record should come first, got %q", ordered[0].Target)
	}
}

func TestDecodeTargetPubKey(t *testing.T) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	pub := priv.PubKey()

	bits, err := bech32.ConvertBits(pub.SerializeCompressed(), 8, 5, true)
	if err != nil {
		t.Fatalf("convert bits: %v", err)
	}
	encoded, err := bech32.Encode("ls", bits)
	if err != nil {
		t.Fatalf("bech32 encode: %v", err)
	}

	got, err := decodeTargetPubKey(encoded + ".seed.example.")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.IsEqual(pub) {
		t.Fatalf("decoded key does not match original")
	}
}

// TestLookupHappyPath covers S6: a single seed answers with one SRV
// record naming a Bech32-encoded-pubkey target, which resolves to one A
// record. Lookup must emit exactly one Endpoint carrying that key and
// 192.0.2.7:9735.
func TestLookupHappyPath(t *testing.T) {
	origConfig, origExchange := resolverConfigFunc, exchangeFunc
	t.Cleanup(func() { resolverConfigFunc, exchangeFunc = origConfig, origExchange })

	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	pub := priv.PubKey()
	bits, err := bech32.ConvertBits(pub.SerializeCompressed(), 8, 5, true)
	if err != nil {
		t.Fatalf("convert bits: %v", err)
	}
	encoded, err := bech32.Encode("ls", bits)
	if err != nil {
		t.Fatalf("bech32 encode: %v", err)
	}
	target := encoded + ".seed.example."

	resolverConfigFunc = func() (*dns.ClientConfig, error) {
		return &dns.ClientConfig{Servers: []string{"203.0.113.53"}, Port: "53"}, nil
	}
	exchangeFunc = func(m *dns.Msg, server string) (*dns.Msg, error) {
		q := m.Question[0]
		resp := new(dns.Msg)
		resp.SetReply(m)
		switch q.Qtype {
		case dns.TypeSRV:
			resp.Answer = append(resp.Answer, &dns.SRV{
				Hdr:      dns.RR_Header{Name: q.Name, Rrtype: dns.TypeSRV, Class: dns.ClassINET},
				Priority: 0,
				Weight:   0,
				Port:     9735,
				Target:   target,
			})
		case dns.TypeA:
			resp.Answer = append(resp.Answer, &dns.A{
				Hdr: dns.RR_Header{Name: q.Name, Rrtype: dns.TypeA, Class: dns.ClassINET},
				A:   net.ParseIP("192.0.2.7"),
			})
		}
		return resp, nil
	}

	rng := rand.New(rand.NewSource(1))
	endpoints, err := Lookup(DefaultSeeds, rng)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if len(endpoints) != 1 {
		t.Fatalf("got %d endpoints, want 1", len(endpoints))
	}
	ep := endpoints[0]
	if !ep.PubKey.IsEqual(pub) {
		t.Fatalf("endpoint pubkey does not match")
	}
	if ep.Addr.IP.String() != "192.0.2.7" || ep.Addr.Port != 9735 {
		t.Fatalf("got addr %v, want 192.0.2.7:9735", ep.Addr)
	}
}
