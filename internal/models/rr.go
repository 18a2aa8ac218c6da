package models

import (
	"fmt"
	"net"
	"strings"

	"github.com/miekg/dns"
	"nic-dns/internal/common/errors"
)

// ToRR converts the record to its miekg/dns form. Relative owner names are
// qualified with origin; "@" and the empty name become origin itself.
func (r *Record) ToRR(origin string) (dns.RR, error) {
	origin = dns.Fqdn(origin)
	owner := origin
	if r.Name != "" && r.Name != "@" {
		owner = r.Name
		if !dns.IsFqdn(owner) {
			owner += "."
			if origin != "." {
				owner += origin
			}
		}
	}

	hdr := dns.RR_Header{Name: owner, Class: dns.ClassINET, Ttl: uint32(r.TTL)}

	switch r.Kind {
	case KindA, KindAAAA:
		ip := net.ParseIP(r.Address)
		if ip == nil {
			return nil, errors.ValidationError(fmt.Sprintf("invalid address: %q", r.Address))
		}
		if r.Kind == KindA {
			hdr.Rrtype = dns.TypeA
			return &dns.A{Hdr: hdr, A: ip}, nil
		}
		hdr.Rrtype = dns.TypeAAAA
		return &dns.AAAA{Hdr: hdr, AAAA: ip}, nil
	case KindNS:
		hdr.Rrtype = dns.TypeNS
		return &dns.NS{Hdr: hdr, Ns: r.Target}, nil
	case KindCNAME:
		hdr.Rrtype = dns.TypeCNAME
		return &dns.CNAME{Hdr: hdr, Target: r.Target}, nil
	case KindPTR:
		hdr.Rrtype = dns.TypePTR
		return &dns.PTR{Hdr: hdr, Ptr: r.Target}, nil
	case KindDNAME:
		hdr.Rrtype = dns.TypeDNAME
		return &dns.DNAME{Hdr: hdr, Target: r.Target}, nil
	case KindTXT:
		hdr.Rrtype = dns.TypeTXT
		return &dns.TXT{Hdr: hdr, Txt: r.Texts}, nil
	case KindSOA:
		if r.SOA == nil {
			break
		}
		hdr.Rrtype = dns.TypeSOA
		return &dns.SOA{
			Hdr:     hdr,
			Ns:      r.SOA.MName,
			Mbox:    r.SOA.RName,
			Serial:  r.SOA.Serial,
			Refresh: r.SOA.Refresh,
			Retry:   r.SOA.Retry,
			Expire:  r.SOA.Expire,
			Minttl:  r.SOA.Minimum,
		}, nil
	case KindMX:
		if r.MX == nil {
			break
		}
		hdr.Rrtype = dns.TypeMX
		return &dns.MX{Hdr: hdr, Preference: r.MX.Preference, Mx: r.MX.Exchange}, nil
	case KindSRV:
		if r.SRV == nil {
			break
		}
		hdr.Rrtype = dns.TypeSRV
		return &dns.SRV{Hdr: hdr, Priority: r.SRV.Priority, Weight: r.SRV.Weight, Port: r.SRV.Port, Target: r.SRV.Target}, nil
	case KindHINFO:
		if r.HINFO == nil {
			break
		}
		hdr.Rrtype = dns.TypeHINFO
		return &dns.HINFO{Hdr: hdr, Cpu: r.HINFO.Hardware, Os: r.HINFO.OS}, nil
	case KindNAPTR:
		if r.NAPTR == nil {
			break
		}
		hdr.Rrtype = dns.TypeNAPTR
		return &dns.NAPTR{
			Hdr:         hdr,
			Order:       r.NAPTR.Order,
			Preference:  r.NAPTR.Preference,
			Flags:       r.NAPTR.Flags,
			Service:     r.NAPTR.Service,
			Regexp:      r.NAPTR.Regexp,
			Replacement: r.NAPTR.Replacement,
		}, nil
	case KindRP:
		if r.RP == nil {
			break
		}
		hdr.Rrtype = dns.TypeRP
		return &dns.RP{Hdr: hdr, Mbox: r.RP.MBox, Txt: r.RP.TXT}, nil
	default:
		return nil, errors.ValidationError(fmt.Sprintf("unknown record type: %s", r.Kind))
	}

	return nil, errors.ValidationError(fmt.Sprintf("%s record has no payload", r.Kind))
}

// FromRR converts a miekg/dns record to a Record, making the owner name
// relative to origin.
func FromRR(rr dns.RR, origin string) (*Record, error) {
	hdr := rr.Header()
	name := relativeName(hdr.Name, origin)

	r := &Record{Name: name, IDNName: toUnicode(name), TTL: int(hdr.Ttl)}

	switch v := rr.(type) {
	case *dns.A:
		r.Kind, r.Address = KindA, v.A.String()
	case *dns.AAAA:
		r.Kind, r.Address = KindAAAA, v.AAAA.String()
	case *dns.NS:
		r.Kind, r.Target = KindNS, v.Ns
	case *dns.CNAME:
		r.Kind, r.Target = KindCNAME, v.Target
	case *dns.PTR:
		r.Kind, r.Target = KindPTR, v.Ptr
	case *dns.DNAME:
		r.Kind, r.Target = KindDNAME, v.Target
	case *dns.TXT:
		r.Kind, r.Texts = KindTXT, v.Txt
	case *dns.SOA:
		r.Kind = KindSOA
		r.SOA = &SOA{MName: v.Ns, RName: v.Mbox, Serial: v.Serial, Refresh: v.Refresh, Retry: v.Retry, Expire: v.Expire, Minimum: v.Minttl}
	case *dns.MX:
		r.Kind = KindMX
		r.MX = &MX{Preference: v.Preference, Exchange: v.Mx}
	case *dns.SRV:
		r.Kind = KindSRV
		r.SRV = &SRV{Priority: v.Priority, Weight: v.Weight, Port: v.Port, Target: v.Target}
	case *dns.HINFO:
		r.Kind = KindHINFO
		r.HINFO = &HINFO{Hardware: v.Cpu, OS: v.Os}
	case *dns.NAPTR:
		r.Kind = KindNAPTR
		r.NAPTR = &NAPTR{Order: v.Order, Preference: v.Preference, Flags: v.Flags, Service: v.Service, Regexp: v.Regexp, Replacement: v.Replacement}
	case *dns.RP:
		r.Kind = KindRP
		r.RP = &RP{MBox: v.Mbox, TXT: v.Txt}
	default:
		return nil, errors.ValidationError(fmt.Sprintf("unsupported record type: %s", dns.TypeToString[hdr.Rrtype]))
	}

	return validated(r)
}

// ParseRecord parses one zone-file line such as "www 300 IN A 192.0.2.1".
// Names are relative to origin. A line without a TTL yields an unset TTL.
func ParseRecord(line, origin string) (*Record, error) {
	zp := dns.NewZoneParser(strings.NewReader("$TTL 0\n"+line), dns.Fqdn(origin), "")

	rr, ok := zp.Next()
	if !ok {
		if err := zp.Err(); err != nil {
			return nil, errors.ValidationError(fmt.Sprintf("invalid record %q: %v", line, err))
		}
		return nil, errors.ValidationError("empty record")
	}
	if err := zp.Err(); err != nil {
		return nil, errors.ValidationError(fmt.Sprintf("invalid record %q: %v", line, err))
	}

	return FromRR(rr, origin)
}

func relativeName(owner, origin string) string {
	origin = dns.Fqdn(origin)
	if origin == "." {
		return owner
	}
	if strings.EqualFold(owner, origin) {
		return "@"
	}
	suffix := "." + origin
	if cut := len(owner) - len(suffix); cut > 0 && strings.EqualFold(owner[cut:], suffix) {
		return owner[:cut]
	}
	return owner
}

func rdata(rr dns.RR) string {
	return strings.TrimPrefix(rr.String(), rr.Header().String())
}

// String renders the record as a zone-file line
func (r *Record) String() string {
	owner := r.Name
	if owner == "" {
		owner = "@"
	}

	value := r.Value()
	if r.TTL > 0 {
		return fmt.Sprintf("%s\t%d\tIN\t%s\t%s", owner, r.TTL, r.Kind, value)
	}
	return fmt.Sprintf("%s\tIN\t%s\t%s", owner, r.Kind, value)
}
