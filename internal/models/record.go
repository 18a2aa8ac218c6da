package models

import (
	"fmt"
	"math"

	"nic-dns/internal/common/errors"
	"nic-dns/internal/common/validation"
)

// Kind is the record type discriminant
type Kind string

const (
	KindSOA   Kind = "SOA"
	KindNS    Kind = "NS"
	KindA     Kind = "A"
	KindAAAA  Kind = "AAAA"
	KindCNAME Kind = "CNAME"
	KindMX    Kind = "MX"
	KindTXT   Kind = "TXT"
	KindSRV   Kind = "SRV"
	KindPTR   Kind = "PTR"
	KindDNAME Kind = "DNAME"
	KindHINFO Kind = "HINFO"
	KindNAPTR Kind = "NAPTR"
	KindRP    Kind = "RP"
)

// MaxTTL is the largest TTL a resource record can carry (RFC 2181 section 8)
const MaxTTL = math.MaxInt32

// Kinds lists every record type the API supports
var Kinds = []Kind{
	KindSOA, KindNS, KindA, KindAAAA, KindCNAME, KindMX, KindTXT,
	KindSRV, KindPTR, KindDNAME, KindHINFO, KindNAPTR, KindRP,
}

// ParseKind returns the Kind named by s
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", errors.ValidationError(fmt.Sprintf("unknown record type: %s", s))
}

// SOA is the start-of-authority payload
type SOA struct {
	MName   string `xml:"mname>name" json:"mname" validate:"dnsname"`
	RName   string `xml:"rname>name" json:"rname" validate:"dnsname"`
	Serial  uint32 `xml:"serial" json:"serial"`
	Refresh uint32 `xml:"refresh" json:"refresh"`
	Retry   uint32 `xml:"retry" json:"retry"`
	Expire  uint32 `xml:"expire" json:"expire"`
	Minimum uint32 `xml:"minimum" json:"minimum"`
}

// MX is the mail exchanger payload
type MX struct {
	Preference uint16 `xml:"preference" json:"preference"`
	Exchange   string `xml:"exchange>name" json:"exchange" validate:"dnsname"`
}

// SRV is the service locator payload
type SRV struct {
	Priority uint16 `xml:"priority" json:"priority"`
	Weight   uint16 `xml:"weight" json:"weight"`
	Port     uint16 `xml:"port" json:"port"`
	Target   string `xml:"target>name" json:"target" validate:"dnsname"`
}

// HINFO is the host information payload
type HINFO struct {
	Hardware string `xml:"hardware" json:"hardware" validate:"required,character_string"`
	OS       string `xml:"os" json:"os" validate:"required,character_string"`
}

// NAPTR is the naming authority pointer payload
type NAPTR struct {
	Order       uint16 `xml:"order" json:"order"`
	Preference  uint16 `xml:"preference" json:"preference"`
	Flags       string `xml:"flags" json:"flags" validate:"character_string"`
	Service     string `xml:"service" json:"service" validate:"character_string"`
	Regexp      string `xml:"regexp" json:"regexp" validate:"character_string"`
	Replacement string `xml:"replacement>name" json:"replacement" validate:"dnsname"`
}

// RP is the responsible person payload
type RP struct {
	MBox string `xml:"mbox-dname>name" json:"mbox" validate:"dnsname"`
	TXT  string `xml:"txt-dname>name" json:"txt" validate:"dnsname"`
}

// Record is one resource record of a zone. Kind selects which payload is
// meaningful:
//
//	A, AAAA                 Address
//	NS, CNAME, PTR, DNAME   Target
//	TXT                     Texts
//	SOA, MX, SRV, HINFO, NAPTR, RP   the pointer of the same name
//
// ID is zero for records not yet created. TTL is zero when unset, and the
// zone default applies.
type Record struct {
	ID      int    `json:"id,omitempty"`
	Name    string `json:"name"`
	IDNName string `json:"idn_name,omitempty"`
	TTL     int    `json:"ttl,omitempty"`
	Kind    Kind   `json:"type"`

	Address string   `json:"address,omitempty"`
	Target  string   `json:"target,omitempty"`
	Texts   []string `json:"texts,omitempty"`
	SOA     *SOA     `json:"soa,omitempty"`
	MX      *MX      `json:"mx,omitempty"`
	SRV     *SRV     `json:"srv,omitempty"`
	HINFO   *HINFO   `json:"hinfo,omitempty"`
	NAPTR   *NAPTR   `json:"naptr,omitempty"`
	RP      *RP      `json:"rp,omitempty"`
}

func newRecord(kind Kind, name string, ttl int) *Record {
	return &Record{
		Kind:    kind,
		Name:    name,
		IDNName: toUnicode(name),
		TTL:     ttl,
	}
}

func validated(r *Record) (*Record, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// NewSOA creates a validated SOA record
func NewSOA(name string, soa SOA) (*Record, error) {
	r := newRecord(KindSOA, name, 0)
	r.SOA = &soa
	return validated(r)
}

// NewNS creates a validated NS record
func NewNS(name, nameserver string) (*Record, error) {
	r := newRecord(KindNS, name, 0)
	r.Target = nameserver
	return validated(r)
}

// NewA creates a validated A record
func NewA(name, address string, ttl int) (*Record, error) {
	r := newRecord(KindA, name, ttl)
	r.Address = address
	return validated(r)
}

// NewAAAA creates a validated AAAA record
func NewAAAA(name, address string, ttl int) (*Record, error) {
	r := newRecord(KindAAAA, name, ttl)
	r.Address = address
	return validated(r)
}

// NewCNAME creates a validated CNAME record
func NewCNAME(name, target string, ttl int) (*Record, error) {
	r := newRecord(KindCNAME, name, ttl)
	r.Target = target
	return validated(r)
}

// NewMX creates a validated MX record
func NewMX(name string, preference uint16, exchange string, ttl int) (*Record, error) {
	r := newRecord(KindMX, name, ttl)
	r.MX = &MX{Preference: preference, Exchange: exchange}
	return validated(r)
}

// NewTXT creates a validated TXT record with one or more strings
func NewTXT(name string, ttl int, texts ...string) (*Record, error) {
	r := newRecord(KindTXT, name, ttl)
	r.Texts = texts
	return validated(r)
}

// NewSRV creates a validated SRV record
func NewSRV(name string, srv SRV, ttl int) (*Record, error) {
	r := newRecord(KindSRV, name, ttl)
	r.SRV = &srv
	return validated(r)
}

// NewPTR creates a validated PTR record
func NewPTR(name, target string, ttl int) (*Record, error) {
	r := newRecord(KindPTR, name, ttl)
	r.Target = target
	return validated(r)
}

// NewDNAME creates a validated DNAME record
func NewDNAME(name, target string, ttl int) (*Record, error) {
	r := newRecord(KindDNAME, name, ttl)
	r.Target = target
	return validated(r)
}

// NewHINFO creates a validated HINFO record
func NewHINFO(name, hardware, os string, ttl int) (*Record, error) {
	r := newRecord(KindHINFO, name, ttl)
	r.HINFO = &HINFO{Hardware: hardware, OS: os}
	return validated(r)
}

// NewNAPTR creates a validated NAPTR record. An empty replacement means ".".
func NewNAPTR(name string, naptr NAPTR, ttl int) (*Record, error) {
	if naptr.Replacement == "" {
		naptr.Replacement = "."
	}
	r := newRecord(KindNAPTR, name, ttl)
	r.NAPTR = &naptr
	return validated(r)
}

// NewRP creates a validated RP record
func NewRP(name, mbox, txt string, ttl int) (*Record, error) {
	r := newRecord(KindRP, name, ttl)
	r.RP = &RP{MBox: mbox, TXT: txt}
	return validated(r)
}

// Validate checks the common fields and that exactly the payload selected
// by Kind is present and well formed.
func (r *Record) Validate() error {
	if r.ID < 0 {
		return errors.ValidationError(fmt.Sprintf("invalid record ID: %d", r.ID))
	}
	if r.TTL < 0 || r.TTL > MaxTTL {
		return errors.ValidationError(fmt.Sprintf("invalid TTL: %d", r.TTL))
	}
	if err := validation.ValidateNamedVar(r.Name, "name", "record_name"); err != nil {
		return err
	}
	if _, err := ParseKind(string(r.Kind)); err != nil {
		return err
	}
	if err := r.checkPayloadShape(); err != nil {
		return err
	}

	switch r.Kind {
	case KindA:
		return validation.ValidateNamedVar(r.Address, "address", "ipv4_address")
	case KindAAAA:
		return validation.ValidateNamedVar(r.Address, "address", "ipv6")
	case KindNS, KindCNAME, KindPTR, KindDNAME:
		return validation.ValidateNamedVar(r.Target, "target", "dnsname")
	case KindTXT:
		return validation.ValidateNamedVar(r.Texts, "texts", "min=1,dive,character_string")
	case KindSOA:
		return validation.ValidateStruct(r.SOA)
	case KindMX:
		return validation.ValidateStruct(r.MX)
	case KindSRV:
		return validation.ValidateStruct(r.SRV)
	case KindHINFO:
		return validation.ValidateStruct(r.HINFO)
	case KindNAPTR:
		return validation.ValidateStruct(r.NAPTR)
	case KindRP:
		return validation.ValidateStruct(r.RP)
	}
	return nil
}

func (r *Record) checkPayloadShape() error {
	present := map[string]bool{
		"address": r.Address != "",
		"target":  r.Target != "",
		"texts":   len(r.Texts) > 0,
		"soa":     r.SOA != nil,
		"mx":      r.MX != nil,
		"srv":     r.SRV != nil,
		"hinfo":   r.HINFO != nil,
		"naptr":   r.NAPTR != nil,
		"rp":      r.RP != nil,
	}

	want := payloadField(r.Kind)
	if !present[want] {
		return errors.ValidationError(fmt.Sprintf("%s record requires %s", r.Kind, want))
	}
	for field, set := range present {
		if set && field != want {
			return errors.ValidationError(fmt.Sprintf("%s record must not carry %s", r.Kind, field))
		}
	}
	return nil
}

func payloadField(kind Kind) string {
	switch kind {
	case KindA, KindAAAA:
		return "address"
	case KindNS, KindCNAME, KindPTR, KindDNAME:
		return "target"
	case KindTXT:
		return "texts"
	case KindSOA:
		return "soa"
	case KindMX:
		return "mx"
	case KindSRV:
		return "srv"
	case KindHINFO:
		return "hinfo"
	case KindNAPTR:
		return "naptr"
	default:
		return "rp"
	}
}

// Value returns the payload as a single presentation-format string
func (r *Record) Value() string {
	rr, err := r.ToRR("")
	if err != nil {
		return ""
	}
	return rdata(rr)
}
