package models

import (
	"encoding/xml"
	"fmt"
	"strconv"

	"nic-dns/internal/common/errors"
	"nic-dns/internal/common/validation"
)

// recordXML is the <rr> element of the DNS-master API. Field order is the
// element order the API expects.
type recordXML struct {
	ID      string   `xml:"id,attr,omitempty"`
	Name    string   `xml:"name"`
	IDNName *string  `xml:"idn-name"`
	TTL     string   `xml:"ttl,omitempty"`
	Type    string   `xml:"type"`
	SOA     *SOA     `xml:"soa"`
	NS      *nameXML `xml:"ns,omitempty"`
	A       string   `xml:"a,omitempty"`
	AAAA    string   `xml:"aaaa,omitempty"`
	CNAME   *nameXML `xml:"cname,omitempty"`
	MX      *MX      `xml:"mx"`
	TXT     *txtXML  `xml:"txt,omitempty"`
	SRV     *SRV     `xml:"srv"`
	PTR     *nameXML `xml:"ptr,omitempty"`
	DNAME   *nameXML `xml:"dname,omitempty"`
	HINFO   *HINFO   `xml:"hinfo"`
	NAPTR   *NAPTR   `xml:"naptr"`
	RP      *RP      `xml:"rp"`
}

// nameXML wraps a domain name in its <name> child. Only the element matching
// the record type is set, so the others stay out of the output.
type nameXML struct {
	Name string `xml:"name"`
}

type txtXML struct {
	Strings []string `xml:"string"`
}

func (n *nameXML) value() string {
	if n == nil {
		return ""
	}
	return n.Name
}

// MarshalXML writes the record as an <rr> element. idn-name is never sent.
func (r Record) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	w := recordXML{
		Name: r.Name,
		Type: string(r.Kind),
	}
	if r.ID != 0 {
		w.ID = strconv.Itoa(r.ID)
	}
	if r.TTL != 0 {
		w.TTL = strconv.Itoa(r.TTL)
	}

	switch r.Kind {
	case KindA:
		w.A = r.Address
	case KindAAAA:
		w.AAAA = r.Address
	case KindNS:
		w.NS = &nameXML{Name: r.Target}
	case KindCNAME:
		w.CNAME = &nameXML{Name: r.Target}
	case KindPTR:
		w.PTR = &nameXML{Name: r.Target}
	case KindDNAME:
		w.DNAME = &nameXML{Name: r.Target}
	case KindTXT:
		w.TXT = &txtXML{Strings: r.Texts}
	case KindSOA:
		w.SOA = r.SOA
	case KindMX:
		w.MX = r.MX
	case KindSRV:
		w.SRV = r.SRV
	case KindHINFO:
		w.HINFO = r.HINFO
	case KindNAPTR:
		w.NAPTR = r.NAPTR
	case KindRP:
		w.RP = r.RP
	default:
		return errors.ValidationError(fmt.Sprintf("unknown record type: %s", r.Kind))
	}

	start.Name = xml.Name{Local: "rr"}
	start.Attr = nil
	return e.EncodeElement(w, start)
}

// UnmarshalXML reads an <rr> element. A missing idn-name is derived from
// the punycode name.
func (r *Record) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var w recordXML
	if err := d.DecodeElement(&w, &start); err != nil {
		return err
	}

	rec, err := w.record()
	if err != nil {
		return err
	}
	*r = *rec
	return nil
}

func (w *recordXML) record() (*Record, error) {
	kind, err := ParseKind(w.Type)
	if err != nil {
		return nil, err
	}

	r := &Record{Kind: kind, Name: w.Name}

	if w.ID != "" {
		id, err := strconv.Atoi(w.ID)
		if err != nil || id <= 0 {
			return nil, errors.ValidationError(fmt.Sprintf("invalid record ID: %q", w.ID))
		}
		r.ID = id
	}
	if w.TTL != "" {
		ttl, err := strconv.Atoi(w.TTL)
		if err != nil || ttl <= 0 || ttl > MaxTTL {
			return nil, errors.ValidationError(fmt.Sprintf("invalid TTL: %q", w.TTL))
		}
		r.TTL = ttl
	}
	if !validation.IsASCII(w.Name) {
		return nil, errors.ValidationError(fmt.Sprintf("record name %q is not ASCII", w.Name))
	}
	if w.IDNName != nil {
		r.IDNName = *w.IDNName
	} else {
		r.IDNName = toUnicode(w.Name)
	}

	missing := false
	switch kind {
	case KindA:
		r.Address, missing = w.A, w.A == ""
	case KindAAAA:
		r.Address, missing = w.AAAA, w.AAAA == ""
	case KindNS:
		r.Target = w.NS.value()
		missing = r.Target == ""
	case KindCNAME:
		r.Target = w.CNAME.value()
		missing = r.Target == ""
	case KindPTR:
		r.Target = w.PTR.value()
		missing = r.Target == ""
	case KindDNAME:
		r.Target = w.DNAME.value()
		missing = r.Target == ""
	case KindTXT:
		if w.TXT != nil {
			r.Texts = w.TXT.Strings
		}
		missing = len(r.Texts) == 0
	case KindSOA:
		r.SOA, missing = w.SOA, w.SOA == nil
	case KindMX:
		r.MX, missing = w.MX, w.MX == nil
	case KindSRV:
		r.SRV, missing = w.SRV, w.SRV == nil
	case KindHINFO:
		r.HINFO, missing = w.HINFO, w.HINFO == nil
	case KindNAPTR:
		r.NAPTR, missing = w.NAPTR, w.NAPTR == nil
	case KindRP:
		r.RP, missing = w.RP, w.RP == nil
	}
	if missing {
		return nil, errors.ValidationError(fmt.Sprintf("%s record has no %s data", kind, payloadField(kind)))
	}

	return r, nil
}
