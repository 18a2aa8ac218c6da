// Package models holds the DNS-master entities: services, zones and the
// resource records inside a zone.
package models

import (
	"golang.org/x/net/idna"
)

// Service is a DNS-hosting contract of the account. Zones belong to a service.
type Service struct {
	Admin        string `xml:"admin,attr" json:"admin"`
	DomainsLimit int    `xml:"domains-limit,attr" json:"domains_limit"`
	DomainsNum   int    `xml:"domains-num,attr" json:"domains_num"`
	Enable       bool   `xml:"enable,attr" json:"enable"`
	HasPrimary   bool   `xml:"has-primary,attr" json:"has_primary"`
	Name         string `xml:"name,attr" json:"name"`
	Payer        string `xml:"payer,attr" json:"payer"`
	Tariff       string `xml:"tariff,attr" json:"tariff"`
	// RRLimit and RRNum are only reported for some tariffs
	RRLimit *int `xml:"rr-limit,attr" json:"rr_limit,omitempty"`
	RRNum   *int `xml:"rr-num,attr" json:"rr_num,omitempty"`
}

// Zone is a DNS zone hosted under a service.
type Zone struct {
	Admin      string `xml:"admin,attr" json:"admin"`
	Enable     bool   `xml:"enable,attr" json:"enable"`
	HasChanges bool   `xml:"has-changes,attr" json:"has_changes"`
	HasPrimary bool   `xml:"has-primary,attr" json:"has_primary"`
	ID         int    `xml:"id,attr" json:"id"`
	IDNName    string `xml:"idn-name,attr" json:"idn_name"`
	Name       string `xml:"name,attr" json:"name"`
	Payer      string `xml:"payer,attr" json:"payer"`
	Service    string `xml:"service,attr" json:"service"`
}

// DisplayName returns the Unicode form of the zone name
func (z Zone) DisplayName() string {
	if z.IDNName != "" {
		return z.IDNName
	}
	return toUnicode(z.Name)
}

// toUnicode converts punycode labels for display and returns name unchanged
// when it is not valid IDNA.
func toUnicode(name string) string {
	if name == "" {
		return name
	}
	unicode, err := idna.ToUnicode(name)
	if err != nil {
		return name
	}
	return unicode
}

// ToASCII converts a possibly internationalized name to the punycode form the
// API expects.
func ToASCII(name string) (string, error) {
	if name == "" || name == "@" {
		return name, nil
	}
	return idna.ToASCII(name)
}
