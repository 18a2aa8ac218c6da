// Package acme solves ACME DNS-01 challenges for zones hosted on NIC.RU. The
// provider plugs into lego as a challenge.Provider.
package acme

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-acme/lego/v4/challenge"
	"github.com/go-acme/lego/v4/challenge/dns01"
	"nic-dns/internal/common/errors"
	"nic-dns/internal/common/logging"
	"nic-dns/internal/models"
)

// RecordAPI is the part of the DNS-master client the provider needs.
// *dnsapi.Client implements it.
type RecordAPI interface {
	Zones(ctx context.Context, service string) ([]models.Zone, error)
	Records(ctx context.Context, service, zone string) ([]models.Record, error)
	AddRecords(ctx context.Context, service, zone string, records ...*models.Record) ([]models.Record, error)
	DeleteRecord(ctx context.Context, service, zone string, id int) error
	Commit(ctx context.Context, service, zone string) error
}

// Config configures the provider
type Config struct {
	// Service holding the zones; empty uses the client default
	Service string
	// Zone to write challenges to; empty picks the longest hosted zone
	// that contains the challenge name
	Zone               string
	TTL                int
	PropagationTimeout time.Duration
	PollingInterval    time.Duration
	// APITimeout bounds the DNS-master calls of one Present or CleanUp
	APITimeout time.Duration
}

// DefaultConfig returns the provider defaults
func DefaultConfig() Config {
	return Config{
		TTL:                60,
		PropagationTimeout: 10 * time.Minute,
		PollingInterval:    dns01.DefaultPollingInterval,
		APITimeout:         time.Minute,
	}
}

// DNSProvider publishes and removes _acme-challenge TXT records
type DNSProvider struct {
	api    RecordAPI
	config Config
	logger logging.Logger
}

var (
	_ challenge.Provider        = (*DNSProvider)(nil)
	_ challenge.ProviderTimeout = (*DNSProvider)(nil)
)

// NewDNSProvider creates a provider writing through api
func NewDNSProvider(api RecordAPI, config Config, logger logging.Logger) (*DNSProvider, error) {
	if api == nil {
		return nil, errors.ConfigError("acme: DNS-master client is required")
	}
	if config.TTL <= 0 {
		return nil, errors.ConfigError(fmt.Sprintf("acme: invalid TTL %d", config.TTL))
	}
	if config.APITimeout <= 0 {
		config.APITimeout = DefaultConfig().APITimeout
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &DNSProvider{api: api, config: config, logger: logger}, nil
}

// Present creates the challenge TXT record and commits the zone
func (p *DNSProvider) Present(domain, token, keyAuth string) error {
	fqdn, value := dns01.GetRecord(domain, keyAuth)
	return p.PresentRecord(context.Background(), fqdn, value)
}

// CleanUp deletes the challenge TXT records carrying keyAuth's value and
// commits the zone. Nothing is committed when no record matches.
func (p *DNSProvider) CleanUp(domain, token, keyAuth string) error {
	fqdn, value := dns01.GetRecord(domain, keyAuth)
	return p.CleanUpRecord(context.Background(), fqdn, value)
}

// PresentRecord publishes value as a TXT record at fqdn. It is the form
// lego's exec provider hands to hook programs.
func (p *DNSProvider) PresentRecord(ctx context.Context, fqdn, value string) error {
	ctx, cancel := context.WithTimeout(ctx, p.config.APITimeout)
	defer cancel()

	zone, name, err := p.locate(ctx, fqdn)
	if err != nil {
		return err
	}

	record, err := models.NewTXT(name, p.config.TTL, value)
	if err != nil {
		return err
	}
	if _, err := p.api.AddRecords(ctx, p.config.Service, zone, record); err != nil {
		return fmt.Errorf("acme: adding challenge record for %s: %w", fqdn, err)
	}
	if err := p.api.Commit(ctx, p.config.Service, zone); err != nil {
		return fmt.Errorf("acme: committing %s: %w", zone, err)
	}

	p.logger.Info("ACME challenge published",
		logging.Field{Key: "fqdn", Value: fqdn},
		logging.Field{Key: "zone", Value: zone},
		logging.Field{Key: "record", Value: name},
	)
	return nil
}

// CleanUpRecord deletes the TXT records at fqdn that carry value
func (p *DNSProvider) CleanUpRecord(ctx context.Context, fqdn, value string) error {
	ctx, cancel := context.WithTimeout(ctx, p.config.APITimeout)
	defer cancel()

	zone, name, err := p.locate(ctx, fqdn)
	if err != nil {
		return err
	}

	records, err := p.api.Records(ctx, p.config.Service, zone)
	if err != nil {
		return fmt.Errorf("acme: listing %s: %w", zone, err)
	}

	deleted := 0
	for _, r := range records {
		if r.Kind != models.KindTXT || !strings.EqualFold(r.Name, name) || !contains(r.Texts, value) {
			continue
		}
		if err := p.api.DeleteRecord(ctx, p.config.Service, zone, r.ID); err != nil {
			return fmt.Errorf("acme: deleting challenge record %d: %w", r.ID, err)
		}
		deleted++
	}

	if deleted == 0 {
		p.logger.Warn("No ACME challenge record to clean up",
			logging.Field{Key: "fqdn", Value: fqdn},
			logging.Field{Key: "zone", Value: zone},
		)
		return nil
	}

	if err := p.api.Commit(ctx, p.config.Service, zone); err != nil {
		return fmt.Errorf("acme: committing %s: %w", zone, err)
	}
	p.logger.Info("ACME challenge removed",
		logging.Field{Key: "fqdn", Value: fqdn},
		logging.Field{Key: "zone", Value: zone},
		logging.Field{Key: "deleted", Value: deleted},
	)
	return nil
}

// Timeout returns how long lego waits for the record to propagate
func (p *DNSProvider) Timeout() (timeout, interval time.Duration) {
	return p.config.PropagationTimeout, p.config.PollingInterval
}

// locate returns the zone hosting fqdn and the record name relative to it
func (p *DNSProvider) locate(ctx context.Context, fqdn string) (zone, name string, err error) {
	host, err := models.ToASCII(strings.ToLower(dns01.UnFqdn(fqdn)))
	if err != nil {
		return "", "", errors.ValidationError(fmt.Sprintf("acme: invalid domain %q: %v", fqdn, err))
	}

	zone = p.config.Zone
	if zone == "" {
		zones, err := p.api.Zones(ctx, p.config.Service)
		if err != nil {
			return "", "", fmt.Errorf("acme: listing zones: %w", err)
		}
		for _, z := range zones {
			candidate := strings.ToLower(strings.TrimSuffix(z.Name, "."))
			if inZone(host, candidate) && len(candidate) > len(zone) {
				zone = candidate
			}
		}
		if zone == "" {
			return "", "", errors.NotFoundError(fmt.Sprintf("zone for %s", host))
		}
	}

	zone = strings.ToLower(strings.TrimSuffix(zone, "."))
	if !inZone(host, zone) {
		return "", "", errors.ValidationError(fmt.Sprintf("acme: %s is not inside zone %s", host, zone))
	}

	if host == zone {
		return zone, "@", nil
	}
	return zone, strings.TrimSuffix(host, "."+zone), nil
}

func inZone(host, zone string) bool {
	return host == zone || strings.HasSuffix(host, "."+zone)
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
