package dnsapi

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"nic-dns/internal/common/cache"
	"nic-dns/internal/common/errors"
	commonhttp "nic-dns/internal/common/http"
	"nic-dns/internal/common/logging"
	"nic-dns/internal/models"
)

const (
	xmlHeader      = `<?xml version="1.0" encoding="UTF-8" ?>`
	xmlContentType = "text/xml; charset=utf-8"

	servicesCacheKey = "services"
	zonesCachePrefix = "zones:"
)

// Doer sends DNS-master requests. *Dispatcher implements it.
type Doer interface {
	Do(ctx context.Context, req *Request) (*commonhttp.Response, error)
}

// Client exposes the DNS-master operations. Empty service or zone arguments
// fall back to the configured defaults. Names are punycode.
type Client struct {
	dispatcher     Doer
	defaultService string
	defaultZone    string
	cache          cache.Cache
	cacheTTL       time.Duration
	logger         logging.Logger
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithDefaultService sets the service used when none is given
func WithDefaultService(service string) ClientOption {
	return func(c *Client) {
		c.defaultService = service
	}
}

// WithDefaultZone sets the zone used when none is given
func WithDefaultZone(zone string) ClientOption {
	return func(c *Client) {
		c.defaultZone = zone
	}
}

// WithCache caches service and zone listings for ttl. Mutations invalidate
// the zone listings.
func WithCache(c cache.Cache, ttl time.Duration) ClientOption {
	return func(cl *Client) {
		cl.cache = c
		cl.cacheTTL = ttl
	}
}

// WithClientLogger sets the logger
func WithClientLogger(logger logging.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a Client on top of dispatcher
func NewClient(dispatcher Doer, opts ...ClientOption) *Client {
	c := &Client{dispatcher: dispatcher}
	for _, opt := range opts {
		opt(c)
	}
	if c.cache == nil {
		c.cache = cache.NoopCache{}
	}
	if c.logger == nil {
		c.logger = logging.GetGlobalLogger()
	}
	return c
}

// DefaultService returns the configured default service
func (c *Client) DefaultService() string { return c.defaultService }

// DefaultZone returns the configured default zone
func (c *Client) DefaultZone() string { return c.defaultZone }

type servicesData struct {
	Services []models.Service `xml:"service"`
}

type zonesData struct {
	Zones []models.Zone `xml:"zone"`
}

type recordsData struct {
	Zones []struct {
		Name    string          `xml:"name,attr"`
		Records []models.Record `xml:"rr"`
	} `xml:"zone"`
}

type addRequest struct {
	XMLName xml.Name         `xml:"request"`
	Records []*models.Record `xml:"rr-list>rr"`
}

// Services lists the services of the account
func (c *Client) Services(ctx context.Context) ([]models.Service, error) {
	if cached, ok := c.cache.Get(ctx, servicesCacheKey); ok {
		if services, ok := cached.([]models.Service); ok {
			return slices.Clone(services), nil
		}
	}

	resp, err := c.dispatcher.Do(ctx, &Request{Method: http.MethodGet, Path: "services"})
	if err != nil {
		return nil, err
	}

	data, err := decodeData[servicesData](resp)
	if err != nil {
		return nil, err
	}

	c.store(ctx, servicesCacheKey, slices.Clone(data.Services))
	return data.Services, nil
}

// Zones lists the zones of service. With no service and no default service
// it lists every zone of the account.
func (c *Client) Zones(ctx context.Context, service string) ([]models.Zone, error) {
	if service == "" {
		service = c.defaultService
	}

	key := zonesCachePrefix + service
	if cached, ok := c.cache.Get(ctx, key); ok {
		if zones, ok := cached.([]models.Zone); ok {
			return slices.Clone(zones), nil
		}
	}

	path := "zones"
	if service != "" {
		path = "services/" + url.PathEscape(service) + "/zones"
	}

	resp, err := c.dispatcher.Do(ctx, &Request{Method: http.MethodGet, Path: path})
	if err != nil {
		return nil, err
	}

	data, err := decodeData[zonesData](resp)
	if err != nil {
		return nil, err
	}

	c.store(ctx, key, slices.Clone(data.Zones))
	return data.Zones, nil
}

// ZoneFile returns the zone in BIND master file format
func (c *Client) ZoneFile(ctx context.Context, service, zone string) (string, error) {
	path, err := c.zonePath(service, zone)
	if err != nil {
		return "", err
	}

	resp, err := c.dispatcher.Do(ctx, &Request{Method: http.MethodGet, Path: path})
	if err != nil {
		return "", err
	}
	return string(resp.Body), nil
}

// Records lists the records of zone
func (c *Client) Records(ctx context.Context, service, zone string) ([]models.Record, error) {
	path, err := c.zonePath(service, zone)
	if err != nil {
		return nil, err
	}

	resp, err := c.dispatcher.Do(ctx, &Request{Method: http.MethodGet, Path: path + "/records"})
	if err != nil {
		return nil, err
	}

	return zoneRecords(resp, c.zoneOrDefault(zone))
}

// AddRecords creates records in zone. The changes stay pending until Commit.
// The created records are returned with their IDs.
func (c *Client) AddRecords(ctx context.Context, service, zone string, records ...*models.Record) ([]models.Record, error) {
	if len(records) == 0 {
		return nil, errors.ValidationError("at least one record is required")
	}
	for i, r := range records {
		if r == nil {
			return nil, errors.ValidationError(fmt.Sprintf("record %d is nil", i))
		}
		if err := r.Validate(); err != nil {
			return nil, err
		}
	}

	path, err := c.zonePath(service, zone)
	if err != nil {
		return nil, err
	}

	payload, err := xml.Marshal(addRequest{Records: records})
	if err != nil {
		return nil, errors.InternalError("failed to encode records", err)
	}
	body := append([]byte(xmlHeader), payload...)

	logger := c.logger.WithContext(ctx)
	logger.Debug("Adding records",
		logging.Field{Key: "zone", Value: c.zoneOrDefault(zone)},
		logging.Field{Key: "body", Value: string(body)},
	)

	resp, err := c.dispatcher.Do(ctx, &Request{
		Method:      http.MethodPut,
		Path:        path + "/records",
		Body:        body,
		ContentType: xmlContentType,
	})
	if err != nil {
		return nil, err
	}
	c.invalidateZones(ctx)

	created, err := zoneRecords(resp, c.zoneOrDefault(zone))
	if err != nil {
		return nil, err
	}

	logger.Info("Added records",
		logging.Field{Key: "zone", Value: c.zoneOrDefault(zone)},
		logging.Field{Key: "count", Value: len(created)},
	)
	return created, nil
}

// DeleteRecord deletes the record with the given ID. The change stays
// pending until Commit.
func (c *Client) DeleteRecord(ctx context.Context, service, zone string, id int) error {
	if id <= 0 {
		return errors.ValidationError(fmt.Sprintf("invalid record ID: %d", id))
	}

	path, err := c.zonePath(service, zone)
	if err != nil {
		return err
	}

	if _, err := c.dispatcher.Do(ctx, &Request{
		Method: http.MethodDelete,
		Path:   path + "/records/" + strconv.Itoa(id),
	}); err != nil {
		return err
	}
	c.invalidateZones(ctx)

	c.logger.WithContext(ctx).Info("Record deleted",
		logging.Field{Key: "zone", Value: c.zoneOrDefault(zone)},
		logging.Field{Key: "id", Value: id},
	)
	return nil
}

// Commit publishes the pending changes of zone
func (c *Client) Commit(ctx context.Context, service, zone string) error {
	if err := c.post(ctx, service, zone, "commit"); err != nil {
		return err
	}
	c.logger.WithContext(ctx).Info("Changes committed", logging.Field{Key: "zone", Value: c.zoneOrDefault(zone)})
	return nil
}

// Rollback discards the pending changes of zone
func (c *Client) Rollback(ctx context.Context, service, zone string) error {
	if err := c.post(ctx, service, zone, "rollback"); err != nil {
		return err
	}
	c.logger.WithContext(ctx).Info("Changes rolled back", logging.Field{Key: "zone", Value: c.zoneOrDefault(zone)})
	return nil
}

func (c *Client) post(ctx context.Context, service, zone, action string) error {
	path, err := c.zonePath(service, zone)
	if err != nil {
		return err
	}

	if _, err := c.dispatcher.Do(ctx, &Request{Method: http.MethodPost, Path: path + "/" + action}); err != nil {
		return err
	}
	c.invalidateZones(ctx)
	return nil
}

func (c *Client) zoneOrDefault(zone string) string {
	if zone == "" {
		return c.defaultZone
	}
	return zone
}

func (c *Client) zonePath(service, zone string) (string, error) {
	if service == "" {
		service = c.defaultService
	}
	zone = c.zoneOrDefault(zone)

	if service == "" {
		return "", errors.ValidationError("service is required")
	}
	if zone == "" {
		return "", errors.ValidationError("zone is required")
	}
	return "services/" + url.PathEscape(service) + "/zones/" + url.PathEscape(zone), nil
}

func (c *Client) store(ctx context.Context, key string, value interface{}) {
	if err := c.cache.Set(ctx, key, value, c.cacheTTL); err != nil {
		c.logger.Warn("Failed to cache listing", logging.Field{Key: "key", Value: key}, logging.Err(err))
	}
}

func (c *Client) invalidateZones(ctx context.Context) {
	if err := c.cache.DeletePrefix(ctx, zonesCachePrefix); err != nil {
		c.logger.Warn("Failed to invalidate zone cache", logging.Err(err))
	}
}

// zoneRecords extracts the records of the <zone> named zone
func zoneRecords(resp *commonhttp.Response, zone string) ([]models.Record, error) {
	data, err := decodeData[recordsData](resp)
	if err != nil {
		return nil, err
	}

	for _, z := range data.Zones {
		if sameZone(z.Name, zone) {
			return z.Records, nil
		}
	}
	return nil, errors.MalformedResponseError(fmt.Sprintf("response has no records for zone %s", zone), nil).
		WithResponse(resp.StatusCode, resp.Body)
}

func sameZone(a, b string) bool {
	return strings.EqualFold(strings.TrimSuffix(a, "."), strings.TrimSuffix(b, "."))
}
