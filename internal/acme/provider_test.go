package acme

import (
	"context"
	"testing"

	"github.com/go-acme/lego/v4/challenge/dns01"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nic-dns/internal/common/errors"
	"nic-dns/internal/models"
)

// fakeZones keeps records per zone and counts commits.
type fakeZones struct {
	zones   []models.Zone
	records map[string][]models.Record
	commits map[string]int
	nextID  int
	addErr  error
}

func newFakeZones(names ...string) *fakeZones {
	f := &fakeZones{
		records: make(map[string][]models.Record),
		commits: make(map[string]int),
		nextID:  100,
	}
	for _, n := range names {
		f.zones = append(f.zones, models.Zone{Name: n, Service: "svc"})
	}
	return f
}

func (f *fakeZones) Zones(ctx context.Context, service string) ([]models.Zone, error) {
	return f.zones, nil
}

func (f *fakeZones) Records(ctx context.Context, service, zone string) ([]models.Record, error) {
	return f.records[zone], nil
}

func (f *fakeZones) AddRecords(ctx context.Context, service, zone string, records ...*models.Record) ([]models.Record, error) {
	if f.addErr != nil {
		return nil, f.addErr
	}
	var created []models.Record
	for _, r := range records {
		c := *r
		f.nextID++
		c.ID = f.nextID
		f.records[zone] = append(f.records[zone], c)
		created = append(created, c)
	}
	return created, nil
}

func (f *fakeZones) DeleteRecord(ctx context.Context, service, zone string, id int) error {
	kept := f.records[zone][:0]
	for _, r := range f.records[zone] {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	f.records[zone] = kept
	return nil
}

func (f *fakeZones) Commit(ctx context.Context, service, zone string) error {
	f.commits[zone]++
	return nil
}

func newProvider(t *testing.T, api RecordAPI, zone string) *DNSProvider {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Zone = zone
	p, err := NewDNSProvider(api, cfg, nil)
	require.NoError(t, err)
	return p
}

func TestNewDNSProvider_Validation(t *testing.T) {
	_, err := NewDNSProvider(nil, DefaultConfig(), nil)
	assert.True(t, errors.IsType(err, errors.ErrTypeConfig))

	cfg := DefaultConfig()
	cfg.TTL = 0
	_, err = NewDNSProvider(newFakeZones(), cfg, nil)
	assert.True(t, errors.IsType(err, errors.ErrTypeConfig))
}

func TestDNSProvider_PresentAndCleanUp(t *testing.T) {
	api := newFakeZones("example.com", "sub.example.com")
	p := newProvider(t, api, "")

	require.NoError(t, p.Present("www.sub.example.com", "token", "key-auth"))

	_, value := dns01.GetRecord("www.sub.example.com", "key-auth")
	records := api.records["sub.example.com"]
	require.Len(t, records, 1)
	assert.Equal(t, "_acme-challenge.www", records[0].Name)
	assert.Equal(t, models.KindTXT, records[0].Kind)
	assert.Equal(t, 60, records[0].TTL)
	assert.Equal(t, []string{value}, records[0].Texts)
	assert.Equal(t, 1, api.commits["sub.example.com"])
	assert.Empty(t, api.records["example.com"])

	require.NoError(t, p.CleanUp("www.sub.example.com", "token", "key-auth"))
	assert.Empty(t, api.records["sub.example.com"])
	assert.Equal(t, 2, api.commits["sub.example.com"])
}

func TestDNSProvider_ApexDomain(t *testing.T) {
	api := newFakeZones("example.com")
	p := newProvider(t, api, "")

	require.NoError(t, p.Present("example.com", "token", "key-auth"))
	require.Len(t, api.records["example.com"], 1)
	assert.Equal(t, "_acme-challenge", api.records["example.com"][0].Name)
}

func TestDNSProvider_CleanUpKeepsOtherValues(t *testing.T) {
	api := newFakeZones("example.com")
	p := newProvider(t, api, "example.com")

	require.NoError(t, p.Present("example.com", "t1", "first"))
	require.NoError(t, p.Present("example.com", "t2", "second"))
	require.NoError(t, p.CleanUp("example.com", "t1", "first"))

	_, second := dns01.GetRecord("example.com", "second")
	records := api.records["example.com"]
	require.Len(t, records, 1)
	assert.Equal(t, []string{second}, records[0].Texts)
}

func TestDNSProvider_CleanUpWithoutRecordSkipsCommit(t *testing.T) {
	api := newFakeZones("example.com")
	p := newProvider(t, api, "")

	require.NoError(t, p.CleanUp("example.com", "token", "key-auth"))
	assert.Zero(t, api.commits["example.com"])
}

func TestDNSProvider_ZoneErrors(t *testing.T) {
	api := newFakeZones("example.com")

	err := newProvider(t, api, "").Present("example.org", "token", "key-auth")
	assert.True(t, errors.IsType(err, errors.ErrTypeNotFound))

	err = newProvider(t, api, "example.com").Present("example.org", "token", "key-auth")
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))
}

func TestDNSProvider_AddFailureSkipsCommit(t *testing.T) {
	api := newFakeZones("example.com")
	api.addErr = errors.APIError(errors.CodeInvalidRecord, "invalid record")

	err := newProvider(t, api, "").Present("example.com", "token", "key-auth")
	assert.True(t, errors.IsInvalidRecord(err))
	assert.Zero(t, api.commits["example.com"])
}

func TestDNSProvider_Timeout(t *testing.T) {
	p := newProvider(t, newFakeZones(), "")
	timeout, interval := p.Timeout()
	assert.Equal(t, DefaultConfig().PropagationTimeout, timeout)
	assert.Equal(t, dns01.DefaultPollingInterval, interval)
}
