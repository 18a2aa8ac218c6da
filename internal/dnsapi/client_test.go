package dnsapi

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nic-dns/internal/common/cache"
	"nic-dns/internal/common/errors"
	"nic-dns/internal/models"
)

const zonesBody = `<?xml version="1.0" encoding="UTF-8" ?>
<response>
  <status>success</status>
  <data>
    <zone admin="123/NIC-REG" enable="true" has-changes="false" has-primary="true" id="228095" idn-name="example.com" name="example.com" payer="123/NIC-REG" service="testservice"/>
    <zone admin="123/NIC-REG" enable="true" has-changes="true" has-primary="true" id="228096" idn-name="пример.рф" name="xn--e1afmkfd.xn--p1ai" payer="123/NIC-REG" service="testservice"/>
  </data>
</response>`

const recordsBody = `<?xml version="1.0" encoding="UTF-8" ?>
<response>
  <status>success</status>
  <data>
    <zone admin="123/NIC-REG" has-changes="false" id="228095" idn-name="example.com" name="example.com" service="testservice">
      <rr id="210074"><name>@</name><idn-name>@</idn-name><type>SOA</type><soa><mname><name>ns3-l2.nic.ru.</name><idn-name>ns3-l2.nic.ru.</idn-name></mname><rname><name>dns.nic.ru.</name><idn-name>dns.nic.ru.</idn-name></rname><serial>2011112002</serial><refresh>1440</refresh><retry>3600</retry><expire>2592000</expire><minimum>600</minimum></soa></rr>
      <rr id="210076"><name>www</name><idn-name>www</idn-name><ttl>600</ttl><type>A</type><a>192.0.2.10</a></rr>
    </zone>
  </data>
</response>`

const addedBody = `<?xml version="1.0" encoding="UTF-8" ?>
<response>
  <status>success</status>
  <data>
    <zone admin="123/NIC-REG" has-changes="true" id="228095" idn-name="example.com" name="example.com" service="testservice">
      <rr id="210080"><name>_acme-challenge</name><idn-name>_acme-challenge</idn-name><ttl>60</ttl><type>TXT</type><txt><string>token</string></txt></rr>
    </zone>
  </data>
</response>`

const okBody = `<?xml version="1.0" encoding="UTF-8" ?>
<response><status>success</status></response>`

const zoneFileText = `$ORIGIN example.com.
@	IN	SOA	ns3-l2.nic.ru. dns.nic.ru. 2011112002 1440 3600 2592000 600
www	600	IN	A	192.0.2.10
`

func newFakeNIC(t *testing.T) *apiServer {
	return newAPIServer(t, func(w http.ResponseWriter, call apiCall, n int) {
		p := strings.TrimPrefix(call.path, "/dns-master/")
		switch {
		case call.method == http.MethodGet && p == "services":
			reply(w, http.StatusOK, servicesBody)
		case call.method == http.MethodGet && (p == "zones" || p == "services/testservice/zones"):
			reply(w, http.StatusOK, zonesBody)
		case call.method == http.MethodGet && p == "services/testservice/zones/example.com":
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte(zoneFileText))
		case call.method == http.MethodGet && p == "services/testservice/zones/example.com/records":
			reply(w, http.StatusOK, recordsBody)
		case call.method == http.MethodPut && p == "services/testservice/zones/example.com/records":
			reply(w, http.StatusOK, addedBody)
		case call.method == http.MethodDelete && p == "services/testservice/zones/example.com/records/210080":
			reply(w, http.StatusOK, okBody)
		case call.method == http.MethodPost && (p == "services/testservice/zones/example.com/commit" ||
			p == "services/testservice/zones/example.com/rollback"):
			reply(w, http.StatusOK, okBody)
		case strings.HasPrefix(p, "services/unknown/"):
			reply(w, http.StatusNotFound, errorBody(errors.CodeServiceNotFound, "Service not found"))
		default:
			reply(w, http.StatusNotFound, errorBody(errors.CodeZoneNotFound, "Zone not found"))
		}
	})
}

func newTestClient(s *apiServer, opts ...ClientOption) *Client {
	return NewClient(newTestDispatcher(s, newFakeTokens()), opts...)
}

func TestClient_Services(t *testing.T) {
	s := newFakeNIC(t)

	services, err := newTestClient(s).Services(context.Background())
	require.NoError(t, err)
	require.Len(t, services, 1)
	assert.Equal(t, "testservice", services[0].Name)
	assert.Equal(t, "Secondary L", services[0].Tariff)
	assert.Equal(t, 12, services[0].DomainsLimit)
	assert.True(t, services[0].Enable)
}

func TestClient_Zones(t *testing.T) {
	tests := []struct {
		name           string
		defaultService string
		service        string
		wantPath       string
	}{
		{"account wide", "", "", "/dns-master/zones"},
		{"explicit service", "", "testservice", "/dns-master/services/testservice/zones"},
		{"default service", "testservice", "", "/dns-master/services/testservice/zones"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newFakeNIC(t)
			c := newTestClient(s, WithDefaultService(tt.defaultService))

			zones, err := c.Zones(context.Background(), tt.service)
			require.NoError(t, err)
			require.Len(t, zones, 2)
			assert.Equal(t, "example.com", zones[0].Name)
			assert.Equal(t, 228095, zones[0].ID)
			assert.True(t, zones[1].HasChanges)
			assert.Equal(t, "пример.рф", zones[1].DisplayName())

			calls := s.Calls()
			require.Len(t, calls, 1)
			assert.Equal(t, tt.wantPath, calls[0].path)
		})
	}
}

func TestClient_ZoneFile(t *testing.T) {
	s := newFakeNIC(t)
	c := newTestClient(s, WithDefaultService("testservice"), WithDefaultZone("example.com"))

	text, err := c.ZoneFile(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, zoneFileText, text)

	_, err = c.ZoneFile(context.Background(), "", "missing.com")
	assert.True(t, errors.IsZoneNotFound(err))
}

func TestClient_Records(t *testing.T) {
	s := newFakeNIC(t)
	c := newTestClient(s)

	records, err := c.Records(context.Background(), "testservice", "example.com")
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, models.KindSOA, records[0].Kind)
	require.NotNil(t, records[0].SOA)
	assert.Equal(t, uint32(2011112002), records[0].SOA.Serial)

	assert.Equal(t, 210076, records[1].ID)
	assert.Equal(t, "www", records[1].Name)
	assert.Equal(t, 600, records[1].TTL)
	assert.Equal(t, "192.0.2.10", records[1].Address)
}

func TestClient_RecordsZoneMismatch(t *testing.T) {
	s := newAPIServer(t, func(w http.ResponseWriter, call apiCall, n int) {
		reply(w, http.StatusOK, recordsBody)
	})

	_, err := newTestClient(s).Records(context.Background(), "testservice", "other.com")
	assert.True(t, errors.IsType(err, errors.ErrTypeMalformed))
}

func TestClient_RecordsFailures(t *testing.T) {
	s := newFakeNIC(t)
	c := newTestClient(s)

	_, err := c.Records(context.Background(), "unknown", "example.com")
	assert.True(t, errors.IsServiceNotFound(err))

	_, err = c.Records(context.Background(), "testservice", "missing.com")
	assert.True(t, errors.IsZoneNotFound(err))
}

func TestClient_RequiresServiceAndZone(t *testing.T) {
	s := newFakeNIC(t)
	c := newTestClient(s)
	ctx := context.Background()

	_, err := c.Records(ctx, "", "example.com")
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))

	_, err = c.ZoneFile(ctx, "testservice", "")
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))

	assert.True(t, errors.IsType(c.Commit(ctx, "", ""), errors.ErrTypeValidation))
	assert.Empty(t, s.Calls())
}

func TestClient_AddRecords(t *testing.T) {
	s := newFakeNIC(t)
	c := newTestClient(s, WithDefaultService("testservice"), WithDefaultZone("example.com"))

	record, err := models.NewTXT("_acme-challenge", 60, "token")
	require.NoError(t, err)

	created, err := c.AddRecords(context.Background(), "", "", record)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, 210080, created[0].ID)
	assert.Equal(t, []string{"token"}, created[0].Texts)

	calls := s.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, http.MethodPut, calls[0].method)
	assert.Equal(t, "/dns-master/services/testservice/zones/example.com/records", calls[0].path)
	assert.Equal(t, xmlContentType, calls[0].ctype)
	assert.Equal(t,
		`<?xml version="1.0" encoding="UTF-8" ?><request><rr-list>`+
			`<rr><name>_acme-challenge</name><ttl>60</ttl><type>TXT</type><txt><string>token</string></txt></rr>`+
			`</rr-list></request>`,
		calls[0].body)
}

func TestClient_AddRecordsValidation(t *testing.T) {
	s := newFakeNIC(t)
	c := newTestClient(s, WithDefaultService("testservice"), WithDefaultZone("example.com"))
	ctx := context.Background()

	_, err := c.AddRecords(ctx, "", "")
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))

	_, err = c.AddRecords(ctx, "", "", nil)
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))

	_, err = c.AddRecords(ctx, "", "", &models.Record{Name: "www", Kind: models.KindA, Address: "not-an-ip"})
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))

	assert.Empty(t, s.Calls())
}

func TestClient_DeleteCommitRollback(t *testing.T) {
	s := newFakeNIC(t)
	c := newTestClient(s, WithDefaultService("testservice"), WithDefaultZone("example.com"))
	ctx := context.Background()

	require.NoError(t, c.DeleteRecord(ctx, "", "", 210080))
	require.NoError(t, c.Commit(ctx, "", ""))
	require.NoError(t, c.Rollback(ctx, "testservice", "example.com"))

	calls := s.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, http.MethodDelete, calls[0].method)
	assert.Equal(t, "/dns-master/services/testservice/zones/example.com/records/210080", calls[0].path)
	assert.Equal(t, http.MethodPost, calls[1].method)
	assert.Equal(t, "/dns-master/services/testservice/zones/example.com/commit", calls[1].path)
	assert.Equal(t, "/dns-master/services/testservice/zones/example.com/rollback", calls[2].path)

	err := c.DeleteRecord(ctx, "", "", 0)
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))
	assert.Len(t, s.Calls(), 3)
}

func TestClient_EscapesPathSegments(t *testing.T) {
	s := newFakeNIC(t)
	c := newTestClient(s)

	_, err := c.Records(context.Background(), "my service", "example.com")
	require.Error(t, err)

	calls := s.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "/dns-master/services/my%20service/zones/example.com/records", calls[0].path)
}

func TestClient_CachesListings(t *testing.T) {
	s := newFakeNIC(t)
	c := newTestClient(s,
		WithDefaultService("testservice"),
		WithDefaultZone("example.com"),
		WithCache(cache.NewLocalCache(time.Minute, time.Minute), time.Minute),
	)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := c.Services(ctx)
		require.NoError(t, err)
		_, err = c.Zones(ctx, "")
		require.NoError(t, err)
	}
	assert.Len(t, s.Calls(), 2)

	require.NoError(t, c.Commit(ctx, "", ""))

	_, err := c.Zones(ctx, "")
	require.NoError(t, err)
	_, err = c.Services(ctx)
	require.NoError(t, err)
	assert.Len(t, s.Calls(), 4)
}

func TestClient_CachedListingsAreCopies(t *testing.T) {
	s := newFakeNIC(t)
	c := newTestClient(s,
		WithDefaultService("testservice"),
		WithCache(cache.NewLocalCache(time.Minute, time.Minute), time.Minute),
	)
	ctx := context.Background()

	zones, err := c.Zones(ctx, "")
	require.NoError(t, err)
	require.NotEmpty(t, zones)
	original := zones[0].Name
	zones[0].Name = "mutated.example"

	zones, err = c.Zones(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, original, zones[0].Name)
	zones[0].Name = "mutated.example"

	zones, err = c.Zones(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, original, zones[0].Name)

	services, err := c.Services(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, services)
	name := services[0].Name
	services[0].Name = "mutated"

	services, err = c.Services(ctx)
	require.NoError(t, err)
	assert.Equal(t, name, services[0].Name)
	assert.Len(t, s.Calls(), 2)
}
