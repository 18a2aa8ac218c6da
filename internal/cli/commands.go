package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-acme/lego/v4/challenge/dns01"
	"nic-dns/internal/acme"
	"nic-dns/internal/common/errors"
	"nic-dns/internal/keepalive"
	"nic-dns/internal/locks"
	"nic-dns/internal/models"
)

// LoginCmd performs the password grant
type LoginCmd struct {
	Username string `short:"u" long:"username" description:"account login, defaults to NIC_USERNAME"`
	Password string `short:"p" long:"password" description:"account password, defaults to NIC_PASSWORD"`
	rt       *Runtime
}

// Execute runs the command
func (c *LoginCmd) Execute(args []string) error {
	a, err := c.rt.App()
	if err != nil {
		return err
	}

	username := firstNonEmpty(c.Username, a.Config.Username)
	password := firstNonEmpty(c.Password, a.Config.Password)
	if username == "" || password == "" {
		return errors.ValidationError("username and password are required, set NIC_USERNAME and NIC_PASSWORD or pass --username/--password")
	}

	token, err := a.Manager.Acquire(c.rt.ctx, username, password)
	if err != nil {
		return err
	}
	if token.NoExpiry {
		return c.rt.printf("Logged in, the token does not expire\n")
	}
	return c.rt.printf("Logged in, token valid until %s\n", token.ExpiresAt().Local().Format("2006-01-02 15:04:05"))
}

// LogoutCmd drops the token
type LogoutCmd struct {
	rt *Runtime
}

// Execute runs the command
func (c *LogoutCmd) Execute(args []string) error {
	a, err := c.rt.App()
	if err != nil {
		return err
	}
	if err := a.Manager.Clear(c.rt.ctx); err != nil {
		return err
	}
	return c.rt.printf("Logged out\n")
}

// ServicesCmd lists services
type ServicesCmd struct {
	rt *Runtime
}

// Execute runs the command
func (c *ServicesCmd) Execute(args []string) error {
	a, err := c.rt.App()
	if err != nil {
		return err
	}
	services, err := a.Client.Services(c.rt.ctx)
	if err != nil {
		return err
	}
	if c.rt.opts.JSON {
		return c.rt.printJSON(services)
	}
	return c.rt.printServices(services)
}

// ZonesCmd lists zones of a service, or of the whole account
type ZonesCmd struct {
	rt *Runtime
}

// Execute runs the command
func (c *ZonesCmd) Execute(args []string) error {
	a, err := c.rt.App()
	if err != nil {
		return err
	}
	zones, err := a.Client.Zones(c.rt.ctx, "")
	if err != nil {
		return err
	}
	if c.rt.opts.JSON {
		return c.rt.printJSON(zones)
	}
	return c.rt.printZones(zones)
}

// ZoneFileCmd prints the zone file
type ZoneFileCmd struct {
	rt *Runtime
}

// Execute runs the command
func (c *ZoneFileCmd) Execute(args []string) error {
	a, err := c.rt.App()
	if err != nil {
		return err
	}
	text, err := a.Client.ZoneFile(c.rt.ctx, "", "")
	if err != nil {
		return err
	}
	if c.rt.opts.JSON {
		return c.rt.printJSON(map[string]string{"zone": a.Client.DefaultZone(), "content": text})
	}
	return c.rt.printf("%s", text)
}

// RecordsCmd lists records, optionally of one type
type RecordsCmd struct {
	Type string `short:"t" long:"type" description:"only records of this type"`
	Name string `short:"n" long:"name" description:"only records with this owner name"`
	rt   *Runtime
}

// Execute runs the command
func (c *RecordsCmd) Execute(args []string) error {
	a, err := c.rt.App()
	if err != nil {
		return err
	}

	var kind models.Kind
	if c.Type != "" {
		if kind, err = models.ParseKind(strings.ToUpper(c.Type)); err != nil {
			return err
		}
	}

	records, err := a.Client.Records(c.rt.ctx, "", "")
	if err != nil {
		return err
	}

	filtered := records[:0]
	for _, r := range records {
		if kind != "" && r.Kind != kind {
			continue
		}
		if c.Name != "" && !strings.EqualFold(r.Name, c.Name) && !strings.EqualFold(r.IDNName, c.Name) {
			continue
		}
		filtered = append(filtered, r)
	}

	if c.rt.opts.JSON {
		return c.rt.printJSON(filtered)
	}
	return c.rt.printRecords(filtered)
}

// AddCmd adds records written as master file lines, e.g.
// "www 3600 IN A 192.0.2.1". Names are relative to the zone.
type AddCmd struct {
	Commit bool   `short:"c" long:"commit" description:"commit the zone afterwards"`
	File   string `short:"f" long:"file" description:"read record lines from this file, - for stdin"`
	Args   struct {
		Records []string `positional-arg-name:"record" description:"record in master file format"`
	} `positional-args:"yes"`
	rt *Runtime
}

// Execute runs the command
func (c *AddCmd) Execute(args []string) error {
	a, err := c.rt.App()
	if err != nil {
		return err
	}

	lines := append([]string(nil), c.Args.Records...)
	if c.File != "" {
		more, err := readLines(c.File)
		if err != nil {
			return err
		}
		lines = append(lines, more...)
	}
	if len(lines) == 0 {
		return errors.ValidationError("no records given")
	}

	zone := a.Client.DefaultZone()
	if zone == "" {
		return errors.ValidationError("zone is required")
	}

	records := make([]*models.Record, 0, len(lines))
	for _, line := range lines {
		r, err := models.ParseRecord(line, zone)
		if err != nil {
			return err
		}
		records = append(records, r)
	}

	created, err := a.Client.AddRecords(c.rt.ctx, "", "", records...)
	if err != nil {
		return err
	}
	if c.Commit {
		if err := a.Client.Commit(c.rt.ctx, "", ""); err != nil {
			return err
		}
	}

	if c.rt.opts.JSON {
		return c.rt.printJSON(created)
	}
	return c.rt.printRecords(created)
}

// DeleteCmd deletes records by ID
type DeleteCmd struct {
	Commit bool `short:"c" long:"commit" description:"commit the zone afterwards"`
	Args   struct {
		IDs []string `positional-arg-name:"id" required:"1" description:"record ID"`
	} `positional-args:"yes"`
	rt *Runtime
}

// Execute runs the command
func (c *DeleteCmd) Execute(args []string) error {
	ids := make([]int, 0, len(c.Args.IDs))
	for _, raw := range c.Args.IDs {
		id, err := strconv.Atoi(raw)
		if err != nil || id <= 0 {
			return errors.ValidationError(fmt.Sprintf("invalid record ID: %s", raw))
		}
		ids = append(ids, id)
	}

	a, err := c.rt.App()
	if err != nil {
		return err
	}

	for _, id := range ids {
		if err := a.Client.DeleteRecord(c.rt.ctx, "", "", id); err != nil {
			return err
		}
		if err := c.rt.printf("Deleted record %d\n", id); err != nil {
			return err
		}
	}
	if c.Commit {
		return a.Client.Commit(c.rt.ctx, "", "")
	}
	return nil
}

// CommitCmd publishes pending changes
type CommitCmd struct {
	rt *Runtime
}

// Execute runs the command
func (c *CommitCmd) Execute(args []string) error {
	a, err := c.rt.App()
	if err != nil {
		return err
	}
	if err := a.Client.Commit(c.rt.ctx, "", ""); err != nil {
		return err
	}
	return c.rt.printf("Committed %s\n", a.Client.DefaultZone())
}

// RollbackCmd discards pending changes
type RollbackCmd struct {
	rt *Runtime
}

// Execute runs the command
func (c *RollbackCmd) Execute(args []string) error {
	a, err := c.rt.App()
	if err != nil {
		return err
	}
	if err := a.Client.Rollback(c.rt.ctx, "", ""); err != nil {
		return err
	}
	return c.rt.printf("Rolled back %s\n", a.Client.DefaultZone())
}

// KeepaliveCmd renews the token until interrupted
type KeepaliveCmd struct {
	Schedule string `long:"schedule" description:"cron schedule, defaults to KEEPALIVE_SCHEDULE"`
	Once     bool   `long:"once" description:"renew once and exit"`
	rt       *Runtime
}

// Execute runs the command
func (c *KeepaliveCmd) Execute(args []string) error {
	a, err := c.rt.App()
	if err != nil {
		return err
	}

	var opts []keepalive.Option
	if a.RedisClient != nil {
		locker, err := locks.NewRedsyncLocker(a.RedisClient, a.Logger)
		if err != nil {
			return err
		}
		defer locker.Close()
		opts = append(opts, keepalive.WithLocker(locker, "nic-dns:keepalive:"+a.Config.TokenKey, a.Config.HTTPTimeout*2))
	}

	runner, err := keepalive.NewRunner(a.Manager, firstNonEmpty(c.Schedule, a.Config.KeepaliveSchedule), opts...)
	if err != nil {
		return err
	}

	if c.Once {
		if err := runner.RunOnce(c.rt.ctx); err != nil {
			return err
		}
		return c.rt.printf("Token renewed\n")
	}
	return runner.Run(c.rt.ctx)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func readLines(path string) ([]string, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, errors.ValidationError(fmt.Sprintf("reading %s: %v", path, err))
	}

	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// AcmeCmd groups the DNS-01 hook commands. The arguments follow lego's exec
// provider: "<fqdn> <value>" by default, "<domain> <token> <key-auth>" in
// raw mode.
type AcmeCmd struct {
	TTL     int            `long:"ttl" default:"60" description:"TTL of the challenge record"`
	Present AcmePresentCmd `command:"present" description:"Publish a DNS-01 challenge record and commit"`
	CleanUp AcmeCleanUpCmd `command:"cleanup" description:"Remove a DNS-01 challenge record and commit"`
	rt      *Runtime
}

type acmeArgs struct {
	Values []string `positional-arg-name:"arg" required:"2-3" description:"fqdn and value, or domain, token and key authorization"`
}

// challenge returns the record name and value for the hook arguments
func (a acmeArgs) challenge() (fqdn, value string, err error) {
	switch len(a.Values) {
	case 2:
		return dns01.ToFqdn(a.Values[0]), a.Values[1], nil
	case 3:
		fqdn, value := dns01.GetRecord(a.Values[0], a.Values[2])
		return fqdn, value, nil
	default:
		return "", "", errors.ValidationError(fmt.Sprintf("expected 2 or 3 arguments, got %d", len(a.Values)))
	}
}

// provider builds the DNS-01 provider. With --zone the challenge goes to
// that zone, otherwise to the longest hosted zone containing the name.
func (c *AcmeCmd) provider() (*acme.DNSProvider, error) {
	a, err := c.rt.App()
	if err != nil {
		return nil, err
	}

	cfg := acme.DefaultConfig()
	cfg.Service = a.Client.DefaultService()
	cfg.Zone = c.rt.opts.Zone
	cfg.TTL = c.TTL
	cfg.APITimeout = a.Config.HTTPTimeout * 2
	return acme.NewDNSProvider(a.Client, cfg, a.Logger)
}

// AcmePresentCmd publishes a challenge
type AcmePresentCmd struct {
	Args  acmeArgs `positional-args:"yes"`
	group *AcmeCmd
}

// Execute runs the command
func (c *AcmePresentCmd) Execute(args []string) error {
	fqdn, value, err := c.Args.challenge()
	if err != nil {
		return err
	}
	p, err := c.group.provider()
	if err != nil {
		return err
	}
	if err := p.PresentRecord(c.group.rt.ctx, fqdn, value); err != nil {
		return err
	}
	return c.group.rt.printf("Published %s\n", fqdn)
}

// AcmeCleanUpCmd removes a challenge
type AcmeCleanUpCmd struct {
	Args  acmeArgs `positional-args:"yes"`
	group *AcmeCmd
}

// Execute runs the command
func (c *AcmeCleanUpCmd) Execute(args []string) error {
	fqdn, value, err := c.Args.challenge()
	if err != nil {
		return err
	}
	p, err := c.group.provider()
	if err != nil {
		return err
	}
	if err := p.CleanUpRecord(c.group.rt.ctx, fqdn, value); err != nil {
		return err
	}
	return c.group.rt.printf("Cleaned up %s\n", fqdn)
}
