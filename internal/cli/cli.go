// Package cli implements the nic-dns command line on top of go-flags.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/jessevdk/go-flags"
	"nic-dns/internal/app"
	"nic-dns/internal/common/logging"
	"nic-dns/internal/config"
)

// Options is the root command. Global flags override the matching
// environment settings.
type Options struct {
	Service string `short:"s" long:"service" description:"service name, defaults to NIC_DEFAULT_SERVICE"`
	Zone    string `short:"z" long:"zone" description:"zone name, defaults to NIC_DEFAULT_ZONE"`
	JSON    bool   `long:"json" description:"print JSON instead of text"`
	Verbose bool   `short:"v" long:"verbose" description:"debug logging"`

	Login     LoginCmd     `command:"login" description:"Obtain a token with the account password"`
	Logout    LogoutCmd    `command:"logout" description:"Forget the persisted token"`
	Services  ServicesCmd  `command:"services" description:"List services"`
	Zones     ZonesCmd     `command:"zones" description:"List zones"`
	ZoneFile  ZoneFileCmd  `command:"zonefile" description:"Print the zone in master file format"`
	Records   RecordsCmd   `command:"records" description:"List zone records"`
	Add       AddCmd       `command:"add" description:"Add records given as master file lines"`
	Delete    DeleteCmd    `command:"delete" description:"Delete records by ID"`
	Commit    CommitCmd    `command:"commit" description:"Publish pending zone changes"`
	Rollback  RollbackCmd  `command:"rollback" description:"Discard pending zone changes"`
	Keepalive KeepaliveCmd `command:"keepalive" description:"Renew the token on a schedule"`
	Acme      AcmeCmd      `command:"acme" description:"DNS-01 challenge hooks for ACME clients"`
}

// AppFactory builds the application for a validated configuration
type AppFactory func(ctx context.Context, cfg *config.Config) (*app.App, error)

// Runtime is what every command shares
type Runtime struct {
	ctx     context.Context
	opts    *Options
	out     io.Writer
	cfg     *config.Config
	factory AppFactory
	app     *app.App
}

// Run parses args, executes the selected command and returns the exit code.
func Run(ctx context.Context, args []string, cfg *config.Config, out, errOut io.Writer, factory AppFactory) int {
	if factory == nil {
		factory = func(ctx context.Context, cfg *config.Config) (*app.App, error) {
			return app.New(ctx, cfg)
		}
	}

	opts := &Options{}
	rt := &Runtime{ctx: ctx, opts: opts, out: out, cfg: cfg, factory: factory}
	opts.bind(rt)

	parser := flags.NewParser(opts, flags.HelpFlag|flags.PassDoubleDash)
	parser.Name = "nic-dns"
	parser.CommandHandler = func(command flags.Commander, args []string) error {
		if command == nil {
			return nil
		}
		defer rt.close()
		return command.Execute(args)
	}

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			fmt.Fprintln(out, flagsErr.Message)
			return 0
		}
		fmt.Fprintf(errOut, "nic-dns: %v\n", err)
		return 1
	}
	return 0
}

func (o *Options) bind(rt *Runtime) {
	o.Login.rt = rt
	o.Logout.rt = rt
	o.Services.rt = rt
	o.Zones.rt = rt
	o.ZoneFile.rt = rt
	o.Records.rt = rt
	o.Add.rt = rt
	o.Delete.rt = rt
	o.Commit.rt = rt
	o.Rollback.rt = rt
	o.Keepalive.rt = rt
	o.Acme.rt = rt
	o.Acme.Present.group = &o.Acme
	o.Acme.CleanUp.group = &o.Acme
}

// App builds the application on first use, applying the global flags
func (rt *Runtime) App() (*app.App, error) {
	if rt.app != nil {
		return rt.app, nil
	}

	cfg := *rt.cfg
	if rt.opts.Service != "" {
		cfg.DefaultService = rt.opts.Service
	}
	if rt.opts.Zone != "" {
		cfg.DefaultZone = rt.opts.Zone
	}
	if rt.opts.Verbose {
		cfg.LogLevel = "debug"
		if err := logging.InitGlobalLogger(cfg.LogLevel, cfg.LogFile); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a, err := rt.factory(rt.ctx, &cfg)
	if err != nil {
		return nil, err
	}
	rt.app = a
	return a, nil
}

func (rt *Runtime) close() {
	if rt.app != nil {
		rt.app.Cleanup()
		rt.app = nil
	}
}
