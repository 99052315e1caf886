package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/capatazlib/go-daemoncheck/internal/config"
	"github.com/capatazlib/go-daemoncheck/internal/notify"
	"github.com/capatazlib/go-daemoncheck/internal/probe"
	"github.com/capatazlib/go-daemoncheck/internal/severity"
)

const (
	progName = "check-daemon"
	version  = "0.1.0"
)

const description = `This plugin checks the status of a monitoring daemon on the local machine.
It makes sure the daemon status log is no older than the number of minutes
given with the <expire_minutes> option, and runs a process listing command to
look for a process matching the <process_string> argument.

The legacy positional form is also accepted:

   check-daemon <logfile> <expire_minutes> <process_string>

Example:

   check-daemon -F /usr/local/nagios/var/status.log -e 5 -C /usr/local/nagios/bin/nagios`

func main() {
	os.Exit(run(context.Background(), os.Args, os.Stdout, os.Stderr))
}

// exitError carries the severity a failed invocation must report
type exitError struct {
	sev     severity.Severity
	message string
}

func (err *exitError) Error() string {
	return err.message
}

func unknownf(m string, args ...interface{}) error {
	return &exitError{
		sev:     severity.Unknown,
		message: fmt.Sprintf(m, args...) + fmt.Sprintf("\nType '%s -h' for additional help", progName),
	}
}

// run executes the command line and returns the process exit code. The
// summary line (or the usage error) is the only text written to stdout.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	code := severity.OK.ExitCode()

	app := newApp(stdout, stderr, func(res probe.Result) {
		fmt.Fprintln(stdout, res.Summary)
		code = res.ExitCode()
	})

	if err := app.RunContext(ctx, args); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(stdout, exitErr.message)
			return exitErr.sev.ExitCode()
		}
		// flag parsing errors already printed the usage
		fmt.Fprintf(stdout, "%s: %s\n", progName, err)
		return severity.Unknown.ExitCode()
	}
	return code
}

func newApp(stdout, stderr io.Writer, report func(probe.Result)) *cli.App {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print version information",
	}

	app := cli.NewApp()
	app.Name = progName
	app.Version = version
	app.Usage = "check that a monitoring daemon is running and updating its status log"
	app.UsageText = fmt.Sprintf("%s -F <status log file> -e <expire_minutes> -C <process_string>", progName)
	app.Description = description
	app.Writer = stdout
	app.ErrWriter = stderr
	// exit codes are decided by run
	app.ExitErrHandler = func(*cli.Context, error) {}
	app.HideHelpCommand = true

	app.Flags = append(probeFlags(), &cli.StringFlag{
		Name:    "metrics-textfile",
		Usage:   "write the evaluation gauges to this node_exporter textfile",
		EnvVars: []string{"DAEMONCHECK_METRICS_TEXTFILE"},
	})
	app.Action = func(c *cli.Context) error {
		return check(c, stderr, report)
	}
	app.Commands = []*cli.Command{
		{
			Name:  "serve",
			Usage: "answer evaluations of the configured checks over HTTP (GET /check/{name}, GET /metrics)",
			Flags: append(commonFlags(), &cli.StringFlag{
				Name:  "listen",
				Value: "127.0.0.1:9101",
				Usage: "address of the HTTP server",
			}),
			Action: func(c *cli.Context) error {
				return serve(c, stderr)
			},
		},
	}
	return app
}

// commonFlags are the ambient settings shared by every mode
func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Usage:   "YAML configuration file",
			EnvVars: []string{"DAEMONCHECK_CONFIG"},
		},
		&cli.DurationFlag{
			Name:    "timeout",
			Aliases: []string{"t"},
			Value:   probe.DefaultTimeout,
			Usage:   "deadline of the whole evaluation",
		},
		&cli.StringFlag{
			Name:  "label",
			Usage: "daemon name used in summaries (e.g. Nagios)",
		},
		&cli.StringFlag{
			Name:  "format",
			Usage: "status log timestamp layout: suffix or bracketed",
		},
		&cli.StringFlag{
			Name:  "ps-command",
			Usage: "process listing command, split on blanks",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "level of the logs written to stderr",
		},
		&cli.StringFlag{
			Name:  "log-format",
			Usage: "format of the logs written to stderr: text or json",
		},
	}
}

func probeFlags() []cli.Flag {
	return append([]cli.Flag{
		&cli.StringFlag{
			Name:    "filename",
			Aliases: []string{"F"},
			Usage:   "name of the status log file to check",
		},
		&cli.StringFlag{
			Name:    "expires",
			Aliases: []string{"e"},
			Usage:   "minutes after which the status log is considered stale",
		},
		&cli.StringFlag{
			Name:    "command",
			Aliases: []string{"C"},
			Usage:   "command to search for in the process table",
		},
	}, commonFlags()...)
}

// loadConfig merges the configuration file, environment and flags
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, unknownf("%s", err)
	}
	if c.IsSet("timeout") {
		cfg.Timeout = c.Duration("timeout")
	}
	if c.IsSet("label") {
		cfg.Label = c.String("label")
	}
	if c.IsSet("format") {
		cfg.LineFormat = c.String("format")
	}
	if c.IsSet("ps-command") {
		cfg.Census.Command = strings.Fields(c.String("ps-command"))
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}
	if c.IsSet("log-format") {
		cfg.Log.Format = c.String("log-format")
	}
	if c.IsSet("metrics-textfile") {
		cfg.Metrics.Textfile = c.String("metrics-textfile")
	}
	if err := cfg.Validate(); err != nil {
		return nil, unknownf("%s", err)
	}
	return cfg, nil
}

// parseExpires converts the expiration minutes to the staleness threshold in
// seconds
func parseExpires(v string) (uint64, error) {
	minutes, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, unknownf("Expiration time must be an integer (seconds)")
	}
	threshold, err := probe.StaleThresholdFromMinutes(minutes)
	if err != nil {
		return 0, unknownf("Expiration time must be an integer (seconds)")
	}
	return threshold, nil
}

// parseInput reads the evaluation input from the flags, or from the legacy
// `<logfile> <expire_minutes> <process_string>` positional form
func parseInput(c *cli.Context) (probe.Input, error) {
	var in probe.Input
	var expires string

	if c.NArg() > 0 && !c.IsSet("filename") {
		in.StatusLogPath = c.Args().Get(0)
		expires = c.Args().Get(1)
		in.ProcessMatchToken = c.Args().Get(2)
		if expires == "" {
			return in, unknownf("Expiration time must be an integer (seconds)")
		}
	} else {
		in.StatusLogPath = c.String("filename")
		expires = c.String("expires")
		in.ProcessMatchToken = c.String("command")
	}

	if expires != "" {
		threshold, err := parseExpires(expires)
		if err != nil {
			return in, err
		}
		in.StaleThreshold = threshold
	}

	if err := in.Validate(); err != nil {
		return in, unknownf("%s", err)
	}
	return in, nil
}

func newLogger(cfg *config.Config, stderr io.Writer) (*logrus.Logger, error) {
	log, err := notify.NewLogger(stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, unknownf("invalid log level %q", cfg.Log.Level)
	}
	return log, nil
}

// reliableNotifier fans evaluation events out to the logger and the gauges; a
// failing notifier never affects the evaluation
func reliableNotifier(log logrus.FieldLogger, metrics *notify.Metrics) probe.EventNotifier {
	return notify.Reliable(
		map[string]probe.EventNotifier{
			"logrus":     notify.Logrus(log),
			"prometheus": metrics.Notifier(),
		},
		notify.WithOnNotifierFailure(func(name string, err error) {
			log.WithError(err).WithField("notifier", name).Error("event notifier failed")
		}),
	)
}

func check(c *cli.Context, stderr io.Writer, report func(probe.Result)) error {
	if len(c.FlagNames()) == 0 && c.NArg() == 0 {
		return unknownf("Could not parse arguments")
	}

	in, err := parseInput(c)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg, stderr)
	if err != nil {
		return err
	}

	metrics := notify.NewMetrics()
	opts := append(
		cfg.ProbeOpts(),
		probe.WithNotifier(reliableNotifier(log, metrics)),
	)
	res := probe.New(opts...).Evaluate(c.Context, in)

	if cfg.Metrics.Textfile != "" {
		if err := metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			log.WithError(err).Warn("failed to write metrics textfile")
		}
	}

	report(res)
	return nil
}
