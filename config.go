package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type Config struct {
	bind            string
	flickerInterval time.Duration
	metrics         bool
	port            int
	prefix          string
	profile         bool
	redrawDelay     time.Duration
	revealDelay     time.Duration
	sessionTimeout  time.Duration
	shakeDuration   time.Duration
	tlsCert         string
	tlsKey          string
	verbose         bool
	version         bool

	logger *zap.SugaredLogger
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.shakeDuration <= 0 || c.flickerInterval <= 0 {
		return errors.New("--shake-duration and --flicker-interval must be positive")
	}
	if c.flickerInterval >= c.shakeDuration {
		return fmt.Errorf("--flicker-interval (%s) must be shorter than --shake-duration (%s)", c.flickerInterval, c.shakeDuration)
	}
	if c.revealDelay < 0 || c.redrawDelay < 0 {
		return errors.New("--reveal-delay and --redraw-delay cannot be negative")
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("DICEDRAW")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "dicedraw",
		Short:         "Shake the dice and draw random winners from a list of names.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}

			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer func() {
				_ = logger.Sync()
			}()
			cfg.logger = logger.Sugar()

			return ServePage(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: DICEDRAW_BIND)")
	fs.DurationVar(&cfg.flickerInterval, "flicker-interval", 100*time.Millisecond, "time between dice face changes while shaking (env: DICEDRAW_FLICKER_INTERVAL)")
	fs.BoolVar(&cfg.metrics, "metrics", false, "expose prometheus metrics at /metrics (env: DICEDRAW_METRICS)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: DICEDRAW_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: DICEDRAW_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: DICEDRAW_PROFILE)")
	fs.DurationVar(&cfg.redrawDelay, "redraw-delay", 400*time.Millisecond, "length of the card swap effect when redrawing a winner (env: DICEDRAW_REDRAW_DELAY)")
	fs.DurationVar(&cfg.revealDelay, "reveal-delay", 800*time.Millisecond, "pause between the draw and the results reveal (env: DICEDRAW_REVEAL_DELAY)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 60*time.Minute, "time before idle draw sessions are ended (env: DICEDRAW_SESSION_TIMEOUT)")
	fs.DurationVar(&cfg.shakeDuration, "shake-duration", 3*time.Second, "how long the dice shake before winners are drawn (env: DICEDRAW_SHAKE_DURATION)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: DICEDRAW_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: DICEDRAW_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: DICEDRAW_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: DICEDRAW_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("dicedraw v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
