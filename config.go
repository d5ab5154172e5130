package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bind           string
	maxPlayers     int
	name           string
	port           int
	prefix         string
	profile        bool
	sessionTimeout time.Duration
	tlsCert        string
	tlsKey         string
	verbose        bool
	version        bool
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.maxPlayers < 2 {
		return fmt.Errorf("invalid max players (must be at least 2): %d", c.maxPlayers)
	}
	return nil
}

// validatePlayer is the extra check for commands that seat a local participant.
func (c *Config) validatePlayer() error {
	if strings.TrimSpace(c.name) == "" {
		return errors.New("--name must not be empty")
	}
	return nil
}

// defaultName is shared by host and join, which write the same field.
func defaultName() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "Player"
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

// bindEnv lets every flag in fs fall back to LORELORD_<FLAG>.
func bindEnv(v *viper.Viper, fs *pflag.FlagSet) {
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("LORELORD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return v
}

func newCmd(cfg *Config) *cobra.Command {
	v := newViper()

	cmd := &cobra.Command{
		Use:           "lorelord",
		Short:         "A storytelling party game where the host keeps score and everyone else follows along.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.PersistentFlags()

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: LORELORD_BIND)")
	fs.IntVar(&cfg.maxPlayers, "max-players", 12, "maximum players per game (env: LORELORD_MAX_PLAYERS)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: LORELORD_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: LORELORD_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: LORELORD_PROFILE)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 60*time.Minute, "time before idle games are ended (env: LORELORD_SESSION_TIMEOUT)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: LORELORD_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: LORELORD_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: LORELORD_VERBOSE)")

	bindEnv(v, fs)

	cmd.Flags().BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: LORELORD_VERSION)")
	bindEnv(v, cmd.Flags())

	cmd.AddCommand(newHostCmd(cfg, v), newJoinCmd(cfg, v))

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("lorelord v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}

func newHostCmd(cfg *Config, v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "host",
		Short: "Host a game from this terminal; other players join over the network.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			if err := cfg.validatePlayer(); err != nil {
				return err
			}
			return runHost(cmd.Context(), cfg, cmd.InOrStdin())
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&cfg.name, "name", "n", defaultName(), "your player name (env: LORELORD_NAME)")
	bindEnv(v, fs)

	return cmd
}

func newJoinCmd(cfg *Config, v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "join <ws-url>",
		Short: "Join a game hosted elsewhere, e.g. ws://10.0.0.5:8080/ws",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validatePlayer(); err != nil {
				return err
			}
			return runJoin(cmd.Context(), cfg, args[0], cmd.InOrStdin())
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&cfg.name, "name", "n", defaultName(), "your player name (env: LORELORD_NAME)")
	bindEnv(v, fs)

	return cmd
}
