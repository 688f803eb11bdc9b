package cmds

import (
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/chat-archive/pkg/archive"
	"github.com/go-go-golems/chat-archive/pkg/config"
	"github.com/go-go-golems/chat-archive/pkg/render"
)

var (
	flagConfig     string
	flagDB         string
	flagStyle      string
	flagLogLevel   string
	flagVerbose    bool
	flagWithCaller bool

	cfg config.Config
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "chat-archive",
		Short:         "Import, inspect and export ChatGPT conversation archives",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initRoot()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "config file (default: user config dir)")
	pf.StringVar(&flagDB, "db", "", "sqlite archive file (default: chatgpt.db)")
	pf.StringVar(&flagStyle, "style", "", "transcript style (default|irc|full|raw)")
	pf.StringVar(&flagLogLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "shorthand for --log-level debug")
	pf.BoolVar(&flagWithCaller, "with-caller", false, "log caller locations")

	root.AddCommand(
		newImportCmd(),
		newShowCmd(),
		newPrintCmd(),
		newInfoCmd(),
		newExportCmd(),
		newInspectCmd(),
	)
	return root
}

func initRoot() error {
	configPath := flagConfig
	if configPath == "" {
		if p, err := config.DefaultPath(); err == nil {
			configPath = p
		}
	}
	c, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if flagDB != "" {
		c.DBPath = flagDB
	}
	if flagStyle != "" {
		c.Style = flagStyle
	}
	if flagLogLevel != "" {
		c.LogLevel = flagLogLevel
	}
	if flagVerbose {
		c.LogLevel = "debug"
	}
	cfg = c

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	} else {
		return errors.Wrapf(err, "invalid log level %q", cfg.LogLevel)
	}
	if flagWithCaller {
		log.Logger = log.Logger.With().Caller().Logger()
	}
	return nil
}

func openStore() (*archive.Store, error) {
	dsn, err := archive.DSNForFile(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	return archive.Open(dsn)
}

func currentStyle() (render.Style, error) {
	return render.StyleByName(cfg.Style)
}
