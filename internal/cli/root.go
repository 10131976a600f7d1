// Package cli implements the taskr command: the web server and a command line
// client sharing the session and task list logic.
package cli

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BuzzLyutic/taskr/internal/config"
)

// ErrFailed is returned after a failure was already shown to the user.
var ErrFailed = errors.New("operation failed")

var ErrNotLoggedIn = errors.New("not logged in, run `taskr login` first")

type App struct {
	ConfigPath string
	Verbose    bool
	NoColor    bool

	v      *viper.Viper
	cfg    config.Config
	logger *zap.Logger

	// openBackend is replaced in tests.
	openBackend func(app *App) (*backend, error)
}

func NewRootCmd() *cobra.Command {
	return newRootCmd(&App{openBackend: openBackend})
}

func newRootCmd(app *App) *cobra.Command {
	app.v = config.New()

	cmd := &cobra.Command{
		Use:           "taskr",
		Short:         "Taskr task manager: web server and command line client",
		SilenceUsage:  true,
		SilenceErrors: true,
		Example: strings.TrimSpace(`
  # Serve the web application
  taskr serve --port 8080

  # Use the command line client
  taskr login --email jane@example.com
  taskr tasks add --title "Write report" --tag todo
  taskr tasks list --search report
`),
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadFrom(app.v, app.ConfigPath)
		if err != nil {
			return err
		}
		app.cfg = cfg
		app.logger, err = newLogger(cfg, app.Verbose || cmd.Name() == "serve")
		return err
	}
	cmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		if app.logger != nil {
			_ = app.logger.Sync()
		}
	}

	cmd.PersistentFlags().StringVar(&app.ConfigPath, "config", "", "Path to a YAML config file")
	cmd.PersistentFlags().BoolVarP(&app.Verbose, "verbose", "v", false, "Log at info level")
	cmd.PersistentFlags().BoolVar(&app.NoColor, "no-color", false, "Disable coloured output")
	cmd.PersistentFlags().String("backend", "", "Remote backend (appwrite|postgres)")
	_ = app.v.BindPFlag("backend", cmd.PersistentFlags().Lookup("backend"))

	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newMigrateCmd(app))
	cmd.AddCommand(newSignupCmd(app))
	cmd.AddCommand(newLoginCmd(app))
	cmd.AddCommand(newLogoutCmd(app))
	cmd.AddCommand(newWhoamiCmd(app))
	cmd.AddCommand(newRecoverCmd(app))
	cmd.AddCommand(newResetPasswordCmd(app))
	cmd.AddCommand(newTasksCmd(app))

	return cmd
}

// newLogger builds the production logger, or the development one outside
// production. Client commands only log warnings unless verbose.
func newLogger(cfg config.Config, verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if !cfg.Production() {
		zc = zap.NewDevelopmentConfig()
	}
	if !verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}
	return zc.Build()
}
