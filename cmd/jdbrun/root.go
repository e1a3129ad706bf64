package main

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"jdbrun/internal/jdb"
	"jdbrun/internal/platform"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var (
	profileFlag       string
	overlayFlag       string
	mainClassFlag     string
	classPathFlag     []string
	sourcePathFlag    []string
	jdkFlag           string
	attachFlag        string
	stopOnEntryFlag   bool
	listenTimeoutFlag time.Duration
	headlessFlag      bool
	portFlag          int
	logLevelFlag      string
	sourceRootFlag    string
)

var rootCmd = &cobra.Command{
	Use:   "jdbrun [flags] [-- program args]",
	Short: "Run a Java program under jdb and drive it over NATS and HTTP",
	Long: `Starts the debuggee and jdb, then serves the debug session:

  - commands as NATS request/reply on command.jdb.<session>.exec
  - events on the JDB_EVENT JetStream stream (event.jdb.<session>.>)
  - an HTTP page with a live event feed, unless --headless

Settings come from .env and JDBRUN_* variables, then an optional JSON launch
profile, then flags.

Examples:
  jdbrun --main demo.Foo --classpath build/classes -- --verbose
  jdbrun --profile launch.json --stop-on-entry
  jdbrun --attach localhost:5005 --headless`,
	SilenceUsage: true,
	RunE:         runRoot,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&profileFlag, "profile", "", "JSON launch profile")
	f.StringVar(&overlayFlag, "overlay", "", "JSON merge patch applied over the profile")
	f.StringVar(&mainClassFlag, "main", "", "Main class to launch")
	f.StringSliceVar(&classPathFlag, "classpath", nil, "Class path entries")
	f.StringSliceVar(&sourcePathFlag, "sourcepath", nil, "Source path entries passed to jdb")
	f.StringVar(&jdkFlag, "jdk", "", "Directory holding java and jdb (default: PATH)")
	f.StringVar(&attachFlag, "attach", "", "Attach to a listening debuggee at host:port instead of launching")
	f.BoolVar(&stopOnEntryFlag, "stop-on-entry", false, "Break at the start of main")
	f.DurationVar(&listenTimeoutFlag, "listen-timeout", jdb.DefaultListenTimeout, "How long to wait for the debuggee to listen")
	f.BoolVar(&headlessFlag, "headless", false, "Do not start the HTTP server")
	f.IntVar(&portFlag, "port", 8080, "HTTP port")
	f.StringVar(&logLevelFlag, "log-level", "info", "Log level: debug, info, warn, error")
	f.StringVar(&sourceRootFlag, "source-root", "", "Directory breakpoint source excerpts are read from")
}

func runRoot(cmd *cobra.Command, args []string) error {
	cfg := platform.LoadAppConfig()
	flags := cmd.Flags()

	if flags.Changed("log-level") {
		cfg.LogLevel = logLevelFlag
	}
	platform.InitLogger(cfg.LogLevel)
	metrics := platform.InitMetrics(prometheus.DefaultRegisterer)

	if flags.Changed("headless") {
		cfg.Flags.Headless = headlessFlag
	}
	if flags.Changed("port") {
		cfg.HTTPSrvCfg.Port = portFlag
	}
	if flags.Changed("source-root") {
		cfg.Session.SourceRoot = sourceRootFlag
	}
	if flags.Changed("profile") {
		cfg.Session.ProfilePath = profileFlag
	}
	if flags.Changed("overlay") {
		cfg.Session.OverlayPath = overlayFlag
	}

	launch, err := launchConfig(cmd, cfg, args)
	if err != nil {
		return err
	}
	slog.Info("starting", "main", launch.MainClass, "attach_port", launch.AttachPort, "headless", cfg.Flags.Headless)
	return platform.Run(cmd.Context(), cfg, launch, metrics)
}

// launchConfig layers flags over the profile, if any.
func launchConfig(cmd *cobra.Command, cfg *platform.AppConfig, args []string) (jdb.LaunchConfig, error) {
	var launch jdb.LaunchConfig
	if cfg.Session.ProfilePath != "" {
		var err error
		if launch, err = platform.LoadProfile(cfg.Session.ProfilePath, cfg.Session.OverlayPath); err != nil {
			return jdb.LaunchConfig{}, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("main") {
		launch.MainClass = mainClassFlag
	}
	if flags.Changed("classpath") {
		launch.ClassPath = classPathFlag
	}
	if flags.Changed("sourcepath") {
		launch.SourcePath = sourcePathFlag
	}
	if flags.Changed("jdk") {
		launch.JDKPath = jdkFlag
	}
	if flags.Changed("stop-on-entry") {
		launch.StopOnEntry = stopOnEntryFlag
	}
	if flags.Changed("listen-timeout") {
		launch.ListenTimeout = listenTimeoutFlag
	}
	if flags.Changed("attach") {
		host, port, err := splitAttach(attachFlag)
		if err != nil {
			return jdb.LaunchConfig{}, err
		}
		launch.AttachHost, launch.AttachPort = host, port
	}
	if len(args) > 0 {
		launch.Args = args
	}
	return launch, launch.Validate()
}

func splitAttach(s string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return "", 0, fmt.Errorf("--attach: %w", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return "", 0, fmt.Errorf("--attach: invalid port %q", portStr)
	}
	return host, port, nil
}
