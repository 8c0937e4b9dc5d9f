package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/opsdesk/internal/api"
	"github.com/joescharf/opsdesk/internal/daemon"
	"github.com/joescharf/opsdesk/internal/output"
	"github.com/joescharf/opsdesk/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the GraphQL API server",
	Long: `Run the GraphQL API server in the foreground.

The server keeps issues in memory only; every start begins from the seed
issues (disable with serve.seed=false). Use 'serve start' to run it in
the background instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveRun(cmd.Context())
	},
}

var serveStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the server in the background",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStartRun()
	},
}

var serveStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the background server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStopRun()
	},
}

var serveStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the background server is running",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStatusRun()
	},
}

// serveBackground is set on the child started by 'serve start'.
var serveBackground bool

func init() {
	serveCmd.Flags().BoolVar(&serveBackground, "background", false, "Record this process in the PID file")
	_ = serveCmd.Flags().MarkHidden("background")
	serveCmd.PersistentFlags().IntP("port", "p", 4000, "Port to listen on")
	serveCmd.PersistentFlags().String("cors-origin", "*", "Value of Access-Control-Allow-Origin")
	serveCmd.PersistentFlags().Bool("seed", true, "Start with the demo issues")
	_ = viper.BindPFlag("serve.port", serveCmd.PersistentFlags().Lookup("port"))
	_ = viper.BindPFlag("serve.cors_origin", serveCmd.PersistentFlags().Lookup("cors-origin"))
	_ = viper.BindPFlag("serve.seed", serveCmd.PersistentFlags().Lookup("seed"))

	serveCmd.AddCommand(serveStartCmd)
	serveCmd.AddCommand(serveStopCmd)
	serveCmd.AddCommand(serveStatusCmd)
	rootCmd.AddCommand(serveCmd)
}

// pidFile returns the state file of the background server.
func pidFile() *daemon.PIDFile {
	return daemon.NewPIDFile(statePath("opsdesk-serve.pid"))
}

// serveLogPath returns the log file of the background server.
func serveLogPath() string {
	return statePath("opsdesk-serve.log")
}

func serveAddr() (string, error) {
	port := viper.GetInt("serve.port")
	if port < 1 || port > 65535 {
		return "", fmt.Errorf("invalid port %d", port)
	}
	return fmt.Sprintf(":%d", port), nil
}

func serveRun(ctx context.Context) error {
	addr, err := serveAddr()
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	var opts []store.Option
	if viper.GetBool("serve.seed") {
		opts = append(opts, store.WithSeed())
	}
	s := store.NewMemoryStore(opts...)

	srv, err := api.NewServer(s, api.Options{
		CORSOrigin: viper.GetString("serve.cors_origin"),
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, shutdownSignals()...)
	defer stop()

	if serveBackground {
		release, err := recordBackground(addr)
		if err != nil {
			return err
		}
		defer release()
	}

	logger.Info("starting opsdesk", "version", buildVersion, "addr", addr, "issues", s.Len())
	return srv.ListenAndServe(ctx, addr)
}

// recordBackground writes this process into the PID file and returns a
// func that removes it again.
func recordBackground(addr string) (func(), error) {
	pf := pidFile()
	if err := pf.WriteCurrent(addr, serveLogPath()); err != nil {
		return nil, fmt.Errorf("write PID file: %w", err)
	}
	return func() {
		if st, err := pf.Read(); err == nil && st.PID == os.Getpid() {
			_ = pf.Remove()
		}
	}, nil
}

// serveChildArgs builds the command line of the background server.
func serveChildArgs() []string {
	args := []string{"serve", "--background",
		"--port", strconv.Itoa(viper.GetInt("serve.port")),
		"--cors-origin", viper.GetString("serve.cors_origin"),
		"--seed=" + strconv.FormatBool(viper.GetBool("serve.seed")),
	}
	if cfg := viper.ConfigFileUsed(); cfg != "" {
		args = append(args, "--config", cfg)
	}
	return args
}

func serveStartRun() error {
	pf := pidFile()
	if st, running := pf.IsRunning(); running {
		return fmt.Errorf("server already running (PID %d on %s)", st.PID, st.Addr)
	}

	addr, err := serveAddr()
	if err != nil {
		return err
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("find executable: %w", err)
	}
	args := serveChildArgs()
	logPath := serveLogPath()

	if dryRun {
		ui.DryRunMsg("Would start %s %v (log: %s)", exe, args, logPath)
		return nil
	}

	if err := os.MkdirAll(viper.GetString("state_dir"), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()

	child := exec.Command(exe, args...)
	child.Stdout = logFile
	child.Stderr = logFile
	child.Env = append(os.Environ(), "OPSDESK_LOG_FORMAT=json")
	setDaemonAttrs(child)

	if err := child.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	if err := pf.Write(daemon.State{
		PID:       child.Process.Pid,
		Addr:      addr,
		LogFile:   logPath,
		StartedAt: time.Now().UTC().Truncate(time.Second),
	}); err != nil {
		_ = child.Process.Kill()
		return fmt.Errorf("write PID file: %w", err)
	}
	_ = child.Process.Release()

	// Give the child a moment to fail fast (e.g. port in use).
	time.Sleep(300 * time.Millisecond)
	if _, running := pf.IsRunning(); !running {
		_ = pf.Remove()
		return fmt.Errorf("server exited during startup; see %s", logPath)
	}

	ui.Success("Server started (PID %d) on %s", child.Process.Pid, output.Cyan(addr))
	ui.Info("Log: %s", logPath)
	return nil
}

func serveStopRun() error {
	pf := pidFile()
	st, running := pf.IsRunning()
	if !running {
		if st != nil {
			_ = pf.Remove()
		}
		return fmt.Errorf("server is not running")
	}

	if dryRun {
		ui.DryRunMsg("Would stop server (PID %d)", st.PID)
		return nil
	}

	if err := pf.Signal(sigTERM()); err != nil {
		return fmt.Errorf("signal server: %w", err)
	}

	deadline := time.Now().Add(12 * time.Second)
	for time.Now().Before(deadline) {
		if _, alive := pf.IsRunning(); !alive {
			break
		}
		time.Sleep(200 * time.Millisecond)
	}
	if _, alive := pf.IsRunning(); alive {
		ui.Warning("Server did not exit in time, killing PID %d", st.PID)
		_ = pf.Signal(sigKILL())
	}

	if err := pf.Remove(); err != nil {
		return fmt.Errorf("remove PID file: %w", err)
	}
	ui.Success("Server stopped (PID %d)", st.PID)
	return nil
}

func serveStatusRun() error {
	pf := pidFile()
	st, running := pf.IsRunning()
	if !running {
		ui.Info("Server is %s", output.Yellow("not running"))
		if st != nil {
			ui.VerboseLog("Stale PID file for PID %d", st.PID)
		}
		return nil
	}

	ui.Success("Server is %s (PID %d) on %s", output.Green("running"), st.PID, output.Cyan(st.Addr))
	ui.Info("Started: %s (%s ago)", st.StartedAt.Local().Format(time.DateTime), time.Since(st.StartedAt).Round(time.Second))
	if st.LogFile != "" {
		ui.Info("Log: %s", st.LogFile)
	}
	return nil
}
