package cmd

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jacobsa/daemonize"
	"github.com/kardianos/osext"
	"github.com/spf13/cobra"

	"github.com/nsfs/naming/internal/logger"
	"github.com/nsfs/naming/internal/monitor"
	"github.com/nsfs/naming/naming/lockmgr"
	"github.com/nsfs/naming/naming/registry"
	"github.com/nsfs/naming/naming/rpc"
	"github.com/nsfs/naming/naming/service"
	"github.com/nsfs/naming/naming/tree"

	"github.com/jacobsa/timeutil"
)

// runServe is the root command's RunE: it daemonizes if requested, then
// either re-execs in the background or runs the naming server in the
// foreground until interrupted.
func runServe(c *cobra.Command, args []string) (err error) {
	if err = logger.Init(newConfig.Logging); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if !newConfig.Server.Foreground {
		return daemonizeAndReexec()
	}

	return serveForeground()
}

// daemonizeAndReexec matches spec.md section 6's "launch" lifecycle
// command: it finds the running executable, re-invokes it with
// --foreground=true, and returns once the child signals its own outcome,
// following the teacher's legacy_main.go daemonize.Run pattern exactly
// (minus the GCS-specific environment variables that pattern forwards,
// which have no naming-server analogue).
func daemonizeAndReexec() error {
	path, err := osext.Executable()
	if err != nil {
		return fmt.Errorf("osext.Executable: %w", err)
	}

	execArgs := append(append([]string{}, os.Args[1:]...), "--foreground")
	env := []string{fmt.Sprintf("PATH=%s", os.Getenv("PATH"))}

	if err := daemonize.Run(path, execArgs, env, os.Stdout); err != nil {
		return fmt.Errorf("daemonize.Run: %w", err)
	}
	logger.Infof("naming-server started in background")
	return nil
}

// serveForeground wires the namespace engine, starts the RPC server and
// the /metrics HTTP server, and blocks until SIGINT/SIGTERM.
func serveForeground() error {
	signalOutcome := func(err error) {
		if err2 := daemonize.SignalOutcome(err); err2 != nil {
			logger.Errorf("failed to signal outcome to parent process: %v", err2)
		}
	}

	handler, err := monitor.NewPrometheusHandler()
	if err != nil {
		signalOutcome(err)
		return fmt.Errorf("metrics: %w", err)
	}
	metrics, err := monitor.New()
	if err != nil {
		signalOutcome(err)
		return fmt.Errorf("metrics: %w", err)
	}

	t := tree.New()
	locks := lockmgr.New()
	svc := service.New(t, locks)
	reg := registry.New(t, locks, timeutil.RealClock())

	if err := metrics.RegisterGauges(
		func() int64 { return int64(t.Size()) },
		func() int64 { return int64(len(reg.KnownNodes())) },
	); err != nil {
		signalOutcome(err)
		return fmt.Errorf("register gauges: %w", err)
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", handler)
	metricsSrv := &http.Server{Addr: ":9400", Handler: metricsMux}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("metrics server: %v", err)
		}
	}()

	server := rpc.NewServer()
	if err := server.Start(newConfig.Server.ServiceAddr, newConfig.Server.RegistrationAddr, svc, reg); err != nil {
		signalOutcome(err)
		return fmt.Errorf("start rpc server: %w", err)
	}
	logger.Infof("naming-server listening: service=%s registration=%s",
		newConfig.Server.ServiceAddr, newConfig.Server.RegistrationAddr)
	signalOutcome(nil)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Infof("received %s, shutting down", sig)

	if err := server.Stop(); err != nil {
		logger.Errorf("stop rpc server: %v", err)
	}
	_ = metricsSrv.Close()
	return nil
}
