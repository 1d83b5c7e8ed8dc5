// Command vspcd is the Virtual Serial Port Concentrator daemon: it
// accepts telnet connections from hypervisor hosts, identifies the VM on
// each connection via the VMware vendor telnet extension, appends console
// byte streams to per-VM log files, and serves those logs over HTTP.
//
// Grounded on cmd/vision3's flag-parse -> load-config -> start-listeners
// -> wait-for-signal shape (stlalpha-vision3).
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"github.com/stlalpha/vspcd/internal/config"
	"github.com/stlalpha/vspcd/internal/consoleapi"
	"github.com/stlalpha/vspcd/internal/logging"
	"github.com/stlalpha/vspcd/internal/logsink"
	"github.com/stlalpha/vspcd/internal/registry"
	"github.com/stlalpha/vspcd/internal/vspcconn"
)

// oversizeThreshold flags per-VM log files worth a housekeeping warning.
// vspcd never rotates or truncates logs itself; see SPEC_FULL.md §3.
const oversizeThreshold = 512 * 1024 * 1024

func main() {
	configPath := flag.String("config", "/etc/vspcd.json", "path to the JSON configuration file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	logging.DebugEnabled = *debug

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "vspcd: %v\n", err)
		os.Exit(1)
	}

	if err := logsink.EnsureDir(cfg.SerialLogDir); err != nil {
		fmt.Fprintf(os.Stderr, "vspcd: %v\n", err)
		os.Exit(1)
	}

	reg := registry.New()
	sink := logsink.New(cfg.SerialLogDir)

	telnetListener := vspcconn.NewListener(vspcconn.Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		CertFile: cfg.Cert,
		KeyFile:  cfg.Key,
		URI:      cfg.URI,
		Registry: reg,
		Sink:     sink,
	})

	httpServer := consoleapi.New(consoleapi.Config{
		Host:     cfg.Host,
		Port:     cfg.WebPort,
		CertFile: cfg.Cert,
		KeyFile:  cfg.Key,
		Username: cfg.Username,
		Password: cfg.Password,
		Sink:     sink,
	})

	housekeeper := cron.New()
	if _, err := housekeeper.AddFunc("@daily", func() { reportOversizedLogs(sink.Dir) }); err != nil {
		logging.Error("failed to schedule housekeeping tick: %v", err)
	}
	housekeeper.Start()
	defer housekeeper.Stop()

	errc := make(chan error, 2)
	go func() { errc <- telnetListener.ListenAndServe() }()
	go func() { errc <- httpServer.ListenAndServe() }()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigc:
		logging.Info("received %s, shutting down", sig)
	case err := <-errc:
		if err != nil {
			logging.Error("listener terminated: %v", err)
		}
	}

	telnetListener.Close()
	httpServer.Close()
}

// reportOversizedLogs logs a warning for any per-VM console log exceeding
// oversizeThreshold. It never truncates or deletes: spec.md leaves log
// rotation out of scope, so this only surfaces the condition for an
// operator to act on.
func reportOversizedLogs(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		logging.Error("housekeeping: read %s: %v", dir, err)
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.Size() > oversizeThreshold {
			logging.Warn("console log %s is %d bytes, exceeds housekeeping threshold", entry.Name(), info.Size())
		}
	}
}
