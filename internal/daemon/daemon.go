// Package daemon drives the ingest loop: it owns the signal waiter, the
// per-iteration construction of the time-series client and spool collector,
// and the preemptible inter-iteration sleep.
package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/ProjectRunspace/xlatnagiosdata/internal/config"
	"github.com/ProjectRunspace/xlatnagiosdata/internal/logwriter"
	"github.com/ProjectRunspace/xlatnagiosdata/internal/metrics"
	"github.com/ProjectRunspace/xlatnagiosdata/internal/nagios"
	"github.com/ProjectRunspace/xlatnagiosdata/internal/runtimeenv"
	"github.com/ProjectRunspace/xlatnagiosdata/internal/spool"
	"github.com/ProjectRunspace/xlatnagiosdata/internal/tsclient"
)

// service logging constants
const (
	daemonStarted       = "Daemon started"
	daemonStopped       = "Daemon stopped"
	signalWaiterStarted = "Signal handler started"
	processingReload    = "Processing configuration reload request"
	reloadFailed        = "Configuration reload failed, keeping previous configuration"
	iterationStarted    = "Ingest iteration started"
	iterationFinished   = "Ingest iteration finished"
	backendNotUsable    = "Backend not usable this iteration"
	configurationLoaded = "Configuration loaded"
)

// Daemon is the lifecycle controller. Construct with New, drive with Run;
// Run returns once a stop signal has been honoured.
type Daemon struct {
	configPath string
	cfg        *config.Config
	log        logwriter.Writer

	stopRequested   atomic.Bool
	reloadRequested atomic.Bool
	attention       chan struct{}
}

// New returns a Daemon that will read its configuration from configPath.
func New(configPath string) *Daemon {
	return &Daemon{
		configPath: configPath,
		attention:  make(chan struct{}, 1),
	}
}

// loadConfiguration resolves the configuration file and builds the matching
// log writer. A parse failure at startup falls back to the defaults; on
// reload the caller keeps the previous configuration instead.
func (d *Daemon) loadConfiguration() error {
	cfg, err := config.Load(d.configPath)
	if err != nil {
		return err
	}
	newLog := config.NewLogWriter(cfg)
	if d.log != nil {
		d.log.Close()
	}
	d.cfg = cfg
	d.log = newLog
	logwriter.Info(d.log, configurationLoaded)
	return nil
}

// startSignalWaiter subscribes the four lifecycle signals and hands them to
// a dedicated goroutine. The goroutine is the only writer of the stop and
// reload flags; it nudges the controller's attention channel after each.
func (d *Daemon) startSignalWaiter() {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGHUP, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)
	go func() {
		for sig := range signals {
			switch sig {
			case syscall.SIGHUP:
				// ignored while a prior reload is still pending
				d.reloadRequested.CompareAndSwap(false, true)
			default:
				d.stopRequested.Store(true)
			}
			select {
			case d.attention <- struct{}{}:
			default:
			}
		}
	}()
}

// Run executes the controller sequence: load configuration, start the
// signal waiter and metrics surface, then iterate until stopped.
func (d *Daemon) Run() {
	if err := d.loadConfiguration(); err != nil {
		fmt.Fprintf(os.Stderr, "Unable to parse configuration file (%s): %v\n", d.configPath, err)
		d.cfg = config.Default()
		d.log = config.NewLogWriter(d.cfg)
	}
	defer d.log.Close()
	logwriter.InfoAnnotated(d.log, daemonStarted, fmt.Sprintf("%d", os.Getpid()), nil)

	d.startSignalWaiter()
	logwriter.Debug(d.log, signalWaiterStarted)

	metricsServer := metrics.NewServer(d.log, d.cfg.MetricsListenAddress)
	if metricsServer != nil {
		metricsServer.Start()
	}
	runtimeenv.SystemdNotify(true, "ingesting")

	for {
		if d.reloadRequested.Load() {
			logwriter.Debug(d.log, processingReload)
			if err := d.loadConfiguration(); err != nil {
				logwriter.ErrorAnnotated(d.log, reloadFailed, d.configPath, err)
			}
			d.reloadRequested.Store(false)
		}

		d.runIteration()

		if d.stopRequested.Load() {
			break
		}
		timer := time.NewTimer(time.Duration(d.cfg.DataReadDelay) * time.Second)
		select {
		case <-d.attention:
		case <-timer.C:
		}
		timer.Stop()
		if d.stopRequested.Load() {
			break
		}
	}

	if metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		metricsServer.Shutdown(ctx)
		cancel()
	}
	runtimeenv.SystemdNotify(false, "stopping")
	logwriter.Info(d.log, daemonStopped)
}

// runIteration performs one end-to-end pass: probe the backend, ensure the
// database, then drain the spool through the parser into the client.
func (d *Daemon) runIteration() {
	iterationID := uuid.NewString()
	started := time.Now()
	logwriter.DebugAnnotated(d.log, iterationStarted, iterationID, nil)

	client := tsclient.NewClient(d.log, d.cfg.InfluxHostName, d.cfg.InfluxPort,
		d.cfg.InfluxDatabaseName, d.cfg.InfluxMeasurementName, d.cfg.UnitConversionMap)
	if client.TestConnection() && client.CreateDatabaseIfNotExists() {
		collector := spool.NewCollector(d.cfg.NagiosSpoolDirectory, d.log)
		parser := nagios.NewParser(d.log)
		for collector.More() && !d.stopRequested.Load() {
			sourceLine := collector.GetNextLine()
			if sourceLine == "" {
				continue
			}
			record, ok := parser.ParsePerformanceRecord(sourceLine)
			if !ok {
				metrics.LinesRejected.Inc()
				continue
			}
			client.TransmitNagiosLine(record, sourceLine)
		}
		collector.Close()
	} else {
		logwriter.ErrorAnnotated(d.log, backendNotUsable, iterationID, nil)
		metrics.BackendUnreachable.Inc()
	}

	metrics.IterationDuration.Observe(time.Since(started).Seconds())
	logwriter.DebugAnnotated(d.log, iterationFinished, iterationID, nil)
}
