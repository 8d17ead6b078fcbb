package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ProjectRunspace/xlatnagiosdata/internal/applock"
	"github.com/ProjectRunspace/xlatnagiosdata/internal/config"
	"github.com/ProjectRunspace/xlatnagiosdata/internal/daemon"
)

func main() {
	configPath := flag.String("config", config.DefaultConfigFile, "path to the daemon configuration file")
	flag.Parse()

	lock, err := applock.Acquire(config.LockRootPath, config.DaemonLockFileName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer lock.Close()

	daemon.New(*configPath).Run()
}
