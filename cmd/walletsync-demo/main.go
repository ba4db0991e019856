// Command walletsync-demo loads a wallet-synchronizer config, opens a log
// file, and runs until signalled. It exists to show the ambient pieces
// (config loading, logging, graceful shutdown) wired the way an integrator
// would; actually driving a wallet.Backend additionally requires a linked
// modules.CryptoOps and modules.DaemonClient implementation, which this
// repo deliberately does not provide.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/turtlecoin/walletd-sync/modules"
	"github.com/turtlecoin/walletd-sync/persist"
)

func main() {
	configPath := flag.String("config", "", "optional TOML config file overlaying the defaults")
	logPath := flag.String("log", "walletsync-demo.log", "log file path")
	flag.Parse()

	cfg := modules.DefaultConfig()
	if *configPath != "" {
		if err := cfg.LoadConfigFile(*configPath); err != nil {
			fmt.Fprintln(os.Stderr, "loading config:", err)
			os.Exit(1)
		}
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "invalid config:", err)
		os.Exit(1)
	}

	log, err := persist.NewFileLogger("walletsync-demo", *logPath, true)
	if err != nil {
		fmt.Fprintln(os.Stderr, "opening log file:", err)
		os.Exit(1)
	}
	defer log.Close()

	log.Println("config loaded, main loop interval", cfg.MainLoopInterval)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-sig:
			return
		case <-ticker.C:
		}
	}
}
