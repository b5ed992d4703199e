package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/rzalamena/bgp-bench/bgp"
	"github.com/rzalamena/bgp-bench/config"
)

func main() {
	configPath := flag.String("c", "bgpbench.yaml", "configuration file")
	debug := flag.Bool("d", false, "debug logging")
	pretty := flag.Bool("p", false, "human readable log output")
	flag.Parse()

	level := zerolog.InfoLevel
	if *debug {
		level = zerolog.DebugLevel
	}

	log := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
	if *pretty {
		log = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("configuration")
	}

	if cfg.MetricsListen != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cfg.MetricsListen, mux); err != nil {
				log.Error().Err(err).Msg("metrics listener")
			}
		}()
	}

	peers := cfg.BGPPeers()
	log.Info().Int("peers", len(peers)).Msg("starting")

	pool := bgp.NewPool(peers, log)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR1)

	for s := range sig {
		if s == syscall.SIGUSR1 {
			// dump session status on demand
			if js, err := json.MarshalIndent(pool.Status(), "", " "); err == nil {
				fmt.Println(string(js))
			}
			continue
		}

		log.Info().Str("signal", s.String()).Msg("shutting down")
		break
	}

	pool.Close()
}
