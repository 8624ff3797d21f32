package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"tad/util"
)

func orElse(a, b string) string {
	if a == "" {
		return b
	}
	return a
}

func init() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.LUTC)
}

func main() {
	var (
		configPath string
		listen     string
		pack       string
	)
	flag.StringVar(&configPath, "config", os.Getenv("TADSIM_CONFIG"), "YAML configuration file")
	flag.StringVar(&listen, "listen", "", "serve the configured device over websocket on this address")
	flag.StringVar(&pack, "pack", "", "write the configured audio data as a LoROM image to this file and exit")
	flag.Parse()

	logger, err := util.NewTempFileLogger("tadsim-*.log")
	if err != nil {
		log.Println(err)
	} else {
		defer logger.Close()
	}

	if err = run(configPath, listen, pack); err != nil {
		log.Printf("tadsim: %v\n", err)
		_ = util.FlushLogger()
		os.Exit(1)
	}
}

func run(configPath, listen, pack string) (err error) {
	defer func() {
		if p := recover(); p != nil {
			util.LogPanic(p)
			err = fmt.Errorf("panic: %v", p)
		}
	}()

	cfg, err := LoadConfig(configPath)
	if err != nil {
		return err
	}
	cfg.Listen = orElse(listen, cfg.Listen)

	if pack != "" {
		return WriteImage(cfg, pack)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if cfg.Listen != "" {
		return Serve(ctx, cfg)
	}

	sim, err := NewSimulation(ctx, cfg)
	if err != nil {
		return err
	}
	defer sim.Close()

	r, err := sim.Run(ctx)
	if r != nil {
		if perr := r.Fprint(os.Stdout); perr != nil {
			log.Printf("tadsim: report: %v\n", perr)
		}
	}
	return err
}
