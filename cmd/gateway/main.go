package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gesturesync/gesturesync/internal/gateway"
)

func main() {
	configPath := flag.String("config", "", "path to YAML gateway configuration")
	flag.Parse()

	config := gateway.DefaultConfig()
	if *configPath != "" {
		f, err := os.Open(*configPath)
		if err != nil {
			fmt.Println("Error opening config:", err)
			os.Exit(1)
		}
		config, err = gateway.LoadYAML(f)
		_ = f.Close()
		if err != nil {
			fmt.Println("Error loading config:", err)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gw := gateway.NewGateway(config, nil)

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	if err := gw.Start(ctx); err != nil {
		fmt.Println("Error starting gateway:", err)
		os.Exit(1)
	}

	<-stopCh
	cancel()
	if err := gw.Stop(context.Background()); err != nil {
		fmt.Println("Error stopping gateway:", err)
	}
	_ = gw.Close()
}
