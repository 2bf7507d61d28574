// Command sdrctl-server runs the receiver control plane: a DSP backend
// (simulator or radiod), the receiver façade built on top of it, and the
// gRPC-based RPC boundary (internal/rpcwire) plus the optional
// Prometheus/MQTT/MCP bridges, all as configured by a YAML file.
//
// Flag handling and graceful shutdown follow the teacher's main.go:
// stdlib flag, os/signal on SIGINT/SIGTERM, an explicit shutdown
// sequence before the process exits.
package main

import (
	"context"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"github.com/cwsl/sdrctl/internal/config"
	"github.com/cwsl/sdrctl/internal/dsp"
	"github.com/cwsl/sdrctl/internal/dsp/radiodriver"
	"github.com/cwsl/sdrctl/internal/dsp/sim"
	"github.com/cwsl/sdrctl/internal/mcpbridge"
	"github.com/cwsl/sdrctl/internal/metrics"
	"github.com/cwsl/sdrctl/internal/mqttbridge"
	"github.com/cwsl/sdrctl/internal/receiver"
	"github.com/cwsl/sdrctl/internal/rpcwire"
)

func main() {
	configFile := flag.String("config", "config.yaml", "Path to configuration file")
	listen := flag.String("listen", "", "Override server.listen from the config file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *listen != "" {
		cfg.Server.Listen = *listen
	}

	var backend dsp.Receiver
	switch cfg.DSP.Driver {
	case "radiod":
		rd, err := radiodriver.New(radiodriver.Config{
			StatusGroup: cfg.Radiod.StatusGroup,
			DataGroup:   cfg.Radiod.DataGroup,
			Interface:   cfg.Radiod.Interface,
		})
		if err != nil {
			log.Fatalf("failed to start radiod driver: %v", err)
		}
		defer rd.Close()
		backend = rd
	default:
		backend = sim.New()
	}

	recv := receiver.New(backend)
	defer recv.Close()

	m := metrics.New()
	go pollWorkerMetrics(recv, m)

	if cfg.Prometheus.Enabled {
		mux := http.NewServeMux()
		mux.Handle(cfg.Prometheus.Path, metrics.Handler())
		go func() {
			log.Printf("prometheus: listening on %s%s", cfg.Prometheus.Listen, cfg.Prometheus.Path)
			if err := http.ListenAndServe(cfg.Prometheus.Listen, mux); err != nil && err != http.ErrServerClosed {
				log.Printf("prometheus: server error: %v", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.MQTT.Enabled {
		bridge, err := mqttbridge.New(cfg.MQTT)
		if err != nil {
			log.Printf("mqttbridge: %v", err)
		} else {
			go bridge.Attach(ctx, recv)
			defer bridge.Close()
		}
	}

	if cfg.MCP.Enabled {
		mcp := mcpbridge.New(recv, recv.Worker())
		go func() {
			log.Printf("mcp: listening on %s", cfg.MCP.Listen)
			if err := http.ListenAndServe(cfg.MCP.Listen, mcp.Handler()); err != nil && err != http.ErrServerClosed {
				log.Printf("mcp: server error: %v", err)
			}
		}()
	}

	lis, err := net.Listen("tcp", cfg.Server.Listen)
	if err != nil {
		log.Fatalf("failed to listen on %s: %v", cfg.Server.Listen, err)
	}

	grpcServer := grpc.NewServer()
	rpcwire.Register(grpcServer, recv)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Println("shutting down server...")
		cancel()

		stopped := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-time.After(cfg.Server.ShutdownGrace):
			grpcServer.Stop()
		}
	}()

	log.Printf("sdrctl-server listening on %s (dsp.driver=%s)", cfg.Server.Listen, cfg.DSP.Driver)
	if err := grpcServer.Serve(lis); err != nil {
		log.Fatalf("grpc server error: %v", err)
	}
}

func pollWorkerMetrics(r *receiver.Facade, m *metrics.Metrics) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		m.PollWorker(r.Worker())
		m.SetActiveVfos(len(r.VfoHandles()))
	}
}
