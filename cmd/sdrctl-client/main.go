// Command sdrctl-client is a minimal example client: it dials a
// sdrctl-server, subscribes to the receiver-scope event stream, and
// prints every event's kind as it arrives until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/cwsl/sdrctl/internal/rpcwire"
)

func main() {
	url := flag.String("url", "127.0.0.1:50050", "sdrctl-server address")
	syncOnly := flag.Bool("sync-only", false, "print only the synthetic sync-replay events, then exit")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		cancel()
	}()

	client, err := rpcwire.Dial(ctx, *url, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatalf("failed to dial %s: %v", *url, err)
	}
	defer client.Close()

	events, err := client.Subscribe(ctx)
	if err != nil {
		log.Fatalf("subscribe failed: %v", err)
	}

	for env := range events {
		fmt.Printf("%s\n", env.Kind)
		if *syncOnly && env.Kind == "events.SyncEnd" {
			return
		}
	}
}
