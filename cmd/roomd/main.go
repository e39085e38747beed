// Roomd — the signaling coordinator.
//
// It accepts WebSocket connections, assigns each one an opaque peer id,
// tracks room membership, and relays offer/answer/ICE messages to the
// addressed peer. No media passes through it.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/1ureka/1ureka.net.call/internal/signaling"
	"github.com/1ureka/1ureka.net.call/internal/util"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	addr := flag.String("addr", ":8090", "Listen address")
	debugMode := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *debugMode {
		util.EnableDebug()
	}

	srv := signaling.NewServer()
	port, err := srv.Start(*addr)
	if err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}
	defer srv.Close()

	util.LogInfo("coordinator listening on port %d (endpoint /ws)", port)

	<-ctx.Done()
	util.LogInfo("coordinator shutting down")
}
