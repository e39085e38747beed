// Call — CLI entry point.
//
// This tool joins a named room and establishes a full mesh of real-time
// audio connections with every other participant, coordinated by a roomd
// relay over WebSocket. Media flows peer to peer; the relay only carries
// membership events and SDP/ICE exchange.
//
// It can be launched interactively (no flags) or non-interactively via CLI
// flags (-server, -room, -name, -config, -debug).
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/pterm/pterm"

	"github.com/1ureka/1ureka.net.call/internal/config"
	"github.com/1ureka/1ureka.net.call/internal/media"
	"github.com/1ureka/1ureka.net.call/internal/room"
	"github.com/1ureka/1ureka.net.call/internal/rtc"
	"github.com/1ureka/1ureka.net.call/internal/signaling"
	"github.com/1ureka/1ureka.net.call/internal/util"
)

var version = "dev"

func main() {
	// Root context — cancelled on Ctrl+C.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// CLI flags.
	serverFlag := flag.String("server", "", "Coordinator WebSocket URL (e.g. wss://example.devtunnels.ms)")
	roomFlag := flag.String("room", "", "Room to join")
	nameFlag := flag.String("name", "", "Display name")
	configFlag := flag.String("config", "", "Path to YAML config (ICE servers, defaults)")
	debugMode := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *debugMode {
		util.EnableDebug()
	}

	pterm.Info.Println(fmt.Sprintf("Call — v%s", version))
	pterm.Println()

	// Configuration: defaults, optionally overlaid by a YAML file.
	cfg := config.Default()
	if *configFlag != "" {
		loaded, err := config.Load(*configFlag)
		if err != nil {
			util.LogError("%v", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	serverURL := firstNonEmpty(*serverFlag, cfg.ServerURL)
	roomID := firstNonEmpty(*roomFlag, cfg.Room)
	displayName := firstNonEmpty(*nameFlag, cfg.Name)

	// Missing parameters → interactive prompts.
	if serverURL == "" {
		serverURL = askServerURL()
	}
	wsURL, err := normalizeWSURL(serverURL)
	if err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}
	if roomID == "" {
		roomID = askNonEmpty("Room to join")
	}
	if displayName == "" {
		displayName = askNonEmpty("Your display name")
	}

	run(ctx, cfg, wsURL, roomID, displayName)
	util.LogInfo("call ended")
}

// run executes the full call lifecycle: capture, connect, join, status loop.
func run(ctx context.Context, cfg *config.Config, wsURL, roomID, displayName string) {
	// ── 1. Local audio capture ─────────────────────────────────────────
	src, err := media.CaptureMicrophone()
	if err != nil {
		util.LogError("failed to open microphone: %v", err)
		os.Exit(1)
	}
	defer src.Close()
	util.LogInfo("microphone ready (%d track(s))", len(src.Tracks()))

	// ── 2. Connect to coordinator ──────────────────────────────────────
	fmt.Println("Connecting to coordinator...")
	ch, err := signaling.Dial(ctx, wsURL)
	if err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}
	defer ch.Close()
	util.LogInfo("coordinator connected: %s", wsURL)

	// ── 3. Assemble the core ───────────────────────────────────────────
	factory := rtc.NewPionFactory(cfg.WebRTCConfig(), src.PopulateEngine)
	registry := rtc.NewRegistry(factory)
	ctrl := room.NewController(ch, registry, nil)
	ctrl.AttachSource(src)

	// Inbound message loop.
	runErr := make(chan error, 1)
	go func() {
		runErr <- ch.Run(ctx, ctrl)
	}()

	// ── 4. Join ────────────────────────────────────────────────────────
	if err := ctrl.Join(roomID, displayName); err != nil {
		util.LogError("failed to join room: %v", err)
		os.Exit(1)
	}
	defer ctrl.Leave()

	util.StartStatsReporter(ctx)
	util.LogSuccess("joined room %q — type 'm' to toggle mute, 'q' to leave", roomID)

	// Stdin commands.
	go readCommands(ctrl)

	// ── 5. Status loop until shutdown ──────────────────────────────────
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	var lastStatus string
	for {
		select {
		case <-ticker.C:
			snap := ctrl.Snapshot()
			if s := snap.Status.String(); s != lastStatus {
				util.LogInfo("room status: %s (%d participant(s))", s, len(snap.Participants))
				lastStatus = s
			}

		case err := <-runErr:
			if err != nil && ctx.Err() == nil {
				util.LogError("coordinator connection lost: %v", err)
			}
			return

		case <-ctx.Done():
			return
		}
	}
}

// readCommands handles the tiny interactive surface: mute toggle and leave.
func readCommands(ctrl *room.Controller) {
	muted := false
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		switch strings.TrimSpace(scanner.Text()) {
		case "m":
			muted = !muted
			ctrl.SetMuted(muted)
			if muted {
				util.LogInfo("microphone muted")
			} else {
				util.LogInfo("microphone live")
			}
		case "q":
			ctrl.Leave()
			return
		}
	}
}

// ---------------------------------------------------------------------------
// Helper Functions
// ---------------------------------------------------------------------------

// normalizeWSURL validates and normalizes a raw WebSocket URL string.
func normalizeWSURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid WebSocket URL: %s", raw)
	}
	scheme := "wss"
	if u.Scheme == "ws" || u.Scheme == "wss" {
		scheme = u.Scheme
	}
	return fmt.Sprintf("%s://%s/ws", scheme, u.Host), nil
}

// askServerURL prompts for a valid coordinator URL until one is entered.
func askServerURL() string {
	for {
		raw, _ := pterm.DefaultInteractiveTextInput.
			WithDefaultText("Coordinator URL (e.g. wss://***.asse.devtunnels.ms)").
			Show()

		if _, err := normalizeWSURL(raw); err == nil {
			pterm.Println()
			return raw
		}

		pterm.Println()
		util.LogWarning("invalid input: please enter a valid host or URL")
	}
}

// askNonEmpty prompts until a non-blank value is entered.
func askNonEmpty(prompt string) string {
	for {
		raw, _ := pterm.DefaultInteractiveTextInput.
			WithDefaultText(prompt).
			Show()

		if v := strings.TrimSpace(raw); v != "" {
			pterm.Println()
			return v
		}

		util.LogWarning("value must not be empty")
		pterm.Println()
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
