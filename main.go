// Command co2grid runs the CO2 Grid Game.
//
// It supports three modes:
//  1. "server" (default) – HTTP server with REST API, WebSocket, metrics and an /mcp endpoint
//  2. "stdio-mcp" – MCP stdio server, backed by a running server or an internal one
//  3. "play" – single player terminal client
//
// Flags can also be set from the environment or a .env file. A CO2 display
// on a serial port is driven when --serial-port is given.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/co2-grid-game/api"
	"github.com/wricardo/co2-grid-game/game/config"
	"github.com/wricardo/co2-grid-game/game/engine"
	"github.com/wricardo/co2-grid-game/game/service"
	"github.com/wricardo/co2-grid-game/game/session"
	"github.com/wricardo/co2-grid-game/game/storage"
	"github.com/wricardo/co2-grid-game/transport/mcp"
	"github.com/wricardo/co2-grid-game/transport/serial"
	"github.com/wricardo/co2-grid-game/transport/websocket"
	"github.com/wricardo/co2-grid-game/tui"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "CO2 Grid Game"
)

const (
	sessionMaxAge   = 24 * time.Hour
	cleanupInterval = time.Hour
	pruneInterval   = time.Minute
)

// settings collects the flag values every mode needs
type settings struct {
	Host       string
	Port       int
	ConfigDir  string
	Config     string
	Store      string
	StaticDir  string
	SerialPort string
	SerialBaud int
	APIURL     string
	Debug      bool

	NgrokEnabled bool
	NgrokAuth    string
	NgrokDomain  string
}

func (s settings) addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// services holds everything initializeServices wired together
type services struct {
	game     service.GameService
	sessions *session.Manager
	configs  *config.Manager
	store    storage.Store
	link     *serial.Link
}

// Close flushes sessions and releases the store and the display
func (s *services) Close() {
	if err := s.sessions.SaveAllSessions(); err != nil {
		log.Error("failed to save sessions", "error", err)
	}
	if _, _, ok := s.link.Connected(); ok {
		s.link.Disconnect()
	}
	if err := s.store.Close(); err != nil {
		log.Error("failed to close store", "error", err)
	}
}

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warn("error loading .env file", "error", err)
		}
	} else {
		log.Debug("loaded environment variables from .env file")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		log.Fatal("exited with error", "error", err)
	}
}

// newCommand builds the command line interface
func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "co2grid",
		Usage:   "reach the end of the grid while keeping CO₂ low",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Value: "localhost", Usage: "HTTP server host", Sources: cli.EnvVars("HOST")},
			&cli.IntFlag{Name: "port", Value: 8080, Usage: "HTTP server port", Sources: cli.EnvVars("PORT")},
			&cli.StringFlag{Name: "config-dir", Value: "configs", Usage: "directory containing game configurations", Sources: cli.EnvVars("CONFIG_DIR")},
			&cli.StringFlag{Name: "config", Usage: "configuration used by play (default: the server default)", Sources: cli.EnvVars("CONFIG")},
			&cli.StringFlag{Name: "store", Value: "file:sessions", Usage: "storage backend: memory, file:<dir>, badger:<dir>, sqlite:<path>", Sources: cli.EnvVars("STORE")},
			&cli.StringFlag{Name: "static-dir", Usage: "serve a browser UI from this directory", Sources: cli.EnvVars("STATIC_DIR")},
			&cli.StringFlag{Name: "serial-port", Aliases: []string{"device"}, Usage: "serial port of the CO2 display", Sources: cli.EnvVars("SERIAL_PORT")},
			&cli.IntFlag{Name: "serial-baud", Value: serial.DefaultBaud, Usage: "baud rate of the CO2 display", Sources: cli.EnvVars("SERIAL_BAUD")},
			&cli.StringFlag{Name: "api-url", Value: "http://localhost:8080", Usage: "server used by stdio-mcp when it is running", Sources: cli.EnvVars("MCP_API_URL")},
			&cli.BoolFlag{Name: "debug", Usage: "enable debug logging", Sources: cli.EnvVars("DEBUG")},
			&cli.BoolFlag{Name: "ngrok", Usage: "enable ngrok tunnel", Sources: cli.EnvVars("NGROK_ENABLED")},
			&cli.StringFlag{Name: "ngrok-auth", Usage: "ngrok auth token", Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")},
			&cli.StringFlag{Name: "ngrok-domain", Usage: "custom ngrok domain", Sources: cli.EnvVars("NGROK_DOMAIN")},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("debug") {
				log.SetLevel(log.DebugLevel)
				log.SetReportCaller(true)
			}
			return ctx, nil
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runHTTPServer(ctx, settingsFrom(cmd))
		},
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "run the HTTP server with API, WebSocket and MCP endpoint",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runHTTPServer(ctx, settingsFrom(cmd))
				},
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "run an MCP stdio server",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runStdioMCP(ctx, settingsFrom(cmd))
				},
			},
			{
				Name:  "play",
				Usage: "play in the terminal",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runPlay(ctx, settingsFrom(cmd))
				},
			},
		},
	}
}

func settingsFrom(cmd *cli.Command) settings {
	return settings{
		Host:         cmd.String("host"),
		Port:         cmd.Int("port"),
		ConfigDir:    cmd.String("config-dir"),
		Config:       cmd.String("config"),
		Store:        cmd.String("store"),
		StaticDir:    cmd.String("static-dir"),
		SerialPort:   cmd.String("serial-port"),
		SerialBaud:   cmd.Int("serial-baud"),
		APIURL:       cmd.String("api-url"),
		Debug:        cmd.Bool("debug"),
		NgrokEnabled: cmd.Bool("ngrok"),
		NgrokAuth:    cmd.String("ngrok-auth"),
		NgrokDomain:  cmd.String("ngrok-domain"),
	}
}

// initializeServices wires storage, configuration, sessions, the display
// link and the game service. Background routines stop with ctx.
func initializeServices(ctx context.Context, s settings) (*services, error) {
	configManager, err := config.NewManager(s.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	store, err := storage.Open(s.Store, log.WithPrefix("storage"))
	if err != nil {
		return nil, fmt.Errorf("failed to open store %q: %w", s.Store, err)
	}

	sessionManager := session.NewManagerWithStore(store, configManager)
	if err := sessionManager.LoadPersistedSessions(); err != nil {
		log.Warn("failed to load persisted sessions", "error", err)
	}

	link := connectDisplay(s)

	gameService := service.NewGameService(sessionManager, configManager, service.WithDevice(link))

	go func() {
		if err := configManager.Watch(ctx, nil); err != nil {
			log.Warn("config hot reload disabled", "error", err)
		}
	}()
	go sessionCleanupRoutine(ctx, sessionManager)
	go storeSyncRoutine(ctx, sessionManager)

	return &services{
		game:     gameService,
		sessions: sessionManager,
		configs:  configManager,
		store:    store,
		link:     link,
	}, nil
}

// connectDisplay creates the serial link and opens the configured port.
// A port that cannot be opened is reported once; the game runs without it.
func connectDisplay(s settings) *serial.Link {
	link := serial.NewLink(serial.WithLogger(log.WithPrefix("serial")))
	if s.SerialPort == "" {
		return link
	}
	if err := link.Connect(s.SerialPort, s.SerialBaud); err != nil {
		log.Warn(service.StatusDisconnected, "port", s.SerialPort, "error", err)
		return link
	}
	log.Info(service.StatusConnected, "port", s.SerialPort, "baud", s.SerialBaud)
	return link
}

// sessionCleanupRoutine periodically drops sessions that have not been
// accessed within sessionMaxAge from memory
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(sessionMaxAge); removed > 0 {
				log.Info("cleaned up expired sessions", "count", removed)
			}
		}
	}
}

// storeSyncRoutine removes progress keys left behind by deleted sessions
func storeSyncRoutine(ctx context.Context, manager *session.Manager) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := manager.PruneOrphans(); err != nil {
				log.Warn("store sync failed", "error", err)
			}
		}
	}
}

// newHandler combines the API server with the /mcp endpoint
func newHandler(apiServer *api.Server, mcpClient *mcp.Client) http.Handler {
	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)

	mainRouter.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(responseData)
	})

	return mainRouter
}

// runHTTPServer starts the HTTP server and, when enabled, an ngrok tunnel.
// It returns after ctx is cancelled and the server has shut down.
func runHTTPServer(ctx context.Context, s settings) error {
	svc, err := initializeServices(ctx, s)
	if err != nil {
		return err
	}
	defer svc.Close()

	hub := websocket.NewHub()
	go hub.Run(ctx)

	var opts []api.Option
	if s.StaticDir != "" {
		opts = append(opts, api.WithStaticDir(s.StaticDir))
	}
	apiServer := api.NewServer(svc.game, hub, opts...)

	addr := s.addr()
	handler := newHandler(apiServer, mcp.NewClient("http://"+addr))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	errCh := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		log.Info("HTTP server listening", "addr", addr)
		log.Info("endpoints",
			"api", fmt.Sprintf("http://%s/api", addr),
			"ws", fmt.Sprintf("ws://%s/ws?session=<session_id>", addr),
			"mcp", fmt.Sprintf("http://%s/mcp", addr))

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	if s.NgrokEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrok(ctx, s, handler)
		}()
	}

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Error("HTTP server shutdown error", "error", shutdownErr)
	}

	wg.Wait()
	log.Info("server stopped")
	return err
}

// runNgrok serves handler through an ngrok tunnel until ctx is done
func runNgrok(ctx context.Context, s settings, handler http.Handler) {
	if s.NgrokAuth == "" {
		log.Warn("ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN or NGROK_AUTH_TOKEN)")
		return
	}

	var tunnel ngrokConfig.Tunnel
	if s.NgrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(s.NgrokDomain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(s.NgrokAuth))
	if err != nil {
		log.Error("failed to start ngrok tunnel", "error", err)
		return
	}
	go func() {
		<-ctx.Done()
		tun.Close()
	}()

	url := tun.URL()
	log.Info("ngrok tunnel established", "url", url, "api", url+"/api", "mcp", url+"/mcp")

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		log.Error("ngrok server error", "error", err)
	}
	log.Info("ngrok tunnel closed")
}

// apiAvailable reports whether a game server answers at baseURL
func apiAvailable(ctx context.Context, baseURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/healthz", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// runStdioMCP runs an MCP stdio server. It reuses the server at --api-url
// when one answers; otherwise it starts an internal API on a random
// loopback port.
func runStdioMCP(ctx context.Context, s settings) error {
	baseURL := s.APIURL

	if apiAvailable(ctx, baseURL) {
		log.Info("using external API server for MCP", "url", baseURL)
	} else {
		log.Info("no external API server found, starting internal HTTP server", "checked", baseURL)

		svc, err := initializeServices(ctx, s)
		if err != nil {
			return err
		}
		defer svc.Close()

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}

		hub := websocket.NewHub()
		go hub.Run(ctx)

		httpServer := &http.Server{Handler: api.NewServer(svc.game, hub)}
		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("internal HTTP server error", "error", err)
			}
		}()
		defer httpServer.Close()

		baseURL = "http://" + listener.Addr().String()
		log.Info("internal HTTP server for MCP stdio", "url", baseURL)
	}

	mcpClient := mcp.NewClient(baseURL)
	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}

// runPlay starts the terminal client on the selected configuration
func runPlay(ctx context.Context, s settings) error {
	gameConfig, err := playConfig(s)
	if err != nil {
		return err
	}

	store, err := storage.Open(s.Store, log.WithPrefix("storage"))
	if err != nil {
		return fmt.Errorf("failed to open store %q: %w", s.Store, err)
	}
	defer store.Close()

	link := connectDisplay(s)
	defer func() {
		if _, _, ok := link.Connected(); ok {
			link.Disconnect()
		}
	}()

	model, err := tui.New(gameConfig, store, tui.WithDevice(link))
	if err != nil {
		return err
	}

	// The terminal belongs to the client from here on
	if s.Debug {
		f, err := tea.LogToFile("co2grid-debug.log", "play")
		if err != nil {
			return err
		}
		defer f.Close()
		log.SetOutput(f)
	} else {
		log.SetOutput(io.Discard)
	}

	return tui.Run(ctx, model)
}

// playConfig resolves --config against the config directory. Without a
// config directory the classic table is used.
func playConfig(s settings) (*engine.GameConfig, error) {
	configManager, err := config.NewManager(s.ConfigDir)
	if err != nil {
		if s.Config != "" {
			return nil, err
		}
		log.Debug("no config directory, using classic table", "error", err)
		return engine.DefaultConfig(), nil
	}
	if s.Config == "" {
		return configManager.GetDefault(), nil
	}
	return configManager.LoadConfig(s.Config)
}
