// Command gomoku-server runs the Gomoku matchmaking and relay server.
//
// It supports two modes:
//  1. "server" (default) – runs the HTTP server exposing the lobby WebSocket, REST API, metrics and an /mcp endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Flags control host/port, the config file, debug logging, version output,
// and optional ngrok tunneling for easy external access during development.
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
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/gomoku-server/api"
	"github.com/wricardo/gomoku-server/config"
	"github.com/wricardo/gomoku-server/game/lobby"
	"github.com/wricardo/gomoku-server/game/service"
	"github.com/wricardo/gomoku-server/transport/mcp"
	"github.com/wricardo/gomoku-server/transport/websocket"
	"go.uber.org/zap"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
	"golang.org/x/sync/errgroup"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Gomoku Server"
)

func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", AppName, err)
		os.Exit(1)
	}
}

// newRootCommand builds the CLI. The root action and the "server"
// subcommand are the same.
func newRootCommand() *cli.Command {
	return &cli.Command{
		Name:    "gomoku-server",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Path to a config file (yaml, json or toml)",
				Sources: cli.EnvVars("CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:  "host",
				Value: "localhost",
				Usage: "HTTP server host",
			},
			&cli.IntFlag{
				Name:  "port",
				Value: 8080,
				Usage: "HTTP server port",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
			&cli.BoolFlag{
				Name:  "ngrok",
				Usage: "Enable ngrok tunnel (auth token from NGROK_AUTHTOKEN)",
			},
			&cli.StringFlag{
				Name:  "ngrok-domain",
				Usage: "Custom ngrok domain (optional)",
			},
		},
		Action: runServer,
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "Run HTTP server with WebSocket lobby, API, and MCP endpoint (default)",
				Action:  runServer,
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "Run MCP stdio server with internal HTTP server",
				Action:  runStdioMCP,
			},
		},
	}
}

// loadConfig reads the config file and environment, then applies flags
// that were set explicitly.
func loadConfig(cmd *cli.Command) (config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return config.Config{}, err
	}

	if cmd.IsSet("host") {
		cfg.Server.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Server.Port = int(cmd.Int("port"))
	}
	if cmd.Bool("debug") {
		cfg.Server.LogLevel = "debug"
	}
	if cmd.IsSet("ngrok") {
		cfg.Ngrok.Enabled = cmd.Bool("ngrok")
	}
	if cmd.IsSet("ngrok-domain") {
		cfg.Ngrok.Domain = cmd.String("ngrok-domain")
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// newLogger writes to stderr so stdout stays free for the MCP stdio transport.
func newLogger(cfg config.Config) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(cfg.Level())
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.ErrorOutputPaths = []string{"stderr"}
	return zcfg.Build()
}

// app is the wired server: the lobby executor, the websocket hub and the
// HTTP handler serving both.
type app struct {
	lobby   *lobby.Lobby
	hub     *websocket.Hub
	service service.LobbyService
	handler http.Handler
}

func newApp(cfg config.Config, logger *zap.Logger, mcpBaseURL string) *app {
	l := lobby.New(lobby.WithLogger(logger.Named("lobby")))

	hub := websocket.NewHub(l, websocket.Options{
		ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
		WriteBufferSize: cfg.WebSocket.WriteBufferSize,
		MaxMessageSize:  cfg.WebSocket.MaxMessageSize,
		SendBuffer:      cfg.WebSocket.SendBuffer,
		WriteWait:       cfg.WebSocket.WriteWait,
		PongWait:        cfg.WebSocket.PongWait,
		PingPeriod:      cfg.WebSocket.PingPeriod,
		AllowedOrigins:  cfg.WebSocket.AllowedOrigins,
	}, logger.Named("websocket"))

	lobbyService := service.NewLobbyService(l, hub)
	apiServer := api.NewServer(lobbyService, hub, cfg.Server.StaticDir)

	// Create main router that combines API and MCP
	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", mcpHandler(mcp.NewClient(mcpBaseURL)))

	return &app{
		lobby:   l,
		hub:     hub,
		service: lobbyService,
		handler: mainRouter,
	}
}

// run drives the lobby executor and the hub until ctx is done.
func (a *app) run(ctx context.Context, eg *errgroup.Group) {
	eg.Go(func() error {
		return a.lobby.Run(ctx)
	})
	eg.Go(func() error {
		return a.hub.Run(ctx)
	})
}

// mcpHandler answers single JSON-RPC messages posted to /mcp.
func mcpHandler(client *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
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

		response := client.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	}
}

// runServer starts the HTTP server with the lobby WebSocket, REST API and
// /mcp endpoint. If ngrok is enabled it also serves through a public tunnel.
func runServer(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	addr := cfg.Addr()
	logger.Info("starting", zap.String("app", AppName), zap.String("version", Version), zap.String("mode", "server"))

	a := newApp(cfg, logger, "http://"+addr)

	httpServer := &http.Server{
		Addr:        addr,
		Handler:     a.handler,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	eg, ctx := errgroup.WithContext(ctx)
	a.run(ctx, eg)

	eg.Go(func() error {
		logger.Info("HTTP server listening",
			zap.String("addr", addr),
			zap.String("websocket", "ws://"+addr+"/ws"),
			zap.String("api", "http://"+addr+"/api"),
			zap.String("mcp", "http://"+addr+"/mcp"))

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen and serve: %w", err)
		}
		return nil
	})

	if cfg.Ngrok.Enabled {
		eg.Go(func() error {
			return serveNgrok(ctx, cfg, httpServer, logger.Named("ngrok"))
		})
	}

	eg.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown HTTP server: %w", err)
		}
		return nil
	})

	if err := eg.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

// serveNgrok serves the HTTP server through an ngrok tunnel. A missing auth
// token only disables the tunnel.
func serveNgrok(ctx context.Context, cfg config.Config, httpServer *http.Server, logger *zap.Logger) error {
	if cfg.Ngrok.AuthToken == "" {
		logger.Warn("ngrok enabled but no auth token provided (use NGROK_AUTHTOKEN or NGROK_AUTH_TOKEN)")
		return nil
	}

	var tunnel ngrokConfig.Tunnel
	if cfg.Ngrok.Domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(cfg.Ngrok.Domain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(cfg.Ngrok.AuthToken))
	if err != nil {
		logger.Error("failed to start ngrok tunnel", zap.Error(err))
		return nil
	}

	url := tun.URL()
	logger.Info("ngrok tunnel established",
		zap.String("url", url),
		zap.String("websocket", url+"/ws"),
		zap.String("mcp", url+"/mcp"))

	// Shutdown of httpServer closes the tunnel listener.
	if err := httpServer.Serve(tun); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve ngrok tunnel: %w", err)
	}
	return nil
}

// runStdioMCP runs an MCP stdio server. It reuses an API already listening
// on the configured address; otherwise it starts an internal server on a
// random loopback port and targets that.
func runStdioMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("starting", zap.String("app", AppName), zap.String("version", Version), zap.String("mode", "stdio-mcp"))

	externalURL := "http://" + cfg.Addr()
	if apiAvailable(ctx, externalURL) {
		logger.Info("external API server found, using it for MCP", zap.String("url", externalURL))
		return server.ServeStdio(mcp.NewClient(externalURL).GetMCPServer())
	}

	logger.Info("no external API server found, starting internal HTTP server")

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("listen on loopback: %w", err)
	}
	baseURL := "http://" + listener.Addr().String()

	a := newApp(cfg, logger, baseURL)
	httpServer := &http.Server{Handler: a.handler}

	ctx, cancel := context.WithCancel(ctx)
	eg, ctx := errgroup.WithContext(ctx)
	a.run(ctx, eg)

	eg.Go(func() error {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve internal API: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		return httpServer.Close()
	})

	logger.Info("MCP stdio server ready (using internal HTTP server)", zap.String("url", baseURL))
	serveErr := server.ServeStdio(mcp.NewClient(baseURL).GetMCPServer())

	cancel()
	if err := eg.Wait(); err != nil {
		logger.Error("internal server error", zap.Error(err))
	}
	return serveErr
}

// apiAvailable reports whether a lobby API answers its health check at baseURL.
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
