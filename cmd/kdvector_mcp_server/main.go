package main

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/nats-io/nats.go"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/flarexio/kdvector"

	mcpE "github.com/flarexio/kdvector/mcp"
	natsT "github.com/flarexio/kdvector/transport/nats"
)

// maxMessageSize bounds one JSON-RPC line; uploaded documents travel inline.
const maxMessageSize = 16 * 1024 * 1024

// StdioServer answers newline-delimited JSON-RPC requests with the kdvector
// MCP endpoints.
type StdioServer struct {
	endpoints map[mcp.MCPMethod]mcpE.MCPEndpoint
	log       *zap.Logger
}

func NewStdioServer(svc kdvector.Service, log *zap.Logger) *StdioServer {
	return &StdioServer{
		endpoints: mcpE.MakeEndpoints(svc),
		log:       log.With(zap.String("transport", "stdio")),
	}
}

// Handle answers one line. Malformed lines and notifications get no reply.
func (s *StdioServer) Handle(ctx context.Context, line []byte) ([]byte, bool) {
	if len(line) == 0 {
		return nil, false
	}

	var req mcpE.JSONRPCRequest
	if err := json.Unmarshal(line, &req); err != nil {
		s.log.Warn("invalid request", zap.Error(err))
		return nil, false
	}

	if req.ID.IsNil() {
		return nil, false
	}

	resp := mcpE.MethodNotFound(req.ID)
	if endpoint, ok := s.endpoints[req.Method]; ok {
		resp = endpoint(ctx, req)
	}

	bs, err := json.Marshal(resp)
	if err != nil {
		s.log.Error(err.Error(), zap.String("method", string(req.Method)))
		return nil, false
	}

	return bs, true
}

// Serve handles requests from r until it is exhausted or ctx is done.
// Requests are answered one at a time, in order.
func (s *StdioServer) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxMessageSize)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		bs, ok := s.Handle(ctx, scanner.Bytes())
		if !ok {
			continue
		}

		bs = append(bs, '\n')
		if _, err := w.Write(bs); err != nil {
			return err
		}
	}

	return scanner.Err()
}

func main() {
	cmd := &cli.Command{
		Name:  "kdvector_mcp_server",
		Usage: "KDVector MCP Server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "nats",
				Usage:   "NATS server URL",
				Value:   nats.DefaultURL,
				Sources: cli.EnvVars("NATS_URL"),
			},
			&cli.StringFlag{
				Name:    "nats-creds",
				Usage:   "NATS user credentials file",
				Sources: cli.EnvVars("NATS_CREDS"),
			},
			&cli.StringFlag{
				Name:  "topic",
				Usage: "Subject prefix of the KDVector service",
				Value: "kdvector",
			},
		},
		Action: run,
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		log.Fatal(err.Error())
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Stdout carries the protocol, so logs go to stderr.
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}

	log, err := cfg.Build()
	if err != nil {
		return err
	}
	defer log.Sync()

	opts := []nats.Option{
		nats.Name("KDVector MCP Server"),
	}

	if natsCreds := cmd.String("nats-creds"); natsCreds != "" {
		opts = append(opts, nats.UserCredentials(natsCreds))
	}

	nc, err := nats.Connect(cmd.String("nats"), opts...)
	if err != nil {
		return err
	}
	defer nc.Drain()

	endpoints := natsT.MakeEndpoints(nc, cmd.String("topic"))

	var svc kdvector.Service
	svc = kdvector.ProxyMiddleware(endpoints)(svc)

	s := NewStdioServer(svc, log)

	errs := make(chan error, 1)
	go func() {
		errs <- s.Serve(ctx, os.Stdin, os.Stdout)
	}()

	select {
	case <-ctx.Done():
		log.Info("graceful shutdown")
		return nil

	case err := <-errs:
		return err
	}
}
