package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/flarexio/kdvector"
	"github.com/flarexio/kdvector/embedding"
	"github.com/flarexio/kdvector/embedding/chromem"
	"github.com/flarexio/kdvector/embedding/hash"
	"github.com/flarexio/kdvector/embedding/openai"
	"github.com/flarexio/kdvector/index"
	"github.com/flarexio/kdvector/persistence"
	"github.com/flarexio/kdvector/persistence/file"
	"github.com/flarexio/kdvector/textsplit"

	mcpE "github.com/flarexio/kdvector/mcp"
	httpT "github.com/flarexio/kdvector/transport/http"
	natsT "github.com/flarexio/kdvector/transport/nats"
)

func pathFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "path",
		Usage: "Path to the KDVector config and snapshot",
	}
}

func main() {
	cmd := &cli.Command{
		Name:  "kdvector",
		Usage: "KD-tree vector database service",
		Flags: []cli.Flag{
			pathFlag(),
			&cli.BoolFlag{
				Name:  "nats-enabled",
				Usage: "Enable NATS transport",
				Value: false,
			},
			&cli.StringFlag{
				Name:    "nats",
				Usage:   "NATS server URL",
				Value:   nats.DefaultURL,
				Sources: cli.EnvVars("NATS_URL"),
			},
			&cli.BoolFlag{
				Name:  "http",
				Usage: "Enable HTTP transport",
				Value: true,
			},
			&cli.StringFlag{
				Name:  "http-addr",
				Usage: "HTTP server address",
				Value: ":8080",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "build",
				Usage: "Build a balanced snapshot from a JSON lines file of points",
				Flags: []cli.Flag{
					pathFlag(),
					&cli.StringFlag{
						Name:     "input",
						Usage:    `JSON lines file, one {"vector": [...], "metadata": "..."} per line`,
						Required: true,
					},
				},
				Action: build,
			},
		},
		Action: run,
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		log.Fatal(err.Error())
	}
}

func loadConfig(path string) (*kdvector.Config, error) {
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}

		path = filepath.Join(homeDir, ".flarex", "kdvector")
	}

	f, err := os.Open(filepath.Join(path, "config.yaml"))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg kdvector.Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, err
	}

	cfg.Embedding.Dimension = cfg.Dimension

	if cfg.Snapshot.Path == "" {
		cfg.Snapshot.Path = filepath.Join(path, "index.bin")
	} else if !filepath.IsAbs(cfg.Snapshot.Path) {
		cfg.Snapshot.Path = filepath.Join(path, cfg.Snapshot.Path)
	}

	return &cfg, nil
}

func newEmbedder(cfg embedding.Config) (embedding.Embedder, error) {
	switch cfg.Provider {
	case embedding.ProviderHash:
		return hash.NewHashEmbedder(cfg.Dimension), nil

	case embedding.ProviderOpenAI:
		return openai.NewOpenAIEmbedder(cfg), nil

	default:
		return chromem.NewChromemEmbedder(cfg)
	}
}

func newStore(cfg persistence.Config) (persistence.Store, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	return file.NewFileStore(cfg)
}

func run(ctx context.Context, cmd *cli.Command) error {
	log, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer log.Sync()

	zap.ReplaceGlobals(log)

	cfg, err := loadConfig(cmd.String("path"))
	if err != nil {
		return err
	}

	embedder, err := newEmbedder(cfg.Embedding)
	if err != nil {
		return err
	}

	splitter, err := textsplit.NewSplitter(cfg.Splitter)
	if err != nil {
		return err
	}

	store, err := newStore(cfg.Snapshot)
	if err != nil {
		return err
	}

	svc, err := kdvector.NewService(ctx, *cfg, embedder, splitter, store)
	if err != nil {
		return err
	}
	defer svc.Close()

	svc = kdvector.LoggingMiddleware(log)(svc)

	endpoints := kdvector.MakeEndpoints(svc)

	// Add NATS Transport
	if cmd.Bool("nats-enabled") {
		nc, err := nats.Connect(cmd.String("nats"),
			nats.Name("KDVector Server"),
		)

		if err != nil {
			return err
		}
		defer nc.Drain()

		srv, err := micro.AddService(nc, micro.Config{
			Name:    "kdvector",
			Version: "1.0.0",
		})

		if err != nil {
			return err
		}
		defer srv.Stop()

		root := srv.AddGroup("kdvector")
		natsT.AddEndpoints(root, endpoints)

		log.Info("nats transport enabled", zap.String("topic", "kdvector"))
	}

	if cmd.Bool("http") {
		r := gin.Default()
		httpT.AddRouters(r, endpoints)
		httpT.AddStreamableRouters(r, mcpE.MakeEndpoints(svc))

		httpAddr := cmd.String("http-addr")
		go r.Run(httpAddr)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sign := <-quit

	log.Info("graceful shutdown", zap.String("signal", sign.String()))
	return nil
}

func build(ctx context.Context, cmd *cli.Command) error {
	log, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer log.Sync()

	cfg, err := loadConfig(cmd.String("path"))
	if err != nil {
		return err
	}

	if !cfg.Snapshot.Enabled {
		return errors.New("snapshot is disabled in config")
	}

	store, err := file.NewFileStore(cfg.Snapshot)
	if err != nil {
		return err
	}

	f, err := os.Open(cmd.String("input"))
	if err != nil {
		return err
	}
	defer f.Close()

	var points []index.Point

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)

	for line := 1; scanner.Scan(); line++ {
		bs := scanner.Bytes()
		if len(bs) == 0 {
			continue
		}

		var p index.Point
		if err := json.Unmarshal(bs, &p); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}

		points = append(points, p)
	}

	if err := scanner.Err(); err != nil {
		return err
	}

	idx, err := index.Build(cfg.Dimension, points)
	if err != nil {
		return err
	}

	if err := store.Save(ctx, idx); err != nil {
		return err
	}

	log.Info("snapshot built",
		zap.String("path", cfg.Snapshot.Path),
		zap.Int("size", idx.Size()),
		zap.Int("depth", idx.Depth()),
	)

	return nil
}
