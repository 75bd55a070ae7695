package main

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/layer-3/faucet/adapters/chain"
	"github.com/layer-3/faucet/adapters/ethsig"
	"github.com/layer-3/faucet/adapters/events"
	"github.com/layer-3/faucet/adapters/store"
	"github.com/layer-3/faucet/adapters/tokenizer"
	"github.com/layer-3/faucet/internal/config"
	"github.com/layer-3/faucet/ports"
	"github.com/layer-3/faucet/service"
	transport "github.com/layer-3/faucet/transport/http"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	auditConsumerGroup = "faucet-audit"
	janitorInterval    = time.Minute
	shutdownTimeout    = 10 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the faucet HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// infra holds the nonce store and event transport, in process or on Redis.
type infra struct {
	nonces     ports.NonceStore
	publisher  message.Publisher
	subscriber message.Subscriber
	closers    []func() error
}

func (i *infra) Close(logger *zap.Logger) {
	for n := len(i.closers) - 1; n >= 0; n-- {
		if err := i.closers[n](); err != nil {
			logger.Warn("shutdown step failed", zap.Error(err))
		}
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if err := cfg.Chain.ValidateChain(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	in, err := setupInfra(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer in.Close(logger)

	key, err := cfg.Chain.Key()
	if err != nil {
		return err
	}
	faucet, closeChain, err := chain.Dial(ctx, cfg.Chain.RPCURL, chain.Config{
		ContractAddress:  common.HexToAddress(cfg.Chain.ContractAddress),
		MulticallAddress: common.HexToAddress(cfg.Chain.MulticallAddress),
		ChainID:          new(big.Int).SetUint64(cfg.Chain.ID),
		PrivateKey:       key,
	})
	if err != nil {
		return err
	}
	defer closeChain()
	logger.Info("chain client ready",
		zap.Uint64("chain_id", cfg.Chain.ID),
		zap.String("contract", cfg.Chain.ContractAddress),
		zap.String("faucet_account", ethsig.Address(key)),
	)

	eventPub := events.NewWatermillPublisher(in.publisher)

	authSvc := service.NewAuthService(
		service.AuthConfig{
			Domain:       cfg.SIWE.Domain,
			URI:          cfg.SIWE.URI,
			Statement:    cfg.SIWE.Statement,
			Version:      cfg.SIWE.Version,
			ChainID:      cfg.Chain.ID,
			ChallengeTTL: cfg.Auth.ChallengeTTL,
			SessionTTL:   cfg.Auth.SessionTTL,
		},
		in.nonces,
		ethsig.NewVerifier(),
		tokenizer.NewJWTTokenizer([]byte(cfg.Auth.JWTSecret)),
		eventPub,
		logger,
	)
	faucetSvc := service.NewFaucetService(faucet, eventPub, logger, cfg.Chain.Timeout)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := events.AuditLog(ctx, in.subscriber, logger); err != nil {
			logger.Error("audit log stopped", zap.Error(err))
		}
	}()

	if !devMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := transport.SetupRouter(authSvc, faucetSvc, transport.RouterConfig{
		CORSOrigins:    cfg.HTTP.CORSOrigins,
		RateLimitRPS:   cfg.HTTP.RateLimitRPS,
		RateLimitBurst: cfg.HTTP.RateLimitBurst,
		TrustedProxies: cfg.HTTP.TrustedProxies,
	}, logger)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("faucet API listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", zap.Error(err))
	}

	stop()
	wg.Wait()

	return nil
}

func setupInfra(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*infra, error) {
	wmLogger := events.NewZapLogger(logger)

	if cfg.Redis.URL == "" {
		memory := store.NewMemoryStore()
		go memory.RunJanitor(ctx, janitorInterval)

		pubSub := gochannel.NewGoChannel(gochannel.Config{}, wmLogger)
		logger.Info("using in-process nonce store and event bus")

		return &infra{
			nonces:     memory,
			publisher:  pubSub,
			subscriber: pubSub,
			closers:    []func() error{pubSub.Close},
		}, nil
	}

	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{Client: client}, wmLogger)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("create redis publisher: %w", err)
	}
	subscriber, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
		Client:        client,
		ConsumerGroup: auditConsumerGroup,
	}, wmLogger)
	if err != nil {
		_ = publisher.Close()
		_ = client.Close()
		return nil, fmt.Errorf("create redis subscriber: %w", err)
	}
	logger.Info("using redis nonce store and event streams", zap.String("addr", opts.Addr))

	return &infra{
		nonces:     store.NewRedisStore(client),
		publisher:  publisher,
		subscriber: subscriber,
		closers:    []func() error{client.Close, publisher.Close, subscriber.Close},
	}, nil
}
