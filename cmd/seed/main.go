// Command seed populates the business directory and the purchase-token
// projection with generated fixtures. It reads the same environment as the
// server: BUSINESS_ORACLE=postgres enables business seeding and
// TOKEN_ORACLE=redis writes tokens straight to Redis. With -tokens-via=kafka
// tokens are published as purchase.token_issued events instead.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/utafrali/reviewregistry/internal/config"
	oraclepg "github.com/utafrali/reviewregistry/internal/oracle/postgres"
	oracleredis "github.com/utafrali/reviewregistry/internal/oracle/redis"
	"github.com/utafrali/reviewregistry/internal/seed"
	"github.com/utafrali/reviewregistry/pkg/database"
	pkgkafka "github.com/utafrali/reviewregistry/pkg/kafka"
	"github.com/utafrali/reviewregistry/pkg/logger"
)

func main() {
	var (
		plan      seed.Plan
		owners    string
		tokensVia string
	)
	flag.Uint64Var(&plan.FirstBusinessID, "first-business", 1, "first business id")
	flag.IntVar(&plan.Businesses, "businesses", 25, "number of businesses to register")
	flag.Uint64Var(&plan.FirstTokenID, "first-token", 1, "first purchase token id")
	flag.IntVar(&plan.Tokens, "tokens", 100, "number of purchase tokens to mint")
	flag.StringVar(&owners, "owners", "ST1TEST,ST2TEST,ST3TEST", "comma-separated token owners")
	flag.StringVar(&tokensVia, "tokens-via", "redis", "token target: redis or kafka")
	flag.Uint64Var(&plan.Seed, "seed", 42, "random seed for generated names")
	flag.Parse()

	for _, o := range strings.Split(owners, ",") {
		if o = strings.TrimSpace(o); o != "" {
			plan.Owners = append(plan.Owners, o)
		}
	}

	cfg, err := config.Load(".env")
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := logger.New(config.ServiceName+"-seed", cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, plan, tokensVia, log); err != nil {
		log.Error("seeding failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, plan seed.Plan, tokensVia string, log *slog.Logger) error {
	var businesses seed.BusinessRegistrar
	if cfg.BusinessOracle == config.AdapterPostgres {
		pgCfg := cfg.Postgres()
		pool, err := database.NewPostgresPool(ctx, &pgCfg, log)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := oraclepg.Migrate(ctx, pool, log); err != nil {
			return err
		}
		businesses = oraclepg.NewBusinessDirectory(pool)
	} else {
		log.Warn("BUSINESS_ORACLE is not postgres, skipping businesses")
	}

	var tokens seed.TokenSink
	switch {
	case tokensVia == config.AdapterKafka:
		producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), log)
		defer producer.Close()
		tokens = seed.NewEventTokenSink(producer, config.ServiceName+"-seed")
	case tokensVia == config.AdapterRedis && cfg.TokenOracle == config.AdapterRedis:
		client, err := database.NewRedisClient(ctx, cfg.Redis(), log)
		if err != nil {
			return err
		}
		defer client.Close()
		tokens = oracleredis.NewTokenStore(client)
	default:
		log.Warn("no token target configured, skipping tokens", slog.String("tokens_via", tokensVia))
	}

	rep, err := seed.Run(ctx, plan, businesses, tokens, log)
	if err != nil {
		return err
	}
	log.Info("seeding complete",
		slog.Int("businesses", rep.Businesses),
		slog.Int("tokens", rep.Tokens),
	)
	return nil
}
