package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"AnitMarket/internal/api"
	"AnitMarket/internal/config"
	"AnitMarket/internal/database"
	"AnitMarket/internal/interfaces"
	"AnitMarket/internal/listener"
	"AnitMarket/internal/localstore"
	"AnitMarket/internal/repository"
	"AnitMarket/internal/service"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	// 1. 加载配置文件
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("加载配置文件失败: %v", err)
	}

	// 2. 初始化日志
	logrusLogger := logrus.New()
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrusLogger.SetLevel(level)
	logrusLogger.Info("配置文件加载成功")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. 按优先级组装存储层：PostgreSQL -> SQLite -> 本地 KV
	var (
		tiers    []interfaces.Tier
		catalogs []interfaces.CatalogStore
	)
	if cfg.Postgres.Enabled {
		db, err := database.OpenPrimary(cfg, logrusLogger)
		if err != nil {
			logrusLogger.WithError(err).Warn("主存储不可用，请求将降级到后续存储层")
		}
		if db != nil {
			t := repository.NewSQLTier(service.TierPrimary, db)
			if err != nil {
				// 启动时未连通或迁移失败：连接恢复后补做迁移
				t.WithMigration(database.Migrate)
			}
			tiers = append(tiers, t)
			catalogs = append(catalogs, t.Catalog())
		}
	}
	if cfg.SQLite.Enabled {
		db, err := database.OpenEmbedded(cfg, logrusLogger)
		if err != nil {
			logrusLogger.WithError(err).Warn("嵌入式存储不可用")
		} else {
			t := repository.NewSQLTier(service.TierEmbedded, db)
			tiers = append(tiers, t)
			catalogs = append(catalogs, t.Catalog())
		}
	}
	kv, err := openLocalKV(ctx, cfg.Local, logrusLogger)
	if err != nil {
		logrusLogger.Fatalf("初始化本地存储失败: %v", err)
	}
	tiers = append(tiers, localstore.NewStore(kv, cfg.Local.KeyPrefix))

	// 4. 组装业务服务
	store := service.NewOrchestrator(tiers, logrusLogger, cfg.Storage.TierTimeout)
	marketService := service.NewMarketService(catalogs, store, logrusLogger)
	categoryService := service.NewCategoryService(catalogs, logrusLogger)
	verifier, err := service.NewVerifier(cfg.Payment, logrusLogger)
	if err != nil {
		logrusLogger.WithError(err).Warn("支付核验器初始化失败，使用模拟核验")
		verifier = service.SimulatedVerifier{}
	}
	paymentService := service.NewPaymentService(store, verifier, cfg.Payment.Recipient, logrusLogger)
	logrusLogger.WithField("verifier", verifier.Name()).WithField("recipient", paymentService.Recipient()).Info("支付服务就绪")

	// 5. 可选：订阅链上 TransferReference 事件
	if cfg.Payment.Listener {
		startChainListener(ctx, cfg.Payment, paymentService, logrusLogger)
	}

	// 6. 配置Gin运行模式（从配置读取：debug/release）
	gin.SetMode(cfg.Server.Mode)
	r := gin.Default()
	if cfg.Server.Pprof {
		// 注册ppof 方便调试和监测性能问题
		pprof.Register(r)
	}
	logrusLogger.Infof("Gin运行模式: %s", cfg.Server.Mode)

	// 7. 注册API路由
	api.RegisterRoutes(r, api.Services{
		Store:      store,
		Markets:    marketService,
		Categories: categoryService,
		Payments:   paymentService,
	}, logrusLogger)

	// 8. 启动服务（从配置读取端口）
	port := cfg.Server.Port
	logrusLogger.Infof("服务启动成功，端口：%d", port)
	if err := r.Run(fmt.Sprintf(":%d", port)); err != nil {
		logrusLogger.Fatalf("启动服务失败: %v", err)
	}
}

// openLocalKV redis 后端连接失败时退回内存
func openLocalKV(ctx context.Context, cfg config.LocalConfig, logger *logrus.Logger) (localstore.KV, error) {
	if cfg.Backend == "redis" {
		kv, err := localstore.NewRedisKV(ctx, localstore.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err == nil {
			logger.WithField("addr", cfg.RedisAddr).Info("本地存储使用 Redis")
			return kv, nil
		}
		logger.WithError(err).Warn("Redis 不可用，本地存储退回内存")
	}
	return localstore.NewMemoryKV(cfg.SnapshotPath)
}

func startChainListener(ctx context.Context, cfg config.PaymentConfig, payments *service.PaymentService, logger *logrus.Logger) {
	if cfg.WSURL == "" || cfg.ContractAddress == "" {
		logger.Warn("payment.listener 已开启但缺少 ws_url 或 contract_address，跳过链上订阅")
		return
	}
	client, err := ethclient.DialContext(ctx, cfg.WSURL)
	if err != nil {
		logger.WithError(err).Warn("连接链上 WebSocket 失败，跳过链上订阅")
		return
	}
	sub := listener.NewChainSubscriber(cfg.ContractAddress, client, listener.NewContractListener(payments, logger), logger)
	go func() {
		defer client.Close()
		if err := sub.Run(ctx); err != nil {
			logger.WithError(err).Error("链上订阅退出")
		}
	}()
}
