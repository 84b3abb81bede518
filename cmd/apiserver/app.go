package main

import (
	"github.com/gin-gonic/gin"

	"redaxion/backend/internal/app/config"
	"redaxion/backend/internal/app/domains/entity/etorder"
	"redaxion/backend/internal/app/domains/repo/rpdiscount"
	"redaxion/backend/internal/app/domains/repo/rporder"
	"redaxion/backend/internal/app/domains/services/svdelivery"
	"redaxion/backend/internal/app/domains/services/svdiscount"
	"redaxion/backend/internal/app/domains/services/svdispatch"
	"redaxion/backend/internal/app/domains/services/svnotify"
	"redaxion/backend/internal/app/domains/services/svorder"
	"redaxion/backend/internal/app/gateway"
	"redaxion/backend/internal/app/gateway/flow"
	"redaxion/backend/internal/app/gateway/mercadopago"
	"redaxion/backend/internal/app/infra/mail"
	"redaxion/backend/internal/app/infra/persistence/mysql"
	redisinfra "redaxion/backend/internal/app/infra/persistence/redis"
	"redaxion/backend/internal/app/infra/storage/gcs"
	"redaxion/backend/internal/app/pipeline"
	"redaxion/backend/internal/app/pipeline/ai"
	"redaxion/backend/internal/app/pipeline/extract"
	"redaxion/backend/internal/app/pipeline/render"
	"redaxion/backend/internal/app/pipeline/transcriber"
	"redaxion/backend/internal/app/pkg/logger"
	"redaxion/backend/internal/app/server/handlers/admin"
	"redaxion/backend/internal/app/server/handlers/discount"
	"redaxion/backend/internal/app/server/handlers/order"
	"redaxion/backend/internal/app/server/handlers/payment"
	"redaxion/backend/internal/app/server/routers"
	"redaxion/backend/internal/app/taskrunner"
)

// App 组装完成的应用
type App struct {
	Engine *gin.Engine
	Runner *taskrunner.Pool
	Logger logger.Logger
}

// InitializeApp 手工依赖注入：自底向上组装全部组件。
// 返回的 cleanup 负责按依赖逆序释放资源。
func InitializeApp(cfg *config.Config) (*App, func(), error) {
	log, err := logger.NewZapLogger(cfg.App.LogLevel)
	if err != nil {
		return nil, nil, err
	}

	// 持久化
	db, err := mysql.Open(cfg.MySQL.DSN)
	if err != nil {
		return nil, nil, err
	}
	if err := mysql.AutoMigrate(db); err != nil {
		return nil, nil, err
	}
	orderRepo := rporder.NewOrderRepository(db)
	discountRepo := rpdiscount.NewDiscountRepository(db)

	pubsub, err := redisinfra.NewPubSubClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, nil, err
	}

	// 支付网关
	gateways := gateway.NewRegistry(
		flow.NewAdapter(&flow.Config{
			BaseURL:   cfg.Flow.BaseURL,
			APIKey:    cfg.Flow.APIKey,
			APISecret: cfg.Flow.APISecret,
		}, log),
		mercadopago.NewAdapter(&mercadopago.Config{
			BaseURL:     cfg.MercadoPago.BaseURL,
			AccessToken: cfg.MercadoPago.AccessToken,
			Sandbox:     cfg.MercadoPago.Sandbox,
		}, log),
	)

	// 流水线依赖
	store := gcs.NewClient(&gcs.Config{
		UploadBase: cfg.Storage.UploadBase,
		PublicBase: cfg.Storage.PublicBase,
		Bucket:     cfg.Storage.Bucket,
		Token:      cfg.Storage.Token,
	}, log)
	transcriberClient := transcriber.NewClient(&transcriber.Config{
		BaseURL: cfg.Transcriber.BaseURL,
		APIKey:  cfg.Transcriber.APIKey,
	}, log)
	aiClient := ai.NewClient(&ai.Config{
		BaseURL:     cfg.AI.BaseURL,
		APIKey:      cfg.AI.APIKey,
		Model:       cfg.AI.Model,
		Temperature: cfg.AI.Temperature,
	}, log)
	renderClient := render.NewClient(&render.Config{BaseURL: cfg.Render.BaseURL}, log)
	pdfExtractor := extract.NewPDFExtractor(log)

	registry := pipeline.NewRegistry(
		pipeline.NewTranscriptionPipeline(transcriberClient, aiClient, renderClient, store, log),
		pipeline.NewExamPipeline(pdfExtractor, aiClient, renderClient, store, log),
		pipeline.NewMeetingPipeline(transcriberClient, aiClient, renderClient, store, log),
	)

	// 任务池与交付
	runner := taskrunner.NewPool(&taskrunner.Config{
		Workers:    cfg.Runner.Workers,
		BufferSize: cfg.Runner.BufferSize,
	}, log)
	runner.Start()

	mailer := mail.NewSMTPMailer(&mail.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}, log)
	deliverer := svdelivery.NewService(orderRepo, mailer, cfg.SMTP.OperatorEmail, log)
	publisher := svnotify.NewRedisResultPublisher(pubsub, log)

	// 核心路由器与订单服务
	dispatcher := svdispatch.NewRouter(orderRepo, registry, runner, deliverer, deliverer, publisher, log)
	discountService := svdiscount.NewService(discountRepo, log)
	orderService := svorder.NewService(orderRepo, gateways, store, dispatcher, discountService, pubsub, &svorder.Config{
		BaseURL:  cfg.App.BaseURL,
		Currency: "CLP",
		Prices: map[etorder.ServiceType]int{
			etorder.ServiceTranscription: cfg.Pricing.Transcription,
			etorder.ServiceExam:          cfg.Pricing.Exam,
			etorder.ServiceMeeting:       cfg.Pricing.Meeting,
		},
	}, log)

	// HTTP 层
	orderHandler := order.NewOrderHandler(orderService, log)
	paymentHandler := payment.NewPaymentHandler(gateways, dispatcher, orderService, cfg.App.FrontendURL, log)
	discountHandler := discount.NewDiscountHandler(discountService, log)
	adminHandler := admin.NewAdminHandler(orderService, discountService, log)
	engine := routers.SetupRoutes(orderHandler, paymentHandler, discountHandler, adminHandler, cfg.Admin.APIKey, log)

	cleanup := func() {
		runner.Shutdown()
		_ = pubsub.Close()
		_ = log.Sync()
	}

	return &App{Engine: engine, Runner: runner, Logger: log}, cleanup, nil
}
