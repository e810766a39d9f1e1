package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/viper"

	"github.com/go-playground/validator/v10"
	"github.com/lotmarket/goauction/base/ctx"
	"github.com/lotmarket/goauction/base/database/mongoclient"
	"github.com/lotmarket/goauction/base/log"
	bValidator "github.com/lotmarket/goauction/base/validator"
	"github.com/lotmarket/goauction/domain"
	mmiddleware "github.com/lotmarket/goauction/middleware"
	"github.com/lotmarket/goauction/service/ledger"
	"github.com/lotmarket/goauction/service/query"
	"github.com/lotmarket/goauction/service/token"
	auction_delivery "github.com/lotmarket/goauction/stores/auction/delivery/http"
	auction_repository "github.com/lotmarket/goauction/stores/auction/repository"
	auction_usecase "github.com/lotmarket/goauction/stores/auction/usecase"
	authority_delivery "github.com/lotmarket/goauction/stores/authority/delivery/http"
	authority_repository "github.com/lotmarket/goauction/stores/authority/repository"
	authority_usecase "github.com/lotmarket/goauction/stores/authority/usecase"
	hc_delivery "github.com/lotmarket/goauction/stores/healthcheck/delivery/http"
	hc_repo "github.com/lotmarket/goauction/stores/healthcheck/repository"
	hc_usecase "github.com/lotmarket/goauction/stores/healthcheck/usecase"
)

func init() {
	viper.SetConfigType("yaml")
	viper.SetConfigFile(`infra/configs/config.yaml`)
	err := viper.ReadInConfig()
	if err != nil {
		panic(err)
	}

	if viper.GetBool(`debug`) {
		log.Log().Info("Service RUN on DEBUG mode")
	}
}

func main() {
	// init echo
	e := echo.New()
	e.Use(middleware.Recover())
	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{}))
	e.Use(middleware.RequestID())
	middL := mmiddleware.InitMiddleware()
	e.Use(middL.ResponseLogger())
	e.Use(middL.AddContext())
	e.Use(middleware.CORS())
	e.Validator = bValidator.NewCustomValidator(validator.New())

	context := ctx.Background()

	// init mongo client
	context.Info("init mongo")
	uri := viper.GetString("mongo.uri")
	dbName := viper.GetString("mongo.dbName")
	setSafe := viper.GetBool("mongo.setSafe")
	mongoClient := mongoclient.MustConnectMongoClient(uri, dbName, setSafe)
	q := query.New(mongoClient)

	httpTimeout := viper.GetDuration("http.timeout")
	tokenClient := token.NewClient(&token.ClientCfg{
		HttpClient: http.Client{},
		Timeout:    httpTimeout,
		Endpoint:   viper.GetString("custody.endpoint"),
	})
	ledgerService := ledger.NewClient(&ledger.ClientCfg{
		HttpClient: http.Client{},
		Timeout:    httpTimeout,
		Endpoint:   viper.GetString("ledger.endpoint"),
	})

	// construct repository, usecase and delivery
	hcRepo := hc_repo.New(mongoClient)
	lotRepo := auction_repository.NewLotRepo()
	eventRepo := auction_repository.NewAsyncEventRepo(
		auction_repository.NewEventRepo(q),
		viper.GetInt("events.workers"),
	)

	adminAddresses := make([]domain.Address, 0)
	for _, addr := range viper.GetStringSlice("admin.addresses") {
		adminAddresses = append(adminAddresses, domain.Address(addr))
	}
	authorityRepo := authority_repository.New(adminAddresses)

	hc := hc_usecase.New(hcRepo)
	authorityUseCase := authority_usecase.New(&authority_usecase.AuthorityUseCaseCfg{
		Repo: authorityRepo,
	})
	auctionUseCase := auction_usecase.New(&auction_usecase.AuctionUseCaseCfg{
		LotRepo:        lotRepo,
		EventRepo:      eventRepo,
		Token:          tokenClient,
		Ledger:         ledgerService,
		Authority:      authorityUseCase,
		EngineAddress:  domain.Address(viper.GetString("engine.address")),
		FeePercentage:  domain.Percentage(viper.GetUint64("engine.feePercentage")),
		FeeBeneficiary: domain.Address(viper.GetString("engine.feeBeneficiary")),
	})

	hc_delivery.New(e, hc)
	auction_delivery.New(e, auctionUseCase, eventRepo)
	authority_delivery.New(e, authorityUseCase)

	go func() {
		if err := e.Start(viper.GetString("server.address")); err != nil && err != http.ErrServerClosed {
			log.Log().WithField("err", err).Error("shutting down the server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 10 seconds.
	// Use a buffered channel to avoid missing signals as recommended for signal.Notify
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	sig := <-quit
	log.Log().WithField("signal", sig).Info("received signal")
	shutdownCtx, cancel := ctx.WithTimeout(context, 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Log().WithField("err", err).Error("shutting down the server")
	} else {
		log.Log().Info("shutdown server successfully")
	}
}
