package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"go.uber.org/zap"

	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/app"
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/config"
)

//	@title			SCRMS Payment API
//	@version		1.0
//	@description	Wallets: balance, history, booking payments, top-ups and refunds

//	@host						localhost:8081
//	@BasePath					/
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app := app.New(config.KindPayment)
	err := app.Start(ctx)
	if err != nil {
		log.Error().Err(err).Str("service", "payment").Msg("Can't start application")
		zap.L().Fatal("Can't start application: ", zap.Error(err))
	}

	err = app.Wait(ctx, cancel)
	if err != nil {
		zap.L().Fatal("All systems closed with errors. LastError:", zap.Error(err))
	}

	zap.L().Info("All systems closed without errors")
}
