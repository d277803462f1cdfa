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

//	@title			SCRMS Notification API
//	@version		1.0
//	@description	User notification inbox

//	@host						localhost:8082
//	@BasePath					/
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app := app.New(config.KindNotification)
	err := app.Start(ctx)
	if err != nil {
		log.Error().Err(err).Str("service", "notification").Msg("Can't start application")
		zap.L().Fatal("Can't start application: ", zap.Error(err))
	}

	err = app.Wait(ctx, cancel)
	if err != nil {
		zap.L().Fatal("All systems closed with errors. LastError:", zap.Error(err))
	}

	zap.L().Info("All systems closed without errors")
}
