package main

import (
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"PosLedger/app/config"
	"PosLedger/app/database"
	"PosLedger/app/services"
	"PosLedger/app/websocket"
)

func main() {
	cfg := config.Load()

	logger := services.NewLoggerService(cfg.LogDir)
	defer logger.Close()
	logger.LogInfo("Starting PosLedger", "addr: "+cfg.HTTPAddr)

	local, err := database.OpenLocal(cfg.LocalDBPath, cfg.AdminUser, cfg.AdminPassword)
	if err != nil {
		log.Fatalf("Failed to open local database: %v", err)
	}
	defer local.Close()

	// A missing or unreachable remote store is not fatal: the app keeps
	// working on the local database and simply does not mirror.
	var remote database.Remote
	if cfg.RemoteDSN != "" {
		remoteDB, err := database.OpenRemote(cfg.RemoteDSN)
		if err != nil {
			logger.LogWarning("Remote mirror unavailable, running local-only", err.Error())
		} else {
			remote = remoteDB
			defer remoteDB.Close()
		}
	} else {
		logger.LogInfo("No remote store configured, running local-only")
	}

	syncService := services.NewSyncService(local, remote, cfg.SyncInterval)
	userService := services.NewUserService(local, syncService)
	customerService := services.NewCustomerService(local, syncService)
	productService := services.NewProductService(local, syncService)
	vendorService := services.NewVendorService(local, syncService)
	paymentService := services.NewPaymentService(local, syncService)
	settingsService := services.NewSettingsService(local, syncService)
	salesService := services.NewSalesService(local, syncService, settingsService)
	reportsService := services.NewReportsService(local)
	sheetsService := services.NewSheetsService(reportsService,
		cfg.SheetsCredentialsFile, cfg.SheetsSpreadsheetID, cfg.SheetsSheetName)
	backupService := services.NewBackupService(local, syncService, filepath.Dir(cfg.LocalDBPath))

	scheduler := services.NewReportSchedulerService(sheetsService, cfg.SheetsExportTime)
	if cfg.SheetsExportTime != "" {
		if err := scheduler.Start(); err != nil {
			logger.LogWarning("Report scheduler not started", err.Error())
		}
	}

	handlers := websocket.NewRESTHandlers(
		userService,
		customerService,
		productService,
		vendorService,
		paymentService,
		salesService,
		settingsService,
		reportsService,
		sheetsService,
		backupService,
		syncService,
		local,
	)
	server := websocket.NewServer(cfg.HTTPAddr, local, handlers, cfg.EnableMDNS)

	errCh := make(chan error, 1)
	go func() {
		defer logger.RecoverPanic()
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.LogInfo("Shutting down", sig.String())
	case err := <-errCh:
		if err != nil {
			logger.LogError("Server failed", err)
		}
	}

	server.Stop()
	scheduler.Stop()
	syncService.Stop()
	syncService.WaitForPushes()
	logger.LogInfo("Shutdown complete")
}
