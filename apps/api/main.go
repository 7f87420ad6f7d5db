package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	echoapi "github.com/trezcool/ratiba/apps/api/echo"
	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/schedule"
	"github.com/trezcool/ratiba/core/school"
	"github.com/trezcool/ratiba/core/user"
	emailsvc "github.com/trezcool/ratiba/services/email"
	logsvc "github.com/trezcool/ratiba/services/logger"
	"github.com/trezcool/ratiba/storage/database"
	sqlxrepos "github.com/trezcool/ratiba/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		core.Conf,
	)
	logger.Enable(!core.Conf.Debug)

	// set up DB
	db, err := database.Open(core.Conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			logger.Error(fmt.Sprintf("closing database: %v", err), err)
		}
	}()

	// set up services
	var mailSvc core.EmailService
	if core.Conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}
	usrSvc := user.NewService(db, sqlxrepos.NewUserRepository(db), mailSvc)
	schoolSvc := school.NewService(sqlxrepos.NewSchoolRepository(db))
	schedSvc := schedule.NewService(db, sqlxrepos.NewEntryRepository(db), schoolSvc, usrSvc, mailSvc)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", core.Conf.Build))
	defer logger.Info("Application stopped")

	// =========================================================================
	// Start Debug Service
	//
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(core.Conf.Build)
	expvar.NewString("env").Set(core.Conf.Env)

	go func() {
		if err := http.ListenAndServe(core.Conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(&echoapi.Options{
		Address:     core.Conf.Server.Address(),
		Logger:      logger,
		UserSvc:     usrSvc,
		SchoolSvc:   schoolSvc,
		ScheduleSvc: schedSvc,
	})

	go server.Start()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err = server.Stop(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
		}
	}
}
