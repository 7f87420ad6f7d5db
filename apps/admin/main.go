package main

import (
	"log"
	"os"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/schedule"
	"github.com/trezcool/ratiba/core/school"
	"github.com/trezcool/ratiba/core/user"
	emailsvc "github.com/trezcool/ratiba/services/email"
	"github.com/trezcool/ratiba/storage/database"
	sqlxrepos "github.com/trezcool/ratiba/storage/database/sqlx"
)

var logger *log.Logger // todo: logger service

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	// set up DB
	db, err := database.Open(core.Conf)
	errAndDie(err)
	defer db.Close()
	errAndDie(db.Ping())

	// set up repos & services
	usrRepo := sqlxrepos.NewUserRepository(db)
	schoolRepo := sqlxrepos.NewSchoolRepository(db)
	mailSvc := emailsvc.NewConsoleService()
	usrSvc := user.NewService(db, usrRepo, mailSvc)
	schoolSvc := school.NewService(schoolRepo)
	schedSvc := schedule.NewService(db, sqlxrepos.NewEntryRepository(db), schoolSvc, usrSvc, mailSvc)

	// start CLI
	cli := commandLine{
		db:         db,
		usrRepo:    usrRepo,
		schoolRepo: schoolRepo,
		schedSvc:   schedSvc,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
