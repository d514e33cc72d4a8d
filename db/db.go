package db

import (
	"os"
	"path/filepath"

	"selene/config"
	"selene/models"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres"
	_ "github.com/jinzhu/gorm/dialects/sqlite"
	log "github.com/sirupsen/logrus"
)

var conf config.Configuration

func SetConfigurations(configuration config.Configuration) {
	conf = configuration
}

// Connect opens the DB connection (sqlite3 by default) and runs the basic
// automigrate. Enable automigrate in dev with AUTOMIGRATE=1.
func Connect() (*gorm.DB, error) {
	database := conf.Database
	if database == "" {
		database = "sqlite3"
	}

	var (
		db  *gorm.DB
		err error
	)

	if database == "postgres" || database == "postgresql" {
		log.Info("Connecting to postgresql...")
		path := "host=" + conf.DbHost + " port=" + conf.DbPort
		path += " user=" + conf.DbUser + " dbname=" + conf.DbName
		path += " password=" + conf.DbPass
		db, err = gorm.Open("postgres", path)
	} else {
		log.Info("Connecting to sqlite3...")
		dir := filepath.Dir("db/database.db")
		db, err = gorm.Open("sqlite3", dir+"/database.db")
	}

	if err != nil {
		log.WithError(err).Error("database connection failed")
		return nil, err
	}

	db.LogMode(getenv("DB_LOG", "0") == "1")

	if getenv("AUTOMIGRATE", "0") == "1" {
		AutoMigrate(db)
	}

	return db, nil
}

// AutoMigrate creates/updates every table the app owns. Also used by tests.
func AutoMigrate(db *gorm.DB) *gorm.DB {
	return db.AutoMigrate(
		&models.User{},
		&models.RefreshToken{},
		&models.Assessment{},
		&models.CycleLog{},
		&models.Conversation{},
		&models.Message{},
		&models.WebhookJob{},
		&models.ScheduledTask{},
	)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
