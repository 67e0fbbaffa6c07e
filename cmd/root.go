package main

import (
	"context"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tywin1104/mc-dashboard/client"
	"github.com/tywin1104/mc-dashboard/config"
	"github.com/tywin1104/mc-dashboard/dashboard"
	"github.com/tywin1104/mc-dashboard/db"
	"github.com/tywin1104/mc-dashboard/mailer"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const connectTimeout = 10 * time.Second

var (
	cfgPath string
	rootCmd = &cobra.Command{
		Use:   "mc-dashboard",
		Short: "Whitelist request dashboard service",
	}
)

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Set up logrus logger
	log.SetOutput(os.Stdout)
	log.SetLevel(log.InfoLevel)

	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "path to YAML config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(digestCmd)
}

func loadConfig() (*viper.Viper, *config.Config, error) {
	v := viper.New()
	c, err := config.LoadConfig(v, cfgPath)
	if err != nil {
		return nil, nil, err
	}
	setLogLevel(c.LogLevel)
	return v, c, nil
}

func setLogLevel(level string) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		log.WithFields(log.Fields{
			"logLevel": level,
		}).Warn("Unknown log level. Using info")
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
}

// newSource connects to wherever the whitelist requests are read from. The
// returned func releases the connection.
func newSource(ctx context.Context, c *config.Config) (dashboard.Source, func(), error) {
	switch c.Source {
	case config.SourceMongo:
		ctx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(c.MongodbConnStr))
		if err != nil {
			return nil, nil, fmt.Errorf("connect to mongodb: %w", err)
		}
		dbSvc := db.NewService(mongoClient, c.MongodbDatabase)
		if err := dbSvc.Ping(ctx); err != nil {
			mongoClient.Disconnect(context.Background())
			return nil, nil, fmt.Errorf("ping mongodb: %w", err)
		}
		log.Info("Mongodb connection established")
		return dbSvc, func() { mongoClient.Disconnect(context.Background()) }, nil
	default:
		return client.New(c.BackendURL, c.AdminUsername, c.AdminPassword, nil), func() {}, nil
	}
}

// newMailer returns nil when there is nobody to mail or no usable SMTP config
func newMailer(c *config.Config) dashboard.Mailer {
	if len(c.Ops) == 0 {
		return nil
	}
	smtpConfig, err := mailer.LoadSMTPConfig(c.SMTPConfigFile)
	if err != nil {
		log.WithFields(log.Fields{
			"err": err.Error(),
		}).Warn("Unable to load SMTP config. Digest emails are disabled")
		return nil
	}
	return mailer.NewService(smtpConfig)
}
