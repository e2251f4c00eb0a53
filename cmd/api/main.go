package main

import (
	"context"
	"errors"
	"time"

	config "github.com/anjiri1684/stuplan/configs"
	"github.com/anjiri1684/stuplan/database"
	"github.com/anjiri1684/stuplan/handlers"
	"github.com/anjiri1684/stuplan/imagehost"
	"github.com/anjiri1684/stuplan/jobs"
	"github.com/anjiri1684/stuplan/notifications"
	"github.com/anjiri1684/stuplan/routes"
	"github.com/anjiri1684/stuplan/services"
	"github.com/anjiri1684/stuplan/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

func newLogger(development bool) *zap.Logger {
	var (
		log *zap.Logger
		err error
	)
	if development {
		log, err = zap.NewDevelopment()
	} else {
		log, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewExample()
	}
	return log
}

func main() {
	settings, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("invalid configuration", zap.Error(err))
	}

	log := newLogger(settings.Development())
	defer log.Sync()
	zap.ReplaceGlobals(log)

	db, err := database.ConnectDB(settings.DatabaseURL, log)
	if err != nil {
		log.Fatal("failed to connect database", zap.Error(err))
	}
	if err := database.Migrate(db, log); err != nil {
		log.Fatal("failed to migrate database", zap.Error(err))
	}

	accounts := database.NewAccountRepository(db)
	uploads := database.NewAvatarUploadRepository(db)
	profileRepo := database.NewProfileRepository(db)

	var profiles services.ProfileStore = profileRepo
	if settings.RedisAddr != "" {
		client := database.NewRedisClient(settings.RedisAddr, settings.RedisPassword)
		defer client.Close()
		profiles = database.NewCachedProfileStore(profileRepo, client, settings.ProfileCacheTTL, log.Named("profile_cache"))
		log.Info("profile cache enabled", zap.String("addr", settings.RedisAddr))
	}

	images, removers, err := newImageHost(settings, uploads, log.Named("imagehost"))
	if err != nil {
		log.Fatal("failed to configure image host", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := websocket.NewHub(log.Named("hub"))
	go hub.Run(ctx)

	sessions := services.NewSessionRegistry(profiles, images, log.Named("profile"), hub.Publish)
	mailer := notifications.NewBrevoService(settings.BrevoAPIKey, settings.EmailSender, settings.EmailSenderName, log.Named("email"))

	cleanup := jobs.NewAvatarCleanup(uploads, profileRepo, settings.AvatarOrphanAge, log.Named("jobs"), removers...)
	c := cron.New()
	if _, err := c.AddFunc(settings.AvatarCleanupSchedule, cleanup.Run); err != nil {
		log.Fatal("invalid avatar cleanup schedule", zap.String("schedule", settings.AvatarCleanupSchedule), zap.Error(err))
	}
	sweep := jobs.NewSessionSweep(sessions, settings.SessionIdleTimeout, log.Named("jobs"))
	if _, err := c.AddFunc(settings.SessionSweepSchedule, sweep.Run); err != nil {
		log.Fatal("invalid session sweep schedule", zap.String("schedule", settings.SessionSweepSchedule), zap.Error(err))
	}
	c.Start()
	defer c.Stop()
	log.Info("avatar cleanup scheduled", zap.String("schedule", settings.AvatarCleanupSchedule))

	app := fiber.New(fiber.Config{
		AppName:           "StuPlan",
		CaseSensitive:     true,
		StrictRouting:     true,
		EnablePrintRoutes: settings.Development(),
		BodyLimit:         12 * 1024 * 1024,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}

			log.Error("request failed", zap.Error(err), zap.String("path", c.Path()), zap.String("method", c.Method()))
			return c.Status(code).JSON(fiber.Map{
				"status":  "error",
				"code":    code,
				"message": err.Error(),
			})
		},
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods:  "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders: "Content-Length, Authorization",
		MaxAge:        86400,
	}))
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "success",
			"message": "Welcome to StuPlan API",
		})
	})

	routes.PublicRoutes(app)
	routes.AuthRoutes(app, handlers.NewAuthHandler(accounts, sessions, mailer, settings.JWTSecret, settings.TokenTTL, log.Named("auth")), settings.JWTSecret)
	routes.ProfileRoutes(app, handlers.NewProfileHandler(sessions), settings.JWTSecret)
	routes.StreamRoutes(app, handlers.NewStreamHandler(sessions, hub, settings.JWTSecret, log.Named("stream")))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":   "ok",
			"sessions": sessions.Len(),
		})
	})

	log.Info("server starting", zap.String("port", settings.Port), zap.String("image_host", settings.ImageHost))
	if err := app.Listen(":" + settings.Port); err != nil {
		log.Fatal("server failed to start", zap.Error(err))
	}
}

// newImageHost builds the configured upload target plus every remover the
// cleanup job can use.
func newImageHost(settings *config.Settings, recorder imagehost.UploadRecorder, log *zap.Logger) (services.ImageHost, []imagehost.Remover, error) {
	var removers []imagehost.Remover

	var imgur *imagehost.Imgur
	if settings.ImgurClientID != "" {
		imgur = imagehost.NewImgur(settings.ImgurBaseURL, settings.ImgurAuthScheme, settings.ImgurClientID, recorder, log)
		removers = append(removers, imgur)
	}

	var cld *imagehost.Cloudinary
	if settings.CloudinaryURL != "" {
		var err error
		cld, err = imagehost.NewCloudinary(settings.CloudinaryURL, recorder, log)
		if err != nil {
			return nil, nil, err
		}
		removers = append(removers, cld)
	}

	switch settings.ImageHost {
	case imagehost.ProviderCloudinary:
		return cld, removers, nil
	default:
		return imgur, removers, nil
	}
}
