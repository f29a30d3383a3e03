package main

import (
	"context"

	"github.com/RonnelR/italics-api/config"
	"github.com/RonnelR/italics-api/models"
	"github.com/RonnelR/italics-api/routes"
	"github.com/RonnelR/italics-api/storage"
	"github.com/RonnelR/italics-api/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(
		&models.User{},
		&models.Category{},
		&models.Blog{},
		&models.Comment{},
		&models.BlogLike{},
		&models.SavedBlog{},
	)

	utils.InitRedis(cfg)

	images, err := storage.NewS3Store(context.Background(), cfg)
	if err != nil {
		utils.Sugar.Fatalf("object store init failed: %v", err)
	}

	r := routes.SetupRouter(cfg, routes.Deps{
		DB:     db,
		Tokens: utils.NewTokenService(cfg.JWTSecret),
		Images: images,
		Mailer: utils.NewSMTPMailer(cfg),
	})

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
