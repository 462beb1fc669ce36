package main

import (
	"log"
	"os"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"keeper_back/assets"
	"keeper_back/authorization"
	"keeper_back/events"
	"keeper_back/export"
	"keeper_back/licenses"
	"keeper_back/projects"
	"keeper_back/storage"
)

func mustLoadEnv() {
	_ = godotenv.Load()
}

func corsConfig() cors.Config {
	config := cors.DefaultConfig()
	config.AllowHeaders = append(config.AllowHeaders, "Authorization")

	if origins := strings.TrimSpace(os.Getenv("CORS_ALLOW_ORIGINS")); origins != "" {
		config.AllowOrigins = strings.Split(origins, ",")
	} else {
		// Local UI served from another port during development.
		config.AllowAllOrigins = true
	}

	return config
}

func main() {
	mustLoadEnv()

	r := gin.Default()
	r.Use(cors.New(corsConfig()))

	catalog := licenses.LoadCatalog()
	licenses.RegisterRoutes(r, catalog)

	authModule, err := authorization.RegisterRoutes(r)
	if err != nil {
		log.Fatalf("register auth routes: %v", err)
	}
	guard := authModule.Guard()

	hub := events.RegisterRoutes(r)

	if _, err := projects.RegisterRoutes(r, guard, hub); err != nil {
		log.Fatalf("register project routes: %v", err)
	}

	if _, err := assets.RegisterRoutes(r, guard, catalog, hub); err != nil {
		log.Fatalf("register asset routes: %v", err)
	}

	if _, err := export.RegisterRoutes(r); err != nil {
		log.Fatalf("register export routes: %v", err)
	}

	if _, err := storage.RegisterRoutes(r, guard); err != nil {
		log.Fatalf("register storage routes: %v", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	if err := r.Run(":" + port); err != nil {
		log.Fatalf("start server: %v", err)
	}
}
