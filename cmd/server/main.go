package main

import (
	"log"

	_ "equilibra/docs"
	"equilibra/internal/config"
	"equilibra/internal/server"
)

// @title           Equilibra API
// @version         1.0
// @description     Project management backend with webhook-driven task flow,
// @description     KPI scoring and AI meeting processing.

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @schemes http
func main() {
	cfg := config.Load()

	s, err := server.Init(cfg)
	if err != nil {
		log.Fatalf("server initialization failed: %v", err)
	}

	s.Run()
}
