// main.go
package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/healplus/wound-care-api/config"
	"github.com/healplus/wound-care-api/endpoint"
	"github.com/healplus/wound-care-api/gemini"
	"github.com/healplus/wound-care-api/middleware"
	"github.com/healplus/wound-care-api/model"
	"github.com/healplus/wound-care-api/util"
)

func main() {
	// Load the configuration
	cfg := config.LoadConfig()

	db, err := config.ConnectDatabase()
	if err != nil {
		log.Fatalf("Error connecting to database: %v", err)
	}
	if err := db.AutoMigrate(
		&model.Patient{},
		&model.Evaluation{},
		&model.Comparison{},
		&model.User{},
		&model.Session{},
		&model.Role{},
		&model.SecurityLog{},
	); err != nil {
		log.Fatalf("Error migrating schema: %v", err)
	}
	if err := model.SeedRoles(db); err != nil {
		log.Fatalf("Error seeding roles: %v", err)
	}

	util.SetSecurityLoggerDB(db)
	util.InitPatientNameCacheFromEnv()

	if _, err := config.ConnectRedis(); err != nil {
		// The session cache and rate limiter degrade gracefully without
		// Redis; sessions fall back to the database.
		log.Printf("Redis unavailable: %v", err)
	}

	if err := util.InitGeoIP("GeoLite2-City.mmdb"); err != nil {
		log.Printf("GeoIP database not loaded: %v", err)
	}
	defer util.CloseGeoIP()

	endpoint.SetAIClient(gemini.NewClient(
		cfg.VisionAPIURL,
		cfg.NarrativeAPIURL,
		cfg.VisionAPIKey,
		cfg.AITimeout(),
	))

	// Set Gin mode from config
	gin.SetMode(cfg.GinMode)

	// Create a Gin router with default middleware
	router := gin.Default()
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.DatabaseMiddleware(db))
	router.Use(middleware.EndpointCallLogger())

	// Basic HTTP handler for root path
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": fmt.Sprintf("Welcome to %s!", cfg.AppName),
		})
	})

	router.POST("/signup", endpoint.Signup)
	router.POST("/login", endpoint.Login)

	authorized := router.Group("/", middleware.ValidateLoginToken())
	authorized.POST("/logout", endpoint.Logout)
	authorized.GET("/token/validate", endpoint.ValidateToken)

	authorized.GET("/patient", endpoint.ListPatients)

	authorized.POST("/evaluation", endpoint.CreateFirstEvaluation)
	authorized.POST("/patient/:patientId/evaluation", endpoint.CreateFollowUpEvaluation)
	authorized.GET("/patient/:patientId/evaluation", endpoint.GetEvaluationHistory)
	authorized.GET("/evaluation/:evaluationId", endpoint.GetEvaluation)
	authorized.PATCH("/evaluation/:evaluationId", endpoint.UpdateEvaluation)

	// Comparison runs call the external AI collaborator twice per request,
	// so creation is rate limited per client.
	authorized.POST("/comparison", middleware.RateLimiter(middleware.RateLimitConfig{}), endpoint.RunComparison)
	authorized.GET("/comparison", endpoint.ListComparisons)
	authorized.GET("/comparison/:comparisonId", endpoint.GetComparison)

	// Start server on specified port
	address := fmt.Sprintf(":%d", cfg.AppPort)
	if err := router.Run(address); err != nil {
		log.Fatalf("error starting server: %v", err)
	}
}
