package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"paper-judge/config"
	"paper-judge/models"
	"paper-judge/providers/doi"
	"paper-judge/providers/openai"
	"paper-judge/services"
	"paper-judge/storage"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	newPapersCounter       prometheus.Counter
	classificationsCounter *prometheus.CounterVec
)

func init() {
	newPapersCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "new_papers_added_total",
			Help: "Total number of new papers added to the database.",
		},
	)
	classificationsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classifications_total",
			Help: "Total number of stored classifications, by outcome.",
		},
		[]string{"outcome"},
	)
	prometheus.MustRegister(newPapersCounter, classificationsCounter)
}

func apiKeyAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.APISecretKey == "" {
			c.Next()
			return
		}
		apiKey := c.GetHeader("X-API-KEY")
		if apiKey != cfg.APISecretKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid API Key"})
			return
		}
		c.Next()
	}
}

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	// Setup Database Connection
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		logging.Fatal("Failed to connect to database", zap.Error(err))
	}
	logging.Info("Successfully connected to survey database.")

	// Auto-Migration: idempotentes "create if missing", kein weiteres Migrationsschema.
	logging.Info("Running database auto-migration...")
	if err := db.AutoMigrate(
		&models.Paper{},
		&models.ModelConfig{},
		&models.ModelParameter{},
		&models.Run{},
		&models.RunEntry{},
	); err != nil {
		logging.Fatal("Auto-migration failed", zap.Error(err))
	}

	// Setup Providers
	doiFetcher := doi.NewFetcher(cfg, logging)
	llmClient := openai.NewClient(cfg, logging)

	// Setup Services
	ingestService := services.NewIngestService(db, logging, doiFetcher)
	registryService := services.NewRegistryService(db, logging)
	runService := services.NewRunService(db, logging)
	classifyService := services.NewClassifyService(db, logging, registryService, llmClient)
	aggregatorService := services.NewAggregatorService(db, logging)

	// Setup Router
	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(apiKeyAuthMiddleware(cfg))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Setup Routes
	api := router.Group("/api")
	setupPaperRoutes(api, db, ingestService, logging)
	setupModelRoutes(api, registryService, logging)
	setupRunRoutes(api, runService, aggregatorService, logging)
	setupClassifyRoutes(api, classifyService, logging)
	setupExportRoutes(api, aggregatorService, logging)

	// Setup Cron für den optionalen Korpus-Snapshot nach S3
	if cfg.SnapshotConfigured() {
		s3Client, err := storage.NewS3Client(cfg)
		if err != nil {
			logging.Fatal("S3 client creation failed", zap.Error(err))
		}
		snapshotService := services.NewSnapshotService(cfg, s3Client, aggregatorService, logging)

		cronScheduler := cron.New()
		cronScheduler.AddFunc(cfg.SnapshotSchedule, func() {
			logging.Info("Running scheduled corpus snapshot...")
			if err := snapshotService.Run(context.Background()); err != nil {
				logging.Error("Snapshot job failed", zap.Error(err))
			}
		})
		cronScheduler.Start()
		logging.Info("Snapshot job scheduled", zap.String("schedule", cfg.SnapshotSchedule))
	} else {
		logging.Info("Snapshot S3 not configured, skipping snapshot job.")
	}

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      5 * time.Minute, // classify wartet synchron auf den Provider
		IdleTimeout:       120 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logging.Fatal("Failed to run server", zap.Error(err))
	}
}

func setupPaperRoutes(rg *gin.RouterGroup, db *gorm.DB, ingest *services.IngestService, log *zap.Logger) {
	// POST - BibTeX-Datei, BibTeX-Schnipsel oder DOI aufnehmen
	rg.POST("/insert_papers", func(c *gin.Context) {
		if file, err := c.FormFile("file"); err == nil && file != nil {
			if !strings.HasSuffix(strings.ToLower(file.Filename), ".bib") {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Wrong file format"})
				return
			}
			src, err := file.Open()
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "formatting file: " + err.Error()})
				return
			}
			defer src.Close()
			content, err := io.ReadAll(src)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "formatting file: " + err.Error()})
				return
			}

			count, err := ingest.InsertFromBibTeX(c.Request.Context(), string(content))
			if err != nil {
				log.Error("BibTeX file import failed", zap.String("filename", file.Filename), zap.Error(err))
				c.JSON(http.StatusBadRequest, gin.H{"error": "formatting file: " + err.Error()})
				return
			}
			newPapersCounter.Add(float64(count))
			c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Papers from %s added successfully", file.Filename)})
			return
		}

		text := c.PostForm("text")
		if strings.TrimSpace(text) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Text input has to be BibTeX or DOI"})
			return
		}
		count, err := ingest.InsertFromText(c.Request.Context(), text)
		if err != nil {
			log.Error("Text import failed", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "formatting text: " + err.Error()})
			return
		}
		newPapersCounter.Add(float64(count))
		c.JSON(http.StatusOK, gin.H{"message": "Papers added successfully"})
	})

	// GET - Listenansicht mit reduzierten Feldern
	rg.GET("/get_papers", func(c *gin.Context) {
		type paperListing struct {
			PaperID       uint   `json:"paper_id"`
			DocumentTitle string `json:"document_title"`
			Authors       string `json:"authors"`
			DOI           string `json:"doi"`
			Year          string `json:"year"`
			Abstract      string `json:"abstract"`
		}
		var papers []paperListing
		if err := db.Model(&models.Paper{}).
			Select("id AS paper_id, title AS document_title, authors, doi, year, abstract").
			Order("id").
			Scan(&papers).Error; err != nil {
			log.Error("Database query for papers failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "getting papers: " + err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"papers": papers})
	})
}

func setupModelRoutes(rg *gin.RouterGroup, registry *services.RegistryService, log *zap.Logger) {
	rg.POST("/set_model", func(c *gin.Context) {
		var req struct {
			Host       string               `json:"host"`
			Name       string               `json:"name"`
			Key        string               `json:"key"`
			Parameters []services.Parameter `json:"parameters"`
			Edit       bool                 `json:"edit"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		model, err := registry.UpsertModel(c.Request.Context(), req.Host, req.Name, req.Key, req.Parameters, req.Edit)
		if err != nil {
			log.Error("Failed to upsert model", zap.String("name", req.Name), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "setting model: " + err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"model_id": model.ID, "name": model.Name})
	})

	rg.GET("/get_models", func(c *gin.Context) {
		configs, err := registry.ListModels(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "getting models: " + err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"models": configs})
	})

	rg.POST("/get_parameters", func(c *gin.Context) {
		var req struct {
			ModelID uint `json:"model_id"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		parameters, err := registry.ListParameters(c.Request.Context(), req.ModelID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "getting parameters: " + err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"parameters": parameters})
	})
}

func setupRunRoutes(rg *gin.RouterGroup, runs *services.RunService, aggregator *services.AggregatorService, log *zap.Logger) {
	rg.POST("/set_run", func(c *gin.Context) {
		var req struct {
			Prompt string `json:"prompt"`
			IDs    []uint `json:"ids"`
			Name   string `json:"name"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		run, err := runs.CreateRun(c.Request.Context(), req.Name, req.Prompt, req.IDs)
		if err != nil {
			log.Error("Failed to create run", zap.String("alias", req.Name), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "inserting run: " + err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"run": run.ID})
	})

	rg.POST("/delete_run", func(c *gin.Context) {
		var req struct {
			RunID uint `json:"run_id"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if err := runs.DeleteRun(c.Request.Context(), req.RunID); err != nil {
			log.Error("Failed to delete run", zap.Uint("run_id", req.RunID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "deleting run: " + err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"run": req.RunID})
	})

	rg.GET("/get_runs", func(c *gin.Context) {
		allRuns, err := runs.ListRuns(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "getting runs: " + err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"runs": allRuns})
	})

	rg.POST("/get_run", func(c *gin.Context) {
		var req struct {
			ID uint `json:"id"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		views, err := aggregator.GetRunView(c.Request.Context(), req.ID)
		if err != nil {
			log.Error("Failed to build run view", zap.Uint("run_id", req.ID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "getting run: " + err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"run": views})
	})
}

func setupClassifyRoutes(rg *gin.RouterGroup, classify *services.ClassifyService, log *zap.Logger) {
	rg.POST("/classify", func(c *gin.Context) {
		var req struct {
			Model   string `json:"model"`
			Prompt  string `json:"prompt"`
			PaperID uint   `json:"paper_id"`
			RunID   uint   `json:"run_id"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		result, err := classify.Classify(c.Request.Context(), req.PaperID, req.Model, req.RunID, req.Prompt)
		if err != nil {
			// Lookup-Fehler und Persistenz-Fehler landen hier; Provider-Fehler
			// sind bereits als ERROR-Eintrag verbucht und liefern ein Result.
			log.Error("Classification failed",
				zap.Uint("paper_id", req.PaperID),
				zap.String("model", req.Model),
				zap.Error(err))
			status := http.StatusInternalServerError
			if errors.Is(err, gorm.ErrRecordNotFound) {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"error": err.Error(), "paper_id": req.PaperID, "model_name": req.Model})
			return
		}

		classificationsCounter.WithLabelValues(result.Classification.String()).Inc()
		c.JSON(http.StatusOK, result)
	})
}

func setupExportRoutes(rg *gin.RouterGroup, aggregator *services.AggregatorService, log *zap.Logger) {
	rg.POST("/export_papers", func(c *gin.Context) {
		var req struct {
			RunID     int               `json:"run_id"`
			Alias     string            `json:"alias"`
			Consensus map[string]string `json:"consensus"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		data, err := aggregator.ExportCSV(c.Request.Context(), req.RunID, req.Consensus)
		if err != nil {
			log.Error("Export failed", zap.Int("run_id", req.RunID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "exporting papers: " + err.Error()})
			return
		}

		alias := strings.TrimSpace(req.Alias)
		if alias == "" {
			alias = "papers"
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.csv", alias))
		c.Data(http.StatusOK, "text/csv", data)
	})
}
