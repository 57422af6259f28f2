package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"bitbucket.org/constructora/obras_backend/config"
	"bitbucket.org/constructora/obras_backend/models"
	"bitbucket.org/constructora/obras_backend/utils"
	"bitbucket.org/constructora/obras_backend/workflow"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const defaultPort = "8080"

func respondError(c *gin.Context, err error) {
	var partial *utils.PartialWriteError
	switch {
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
	case errors.Is(err, utils.ErrorConfigurationMissing):
		c.JSON(http.StatusNotFound, gin.H{"error": "budget percentage configuration missing"})
	case errors.As(err, &partial):
		// Enough context for the caller to retry just the failed item
		// through the targeted path.
		c.JSON(http.StatusInternalServerError, gin.H{"error": partial.Error(), "item_id": partial.ItemId})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func pathId(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

func createBudgetHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewBudget
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		db := config.GetDB()
		var budget *models.Budget
		err := db.Transaction(func(tx *gorm.DB) error {
			var txErr error
			budget, txErr = models.CreateBudget(tx, c.Request.Context(), input)
			return txErr
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, budget)
	}
}

func getBudgetHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		budget, err := models.GetBudgetById(config.GetDB(), c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, budget)
	}
}

func recalcBudgetHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		store := workflow.NewCostStore(config.GetDB())
		totals, err := workflow.RecalcBudget(c.Request.Context(), store, logger, id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, totals)
	}
}

func createItemHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		budgetId, ok := pathId(c, "id")
		if !ok {
			return
		}
		var input models.NewBudgetItem
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		input.BudgetId = budgetId
		db := config.GetDB()
		item, err := models.CreateBudgetItem(db, c.Request.Context(), input)
		if err != nil {
			respondError(c, err)
			return
		}
		// Structural change: full path before any total is read.
		store := workflow.NewCostStore(db)
		totals, err := workflow.RecalcBudget(c.Request.Context(), store, logger, budgetId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"item": item, "budget_totals": totals})
	}
}

func deleteItemHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		itemId, ok := pathId(c, "id")
		if !ok {
			return
		}
		db := config.GetDB()
		item, err := models.GetBudgetItemById(db, c.Request.Context(), itemId)
		if err != nil {
			respondError(c, err)
			return
		}
		if err := models.DeleteBudgetItem(db, c.Request.Context(), itemId); err != nil {
			respondError(c, err)
			return
		}
		store := workflow.NewCostStore(db)
		totals, err := workflow.RecalcBudget(c.Request.Context(), store, logger, item.BudgetId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"budget_totals": totals})
	}
}

type updateQuantityRequest struct {
	Qty decimal.Decimal `json:"qty"`
}

func updateItemQuantityHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		itemId, ok := pathId(c, "id")
		if !ok {
			return
		}
		var input updateQuantityRequest
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		store := workflow.NewCostStore(config.GetDB())
		ctx := c.Request.Context()
		if _, err := store.GetItem(ctx, itemId); err != nil {
			respondError(c, err)
			return
		}
		if err := store.WriteItemQuantity(ctx, itemId, input.Qty); err != nil {
			respondError(c, err)
			return
		}
		totals, err := workflow.RecalcItem(ctx, store, logger, itemId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"budget_totals": totals})
	}
}

type bulkQuantityRequest struct {
	Edits []workflow.QuantityEdit `json:"edits" binding:"required,dive"`
}

func bulkQuantityHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		budgetId, ok := pathId(c, "id")
		if !ok {
			return
		}
		var input bulkQuantityRequest
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		store := workflow.NewCostStore(config.GetDB())
		totals, err := workflow.ApplyQuantityEdits(c.Request.Context(), store, logger, budgetId, input.Edits)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"budget_totals": totals})
	}
}

func addLaborHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		itemId, ok := pathId(c, "id")
		if !ok {
			return
		}
		var input models.NewLaborComponent
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		db := config.GetDB()
		ctx := c.Request.Context()
		if _, err := models.GetBudgetItemById(db, ctx, itemId); err != nil {
			respondError(c, err)
			return
		}
		labor, err := models.CreateLaborComponent(db, ctx, itemId, input)
		if err != nil {
			respondError(c, err)
			return
		}
		totals, err := workflow.RecalcItem(ctx, workflow.NewCostStore(db), logger, itemId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"labor": labor, "budget_totals": totals})
	}
}

func addMaterialHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		itemId, ok := pathId(c, "id")
		if !ok {
			return
		}
		var input models.NewMaterialComponent
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		db := config.GetDB()
		ctx := c.Request.Context()
		if _, err := models.GetBudgetItemById(db, ctx, itemId); err != nil {
			respondError(c, err)
			return
		}
		material, err := models.CreateMaterialComponent(db, ctx, itemId, input)
		if err != nil {
			respondError(c, err)
			return
		}
		totals, err := workflow.RecalcItem(ctx, workflow.NewCostStore(db), logger, itemId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"material": material, "budget_totals": totals})
	}
}

func addEquipmentHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		itemId, ok := pathId(c, "id")
		if !ok {
			return
		}
		var input models.NewEquipmentComponent
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		db := config.GetDB()
		ctx := c.Request.Context()
		if _, err := models.GetBudgetItemById(db, ctx, itemId); err != nil {
			respondError(c, err)
			return
		}
		equipment, err := models.CreateEquipmentComponent(db, ctx, itemId, input)
		if err != nil {
			respondError(c, err)
			return
		}
		totals, err := workflow.RecalcItem(ctx, workflow.NewCostStore(db), logger, itemId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"equipment": equipment, "budget_totals": totals})
	}
}

func updateComponentQtyHandler(logger *logrus.Logger, kind string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		var input updateQuantityRequest
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		db := config.GetDB()
		ctx := c.Request.Context()
		var analysisId int
		var err error
		switch kind {
		case "labor":
			var labor *models.AnalysisLabor
			labor, err = models.UpdateLaborComponentQty(db, ctx, id, input.Qty)
			if labor != nil {
				analysisId = labor.AnalysisId
			}
		case "material":
			var material *models.AnalysisMaterial
			material, err = models.UpdateMaterialComponentQty(db, ctx, id, input.Qty)
			if material != nil {
				analysisId = material.AnalysisId
			}
		default:
			var equipment *models.AnalysisEquipment
			equipment, err = models.UpdateEquipmentComponentQty(db, ctx, id, input.Qty)
			if equipment != nil {
				analysisId = equipment.AnalysisId
			}
		}
		if err != nil {
			respondError(c, err)
			return
		}
		itemId, err := models.BudgetItemIdForAnalysis(db, ctx, analysisId)
		if err != nil {
			respondError(c, err)
			return
		}
		totals, err := workflow.RecalcItem(ctx, workflow.NewCostStore(db), logger, itemId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"budget_totals": totals})
	}
}

func deleteComponentHandler(logger *logrus.Logger, kind string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		db := config.GetDB()
		ctx := c.Request.Context()
		var itemId int
		var err error
		switch kind {
		case "labor":
			itemId, err = models.DeleteLaborComponent(db, ctx, id)
		case "material":
			itemId, err = models.DeleteMaterialComponent(db, ctx, id)
		default:
			itemId, err = models.DeleteEquipmentComponent(db, ctx, id)
		}
		if err != nil {
			respondError(c, err)
			return
		}
		totals, err := workflow.RecalcItem(ctx, workflow.NewCostStore(db), logger, itemId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"budget_totals": totals})
	}
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}

// customErrorLogger is a custom Gin middleware that logs only errors
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server first; app endpoints 503 until the DB is ready.
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		if config.GetDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	// In production require an explicit allowlist; allow all elsewhere.
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("token", "Origin", "Content-Type", "Authorization")
	corsConfig.AddExposeHeaders("Content-Length")
	corsConfig.AllowCredentials = true

	r.Use(cors.New(corsConfig))
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	r.POST("/budgets", createBudgetHandler())
	r.GET("/budgets/:id", getBudgetHandler())
	r.POST("/budgets/:id/recalculate", recalcBudgetHandler(logger))
	r.POST("/budgets/:id/items", createItemHandler(logger))
	r.PUT("/budgets/:id/quantities", bulkQuantityHandler(logger))
	r.DELETE("/items/:id", deleteItemHandler(logger))
	r.PUT("/items/:id/quantity", updateItemQuantityHandler(logger))
	r.POST("/items/:id/labors", addLaborHandler(logger))
	r.POST("/items/:id/materials", addMaterialHandler(logger))
	r.POST("/items/:id/equipments", addEquipmentHandler(logger))
	r.PUT("/labors/:id/quantity", updateComponentQtyHandler(logger, "labor"))
	r.PUT("/materials/:id/quantity", updateComponentQtyHandler(logger, "material"))
	r.PUT("/equipments/:id/quantity", updateComponentQtyHandler(logger, "equipment"))
	r.DELETE("/labors/:id", deleteComponentHandler(logger, "labor"))
	r.DELETE("/materials/:id", deleteComponentHandler(logger, "material"))
	r.DELETE("/equipments/:id", deleteComponentHandler(logger, "equipment"))
	r.NoRoute(customNotFoundHandler)

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	// AutoMigrate can run DDL that blocks tables; allow running migrations
	// as a separate job instead.
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	log.Println("Server started successfully")

	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}
}
