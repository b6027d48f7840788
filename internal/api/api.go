package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"keyword-analyzer/internal/analyzer"
	"keyword-analyzer/internal/progress"
	"keyword-analyzer/internal/storage"
)

type APIHandler struct {
	store    storage.Store
	analyzer *analyzer.Analyzer
	hub      *progress.Hub
	log      *logrus.Logger
}

func SetupRoutes(r *gin.RouterGroup, store storage.Store, a *analyzer.Analyzer, hub *progress.Hub, log *logrus.Logger) *APIHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	handler := &APIHandler{store: store, analyzer: a, hub: hub, log: log}

	r.POST("/analyze", handler.AnalyzeKeyword)
	r.POST("/longtail", handler.FindLongtail)
	r.POST("/competitor", handler.AnalyzeCompetitor)
	r.GET("/recommendations/:keyword", handler.GetRecommendations)
	r.GET("/keywords", handler.ListKeywords)
	r.GET("/keywords/:keyword", handler.GetKeyword)
	r.GET("/keywords/:keyword/rankings", handler.GetRankingHistory)
	r.GET("/stats", handler.GetStats)
	r.GET("/export", handler.ExportKeywords)
	r.GET("/ws", handler.WebSocket)
	r.GET("/health", handler.Health)

	return handler
}

type analyzeRequest struct {
	Keyword  string `json:"keyword" binding:"required"`
	Category string `json:"category"`
	Depth    int    `json:"depth"`
	UseAPI   *bool  `json:"use_api"`
	MaxPages int    `json:"max_pages"`
}

func (h *APIHandler) AnalyzeKeyword(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "keyword is required"})
		return
	}
	if req.Depth <= 0 {
		req.Depth = 1
	}
	useAPI := true
	if req.UseAPI != nil {
		useAPI = *req.UseAPI
	}

	result, err := h.analyzer.AnalyzeKeyword(c.Request.Context(), req.Keyword, req.Category, analyzer.Options{
		Depth:    req.Depth,
		UseAPI:   useAPI,
		MaxPages: req.MaxPages,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "msg": "ok", "data": result})
}

type longtailRequest struct {
	Keyword  string `json:"keyword" binding:"required"`
	Category string `json:"category"`
	Limit    int    `json:"limit"`
}

func (h *APIHandler) FindLongtail(c *gin.Context) {
	var req longtailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "keyword is required"})
		return
	}
	results, err := h.analyzer.FindLongtailKeywords(c.Request.Context(), req.Keyword, req.Category, req.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "msg": "ok", "data": gin.H{"count": len(results), "items": results}})
}

type competitorRequest struct {
	URL   string `json:"url" binding:"required"`
	Limit int    `json:"limit"`
}

func (h *APIHandler) AnalyzeCompetitor(c *gin.Context) {
	var req competitorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}
	result, err := h.analyzer.AnalyzeCompetitor(c.Request.Context(), req.URL, req.Limit)
	if err != nil {
		if errors.Is(err, analyzer.ErrInvalidStoreURL) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "msg": "ok", "data": result})
}

func (h *APIHandler) GetRecommendations(c *gin.Context) {
	keyword := c.Param("keyword")
	var category *string
	if v := c.Query("category"); v != "" {
		category = &v
	}
	rec, err := h.analyzer.GetRecommendations(keyword, category)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "msg": "ok", "data": rec})
}

func (h *APIHandler) GetKeyword(c *gin.Context) {
	keyword := c.Param("keyword")
	var category *string
	if v := c.Query("category"); v != "" {
		category = &v
	}
	data, err := h.store.GetKeyword(keyword, category)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if data == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "keyword not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "msg": "ok", "data": data})
}

func (h *APIHandler) GetRankingHistory(c *gin.Context) {
	keyword := c.Param("keyword")
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))
	entries, err := h.store.GetRankingHistory(keyword, c.Query("product_url"), days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "msg": "ok", "data": gin.H{"count": len(entries), "items": entries}})
}

func (h *APIHandler) ListKeywords(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, total, err := h.store.ListKeywords(c.Query("category"), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "msg": "ok", "data": gin.H{"items": rows, "total": total}})
}

func (h *APIHandler) GetStats(c *gin.Context) {
	stats, err := h.store.GetStats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "msg": "ok", "data": stats})
}

// ExportKeywords streams the stored keywords as an xlsx workbook.
func (h *APIHandler) ExportKeywords(c *gin.Context) {
	rows, _, err := h.store.ListKeywords(c.Query("category"), 200, 0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	f := excelize.NewFile()
	defer f.Close()
	sheet := "Keywords"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Keyword", "Category", "Search Volume", "Competition", "Updated At"}
	for i, head := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, head)
	}
	for i, row := range rows {
		category := ""
		if row.Category != nil {
			category = *row.Category
		}
		values := []interface{}{row.Keyword, category, row.SearchVolume, row.Competition, row.UpdatedAt.Format(time.RFC3339)}
		for j, v := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	filename := fmt.Sprintf("keywords_%s.xlsx", time.Now().Format("20060102_150405"))
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := f.Write(c.Writer); err != nil {
		h.log.WithError(err).Error("xlsx export failed")
	}
}

func (h *APIHandler) WebSocket(c *gin.Context) {
	h.hub.Serve(c.Writer, c.Request)
}

func (h *APIHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().Format(time.RFC3339)})
}
