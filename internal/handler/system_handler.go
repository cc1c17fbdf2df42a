package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/hmochat/internal/monitor"
	"github.com/xxxsen/hmochat/internal/pkg/response"
	"github.com/xxxsen/hmochat/internal/service"
)

type IndexInfo struct {
	Model     string  `json:"model"`
	Dimension int     `json:"dimension"`
	Chunks    int     `json:"chunks"`
	BuiltAt   int64   `json:"built_at"`
	TopK      int     `json:"top_k"`
	MinScore  float64 `json:"min_score"`
}

type SystemHandler struct {
	metrics *monitor.Metrics
	chat    *service.ChatService
	index   IndexInfo
}

func NewSystemHandler(metrics *monitor.Metrics, chat *service.ChatService, index IndexInfo) *SystemHandler {
	return &SystemHandler{metrics: metrics, chat: chat, index: index}
}

type healthResponse struct {
	Status   string    `json:"status"`
	Index    IndexInfo `json:"index"`
	Sessions int       `json:"sessions"`
}

func (h *SystemHandler) Health(c *gin.Context) {
	response.Success(c, healthResponse{Status: "ok", Index: h.index, Sessions: h.chat.Count()})
}

func (h *SystemHandler) Metrics(c *gin.Context) {
	response.Success(c, h.metrics.Snapshot())
}

func (h *SystemHandler) ResetMetrics(c *gin.Context) {
	h.metrics.Reset()
	response.Success(c, h.metrics.Snapshot())
}
