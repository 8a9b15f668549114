package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"uc-donate-bot/internal/model"
	"uc-donate-bot/internal/repository"
)

// orderResponse 订单响应结构（自定义 JSON 输出）
type orderResponse struct {
	ID         int64  `json:"id"`
	UserID     int64  `json:"user_id"`
	Username   string `json:"username"`
	Option     string `json:"option"`
	Amount     int64  `json:"amount"`
	Status     string `json:"status"`
	StatusText string `json:"status_text"`
	CreatedAt  string `json:"created_at"`
	Note       string `json:"note,omitempty"`
}

// apiResponse 统一 API 响应
type apiResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// listData 列表数据
type listData struct {
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
	Orders   []orderResponse `json:"orders"`
}

// HTTPHandler 只读管理接口处理器
type HTTPHandler struct {
	orderRepo *repository.OrderRepository
}

// NewHTTPServer 创建并返回 HTTP 服务器
func NewHTTPServer(orderRepo *repository.OrderRepository, port int) *http.Server {
	handler := &HTTPHandler{orderRepo: orderRepo}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/orders", handler.handleOrders)

	return &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}
}

// handleOrders 处理订单列表请求
func (h *HTTPHandler) handleOrders(w http.ResponseWriter, r *http.Request) {
	// CORS 头
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, apiResponse{
			Code:    -1,
			Message: "仅支持 GET 请求",
		})
		return
	}

	query := r.URL.Query()

	// 解析分页参数
	page, _ := strconv.Atoi(query.Get("page"))
	pageSize, _ := strconv.Atoi(query.Get("page_size"))

	filter := repository.OrderFilter{
		Status:   query.Get("status"),
		Page:     page,
		PageSize: pageSize,
	}

	// 解析 user_id（可选）
	if userIDStr := query.Get("user_id"); userIDStr != "" {
		userID, err := strconv.ParseInt(userIDStr, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, apiResponse{
				Code:    -1,
				Message: "user_id 参数无效",
			})
			return
		}
		filter.UserID = userID
	}

	// 校验 status（可选）
	if filter.Status != "" {
		switch filter.Status {
		case model.StatusPending, model.StatusPaidWaiting, model.StatusDone:
		default:
			writeJSON(w, http.StatusBadRequest, apiResponse{
				Code:    -1,
				Message: "status 参数无效，应为 pending、paid_waiting、done",
			})
			return
		}
	}

	// 查询数据
	orders, total, err := h.orderRepo.ListOrders(filter)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, apiResponse{
			Code:    -1,
			Message: "查询失败: " + err.Error(),
		})
		return
	}

	// 规范化分页参数（与 Repository 保持一致）
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	if filter.PageSize > 100 {
		filter.PageSize = 100
	}

	// 构建响应
	orderList := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		orderList = append(orderList, toOrderResponse(o))
	}

	writeJSON(w, http.StatusOK, apiResponse{
		Code:    0,
		Message: "success",
		Data: listData{
			Total:    total,
			Page:     filter.Page,
			PageSize: filter.PageSize,
			Orders:   orderList,
		},
	})
}

// toOrderResponse 将 model.Order 转为响应结构
func toOrderResponse(o model.Order) orderResponse {
	return orderResponse{
		ID:         o.ID,
		UserID:     o.UserID,
		Username:   o.Username,
		Option:     o.Option,
		Amount:     o.Amount,
		Status:     o.Status,
		StatusText: statusText(o.Status),
		CreatedAt:  o.CreatedAt.Format("2006-01-02T15:04:05Z"),
		Note:       o.Note,
	}
}

// statusText 将状态转为中文描述
func statusText(status string) string {
	switch status {
	case model.StatusPending:
		return "待付款"
	case model.StatusPaidWaiting:
		return "已付待确认"
	case model.StatusDone:
		return "已完成"
	default:
		return "未知"
	}
}

// writeJSON 写入 JSON 响应
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}
