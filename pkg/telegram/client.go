package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

const DefaultBaseURL = "https://api.telegram.org"

// apiResponse Bot API 统一响应
type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
}

// Client Telegram Bot API HTTP 客户端
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	pollClient *http.Client
}

// NewClient 创建 Bot API 客户端
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		// 长轮询请求用独立客户端，超时由每次请求的 context 控制
		pollClient: &http.Client{},
	}
}

func (c *Client) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
}

// call 调用 Bot API 方法，result 为 nil 时丢弃返回值
func (c *Client) call(ctx context.Context, httpClient *http.Client, method string, params interface{}, result interface{}) error {
	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("序列化请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(method), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("请求 Bot API 失败: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取响应失败: %w", err)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return fmt.Errorf("解析响应失败: %w", err)
	}

	if !apiResp.OK {
		return fmt.Errorf("Bot API 返回失败 (%s): %s", method, apiResp.Description)
	}

	if result != nil {
		if err := json.Unmarshal(apiResp.Result, result); err != nil {
			return fmt.Errorf("解析 result 失败: %w", err)
		}
	}
	return nil
}

// GetUpdates 长轮询获取更新，offset 为上次处理的 update_id + 1
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeoutSec int) ([]Update, error) {
	params := struct {
		Offset  int64 `json:"offset"`
		Timeout int   `json:"timeout"`
	}{Offset: offset, Timeout: timeoutSec}

	// 留 10 秒余量，避免超时早于服务端挂起时间
	reqCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutSec+10)*time.Second)
	defer cancel()

	var updates []Update
	if err := c.call(reqCtx, c.pollClient, "getUpdates", params, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// SendMessage 发送文本消息，replyMarkup 可为 nil
func (c *Client) SendMessage(chatID int64, text string, replyMarkup interface{}) error {
	params := struct {
		ChatID      int64       `json:"chat_id"`
		Text        string      `json:"text"`
		ReplyMarkup interface{} `json:"reply_markup,omitempty"`
	}{ChatID: chatID, Text: text, ReplyMarkup: replyMarkup}

	return c.call(context.Background(), c.httpClient, "sendMessage", params, nil)
}

// InvoiceParams sendInvoice 请求参数
type InvoiceParams struct {
	ChatID        int64          `json:"chat_id"`
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	Payload       string         `json:"payload"`
	ProviderToken string         `json:"provider_token"`
	Currency      string         `json:"currency"`
	Prices        []LabeledPrice `json:"prices"`
}

// SendInvoice 给用户发送平台支付账单
func (c *Client) SendInvoice(params InvoiceParams) error {
	return c.call(context.Background(), c.httpClient, "sendInvoice", params, nil)
}

// AnswerCallbackQuery 应答按钮回调（清除客户端的加载状态）
func (c *Client) AnswerCallbackQuery(callbackQueryID string) error {
	params := struct {
		CallbackQueryID string `json:"callback_query_id"`
	}{CallbackQueryID: callbackQueryID}

	return c.call(context.Background(), c.httpClient, "answerCallbackQuery", params, nil)
}

// AnswerPreCheckoutQuery 应答支付前确认，errorMessage 仅在 ok=false 时有意义
func (c *Client) AnswerPreCheckoutQuery(preCheckoutQueryID string, ok bool, errorMessage string) error {
	params := struct {
		PreCheckoutQueryID string `json:"pre_checkout_query_id"`
		OK                 bool   `json:"ok"`
		ErrorMessage       string `json:"error_message,omitempty"`
	}{PreCheckoutQueryID: preCheckoutQueryID, OK: ok, ErrorMessage: errorMessage}

	return c.call(context.Background(), c.httpClient, "answerPreCheckoutQuery", params, nil)
}

// SendPhoto 以 multipart 方式上传并发送图片
func (c *Client) SendPhoto(chatID int64, photo []byte, filename, caption string) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("chat_id", fmt.Sprintf("%d", chatID)); err != nil {
		return fmt.Errorf("写入 chat_id 失败: %w", err)
	}
	if caption != "" {
		if err := w.WriteField("caption", caption); err != nil {
			return fmt.Errorf("写入 caption 失败: %w", err)
		}
	}

	part, err := w.CreateFormFile("photo", filename)
	if err != nil {
		return fmt.Errorf("创建表单文件失败: %w", err)
	}
	if _, err := part.Write(photo); err != nil {
		return fmt.Errorf("写入图片数据失败: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("关闭 multipart 失败: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.methodURL("sendPhoto"), &buf)
	if err != nil {
		return fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("请求 Bot API 失败: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取响应失败: %w", err)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return fmt.Errorf("解析响应失败: %w", err)
	}
	if !apiResp.OK {
		return fmt.Errorf("Bot API 返回失败 (sendPhoto): %s", apiResp.Description)
	}
	return nil
}
