package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"petadopt/internal/config"
	"petadopt/internal/logging"

	"github.com/shopspring/decimal"
)

const statusSuccess = "SUCCESS"

var ErrSessionRejected = errors.New("支付网关拒绝创建会话")

// SessionRequest 创建网关会话所需的业务字段，商户凭证与回调地址由配置补齐
type SessionRequest struct {
	TranID      string
	TotalAmount decimal.Decimal
	CusName     string
	CusEmail    string
	CusPhone    string
	CusAdd1     string
	CusCity     string
	CusCountry  string
	ProductName string
}

type SessionResponse struct {
	Status         string `json:"status"`
	FailedReason   string `json:"failedreason"`
	SessionKey     string `json:"sessionkey"`
	GatewayPageURL string `json:"GatewayPageURL"`
}

// Client 支付网关 HTTP 客户端
type Client struct {
	cfg        config.GatewayConfig
	httpClient *http.Client
}

func NewClient(cfg config.GatewayConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// BuildForm 组装会话请求表单
func (c *Client) BuildForm(req SessionRequest) url.Values {
	productName := req.ProductName
	if productName == "" {
		productName = c.cfg.ProductName
	}

	form := url.Values{}
	form.Set("store_id", c.cfg.StoreID)
	form.Set("store_pass", c.cfg.StorePass)
	form.Set("total_amount", req.TotalAmount.StringFixed(2))
	form.Set("currency", c.cfg.Currency)
	form.Set("tran_id", req.TranID)
	form.Set("success_url", c.cfg.SuccessURL)
	form.Set("fail_url", c.cfg.FailURL)
	form.Set("cancel_url", c.cfg.CancelURL)
	form.Set("cus_name", req.CusName)
	form.Set("cus_email", req.CusEmail)
	form.Set("cus_phone", req.CusPhone)
	form.Set("cus_add1", req.CusAdd1)
	form.Set("cus_city", req.CusCity)
	form.Set("cus_country", req.CusCountry)
	form.Set("product_name", productName)
	form.Set("product_category", c.cfg.ProductCategory)
	form.Set("product_profile", "general")
	form.Set("shipping_method", c.cfg.ShippingMethod)
	form.Set("num_of_item", "1")
	return form
}

// CreateSession 向网关申请支付会话，成功时返回托管支付页地址
func (c *Client) CreateSession(ctx context.Context, req SessionRequest) (*SessionResponse, error) {
	log := logging.FromContext(ctx)

	form := c.BuildForm(req)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.SessionURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("构造网关请求失败: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	log.Info("请求支付网关", "tran_id", req.TranID, "amount", req.TotalAmount.StringFixed(2))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("请求支付网关失败: %w", err)
	}
	defer resp.Body.Close()

	log.Info("支付网关响应",
		"tran_id", req.TranID,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("读取网关响应失败: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: 非预期的 HTTP 状态码 %d", ErrSessionRejected, resp.StatusCode)
	}

	var sessionResp SessionResponse
	if err := json.Unmarshal(body, &sessionResp); err != nil {
		return nil, fmt.Errorf("%w: 解析响应失败: %v", ErrSessionRejected, err)
	}

	if !strings.EqualFold(sessionResp.Status, statusSuccess) || sessionResp.GatewayPageURL == "" {
		return nil, fmt.Errorf("%w: status=%s reason=%s", ErrSessionRejected, sessionResp.Status, sessionResp.FailedReason)
	}

	return &sessionResp, nil
}
