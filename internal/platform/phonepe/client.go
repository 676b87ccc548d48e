package phonepe

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	cfgpkg "github.com/voicemint/billing/pkg/config"
)

const (
	payPath = "/pg/v1/pay"

	defaultTimeout = 15 * time.Second
)

// PayRequest is the inner payload of a hosted-checkout request. It is
// base64-encoded and wrapped in {"request": "..."} on the wire.
type PayRequest struct {
	MerchantID            string `json:"merchantId"`
	MerchantTransactionID string `json:"merchantTransactionId"`
	MerchantUserID        string `json:"merchantUserId"`
	// Amount is in minor units (paisa).
	Amount            int64  `json:"amount"`
	RedirectURL       string `json:"redirectUrl"`
	CallbackURL       string `json:"callbackUrl"`
	PaymentInstrument struct {
		Type string `json:"type"`
	} `json:"paymentInstrument"`
}

type PayResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    struct {
		MerchantTransactionID string `json:"merchantTransactionId"`
		InstrumentResponse    struct {
			RedirectInfo struct {
				URL    string `json:"url"`
				Method string `json:"method"`
			} `json:"redirectInfo"`
		} `json:"instrumentResponse"`
	} `json:"data"`
}

// Client starts hosted-checkout payments with the provider.
type Client interface {
	Pay(ctx context.Context, req *PayRequest) (*PayResponse, error)
}

type httpClient struct {
	cfg  cfgpkg.GatewayConfig
	http *http.Client
	log  *zap.SugaredLogger
}

func NewClient(cfg *cfgpkg.Config, log *zap.SugaredLogger) Client {
	return &httpClient{
		cfg:  cfg.Gateway,
		http: &http.Client{Timeout: defaultTimeout},
		log:  log,
	}
}

func (c *httpClient) Pay(ctx context.Context, req *PayRequest) (*PayResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("nil pay request")
	}
	if req.PaymentInstrument.Type == "" {
		req.PaymentInstrument.Type = "PAY_PAGE"
	}

	inner, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal pay request: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(inner)

	body, err := json.Marshal(map[string]string{"request": encoded})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal envelope: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Host+payPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build pay request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-VERIFY", Checksum(encoded, payPath, c.cfg.SaltKey, c.cfg.SaltIndex))

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("pay request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read pay response: %w", err)
	}

	var out PayResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode pay response: %w", err)
	}
	if !out.Success {
		c.log.Errorw("gateway_pay_rejected", "code", out.Code, "message", out.Message)
		return nil, fmt.Errorf("gateway rejected payment: %s", out.Code)
	}
	if out.Data.InstrumentResponse.RedirectInfo.URL == "" {
		return nil, fmt.Errorf("gateway response missing redirect url")
	}
	return &out, nil
}
