package payment

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tableside/internal/config"
	"tableside/internal/models"
)

const (
	gatewayVersion   = "2.1.0"
	gatewayCommand   = "pay"
	gatewayCurrency  = "VND"
	gatewayLocale    = "vn"
	gatewayOrderType = "other"
	// responseSuccess is the gateway's "payment approved" code.
	responseSuccess = "00"
	// paymentWindow is how long the gateway keeps the redirect URL valid.
	paymentWindow = 15 * time.Minute

	timeLayout = "20060102150405"
)

// Gateway builds signed redirect URLs for the external payment processor and
// verifies its signed callbacks. The signature is HMAC-SHA512 over the
// lexicographically sorted, URL-encoded parameter string.
type Gateway struct {
	merchantCode string
	hashSecret   []byte
	baseURL      string
	returnURL    string
}

// NewGateway creates a gateway adapter from payment configuration
func NewGateway(cfg config.PaymentConfig) *Gateway {
	return &Gateway{
		merchantCode: cfg.MerchantCode,
		hashSecret:   []byte(cfg.HashSecret),
		baseURL:      cfg.GatewayURL,
		returnURL:    cfg.ReturnURL,
	}
}

// CallbackResult is the verified content of a gateway callback.
type CallbackResult struct {
	TxnRef       string
	Amount       decimal.Decimal
	ResponseCode string
}

// PaymentURL builds the signed redirect URL for an order. The amount is sent
// in minor units (x100) and the URL expires after the payment window.
func (g *Gateway) PaymentURL(txnRef string, amount decimal.Decimal, clientIP string, now time.Time) string {
	params := map[string]string{
		"vnp_Version":    gatewayVersion,
		"vnp_Command":    gatewayCommand,
		"vnp_TmnCode":    g.merchantCode,
		"vnp_Amount":     amount.Shift(2).StringFixed(0),
		"vnp_CurrCode":   gatewayCurrency,
		"vnp_TxnRef":     txnRef,
		"vnp_OrderInfo":  fmt.Sprintf("Order %s", txnRef),
		"vnp_OrderType":  gatewayOrderType,
		"vnp_Locale":     gatewayLocale,
		"vnp_ReturnUrl":  g.returnURL,
		"vnp_IpAddr":     clientIP,
		"vnp_CreateDate": now.Format(timeLayout),
		"vnp_ExpireDate": now.Add(paymentWindow).Format(timeLayout),
	}

	canonical := canonicalize(params)
	return fmt.Sprintf("%s?%s&vnp_SecureHash=%s", g.baseURL, canonical, g.sign(canonical))
}

// VerifyCallback checks the callback's signature and response code. The hash
// parameter is stripped, the remainder is re-canonicalized exactly as on the
// outbound side, and the digests are compared in constant time.
func (g *Gateway) VerifyCallback(query url.Values) (CallbackResult, error) {
	suppliedHash := query.Get("vnp_SecureHash")
	if suppliedHash == "" {
		return CallbackResult{}, models.ErrInvalidSignature
	}

	params := make(map[string]string, len(query))
	for key := range query {
		if key == "vnp_SecureHash" {
			continue
		}
		params[key] = query.Get(key)
	}

	expected := g.sign(canonicalize(params))
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(suppliedHash))) {
		return CallbackResult{}, models.ErrInvalidSignature
	}

	code := query.Get("vnp_ResponseCode")
	if code != responseSuccess {
		return CallbackResult{}, models.PaymentDeclinedError{Code: code}
	}

	minor, err := decimal.NewFromString(query.Get("vnp_Amount"))
	if err != nil {
		return CallbackResult{}, models.ValidationError{Field: "vnp_Amount", Message: "amount is not a number"}
	}

	return CallbackResult{
		TxnRef:       query.Get("vnp_TxnRef"),
		Amount:       minor.Shift(-2),
		ResponseCode: code,
	}, nil
}

// canonicalize sorts parameter names lexicographically, URL-encodes each
// value, and joins them as key=value&... Both directions of the protocol use
// this exact form.
func canonicalize(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for i, key := range keys {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(key)
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(params[key]))
	}
	return sb.String()
}

func (g *Gateway) sign(canonical string) string {
	mac := hmac.New(sha512.New, g.hashSecret)
	mac.Write([]byte(canonical))
	return hex.EncodeToString(mac.Sum(nil))
}
