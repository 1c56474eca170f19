package services

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/college-canteen/canteen-api/models"
	"github.com/skip2/go-qrcode"
)

const (
	qrPaidStatus = "PAID"
	qrImageSize  = 256
	// qrTimeLayout matches ISO timestamps already printed on codes in circulation
	qrTimeLayout = "2006-01-02T15:04:05.000Z"
)

// QRItem is one line of the pickup payload
type QRItem struct {
	Dish string `json:"dish"`
	Qty  int    `json:"qty"`
}

// QRPayload is the JSON text embedded in a pickup QR code. Field order is
// part of the format.
type QRPayload struct {
	OrderID       string   `json:"order_id"`
	PayerName     string   `json:"payer_name"`
	CollegeID     string   `json:"college_id"`
	Items         []QRItem `json:"items"`
	Amount        float64  `json:"amount"`
	PaymentStatus string   `json:"payment_status"`
	PaymentTime   string   `json:"payment_time"`
	Signature     string   `json:"signature,omitempty"`
}

// QRCodec signs, parses and renders pickup codes
type QRCodec struct {
	secret           []byte
	requireSignature bool
}

// NewQRCodec creates a codec; when requireSignature is false, unsigned
// payloads pass the signature check
func NewQRCodec(secret string, requireSignature bool) *QRCodec {
	return &QRCodec{secret: []byte(secret), requireSignature: requireSignature}
}

// BuildPayload assembles the pickup payload for a paid order
func BuildPayload(order *models.Order, payer *models.User, paidAt time.Time) QRPayload {
	items := make([]QRItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, QRItem{Dish: item.DishName, Qty: item.Quantity})
	}
	return QRPayload{
		OrderID:       order.OrderID,
		PayerName:     payer.Name,
		CollegeID:     payer.CollegeID,
		Items:         items,
		Amount:        order.TotalAmount,
		PaymentStatus: qrPaidStatus,
		PaymentTime:   paidAt.UTC().Format(qrTimeLayout),
	}
}

// Encode signs the payload and returns the JSON text to embed
func (c *QRCodec) Encode(payload QRPayload) (string, error) {
	signature, err := c.sign(payload)
	if err != nil {
		return "", err
	}
	payload.Signature = signature

	data, err := marshalPayload(payload)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Decode parses scanned QR text
func (c *QRCodec) Decode(raw string) (*QRPayload, error) {
	var payload QRPayload
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// Verify checks the payload signature
func (c *QRCodec) Verify(payload *QRPayload) bool {
	if payload.Signature == "" {
		return !c.requireSignature
	}

	expected, err := c.sign(*payload)
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(payload.Signature))
}

// sign computes hex HMAC-SHA256 over the canonical JSON without the signature
func (c *QRCodec) sign(payload QRPayload) (string, error) {
	payload.Signature = ""
	canonical, err := marshalPayload(payload)
	if err != nil {
		return "", err
	}

	mac := hmac.New(sha256.New, c.secret)
	mac.Write(canonical)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// marshalPayload writes compact JSON with <, > and & left unescaped
func marshalPayload(payload QRPayload) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return nil, fmt.Errorf("failed to encode QR payload: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// RenderPNG draws content as a QR code image
func RenderPNG(content string) ([]byte, error) {
	png, err := qrcode.Encode(content, qrcode.Medium, qrImageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to render QR code: %w", err)
	}
	return png, nil
}

// PNGDataURL wraps PNG bytes as a data: URL for direct display
func PNGDataURL(png []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}
