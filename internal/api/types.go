package api

import (
	"encoding/json"
	"strings"
)

// Endpoint paths on the backend.
const (
	PathTools         = "/api/v1/tools"
	PathProfile       = "/api/v1/user/profile"
	PathDailyBonus    = "/api/v1/ads/daily-bonus"
	PathWatchAd       = "/api/v1/ads/watch"
	PathCreateOrder   = "/api/v1/payments/create-order"
	PathVerifyPayment = "/api/v1/payments/verify-payment"
	PathGenerate      = "/api/v1/ai/generate"
	PathImagePrefix   = "/api/v1/image/"
)

// Profile is the server-held record of the user's balance.
type Profile struct {
	ID      string `json:"id"`
	Credits int    `json:"credits"`
}

// Tool is a backend capability with its credit cost.
type Tool struct {
	Key         string
	Description string
	Cost        int
}

// DisplayName renders the key with spaces for underscores.
func (t Tool) DisplayName() string {
	return strings.ReplaceAll(t.Key, "_", " ")
}

// Catalog is the tool list in server order.
type Catalog struct {
	Tools []Tool
	costs map[string]int
}

// NewCatalog builds a catalog from tools already in display order.
func NewCatalog(tools []Tool) *Catalog {
	cat := &Catalog{costs: make(map[string]int, len(tools))}
	for _, t := range tools {
		cat.costs[t.Key] = t.Cost
		t.Cost = cat.Cost(t.Key)
		cat.Tools = append(cat.Tools, t)
	}
	return cat
}

// Lookup returns the tool with key.
func (c *Catalog) Lookup(key string) (Tool, bool) {
	if c == nil {
		return Tool{}, false
	}
	for _, t := range c.Tools {
		if t.Key == key {
			return t, true
		}
	}
	return Tool{}, false
}

// Cost returns the displayed cost of key. Missing or zero costs read as 1.
func (c *Catalog) Cost(key string) int {
	if c == nil {
		return 1
	}
	if cost := c.costs[key]; cost != 0 {
		return cost
	}
	return 1
}

// BonusResult is the daily bonus reply.
type BonusResult struct {
	BonusEarned  int `json:"bonus_earned"`
	TotalCredits int `json:"total_credits"`
}

// AdVerification is the client-generated proof of an ad view. It carries no
// cryptographic evidence; the backend decides whether to trust it.
type AdVerification struct {
	Timestamp string `json:"timestamp"`
	Verified  bool   `json:"verified"`
}

// AdRequest is the watch-ad payload.
type AdRequest struct {
	AdID             string         `json:"ad_id"`
	AdType           string         `json:"ad_type"`
	AdNetwork        string         `json:"ad_network"`
	VerificationData AdVerification `json:"verification_data"`
}

// AdResult is the watch-ad reply.
type AdResult struct {
	CreditsEarned int `json:"credits_earned"`
	TotalCredits  int `json:"total_credits"`
}

// OrderRequest asks the backend to open a payment order.
type OrderRequest struct {
	Amount        int `json:"amount"`
	CreditPackage int `json:"credit_package"`
}

// Order is a payment order opened with the gateway.
type Order struct {
	ID       string `json:"id"`
	Amount   int    `json:"amount"`
	Currency string `json:"currency"`
	Notes    struct {
		RazorpayKeyID string `json:"razorpay_key_id"`
	} `json:"notes"`
}

// VerifyRequest carries the gateway's transaction identifiers back.
type VerifyRequest struct {
	OrderID      string `json:"razorpay_order_id"`
	PaymentID    string `json:"razorpay_payment_id"`
	Signature    string `json:"razorpay_signature"`
	CreditsToAdd int    `json:"credits_to_add"`
}

// VerifyResult is the verification reply.
type VerifyResult struct {
	CreditsAdded int `json:"credits_added"`
}

// GenerateRequest invokes a text tool.
type GenerateRequest struct {
	Prompt    string `json:"prompt"`
	ModelType string `json:"model_type"`
}

// ImageRequest invokes an image tool. ImageData is standard base64.
type ImageRequest struct {
	Prompt    string `json:"prompt"`
	ImageData string `json:"image_data"`
}

// Result is a tool reply kept verbatim.
type Result = json.RawMessage
