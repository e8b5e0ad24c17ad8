package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/tidwall/gjson"
)

// Tools fetches the catalog. It needs no session.
func (c *Client) Tools(ctx context.Context) (*Catalog, error) {
	var raw json.RawMessage
	if err := c.Call(ctx, PathTools, Options{}, &raw); err != nil {
		return nil, err
	}
	return decodeCatalog(raw), nil
}

// decodeCatalog walks tools in document order so the grid matches the server.
func decodeCatalog(raw []byte) *Catalog {
	costs := make(map[string]int)
	gjson.GetBytes(raw, "credit_costs").ForEach(func(k, v gjson.Result) bool {
		costs[k.String()] = int(v.Int())
		return true
	})
	var tools []Tool
	gjson.GetBytes(raw, "tools").ForEach(func(k, v gjson.Result) bool {
		key := k.String()
		tools = append(tools, Tool{
			Key:         key,
			Description: v.String(),
			Cost:        costs[key],
		})
		return true
	})
	return NewCatalog(tools)
}

type profileReply struct {
	Profile *Profile `json:"profile"`
}

func (r *profileReply) validate() error {
	if r.Profile == nil {
		return ErrProfileMissing
	}
	return nil
}

// Profile fetches the signed-in user's balance. A reply without a profile is
// reported like any other failed call.
func (c *Client) Profile(ctx context.Context) (*Profile, error) {
	var resp profileReply
	if err := c.Call(ctx, PathProfile, Options{}, &resp); err != nil {
		return nil, err
	}
	return resp.Profile, nil
}

// DailyBonus claims the daily bonus.
func (c *Client) DailyBonus(ctx context.Context) (*BonusResult, error) {
	var out BonusResult
	if err := c.Call(ctx, PathDailyBonus, Options{Method: http.MethodPost}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// WatchAd reports a watched ad.
func (c *Client) WatchAd(ctx context.Context, req AdRequest) (*AdResult, error) {
	var out AdResult
	if err := c.Call(ctx, PathWatchAd, Options{Method: http.MethodPost, Body: req}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateOrder opens a payment order.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	var out Order
	if err := c.Call(ctx, PathCreateOrder, Options{Method: http.MethodPost, Body: req}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyPayment asks the backend to verify a completed payment.
func (c *Client) VerifyPayment(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	var out VerifyResult
	if err := c.Call(ctx, PathVerifyPayment, Options{Method: http.MethodPost, Body: req}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Generate invokes a text tool.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (Result, error) {
	var out json.RawMessage
	if err := c.Call(ctx, PathGenerate, Options{Method: http.MethodPost, Body: req}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ImageTool invokes the image tool named tool.
func (c *Client) ImageTool(ctx context.Context, tool string, req ImageRequest) (Result, error) {
	var out json.RawMessage
	endpoint := PathImagePrefix + url.PathEscape(tool)
	if err := c.Call(ctx, endpoint, Options{Method: http.MethodPost, Body: req}, &out); err != nil {
		return nil, err
	}
	return out, nil
}
