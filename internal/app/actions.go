package app

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"aibuddies/internal/api"
	"aibuddies/internal/checkout"
	"aibuddies/internal/logging"

	"github.com/gabriel-vasile/mimetype"
)

// Fixed credit package offered for purchase.
const (
	PackageCredits = 500
	PackageAmount  = 1000 // paisa

	defaultImagePrompt = "Analyze this image"
	isoMillis          = "2006-01-02T15:04:05.000Z07:00"
)

// SelectTool selects key and clears the previous result.
func (a *App) SelectTool(key string) {
	a.update(func(s *State) {
		s.Selected = key
		s.Request.Result = nil
	})
}

// SetPrompt sets the prompt text.
func (a *App) SetPrompt(prompt string) {
	a.update(func(s *State) { s.Prompt = prompt })
}

// SetImage sets the image file for image tools. "" clears it.
func (a *App) SetImage(path string) {
	a.update(func(s *State) { s.ImagePath = path })
}

// SignOut ends the session. The profile is cleared by the session event.
func (a *App) SignOut(ctx context.Context) error {
	return a.sessions.SignOut(ctx)
}

func (a *App) setError(msg string) {
	a.update(func(s *State) { s.Request.Error = msg })
}

func (a *App) setMessage(msg string) {
	a.update(func(s *State) { s.Request.Message = msg })
}

// ClaimBonus claims the daily bonus.
func (a *App) ClaimBonus(ctx context.Context) error {
	if err := a.acquire(); err != nil {
		return err
	}
	defer a.release()

	res, err := a.api.DailyBonus(ctx)
	if err != nil {
		return err
	}
	a.setMessage(fmt.Sprintf("+%d credits! Total: %d", res.BonusEarned, res.TotalCredits))
	logging.App("Daily bonus claimed: +%d", res.BonusEarned)
	a.audit().Earned(logging.AuditBonusClaimed, res.BonusEarned, res.TotalCredits)
	a.refreshProfile(ctx)
	return nil
}

// WatchAd reports a watched ad. The verification block is built here and
// proves nothing; the backend is responsible for deciding whether to trust it.
func (a *App) WatchAd(ctx context.Context) error {
	if err := a.acquire(); err != nil {
		return err
	}
	defer a.release()

	req := api.AdRequest{
		AdID:      "custom_video_1",
		AdType:    "rewarded_video",
		AdNetwork: "custom",
		VerificationData: api.AdVerification{
			Timestamp: a.now().UTC().Format(isoMillis),
			Verified:  true,
		},
	}
	res, err := a.api.WatchAd(ctx, req)
	if err != nil {
		return err
	}
	a.setMessage(fmt.Sprintf("+%d credits! Total: %d", res.CreditsEarned, res.TotalCredits))
	logging.App("Ad reward: +%d", res.CreditsEarned)
	a.audit().Earned(logging.AuditAdRewarded, res.CreditsEarned, res.TotalCredits)
	a.refreshProfile(ctx)
	return nil
}

// BuyCredits runs the purchase flow for the fixed package. Closing the
// checkout without paying returns checkout.ErrDismissed and leaves the state
// as it was.
func (a *App) BuyCredits(ctx context.Context) error {
	if err := a.acquire(); err != nil {
		return err
	}
	defer a.release()

	if a.checkout == nil {
		a.setError(checkout.ErrGatewayUnavailable.Error())
		return checkout.ErrGatewayUnavailable
	}
	if err := a.checkout.Load(ctx); err != nil {
		a.setError(checkout.ErrGatewayUnavailable.Error())
		return err
	}

	order, err := a.api.CreateOrder(ctx, api.OrderRequest{Amount: PackageAmount, CreditPackage: PackageCredits})
	if err != nil {
		a.setError(fmt.Sprintf(msgPaymentFailed, err.Error()))
		return err
	}

	email := a.sessions.Current().Email()
	opts := checkout.Options{
		Key:          order.Notes.RazorpayKeyID,
		Amount:       order.Amount,
		Currency:     order.Currency,
		Name:         "AIBUDDIES",
		Description:  fmt.Sprintf("Buy %d Credits", PackageCredits),
		OrderID:      order.ID,
		PrefillName:  email,
		PrefillEmail: email,
		ThemeColor:   "#3399cc",
	}
	logging.App("Opening checkout for order %s", order.ID)

	resp, err := a.openCheckout(ctx, opts)
	if err != nil {
		switch {
		case errors.Is(err, checkout.ErrDismissed):
			logging.App("Checkout dismissed for order %s", order.ID)
			return err
		case errors.Is(err, context.Canceled):
			logging.App("Checkout cancelled for order %s", order.ID)
			return err
		case errors.Is(err, ErrCheckoutTimeout):
			logging.AppWarn("Checkout for order %s timed out", order.ID)
		}
		a.setError(fmt.Sprintf(msgPaymentFailed, err.Error()))
		return err
	}

	verified, err := a.api.VerifyPayment(ctx, api.VerifyRequest{
		OrderID:      resp.OrderID,
		PaymentID:    resp.PaymentID,
		Signature:    resp.Signature,
		CreditsToAdd: PackageCredits,
	})
	if err != nil {
		a.setError(msgVerifyFailed)
		a.audit().Purchase(resp.OrderID, 0, err)
		return err
	}
	a.setMessage(fmt.Sprintf("Payment successful! +%d credits.", verified.CreditsAdded))
	logging.App("Payment verified for order %s: +%d", resp.OrderID, verified.CreditsAdded)
	a.audit().Purchase(resp.OrderID, verified.CreditsAdded, nil)
	a.refreshProfile(ctx)
	return nil
}

// openCheckout waits for the widget for at most checkoutTimeout. A closed
// browser tab never posts back.
func (a *App) openCheckout(ctx context.Context, opts checkout.Options) (*checkout.Response, error) {
	if a.checkoutTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.checkoutTimeout)
		defer cancel()
	}
	resp, err := a.checkout.Open(ctx, opts, a.open, a.notify)
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, ErrCheckoutTimeout
	}
	return resp, err
}

// Submit invokes the selected tool with the current form.
func (a *App) Submit(ctx context.Context) error {
	if err := a.acquire(); err != nil {
		return err
	}
	defer a.release()

	st := a.Snapshot()
	if st.Selected == "" {
		a.setError(ErrNoTool.Message)
		return ErrNoTool
	}

	var (
		result api.Result
		err    error
		start  = a.now()
	)
	if IsImageTool(st.Selected) {
		if strings.TrimSpace(st.ImagePath) == "" {
			a.setError(ErrImageRequired.Message)
			return ErrImageRequired
		}
		data, encErr := encodeImage(st.ImagePath)
		if encErr != nil {
			a.setError(encErr.Error())
			return encErr
		}
		prompt := st.Prompt
		if prompt == "" {
			prompt = defaultImagePrompt
		}
		result, err = a.api.ImageTool(ctx, st.Selected, api.ImageRequest{Prompt: prompt, ImageData: data})
	} else {
		result, err = a.api.Generate(ctx, api.GenerateRequest{Prompt: st.Prompt, ModelType: st.Selected})
	}
	a.audit().ToolInvoke(st.Selected, st.SelectedCost(), a.now().Sub(start), err)
	if err != nil {
		return err
	}

	a.update(func(s *State) { s.Request.Result = result })
	logging.App("Tool %s returned %d bytes", st.Selected, len(result))
	a.refreshProfile(ctx)
	return nil
}

func (a *App) audit() *logging.AuditLogger {
	return logging.AuditFor(a.sessions.Current().Email())
}

// encodeImage reads path, checks it is an image and returns standard base64.
func encodeImage(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	if mt := mimetype.Detect(data); !strings.HasPrefix(mt.String(), "image/") {
		logging.AppDebug("Rejected %s with type %s", path, mt.String())
		return "", ErrNotImage
	}
	return base64.StdEncoding.EncodeToString(data), nil
}
