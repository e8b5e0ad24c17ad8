package checkout

import (
	"html/template"
	"io"
)

// Options are the widget parameters for one payment.
type Options struct {
	Key          string `json:"key"`
	Amount       int    `json:"amount"`
	Currency     string `json:"currency"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	OrderID      string `json:"order_id"`
	PrefillName  string `json:"-"`
	PrefillEmail string `json:"-"`
	ThemeColor   string `json:"-"`
}

// Response is what the widget hands back after a successful payment.
type Response struct {
	PaymentID string `json:"razorpay_payment_id"`
	OrderID   string `json:"razorpay_order_id"`
	Signature string `json:"razorpay_signature"`
}

type pageData struct {
	Options Options
	Nonce   string
}

var pageTemplate = template.Must(template.New("checkout").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Options.Name}} checkout</title>
<style>
body { font-family: sans-serif; text-align: center; padding: 50px; background: #111827; color: #f3f4f6; }
h1 { color: #22d3ee; }
#status { margin-top: 24px; }
</style>
</head>
<body>
<h1>{{.Options.Name}}</h1>
<p>{{.Options.Description}}</p>
<p id="status">Opening checkout...</p>
<script src="/checkout.js"></script>
<script>
(function () {
  var nonce = {{.Nonce}};
  function report(path, body) {
    body.nonce = nonce;
    return fetch(path, {
      method: "POST",
      headers: {"Content-Type": "application/json"},
      body: JSON.stringify(body)
    });
  }
  function done(text) {
    document.getElementById("status").textContent = text;
  }
  if (typeof Razorpay === "undefined") {
    report("/checkout/failed", {error: "checkout script did not load", fatal: true});
    done("The payment widget could not start. Return to the terminal.");
    return;
  }
  var rzp = new Razorpay({
    key: {{.Options.Key}},
    amount: {{.Options.Amount}},
    currency: {{.Options.Currency}},
    name: {{.Options.Name}},
    description: {{.Options.Description}},
    order_id: {{.Options.OrderID}},
    handler: function (resp) {
      report("/checkout/complete", {
        razorpay_payment_id: resp.razorpay_payment_id,
        razorpay_order_id: resp.razorpay_order_id,
        razorpay_signature: resp.razorpay_signature
      }).then(function () { done("Payment received. You can close this tab."); });
    },
    prefill: {name: {{.Options.PrefillName}}, email: {{.Options.PrefillEmail}}},
    theme: {color: {{.Options.ThemeColor}}},
    modal: {
      ondismiss: function () {
        report("/checkout/dismiss", {}).then(function () { done("Checkout closed. You can close this tab."); });
      }
    }
  });
  rzp.on("payment.failed", function (resp) {
    var msg = (resp && resp.error && resp.error.description) || "payment failed";
    report("/checkout/failed", {error: msg});
  });
  rzp.open();
})();
</script>
</body>
</html>
`))

func renderPage(w io.Writer, opts Options, nonce string) error {
	return pageTemplate.Execute(w, pageData{Options: opts, Nonce: nonce})
}
