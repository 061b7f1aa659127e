package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-splitpay/core"
)

const maxBodyBytes = 1 << 20

func (a *API) checkout(w http.ResponseWriter, r *http.Request) {
	var body checkoutBody
	if err := decodeBody(w, r, &body); err != nil {
		a.writeError(w, r, err)
		return
	}
	if a.baseURL == "" {
		a.writeError(w, r, core.ConfigurationError("BASE_URL is not configured", "BASE_URL"))
		return
	}

	customer, merchant := body.customer(), body.merchant()
	if customer == "" || merchant == "" {
		a.writeError(w, r, core.ValidationError("walletAddress", "customer and merchant wallet addresses are required"))
		return
	}
	amount, ok := body.AmountMinor.Int64(defaultCheckoutAmountMinor)
	if !ok {
		a.writeError(w, r, core.ValidationError("amountMinor", "amountMinor must be a positive integer"))
		return
	}
	split := body.Split.ratio()
	if err := core.ValidateSplit(split); err != nil {
		a.writeError(w, r, err)
		return
	}

	result, err := a.service.Checkout(r.Context(), core.CheckoutRequest{
		CustomerID:  customer,
		MerchantID:  merchant,
		AmountMinor: amount,
		Split:       &split,
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, checkoutResponse{RedirectURL: result.RedirectURL, Nonce: result.Nonce})
}

func (a *API) groupCheckout(w http.ResponseWriter, r *http.Request) {
	var body groupCheckoutBody
	if err := decodeBody(w, r, &body); err != nil {
		a.writeError(w, r, err)
		return
	}
	merchant := firstNonEmpty(body.MerchantID, body.MerchantAddress)
	if merchant == "" || len(body.Payers) == 0 {
		a.writeError(w, r, core.ValidationError("merchantId", "merchantId and payers are required"))
		return
	}
	total, ok := body.TotalAmountMinor.Int64(0)
	if !ok {
		a.writeError(w, r, core.ValidationError("totalAmountMinor", "totalAmountMinor must be a positive integer"))
		return
	}

	payers := make([]string, 0, len(body.Payers))
	for _, payer := range body.Payers {
		payers = append(payers, strings.TrimSpace(payer))
	}
	result, err := a.service.GroupCheckout(r.Context(), core.GroupCheckoutRequest{
		MerchantID:       merchant,
		TotalAmountMinor: total,
		Payers:           payers,
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newGroupCheckoutResponse(result))
}

func (a *API) callback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	interactRef := strings.TrimSpace(query.Get("interact_ref"))
	nonce := strings.TrimSpace(query.Get("nonce"))
	if interactRef == "" || nonce == "" {
		a.writeError(w, r, core.ValidationError("interact_ref", "interact_ref and nonce are required"))
		return
	}

	result, err := a.service.CompleteCallback(r.Context(), core.CallbackRequest{
		Nonce:       nonce,
		InteractRef: interactRef,
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCallbackResponse(result))
}

func (a *API) compareFX(w http.ResponseWriter, r *http.Request) {
	var body fxBody
	if err := decodeBody(w, r, &body); err != nil {
		a.writeError(w, r, err)
		return
	}
	from := strings.ToUpper(strings.TrimSpace(body.From))
	to := strings.ToUpper(strings.TrimSpace(body.To))
	if from == "" || to == "" {
		a.writeError(w, r, core.ValidationError("from", "from and to are required (e.g. USD, EUR, MXN)"))
		return
	}

	result, err := a.service.CompareFX(r.Context(), core.FXCompareRequest{From: from, To: to})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newFXResponse(result))
}

func (a *API) currencies(w http.ResponseWriter, r *http.Request) {
	supported, err := a.service.SupportedCurrencies(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if supported == nil {
		supported = []string{}
	}
	writeJSON(w, http.StatusOK, currenciesResponse{Supported: supported})
}

func (a *API) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status: "ok",
		Uptime: a.now().Sub(a.startedAt).Seconds(),
	})
}

// decodeBody treats an empty body as an empty object.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "request body must be a valid JSON object").
			WithCode(http.StatusBadRequest).
			WithTextCode(core.ServiceErrorBadInput)
	}
	return nil
}
