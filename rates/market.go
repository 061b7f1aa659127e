package rates

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/url"
	"strings"
)

// Providers queried for market rates, in fallback order.
const (
	exchangerateHost string = "exchangerate.host"
	frankfurter      string = "frankfurter"
	openERAPI        string = "open.er-api"
)

// Endpoints holds the base URL of each provider.
type Endpoints struct {
	ExchangerateHost string
	Frankfurter      string
	OpenERAPI        string
}

func DefaultEndpoints() Endpoints {
	return Endpoints{
		ExchangerateHost: "https://api.exchangerate.host",
		Frankfurter:      "https://api.frankfurter.app",
		OpenERAPI:        "https://open.er-api.com",
	}
}

type Market struct {
	Name string // Name reported as the market provider
	// URL builds the request for a from/to pair
	URL func(from, to string) string
	// Converter reads the to-currency rate out of a response body
	Converter func(body io.ReadCloser, to string) (float64, error)
}

// Markets returns the providers in the order they are tried.
func Markets(endpoints Endpoints) []Market {
	defaults := DefaultEndpoints()
	if endpoints.ExchangerateHost == "" {
		endpoints.ExchangerateHost = defaults.ExchangerateHost
	}
	if endpoints.Frankfurter == "" {
		endpoints.Frankfurter = defaults.Frankfurter
	}
	if endpoints.OpenERAPI == "" {
		endpoints.OpenERAPI = defaults.OpenERAPI
	}
	return []Market{
		{
			Name: exchangerateHost,
			URL: func(from, to string) string {
				return trimBase(endpoints.ExchangerateHost) + "/convert?from=" + url.QueryEscape(from) + "&to=" + url.QueryEscape(to)
			},
			Converter: convertedExchangerateHostResponse,
		},
		{
			Name: frankfurter,
			URL: func(from, to string) string {
				return trimBase(endpoints.Frankfurter) + "/latest?from=" + url.QueryEscape(from) + "&to=" + url.QueryEscape(to)
			},
			Converter: convertedRatesTableResponse,
		},
		{
			Name: openERAPI,
			URL: func(from, _ string) string {
				return trimBase(endpoints.OpenERAPI) + "/v6/latest/" + url.PathEscape(from)
			},
			Converter: convertedRatesTableResponse,
		},
	}
}

func convertedExchangerateHostResponse(respBody io.ReadCloser, _ string) (float64, error) {
	defer respBody.Close()
	var data struct {
		Result *float64 `json:"result"`
	}
	if err := json.NewDecoder(respBody).Decode(&data); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}
	if data.Result == nil {
		return 0, fmt.Errorf("response has no result")
	}
	return checkedRate(*data.Result)
}

// convertedRatesTableResponse reads rates[to] from a base-currency table.
func convertedRatesTableResponse(respBody io.ReadCloser, to string) (float64, error) {
	defer respBody.Close()
	var data struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(respBody).Decode(&data); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}
	rate, ok := data.Rates[to]
	if !ok {
		return 0, fmt.Errorf("response has no rate for %s", to)
	}
	return checkedRate(rate)
}

func checkedRate(rate float64) (float64, error) {
	if math.IsNaN(rate) || math.IsInf(rate, 0) || rate <= 0 {
		return 0, fmt.Errorf("rate %v is not a positive number", rate)
	}
	return rate, nil
}

func trimBase(base string) string {
	return strings.TrimRight(strings.TrimSpace(base), "/")
}
