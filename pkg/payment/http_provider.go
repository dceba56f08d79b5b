package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"golang.org/x/oauth2/clientcredentials"
)

type HTTPProviderConfig struct {
	BaseURL      string
	AccessToken  string
	ClientID     string
	ClientSecret string
	TokenURL     string
	Timeout      time.Duration
	Retries      int
}

// HTTPProvider talks to a hosted-checkout REST API. Session creation is never
// retried; searches are read-only and retried on transport errors and 5xx.
type HTTPProvider struct {
	sessions *resty.Client
	search   *resty.Client
}

func NewHTTPProvider(cfg HTTPProviderConfig) *HTTPProvider {
	var hc *http.Client
	if cfg.ClientID != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
		}
		hc = cc.Client(context.Background())
	} else {
		hc = &http.Client{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	newClient := func() *resty.Client {
		c := resty.NewWithClient(hc).
			SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
			SetTimeout(cfg.Timeout).
			SetHeader("Accept", "application/json")
		if cfg.ClientID == "" && cfg.AccessToken != "" {
			c.SetAuthToken(cfg.AccessToken)
		}
		return c
	}
	search := newClient().
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || (r != nil && r.StatusCode() >= http.StatusInternalServerError)
		})
	return &HTTPProvider{sessions: newClient(), search: search}
}

type createSessionBody struct {
	Amount            json.Number `json:"amount"`
	Currency          string      `json:"currency"`
	Description       string      `json:"description,omitempty"`
	Installments      int         `json:"installments"`
	PaymentMethod     string      `json:"payment_method,omitempty"`
	ExternalReference string      `json:"external_reference"`
	Metadata          Metadata    `json:"metadata"`
	SuccessURL        string      `json:"success_url"`
	CancelURL         string      `json:"cancel_url"`
}

type createSessionResp struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

func (p *HTTPProvider) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	body := createSessionBody{
		Amount:            json.Number(req.Amount.StringFixed(2)),
		Currency:          req.Currency,
		Description:       req.Description,
		Installments:      req.Installments,
		PaymentMethod:     req.Method,
		ExternalReference: req.ExternalReference,
		Metadata:          req.Metadata,
		SuccessURL:        req.SuccessURL,
		CancelURL:         req.CancelURL,
	}
	var out createSessionResp
	resp, err := p.sessions.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&out).
		Post("/checkout/sessions")
	if err != nil {
		return nil, fmt.Errorf("%w: create session: %v", ErrUnavailable, err)
	}
	if resp.StatusCode() >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: create session: status %d", ErrUnavailable, resp.StatusCode())
	}
	if resp.IsError() {
		return nil, fmt.Errorf("create session: status %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	if out.URL == "" {
		return nil, fmt.Errorf("create session: provider returned no redirect url")
	}
	return &Session{ID: out.ID, RedirectURL: out.URL}, nil
}

// flexString accepts both JSON strings and numbers; some providers use numeric ids.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

type searchResp struct {
	Results []struct {
		ID                flexString      `json:"id"`
		Status            string          `json:"status"`
		StatusDetail      string          `json:"status_detail"`
		ExternalReference string          `json:"external_reference"`
		TransactionAmount decimal.Decimal `json:"transaction_amount"`
		DateCreated       time.Time       `json:"date_created"`
	} `json:"results"`
}

func (p *HTTPProvider) SearchPayments(ctx context.Context, reference string, limit int) ([]TransactionSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	var out searchResp
	resp, err := p.search.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"external_reference": reference,
			"sort":               "date_created",
			"criteria":           "desc",
			"limit":              strconv.Itoa(limit),
		}).
		SetResult(&out).
		Get("/payments/search")
	if err != nil {
		return nil, fmt.Errorf("%w: search: %v", ErrUnavailable, err)
	}
	if resp.StatusCode() >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: search: status %d", ErrUnavailable, resp.StatusCode())
	}
	if resp.IsError() {
		return nil, fmt.Errorf("search: status %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	list := make([]TransactionSummary, 0, len(out.Results))
	for _, r := range out.Results {
		list = append(list, TransactionSummary{
			ID:                string(r.ID),
			Status:            strings.ToLower(r.Status),
			StatusDetail:      r.StatusDetail,
			ExternalReference: r.ExternalReference,
			Amount:            r.TransactionAmount,
			CreatedAt:         r.DateCreated,
		})
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	if len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}
