// Package kiloex implements the REST client for the KiloEx Telegram
// mini-app API. All endpoints share one response envelope: a transport-level
// 200 plus a domain-level status flag. The client normalizes both failure
// layers into plain errors so callers only pattern-match the known domain
// messages they care about.
package kiloex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"kiloex-bot/internal/metrics"
)

// DefaultBaseURL is the production API host. Tests point the client at an
// httptest server instead.
const DefaultBaseURL = "https://opapi.kiloex.io"

const (
	userInfoPath     = "/tg/user/info"
	miningUpdatePath = "/tg/mining/update"
	orderOpenPath    = "/tg/order/open"
	productListPath  = "/tg/product/list"
	taskListPath     = "/noviceTask/tglist"
	taskReportPath   = "/noviceTask/report"
	taskClaimPath    = "/noviceTask/claim"
	referralCodePath = "/tg/referral/code"
	referralBindPath = "/tg/referral/bind"
)

// Markers the remote embeds in domain error messages. The balance one is
// returned untranslated by the API.
const (
	insufficientBalanceMarker = "余额不足"
	rateLimitMarker           = "too quickly"
)

// browserHeaders is the static impersonation header set sent on every
// request, mirroring the mini-app's web client.
var browserHeaders = map[string]string{
	"Accept":             "application/json, text/plain, */*",
	"Accept-Language":    "en-US;q=0.6,en;q=0.5",
	"Origin":             "https://app.kiloex.io",
	"Referer":            "https://app.kiloex.io/",
	"Sec-Ch-Ua":          `"Not/A)Brand";v="99", "Google Chrome";v="115", "Chromium";v="115"`,
	"Sec-Ch-Ua-Mobile":   "?1",
	"Sec-Ch-Ua-Platform": `"Android"`,
	"Sec-Fetch-Dest":     "empty",
	"Sec-Fetch-Mode":     "cors",
	"Sec-Fetch-Site":     "same-site",
	"User-Agent":         "Mozilla/5.0 (Linux; Android 6.0; Nexus 5 Build/MRA58N) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/115.0.0.0 Mobile Safari/537.36",
}

// APIError is a domain-level failure: the transport succeeded but the
// payload carried status=false.
type APIError struct {
	Msg string
}

func (e *APIError) Error() string {
	return "kiloex: " + e.Msg
}

// IsInsufficientBalance reports whether err is the remote's
// balance-insufficient rejection. Callers treat it as an expected outcome,
// not a hard failure.
func IsInsufficientBalance(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && strings.Contains(ae.Msg, insufficientBalanceMarker)
}

// IsRateLimited reports whether err is the remote's transient
// submitted-too-quickly rejection.
func IsRateLimited(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && strings.Contains(ae.Msg, rateLimitMarker)
}

type Client struct {
	base    string
	rest    *resty.Client
	metrics *metrics.Metrics
}

// New builds a client against base (DefaultBaseURL when empty) with the
// static browser header set applied to every request.
func New(base string, timeout time.Duration) *Client {
	if base == "" {
		base = DefaultBaseURL
	}
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(20 * time.Second)
	}
	r.SetHeaders(browserHeaders)
	return &Client{base: base, rest: r}
}

// WithMetrics enables request duration and error counting.
func (c *Client) WithMetrics(m *metrics.Metrics) *Client {
	c.metrics = m
	return c
}

// envelope is the uniform response shape of every endpoint.
type envelope struct {
	Status bool            `json:"status"`
	Msg    string          `json:"msg"`
	Data   json.RawMessage `json:"data"`
}

// do issues one request and unmarshals the envelope data into out (when out
// is non-nil). Transport failures and non-200 statuses come back as wrapped
// errors; status=false comes back as *APIError. No retries here: retry
// policy is action-specific and lives in the callers.
func (c *Client) do(ctx context.Context, method, path string, query map[string]string, body, out any) error {
	start := time.Now()
	err := c.doOnce(ctx, method, path, query, body, out)
	if c.metrics != nil {
		c.metrics.APIRequestDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			c.metrics.APIErrors.Inc()
		}
	}
	return err
}

func (c *Client) doOnce(ctx context.Context, method, path string, query map[string]string, body, out any) error {
	req := c.rest.R().SetContext(ctx)
	if query != nil {
		req.SetQueryParams(query)
	}
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	resp, err := req.Execute(method, c.base+path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode())
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return fmt.Errorf("%s %s: decode: %w", method, path, err)
	}
	if !env.Status {
		return &APIError{Msg: env.Msg}
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%s %s: decode data: %w", method, path, err)
		}
	}
	return nil
}

// UserInfo fetches the account state for an account/name pair.
func (c *Client) UserInfo(ctx context.Context, account, name string) (*UserInfo, error) {
	var info UserInfo
	err := c.do(ctx, resty.MethodGet, userInfoPath, map[string]string{
		"account": account,
		"name":    name,
		"from":    "kiloextrade",
	}, nil, &info)
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// Products fetches the mini-app product catalog, sorted ascending by the
// remote sort order. The caller holds the result as an immutable snapshot.
func (c *Client) Products(ctx context.Context) ([]Product, error) {
	var products []Product
	err := c.do(ctx, resty.MethodGet, productListPath, map[string]string{
		"tags":  "tgMiniApp",
		"types": "all",
	}, nil, &products)
	if err != nil {
		return nil, err
	}
	sort.Slice(products, func(i, j int) bool { return products[i].Sort < products[j].Sort })
	return products, nil
}

// UpdateMining submits a stamina-consumption update. The remote credits
// coin equal to the stamina spent.
func (c *Client) UpdateMining(ctx context.Context, account string, stamina float64) error {
	body := map[string]any{
		"account": account,
		"stamina": stamina,
		"coin":    stamina,
	}
	return c.do(ctx, resty.MethodPost, miningUpdatePath, nil, body, nil)
}

// OpenOrder opens a leveraged position.
func (c *Client) OpenOrder(ctx context.Context, req OrderReq) (*Order, error) {
	var order Order
	if err := c.do(ctx, resty.MethodPost, orderOpenPath, nil, req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// taskListData is the /noviceTask/tglist payload: the task slice plus the
// account's progress counters.
type taskListData struct {
	List        []Task  `json:"list"`
	TradeVolume float64 `json:"tradeVolume"`
	Mining      float64 `json:"mining"`
	InviteNum   int     `json:"inviteNum"`
}

// TaskList fetches the novice task list and progress stats for an account.
func (c *Client) TaskList(ctx context.Context, account string) ([]Task, TaskStats, error) {
	var data taskListData
	err := c.do(ctx, resty.MethodGet, taskListPath, map[string]string{"account": account}, nil, &data)
	if err != nil {
		return nil, TaskStats{}, err
	}
	stats := TaskStats{
		TradeVolume: data.TradeVolume,
		Mining:      data.Mining,
		InviteNum:   data.InviteNum,
	}
	return data.List, stats, nil
}

// ReportTask reports a task as completed. The remote acknowledges with a
// nested status flag on top of the envelope one; both must be true.
func (c *Client) ReportTask(ctx context.Context, account string, taskID int64) error {
	var data struct {
		Status bool `json:"status"`
	}
	body := map[string]any{"account": account, "id": taskID}
	if err := c.do(ctx, resty.MethodPost, taskReportPath, nil, body, &data); err != nil {
		return err
	}
	if !data.Status {
		return &APIError{Msg: "task report not accepted"}
	}
	return nil
}

// ClaimTask claims a reported task's reward and returns the first reward
// entry.
func (c *Client) ClaimTask(ctx context.Context, account string, taskID int64) (*Reward, error) {
	var rewards []Reward
	body := map[string]any{"account": account, "id": taskID}
	if err := c.do(ctx, resty.MethodPost, taskClaimPath, nil, body, &rewards); err != nil {
		return nil, err
	}
	if len(rewards) == 0 {
		return nil, &APIError{Msg: "claim returned no reward"}
	}
	return &rewards[0], nil
}

// ReferralCodes lists the referral codes already bound to an account.
func (c *Client) ReferralCodes(ctx context.Context, account string) ([]ReferralCode, error) {
	var codes []ReferralCode
	err := c.do(ctx, resty.MethodGet, referralCodePath, map[string]string{"account": account}, nil, &codes)
	if err != nil {
		return nil, err
	}
	return codes, nil
}

// BindReferral binds a referral code to an account.
func (c *Client) BindReferral(ctx context.Context, account, code string) error {
	body := map[string]any{"account": account, "code": code}
	return c.do(ctx, resty.MethodPost, referralBindPath, nil, body, nil)
}
