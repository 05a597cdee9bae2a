package payment

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"sync"
	"time"
	_ "time/tzdata"

	"github.com/Blu-Chips/Invoice-Extractor/internal/domain/model"
)

// queryPendingCode is returned by the query endpoint while the customer has not answered the prompt yet.
const queryPendingCode = "500.001.1001"

const timestampLayout = "20060102150405"

const transactionDesc = "Invoice Processing Credits"

// ErrRejected means Daraja answered but refused the request.
var ErrRejected = errors.New("daraja rejected request")

// DarajaOptions configures DarajaClient.
type DarajaOptions struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	ShortCode      string
	Passkey        string
	CallbackURL    string
}

// DarajaClient implements Gateway over the Safaricom M-Pesa Daraja API.
type DarajaClient struct {
	baseURL    *url.URL
	opts       DarajaOptions
	httpClient *http.Client
	logger     *slog.Logger
	location   *time.Location
	now        func() time.Time

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

type pushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type pushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
	ErrorCode           string `json:"errorCode"`
	ErrorMessage        string `json:"errorMessage"`
}

type queryRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
}

type queryResponse struct {
	ResponseCode string `json:"ResponseCode"`
	ResultCode   string `json:"ResultCode"`
	ResultDesc   string `json:"ResultDesc"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

// NewDarajaClient creates a Daraja client with default timeout.
func NewDarajaClient(opts DarajaOptions, logger *slog.Logger) (*DarajaClient, error) {
	parsed, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse daraja url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("daraja url must be absolute")
	}
	loc, err := time.LoadLocation("Africa/Nairobi")
	if err != nil {
		loc = time.FixedZone("EAT", 3*60*60)
	}
	return &DarajaClient{
		baseURL:  parsed,
		opts:     opts,
		logger:   logger,
		location: loc,
		now:      time.Now,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}, nil
}

// Initiate sends an STK push prompt to the customer's phone.
func (c *DarajaClient) Initiate(ctx context.Context, phone string, amount int64, reference string) (*model.Checkout, error) {
	timestamp, password := c.credentials()
	body := pushRequest{
		BusinessShortCode: c.opts.ShortCode,
		Password:          password,
		Timestamp:         timestamp,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            amount,
		PartyA:            phone,
		PartyB:            c.opts.ShortCode,
		PhoneNumber:       phone,
		CallBackURL:       c.opts.CallbackURL,
		AccountReference:  reference,
		TransactionDesc:   transactionDesc,
	}

	var resp pushResponse
	if err := c.post(ctx, "/mpesa/stkpush/v1/processrequest", body, &resp); err != nil {
		return nil, err
	}
	if resp.ErrorCode != "" {
		return nil, fmt.Errorf("%w: %s %s", ErrRejected, resp.ErrorCode, resp.ErrorMessage)
	}
	if resp.ResponseCode != "0" || resp.CheckoutRequestID == "" {
		return nil, fmt.Errorf("%w: %s", ErrRejected, resp.ResponseDescription)
	}
	return &model.Checkout{
		CheckoutID:        resp.CheckoutRequestID,
		MerchantRequestID: resp.MerchantRequestID,
		CustomerMessage:   resp.CustomerMessage,
	}, nil
}

// CheckStatus queries the result of a previously initiated push.
func (c *DarajaClient) CheckStatus(ctx context.Context, checkoutID string) (*model.PaymentResult, error) {
	timestamp, password := c.credentials()
	body := queryRequest{
		BusinessShortCode: c.opts.ShortCode,
		Password:          password,
		Timestamp:         timestamp,
		CheckoutRequestID: checkoutID,
	}

	var resp queryResponse
	if err := c.post(ctx, "/mpesa/stkpushquery/v1/query", body, &resp); err != nil {
		return nil, err
	}
	if resp.ErrorCode == queryPendingCode {
		return &model.PaymentResult{ResultCode: model.ResultCodePending, ResultDesc: resp.ErrorMessage}, nil
	}
	if resp.ErrorCode != "" {
		return nil, fmt.Errorf("%w: %s %s", ErrRejected, resp.ErrorCode, resp.ErrorMessage)
	}
	if resp.ResultCode == "" {
		return nil, fmt.Errorf("daraja query: empty result code")
	}
	return &model.PaymentResult{ResultCode: resp.ResultCode, ResultDesc: resp.ResultDesc}, nil
}

func (c *DarajaClient) credentials() (string, string) {
	timestamp := c.now().In(c.location).Format(timestampLayout)
	password := base64.StdEncoding.EncodeToString([]byte(c.opts.ShortCode + c.opts.Passkey + timestamp))
	return timestamp, password
}

func (c *DarajaClient) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	endpoint := c.endpoint("/oauth/v1/generate")
	endpoint.RawQuery = url.Values{"grant_type": []string{"client_credentials"}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.opts.ConsumerKey, c.opts.ConsumerSecret)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.logger.Error("daraja token request failed", slog.Int("status", resp.StatusCode), slog.String("body", string(body)))
		return "", fmt.Errorf("daraja token error: %s", resp.Status)
	}

	var data tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("decode token: %w", err)
	}
	if data.AccessToken == "" {
		return "", fmt.Errorf("daraja token: empty access token")
	}

	ttl := time.Hour
	if seconds, err := strconv.Atoi(data.ExpiresIn); err == nil && seconds > 0 {
		ttl = time.Duration(seconds) * time.Second
	}
	if ttl > 2*time.Minute {
		ttl -= time.Minute
	}
	c.token = data.AccessToken
	c.tokenExpiry = c.now().Add(ttl)
	return c.token, nil
}

func (c *DarajaClient) endpoint(p string) url.URL {
	endpoint := *c.baseURL
	endpoint.Path = path.Join(endpoint.Path, p)
	return endpoint
}

func (c *DarajaClient) post(ctx context.Context, p string, in, out any) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}

	endpoint := c.endpoint(p)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	// non-200 answers carrying an errorCode are business results, not transport failures
	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			ErrorCode string `json:"errorCode"`
		}
		if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.ErrorCode == "" {
			c.logger.Error("daraja request failed", slog.String("path", p), slog.Int("status", resp.StatusCode), slog.String("body", string(body)))
			return fmt.Errorf("daraja error: %s", resp.Status)
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode daraja response: %w", err)
	}
	return nil
}
