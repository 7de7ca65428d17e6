package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const maxErrorBody = 512

var ErrOrderNotFound = errors.New("order not found")

// StatusError is a non-2xx answer from the backend.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Message)
}

type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	OpenTimeout      time.Duration
	FailureThreshold uint32
}

type Config struct {
	BaseURL        string
	RequestTimeout time.Duration
	Breaker        BreakerConfig
}

// Client talks to the storefront REST backend. Every call shares one circuit
// breaker; only transport failures and 5xx answers count against it.
type Client struct {
	baseURL string
	http    *http.Client
	cb      *gobreaker.CircuitBreaker[any]
	log     *slog.Logger
}

func NewClient(cfg Config, log *slog.Logger) *Client {
	if log == nil {
		log = logger.New("gateway")
	}
	threshold := cfg.Breaker.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "storefront-backend",
		MaxRequests: cfg.Breaker.MaxRequests,
		Interval:    cfg.Breaker.Interval,
		Timeout:     cfg.Breaker.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: countsAsSuccess,
	})

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{
			Timeout:   cfg.RequestTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		cb:  cb,
		log: log,
	}
}

func countsAsSuccess(err error) bool {
	if err == nil {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode < http.StatusInternalServerError
	}
	return false
}

func (c *Client) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	if err := c.call(ctx, "list products", http.MethodGet, "/api/products", nil, "", &products); err != nil {
		return nil, err
	}
	return products, nil
}

type orderRef struct {
	ID int64 `json:"id"`
}

type createOrderRequest struct {
	User     orderRef `json:"user"`
	Product  orderRef `json:"product"`
	Quantity int      `json:"quantity"`
}

type orderResponse struct {
	ID      int64 `json:"id"`
	Product struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"product"`
	Quantity int    `json:"quantity"`
	Status   string `json:"status"`
}

func (c *Client) CreateOrder(ctx context.Context, req domain.OrderRequest) (int64, error) {
	body := createOrderRequest{
		User:     orderRef{ID: req.UserID},
		Product:  orderRef{ID: req.ProductID},
		Quantity: req.Quantity,
	}

	var resp orderResponse
	err := c.call(ctx, "create order", http.MethodPost, "/api/orders", body, req.IdempotencyKey, &resp)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) {
			return 0, &domain.OrderCreationError{
				ProductID:  req.ProductID,
				StatusCode: se.StatusCode,
				Message:    se.Message,
			}
		}
		return 0, err
	}
	if resp.ID == 0 {
		return 0, &domain.OrderCreationError{ProductID: req.ProductID, Message: "backend returned no order id"}
	}
	return resp.ID, nil
}

func (c *Client) CompleteOrder(ctx context.Context, orderID int64) error {
	path := fmt.Sprintf("/api/orders/%d/complete", orderID)
	err := c.call(ctx, "complete order", http.MethodPost, path, nil, "", nil)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) {
			return &domain.PaymentFinalizationError{
				OrderID:    orderID,
				StatusCode: se.StatusCode,
				Message:    se.Message,
			}
		}
		return err
	}
	return nil
}

// GetOrder fetches an order for display. Only the payment screen uses it.
func (c *Client) GetOrder(ctx context.Context, orderID int64) (domain.Order, error) {
	var resp orderResponse
	err := c.call(ctx, "get order", http.MethodGet, fmt.Sprintf("/api/orders/%d", orderID), nil, "", &resp)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return domain.Order{}, fmt.Errorf("%w: %d", ErrOrderNotFound, orderID)
		}
		return domain.Order{}, err
	}

	status := domain.OrderStatus(strings.ToUpper(resp.Status))
	if status == "" {
		status = domain.OrderStatusPending
	}
	return domain.Order{
		ID:          resp.ID,
		ProductID:   resp.Product.ID,
		ProductName: resp.Product.Name,
		Quantity:    resp.Quantity,
		Status:      status,
	}, nil
}

func (c *Client) call(ctx context.Context, op, method, path string, body any, idempotencyKey string, out any) error {
	_, err := c.cb.Execute(func() (any, error) {
		return nil, c.do(ctx, op, method, path, body, idempotencyKey, out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &domain.NetworkError{Op: op, Err: err}
	}
	return err
}

func (c *Client) do(ctx context.Context, op, method, path string, body any, idempotencyKey string, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		logger.FromCtx(ctx).Warn("backend request failed", "op", op, "error", err)
		return &domain.NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		text := strings.TrimSpace(string(msg))
		if text == "" {
			text = http.StatusText(resp.StatusCode)
		}
		return &StatusError{StatusCode: resp.StatusCode, Message: text}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}
