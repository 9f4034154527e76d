// Package noest предоставляет клиент API курьерской службы NOEST.
package noest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL задаёт адрес API NOEST по умолчанию.
const DefaultBaseURL = "https://app.noest-dz.com"

const createOrderPath = "/api/public/create/order"

// Credentials содержит учётные данные аккаунта NOEST.
type Credentials struct {
	APIToken string `json:"api_token"`
	UserGUID string `json:"user_guid"`
}

// Типы отправлений NOEST.
const (
	TypeDelivery = 1
	TypeExchange = 2
	TypePickup   = 3
)

// Order описывает тело запроса на создание отправления в формате NOEST.
// Код станции обязателен только при доставке до пункта выдачи (stop_desk = 1).
type Order struct {
	Credentials
	Client      string      `json:"client" validate:"required"`
	Phone       string      `json:"phone" validate:"required"`
	Adresse     string      `json:"adresse" validate:"required"`
	WilayaID    int         `json:"wilaya_id" validate:"min=1,max=58"`
	Commune     string      `json:"commune" validate:"required"`
	Montant     json.Number `json:"montant"`
	Produit     string      `json:"produit" validate:"required"`
	TypeID      int         `json:"type_id" validate:"oneof=1 2 3"`
	StopDesk    int         `json:"stop_desk" validate:"oneof=0 1"`
	StationCode string      `json:"station_code,omitempty" validate:"required_if=StopDesk 1"`
}

// Reply содержит необработанный ответ NOEST. Формат тела у NOEST нестабилен,
// поэтому клиент его не разбирает.
type Reply struct {
	URL        string
	StatusCode int
	StatusText string
	Body       string
}

// OK сообщает, что NOEST ответил статусом 2xx.
func (r *Reply) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Client инкапсулирует HTTP-взаимодействие с NOEST.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент NOEST. Нулевой timeout означает отсутствие собственного ограничения:
// запрос ограничен только контекстом вызывающего.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "https://" + baseURL
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// CreateOrderURL возвращает адрес эндпоинта создания отправления.
func (c *Client) CreateOrderURL() string {
	return c.baseURL + createOrderPath
}

// CreateOrder отправляет заказ в NOEST.
func (c *Client) CreateOrder(ctx context.Context, order Order) (*Reply, error) {
	return c.post(ctx, order)
}

// Probe отправляет на эндпоинт создания отправления только учётные данные.
// Используется для проверки связи и ключей без создания заказа.
func (c *Client) Probe(ctx context.Context, creds Credentials) (*Reply, error) {
	return c.post(ctx, creds)
}

func (c *Client) post(ctx context.Context, payload any) (*Reply, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	url := c.CreateOrderURL()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return &Reply{
		URL:        url,
		StatusCode: resp.StatusCode,
		StatusText: http.StatusText(resp.StatusCode),
		Body:       string(raw),
	}, nil
}
