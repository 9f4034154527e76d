// Package relay реализует ретранслятор запросов к курьерской службе NOEST.
//
// Ретранслятор не хранит состояния между вызовами и никогда не возвращает ошибку наружу:
// любой исход, включая сбой сети, превращается в Response с корректным JSON-телом.
package relay

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/mmeshcher/schoolshop/internal/noest"
)

// Version отдаётся в ответе на ping.
const Version = "2.1.0"

// Ограничения длины текстов, возвращаемых клиенту.
const (
	diagnoseSnippetLimit = 600
	diagnoseDebugLimit   = 800
	createRawLimit       = 1500
	createDebugLimit     = 1200
)

// Метки ошибок транспорта в ответе.
const (
	ErrTagDiagnoseFailed = "diagnose_failed"
	ErrTagFetchFailed    = "fetch_failed"
)

// Courier описывает вызовы NOEST, которые выполняет ретранслятор.
type Courier interface {
	CreateOrder(ctx context.Context, order noest.Order) (*noest.Reply, error)
	Probe(ctx context.Context, creds noest.Credentials) (*noest.Reply, error)
}

// TransportError описывает сбой обращения к NOEST: сеть, таймаут, обрыв ответа.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("noest %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Delivery содержит результат вызова create_order, дошедшего до NOEST.
type Delivery struct {
	OK     bool
	Status int
	URL    string
	Raw    string
}

// Diagnosis содержит результат пробного запроса diagnose.
type Diagnosis struct {
	URLTested  string `json:"url_tested"`
	Status     int    `json:"status"`
	StatusText string `json:"statusText"`
	Snippet    string `json:"snippet"`
}

// Response описывает ответ ретранслятора. StatusCode задаёт HTTP-статус, остальные поля
// сериализуются в тело.
type Response struct {
	StatusCode int `json:"-"`

	OK        bool              `json:"ok"`
	Pong      bool              `json:"pong,omitempty"`
	Version   string            `json:"version,omitempty"`
	Data      *Diagnosis        `json:"data,omitempty"`
	Status    int               `json:"status,omitempty"`
	URL       string            `json:"url,omitempty"`
	Raw       *string           `json:"raw,omitempty"`
	Error     string            `json:"error,omitempty"`
	Debug     string            `json:"debug,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	Available []string          `json:"available,omitempty"`
}

// HealthReport отдаётся в ответ на GET-запрос к ретранслятору.
type HealthReport struct {
	OK        bool              `json:"ok"`
	Message   string            `json:"message"`
	Env       map[string]string `json:"env"`
	Timestamp string            `json:"timestamp"`
}

// Relay принимает действия ping, diagnose и create_order.
type Relay struct {
	courier  Courier
	creds    noest.Credentials
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time
}

// New создаёт ретранслятор. Учётные данные передаются явно и проверяются при каждом вызове.
func New(courier Courier, creds noest.Credentials, logger *zap.Logger) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{
		courier:  courier,
		creds:    creds,
		validate: newValidator(),
		logger:   logger,
		now:      time.Now,
	}
}

// Health сообщает о готовности ретранслятора без обращения к NOEST.
func (r *Relay) Health() HealthReport {
	return HealthReport{
		OK:      true,
		Message: "NOEST relay is running",
		Env: map[string]string{
			"NOEST_API_TOKEN": presence(r.creds.APIToken),
			"NOEST_USER_GUID": presence(r.creds.UserGUID),
		},
		Timestamp: r.now().UTC().Format(time.RFC3339),
	}
}

// Do выполняет действие запроса.
func (r *Relay) Do(ctx context.Context, req Request) Response {
	if req.Action == ActionPing {
		return Response{StatusCode: http.StatusOK, OK: true, Pong: true, Version: Version}
	}

	if r.creds.APIToken == "" || r.creds.UserGUID == "" {
		return Response{
			StatusCode: http.StatusInternalServerError,
			Error:      "NOEST credentials are not configured (NOEST_API_TOKEN, NOEST_USER_GUID)",
		}
	}

	switch req.Action {
	case ActionDiagnose:
		return r.diagnose(ctx)
	case ActionCreateOrder:
		return r.handleCreateOrder(ctx, req)
	default:
		return UnknownAction(req.Action)
	}
}

// UnknownAction строит ответ на неизвестное или отсутствующее действие.
func UnknownAction(action string) Response {
	msg := "missing action"
	if action != "" {
		msg = fmt.Sprintf("unknown action: %q", action)
	}
	return Response{
		StatusCode: http.StatusBadRequest,
		Error:      msg,
		Available:  append([]string(nil), Actions...),
	}
}

func (r *Relay) diagnose(ctx context.Context) Response {
	reply, err := r.courier.Probe(ctx, r.creds)
	if err != nil {
		terr := &TransportError{Op: ActionDiagnose, Err: err}
		r.logger.Warn("noest diagnose failed", zap.Error(terr))
		return Response{
			StatusCode: http.StatusOK,
			Error:      ErrTagDiagnoseFailed,
			Debug:      truncate(terr.Error(), diagnoseDebugLimit),
		}
	}

	return Response{
		StatusCode: http.StatusOK,
		OK:         true,
		Data: &Diagnosis{
			URLTested:  reply.URL,
			Status:     reply.StatusCode,
			StatusText: reply.StatusText,
			Snippet:    truncate(reply.Body, diagnoseSnippetLimit),
		},
	}
}

func (r *Relay) handleCreateOrder(ctx context.Context, req Request) Response {
	order, err := buildOrder(r.validate, req, r.creds)
	if err != nil {
		resp := Response{StatusCode: http.StatusUnprocessableEntity, Error: "validation_failed"}
		var ve *ValidationError
		if errors.As(err, &ve) {
			resp.Fields = ve.Fields
		} else {
			resp.Debug = err.Error()
		}
		return resp
	}

	delivery, err := r.CreateOrder(ctx, order)
	if err != nil {
		r.logger.Warn("noest create order failed", zap.Error(err), zap.Int("wilaya_id", order.WilayaID))
		return Response{
			StatusCode: http.StatusOK,
			Error:      ErrTagFetchFailed,
			Debug:      truncate(err.Error(), createDebugLimit),
		}
	}

	raw := truncate(delivery.Raw, createRawLimit)
	return Response{
		StatusCode: http.StatusOK,
		OK:         delivery.OK,
		Status:     delivery.Status,
		URL:        delivery.URL,
		Raw:        &raw,
	}
}

// CreateOrder отправляет проверенный заказ в NOEST. Ответ со статусом не 2xx не считается
// ошибкой: он возвращается в Delivery с OK = false. Ошибка всегда имеет тип *TransportError.
func (r *Relay) CreateOrder(ctx context.Context, order noest.Order) (Delivery, error) {
	reply, err := r.courier.CreateOrder(ctx, order)
	if err != nil {
		return Delivery{}, &TransportError{Op: ActionCreateOrder, Err: err}
	}

	return Delivery{
		OK:     reply.OK(),
		Status: reply.StatusCode,
		URL:    reply.URL,
		Raw:    reply.Body,
	}, nil
}

func presence(v string) string {
	if v == "" {
		return "MISSING"
	}
	return "Set"
}

// truncate обрезает строку до limit символов, не разрывая UTF-8.
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
