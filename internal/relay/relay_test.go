package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/schoolshop/internal/noest"
)

type fakeCourier struct {
	createCalls int
	probeCalls  int

	lastOrder noest.Order
	lastCreds noest.Credentials

	reply *noest.Reply
	err   error
}

func (f *fakeCourier) CreateOrder(ctx context.Context, order noest.Order) (*noest.Reply, error) {
	f.createCalls++
	f.lastOrder = order
	return f.reply, f.err
}

func (f *fakeCourier) Probe(ctx context.Context, creds noest.Credentials) (*noest.Reply, error) {
	f.probeCalls++
	f.lastCreds = creds
	return f.reply, f.err
}

var testCreds = noest.Credentials{APIToken: "token-123", UserGUID: "guid-456"}

func validRequest() Request {
	return Request{
		Action:   ActionCreateOrder,
		Client:   "Amine Belkacem",
		Phone:    "0550123456",
		Adresse:  "Cité 5 Juillet, bloc 12",
		WilayaID: NumberOf(16),
		Commune:  "Bab Ezzouar",
		Montant:  NumberFromString("3242"),
		Produit:  "Cartable x1, Cahier 96p x4",
		TypeID:   NumberOf(1),
		StopDesk: NumberOf(0),
	}
}

func okReply(body string) *noest.Reply {
	return &noest.Reply{
		URL:        "https://app.noest-dz.com/api/public/create/order",
		StatusCode: http.StatusOK,
		StatusText: "OK",
		Body:       body,
	}
}

func TestPing_NoCredentialsNeeded(t *testing.T) {
	courier := &fakeCourier{}
	r := New(courier, noest.Credentials{}, nil)

	resp := r.Do(context.Background(), Request{Action: ActionPing})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, resp.OK)
	assert.True(t, resp.Pong)
	assert.Equal(t, Version, resp.Version)
	assert.Zero(t, courier.createCalls+courier.probeCalls)
}

func TestMissingCredentials(t *testing.T) {
	cases := []noest.Credentials{
		{},
		{APIToken: "only-token"},
		{UserGUID: "only-guid"},
	}

	for _, creds := range cases {
		for _, action := range []string{ActionDiagnose, ActionCreateOrder, "frobnicate", ""} {
			courier := &fakeCourier{reply: okReply("{}")}
			r := New(courier, creds, nil)

			req := validRequest()
			req.Action = action
			resp := r.Do(context.Background(), req)

			assert.Equal(t, http.StatusInternalServerError, resp.StatusCode, "action %q", action)
			assert.False(t, resp.OK)
			assert.NotEmpty(t, resp.Error)
			assert.Zero(t, courier.createCalls+courier.probeCalls, "action %q", action)
		}
	}
}

func TestUnknownAction(t *testing.T) {
	for _, action := range []string{"frobnicate", ""} {
		courier := &fakeCourier{}
		resp := New(courier, testCreds, nil).Do(context.Background(), Request{Action: action})

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.False(t, resp.OK)
		assert.Equal(t, []string{"ping", "diagnose", "create_order"}, resp.Available)
		assert.Zero(t, courier.createCalls+courier.probeCalls)
	}

	resp := UnknownAction("frobnicate")
	assert.Contains(t, resp.Error, "frobnicate")
}

func TestDiagnose_Success(t *testing.T) {
	body := strings.Repeat("é", 700)
	courier := &fakeCourier{reply: &noest.Reply{
		URL:        "https://app.noest-dz.com/api/public/create/order",
		StatusCode: http.StatusUnprocessableEntity,
		StatusText: "Unprocessable Entity",
		Body:       body,
	}}

	resp := New(courier, testCreds, nil).Do(context.Background(), Request{Action: ActionDiagnose})

	require.NotNil(t, resp.Data)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, resp.OK)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Data.Status)
	assert.Equal(t, "Unprocessable Entity", resp.Data.StatusText)
	assert.Equal(t, courier.reply.URL, resp.Data.URLTested)
	assert.Equal(t, 600, utf8.RuneCountInString(resp.Data.Snippet))
	assert.Equal(t, testCreds, courier.lastCreds)
	assert.Equal(t, 1, courier.probeCalls)
	assert.Zero(t, courier.createCalls)
}

func TestDiagnose_TransportFailure(t *testing.T) {
	courier := &fakeCourier{err: errors.New(strings.Repeat("dial tcp: connection refused ", 100))}

	resp := New(courier, testCreds, nil).Do(context.Background(), Request{Action: ActionDiagnose})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, resp.OK)
	assert.Equal(t, "diagnose_failed", resp.Error)
	assert.LessOrEqual(t, utf8.RuneCountInString(resp.Debug), 800)
	assert.NotEmpty(t, resp.Debug)
}

func TestCreateOrder_Success(t *testing.T) {
	courier := &fakeCourier{reply: okReply(`{"success":true,"tracking":"NOE-42"}`)}

	resp := New(courier, testCreds, nil).Do(context.Background(), validRequest())

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, resp.OK)
	assert.Equal(t, http.StatusOK, resp.Status)
	require.NotNil(t, resp.Raw)
	assert.Equal(t, `{"success":true,"tracking":"NOE-42"}`, *resp.Raw)
	assert.Equal(t, 1, courier.createCalls)

	sent := courier.lastOrder
	assert.Equal(t, testCreds, sent.Credentials)
	assert.Equal(t, 16, sent.WilayaID)
	assert.Equal(t, "3242", sent.Montant.String())
	assert.Equal(t, 0, sent.StopDesk)
	assert.Empty(t, sent.StationCode)
}

func TestCreateOrder_Non2xxIsNotOK(t *testing.T) {
	courier := &fakeCourier{reply: &noest.Reply{StatusCode: http.StatusUnprocessableEntity, Body: strings.Repeat("x", 2000)}}

	resp := New(courier, testCreds, nil).Do(context.Background(), validRequest())

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, resp.OK)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Status)
	require.NotNil(t, resp.Raw)
	assert.Len(t, *resp.Raw, 1500)
}

func TestCreateOrder_StopDeskRequiresStationCode(t *testing.T) {
	for _, code := range []string{"", "   "} {
		courier := &fakeCourier{reply: okReply("{}")}
		req := validRequest()
		req.StopDesk = NumberOf(1)
		req.StationCode = code

		resp := New(courier, testCreds, nil).Do(context.Background(), req)

		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		assert.False(t, resp.OK)
		assert.Contains(t, resp.Fields, "station_code")
		assert.Zero(t, courier.createCalls, "no outbound call on validation failure")
	}
}

func TestCreateOrder_StopDeskWithStationCode(t *testing.T) {
	courier := &fakeCourier{reply: okReply("{}")}
	req := validRequest()
	req.StopDesk = NumberFromString("1")
	req.StationCode = " ABC123 "

	resp := New(courier, testCreds, nil).Do(context.Background(), req)

	assert.True(t, resp.OK)
	require.Equal(t, 1, courier.createCalls)
	assert.Equal(t, "ABC123", courier.lastOrder.StationCode)

	body, err := json.Marshal(courier.lastOrder)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"station_code":"ABC123"`)
}

func TestCreateOrder_TransportFailure(t *testing.T) {
	courier := &fakeCourier{err: errors.New(strings.Repeat("net/http: request canceled ", 200))}

	resp := New(courier, testCreds, nil).Do(context.Background(), validRequest())

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, resp.OK)
	assert.Equal(t, "fetch_failed", resp.Error)
	assert.LessOrEqual(t, utf8.RuneCountInString(resp.Debug), 1200)
	assert.Nil(t, resp.Raw)
}

func TestCreateOrder_ValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(r *Request)
		field string
	}{
		{name: "missing client", edit: func(r *Request) { r.Client = "" }, field: "client"},
		{name: "missing phone", edit: func(r *Request) { r.Phone = " " }, field: "phone"},
		{name: "missing adresse", edit: func(r *Request) { r.Adresse = "" }, field: "adresse"},
		{name: "missing commune", edit: func(r *Request) { r.Commune = "" }, field: "commune"},
		{name: "missing produit", edit: func(r *Request) { r.Produit = "" }, field: "produit"},
		{name: "missing wilaya", edit: func(r *Request) { r.WilayaID = Number{} }, field: "wilaya_id"},
		{name: "wilaya out of range", edit: func(r *Request) { r.WilayaID = NumberOf(99) }, field: "wilaya_id"},
		{name: "wilaya not a number", edit: func(r *Request) { r.WilayaID = NumberFromString("Alger") }, field: "wilaya_id"},
		{name: "montant NaN", edit: func(r *Request) { r.Montant = NumberFromString("NaN") }, field: "montant"},
		{name: "montant negative", edit: func(r *Request) { r.Montant = NumberFromString("-5") }, field: "montant"},
		{name: "montant missing", edit: func(r *Request) { r.Montant = Number{} }, field: "montant"},
		{name: "type id unknown", edit: func(r *Request) { r.TypeID = NumberOf(7) }, field: "type_id"},
		{name: "type id fractional", edit: func(r *Request) { r.TypeID = NumberFromString("1.5") }, field: "type_id"},
		{name: "stop desk 2", edit: func(r *Request) { r.StopDesk = NumberOf(2) }, field: "stop_desk"},
		{name: "wilaya wraps past 2^64", edit: func(r *Request) { r.WilayaID = NumberFromString("18446744073709551632") }, field: "wilaya_id"},
		{name: "type id wraps past 2^64", edit: func(r *Request) { r.TypeID = NumberFromString("18446744073709551617") }, field: "type_id"},
		{name: "wilaya above int32", edit: func(r *Request) { r.WilayaID = NumberFromString("4294967312") }, field: "wilaya_id"},
		{name: "wilaya huge exponent", edit: func(r *Request) { r.WilayaID = NumberFromString("1e100000000") }, field: "wilaya_id"},
		{name: "montant huge exponent", edit: func(r *Request) { r.Montant = NumberFromString("1e100000000") }, field: "montant"},
		{name: "montant tiny exponent", edit: func(r *Request) { r.Montant = NumberFromString("1e-100000000") }, field: "montant"},
		{name: "montant too long", edit: func(r *Request) { r.Montant = NumberFromString(strings.Repeat("9", 40)) }, field: "montant"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			courier := &fakeCourier{reply: okReply("{}")}
			req := validRequest()
			tt.edit(&req)

			resp := New(courier, testCreds, nil).Do(context.Background(), req)

			assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
			assert.Contains(t, resp.Fields, tt.field)
			assert.Zero(t, courier.createCalls)
		})
	}
}

func TestHealth(t *testing.T) {
	courier := &fakeCourier{}
	r := New(courier, noest.Credentials{APIToken: "x"}, nil)
	r.now = func() time.Time { return time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC) }

	report := r.Health()

	assert.True(t, report.OK)
	assert.Equal(t, "Set", report.Env["NOEST_API_TOKEN"])
	assert.Equal(t, "MISSING", report.Env["NOEST_USER_GUID"])
	assert.Equal(t, "2026-10-01T12:00:00Z", report.Timestamp)
	assert.Zero(t, courier.createCalls+courier.probeCalls)
}

func TestCreateOrder_ReturnsTransportError(t *testing.T) {
	courier := &fakeCourier{err: context.DeadlineExceeded}
	order, err := buildOrder(newValidator(), validRequest(), testCreds)
	require.NoError(t, err)

	_, err = New(courier, testCreds, nil).CreateOrder(context.Background(), order)

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDecodeRequest(t *testing.T) {
	req, err := DecodeRequest(strings.NewReader(`{"action":" create_order ","wilaya_id":"16","montant":1500,"stop_desk":1,"station_code":"ABC123"}`))
	require.NoError(t, err)

	assert.Equal(t, ActionCreateOrder, req.Action)
	id, err := req.WilayaID.Int()
	require.NoError(t, err)
	assert.Equal(t, 16, id)
	amount, err := req.Montant.Decimal()
	require.NoError(t, err)
	assert.Equal(t, "1500", amount.String())

	empty, err := DecodeRequest(strings.NewReader("  "))
	require.NoError(t, err)
	assert.Empty(t, empty.Action)

	_, err = DecodeRequest(strings.NewReader("{not json"))
	assert.Error(t, err)
}

func TestNumber_NonNumericTokens(t *testing.T) {
	var req Request
	require.NoError(t, json.Unmarshal([]byte(`{"type_id":true,"stop_desk":null}`), &req))

	_, err := req.TypeID.Int()
	assert.Error(t, err)
	assert.False(t, req.StopDesk.IsSet())
}

func TestNumber_Bounds(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr string
	}{
		{raw: "16", want: 16},
		{raw: "16.00", want: 16},
		{raw: "1.6e1", want: 16},
		{raw: "2147483647", want: 2147483647},
		{raw: "-2147483648", want: -2147483648},
		{raw: "2147483648", wantErr: "is out of range"},
		{raw: "18446744073709551632", wantErr: "is out of range"},
		{raw: "1e100000000", wantErr: "is out of range"},
		{raw: "1e19", wantErr: "is out of range"},
		{raw: "16.5", wantErr: "must be an integer"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			done := make(chan struct{})
			var (
				got int
				err error
			)
			go func() {
				defer close(done)
				got, err = NumberFromString(tt.raw).Int()
			}()

			select {
			case <-done:
			case <-time.After(time.Second):
				t.Fatalf("Int(%q) did not return in time", tt.raw)
			}

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantErr, err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
