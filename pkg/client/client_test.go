package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehr/registry/pkg/listview"
	"github.com/ehr/registry/pkg/pagination"
)

// fakeAPI serves canned responses and records the last request.
type fakeAPI struct {
	last     *http.Request
	lastBody []byte
}

func newTestClient(t *testing.T, api *fakeAPI) *Client {
	t.Helper()
	e := echo.New()
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			api.last = c.Request()
			api.lastBody, _ = io.ReadAll(c.Request().Body)
			return next(c)
		}
	})

	g := e.Group("/api")
	g.GET("/patients", func(c echo.Context) error {
		p := pagination.FromContext(c)
		return c.JSON(http.StatusOK, pagination.NewPage([]Patient{{ID: 1, Name: "Ann", MRN: "X1"}}, 6, p))
	})
	g.GET("/patients/count", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]int{"count": 5})
	})
	g.POST("/patients", func(c echo.Context) error {
		var in NewPatient
		json.Unmarshal(api.lastBody, &in)
		if in.MRN == "X1" {
			return c.JSON(http.StatusConflict, map[string]string{"error": "Patient with this MRN already exists"})
		}
		if in.Name == "" {
			return c.JSON(http.StatusBadRequest, map[string]any{
				"error":  "All fields (name, gender, mrn, birth_date) are required",
				"fields": map[string]string{"name": "is required"},
			})
		}
		return c.JSON(http.StatusCreated, Patient{ID: 9, Name: in.Name, MRN: in.MRN, Gender: in.Gender})
	})
	g.GET("/patients/:id/orders", func(c echo.Context) error {
		p := pagination.FromContext(c)
		return c.JSON(http.StatusOK, pagination.NewPage([]Order{{ID: 3, PatientID: 1, Message: c.Param("id")}}, 1, p))
	})
	g.POST("/orders", func(c echo.Context) error {
		var in struct {
			PatientID int64  `json:"patient_id"`
			Message   string `json:"message"`
		}
		json.Unmarshal(api.lastBody, &in)
		now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		return c.JSON(http.StatusOK, Order{ID: 3, PatientID: in.PatientID, Message: in.Message, CreatedAt: now, UpdatedAt: now})
	})
	g.PUT("/orders/:id", func(c echo.Context) error {
		if c.Param("id") != "3" {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Order not found"})
		}
		var in struct {
			Message string `json:"message"`
		}
		json.Unmarshal(api.lastBody, &in)
		created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		return c.JSON(http.StatusOK, Order{ID: 3, PatientID: 1, Message: in.Message, CreatedAt: created, UpdatedAt: created.Add(time.Minute)})
	})

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	c, err := New(srv.URL+"/", WithHTTPClient(srv.Client()), WithTimeout(2*time.Second))
	require.NoError(t, err)
	return c
}

func TestNew_RejectsBadURL(t *testing.T) {
	_, err := New("localhost:3000")
	assert.Error(t, err)

	_, err = New("ftp://example.com")
	assert.Error(t, err)
}

func TestClient_ListPatients(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(t, api)

	page, err := c.ListPatients(context.Background(), pagination.Params{Page: 2, Limit: 5, Search: "a n"})
	require.NoError(t, err)

	assert.Equal(t, "/api/patients", api.last.URL.Path)
	assert.Equal(t, "a n", api.last.URL.Query().Get("search"))
	assert.NotEmpty(t, api.last.Header.Get(requestIDHeader))
	assert.Equal(t, 6, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "Ann", page.Data[0].Name)
}

func TestClient_CountPatients(t *testing.T) {
	c := newTestClient(t, &fakeAPI{})

	n, err := c.CountPatients(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestClient_CreatePatient(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(t, api)

	p, err := c.CreatePatient(context.Background(), NewPatient{Name: "Bob", MRN: "B1", Gender: "Male", BirthDate: "1990-01-01"})
	require.NoError(t, err)
	assert.Equal(t, int64(9), p.ID)
	assert.Equal(t, "application/json", api.last.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"name":"Bob","mrn":"B1","gender":"Male","birth_date":"1990-01-01"}`, string(api.lastBody))
}

func TestClient_CreatePatient_Errors(t *testing.T) {
	c := newTestClient(t, &fakeAPI{})

	_, err := c.CreatePatient(context.Background(), NewPatient{Name: "Ann", MRN: "X1"})
	assert.True(t, IsConflict(err))

	var ae *APIError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "Patient with this MRN already exists", ae.Message)

	_, err = c.CreatePatient(context.Background(), NewPatient{MRN: "Z9"})
	assert.True(t, IsValidation(err))
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, map[string]string{"name": "is required"}, ae.Fields)
}

func TestClient_Orders(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(t, api)
	ctx := context.Background()

	o, err := c.CreateOrder(ctx, 1, "Take aspirin")
	require.NoError(t, err)
	assert.JSONEq(t, `{"patient_id":1,"message":"Take aspirin"}`, string(api.lastBody))
	assert.False(t, o.Edited())

	o, err = c.UpdateOrder(ctx, o.ID, "Take ibuprofen")
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, api.last.Method)
	assert.Equal(t, "Take ibuprofen", o.Message)
	assert.True(t, o.Edited())

	_, err = c.UpdateOrder(ctx, 42, "x")
	assert.True(t, IsNotFound(err))

	page, err := c.ListOrders(ctx, 1, pagination.Params{Page: 1, Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, "/api/patients/1/orders", api.last.URL.Path)
	require.Len(t, page.Data, 1)
}

func TestAPIError_UnparseableBody(t *testing.T) {
	err := newAPIError(http.StatusBadGateway, []byte("<html>"))
	assert.Equal(t, "Bad Gateway", err.Message)
	assert.False(t, IsNotFound(err))
	assert.False(t, IsRateLimited(errors.New("plain")))
}

func TestFetchers_DriveController(t *testing.T) {
	c := newTestClient(t, &fakeAPI{})

	patients := listview.NewController(listview.NewMemoryParamStore(pagination.Params{}), PatientFetcher(c))
	defer patients.Close()
	patients.Wait()
	assert.Equal(t, listview.Loaded, patients.Snapshot().State)

	orders := listview.NewController(listview.NewMemoryParamStore(pagination.Params{}), OrderFetcher(c), listview.WithParent(""))
	defer orders.Close()
	assert.Zero(t, orders.Issued())

	orders.SetParent("1")
	orders.Wait()
	snap := orders.Snapshot()
	require.Equal(t, listview.Loaded, snap.State)
	assert.Equal(t, "1", snap.Page.Data[0].Message)
}
