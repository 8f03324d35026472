package handler

import (
	"fmt"
	"io"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/D191001/libra/internal/middleware"
	"github.com/D191001/libra/internal/model"
)

type call struct {
	method  string
	target  string
	body    string
	form    url.Values
	bearer  string
	caller  *model.Caller
	params  map[string]string
	handler echo.HandlerFunc
}

func (tc call) do(t *testing.T) *httptest.ResponseRecorder {
	t.Helper()

	var body io.Reader
	if tc.body != "" {
		body = strings.NewReader(tc.body)
	}
	if tc.form != nil {
		body = strings.NewReader(tc.form.Encode())
	}
	req := httptest.NewRequest(tc.method, tc.target, body)
	switch {
	case tc.form != nil:
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	case tc.body != "":
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if tc.bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+tc.bearer)
	}

	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	if len(tc.params) > 0 {
		names := make([]string, 0, len(tc.params))
		values := make([]string, 0, len(tc.params))
		for name, value := range tc.params {
			names = append(names, name)
			values = append(values, value)
		}
		c.SetParamNames(names...)
		c.SetParamValues(values...)
	}
	if tc.caller != nil {
		middleware.SetCaller(c, *tc.caller)
	}
	require.NoError(t, tc.handler(c))
	return rec
}

func user(id uint64) *model.Caller {
	return &model.Caller{UserID: id, IsActive: true}
}

func admin(id uint64) *model.Caller {
	return &model.Caller{UserID: id, IsActive: true, IsAdmin: true}
}

func assertError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), fmt.Sprintf(`"error":%q`, code))
}
