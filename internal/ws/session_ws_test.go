package ws

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestBearerTokenParsing(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name   string
		header string
		query  string
		want   string
	}{
		{name: "bearer header", header: "Bearer tok-1", want: "tok-1"},
		{name: "case-insensitive scheme", header: "bearer tok-2", want: "tok-2"},
		{name: "basic scheme rejected", header: "Basic dXNlcjpwYXNz", want: ""},
		{name: "token scheme rejected", header: "Token tok-3", want: ""},
		{name: "scheme without token", header: "Bearer", want: ""},
		{name: "query fallback", query: "tok-4", want: "tok-4"},
		{name: "header wins over query", header: "Bearer tok-5", query: "tok-6", want: "tok-5"},
		{name: "nothing", want: ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			url := "/ws/session"
			if tc.query != "" {
				url += "?token=" + tc.query
			}
			c.Request = httptest.NewRequest(http.MethodGet, url, nil)
			if tc.header != "" {
				c.Request.Header.Set("Authorization", tc.header)
			}
			require.Equal(t, tc.want, bearerToken(c))
		})
	}
}
