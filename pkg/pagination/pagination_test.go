package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name  string
		query string
		want  Params
	}{
		{"defaults", "", Params{Page: 1, Limit: 20, Offset: 0}},
		{"explicit", "?page=3&limit=10", Params{Page: 3, Limit: 10, Offset: 20}},
		{"limit capped", "?limit=1000", Params{Page: 1, Limit: MaxLimit, Offset: 0}},
		{"garbage", "?page=abc&limit=-4", Params{Page: 1, Limit: 20, Offset: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest("GET", "/orders"+tt.query, nil)
			assert.Equal(t, tt.want, Parse(c))
		})
	}
}
