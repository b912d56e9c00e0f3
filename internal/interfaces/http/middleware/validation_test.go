package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stocklink/pos/internal/interfaces/http/dto"
)

type restockBody struct {
	Quantity int              `json:"quantity" binding:"required,gt=0"`
	Email    string           `json:"email" binding:"omitempty,email"`
	Price    *decimal.Decimal `json:"price" binding:"omitempty,gte=0"`
}

func bindRouter() *gin.Engine {
	SetupValidator()
	router := gin.New()
	router.POST("/bind", func(c *gin.Context) {
		var body restockBody
		if err := c.ShouldBindJSON(&body); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.Status(http.StatusOK)
	})
	return router
}

func TestHandleValidationError(t *testing.T) {
	router := bindRouter()
	post := func(body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/bind", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("should report json field names", func(t *testing.T) {
		w := post(`{"quantity":0,"email":"nope"}`)
		require.Equal(t, http.StatusBadRequest, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		fields := map[string]string{}
		for _, f := range resp.Error.Fields {
			fields[f.Field] = f.Message
		}
		assert.Equal(t, "This field is required", fields["quantity"])
		assert.Equal(t, "Invalid email format", fields["email"])
	})

	t.Run("should validate decimals as numbers", func(t *testing.T) {
		w := post(`{"quantity":3,"price":"-1.50"}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), `"field":"price"`)

		ok := post(`{"quantity":3,"price":"12.50"}`)
		assert.Equal(t, http.StatusOK, ok.Code)
	})

	t.Run("should flag malformed json", func(t *testing.T) {
		w := post(`{"quantity":`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Malformed request body")
	})
}
