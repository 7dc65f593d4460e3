package utils

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAssetKey(t *testing.T) {
	a, err := GenerateAssetKey("products", ".jpg")
	require.NoError(t, err)
	b, err := GenerateAssetKey("products", ".jpg")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(a, "products/img_"))
	assert.True(t, strings.HasSuffix(a, ".jpg"))
	assert.NotEqual(t, a, b)
}

func TestSignature(t *testing.T) {
	sig := GenerateSignature([]byte("payload"), "secret")
	assert.True(t, VerifySignature([]byte("payload"), sig, "secret"))
	assert.False(t, VerifySignature([]byte("payload"), sig, "other"))
	assert.False(t, VerifySignature([]byte("tampered"), sig, "secret"))
}

func TestErrorEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("request_id", "abcd1234")

	Error(c, 503, "UNAVAILABLE", "store down")

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 503, w.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, "UNAVAILABLE", resp.Error.Code)
	assert.Equal(t, "abcd1234", resp.Meta.RequestID)
}
