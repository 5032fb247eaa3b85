package response

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestResponses(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		write      func(c *gin.Context)
		wantStatus int
		wantBody   string
	}{
		{"success", func(c *gin.Context) { Success(c, gin.H{"hasAdopted": true}) }, http.StatusOK, `{"hasAdopted":true}`},
		{"created", func(c *gin.Context) { Created(c, gin.H{"id": 1}) }, http.StatusCreated, `{"id":1}`},
		{"param error", func(c *gin.Context) { ParamError(c, "pet_id 参数错误") }, http.StatusBadRequest, `{"code":400,"message":"pet_id 参数错误"}`},
		{"not found", func(c *gin.Context) { NotFound(c, "宠物不存在") }, http.StatusNotFound, `{"code":404,"message":"宠物不存在"}`},
		{"server error hides detail", func(c *gin.Context) { ServerError(c) }, http.StatusInternalServerError, `{"code":500,"message":"服务器内部错误"}`},
		{"business error", func(c *gin.Context) { Error(c, http.StatusBadRequest, CodeDuplicateTransaction, "重复") }, http.StatusBadRequest, `{"code":1007,"message":"重复"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			tt.write(c)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}
