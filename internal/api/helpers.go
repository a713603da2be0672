package api

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"AnitMarket/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

var registerTagNameOnce sync.Once

// useJSONFieldNames 让校验错误使用 json 字段名（walletAddress 而不是 WalletAddress）
func useJSONFieldNames() {
	registerTagNameOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
	})
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// missingFromValidation 把校验错误转成字段路径列表，如 payload.reference、outcomes[0].name
func missingFromValidation(verrs validator.ValidationErrors) []string {
	missing := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		name := fe.Namespace()
		if i := strings.Index(name, "."); i >= 0 {
			name = name[i+1:]
		}
		if fe.Tag() == "required_without" {
			name += "|" + lowerFirst(fe.Param())
		}
		missing = append(missing, name)
	}
	return missing
}

func respondMissing(c *gin.Context, missing []string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "missing required fields", "missing": missing})
}

// bindJSON 解析请求体；缺字段时返回 400 与缺失字段列表
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			respondMissing(c, missingFromValidation(verrs))
			return false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return false
	}
	return true
}

// requireQuery 检查必需的查询参数，缺失时已写入 400
func requireQuery(c *gin.Context, names ...string) (map[string]string, bool) {
	values := make(map[string]string, len(names))
	var missing []string
	for _, n := range names {
		v := strings.TrimSpace(c.Query(n))
		if v == "" {
			missing = append(missing, n)
			continue
		}
		values[n] = v
	}
	if len(missing) > 0 {
		respondMissing(c, missing)
		return nil, false
	}
	return values, true
}

// writeError 按错误类型映射状态码；500 只返回通用信息，细节写日志
func writeError(c *gin.Context, logger *logrus.Logger, op string, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, service.ErrReferenceNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Reference not found in database"})
	case errors.Is(err, service.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status, expected one of pending, won, lost, cancelled"})
	case errors.Is(err, service.ErrInvalidEvent):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid TransferReference event"})
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
	case errors.Is(err, service.ErrTierUnavailable):
		logger.WithError(err).WithField("op", op).Warn("存储层不可用")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage unavailable"})
	default:
		logger.WithError(err).WithField("op", op).Error(op + " failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
