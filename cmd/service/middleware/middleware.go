package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quillmind-ai/quillmind/app/response"
	"github.com/quillmind-ai/quillmind/pkg/errors"
	"github.com/quillmind-ai/quillmind/pkg/i18n"
)

func I18n() gin.HandlerFunc {
	var allowList []string
	for k := range i18n.ALLOW_LANG {
		allowList = append(allowList, k)
	}
	l := i18n.NewLocalizer(allowList...)

	return response.ProvideResponseLocalizer(l)
}

func Cors(c *gin.Context) {
	method := c.Request.Method
	origin := c.Request.Header.Get("Origin")
	if origin != "" {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, UPDATE")
		c.Header("Access-Control-Allow-Headers", "Origin, X-Requested-With, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Expose-Headers", "Content-Length, Access-Control-Allow-Origin, Access-Control-Allow-Headers, Cache-Control, Content-Language, Content-Type")
		c.Header("Access-Control-Allow-Credentials", "true")
	}
	if method == "OPTIONS" {
		c.AbortWithStatus(http.StatusNoContent)
	}
	c.Next()
}

// MetricsAuth guards the metrics endpoint with a shared password taken
// from config. An empty password leaves the endpoint open.
func MetricsAuth(password string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if password == "" {
			return
		}
		supplied := c.Query("password")
		if supplied == "" {
			_, supplied, _ = c.Request.BasicAuth()
		}
		if supplied != password {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": errors.New("middleware.MetricsAuth", i18n.ERROR_UNAUTHORIZED, nil).Message(),
			})
		}
	}
}
