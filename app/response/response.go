package response

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/quillmind-ai/quillmind/pkg/errors"
	"github.com/quillmind-ai/quillmind/pkg/i18n"
	"github.com/quillmind-ai/quillmind/pkg/utils"
)

func ProvideResponseLocalizer(l i18n.Localizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("i18n", l)
	}
}

func InjectResponseLocalizer(c *gin.Context) i18n.Localizer {
	return c.MustGet("i18n").(i18n.Localizer)
}

const (
	RequestIDKey = "request_id"
	ResponseKey  = "response_key"
)

type Response struct {
	Meta Meta        `json:"meta"`
	Data interface{} `json:"data"`
}

type Meta struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

// ListResult wraps paged collections so every listing endpoint shapes
// its payload the same way.
type ListResult struct {
	List  interface{} `json:"list"`
	Total uint64      `json:"total"`
}

func GetLangFromRequestOrDefault(c *gin.Context) string {
	for _, lang := range utils.ParseAcceptLanguage(c.Request.Header.Get("Accept-Language")) {
		tag := lang.Tag
		if tag == "zh" || strings.HasPrefix(tag, "zh-") {
			tag = "zh-CN"
		}
		if i18n.ALLOW_LANG[tag] {
			return tag
		}
		if base, _, ok := strings.Cut(tag, "-"); ok && i18n.ALLOW_LANG[base] {
			return base
		}
	}
	return i18n.DEFAULT_LANG
}

// APIError finishes the request with the error's code and its
// localized message.
func APIError(c *gin.Context, err error) {
	c.Abort()
	l := InjectResponseLocalizer(c)

	res := c.MustGet(ResponseKey).(*Response)
	var httpStatus int
	if cerrptr, ok := err.(*errors.CustomizedError); !ok {
		res.Meta.Code = http.StatusInternalServerError
		res.Meta.Message = err.Error()
		httpStatus = res.Meta.Code
	} else {
		res.Meta.Code = cerrptr.GetCode()
		lang := GetLangFromRequestOrDefault(c)
		res.Meta.Message = l.Get(lang, cerrptr.Message())
		httpStatus = cerrptr.GetCode()
	}

	c.JSON(httpStatus, res)
	printErrorLog(c, res, err)
}

func printErrorLog(c *gin.Context, res *Response, err error) {
	slog.Error("response error",
		slog.String("request_uri", c.Request.URL.Path),
		slog.String("method", c.Request.Method),
		slog.Int("code", res.Meta.Code),
		slog.String("request_id", res.Meta.RequestID),
		slog.Int64("end_time", time.Now().Unix()),
		slog.String("error", err.Error()))
}

func printSuccessLog(c *gin.Context, res *Response) {
	slog.Info("request success",
		slog.String("request_uri", c.Request.URL.Path),
		slog.String("method", c.Request.Method),
		slog.String("request_id", res.Meta.RequestID),
		slog.Int64("end_time", time.Now().Unix()),
		slog.String("params", c.Request.URL.Query().Encode()))
}

func APISuccess(c *gin.Context, response interface{}) {
	c.Abort()
	res := c.MustGet(ResponseKey).(*Response)
	if response != nil {
		res.Data = response
	}
	c.JSON(http.StatusOK, res)
	printSuccessLog(c, res)
}

// NewResponse seeds each request with the envelope every handler
// writes into.
func NewResponse() gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := &Response{
			Meta: Meta{
				RequestID: utils.GenRandomID(),
			},
		}
		c.Set(ResponseKey, resp)
	}
}
