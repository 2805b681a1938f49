package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/velocity-9/v9-router/internal/component"
	"github.com/velocity-9/v9-router/internal/forward"
	"github.com/velocity-9/v9-router/internal/platform/logger"
	"github.com/velocity-9/v9-router/internal/routererr"
)

// componentHandler is the inbound adapter: it translates HTTP requests into
// component requests, hands them to the forwarder, and relays the worker's
// status and body unchanged. A stale-data retry inside the forwarder is
// invisible at this level.
type componentHandler struct {
	fw              *forward.Forwarder
	log             *logger.Logger
	maxRequestBytes int64
}

func (h *componentHandler) forward(c *gin.Context) {
	body, err := h.readBody(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if !utf8.Valid(body) {
		h.writeError(c, routererr.Decode(errors.New("request body is not valid UTF-8")))
		return
	}

	req := component.Request{
		Verb:        c.Request.Method,
		Query:       c.Request.URL.RawQuery,
		Body:        body,
		ContentType: c.ContentType(),
		Path: component.Path{
			User: c.Param("user"),
			Repo: c.Param("repo"),
		},
		Method: c.Param("method"),
	}

	resp, err := h.fw.Forward(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.Status(resp.Status)
	_, _ = c.Writer.Write(resp.Body)
}

// notRouted catches every path that does not carry the four
// /{prefix}/{user}/{repo}/{method} segments.
func (h *componentHandler) notRouted(c *gin.Context) {
	path := strings.Trim(c.Request.URL.Path, "/")
	c.String(http.StatusNotFound, routererr.PathNotFound(path).Error())
}

func (h *componentHandler) readBody(c *gin.Context) ([]byte, error) {
	r := c.Request.Body
	if h.maxRequestBytes > 0 {
		r = http.MaxBytesReader(c.Writer, r, h.maxRequestBytes)
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, routererr.Decode(err)
	}
	return body, nil
}

func (h *componentHandler) writeError(c *gin.Context, err error) {
	var rerr *routererr.Error
	if errors.As(err, &rerr) && rerr.Kind == routererr.KindPathNotFound {
		c.String(http.StatusNotFound, rerr.Error())
		return
	}

	h.log.With("request_id", requestIDFrom(c), "error", err.Error()).Error("internal router error")
	c.String(routererr.StatusInternalRouterError, err.Error())
}
