package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/yungbote/fleet-backend/internal/http/response"
)

var (
	errNotAcceptable    = errors.New("NOT ACCEPTABLE: server only sends application/json data")
	errUnsupportedMedia = errors.New("server only receives application/json data")
	errMalformedBody    = errors.New("request body is not valid JSON")
	errInternal         = errors.New("internal server error")
)

// acceptsJSON reports whether the client can take a JSON response. A missing
// Accept header accepts anything.
func acceptsJSON(c *gin.Context) bool {
	return c.NegotiateFormat(binding.MIMEJSON) != ""
}

func sendsJSON(c *gin.Context) bool {
	return c.ContentType() == binding.MIMEJSON
}

// requireAcceptJSON writes 406 and returns false when JSON is not acceptable.
func requireAcceptJSON(c *gin.Context) bool {
	if acceptsJSON(c) {
		return true
	}
	response.RespondError(c, http.StatusNotAcceptable, "not_acceptable", errNotAcceptable)
	return false
}

func requestScheme(c *gin.Context) string {
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		if i := strings.IndexByte(proto, ','); i >= 0 {
			proto = proto[:i]
		}
		if proto = strings.ToLower(strings.TrimSpace(proto)); proto == "http" || proto == "https" {
			return proto
		}
	}
	if c.Request.TLS != nil {
		return "https"
	}
	return "http"
}

// absoluteURL joins path onto the scheme and host the client used.
func absoluteURL(c *gin.Context, path string) string {
	return requestScheme(c) + "://" + c.Request.Host + path
}

func nextLink(c *gin.Context, path, cursor string) string {
	if cursor == "" {
		return ""
	}
	return absoluteURL(c, path) + "?cursor=" + url.QueryEscape(cursor)
}

// pathID parses a positive numeric path parameter. Anything else cannot name
// a stored record.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// hasBody reports whether the request carries a non-whitespace body. The body
// is buffered so it can be decoded afterwards.
func hasBody(c *gin.Context) (bool, error) {
	raw, err := c.GetRawData()
	if err != nil {
		return false, err
	}
	c.Set(gin.BodyBytesKey, raw)
	return len(bytes.TrimSpace(raw)) > 0, nil
}

// decodeBody unmarshals the buffered body into dst. An empty body decodes as {}.
func decodeBody(c *gin.Context, dst any) error {
	var raw []byte
	if v, ok := c.Get(gin.BodyBytesKey); ok {
		raw, _ = v.([]byte)
	} else {
		var err error
		if raw, err = c.GetRawData(); err != nil {
			return err
		}
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return errMalformedBody
	}
	return nil
}

func errMethodNotAllowed(method, path string) error {
	return errors.New(method + " is not allowed on " + path)
}
