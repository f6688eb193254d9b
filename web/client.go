/* Copyright 2026 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package web provides the default wire-level collaborators: an HTTP
// client on net/http and a websocket bridge that feeds Signal.
package web

import (
	"bytes"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/Comcast/gauntlet/core"

	"golang.org/x/net/publicsuffix"
)

// Client implements core.HTTPClient with a publicsuffix-aware cookie
// jar, so server-set cookies flow back on subsequent requests even
// before the engine merges them into its config.
type Client struct {
	logger core.Logger
	hc     *http.Client
}

// NewClient is the stock core.Config.ClientFactory.
func NewClient(e *core.Engine) core.HTTPClient {
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	c := &Client{
		logger: e.Logger,
		hc:     &http.Client{Jar: jar},
	}
	c.ConfigChanged(e.Config, "")
	return c
}

// ConfigChanged rebuilds the transport when a timeout changes.  Other
// keys are engine-side concerns and ignored here.
func (c *Client) ConfigChanged(config *core.Config, key string) {
	switch key {
	case "", "connectTimeout", "readTimeout":
	default:
		return
	}
	c.hc.Timeout = config.ReadTimeout
	transport := &http.Transport{}
	if 0 < config.ConnectTimeout {
		transport.DialContext = (&net.Dialer{Timeout: config.ConnectTimeout}).DialContext
	}
	c.hc.Transport = transport
}

// Invoke performs the request and captures status, headers, body, and
// response cookies.
func (c *Client) Invoke(req *core.HTTPRequest) (*core.HTTPResponse, error) {
	hr, err := http.NewRequest(req.Method, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return nil, err
	}
	for k, vs := range req.Headers {
		for _, v := range vs {
			hr.Header.Add(k, v)
		}
	}
	c.logger.Debugf("request: %s %s", req.Method, req.URL)
	resp, err := c.hc.Do(hr)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	req.EndTime = time.Now()
	if err != nil {
		return nil, err
	}
	out := &core.HTTPResponse{
		Status:  resp.StatusCode,
		Headers: resp.Header,
		Body:    body,
		Cookies: make(map[string]map[string]interface{}),
	}
	for _, ck := range resp.Cookies() {
		out.Cookies[ck.Name] = map[string]interface{}{
			"name":     ck.Name,
			"value":    ck.Value,
			"domain":   ck.Domain,
			"path":     ck.Path,
			"secure":   ck.Secure,
			"httponly": ck.HttpOnly,
		}
	}
	c.logger.Debugf("response: %d (%d bytes)", resp.StatusCode, len(body))
	return out, nil
}
