package core

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"
	"strings"
	"time"

	"github.com/ohler55/ojg/oj"
)

// HTTPRequest is the transient, single-use request handed to the HTTP
// client collaborator.
type HTTPRequest struct {
	Method  string
	URL     string
	Headers map[string][]string
	Body    []byte

	// StartTime is set by the engine; EndTime may be adjusted by
	// the client if it knows better.
	StartTime time.Time
	EndTime   time.Time
}

// HTTPResponse is what the HTTP client collaborator returns.
type HTTPResponse struct {
	Status  int
	Headers map[string][]string
	Body    []byte

	// Cookies maps cookie name to its attributes (name, value,
	// domain, path, ...).
	Cookies map[string]map[string]interface{}
}

// HTTPClient is the wire-level transport collaborator.
type HTTPClient interface {
	Invoke(req *HTTPRequest) (*HTTPResponse, error)

	// ConfigChanged notifies the client that a configuration key it
	// may care about was mutated.  An empty key means "everything".
	ConfigChanged(config *Config, key string)
}

var httpMethods = map[string]bool{
	"GET": true, "HEAD": true, "POST": true, "PUT": true, "DELETE": true,
	"CONNECT": true, "OPTIONS": true, "TRACE": true, "PATCH": true,
}

// requestBuilder accumulates one in-progress request per engine.  It is
// reset after every invocation; only the base url survives, since later
// steps in the same scenario usually target the same service.
type requestBuilder struct {
	urlBase    string
	paths      []string
	params     url.Values
	headers    map[string][]string
	cookies    map[string]map[string]interface{}
	formFields url.Values
	multiParts []map[string]interface{}
	body       *Variable
	retryUntil string
	method     string
}

func newRequestBuilder() *requestBuilder {
	b := &requestBuilder{}
	b.reset()
	return b
}

func (b *requestBuilder) reset() {
	b.paths = nil
	b.params = url.Values{}
	b.headers = make(map[string][]string)
	b.cookies = make(map[string]map[string]interface{})
	b.formFields = url.Values{}
	b.multiParts = nil
	b.body = nil
	b.retryUntil = ""
	b.method = ""
}

func (b *requestBuilder) header(name string, values ...string) {
	b.headers[name] = append(b.headers[name], values...)
}

func (b *requestBuilder) cookie(c map[string]interface{}) {
	name, _ := c["name"].(string)
	if name == "" {
		return
	}
	b.cookies[name] = c
}

func (b *requestBuilder) build() (*HTTPRequest, error) {
	if b.urlBase == "" {
		return nil, errors.New("url not set")
	}
	u := b.urlBase
	for _, p := range b.paths {
		u = strings.TrimSuffix(u, "/") + "/" + strings.TrimPrefix(p, "/")
	}
	if 0 < len(b.params) {
		u = u + "?" + b.params.Encode()
	}
	req := &HTTPRequest{
		Method:  b.method,
		URL:     u,
		Headers: make(map[string][]string, len(b.headers)+2),
	}
	for k, vs := range b.headers {
		req.Headers[k] = append([]string(nil), vs...)
	}
	if 0 < len(b.cookies) {
		var pairs []string
		for name, c := range b.cookies {
			pairs = append(pairs, name+"="+fmt.Sprintf("%v", c["value"]))
		}
		req.Headers["Cookie"] = append(req.Headers["Cookie"], strings.Join(pairs, "; "))
	}
	contentType := func(ct string) {
		for k := range req.Headers {
			if strings.EqualFold(k, "Content-Type") {
				return
			}
		}
		req.Headers["Content-Type"] = []string{ct}
	}
	switch {
	case 0 < len(b.multiParts):
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		for _, part := range b.multiParts {
			name, _ := part["name"].(string)
			filename, _ := part["filename"].(string)
			value := NewVariable(part["value"]).AsString()
			var err error
			if filename != "" {
				var fw io.Writer
				fw, err = w.CreateFormFile(name, filename)
				if err == nil {
					_, err = fw.Write([]byte(value))
				}
			} else {
				err = w.WriteField(name, value)
			}
			if err != nil {
				return nil, err
			}
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		req.Body = buf.Bytes()
		contentType(w.FormDataContentType())
	case 0 < len(b.formFields):
		req.Body = []byte(b.formFields.Encode())
		contentType("application/x-www-form-urlencoded")
	case b.body != nil && !b.body.IsNull():
		req.Body = b.body.AsBytes()
		switch b.body.Kind() {
		case KindMap, KindList:
			contentType("application/json")
		case KindXML:
			contentType("application/xml")
		case KindBytes:
			contentType("application/octet-stream")
		default:
			contentType("text/plain")
		}
	}
	return req, nil
}

// Configure evaluates and applies a configuration expression, notifying
// the HTTP client when the key affects it.
func (e *Engine) Configure(key, exp string) error {
	v, err := e.Eval(exp)
	if err != nil {
		return err
	}
	return e.ConfigureVariable(key, v)
}

// ConfigureVariable applies an already-evaluated configuration value.
func (e *Engine) ConfigureVariable(key string, v *Variable) error {
	key = strings.TrimSpace(key)
	changed, err := e.Config.Configure(key, v)
	if err != nil {
		return err
	}
	if changed && e.client != nil {
		e.client.ConfigChanged(e.Config, key)
	}
	return nil
}

// SetConfig swaps the engine's Config wholesale (the callonce replay
// path) and re-notifies the client.
func (e *Engine) SetConfig(config *Config) {
	e.Config = config
	if e.client != nil {
		e.client.ConfigChanged(config, "")
	}
}

func (e *Engine) evalAsString(exp string) (string, error) {
	v, err := e.EvalJS(exp)
	if err != nil {
		return "", err
	}
	return v.AsString(), nil
}

func (e *Engine) evalAsMapOfLists(exp string, fn func(name string, values []string)) error {
	v, err := e.Eval(exp)
	if err != nil {
		return err
	}
	m := v.Map()
	if m == nil {
		e.Logger.Warnf("did not evaluate to map %s: %s", exp, v)
		return nil
	}
	for k, x := range m {
		switch vv := x.(type) {
		case nil:
		case []interface{}:
			values := make([]string, 0, len(vv))
			for _, y := range vv {
				if y != nil {
					values = append(values, NewVariable(y).AsString())
				}
			}
			fn(k, values)
		default:
			fn(k, []string{NewVariable(x).AsString()})
		}
	}
	return nil
}

// URL sets the request base url.
func (e *Engine) URL(exp string) error {
	s, err := e.evalAsString(exp)
	if err != nil {
		return err
	}
	e.http.urlBase = s
	return nil
}

// Path appends url path segments.
func (e *Engine) Path(exps ...string) error {
	for _, exp := range exps {
		s, err := e.evalAsString(exp)
		if err != nil {
			return err
		}
		e.http.paths = append(e.http.paths, s)
	}
	return nil
}

// Param adds query parameter values.
func (e *Engine) Param(name string, exps ...string) error {
	for _, exp := range exps {
		s, err := e.evalAsString(exp)
		if err != nil {
			return err
		}
		e.http.params.Add(name, s)
	}
	return nil
}

// Params adds query parameters from a map expression.
func (e *Engine) Params(exp string) error {
	return e.evalAsMapOfLists(exp, func(name string, values []string) {
		for _, v := range values {
			e.http.params.Add(name, v)
		}
	})
}

// Header adds header values.
func (e *Engine) Header(name string, exps ...string) error {
	for _, exp := range exps {
		s, err := e.evalAsString(exp)
		if err != nil {
			return err
		}
		e.http.header(name, s)
	}
	return nil
}

// Headers adds headers from a map expression.
func (e *Engine) Headers(exp string) error {
	return e.evalAsMapOfLists(exp, func(name string, values []string) {
		e.http.header(name, values...)
	})
}

// Cookie adds one cookie, from a string value or an attribute map.
func (e *Engine) Cookie(name, exp string) error {
	v, err := e.Eval(exp)
	if err != nil {
		return err
	}
	switch {
	case v.IsString():
		e.http.cookie(map[string]interface{}{"name": name, "value": v.AsString()})
	case v.IsMap():
		m := v.Map()
		m["name"] = name
		e.http.cookie(m)
	default:
		e.Logger.Warnf("did not evaluate to string or map %s: %s", exp, v)
	}
	return nil
}

// Cookies adds cookies from a map or list-of-maps expression.
func (e *Engine) Cookies(exp string) error {
	v, err := e.Eval(exp)
	if err != nil {
		return err
	}
	switch {
	case v.IsMap():
		for k, x := range v.Map() {
			switch vv := x.(type) {
			case string:
				e.http.cookie(map[string]interface{}{"name": k, "value": vv})
			case map[string]interface{}:
				vv["name"] = k
				e.http.cookie(vv)
			}
		}
	case v.IsList():
		for _, x := range v.List() {
			if m, is := x.(map[string]interface{}); is {
				e.http.cookie(m)
			}
		}
	default:
		e.Logger.Warnf("did not evaluate to map or list %s: %s", exp, v)
	}
	return nil
}

// FormField adds form field values.
func (e *Engine) FormField(name string, exps ...string) error {
	for _, exp := range exps {
		v, err := e.Eval(exp)
		if err != nil {
			return err
		}
		e.http.formFields.Add(name, v.AsString())
	}
	return nil
}

// FormFields adds form fields from a map expression.
func (e *Engine) FormFields(exp string) error {
	v, err := e.Eval(exp)
	if err != nil {
		return err
	}
	m := v.Map()
	if m == nil {
		e.Logger.Warnf("did not evaluate to map %s: %s", exp, v)
		return nil
	}
	for k, x := range m {
		e.http.formFields.Add(k, NewVariable(x).AsString())
	}
	return nil
}

func (e *Engine) multipart(name string, value interface{}) {
	part := map[string]interface{}{"name": name}
	switch v := value.(type) {
	case string:
		part["value"] = v
		e.http.multiParts = append(e.http.multiParts, part)
	case map[string]interface{}:
		for k, x := range v {
			part[k] = x
		}
		e.http.multiParts = append(e.http.multiParts, part)
	case []interface{}:
		for _, x := range v {
			e.multipart(name, x)
		}
	default:
		e.Logger.Warnf("did not evaluate to string, map or list %s: %v", name, value)
	}
}

// MultipartField adds one multipart form value.
func (e *Engine) MultipartField(name, exp string) error {
	return e.MultipartFile(name, exp)
}

// MultipartFields adds multipart values from a map expression.
func (e *Engine) MultipartFields(exp string) error {
	return e.MultipartFiles(exp)
}

// MultipartFile adds one multipart part; a map value can carry
// filename and contentType attributes.
func (e *Engine) MultipartFile(name, exp string) error {
	v, err := e.Eval(exp)
	if err != nil {
		return err
	}
	e.multipart(name, v.Value())
	return nil
}

// MultipartFiles adds multipart parts from a map or list expression.
func (e *Engine) MultipartFiles(exp string) error {
	v, err := e.Eval(exp)
	if err != nil {
		return err
	}
	switch {
	case v.IsMap():
		for k, x := range v.Map() {
			e.multipart(k, x)
		}
	case v.IsList():
		for _, x := range v.List() {
			if m, is := x.(map[string]interface{}); is {
				e.http.multiParts = append(e.http.multiParts, m)
			}
		}
	default:
		e.Logger.Warnf("did not evaluate to map or list %s: %s", exp, v)
	}
	return nil
}

// RequestBody sets the request body from an expression.
func (e *Engine) RequestBody(exp string) error {
	v, err := e.Eval(exp)
	if err != nil {
		return err
	}
	e.http.body = v
	return nil
}

// SoapAction is builder sugar for SOAP endpoints: sets the action
// header and content type, then POSTs.
func (e *Engine) SoapAction(exp string) error {
	v, err := e.Eval(exp)
	if err != nil {
		return err
	}
	e.http.header("SOAPAction", v.AsString())
	e.http.headers["Content-Type"] = []string{"text/xml"}
	return e.Method("POST")
}

// Retry arms the retry-until condition for the next invocation.
func (e *Engine) Retry(condition string) {
	e.http.retryUntil = condition
}

// Method performs the accumulated request.  Non-standard method text is
// treated as an expression.
func (e *Engine) Method(method string) error {
	if !httpMethods[strings.ToUpper(method)] {
		v, err := e.Eval(method)
		if err != nil {
			return err
		}
		method = v.AsString()
	}
	e.http.method = strings.ToUpper(method)
	return e.httpInvoke()
}

func (e *Engine) httpInvoke() error {
	defer e.http.reset()
	if e.http.retryUntil != "" {
		return e.httpInvokeWithRetries()
	}
	return e.httpInvokeOnce()
}

func (e *Engine) httpInvokeOnce() error {
	if e.client == nil {
		return errors.New("engine not initialized: no http client")
	}
	// Config defaults are merged into a scratch copy of the step's
	// header and cookie state, so a retry attempt re-merges from
	// scratch (lazy header functions are re-evaluated per attempt)
	// instead of accumulating duplicates across attempts.
	stepHeaders := e.http.headers
	stepCookies := e.http.cookies
	e.http.headers = make(map[string][]string, len(stepHeaders))
	for k, vs := range stepHeaders {
		e.http.headers[k] = append([]string(nil), vs...)
	}
	e.http.cookies = make(map[string]map[string]interface{}, len(stepCookies))
	for k, c := range stepCookies {
		e.http.cookies[k] = c
	}
	defer func() {
		e.http.headers = stepHeaders
		e.http.cookies = stepCookies
	}()
	if cookies := e.getOrEvalAsMap(e.Config.Cookies); cookies != nil {
		for name, x := range cookies {
			switch c := x.(type) {
			case map[string]interface{}:
				c["name"] = name
				e.http.cookie(c)
			default:
				e.http.cookie(map[string]interface{}{"name": name, "value": c})
			}
		}
	}
	if headers := e.getOrEvalAsMap(e.Config.Headers); headers != nil {
		for name, x := range headers {
			// a header set on the step itself wins
			if _, have := e.http.headers[name]; !have {
				e.http.header(name, NewVariable(x).AsString())
			}
		}
	}
	req, err := e.http.build()
	if err != nil {
		return err
	}
	e.request = req
	req.StartTime = time.Now()
	resp, err := e.client.Invoke(req)
	if err != nil {
		te := &TransportError{URL: req.URL, Elapsed: time.Since(req.StartTime), Err: err}
		e.Logger.Errorf("%v, %s", err, te.Error())
		return te
	}
	if req.EndTime.IsZero() {
		req.EndTime = time.Now()
	}
	e.response = resp

	body, responseType := classifyBody(resp.Body, e.Logger)
	e.SetVariable(VarResponseStatus, resp.Status)
	e.SetVariable(VarResponse, body)
	e.SetVariable(VarResponseBytes, resp.Body)
	e.SetVariable(VarResponseType, responseType)
	e.SetVariable(VarResponseHeaders, headersToMap(resp.Headers))
	e.updateConfigCookies(resp.Cookies)
	e.SetVariable(VarResponseCookies, cookiesToMap(resp.Cookies))
	e.SetVariable(VarRequestTimeStamp, req.StartTime.UnixMilli())
	e.SetVariable(VarResponseTime, req.EndTime.Sub(req.StartTime).Milliseconds())
	return nil
}

func (e *Engine) httpInvokeWithRetries() error {
	maxRetries := e.Config.RetryCount
	condition := e.http.retryUntil
	retryCount := 0
	for {
		if retryCount == maxRetries {
			return &RetryExhausted{Count: maxRetries}
		}
		if 0 < retryCount {
			e.Logger.Debugf("sleeping before retry #%d", retryCount)
			time.Sleep(e.Config.RetryInterval)
		}
		if err := e.httpInvokeOnce(); err != nil {
			// A transport failure is not auto-retried; only
			// the explicit condition drives retries.
			return err
		}
		prevFailed := e.failedReason
		v, err := e.Eval(condition)
		if err != nil {
			// Not satisfied, not fatal.
			e.Logger.Warnf("retry condition evaluation failed: %v", err)
			e.failedReason = prevFailed
			v = NullVariable
		}
		if v.IsTrue() {
			if 0 < retryCount {
				e.Logger.Debugf("retry condition satisfied")
			}
			return nil
		}
		e.Logger.Debugf("retry condition not satisfied: %s", condition)
		retryCount++
	}
}

// Status records (never throws) a failure when the last response
// status is not the expected one.
func (e *Engine) Status(expected int) error {
	if e.response == nil {
		return errors.New("no response in scope")
	}
	if expected != e.response.Status {
		responseTime, _ := e.GetVarAsString(VarResponseTime)
		e.SetFailedReason(fmt.Errorf(
			"status code was: %d, expected: %d, response time: %s, url: %s, response: \n%s",
			e.response.Status, expected, responseTime, e.request.URL, string(e.response.Body)))
	}
	return nil
}

// Response returns the last response, for collaborators.
func (e *Engine) Response() *HTTPResponse { return e.response }

// PrevRequest returns the last request built, for collaborators.
func (e *Engine) PrevRequest() *HTTPRequest { return e.request }

func classifyBody(raw []byte, logger Logger) (interface{}, string) {
	text := strings.TrimSpace(string(raw))
	switch {
	case IsJSON(text):
		if parsed, err := oj.ParseString(text); err == nil {
			return parsed, "json"
		} else {
			logger.Warnf("auto-conversion of response failed: %v", err)
		}
	case IsXML(text):
		if doc, err := ParseXML(text); err == nil {
			return doc, "xml"
		} else {
			logger.Warnf("auto-conversion of response failed: %v", err)
		}
	}
	return string(raw), "string"
}

func headersToMap(headers map[string][]string) map[string]interface{} {
	m := make(map[string]interface{}, len(headers))
	for k, vs := range headers {
		list := make([]interface{}, len(vs))
		for i, v := range vs {
			list[i] = v
		}
		m[k] = list
	}
	return m
}

func cookiesToMap(cookies map[string]map[string]interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(cookies))
	for k, c := range cookies {
		m[k] = c
	}
	return m
}

// updateConfigCookies merges response cookies into the scope's
// persisted cookie configuration so subsequent requests inherit them.
// Create-or-merge, never replace wholesale.
func (e *Engine) updateConfigCookies(cookies map[string]map[string]interface{}) {
	if len(cookies) == 0 {
		return
	}
	merged := e.getOrEvalAsMap(e.Config.Cookies)
	if merged == nil {
		merged = make(map[string]interface{}, len(cookies))
	}
	for name, c := range cookies {
		merged[name] = c
	}
	e.Config.Cookies = NewVariable(merged)
}
