package interceptor

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/vincent-petithory/dataurl"
)

type transport struct {
	base http.RoundTripper
	ic   *Interceptor
}

// RoundTrip answers matched media requests from the substituted payload.
// Everything else, and any substitution failure including a failed
// redirected request, goes to the base transport untouched.
func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.ic.countOverride()

	ref, ok := t.ic.substitute("fetch", req.URL.String())
	if !ok {
		return t.base.RoundTrip(req)
	}

	if strings.HasPrefix(ref, "data:") {
		resp, err := dataResponse(req, ref)
		if err != nil {
			t.ic.logger.Warn("bad substituted payload, using original", "error", err)
			return t.base.RoundTrip(req)
		}
		return resp, nil
	}

	redirected, err := redirect(req, ref)
	if err != nil {
		t.ic.logger.Warn("cannot redirect request, using original", "error", err)
		return t.base.RoundTrip(req)
	}

	type result struct {
		resp *http.Response
		err  error
	}
	res, ok := attempt(t.ic, "fetch", func() result {
		resp, err := t.base.RoundTrip(redirected)
		return result{resp, err}
	})
	if ok && res.err == nil {
		return res.resp, nil
	}
	if res.err != nil {
		t.ic.logger.Warn("redirected request failed, using original", "error", res.err)
	}
	return t.base.RoundTrip(req)
}

type requester struct {
	inner Requester
	ic    *Interceptor
}

// Do is the callback-style counterpart of transport.RoundTrip.
func (r *requester) Do(req *http.Request, callback func(*http.Response, error)) {
	r.ic.countOverride()

	ref, ok := r.ic.substitute("request", req.URL.String())
	if !ok {
		r.inner.Do(req, callback)
		return
	}

	if strings.HasPrefix(ref, "data:") {
		resp, err := dataResponse(req, ref)
		if err != nil {
			r.ic.logger.Warn("bad substituted payload, using original", "error", err)
			r.inner.Do(req, callback)
			return
		}
		callback(resp, nil)
		return
	}

	redirected, err := redirect(req, ref)
	if err != nil {
		r.ic.logger.Warn("cannot redirect request, using original", "error", err)
		r.inner.Do(req, callback)
		return
	}

	// answered is set once the host callback has been handed a result, so a
	// late panic never delivers twice.
	var answered atomic.Bool
	_, ok = attempt(r.ic, "request", func() struct{} {
		r.inner.Do(redirected, func(resp *http.Response, err error) {
			if err != nil && answered.CompareAndSwap(false, true) {
				r.ic.logger.Warn("redirected request failed, using original", "error", err)
				r.inner.Do(req, callback)
				return
			}
			if answered.CompareAndSwap(false, true) {
				callback(resp, err)
			}
		})
		return struct{}{}
	})
	if !ok && answered.CompareAndSwap(false, true) {
		r.inner.Do(req, callback)
	}
}

func dataResponse(req *http.Request, ref string) (*http.Response, error) {
	du, err := dataurl.DecodeString(ref)
	if err != nil {
		return nil, err
	}

	header := make(http.Header)
	header.Set("Content-Type", du.MediaType.String())
	header.Set("Content-Length", strconv.Itoa(len(du.Data)))

	return &http.Response{
		Status:        "200 OK",
		StatusCode:    http.StatusOK,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(du.Data)),
		ContentLength: int64(len(du.Data)),
		Request:       req,
	}, nil
}

func redirect(req *http.Request, ref string) (*http.Request, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported payload scheme %q", u.Scheme)
	}

	out := req.Clone(req.Context())
	out.URL = u
	out.Host = u.Host
	return out, nil
}
