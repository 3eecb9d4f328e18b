// Package bootstrap implements the HTTPS interceptor: the bootstrap
// endpoint that redirects the game client's datagram session to this
// proxy, and a generic reverse-proxy fallback for every other path.
// Grounded on fusion32-forgottenserver/tools/proxy.go's
// HttpRequestHandler/RelayClientRequest/SaveAndRewriteWorldEndpoints,
// generalized from a single fixed upstream to a retry ladder across
// hosts and resolved IPs.
package bootstrap

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/trixolol/GrowProxy/certs"
	"github.com/trixolol/GrowProxy/config"
)

const bootstrapPath = "/growtopia/server_data.php"

// upstreamHTTPSPort is the port every upstream attempt dials. It is a
// var, not a const, so tests can redirect attempts at an httptest server.
var upstreamHTTPSPort = 443

const attemptTimeout = 2500 * time.Millisecond

var hopByHopHeaders = []string{
	"Connection", "Keep-Alive", "Proxy-Authenticate", "Proxy-Authorization",
	"Te", "Trailers", "Transfer-Encoding", "Upgrade",
}

// Resolver answers "up to two IPv4 addresses for this host"; satisfied by
// *resolve.Resolver.
type Resolver interface {
	ResolveIPv4(host string) ([]net.IP, error)
}

// EndpointSink receives the (host, port) the bootstrap response told the
// client to connect to next.
type EndpointSink interface {
	SetPendingEndpoint(host string, port uint16)
}

// Interceptor serves both the bootstrap endpoint and the generic
// passthrough proxy.
type Interceptor struct {
	cfg      config.Config
	resolver Resolver
	sink     EndpointSink
	log      *zap.SugaredLogger
}

// New constructs an Interceptor against cfg, resolving upstream hosts
// through resolver and reporting handoffs to sink.
func New(cfg config.Config, resolver Resolver, sink EndpointSink, log *zap.SugaredLogger) *Interceptor {
	return &Interceptor{cfg: cfg, resolver: resolver, sink: sink, log: log}
}

// ServeHTTP dispatches to the bootstrap handler or the passthrough proxy.
func (ic *Interceptor) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if req.URL.Path == bootstrapPath {
		ic.serveBootstrap(w, req)
		return
	}
	ic.servePassthrough(w, req)
}

// bootstrapHosts returns the dedicated bootstrap candidate list: the
// request Host, then the configured primary host, deduplicated
// case-insensitively, then padded with the fixed intercept domains.
func (ic *Interceptor) bootstrapHosts(reqHost string) []string {
	return dedupe(append([]string{reqHost, ic.cfg.Server.Address}, certs.InterceptDomains...))
}

// passthroughHosts prefers the configured primary host when the request
// targets one of the intercept domains; otherwise the request Host wins.
func (ic *Interceptor) passthroughHosts(reqHost string) []string {
	for _, d := range certs.InterceptDomains {
		if strings.EqualFold(d, reqHost) {
			return dedupe([]string{ic.cfg.Server.Address, reqHost})
		}
	}
	return dedupe([]string{reqHost, ic.cfg.Server.Address})
}

func dedupe(hosts []string) []string {
	seen := make(map[string]bool, len(hosts))
	out := make([]string, 0, len(hosts))
	for _, h := range hosts {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		key := strings.ToLower(h)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, h)
	}
	return out
}

func (ic *Interceptor) serveBootstrap(w http.ResponseWriter, req *http.Request) {
	reqID := uuid.NewString()
	log := ic.log.With("requestId", reqID)

	reqHost := req.Host
	if h, _, err := net.SplitHostPort(reqHost); err == nil {
		reqHost = h
	}

	body, err := io.ReadAll(req.Body)
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	platformZero := req.URL.Query().Get("platform") == "0" || formValue(req, body, "platform") == "0"

	for _, host := range ic.bootstrapHosts(reqHost) {
		for _, ip := range ic.resolveOrSkip(host) {
			respBody, err := ic.attemptBootstrap(host, ip, req, body)
			if err != nil {
				log.Debugw("bootstrap attempt failed", "host", host, "ip", ip, "err", err)
				continue
			}
			if platformZero && !strings.Contains(respBody, "loginurl|") {
				log.Debugw("bootstrap attempt missing loginurl", "host", host, "ip", ip)
				continue
			}
			rewritten, pendingHost, pendingPort := ic.rewriteBootstrapBody(respBody)
			if pendingHost != "" {
				ic.sink.SetPendingEndpoint(pendingHost, pendingPort)
			}
			w.Header().Set("Content-Type", "text/html")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(rewritten))
			return
		}
	}
	log.Warnw("bootstrap upstream exhausted", "host", reqHost)
	http.Error(w, "upstream exhausted", http.StatusInternalServerError)
}

func formValue(req *http.Request, body []byte, key string) string {
	if req.Method == http.MethodGet {
		return req.URL.Query().Get(key)
	}
	vals, err := url.ParseQuery(string(body))
	if err != nil {
		return ""
	}
	return vals.Get(key)
}

func (ic *Interceptor) resolveOrSkip(host string) []net.IP {
	ips, err := ic.resolver.ResolveIPv4(host)
	if err != nil {
		ic.log.Debugw("resolve failed", "host", host, "err", err)
		return nil
	}
	if len(ips) > 2 {
		ips = ips[:2]
	}
	return ips
}

func (ic *Interceptor) attemptBootstrap(host string, ip net.IP, req *http.Request, body []byte) (string, error) {
	client := clientDialingIP(ip, upstreamHTTPSPort, host)

	url := fmt.Sprintf("https://%s%s", host, bootstrapPath)
	if req.Method == http.MethodGet {
		url += "?" + req.URL.RawQuery
	}
	outReq, err := http.NewRequest(req.Method, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	outReq.Header = req.Header.Clone()
	outReq.Host = host

	res, err := client.Do(outReq)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	out, err := io.ReadAll(res.Body)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (ic *Interceptor) rewriteBootstrapBody(body string) (rewritten string, pendingHost string, pendingPort uint16) {
	keyed, sentinels := parseBody(body)

	if host, ok := getValue(keyed, "server"); ok {
		pendingHost = host
		if portStr, ok := getValue(keyed, "port"); ok {
			if p, err := strconv.Atoi(portStr); err == nil && p > 0 && p <= 65535 {
				pendingPort = uint16(p)
			}
		}
	}

	keyed = setValue(keyed, "server", "127.0.0.1")
	keyed = setValue(keyed, "port", strconv.Itoa(int(ic.cfg.Server.Port)))
	if !hasKey(keyed, "type") {
		keyed = setValue(keyed, "type", "1")
	}
	keyed = setValue(keyed, "type2", "1")

	if ic.cfg.Web.IgnoreMaintenance && hasKey(keyed, "#maint") {
		keyed = removeKey(keyed, "#maint")
		keyed = removeKey(keyed, "maint")
	}

	return emitBody(keyed, sentinels), pendingHost, pendingPort
}

func (ic *Interceptor) servePassthrough(w http.ResponseWriter, req *http.Request) {
	reqHost := req.Host
	if h, _, err := net.SplitHostPort(reqHost); err == nil {
		reqHost = h
	}

	body, err := io.ReadAll(req.Body)
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	for _, host := range ic.passthroughHosts(reqHost) {
		for _, ip := range ic.resolveOrSkip(host) {
			res, err := ic.attemptPassthrough(host, ip, req, body)
			if err != nil {
				ic.log.Debugw("passthrough attempt failed", "host", host, "ip", ip, "err", err)
				continue
			}
			if res.StatusCode == 403 || res.StatusCode == 404 || res.StatusCode >= 500 {
				res.Body.Close()
				continue
			}
			relayResponse(w, res)
			return
		}
	}
	http.Error(w, "upstream exhausted", http.StatusInternalServerError)
}

func (ic *Interceptor) attemptPassthrough(host string, ip net.IP, req *http.Request, body []byte) (*http.Response, error) {
	client := clientDialingIP(ip, upstreamHTTPSPort, host)

	url := fmt.Sprintf("https://%s%s", host, req.URL.RequestURI())
	outReq, err := http.NewRequest(req.Method, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	outReq.Header = req.Header.Clone()
	outReq.Host = host
	stripHopByHop(outReq.Header)

	return client.Do(outReq)
}

func relayResponse(w http.ResponseWriter, res *http.Response) {
	defer res.Body.Close()
	out, err := io.ReadAll(res.Body)
	if err != nil {
		http.Error(w, "upstream read failed", http.StatusBadGateway)
		return
	}
	stripHopByHop(res.Header)
	for k, values := range res.Header {
		for _, v := range values {
			w.Header().Add(k, v)
		}
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(out)))
	w.WriteHeader(res.StatusCode)
	w.Write(out)
}

func stripHopByHop(h http.Header) {
	for _, k := range hopByHopHeaders {
		h.Del(k)
	}
}

// clientDialingIP builds an http.Client whose transport always dials ip:port
// regardless of the address it's asked to connect to, while still sending
// sniHost as the TLS ServerName. Upstream certificate verification is
// disabled: this proxy only ever talks to the real game backend over an
// address it resolved itself.
func clientDialingIP(ip net.IP, port int, sniHost string) *http.Client {
	dialAddr := net.JoinHostPort(ip.String(), strconv.Itoa(port))
	dialer := &net.Dialer{Timeout: attemptTimeout}
	transport := &http.Transport{
		DialContext: func(ctx context.Context, network, _ string) (net.Conn, error) {
			return dialer.DialContext(ctx, network, dialAddr)
		},
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true, ServerName: sniHost},
	}
	return &http.Client{Transport: transport, Timeout: attemptTimeout}
}
