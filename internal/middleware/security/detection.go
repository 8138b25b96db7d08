package security

import (
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// Reasons reported by Inspect.
const (
	ReasonTraversal    = "path_traversal"
	ReasonScanPath     = "scan_path"
	ReasonInjection    = "injection"
	ReasonScannerAgent = "scanner_agent"
	ReasonMethod       = "method"
	ReasonLongURL      = "long_url"
	ReasonProxyChain   = "proxy_chain"
	ReasonResourceID   = "resource_id"
	ReasonContentType  = "content_type"
)

const (
	maxURLLength   = 2048
	maxProxyHops   = 5
	apiPrefix      = "/api/"
	jsonMediaType  = "application/json"
	collectionUser = "users"
	collectionTx   = "transactions"
)

var (
	// Paths no route of this API serves; requests for them come from
	// scanners looking for other software.
	scanPaths = []string{
		".env", ".git", ".ssh", "wp-admin", "wp-login", "phpmyadmin",
		".php", "cgi-bin", "actuator", "server-status", "etc/passwd", "cmd.exe",
	}

	injectionPatterns = []string{
		"<script", "javascript:", "eval(", "union select", "' or ", "\" or ",
		"$where", "$ne", "sleep(", "${jndi:",
	}

	scannerAgents = []string{
		"sqlmap", "nmap", "nikto", "gobuster", "dirb", "dirbuster",
		"masscan", "zgrab", "wpscan", "nuclei", "ffuf",
	}

	unusualMethods = map[string]bool{
		"TRACE": true, "TRACK": true, "DEBUG": true, "CONNECT": true,
	}

	// User and transaction IDs issued by the expense API.
	resourceID = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
)

// DetectionMetrics counts flagged requests. Reasons holds one counter per
// rule; a request matching several rules counts once in SuspiciousRequests.
type DetectionMetrics struct {
	SuspiciousRequests int64
	InvalidIPAttempts  int64
	Reasons            map[string]int64
}

// Detector flags requests to the JSON API that look like scans or attacks.
type Detector struct {
	suspicious     int64
	invalidIP      int64
	mu             sync.Mutex
	reasons        map[string]int64
	trustedProxies []*net.IPNet
}

// NewDetector returns a detector that trusts forwarding headers from
// loopback and private networks.
func NewDetector() *Detector {
	return &Detector{
		reasons: make(map[string]int64),
		trustedProxies: []*net.IPNet{
			mustCIDR("127.0.0.0/8"),
			mustCIDR("::1/128"),
			mustCIDR("10.0.0.0/8"),
			mustCIDR("172.16.0.0/12"),
			mustCIDR("192.168.0.0/16"),
		},
	}
}

func mustCIDR(cidr string) *net.IPNet {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		panic(fmt.Sprintf("parse trusted proxy CIDR %s: %v", cidr, err))
	}
	return network
}

// Inspect returns the rules r breaks, sorted, or nil for a clean request.
func (d *Detector) Inspect(r *http.Request) []string {
	found := make(map[string]bool)

	path := strings.ToLower(r.URL.Path)
	raw := strings.ToLower(r.URL.RawPath + "?" + r.URL.RawQuery)
	if strings.Contains(path, "../") || strings.Contains(path, `..\`) || strings.Contains(raw, "%2e%2e") {
		found[ReasonTraversal] = true
	}
	for _, p := range scanPaths {
		if strings.Contains(path, p) {
			found[ReasonScanPath] = true
			break
		}
	}

	query := queryText(r)
	for _, p := range injectionPatterns {
		if strings.Contains(path, p) || strings.Contains(query, p) {
			found[ReasonInjection] = true
			break
		}
	}

	agent := strings.ToLower(r.Header.Get("User-Agent"))
	for _, a := range scannerAgents {
		if strings.Contains(agent, a) {
			found[ReasonScannerAgent] = true
			break
		}
	}

	if unusualMethods[r.Method] {
		found[ReasonMethod] = true
	}
	if len(r.URL.String()) > maxURLLength {
		found[ReasonLongURL] = true
	}
	if strings.Count(r.Header.Get("X-Forwarded-For"), ",") >= maxProxyHops {
		found[ReasonProxyChain] = true
	}

	if strings.HasPrefix(r.URL.Path, apiPrefix) {
		if !validResourceIDs(r.URL.Path) {
			found[ReasonResourceID] = true
		}
		if isWrite(r.Method) && r.ContentLength != 0 && !isJSON(r.Header.Get("Content-Type")) {
			found[ReasonContentType] = true
		}
	}

	if len(found) == 0 {
		return nil
	}
	reasons := make([]string, 0, len(found))
	for reason := range found {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	d.record(reasons)
	return reasons
}

// DetectSuspiciousRequest reports whether r breaks any rule.
func (d *Detector) DetectSuspiciousRequest(r *http.Request) bool {
	return len(d.Inspect(r)) > 0
}

func (d *Detector) record(reasons []string) {
	atomic.AddInt64(&d.suspicious, 1)
	d.mu.Lock()
	for _, reason := range reasons {
		d.reasons[reason]++
	}
	d.mu.Unlock()
}

// validResourceIDs checks the ID segment of /api/users/{userID}/... and
// /api/transactions/{id}.
func validResourceIDs(path string) bool {
	parts := strings.Split(strings.TrimPrefix(path, apiPrefix), "/")
	if len(parts) < 2 || parts[1] == "" {
		return true
	}
	switch parts[0] {
	case collectionUser, collectionTx:
		return resourceID.MatchString(parts[1])
	}
	return true
}

func isWrite(method string) bool {
	return method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && mt == jsonMediaType
}

// queryText joins the decoded query keys and values, lower-cased.
func queryText(r *http.Request) string {
	var b strings.Builder
	for key, values := range r.URL.Query() {
		b.WriteString(key)
		for _, v := range values {
			b.WriteByte(' ')
			b.WriteString(v)
		}
		b.WriteByte(' ')
	}
	return strings.ToLower(b.String())
}

// ExtractClientIP returns the address of the client. Forwarding headers are
// only honoured when the peer is a trusted proxy; X-Forwarded-For is walked
// from the right, skipping trusted hops, so a client cannot prepend a spoofed
// address.
func (d *Detector) ExtractClientIP(r *http.Request) string {
	peer, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		peer = r.RemoteAddr
	}
	peerIP := net.ParseIP(peer)
	if peerIP == nil || !d.isTrustedProxy(peerIP) {
		return peer
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			ip := net.ParseIP(hop)
			if ip == nil {
				atomic.AddInt64(&d.invalidIP, 1)
				break
			}
			if !d.isTrustedProxy(ip) {
				return hop
			}
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		if net.ParseIP(xri) != nil {
			return xri
		}
		atomic.AddInt64(&d.invalidIP, 1)
	}
	return peer
}

func (d *Detector) isTrustedProxy(ip net.IP) bool {
	for _, network := range d.trustedProxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// GetMetrics returns a snapshot of the counters.
func (d *Detector) GetMetrics() DetectionMetrics {
	d.mu.Lock()
	reasons := make(map[string]int64, len(d.reasons))
	for k, v := range d.reasons {
		reasons[k] = v
	}
	d.mu.Unlock()
	return DetectionMetrics{
		SuspiciousRequests: atomic.LoadInt64(&d.suspicious),
		InvalidIPAttempts:  atomic.LoadInt64(&d.invalidIP),
		Reasons:            reasons,
	}
}

// Middleware logs flagged requests and lets them through. Unknown routes
// end in 404 and bad IDs in the remote API's own 404.
func (d *Detector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reasons := d.Inspect(r); len(reasons) > 0 {
			slog.WarnContext(r.Context(), "Suspicious request",
				"component", "security",
				"reasons", strings.Join(reasons, ","),
				"method", r.Method,
				"path", r.URL.Path,
				"client_ip", d.ExtractClientIP(r),
				"user_agent", r.Header.Get("User-Agent"))
		}
		next.ServeHTTP(w, r)
	})
}
