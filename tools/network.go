package tools

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/travofoz/T-5000/errors"
)

const maxFetchBytes = 256 * 1024

type networkTools struct {
	timeout time.Duration
}

type pingHostArgs struct {
	Host  string `json:"host" desc:"Hostname or IP address to ping"`
	Count int    `json:"count,omitempty" desc:"Number of echo requests to send, defaults to 4"`
}

func (n *networkTools) pingHost(ctx context.Context, args map[string]interface{}) (string, error) {
	host, err := StringArg(args, "host")
	if err != nil {
		return "", err
	}
	count := 4
	if c, ok := args["count"].(float64); ok && c > 0 {
		count = int(c)
	}
	argv := []string{"ping", "-c", strconv.Itoa(count), host}
	return runExternal(ctx, "ping_host", argv, n.timeout)
}

type dnsLookupArgs struct {
	Name string `json:"name" desc:"Hostname to resolve"`
}

func (n *networkTools) dnsLookup(ctx context.Context, args map[string]interface{}) (string, error) {
	name, err := StringArg(args, "name")
	if err != nil {
		return "", err
	}
	addrs, err := net.DefaultResolver.LookupHost(ctx, name)
	if err != nil {
		return "", errors.Wrapf(err, "failed to resolve '%s'", name)
	}
	return fmt.Sprintf("Addresses for %s:\n%s", name, strings.Join(addrs, "\n")), nil
}

type httpFetchArgs struct {
	URL string `json:"url" desc:"URL to fetch with an HTTP GET request"`
}

// httpFetch retrieves a URL and returns status plus a truncated body. The
// body cap keeps a single fetch from flooding the conversation history.
func (n *networkTools) httpFetch(ctx context.Context, args map[string]interface{}) (string, error) {
	rawURL, err := StringArg(args, "url")
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return "", errors.New("url must start with http:// or https://, got '%s'", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", errors.Wrapf(err, "invalid url '%s'", rawURL)
	}
	client := &http.Client{Timeout: n.timeout}
	resp, err := client.Do(req)
	if err != nil {
		return "", errors.Wrapf(err, "request to '%s' failed", rawURL)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes+1))
	if err != nil {
		return "", errors.Wrapf(err, "failed to read response from '%s'", rawURL)
	}
	truncated := false
	if len(body) > maxFetchBytes {
		body = body[:maxFetchBytes]
		truncated = true
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "HTTP %s from %s\n", resp.Status, rawURL)
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		fmt.Fprintf(&sb, "Content-Type: %s\n", ct)
	}
	sb.WriteString(string(body))
	if truncated {
		fmt.Fprintf(&sb, "\n[Response truncated at %d bytes]", maxFetchBytes)
	}
	return sb.String(), nil
}
