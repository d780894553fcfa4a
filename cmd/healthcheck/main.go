package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"
)

const defaultAdminAddr = "127.0.0.1:9022"

func main() {
	os.Exit(check(os.Getenv("HONEYSHELL_ADMIN_ADDR")))
}

// check probes the admin health endpoint and returns the process exit code.
func check(rawAddr string) int {
	addr := normalizeAddr(rawAddr)

	client := &http.Client{Timeout: 2 * time.Second}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("http://%s/api/v1/health", addr), nil)
	if err != nil {
		return 1
	}

	resp, err := client.Do(req)
	if err != nil {
		return 1
	}
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 1
	}

	return 0
}

// normalizeAddr points the probe at loopback when the admin API binds every
// interface, since the healthcheck runs next to the honeypot.
func normalizeAddr(raw string) string {
	if raw == "" {
		return defaultAdminAddr
	}

	host, port, err := net.SplitHostPort(raw)
	if err != nil {
		return defaultAdminAddr
	}

	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}

	return net.JoinHostPort(host, port)
}
