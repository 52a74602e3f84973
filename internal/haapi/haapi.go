// Package haapi builds Home Assistant REST calls that run on the Home
// Assistant host itself and parses what they print.
//
// Requests are plain curl command lines executed over the SSH session, so the
// API only has to be reachable from the server (usually on localhost), never
// from the machine running hadeploy.
package haapi

import (
	"fmt"
	"strings"

	"github.com/lovelace-tools/hadeploy/internal/util"
	"github.com/tidwall/gjson"
)

// Endpoints used by hadeploy.
const (
	ReloadCoreConfigPath = "/api/services/homeassistant/reload_core_config"
	BrowserRefreshPath   = "/api/services/browser_mod/refresh"
	CheckConfigPath      = "/api/config/core/check_config"
)

// Client builds authorized requests against one Home Assistant instance.
type Client struct {
	BaseURL string
	Token   string
}

// New returns a Client for baseURL ("http://localhost:8123") authorized with token.
func New(baseURL, token string) *Client {
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), Token: token}
}

// ReloadCoreConfig returns the command that asks Home Assistant to re-read
// its core YAML configuration.
func (c *Client) ReloadCoreConfig() string {
	return c.post(ReloadCoreConfigPath)
}

// BrowserRefresh returns the command that asks Browser Mod to refresh every
// connected browser. It fails when Browser Mod isn't installed.
func (c *Client) BrowserRefresh() string {
	return c.post(BrowserRefreshPath)
}

// CheckConfig returns the command that runs Home Assistant's configuration check.
// Its output is parsed with ParseCheckResult.
func (c *Client) CheckConfig() string {
	return c.post(CheckConfigPath)
}

// URL joins the base URL and an API path.
func (c *Client) URL(path string) string {
	return c.BaseURL + path
}

// post renders a silent, fail-on-HTTP-error POST:
//
//	curl -sf -X POST -H 'Authorization: Bearer …' -H 'Content-Type: application/json' <url>
func (c *Client) post(path string) string {
	return fmt.Sprintf("curl -sf -X POST -H %s -H %s %s",
		util.ShellQuote("Authorization: Bearer "+c.Token),
		util.ShellQuote("Content-Type: application/json"),
		util.ShellQuote(c.URL(path)))
}

// CheckResult is the outcome of a configuration check.
type CheckResult struct {
	Result   string // "valid" or "invalid"
	Errors   string
	Warnings string
}

// Valid reports whether Home Assistant accepted the configuration.
func (r CheckResult) Valid() bool {
	return r.Result == "valid"
}

// ParseCheckResult parses the JSON body of a check_config call:
//
//	{"result": "invalid", "errors": "Integration error: ...", "warnings": null}
func ParseCheckResult(body []byte) (CheckResult, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return CheckResult{}, fmt.Errorf("empty response from %s", CheckConfigPath)
	}
	if !gjson.ValidBytes(body) {
		return CheckResult{}, fmt.Errorf("response from %s is not JSON: %s", CheckConfigPath, truncate(string(body), 80))
	}

	parsed := gjson.ParseBytes(body)
	result := parsed.Get("result")
	if !result.Exists() {
		return CheckResult{}, fmt.Errorf("response from %s has no result field", CheckConfigPath)
	}

	return CheckResult{
		Result:   result.String(),
		Errors:   textOf(parsed.Get("errors")),
		Warnings: textOf(parsed.Get("warnings")),
	}, nil
}

// textOf flattens a string or list of strings; null becomes "".
func textOf(r gjson.Result) string {
	if r.IsArray() {
		var parts []string
		for _, item := range r.Array() {
			if s := item.String(); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "; ")
	}
	if r.Type == gjson.Null {
		return ""
	}
	return r.String()
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
