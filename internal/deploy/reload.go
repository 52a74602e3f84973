package deploy

import (
	"fmt"
	"strings"
	"time"

	"github.com/lovelace-tools/hadeploy/internal/errors"
	"github.com/lovelace-tools/hadeploy/internal/haapi"
	"github.com/lovelace-tools/hadeploy/internal/logger"
	"github.com/lovelace-tools/hadeploy/internal/ui"
	"github.com/lovelace-tools/hadeploy/pkg/sshutil"
)

// ReloadOutcome says how (or whether) Home Assistant re-read its configuration.
type ReloadOutcome int

const (
	// ReloadSkipped means reload was turned off for this run.
	ReloadSkipped ReloadOutcome = iota
	ReloadViaAPI
	ReloadViaCommand
	ReloadFailed
)

func (o ReloadOutcome) String() string {
	switch o {
	case ReloadViaAPI:
		return "api"
	case ReloadViaCommand:
		return "command"
	case ReloadFailed:
		return "failed"
	default:
		return "skipped"
	}
}

// ReloadOptions configures the reload attempt list.
type ReloadOptions struct {
	Token          string
	APIURL         string
	Commands       []string // fallbacks, tried in order
	Timeout        time.Duration
	RefreshTimeout time.Duration
	BrowserRefresh bool
	CheckConfig    bool
}

// ReloadResult is what a reload attempt produced.
type ReloadResult struct {
	Outcome ReloadOutcome
	Command string // the fallback command that worked, for ReloadViaCommand
	Err     error  // ErrReload warning, for ReloadFailed
}

// Reloader asks Home Assistant to reload its YAML configuration, first via
// the REST API when a token is available, then via the fallback commands.
type Reloader struct {
	session sshutil.RemoteSession
	opts    ReloadOptions
	display *ui.PhaseDisplay
	log     logger.Logger
}

// NewReloader returns a Reloader that runs its commands on session.
func NewReloader(session sshutil.RemoteSession, opts ReloadOptions, display *ui.PhaseDisplay, log logger.Logger) *Reloader {
	if log == nil {
		log = logger.Noop()
	}
	logger.RegisterSecret(opts.Token)
	return &Reloader{session: session, opts: opts, display: display, log: log}
}

// Reload runs the attempt list. It never returns a fatal error: every
// failure ends up in ReloadResult.Err as an ErrReload warning.
func (r *Reloader) Reload() ReloadResult {
	r.display.Info("Reloading Home Assistant YAML configuration...")

	if r.opts.Token != "" {
		api := haapi.New(r.opts.APIURL, r.opts.Token)

		if r.opts.CheckConfig {
			if res, ok := r.checkConfig(api); ok && !res.Valid() {
				r.display.Warn("Home Assistant reports the configuration is invalid, not reloading")
				if res.Errors != "" {
					r.display.Note(res.Errors)
				}
				r.display.Note("Fix the errors, then reload manually:")
				ui.RenderManualReload(r.display.Writer(), false)
				return ReloadResult{
					Outcome: ReloadFailed,
					Err: errors.New(errors.ErrReload,
						"Configuration check failed: "+firstNonEmpty(res.Errors, res.Result),
						"Open Settings → System → Repairs in Home Assistant for details"),
				}
			}
		}

		if r.reloadViaAPI(api) {
			if r.opts.BrowserRefresh {
				r.refreshBrowsers(api)
			}
			return ReloadResult{Outcome: ReloadViaAPI}
		}
	}

	for _, cmd := range r.opts.Commands {
		r.log.Debug("trying reload command: %s", cmd)
		_, stderr, code, err := r.session.ExecTimeout(cmd, r.opts.Timeout)
		if err == nil && code == 0 {
			r.display.Success("Configuration reloaded successfully using: " + cmd)
			return ReloadResult{Outcome: ReloadViaCommand, Command: cmd}
		}
		if err != nil {
			r.log.Debug("reload command failed: %v", err)
		} else {
			r.log.Debug("reload command exited %d: %s", code, strings.TrimSpace(string(stderr)))
		}
	}

	r.display.Warn("Could not auto-reload configuration. You may need to reload manually:")
	ui.RenderManualReload(r.display.Writer(), false)

	return ReloadResult{
		Outcome: ReloadFailed,
		Err: errors.New(errors.ErrReload,
			fmt.Sprintf("None of the %d reload methods worked", r.attempts()),
			"Reload from "+ui.ManualReloadUI),
	}
}

func (r *Reloader) reloadViaAPI(api *haapi.Client) bool {
	_, stderr, code, err := r.session.ExecTimeout(api.ReloadCoreConfig(), r.opts.Timeout)
	switch {
	case err != nil:
		r.display.Warn("API reload failed: " + logger.Redact(firstLine(err.Error())))
		return false
	case code != 0:
		r.display.Warn(fmt.Sprintf("API reload failed (exit %d): %s", code, logger.Redact(strings.TrimSpace(string(stderr)))))
		return false
	}
	r.display.Success("Configuration reloaded successfully via HA REST API")
	return true
}

// refreshBrowsers is best effort; Browser Mod is an optional integration.
func (r *Reloader) refreshBrowsers(api *haapi.Client) {
	_, _, code, err := r.session.ExecTimeout(api.BrowserRefresh(), r.opts.RefreshTimeout)
	if err == nil && code == 0 {
		r.display.Success("Browser refresh triggered via Browser Mod")
		return
	}
	r.log.Debug("browser refresh failed: exit=%d err=%v", code, err)
	r.display.Warn("Browser Mod refresh skipped (not installed or unavailable)")
}

// checkConfig returns ok=false when the check couldn't run at all, in which
// case the reload goes ahead.
func (r *Reloader) checkConfig(api *haapi.Client) (haapi.CheckResult, bool) {
	stdout, _, code, err := r.session.ExecTimeout(api.CheckConfig(), r.opts.Timeout)
	if err != nil || code != 0 {
		r.log.Warn("configuration check unavailable (exit %d): %v", code, err)
		return haapi.CheckResult{}, false
	}
	res, err := haapi.ParseCheckResult(stdout)
	if err != nil {
		r.log.Warn("configuration check: %v", err)
		return haapi.CheckResult{}, false
	}
	if res.Warnings != "" {
		r.log.Warn("configuration check warnings: %s", res.Warnings)
	}
	return res, true
}

func (r *Reloader) attempts() int {
	n := len(r.opts.Commands)
	if r.opts.Token != "" {
		n++
	}
	return n
}

func firstLine(s string) string {
	s = strings.TrimSpace(strings.TrimPrefix(s, "✗ "))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
