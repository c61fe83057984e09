package engine

import (
	"context"
	"crypto/tls"

	"ymap/internal/command"
	"ymap/internal/response"
)

// RunStartTLS executes STARTTLS and, on an OK completion, upgrades the
// underlying transport in place. Per RFC 3501 §6.2.1, any capability set
// advertised before STARTTLS is no longer trustworthy post-upgrade, so a
// successful upgrade clears the cached snapshot rather than leaving the
// pre-TLS (and possibly attacker-visible) capabilities in place; the
// caller is expected to re-issue CAPABILITY.
func (e *Engine) RunStartTLS(ctx context.Context, cfg *tls.Config) (response.Record, error) {
	rec, err := e.Execute(ctx, command.CmdStartTLS())
	if err != nil {
		return rec, err
	}
	if rec.Status != "OK" {
		return rec, nil
	}
	if err := e.tr.UpgradeTLS(cfg); err != nil {
		e.health.poison()
		return rec, err
	}
	empty := map[string]struct{}{}
	e.capsPtr.Store(&empty)
	e.literalPlus.Store(false)
	return rec, nil
}
