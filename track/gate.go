package track

import (
	M "relaytrack/model"
	U "relaytrack/util"
)

// ConsentOracle answers whether the current visitor has given
// tracking consent. Supplied by the host, usually backed by a
// cookie consent integration on the CMS side.
type ConsentOracle func(reqCtx *RequestContext) bool

var consentOracle ConsentOracle

// SetConsentOracle registers the host supplied consent predicate.
// Without one, consent is assumed when required.
func SetConsentOracle(oracle ConsentOracle) {
	consentOracle = oracle
}

// ShouldTrack decides whether any event may be sent for the current
// request. Pure function of settings and request context, evaluated
// per event and short-circuiting on the first failing check.
func ShouldTrack(settings *M.TrackingSettings, reqCtx *RequestContext) bool {
	if settings == nil || reqCtx == nil {
		return false
	}

	// Fails closed without a write key or with tracking disabled.
	if !settings.IsConfigured() {
		return false
	}

	// Role exclusions apply only to authenticated actors.
	if reqCtx.LoggedIn && len(settings.ExcludeUserRoles) > 0 {
		for _, role := range reqCtx.Roles {
			if U.StringValueIn(U.TrimAndLower(role), settings.ExcludeUserRoles) {
				return false
			}
		}
	}

	if reqCtx.PageID > 0 && U.Int64ValueIn(reqCtx.PageID, settings.ExcludePages) {
		return false
	}

	if settings.RespectDNT && reqCtx.DNT {
		return false
	}

	if U.IsBotUserAgent(reqCtx.UserAgent) {
		return false
	}

	if settings.CookieConsent && consentOracle != nil && !consentOracle(reqCtx) {
		return false
	}

	return true
}
