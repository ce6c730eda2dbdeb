// Package gate classifies request paths and decides the access policy for
// each class. Both steps are pure functions of the rule table and the current
// request's identity evidence, so re-evaluation on unchanged state always
// yields the same result.
package gate

import (
	"strings"

	"github.com/TaxEnough/taxenough/core"
)

// Class is the policy bucket a request path falls into. Rules are evaluated
// in a fixed order; the first match wins.
type Class int

const (
	// ClassBlogRewrite matches requests on the blog subdomain. Terminal:
	// bypasses every other rule.
	ClassBlogRewrite Class = iota
	// ClassPublic allows unconditionally.
	ClassPublic
	// ClassAdmin requires a verified claim with an allow-listed email.
	ClassAdmin
	// ClassPremium requires a verified claim and a paid tier.
	ClassPremium
	// ClassAuthPage (login/register) redirects away when already signed in.
	ClassAuthPage
	// ClassProtected is the default: any verified claim suffices.
	ClassProtected
)

func (c Class) String() string {
	switch c {
	case ClassBlogRewrite:
		return "blog-rewrite"
	case ClassPublic:
		return "public"
	case ClassAdmin:
		return "admin"
	case ClassPremium:
		return "premium"
	case ClassAuthPage:
		return "auth-page"
	default:
		return "protected"
	}
}

// Action is what the gate tells the HTTP layer to do.
type Action int

const (
	ActionAllow Action = iota
	ActionRedirect
	ActionRewrite
	// ActionDeny is the API-route equivalent of a redirect: respond with
	// Status and a JSON error body.
	ActionDeny
)

// Decision is the gate's verdict for one request.
type Decision struct {
	Action   Action
	Location string // redirect target when ActionRedirect
	Rewrite  string // new path when ActionRewrite
	Status   int    // HTTP status when ActionDeny
}

// Rules is the route classification table plus the policy configuration the
// decisions need. Build it once at startup from config; it is immutable
// afterwards.
type Rules struct {
	// BlogHost is the subdomain label that triggers the blog rewrite.
	BlogHost string
	// BlogPathPrefix is prepended to the path on rewrite.
	BlogPathPrefix string

	PublicPaths     []string
	PublicPrefixes  []string
	AdminPrefix     string
	PremiumPrefixes []string
	AuthPages       []string

	// AdminEmails is the allow-list for admin routes, lowercase.
	AdminEmails []string

	LoginPath     string
	PricingPath   string
	DashboardPath string
}

// Default returns the production rule table with the given policy inputs.
func Default(adminEmails []string, blogHost string) Rules {
	return Rules{
		BlogHost:       blogHost,
		BlogPathPrefix: "/blog",
		PublicPaths: []string{
			"/", "/pricing", "/about", "/contact", "/privacy", "/terms",
			"/favicon.ico",
		},
		PublicPrefixes: []string{
			"/blog", "/static", "/_assets",
			"/api/auth/login", "/api/auth/register", "/api/auth/oauth",
			"/api/auth/logout", "/api/billing/webhook",
		},
		AdminPrefix:     "/admin",
		PremiumPrefixes: []string{"/transactions", "/reports", "/api/transactions", "/api/reports"},
		AuthPages:       []string{"/login", "/register"},
		AdminEmails:     adminEmails,
		LoginPath:       "/login",
		PricingPath:     "/pricing",
		DashboardPath:   "/dashboard",
	}
}

// Classify buckets a request by host and path. First matching rule wins; the
// blog-subdomain rule beats everything, including public and premium.
func (r Rules) Classify(host, path string) Class {
	if r.BlogHost != "" && strings.HasPrefix(hostname(host), r.BlogHost+".") {
		return ClassBlogRewrite
	}
	for _, p := range r.AuthPages {
		if path == p {
			return ClassAuthPage
		}
	}
	for _, p := range r.PublicPaths {
		if path == p {
			return ClassPublic
		}
	}
	for _, p := range r.PublicPrefixes {
		if strings.HasPrefix(path, p) {
			return ClassPublic
		}
	}
	if r.AdminPrefix != "" && strings.HasPrefix(path, r.AdminPrefix) {
		return ClassAdmin
	}
	for _, p := range r.PremiumPrefixes {
		if strings.HasPrefix(path, p) {
			return ClassPremium
		}
	}
	return ClassProtected
}

// Decide enforces the policy for a classified request. claim may be nil
// (unauthenticated); tier is the resolved plan for premium checks. API paths
// receive status-code denials instead of redirects.
func (r Rules) Decide(class Class, path string, claim *core.Claim, tier core.Tier) Decision {
	isAPI := strings.HasPrefix(path, "/api/")

	switch class {
	case ClassBlogRewrite:
		return Decision{Action: ActionRewrite, Rewrite: r.BlogPathPrefix + path}

	case ClassPublic:
		return Decision{Action: ActionAllow}

	case ClassAdmin:
		if !claim.Resolved() {
			return r.denyUnauthenticated(path, isAPI)
		}
		if !r.isAdmin(claim.Email) {
			// Authenticated but forbidden: back to the dashboard, not to
			// login.
			if isAPI {
				return Decision{Action: ActionDeny, Status: 403}
			}
			return Decision{Action: ActionRedirect, Location: r.DashboardPath}
		}
		return Decision{Action: ActionAllow}

	case ClassPremium:
		if !claim.Resolved() {
			return r.denyUnauthenticated(path, isAPI)
		}
		if !tier.Paid() {
			if isAPI {
				return Decision{Action: ActionDeny, Status: 403}
			}
			return Decision{Action: ActionRedirect, Location: r.PricingPath + "?premium=required"}
		}
		return Decision{Action: ActionAllow}

	case ClassAuthPage:
		if claim.Resolved() {
			return Decision{Action: ActionRedirect, Location: r.DashboardPath}
		}
		return Decision{Action: ActionAllow}

	default: // ClassProtected
		if !claim.Resolved() {
			return r.denyUnauthenticated(path, isAPI)
		}
		return Decision{Action: ActionAllow}
	}
}

func (r Rules) denyUnauthenticated(path string, isAPI bool) Decision {
	if isAPI {
		return Decision{Action: ActionDeny, Status: 401}
	}
	return Decision{Action: ActionRedirect, Location: r.LoginPath + "?returnUrl=" + path}
}

func (r Rules) isAdmin(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false
	}
	for _, a := range r.AdminEmails {
		if email == a {
			return true
		}
	}
	return false
}

// hostname strips a port, if any.
func hostname(host string) string {
	if i := strings.LastIndexByte(host, ':'); i >= 0 && !strings.Contains(host[i+1:], "]") {
		return host[:i]
	}
	return host
}
