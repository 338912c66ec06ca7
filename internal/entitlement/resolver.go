// Package entitlement decides whether a module is open to a user given
// their login state, completed-module history and subscription tier.
package entitlement

// Status is the access decision for one module under one Context.
type Status string

const (
	StatusCompleted            Status = "completed"
	StatusAvailable            Status = "available"
	StatusLoginRequired        Status = "login-required"
	StatusSubscriptionRequired Status = "subscription-required"
	StatusLocked               Status = "locked"
)

// Subscription is the user's billing tier.
type Subscription string

const (
	SubscriptionFree          Subscription = "free"
	SubscriptionPremium       Subscription = "premium"
	SubscriptionAdminOverride Subscription = "admin_override"
)

// DemoModuleMax is the fixed try-before-signup tier: modules 1..3 are
// open to everyone, logged in or not. Not configurable.
const DemoModuleMax = 3

// Settings are the platform-wide gate knobs, from config.
type Settings struct {
	GateEnabled        bool
	FreeModuleLimit    int
	PremiumBeyondLimit bool
}

// Context carries everything Resolve needs. Built fresh per evaluation
// from the user record and Settings; never stored.
type Context struct {
	LoggedIn           bool
	CompletedModules   map[int]bool
	Subscription       Subscription
	FreeModuleLimit    int
	GateEnabled        bool
	PremiumBeyondLimit bool
}

// NewContext assembles a Context for one user under the platform
// settings.
func NewContext(loggedIn bool, sub Subscription, completed map[int]bool, st Settings) Context {
	if completed == nil {
		completed = map[int]bool{}
	}
	return Context{
		LoggedIn:           loggedIn,
		CompletedModules:   completed,
		Subscription:       sub,
		FreeModuleLimit:    st.FreeModuleLimit,
		GateEnabled:        st.GateEnabled,
		PremiumBeyondLimit: st.PremiumBeyondLimit,
	}
}

// Resolve returns the access status for moduleID. Total over any
// (moduleID >= 1, ctx) pair; always returns one of the five statuses.
//
// Rule order is load-bearing. Completed wins over every gate so past
// work stays reviewable after a subscription lapses; the demo tier is
// reachable before login; the premium gate runs before sequential
// unlock so a free user cannot walk past the paywall one module at a
// time.
func Resolve(moduleID int, ctx Context) Status {
	switch {
	case ctx.CompletedModules[moduleID]:
		return StatusCompleted
	case moduleID <= DemoModuleMax:
		return StatusAvailable
	case !ctx.LoggedIn:
		return StatusLoginRequired
	}
	if ctx.GateEnabled && ctx.PremiumBeyondLimit && moduleID > ctx.FreeModuleLimit {
		if ctx.Subscription == SubscriptionPremium || ctx.Subscription == SubscriptionAdminOverride {
			return StatusAvailable
		}
		return StatusSubscriptionRequired
	}
	// Sequential unlock: completing module N opens N+1; the free tier
	// additionally pre-unlocks everything up to the limit.
	if moduleID == 1 || moduleID <= ctx.FreeModuleLimit || ctx.CompletedModules[moduleID-1] {
		return StatusAvailable
	}
	return StatusLocked
}

// AccessType labels a module for display (demo/free/premium). Labeling
// only; access itself is decided by Resolve alone.
type AccessType string

const (
	AccessDemo    AccessType = "demo"
	AccessFree    AccessType = "free"
	AccessPremium AccessType = "premium"
)

func TypeOf(moduleID, freeModuleLimit int) AccessType {
	switch {
	case moduleID <= DemoModuleMax:
		return AccessDemo
	case moduleID <= freeModuleLimit:
		return AccessFree
	default:
		return AccessPremium
	}
}
