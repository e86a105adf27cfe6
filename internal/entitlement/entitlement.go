// Package entitlement maps a user's purchase history and admin flag to a tier
// and the set of capabilities that tier unlocks. All functions are pure.
package entitlement

import "github.com/pawtrait/pawtrait-client/internal/models"

// Non-admin tier thresholds, in credits purchased over the account lifetime.
const (
	proThreshold      = 20
	ultimateThreshold = 50
)

// ComputeTier derives the entitlement tier. The admin flag is a deliberate
// override granting ultimate regardless of purchases.
func ComputeTier(id models.Identity) models.Tier {
	if id.IsAdmin {
		return models.TierUltimate
	}
	switch {
	case id.TotalCreditsPurchased >= ultimateThreshold:
		return models.TierUltimate
	case id.TotalCreditsPurchased >= proThreshold:
		return models.TierPro
	default:
		return models.TierStarter
	}
}

// IsStyleAllowed reports whether the identity may generate with the named
// catalog style. Starter is limited to the basic subset; pro and ultimate get
// the full catalog. Names outside the catalog are never allowed.
func IsStyleAllowed(id models.Identity, styleName string) bool {
	if !InCatalog(styleName) {
		return false
	}
	if id.IsAdmin {
		return true
	}
	if ComputeTier(id) == models.TierStarter {
		return IsBasic(styleName)
	}
	return true
}

// CanUseCustomScene reports whether the identity may replace a catalog style
// with a free-text scene prompt.
func CanUseCustomScene(id models.Identity) bool {
	return id.IsAdmin || ComputeTier(id) != models.TierStarter
}
