package models

import "time"

// Tier is the entitlement level derived from purchase history or the admin
// override.
type Tier string

const (
	TierStarter  Tier = "starter"
	TierPro      Tier = "pro"
	TierUltimate Tier = "ultimate"
)

// Identity is the authenticated user as reported by the identity service.
// It is owned by the session store; other packages read snapshots only.
type Identity struct {
	ID                    string `json:"id"`
	Email                 string `json:"email"`
	CreditsRemaining      int    `json:"credits_remaining"`
	TotalCreditsPurchased int    `json:"total_credits_purchased"`
	IsAdmin               bool   `json:"is_admin"`
}

// TokenResponse is the login/register response body.
type TokenResponse struct {
	AccessToken string   `json:"access_token"`
	User        Identity `json:"user"`
}

// GenerationResponse is the body returned by the generation endpoint.
type GenerationResponse struct {
	ID           string    `json:"id"`
	Style        string    `json:"style"`
	ResultBase64 string    `json:"result_base64"`
	CreatedAt    time.Time `json:"created_at"`
	CreditsUsed  int       `json:"credits_used"`
}

// GenerationRecord is one entry of the server-owned generation history.
type GenerationRecord struct {
	ID               string    `json:"id"`
	Style            string    `json:"style"`
	OriginalFilename string    `json:"original_filename"`
	ResultBase64     string    `json:"result_base64"`
	CreatedAt        time.Time `json:"created_at"`
	CreditsUsed      int       `json:"credits_used"`
}

// AvailableStylesResponse is the server's view of what the current user may
// use, returned by the styles endpoint.
type AvailableStylesResponse struct {
	Styles   []string `json:"styles"`
	UserTier string   `json:"user_tier"`
}

// CheckoutRequest asks the payment service for a hosted checkout session.
type CheckoutRequest struct {
	Tier       string `json:"tier"`
	SuccessURL string `json:"success_url"`
	CancelURL  string `json:"cancel_url"`
}

// CheckoutResponse carries the hosted checkout URL to redirect to.
type CheckoutResponse struct {
	CheckoutURL string `json:"checkout_url"`
	SessionID   string `json:"session_id"`
}

// Credentials is the single durable client-side record: the bearer token.
type Credentials struct {
	AuthToken string `json:"auth_token"`
}
