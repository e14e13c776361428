package model

// AuthStatus reports which backend integrations are authenticated.
type AuthStatus struct {
	Gmail           bool `json:"gmail"`
	Outlook         bool `json:"outlook"`
	SharePointReady bool `json:"sharepoint_ready"`
}

// DeviceCode holds the instructions for a device-code sign-in.
type DeviceCode struct {
	Message         string `json:"message"`
	VerificationURI string `json:"verification_uri"`
	UserCode        string `json:"user_code"`
	ExpiresIn       int    `json:"expires_in"`
}
