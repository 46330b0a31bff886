package model

// FormInfo summarises one form found on a page.
type FormInfo struct {
	// InputCount is the number of <input> elements inside the form.
	InputCount int `json:"inputs"`

	// Sensitive is true when any input looks like it collects secrets
	// (password, OTP, PIN, banking details).
	Sensitive bool `json:"sensitive"`
}

// AnalysisPayload is the input to a single analysis call. It carries no
// identity beyond the call itself.
type AnalysisPayload struct {
	URL   string     `json:"url"`
	Text  string     `json:"text,omitempty"`
	Title string     `json:"title,omitempty"`
	Lang  string     `json:"lang,omitempty"`
	Links []string   `json:"links,omitempty"`
	Forms []FormInfo `json:"forms,omitempty"`

	// Source is the trigger tag ("auto", "navigation", "manual", "api", ...).
	Source string `json:"source,omitempty"`
}
