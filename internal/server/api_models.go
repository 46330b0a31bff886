package server

import (
	"github.com/raysh454/phishlens/internal/app"
	"github.com/raysh454/phishlens/internal/model"
)

// ScanRequest asks for one page to be collected and analysed.
type ScanRequest struct {
	URL    string `json:"url" example:"https://login.example-bank.xyz/verify"`
	Source string `json:"source" example:"manual"`
}

// BatchScanRequest scans several pages with bounded concurrency.
type BatchScanRequest struct {
	URLs        []string `json:"urls" example:"[\"https://a.example\",\"https://b.example\"]"`
	Concurrency int      `json:"concurrency" example:"4"`
}

// ReportRequest files an abuse report for a URL's domain.
type ReportRequest struct {
	URL    string `json:"url" example:"https://phish.example/login"`
	Source string `json:"source" example:"manual"`
}

// ErrorResponse is a uniform error payload returned by the API.
type ErrorResponse struct {
	Error string `json:"error" example:"not found"`
}

// AnalyzeRequest is the analysis payload accepted by POST /analyze.
type AnalyzeRequest = model.AnalysisPayload

// PluginsResponse is the plugin catalog with the number of enabled plugins.
type PluginsResponse struct {
	Plugins []model.PluginView `json:"plugins"`
	Active  int                `json:"active" example:"2"`
}

// PluginSettingRequest sets one plugin setting.
type PluginSettingRequest struct {
	Value any `json:"value"`
}

// PluginPatchRequest enables or disables a plugin and updates its settings.
type PluginPatchRequest = app.PluginPatch
