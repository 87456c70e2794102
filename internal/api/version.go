package api

import (
	"encoding/json"
	"net/http"
	"runtime"
)

// BuildInfo is stamped via ldflags at build time.
type BuildInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
}

// VersionInfo is the body of GET /version and of `eventhub version --json`.
type VersionInfo struct {
	BuildInfo
	GoVersion string `json:"go_version"`
}

// NewVersionInfo fills empty build fields with "dev" and "unknown".
func NewVersionInfo(info BuildInfo) VersionInfo {
	if info.Version == "" {
		info.Version = "dev"
	}
	if info.GitCommit == "" {
		info.GitCommit = "unknown"
	}
	if info.BuildDate == "" {
		info.BuildDate = "unknown"
	}
	return VersionInfo{BuildInfo: info, GoVersion: runtime.Version()}
}

// VersionHandler serves GET /version.
func VersionHandler(info BuildInfo) http.Handler {
	body := NewVersionInfo(info)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(body)
	})
}
