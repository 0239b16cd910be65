package furiosa

import (
	"context"
	"net/http"

	"github.com/furiosa-ai/furiosa-client/client"
)

// VersionInfo describes the compiler service build.
type VersionInfo struct {
	Version   string `json:"version"`
	GitHash   string `json:"git_hash"`
	BuildTime string `json:"build_time"`
}

func (v VersionInfo) String() string {
	return v.Version + " (rev: " + v.GitHash + ", built at " + v.BuildTime + ")"
}

// ServerVersion returns the version of the compiler service.
func (c *Client) ServerVersion(ctx context.Context) (VersionInfo, error) {
	r, err := client.Request(ctx, c.compilerURL("version"), http.MethodGet)
	if err != nil {
		return VersionInfo{}, err
	}

	var info VersionInfo
	if err := c.hc.Do(r, client.WithDestination(&info)); err != nil {
		return VersionInfo{}, err
	}

	return info, nil
}
