package publish

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// loadToken reads a channel's access token. The token file holds either an
// OAuth token JSON document with an access_token field or the bare token
// string.
func loadToken(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("no token file configured")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}

	var doc struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(data, &doc); err == nil && doc.AccessToken != "" {
		return doc.AccessToken, nil
	}

	token := strings.TrimSpace(string(data))
	if token == "" || strings.HasPrefix(token, "{") {
		return "", fmt.Errorf("token file %s contains no access token", path)
	}
	return token, nil
}
