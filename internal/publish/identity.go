package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"clipmill/internal/services"
)

// verifyChannelIdentity queries the identity behind the token and compares it
// to the expected channel ID. Uploading with a session that belongs to a
// different channel is a severe error, so a mismatch always aborts the
// channel attempt.
func (c *Coordinator) verifyChannelIdentity(ctx context.Context, token, expectedID string) error {
	if expectedID == "" {
		return nil
	}

	url := c.apiBaseURL + "/channels?part=id&mine=true"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return services.Wrap(services.ErrInvalidInput, "publish", "verify identity", "build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "publish", "verify identity", "identity request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return services.Wrap(services.ErrTransient, "publish", "verify identity", "read identity response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return services.Wrap(services.ErrTransient, "publish", "verify identity",
			fmt.Sprintf("identity request returned %d", resp.StatusCode), nil)
	}

	var doc struct {
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return services.Wrap(services.ErrTransient, "publish", "verify identity", "decode identity response", err)
	}
	if len(doc.Items) == 0 {
		return services.Wrap(services.ErrIdentityMismatch, "publish", "verify identity",
			"token resolves to no channel", nil)
	}
	actual := doc.Items[0].ID
	if actual != expectedID {
		return services.Wrap(services.ErrIdentityMismatch, "publish", "verify identity",
			fmt.Sprintf("token belongs to channel %s, expected %s", actual, expectedID), nil)
	}
	return nil
}
