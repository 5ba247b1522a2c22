package discovery

import (
	"context"
	"net/http"
)

// ExtractAuthChallenge probes a resource URL with an unauthenticated GET and
// parses the WWW-Authenticate header of a 401 response.
//
// A non-401 response yields an empty challenge: the resource does not
// require authentication, which is a result, not an error. Probe timeouts
// also degrade to an empty challenge so discovery can continue against
// servers that are slow or not OAuth-protected. Connection failures (refused,
// DNS) return a *ProbeError, since they usually mean the resource URL itself
// is wrong.
func (c *Client) ExtractAuthChallenge(ctx context.Context, resourceURL string) (*AuthChallenge, error) {
	resp, err := c.get(ctx, resourceURL, c.cfg.ProbeTimeout)
	if err != nil {
		if isTimeout(err) {
			c.logger.Debug("Challenge probe timed out, treating as no challenge",
				"url", resourceURL)
			c.inst.Metrics().RecordProbe(ctx, false)
			return &AuthChallenge{}, nil
		}
		return nil, &ProbeError{URL: resourceURL, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusUnauthorized {
		c.logger.Debug("Resource did not demand authentication",
			"url", resourceURL,
			"status", resp.StatusCode)
		c.inst.Metrics().RecordProbe(ctx, false)
		return &AuthChallenge{}, nil
	}

	header := resp.Header.Get("WWW-Authenticate")
	if header == "" {
		// 401 without a challenge header carries no discovery hints.
		c.inst.Metrics().RecordProbe(ctx, false)
		return &AuthChallenge{}, nil
	}

	challenge, err := ParseWWWAuthenticate(header)
	if err != nil {
		c.inst.Metrics().RecordProbe(ctx, false)
		return &AuthChallenge{}, nil
	}

	c.logger.Debug("Parsed WWW-Authenticate challenge",
		"url", resourceURL,
		"scheme", challenge.Scheme,
		"resource_metadata", challenge.ResourceMetadata)
	c.inst.Metrics().RecordProbe(ctx, true)

	return challenge, nil
}
