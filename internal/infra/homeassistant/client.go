package homeassistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mamontuka/tuya-iot-core-reminder/internal/domain/hass"
)

const (
	requestTimeout    = 10 * time.Second
	mobileAppPrefix   = "mobile_app_"
	notifyDomain      = "notify"
	maxLoggedRespBody = 512
)

// APIError reports a non-2xx response from the Supervisor API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("supervisor API returned status %d: %s", e.StatusCode, e.Body)
}

// Unauthorized reports whether the Supervisor rejected the bearer token.
func (e *APIError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// SupervisorClient implements the hass.Client interface against the Home
// Assistant Supervisor proxy (http://supervisor/core/api), authenticating
// every request with the SUPERVISOR_TOKEN bearer token.
type SupervisorClient struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *logrus.Logger
}

func NewSupervisorClient(baseURL, token string, logger *logrus.Logger) *SupervisorClient {
	return &SupervisorClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: requestTimeout},
		logger:  logger,
	}
}

// serviceDomain mirrors one entry of the GET /services response: a service
// domain and the services registered under it, keyed by service name.
type serviceDomain struct {
	Domain   string                   `json:"domain"`
	Services map[string]serviceDetail `json:"services"`
}

type serviceDetail struct {
	Name string `json:"name"`
}

// ListMobileNotifyServices fetches the service registry and keeps only
// notify.mobile_app_* entries, sorted by ID for stable log output.
func (c *SupervisorClient) ListMobileNotifyServices(ctx context.Context) ([]hass.NotifyService, error) {
	body, err := c.do(ctx, http.MethodGet, c.baseURL+"/services", nil)
	if err != nil {
		return nil, err
	}

	var domains []serviceDomain
	if err := json.Unmarshal(body, &domains); err != nil {
		return nil, fmt.Errorf("failed to decode service listing: %w", err)
	}

	var services []hass.NotifyService
	for _, d := range domains {
		if d.Domain != notifyDomain {
			continue
		}
		for name, detail := range d.Services {
			if !strings.HasPrefix(name, mobileAppPrefix) {
				continue
			}
			services = append(services, hass.NotifyService{
				ID:   notifyDomain + "." + name,
				Name: detail.Name,
			})
		}
	}
	sort.Slice(services, func(i, j int) bool { return services[i].ID < services[j].ID })
	return services, nil
}

// SendNotification calls a notify service, e.g. "notify.mobile_app_myphone"
// becomes POST {base}/services/notify/mobile_app_myphone.
func (c *SupervisorClient) SendNotification(ctx context.Context, service, message string) error {
	domain, name, found := strings.Cut(service, ".")
	if !found {
		return fmt.Errorf("invalid notify service %q: expected domain.service", service)
	}

	payload, err := json.Marshal(map[string]string{"message": message})
	if err != nil {
		return fmt.Errorf("failed to marshal notification payload: %w", err)
	}

	url := fmt.Sprintf("%s/services/%s/%s", c.baseURL, domain, name)
	_, err = c.do(ctx, http.MethodPost, url, payload)
	return err
}

func (c *SupervisorClient) do(ctx context.Context, method, url string, payload []byte) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.logger.IsLevelEnabled(logrus.DebugLevel) {
		c.logger.Debugf("%s %s (auth: Bearer %s...)", method, url, truncateToken(c.token))
		if payload != nil {
			c.logger.Debugf("Request body: %s", payload)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("supervisor API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read supervisor API response: %w", err)
	}

	if c.logger.IsLevelEnabled(logrus.DebugLevel) {
		c.logger.Debugf("HTTP status: %d, response: %s", resp.StatusCode, truncateBody(body))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: truncateBody(body)}
	}
	return body, nil
}

func truncateToken(token string) string {
	if len(token) <= 10 {
		return token
	}
	return token[:10]
}

func truncateBody(body []byte) string {
	s := string(body)
	if len(s) > maxLoggedRespBody {
		return s[:maxLoggedRespBody] + "...<truncated>"
	}
	return s
}
