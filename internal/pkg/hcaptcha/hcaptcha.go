package hcaptcha

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/soutienweb/cagnotte/internal/pkg/env"
)

const siteverifyURL = "https://hcaptcha.com/siteverify"

var httpClient = &http.Client{Timeout: 5 * time.Second}

type verifyResponse struct {
	Success    bool     `json:"success"`
	Hostname   string   `json:"hostname"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify checks an hCaptcha token from the signup and login-link forms.
// When HCAPTCHA_SECRET is unset the check is disabled and every token
// passes, so local setups work without an hCaptcha account.
func Verify(token string) (bool, error) {
	secret := env.GetEnv("HCAPTCHA_SECRET", "")
	if secret == "" {
		return true, nil
	}
	if token == "" {
		return false, nil
	}

	resp, err := httpClient.PostForm(siteverifyURL, url.Values{
		"secret":   {secret},
		"response": {token},
	})
	if err != nil {
		return false, fmt.Errorf("hcaptcha request failed: %w", err)
	}
	defer resp.Body.Close()

	var result verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, fmt.Errorf("hcaptcha response unreadable: %w", err)
	}
	if !result.Success {
		if len(result.ErrorCodes) > 0 {
			return false, fmt.Errorf("hcaptcha refused the token: %s", strings.Join(result.ErrorCodes, ", "))
		}
		return false, nil
	}
	return true, nil
}
