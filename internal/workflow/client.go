// Package workflow notifica al motor de workflows aguas abajo. El motor
// recibe un service token recién acuñado en su propio header Bearer; ese
// token jamás vuelve en un response body nuestro.
package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/socialvault/internal/security/servicetoken"
)

type Client struct {
	baseURL string
	minter  *servicetoken.Minter
	http    *http.Client
	log     *zap.Logger
}

func NewClient(baseURL string, minter *servicetoken.Minter, log *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		minter:  minter,
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     log,
	}
}

// Enabled indica si hay motor configurado.
func (c *Client) Enabled() bool { return c != nil && c.baseURL != "" }

type connectEvent struct {
	Event    string `json:"event"`
	UserID   string `json:"user_id"`
	Provider string `json:"provider"`
}

// NotifyConnected avisa que (user, provider) quedó conectado. Best-effort:
// una falla se loguea y no afecta al request que la originó.
func (c *Client) NotifyConnected(ctx context.Context, userID, provider string) {
	if !c.Enabled() {
		return
	}
	if err := c.post(ctx, userID, connectEvent{
		Event:    "credential.connected",
		UserID:   userID,
		Provider: provider,
	}); err != nil {
		c.log.Warn("workflow notify failed",
			zap.String("provider", provider),
			zap.Error(err),
		)
	}
}

func (c *Client) post(ctx context.Context, subject string, payload any) error {
	token, err := c.minter.Mint(subject)
	if err != nil {
		return err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/hooks/socialvault", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("workflow engine http %d", resp.StatusCode)
	}
	return nil
}
