package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"time"

	bCtx "github.com/lotmarket/goauction/base/ctx"
	"github.com/lotmarket/goauction/base/log"
	"github.com/lotmarket/goauction/domain"
	"golang.org/x/xerrors"
)

// ClientCfg configures the ledger adapter client
type ClientCfg struct {
	HttpClient http.Client
	Timeout    time.Duration
	Endpoint   string
}

type client struct {
	client   http.Client
	timeout  time.Duration
	endpoint string
}

// NewClient talks to the currency ledger adapter over HTTP
func NewClient(cfg *ClientCfg) Service {
	return &client{
		client:   cfg.HttpClient,
		timeout:  cfg.Timeout,
		endpoint: cfg.Endpoint,
	}
}

func (c *client) Collect(ctx bCtx.Ctx, from domain.Address, amount domain.Amount) error {
	return c.move(ctx, "collections", from, amount)
}

func (c *client) Payout(ctx bCtx.Ctx, to domain.Address, amount domain.Amount) error {
	return c.move(ctx, "payouts", to, amount)
}

func (c *client) EngineBalance(ctx bCtx.Ctx) (domain.Amount, error) {
	url := fmt.Sprintf("%s/balance", c.endpoint)

	ctx, cancel := bCtx.WithTimeout(ctx, c.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, xerrors.Errorf("balance query returned %d", resp.StatusCode)
	}

	data, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return 0, err
	}
	var body struct {
		Amount domain.Amount `json:"amount"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return 0, err
	}
	return body.Amount, nil
}

func (c *client) move(ctx bCtx.Ctx, kind string, account domain.Address, amount domain.Amount) error {
	body, err := json.Marshal(map[string]interface{}{
		"account": account,
		"amount":  amount,
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/%s", c.endpoint, kind)
	ctx, cancel := bCtx.WithTimeout(ctx, c.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		ctx.WithFields(log.Fields{
			"url": url,
			"err": err,
		}).Error("client.Do failed")
		return xerrors.Errorf("%s for %s: %w", kind, account, domain.ErrPaymentFailed)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return xerrors.Errorf("%s for %s returned %d: %w", kind, account, resp.StatusCode, domain.ErrPaymentFailed)
	}
	return nil
}
