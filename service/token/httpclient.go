package token

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
	"github.com/lotmarket/goauction/domain/auction"
	"golang.org/x/xerrors"
)

// ClientCfg configures the custody adapter client
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

// NewClient talks to the token custody adapter over HTTP. The adapter owns
// the actual contract interaction; this client only reports its outcome.
func NewClient(cfg *ClientCfg) Client {
	return &client{
		client:   cfg.HttpClient,
		timeout:  cfg.Timeout,
		endpoint: cfg.Endpoint,
	}
}

func (c *client) Transfer(ctx bCtx.Ctx, token auction.TokenRef, from, to domain.Address) TransferResult {
	body, err := json.Marshal(map[string]interface{}{
		"contract": token.Contract,
		"tokenId":  token.Id,
		"from":     from,
		"to":       to,
	})
	if err != nil {
		return Rejected(err)
	}

	url := fmt.Sprintf("%s/transfers", c.endpoint)
	status, _, err := c.post(ctx, url, body)
	if err != nil {
		// an unreachable adapter is a rejection, not a fatal error
		return Rejected(err)
	}
	if status != http.StatusOK {
		return Rejected(xerrors.Errorf("transfer returned %d: %w", status, domain.ErrTransferRejected))
	}
	return Delivered()
}

func (c *client) GetRoyalties(ctx bCtx.Ctx, token auction.TokenRef) ([]auction.RoyaltyEntry, error) {
	url := fmt.Sprintf("%s/royalties?contract=%s&tokenId=%s", c.endpoint, token.Contract, token.Id)

	ctx, cancel := bCtx.WithTimeout(ctx, c.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		ctx.WithFields(log.Fields{
			"url": url,
			"err": err,
		}).Error("client.Do failed")
		return nil, xerrors.Errorf("royalty query: %w", domain.ErrRoyaltyLookupFailed)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, xerrors.Errorf("royalty query returned %d: %w", resp.StatusCode, domain.ErrRoyaltyLookupFailed)
	}

	data, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var royalties []auction.RoyaltyEntry
	if err := json.Unmarshal(data, &royalties); err != nil {
		return nil, xerrors.Errorf("royalty decode: %w", domain.ErrRoyaltyLookupFailed)
	}
	return royalties, nil
}

func (c *client) post(ctx bCtx.Ctx, url string, body []byte) (int, []byte, error) {
	ctx, cancel := bCtx.WithTimeout(ctx, c.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		ctx.WithFields(log.Fields{
			"url": url,
			"err": err,
		}).Error("client.Do failed")
		return 0, nil, err
	}
	defer resp.Body.Close()
	data, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, data, nil
}
