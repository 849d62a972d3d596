package okx

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// Balance returns the account's total equity in USD terms.
func (c *Client) Balance(ctx context.Context) (float64, error) {
	var data []struct {
		TotalEq string `json:"totalEq"`
	}
	if err := c.do(ctx, "GET", "/api/v5/account/balance", nil, &data); err != nil {
		return 0, err
	}
	if len(data) == 0 {
		return 0, fmt.Errorf("balance: empty response")
	}
	return strconv.ParseFloat(data[0].TotalEq, 64)
}

// MaxAvailSize returns the buyable margin for the instrument in quote
// currency.
func (c *Client) MaxAvailSize(ctx context.Context, instID, tdMode string) (float64, error) {
	q := url.Values{}
	q.Set("instId", instID)
	q.Set("tdMode", tdMode)
	var data []struct {
		AvailBuy string `json:"availBuy"`
	}
	if err := c.do(ctx, "GET", "/api/v5/account/max-avail-size?"+q.Encode(), nil, &data); err != nil {
		return 0, err
	}
	if len(data) == 0 {
		return 0, fmt.Errorf("max-avail-size: empty response")
	}
	return strconv.ParseFloat(data[0].AvailBuy, 64)
}

type PositionInfo struct {
	InstID         string `json:"instId"`
	Pos            string `json:"pos"`
	AvgPx          string `json:"avgPx"`
	BreakevenPrice string `json:"bePx"`
	UPL            string `json:"upl"`
	Lever          string `json:"lever"`
}

func (c *Client) Positions(ctx context.Context, instID string) ([]PositionInfo, error) {
	q := url.Values{}
	q.Set("instId", instID)
	var data []PositionInfo
	if err := c.do(ctx, "GET", "/api/v5/account/positions?"+q.Encode(), nil, &data); err != nil {
		return nil, err
	}
	return data, nil
}

// HasPosition reports whether a non-zero position is open on the instrument.
func (c *Client) HasPosition(ctx context.Context, instID string) (bool, error) {
	positions, err := c.Positions(ctx, instID)
	if err != nil {
		return false, err
	}
	for _, p := range positions {
		if p.Pos != "" && p.Pos != "0" {
			return true, nil
		}
	}
	return false, nil
}

// SetLeverage sets the instrument leverage for the margin mode.
func (c *Client) SetLeverage(ctx context.Context, instID string, leverage int, mgnMode string) error {
	body := map[string]string{
		"instId":  instID,
		"lever":   strconv.Itoa(leverage),
		"mgnMode": mgnMode,
	}
	return c.do(ctx, "POST", "/api/v5/account/set-leverage", body, nil)
}
