package okx

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"

	"go.uber.org/zap"
)

// Ticker returns the instrument's last traded price.
func (c *Client) Ticker(ctx context.Context, instID string) (float64, error) {
	q := url.Values{}
	q.Set("instId", instID)
	var data []struct {
		Last string `json:"last"`
	}
	if err := c.do(ctx, "GET", "/api/v5/market/ticker?"+q.Encode(), nil, &data); err != nil {
		return 0, err
	}
	if len(data) == 0 {
		return 0, fmt.Errorf("ticker %s: empty response", instID)
	}
	return strconv.ParseFloat(data[0].Last, 64)
}

type OrderResult struct {
	OrdID string `json:"ordId"`
	SCode string `json:"sCode"`
	SMsg  string `json:"sMsg"`
}

// MarketOrder places a net-position market order for sz contracts.
func (c *Client) MarketOrder(ctx context.Context, instID, tdMode, side string, sz float64) (*OrderResult, error) {
	body := map[string]string{
		"instId":  instID,
		"tdMode":  tdMode,
		"side":    side,
		"posSide": "net",
		"ordType": "market",
		"sz":      strconv.FormatFloat(sz, 'f', -1, 64),
	}
	var data []OrderResult
	if err := c.do(ctx, "POST", "/api/v5/trade/order", body, &data); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("order: empty response")
	}
	if data[0].SCode != "0" {
		return nil, fmt.Errorf("order rejected: %s %s", data[0].SCode, data[0].SMsg)
	}
	return &data[0], nil
}

// PlaceStopLoss attaches a conditional algo order closing the whole position
// when price crosses the trigger. The trigger mirrors the simulated stop:
// breakeven scaled by slRatio over leverage.
func (c *Client) PlaceStopLoss(ctx context.Context, instID, tdMode, entrySide string, triggerPx float64) (*OrderResult, error) {
	exitSide := "sell"
	if entrySide == "sell" {
		exitSide = "buy"
	}
	body := map[string]any{
		"instId":          instID,
		"tdMode":          tdMode,
		"side":            exitSide,
		"posSide":         "net",
		"ordType":         "conditional",
		"closeFraction":   "1",
		"reduceOnly":      true,
		"cxlOnClosePos":   true,
		"slTriggerPx":     strconv.FormatFloat(triggerPx, 'f', -1, 64),
		"slOrdPx":         "-1",
		"slTriggerPxType": "last",
	}
	var data []OrderResult
	if err := c.do(ctx, "POST", "/api/v5/trade/order-algo", body, &data); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("algo order: empty response")
	}
	if data[0].SCode != "0" {
		return nil, fmt.Errorf("algo order rejected: %s %s", data[0].SCode, data[0].SMsg)
	}
	return &data[0], nil
}

// ClosePositions closes the whole net position at market.
func (c *Client) ClosePositions(ctx context.Context, instID, mgnMode string) error {
	body := map[string]string{
		"instId":  instID,
		"mgnMode": mgnMode,
		"posSide": "net",
	}
	return c.do(ctx, "POST", "/api/v5/trade/close-position", body, nil)
}

// OpenWithRatio opens a leveraged market position sized as a fraction of the
// available margin, then attaches the stop loss. A position already open on
// the instrument is left alone.
func (c *Client) OpenWithRatio(ctx context.Context, instID, tdMode string, ratio float64, leverage int, side string, slRatio float64) (*OrderResult, error) {
	open, err := c.HasPosition(ctx, instID)
	if err != nil {
		return nil, err
	}
	if open {
		c.log.Info("position already open, skipping entry", zap.String("inst_id", instID))
		return nil, nil
	}

	if err := c.SetLeverage(ctx, instID, leverage, tdMode); err != nil {
		return nil, err
	}
	avail, err := c.MaxAvailSize(ctx, instID, tdMode)
	if err != nil {
		return nil, err
	}

	margin := avail * ratio
	price, err := c.Ticker(ctx, instID)
	if err != nil {
		return nil, err
	}
	// Contract size is 0.01 of the base asset, truncated to two decimals of
	// contracts.
	contracts := math.Floor(margin*float64(leverage)/price*100*100) / 100
	if contracts <= 0 {
		return nil, fmt.Errorf("insufficient margin: %.2f available", avail)
	}

	res, err := c.MarketOrder(ctx, instID, tdMode, side, contracts)
	if err != nil {
		return nil, err
	}
	c.log.Info("position opened",
		zap.String("inst_id", instID),
		zap.String("side", side),
		zap.Float64("contracts", contracts),
		zap.Int("leverage", leverage),
	)

	positions, err := c.Positions(ctx, instID)
	if err != nil || len(positions) == 0 {
		c.log.Warn("cannot place stop loss without a position snapshot", zap.Error(err))
		return res, nil
	}
	breakeven, err := strconv.ParseFloat(positions[0].BreakevenPrice, 64)
	if err != nil || breakeven <= 0 {
		c.log.Warn("invalid breakeven price, skipping stop loss",
			zap.String("be_px", positions[0].BreakevenPrice))
		return res, nil
	}

	trigger := breakeven * (1 - slRatio/float64(leverage))
	if side == "sell" {
		trigger = breakeven * (1 + slRatio/float64(leverage))
	}
	if _, err := c.PlaceStopLoss(ctx, instID, tdMode, side, trigger); err != nil {
		c.log.Error("stop loss placement failed", zap.Error(err))
	}
	return res, nil
}
