package jimeng

import (
	"context"
	"log/slog"

	"github.com/jimengproxy/jimeng-proxy/internal/metrics"
)

const (
	creditPath        = "/commerce/v1/benefits/user_credit"
	creditReceivePath = "/commerce/v1/benefits/credit_receive"
	creditTimeZone    = "Asia/Shanghai"
)

// CreditStatus is the spendable balance of an account.
type CreditStatus struct {
	Gift     int `json:"gift_credit"`
	Purchase int `json:"purchase_credit"`
	VIP      int `json:"vip_credit"`
	Total    int `json:"total_credit"`
}

type creditResponse struct {
	Credit struct {
		GiftCredit     int `json:"gift_credit"`
		PurchaseCredit int `json:"purchase_credit"`
		VIPCredit      int `json:"vip_credit"`
	} `json:"credit"`
}

type creditReceiveResponse struct {
	CurTotalCredits int `json:"cur_total_credits"`
	ReceiveQuota    int `json:"receive_quota"`
}

// Credit fetches the current balance.
func (c *Client) Credit(ctx context.Context) (*CreditStatus, error) {
	var resp creditResponse
	if err := c.call(ctx, creditPath, nil, map[string]any{}, &resp); err != nil {
		return nil, err
	}

	status := &CreditStatus{
		Gift:     resp.Credit.GiftCredit,
		Purchase: resp.Credit.PurchaseCredit,
		VIP:      resp.Credit.VIPCredit,
	}
	status.Total = status.Gift + status.Purchase + status.VIP

	slog.DebugContext(ctx, "credit fetched",
		"gift", status.Gift,
		"purchase", status.Purchase,
		"vip", status.VIP,
		"total", status.Total,
	)
	return status, nil
}

// ReceiveCredit claims the daily free credit and returns the received quota.
func (c *Client) ReceiveCredit(ctx context.Context) (int, error) {
	metrics.CreditReceivesTotal.Inc()

	var resp creditReceiveResponse
	if err := c.call(ctx, creditReceivePath, nil, map[string]string{"time_zone": creditTimeZone}, &resp); err != nil {
		return 0, err
	}

	slog.InfoContext(ctx, "credit received",
		"quota", resp.ReceiveQuota,
		"total", resp.CurTotalCredits,
	)
	return resp.ReceiveQuota, nil
}

// EnsureCredit replenishes an exhausted account once. The balance is not
// checked again afterwards; submission reports the failure if the account
// still cannot pay.
func (c *Client) EnsureCredit(ctx context.Context) error {
	status, err := c.Credit(ctx)
	if err != nil {
		return err
	}
	if status.Total > 0 {
		return nil
	}

	_, err = c.ReceiveCredit(ctx)
	return err
}
