package proxy

import (
	"errors"
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/jimengproxy/jimeng-proxy/internal/jimeng"
	"github.com/jimengproxy/jimeng-proxy/internal/openaiadapter"
	"github.com/jimengproxy/jimeng-proxy/internal/tokensource"
)

// maxPointsConcurrency bounds parallel credit queries of one points request.
const maxPointsConcurrency = 4

// TokenPoints is the credit balance of one session token.
type TokenPoints struct {
	Token  string              `json:"token"`
	Points jimeng.CreditStatus `json:"points"`
}

// tokenPointsHandler reports the credit of every token in the Authorization header.
func (p *Proxy) tokenPointsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		tokens := tokensource.SplitTokens(r.Header.Get("Authorization"))
		if len(tokens) == 0 {
			writeJSONOpenAIError(ctx, w, openaiadapter.NewErrorResponse(openaiadapter.ErrorTypeAuthentication,
				"missing session token: set Authorization: Bearer <sessionid>[,<sessionid>...]", "", ""))
			return
		}

		results := make([]TokenPoints, len(tokens))
		g, gCtx := errgroup.WithContext(ctx)
		g.SetLimit(maxPointsConcurrency)
		for i, token := range tokens {
			g.Go(func() error {
				client, err := jimeng.NewClient(p.sessionTransport(token), p.clientOptions...)
				if err != nil {
					return err
				}
				status, err := client.Credit(gCtx)
				if err != nil {
					return err
				}
				results[i] = TokenPoints{Token: token, Points: *status}
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			slog.ErrorContext(ctx, "credit query failed", "error", err)
			if errors.Is(err, jimeng.ErrUnauthenticated) {
				writeJSONOpenAIError(ctx, w, openaiadapter.NewErrorResponse(openaiadapter.ErrorTypeAuthentication, err.Error(), "", ""))
				return
			}
			writeError(ctx, w, err)
			return
		}
		writeJSON(ctx, w, results, http.StatusOK)
	}
}
