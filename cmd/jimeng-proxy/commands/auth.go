package commands

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/jimengproxy/jimeng-proxy/internal/app"
	"github.com/jimengproxy/jimeng-proxy/internal/jimeng"
	"github.com/jimengproxy/jimeng-proxy/internal/tokensource"
)

// authCommand returns the 'auth' subcommand for managing the default session tokens.
func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the default Jimeng session tokens",
		Commands: []*cli.Command{
			authLoginCommand(),
			authLogoutCommand(),
			authStatusCommand(),
		},
	}
}

// authLoginCommand returns the 'auth login' subcommand.
func authLoginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Verify session tokens and save them as the default credential set",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "skip-verify",
				Usage: "save tokens without querying their credit",
			},
		},
		Action: authLoginAction,
	}
}

// authLogoutCommand returns the 'auth logout' subcommand.
func authLogoutCommand() *cli.Command {
	return &cli.Command{
		Name:   "logout",
		Usage:  "Clear the saved session tokens",
		Action: authLogoutAction,
	}
}

// authStatusCommand returns the 'auth status' subcommand.
func authStatusCommand() *cli.Command {
	return &cli.Command{
		Name:   "status",
		Usage:  "Show the credit of every saved session token",
		Action: authStatusAction,
	}
}

// writableStore loads the config and returns its token store, refusing
// read-only and disabled storage.
func writableStore(cmd *cli.Command) (*app.Config, app.TokenStore, error) {
	cfg, err := loadConfig(cmd.String("config"), cmd, os.Environ)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	switch cfg.Auth.Storage {
	case app.TokenStorageTypeEnv:
		return nil, nil, fmt.Errorf("cannot modify env storage (read-only). Configure file or keyring storage")
	case app.TokenStorageTypeNone:
		return nil, nil, fmt.Errorf("token storage is disabled. Set auth.storage to file or keyring")
	}

	store, err := cfg.Auth.NewTokenStore()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create token store: %w", err)
	}
	return cfg, store, nil
}

// authLoginAction reads session tokens from the terminal and saves them.
func authLoginAction(ctx context.Context, cmd *cli.Command) error {
	cfg, store, err := writableStore(cmd)
	if err != nil {
		return err
	}

	fmt.Println("=== Jimeng Session Login ===")
	fmt.Println()
	fmt.Println("1. Sign in at https://jimeng.jianying.com in your browser")
	fmt.Println("2. Copy the value of the 'sessionid' cookie")
	fmt.Println("3. Paste one or more values, separated by commas")

	input, err := readSecureInput(ctx, "\nEnter session token(s): ")
	if err != nil {
		return err
	}

	tokens := tokensource.SplitTokens(input)
	if len(tokens) == 0 {
		return fmt.Errorf("session token cannot be empty")
	}

	if !cmd.Bool("skip-verify") {
		for _, token := range tokens {
			if _, err := queryCredit(ctx, cfg, token); err != nil {
				return fmt.Errorf("token %s rejected: %w", maskToken(token), err)
			}
		}
	}

	if err := store.Write(ctx, strings.Join(tokens, ",")); err != nil {
		return fmt.Errorf("failed to write token: %w", err)
	}

	fmt.Println()
	fmt.Println("=== Login Successful ===")
	fmt.Printf("%d token(s) saved to %s storage\n", len(tokens), cfg.Auth.Storage)
	fmt.Println("Requests without an Authorization header now use these tokens")

	return nil
}

// authLogoutAction clears the saved session tokens.
func authLogoutAction(ctx context.Context, cmd *cli.Command) error {
	_, store, err := writableStore(cmd)
	if err != nil {
		return err
	}

	// Clear token via empty string write to maintain storage abstraction
	if err := store.Write(ctx, ""); err != nil {
		return fmt.Errorf("failed to clear token: %w", err)
	}

	fmt.Println()
	fmt.Println("=== Logout Successful ===")
	fmt.Println("Session tokens cleared from configured storage")

	return nil
}

// authStatusAction prints the credit of each saved token.
func authStatusAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd.String("config"), cmd, os.Environ)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	store, err := cfg.Auth.NewTokenStore()
	if err != nil {
		return fmt.Errorf("failed to create token store: %w", err)
	}
	if store == nil {
		fmt.Println("Token storage is disabled")
		return nil
	}

	saved, err := store.Read(ctx)
	if err != nil {
		return fmt.Errorf("failed to read tokens: %w", err)
	}

	tokens := tokensource.SplitTokens(saved)
	if len(tokens) == 0 {
		fmt.Printf("No tokens in %s storage\n", cfg.Auth.Storage)
		return nil
	}

	for _, token := range tokens {
		status, err := queryCredit(ctx, cfg, token)
		if err != nil {
			fmt.Printf("%s  error: %v\n", maskToken(token), err)
			continue
		}
		fmt.Printf("%s  total=%d gift=%d purchase=%d vip=%d\n",
			maskToken(token), status.Total, status.Gift, status.Purchase, status.VIP)
	}
	return nil
}

// queryCredit fetches the balance of one token from the configured upstream.
func queryCredit(ctx context.Context, cfg *app.Config, token string) (*jimeng.CreditStatus, error) {
	base, err := url.Parse(cfg.Upstream.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream url: %w", err)
	}

	transport := &tokensource.Transport{
		Source: tokensource.NewSessionSource(token),
		Hosts:  []string{base.Hostname()},
	}
	client, err := jimeng.NewClient(transport,
		jimeng.WithBaseURL(cfg.Upstream.BaseURL),
		jimeng.WithAssistantID(cfg.Upstream.AssistantID),
	)
	if err != nil {
		return nil, err
	}
	return client.Credit(ctx)
}

// maskToken keeps the first and last four characters of a token.
func maskToken(token string) string {
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + strings.Repeat("*", len(token)-8) + token[len(token)-4:]
}

// readSecureInput reads user input with hidden display and context cancellation support.
// Goroutine+select pattern required because term.ReadPassword has no native context support.
func readSecureInput(ctx context.Context, prompt string) (string, error) {
	fmt.Print(prompt)
	defer fmt.Println()

	type result struct {
		value string
		err   error
	}
	resultCh := make(chan result, 1)

	go func() {
		inputBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		resultCh <- result{value: string(inputBytes), err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-resultCh:
		if res.err != nil {
			return "", fmt.Errorf("failed to read input: %w", res.err)
		}
		return res.value, nil
	}
}
