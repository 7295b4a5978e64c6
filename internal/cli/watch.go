package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"semzo-prive/internal/logging"
	"semzo-prive/internal/poller"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newWatchCommand() *cobra.Command {
	var (
		apiURL   string
		token    string
		intentID string
		interval time.Duration
		attempts int
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll a membership until it becomes active or limited",
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				return errors.New("--token is required")
			}
			log, err := logging.New(logging.Config{Level: "warn"})
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			client := &apiClient{
				base:     strings.TrimRight(apiURL, "/"),
				token:    token,
				intentID: intentID,
				http:     &http.Client{Timeout: 10 * time.Second},
			}
			p := poller.New(client, log, poller.WithInterval(interval), poller.WithAttempts(attempts))
			res, err := p.Run(cmd.Context())
			if err != nil {
				return err
			}
			log.Debug("watch finished", zap.String("outcome", string(res.Outcome)), zap.Int("attempts", res.Attempts))
			fmt.Fprintf(cmd.OutOrStdout(), "%s (status=%s, attempts=%d)\n", res.Outcome, res.Status, res.Attempts)
			return nil
		},
	}
	cmd.Flags().StringVar(&apiURL, "api", "http://localhost:8080", "API base URL")
	cmd.Flags().StringVar(&token, "token", "", "bearer token of the member")
	cmd.Flags().StringVar(&intentID, "intent", "", "membership intent id (defaults to the latest)")
	cmd.Flags().DurationVar(&interval, "interval", poller.DefaultInterval, "delay between polls")
	cmd.Flags().IntVar(&attempts, "attempts", poller.DefaultAttempts, "maximum number of polls")
	return cmd
}

// apiClient talks to the status and reconcile endpoints as the signed-in member.
type apiClient struct {
	base     string
	token    string
	intentID string
	http     *http.Client
}

func (c *apiClient) Status(ctx context.Context) (poller.Snapshot, error) {
	u := c.base + "/membership/status"
	if c.intentID != "" {
		u += "?intentId=" + url.QueryEscape(c.intentID)
	}
	var snap poller.Snapshot
	err := c.call(ctx, http.MethodGet, u, nil, &snap)
	return snap, err
}

func (c *apiClient) Reconcile(ctx context.Context) (poller.Reconciliation, error) {
	body, err := json.Marshal(map[string]string{"intentId": c.intentID})
	if err != nil {
		return poller.Reconciliation{}, err
	}
	var rec poller.Reconciliation
	err = c.call(ctx, http.MethodPost, c.base+"/membership/reconcile", body, &rec)
	return rec, err
}

func (c *apiClient) call(ctx context.Context, method, u string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, u, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return fmt.Errorf("%s %s: %d %s", method, u, resp.StatusCode, e.Error)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
