package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/buger/jsonparser"
	"github.com/jmehdipour/order-sms/internal/config"
	"github.com/jmehdipour/order-sms/internal/webhook"
	"github.com/spf13/cobra"
)

func newSignCmd() *cobra.Command {
	var (
		file  string
		touch bool
	)

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Print a payload with a signature computed from the configured key",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.Webhook.SigningKey == "" {
				return fmt.Errorf("webhook.signing_key is empty")
			}
			mode, ok := webhook.ParseSerialization(cfg.Webhook.Serialization)
			if !ok {
				return fmt.Errorf("unknown serialization %q", cfg.Webhook.Serialization)
			}

			var body []byte
			if file == "" || file == "-" {
				body, err = io.ReadAll(cmd.InOrStdin())
			} else {
				body, err = os.ReadFile(file)
			}
			if err != nil {
				return fmt.Errorf("read payload: %w", err)
			}

			out, err := signPayload(body, cfg.Webhook.SigningKey, mode, touch, time.Now())
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "-", "payload JSON file (- for stdin)")
	cmd.Flags().BoolVar(&touch, "touch", false, "set created to the current time before signing")

	return cmd
}

func signPayload(body []byte, key string, mode webhook.Serialization, touch bool, now time.Time) ([]byte, error) {
	if _, err := webhook.Parse(body); err != nil {
		return nil, err
	}

	if touch {
		var err error
		body, err = jsonparser.Set(append([]byte(nil), body...), []byte(strconv.FormatInt(now.Unix(), 10)), "created")
		if err != nil {
			return nil, fmt.Errorf("set created: %w", err)
		}
	}

	sig, err := webhook.Sign(body, key, mode)
	if err != nil {
		return nil, err
	}

	return webhook.Attach(body, sig)
}
