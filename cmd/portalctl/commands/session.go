package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"assistance-portal/internal/common/config"
	"assistance-portal/internal/common/database"
	"assistance-portal/internal/form/session"
	"assistance-portal/internal/form/validators"
)

const defaultKeyPrefix = "wizard:session:"

func sessionCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Stored wizard sessions",
	}
	cmd.AddCommand(sessionInspectCmd(opts))
	return cmd
}

type inspectOutput struct {
	ID           string      `json:"id"`
	Key          string      `json:"key"`
	CurrentStep  int         `json:"currentStep"`
	LastModified string      `json:"lastModified,omitempty"`
	TTL          string      `json:"ttl"`
	FormData     interface{} `json:"formData"`
	Errors       interface{} `json:"errors,omitempty"`
}

func sessionInspectCmd(opts *options) *cobra.Command {
	var redisAddr, prefix string
	cmd := &cobra.Command{
		Use:   "inspect <id>",
		Short: "Decode a stored session from Redis without modifying it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			rcfg := config.RedisConfig{Address: redisAddr}
			ttl := session.DefaultTTL
			if redisAddr == "" {
				cfg, err := opts.loadConfig()
				if err != nil {
					return err
				}
				rcfg = cfg.Database.Redis
				if prefix == "" {
					prefix = cfg.Session.KeyPrefix
				}
				if d := config.GetDuration(cfg.Session.TTL); d > 0 {
					ttl = d
				}
			}

			if prefix == "" {
				prefix = defaultKeyPrefix
			}

			rdb, err := database.NewRedis(rcfg)
			if err != nil {
				return err
			}
			defer rdb.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()

			key := prefix + id
			data, remaining, err := rdb.Inspect(ctx, key)
			if errors.Is(err, database.ErrKeyNotFound) {
				return fmt.Errorf("no session stored under %s", key)
			}
			if err != nil {
				return err
			}

			s, err := session.Decode(id, data, time.Now(), ttl)
			if err != nil {
				return fmt.Errorf("decode %s: %w", key, err)
			}

			table, err := opts.countries()
			if err != nil {
				return err
			}
			out := inspectOutput{
				ID:          s.ID,
				Key:         key,
				CurrentStep: s.CurrentStep,
				TTL:         remaining.Round(time.Second).String(),
				FormData:    s.Document,
			}
			if !s.LastModified.IsZero() {
				out.LastModified = s.LastModified.Format(time.RFC3339)
			}
			if errs := validators.New(table).ValidateDocument(&s.Document); len(errs) > 0 {
				out.Errors = errs
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			enc.SetEscapeHTML(false)
			return enc.Encode(out)
		},
	}
	cmd.Flags().StringVar(&redisAddr, "redis-addr", "", "Redis address (default from config)")
	cmd.Flags().StringVar(&prefix, "prefix", "", "session key prefix (default from config)")
	return cmd
}
