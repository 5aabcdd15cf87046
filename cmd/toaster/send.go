package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/toaster/internal/dbus"
	"github.com/jmylchreest/toaster/internal/model"
	"github.com/jmylchreest/toaster/internal/toast"
)

var sendOpts struct {
	class      string
	icon       string
	persistent bool
	file       string
	via        string
	url        string
}

var sendCmd = &cobra.Command{
	Use:   "send [MESSAGE]",
	Short: "Send a toast to toasterd",
	Long: `Send one toast, or a batch of toasts from a YAML file, to toasterd.

The batch file holds a list of toasts:

  toasts:
    - message: Saved successfully
      class: success-subtle
    - message: Disk almost full
      class: warning-subtle
      persistent: true

By default toasts travel over D-Bus and are displayed by whichever
notification daemon owns the bus name. Use --via http to post them to the
toaster HTTP API instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().StringVarP(&sendOpts.class, "class", "c", model.ClassSuccess,
		"Toast style (success-subtle, warning-subtle, danger-subtle)")
	sendCmd.Flags().StringVar(&sendOpts.icon, "icon", "",
		"Icon override (default: resolved from the class)")
	sendCmd.Flags().BoolVarP(&sendOpts.persistent, "persistent", "p", false,
		"Keep the toast until it is dismissed")
	sendCmd.Flags().StringVarP(&sendOpts.file, "file", "f", "",
		"YAML file with a batch of toasts ('-' for stdin)")
	sendCmd.Flags().StringVar(&sendOpts.via, "via", "dbus",
		"Transport: dbus or http")
	sendCmd.Flags().StringVar(&sendOpts.url, "url", "",
		"Base URL of the HTTP API (default: http://<http.listen>)")
}

// sendItem is one toast read from the command line or a batch file.
type sendItem struct {
	Message    string `yaml:"message"`
	Class      string `yaml:"class"`
	Icon       string `yaml:"icon"`
	Persistent bool   `yaml:"persistent"`
}

type batchFile struct {
	Toasts []sendItem `yaml:"toasts"`
}

// loadBatch decodes a batch file. Items without a class get defaultClass.
func loadBatch(r io.Reader, defaultClass string) ([]sendItem, error) {
	var batch batchFile
	if err := yaml.NewDecoder(r).Decode(&batch); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse batch file: %w", err)
	}

	for i := range batch.Toasts {
		if strings.TrimSpace(batch.Toasts[i].Message) == "" {
			return nil, fmt.Errorf("toast %d: message is required", i+1)
		}
		if batch.Toasts[i].Class == "" {
			batch.Toasts[i].Class = defaultClass
		}
	}
	return batch.Toasts, nil
}

// toastSender delivers a toast and returns an identifier for it.
type toastSender interface {
	Send(ctx context.Context, item sendItem) (string, error)
}

type dbusSender struct {
	client *dbus.Client
}

func (s dbusSender) Send(ctx context.Context, item sendItem) (string, error) {
	id, err := s.client.Notify(ctx, dbus.ToastRequest{
		Message:    item.Message,
		Class:      item.Class,
		Icon:       item.Icon,
		Persistent: item.Persistent,
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprint(id), nil
}

type httpSender struct {
	client  *http.Client
	baseURL string
}

func (s httpSender) Send(ctx context.Context, item sendItem) (string, error) {
	body, err := json.Marshal(toast.Payload{
		Message:    item.Message,
		Class:      item.Class,
		Icon:       item.Icon,
		Persistent: item.Persistent,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimSuffix(s.baseURL, "/")+"/api/toasts", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("server returned %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	var created model.Toast
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	return fmt.Sprint(created.ID), nil
}

func newSender(via string) (toastSender, error) {
	switch via {
	case "dbus":
		client, err := dbus.NewClient()
		if err != nil {
			return nil, err
		}
		return dbusSender{client: client}, nil
	case "http":
		baseURL := sendOpts.url
		if baseURL == "" {
			baseURL = "http://" + cfg.HTTP.Listen
		}
		return httpSender{client: &http.Client{Timeout: 30 * time.Second}, baseURL: baseURL}, nil
	default:
		return nil, fmt.Errorf("unknown transport %q, must be dbus or http", via)
	}
}

func collectItems(args []string) ([]sendItem, error) {
	var items []sendItem

	if len(args) == 1 {
		items = append(items, sendItem{
			Message:    args[0],
			Class:      sendOpts.class,
			Icon:       sendOpts.icon,
			Persistent: sendOpts.persistent,
		})
	}

	if sendOpts.file != "" {
		var r io.Reader = os.Stdin
		if sendOpts.file != "-" {
			f, err := os.Open(sendOpts.file)
			if err != nil {
				return nil, fmt.Errorf("failed to open batch file: %w", err)
			}
			defer func() { _ = f.Close() }()
			r = f
		}
		batch, err := loadBatch(r, sendOpts.class)
		if err != nil {
			return nil, err
		}
		items = append(items, batch...)
	}

	if len(items) == 0 {
		return nil, errors.New("nothing to send: pass a MESSAGE or --file")
	}
	return items, nil
}

func runSend(cmd *cobra.Command, args []string) error {
	items, err := collectItems(args)
	if err != nil {
		return err
	}

	sender, err := newSender(sendOpts.via)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, item := range items {
		id, err := sender.Send(cmd.Context(), item)
		if err != nil {
			return fmt.Errorf("failed to send %q: %w", item.Message, err)
		}
		logger.Debug("sent toast", "via", sendOpts.via, "id", id, "class", item.Class)
		if _, err := fmt.Fprintln(out, id); err != nil {
			return err
		}
	}
	return nil
}
