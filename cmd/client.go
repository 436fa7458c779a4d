package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/smazurov/boardnode/internal/config"
	"github.com/smazurov/boardnode/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// client talks to a running daemon's HTTP API.
type client struct {
	server   string
	username string
	password string
	timeout  time.Duration
	http     *http.Client
}

// bindFlags registers the connection flags. Credentials default to the same
// env vars the daemon reads.
func (c *client) bindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.server, "server", envOr("CLIENT_SERVER", "http://localhost:8090"), "Daemon base URL")
	fs.StringVar(&c.username, "user", envOr("AUTH_USERNAME", "admin"), "Basic auth username")
	fs.StringVar(&c.password, "password", envOr("AUTH_PASSWORD", "password"), "Basic auth password")
	fs.DurationVar(&c.timeout, "timeout", 5*time.Second, "Request timeout")
}

func envOr(key, def string) string {
	if v := os.Getenv(config.EnvPrefix + key); v != "" {
		return v
	}
	return def
}

// apiError is the RFC 9457 problem body huma returns.
type apiError struct {
	Status int    `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

func (e *apiError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, e.Title, e.Detail)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Title)
}

func (c *client) do(ctx context.Context, method, path string, body, out any) error {
	if c.http == nil {
		c.http = &http.Client{Timeout: c.timeout}
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.server, "/")+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", version.UserAgent())
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &apiError{Status: resp.StatusCode, Title: http.StatusText(resp.StatusCode)}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type ledState struct {
	Value  uint8  `json:"value"`
	Binary string `json:"binary"`
}

func printLEDs(w io.Writer, s ledState) {
	fmt.Fprintf(w, "%d (%s)\n", s.Value, s.Binary)
}

// CreateClientCmds creates the leds, speaker and press commands.
func CreateClientCmds() []*cobra.Command {
	return []*cobra.Command{
		createLEDsCmd(),
		createSpeakerCmd(),
		createPressCmd(),
	}
}

func createLEDsCmd() *cobra.Command {
	c := &client{}
	cmd := &cobra.Command{
		Use:   "leds",
		Short: "Read or write the LED bank of a running daemon",
	}
	c.bindFlags(cmd.PersistentFlags())

	simple := func(use, short, method, path string) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				var s ledState
				if err := c.do(cmd.Context(), method, path, nil, &s); err != nil {
					return err
				}
				printLEDs(cmd.OutOrStdout(), s)
				return nil
			},
		}
	}

	cmd.AddCommand(
		simple("get", "Print the LED bank value", http.MethodGet, "/api/leds"),
		simple("inc", "Increment the LED bank value", http.MethodPost, "/api/leds/increment"),
		simple("dec", "Decrement the LED bank value", http.MethodPost, "/api/leds/decrement"),
		&cobra.Command{
			Use:   "set <byte>",
			Short: "Write one byte to the leds device",
			Long:  `Writes a raw byte. See "boardnode decode" for how the mode bits are applied.`,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := parseByte(args[0])
				if err != nil {
					return err
				}
				var s ledState
				if err := c.do(cmd.Context(), http.MethodPut, "/api/leds", map[string]any{"value": v}, &s); err != nil {
					return err
				}
				printLEDs(cmd.OutOrStdout(), s)
				return nil
			},
		},
	)
	return cmd
}

func createSpeakerCmd() *cobra.Command {
	c := &client{}
	cmd := &cobra.Command{
		Use:       "speaker <on|off>",
		Short:     "Turn the speaker of a running daemon on or off",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var value string
			switch args[0] {
			case "on":
				value = "1"
			case "off":
				value = "0"
			default:
				return fmt.Errorf("expected on or off, got %q", args[0])
			}

			var out struct {
				On bool `json:"on"`
			}
			if err := c.do(cmd.Context(), http.MethodPost, "/api/speaker", map[string]string{"value": value}, &out); err != nil {
				return err
			}
			state := "off"
			if out.On {
				state = "on"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "speaker %s\n", state)
			return nil
		},
	}
	c.bindFlags(cmd.Flags())
	return cmd
}

func createPressCmd() *cobra.Command {
	c := &client{}
	cmd := &cobra.Command{
		Use:       "press <button1|button2>",
		Short:     "Simulate a button press on a daemon running the sim backend",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"button1", "button2"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.do(cmd.Context(), http.MethodPost, "/api/buttons/"+args[0]+"/press", nil, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s pressed\n", args[0])
			return nil
		},
	}
	c.bindFlags(cmd.Flags())
	return cmd
}
