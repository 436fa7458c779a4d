package cmd

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/smazurov/boardnode/internal/api"
	"github.com/smazurov/boardnode/internal/board"
	"github.com/smazurov/boardnode/internal/errcode"
	"github.com/smazurov/boardnode/internal/events"
	"github.com/smazurov/boardnode/internal/gpio"
	"github.com/spf13/cobra"
)

func run(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestParseByte(t *testing.T) {
	tests := []struct {
		in      string
		want    byte
		wantErr bool
	}{
		{"66", 66, false},
		{"0x42", 0x42, false},
		{"0b01000010", 0x42, false},
		{"255", 255, false},
		{"256", 0, true},
		{"-1", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		got, err := parseByte(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseByte(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseByte(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestDecodeCmd(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"absolute", []string{"5"}, "result: 0 (000000) -> 5 (000101)"},
		{"set keeps bits", []string{"0x42", "--from", "5"}, "result: 5 (000101) -> 7 (000111)"},
		{"set already on", []string{"0x42", "--from", "6"}, "result: 6 (000110) -> 6 (000110)"},
		{"clear", []string{"0x81", "--from", "7"}, "result: 7 (000111) -> 6 (000110)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, CreateDecodeCmd(), tt.args...)
			if err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("output:\n%s\nwant line %q", out, tt.want)
			}
		})
	}
}

func TestDecodeCmdInvalidMode(t *testing.T) {
	out, err := run(t, CreateDecodeCmd(), "0xC0")
	if errcode.Of(err) != errcode.InvalidMode {
		t.Fatalf("error = %v, want INVALID_MODE", err)
	}
	if !strings.Contains(out, "mode:   invalid") {
		t.Errorf("output = %q", out)
	}

	if _, err := run(t, CreateDecodeCmd(), "1", "--from", "64"); err == nil {
		t.Error("--from 64 should be rejected")
	}
}

func TestPinsCmd(t *testing.T) {
	out, err := run(t, CreatePinsCmd())
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"GPIO_GREEN1", "27", "button1", "speaker"} {
		if !strings.Contains(out, want) {
			t.Errorf("pins output missing %q:\n%s", want, out)
		}
	}

	out, err = run(t, CreatePinsCmd(), "--json")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"offset": 27`) {
		t.Errorf("JSON output = %s", out)
	}
}

func startDaemon(t *testing.T) (*httptest.Server, *board.Board) {
	t.Helper()
	bus := events.New()
	b, err := board.New(board.Options{
		Chip:           gpio.NewSimChip(gpio.SimLines),
		DebounceWindow: 5 * time.Millisecond,
		Bus:            bus,
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = b.Close() })

	srv := api.NewServer(&api.Options{
		AuthUsername: "admin",
		AuthPassword: "password",
		Board:        b,
		EventBus:     bus,
	})
	ts := httptest.NewServer(srv.GetMux())
	t.Cleanup(ts.Close)
	return ts, b
}

func TestClientCmds(t *testing.T) {
	ts, b := startDaemon(t)
	cmds := map[string]func() *cobra.Command{
		"leds":    createLEDsCmd,
		"speaker": createSpeakerCmd,
		"press":   createPressCmd,
	}
	exec := func(name string, args ...string) (string, error) {
		return run(t, cmds[name](), append(args, "--server", ts.URL)...)
	}

	out, err := exec("leds", "set", "0x05")
	if err != nil || strings.TrimSpace(out) != "5 (000101)" {
		t.Fatalf("leds set = %q, %v", out, err)
	}
	out, err = exec("leds", "inc")
	if err != nil || strings.TrimSpace(out) != "6 (000110)" {
		t.Errorf("leds inc = %q, %v", out, err)
	}
	out, err = exec("leds", "dec")
	if err != nil || strings.TrimSpace(out) != "5 (000101)" {
		t.Errorf("leds dec = %q, %v", out, err)
	}
	out, err = exec("leds", "get")
	if err != nil || strings.TrimSpace(out) != "5 (000101)" {
		t.Errorf("leds get = %q, %v", out, err)
	}

	_, err = exec("leds", "set", "0xC0")
	var apiErr *apiError
	if !errors.As(err, &apiErr) || apiErr.Status != 400 {
		t.Errorf("leds set 0xC0 error = %v, want 400", err)
	}

	out, err = exec("speaker", "on")
	if err != nil || strings.TrimSpace(out) != "speaker on" {
		t.Errorf("speaker on = %q, %v", out, err)
	}
	if on, _ := b.Speaker().State(); !on {
		t.Error("speaker line not high")
	}
	if _, err := exec("speaker", "loud"); err == nil {
		t.Error("speaker loud should fail")
	}

	if _, err := exec("press", "button1"); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for {
		if v, _ := b.Bank().Decode(); v == 6 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("press did not increment the bank")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestClientWrongPassword(t *testing.T) {
	ts, _ := startDaemon(t)
	_, err := run(t, createLEDsCmd(), "get", "--server", ts.URL, "--password", "wrong")
	var apiErr *apiError
	if !errors.As(err, &apiErr) || apiErr.Status != 401 {
		t.Errorf("error = %v, want 401", err)
	}
}
