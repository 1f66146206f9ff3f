// Command turbosms calls the turbosms.ua gateway from the shell. Credentials
// and transport settings come from the same TURBOSMS_* environment used by the
// dispatch worker.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ajayykmr/turbosms-go/internal/config"
	"github.com/ajayykmr/turbosms-go/internal/factory"
	"github.com/ajayykmr/turbosms-go/internal/gateway"
	"github.com/ajayykmr/turbosms-go/internal/logger"
	"github.com/ajayykmr/turbosms-go/internal/util"
)

const usage = `usage: turbosms <command> [flags]

commands:
  send     send an sms, viber or hybrid message
  balance  print the account balance
  upload   upload a file (base64 data or url) for viber messages
  file     print the details of an uploaded file
`

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	log, err := logger.New(cfg.App.Env, cfg.App.LogLevel, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	client, err := factory.Client(cfg.Gateway, logger.Component(*log, "gateway"))
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	fs.SetOutput(stderr)
	result, err := cmd(ctx, fs, args[1:], client, cfg.Gateway.DefaultSender)
	if err != nil {
		return report(stderr, err)
	}
	if err := printJSON(stdout, result); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

type command func(ctx context.Context, fs *flag.FlagSet, args []string, client *gateway.Client, defaultSender string) (json.RawMessage, error)

var commands = map[string]command{
	"send":    sendCommand,
	"balance": balanceCommand,
	"upload":  uploadCommand,
	"file":    fileCommand,
}

func sendCommand(ctx context.Context, fs *flag.FlagSet, args []string, client *gateway.Client, defaultSender string) (json.RawMessage, error) {
	var to recipientList
	fs.Var(&to, "to", "recipient phone number; repeat or comma-separate for several")
	text := fs.String("text", "", "message text")
	sender := fs.String("sender", defaultSender, "sms sender name")
	viberSender := fs.String("viber-sender", "", "viber sender name (defaults to -sender)")
	mode := fs.String("mode", string(gateway.ModeSMS), "delivery mode: sms, viber or hybrid")
	start := fs.String("start", "", "scheduled start time in RFC3339")
	flash := fs.Int("flash", 0, "send the sms as a flash message (1)")
	ttl := fs.Int("ttl", 0, "viber time to live in seconds")
	image := fs.String("image", "", "viber image url")
	caption := fs.String("caption", "", "viber button caption")
	action := fs.String("action", "", "viber button url")
	fileID := fs.Int("file-id", 0, "viber file id from upload")
	countClicks := fs.Int("count-clicks", 0, "track viber clicks (1)")
	transactional := fs.Int("transactional", 0, "mark the viber message as transactional (1)")
	if err := fs.Parse(args); err != nil {
		return nil, errUsage
	}

	m, err := gateway.ParseMode(*mode)
	if err != nil {
		return nil, err
	}
	b := gateway.NewOptions().Mode(m)
	if *start != "" {
		t, err := util.ParseRFC3339(*start)
		if err != nil {
			return nil, fmt.Errorf("%w: start: %w", gateway.ErrValidation, err)
		}
		b.StartTime(t)
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "flash":
			b.IsFlash(*flash)
		case "ttl":
			b.TTL(*ttl)
		case "image":
			b.Image(*image)
		case "caption":
			b.Caption(*caption)
		case "action":
			b.Action(*action)
		case "file-id":
			b.FileID(*fileID)
		case "count-clicks":
			b.CountClicks(*countClicks)
		case "transactional":
			b.Transactional(*transactional)
		}
	})

	opts, err := b.Build()
	if err != nil {
		return nil, err
	}
	return client.Send(ctx, opts, to, *text, *sender, *viberSender)
}

func balanceCommand(ctx context.Context, fs *flag.FlagSet, args []string, client *gateway.Client, _ string) (json.RawMessage, error) {
	if err := fs.Parse(args); err != nil {
		return nil, errUsage
	}
	return client.Balance(ctx)
}

func uploadCommand(ctx context.Context, fs *flag.FlagSet, args []string, client *gateway.Client, _ string) (json.RawMessage, error) {
	file := fs.String("file", "", "base64 encoded content or a url")
	if err := fs.Parse(args); err != nil {
		return nil, errUsage
	}
	if *file == "" && fs.NArg() > 0 {
		*file = fs.Arg(0)
	}
	return client.UploadFile(ctx, *file)
}

func fileCommand(ctx context.Context, fs *flag.FlagSet, args []string, client *gateway.Client, _ string) (json.RawMessage, error) {
	id := fs.Int("id", 0, "file id returned by upload")
	if err := fs.Parse(args); err != nil {
		return nil, errUsage
	}
	return client.FileDetails(ctx, *id)
}

// recipientList collects -to values.
type recipientList []string

func (r *recipientList) String() string { return strings.Join(*r, ",") }

func (r *recipientList) Set(value string) error {
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*r = append(*r, part)
		}
	}
	return nil
}

func report(w io.Writer, err error) int {
	var gwErr *gateway.GatewayError
	switch {
	case errors.Is(err, errUsage):
		return 2
	case errors.As(err, &gwErr):
		fmt.Fprintf(w, "gateway rejected %s (code %d): %s\n", gwErr.Method, gwErr.Code, gwErr.Status)
	default:
		fmt.Fprintln(w, err)
	}
	return 1
}

func printJSON(w io.Writer, raw json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return fmt.Errorf("format result: %w", err)
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(w)
	return err
}
