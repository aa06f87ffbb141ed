// Command inkctl is the development companion of the room server: it
// mints session tokens and replays room logs into images.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/inkroom/inkroom/internal/auth"
	"github.com/inkroom/inkroom/internal/config"
	"github.com/inkroom/inkroom/internal/eventlog"
	"github.com/inkroom/inkroom/internal/export"
	"github.com/inkroom/inkroom/internal/render"
	"github.com/inkroom/inkroom/internal/typeid"
)

const usage = `usage: inkctl <command> [flags]

commands:
  token    mint a development session token
  room     print a fresh room id
  render   replay a room's event log into a PNG`

var errUsage = errors.New(usage)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	switch args[0] {
	case "token":
		return runToken(cfg, args[1:], stdout)
	case "room":
		fmt.Fprintln(stdout, typeid.NewRoomID())
		return nil
	case "render":
		return runRender(ctx, cfg, args[1:], stdout)
	}
	return fmt.Errorf("unknown command %q\n%w", args[0], errUsage)
}

func runToken(cfg *config.Config, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	secret := fs.String("secret", cfg.JWTSecret, "HMAC secret (JWT_SECRET)")
	user := fs.String("user", "", "user id; a new one is generated when empty")
	name := fs.String("name", "", "display name")
	ttl := fs.Duration("ttl", auth.DefaultTTL, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}

	id := auth.Identity{UserID: *user, Name: *name}
	if id.UserID == "" {
		id.UserID = typeid.NewUserID()
	}
	tok, err := auth.NewService(*secret).IssueToken(id, *ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, tok)
	return nil
}

func runRender(ctx context.Context, cfg *config.Config, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	dbURL := fs.String("db", cfg.DatabaseURL, "event log URL (DATABASE_URL)")
	room := fs.String("room", "", "room id")
	out := fs.String("out", "", "output PNG path; stdout when empty")
	width := fs.Int("width", 1280, "image width")
	height := fs.Int("height", 720, "image height")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *room == "" {
		return errors.New("render: -room is required")
	}

	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	events, err := eventlog.Open(ctx, *dbURL)
	if err != nil {
		return fmt.Errorf("open event log: %w", err)
	}
	defer events.Close()

	shapes, skipped, err := eventlog.Snapshot(ctx, events, *room)
	if err != nil {
		return err
	}
	if skipped > 0 {
		slog.Warn("undecodable events skipped", "room", *room, "count", skipped)
	}

	w := stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}

	opts := export.Options{Width: *width, Height: *height}
	if fonts, err := render.LoadFonts(); err != nil {
		slog.Warn("load fonts", "error", err)
	} else {
		defer fonts.Close()
		opts.Fonts = fonts
	}
	if err := export.PNG(w, shapes, opts); err != nil {
		return err
	}
	slog.Info("rendered room", "room", *room, "shapes", len(shapes), "out", *out)
	return nil
}
