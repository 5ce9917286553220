// Package main implements ftagctl, a local client that keeps ftag display
// settings in an on-disk bolt database.
//
// Usage:
//
//	ftagctl [-db path] settings show
//	ftagctl [-db path] settings set-view hide|show|edit
//	ftagctl [-db path] settings set-excludes <comma separated tags>
//	ftagctl [-db path] settings reset
//	ftagctl [-db path] settings options
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/blubywaff/ftag/internal/constants"
	"github.com/blubywaff/ftag/internal/kvstore"
	"github.com/blubywaff/ftag/internal/models"
	"github.com/blubywaff/ftag/internal/service"
	"github.com/blubywaff/ftag/internal/settings"
)

var errUsage = errors.New("usage: ftagctl [-db path] [-v] settings show|set-view <hide|show|edit>|set-excludes <tags>|reset|options")

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		log.Fatal().Err(err).Msg("ftagctl failed")
	}
}

// run executes one ftagctl command and writes its JSON result to out.
func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("ftagctl", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	dbPath := fs.String("db", constants.DefaultBoltPath, "Path to the local storage database")
	verbose := fs.Bool("v", false, "Log storage operations")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	rest := fs.Args()
	if len(rest) < 2 || rest[0] != "settings" {
		return errUsage
	}

	if rest[1] == "options" {
		return printJSON(out, models.NewSettingsOptions())
	}

	b, err := kvstore.OpenBolt(*dbPath)
	if err != nil {
		return err
	}
	defer b.Close()

	// The local client is always a client execution context bound to one namespace
	svc := service.NewSettingsService(service.StorageProviderFunc(func(string) settings.Storage {
		return b.ForClient(constants.LocalNamespace)
	}))

	var view *models.SettingsView
	switch rest[1] {
	case "show":
		view, err = svc.GetSettings(ctx, constants.LocalNamespace)
	case "set-view":
		if len(rest) != 3 {
			return errUsage
		}
		mode := models.TagView(rest[2])
		view, err = svc.UpdateSettings(ctx, constants.LocalNamespace, &models.SettingsUpdate{DefaultTagView: &mode})
	case "set-excludes":
		excludes := ""
		if len(rest) == 3 {
			excludes = rest[2]
		} else if len(rest) > 3 {
			return errUsage
		}
		view, err = svc.UpdateSettings(ctx, constants.LocalNamespace, &models.SettingsUpdate{DefaultExcludes: &excludes})
	case "reset":
		view, err = svc.ResetSettings(ctx, constants.LocalNamespace)
	default:
		return errUsage
	}
	if err != nil {
		return err
	}

	return printJSON(out, view)
}

func printJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
