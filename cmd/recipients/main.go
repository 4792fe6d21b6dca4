// Command recipients manages the topic-to-recipients directory.
package main

import (
	"context"
	"log/slog"
	"os"

	recipientStore "contactform/internal/adapters/storage/recipient"
	"contactform/internal/app"
	"contactform/internal/config"
	"contactform/internal/logging"
)

func main() {
	slog.SetDefault(logging.NewWithWriter(os.Stderr, "warn", "text"))

	open := func(ctx context.Context) (recipientStore.Store, func(), error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, nil, err
		}
		return app.OpenDirectory(ctx, cfg, nil)
	}

	cmd := newRootCmd(open)
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
