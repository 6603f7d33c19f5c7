package notes_bot

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-telegram/bot"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const pollTimeout = time.Minute

// Run connects to the bot API with the given token and handles updates with
// long polling until ctx is done.
func Run(ctx context.Context, token string, launcher *Launcher) error {
	if token == "" {
		return fmt.Errorf("bot token not set")
	}

	// client timeout has to outlive a single long poll
	tracedHttpClient := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		Timeout:   pollTimeout + 10*time.Second,
	}

	b, err := bot.New(
		token,
		bot.WithHTTPClient(pollTimeout, tracedHttpClient),
		bot.WithDefaultHandler(launcher.handleUpdate),
		bot.WithErrorsHandler(func(err error) {
			log.Errorf("bot transport: %s", err)
		}),
	)
	if err != nil {
		return fmt.Errorf("new bot: %w", err)
	}

	me, err := b.GetMe(ctx)
	if err != nil {
		log.Warnf("get bot info: %s", err)
	} else {
		launcher.SetBotUsername(me.Username)
		log.Infof("bot [@%s] started", me.Username)
	}

	// blocks until ctx is done
	b.Start(ctx)
	log.Infoln("bot stopped")

	return nil
}
