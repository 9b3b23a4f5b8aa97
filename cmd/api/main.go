package main

// @title           Book Rental Backend API
// @version         1.0
// @description     Book rentals, subscriptions and ebook delivery.
// @termsOfService  http://example.com/terms/

// @contact.name   API Support
// @contact.url    http://www.example.com/support
// @contact.email  support@example.com

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8888
// @BasePath  /

import (
	"context"
	"os"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/bookrental/internal/app"
)

func main() {
	os.Exit(run())
}

// run boots the fx graph and blocks until SIGINT/SIGTERM.
func run() int {
	// The app logger lives inside the graph; boot failures may happen before it exists.
	bootLog := zap.NewExample().Sugar()

	a := fx.New(app.Module)
	startCtx, cancel := context.WithTimeout(context.Background(), app.DefaultStartTimeout)
	defer cancel()
	if err := a.Start(startCtx); err != nil {
		bootLog.Errorw("failed to start bookrental", "error", err)
		return 1
	}

	sig := <-a.Wait()
	bootLog.Infow("shutting down bookrental", "signal", sig.Signal)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), app.DefaultStopTimeout)
	defer stopCancel()
	if err := a.Stop(stopCtx); err != nil {
		bootLog.Errorw("failed to stop bookrental", "error", err)
		return 1
	}
	return sig.ExitCode
}
