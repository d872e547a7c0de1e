// scanner Lambda runs one risk scan, typically on an EventBridge schedule.
package main

import (
	"context"
	"os"
	"sync"

	"log/slog"

	awslambda "github.com/aws/aws-lambda-go/lambda"

	intlambda "github.com/opsradar-systems/opsradar/internal/lambda"
	"github.com/opsradar-systems/opsradar/pkg/types"
)

var (
	deps     *intlambda.Deps
	depsOnce sync.Once
	depsErr  error
)

func getDeps() (*intlambda.Deps, error) {
	depsOnce.Do(func() {
		deps, depsErr = intlambda.Init(context.Background())
	})
	return deps, depsErr
}

// handleScan runs one scan and returns its result. Detector failures are
// carried inside the result; an error here means the feed was unusable.
func handleScan(ctx context.Context, d *intlambda.Deps) (types.ScanResult, error) {
	result, err := d.Engine.Run(ctx)
	if err != nil {
		d.Logger.Error("scan failed", "error", err)
		return types.ScanResult{}, err
	}

	d.Logger.Info("scan finished",
		"created", result.AlertsCreated,
		"duplicates", result.Duplicates,
		"dropped", result.Dropped,
		"errors", len(result.Errors),
	)
	return result, nil
}

func handler(ctx context.Context) (types.ScanResult, error) {
	d, err := getDeps()
	if err != nil {
		return types.ScanResult{}, err
	}
	return handleScan(ctx, d)
}

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
	awslambda.Start(handler)
}
