package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/i474232898/weather-event-streamer/internal/app"
	"github.com/i474232898/weather-event-streamer/internal/config"
	"github.com/i474232898/weather-event-streamer/internal/logging"
	"github.com/i474232898/weather-event-streamer/internal/weather"
)

var service *weather.Service

// runID tags the run with the Lambda request ID when there is one.
func runID(ctx context.Context) string {
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		return lc.AwsRequestID
	}
	return uuid.NewString()
}

// handler runs one pipeline invocation per scheduled event.
func handler(ctx context.Context) (weather.RunRecord, error) {
	return service.RunWithID(ctx, runID(ctx))
}

func init() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	l, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stdout)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}

	service, _, err = app.NewService(cfg, logging.WithService(l, app.ServiceName))
	if err != nil {
		log.Fatalf("failed to build pipeline: %v", err)
	}
}

func main() {
	lambda.Start(handler)
}
