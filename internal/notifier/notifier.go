package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	conf "github.com/nba-highlights/frame-splitter/internal/config"
)

type EventBridgeClient interface {
	PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error)
}

// completionEvent is the detail payload of the completion event.
type completionEvent struct {
	JobID     string `json:"job-id"`
	NumFrames int    `json:"num-frames"`
}

// Notifier emits one completion event per finished job run. Delivery is
// best-effort: callers log a failed Notify and move on.
type Notifier struct {
	client     EventBridgeClient
	bus        string
	source     string
	detailType string
}

func New(s3cfg *conf.S3Config, cfg *conf.EventsConfig) (*Notifier, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(s3cfg.Region),
	}
	if s3cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s3cfg.AccessKeyID, s3cfg.SecretKey, "",
		)))
	}

	awsCfg, err := config.LoadDefaultConfig(context.TODO(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewWithClient(eventbridge.NewFromConfig(awsCfg), cfg), nil
}

func NewWithClient(client EventBridgeClient, cfg *conf.EventsConfig) *Notifier {
	return &Notifier{
		client:     client,
		bus:        cfg.BusName,
		source:     cfg.Source,
		detailType: cfg.DetailType,
	}
}

// Notify emits the completion event for one job.
func (n *Notifier) Notify(ctx context.Context, jobKey string, frameCount int) error {
	detail, err := json.Marshal(completionEvent{JobID: jobKey, NumFrames: frameCount})
	if err != nil {
		return fmt.Errorf("marshal completion event: %w", err)
	}

	input := eventbridge.PutEventsInput{
		Entries: []types.PutEventsRequestEntry{{
			Detail:     aws.String(string(detail)),
			DetailType: aws.String(n.detailType),
			Source:     aws.String(n.source),
		}},
	}
	if n.bus != "" {
		input.Entries[0].EventBusName = aws.String(n.bus)
	}

	out, err := n.client.PutEvents(ctx, &input)
	if err != nil {
		return fmt.Errorf("put completion event for %q: %w", jobKey, err)
	}
	if out.FailedEntryCount > 0 {
		return fmt.Errorf("completion event for %q not accepted by the bus", jobKey)
	}

	return nil
}
