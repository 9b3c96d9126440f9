package observability

import (
	"context"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"outagewatch/internal/types"
)

// CloudWatch metric and dimension names.
const (
	MetricTrainingRun      = "TrainingRun"
	MetricTrainingDuration = "TrainingDuration"
	MetricPrediction       = "Prediction"
	MetricAlertDelivery    = "AlertDelivery"
	MetricWeatherFetch     = "WeatherFetch"

	DimOutcome = "Outcome"
	DimTier    = "Tier"
	DimChannel = "Channel"
	DimResult  = "Result"
)

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchRecorder emits domain events as CloudWatch metrics. Emission
// failures are logged and never surface to callers.
type CloudWatchRecorder struct {
	client    CloudWatchClient
	namespace string
	logger    *slog.Logger
}

var _ Recorder = (*CloudWatchRecorder)(nil)

// NewCloudWatchRecorder creates a recorder publishing to namespace.
func NewCloudWatchRecorder(client CloudWatchClient, namespace string, logger *slog.Logger) *CloudWatchRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &CloudWatchRecorder{client: client, namespace: namespace, logger: logger}
}

// TrainingRun emits a count with the Outcome dimension, plus the duration in
// milliseconds for successful runs.
func (r *CloudWatchRecorder) TrainingRun(ctx context.Context, outcome string, d time.Duration) {
	data := []cwtypes.MetricDatum{
		countDatum(MetricTrainingRun, dim(DimOutcome, outcome)),
	}
	if outcome == OutcomeSuccess {
		data = append(data, cwtypes.MetricDatum{
			MetricName: aws.String(MetricTrainingDuration),
			Value:      aws.Float64(float64(d.Milliseconds())),
			Unit:       cwtypes.StandardUnitMilliseconds,
		})
	}
	r.put(ctx, data, "metric", MetricTrainingRun, "outcome", outcome)
}

func (r *CloudWatchRecorder) Prediction(ctx context.Context, tier types.RiskTier) {
	r.put(ctx, []cwtypes.MetricDatum{
		countDatum(MetricPrediction, dim(DimTier, string(tier))),
	}, "metric", MetricPrediction, "tier", string(tier))
}

func (r *CloudWatchRecorder) AlertDelivery(ctx context.Context, channel types.AlertChannel, sent bool) {
	result := resultLabel(sent)
	r.put(ctx, []cwtypes.MetricDatum{
		countDatum(MetricAlertDelivery, dim(DimChannel, string(channel)), dim(DimResult, result)),
	}, "metric", MetricAlertDelivery, "channel", string(channel), "result", result)
}

func (r *CloudWatchRecorder) WeatherFetch(ctx context.Context, ok bool) {
	result := resultLabel(ok)
	r.put(ctx, []cwtypes.MetricDatum{
		countDatum(MetricWeatherFetch, dim(DimResult, result)),
	}, "metric", MetricWeatherFetch, "result", result)
}

func (r *CloudWatchRecorder) put(ctx context.Context, data []cwtypes.MetricDatum, logAttrs ...any) {
	_, err := r.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(r.namespace),
		MetricData: data,
	})
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to put cloudwatch metric", append(logAttrs, "error", err)...)
	}
}

func countDatum(name string, dims ...cwtypes.Dimension) cwtypes.MetricDatum {
	return cwtypes.MetricDatum{
		MetricName: aws.String(name),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: dims,
	}
}

func dim(name, value string) cwtypes.Dimension {
	return cwtypes.Dimension{Name: aws.String(name), Value: aws.String(value)}
}
