package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"translatorhub/internal/config"
	"translatorhub/internal/models"
	"translatorhub/internal/observability"
	contextutils "translatorhub/internal/utils"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// lambdaInvoker is the part of *lambda.Client the hub uses
type lambdaInvoker interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// LambdaClient invokes one AWS Lambda function per operation with the same JSON
// contract as the HTTP backend
type LambdaClient struct {
	cfg    config.LambdaConfig
	client lambdaInvoker
	logger *observability.Logger
}

// NewLambdaClient loads the default AWS configuration and creates a Lambda-backed client
func NewLambdaClient(ctx context.Context, cfg config.BackendConfig, logger *observability.Logger) (*LambdaClient, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Lambda.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Lambda.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrConfigInvalid, "failed to load AWS config: %w", err)
	}

	return newLambdaClient(cfg.Lambda, lambda.NewFromConfig(awsCfg), logger), nil
}

func newLambdaClient(cfg config.LambdaConfig, invoker lambdaInvoker, logger *observability.Logger) *LambdaClient {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &LambdaClient{cfg: cfg, client: invoker, logger: logger}
}

// Translate invokes the translate function
func (c *LambdaClient) Translate(ctx context.Context, req TextRequest) (result Result, err error) {
	ctx, span := observability.TraceBackendFunction(ctx, "translate",
		observability.AttributeTransport(config.TransportLambda),
		observability.AttributeSourceLanguage(req.SourceLang.String()),
		observability.AttributeTargetLanguage(req.Target.String()),
		observability.AttributeTextLength(len(req.Text)),
	)
	defer observability.FinishSpan(span, &err)

	output, err := c.invoke(ctx, span, c.cfg.TranslateFunction, req)
	if err != nil {
		return Result{}, err
	}
	return Result{Output: output}, nil
}

// ExtractText invokes the OCR function
func (c *LambdaClient) ExtractText(ctx context.Context, req ImageRequest) (result Result, err error) {
	ctx, span := observability.TraceBackendFunction(ctx, "extract_text",
		observability.AttributeTransport(config.TransportLambda),
		observability.AttributePayloadBytes(int64(len(req.Base64Image))),
	)
	defer observability.FinishSpan(span, &err)

	output, err := c.invoke(ctx, span, c.cfg.ExtractTextFunction, req)
	if err != nil {
		return Result{}, err
	}
	return Result{Output: output}, nil
}

// TranscribeTranslate invokes the transcription function
func (c *LambdaClient) TranscribeTranslate(ctx context.Context, req AudioRequest) (result Result, err error) {
	ctx, span := observability.TraceBackendFunction(ctx, "transcribe_translate",
		observability.AttributeTransport(config.TransportLambda),
		observability.AttributeSourceLanguage(req.SourceLang.String()),
		observability.AttributeTargetLanguage(req.Target.String()),
		observability.AttributePayloadBytes(int64(len(req.Base64Audio))),
	)
	defer observability.FinishSpan(span, &err)

	output, err := c.invoke(ctx, span, c.cfg.TranscribeFunction, req)
	if err != nil {
		return Result{}, err
	}
	return Result{Output: output}, nil
}

// proxyResponse is the API Gateway proxy shape some functions return
type proxyResponse struct {
	StatusCode *int    `json:"statusCode"`
	Body       *string `json:"body"`
}

func (c *LambdaClient) invoke(ctx context.Context, span trace.Span, functionName string, payload interface{}) (string, error) {
	if functionName == "" {
		return "", models.NewRequestSetupError("no Lambda function configured", nil)
	}
	span.SetAttributes(attribute.String("faas.invoked_name", functionName))

	body, err := json.Marshal(payload)
	if err != nil {
		return "", models.NewRequestSetupError("failed to encode request", err)
	}

	out, err := c.client.Invoke(ctx, &lambda.InvokeInput{
		FunctionName: aws.String(functionName),
		Payload:      body,
	})
	if err != nil {
		c.logger.Warn(ctx, "Lambda invoke failed", map[string]interface{}{
			"function": functionName,
			"error":    err.Error(),
		})
		var respErr *awshttp.ResponseError
		if errors.As(err, &respErr) {
			return "", models.NewServerError(respErr.HTTPStatusCode(), err)
		}
		return "", models.NewNoResponseError(err)
	}

	if out.FunctionError != nil {
		c.logger.Warn(ctx, "Lambda function returned an error", map[string]interface{}{
			"function":       functionName,
			"function_error": *out.FunctionError,
		})
		return "", models.NewServerError(http.StatusBadGateway, fmt.Errorf("lambda error: %s", *out.FunctionError))
	}
	if out.StatusCode < 200 || out.StatusCode > 299 {
		return "", models.NewServerError(int(out.StatusCode), fmt.Errorf("lambda invoke returned status %d", out.StatusCode))
	}

	respBody := out.Payload
	var proxy proxyResponse
	if err := json.Unmarshal(respBody, &proxy); err == nil && proxy.StatusCode != nil && proxy.Body != nil {
		if *proxy.StatusCode < 200 || *proxy.StatusCode > 299 {
			return "", models.NewServerError(*proxy.StatusCode, fmt.Errorf("function responded with status %d", *proxy.StatusCode))
		}
		respBody = []byte(*proxy.Body)
	}

	return decodeOutput(respBody)
}
