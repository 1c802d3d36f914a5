package observability

import (
	"context"
	"errors"
	"os"

	"translatorhub/internal/config"

	autosdk "go.opentelemetry.io/auto/sdk"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap/zapcore"
)

// Telemetry bundles the providers created for one process
type Telemetry struct {
	TracerProvider trace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Logger         *Logger
	Instruments    *Instruments
}

// SetupObservability initializes tracing, metrics, and logging for a service
func SetupObservability(cfg *config.OpenTelemetryConfig, serviceName string, level zapcore.Level) (*Telemetry, error) {
	otelCfg := *cfg
	if serviceName != "" {
		otelCfg.ServiceName = serviceName
	}

	if err := os.Setenv("OTEL_SERVICE_NAME", otelCfg.ServiceName); err != nil {
		return nil, err
	}
	if err := os.Setenv("OTEL_SERVICE_VERSION", otelCfg.ServiceVersion); err != nil {
		return nil, err
	}

	t := &Telemetry{Logger: NewLoggerWithLevel(&otelCfg, level)}
	ctx := context.Background()

	if otelCfg.EnableTracing {
		if otelCfg.UseAutoSDK {
			t.TracerProvider = autosdk.TracerProvider()
			t.Logger.Info(ctx, "Tracing enabled with Auto SDK", map[string]interface{}{"service_name": otelCfg.ServiceName})
		} else {
			tp, err := InitStandardTracing(&otelCfg)
			if err != nil {
				return nil, err
			}
			t.TracerProvider = tp
			t.Logger.Info(ctx, "Tracing enabled with standard SDK", map[string]interface{}{"service_name": otelCfg.ServiceName})
		}
		otel.SetTracerProvider(t.TracerProvider)
		InitPropagation()
		InitGlobalTracer()
	}

	if otelCfg.EnableMetrics {
		mp, err := InitMetrics(&otelCfg)
		if err != nil {
			return nil, err
		}
		otel.SetMeterProvider(mp)
		t.MeterProvider = mp
	}

	instruments, err := NewInstruments(nil)
	if err != nil {
		return nil, err
	}
	t.Instruments = instruments

	return t, nil
}

// Shutdown flushes and stops every provider that was started
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}
	var errs []error
	if sdkTP, ok := t.TracerProvider.(interface{ Shutdown(context.Context) error }); ok {
		errs = append(errs, sdkTP.Shutdown(ctx))
	}
	if t.MeterProvider != nil {
		errs = append(errs, t.MeterProvider.Shutdown(ctx))
	}
	if t.Logger != nil {
		errs = append(errs, t.Logger.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
