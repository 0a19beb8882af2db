package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/mocktracer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber/jaeger-client-go"

	"github.com/therealutkarshpriyadarshi/autotag/internal/config"
)

func TestInit_Disabled(t *testing.T) {
	closer, err := Init(config.TracingConfig{Enabled: false})
	require.NoError(t, err)
	assert.NoError(t, closer.Close())
}

func TestSpans(t *testing.T) {
	tracer := mocktracer.New()
	previous := opentracing.GlobalTracer()
	opentracing.SetGlobalTracer(tracer)
	t.Cleanup(func() { opentracing.SetGlobalTracer(previous) })

	span, ctx := StartSpan(context.Background(), "process_video")
	SetTag(span, "video", "drive.mp4")

	child, _ := StartSpan(ctx, "detect")
	FinishSpan(child, errors.New("darknet exited"))
	FinishSpan(span, nil)

	finished := tracer.FinishedSpans()
	require.Len(t, finished, 2)

	assert.Equal(t, "detect", finished[0].OperationName)
	assert.Equal(t, true, finished[0].Tag("error"))
	assert.Equal(t, finished[1].SpanContext.SpanID, finished[0].ParentID)

	assert.Equal(t, "process_video", finished[1].OperationName)
	assert.Equal(t, "drive.mp4", finished[1].Tag("video"))
	assert.Nil(t, finished[1].Tag("error"))
}

func TestNilSpanHelpers(t *testing.T) {
	assert.NotPanics(t, func() {
		FinishSpan(nil, errors.New("x"))
		LogError(nil, errors.New("x"))
		SetTag(nil, "k", "v")
	})
}

func TestSamplerConfig(t *testing.T) {
	tests := []struct {
		name      string
		rate      float64
		wantType  string
		wantParam float64
	}{
		{name: "unset keeps all", rate: 0, wantType: jaeger.SamplerTypeConst, wantParam: 1},
		{name: "full", rate: 1, wantType: jaeger.SamplerTypeConst, wantParam: 1},
		{name: "above one", rate: 2.5, wantType: jaeger.SamplerTypeConst, wantParam: 1},
		{name: "fraction", rate: 0.25, wantType: jaeger.SamplerTypeProbabilistic, wantParam: 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := samplerConfig(tt.rate)
			assert.Equal(t, tt.wantType, got.Type)
			assert.Equal(t, tt.wantParam, got.Param)
		})
	}
}
