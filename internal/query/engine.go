package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/ashureev/datachat/internal/config"
	"github.com/ashureev/datachat/internal/domain"
	"github.com/ashureev/datachat/internal/shared"
)

// Engine answers questions about datasets.
type Engine struct {
	reasoner    Reasoner
	charts      *ChartRenderer
	model       string
	temperature float64
	timeout     time.Duration
}

// NewEngine creates an engine using reasoner for interpretation and charts
// for image output.
func NewEngine(reasoner Reasoner, charts *ChartRenderer, cfg config.ReasoningConfig) *Engine {
	return &Engine{
		reasoner:    reasoner,
		charts:      charts,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
	}
}

// Answer interprets question against ds. Every failure is returned as an
// error wrapping shared.ErrQuery.
func (e *Engine) Answer(ctx context.Context, ds *domain.Dataset, question string) (resp domain.Response, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Panic while answering question", "panic", r)
			resp, err = domain.Response{}, fmt.Errorf("%w: internal failure: %v", shared.ErrQuery, r)
		}
	}()

	if ds == nil {
		ds = domain.NewDataset(nil, nil)
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	messages, err := BuildPrompt(ds, question)
	if err != nil {
		return domain.Response{}, fmt.Errorf("%w: build prompt: %w", shared.ErrQuery, err)
	}

	reply, err := e.reasoner.Complete(ctx, messages,
		WithModel(e.model),
		WithTemperature(e.temperature),
		WithJSON(),
	)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return domain.Response{}, fmt.Errorf("%w: reasoning service timed out after %s: %w", shared.ErrQuery, e.timeout, err)
		}
		return domain.Response{}, fmt.Errorf("%w: reasoning service: %w", shared.ErrQuery, err)
	}

	plan, err := ParsePlan(reply)
	if err != nil {
		slog.Debug("Reply is not a plan, classifying by shape", "provider", e.reasoner.Name(), "error", err)
		resp, err = e.classifyReply(reply)
	} else {
		resp, err = e.execute(ctx, ds, plan)
	}
	if err != nil {
		return domain.Response{}, fmt.Errorf("%w: %w", shared.ErrQuery, err)
	}

	slog.Info("Answered question",
		"provider", e.reasoner.Name(),
		"plan", plan.Type,
		"kind", resp.Kind,
		"rows", ds.Len(),
		"duration", time.Since(start),
	)
	return resp, nil
}

func (e *Engine) execute(ctx context.Context, ds *domain.Dataset, plan Plan) (domain.Response, error) {
	if plan.Type == PlanText {
		return domain.TextResponse(plan.Answer), nil
	}

	result, err := e.run(ctx, ds, plan.SQL)
	if err != nil {
		return domain.Response{}, err
	}

	switch plan.Type {
	case PlanScalar:
		if result.Len() == 1 && len(result.Columns()) == 1 {
			return domain.TextResponse(FormatScalar(result.Values(0)[0])), nil
		}
		return domain.TableResponse(result), nil
	case PlanChart:
		path, err := e.charts.Render(*plan.Chart, result)
		if err != nil {
			return domain.Response{}, err
		}
		return domain.ImageResponse(path), nil
	default:
		return domain.TableResponse(result), nil
	}
}

func (e *Engine) run(ctx context.Context, ds *domain.Dataset, query string) (*domain.Dataset, error) {
	frame, err := LoadFrame(ctx, ds)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := frame.Close(); closeErr != nil {
			slog.Warn("Failed to close dataset frame", "error", closeErr)
		}
	}()

	return frame.Query(ctx, query)
}

// classifyReply handles replies that carry no plan. Images are copied into
// the chart directory so the browser can load them.
func (e *Engine) classifyReply(reply string) (domain.Response, error) {
	resp := Classify(reply)
	if resp.Kind != domain.ResponseImage {
		return resp, nil
	}
	path, err := e.charts.Adopt(resp.ImagePath)
	if err != nil {
		return domain.Response{}, err
	}
	return domain.ImageResponse(path), nil
}

// FormatScalar renders a single query value as answer text.
func FormatScalar(v any) string {
	switch t := v.(type) {
	case nil:
		return "no value"
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(t, 10)
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}
