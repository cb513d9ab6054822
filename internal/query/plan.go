package query

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// PlanType tags how the reply should be turned into a response.
type PlanType string

// Plan types produced by the reasoning service.
const (
	PlanText   PlanType = "text"
	PlanScalar PlanType = "scalar"
	PlanTable  PlanType = "table"
	PlanChart  PlanType = "chart"
)

// Chart kinds.
const (
	ChartBar  = "bar"
	ChartLine = "line"
	ChartPie  = "pie"
)

// ChartSpec describes the chart to draw from a derived table.
type ChartSpec struct {
	Kind  string `json:"kind"`
	X     string `json:"x"`
	Y     string `json:"y"`
	Title string `json:"title"`
}

// Plan is the tagged reply of the reasoning service.
type Plan struct {
	Type   PlanType   `json:"type"`
	Answer string     `json:"answer,omitempty"`
	SQL    string     `json:"sql,omitempty"`
	Chart  *ChartSpec `json:"chart,omitempty"`
}

var errNoPlan = errors.New("reply is not a plan")

// ParsePlan extracts a plan from a model reply. Markdown code fences and
// text around the JSON object are tolerated.
func ParsePlan(reply string) (Plan, error) {
	body := strings.TrimSpace(reply)
	start := strings.Index(body, "{")
	end := strings.LastIndex(body, "}")
	if start < 0 || end <= start {
		return Plan{}, errNoPlan
	}

	var p Plan
	if err := json.Unmarshal([]byte(body[start:end+1]), &p); err != nil {
		return Plan{}, fmt.Errorf("%w: %w", errNoPlan, err)
	}
	p.Type = PlanType(strings.ToLower(strings.TrimSpace(string(p.Type))))

	if err := p.validate(); err != nil {
		return Plan{}, err
	}
	return p, nil
}

func (p Plan) validate() error {
	switch p.Type {
	case PlanText:
		return nil
	case PlanScalar, PlanTable:
		if strings.TrimSpace(p.SQL) == "" {
			return fmt.Errorf("%w: %s plan without sql", errNoPlan, p.Type)
		}
		return nil
	case PlanChart:
		if strings.TrimSpace(p.SQL) == "" {
			return fmt.Errorf("%w: chart plan without sql", errNoPlan)
		}
		if p.Chart == nil {
			return fmt.Errorf("%w: chart plan without chart", errNoPlan)
		}
		switch strings.ToLower(p.Chart.Kind) {
		case ChartBar, ChartLine, ChartPie, "":
			return nil
		default:
			return fmt.Errorf("%w: unsupported chart kind %q", errNoPlan, p.Chart.Kind)
		}
	case "":
		return fmt.Errorf("%w: missing type", errNoPlan)
	default:
		return fmt.Errorf("%w: unknown type %q", errNoPlan, p.Type)
	}
}
