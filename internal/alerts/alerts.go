// Package alerts generates Grafana alert provisioning rules that fire when
// the p95 latency of resolvers returning a given GraphQL type exceeds one
// second. The rules query span metrics labelled with graphql_field_type,
// which is derived from the graphql.field.type attribute of resolver spans.
package alerts

import (
	"fmt"
	"io"
	"slices"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	schema "github.com/hanpama/bookgraph/internal/schema"
)

// Provisioning is the root of a Grafana alerting provisioning file.
type Provisioning struct {
	APIVersion int     `yaml:"apiVersion"`
	Groups     []Group `yaml:"groups"`
}

type Group struct {
	OrgID    int    `yaml:"orgId"`
	Name     string `yaml:"name"`
	Folder   string `yaml:"folder"`
	Interval string `yaml:"interval"`
	Rules    []Rule `yaml:"rules"`
}

type Rule struct {
	UID                  string               `yaml:"uid"`
	Title                string               `yaml:"title"`
	Condition            string               `yaml:"condition"`
	Data                 []Query              `yaml:"data"`
	NoDataState          string               `yaml:"noDataState"`
	ExecErrState         string               `yaml:"execErrState"`
	For                  string               `yaml:"for"`
	Annotations          map[string]string    `yaml:"annotations"`
	Labels               map[string]string    `yaml:"labels"`
	IsPaused             bool                 `yaml:"isPaused"`
	NotificationSettings NotificationSettings `yaml:"notification_settings"`
}

type NotificationSettings struct {
	Receiver string `yaml:"receiver"`
}

type Query struct {
	RefID             string             `yaml:"refId"`
	RelativeTimeRange *RelativeTimeRange `yaml:"relativeTimeRange,omitempty"`
	DatasourceUID     string             `yaml:"datasourceUid"`
	Model             any                `yaml:"model"`
}

type RelativeTimeRange struct {
	From int `yaml:"from"`
	To   int `yaml:"to"`
}

type promModel struct {
	EditorMode    string `yaml:"editorMode"`
	Expr          string `yaml:"expr"`
	Instant       bool   `yaml:"instant"`
	IntervalMs    int    `yaml:"intervalMs"`
	LegendFormat  string `yaml:"legendFormat"`
	MaxDataPoints int    `yaml:"maxDataPoints"`
	Range         bool   `yaml:"range"`
	RefID         string `yaml:"refId"`
}

type thresholdModel struct {
	Conditions    []condition       `yaml:"conditions"`
	Datasource    map[string]string `yaml:"datasource"`
	Expression    string            `yaml:"expression"`
	IntervalMs    int               `yaml:"intervalMs"`
	MaxDataPoints int               `yaml:"maxDataPoints"`
	RefID         string            `yaml:"refId"`
	Type          string            `yaml:"type"`
}

type condition struct {
	Evaluator evaluator         `yaml:"evaluator"`
	Operator  map[string]string `yaml:"operator"`
	Query     params            `yaml:"query"`
	Reducer   reducer           `yaml:"reducer"`
	Type      string            `yaml:"type"`
}

type evaluator struct {
	Params []float64 `yaml:"params"`
	Type   string    `yaml:"type"`
}

type params struct {
	Params []string `yaml:"params"`
}

type reducer struct {
	Params []string `yaml:"params"`
	Type   string   `yaml:"type"`
}

type Options struct {
	// Receiver is the Grafana contact point notified by every rule.
	Receiver string
	// Threshold is the p95 latency in seconds above which a rule fires.
	Threshold float64
	// NewUID generates rule identifiers.
	NewUID func() string
}

type Option func(*Options)

func WithReceiver(name string) Option      { return func(o *Options) { o.Receiver = name } }
func WithThreshold(seconds float64) Option { return func(o *Options) { o.Threshold = seconds } }
func WithUIDs(f func() string) Option      { return func(o *Options) { o.NewUID = f } }

// FieldTypes lists the types whose resolver latency is alerted on: every
// object type except the root types, and every list of a named type used as
// a field type. The result is sorted.
func FieldTypes(sch *schema.Schema) []string {
	seen := map[string]struct{}{}
	for name, t := range sch.Types {
		if t.Kind != schema.TypeKindObject || sch.IsRootType(name) || isMeta(name) {
			continue
		}
		seen[name] = struct{}{}
	}
	for name, t := range sch.Types {
		if isMeta(name) {
			continue
		}
		for _, f := range t.Fields {
			if elem, ok := f.Type.ListOf(); ok {
				seen["["+elem+"]"] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// Generate builds one rule per entry of FieldTypes.
func Generate(sch *schema.Schema, opts ...Option) Provisioning {
	o := Options{Receiver: "grafana-default-email", Threshold: 1, NewUID: shortUID}
	for _, f := range opts {
		f(&o)
	}
	types := FieldTypes(sch)
	rules := make([]Rule, len(types))
	for i, typ := range types {
		rules[i] = rule(typ, o)
	}
	return Provisioning{
		APIVersion: 1,
		Groups: []Group{{
			OrgID:    1,
			Name:     "GraphQL Latency Alerts",
			Folder:   "GraphQL",
			Interval: "1m",
			Rules:    rules,
		}},
	}
}

// Write encodes p as YAML.
func Write(w io.Writer, p Provisioning) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("encode alerts: %w", err)
	}
	return enc.Close()
}

func rule(typ string, o Options) Rule {
	expr := fmt.Sprintf(`histogram_quantile(0.95, sum(rate(traces_spanmetrics_latency_bucket{graphql_field_type="%s"}[1m])) by (le))`, typ)
	return Rule{
		UID:       o.NewUID(),
		Title:     fmt.Sprintf("p95 %s Query above %gs", typ, o.Threshold),
		Condition: "C",
		Data: []Query{
			{
				RefID:             "A",
				RelativeTimeRange: &RelativeTimeRange{From: 600, To: 0},
				DatasourceUID:     "prometheus",
				Model: promModel{
					EditorMode:    "code",
					Expr:          expr,
					Instant:       true,
					IntervalMs:    1000,
					LegendFormat:  "__auto",
					MaxDataPoints: 43200,
					RefID:         "A",
				},
			},
			{
				RefID:         "C",
				DatasourceUID: "__expr__",
				Model: thresholdModel{
					Conditions: []condition{{
						Evaluator: evaluator{Params: []float64{o.Threshold}, Type: "gt"},
						Operator:  map[string]string{"type": "and"},
						Query:     params{Params: []string{"C"}},
						Reducer:   reducer{Params: []string{}, Type: "last"},
						Type:      "query",
					}},
					Datasource:    map[string]string{"type": "__expr__", "uid": "__expr__"},
					Expression:    "A",
					IntervalMs:    1000,
					MaxDataPoints: 43200,
					RefID:         "C",
					Type:          "threshold",
				},
			},
		},
		NoDataState:          "NoData",
		ExecErrState:         "Error",
		For:                  "1m",
		Annotations:          map[string]string{},
		Labels:               map[string]string{},
		NotificationSettings: NotificationSettings{Receiver: o.Receiver},
	}
}

func shortUID() string { return uuid.NewString()[:14] }

func isMeta(name string) bool { return len(name) > 1 && name[:2] == "__" }
