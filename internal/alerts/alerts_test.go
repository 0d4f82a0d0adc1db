package alerts

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	bookrt "github.com/hanpama/bookgraph/internal/bookrt"
	schema "github.com/hanpama/bookgraph/internal/schema"
)

func TestFieldTypes(t *testing.T) {
	sch, err := bookrt.NewSchema()
	require.NoError(t, err)

	want := []string{"Author", "Book", "Publisher", "[Author]", "[Book]", "[Publisher]"}
	if diff := cmp.Diff(want, FieldTypes(sch)); diff != "" {
		t.Errorf("FieldTypes mismatch (-want +got):\n%s", diff)
	}
}

func TestFieldTypesUnwrapsNonNull(t *testing.T) {
	sch, err := schema.BuildFromSDL(`
		type Query { shelves: [Shelf!]! }
		type Shelf { labels: [String!] grid: [[Shelf]] }
	`)
	require.NoError(t, err)

	assert.Equal(t, []string{"Shelf", "[Shelf]", "[String]"}, FieldTypes(sch))
}

func TestGenerate(t *testing.T) {
	sch, err := bookrt.NewSchema()
	require.NoError(t, err)

	n := 0
	p := Generate(sch, WithUIDs(func() string {
		n++
		return fmt.Sprintf("uid-%d", n)
	}))

	assert.Equal(t, 1, p.APIVersion)
	require.Len(t, p.Groups, 1)
	g := p.Groups[0]
	assert.Equal(t, "GraphQL Latency Alerts", g.Name)
	assert.Equal(t, "GraphQL", g.Folder)
	assert.Equal(t, "1m", g.Interval)
	require.Len(t, g.Rules, 6)

	r := g.Rules[3]
	assert.Equal(t, "uid-4", r.UID)
	assert.Equal(t, "p95 [Author] Query above 1s", r.Title)
	assert.Equal(t, "C", r.Condition)
	assert.Equal(t, "grafana-default-email", r.NotificationSettings.Receiver)
	require.Len(t, r.Data, 2)
	model, ok := r.Data[0].Model.(promModel)
	require.True(t, ok)
	assert.Equal(t,
		`histogram_quantile(0.95, sum(rate(traces_spanmetrics_latency_bucket{graphql_field_type="[Author]"}[1m])) by (le))`,
		model.Expr)
}

func TestGenerateDefaultUID(t *testing.T) {
	sch, err := bookrt.NewSchema()
	require.NoError(t, err)

	p := Generate(sch, WithThreshold(0.5), WithReceiver("oncall"))
	seen := map[string]bool{}
	for _, r := range p.Groups[0].Rules {
		assert.Len(t, r.UID, 14)
		assert.False(t, seen[r.UID], "duplicate uid %s", r.UID)
		seen[r.UID] = true
		assert.Contains(t, r.Title, "above 0.5s")
		assert.Equal(t, "oncall", r.NotificationSettings.Receiver)
	}
}

func TestWrite(t *testing.T) {
	sch, err := bookrt.NewSchema()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Generate(sch, WithUIDs(func() string { return "fixed" }))))

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, 1, doc["apiVersion"])

	groups := doc["groups"].([]any)
	rules := groups[0].(map[string]any)["rules"].([]any)
	first := rules[0].(map[string]any)
	assert.Equal(t, "p95 Author Query above 1s", first["title"])
	assert.Equal(t, map[string]any{}, first["annotations"])

	data := first["data"].([]any)
	threshold := data[1].(map[string]any)["model"].(map[string]any)
	assert.Equal(t, "threshold", threshold["type"])
	cond := threshold["conditions"].([]any)[0].(map[string]any)
	assert.Equal(t, []any{1}, cond["evaluator"].(map[string]any)["params"])
}
