package memory

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"text/template"

	"github.com/m-mizutani/aistaff/pkg/model"
	"github.com/m-mizutani/aistaff/pkg/utils/logging"
)

const notSpecified = "Not specified"

//go:embed prompt/profile.md
var profilePromptRaw string

var profilePromptTmpl = template.Must(template.New("profile").Parse(profilePromptRaw))

// BuildProfile renders the brand identity document of a business. It never
// fails: missing fields become "Not specified" and loosely typed fields that
// cannot be decoded are treated as absent.
func BuildProfile(ctx context.Context, business *model.Business) string {
	if business == nil {
		business = &model.Business{}
	}

	brandTone := business.BrandTone
	if brandTone == "" {
		brandTone = model.DefaultBrandTone
	}

	colors := decodeStringMap(ctx, "brand_colors", business.BrandColors)
	social := decodeStringMap(ctx, "social_links", business.SocialLinks)
	goals := decodeStringList(ctx, "goals", business.Goals)

	var buf bytes.Buffer
	if err := profilePromptTmpl.Execute(&buf, map[string]any{
		"Name":           orNotSpecified(business.Name),
		"Industry":       orNotSpecified(business.Industry),
		"Description":    orNotSpecified(business.Description),
		"TargetAudience": orNotSpecified(business.TargetAudience),
		"BrandTone":      brandTone,
		"BrandColors":    orNotSpecified(pairLines(colors)),
		"SocialLinks":    orNotSpecified(pairLines(social)),
		"Goals":          orNotSpecified(bulletLines(goals)),
	}); err != nil {
		logging.From(ctx).Error("failed to render business profile", "error", err)
		return ""
	}

	return strings.TrimSpace(buf.String())
}

func orNotSpecified(s string) string {
	if strings.TrimSpace(s) == "" {
		return notSpecified
	}
	return s
}

type pair struct {
	key   string
	value string
}

func pairLines(pairs []pair) string {
	lines := make([]string, 0, len(pairs))
	for _, p := range pairs {
		lines = append(lines, "- "+p.key+": "+p.value)
	}
	return strings.Join(lines, "\n")
}

func bulletLines(items []string) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, "- "+item)
	}
	return strings.Join(lines, "\n")
}

// decodeJSONText returns the decoded value when v is JSON text, or v itself
func decodeJSONText(ctx context.Context, field string, v any) (any, bool) {
	var raw []byte
	switch t := v.(type) {
	case string:
		raw = []byte(t)
	case []byte:
		raw = t
	default:
		return v, true
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, false
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		logging.From(ctx).Debug("ignore malformed business field", "field", field, "error", err)
		return nil, false
	}
	return decoded, true
}

// decodeStringMap accepts a string keyed map in any of its stored forms,
// including typed maps such as map[string]int, and returns its entries sorted
// by key. Anything else is absent.
func decodeStringMap(ctx context.Context, field string, v any) []pair {
	v, ok := decodeJSONText(ctx, field, v)
	if !ok || v == nil {
		return nil
	}

	var pairs []pair
	switch m := v.(type) {
	case map[string]string:
		for k, val := range m {
			pairs = append(pairs, pair{key: k, value: val})
		}
	case map[string]any:
		for k, val := range m {
			pairs = append(pairs, pair{key: k, value: scalarString(val)})
		}
	default:
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String {
			iter := rv.MapRange()
			for iter.Next() {
				pairs = append(pairs, pair{key: iter.Key().String(), value: scalarString(iter.Value().Interface())})
			}
			break
		}
		logging.From(ctx).Debug("ignore business field with unexpected shape", "field", field, "type", fmt.Sprintf("%T", v))
		return nil
	}

	sort.Slice(pairs, func(i, j int) bool { return pairs[i].key < pairs[j].key })
	return pairs
}

// decodeStringList accepts an ordered list in any of its stored forms,
// including typed slices and arrays. Anything else is absent.
func decodeStringList(ctx context.Context, field string, v any) []string {
	v, ok := decodeJSONText(ctx, field, v)
	if !ok || v == nil {
		return nil
	}

	switch list := v.(type) {
	case []string:
		return list
	case []any:
		items := make([]string, 0, len(list))
		for _, item := range list {
			items = append(items, scalarString(item))
		}
		return items
	default:
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
			items := make([]string, 0, rv.Len())
			for i := range rv.Len() {
				items = append(items, scalarString(rv.Index(i).Interface()))
			}
			return items
		}
		logging.From(ctx).Debug("ignore business field with unexpected shape", "field", field, "type", fmt.Sprintf("%T", v))
		return nil
	}
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	case map[string]any, []any:
		raw, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(raw)
	default:
		return fmt.Sprint(t)
	}
}
